package models

// Photo is one gallery entry.
type Photo struct {
	Src          string `json:"src"`
	Alt          string `json:"alt"`
	OriginalPath string `json:"original_path"` // Used for ordering
}
