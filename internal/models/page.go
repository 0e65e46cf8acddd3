package models

// PageData is an editable static page (home, project) served by the backend.
type PageData struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// PageResponse wraps GET /api/pages/{name}.
type PageResponse struct {
	Page PageData `json:"page"`
}
