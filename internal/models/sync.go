package models

// SyncSummary reports the outcome counts of a batch sync.
type SyncSummary struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// SyncResult describes one successfully synced blog.
type SyncResult struct {
	Action string      `json:"action"` // "created" or "updated"
	Blog   *BlogDetail `json:"blog,omitempty"`
}

// SyncResponse is returned by POST /api/sync-blogs.
type SyncResponse struct {
	Summary SyncSummary  `json:"summary"`
	Results []SyncResult `json:"results"`
	Errors  []string     `json:"errors"`
}
