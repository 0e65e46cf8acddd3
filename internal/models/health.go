package models

import "time"

// BackendHealth is the optional JSON body of the backend health endpoint.
type BackendHealth struct {
	Status  string `json:"status,omitempty"`
	Version string `json:"version,omitempty"`
}

// HealthReport is served by the site's own /healthz endpoint.
type HealthReport struct {
	Status        string    `json:"status"`
	Backend       string    `json:"backend"`
	LastCheck     time.Time `json:"last_check,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	Version       string    `json:"version,omitempty"`
}

// ContentEvent is pushed to browsers over the update hub.
type ContentEvent struct {
	Type string    `json:"type"`
	Name string    `json:"name"`
	At   time.Time `json:"at"`
}
