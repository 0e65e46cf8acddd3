package constants

import "time"

// Layered timeout budgets: health < single item < list.
const (
	// DefaultHealthCheckTimeout bounds a single health probe.
	DefaultHealthCheckTimeout = 500 * time.Millisecond

	// DefaultHealthCacheTTL is how long a completed probe result is trusted.
	DefaultHealthCacheTTL = 30 * time.Second

	// DefaultFetchTimeout bounds single-item fetches (one post, one page).
	DefaultFetchTimeout = 1 * time.Second

	// DefaultListFetchTimeout bounds list fetches.
	DefaultListFetchTimeout = 3 * time.Second

	// DefaultBackgroundSyncTimeout bounds the detached remote fetch of client-first loads.
	DefaultBackgroundSyncTimeout = 5 * time.Second

	// DefaultWriteTimeout bounds create/update/sync requests sent to the backend.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultRetryAttempts is the number of retries for backend writes.
	DefaultRetryAttempts = 2
)
