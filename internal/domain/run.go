package domain

import "time"

// RunStats holds statistics about one pipeline run.
type RunStats struct {
	RunID     string
	Fetched   int
	Cleaned   int
	Emitted   int
	Sent      int
	Fallbacks int
	PerSource map[string]string
	Duration  time.Duration
}
