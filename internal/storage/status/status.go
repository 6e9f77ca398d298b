// Package status persists the run record as a JSON document, fully
// rewritten on every save.
package status

import (
	"encoding/json"
	"log/slog"
	"os"
)

// Record is the durable run-status document.
type Record struct {
	LastRun          string            `json:"last_run"`
	LastRunFormatted string            `json:"last_run_formatted,omitempty"`
	LastRunTimestamp float64           `json:"last_run_timestamp"`
	TotalRuns        int               `json:"total_runs"`
	SuccessfulRuns   int               `json:"successful_runs"`
	FailedRuns       int               `json:"failed_runs"`
	Errors           []ErrorEntry      `json:"errors"`
	PostsCount       int               `json:"posts_count"`
	SourcesStatus    map[string]string `json:"sources_status"`
}

// ErrorEntry is one recorded error, newest first in Record.Errors.
type ErrorEntry struct {
	Timestamp     string `json:"timestamp"`
	FormattedTime string `json:"formatted_time"`
	Source        string `json:"source"`
	Error         string `json:"error"`
}

type Store struct {
	path   string
	logger *slog.Logger
}

func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Load reads the record, returning a zero record when the file is
// missing or unreadable.
func (s *Store) Load() *Record {
	rec := &Record{SourcesStatus: map[string]string{}}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("failed to read status file, starting fresh", "error", err)
		}
		return rec
	}

	if err := json.Unmarshal(data, rec); err != nil {
		s.logger.Error("failed to parse status file, starting fresh", "error", err)
		return &Record{SourcesStatus: map[string]string{}}
	}
	if rec.SourcesStatus == nil {
		rec.SourcesStatus = map[string]string{}
	}

	return rec
}

// Save rewrites the record via a temp file so a crash mid-write cannot
// leave a truncated document. Failures are logged and swallowed.
func (s *Store) Save(rec *Record) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		s.logger.Error("failed to marshal status", "error", err)
		return
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		s.logger.Error("failed to write status file", "error", err)
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.logger.Error("failed to replace status file", "error", err)
		_ = os.Remove(tmp)
	}
}
