// Package monitor records per-run outcomes to the status store and
// classifies overall health.
package monitor

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"neurobot/internal/storage/status"
)

const (
	maxStoredErrors = 50
	reportErrors    = 5

	// failureRateThreshold marks the bot unhealthy once this share of
	// runs has failed.
	failureRateThreshold = 0.3

	longTimeFormat = "January 02, 2006 at 03:04 PM"
)

// Monitor tracks one run at a time. Start opens the run, RecordError
// buffers errors for it, Complete closes it and merges the buffer into
// the durable record. The record is saved after every mutation so a
// crash mid-run loses at most the in-flight error buffer.
type Monitor struct {
	store     *status.Store
	record    *status.Record
	runErrors []status.ErrorEntry
	logger    *slog.Logger
	now       func() time.Time
}

func New(store *status.Store, logger *slog.Logger) *Monitor {
	return &Monitor{
		store:  store,
		record: store.Load(),
		logger: logger,
		now:    time.Now,
	}
}

// Start records the beginning of a run and returns its id.
func (m *Monitor) Start() string {
	now := m.now()
	m.record.LastRun = now.Format(time.RFC3339)
	m.record.LastRunFormatted = now.Format(longTimeFormat)
	m.record.LastRunTimestamp = float64(now.Unix())
	m.record.TotalRuns++
	m.runErrors = nil
	m.store.Save(m.record)

	return uuid.NewString()
}

// RecordError buffers an error for the current run.
func (m *Monitor) RecordError(source, msg string) {
	now := m.now()
	m.runErrors = append(m.runErrors, status.ErrorEntry{
		Timestamp:     now.Format(time.RFC3339),
		FormattedTime: now.Format(longTimeFormat),
		Source:        source,
		Error:         msg,
	})
}

// Complete closes the current run: counters, posts, per-source
// statuses, and the buffered errors merged newest-first.
func (m *Monitor) Complete(success bool, posts int, sourceStatuses map[string]string) {
	if success {
		m.record.SuccessfulRuns++
	} else {
		m.record.FailedRuns++
	}

	m.record.PostsCount += posts

	if len(sourceStatuses) > 0 {
		m.record.SourcesStatus = sourceStatuses
	}

	if len(m.runErrors) > 0 {
		merged := append([]status.ErrorEntry{}, m.runErrors...)
		m.record.Errors = append(merged, m.record.Errors...)
		if len(m.record.Errors) > maxStoredErrors {
			m.record.Errors = m.record.Errors[:maxStoredErrors]
		}
		m.runErrors = nil
	}

	m.store.Save(m.record)

	m.logger.Debug("run recorded",
		"success", success,
		"posts", posts,
		"total_runs", m.record.TotalRuns,
	)
}

// Health classifies the bot given the expected run interval.
func (m *Monitor) Health(expectedInterval time.Duration) string {
	if m.record.LastRunTimestamp == 0 {
		return "Unknown"
	}

	lastRun := time.Unix(int64(m.record.LastRunTimestamp), 0)
	if m.now().Sub(lastRun) > 2*expectedInterval {
		return "Unhealthy - Last run too long ago"
	}

	if m.record.TotalRuns > 0 {
		rate := float64(m.record.FailedRuns) / float64(m.record.TotalRuns)
		if rate > failureRateThreshold {
			return "Unhealthy - High error rate"
		}
	}

	return "Healthy"
}

// Report renders a status snapshot suitable for posting to the channel.
func (m *Monitor) Report(expectedInterval time.Duration) string {
	rec := m.record

	var b strings.Builder
	b.WriteString("🤖 *Status Report*\n\n")
	fmt.Fprintf(&b, "*Health:* %s\n", m.Health(expectedInterval))

	lastRun := rec.LastRunFormatted
	if lastRun == "" {
		lastRun = "Never"
	}
	fmt.Fprintf(&b, "*Last run:* %s\n", lastRun)
	fmt.Fprintf(&b, "*Total runs:* %d\n", rec.TotalRuns)
	fmt.Fprintf(&b, "*Successful:* %d\n", rec.SuccessfulRuns)
	fmt.Fprintf(&b, "*Failed:* %d\n", rec.FailedRuns)
	fmt.Fprintf(&b, "*Posts made:* %d\n\n", rec.PostsCount)

	b.WriteString("*Sources:*\n")
	for source, st := range rec.SourcesStatus {
		fmt.Fprintf(&b, "- %s: %s\n", source, st)
	}

	if len(rec.Errors) > 0 {
		b.WriteString("\n*Recent errors:*\n")
		for i, e := range rec.Errors {
			if i >= reportErrors {
				break
			}
			fmt.Fprintf(&b, "%d. *%s* [%s] %s\n", i+1, e.FormattedTime, e.Source, e.Error)
		}
	}

	return b.String()
}
