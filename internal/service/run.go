package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"neurobot/internal/domain"
	"neurobot/internal/format"
	"neurobot/internal/pipeline"
)

// RunService executes one full fetch→post pipeline run. Source,
// delivery and storage failures are contained inside the run; only
// context cancellation aborts it.
type RunService struct {
	sources   []Source
	ledger    Ledger
	deliverer Deliverer
	monitor   Monitor
	logger    *slog.Logger
}

func NewRunService(
	sources []Source,
	ledger Ledger,
	deliverer Deliverer,
	monitor Monitor,
	logger *slog.Logger,
) *RunService {
	return &RunService{
		sources:   sources,
		ledger:    ledger,
		deliverer: deliverer,
		monitor:   monitor,
		logger:    logger,
	}
}

func (s *RunService) Run(ctx context.Context) (*domain.RunStats, error) {
	startTime := time.Now()
	runID := s.monitor.Start()
	logger := s.logger.With("run_id", runID)

	logger.Info("starting run", "sources", len(s.sources))

	statuses := make(map[string]string, len(s.sources))
	var all []domain.Item

	for _, src := range s.sources {
		if ctx.Err() != nil {
			break
		}

		items, err := src.Fetch(ctx)
		if err != nil {
			logger.Error("source fetch failed",
				"source", src.Name(),
				"error", err,
			)
			s.monitor.RecordError(src.Name(), err.Error())
		}

		if len(items) == 0 {
			statuses[src.Name()] = "No data"
		} else {
			statuses[src.Name()] = fmt.Sprintf("OK (%d items)", len(items))
		}

		all = append(all, items...)
		logger.Info("fetched items", "source", src.Name(), "count", len(items))
	}

	cleaned := pipeline.Clean(all)
	logger.Info("cleaned items", "fetched", len(all), "remaining", len(cleaned))

	categorized, fallbacks := pipeline.Categorize(cleaned)
	if fallbacks > 0 {
		logger.Warn("items with unknown category routed to news", "count", fallbacks)
	}

	posted := s.ledger.Load()
	messages := format.Messages(categorized, posted, logger)
	logger.Info("formatted messages", "count", len(messages), "already_posted", len(cleaned)-len(messages))

	sent := s.deliverer.Deliver(ctx, messages)

	success := sent == len(messages)
	s.monitor.Complete(success, sent, statuses)

	stats := &domain.RunStats{
		RunID:     runID,
		Fetched:   len(all),
		Cleaned:   len(cleaned),
		Emitted:   len(messages),
		Sent:      sent,
		Fallbacks: fallbacks,
		PerSource: statuses,
		Duration:  time.Since(startTime),
	}

	logger.Info("run completed",
		"fetched", stats.Fetched,
		"cleaned", stats.Cleaned,
		"emitted", stats.Emitted,
		"sent", stats.Sent,
		"success", success,
		"duration", stats.Duration,
	)

	return stats, ctx.Err()
}
