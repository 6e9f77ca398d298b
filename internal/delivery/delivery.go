// Package delivery sends formatted messages through the channel client
// and records confirmed sends in the ledger.
package delivery

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"neurobot/internal/format"
	"neurobot/internal/telegram"
)

// maxRateLimitAttempts bounds retries of a single rate-limited message
// so a hostile retry_after cannot stall a run forever.
const maxRateLimitAttempts = 5

// Channel is the abstract send capability. Rate limiting surfaces as
// *telegram.RateLimitError.
type Channel interface {
	Send(ctx context.Context, text string) error
}

// Ledger records URLs whose messages were accepted by the channel.
type Ledger interface {
	Record(url string)
}

// ErrorRecorder receives delivery failures for the run record.
type ErrorRecorder interface {
	RecordError(source, msg string)
}

type Pipeline struct {
	channel  Channel
	ledger   Ledger
	recorder ErrorRecorder
	delay    time.Duration
	logger   *slog.Logger

	// sleep is swapped out in tests
	sleep func(ctx context.Context, d time.Duration) error
}

func NewPipeline(channel Channel, ledger Ledger, recorder ErrorRecorder, delay time.Duration, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		channel:  channel,
		ledger:   ledger,
		recorder: recorder,
		delay:    delay,
		logger:   logger,
		sleep:    sleepCtx,
	}
}

// Deliver sends messages in order with the configured delay between
// them and returns the number accepted by the channel. A rate-limited
// message is retried after the suggested wait; any other send failure
// skips that message only. Only accepted sends reach the ledger.
func (p *Pipeline) Deliver(ctx context.Context, messages []format.Message) int {
	sent := 0

	for i, msg := range messages {
		if i > 0 {
			if err := p.sleep(ctx, p.delay); err != nil {
				p.logger.Warn("delivery interrupted", "sent", sent, "remaining", len(messages)-i)
				return sent
			}
		}

		if p.sendWithRetry(ctx, msg) {
			p.ledger.Record(msg.URL)
			sent++
		}
	}

	return sent
}

func (p *Pipeline) sendWithRetry(ctx context.Context, msg format.Message) bool {
	for attempt := 1; attempt <= maxRateLimitAttempts; attempt++ {
		err := p.channel.Send(ctx, msg.Text)
		if err == nil {
			return true
		}

		var rateLimit *telegram.RateLimitError
		if !errors.As(err, &rateLimit) {
			p.logger.Error("failed to send message, skipping", "url", msg.URL, "error", err)
			if p.recorder != nil {
				p.recorder.RecordError("delivery", err.Error())
			}
			return false
		}

		if attempt == maxRateLimitAttempts {
			break
		}

		// wait a bit longer than the provider asked for
		wait := rateLimit.RetryAfter + time.Second
		p.logger.Warn("rate limited, retrying message",
			"url", msg.URL,
			"attempt", attempt,
			"wait", wait,
		)
		if err := p.sleep(ctx, wait); err != nil {
			return false
		}
	}

	p.logger.Error("message still rate limited, skipping",
		"url", msg.URL,
		"attempts", maxRateLimitAttempts,
	)
	if p.recorder != nil {
		p.recorder.RecordError("delivery", "rate limit retries exhausted for "+msg.URL)
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
