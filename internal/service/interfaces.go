package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"neurobot/internal/domain"
	"neurobot/internal/format"
)

type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.Item, error)
}

type Ledger interface {
	Load() map[string]struct{}
	Record(url string)
}

type Deliverer interface {
	Deliver(ctx context.Context, messages []format.Message) int
}

type Monitor interface {
	Start() string
	RecordError(source, msg string)
	Complete(success bool, posts int, sourceStatuses map[string]string)
}
