// Package source wires configured sources to their adapters.
package source

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"neurobot/internal/config"
	"neurobot/internal/domain"
	"neurobot/internal/source/api"
	"neurobot/internal/source/client"
	"neurobot/internal/source/website"
)

// Source fetches normalized items from one configured source.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.Item, error)
}

// Build constructs one adapter per configured source. Website sources
// get a site-specific adapter when the host is known, the generic
// heuristic otherwise; unknown types are skipped with a warning.
func Build(cfgs []config.SourceConfig, httpc *client.Client, logger *slog.Logger) []Source {
	sources := make([]Source, 0, len(cfgs))

	for _, cfg := range cfgs {
		switch cfg.Type {
		case "website":
			if hostContains(cfg.URL, website.NeuroNewsHost) {
				sources = append(sources, website.NewNeuroNews(cfg, httpc, logger))
			} else {
				sources = append(sources, website.NewGeneric(cfg, httpc, logger))
			}
		case "api":
			sources = append(sources, api.New(cfg, httpc, logger))
		default:
			logger.Warn("unknown source type, skipping",
				"source", cfg.Name,
				"type", cfg.Type,
			)
		}
	}

	return sources
}

func hostContains(rawURL, host string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.Contains(u.Host, host)
}
