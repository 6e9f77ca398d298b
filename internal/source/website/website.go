// Package website holds the scraping adapters for website-type sources.
package website

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"neurobot/internal/config"
	"neurobot/internal/domain"
	"neurobot/internal/source/client"
)

// Generic scrapes any site with repeated <article> blocks: first
// heading-or-link becomes the title, first paragraph the description.
type Generic struct {
	name     string
	baseURL  string
	category domain.Category
	client   *client.Client
	logger   *slog.Logger
}

func NewGeneric(cfg config.SourceConfig, c *client.Client, logger *slog.Logger) *Generic {
	return &Generic{
		name:     cfg.Name,
		baseURL:  cfg.URL,
		category: cfg.Category,
		client:   c,
		logger:   logger.With("source", cfg.Name),
	}
}

func (g *Generic) Name() string {
	return g.name
}

func (g *Generic) Fetch(ctx context.Context) ([]domain.Item, error) {
	body, err := g.client.Get(ctx, g.baseURL)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var items []domain.Item
	doc.Find("article").Each(func(_ int, art *goquery.Selection) {
		heading := art.Find("h1, h2, h3, a").First()
		title := strings.TrimSpace(heading.Text())
		if title == "" {
			return
		}

		anchor := heading
		if !heading.Is("a") {
			anchor = heading.Find("a").First()
		}

		link := g.baseURL
		if href, ok := anchor.Attr("href"); ok && href != "" {
			link = absoluteURL(href, g.baseURL)
		}

		items = append(items, domain.Item{
			Title:       title,
			URL:         link,
			Description: strings.TrimSpace(art.Find("p").First().Text()),
			SourceName:  g.name,
			Category:    g.category,
		})
	})

	g.logger.Debug("parsed articles", "count", len(items))

	return items, nil
}

// absoluteURL resolves href against base when it is relative.
func absoluteURL(href, base string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}

	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}

	return b.ResolveReference(ref).String()
}
