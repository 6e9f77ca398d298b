// Package api holds the adapter for JSON API sources.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"neurobot/internal/config"
	"neurobot/internal/domain"
	"neurobot/internal/source/client"
)

// credentialKeys are params treated as credentials; a source with a
// missing or placeholder value for any of them is skipped outright.
var credentialKeys = map[string]bool{
	"key":          true,
	"token":        true,
	"api_key":      true,
	"apikey":       true,
	"access_token": true,
}

// Adapter fetches a JSON API source and normalizes its elements into
// items, tolerating the common envelope and field-name variations.
type Adapter struct {
	name     string
	baseURL  string
	params   map[string]string
	category domain.Category
	client   *client.Client
	logger   *slog.Logger
}

func New(cfg config.SourceConfig, c *client.Client, logger *slog.Logger) *Adapter {
	return &Adapter{
		name:     cfg.Name,
		baseURL:  cfg.URL,
		params:   cfg.Params,
		category: cfg.Category,
		client:   c,
		logger:   logger.With("source", cfg.Name),
	}
}

func (a *Adapter) Name() string {
	return a.name
}

func (a *Adapter) Fetch(ctx context.Context) ([]domain.Item, error) {
	if !a.hasValidCredentials() {
		a.logger.Warn("skipping source with missing or placeholder credentials")
		return nil, nil
	}

	body, err := a.client.Get(ctx, a.requestURL())
	if err != nil {
		return nil, err
	}

	elements, err := unwrap(body)
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	items := make([]domain.Item, 0, len(elements))
	for _, el := range elements {
		if item, ok := a.normalize(el); ok {
			items = append(items, item)
		}
	}

	a.logger.Debug("normalized items", "raw", len(elements), "count", len(items))

	return items, nil
}

func (a *Adapter) hasValidCredentials() bool {
	for key, value := range a.params {
		if credentialKeys[key] && (value == "" || config.IsPlaceholder(value)) {
			return false
		}
	}
	return true
}

func (a *Adapter) requestURL() string {
	if len(a.params) == 0 {
		return a.baseURL
	}

	q := url.Values{}
	for key, value := range a.params {
		q.Set(key, value)
	}

	sep := "?"
	if strings.Contains(a.baseURL, "?") {
		sep = "&"
	}
	return a.baseURL + sep + q.Encode()
}

// unwrap extracts the element list from a response, trying the known
// container keys in order and falling back to a bare JSON array.
func unwrap(body []byte) ([]map[string]any, error) {
	trimmed := bytes.TrimSpace(body)

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []map[string]any
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		return list, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, err
	}

	for _, key := range []string{"data", "items", "results"} {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		var list []map[string]any
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("container %q: %w", key, err)
		}
		return list, nil
	}

	return nil, nil
}

// normalize maps one raw element onto an item. Elements missing a
// title or URL are dropped.
func (a *Adapter) normalize(el map[string]any) (domain.Item, bool) {
	title := stringField(el, "title", "name")
	link := stringField(el, "url", "link", "permalink")
	if title == "" || link == "" {
		return domain.Item{}, false
	}

	return domain.Item{
		ID:          stringField(el, "id"),
		Title:       title,
		URL:         link,
		Description: stringField(el, "description", "summary", "content", "excerpt"),
		Date:        stringField(el, "date", "published_date", "created_at"),
		Author:      stringField(el, "author", "creator"),
		SourceName:  a.name,
		Category:    a.category,
	}, true
}

func stringField(el map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := el[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}
