// Package pipeline holds the pure item transforms between fetch and
// formatting: dedup, relevance filtering and categorization.
package pipeline

import "neurobot/internal/domain"

// Clean deduplicates items by identifier, keeping the first occurrence
// in input order, then drops items missing a title or URL.
func Clean(items []domain.Item) []domain.Item {
	seen := make(map[string]struct{}, len(items))
	cleaned := make([]domain.Item, 0, len(items))

	for _, item := range items {
		id := item.Identifier()
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		if !relevant(item) {
			continue
		}
		cleaned = append(cleaned, item)
	}

	return cleaned
}

func relevant(item domain.Item) bool {
	return item.Title != "" && item.URL != ""
}
