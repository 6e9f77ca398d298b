package pipeline

import "neurobot/internal/domain"

// Categorize buckets items by their category field, preserving input
// order within each bucket. Items with an unknown or empty category
// land in news; the second return value counts those fallbacks.
func Categorize(items []domain.Item) (map[domain.Category][]domain.Item, int) {
	buckets := make(map[domain.Category][]domain.Item, len(domain.Categories()))
	for _, c := range domain.Categories() {
		buckets[c] = nil
	}

	fallbacks := 0
	for _, item := range items {
		c := item.Category
		if !c.Valid() {
			fallbacks++
			c = domain.CategoryNews
		}
		buckets[c] = append(buckets[c], item)
	}

	return buckets, fallbacks
}
