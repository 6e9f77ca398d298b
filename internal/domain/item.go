package domain

// Category is a fixed routing bucket for content items.
type Category string

const (
	CategoryNews   Category = "news"
	CategoryEvents Category = "events"
	CategoryJobs   Category = "jobs"
	CategoryVideos Category = "videos/courses"
	CategoryFacts  Category = "facts"
)

// Categories returns all known categories in presentation order.
func Categories() []Category {
	return []Category{
		CategoryNews,
		CategoryEvents,
		CategoryJobs,
		CategoryVideos,
		CategoryFacts,
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryNews, CategoryEvents, CategoryJobs, CategoryVideos, CategoryFacts:
		return true
	}
	return false
}

// Research references the original research paper behind an article.
type Research struct {
	Title string
	URL   string
}

// Item is one normalized piece of content from any source.
type Item struct {
	ID          string
	Title       string
	URL         string
	Description string
	Author      string
	Date        string // raw date string as found at the source, often ISO-8601
	SourceLabel string
	Research    *Research
	// ResearchNote is a free-text fallback when no structured research
	// reference could be extracted.
	ResearchNote string
	ImageURL     string

	SourceName string
	Category   Category
}

// Identifier returns the dedup key: the explicit ID when present,
// the title otherwise.
func (i Item) Identifier() string {
	if i.ID != "" {
		return i.ID
	}
	return i.Title
}
