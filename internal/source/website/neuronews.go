package website

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"neurobot/internal/config"
	"neurobot/internal/domain"
	"neurobot/internal/source/client"
)

// NeuroNewsHost selects this adapter in the source registry.
const NeuroNewsHost = "neurosciencenews.com"

const (
	defaultPageDelay = 2 * time.Second
	defaultItemDelay = 1 * time.Second
)

// NeuroNews scrapes neurosciencenews.com article cards with pagination
// and per-article detail pages for author/date/research metadata.
type NeuroNews struct {
	name     string
	baseURL  string
	category domain.Category
	maxPages int
	client   *client.Client
	logger   *slog.Logger

	// polite delays between page and article-detail requests
	pageDelay time.Duration
	itemDelay time.Duration
}

func NewNeuroNews(cfg config.SourceConfig, c *client.Client, logger *slog.Logger) *NeuroNews {
	return &NeuroNews{
		name:      cfg.Name,
		baseURL:   cfg.URL,
		category:  cfg.Category,
		maxPages:  cfg.MaxPages,
		client:    c,
		logger:    logger.With("source", cfg.Name),
		pageDelay: defaultPageDelay,
		itemDelay: defaultItemDelay,
	}
}

func (n *NeuroNews) Name() string {
	return n.name
}

func (n *NeuroNews) Fetch(ctx context.Context) ([]domain.Item, error) {
	base := strings.TrimRight(n.baseURL, "/")

	var items []domain.Item
	for page := 1; page <= n.maxPages; page++ {
		pageURL := base
		if page > 1 {
			if err := client.Sleep(ctx, n.pageDelay); err != nil {
				return items, err
			}
			pageURL = fmt.Sprintf("%s/page/%d/", base, page)
		}

		pageItems, err := n.fetchPage(ctx, pageURL)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			n.logger.Warn("page fetch failed, stopping pagination",
				"page", page,
				"error", err,
			)
			break
		}

		items = append(items, pageItems...)

		n.logger.Debug("fetched page",
			"page", page,
			"articles", len(pageItems),
			"total", len(items),
		)
	}

	return items, nil
}

func (n *NeuroNews) fetchPage(ctx context.Context, pageURL string) ([]domain.Item, error) {
	body, err := n.client.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var items []domain.Item
	doc.Find("div.meta").EachWithBreak(func(idx int, card *goquery.Selection) bool {
		if idx > 0 {
			if err := client.Sleep(ctx, n.itemDelay); err != nil {
				return false
			}
		}
		if item, ok := n.parseCard(ctx, card); ok {
			items = append(items, item)
		}
		return true
	})

	return items, nil
}

func (n *NeuroNews) parseCard(ctx context.Context, card *goquery.Selection) (domain.Item, bool) {
	a := card.Find("h3.title a").First()
	title := strings.TrimSpace(a.Text())
	href, _ := a.Attr("href")
	if title == "" || href == "" {
		return domain.Item{}, false
	}

	item := domain.Item{
		Title:      title,
		URL:        absoluteURL(href, n.baseURL),
		SourceName: n.name,
		Category:   n.category,
	}

	item.Description = cardDescription(card)
	if item.Description == "" {
		n.logger.Warn("no description found on listing page", "title", title)
	}

	if img := card.PrevFiltered("div.mask").Find("img").First(); img.Length() > 0 {
		if src, ok := img.Attr("src"); ok {
			item.ImageURL = src
		}
	}

	n.fetchDetail(ctx, &item)

	return item, true
}

// cardDescription extracts the excerpt from a listing card, trying the
// styled excerpt block, then any excerpt block, then a bare paragraph.
func cardDescription(card *goquery.Selection) string {
	if excerpt := card.Find("div.excerpt.body-color").First(); excerpt.Length() > 0 {
		excerpt.Find("div.read-more-wrap").Remove()
		if text := strings.TrimSpace(excerpt.Text()); text != "" {
			return text
		}
	}

	if excerpt := card.Find("div[class*='excerpt']").First(); excerpt.Length() > 0 {
		excerpt.Find("div.read-more-wrap").Remove()
		if text := strings.TrimSpace(excerpt.Text()); text != "" {
			return text
		}
	}

	return strings.TrimSpace(card.Find("p").First().Text())
}

// fetchDetail loads the article page and fills in metadata. Failures
// leave the item with listing-page data only.
func (n *NeuroNews) fetchDetail(ctx context.Context, item *domain.Item) {
	body, err := n.client.Get(ctx, item.URL)
	if err != nil {
		n.logger.Warn("failed to fetch article details", "url", item.URL, "error", err)
		return
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		n.logger.Warn("failed to parse article details", "url", item.URL, "error", err)
		return
	}

	if item.Description == "" {
		item.Description = detailDescription(doc)
	}

	doc.Find("p.has-background").Each(func(_ int, p *goquery.Selection) {
		p.Find("strong").Each(func(_ int, strong *goquery.Selection) {
			label := strings.TrimSpace(strong.Text())
			switch {
			case strings.HasPrefix(label, "Author:"):
				item.Author = labelValue(strong)
			case strings.HasPrefix(label, "Source:"):
				item.SourceLabel = labelValue(strong)
			case strings.HasPrefix(label, "Original Research:"):
				extractResearch(strong, item)
			}
		})
	})

	if t := doc.Find("time.entry-date").First(); t.Length() > 0 {
		if dt, ok := t.Attr("datetime"); ok && dt != "" {
			item.Date = dt
		} else {
			item.Date = strings.TrimSpace(t.Text())
		}
	}
}

// detailDescription prefers a paragraph starting with "Summary:",
// falling back to the first content paragraph.
func detailDescription(doc *goquery.Document) string {
	var summary string
	paragraphs := doc.Find("div.entry-content p")
	paragraphs.EachWithBreak(func(_ int, p *goquery.Selection) bool {
		text := strings.TrimSpace(p.Text())
		if strings.HasPrefix(text, "Summary:") {
			summary = strings.TrimSpace(strings.TrimPrefix(text, "Summary:"))
			return false
		}
		return true
	})
	if summary != "" {
		return summary
	}

	return strings.TrimSpace(paragraphs.First().Text())
}

// labelValue returns the value following a "Label:" strong tag, either
// the next sibling link's text or the trailing text node.
func labelValue(strong *goquery.Selection) string {
	if a := strong.NextAllFiltered("a").First(); a.Length() > 0 {
		if text := strings.TrimSpace(a.Text()); text != "" {
			return text
		}
	}
	return followingText(strong)
}

// followingText returns the first non-empty text after strong among its
// parent's child nodes.
func followingText(strong *goquery.Selection) string {
	if strong.Length() == 0 {
		return ""
	}

	var text string
	found := false
	strong.Parent().Contents().EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !found {
			if len(s.Nodes) > 0 && s.Nodes[0] == strong.Nodes[0] {
				found = true
			}
			return true
		}
		if t := strings.TrimSpace(s.Text()); t != "" {
			text = t
			return false
		}
		return true
	})

	return text
}

// extractResearch fills the research reference, preferring a linked
// title, then a bare title, then the raw trailing text.
func extractResearch(strong *goquery.Selection, item *domain.Item) {
	if a := strong.NextAllFiltered("a").First(); a.Length() > 0 {
		title := strings.TrimSpace(a.Text())
		if title != "" {
			research := &domain.Research{Title: title}
			if href, ok := a.Attr("href"); ok && strings.TrimSpace(href) != "" {
				research.URL = absoluteURL(strings.TrimSpace(href), item.URL)
			} else if next := a.NextAllFiltered("a").First(); next.Length() > 0 {
				if href, ok := next.Attr("href"); ok && strings.TrimSpace(href) != "" {
					research.URL = absoluteURL(strings.TrimSpace(href), item.URL)
				}
			}
			item.Research = research
			return
		}
	}

	if raw := followingText(strong); raw != "" {
		if rest, ok := strings.CutPrefix(raw, "Original Research:"); ok {
			item.ResearchNote = "Research:" + rest
		} else {
			item.ResearchNote = "Research: " + raw
		}
	}
}
