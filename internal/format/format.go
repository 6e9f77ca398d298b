// Package format renders categorized items into Telegram MarkdownV2
// messages, skipping URLs that were already posted.
package format

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"neurobot/internal/domain"
)

const (
	// maxDescriptionChars bounds the visible description length.
	maxDescriptionChars = 500
	// sentenceCutRatio: only cut at a sentence boundary when it keeps
	// at least this share of the truncation window.
	sentenceCutRatio = 0.6

	longDateFormat = "January 02, 2006"
)

// Message is one channel-ready message and the item URL it covers.
type Message struct {
	Text string
	URL  string
}

// Messages renders one message per item whose URL is not in posted,
// in category order then item order. The posted set is read-only here;
// only a confirmed send may record a URL.
func Messages(categorized map[domain.Category][]domain.Item, posted map[string]struct{}, logger *slog.Logger) []Message {
	var messages []Message

	for _, category := range domain.Categories() {
		for _, item := range categorized[category] {
			if item.URL == "" {
				continue
			}
			if _, ok := posted[item.URL]; ok {
				logger.Debug("skipping already posted item", "url", item.URL)
				continue
			}
			messages = append(messages, Message{
				Text: render(item),
				URL:  item.URL,
			})
		}
	}

	return messages
}

func render(item domain.Item) string {
	var b strings.Builder

	fmt.Fprintf(&b, "*%s*\n\n", EscapeMarkdownV2(item.Title))

	if desc := description(item); desc != "" {
		b.WriteString(desc)
		b.WriteString("\n\n")
	}

	if item.Author != "" {
		fmt.Fprintf(&b, "*👤 Author:* %s\n", EscapeMarkdownV2(item.Author))
	}
	if date := formatDate(item.Date); date != "" {
		fmt.Fprintf(&b, "*🗓 Date:* %s\n", date)
	}
	if item.SourceLabel != "" {
		fmt.Fprintf(&b, "*📌 Source:* %s\n", EscapeMarkdownV2(item.SourceLabel))
	}
	if line := researchLine(item); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\n[📖 Read Article](%s)\n", item.URL)

	return strings.TrimSpace(b.String())
}

// description cleans, escapes and truncates the item description.
func description(item domain.Item) string {
	desc := strings.TrimSpace(item.Description)
	if desc == "" {
		return ""
	}

	if rest, ok := strings.CutPrefix(desc, "Summary:"); ok {
		desc = strings.TrimSpace(rest)
	}

	// leftover inline markup from sloppy extraction
	desc = strings.ReplaceAll(desc, "<strong>Summary:</strong>", "")
	desc = strings.ReplaceAll(desc, "<strong>", "")
	desc = strings.ReplaceAll(desc, "</strong>", "")

	escaped := EscapeMarkdownV2(desc)
	return truncate(escaped, maxDescriptionChars)
}

// truncate cuts s to max runes, preferring the last sentence boundary
// inside the window when it keeps most of the text.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}

	window := string(runes[:max])
	if cut := strings.LastIndex(window, "."); cut > int(float64(max)*sentenceCutRatio) {
		return window[:cut+1]
	}
	return window
}

// formatDate turns an ISO-8601 date into a long human form, passing
// the raw string through when it cannot be parsed.
func formatDate(raw string) string {
	if raw == "" {
		return ""
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return EscapeMarkdownV2(t.Format(longDateFormat))
		}
	}

	return EscapeMarkdownV2(raw)
}

// researchLine prefers a clickable title+URL pair, degrades to
// title-only, then to the raw free-text note.
func researchLine(item domain.Item) string {
	if r := item.Research; r != nil && r.Title != "" {
		if r.URL != "" {
			return fmt.Sprintf("📝 *Research:* [%s](%s)", EscapeMarkdownV2(r.Title), escapeLinkURL(r.URL))
		}
		return fmt.Sprintf("📝 *Research:* %s", EscapeMarkdownV2(r.Title))
	}

	if item.ResearchNote != "" {
		return "📝 " + EscapeMarkdownV2(item.ResearchNote)
	}

	return ""
}

const escapeChars = "_[]()~`>#+-=|{}.!"

// EscapeMarkdownV2 escapes MarkdownV2 reserved characters in visible
// text. Never apply it to a URL inside a link construct.
func EscapeMarkdownV2(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if strings.ContainsRune(escapeChars, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// escapeLinkURL escapes only the parentheses that would terminate a
// MarkdownV2 link early.
func escapeLinkURL(url string) string {
	url = strings.ReplaceAll(url, "(", "\\(")
	return strings.ReplaceAll(url, ")", "\\)")
}
