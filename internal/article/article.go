package article

import (
	"strings"
	"time"
)

// Article is one fetched news item. Instances are treated as immutable once
// constructed; the dedup engine never mutates them.
type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Keywords    []string  `json:"keywords,omitempty"`
	Topic       string    `json:"topic,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// CombinedText returns title + description joined by a single space, the text
// unit most similarity and extraction paths operate on.
func (a Article) CombinedText() string {
	return strings.TrimSpace(a.Title + " " + a.Description)
}

// FingerprintText returns the text used for the content fingerprint:
// title, description, and keywords, space-joined.
func (a Article) FingerprintText() string {
	parts := make([]string, 0, 2+len(a.Keywords))
	parts = append(parts, a.Title, a.Description)
	parts = append(parts, a.Keywords...)
	return strings.TrimSpace(strings.Join(parts, " "))
}
