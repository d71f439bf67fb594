// Package model provides domain types shared across packages.
package model

import "unicode/utf8"

// PreviewLength is the maximum number of runes a cited source carries.
// The generator always sees the full passage; only citations are truncated.
const PreviewLength = 200

// Passage is a retrieved unit of indexed text with a relevance score.
// Passages are request-scoped values: created per search call, never mutated.
type Passage struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Source is the citation form of a Passage returned to callers.
// Content is a preview; see PreviewLength.
type Source struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SourceOf builds a citation from a passage, truncating the content preview.
func SourceOf(p Passage) Source {
	return Source{
		ID:       p.ID,
		Content:  Preview(p.Content),
		Score:    p.Score,
		Metadata: p.Metadata,
	}
}

// Preview truncates s to PreviewLength runes with an ellipsis suffix.
func Preview(s string) string {
	if utf8.RuneCountInString(s) <= PreviewLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:PreviewLength]) + "..."
}

// QueryMode selects how a book query is grounded.
type QueryMode string

const (
	// ModeFullBook retrieves context from the whole indexed collection.
	ModeFullBook QueryMode = "full_book"
	// ModeSelectedText uses the caller-supplied excerpt as the sole context,
	// bypassing retrieval entirely.
	ModeSelectedText QueryMode = "selected_text"
)

// Valid reports whether m is a known query mode.
func (m QueryMode) Valid() bool {
	return m == ModeFullBook || m == ModeSelectedText
}
