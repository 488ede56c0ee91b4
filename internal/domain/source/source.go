// Package source holds web pages considered by the fallback tier.
package source

import "strings"

// MinContentChars is the shortest page text worth synthesizing a template from.
const MinContentChars = 100

// Page is one web search hit.
type Page struct {
	Title     string
	URL       string
	Text      string
	Highlight string
	Score     float64
}

// HasContent reports whether the page text is long enough to use.
func (p Page) HasContent() bool {
	return len(strings.TrimSpace(p.Text)) >= MinContentChars
}

// Combined returns title, highlight and text joined for keyword checks.
func (p Page) Combined() string {
	return strings.ToLower(p.Title + " " + p.Highlight + " " + p.Text)
}
