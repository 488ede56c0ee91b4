package template

import "strings"

// Filter narrows semantic search to templates of a document type and/or jurisdiction.
// Empty fields match everything; comparison is case-insensitive.
type Filter struct {
	DocType      string
	Jurisdiction string
}

// IsEmpty reports whether the filter matches every template.
func (f Filter) IsEmpty() bool {
	return strings.TrimSpace(f.DocType) == "" && strings.TrimSpace(f.Jurisdiction) == ""
}

// Matches reports whether t passes the filter.
func (f Filter) Matches(t *Template) bool {
	if d := strings.TrimSpace(f.DocType); d != "" && !strings.EqualFold(d, t.DocType()) {
		return false
	}
	if j := strings.TrimSpace(f.Jurisdiction); j != "" && !strings.EqualFold(j, t.Jurisdiction()) {
		return false
	}
	return true
}
