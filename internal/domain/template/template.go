package template

import (
	"fmt"
	"regexp"
	"strings"
)

var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// Limits on template text fields.
const (
	MaxTitleLen       = 300
	MaxDescriptionLen = 2000
	MaxTags           = 32
)

// Template is the catalog aggregate (immutable value object).
// A nil embedding means the template is not indexed for vector search yet.
type Template struct {
	id           string
	title        string
	description  string
	docType      string
	jurisdiction string
	tags         []string
	body         string
	sourceURL    string
	embedding    []float32
	variables    []Variable
	createdAt    int64
}

// Params is the input of New.
type Params struct {
	ID           string
	Title        string
	Description  string
	DocType      string
	Jurisdiction string
	Tags         []string
	Body         string
	SourceURL    string
	Embedding    []float32
	Variables    []Variable
	CreatedAt    int64
}

// New validates and creates a Template.
// The ID must be a UUID, title and body are required, variable keys are unique.
// The embedding, when present, must have dims components.
func New(p Params, dims int) (Template, error) {
	if !uuidRegex.MatchString(p.ID) {
		return Template{}, fmt.Errorf("template ID must be a UUID, got %q", p.ID)
	}
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return Template{}, fmt.Errorf("title is required")
	}
	if len(title) > MaxTitleLen {
		return Template{}, fmt.Errorf("title too long (max %d)", MaxTitleLen)
	}
	if len(p.Description) > MaxDescriptionLen {
		return Template{}, fmt.Errorf("description too long (max %d)", MaxDescriptionLen)
	}
	if strings.TrimSpace(p.Body) == "" {
		return Template{}, fmt.Errorf("body is required")
	}
	if p.Embedding != nil && len(p.Embedding) != dims {
		return Template{}, fmt.Errorf("embedding has %d dimensions, expected %d", len(p.Embedding), dims)
	}

	tags := dedupTags(p.Tags)
	if len(tags) > MaxTags {
		return Template{}, fmt.Errorf("too many tags (max %d)", MaxTags)
	}

	seen := make(map[string]bool, len(p.Variables))
	for _, v := range p.Variables {
		if seen[v.Key()] {
			return Template{}, fmt.Errorf("duplicate variable key %q", v.Key())
		}
		seen[v.Key()] = true
	}

	return Template{
		id:           p.ID,
		title:        title,
		description:  strings.TrimSpace(p.Description),
		docType:      strings.TrimSpace(p.DocType),
		jurisdiction: strings.TrimSpace(p.Jurisdiction),
		tags:         tags,
		body:         p.Body,
		sourceURL:    p.SourceURL,
		embedding:    p.Embedding,
		variables:    append([]Variable(nil), p.Variables...),
		createdAt:    p.CreatedAt,
	}, nil
}

// Reconstruct creates a Template without validation (storage hydration).
func Reconstruct(p Params) Template {
	return Template{
		id:           p.ID,
		title:        p.Title,
		description:  p.Description,
		docType:      p.DocType,
		jurisdiction: p.Jurisdiction,
		tags:         p.Tags,
		body:         p.Body,
		sourceURL:    p.SourceURL,
		embedding:    p.Embedding,
		variables:    p.Variables,
		createdAt:    p.CreatedAt,
	}
}

// ID returns the template identifier.
func (t *Template) ID() string { return t.id }

// Title returns the display title.
func (t *Template) Title() string { return t.title }

// Description returns the free-text description.
func (t *Template) Description() string { return t.description }

// DocType returns the document category, e.g. "nda".
func (t *Template) DocType() string { return t.docType }

// Jurisdiction returns the governing jurisdiction, e.g. "US-CA".
func (t *Template) Jurisdiction() string { return t.jurisdiction }

// Tags returns the tag set in insertion order.
func (t *Template) Tags() []string { return t.tags }

// Body returns the markdown body with {{key}} placeholders.
func (t *Template) Body() string { return t.body }

// SourceURL returns the web page the template was synthesized from, if any.
func (t *Template) SourceURL() string { return t.sourceURL }

// Embedding returns the vector, nil when not indexed.
func (t *Template) Embedding() []float32 { return t.embedding }

// HasEmbedding reports whether the template takes part in vector search.
func (t *Template) HasEmbedding() bool { return len(t.embedding) > 0 }

// Variables returns the template variables.
func (t *Template) Variables() []Variable { return t.variables }

// CreatedAt returns the creation time in unix milliseconds.
func (t *Template) CreatedAt() int64 { return t.createdAt }

// Variable returns the variable with the given key.
func (t *Template) Variable(key string) (Variable, bool) {
	for _, v := range t.variables {
		if v.Key() == key {
			return v, true
		}
	}
	return Variable{}, false
}

func dedupTags(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, tag := range in {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
