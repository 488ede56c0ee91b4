package template

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const frontMatterDelim = "---"

// FrontMatter is the YAML header written on template downloads.
type FrontMatter struct {
	TemplateID   string           `yaml:"template_id"`
	Title        string           `yaml:"title"`
	DocType      string           `yaml:"doc_type,omitempty"`
	Jurisdiction string           `yaml:"jurisdiction,omitempty"`
	Tags         []string         `yaml:"tags,omitempty"`
	SourceURL    string           `yaml:"source_url,omitempty"`
	Variables    []FrontMatterVar `yaml:"variables,omitempty"`
}

// FrontMatterVar is one variable entry of the front matter.
type FrontMatterVar struct {
	Key      string   `yaml:"key"`
	Label    string   `yaml:"label"`
	Type     string   `yaml:"type"`
	Required bool     `yaml:"required"`
	Example  string   `yaml:"example,omitempty"`
	Allowed  []string `yaml:"allowed_values,omitempty"`
}

// WithFrontMatter renders the template body prefixed with a YAML header.
func WithFrontMatter(t Template) (string, error) {
	fm := FrontMatter{
		TemplateID:   t.ID(),
		Title:        t.Title(),
		DocType:      t.DocType(),
		Jurisdiction: t.Jurisdiction(),
		Tags:         t.Tags(),
		SourceURL:    t.SourceURL(),
	}
	for _, v := range t.Variables() {
		fm.Variables = append(fm.Variables, FrontMatterVar{
			Key:      v.Key(),
			Label:    v.Label(),
			Type:     string(v.DataType()),
			Required: v.Required(),
			Example:  v.Example(),
			Allowed:  v.AllowedValues(),
		})
	}

	header, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("marshal front matter: %w", err)
	}

	var b strings.Builder
	b.WriteString(frontMatterDelim + "\n")
	b.Write(header)
	b.WriteString(frontMatterDelim + "\n\n")
	b.WriteString(StripFrontMatter(t.Body()))
	return b.String(), nil
}

// ParseFrontMatter splits a document into its YAML header and body.
// Documents without a header return a zero FrontMatter and the input unchanged.
func ParseFrontMatter(doc string) (FrontMatter, string, error) {
	header, body, ok := splitFrontMatter(doc)
	if !ok {
		return FrontMatter{}, doc, nil
	}
	var fm FrontMatter
	if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
		return FrontMatter{}, doc, fmt.Errorf("parse front matter: %w", err)
	}
	return fm, body, nil
}

// StripFrontMatter removes a leading YAML header if present.
func StripFrontMatter(doc string) string {
	if _, body, ok := splitFrontMatter(doc); ok {
		return body
	}
	return doc
}

func splitFrontMatter(doc string) (header, body string, ok bool) {
	trimmed := strings.TrimLeft(doc, " \t\r\n")
	if !strings.HasPrefix(trimmed, frontMatterDelim) {
		return "", doc, false
	}
	parts := strings.SplitN(trimmed, frontMatterDelim, 3)
	if len(parts) < 3 {
		return "", doc, false
	}
	return strings.TrimSpace(parts[1]), strings.TrimLeft(parts[2], "\r\n"), true
}
