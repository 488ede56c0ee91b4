// Package export renders templates and drafts as downloadable files.
package export

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Format is a download format.
type Format string

// Supported formats.
const (
	Markdown Format = "markdown"
	HTML     Format = "html"
)

// ParseFormat accepts "markdown" (also "md" and empty) and "html".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md":
		return Markdown, nil
	case "html":
		return HTML, nil
	default:
		return "", fmt.Errorf("unsupported format %q, want markdown or html", s)
	}
}

// File is a rendered download.
type File struct {
	Name        string
	ContentType string
	Body        []byte
}

// Render produces a file named after title. content is markdown; fallbackName is used
// when the title has no usable characters.
func Render(f Format, title, fallbackName, content string) File {
	base := Filename(title, fallbackName)
	if f == HTML {
		return File{
			Name:        base + ".html",
			ContentType: "text/html; charset=utf-8",
			Body:        ToHTML(title, content),
		}
	}
	return File{
		Name:        base + ".md",
		ContentType: "text/markdown; charset=utf-8",
		Body:        []byte(content),
	}
}

// ToHTML renders markdown into a complete HTML page. Raw HTML in the input is dropped.
func ToHTML(title, content string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Title: title,
		Flags: mdhtml.CommonFlags | mdhtml.CompletePage | mdhtml.HrefTargetBlank | mdhtml.SkipHTML,
	})
	return markdown.ToHTML([]byte(content), p, r)
}

// Filename turns a title into a safe file base name: spaces become underscores and
// only letters, digits, '.', '_' and '-' are kept.
func Filename(title, fallback string) string {
	var b strings.Builder
	for _, r := range strings.ReplaceAll(strings.TrimSpace(title), " ", "_") {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("._-", r)) {
			b.WriteRune(r)
		}
	}
	name := strings.Trim(b.String(), ".")
	if name == "" || strings.Trim(name, "_-") == "" {
		return fallback
	}
	return name
}
