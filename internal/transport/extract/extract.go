// Package extract turns uploaded documents into plain text for ingestion.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/kailas-cloud/draftdex/internal/domain"
)

// Kind is a supported upload format.
type Kind string

// Supported upload formats.
const (
	KindPDF      Kind = "pdf"
	KindMarkdown Kind = "markdown"
	KindText     Kind = "text"
)

// ErrUnsupportedFormat is returned for file types other than pdf, md and txt.
var ErrUnsupportedFormat = fmt.Errorf("%w: unsupported file type, expected .pdf, .md or .txt", domain.ErrValidation)

// KindOf detects the format from the file extension, then the content type.
func KindOf(filename, contentType string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return KindPDF, nil
	case ".md", ".markdown":
		return KindMarkdown, nil
	case ".txt", ".text":
		return KindText, nil
	}

	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "application/pdf"):
		return KindPDF, nil
	case strings.HasPrefix(ct, "text/markdown"):
		return KindMarkdown, nil
	case strings.HasPrefix(ct, "text/plain"):
		return KindText, nil
	}
	return "", ErrUnsupportedFormat
}

// Extractor reads uploads into text.
type Extractor struct {
	logger *zap.Logger
}

// New creates an extractor.
func New(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract returns the text of an upload. Unreadable or empty documents are validation errors.
func (e *Extractor) Extract(filename, contentType string, data []byte) (string, error) {
	kind, err := KindOf(filename, contentType)
	if err != nil {
		return "", err
	}

	var text string
	switch kind {
	case KindPDF:
		text, err = e.pdfText(filename, data)
	default:
		text, err = plainText(data)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %s contains no text", domain.ErrEmptyInput, filename)
	}
	return text, nil
}

func plainText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: text file is not valid UTF-8", domain.ErrValidation)
	}
	return strings.ReplaceAll(string(data), "\r\n", "\n"), nil
}

func (e *Extractor) pdfText(filename string, data []byte) (text string, err error) {
	// The reader panics on some malformed object graphs.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: unreadable PDF: %v", domain.ErrValidation, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: open PDF: %w", domain.ErrValidation, err)
	}

	var sb strings.Builder
	total := r.NumPage()
	var failed []error
	for num := 1; num <= total; num++ {
		page := r.Page(num)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Warn("Failed to extract text from page",
				zap.String("file", filename),
				zap.Int("page", num),
				zap.Error(err),
			)
			failed = append(failed, err)
			continue
		}
		sb.WriteString(strings.TrimSpace(pageText))
		sb.WriteString("\n\n")
	}

	if total > 0 && len(failed) == total {
		return "", fmt.Errorf("%w: no readable pages: %w", domain.ErrValidation, errors.Join(failed...))
	}

	e.logger.Debug("PDF text extracted",
		zap.String("file", filename),
		zap.Int("pages", total),
		zap.Int("characters", sb.Len()),
	)
	return strings.TrimSpace(sb.String()), nil
}
