package openai

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/draftdex/internal/domain"
	domtpl "github.com/kailas-cloud/draftdex/internal/domain/template"
)

const (
	synthesizeSystemPrompt = `You are a legal document templating assistant. ` +
		`You turn a concrete legal document into a reusable markdown template and answer with JSON only.`

	// DefaultSynthesisInputChars caps the document text sent to the model.
	DefaultSynthesisInputChars = 60000
)

var placeholderKey = regexp.MustCompile(`^\w+$`)

// Synthesizer turns source documents into template proposals.
type Synthesizer struct {
	chat          *ChatClient
	maxInputChars int
	logger        *zap.Logger
}

// NewSynthesizer creates a synthesizer. maxInputChars <= 0 means DefaultSynthesisInputChars.
func NewSynthesizer(chat *ChatClient, maxInputChars int, logger *zap.Logger) *Synthesizer {
	if maxInputChars <= 0 {
		maxInputChars = DefaultSynthesisInputChars
	}
	return &Synthesizer{chat: chat, maxInputChars: maxInputChars, logger: logger}
}

type synthVariable struct {
	Key           string   `json:"key"`
	Label         string   `json:"label"`
	Description   string   `json:"description"`
	Example       string   `json:"example"`
	Required      *bool    `json:"required"`
	DataType      string   `json:"dtype"`
	Regex         *string  `json:"regex"`
	AllowedValues []string `json:"allowed_values"`
	Question      string   `json:"question"`
}

type synthReply struct {
	Title        string          `json:"title"`
	Description  string          `json:"file_description"`
	DocType      string          `json:"doc_type"`
	Jurisdiction string          `json:"jurisdiction"`
	Tags         []string        `json:"similarity_tags"`
	Body         string          `json:"body_md"`
	Variables    []synthVariable `json:"variables"`
}

// Synthesize asks the model for a template proposal. Failures wrap domain.ErrSynthesisBackend.
func (s *Synthesizer) Synthesize(ctx context.Context, name, text string) (domtpl.Draft, error) {
	var reply synthReply
	prompt := synthesizePrompt(name, clip(text, s.maxInputChars))
	if err := s.chat.CompleteJSON(ctx, "synthesize", synthesizeSystemPrompt, prompt, &reply, domain.ErrSynthesisBackend); err != nil {
		return domtpl.Draft{}, err
	}
	if strings.TrimSpace(reply.Body) == "" {
		return domtpl.Draft{}, fmt.Errorf("synthesized template has no body: %w", domain.ErrSynthesisBackend)
	}

	d := reply.draft(name)
	s.logger.Debug("Template synthesized",
		zap.String("name", name),
		zap.String("doc_type", d.DocType),
		zap.Int("variables", len(d.Variables)),
	)
	return d, nil
}

// draft converts the reply leniently: unknown data types become string,
// patterns that do not compile are dropped and repeated keys keep the first entry.
func (r synthReply) draft(name string) domtpl.Draft {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		title = name
	}

	seen := make(map[string]bool, len(r.Variables))
	vars := make([]domtpl.VariableSpec, 0, len(r.Variables))
	for _, v := range r.Variables {
		key := strings.TrimSpace(v.Key)
		if !placeholderKey.MatchString(key) || seen[key] {
			continue
		}
		seen[key] = true

		dtype := v.DataType
		if _, err := domtpl.ParseDataType(dtype); err != nil {
			dtype = string(domtpl.TypeString)
		}
		pattern := ""
		if v.Regex != nil {
			if _, err := regexp.Compile(*v.Regex); err == nil {
				pattern = *v.Regex
			}
		}
		required := true
		if v.Required != nil {
			required = *v.Required
		}
		label := strings.TrimSpace(v.Label)
		if label == "" {
			label = key
		}

		vars = append(vars, domtpl.VariableSpec{
			Key:           key,
			Label:         label,
			Description:   v.Description,
			Example:       v.Example,
			Required:      required,
			DataType:      dtype,
			Pattern:       pattern,
			AllowedValues: v.AllowedValues,
			Question:      strings.TrimSpace(v.Question),
		})
	}

	return domtpl.Draft{
		Title:        title,
		Description:  strings.TrimSpace(r.Description),
		DocType:      strings.TrimSpace(r.DocType),
		Jurisdiction: strings.TrimSpace(r.Jurisdiction),
		Tags:         r.Tags,
		Body:         r.Body,
		Variables:    vars,
	}
}

func synthesizePrompt(name, text string) string {
	return fmt.Sprintf(`Turn this document into a reusable template.

DOCUMENT NAME: %q

DOCUMENT TEXT:
%s

INSTRUCTIONS:
1. Find every field that changes from case to case (names, dates, amounts, addresses, policy numbers).
2. Give each field a snake_case key, for example claimant_full_name or incident_date.
3. Rewrite the document as markdown in body_md, replacing each field with {{key}}.
4. For each variable provide key, label, description, a realistic example, required,
   dtype (string, date, number, currency, address, email, phone, boolean),
   an optional regex and a polite question that asks the user for the value without using the key.
5. Merge fields that mean the same thing into one variable.
6. Do not turn statutory text or boilerplate into variables.
7. Add 3 to 7 tags describing the document type.

Return JSON in exactly this shape:
{"title": "...", "file_description": "...", "doc_type": "...", "jurisdiction": "...",
 "similarity_tags": ["..."], "body_md": "...",
 "variables": [{"key": "...", "label": "...", "description": "...", "example": "...",
   "required": true, "dtype": "string", "regex": null, "question": "..."}]}`, name, text)
}

// clip keeps at most n runes of s.
func clip(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
