package template

import (
	"encoding/json"
	"fmt"

	domtpl "github.com/kailas-cloud/draftdex/internal/domain/template"
)

// jsonTemplate is the RedisJSON layout of a template; variables live inside the same document.
type jsonTemplate struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	DocType      string         `json:"doc_type"`
	Jurisdiction string         `json:"jurisdiction"`
	Tags         []string       `json:"tags"`
	Body         string         `json:"body"`
	SourceURL    string         `json:"source_url,omitempty"`
	Embedding    []float32      `json:"embedding,omitempty"`
	Variables    []jsonVariable `json:"variables"`
	CreatedAt    int64          `json:"created_at"`
}

type jsonVariable struct {
	Key           string   `json:"key"`
	Label         string   `json:"label"`
	Description   string   `json:"description,omitempty"`
	Example       string   `json:"example,omitempty"`
	Required      bool     `json:"required"`
	DataType      string   `json:"data_type"`
	Pattern       string   `json:"validation_pattern,omitempty"`
	AllowedValues []string `json:"allowed_values,omitempty"`
	Question      string   `json:"question,omitempty"`
}

func buildJSONDoc(t *domtpl.Template) jsonTemplate {
	vars := make([]jsonVariable, 0, len(t.Variables()))
	for _, v := range t.Variables() {
		s := v.Spec()
		vars = append(vars, jsonVariable{
			Key:           s.Key,
			Label:         s.Label,
			Description:   s.Description,
			Example:       s.Example,
			Required:      s.Required,
			DataType:      s.DataType,
			Pattern:       s.Pattern,
			AllowedValues: s.AllowedValues,
			Question:      s.Question,
		})
	}
	tags := t.Tags()
	if tags == nil {
		tags = []string{}
	}
	return jsonTemplate{
		ID:           t.ID(),
		Title:        t.Title(),
		Description:  t.Description(),
		DocType:      t.DocType(),
		Jurisdiction: t.Jurisdiction(),
		Tags:         tags,
		Body:         t.Body(),
		SourceURL:    t.SourceURL(),
		Embedding:    t.Embedding(),
		Variables:    vars,
		CreatedAt:    t.CreatedAt(),
	}
}

func (d *jsonTemplate) toDomain() domtpl.Template {
	vars := make([]domtpl.Variable, 0, len(d.Variables))
	for _, v := range d.Variables {
		vars = append(vars, domtpl.ReconstructVariable(domtpl.VariableSpec{
			Key:           v.Key,
			Label:         v.Label,
			Description:   v.Description,
			Example:       v.Example,
			Required:      v.Required,
			DataType:      v.DataType,
			Pattern:       v.Pattern,
			AllowedValues: v.AllowedValues,
			Question:      v.Question,
		}))
	}
	return domtpl.Reconstruct(domtpl.Params{
		ID:           d.ID,
		Title:        d.Title,
		Description:  d.Description,
		DocType:      d.DocType,
		Jurisdiction: d.Jurisdiction,
		Tags:         d.Tags,
		Body:         d.Body,
		SourceURL:    d.SourceURL,
		Embedding:    d.Embedding,
		Variables:    vars,
		CreatedAt:    d.CreatedAt,
	})
}

// parseDocument decodes a bare JSON object (FT.SEARCH RETURN $).
func parseDocument(raw string) (domtpl.Template, error) {
	var d jsonTemplate
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return domtpl.Template{}, fmt.Errorf("unmarshal template: %w", err)
	}
	return d.toDomain(), nil
}

// parseJSONGetResult decodes the JSON.GET $ reply, which wraps the document in an array.
func parseJSONGetResult(raw []byte) (domtpl.Template, bool, error) {
	var docs []jsonTemplate
	if err := json.Unmarshal(raw, &docs); err != nil {
		return domtpl.Template{}, false, fmt.Errorf("unmarshal template: %w", err)
	}
	if len(docs) == 0 {
		return domtpl.Template{}, false, nil
	}
	return docs[0].toDomain(), true, nil
}

func marshalDocument(t *domtpl.Template) ([]byte, error) {
	data, err := json.Marshal(buildJSONDoc(t))
	if err != nil {
		return nil, fmt.Errorf("marshal template: %w", err)
	}
	return data, nil
}
