package template

// Draft is a template proposal produced by the synthesizer from a source document.
// It has no ID or embedding yet; ingestion turns it into a Template.
type Draft struct {
	Title        string
	Description  string
	DocType      string
	Jurisdiction string
	Tags         []string
	Body         string
	Variables    []VariableSpec
}

// Build converts the draft into a validated Template. Any front matter in the body is dropped.
func (d Draft) Build(id string, embedding []float32, dims int, sourceURL string, createdAt int64) (Template, error) {
	vars := make([]Variable, 0, len(d.Variables))
	for _, spec := range d.Variables {
		v, err := NewVariable(spec)
		if err != nil {
			return Template{}, err
		}
		vars = append(vars, v)
	}

	return New(Params{
		ID:           id,
		Title:        d.Title,
		Description:  d.Description,
		DocType:      d.DocType,
		Jurisdiction: d.Jurisdiction,
		Tags:         d.Tags,
		Body:         StripFrontMatter(d.Body),
		SourceURL:    sourceURL,
		Embedding:    embedding,
		Variables:    vars,
		CreatedAt:    createdAt,
	}, dims)
}
