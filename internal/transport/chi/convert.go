package chi

import (
	"errors"
	"net/http"

	dombatch "github.com/kailas-cloud/draftdex/internal/domain/batch"
	dominst "github.com/kailas-cloud/draftdex/internal/domain/instance"
	dommatch "github.com/kailas-cloud/draftdex/internal/domain/match"
	domtpl "github.com/kailas-cloud/draftdex/internal/domain/template"
	draftuc "github.com/kailas-cloud/draftdex/internal/usecase/draft"
	ingestuc "github.com/kailas-cloud/draftdex/internal/usecase/ingest"
)

func summaryToWire(t *domtpl.Template) TemplateSummary {
	tags := t.Tags()
	if tags == nil {
		tags = []string{}
	}
	return TemplateSummary{
		TemplateID:    t.ID(),
		Title:         t.Title(),
		Description:   t.Description(),
		DocType:       t.DocType(),
		Jurisdiction:  t.Jurisdiction(),
		Tags:          tags,
		SourceURL:     t.SourceURL(),
		VariableCount: len(t.Variables()),
		CreatedAt:     t.CreatedAt(),
	}
}

func templateToWire(t *domtpl.Template) Template {
	vars := make([]Variable, len(t.Variables()))
	for i, v := range t.Variables() {
		vars[i] = Variable{
			Key:           v.Key(),
			Label:         v.Label(),
			Description:   v.Description(),
			Example:       v.Example(),
			Required:      v.Required(),
			DataType:      string(v.DataType()),
			Regex:         v.Pattern(),
			AllowedValues: v.AllowedValues(),
			Question:      v.Question(),
		}
	}
	return Template{
		TemplateSummary: summaryToWire(t),
		BodyMD:          t.Body(),
		Variables:       vars,
	}
}

func scoredToWire(hits []dommatch.Candidate) []ScoredTemplate {
	items := make([]ScoredTemplate, len(hits))
	for i := range hits {
		items[i] = ScoredTemplate{
			TemplateSummary: summaryToWire(&hits[i].Template),
			Similarity:      hits[i].Similarity,
		}
	}
	return items
}

func batchItemToWire(res dombatch.Result[ingestuc.Outcome]) BatchIngestItem {
	item := BatchIngestItem{Name: res.ID(), Status: string(res.Status())}
	if err := res.Err(); err != nil {
		status, code := batchErrorCode(err)
		msg := safeDomainMessage(err)
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
		item.Error = &ErrorResponse{Code: code, Message: msg}
		return item
	}

	out := res.Value()
	summary := summaryToWire(&out.Template)
	item.Template = &summary
	item.Duplicate = out.Duplicate
	item.Similarity = out.Similarity
	return item
}

// batchErrorCode maps an item error the same way a single request would be answered.
func batchErrorCode(err error) (int, ErrorCode) {
	for _, m := range sentinelStatuses {
		if errors.Is(err, m.sentinel) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, ErrorCodeInternalError
}

func matchToWire(res dommatch.Result) MatchResponse {
	resp := MatchResponse{
		Status:       string(res.Status),
		Alternatives: make([]TemplateMatch, len(res.Alternatives)),
		Found:        res.Found,
		Message:      res.Message,
		MatchQuality: res.MatchQuality,
	}
	if res.TopMatch != nil {
		top := templateMatchToWire(*res.TopMatch)
		resp.TopMatch = &top
	}
	for i, m := range res.Alternatives {
		resp.Alternatives[i] = templateMatchToWire(m)
	}
	return resp
}

func templateMatchToWire(m dommatch.Match) TemplateMatch {
	out := TemplateMatch{
		TemplateID:         m.TemplateID,
		Title:              m.Title,
		Description:        m.Description,
		Confidence:         m.Confidence,
		Explanation:        m.Explanation,
		DocType:            m.DocType,
		Jurisdiction:       m.Jurisdiction,
		SemanticSimilarity: m.Similarity,
		Source:             string(m.Source),
	}
	if m.WebURL != "" {
		u := m.WebURL
		out.WebURL = &u
	}
	return out
}

func questionsToWire(set draftuc.QuestionSet) QuestionsResponse {
	vars := set.Questions()
	qs := make([]Question, len(vars))
	for i, v := range vars {
		qs[i] = Question{
			Key:         v.Key(),
			Question:    v.Question(),
			Description: v.Description(),
			Example:     v.Example(),
			Required:    v.Required(),
			DataType:    string(v.DataType()),
			Regex:       v.Pattern(),
			EnumValues:  v.AllowedValues(),
		}
	}
	prefilled := set.Prefilled
	if prefilled == nil {
		prefilled = map[string]any{}
	}
	return QuestionsResponse{
		TemplateID:    set.Template.ID(),
		TemplateTitle: set.Template.Title(),
		Questions:     qs,
		Prefilled:     prefilled,
	}
}

func instanceToWire(inst *dominst.Instance) Instance {
	answers := inst.Answers()
	if answers == nil {
		answers = map[string]any{}
	}
	missing := inst.Missing()
	if missing == nil {
		missing = []string{}
	}
	return Instance{
		InstanceID:       inst.ID(),
		TemplateID:       inst.TemplateID(),
		UserQuery:        inst.UserQuery(),
		Answers:          answers,
		DraftMD:          inst.Draft(),
		MissingVariables: missing,
		Complete:         inst.Complete(),
		CreatedAt:        inst.CreatedAt(),
	}
}
