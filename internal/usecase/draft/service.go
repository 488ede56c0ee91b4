// Package draft asks for template variables and renders saved drafts.
package draft

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/draftdex/internal/domain"
	"github.com/kailas-cloud/draftdex/internal/domain/export"
	dominst "github.com/kailas-cloud/draftdex/internal/domain/instance"
	"github.com/kailas-cloud/draftdex/internal/domain/render"
	domtpl "github.com/kailas-cloud/draftdex/internal/domain/template"
	"github.com/kailas-cloud/draftdex/internal/logger"
)

// QuestionSet is what a caller needs to collect answers for a template.
type QuestionSet struct {
	Template  domtpl.Template
	Prefilled map[string]any
}

// Questions returns the variables in template order.
func (q QuestionSet) Questions() []domtpl.Variable { return q.Template.Variables() }

// GenerateRequest is the input of Generate.
type GenerateRequest struct {
	TemplateID string
	Answers    map[string]any
	UserQuery  string
}

// Generated is a saved draft together with its template.
type Generated struct {
	Template domtpl.Template
	Instance dominst.Instance
}

// Service handles the question and draft flow.
type Service struct {
	templates TemplateReader
	instances InstanceStore
	prefiller Prefiller
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// New creates a draft service. prefiller can be nil.
func New(templates TemplateReader, instances InstanceStore, prefiller Prefiller, log *zap.Logger) *Service {
	return &Service{
		templates: templates,
		instances: instances,
		prefiller: prefiller,
		logger:    log,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
}

// Questions loads the template variables and, when a query is given, prefills what it mentions.
// Prefill is best-effort: failures leave Prefilled empty and values failing validation are dropped.
func (s *Service) Questions(ctx context.Context, templateID, userQuery string) (QuestionSet, error) {
	t, err := s.template(ctx, templateID)
	if err != nil {
		return QuestionSet{}, err
	}

	set := QuestionSet{Template: t, Prefilled: map[string]any{}}
	if s.prefiller == nil || domain.IsBlank(userQuery) || len(t.Variables()) == 0 {
		return set, nil
	}

	raw, err := s.prefiller.Prefill(ctx, userQuery, t.Variables())
	if err != nil {
		logger.OrContext(ctx, s.logger).Warn("Prefill failed, continuing without it",
			zap.String("template_id", templateID), zap.Error(err))
		return set, nil
	}
	set.Prefilled = validatePrefill(t, raw)
	return set, nil
}

func validatePrefill(t domtpl.Template, raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for key, value := range raw {
		v, ok := t.Variable(key)
		if !ok {
			continue
		}
		if canonical, ok := v.Normalize(value); ok {
			out[key] = canonical
		}
	}
	return out
}

// Generate renders the template with the answers and saves the result as an instance.
// Missing answers leave their placeholders in place.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (Generated, error) {
	t, err := s.template(ctx, req.TemplateID)
	if err != nil {
		return Generated{}, err
	}

	answers := req.Answers
	if answers == nil {
		answers = map[string]any{}
	}
	res := render.Draft(domtpl.StripFrontMatter(t.Body()), answers)

	inst, err := dominst.New(dominst.Params{
		ID:         s.newID(),
		TemplateID: t.ID(),
		UserQuery:  req.UserQuery,
		Answers:    answers,
		Draft:      res.Body,
		Missing:    res.Missing,
		CreatedAt:  s.now().UnixMilli(),
	})
	if err != nil {
		return Generated{}, fmt.Errorf("build instance: %w", err)
	}
	if err := s.instances.Save(ctx, inst); err != nil {
		return Generated{}, fmt.Errorf("save instance: %w", err)
	}

	if len(res.Missing) > 0 {
		logger.OrContext(ctx, s.logger).Info("Draft has missing variables",
			zap.String("instance_id", inst.ID()),
			zap.Strings("missing", res.Missing),
		)
	}
	return Generated{Template: t, Instance: inst}, nil
}

// GetInstance returns a saved draft.
func (s *Service) GetInstance(ctx context.Context, id string) (dominst.Instance, error) {
	inst, err := s.instances.Get(ctx, id)
	if err != nil {
		return dominst.Instance{}, fmt.Errorf("get instance: %w", err)
	}
	return inst, nil
}

// DownloadInstance exports a saved draft. The file is named after its template
// when the template still exists.
func (s *Service) DownloadInstance(ctx context.Context, id string, f export.Format) (export.File, error) {
	inst, err := s.GetInstance(ctx, id)
	if err != nil {
		return export.File{}, err
	}

	title := "Draft"
	t, err := s.templates.Get(ctx, inst.TemplateID())
	switch {
	case err == nil:
		title = t.Title() + " draft"
	case !errors.Is(err, domain.ErrNotFound):
		return export.File{}, fmt.Errorf("get template: %w", err)
	}

	return export.Render(f, title, "draft-"+inst.ID(), inst.Draft()), nil
}

func (s *Service) template(ctx context.Context, id string) (domtpl.Template, error) {
	if domain.IsBlank(id) {
		return domtpl.Template{}, domain.NewValidationError("template_id", "is required")
	}
	t, err := s.templates.Get(ctx, id)
	if err != nil {
		return domtpl.Template{}, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}
