// Package instance models a saved draft: a template rendered with user answers.
package instance

import (
	"fmt"
	"strings"
)

// Instance is an immutable saved draft.
type Instance struct {
	id         string
	templateID string
	userQuery  string
	answers    map[string]any
	draft      string
	missing    []string
	createdAt  int64
}

// Params is the input of New and Reconstruct.
type Params struct {
	ID         string
	TemplateID string
	UserQuery  string
	Answers    map[string]any
	Draft      string
	Missing    []string
	CreatedAt  int64
}

// New validates and creates an Instance.
func New(p Params) (Instance, error) {
	if strings.TrimSpace(p.ID) == "" {
		return Instance{}, fmt.Errorf("instance ID is required")
	}
	if strings.TrimSpace(p.TemplateID) == "" {
		return Instance{}, fmt.Errorf("template ID is required")
	}
	return Reconstruct(p), nil
}

// Reconstruct creates an Instance without validation (storage hydration).
func Reconstruct(p Params) Instance {
	answers := make(map[string]any, len(p.Answers))
	for k, v := range p.Answers {
		answers[k] = v
	}
	return Instance{
		id:         p.ID,
		templateID: p.TemplateID,
		userQuery:  p.UserQuery,
		answers:    answers,
		draft:      p.Draft,
		missing:    append([]string(nil), p.Missing...),
		createdAt:  p.CreatedAt,
	}
}

// ID returns the instance identifier.
func (i *Instance) ID() string { return i.id }

// TemplateID returns the template the draft was rendered from.
func (i *Instance) TemplateID() string { return i.templateID }

// UserQuery returns the request that led to the draft.
func (i *Instance) UserQuery() string { return i.userQuery }

// Answers returns the variable values used for rendering.
func (i *Instance) Answers() map[string]any { return i.answers }

// Draft returns the rendered markdown.
func (i *Instance) Draft() string { return i.draft }

// Missing returns keys left unfilled.
func (i *Instance) Missing() []string { return i.missing }

// Complete reports whether every placeholder was filled.
func (i *Instance) Complete() bool { return len(i.missing) == 0 }

// CreatedAt returns the creation time in unix milliseconds.
func (i *Instance) CreatedAt() int64 { return i.createdAt }
