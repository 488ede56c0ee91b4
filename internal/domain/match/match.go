// Package match holds the value types of template matching.
package match

import (
	"github.com/kailas-cloud/draftdex/internal/domain/template"
)

// Source tells where a matched template came from.
type Source string

// Match sources.
const (
	SourceDatabase Source = "database"
	SourceWeb      Source = "web"
)

// Status is the outcome of one matching request.
type Status string

// Match outcomes.
const (
	StatusAccepted Status = "accepted"
	StatusFallback Status = "fallback"
	StatusNotFound Status = "not_found"
)

// Candidate is a template returned by nearest-neighbor search.
type Candidate struct {
	Template   template.Template
	Similarity float64
}

// Judgement is the re-ranker's opinion on one candidate.
type Judgement struct {
	TemplateID  string
	Confidence  float64
	Explanation string
}

// Match is one template offered to the caller.
type Match struct {
	TemplateID   string
	Title        string
	Description  string
	DocType      string
	Jurisdiction string
	Explanation  string
	Confidence   float64
	Similarity   *float64
	Source       Source
	WebURL       string
}

// Result is the final answer of the pipeline.
type Result struct {
	Status       Status
	TopMatch     *Match
	Alternatives []Match
	Found        bool
	Message      string
	MatchQuality float64
}

// NotFoundResult builds a "no match" result with an explanation.
func NotFoundResult(message string) Result {
	return Result{Status: StatusNotFound, Alternatives: []Match{}, Message: message}
}

// Quality combines re-ranker confidence and semantic similarity.
// Either signal alone is enough evidence of a good match.
func Quality(confidence, similarity float64) float64 {
	return max(confidence, similarity)
}

// WebFinding is a template obtained through the fallback source.
// Template may be an existing catalog entry when the web document duplicated it.
type WebFinding struct {
	Template template.Template
	URL      string
}
