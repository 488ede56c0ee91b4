package sdk

import chiTransport "github.com/kailas-cloud/draftdex/internal/transport/chi"

// Wire types shared with the server.
type (
	Variable            = chiTransport.Variable
	TemplateSummary     = chiTransport.TemplateSummary
	Template            = chiTransport.Template
	TemplateList        = chiTransport.TemplateListResponse
	SearchRequest       = chiTransport.SearchRequest
	ScoredTemplate      = chiTransport.ScoredTemplate
	IngestRequest       = chiTransport.IngestRequest
	IngestResponse      = chiTransport.IngestResponse
	BatchIngestItem     = chiTransport.BatchIngestItem
	BatchIngestResponse = chiTransport.BatchIngestResponse
	TemplateMatch       = chiTransport.TemplateMatch
	MatchResponse       = chiTransport.MatchResponse
	StreamEvent         = chiTransport.StreamEvent
	Question            = chiTransport.Question
	QuestionsResponse   = chiTransport.QuestionsResponse
	Instance            = chiTransport.Instance
	GenerateResponse    = chiTransport.GenerateResponse
	HealthStatus        = chiTransport.HealthResponse
)

// Format selects the rendering of a download.
type Format string

// Download formats.
const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// File is a downloaded template or draft.
type File struct {
	Name        string
	ContentType string
	Body        []byte
}
