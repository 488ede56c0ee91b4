package chi

// ErrorCode is the machine-readable error kind of an ErrorResponse.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest             ErrorCode = "bad_request"
	ErrorCodeUnauthorized           ErrorCode = "unauthorized"
	ErrorCodeValidationFailed       ErrorCode = "validation_failed"
	ErrorCodeTemplateNotFound       ErrorCode = "template_not_found"
	ErrorCodeInstanceNotFound       ErrorCode = "instance_not_found"
	ErrorCodeAlreadyExists          ErrorCode = "already_exists"
	ErrorCodePayloadTooLarge        ErrorCode = "payload_too_large"
	ErrorCodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	ErrorCodeSynthesisProviderError ErrorCode = "synthesis_provider_error"
	ErrorCodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Variable describes one placeholder of a template.
type Variable struct {
	Key           string   `json:"key"`
	Label         string   `json:"label"`
	Description   string   `json:"description,omitempty"`
	Example       string   `json:"example,omitempty"`
	Required      bool     `json:"required"`
	DataType      string   `json:"dtype"`
	Regex         string   `json:"regex,omitempty"`
	AllowedValues []string `json:"allowed_values,omitempty"`
	Question      string   `json:"question"`
}

// TemplateSummary is a template without its body.
type TemplateSummary struct {
	TemplateID    string   `json:"template_id"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	DocType       string   `json:"doc_type,omitempty"`
	Jurisdiction  string   `json:"jurisdiction,omitempty"`
	Tags          []string `json:"tags"`
	SourceURL     string   `json:"source_url,omitempty"`
	VariableCount int      `json:"variable_count"`
	CreatedAt     int64    `json:"created_at"`
}

// Template is a full catalog entry.
type Template struct {
	TemplateSummary
	BodyMD    string     `json:"body_md"`
	Variables []Variable `json:"variables"`
}

// TemplateListResponse is one page of the catalog.
type TemplateListResponse struct {
	Items []TemplateSummary `json:"items"`
	Total int               `json:"total"`
	Skip  int               `json:"skip"`
	Limit int               `json:"limit"`
}

// SearchRequest is the body of POST /templates/search.
type SearchRequest struct {
	Query        string `json:"query"`
	TopK         *int   `json:"top_k,omitempty"`
	DocType      string `json:"doc_type,omitempty"`
	Jurisdiction string `json:"jurisdiction,omitempty"`
}

// ScoredTemplate is a search hit.
type ScoredTemplate struct {
	TemplateSummary
	Similarity float64 `json:"similarity"`
}

// SearchResponse lists search hits by descending similarity.
type SearchResponse struct {
	Items []ScoredTemplate `json:"items"`
}

// IngestRequest is the JSON form of an upload.
type IngestRequest struct {
	Name      string `json:"name"`
	Text      string `json:"text"`
	SourceURL string `json:"source_url,omitempty"`
}

// IngestResponse reports the stored or the pre-existing template.
type IngestResponse struct {
	Template   Template `json:"template"`
	Duplicate  bool     `json:"duplicate"`
	Similarity float64  `json:"similarity,omitempty"`
}

// BatchIngestRequest is the body of POST /templates/ingest/batch.
type BatchIngestRequest struct {
	Documents []IngestRequest `json:"documents"`
}

// BatchIngestItem is the outcome of one batch document, in request order.
type BatchIngestItem struct {
	Name       string           `json:"name"`
	Status     string           `json:"status"`
	Template   *TemplateSummary `json:"template,omitempty"`
	Duplicate  bool             `json:"duplicate,omitempty"`
	Similarity float64          `json:"similarity,omitempty"`
	Error      *ErrorResponse   `json:"error,omitempty"`
}

// BatchIngestResponse summarises a batch.
type BatchIngestResponse struct {
	Items     []BatchIngestItem `json:"items"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}

// MatchRequest is the body of the match endpoints.
type MatchRequest struct {
	UserQuery string `json:"user_query"`
}

// TemplateMatch is one offered template.
type TemplateMatch struct {
	TemplateID         string   `json:"template_id"`
	Title              string   `json:"title"`
	Description        string   `json:"description,omitempty"`
	Confidence         float64  `json:"confidence"`
	Explanation        string   `json:"explanation"`
	DocType            string   `json:"doc_type,omitempty"`
	Jurisdiction       string   `json:"jurisdiction,omitempty"`
	SemanticSimilarity *float64 `json:"semantic_similarity"`
	Source             string   `json:"source"`
	WebURL             *string  `json:"web_url"`
}

// MatchResponse is the outcome of a match.
type MatchResponse struct {
	Status       string          `json:"status"`
	TopMatch     *TemplateMatch  `json:"top_match"`
	Alternatives []TemplateMatch `json:"alternatives"`
	Found        bool            `json:"found"`
	Message      string          `json:"message,omitempty"`
	MatchQuality float64         `json:"match_quality"`
}

// StreamEvent is one Server-Sent Event of POST /draft/match-stream.
type StreamEvent struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Data    *MatchResponse `json:"data,omitempty"`
}

// QuestionsRequest is the body of POST /draft/questions.
type QuestionsRequest struct {
	TemplateID string `json:"template_id"`
	UserQuery  string `json:"user_query,omitempty"`
}

// Question asks for one variable.
type Question struct {
	Key         string   `json:"key"`
	Question    string   `json:"question"`
	Description string   `json:"description,omitempty"`
	Example     string   `json:"example,omitempty"`
	Required    bool     `json:"required"`
	DataType    string   `json:"dtype"`
	Regex       string   `json:"regex,omitempty"`
	EnumValues  []string `json:"enum_values,omitempty"`
}

// QuestionsResponse lists the questions and any values read from the request.
type QuestionsResponse struct {
	TemplateID    string         `json:"template_id"`
	TemplateTitle string         `json:"template_title"`
	Questions     []Question     `json:"questions"`
	Prefilled     map[string]any `json:"prefilled"`
}

// GenerateRequest is the body of POST /draft/generate.
type GenerateRequest struct {
	TemplateID string         `json:"template_id"`
	Answers    map[string]any `json:"answers"`
	UserQuery  string         `json:"user_query,omitempty"`
}

// Instance is a saved draft.
type Instance struct {
	InstanceID       string         `json:"instance_id"`
	TemplateID       string         `json:"template_id"`
	UserQuery        string         `json:"user_query,omitempty"`
	Answers          map[string]any `json:"answers"`
	DraftMD          string         `json:"draft_md"`
	MissingVariables []string       `json:"missing_variables"`
	Complete         bool           `json:"complete"`
	CreatedAt        int64          `json:"created_at"`
}

// GenerateResponse is a saved draft plus the title of its template.
type GenerateResponse struct {
	Instance
	TemplateTitle string `json:"template_title"`
}

// HealthResponse reports component health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
