package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/draftdex/internal/domain"
	"github.com/kailas-cloud/draftdex/internal/domain/export"
	domtpl "github.com/kailas-cloud/draftdex/internal/domain/template"
	"github.com/kailas-cloud/draftdex/internal/logger"
	draftuc "github.com/kailas-cloud/draftdex/internal/usecase/draft"
	healthuc "github.com/kailas-cloud/draftdex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/draftdex/internal/usecase/ingest"
)

const (
	// MaxQueryChars bounds user_query in match and question requests.
	MaxQueryChars = 5000
	// DefaultMaxUploadBytes bounds request bodies of the ingest endpoints.
	DefaultMaxUploadBytes = 10 << 20
	// maxJSONBytes bounds every other request body.
	maxJSONBytes = 1 << 20
)

// sentinelStatuses maps domain sentinels to HTTP answers, first match wins.
var sentinelStatuses = []struct {
	sentinel error
	status   int
	code     ErrorCode
}{
	{domain.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, ErrorCodePayloadTooLarge},
	{domain.ErrValidation, http.StatusBadRequest, ErrorCodeValidationFailed},
	{domain.ErrEmptyInput, http.StatusBadRequest, ErrorCodeValidationFailed},
	{domain.ErrNotFound, http.StatusNotFound, ErrorCodeTemplateNotFound},
	{domain.ErrInstanceNotFound, http.StatusNotFound, ErrorCodeInstanceNotFound},
	{domain.ErrAlreadyExists, http.StatusConflict, ErrorCodeAlreadyExists},
	{domain.ErrEmbeddingBackend, http.StatusBadGateway, ErrorCodeEmbeddingProviderError},
	{domain.ErrSynthesisBackend, http.StatusBadGateway, ErrorCodeSynthesisProviderError},
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the draftdex HTTP API.
type Server struct {
	matcher        Matcher
	ingester       Ingester
	catalog        Catalog
	drafts         Drafts
	health         HealthChecker
	extractor      Extractor
	logger         *zap.Logger
	maxUploadBytes int64
	errorHandlers  []errorHandler
}

// Option configures a Server.
type Option func(*Server)

// WithMaxUploadBytes bounds ingest request bodies. Non-positive values keep the default.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// NewServer creates an HTTP API server.
func NewServer(
	matcher Matcher,
	ingester Ingester,
	catalog Catalog,
	drafts Drafts,
	health HealthChecker,
	extractor Extractor,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	s := &Server{
		matcher:        matcher,
		ingester:       ingester,
		catalog:        catalog,
		drafts:         drafts,
		health:         health,
		extractor:      extractor,
		logger:         logger,
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	for _, o := range opts {
		o(s)
	}
	s.errorHandlers = make([]errorHandler, 0, len(sentinelStatuses))
	for _, m := range sentinelStatuses {
		s.errorHandlers = append(s.errorHandlers, sentinelHandler(m.sentinel, m.status, m.code))
	}
	return s
}

// ListTemplatesParams are the query parameters of GET /templates.
type ListTemplatesParams struct {
	Skip  *int
	Limit *int
}

// ListTemplates handles GET /templates.
func (s *Server) ListTemplates(w http.ResponseWriter, r *http.Request, params ListTemplatesParams) {
	page, err := s.catalog.List(r.Context(), derefInt(params.Skip), derefInt(params.Limit))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]TemplateSummary, len(page.Templates))
	for i := range page.Templates {
		items[i] = summaryToWire(&page.Templates[i])
	}
	writeJSON(w, http.StatusOK, TemplateListResponse{
		Items: items,
		Total: page.Total,
		Skip:  page.Skip,
		Limit: page.Limit,
	})
}

// GetTemplate handles GET /templates/{template_id}.
func (s *Server) GetTemplate(w http.ResponseWriter, r *http.Request, templateID string) {
	t, err := s.catalog.Get(r.Context(), templateID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, templateToWire(&t))
}

// DeleteTemplate handles DELETE /templates/{template_id}.
func (s *Server) DeleteTemplate(w http.ResponseWriter, r *http.Request, templateID string) {
	if err := s.catalog.Delete(r.Context(), templateID); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DownloadParams are the query parameters of the download endpoints.
type DownloadParams struct {
	Format *string
}

// DownloadTemplate handles GET /templates/{template_id}/download.
func (s *Server) DownloadTemplate(w http.ResponseWriter, r *http.Request, templateID string, params DownloadParams) {
	f, ok := parseFormat(w, params.Format)
	if !ok {
		return
	}
	file, err := s.catalog.Download(r.Context(), templateID, f)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeFile(w, file)
}

// SimilarParams are the query parameters of GET /templates/{template_id}/similar.
type SimilarParams struct {
	TopK *int
}

// SimilarTemplates handles GET /templates/{template_id}/similar.
func (s *Server) SimilarTemplates(w http.ResponseWriter, r *http.Request, templateID string, params SimilarParams) {
	hits, err := s.catalog.Similar(r.Context(), templateID, derefInt(params.TopK))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Items: scoredToWire(hits)})
}

// SearchTemplates handles POST /templates/search.
func (s *Server) SearchTemplates(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !s.decodeJSON(w, r, maxJSONBytes, &req) {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	filter := domtpl.Filter{DocType: req.DocType, Jurisdiction: req.Jurisdiction}
	hits, err := s.catalog.Search(ctx, req.Query, derefInt(req.TopK), filter)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, SearchResponse{Items: scoredToWire(hits)})
}

// IngestTemplate handles POST /templates/ingest with a multipart file or a JSON body.
func (s *Server) IngestTemplate(w http.ResponseWriter, r *http.Request) {
	var (
		req ingestuc.Request
		ok  bool
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		req, ok = s.readUpload(w, r)
	} else {
		var body IngestRequest
		ok = s.decodeJSON(w, r, s.maxUploadBytes, &body)
		req = ingestuc.Request{Name: body.Name, Text: body.Text, SourceURL: body.SourceURL}
	}
	if !ok {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	out, err := s.ingester.Ingest(ctx, req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	status := http.StatusCreated
	if out.Duplicate {
		status = http.StatusOK
	} else {
		w.Header().Set("Location", "/templates/"+out.Template.ID())
	}
	setUsageHeaders(w, usage)
	writeJSON(w, status, IngestResponse{
		Template:   templateToWire(&out.Template),
		Duplicate:  out.Duplicate,
		Similarity: out.Similarity,
	})
}

// readUpload reads the "file" part and an optional "name" field.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (ingestuc.Request, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		s.writeBodyError(w, err)
		return ingestuc.Request{}, false
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "multipart field \"file\" is required")
		return ingestuc.Request{}, false
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeBodyError(w, err)
		return ingestuc.Request{}, false
	}

	text, err := s.extractor.Extract(header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		s.handleDomainError(w, r, err)
		return ingestuc.Request{}, false
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = header.Filename
	}
	return ingestuc.Request{Name: name, Text: text}, true
}

// BatchIngest handles POST /templates/ingest/batch.
func (s *Server) BatchIngest(w http.ResponseWriter, r *http.Request) {
	var req BatchIngestRequest
	if !s.decodeJSON(w, r, s.maxUploadBytes, &req) {
		return
	}
	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "documents must not be empty")
		return
	}

	reqs := make([]ingestuc.Request, len(req.Documents))
	for i, d := range req.Documents {
		reqs[i] = ingestuc.Request{Name: d.Name, Text: d.Text, SourceURL: d.SourceURL}
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results := s.ingester.IngestBatch(ctx, reqs)

	resp := BatchIngestResponse{Items: make([]BatchIngestItem, len(results))}
	for i, res := range results {
		resp.Items[i] = batchItemToWire(res)
		if res.Err() != nil {
			resp.Failed++
		} else {
			resp.Succeeded++
		}
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, resp)
}

// MatchTemplate handles POST /draft/match.
func (s *Server) MatchTemplate(w http.ResponseWriter, r *http.Request) {
	query, ok := s.readQuery(w, r)
	if !ok {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.matcher.Match(ctx, query)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, matchToWire(res))
}

func (s *Server) readQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req MatchRequest
	if !s.decodeJSON(w, r, maxJSONBytes, &req) {
		return "", false
	}
	query := strings.TrimSpace(req.UserQuery)
	if query == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "user_query cannot be empty or whitespace only")
		return "", false
	}
	if utf8.RuneCountInString(query) > MaxQueryChars {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed,
			fmt.Sprintf("user_query must be at most %d characters", MaxQueryChars))
		return "", false
	}
	return query, true
}

// Questions handles POST /draft/questions.
func (s *Server) Questions(w http.ResponseWriter, r *http.Request) {
	var req QuestionsRequest
	if !s.decodeJSON(w, r, maxJSONBytes, &req) {
		return
	}
	if utf8.RuneCountInString(req.UserQuery) > MaxQueryChars {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed,
			fmt.Sprintf("user_query must be at most %d characters", MaxQueryChars))
		return
	}

	set, err := s.drafts.Questions(r.Context(), strings.TrimSpace(req.TemplateID), req.UserQuery)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, questionsToWire(set))
}

// GenerateDraft handles POST /draft/generate.
func (s *Server) GenerateDraft(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !s.decodeJSON(w, r, maxJSONBytes, &req) {
		return
	}
	if req.Answers == nil {
		req.Answers = map[string]any{}
	}

	gen, err := s.drafts.Generate(r.Context(), draftuc.GenerateRequest{
		TemplateID: strings.TrimSpace(req.TemplateID),
		Answers:    req.Answers,
		UserQuery:  req.UserQuery,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Location", "/draft/instances/"+gen.Instance.ID())
	writeJSON(w, http.StatusCreated, GenerateResponse{
		Instance:      instanceToWire(&gen.Instance),
		TemplateTitle: gen.Template.Title(),
	})
}

// GetInstance handles GET /draft/instances/{instance_id}.
func (s *Server) GetInstance(w http.ResponseWriter, r *http.Request, instanceID string) {
	inst, err := s.drafts.GetInstance(r.Context(), instanceID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, instanceToWire(&inst))
}

// DownloadInstance handles GET /draft/instances/{instance_id}/download.
func (s *Server) DownloadInstance(w http.ResponseWriter, r *http.Request, instanceID string, params DownloadParams) {
	f, ok := parseFormat(w, params.Format)
	if !ok {
		return
	}
	file, err := s.drafts.DownloadInstance(r.Context(), instanceID, f)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeFile(w, file)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeBodyError(w, err)
		return false
	}
	return true
}

func (s *Server) writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, ErrorCodePayloadTooLarge,
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		return
	}
	writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
}

func parseFormat(w http.ResponseWriter, format *string) (export.Format, bool) {
	f, err := export.ParseFormat(derefString(format))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return "", false
	}
	return f, true
}

func setUsageHeaders(w http.ResponseWriter, usage *domain.Usage) {
	if usage == nil || !usage.Used() {
		return
	}
	w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.EmbeddingTokens()))
	if n := usage.LLMTokens(); n > 0 {
		w.Header().Set("X-LLM-Tokens", strconv.Itoa(n))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func writeFile(w http.ResponseWriter, f export.File) {
	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.Name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.Body)
}

// safeDomainMessage returns a client-safe message without exposing internals.
// Validation errors carry the caller's own field and reason, so they are shown in full.
func safeDomainMessage(err error) string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}

	sentinels := []error{
		domain.ErrVectorDimMismatch,
		domain.ErrValidation,
		domain.ErrEmptyInput,
		domain.ErrPayloadTooLarge,
		domain.ErrNotFound,
		domain.ErrInstanceNotFound,
		domain.ErrAlreadyExists,
		domain.ErrEmbeddingBackend,
		domain.ErrSynthesisBackend,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.OrContext(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
