package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ParamErrorHandler answers requests whose path or query parameters do not bind.
type ParamErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Routes mounts every endpoint of s on r.
// A nil onParamError answers binding failures with 400 bad_request.
func Routes(r chi.Router, s *Server, onParamError ParamErrorHandler) {
	if onParamError == nil {
		onParamError = defaultParamError
	}
	b := binder{server: s, onError: onParamError}

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/templates", func(r chi.Router) {
		r.Get("/", b.listTemplates)
		r.Post("/search", s.SearchTemplates)
		r.Post("/ingest", s.IngestTemplate)
		r.Post("/ingest/batch", s.BatchIngest)
		r.Get("/{template_id}", b.getTemplate)
		r.Delete("/{template_id}", b.deleteTemplate)
		r.Get("/{template_id}/download", b.downloadTemplate)
		r.Get("/{template_id}/similar", b.similarTemplates)
	})

	r.Route("/draft", func(r chi.Router) {
		r.Post("/match", s.MatchTemplate)
		r.Post("/match-stream", s.MatchTemplateStream)
		r.Post("/questions", s.Questions)
		r.Post("/generate", s.GenerateDraft)
		r.Get("/instances/{instance_id}", b.getInstance)
		r.Get("/instances/{instance_id}/download", b.downloadInstance)
	})
}

func defaultParamError(w http.ResponseWriter, _ *http.Request, err error) {
	writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
}

// binder decodes path and query parameters before calling the server.
type binder struct {
	server  *Server
	onError ParamErrorHandler
}

func (b binder) pathParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	var v string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &v,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		b.onError(w, r, fmt.Errorf("invalid format for parameter %s: %w", name, err))
		return "", false
	}
	return v, true
}

func (b binder) queryParam(w http.ResponseWriter, r *http.Request, name string, dest any) bool {
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), dest); err != nil {
		b.onError(w, r, fmt.Errorf("invalid format for parameter %s: %w", name, err))
		return false
	}
	return true
}

func (b binder) listTemplates(w http.ResponseWriter, r *http.Request) {
	var params ListTemplatesParams
	if !b.queryParam(w, r, "skip", &params.Skip) || !b.queryParam(w, r, "limit", &params.Limit) {
		return
	}
	b.server.ListTemplates(w, r, params)
}

func (b binder) getTemplate(w http.ResponseWriter, r *http.Request) {
	if id, ok := b.pathParam(w, r, "template_id"); ok {
		b.server.GetTemplate(w, r, id)
	}
}

func (b binder) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	if id, ok := b.pathParam(w, r, "template_id"); ok {
		b.server.DeleteTemplate(w, r, id)
	}
}

func (b binder) downloadTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := b.pathParam(w, r, "template_id")
	if !ok {
		return
	}
	var params DownloadParams
	if !b.queryParam(w, r, "format", &params.Format) {
		return
	}
	b.server.DownloadTemplate(w, r, id, params)
}

func (b binder) similarTemplates(w http.ResponseWriter, r *http.Request) {
	id, ok := b.pathParam(w, r, "template_id")
	if !ok {
		return
	}
	var params SimilarParams
	if !b.queryParam(w, r, "top_k", &params.TopK) {
		return
	}
	b.server.SimilarTemplates(w, r, id, params)
}

func (b binder) getInstance(w http.ResponseWriter, r *http.Request) {
	if id, ok := b.pathParam(w, r, "instance_id"); ok {
		b.server.GetInstance(w, r, id)
	}
}

func (b binder) downloadInstance(w http.ResponseWriter, r *http.Request) {
	id, ok := b.pathParam(w, r, "instance_id")
	if !ok {
		return
	}
	var params DownloadParams
	if !b.queryParam(w, r, "format", &params.Format) {
		return
	}
	b.server.DownloadInstance(w, r, id, params)
}
