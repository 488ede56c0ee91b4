package chi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	dommatch "github.com/kailas-cloud/draftdex/internal/domain/match"
	"github.com/kailas-cloud/draftdex/internal/logger"
)

// MatchTemplateStream handles POST /draft/match-stream as Server-Sent Events.
// Each event is written as "data: {json}\n\n"; the stream ends after a done or error event.
func (s *Server) MatchTemplateStream(w http.ResponseWriter, r *http.Request) {
	query, ok := s.readQuery(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	log := logger.OrContext(r.Context(), s.logger)
	writable := true
	for ev := range s.matcher.Stream(r.Context(), query) {
		if !writable {
			continue
		}
		if ev.Kind == dommatch.EventError {
			log.Warn("match stream failed", zap.Error(ev.Err))
		}
		if err := writeEvent(w, flusher, eventToWire(ev)); err != nil {
			log.Debug("client left match stream", zap.Error(err))
			writable = false
		}
	}
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, ev StreamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	flusher.Flush()
	return nil
}

func eventToWire(ev dommatch.Event) StreamEvent {
	out := StreamEvent{Status: string(ev.Kind), Message: ev.Message}
	switch ev.Kind {
	case dommatch.EventDone:
		if ev.Result != nil {
			res := matchToWire(*ev.Result)
			out.Data = &res
			if out.Message == "" {
				out.Message = res.Message
			}
		}
	case dommatch.EventError:
		out.Message = safeDomainMessage(ev.Err)
	}
	return out
}
