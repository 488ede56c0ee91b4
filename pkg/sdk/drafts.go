package sdk

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	chiTransport "github.com/kailas-cloud/draftdex/internal/transport/chi"
)

// Match stream statuses.
const (
	StatusSearching = "searching"
	StatusReranking = "reranking"
	StatusFallback  = "fallback"
	StatusDone      = "done"
	StatusError     = "error"
)

// Match finds the template that best fits a free-text request.
func (c *Client) Match(ctx context.Context, query string) (MatchResponse, error) {
	var out MatchResponse
	in := chiTransport.MatchRequest{UserQuery: query}
	if err := c.doJSON(ctx, "match", http.MethodPost, "/draft/match", in, &out); err != nil {
		return MatchResponse{}, err
	}
	return out, nil
}

// MatchStream runs a match and calls onEvent for every progress event, the final one
// included. It returns the result carried by the done event. An error event is
// returned as ErrStreamFailed; an error from onEvent stops reading and is returned as is.
func (c *Client) MatchStream(
	ctx context.Context, query string, onEvent func(StreamEvent) error,
) (res MatchResponse, err error) {
	start := time.Now()
	defer func() { c.obs.observe("match_stream", start, err) }()

	data, err := json.Marshal(chiTransport.MatchRequest{UserQuery: query})
	if err != nil {
		return MatchResponse{}, fmt.Errorf("draftdex: encode match: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/draft/match-stream", bytes.NewReader(data), "application/json")
	if err != nil {
		return MatchResponse{}, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.send(req)
	if err != nil {
		return MatchResponse{}, err
	}
	defer resp.Body.Close()

	events := newEventReader(resp.Body)
	for {
		payload, err := events.next()
		if errors.Is(err, io.EOF) {
			return MatchResponse{}, ErrStreamTruncated
		}
		if err != nil {
			return MatchResponse{}, fmt.Errorf("draftdex: read match stream: %w", err)
		}

		var ev StreamEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return MatchResponse{}, fmt.Errorf("draftdex: decode stream event: %w", err)
		}
		if onEvent != nil {
			if err := onEvent(ev); err != nil {
				return MatchResponse{}, err
			}
		}

		switch ev.Status {
		case StatusDone:
			if ev.Data == nil {
				return MatchResponse{}, fmt.Errorf("%w: done event without data", ErrStreamTruncated)
			}
			return *ev.Data, nil
		case StatusError:
			return MatchResponse{}, fmt.Errorf("%w: %s", ErrStreamFailed, ev.Message)
		}
	}
}

// Questions lists what must be asked to fill a template. A non-empty query lets the
// server prefill values the request already mentions.
func (c *Client) Questions(ctx context.Context, templateID, query string) (QuestionsResponse, error) {
	var out QuestionsResponse
	in := chiTransport.QuestionsRequest{TemplateID: templateID, UserQuery: query}
	if err := c.doJSON(ctx, "questions", http.MethodPost, "/draft/questions", in, &out); err != nil {
		return QuestionsResponse{}, err
	}
	return out, nil
}

// Generate renders and saves a draft from the given answers.
func (c *Client) Generate(ctx context.Context, templateID string, answers map[string]any, query string) (GenerateResponse, error) {
	var out GenerateResponse
	in := chiTransport.GenerateRequest{TemplateID: templateID, Answers: answers, UserQuery: query}
	if err := c.doJSON(ctx, "generate", http.MethodPost, "/draft/generate", in, &out); err != nil {
		return GenerateResponse{}, err
	}
	return out, nil
}

// Instance returns a saved draft.
func (c *Client) Instance(ctx context.Context, id string) (Instance, error) {
	var out Instance
	if err := c.doJSON(ctx, "get_instance", http.MethodGet, instancePath(id), nil, &out); err != nil {
		return Instance{}, err
	}
	return out, nil
}

// DownloadInstance renders a saved draft. Empty format means markdown.
func (c *Client) DownloadInstance(ctx context.Context, id string, format Format) (File, error) {
	return c.download(ctx, "download_instance", instancePath(id)+"/download", format)
}

func instancePath(id string) string {
	return "/draft/instances/" + url.PathEscape(id)
}

// eventReader splits a text/event-stream body into event payloads.
type eventReader struct {
	r *bufio.Reader
}

func newEventReader(r io.Reader) *eventReader {
	return &eventReader{r: bufio.NewReader(r)}
}

// next returns the joined data lines of the next event. Events without data are skipped.
func (e *eventReader) next() ([]byte, error) {
	var data []string
	for {
		line, err := e.r.ReadString('\n')
		if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
			if errors.Is(err, io.EOF) && len(data) > 0 {
				return []byte(strings.Join(data, "\n")), nil
			}
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")

		switch {
		case line == "":
			if len(data) > 0 {
				return []byte(strings.Join(data, "\n")), nil
			}
		case strings.HasPrefix(line, ":"):
			// comment
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}

		if errors.Is(err, io.EOF) {
			if len(data) > 0 {
				return []byte(strings.Join(data, "\n")), nil
			}
			return nil, io.EOF
		}
	}
}
