package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	chiTransport "github.com/kailas-cloud/draftdex/internal/transport/chi"
)

// Ingest turns a text document into a template. A near-identical existing
// template is returned with Duplicate set instead of creating a new one.
func (c *Client) Ingest(ctx context.Context, req IngestRequest) (IngestResponse, error) {
	var out IngestResponse
	if err := c.doJSON(ctx, "ingest", http.MethodPost, "/templates/ingest", req, &out); err != nil {
		return IngestResponse{}, err
	}
	return out, nil
}

// IngestFile uploads a PDF, markdown or text file. name defaults to the file name on the server.
func (c *Client) IngestFile(ctx context.Context, filename, name string, content io.Reader) (out IngestResponse, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ingest_file", start, err) }()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return IngestResponse{}, fmt.Errorf("draftdex: create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return IngestResponse{}, fmt.Errorf("draftdex: read %s: %w", filename, err)
	}
	if name != "" {
		if err := mw.WriteField("name", name); err != nil {
			return IngestResponse{}, fmt.Errorf("draftdex: write name field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return IngestResponse{}, fmt.Errorf("draftdex: close form: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/templates/ingest", &buf, mw.FormDataContentType())
	if err != nil {
		return IngestResponse{}, err
	}
	resp, err := c.send(req)
	if err != nil {
		return IngestResponse{}, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return IngestResponse{}, fmt.Errorf("draftdex: decode ingest: %w", err)
	}
	return out, nil
}

// IngestBatch ingests several documents. Per-document failures are reported in the
// items, in request order; only request-level failures return an error.
func (c *Client) IngestBatch(ctx context.Context, docs []IngestRequest) (BatchIngestResponse, error) {
	var out BatchIngestResponse
	in := chiTransport.BatchIngestRequest{Documents: docs}
	if err := c.doJSON(ctx, "ingest_batch", http.MethodPost, "/templates/ingest/batch", in, &out); err != nil {
		return BatchIngestResponse{}, err
	}
	return out, nil
}
