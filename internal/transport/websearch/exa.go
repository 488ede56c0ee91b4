// Package websearch finds and fetches candidate template pages on the web.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/draftdex/internal/domain"
	"github.com/kailas-cloud/draftdex/internal/domain/source"
	"github.com/kailas-cloud/draftdex/internal/metrics"
)

const maxErrorBody = 4 << 10

// Config holds the Exa search settings.
type Config struct {
	APIKey         string
	BaseURL        string
	ExcludeDomains []string
	Timeout        time.Duration
	Logger         *zap.Logger
}

// Client calls the Exa /search API with contents.
type Client struct {
	http           *http.Client
	baseURL        string
	apiKey         string
	excludeDomains []string
	logger         *zap.Logger
}

// NewClient creates an Exa client. Excluded domains default to source.DefaultExcludedDomains.
func NewClient(cfg Config) *Client {
	exclude := cfg.ExcludeDomains
	if len(exclude) == 0 {
		exclude = source.DefaultExcludedDomains
	}
	return &Client{
		http:           &http.Client{Timeout: cfg.Timeout},
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		excludeDomains: exclude,
		logger:         cfg.Logger,
	}
}

type searchRequest struct {
	Query          string         `json:"query"`
	NumResults     int            `json:"numResults"`
	Type           string         `json:"type"`
	UseAutoprompt  bool           `json:"useAutoprompt"`
	ExcludeDomains []string       `json:"excludeDomains,omitempty"`
	Contents       searchContents `json:"contents"`
}

type searchContents struct {
	Text       bool `json:"text"`
	Highlights bool `json:"highlights"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	Title      string   `json:"title"`
	URL        string   `json:"url"`
	Text       string   `json:"text"`
	Highlights []string `json:"highlights"`
	Score      float64  `json:"score"`
}

// Search returns up to numResults pages with text and highlights.
// Every failure wraps domain.ErrFallbackBackend.
func (c *Client) Search(ctx context.Context, query string, numResults int) ([]source.Page, error) {
	body, err := json.Marshal(searchRequest{
		Query:          query,
		NumResults:     numResults,
		Type:           "neural",
		UseAutoprompt:  true,
		ExcludeDomains: c.excludeDomains,
		Contents:       searchContents{Text: true, Highlights: true},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.WebSearchRequestsTotal.WithLabelValues("search", "error").Inc()
		return nil, fmt.Errorf("exa search: %w: %w", domain.ErrFallbackBackend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.WebSearchRequestsTotal.WithLabelValues("search", "error").Inc()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("exa search status %d: %s: %w",
			resp.StatusCode, strings.TrimSpace(string(msg)), domain.ErrFallbackBackend)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		metrics.WebSearchRequestsTotal.WithLabelValues("search", "error").Inc()
		return nil, fmt.Errorf("decode exa response: %w: %w", domain.ErrFallbackBackend, err)
	}
	metrics.WebSearchRequestsTotal.WithLabelValues("search", "success").Inc()

	pages := make([]source.Page, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if r.URL == "" {
			continue
		}
		pages = append(pages, source.Page{
			Title:     r.Title,
			URL:       r.URL,
			Text:      r.Text,
			Highlight: strings.Join(r.Highlights, " "),
			Score:     r.Score,
		})
	}

	c.logger.Debug("Web search completed",
		zap.Int("results", len(pages)),
		zap.Duration("duration", time.Since(start)),
	)
	return pages, nil
}
