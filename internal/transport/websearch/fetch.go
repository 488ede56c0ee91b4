package websearch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/kailas-cloud/draftdex/internal/domain"
	"github.com/kailas-cloud/draftdex/internal/metrics"
)

const (
	defaultMaxPageBytes = 2 << 20
	userAgent           = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Fetcher downloads a page and reduces it to readable text.
type Fetcher struct {
	http     *http.Client
	maxBytes int64
}

// NewFetcher creates a page fetcher. maxBytes <= 0 means 2 MiB.
func NewFetcher(timeout time.Duration, maxBytes int64) *Fetcher {
	if maxBytes <= 0 {
		maxBytes = defaultMaxPageBytes
	}
	return &Fetcher{http: &http.Client{Timeout: timeout}, maxBytes: maxBytes}
}

// Fetch returns the text of an HTML or plain-text page.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build fetch request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")

	resp, err := f.http.Do(req)
	if err != nil {
		metrics.WebSearchRequestsTotal.WithLabelValues("fetch", "error").Inc()
		return "", fmt.Errorf("fetch %s: %w: %w", url, domain.ErrFallbackBackend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.WebSearchRequestsTotal.WithLabelValues("fetch", "error").Inc()
		return "", fmt.Errorf("fetch %s: status %d: %w", url, resp.StatusCode, domain.ErrFallbackBackend)
	}

	body := io.LimitReader(resp.Body, f.maxBytes)
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))

	var text string
	switch {
	case mediaType == "text/plain" || mediaType == "text/markdown":
		raw, err := io.ReadAll(body)
		if err != nil {
			metrics.WebSearchRequestsTotal.WithLabelValues("fetch", "error").Inc()
			return "", fmt.Errorf("read %s: %w: %w", url, domain.ErrFallbackBackend, err)
		}
		text = string(raw)
	case mediaType == "" || strings.Contains(mediaType, "html"):
		doc, err := html.Parse(body)
		if err != nil {
			metrics.WebSearchRequestsTotal.WithLabelValues("fetch", "error").Inc()
			return "", fmt.Errorf("parse %s: %w: %w", url, domain.ErrFallbackBackend, err)
		}
		text = HTMLText(doc)
	default:
		metrics.WebSearchRequestsTotal.WithLabelValues("fetch", "unsupported").Inc()
		return "", fmt.Errorf("fetch %s: unsupported content type %q: %w", url, mediaType, domain.ErrFallbackBackend)
	}

	metrics.WebSearchRequestsTotal.WithLabelValues("fetch", "success").Inc()
	return text, nil
}

var skippedElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "head": true,
	"nav": true, "footer": true, "svg": true, "iframe": true, "template": true,
}

var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true, "section": true,
	"article": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"pre": true, "blockquote": true, "table": true, "ul": true, "ol": true, "header": true,
}

// HTMLText flattens a parsed document into lines of visible text.
func HTMLText(doc *html.Node) string {
	var b strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			if s := strings.Join(strings.Fields(n.Data), " "); s != "" {
				if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
					b.WriteByte(' ')
				}
				b.WriteString(s)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] && b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
	}
	walk(doc)

	return strings.TrimSpace(b.String())
}
