package sdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	chiTransport "github.com/kailas-cloud/draftdex/internal/transport/chi"
)

// Templates returns one page of the catalog. Zero limit uses the server default.
func (c *Client) Templates(ctx context.Context, skip, limit int) (TemplateList, error) {
	q := url.Values{}
	if skip > 0 {
		q.Set("skip", strconv.Itoa(skip))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/templates/"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out TemplateList
	if err := c.doJSON(ctx, "list_templates", http.MethodGet, path, nil, &out); err != nil {
		return TemplateList{}, err
	}
	return out, nil
}

// Template returns one template with its body and variables.
func (c *Client) Template(ctx context.Context, id string) (Template, error) {
	var out Template
	if err := c.doJSON(ctx, "get_template", http.MethodGet, templatePath(id), nil, &out); err != nil {
		return Template{}, err
	}
	return out, nil
}

// DeleteTemplate removes a template.
func (c *Client) DeleteTemplate(ctx context.Context, id string) error {
	return c.doJSON(ctx, "delete_template", http.MethodDelete, templatePath(id), nil, nil)
}

// Search runs a semantic search over the catalog.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]ScoredTemplate, error) {
	var out chiTransport.SearchResponse
	if err := c.doJSON(ctx, "search", http.MethodPost, "/templates/search", req, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Similar returns the templates nearest to the given one. Zero topK uses the server default.
func (c *Client) Similar(ctx context.Context, id string, topK int) ([]ScoredTemplate, error) {
	path := templatePath(id) + "/similar"
	if topK > 0 {
		path += "?top_k=" + strconv.Itoa(topK)
	}
	var out chiTransport.SearchResponse
	if err := c.doJSON(ctx, "similar", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// DownloadTemplate renders a template body. Empty format means markdown.
func (c *Client) DownloadTemplate(ctx context.Context, id string, format Format) (File, error) {
	return c.download(ctx, "download_template", templatePath(id)+"/download", format)
}

func templatePath(id string) string {
	return "/templates/" + url.PathEscape(id)
}
