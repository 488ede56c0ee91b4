package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/draftdex/internal/domain"
	dommatch "github.com/kailas-cloud/draftdex/internal/domain/match"
)

const rerankSystemPrompt = `You are a legal document matching assistant. ` +
	`You compare a user's drafting request with candidate templates and answer with JSON only.`

// Reranker asks the chat model which candidate fits the request best.
type Reranker struct {
	chat   *ChatClient
	logger *zap.Logger
}

// NewReranker creates a re-ranker on top of a chat client.
func NewReranker(chat *ChatClient, logger *zap.Logger) *Reranker {
	return &Reranker{chat: chat, logger: logger}
}

type rerankCandidate struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	DocType      string   `json:"doc_type"`
	Jurisdiction string   `json:"jurisdiction"`
	Tags         []string `json:"tags"`
	Similarity   float64  `json:"similarity"`
}

type rerankJudgement struct {
	TemplateID  string   `json:"template_id"`
	Confidence  *float64 `json:"confidence"`
	Explanation string   `json:"explanation"`
}

type rerankReply struct {
	TopMatch     *rerankJudgement  `json:"top_match"`
	Alternatives []rerankJudgement `json:"alternatives"`
	Found        bool              `json:"found"`
}

// Rerank returns Found with the model's top pick or NotFound.
// Replies that do not follow the schema become NotFound; transport failures wrap domain.ErrRerankingBackend.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []dommatch.Candidate) (dommatch.Verdict, error) {
	if len(candidates) == 0 {
		return dommatch.NotFound(), nil
	}

	prompt, err := rerankPrompt(query, candidates)
	if err != nil {
		return dommatch.NotFound(), fmt.Errorf("build rerank prompt: %w: %w", domain.ErrRerankingBackend, err)
	}

	var reply rerankReply
	if err := r.chat.CompleteJSON(ctx, "rerank", rerankSystemPrompt, prompt, &reply, domain.ErrRerankingBackend); err != nil {
		if errors.Is(err, ErrMalformedReply) {
			r.logger.Warn("Re-ranker reply is not valid JSON, treating as no match", zap.Error(err))
			return dommatch.NotFound(), nil
		}
		return dommatch.NotFound(), err
	}

	verdict, ok := reply.verdict()
	if !ok {
		r.logger.Warn("Re-ranker reply does not match the verdict schema, treating as no match")
	}
	return verdict, nil
}

func (r rerankReply) verdict() (dommatch.Verdict, bool) {
	if !r.Found {
		return dommatch.NotFound(), r.TopMatch == nil
	}
	top, ok := r.TopMatch.judgement()
	if !ok {
		return dommatch.NotFound(), false
	}

	alts := make([]dommatch.Judgement, 0, len(r.Alternatives))
	for i := range r.Alternatives {
		if j, ok := r.Alternatives[i].judgement(); ok {
			alts = append(alts, j)
		}
	}
	return dommatch.Found(top, alts), true
}

func (j *rerankJudgement) judgement() (dommatch.Judgement, bool) {
	if j == nil || strings.TrimSpace(j.TemplateID) == "" || j.Confidence == nil {
		return dommatch.Judgement{}, false
	}
	c := *j.Confidence
	if c < 0 || c > 1 {
		return dommatch.Judgement{}, false
	}
	return dommatch.Judgement{
		TemplateID:  strings.TrimSpace(j.TemplateID),
		Confidence:  c,
		Explanation: j.Explanation,
	}, true
}

func rerankPrompt(query string, candidates []dommatch.Candidate) (string, error) {
	items := make([]rerankCandidate, 0, len(candidates))
	for i := range candidates {
		t := &candidates[i].Template
		tags := t.Tags()
		if tags == nil {
			tags = []string{}
		}
		items = append(items, rerankCandidate{
			ID:           t.ID(),
			Title:        t.Title(),
			Description:  t.Description(),
			DocType:      t.DocType(),
			Jurisdiction: t.Jurisdiction(),
			Tags:         tags,
			Similarity:   candidates[i].Similarity,
		})
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`A user wants to draft a document with this request:

USER REQUEST: %q

AVAILABLE TEMPLATES:
%s

INSTRUCTIONS:
1. Work out what type of document the user needs.
2. Compare it with each template's doc_type, jurisdiction and tags.
3. Give each template a confidence between 0.0 and 1.0.
4. Explain the top match briefly.
5. If every template scores below 0.6, report that nothing matched.

Return JSON in exactly this shape:
{"top_match": {"template_id": "id", "confidence": 0.85, "explanation": "..."},
 "alternatives": [{"template_id": "id", "confidence": 0.65, "explanation": "..."}],
 "found": true}

When nothing matches return:
{"top_match": null, "alternatives": [], "found": false}`, query, data), nil
}
