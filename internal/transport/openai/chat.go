package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/draftdex/internal/domain"
	"github.com/kailas-cloud/draftdex/internal/metrics"
)

// ErrMalformedReply signals a chat reply that is not the requested JSON.
var ErrMalformedReply = errors.New("malformed model reply")

// ChatConfig holds the chat model settings.
type ChatConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Provider    string
	Temperature float32
	// Timeout bounds a single completion. Zero uses the client default.
	Timeout time.Duration
	Logger  *zap.Logger
}

// ChatClient runs JSON-mode chat completions.
type ChatClient struct {
	client      *openai.Client
	model       string
	provider    string
	temperature float32
	logger      *zap.Logger
}

// NewChatClient creates a chat client.
func NewChatClient(cfg *ChatConfig) *ChatClient {
	return &ChatClient{
		client:      newClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout),
		model:       cfg.Model,
		provider:    cfg.Provider,
		temperature: cfg.Temperature,
		logger:      cfg.Logger,
	}
}

// CompleteJSON sends a system and user message and decodes the JSON reply into out.
// operation labels metrics. Transport failures wrap sentinel; undecodable replies wrap
// both sentinel and ErrMalformedReply.
func (c *ChatClient) CompleteJSON(ctx context.Context, operation, system, user string, out any, sentinel error) error {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature:    c.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	metrics.LLMRequestDuration.WithLabelValues(operation, c.model).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(operation, c.model, "error").Inc()
		return apiError("chat", err, sentinel)
	}

	c.recordUsage(ctx, operation, resp.Usage)

	if len(resp.Choices) == 0 {
		metrics.LLMRequestsTotal.WithLabelValues(operation, c.model, "empty").Inc()
		return fmt.Errorf("empty chat response: %w: %w", sentinel, ErrMalformedReply)
	}

	content := stripFences(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(operation, c.model, "malformed").Inc()
		c.logger.Debug("Undecodable chat reply",
			zap.String("operation", operation),
			zap.String("reply", truncateForLog(content)),
		)
		return fmt.Errorf("decode %s reply: %w: %w", operation, sentinel, ErrMalformedReply)
	}

	metrics.LLMRequestsTotal.WithLabelValues(operation, c.model, "success").Inc()
	return nil
}

func (c *ChatClient) recordUsage(ctx context.Context, operation string, u openai.Usage) {
	if u.TotalTokens <= 0 {
		return
	}
	metrics.LLMTokensTotal.WithLabelValues(operation, c.model, "prompt").Add(float64(u.PromptTokens))
	metrics.LLMTokensTotal.WithLabelValues(operation, c.model, "completion").Add(float64(u.CompletionTokens))
	domain.UsageFromContext(ctx).AddLLMTokens(u.TotalTokens)
}

// HealthCheck lists models, which costs no tokens.
func (c *ChatClient) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// stripFences removes a surrounding markdown code fence, with or without a language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func truncateForLog(s string) string {
	const limit = 500
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
