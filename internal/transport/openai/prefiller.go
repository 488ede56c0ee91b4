package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	domtpl "github.com/kailas-cloud/draftdex/internal/domain/template"
)

// ErrPrefillBackend wraps prefill transport failures. Prefill is best-effort, so no domain sentinel covers it.
var ErrPrefillBackend = errors.New("prefill backend error")

const prefillSystemPrompt = `You extract values for document variables from a user's request and answer with JSON only.`

// Prefiller extracts variable values mentioned in a free-text request.
type Prefiller struct {
	chat   *ChatClient
	logger *zap.Logger
}

// NewPrefiller creates a prefiller.
func NewPrefiller(chat *ChatClient, logger *zap.Logger) *Prefiller {
	return &Prefiller{chat: chat, logger: logger}
}

type prefillVariable struct {
	Key           string   `json:"key"`
	Label         string   `json:"label"`
	Description   string   `json:"description"`
	DataType      string   `json:"dtype"`
	Example       string   `json:"example,omitempty"`
	AllowedValues []string `json:"allowed_values,omitempty"`
}

// Prefill returns a flat key to value map. The caller validates the values.
func (p *Prefiller) Prefill(ctx context.Context, query string, vars []domtpl.Variable) (map[string]any, error) {
	if len(vars) == 0 {
		return map[string]any{}, nil
	}

	infos := make([]prefillVariable, 0, len(vars))
	for _, v := range vars {
		infos = append(infos, prefillVariable{
			Key:           v.Key(),
			Label:         v.Label(),
			Description:   v.Description(),
			DataType:      string(v.DataType()),
			Example:       v.Example(),
			AllowedValues: v.AllowedValues(),
		})
	}
	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal variables: %w", err)
	}

	prompt := fmt.Sprintf(`Extract any information from the user's request that matches these variables.

USER REQUEST: %q

VARIABLES TO FILL:
%s

INSTRUCTIONS:
1. Only include values the request states and you are confident about.
2. Format dates as YYYY-MM-DD.
3. Use the variable keys as JSON keys.
4. Return an empty object when nothing can be extracted.

Return a flat JSON object such as {"variable_key": "value"}.`, query, data)

	out := map[string]any{}
	if err := p.chat.CompleteJSON(ctx, "prefill", prefillSystemPrompt, prompt, &out, ErrPrefillBackend); err != nil {
		return nil, err
	}
	return out, nil
}
