package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alantheprice/council/pkg/prompts"
	"github.com/alantheprice/council/pkg/utils"
)

// pingTimeout is short on purpose: a model that cannot say OK in 30 seconds
// is not usable for a run either.
const pingTimeout = 30 * time.Second

// shortNames maps well-known model suffixes to compact display names.
var shortNames = map[string]string{
	"claude-3.5-sonnet": "Claude Sonnet",
	"claude-3-haiku":    "Claude Haiku",
	"claude-haiku-4.5":  "Claude Haiku",
	"gpt-4o":            "GPT-4o",
	"gpt-4o-mini":       "GPT-4o Mini",
}

// ShortName returns a human-friendly display name for a model id. Unknown
// models get their suffix capitalized and capped to 20 characters.
func ShortName(modelID string) string {
	name := modelID
	if idx := strings.LastIndex(modelID, "/"); idx >= 0 {
		name = modelID[idx+1:]
	}
	if short, ok := shortNames[name]; ok {
		return short
	}
	pretty := utils.CapitalizeWords(strings.NewReplacer("-", " ", "_", " ").Replace(name))
	return utils.TruncateString(pretty, 20)
}

// Ping checks whether a model answers at all: one tiny completion with a
// short deadline. Returns nil when the model responded.
func (inv *Invoker) Ping(ctx context.Context, modelID string, apiKey string) error {
	messages := []prompts.Message{{Role: "user", Content: "Say OK"}}
	_, err := inv.Invoke(ctx, modelID, messages, Options{
		APIKey:    apiKey,
		MaxTokens: 10,
		Timeout:   pingTimeout,
	})
	return err
}

// ListModels proxies the upstream model catalog and returns the raw JSON
// payload for the caller to forward.
func (inv *Invoker) ListModels(ctx context.Context, apiKey string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", inv.BaseURL+"/models", nil)
	if err != nil {
		return nil, &TransportError{Model: "", Err: err}
	}
	if key := inv.resolveKey(Options{APIKey: apiKey}); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	client := &http.Client{Timeout: pingTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyCallError("", pingTimeout, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Model: "", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Detail: strings.TrimSpace(string(body))}
	}
	return json.RawMessage(body), nil
}
