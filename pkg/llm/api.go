package llm

import (
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

	"github.com/alantheprice/council/pkg/prompts"
)

// Per-call timeout band. Callers pick a value by call importance; anything
// outside the band is clamped so a misconfigured caller cannot hang a run or
// starve one.
const (
	MinCallTimeout     = 30 * time.Second
	MaxCallTimeout     = 180 * time.Second
	DefaultCallTimeout = 120 * time.Second
)

// DefaultBaseURL is the OpenAI-compatible endpoint used when none is configured.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

const httpReferer = "https://codeagent.app"

// Invoker sends role-tagged message sequences to an OpenAI-compatible
// completion endpoint and normalizes the reply. It holds no per-call state and
// is safe for concurrent use; model ids with the "ollama:" prefix are routed
// to a local Ollama server instead.
type Invoker struct {
	BaseURL string
	APIKey  string // fallback when the per-call options carry no key
}

// NewInvoker returns an Invoker for the given endpoint. An empty baseURL
// selects DefaultBaseURL.
func NewInvoker(baseURL, apiKey string) *Invoker {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Invoker{BaseURL: strings.TrimRight(baseURL, "/"), APIKey: apiKey}
}

// ClampTimeout normalizes a requested timeout into the supported band. Zero
// and negative values select the default.
func ClampTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultCallTimeout
	}
	if d < MinCallTimeout {
		return MinCallTimeout
	}
	if d > MaxCallTimeout {
		return MaxCallTimeout
	}
	return d
}

// Invoke sends the message sequence to the model and returns the normalized
// result, or exactly one of the typed failures (TimeoutError, UpstreamError,
// TransportError).
func (inv *Invoker) Invoke(ctx context.Context, model string, messages []prompts.Message, opts Options) (*ModelCallResult, error) {
	if model == "" {
		return nil, fmt.Errorf("no model specified")
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("empty message sequence for model %s", model)
	}
	if IsOllamaModel(model) {
		return inv.callOllama(ctx, model, messages, opts)
	}
	return inv.callOpenAICompatible(ctx, model, messages, opts)
}

// InvokeWithImage sends a single-turn prompt with an image attached, for
// vision-capable models. The image is inlined as a base64 data URL.
func (inv *Invoker) InvokeWithImage(ctx context.Context, model, prompt, imagePath string, opts Options) (*ModelCallResult, error) {
	msg := prompts.Message{Role: "user", Content: prompt}
	if err := AddImageToMessage(&msg, imagePath); err != nil {
		return nil, err
	}
	return inv.Invoke(ctx, model, []prompts.Message{msg}, opts)
}

func (inv *Invoker) callOpenAICompatible(ctx context.Context, model string, messages []prompts.Message, opts Options) (*ModelCallResult, error) {
	timeout := ClampTimeout(opts.Timeout)

	payload := map[string]interface{}{
		"model":    model,
		"messages": messages,
	}
	if opts.MaxTokens > 0 {
		payload["max_tokens"] = opts.MaxTokens
	}
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request for model %s: %w", model, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", inv.BaseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request for model %s: %w", model, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+inv.resolveKey(opts))
	req.Header.Set("HTTP-Referer", httpReferer)

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyCallError(model, timeout, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &UpstreamError{Model: model, StatusCode: resp.StatusCode, Detail: strings.TrimSpace(string(body))}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &TransportError{Model: model, Err: fmt.Errorf("decoding response body: %w", err)}
	}
	if parsed.Error != nil {
		return nil, &UpstreamError{Model: model, StatusCode: resp.StatusCode, Detail: parsed.Error.Message}
	}
	if len(parsed.Choices) == 0 {
		return nil, &UpstreamError{Model: model, StatusCode: resp.StatusCode, Detail: "response contained no choices"}
	}

	msg := parsed.Choices[0].Message
	content, imageRef := decodeMessageContent(msg.Content)
	if imageRef == "" && len(msg.Images) > 0 {
		imageRef = msg.Images[0].ImageURL.URL
	}

	return &ModelCallResult{
		Model:    model,
		Content:  content,
		ImageRef: imageRef,
		Usage:    parsed.Usage,
	}, nil
}

func (inv *Invoker) resolveKey(opts Options) string {
	if opts.APIKey != "" {
		return opts.APIKey
	}
	return inv.APIKey
}

// classifyCallError maps a client error onto the typed failure taxonomy.
// Deadline hits from either the HTTP client or the caller's context count as
// timeouts; everything else before a status line is a transport failure.
func classifyCallError(model string, timeout time.Duration, err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return &TimeoutError{Model: model, Timeout: timeout}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Model: model, Timeout: timeout}
	}
	return &TransportError{Model: model, Err: err}
}

// decodeMessageContent handles both plain-string content and multimodal part
// lists. Text parts are joined; the first image part becomes the image ref.
func decodeMessageContent(raw json.RawMessage) (string, string) {
	if len(raw) == 0 {
		return "", ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, ""
	}
	var parts []contentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return strings.TrimSpace(string(raw)), ""
	}
	var textParts []string
	var imageRef string
	for _, part := range parts {
		switch part.Type {
		case "text":
			textParts = append(textParts, part.Text)
		case "image_url":
			if imageRef == "" && part.ImageURL != nil {
				imageRef = part.ImageURL.URL
			}
		}
	}
	return strings.Join(textParts, " "), imageRef
}
