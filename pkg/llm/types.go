package llm

import (
	"encoding/json"
	"time"
)

// TokenUsage represents token usage reported by the completion endpoint.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ModelCallResult is the normalized outcome of one model invocation. Either a
// full result comes back or a typed error; never a partial state.
type ModelCallResult struct {
	Model    string      `json:"model"`
	Content  string      `json:"content"`
	ImageRef string      `json:"image_ref,omitempty"`
	Usage    *TokenUsage `json:"usage,omitempty"`
}

// Options carries per-call parameters. The API key is passed through from the
// caller; a zero Timeout falls back to DefaultCallTimeout and any value is
// clamped into the supported band.
type Options struct {
	APIKey    string
	MaxTokens int
	Timeout   time.Duration
}

// chatResponse covers the fields we read from OpenAI-compatible replies.
// Content can be a plain string or a multimodal part list depending on the
// model, so it is decoded in a second step.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
			Images  []chatImage     `json:"images,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *TokenUsage `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type chatImage struct {
	Type     string `json:"type"`
	ImageURL struct {
		URL string `json:"url"`
	} `json:"image_url"`
}

// contentPart is the wire shape of one element when content arrives as a part
// list instead of a string.
type contentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url,omitempty"`
}
