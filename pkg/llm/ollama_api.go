package llm

import (
	"context"
	"errors"
	"strings"

	// Pre-rename module path: github.com/ollama/ollama versions all require
	// go >= 1.22; v0.1.28 under the old path is the last go 1.21 release.
	ollama "github.com/jmorganca/ollama/api"

	"github.com/alantheprice/council/pkg/prompts"
)

// callOllama routes "ollama:" model ids to a local Ollama server, keeping the
// same result shape and error taxonomy as the HTTP path.
func (inv *Invoker) callOllama(ctx context.Context, modelName string, messages []prompts.Message, opts Options) (*ModelCallResult, error) {
	client, err := ollama.ClientFromEnvironment()
	if err != nil {
		return nil, &TransportError{Model: modelName, Err: err}
	}

	ollamaMessages := make([]ollama.Message, len(messages))
	totalChars := 0
	for i, msg := range messages {
		text := GetMessageText(msg.Content)
		ollamaMessages[i] = ollama.Message{
			Role:    msg.Role,
			Content: text,
		}
		totalChars += len(text)
	}

	// The model name for ollama is without the "ollama:" prefix
	actualModelName := strings.TrimPrefix(modelName, "ollama:")

	// num_ctx sized to the conversation with headroom, floored at 4096
	numCtx := totalChars/4 + 1000
	if numCtx < 4096 {
		numCtx = 4096
	}

	stream := false
	req := &ollama.ChatRequest{
		Model:    actualModelName,
		Messages: ollamaMessages,
		Stream:   &stream,
		Options: map[string]interface{}{
			"num_ctx": numCtx,
		},
	}

	timeout := ClampTimeout(opts.Timeout)
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var content strings.Builder
	var usage *TokenUsage
	respFunc := func(res ollama.ChatResponse) error {
		content.WriteString(res.Message.Content)
		if res.Done {
			usage = &TokenUsage{
				PromptTokens:     res.PromptEvalCount,
				CompletionTokens: res.EvalCount,
				TotalTokens:      res.PromptEvalCount + res.EvalCount,
			}
		}
		return nil
	}

	if err := client.Chat(callCtx, req, respFunc); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &TimeoutError{Model: modelName, Timeout: timeout}
		}
		return nil, &TransportError{Model: modelName, Err: err}
	}

	return &ModelCallResult{
		Model:   modelName,
		Content: content.String(),
		Usage:   usage,
	}, nil
}
