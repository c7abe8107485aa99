package cmd

import (
	"strings"

	"github.com/alantheprice/council/pkg/apikeys"
	"github.com/alantheprice/council/pkg/config"
	"github.com/alantheprice/council/pkg/llm"
	"github.com/alantheprice/council/pkg/utils"
)

// resolveClient builds the model client from config and stored credentials.
// A missing key is not fatal here: local ollama endpoints need none, and
// remote calls will surface the 401 with the upstream detail.
func resolveClient(cfg *config.Config, interactive bool) *llm.Invoker {
	key := cfg.APIKey
	if key == "" {
		k, err := apikeys.GetAPIKey("openrouter", interactive)
		if err != nil {
			utils.GetLogger(!interactive).Logf("no API key resolved: %v", err)
		}
		key = k
	}
	return llm.NewInvoker(cfg.BaseURL, key)
}

// parseModels splits a comma-separated model list, dropping empty entries.
func parseModels(raw string) []string {
	parts := strings.Split(raw, ",")
	models := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			models = append(models, trimmed)
		}
	}
	return models
}
