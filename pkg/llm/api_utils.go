package llm

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/alantheprice/council/pkg/prompts"
)

var thinkTagRegex = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StripThinkTags removes <think> blocks some models emit before their answer.
func StripThinkTags(content string) string {
	return strings.TrimSpace(thinkTagRegex.ReplaceAllString(content, ""))
}

// IsOllamaModel checks if the given model name is an Ollama model.
func IsOllamaModel(modelName string) bool {
	return strings.HasPrefix(strings.ToLower(modelName), "ollama:")
}

// EncodeImageToBase64 reads an image file and encodes it as a data URL.
func EncodeImageToBase64(imagePath string) (string, error) {
	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to read image file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(imagePath))
	var mimeType string
	switch ext {
	case ".jpg", ".jpeg":
		mimeType = "image/jpeg"
	case ".png":
		mimeType = "image/png"
	case ".gif":
		mimeType = "image/gif"
	case ".webp":
		mimeType = "image/webp"
	default:
		mimeType = "image/jpeg"
	}

	base64String := base64.StdEncoding.EncodeToString(imageData)
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64String), nil
}

// GetMessageText extracts text content from a message, handling both string and multimodal content.
func GetMessageText(content interface{}) string {
	switch v := content.(type) {
	case string:
		return v
	case []prompts.ContentPart:
		var textParts []string
		for _, part := range v {
			if part.Type == "text" {
				textParts = append(textParts, part.Text)
			}
		}
		return strings.Join(textParts, " ")
	default:
		return ""
	}
}

// IsMultimodalContent checks if the message content contains images.
func IsMultimodalContent(content interface{}) bool {
	if parts, ok := content.([]prompts.ContentPart); ok {
		for _, part := range parts {
			if part.Type == "image_url" {
				return true
			}
		}
	}
	return false
}

// AddImageToMessage converts a text message into multimodal form with the
// image attached. Remote URLs and data URLs pass through; local paths are
// read and inlined as base64.
func AddImageToMessage(message *prompts.Message, imageRef string) error {
	if imageRef == "" {
		return nil
	}

	imageURL := imageRef
	if !strings.HasPrefix(imageRef, "data:") && !strings.HasPrefix(imageRef, "http://") && !strings.HasPrefix(imageRef, "https://") {
		encoded, err := EncodeImageToBase64(imageRef)
		if err != nil {
			return fmt.Errorf("failed to encode image: %w", err)
		}
		imageURL = encoded
	}

	var parts []prompts.ContentPart
	if contentStr, ok := message.Content.(string); ok && contentStr != "" {
		parts = append(parts, prompts.ContentPart{
			Type: "text",
			Text: contentStr,
		})
	}
	parts = append(parts, prompts.ContentPart{
		Type: "image_url",
		ImageURL: &prompts.ImageURL{
			URL:    imageURL,
			Detail: "high",
		},
	})

	message.Content = parts
	return nil
}
