package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ChatClient is the part of the go-openai client used here
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ClientFactory builds a chat client for an API key. Keys arrive per call so
// one process can serve several credentials.
type ClientFactory func(apiKey string) ChatClient

// NewClientFactory returns a factory for the OpenAI API or any compatible
// endpoint when baseURL is set
func NewClientFactory(baseURL string) ClientFactory {
	return func(apiKey string) ChatClient {
		cfg := openai.DefaultConfig(apiKey)
		if baseURL != "" {
			cfg.BaseURL = strings.TrimRight(baseURL, "/")
		}
		return openai.NewClientWithConfig(cfg)
	}
}

// firstContent returns the message text of the first choice
func firstContent(resp openai.ChatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from model")
	}
	return resp.Choices[0].Message.Content, nil
}

// decodeJSON unmarshals content, falling back to the outermost {...} block
// when the model wrapped the object in prose or a code fence
func decodeJSON(content string, v interface{}) error {
	err := json.Unmarshal([]byte(content), v)
	if err == nil {
		return nil
	}
	if block := extractJSON(content); block != "" {
		if err2 := json.Unmarshal([]byte(block), v); err2 == nil {
			return nil
		}
	}
	return fmt.Errorf("failed to parse response: %w", err)
}

func extractJSON(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return ""
	}
	return content[start : end+1]
}
