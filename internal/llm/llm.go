package llm

import (
	"context"
	"strings"
)

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat generates assistant responses from a conversation.
type Chat interface {
	// Generate sends a conversation and returns the assistant's reply.
	Generate(ctx context.Context, messages []Message) (string, error)
	// Model returns the configured model name.
	Model() string
}

// IsOpenAIModel reports whether a model name routes to the OpenAI API rather
// than a local Ollama instance.
func IsOpenAIModel(model string) bool {
	return strings.HasPrefix(model, "gpt-")
}
