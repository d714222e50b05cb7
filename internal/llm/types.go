// Package llm defines the LLM Provider abstraction the orchestrator talks
// to, and the concrete HTTP clients that implement it against an
// Ollama-compatible backend.
package llm

import "context"

// Role identifies the speaker of a ChatMessage.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one turn in a chat conversation.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ModelConfig names a model and the sampling parameters to call it with.
// Temperature and MaxTokens are pointers because an absent value and an
// explicit zero (e.g. a deterministic verifier at temperature 0.0) are both
// meaningful and distinct.
type ModelConfig struct {
	Name        string   `yaml:"name" json:"name"`
	Provider    string   `yaml:"provider,omitempty" json:"provider,omitempty"`
	Temperature *float32 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	MaxTokens   *int     `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
}

// ChatRequest is the normalized request the Provider sends to a backend.
type ChatRequest struct {
	Model    ModelConfig
	Messages []ChatMessage
	Stream   bool
}

// ChatResponse is the normalized response a Provider returns.
type ChatResponse struct {
	Content string
	Model   string
}

// Provider is the abstraction the rest of the orchestrator depends on. It
// is implemented once against the real Ollama-compatible backend
// (BackendProvider) and can be faked in tests.
type Provider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// EmbeddingProvider computes an embedding vector for a piece of text
// against a named embeddings model.
type EmbeddingProvider interface {
	Embed(ctx context.Context, model string, text string) ([]float32, error)
}
