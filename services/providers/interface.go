package providers

import (
	"context"
	"errors"
	"time"
)

// Credential is the per-call authentication for an upstream model API.
// A zero Credential means the provider's configured key is used.
type Credential struct {
	APIKey string
}

// IsZero reports whether the credential carries no override
func (c Credential) IsZero() bool {
	return c.APIKey == ""
}

// Resolve returns the key to use for a call: the credential's key when set, fallback otherwise
func (c Credential) Resolve(fallback string) string {
	if c.APIKey != "" {
		return c.APIKey
	}
	return fallback
}

// Provider represents a hosted LLM API used for completions and embeddings
type Provider interface {
	// Name returns the provider name (e.g., "openai")
	Name() string

	// IsAvailable checks if the provider is currently reachable
	IsAvailable(ctx context.Context) bool
}

// StreamingProvider opens token streams for chat completions
type StreamingProvider interface {
	Provider

	// ChatCompletionStream starts a streaming chat completion. The returned
	// stream must be closed by the caller.
	ChatCompletionStream(ctx context.Context, req *ChatRequest) (ChatStream, error)
}

// Embedder turns text into vectors
type Embedder interface {
	CreateEmbedding(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error)
}

// ChatStream yields completion tokens in order. Recv returns io.EOF once the
// upstream signals completion.
type ChatStream interface {
	Recv() (string, error)
	Close() error
}

// ChatRequest represents a chat completion request
type ChatRequest struct {
	// Model identifier (e.g., "gpt-3.5-turbo")
	Model string `json:"model"`

	// Messages in the conversation
	Messages []Message `json:"messages"`

	// MaxTokens limits the response length
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness (0.0 to 2.0). Nil leaves the provider default.
	Temperature *float64 `json:"temperature,omitempty"`

	// User identifier for abuse monitoring
	User string `json:"user,omitempty"`

	// Credential overrides the configured key for this call only
	Credential Credential `json:"-"`
}

// Message represents a single message in a conversation
type Message struct {
	// Role can be "system", "user", or "assistant"
	Role string `json:"role"`

	// Content is the message text
	Content string `json:"content"`
}

// EmbeddingRequest asks for the embedding of a single input
type EmbeddingRequest struct {
	Model      string     `json:"model"`
	Input      string     `json:"input"`
	Dimensions int        `json:"dimensions,omitempty"`
	Credential Credential `json:"-"`
}

// EmbeddingResponse carries the vector for an EmbeddingRequest
type EmbeddingResponse struct {
	Model     string    `json:"model"`
	Embedding []float32 `json:"embedding"`
	Usage     Usage     `json:"usage"`
}

// Usage represents token usage statistics
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ProviderConfig holds common configuration for providers
type ProviderConfig struct {
	// APIKey for authentication
	APIKey string

	// BaseURL for the API (optional override)
	BaseURL string

	// Timeout for non-streaming requests and for receiving response headers
	Timeout time.Duration

	// Additional headers
	Headers map[string]string

	// OrgID is sent as the OpenAI-Organization header when set
	OrgID string
}

// DefaultProviderConfig returns a sensible default configuration
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Timeout: 30 * time.Second,
		Headers: make(map[string]string),
	}
}

// ProviderError represents an error from a provider
type ProviderError struct {
	// Provider that generated the error
	Provider string

	// Code is the error code
	Code string

	// Message is the error message
	Message string

	// StatusCode is the HTTP status code (if applicable)
	StatusCode int

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error
func NewProviderError(provider, code, message string, statusCode int, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// StatusCode extracts the upstream HTTP status from a provider error, or 0
func StatusCode(err error) int {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.StatusCode
	}
	return 0
}
