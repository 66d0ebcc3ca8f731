// Package llm defines the text-completion capability used to polish report
// prose. Providers are interchangeable behind Provider.
package llm

import (
	"context"
	"strings"
)

// Role constants for Message.Role.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// StopReason describes why the model stopped generating.
const (
	StopReasonEndTurn   = "end_turn"
	StopReasonMaxTokens = "max_tokens"
)

// Message is a single turn in the prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the input to a provider's Complete() call.
type CompletionRequest struct {
	Messages     []Message
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
	Model        string // override provider default if set
}

// CompletionResponse is returned by Complete().
type CompletionResponse struct {
	Text         string
	StopReason   string
	InputTokens  int
	OutputTokens int
}

// Provider is the core abstraction for language model backends.
type Provider interface {
	// Complete sends a completion request and waits for the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// ModelID returns the current model identifier string.
	ModelID() string
}

// TextCompleter adapts a Provider to a single prompt in, text out call.
type TextCompleter struct {
	provider    Provider
	system      string
	maxTokens   int
	temperature float64
}

// NewTextCompleter wraps p. system may be empty.
func NewTextCompleter(p Provider, system string, maxTokens int) *TextCompleter {
	return &TextCompleter{provider: p, system: system, maxTokens: maxTokens, temperature: 0.3}
}

// Complete sends prompt as a single user turn and returns the trimmed text.
// A response cut off at the token limit is returned as is.
func (c *TextCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.provider.Complete(ctx, CompletionRequest{
		Messages:     []Message{{Role: RoleUser, Content: prompt}},
		SystemPrompt: c.system,
		MaxTokens:    c.maxTokens,
		Temperature:  c.temperature,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}
