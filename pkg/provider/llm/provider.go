// Package llm defines the Provider interface for chat model backends.
//
// A provider wraps a local or remote model runtime (e.g., an Ollama instance
// or a hosted API) and exposes a uniform completion interface so the chat
// proxy never couples to a specific SDK.
//
// Implementations must be safe for concurrent use.
package llm

import "context"

// CompletionRequest carries everything the model needs to produce a response.
// Callers should treat a zero-value request as invalid; at minimum Messages
// must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation history. The last message is
	// typically from the "user" role and drives the response.
	Messages []Message

	// Model overrides the provider's default model for this request.
	// Empty means use the default.
	Model string

	// Temperature controls output randomness in the range [0.0, 2.0]. Lower
	// values produce more deterministic outputs. A value of 0.0 typically
	// requests greedy decoding.
	Temperature float64

	// MaxTokens caps the number of completion tokens the model may generate.
	// Zero means use the provider default.
	MaxTokens int

	// SystemPrompt is an optional high-priority instruction injected before
	// the conversation history. Implementors without a dedicated system
	// field should prepend it as a "system"-role message.
	SystemPrompt string
}

// CompletionResponse is returned by Complete.
type CompletionResponse struct {
	// Content is the full text of the assistant's reply.
	Content string

	// Model is the model that actually produced the response.
	Model string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any chat model backend.
//
// Implementations must be safe for concurrent use from multiple goroutines
// and must propagate context cancellation promptly.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	// Returns an error if the request fails or if ctx is cancelled before
	// the completion arrives.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// ModelLister is implemented by providers whose runtime can enumerate its
// installed models. Not every backend supports listing; callers should check
// for this interface separately from Provider.
type ModelLister interface {
	// ListModels returns the models currently available from the runtime.
	ListModels(ctx context.Context) ([]Model, error)
}
