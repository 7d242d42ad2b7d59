package llm

import "time"

// Message represents a single message in a chat conversation history.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string `json:"role"`

	// Content is the text content of the message.
	Content string `json:"content"`
}

// Usage holds token accounting information returned by the LLM backend.
// Counts are in the model's native token unit and may differ between
// backends for the same textual content.
type Usage struct {
	// PromptTokens is the number of tokens consumed by the input messages
	// and system prompt.
	PromptTokens int

	// CompletionTokens is the number of tokens generated in the response.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens. Some backends return
	// it directly rather than computing it from the parts.
	TotalTokens int
}

// Model describes a model available from the backing runtime.
type Model struct {
	// Name is the runtime's model identifier (e.g., "llama3.2:latest").
	Name string `json:"name"`

	// Size is the on-disk model size in bytes, when the runtime reports it.
	Size int64 `json:"size,omitempty"`

	// ModifiedAt is when the model was last updated, when reported.
	ModifiedAt time.Time `json:"modified_at,omitzero"`
}
