// Package core defines the shared domain types and error taxonomy for the
// multi-tenant model gateway.
package core

// Capability identifies one kind of model function. Each capability owns its
// own adapter factory and client cache.
type Capability string

const (
	CapabilityChat              Capability = "chat"
	CapabilityEmbedding         Capability = "embedding"
	CapabilitySpeechSynthesis   Capability = "speech-synthesis"
	CapabilitySpeechRecognition Capability = "speech-recognition"
	CapabilityModeration        Capability = "moderation"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`

	// Prefix marks an assistant message as a generation prefix for vendors
	// that support continue-from-prefix mode (DeepSeek beta API).
	Prefix bool `json:"prefix,omitempty"`
}

// ChatRequest is the vendor-neutral chat completion request passed to
// protocol adapters.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

// WithStreaming returns a shallow copy of the request with Stream set to true,
// leaving the caller's request untouched.
func (r *ChatRequest) WithStreaming() *ChatRequest {
	cp := *r
	cp.Stream = true
	return &cp
}

// Usage holds normalized token counts for one call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// ChatResponse is a complete, non-streaming chat result.
type ChatResponse struct {
	ID           string `json:"id"`
	Model        string `json:"model"`
	Content      string `json:"content"`
	Reasoning    string `json:"reasoning,omitempty"`
	FinishReason string `json:"finish_reason"`
	Usage        *Usage `json:"usage,omitempty"`
}

// StreamFrame is one decoded upstream frame of a streaming chat call.
// A frame may carry any combination of reasoning trace, answer text, a
// finish reason, and usage metadata; later frames override earlier metadata.
type StreamFrame struct {
	Reasoning    string
	Content      string
	FinishReason string
	Usage        *Usage
}

// EmbeddingRequest is the vendor-neutral embeddings request.
type EmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// EmbeddingResponse holds the embedding vectors for one request.
type EmbeddingResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
	Usage      *Usage      `json:"usage,omitempty"`
}
