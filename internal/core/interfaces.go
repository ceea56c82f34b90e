package core

import "context"

// ChatStream is a live token stream from a vendor. Recv returns the next
// decoded frame, io.EOF when the upstream signals completion, or any other
// error on a mid-stream failure. Close releases the underlying connection and
// is safe to call more than once.
type ChatStream interface {
	Recv() (*StreamFrame, error)
	Close() error
}

// ChatClient is a stateless, concurrency-safe adapter bound to one vendor's
// chat protocol. Instances hold configuration only and are owned by the
// client cache.
type ChatClient interface {
	// Chat executes a blocking, non-streaming chat completion.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// StreamChat starts a streaming chat completion. The caller must drain
	// or close the returned stream.
	StreamChat(ctx context.Context, req *ChatRequest) (ChatStream, error)
}

// EmbeddingClient is a stateless adapter bound to one vendor's embeddings
// protocol.
type EmbeddingClient interface {
	Embed(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error)
}
