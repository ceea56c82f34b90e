// Package usage records per-call accounting. Writes are append-only and
// best-effort; a failed write never reaches the request that produced it.
package usage

import (
	"context"
	"time"
)

// Request kinds recorded on a usage log entry.
const (
	KindChat         = "chat"
	KindChatContinue = "chat_continue"
	KindTitle        = "title"
	KindEmbedding    = "embedding"
)

// Record is one usage log entry for a completed or failed model call.
type Record struct {
	ID             string        `bson:"_id"`
	TenantID       string        `bson:"tenant_id"`
	UserID         string        `bson:"user_id"`
	ConversationID string        `bson:"conversation_id"`
	ModelID        *int64        `bson:"model_id,omitempty"`
	RequestKind    string        `bson:"request_kind"`
	Duration       time.Duration `bson:"duration_ms"`
	FinishReason   string        `bson:"finish_reason"`
	Success        bool          `bson:"success"`
	ErrorText      string        `bson:"error_text"`
	InputTokens    int           `bson:"input_tokens"`
	OutputTokens   int           `bson:"output_tokens"`
	TotalTokens    int           `bson:"total_tokens"`
	Cost           *float64      `bson:"cost,omitempty"`
	CreatedAt      time.Time     `bson:"created_at"`
}

// Store persists usage records.
type Store interface {
	Insert(ctx context.Context, rec *Record) error
}
