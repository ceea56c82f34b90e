// Package conversation holds chat session records, per-conversation message
// memory, and stored prompt templates.
package conversation

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a row does not exist.
var ErrNotFound = errors.New("conversation: not found")

// Conversation is one tenant+user chat session. ModelID nil means the tenant
// default model resolves each turn.
type Conversation struct {
	ID           string
	TenantID     string
	UserID       string
	ModelID      *int64
	SystemPrompt string
	Title        string
	Pinned       bool
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PromptTemplate is a stored system prompt with its own variable delimiters,
// e.g. content "You are {{role}}" with delimiters "{{" and "}}".
type PromptTemplate struct {
	ID         int64
	TenantID   string
	Name       string
	Content    string
	OpenDelim  string
	CloseDelim string
	CreatedAt  time.Time
}

// Store persists conversations and prompt templates.
type Store interface {
	Find(ctx context.Context, id string) (*Conversation, error)
	Insert(ctx context.Context, c *Conversation) error
	UpdateTitle(ctx context.Context, id, title string) error
	UpdatePin(ctx context.Context, id string, pinned bool) error

	FindTemplate(ctx context.Context, id int64) (*PromptTemplate, error)
}

// MemoryEntry is one stored turn of conversation history.
type MemoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MemoryStore holds the ordered message history per conversation.
type MemoryStore interface {
	Get(ctx context.Context, conversationID string) ([]MemoryEntry, error)
	Append(ctx context.Context, conversationID string, entries ...MemoryEntry) error
	Clear(ctx context.Context, conversationID string) error
}
