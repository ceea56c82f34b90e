package usage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"modelmux/internal/storage"
)

// SQLStore implements Store against the shared database handle.
type SQLStore struct {
	db  *sql.DB
	sql sq.StatementBuilderType
}

func NewSQLStore(db *storage.DB) *SQLStore {
	return &SQLStore{db: db.Handle(), sql: db.Builder()}
}

func (s *SQLStore) Insert(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	q := s.sql.Insert("usage_logs").
		Columns("id", "tenant_id", "user_id", "conversation_id", "model_id",
			"request_kind", "duration_ms", "finish_reason", "success", "error_text",
			"input_tokens", "output_tokens", "total_tokens", "cost", "created_at").
		Values(rec.ID, rec.TenantID, rec.UserID, rec.ConversationID, rec.ModelID,
			rec.RequestKind, rec.Duration.Milliseconds(), rec.FinishReason, rec.Success, rec.ErrorText,
			rec.InputTokens, rec.OutputTokens, rec.TotalTokens, rec.Cost, rec.CreatedAt)
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build usage insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("insert usage log: %w", err)
	}
	return nil
}
