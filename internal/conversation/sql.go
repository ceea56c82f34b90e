package conversation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

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

var conversationColumns = []string{
	"id", "tenant_id", "user_id", "model_id", "system_prompt",
	"title", "pinned", "status", "created_at", "updated_at",
}

func (s *SQLStore) Find(ctx context.Context, id string) (*Conversation, error) {
	q := s.sql.Select(conversationColumns...).From("conversations").Where(sq.Eq{"id": id})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build conversation query: %w", err)
	}

	var c Conversation
	var modelID sql.NullInt64
	var systemPrompt sql.NullString
	err = s.db.QueryRowContext(ctx, sqlStr, args...).Scan(
		&c.ID, &c.TenantID, &c.UserID, &modelID, &systemPrompt,
		&c.Title, &c.Pinned, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	if modelID.Valid {
		c.ModelID = &modelID.Int64
	}
	c.SystemPrompt = systemPrompt.String
	return &c, nil
}

func (s *SQLStore) Insert(ctx context.Context, c *Conversation) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = "active"
	}

	q := s.sql.Insert("conversations").
		Columns(conversationColumns...).
		Values(c.ID, c.TenantID, c.UserID, c.ModelID, nullString(c.SystemPrompt),
			c.Title, c.Pinned, c.Status, c.CreatedAt, c.UpdatedAt)
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build conversation insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

func (s *SQLStore) UpdateTitle(ctx context.Context, id, title string) error {
	return s.update(ctx, id, "title", title)
}

func (s *SQLStore) UpdatePin(ctx context.Context, id string, pinned bool) error {
	return s.update(ctx, id, "pinned", pinned)
}

func (s *SQLStore) update(ctx context.Context, id, column string, value any) error {
	q := s.sql.Update("conversations").
		Set(column, value).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build conversation update: %w", err)
	}
	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("update conversation %s: %w", column, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) FindTemplate(ctx context.Context, id int64) (*PromptTemplate, error) {
	q := s.sql.Select("id", "tenant_id", "name", "content", "open_delim", "close_delim", "created_at").
		From("prompt_templates").
		Where(sq.Eq{"id": id})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build template query: %w", err)
	}

	var t PromptTemplate
	err = s.db.QueryRowContext(ctx, sqlStr, args...).Scan(
		&t.ID, &t.TenantID, &t.Name, &t.Content, &t.OpenDelim, &t.CloseDelim, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find template: %w", err)
	}
	return &t, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
