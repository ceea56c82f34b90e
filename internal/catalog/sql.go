package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"modelmux/internal/core"
	"modelmux/internal/storage"
)

// SQLStore implements Store against the shared database handle.
type SQLStore struct {
	db  *sql.DB
	sql sq.StatementBuilderType
}

// NewSQLStore creates a catalog store over the shared database.
func NewSQLStore(db *storage.DB) *SQLStore {
	return &SQLStore{db: db.Handle(), sql: db.Builder()}
}

func (s *SQLStore) FindProvider(ctx context.Context, id int64) (*Provider, error) {
	q := s.sql.Select("id", "code", "protocol", "base_url", "active", "created_at").
		From("providers").
		Where(sq.Eq{"id": id})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build provider query: %w", err)
	}

	var p Provider
	err = s.db.QueryRowContext(ctx, sqlStr, args...).Scan(
		&p.ID, &p.Code, &p.Protocol, &p.BaseURL, &p.Active, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find provider: %w", err)
	}
	return &p, nil
}

func (s *SQLStore) FindModel(ctx context.Context, id int64) (*Model, error) {
	q := s.sql.Select(modelColumns...).From("models").Where(sq.Eq{"id": id})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build model query: %w", err)
	}
	m, err := scanModel(s.db.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find model: %w", err)
	}
	return m, nil
}

func (s *SQLStore) FindProvision(ctx context.Context, id int64) (*Provision, error) {
	q := s.sql.Select(provisionColumns...).From("provisions").Where(sq.Eq{"id": id})
	return s.queryProvision(ctx, q, "find provision")
}

func (s *SQLStore) FindActiveProvision(ctx context.Context, tenantID string, modelID int64) (*Provision, error) {
	q := s.sql.Select(provisionColumns...).
		From("provisions").
		Where(sq.Eq{"tenant_id": tenantID, "model_id": modelID, "active": true})
	return s.queryProvision(ctx, q, "find active provision")
}

func (s *SQLStore) FindDefaultProvision(ctx context.Context, tenantID string, capability core.Capability) (*Provision, error) {
	cols := make([]string, 0, len(provisionColumns))
	for _, c := range provisionColumns {
		cols = append(cols, "p."+c)
	}
	q := s.sql.Select(cols...).
		From("provisions p").
		Join("models m ON m.id = p.model_id").
		Where(sq.Eq{"p.tenant_id": tenantID, "p.is_default": true, "p.active": true, "m.capability": string(capability)}).
		OrderBy("p.id").
		Limit(1)
	return s.queryProvision(ctx, q, "find default provision")
}

var modelColumns = []string{
	"id", "provider_id", "code", "capability",
	"supports_vision", "supports_tool_call", "supports_structured_output",
	"supports_streaming", "supports_reasoning",
	"context_window", "max_output_tokens",
	"input_per_mtok", "output_per_mtok",
	"active", "created_at",
}

var provisionColumns = []string{
	"id", "tenant_id", "model_id", "endpoint_override", "enc_credential",
	"is_default", "active", "created_at",
}

func scanModel(row *sql.Row) (*Model, error) {
	var m Model
	var capability string
	var inputPrice, outputPrice sql.NullFloat64
	err := row.Scan(
		&m.ID, &m.ProviderID, &m.Code, &capability,
		&m.SupportsVision, &m.SupportsToolCall, &m.SupportsStructuredOutput,
		&m.SupportsStreaming, &m.SupportsReasoning,
		&m.ContextWindow, &m.MaxOutputTokens,
		&inputPrice, &outputPrice,
		&m.Active, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Capability = core.Capability(capability)
	if inputPrice.Valid {
		m.InputPerMtok = &inputPrice.Float64
	}
	if outputPrice.Valid {
		m.OutputPerMtok = &outputPrice.Float64
	}
	return &m, nil
}

func (s *SQLStore) queryProvision(ctx context.Context, q sq.SelectBuilder, op string) (*Provision, error) {
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", op, err)
	}

	var p Provision
	err = s.db.QueryRowContext(ctx, sqlStr, args...).Scan(
		&p.ID, &p.TenantID, &p.ModelID, &p.EndpointOverride, &p.EncCredential,
		&p.IsDefault, &p.Active, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &p, nil
}
