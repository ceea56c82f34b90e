package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"modelmux/internal/core"
	"modelmux/internal/storage"
)

func openTestStore(t *testing.T) (*SQLStore, *storage.DB) {
	t.Helper()
	db, err := storage.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLStore(db), db
}

func seedCatalog(t *testing.T, db *storage.DB) (providerID, modelID, provisionID int64) {
	t.Helper()
	ctx := context.Background()
	h := db.Handle()

	res, err := h.ExecContext(ctx,
		`INSERT INTO providers (code, protocol, base_url, active) VALUES (?, ?, ?, 1)`,
		"deepseek", "openai-compatible", "https://api.deepseek.com")
	require.NoError(t, err)
	providerID, err = res.LastInsertId()
	require.NoError(t, err)

	res, err = h.ExecContext(ctx,
		`INSERT INTO models (provider_id, code, capability, supports_reasoning, input_per_mtok, output_per_mtok, active)
		 VALUES (?, ?, 'chat', 1, 2.0, 6.0, 1)`,
		providerID, "deepseek-chat")
	require.NoError(t, err)
	modelID, err = res.LastInsertId()
	require.NoError(t, err)

	res, err = h.ExecContext(ctx,
		`INSERT INTO provisions (tenant_id, model_id, endpoint_override, enc_credential, is_default, active)
		 VALUES (?, ?, '', 'enc', 1, 1)`,
		"tenant-1", modelID)
	require.NoError(t, err)
	provisionID, err = res.LastInsertId()
	require.NoError(t, err)
	return providerID, modelID, provisionID
}

func TestSQLStoreLookups(t *testing.T) {
	store, db := openTestStore(t)
	providerID, modelID, provisionID := seedCatalog(t, db)
	ctx := context.Background()

	p, err := store.FindProvider(ctx, providerID)
	require.NoError(t, err)
	require.Equal(t, "deepseek", p.Code)
	require.Equal(t, "openai-compatible", p.Protocol)
	require.True(t, p.Active)

	m, err := store.FindModel(ctx, modelID)
	require.NoError(t, err)
	require.Equal(t, "deepseek-chat", m.Code)
	require.Equal(t, core.CapabilityChat, m.Capability)
	require.True(t, m.SupportsReasoning)
	require.NotNil(t, m.InputPerMtok)
	require.Equal(t, 2.0, *m.InputPerMtok)

	pv, err := store.FindProvision(ctx, provisionID)
	require.NoError(t, err)
	require.Equal(t, "tenant-1", pv.TenantID)
	require.Equal(t, modelID, pv.ModelID)
}

func TestSQLStoreActiveAndDefaultProvision(t *testing.T) {
	store, db := openTestStore(t)
	_, modelID, provisionID := seedCatalog(t, db)
	ctx := context.Background()

	pv, err := store.FindActiveProvision(ctx, "tenant-1", modelID)
	require.NoError(t, err)
	require.Equal(t, provisionID, pv.ID)

	_, err = store.FindActiveProvision(ctx, "tenant-2", modelID)
	require.ErrorIs(t, err, ErrNotFound)

	def, err := store.FindDefaultProvision(ctx, "tenant-1", core.CapabilityChat)
	require.NoError(t, err)
	require.Equal(t, provisionID, def.ID)

	_, err = store.FindDefaultProvision(ctx, "tenant-1", core.CapabilityEmbedding)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStoreNotFound(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	_, err := store.FindProvider(ctx, 999)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = store.FindModel(ctx, 999)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = store.FindProvision(ctx, 999)
	require.ErrorIs(t, err, ErrNotFound)
}
