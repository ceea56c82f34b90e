package conversation

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelmux/internal/storage"
)

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := storage.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "conv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLStore(db)
}

func TestConversationRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	modelID := int64(7)
	in := &Conversation{
		ID:           "conv-1",
		TenantID:     "tenant-1",
		UserID:       "user-1",
		ModelID:      &modelID,
		SystemPrompt: "You are terse.",
		Title:        "placeholder",
	}
	require.NoError(t, store.Insert(ctx, in))

	got, err := store.Find(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", got.TenantID)
	assert.Equal(t, "user-1", got.UserID)
	require.NotNil(t, got.ModelID)
	assert.Equal(t, int64(7), *got.ModelID)
	assert.Equal(t, "You are terse.", got.SystemPrompt)
	assert.Equal(t, "placeholder", got.Title)
	assert.Equal(t, "active", got.Status)
	assert.False(t, got.Pinned)
}

func TestConversationNilModelAndPrompt(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &Conversation{
		ID: "conv-2", TenantID: "tenant-1", UserID: "user-1", Title: "t",
	}))

	got, err := store.Find(ctx, "conv-2")
	require.NoError(t, err)
	assert.Nil(t, got.ModelID)
	assert.Empty(t, got.SystemPrompt)
}

func TestConversationUpdateTitle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &Conversation{
		ID: "conv-3", TenantID: "tenant-1", UserID: "user-1", Title: "old",
	}))
	require.NoError(t, store.UpdateTitle(ctx, "conv-3", "new title"))

	got, err := store.Find(ctx, "conv-3")
	require.NoError(t, err)
	assert.Equal(t, "new title", got.Title)

	assert.ErrorIs(t, store.UpdateTitle(ctx, "missing", "x"), ErrNotFound)
}

func TestConversationUpdatePin(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &Conversation{
		ID: "conv-4", TenantID: "tenant-1", UserID: "user-1", Title: "t",
	}))
	require.NoError(t, store.UpdatePin(ctx, "conv-4", true))

	got, err := store.Find(ctx, "conv-4")
	require.NoError(t, err)
	assert.True(t, got.Pinned)
}

func TestConversationFindMissing(t *testing.T) {
	store := openTestStore(t)
	_, err := store.Find(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindTemplate(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.db.ExecContext(ctx,
		`INSERT INTO prompt_templates (tenant_id, name, content, open_delim, close_delim)
		 VALUES ('tenant-1', 'support', 'You are {{role}}.', '{{', '}}')`)
	require.NoError(t, err)

	got, err := store.FindTemplate(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "support", got.Name)
	assert.Equal(t, "You are {{role}}.", got.Content)
	assert.Equal(t, "{{", got.OpenDelim)
	assert.Equal(t, "}}", got.CloseDelim)

	_, err = store.FindTemplate(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}
