package conversation

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisMemory(t *testing.T) *RedisMemoryStore {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisMemoryStore(client, 0)
}

func TestMemoryStores(t *testing.T) {
	stores := map[string]MemoryStore{
		"redis": newRedisMemory(t),
		"local": NewLocalMemoryStore(),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			got, err := store.Get(ctx, "conv-1")
			require.NoError(t, err)
			assert.Empty(t, got)

			require.NoError(t, store.Append(ctx, "conv-1",
				MemoryEntry{Role: "user", Content: "hello"},
				MemoryEntry{Role: "assistant", Content: "hi there"},
			))
			require.NoError(t, store.Append(ctx, "conv-1",
				MemoryEntry{Role: "user", Content: "more"},
			))

			got, err = store.Get(ctx, "conv-1")
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, MemoryEntry{Role: "user", Content: "hello"}, got[0])
			assert.Equal(t, MemoryEntry{Role: "assistant", Content: "hi there"}, got[1])
			assert.Equal(t, MemoryEntry{Role: "user", Content: "more"}, got[2])

			// Other conversations are unaffected.
			other, err := store.Get(ctx, "conv-2")
			require.NoError(t, err)
			assert.Empty(t, other)

			require.NoError(t, store.Clear(ctx, "conv-1"))
			got, err = store.Get(ctx, "conv-1")
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestLocalMemoryGetReturnsCopy(t *testing.T) {
	store := NewLocalMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "c", MemoryEntry{Role: "user", Content: "a"}))
	got, err := store.Get(ctx, "c")
	require.NoError(t, err)
	got[0].Content = "mutated"

	again, err := store.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "a", again[0].Content)
}
