package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const memoryKeyPrefix = "chat:memory:"

// RedisMemoryStore keeps per-conversation history in a Redis list, one JSON
// entry per message, oldest first.
type RedisMemoryStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisMemoryStore wraps an existing client. A zero ttl means entries never
// expire.
func NewRedisMemoryStore(client *redis.Client, ttl time.Duration) *RedisMemoryStore {
	return &RedisMemoryStore{client: client, ttl: ttl}
}

func memoryKey(conversationID string) string {
	return memoryKeyPrefix + conversationID
}

func (s *RedisMemoryStore) Get(ctx context.Context, conversationID string) ([]MemoryEntry, error) {
	raw, err := s.client.LRange(ctx, memoryKey(conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load memory %s: %w", conversationID, err)
	}
	entries := make([]MemoryEntry, 0, len(raw))
	for _, item := range raw {
		var e MemoryEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("decode memory entry %s: %w", conversationID, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *RedisMemoryStore) Append(ctx context.Context, conversationID string, entries ...MemoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	values := make([]any, 0, len(entries))
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode memory entry: %w", err)
		}
		values = append(values, data)
	}
	key := memoryKey(conversationID)
	if err := s.client.RPush(ctx, key, values...).Err(); err != nil {
		return fmt.Errorf("append memory %s: %w", conversationID, err)
	}
	if s.ttl > 0 {
		if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
			return fmt.Errorf("touch memory ttl %s: %w", conversationID, err)
		}
	}
	return nil
}

func (s *RedisMemoryStore) Clear(ctx context.Context, conversationID string) error {
	if err := s.client.Del(ctx, memoryKey(conversationID)).Err(); err != nil {
		return fmt.Errorf("clear memory %s: %w", conversationID, err)
	}
	return nil
}
