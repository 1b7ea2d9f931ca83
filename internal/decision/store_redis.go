package decision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"civic/pkg/platform/sentinel"
)

const redisKeyPrefix = "decision:"

// RedisStore is a Redis-backed decision store. Records are stored as JSON
// values under a per-id key; SET gives the last-write-wins upsert the store
// contract requires.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal decision record: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+rec.ID, raw, 0).Err(); err != nil {
		return fmt.Errorf("put decision record: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Record, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get decision record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("unmarshal decision record: %w", err)
	}
	return rec, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete decision record: %w", err)
	}
	return nil
}
