package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"warden/pkg/platform/sentinel"
)

const redisKeyPrefix = "doc:"

// Redis is a redis-backed Store. Documents are stored as JSON strings under
// doc:<collection>:<id>. Merge and update perform read-modify-write; the
// single-writer session service serializes document mutations, so no
// cross-process transaction is needed here.
type Redis struct {
	client *redis.Client
}

// NewRedis constructs a redis-backed document store.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func redisKey(collection, id string) string {
	return fmt.Sprintf("%s%s:%s", redisKeyPrefix, collection, id)
}

func (s *Redis) Get(ctx context.Context, collection, id string) (Document, error) {
	raw, err := s.client.Get(ctx, redisKey(collection, id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

func (s *Redis) Set(ctx context.Context, collection, id string, doc Document, merge bool) error {
	if merge {
		existing, err := s.Get(ctx, collection, id)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			// fall through to plain write
		case err != nil:
			return err
		default:
			doc = merged(existing, doc)
		}
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(collection, id), raw, 0).Err(); err != nil {
		return fmt.Errorf("set document: %w", err)
	}
	return nil
}

func (s *Redis) Update(ctx context.Context, collection, id string, partial Document) error {
	existing, err := s.Get(ctx, collection, id)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(merged(existing, partial))
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(collection, id), raw, 0).Err(); err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}
