//go:build integration

package containers

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"warden/internal/platform/config"
	platformredis "warden/internal/platform/redis"
)

// RedisContainer holds a throwaway redis and a client dialed through the
// server's own connector, so integration tests exercise the same path as
// production wiring.
type RedisContainer struct {
	URL    string
	Client *redis.Client
}

// NewRedisContainer starts redis and connects to it. The container and the
// client are torn down via t.Cleanup when the test finishes.
func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	url, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get redis connection string: %v", err)
	}

	client, err := platformredis.Connect(ctx, config.RedisConfig{
		URL:         url,
		PoolSize:    4,
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		t.Fatalf("failed to connect to redis container: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})

	return &RedisContainer{URL: url, Client: client}
}

// FlushAll removes all keys. Use between tests for isolation.
func (r *RedisContainer) FlushAll(ctx context.Context) error {
	return r.Client.FlushAll(ctx).Err()
}
