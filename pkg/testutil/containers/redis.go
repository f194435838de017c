//go:build integration

package containers

import (
	"context"
	"testing"

	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"guardian/internal/platform/config"
)

// Redis is a throwaway Redis server for store tests.
type Redis struct {
	URL string
}

// NewRedisContainer starts redis:7-alpine and terminates it when the test ends.
func NewRedisContainer(t *testing.T) *Redis {
	t.Helper()
	ctx := context.Background()

	c, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	url, err := c.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("redis connection string: %v", err)
	}
	return &Redis{URL: url}
}

// Config returns client settings pointing at the container.
func (r *Redis) Config() config.Redis {
	return config.Redis{URL: r.URL, PoolSize: 4}
}
