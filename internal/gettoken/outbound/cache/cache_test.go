package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/gettoken/internal/pkg/goerror"
	"github.com/shandysiswandi/gettoken/internal/pkg/instrument"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

type countingLoader struct {
	types map[string]string
	calls int
}

func (l *countingLoader) GetTokenType(_ context.Context, serial string) (string, error) {
	l.calls++
	t, ok := l.types[serial]
	if !ok {
		return "", goerror.ErrNotFound
	}
	return t, nil
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	uri, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)

	opt, err := redis.ParseURL(uri)
	require.NoError(t, err)

	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestGetTokenTypeReadThrough(t *testing.T) {
	client := newTestRedis(t)
	loader := &countingLoader{types: map[string]string{"LSAE00012345": "hmac"}}
	c := NewCache(client, loader, time.Minute, instrument.NewNoop())
	ctx := context.Background()

	first, err := c.GetTokenType(ctx, "LSAE00012345")
	require.NoError(t, err)
	second, err := c.GetTokenType(ctx, "LSAE00012345")
	require.NoError(t, err)

	assert.Equal(t, "hmac", first)
	assert.Equal(t, "hmac", second)
	assert.Equal(t, 1, loader.calls)

	ttl, err := client.TTL(ctx, keyPrefix+"LSAE00012345").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestGetTokenTypeMissing(t *testing.T) {
	client := newTestRedis(t)
	loader := &countingLoader{types: map[string]string{}}
	c := NewCache(client, loader, 0, instrument.NewNoop())

	_, err := c.GetTokenType(context.Background(), "MISSING")

	assert.ErrorIs(t, err, goerror.ErrNotFound)
	exists, err := client.Exists(context.Background(), keyPrefix+"MISSING").Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

func TestGetTokenTypeRedisDown(t *testing.T) {
	t.Parallel()

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	loader := &countingLoader{types: map[string]string{"TOK1": "totp"}}
	c := NewCache(client, loader, time.Minute, instrument.NewNoop())

	got, err := c.GetTokenType(context.Background(), "TOK1")

	require.NoError(t, err)
	assert.Equal(t, "totp", got)
	assert.Equal(t, 1, loader.calls)
}
