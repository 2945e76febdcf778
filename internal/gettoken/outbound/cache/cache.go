package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/gettoken/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	keyPrefix  = "gettoken:token_type:"
	defaultTTL = 5 * time.Minute
)

type tokenTypeLoader interface {
	GetTokenType(ctx context.Context, serial string) (string, error)
}

// Cache is a read-through redis cache of token types, used to enrich audit
// records without holding a retrieval session open.
type Cache struct {
	client *redis.Client
	loader tokenTypeLoader
	ttl    time.Duration
	ins    instrument.Instrumentation
}

func NewCache(client *redis.Client, loader tokenTypeLoader, ttl time.Duration, ins instrument.Instrumentation) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &Cache{client: client, loader: loader, ttl: ttl, ins: ins}
}

func (c *Cache) GetTokenType(ctx context.Context, serial string) (_ string, err error) {
	ctx, span := c.ins.Tracer("gettoken.outbound.cache").Start(ctx, "GetTokenType")
	defer span.End()

	key := keyPrefix + serial

	cached, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	case !errors.Is(err, redis.Nil):
		slog.WarnContext(ctx, "token type cache read failed", "serial", serial, "error", err)
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	tokenType, err := c.loader.GetTokenType(ctx, serial)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	if err := c.client.Set(ctx, key, tokenType, c.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "token type cache write failed", "serial", serial, "error", err)
	}

	return tokenType, nil
}
