package directory

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const listCachePrefix = "directory:v1:list:"

// Cached wraps a Directory and keeps the colleges and skills lists in Redis.
// Cache failures fall back to the wrapped directory.
type Cached struct {
	Directory
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCached decorates dir with a Redis list cache holding entries for ttl.
func NewCached(dir Directory, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *Cached {
	return &Cached{Directory: dir, cache: cache, ttl: ttl, logger: logger}
}

func (c *Cached) Colleges(ctx context.Context) ([]string, error) {
	return c.list(ctx, FieldCollege, c.Directory.Colleges)
}

func (c *Cached) Skills(ctx context.Context) ([]string, error) {
	return c.list(ctx, FieldSkills, c.Directory.Skills)
}

// Insert writes through and drops the cached lists.
func (c *Cached) Insert(ctx context.Context, fields Fields) (Member, error) {
	m, err := c.Directory.Insert(ctx, fields)
	if err == nil {
		c.invalidate(ctx)
	}
	return m, err
}

// Update writes through and drops the cached lists.
func (c *Cached) Update(ctx context.Context, id string, fields Fields) (Member, error) {
	m, err := c.Directory.Update(ctx, id, fields)
	if err == nil {
		c.invalidate(ctx)
	}
	return m, err
}

func (c *Cached) list(ctx context.Context, field string, load func(context.Context) ([]string, error)) ([]string, error) {
	key := listCachePrefix + field
	cached, err := c.cache.Get(ctx, key).Bytes()
	if err == nil {
		var values []string
		if err := json.Unmarshal(cached, &values); err == nil {
			return values, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("list cache lookup failed", slog.String("field", field), slog.Any("error", err))
	}

	values, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(values); err == nil {
		if err := c.cache.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.Warn("list cache store failed", slog.String("field", field), slog.Any("error", err))
		}
	}
	return values, nil
}

func (c *Cached) invalidate(ctx context.Context) {
	if err := c.cache.Del(ctx, listCachePrefix+FieldCollege, listCachePrefix+FieldSkills).Err(); err != nil {
		c.logger.Warn("list cache invalidation failed", slog.Any("error", err))
	}
}
