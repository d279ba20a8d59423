package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/attrition-backend/internal/config"
	"github.com/yungbote/attrition-backend/internal/platform/logger"
)

// SummaryCache stores report aggregates keyed by filter. Every write to the
// employee table must call Invalidate.
//
// Get reports the cache generation it read under; a value computed after a miss
// must be stored with Set under that same generation, so an aggregate that
// raced with an Invalidate lands in a generation nobody reads.
type SummaryCache interface {
	Get(ctx context.Context, key string, dst any) (hit bool, gen int64, err error)
	Set(ctx context.Context, gen int64, key string, v any) error
	Invalidate(ctx context.Context) error
	Close() error
}

// NewSummaryCache connects to Redis, or returns a no-op cache when no address
// is configured.
func NewSummaryCache(log *logger.Logger, cfg config.RedisConfig) (SummaryCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		log.Info("redis not configured, summary cache disabled")
		return Noop{}, nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisSummaryCache(log, rdb, cfg.KeyPrefix, cfg.SummaryTTL.Duration), nil
}

type redisSummaryCache struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisSummaryCache(log *logger.Logger, rdb *goredis.Client, prefix string, ttl time.Duration) SummaryCache {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "attrition"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &redisSummaryCache{
		log:    log.With("service", "RedisSummaryCache"),
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Keys embed a generation number; Invalidate bumps it so stale entries are
// never read again and expire on their own.
func (c *redisSummaryCache) genKey() string { return c.prefix + ":summary:gen" }

func (c *redisSummaryCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, c.genKey()).Int64()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return 0, err
	}
	return gen, nil
}

func (c *redisSummaryCache) entryKey(gen int64, key string) string {
	return fmt.Sprintf("%s:summary:%d:%s", c.prefix, gen, key)
}

func (c *redisSummaryCache) Get(ctx context.Context, key string, dst any) (bool, int64, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return false, 0, err
	}
	k := c.entryKey(gen, key)
	raw, err := c.rdb.Get(ctx, k).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, gen, nil
	}
	if err != nil {
		return false, gen, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.log.Warn("dropping undecodable cache entry", "key", k, "error", err)
		_ = c.rdb.Del(ctx, k).Err()
		return false, gen, nil
	}
	return true, gen, nil
}

func (c *redisSummaryCache) Set(ctx context.Context, gen int64, key string, v any) error {
	k := c.entryKey(gen, key)
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, k, raw, c.ttl).Err()
}

func (c *redisSummaryCache) Invalidate(ctx context.Context) error {
	return c.rdb.Incr(ctx, c.genKey()).Err()
}

func (c *redisSummaryCache) Close() error {
	return c.rdb.Close()
}

// Noop never hits.
type Noop struct{}

func (Noop) Get(context.Context, string, any) (bool, int64, error) { return false, 0, nil }
func (Noop) Set(context.Context, int64, string, any) error         { return nil }
func (Noop) Invalidate(context.Context) error                      { return nil }
func (Noop) Close() error                                          { return nil }
