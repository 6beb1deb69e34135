package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/paylume/productsync/internal/metrics"
)

// keyPrefix namespaces sync-layer entries so Clear cannot touch
// unrelated keys on a shared Redis.
const keyPrefix = "productsync:"

// Redis is the session-persisted Store variant: the dashboard survives a
// process restart without re-showing loading skeletons. Entries carry no
// TTL; they live until Clear runs at the session boundary.
type Redis struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewRedis connects and pings the Redis used as session cache.
func NewRedis(addr string, db int, password string, logger *zap.Logger) (*Redis, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		DB:       db,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Redis{rdb: rdb, logger: logger}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	data, err := r.rdb.Get(ctx, keyPrefix+key).Bytes()
	hit := err == nil
	metrics.IncCache(resourceOf(key), hit)
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("cache.redis.get_failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return data, true
}

func (r *Redis) Set(ctx context.Context, key string, value json.RawMessage) {
	if err := r.rdb.Set(ctx, keyPrefix+key, []byte(value), 0).Err(); err != nil {
		r.logger.Warn("cache.redis.set_failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *Redis) Delete(ctx context.Context, key string) {
	if err := r.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		r.logger.Warn("cache.redis.del_failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *Redis) Clear(ctx context.Context) {
	iter := r.rdb.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		r.logger.Warn("cache.redis.scan_failed", zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		r.logger.Warn("cache.redis.clear_failed", zap.Error(err))
	}
}

// Close releases the underlying Redis connection.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
