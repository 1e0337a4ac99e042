package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/BaSui01/actiongate/internal/tlsutil"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces limiter keys in Redis.
const KeyPrefix = "actiongate:rl"

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Addr     string `yaml:"addr" toml:"addr" env:"ADDR"`
	Password string `yaml:"password" toml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" toml:"db" env:"DB"`
	PoolSize int    `yaml:"pool_size" toml:"pool_size" env:"POOL_SIZE"`
	TLS      bool   `yaml:"tls" toml:"tls" env:"TLS"`
}

// OpenRedis connects and pings Redis.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}
	if cfg.TLS {
		opts.TLSConfig = tlsutil.ClientConfig()
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// RedisStore shares counters across gateway instances.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Incr implements Store with INCR and PEXPIRE in one MULTI pipeline. The TTL
// is refreshed on every hit; the key embeds windowStart, so a refresh never
// carries a count into the next window.
func (s *RedisStore) Incr(ctx context.Context, key string, windowStart time.Time, window time.Duration) (int64, error) {
	k := redisKey(key, windowStart)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.PExpire(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func redisKey(key string, windowStart time.Time) string {
	return fmt.Sprintf("%s:%s:%d", KeyPrefix, key, windowStart.UnixMilli())
}
