package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// KV is the byte store behind CachedEmbedder.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisKV adapts a go-redis client to KV.
type RedisKV struct {
	client *redis.Client
}

func NewRedisKV(redisURL string) (*RedisKV, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisKV{client: redis.NewClient(opts)}, nil
}

func (r *RedisKV) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKV) Close() error {
	return r.client.Close()
}

// CachedEmbedder memoises another Embedder. Cache failures fall through to the embedder.
type CachedEmbedder struct {
	next      Embedder
	kv        KV
	namespace string
	ttl       time.Duration
	logger    *zap.Logger
}

var _ Embedder = (*CachedEmbedder)(nil)

func NewCachedEmbedder(next Embedder, kv KV, namespace string, ttl time.Duration, logger *zap.Logger) *CachedEmbedder {
	return &CachedEmbedder{
		next:      next,
		kv:        kv,
		namespace: namespace,
		ttl:       ttl,
		logger:    logger.Named("embedding_cache"),
	}
}

func (c *CachedEmbedder) Dimension() int { return c.next.Dimension() }

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)

	if raw, ok, err := c.kv.Get(ctx, key); err != nil {
		c.logger.Warn("Embedding cache read failed", zap.Error(err))
	} else if ok {
		var vec []float32
		if err := json.Unmarshal(raw, &vec); err == nil && len(vec) == c.next.Dimension() {
			return vec, nil
		}
		c.logger.Warn("Discarding malformed cached embedding", zap.String("key", key))
	}

	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(vec); err == nil {
		if err := c.kv.Set(ctx, key, raw, c.ttl); err != nil {
			c.logger.Warn("Embedding cache write failed", zap.Error(err))
		}
	}
	return vec, nil
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + c.namespace + ":" + hex.EncodeToString(sum[:])
}
