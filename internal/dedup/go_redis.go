package dedup

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type goRedisWrapper struct {
	client *redis.Client
}

func newGoRedisClient(url string) *goRedisWrapper {
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{Addr: url}
	}
	return &goRedisWrapper{client: redis.NewClient(opts)}
}

// SetNX stores an empty placeholder value; only presence matters.
func (w *goRedisWrapper) SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	result, err := w.client.SetArgs(ctx, key, "", redis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return result == "OK", nil
}

func (w *goRedisWrapper) Exists(ctx context.Context, key string) (bool, error) {
	n, err := w.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (w *goRedisWrapper) Ping(ctx context.Context) error {
	return w.client.Ping(ctx).Err()
}

func (w *goRedisWrapper) Close() error {
	return w.client.Close()
}
