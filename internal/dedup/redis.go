package dedup

import (
	"context"
	"fmt"
	"time"
)

// RedisClient is the subset of Redis the remote store needs. SetNX must be
// atomic on the server.
type RedisClient interface {
	SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// RemoteStore claims keys in Redis with SET NX. Claims are shared by every
// process talking to the same Redis.
type RemoteStore struct {
	client RedisClient
	prefix string
	ttl    time.Duration
}

// NewRemoteStore returns a store writing prefix+key. A zero ttl keeps
// claims until Redis evicts them.
func NewRemoteStore(client RedisClient, prefix string, ttl time.Duration) *RemoteStore {
	return &RemoteStore{client: client, prefix: prefix, ttl: ttl}
}

func (r *RemoteStore) TryClaim(ctx context.Context, key string) (bool, error) {
	exists, err := r.client.Exists(ctx, r.prefix+key)
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w", key, err)
	}
	if exists {
		return false, nil
	}
	// A concurrent caller may pass the EXISTS probe too; SETNX decides.
	ok, err := r.client.SetNX(ctx, r.prefix+key, r.ttl)
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return ok, nil
}

var _ ClaimStore = (*RemoteStore)(nil)

// Close releases the underlying client when it holds a connection pool.
func (r *RemoteStore) Close() error {
	if c, ok := r.client.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
