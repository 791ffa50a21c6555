package dedup

import (
	"fmt"
	"log"
	"time"
)

const (
	StoreRedis    = "redis"
	StoreLocalMap = "localmap"
	StoreCounter  = "counter"
	StoreNoop     = "noop"
)

// NewStoreFromEnv builds the claim store named by storeType. Local stores
// are fresh on every call; callers own the returned instance for one run.
func NewStoreFromEnv(storeType, redisURL, prefix string, ttl time.Duration) (ClaimStore, error) {
	switch storeType {
	case StoreRedis:
		if redisURL == "" {
			return nil, fmt.Errorf("dedup: CLAIM_REDIS_URL required when store=%s", StoreRedis)
		}
		if ttl < 0 {
			ttl = 0
		}
		log.Printf("dedup: using redis backend url=%s prefix=%s ttl=%v", redisURL, prefix, ttl)
		return NewRemoteStore(newGoRedisClient(redisURL), prefix, ttl), nil
	case StoreCounter:
		log.Println("dedup: using in-memory counter backend")
		return NewCounterStore(), nil
	case StoreLocalMap:
		log.Println("dedup: using in-memory check-then-set backend (racy, demonstration only)")
		return NewLocalMapStore(), nil
	case StoreNoop:
		log.Println("dedup: using noop backend (deduplication disabled)")
		return NoopStore{}, nil
	default:
		return nil, fmt.Errorf("dedup: unknown store type %q", storeType)
	}
}

// Atomic reports whether storeType yields exactly one claim per key.
func Atomic(storeType string) bool {
	return storeType == StoreRedis || storeType == StoreCounter
}
