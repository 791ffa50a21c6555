package dedup

import (
	"context"
	"sync/atomic"

	"github.com/maypok86/otter/v2"
)

// ClaimStore records which keys have been claimed. TryClaim reports true
// when the caller is the claimant for key and may run the guarded action.
// Implementations are safe for concurrent use.
type ClaimStore interface {
	TryClaim(ctx context.Context, key string) (bool, error)
}

// LocalMapStore claims with a separate lookup and insert. Two callers of
// the same key can both observe absence and both claim; it exists to show
// that race next to the atomic stores and must not be used to guard real
// side effects.
type LocalMapStore struct {
	claimed    *otter.Cache[string, struct{}]
	afterCheck func(key string)
}

type LocalMapOption func(*LocalMapStore)

// WithAfterCheck runs fn between the absence check and the insert.
func WithAfterCheck(fn func(key string)) LocalMapOption {
	return func(s *LocalMapStore) {
		s.afterCheck = fn
	}
}

func NewLocalMapStore(opts ...LocalMapOption) *LocalMapStore {
	s := &LocalMapStore{
		claimed: otter.Must(&otter.Options[string, struct{}]{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *LocalMapStore) TryClaim(_ context.Context, key string) (bool, error) {
	if _, found := s.claimed.GetIfPresent(key); found {
		return false, nil
	}
	if s.afterCheck != nil {
		s.afterCheck(key)
	}
	s.claimed.Set(key, struct{}{})
	return true, nil
}

// CounterStore keeps one counter per key. The loader runs at most once per
// key even under concurrent misses, so every caller increments the same
// counter and exactly one of them sees 1.
type CounterStore struct {
	counters *otter.Cache[string, *atomic.Int64]
	loader   otter.Loader[string, *atomic.Int64]
}

func NewCounterStore() *CounterStore {
	return &CounterStore{
		counters: otter.Must(&otter.Options[string, *atomic.Int64]{}),
		loader: otter.LoaderFunc[string, *atomic.Int64](func(_ context.Context, _ string) (*atomic.Int64, error) {
			return new(atomic.Int64), nil
		}),
	}
}

func (s *CounterStore) TryClaim(ctx context.Context, key string) (bool, error) {
	counter, err := s.counters.Get(ctx, key, s.loader)
	if err != nil {
		return false, err
	}
	return counter.Add(1) == 1, nil
}

// Hits returns how many claim attempts key has seen.
func (s *CounterStore) Hits(key string) int64 {
	counter, ok := s.counters.GetIfPresent(key)
	if !ok {
		return 0
	}
	return counter.Load()
}

// NoopStore grants every claim. Deduplication is disabled.
type NoopStore struct{}

func (NoopStore) TryClaim(context.Context, string) (bool, error) { return true, nil }

var (
	_ ClaimStore = (*LocalMapStore)(nil)
	_ ClaimStore = (*CounterStore)(nil)
	_ ClaimStore = NoopStore{}
)
