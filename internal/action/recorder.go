package action

import (
	"context"
	"sync"
)

// Recorder counts executions per key before delegating to next, if any.
type Recorder struct {
	mu     sync.Mutex
	counts map[string]int
	next   Action
}

func NewRecorder(next Action) *Recorder {
	return &Recorder{counts: make(map[string]int), next: next}
}

func (r *Recorder) Perform(ctx context.Context, key string) error {
	r.mu.Lock()
	r.counts[key]++
	r.mu.Unlock()
	if r.next == nil {
		return nil
	}
	return r.next.Perform(ctx, key)
}

func (r *Recorder) Count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[key]
}

func (r *Recorder) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, n := range r.counts {
		total += n
	}
	return total
}

func (r *Recorder) Counts() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make(map[string]int, len(r.counts))
	for k, v := range r.counts {
		cp[k] = v
	}
	return cp
}
