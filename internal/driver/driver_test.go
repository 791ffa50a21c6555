package driver_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jdiitm/graphrag-architect/workers/submitguard/internal/action"
	"github.com/jdiitm/graphrag-architect/workers/submitguard/internal/dedup"
	"github.com/jdiitm/graphrag-architect/workers/submitguard/internal/domain"
	"github.com/jdiitm/graphrag-architect/workers/submitguard/internal/driver"
)

var errWrite = errors.New("write failed")

type spyProcessor struct {
	handler func(ctx context.Context, key string) (bool, error)
	calls   atomic.Int32
}

func (s *spyProcessor) Name() string { return "spy" }

func (s *spyProcessor) Process(ctx context.Context, key string) (bool, error) {
	s.calls.Add(1)
	if s.handler != nil {
		return s.handler(ctx, key)
	}
	return false, nil
}

// atomicRedis stands in for a Redis server: SETNX is atomic under its lock.
type atomicRedis struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func (r *atomicRedis) SetNX(_ context.Context, key string, _ time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.keys[key]; ok {
		return false, nil
	}
	r.keys[key] = struct{}{}
	return true, nil
}

func (r *atomicRedis) Exists(_ context.Context, key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.keys[key]
	return ok, nil
}

type spyObserver struct {
	tasks atomic.Int32
	runs  atomic.Int32
	last  atomic.Int32
}

func (s *spyObserver) RecordTaskDuration(float64) { s.tasks.Add(1) }

func (s *spyObserver) RecordRun(_ string, total, completed int, _ float64) {
	s.runs.Add(1)
	s.last.Store(int32(total - completed))
}

func assertExactlyOnce(t *testing.T, w domain.Workload, rec *action.Recorder, report *driver.Report) {
	t.Helper()
	if rec.Total() != len(w.Entries) {
		t.Fatalf("expected %d action executions, got %d", len(w.Entries), rec.Total())
	}
	for _, key := range w.Keys() {
		if rec.Count(key) != 1 {
			t.Errorf("key %s executed %d times, want 1", key, rec.Count(key))
		}
		if report.Claims[key] != 1 {
			t.Errorf("key %s claimed %d times, want 1", key, report.Claims[key])
		}
	}
	if len(report.Duplicates()) != 0 {
		t.Errorf("unexpected duplicates %v", report.Duplicates())
	}
}

func TestRun_CounterStoreExecutesOncePerKey(t *testing.T) {
	w := domain.NewWorkload(10, 10)
	rec := action.NewRecorder(nil)
	d := driver.New(driver.Config{Timeout: 5 * time.Second})

	report, err := d.Run(context.Background(), w, dedup.New("counter", dedup.NewCounterStore(), rec))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Total != 100 || report.Completed != 100 {
		t.Fatalf("completed %d of %d, want 100 of 100", report.Completed, report.Total)
	}
	assertExactlyOnce(t, w, rec, report)
}

func TestRun_RemoteStoreExecutesOncePerKey(t *testing.T) {
	w := domain.NewWorkload(10, 10)
	rec := action.NewRecorder(nil)
	store := dedup.NewRemoteStore(&atomicRedis{keys: make(map[string]struct{})}, "claim:", 0)
	d := driver.New(driver.Config{})

	report, err := d.Run(context.Background(), w, dedup.New("redis", store, rec))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertExactlyOnce(t, w, rec, report)
}

func TestRun_LocalMapStoreClaimsAtLeastOncePerKey(t *testing.T) {
	w := domain.NewWorkload(10, 10)
	rec := action.NewRecorder(nil)
	d := driver.New(driver.Config{})

	report, err := d.Run(context.Background(), w, dedup.New("localmap", dedup.NewLocalMapStore(), rec))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Total() < 10 {
		t.Fatalf("expected at least 10 executions, got %d", rec.Total())
	}
	if len(report.Unclaimed()) != 0 {
		t.Fatalf("keys never claimed: %v", report.Unclaimed())
	}
}

func TestRun_LocalMapStoreRaceProducesDuplicates(t *testing.T) {
	const repeat = 10
	w := domain.NewWorkload(10, repeat)
	barriers := make(map[string]*sync.WaitGroup, len(w.Entries))
	for _, key := range w.Keys() {
		wg := &sync.WaitGroup{}
		wg.Add(repeat)
		barriers[key] = wg
	}
	store := dedup.NewLocalMapStore(dedup.WithAfterCheck(func(key string) {
		barriers[key].Done()
		barriers[key].Wait()
	}))
	rec := action.NewRecorder(nil)
	d := driver.New(driver.Config{})

	report, err := d.Run(context.Background(), w, dedup.New("localmap", store, rec))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Duplicates()) != len(w.Entries) {
		t.Fatalf("expected every key duplicated, got %d duplicated keys", len(report.Duplicates()))
	}
	for _, key := range w.Keys() {
		if rec.Count(key) != repeat {
			t.Errorf("key %s executed %d times, want %d", key, rec.Count(key), repeat)
		}
	}
}

func TestRun_TimeoutReturnsIncompleteError(t *testing.T) {
	release := make(chan struct{})
	proc := &spyProcessor{handler: func(_ context.Context, key string) (bool, error) {
		if key == "slow" {
			<-release
		}
		return true, nil
	}}
	defer close(release)

	w := domain.Workload{Entries: []domain.Entry{
		{Key: "fast", Repeat: 3},
		{Key: "slow", Repeat: 2},
	}}
	obs := &spyObserver{}
	d := driver.New(driver.Config{Timeout: 50 * time.Millisecond}, driver.WithObserver(obs))

	report, err := d.Run(context.Background(), w, proc)
	if !errors.Is(err, driver.ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected cause DeadlineExceeded, got %v", err)
	}
	var incomplete *driver.IncompleteError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected *IncompleteError, got %T", err)
	}
	if incomplete.Completed != 3 || incomplete.Total != 5 {
		t.Fatalf("IncompleteError = %d of %d, want 3 of 5", incomplete.Completed, incomplete.Total)
	}
	if err.Error() != "2 of 5 tasks incomplete: context deadline exceeded" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if report == nil || report.Incomplete() != 2 {
		t.Fatalf("expected partial report with 2 incomplete tasks, got %+v", report)
	}
	if obs.last.Load() != 2 {
		t.Fatalf("observer saw %d incomplete, want 2", obs.last.Load())
	}
}

func TestRun_ContextCancelStopsWaiting(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	proc := &spyProcessor{handler: func(context.Context, string) (bool, error) {
		<-release
		return true, nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	d := driver.New(driver.Config{Timeout: 5 * time.Second})
	_, err := d.Run(ctx, domain.NewWorkload(2, 2), proc)
	if !errors.Is(err, driver.ErrIncomplete) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected incomplete/canceled, got %v", err)
	}
}

func TestRun_ActionFailureIsReportedAndClaimKept(t *testing.T) {
	w := domain.NewWorkload(3, 5)
	failing := action.NewRecorder(action.Func(func(context.Context, string) error { return errWrite }))
	d := driver.New(driver.Config{})

	report, err := d.Run(context.Background(), w, dedup.New("counter", dedup.NewCounterStore(), failing))
	if err != nil {
		t.Fatalf("action failures must not fail the run: %v", err)
	}
	if len(report.Failures) != 3 {
		t.Fatalf("expected 3 failures (one per key), got %d", len(report.Failures))
	}
	for _, f := range report.Failures {
		if !f.Claimed || !errors.Is(f.Err, errWrite) {
			t.Errorf("unexpected failure %+v", f)
		}
	}
	for _, key := range w.Keys() {
		if report.Claims[key] != 1 {
			t.Errorf("key %s claimed %d times, want 1", key, report.Claims[key])
		}
	}
}

func TestRun_PanicIsRecoveredIntoTaskError(t *testing.T) {
	proc := &spyProcessor{handler: func(_ context.Context, key string) (bool, error) {
		if key == "boom" {
			panic("exploded")
		}
		return true, nil
	}}
	w := domain.Workload{Entries: []domain.Entry{{Key: "boom", Repeat: 1}, {Key: "ok", Repeat: 1}}}

	report, err := driver.New(driver.Config{}).Run(context.Background(), w, proc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Failures) != 1 || !errors.Is(report.Failures[0].Err, driver.ErrTaskPanic) {
		t.Fatalf("expected one ErrTaskPanic failure, got %+v", report.Failures)
	}
	if report.Claims["ok"] != 1 {
		t.Fatalf("healthy key should still be claimed")
	}
}

func TestRun_FiresTasksConcurrently(t *testing.T) {
	var inflight, maxInflight atomic.Int32
	proc := &spyProcessor{handler: func(context.Context, string) (bool, error) {
		cur := inflight.Add(1)
		for {
			old := maxInflight.Load()
			if cur <= old || maxInflight.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		inflight.Add(-1)
		return false, nil
	}}

	_, err := driver.New(driver.Config{}).Run(context.Background(), domain.NewWorkload(4, 5), proc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proc.calls.Load() != 20 {
		t.Fatalf("expected 20 calls, got %d", proc.calls.Load())
	}
	if maxInflight.Load() < 2 {
		t.Fatalf("expected concurrent execution (max inflight >= 2), got %d", maxInflight.Load())
	}
}

func TestRun_RecordsObserverMetrics(t *testing.T) {
	obs := &spyObserver{}
	d := driver.New(driver.Config{}, driver.WithObserver(obs))

	_, err := d.Run(context.Background(), domain.NewWorkload(2, 3), &spyProcessor{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obs.tasks.Load() != 6 {
		t.Errorf("expected 6 task durations, got %d", obs.tasks.Load())
	}
	if obs.runs.Load() != 1 || obs.last.Load() != 0 {
		t.Errorf("expected one complete run recorded, got runs=%d incomplete=%d", obs.runs.Load(), obs.last.Load())
	}
}

func TestRun_EmptyWorkload(t *testing.T) {
	report, err := driver.New(driver.Config{}).Run(context.Background(), domain.Workload{}, &spyProcessor{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Total != 0 || report.Completed != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
}
