package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jdiitm/graphrag-architect/workers/submitguard/internal/domain"
	"github.com/jdiitm/graphrag-architect/workers/submitguard/internal/telemetry"
)

const DefaultTimeout = 5 * time.Second

var (
	ErrIncomplete = errors.New("workload incomplete")
	ErrTaskPanic  = errors.New("task panicked")
)

// IncompleteError reports tasks still running when the driver stopped
// waiting. It matches ErrIncomplete and unwraps to the wait cause.
type IncompleteError struct {
	Completed int
	Total     int
	Cause     error
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%d of %d tasks incomplete: %v", e.Total-e.Completed, e.Total, e.Cause)
}

func (e *IncompleteError) Is(target error) bool { return target == ErrIncomplete }

func (e *IncompleteError) Unwrap() error { return e.Cause }

type Processor interface {
	Name() string
	Process(ctx context.Context, key string) (bool, error)
}

type Observer interface {
	RecordTaskDuration(seconds float64)
	RecordRun(store string, total, completed int, seconds float64)
}

type noopObserver struct{}

func (noopObserver) RecordTaskDuration(_ float64)            {}
func (noopObserver) RecordRun(_ string, _, _ int, _ float64) {}

type Config struct {
	Timeout time.Duration
}

// Driver fires every task of a workload at once, one goroutine per task,
// to expose races in the processor's claim store.
type Driver struct {
	cfg      Config
	observer Observer
	logger   *slog.Logger
}

type Option func(*Driver)

func WithObserver(obs Observer) Option {
	return func(d *Driver) {
		d.observer = obs
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		d.logger = logger
	}
}

func New(cfg Config, opts ...Option) *Driver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	d := &Driver{
		cfg:      cfg,
		observer: noopObserver{},
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Run dispatches the workload and waits for every task, the configured
// timeout, or ctx, whichever comes first. In-flight tasks are never
// cancelled. When the wait ends early the partial report is returned with
// an *IncompleteError.
func (d *Driver) Run(ctx context.Context, w domain.Workload, proc Processor) (*Report, error) {
	name := proc.Name()
	total := w.Total()
	runCtx, span := telemetry.StartRunSpan(ctx, name, len(w.Entries), total)
	defer span.End()

	began := time.Now()
	results := make(chan domain.Result, total)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for _, e := range w.Entries {
		for i := 0; i < e.Repeat; i++ {
			wg.Add(1)
			go d.runTask(runCtx, proc, domain.Task{Key: e.Key, Seq: i}, start, results, &wg)
		}
	}
	close(start)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(d.cfg.Timeout)
	defer timer.Stop()

	var cause error
	select {
	case <-done:
	case <-timer.C:
		cause = context.DeadlineExceeded
	case <-ctx.Done():
		cause = ctx.Err()
	}

	report := newReport(name, w)
	for drained := false; !drained; {
		select {
		case r := <-results:
			report.add(r)
		default:
			drained = true
		}
	}
	report.Elapsed = time.Since(began)

	d.observer.RecordRun(name, report.Total, report.Completed, report.Elapsed.Seconds())
	span.SetAttributes(
		attribute.Int64("workload.completed", int64(report.Completed)),
		attribute.Int64("workload.claims", int64(report.ClaimTotal())),
		attribute.Int64("workload.failures", int64(len(report.Failures))),
	)
	d.logger.Info("workload finished",
		"store", name,
		"keys", len(w.Entries),
		"tasks", report.Total,
		"completed", report.Completed,
		"claims", report.ClaimTotal(),
		"duplicate_keys", len(report.Duplicates()),
		"failures", len(report.Failures),
		"elapsed", report.Elapsed,
	)

	if report.Completed < report.Total {
		err := &IncompleteError{Completed: report.Completed, Total: report.Total, Cause: cause}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return report, err
	}
	return report, nil
}

func (d *Driver) runTask(
	ctx context.Context,
	proc Processor,
	task domain.Task,
	start <-chan struct{},
	results chan<- domain.Result,
	wg *sync.WaitGroup,
) {
	defer wg.Done()
	<-start

	began := time.Now()
	result := domain.Result{Task: task, Store: proc.Name(), At: began}
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.Err = fmt.Errorf("%w: %v", ErrTaskPanic, r)
			}
		}()
		result.Claimed, result.Err = proc.Process(ctx, task.Key)
	}()
	result.Duration = time.Since(began)
	d.observer.RecordTaskDuration(result.Duration.Seconds())
	results <- result
}
