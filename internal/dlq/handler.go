package dlq

import (
	"context"
	"log/slog"

	"github.com/jdiitm/graphrag-architect/workers/submitguard/internal/domain"
	"github.com/jdiitm/graphrag-architect/workers/submitguard/internal/telemetry"
)

// DeadLetterSink receives task results that ended with an error.
type DeadLetterSink interface {
	Send(ctx context.Context, result domain.Result) error
}

type SinkErrorObserver interface {
	RecordDLQSinkError()
}

type noopSinkObserver struct{}

func (noopSinkObserver) RecordDLQSinkError() {}

type Handler struct {
	source   <-chan domain.Result
	sink     DeadLetterSink
	fallback DeadLetterSink
	observer SinkErrorObserver
	logger   *slog.Logger
}

type Option func(*Handler)

func WithObserver(obs SinkErrorObserver) Option {
	return func(h *Handler) {
		h.observer = obs
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithFallback sets a sink tried once when the primary sink fails.
func WithFallback(sink DeadLetterSink) Option {
	return func(h *Handler) {
		h.fallback = sink
	}
}

func NewHandler(source <-chan domain.Result, sink DeadLetterSink, opts ...Option) *Handler {
	h := &Handler{
		source:   source,
		sink:     sink,
		observer: noopSinkObserver{},
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Run forwards results until source is closed or ctx is done.
func (h *Handler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case result, ok := <-h.source:
			if !ok {
				return
			}
			h.route(ctx, result)
		}
	}
}

func (h *Handler) route(ctx context.Context, result domain.Result) {
	ctx, span := telemetry.StartDLQSpan(ctx, result)
	defer span.End()

	err := h.sink.Send(ctx, result)
	if err == nil {
		return
	}
	h.observer.RecordDLQSinkError()
	h.logger.Error("dlq sink publish failed",
		"error", err,
		"store", result.Store,
		"key", result.Task.Key,
		"seq", result.Task.Seq,
		"claimed", result.Claimed,
	)
	if h.fallback == nil {
		return
	}
	if err := h.fallback.Send(ctx, result); err != nil {
		h.observer.RecordDLQSinkError()
		h.logger.Error("dlq fallback publish failed", "error", err, "key", result.Task.Key)
	}
}
