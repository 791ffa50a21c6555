package dedup

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/codes"

	"github.com/jdiitm/graphrag-architect/workers/submitguard/internal/action"
	"github.com/jdiitm/graphrag-architect/workers/submitguard/internal/telemetry"
)

var ErrEmptyKey = errors.New("dedup: empty key")

// Observer receives claim and action outcomes, labelled by store name.
type Observer interface {
	RecordClaim(store, outcome string)
	RecordAction(store, outcome string)
}

type noopObserver struct{}

func (noopObserver) RecordClaim(_, _ string)  {}
func (noopObserver) RecordAction(_, _ string) {}

// Deduplicator runs its action only for callers that win the claim on a
// key. A claim is kept when the action fails, so a failed key is never
// retried through the same store.
type Deduplicator struct {
	name     string
	store    ClaimStore
	action   action.Action
	observer Observer
	logger   *slog.Logger
}

type Option func(*Deduplicator)

func WithObserver(obs Observer) Option {
	return func(d *Deduplicator) {
		d.observer = obs
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Deduplicator) {
		d.logger = logger
	}
}

func New(name string, store ClaimStore, act action.Action, opts ...Option) *Deduplicator {
	d := &Deduplicator{
		name:     name,
		store:    store,
		action:   act,
		observer: noopObserver{},
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Deduplicator) Name() string { return d.name }

// Process claims key and performs the action when the claim is won. It
// reports whether this caller won the claim.
func (d *Deduplicator) Process(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}

	claimCtx, span := telemetry.StartClaimSpan(ctx, d.name, key)
	claimed, err := d.store.TryClaim(claimCtx, key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		d.observer.RecordClaim(d.name, "error")
		d.logger.Error("claim failed", "store", d.name, "key", key, "error", err)
		return false, err
	}
	span.End()
	if !claimed {
		d.observer.RecordClaim(d.name, "duplicate")
		return false, nil
	}
	d.observer.RecordClaim(d.name, "claimed")

	actCtx, actSpan := telemetry.StartActionSpan(ctx, key)
	defer actSpan.End()
	if err := d.action.Perform(actCtx, key); err != nil {
		actSpan.RecordError(err)
		actSpan.SetStatus(codes.Error, err.Error())
		d.observer.RecordAction(d.name, "failure")
		d.logger.Warn("action failed after claim", "store", d.name, "key", key, "error", err)
		return true, err
	}
	d.observer.RecordAction(d.name, "success")
	return true, nil
}
