package action

import "context"

// Action is the side effect a Deduplicator guards. Implementations need
// not be idempotent themselves; the caller ensures one Perform per key.
type Action interface {
	Perform(ctx context.Context, key string) error
}

type Func func(ctx context.Context, key string) error

func (f Func) Perform(ctx context.Context, key string) error {
	return f(ctx, key)
}

type chain []Action

// Chain performs actions in order and stops at the first error.
func Chain(actions ...Action) Action {
	return chain(actions)
}

func (c chain) Perform(ctx context.Context, key string) error {
	for _, a := range c {
		if err := a.Perform(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
