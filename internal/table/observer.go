package table

import "context"

// Observer receives an Event for every statement an Accessor executes,
// successful or not. Implementations must not block; they are called
// synchronously on the caller's goroutine.
type Observer interface {
	Observe(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, ev Event)

// Observe calls f(ctx, ev).
func (f ObserverFunc) Observe(ctx context.Context, ev Event) {
	f(ctx, ev)
}

// MultiObserver fans an Event out to each observer in order. Nil entries are skipped.
type MultiObserver []Observer

// Observe forwards ev to every observer.
func (m MultiObserver) Observe(ctx context.Context, ev Event) {
	for _, o := range m {
		if o != nil {
			o.Observe(ctx, ev)
		}
	}
}

type nopObserver struct{}

func (nopObserver) Observe(context.Context, Event) {}
