package report

import (
	"context"
	"sync"
)

// Runner serializes result application per logical target (one account's
// balance, one chart's data) so the latest-triggered run is what gets
// displayed, even when an older run's pages resolve after a newer run
// started. Triggering a run for a target cancels the previous in-flight
// run for that target AND stamps the new run with a generation; a
// superseded run's late result is discarded before apply, never after.
//
// Runs for different targets are independent and share no accumulator
// state, so any number of them may be in flight concurrently.
type Runner[T any] struct {
	mu      sync.Mutex
	gens    map[string]uint64
	cancels map[string]context.CancelFunc
}

func NewRunner[T any]() *Runner[T] {
	return &Runner[T]{
		gens:    make(map[string]uint64),
		cancels: make(map[string]context.CancelFunc),
	}
}

// Run executes fetch for the target and, if the run has not been
// superseded by a newer trigger in the meantime, hands its outcome to
// apply. Exactly one of the two happens: apply with the run's result, or
// a silent drop. Run blocks until the run settles; callers wanting
// fire-and-forget launch it in a goroutine.
func (r *Runner[T]) Run(ctx context.Context, target string, fetch func(context.Context) (T, error), apply func(T, error)) {
	r.mu.Lock()
	if cancel, ok := r.cancels[target]; ok {
		cancel()
	}
	r.gens[target]++
	gen := r.gens[target]
	runCtx, cancel := context.WithCancel(ctx)
	r.cancels[target] = cancel
	r.mu.Unlock()

	result, err := fetch(runCtx)

	r.mu.Lock()
	current := r.gens[target] == gen
	if current {
		delete(r.cancels, target)
	}
	r.mu.Unlock()
	cancel()

	if !current {
		// A newer run owns the target's displayed state now.
		return
	}
	apply(result, err)
}

// Invalidate supersedes any in-flight run for the target without starting
// a new one, for targets whose owning context is gone (screen closed,
// filter replaced). The abandoned run stops updating shared state.
func (r *Runner[T]) Invalidate(target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gens[target]++
	if cancel, ok := r.cancels[target]; ok {
		cancel()
		delete(r.cancels, target)
	}
}
