package report

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerLatestTriggerWins(t *testing.T) {
	runner := NewRunner[string]()

	var (
		mu        sync.Mutex
		displayed []string
	)
	apply := func(result string, err error) {
		require.NoError(t, err)
		mu.Lock()
		displayed = append(displayed, result)
		mu.Unlock()
	}

	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)

	// Older run: triggered first, completes last.
	go func() {
		defer wg.Done()
		runner.Run(context.Background(), "account-1:balance", func(context.Context) (string, error) {
			<-release
			return "stale", nil
		}, apply)
	}()

	// Give the older run time to register its generation.
	time.Sleep(20 * time.Millisecond)

	go func() {
		defer wg.Done()
		runner.Run(context.Background(), "account-1:balance", func(context.Context) (string, error) {
			return "fresh", nil
		}, apply)
	}()

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"fresh"}, displayed,
		"the superseded run's late result must never reach displayed state")
}

func TestRunnerCancelsSupersededRun(t *testing.T) {
	runner := NewRunner[int]()

	started := make(chan struct{})
	cancelled := make(chan struct{})
	go runner.Run(context.Background(), "chart", func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return 0, ctx.Err()
	}, func(int, error) {
		t.Error("superseded run must not apply")
	})

	<-started
	runner.Run(context.Background(), "chart", func(context.Context) (int, error) {
		return 7, nil
	}, func(result int, err error) {
		require.NoError(t, err)
		assert.Equal(t, 7, result)
	})

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("older run was not cancelled")
	}
}

func TestRunnerIndependentTargets(t *testing.T) {
	runner := NewRunner[int]()

	var mu sync.Mutex
	results := map[string]int{}
	var wg sync.WaitGroup
	for i, target := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(target string, val int) {
			defer wg.Done()
			runner.Run(context.Background(), target, func(context.Context) (int, error) {
				return val, nil
			}, func(result int, err error) {
				require.NoError(t, err)
				mu.Lock()
				results[target] = result
				mu.Unlock()
			})
		}(target, i+1)
	}
	wg.Wait()

	assert.Equal(t, map[string]int{"a": 1, "b": 2, "c": 3}, results)
}

func TestRunnerInvalidate(t *testing.T) {
	runner := NewRunner[int]()

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		runner.Run(context.Background(), "screen", func(ctx context.Context) (int, error) {
			close(started)
			<-ctx.Done()
			return 0, ctx.Err()
		}, func(int, error) {
			t.Error("invalidated run must not apply")
		})
		close(done)
	}()

	<-started
	runner.Invalidate("screen")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("invalidated run did not settle")
	}
}
