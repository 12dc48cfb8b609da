// Package concurrency runs per-item work on a bounded set of goroutines.
package concurrency

import (
	"context"
	"sync"
)

type ParallelOptions struct {
	// MaxWorkers caps the goroutines; values below 1 mean one worker.
	MaxWorkers int
}

func DefaultOptions() ParallelOptions {
	return ParallelOptions{MaxWorkers: 1}
}

func (o ParallelOptions) workers(n int) int {
	w := o.MaxWorkers
	if w < 1 {
		w = 1
	}
	if w > n {
		w = n
	}
	return w
}

// ProcessParallel calls fn for every item and returns the results in input
// order. Items not started before ctx is done keep the zero result, and the
// context error is reported once.
func ProcessParallel[T any, R any](
	ctx context.Context,
	items []T,
	opts ParallelOptions,
	fn func(ctx context.Context, index int, item T) (R, error),
) ([]R, []error) {
	results := make([]R, len(items))
	errs := run(ctx, len(items), opts, func(ctx context.Context, i int) error {
		r, err := fn(ctx, i, items[i])
		results[i] = r
		return err
	})
	return results, errs
}

// ForEach is ProcessParallel for side effects only.
func ForEach[T any](
	ctx context.Context,
	items []T,
	opts ParallelOptions,
	fn func(ctx context.Context, index int, item T) error,
) []error {
	return run(ctx, len(items), opts, func(ctx context.Context, i int) error {
		return fn(ctx, i, items[i])
	})
}

func run(ctx context.Context, n int, opts ParallelOptions, fn func(context.Context, int) error) []error {
	if n == 0 {
		return nil
	}

	jobs := make(chan int)
	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	for w := 0; w < opts.workers(n); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := fn(ctx, i); err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}
		}()
	}

	var cancelled error
dispatch:
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		select {
		case jobs <- i:
		case <-ctx.Done():
			cancelled = ctx.Err()
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if cancelled != nil {
		errs = append(errs, cancelled)
	}
	return errs
}
