// Package worker runs a bounded fan-out over a slice of inputs with a
// single join point.
package worker

import (
	"context"
	"sync"
)

// Result pairs one input's output with its error.
type Result[R any] struct {
	Value R
	Err   error
}

// Map applies fn to every input using at most workers goroutines and
// returns results in input order. It blocks until every input has a
// result. Once ctx is cancelled, inputs not yet started complete with
// ctx.Err() instead of running fn.
func Map[T, R any](ctx context.Context, workers int, inputs []T, fn func(context.Context, T) (R, error)) []Result[R] {
	results := make([]Result[R], len(inputs))
	if len(inputs) == 0 {
		return results
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(inputs) {
		workers = len(inputs)
	}

	indexes := make(chan int, len(inputs))
	for i := range inputs {
		indexes <- i
	}
	close(indexes)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				if err := ctx.Err(); err != nil {
					results[i] = Result[R]{Err: err}
					continue
				}
				value, err := fn(ctx, inputs[i])
				results[i] = Result[R]{Value: value, Err: err}
			}
		}()
	}
	wg.Wait()

	return results
}
