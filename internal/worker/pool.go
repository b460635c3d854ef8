package worker

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Pool runs per-file work with a bounded number of goroutines.
type Pool struct {
	workers int
}

func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{workers: workers}
}

func (p *Pool) Workers() int { return p.workers }

// Run calls fn for every index in [0, n) and returns how many calls succeeded.
// With a single worker the calls happen in index order. A failing call never
// stops the others; once ctx is done the remaining indexes are skipped and
// counted as failures.
func (p *Pool) Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) int {
	var ok atomic.Int64
	var g errgroup.Group
	g.SetLimit(p.workers)

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		idx := i
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if err := fn(ctx, idx); err == nil {
				ok.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(ok.Load())
}
