package pipeline

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultCallTimeout bounds each collaborator call.
const DefaultCallTimeout = 30 * time.Second

// Limits bounds per-item concurrency inside a stage.
type Limits struct {
	Workers int
	Timeout time.Duration
}

func (l Limits) workers() int {
	if l.Workers > 0 {
		return l.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (l Limits) timeout() time.Duration {
	if l.Timeout > 0 {
		return l.Timeout
	}
	return DefaultCallTimeout
}

// forEach calls fn for every index in [0,n) with at most l.Workers running at
// once. Each call gets its own timeout. Results keep input order. A panic in
// fn stays in its item: the slot is filled by recovered with the panic value.
func forEach[T any](ctx context.Context, l Limits, n int, fn func(ctx context.Context, i int) T, recovered func(i int, p any) T) []T {
	out := make([]T, n)
	var g errgroup.Group
	g.SetLimit(l.workers())
	for i := 0; i < n; i++ {
		g.Go(func() error {
			defer func() {
				if p := recover(); p != nil {
					out[i] = recovered(i, p)
				}
			}()
			cctx, cancel := context.WithTimeout(ctx, l.timeout())
			defer cancel()
			out[i] = fn(cctx, i)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
