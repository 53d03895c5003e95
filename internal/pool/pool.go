package pool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultSize bounds concurrent tasks; the pipeline never needs more than a
// handful of parallel filesystem operations.
const DefaultSize = 4

// Pool runs groups of independent tasks with bounded parallelism.
// Task errors are collected per group; the first failure wins.
type Pool struct {
	size int
}

// New returns a pool limited to size concurrent tasks.
// A non-positive size falls back to DefaultSize.
func New(size int) *Pool {
	if size <= 0 {
		size = DefaultSize
	}

	return &Pool{size: size}
}

// Task is one unit of work scheduled on the pool.
type Task func(ctx context.Context) error

// JoinAll runs every task and waits for all of them to finish, returning the
// first error. When the context is canceled, remaining tasks still observe
// the cancellation through their own context checks; JoinAll never abandons
// a running task.
func (p *Pool) JoinAll(ctx context.Context, tasks ...Task) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.size)

	for _, task := range tasks {
		task := task
		group.Go(func() error {
			return task(groupCtx)
		})
	}

	return group.Wait()
}
