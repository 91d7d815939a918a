package estimator

import (
	"context"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// Communicator is the collective-operation surface estimators reduce over.
// Every member of a group must enter each collective call in the same order.
type Communicator interface {
	Rank() int
	Size() int
	Barrier(ctx context.Context) error
	// ReduceSum sums data elementwise across the group. Root receives the
	// result; other ranks receive nil. A failed reduction fails on every rank.
	ReduceSum(ctx context.Context, root int, data []float64) ([]float64, error)
}

// NewLocalGroup returns size communicators that reduce between goroutines of
// one process. Each communicator must be driven by its own goroutine.
// A group whose collective was abandoned through ctx is no longer usable.
func NewLocalGroup(size int) []Communicator {
	if size < 1 {
		panic(fmt.Sprintf("local group size must be positive, got %d", size))
	}
	g := &localGroup{
		size:    size,
		release: make(chan struct{}),
		slots:   make([][]float64, size),
	}
	comms := make([]Communicator, size)
	for r := range comms {
		comms[r] = &localComm{group: g, rank: r}
	}
	return comms
}

type localGroup struct {
	size int

	mu      sync.Mutex
	arrived int
	release chan struct{}
	slots   [][]float64
	err     error
}

// wait blocks until every member has arrived.
func (g *localGroup) wait(ctx context.Context) error {
	g.mu.Lock()
	ch := g.release
	g.arrived++
	if g.arrived == g.size {
		g.arrived = 0
		g.release = make(chan struct{})
		close(ch)
		g.mu.Unlock()
		return nil
	}
	g.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type localComm struct {
	group *localGroup
	rank  int
}

func (c *localComm) Rank() int { return c.rank }

func (c *localComm) Size() int { return c.group.size }

func (c *localComm) Barrier(ctx context.Context) error {
	return c.group.wait(ctx)
}

func (c *localComm) ReduceSum(ctx context.Context, root int, data []float64) ([]float64, error) {
	g := c.group
	if root < 0 || root >= g.size {
		return nil, fmt.Errorf("reduce root %d outside group of size %d", root, g.size)
	}

	g.mu.Lock()
	g.slots[c.rank] = data
	g.mu.Unlock()
	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	var out []float64
	if c.rank == root {
		out = append([]float64(nil), g.slots[root]...)
		var reduceErr error
		for r, s := range g.slots {
			if r == root {
				continue
			}
			if len(s) != len(out) {
				reduceErr = fmt.Errorf("rank %d sent %d values, root holds %d", r, len(s), len(out))
				break
			}
			floats.Add(out, s)
		}
		g.mu.Lock()
		g.err = reduceErr
		g.mu.Unlock()
	}

	// Hold every rank until root has read the slots.
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	g.mu.Lock()
	reduceErr := g.err
	g.mu.Unlock()
	if reduceErr != nil {
		return nil, reduceErr
	}
	return out, nil
}
