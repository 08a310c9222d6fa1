package interaction

import (
	"context"
	"sync"
	"time"

	"github.com/pthm-cable/fieldscope/solver"
)

// FieldSolver is the part of solver.Client the dispatcher needs.
type FieldSolver interface {
	SolveField(ctx context.Context, req solver.Request) (solver.Result, error)
}

// AsyncDispatcher runs each ticket on its own goroutine. Dispatching a new
// ticket cancels the one in flight. Results are queued on a channel for the
// owner goroutine to apply.
type AsyncDispatcher struct {
	solver  FieldSolver
	timeout time.Duration
	results chan Result

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}
	closed bool
}

// NewAsyncDispatcher creates a dispatcher. A zero timeout leaves solves
// bounded only by cancellation.
func NewAsyncDispatcher(s FieldSolver, timeout time.Duration) *AsyncDispatcher {
	return &AsyncDispatcher{
		solver:  s,
		timeout: timeout,
		results: make(chan Result, 8),
		done:    make(chan struct{}),
	}
}

// Dispatch starts solving t, cancelling any earlier ticket.
func (d *AsyncDispatcher) Dispatch(t Ticket) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if d.cancel != nil {
		d.cancel()
	}
	var ctx context.Context
	var cancel context.CancelFunc
	if d.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), d.timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	d.cancel = cancel

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()
		res, err := d.solver.SolveField(ctx, t.Request)
		if ctx.Err() == context.Canceled {
			// Superseded by a newer ticket
			return
		}
		select {
		case d.results <- Result{Seq: t.Seq, Result: res, Err: err}:
		case <-d.done:
		}
	}()
}

// Results delivers finished solves.
func (d *AsyncDispatcher) Results() <-chan Result {
	return d.results
}

// Close cancels the solve in flight and waits for workers to exit.
func (d *AsyncDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	if d.cancel != nil {
		d.cancel()
	}
	close(d.done)
	d.mu.Unlock()
	d.wg.Wait()
}

// Drain applies every queued result without blocking and returns how many
// were applied (stale results are not counted). Each applied result is then
// passed to observe, if given.
func Drain(c *Controller, results <-chan Result, observe ...func(Result)) int {
	n := 0
	for {
		select {
		case r := <-results:
			if c.Apply(r) != nil {
				continue
			}
			n++
			for _, fn := range observe {
				fn(r)
			}
		default:
			return n
		}
	}
}
