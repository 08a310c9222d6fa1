package solver

import (
	"context"
	"time"
)

// Local solves in-process with Compute. It satisfies the same SolveField
// contract as Client, without network or fallback.
type Local struct {
	Limits Limits
}

// NewLocal creates an in-process solver with the given limits.
func NewLocal(limits Limits) *Local {
	return &Local{Limits: limits}
}

// Health always succeeds.
func (l *Local) Health(ctx context.Context) error { return ctx.Err() }

// SolveField computes req directly. The context is checked before and after
// the computation only.
func (l *Local) SolveField(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	res := Result{Requested: req.Dims(), Dims: req.Dims()}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	resp, err := Compute(req, l.Limits)
	if err == nil {
		res.Field, err = resp.ToField()
	}
	res.Duration = time.Since(start)
	if err != nil {
		return res, &SolveError{Dims: req.Dims(), Err: err}
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}
