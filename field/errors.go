package field

import (
	"errors"
	"fmt"
)

// Domain errors for grid construction.
var (
	// ErrInvalidGrid indicates an axis with bad bounds or too few samples.
	ErrInvalidGrid = errors.New("field: invalid grid")

	// ErrShapeMismatch indicates layer data whose length does not match the grid.
	ErrShapeMismatch = errors.New("field: layer shape does not match grid")
)

// InvalidGridError describes the offending axis of a rejected grid.
type InvalidGridError struct {
	Axis     string
	Min, Max float64
	Count    int
	Reason   string
}

func (e *InvalidGridError) Error() string {
	return fmt.Sprintf("invalid grid axis %s [%g, %g] x %d: %s", e.Axis, e.Min, e.Max, e.Count, e.Reason)
}

func (e *InvalidGridError) Unwrap() error {
	return ErrInvalidGrid
}
