package field

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// Field is one solve's output. It is never mutated after construction;
// a new solve produces a new Field.
type Field struct {
	grid   Grid
	scalar []float64 // nil when the potential was not requested
	vector []r3.Vec
}

// New builds a field over g. scalar may be nil; vector must cover every sample.
func New(g Grid, scalar []float64, vector []r3.Vec) (*Field, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if len(vector) != g.Len() {
		return nil, fmt.Errorf("vector layer has %d samples, grid has %d: %w", len(vector), g.Len(), ErrShapeMismatch)
	}
	if scalar != nil && len(scalar) != g.Len() {
		return nil, fmt.Errorf("scalar layer has %d samples, grid has %d: %w", len(scalar), g.Len(), ErrShapeMismatch)
	}
	return &Field{grid: g, scalar: scalar, vector: vector}, nil
}

// Grid returns the sample lattice.
func (f *Field) Grid() Grid { return f.grid }

// HasScalar reports whether the potential layer is present.
func (f *Field) HasScalar() bool { return f.scalar != nil }

// Scalar returns the potential at (i, j, k), NaN when absent.
func (f *Field) Scalar(i, j, k int) float64 {
	if f.scalar == nil {
		return math.NaN()
	}
	return f.scalar[f.grid.Index(i, j, k)]
}

// Vector returns the field vector at (i, j, k).
func (f *Field) Vector(i, j, k int) r3.Vec {
	return f.vector[f.grid.Index(i, j, k)]
}

// Magnitude returns |E| at (i, j, k).
func (f *Field) Magnitude(i, j, k int) float64 {
	return r3.Norm(f.Vector(i, j, k))
}

// Scalars returns the flat potential layer. Callers must not modify it.
func (f *Field) Scalars() []float64 { return f.scalar }

// ScalarRange returns the finite minimum and maximum of the potential.
// ok is false when there is no finite sample.
func (f *Field) ScalarRange() (min, max float64, ok bool) {
	return FiniteRange(f.scalar)
}

// Stats summarizes the finite potential samples.
type Stats struct {
	Finite    int
	Min, Max  float64
	Mean, Std float64
	MaxField  float64 // Largest |E|
}

// Stats computes summary statistics of the potential and field magnitude.
func (f *Field) Stats() Stats {
	var s Stats
	finite := make([]float64, 0, len(f.scalar))
	for _, v := range f.scalar {
		if isFinite(v) {
			finite = append(finite, v)
		}
	}
	s.Finite = len(finite)
	if s.Finite > 0 {
		s.Min, s.Max = floats.Min(finite), floats.Max(finite)
		s.Mean, s.Std = stat.MeanStdDev(finite, nil)
	}
	for _, v := range f.vector {
		if m := r3.Norm(v); isFinite(m) && m > s.MaxField {
			s.MaxField = m
		}
	}
	return s
}

// Slice returns the 2D field at z layer k. A 2D field returns itself.
func (f *Field) Slice(k int) *Field {
	if !f.grid.Is3D() {
		return f
	}
	g := f.grid.Flatten()
	n := g.Len()
	out := &Field{grid: g, vector: f.vector[k*n : (k+1)*n]}
	if f.scalar != nil {
		out.scalar = f.scalar[k*n : (k+1)*n]
	}
	return out
}

// FiniteRange returns the minimum and maximum of the finite values.
func FiniteRange(values []float64) (min, max float64, ok bool) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if !isFinite(v) {
			continue
		}
		ok = true
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if !ok {
		return 0, 0, false
	}
	return min, max, true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
