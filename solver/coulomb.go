package solver

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"
)

// Coulomb constant 1/(4*pi*eps0) in N*m^2/C^2.
const CoulombK = 1 / (4 * math.Pi * 8.8541878128e-12)

// parallelThreshold is the minimum sample count to split work across workers.
const parallelThreshold = 4096

// ErrInvalidRequest indicates a request the reference solver refuses.
var ErrInvalidRequest = errors.New("solver: invalid request")

// Limits bounds the grid sizes the reference solver accepts.
type Limits struct {
	MaxCount2D int
	MaxCount3D int
}

// DefaultLimits match the published service.
var DefaultLimits = Limits{MaxCount2D: 200, MaxCount3D: 100}

// Compute evaluates E and V of the request's point charges at every grid
// sample by direct summation. Softening is added to r^2 to keep the field
// finite at a charge.
func Compute(req Request, limits Limits) (*Response, error) {
	g, err := req.Grid.Grid()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	limit := limits.MaxCount2D
	if g.Is3D() {
		limit = limits.MaxCount3D
	}
	for _, n := range []int{g.NX(), g.NY(), g.NZ()} {
		if limit > 0 && n > limit {
			return nil, fmt.Errorf("%w: %d samples per axis exceeds limit %d", ErrInvalidRequest, n, limit)
		}
	}
	if len(req.Charges) == 0 {
		return nil, fmt.Errorf("%w: at least one charge is required", ErrInvalidRequest)
	}
	for i, c := range req.Charges {
		if c.Q == 0 || math.IsNaN(c.Q) || math.IsInf(c.Q, 0) {
			return nil, fmt.Errorf("%w: charge %d must be finite and non-zero", ErrInvalidRequest, i+1)
		}
	}
	if req.Softening < 0 {
		return nil, fmt.Errorf("%w: softening must be non-negative", ErrInvalidRequest)
	}

	n := g.Len()
	ex := make([]float64, n)
	ey := make([]float64, n)
	var ez, pot []float64
	if g.Is3D() {
		ez = make([]float64, n)
	}
	if req.IncludePotential {
		pot = make([]float64, n)
	}

	soft2 := req.Softening * req.Softening
	is3D := g.Is3D()
	rows := g.NY() * g.NZ()
	nx := g.NX()
	evalRows := func(start, end int) {
		for row := start; row < end; row++ {
			j, k := row%g.NY(), row/g.NY()
			for i := 0; i < nx; i++ {
				e, v := superpose(req.Charges, g.Point(i, j, k), is3D, soft2)
				idx := row*nx + i
				ex[idx], ey[idx] = e.X, e.Y
				if ez != nil {
					ez[idx] = e.Z
				}
				if pot != nil {
					pot[idx] = v
				}
			}
		}
	}

	workers := runtime.GOMAXPROCS(0)
	if n < parallelThreshold || workers < 2 {
		evalRows(0, rows)
	} else {
		var wg sync.WaitGroup
		chunk := (rows + workers - 1) / workers
		for start := 0; start < rows; start += chunk {
			end := min(start+chunk, rows)
			wg.Add(1)
			go func(start, end int) {
				defer wg.Done()
				evalRows(start, end)
			}(start, end)
		}
		wg.Wait()
	}

	shape := []int{g.NY(), g.NX()}
	if g.Is3D() {
		shape = []int{g.NZ(), g.NY(), g.NX()}
	}
	out := &Response{
		Grid: GridSpecFrom(g),
		Field: FieldData{
			Ex: NewLayer(ex, shape...),
			Ey: NewLayer(ey, shape...),
		},
	}
	if ez != nil {
		l := NewLayer(ez, shape...)
		out.Field.Ez = &l
	}
	if pot != nil {
		l := NewLayer(pot, shape...)
		out.Field.Potential = &l
	}
	return out, nil
}

// superpose sums the softened Coulomb field and potential of cs at p. Charge
// z is ignored unless is3D.
func superpose(cs []ChargeSpec, p r3.Vec, is3D bool, soft2 float64) (e r3.Vec, v float64) {
	for _, c := range cs {
		r := r3.Vec{X: p.X - c.X, Y: p.Y - c.Y}
		if is3D && c.Z != nil {
			r.Z = p.Z - *c.Z
		}
		r2 := r3.Dot(r, r) + soft2
		d := math.Sqrt(r2)
		e = r3.Add(e, r3.Scale(CoulombK*c.Q/(r2*d), r))
		v += CoulombK * c.Q / d
	}
	return e, v
}
