package solver

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fieldscope/field"
)

// outsidePenalty scales the squared normalized distance outside the grid.
const outsidePenalty = 1e3

// Null is a point of locally minimal field strength.
type Null struct {
	Point       r3.Vec
	Magnitude   float64
	Potential   float64
	Evaluations int
}

// FieldAt evaluates the request's charges at p without sampling a grid.
func FieldAt(req Request, p r3.Vec) (e r3.Vec, v float64) {
	return superpose(req.Charges, p, req.Dims() == 3, req.Softening*req.Softening)
}

// maxStarts bounds the number of Nelder-Mead runs in FindNull.
const maxStarts = 16

// FindNull searches the request's grid for a minimum of |E| with Nelder-Mead.
// The search is local, so it runs from start, the charge centroid, the
// midpoint of every charge pair and the grid centre, and keeps the weakest
// field found. Points outside the grid are clamped and penalized, so the
// result always lies inside it. maxEvals caps each run; <= 0 uses 2000.
func FindNull(req Request, start r3.Vec, maxEvals int) (Null, error) {
	g, err := req.Grid.Grid()
	if err != nil {
		return Null{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if len(req.Charges) == 0 {
		return Null{}, fmt.Errorf("%w: at least one charge is required", ErrInvalidRequest)
	}
	if maxEvals <= 0 {
		maxEvals = 2000
	}
	is3D := g.Is3D()

	point := func(x []float64) r3.Vec {
		p := r3.Vec{X: x[0], Y: x[1]}
		if is3D {
			p.Z = x[2]
		} else {
			p.Z = g.Center().Z
		}
		return p
	}
	objective := func(x []float64) float64 {
		p := point(x)
		c := g.Clamp(p)
		e, _ := FieldAt(req, c)
		f := math.Log(r3.Dot(e, e) + math.SmallestNonzeroFloat64)
		if d := outside(g, p, c); d > 0 {
			f += outsidePenalty * d
		}
		return f
	}

	var best Null
	found := false
	evals := 0
	var lastErr error
	for _, s := range nullStarts(g, req.Charges, start) {
		init := []float64{s.X, s.Y}
		if is3D {
			init = append(init, s.Z)
		}
		res, err := optimize.Minimize(
			optimize.Problem{Func: objective},
			init,
			&optimize.Settings{FuncEvaluations: maxEvals},
			&optimize.NelderMead{},
		)
		if res == nil {
			lastErr = err
			continue
		}
		evals += res.Stats.FuncEvaluations

		p := g.Clamp(point(res.X))
		e, v := FieldAt(req, p)
		n := Null{Point: p, Magnitude: r3.Norm(e), Potential: v}
		if !found || n.Magnitude < best.Magnitude {
			best, found = n, true
		}
	}
	if !found {
		return Null{}, fmt.Errorf("null search: %w", lastErr)
	}
	best.Evaluations = evals
	return best, nil
}

// nullStarts returns the distinct, clamped starting points for FindNull.
func nullStarts(g field.Grid, cs []ChargeSpec, start r3.Vec) []r3.Vec {
	pos := make([]r3.Vec, len(cs))
	var centroid r3.Vec
	for i, c := range cs {
		pos[i] = r3.Vec{X: c.X, Y: c.Y}
		if c.Z != nil {
			pos[i].Z = *c.Z
		}
		centroid = r3.Add(centroid, pos[i])
	}
	centroid = r3.Scale(1/float64(len(cs)), centroid)

	candidates := []r3.Vec{start, centroid}
	for i := range pos {
		for j := i + 1; j < len(pos); j++ {
			candidates = append(candidates, r3.Scale(0.5, r3.Add(pos[i], pos[j])))
		}
	}
	candidates = append(candidates, g.Center())

	var out []r3.Vec
	for _, c := range candidates {
		c = g.Clamp(c)
		if !g.Is3D() {
			c.Z = g.Center().Z
		}
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
		if len(out) == maxStarts-1 {
			break
		}
	}
	if center := g.Center(); !slices.Contains(out, center) {
		out = append(out, center)
	}
	return out
}

// outside returns the squared distance between p and its clamp c, normalized
// by the grid extents.
func outside(g field.Grid, p, c r3.Vec) float64 {
	d := r3.Sub(p, c)
	d.X /= g.X.Range()
	d.Y /= g.Y.Range()
	if g.Is3D() {
		d.Z /= g.Z.Range()
	}
	return r3.Dot(d, d)
}
