package field

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Probe is the result of sampling a field at a point. Scalar is NaN when
// there is no data at the point.
type Probe struct {
	Point     r3.Vec
	I, J, K   int
	Scalar    float64
	Vector    r3.Vec
	Magnitude float64
	OK        bool
}

// Nearest reads the sample closest to p. A point outside the grid on any axis
// yields a probe with OK false and a NaN scalar.
func Nearest(f *Field, p r3.Vec) Probe {
	g := f.grid
	n := g.Normalize(p)
	out := Probe{Point: p, Scalar: math.NaN(), Magnitude: math.NaN()}

	i, okX := NormalizedToIndex(n.X, g.NX())
	j, okY := NormalizedToIndex(n.Y, g.NY())
	k, okZ := 0, true
	if g.Is3D() {
		k, okZ = NormalizedToIndex(n.Z, g.NZ())
	}
	out.I, out.J, out.K = i, j, k
	if !okX || !okY || !okZ {
		return out
	}

	out.OK = true
	out.Scalar = f.Scalar(i, j, k)
	out.Vector = f.Vector(i, j, k)
	out.Magnitude = r3.Norm(out.Vector)
	return out
}

// Trilinear interpolates the potential at p inside a 3D field. It returns NaN
// when p is outside the grid, the field is 2D, or every contributing corner is
// non-finite. Non-finite corners are skipped in favour of their neighbour.
func Trilinear(f *Field, p r3.Vec) float64 {
	g := f.grid
	if !g.Is3D() || f.scalar == nil {
		return math.NaN()
	}

	i0, tx, ok := cell(g.X, p.X)
	if !ok {
		return math.NaN()
	}
	j0, ty, ok := cell(g.Y, p.Y)
	if !ok {
		return math.NaN()
	}
	k0, tz, ok := cell(g.Z, p.Z)
	if !ok {
		return math.NaN()
	}

	c000 := f.Scalar(i0, j0, k0)
	c100 := f.Scalar(i0+1, j0, k0)
	c010 := f.Scalar(i0, j0+1, k0)
	c110 := f.Scalar(i0+1, j0+1, k0)
	c001 := f.Scalar(i0, j0, k0+1)
	c101 := f.Scalar(i0+1, j0, k0+1)
	c011 := f.Scalar(i0, j0+1, k0+1)
	c111 := f.Scalar(i0+1, j0+1, k0+1)

	c00 := Lerp(c000, c100, tx)
	c10 := Lerp(c010, c110, tx)
	c01 := Lerp(c001, c101, tx)
	c11 := Lerp(c011, c111, tx)

	c0 := Lerp(c00, c10, ty)
	c1 := Lerp(c01, c11, ty)

	return Lerp(c0, c1, tz)
}

// ProbeAt samples f at p the way the measure tool reports it: nearest sample
// for the vector, trilinear potential in 3D when it is available.
func ProbeAt(f *Field, p r3.Vec) Probe {
	pr := Nearest(f, p)
	if !pr.OK || !f.grid.Is3D() {
		return pr
	}
	if v := Trilinear(f, p); isFinite(v) {
		pr.Scalar = v
	}
	return pr
}

// Lerp interpolates between a and b. If one operand is non-finite the other
// is returned unchanged; if both are, the result is NaN.
func Lerp(a, b, t float64) float64 {
	fa, fb := isFinite(a), isFinite(b)
	switch {
	case fa && fb:
		return a + (b-a)*t
	case fa:
		return a
	case fb:
		return b
	}
	return math.NaN()
}

// cell locates the lower sample index of the cell containing x and the
// fractional position inside it. A point on the upper face uses the last cell
// with fraction 1.
func cell(a Axis, x float64) (i int, t float64, ok bool) {
	if math.IsNaN(x) || x < a.Min || x > a.Max {
		return 0, 0, false
	}
	fx := (x - a.Min) / a.Step()
	i = int(math.Floor(fx))
	if i >= a.Count-1 {
		i = a.Count - 2
	}
	return i, fx - float64(i), true
}
