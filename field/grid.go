package field

import "gonum.org/v1/gonum/spatial/r3"

// Grid is a regular 2D or 3D sample lattice. Samples are stored slowest axis
// first: flat index (k*ny + j)*nx + i. A 2D grid has a single z layer.
type Grid struct {
	X, Y, Z Axis
	Dims    int
}

// NewGrid2D validates and returns a 2D grid.
func NewGrid2D(x, y Axis) (Grid, error) {
	g := Grid{X: x, Y: y, Dims: 2}
	if err := g.Validate(); err != nil {
		return Grid{}, err
	}
	return g, nil
}

// NewGrid3D validates and returns a 3D grid.
func NewGrid3D(x, y, z Axis) (Grid, error) {
	g := Grid{X: x, Y: y, Z: z, Dims: 3}
	if err := g.Validate(); err != nil {
		return Grid{}, err
	}
	return g, nil
}

// Validate checks every axis the grid uses.
func (g Grid) Validate() error {
	if g.Dims != 2 && g.Dims != 3 {
		return &InvalidGridError{Axis: "dims", Count: g.Dims, Reason: "grid must be 2D or 3D"}
	}
	if err := g.X.validate("x"); err != nil {
		return err
	}
	if err := g.Y.validate("y"); err != nil {
		return err
	}
	if g.Dims == 3 {
		return g.Z.validate("z")
	}
	return nil
}

// Is3D reports whether the grid has a z axis.
func (g Grid) Is3D() bool { return g.Dims == 3 }

func (g Grid) NX() int { return g.X.Count }
func (g Grid) NY() int { return g.Y.Count }

// NZ returns the number of z layers, 1 for a 2D grid.
func (g Grid) NZ() int {
	if g.Dims == 3 {
		return g.Z.Count
	}
	return 1
}

// Len returns the total number of samples.
func (g Grid) Len() int {
	return g.NX() * g.NY() * g.NZ()
}

// Index returns the flat sample index of (i, j, k).
func (g Grid) Index(i, j, k int) int {
	return (k*g.NY()+j)*g.NX() + i
}

// Point returns the world position of sample (i, j, k). z is 0 in 2D.
func (g Grid) Point(i, j, k int) r3.Vec {
	p := r3.Vec{X: g.X.Coord(i), Y: g.Y.Coord(j)}
	if g.Dims == 3 {
		p.Z = g.Z.Coord(k)
	}
	return p
}

// Normalize maps a world point into unit coordinates per axis. The z
// component is 0 in 2D.
func (g Grid) Normalize(p r3.Vec) r3.Vec {
	n := r3.Vec{X: g.X.Normalize(p.X), Y: g.Y.Normalize(p.Y)}
	if g.Dims == 3 {
		n.Z = g.Z.Normalize(p.Z)
	}
	return n
}

// Clamp restricts a point to the grid bounds. z is left alone in 2D.
func (g Grid) Clamp(p r3.Vec) r3.Vec {
	c := r3.Vec{X: g.X.Clamp(p.X), Y: g.Y.Clamp(p.Y), Z: p.Z}
	if g.Dims == 3 {
		c.Z = g.Z.Clamp(p.Z)
	}
	return c
}

// Contains reports whether a point lies inside the grid bounds.
func (g Grid) Contains(p r3.Vec) bool {
	if !g.X.Contains(p.X) || !g.Y.Contains(p.Y) {
		return false
	}
	return g.Dims != 3 || g.Z.Contains(p.Z)
}

// Center returns the middle of the grid box.
func (g Grid) Center() r3.Vec {
	c := r3.Vec{X: g.X.Center(), Y: g.Y.Center()}
	if g.Dims == 3 {
		c.Z = g.Z.Center()
	}
	return c
}

// Flatten returns the 2D grid spanned by the x and y axes.
func (g Grid) Flatten() Grid {
	return Grid{X: g.X, Y: g.Y, Dims: 2}
}
