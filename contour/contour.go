// Package contour extracts equipotential geometry from a solved field: 2D
// cell-crossing contours with labels, and 3D isosurfaces.
package contour

import (
	"fmt"
	"math"

	"github.com/pthm-cable/fieldscope/field"
)

// Cell is the lower-left sample index of a 2x2 cell.
type Cell struct {
	I, J int
}

// Contour is the set of cells a single iso-value passes through.
type Contour struct {
	Value float64
	Hue   float64 // Degrees, positioned by value within the field range
	Cells []Cell
}

// Label marks where a contour's value is printed.
type Label struct {
	Contour int // Index into the contour slice
	Cell    Cell
	Text    string
}

// Crosses reports whether v lies strictly between the finite corner values:
// at least one corner below and one above. Corners equal to v and non-finite
// corners count for neither side.
func Crosses(corners []float64, v float64) bool {
	var lower, higher bool
	for _, c := range corners {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			continue
		}
		if c < v {
			lower = true
		} else if c > v {
			higher = true
		}
	}
	return lower && higher
}

// Extract returns every cell of the 2D layer f that v passes through, in
// row-major order. A 3D field contributes its k=0 layer; callers pick a
// layer with field.Slice first.
func Extract(f *field.Field, v float64) Contour {
	c := Contour{Value: v}
	if !f.HasScalar() {
		return c
	}
	g := f.Grid()
	var corners [4]float64
	for j := 0; j < g.NY()-1; j++ {
		for i := 0; i < g.NX()-1; i++ {
			corners[0] = f.Scalar(i, j, 0)
			corners[1] = f.Scalar(i+1, j, 0)
			corners[2] = f.Scalar(i, j+1, 0)
			corners[3] = f.Scalar(i+1, j+1, 0)
			if Crosses(corners[:], v) {
				c.Cells = append(c.Cells, Cell{I: i, J: j})
			}
		}
	}
	return c
}

// Bands returns the n-1 interior boundaries of n equal-width bands over
// [min, max]. It returns nil for a degenerate range or n < 2.
func Bands(min, max float64, n int) []float64 {
	if !(max > min) || n < 2 {
		return nil
	}
	out := make([]float64, 0, n-1)
	for b := 1; b < n; b++ {
		out = append(out, min+(max-min)*float64(b)/float64(n))
	}
	return out
}

// ExtractBands contours f at the boundaries of n equal-width bands over its
// finite potential range. Each contour's hue is its position in that range.
func ExtractBands(f *field.Field, n int) []Contour {
	min, max, ok := f.ScalarRange()
	if !ok {
		return nil
	}
	values := Bands(min, max, n)
	out := make([]Contour, 0, len(values))
	for _, v := range values {
		c := Extract(f, v)
		c.Hue = Hue(v, min, max)
		out = append(out, c)
	}
	return out
}

// Hue returns the legend hue in degrees for value v within [min, max].
func Hue(v, min, max float64) float64 {
	if !(max > min) {
		return 0
	}
	return (v - min) / (max - min) * 360
}

// LabelText formats a potential for display.
func LabelText(v float64) string {
	return fmt.Sprintf("%.1fV", v)
}

// PlaceLabels picks one label cell per contour: the first crossing cell in
// row-major order within the central window of rows [ny/2-halfHeight,
// ny/2+halfHeight) and columns [nx/3, 2nx/3). Contours that never cross the
// window get no label.
func PlaceLabels(f *field.Field, contours []Contour, halfHeight int) []Label {
	if !f.HasScalar() {
		return nil
	}
	g := f.Grid()
	nx, ny := g.NX(), g.NY()
	j0, j1 := max(0, ny/2-halfHeight), min(ny-1, ny/2+halfHeight)
	i0, i1 := nx/3, min(nx-1, 2*nx/3)

	var labels []Label
	var corners [4]float64
	for ci, c := range contours {
	search:
		for j := j0; j < j1; j++ {
			for i := i0; i < i1; i++ {
				corners[0] = f.Scalar(i, j, 0)
				corners[1] = f.Scalar(i+1, j, 0)
				corners[2] = f.Scalar(i, j+1, 0)
				corners[3] = f.Scalar(i+1, j+1, 0)
				if Crosses(corners[:], c.Value) {
					labels = append(labels, Label{Contour: ci, Cell: Cell{I: i, J: j}, Text: LabelText(c.Value)})
					break search
				}
			}
		}
	}
	return labels
}
