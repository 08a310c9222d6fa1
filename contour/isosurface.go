package contour

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fieldscope/field"
)

// Level is one isosurface threshold.
type Level struct {
	Value      float64 // Potential
	Normalized float64 // Position within the field's finite range, [0,1]
}

// Triangle is one mesh face in world coordinates.
type Triangle [3]r3.Vec

// Isosurface is the geometry extracted for one level. Exactly one of
// Triangles and Points is populated, depending on the extractor.
type Isosurface struct {
	Level
	Hue       float64
	Triangles []Triangle
	Points    []r3.Vec
}

// Empty reports whether the surface produced no geometry.
func (s Isosurface) Empty() bool {
	return len(s.Triangles) == 0 && len(s.Points) == 0
}

// Extractor turns a 3D field into isosurfaces.
type Extractor interface {
	Name() string
	Extract(f *field.Field, levels []Level) []Isosurface
}

// Capabilities describes what a drawing surface can show.
type Capabilities struct {
	Mesh bool // Filled triangles in 3D
}

// SelectExtractor picks the isosurface strategy for a surface. It is called
// once at startup; the choice does not change per frame.
func SelectExtractor(caps Capabilities, preferMesh bool, tolerance, epsilon float64) Extractor {
	if caps.Mesh && preferMesh {
		return MeshExtractor{}
	}
	return PointCloudExtractor{Tolerance: tolerance, Epsilon: epsilon}
}

// Levels returns n thresholds at normalized positions (m+base)/(n+base+1),
// m = 0..n-1, denormalized over the field's finite potential range.
func Levels(f *field.Field, n, base int) []Level {
	min, max, ok := f.ScalarRange()
	if !ok || n < 1 {
		return nil
	}
	out := make([]Level, 0, n)
	for m := 0; m < n; m++ {
		t := float64(m+base) / float64(n+base+1)
		out = append(out, Level{Value: min + (max-min)*t, Normalized: t})
	}
	return out
}

// LevelAt returns the single level at normalized position t, as driven by the
// threshold slider.
func LevelAt(f *field.Field, t float64) (Level, bool) {
	min, max, ok := f.ScalarRange()
	if !ok {
		return Level{}, false
	}
	t = math.Max(0, math.Min(1, t))
	return Level{Value: min + (max-min)*t, Normalized: t}, true
}

// PointCloudExtractor returns every sample whose value is within a relative
// tolerance band of the threshold: |val - v| < |v|*Tolerance + Epsilon.
type PointCloudExtractor struct {
	Tolerance float64
	Epsilon   float64
}

func (PointCloudExtractor) Name() string { return "points" }

func (e PointCloudExtractor) Extract(f *field.Field, levels []Level) []Isosurface {
	if !f.HasScalar() {
		return nil
	}
	g := f.Grid()
	out := make([]Isosurface, 0, len(levels))
	for _, lv := range levels {
		s := Isosurface{Level: lv, Hue: lv.Normalized * 360}
		band := math.Abs(lv.Value)*e.Tolerance + e.Epsilon
		for k := 0; k < g.NZ(); k++ {
			for j := 0; j < g.NY(); j++ {
				for i := 0; i < g.NX(); i++ {
					v := f.Scalar(i, j, k)
					if finite(v) && math.Abs(v-lv.Value) < band {
						s.Points = append(s.Points, g.Point(i, j, k))
					}
				}
			}
		}
		out = append(out, s)
	}
	return out
}

// MeshExtractor builds triangle meshes by marching tetrahedra. Each grid cube
// is split into six tetrahedra around its main diagonal so the result has no
// ambiguous cases. Vertices are placed in world coordinates.
type MeshExtractor struct{}

func (MeshExtractor) Name() string { return "mesh" }

// cubeCorners are the unit offsets of a cube's eight corners.
var cubeCorners = [8][3]int{
	{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
}

// cubeTetrahedra share the diagonal from corner 0 to corner 6.
var cubeTetrahedra = [6][4]int{
	{0, 5, 1, 6},
	{0, 1, 2, 6},
	{0, 2, 3, 6},
	{0, 3, 7, 6},
	{0, 7, 4, 6},
	{0, 4, 5, 6},
}

func (MeshExtractor) Extract(f *field.Field, levels []Level) []Isosurface {
	g := f.Grid()
	if !f.HasScalar() || !g.Is3D() {
		return nil
	}
	out := make([]Isosurface, 0, len(levels))
	for _, lv := range levels {
		s := Isosurface{Level: lv, Hue: lv.Normalized * 360}
		var pos [8]r3.Vec
		var val [8]float64
		for k := 0; k < g.NZ()-1; k++ {
			for j := 0; j < g.NY()-1; j++ {
				for i := 0; i < g.NX()-1; i++ {
					usable := true
					for c, o := range cubeCorners {
						val[c] = f.Scalar(i+o[0], j+o[1], k+o[2])
						if !finite(val[c]) {
							usable = false
							break
						}
						pos[c] = g.Point(i+o[0], j+o[1], k+o[2])
					}
					if !usable {
						continue
					}
					for _, tet := range cubeTetrahedra {
						s.Triangles = marchTetrahedron(s.Triangles, lv.Value, tet, &pos, &val)
					}
				}
			}
		}
		out = append(out, s)
	}
	return out
}

// marchTetrahedron appends the faces of the level set v inside one tetrahedron.
func marchTetrahedron(tris []Triangle, v float64, tet [4]int, pos *[8]r3.Vec, val *[8]float64) []Triangle {
	var in, outside [4]int
	nIn, nOut := 0, 0
	for _, c := range tet {
		if val[c] < v {
			in[nIn] = c
			nIn++
		} else {
			outside[nOut] = c
			nOut++
		}
	}

	edge := func(a, b int) r3.Vec {
		t := (v - val[a]) / (val[b] - val[a])
		return r3.Add(pos[a], r3.Scale(t, r3.Sub(pos[b], pos[a])))
	}

	switch nIn {
	case 1:
		a := in[0]
		return append(tris, Triangle{edge(a, outside[0]), edge(a, outside[1]), edge(a, outside[2])})
	case 3:
		a := outside[0]
		return append(tris, Triangle{edge(in[0], a), edge(in[1], a), edge(in[2], a)})
	case 2:
		a, b := in[0], in[1]
		c, d := outside[0], outside[1]
		ac, ad, bd, bc := edge(a, c), edge(a, d), edge(b, d), edge(b, c)
		return append(tris, Triangle{ac, ad, bd}, Triangle{ac, bd, bc})
	}
	return tris
}

// HeatPoint is one sample of the 3D heatmap cloud.
type HeatPoint struct {
	Point r3.Vec
	T     float64 // Normalized potential
}

// HeatmapStride returns the default sampling stride for a grid:
// max(1, min(nx, ny, nz)/divisor).
func HeatmapStride(g field.Grid, divisor int) int {
	if divisor < 1 {
		return 1
	}
	return max(1, min(g.NX(), g.NY(), g.NZ())/divisor)
}

// Heatmap samples every stride-th grid point on each axis and normalizes its
// potential over the finite range. Non-finite samples are skipped.
func Heatmap(f *field.Field, stride int) []HeatPoint {
	lo, hi, ok := f.ScalarRange()
	if !ok {
		return nil
	}
	if stride < 1 {
		stride = 1
	}
	span := hi - lo
	g := f.Grid()
	var out []HeatPoint
	for k := 0; k < g.NZ(); k += stride {
		for j := 0; j < g.NY(); j += stride {
			for i := 0; i < g.NX(); i += stride {
				v := f.Scalar(i, j, k)
				if !finite(v) {
					continue
				}
				t := 0.0
				if span > 0 {
					t = (v - lo) / span
				}
				out = append(out, HeatPoint{Point: g.Point(i, j, k), T: t})
			}
		}
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
