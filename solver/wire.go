package solver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fieldscope/charges"
	"github.com/pthm-cable/fieldscope/field"
)

// Request is the body of POST /simulate/2d and /simulate/3d.
type Request struct {
	Charges          []ChargeSpec `json:"charges"`
	Grid             GridSpec     `json:"grid"`
	Softening        float64      `json:"softening"`
	IncludePotential bool         `json:"include_potential"`
}

// ChargeSpec is one point charge on the wire. Z is omitted in 2D.
type ChargeSpec struct {
	X float64  `json:"x"`
	Y float64  `json:"y"`
	Z *float64 `json:"z,omitempty"`
	Q float64  `json:"q"`
}

// GridSpec is the grid definition on the wire. The z fields are present only
// for 3D requests.
type GridSpec struct {
	XMin float64  `json:"xmin"`
	XMax float64  `json:"xmax"`
	YMin float64  `json:"ymin"`
	YMax float64  `json:"ymax"`
	ZMin *float64 `json:"zmin,omitempty"`
	ZMax *float64 `json:"zmax,omitempty"`
	NX   int      `json:"nx"`
	NY   int      `json:"ny"`
	NZ   *int     `json:"nz,omitempty"`
}

// Response is the solver's reply.
type Response struct {
	Grid  GridSpec  `json:"grid"`
	Field FieldData `json:"field"`
}

// FieldData carries the field layers as nested arrays, slowest axis first.
type FieldData struct {
	Ex        Layer  `json:"ex"`
	Ey        Layer  `json:"ey"`
	Ez        *Layer `json:"ez,omitempty"`
	Potential *Layer `json:"potential,omitempty"`
}

// NewRequest builds a request for the given charges and grid.
func NewRequest(cs []charges.Charge, g field.Grid, softening float64, includePotential bool) Request {
	req := Request{
		Charges:          make([]ChargeSpec, 0, len(cs)),
		Grid:             GridSpecFrom(g),
		Softening:        softening,
		IncludePotential: includePotential,
	}
	for _, c := range cs {
		spec := ChargeSpec{X: c.X, Y: c.Y, Q: c.Q}
		if g.Is3D() {
			z := c.Z
			spec.Z = &z
		}
		req.Charges = append(req.Charges, spec)
	}
	return req
}

// Dims returns 3 when the request carries a z axis, otherwise 2.
func (r Request) Dims() int {
	return r.Grid.Dims()
}

// Flatten returns the 2D version of a 3D request: z dropped from charges and grid.
func (r Request) Flatten() Request {
	out := r
	out.Grid.ZMin, out.Grid.ZMax, out.Grid.NZ = nil, nil, nil
	out.Charges = make([]ChargeSpec, len(r.Charges))
	for i, c := range r.Charges {
		c.Z = nil
		out.Charges[i] = c
	}
	return out
}

// GridSpecFrom converts a grid to its wire form.
func GridSpecFrom(g field.Grid) GridSpec {
	spec := GridSpec{
		XMin: g.X.Min, XMax: g.X.Max, NX: g.X.Count,
		YMin: g.Y.Min, YMax: g.Y.Max, NY: g.Y.Count,
	}
	if g.Is3D() {
		zmin, zmax, nz := g.Z.Min, g.Z.Max, g.Z.Count
		spec.ZMin, spec.ZMax, spec.NZ = &zmin, &zmax, &nz
	}
	return spec
}

// Dims returns 3 when nz is present.
func (s GridSpec) Dims() int {
	if s.NZ != nil {
		return 3
	}
	return 2
}

// Grid validates and converts the wire grid.
func (s GridSpec) Grid() (field.Grid, error) {
	x := field.Axis{Min: s.XMin, Max: s.XMax, Count: s.NX}
	y := field.Axis{Min: s.YMin, Max: s.YMax, Count: s.NY}
	if s.NZ == nil {
		return field.NewGrid2D(x, y)
	}
	z := field.Axis{Count: *s.NZ}
	if s.ZMin != nil {
		z.Min = *s.ZMin
	}
	if s.ZMax != nil {
		z.Max = *s.ZMax
	}
	return field.NewGrid3D(x, y, z)
}

// ToField converts the response into a field snapshot, checking every layer
// against the grid shape.
func (r *Response) ToField() (*field.Field, error) {
	g, err := r.Grid.Grid()
	if err != nil {
		return nil, fmt.Errorf("response grid: %w", err)
	}
	shape := []int{g.NY(), g.NX()}
	if g.Is3D() {
		shape = []int{g.NZ(), g.NY(), g.NX()}
	}

	check := func(name string, l *Layer) error {
		if !slices.Equal(l.Shape, shape) {
			return fmt.Errorf("%s has shape %v, want %v: %w", name, l.Shape, shape, field.ErrShapeMismatch)
		}
		return nil
	}
	if err := check("ex", &r.Field.Ex); err != nil {
		return nil, err
	}
	if err := check("ey", &r.Field.Ey); err != nil {
		return nil, err
	}
	if g.Is3D() {
		if r.Field.Ez == nil {
			return nil, fmt.Errorf("ez missing from 3D response: %w", field.ErrShapeMismatch)
		}
		if err := check("ez", r.Field.Ez); err != nil {
			return nil, err
		}
	}

	vector := make([]r3.Vec, g.Len())
	for i := range vector {
		vector[i] = r3.Vec{X: r.Field.Ex.Values[i], Y: r.Field.Ey.Values[i]}
		if r.Field.Ez != nil && g.Is3D() {
			vector[i].Z = r.Field.Ez.Values[i]
		}
	}

	var scalar []float64
	if r.Field.Potential != nil {
		if err := check("potential", r.Field.Potential); err != nil {
			return nil, err
		}
		scalar = r.Field.Potential.Values
	}
	return field.New(g, scalar, vector)
}

// Layer is a flat sample array with its nested shape, slowest axis first.
// Non-finite samples travel as JSON null.
type Layer struct {
	Shape  []int
	Values []float64
}

// NewLayer wraps values with a shape. The product of shape must equal len(values).
func NewLayer(values []float64, shape ...int) Layer {
	return Layer{Shape: shape, Values: values}
}

func (l Layer) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	var write func(depth, offset int) int
	write = func(depth, offset int) int {
		buf.WriteByte('[')
		for n := 0; n < l.Shape[depth]; n++ {
			if n > 0 {
				buf.WriteByte(',')
			}
			if depth == len(l.Shape)-1 {
				writeSample(&buf, l.Values[offset])
				offset++
			} else {
				offset = write(depth+1, offset)
			}
		}
		buf.WriteByte(']')
		return offset
	}
	if len(l.Shape) == 0 {
		return []byte("[]"), nil
	}
	write(0, 0)
	return buf.Bytes(), nil
}

func (l *Layer) UnmarshalJSON(data []byte) error {
	switch depth := nestingDepth(data); depth {
	case 2:
		var rows [][]sample
		if err := json.Unmarshal(data, &rows); err != nil {
			return err
		}
		l.Shape = []int{len(rows), rowWidth(rows)}
		l.Values = make([]float64, 0, l.Shape[0]*l.Shape[1])
		for _, row := range rows {
			if len(row) != l.Shape[1] {
				return fmt.Errorf("ragged layer: %w", field.ErrShapeMismatch)
			}
			l.Values = appendSamples(l.Values, row)
		}
	case 3:
		var planes [][][]sample
		if err := json.Unmarshal(data, &planes); err != nil {
			return err
		}
		nz, ny, nx := len(planes), 0, 0
		if nz > 0 {
			ny = len(planes[0])
			nx = rowWidth(planes[0])
		}
		l.Shape = []int{nz, ny, nx}
		l.Values = make([]float64, 0, nz*ny*nx)
		for _, plane := range planes {
			if len(plane) != ny {
				return fmt.Errorf("ragged layer: %w", field.ErrShapeMismatch)
			}
			for _, row := range plane {
				if len(row) != nx {
					return fmt.Errorf("ragged layer: %w", field.ErrShapeMismatch)
				}
				l.Values = appendSamples(l.Values, row)
			}
		}
	default:
		return fmt.Errorf("layer nesting depth %d, want 2 or 3: %w", depth, field.ErrShapeMismatch)
	}
	return nil
}

// sample decodes null as NaN.
type sample float64

func (s *sample) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = sample(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = sample(v)
	return nil
}

func writeSample(buf *bytes.Buffer, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		buf.WriteString("null")
		return
	}
	b, _ := json.Marshal(v)
	buf.Write(b)
}

func appendSamples(dst []float64, row []sample) []float64 {
	for _, s := range row {
		dst = append(dst, float64(s))
	}
	return dst
}

func rowWidth(rows [][]sample) int {
	if len(rows) == 0 {
		return 0
	}
	return len(rows[0])
}

// nestingDepth counts the leading brackets of a JSON array.
func nestingDepth(data []byte) int {
	depth := 0
	for _, b := range data {
		switch b {
		case '[':
			depth++
		case ' ', '\t', '\n', '\r':
		default:
			return depth
		}
	}
	return depth
}
