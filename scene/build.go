package scene

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fieldscope/camera"
	"github.com/pthm-cable/fieldscope/charges"
	"github.com/pthm-cable/fieldscope/contour"
	"github.com/pthm-cable/fieldscope/field"
	"github.com/pthm-cable/fieldscope/interaction"
)

// Options are the display toggles. 2D uses the first four, 3D the last three.
type Options struct {
	ShowFieldLines       bool // 2D field arrows
	ShowPotential        bool // 2D potential heatmap
	ShowEquipotential    bool // 2D contour bands with labels
	ShowFieldVectors     bool // 3D field vectors
	ShowPotentialSurface bool // 3D isosurfaces
	ShowHeatmap          bool // 3D potential point cloud
}

// DefaultOptions returns the documented display defaults.
func DefaultOptions() Options {
	return Options{
		ShowFieldLines:   true,
		ShowPotential:    true,
		ShowFieldVectors: true,
	}
}

// Params tunes geometry density.
type Params struct {
	Bands           int     // Contour bands over the potential range
	LabelHalfHeight int     // Rows either side of the middle searched for labels
	ArrowDivisions  int     // 2D arrows every nx/ArrowDivisions samples
	ArrowLength     float64 // 2D arrow length in pixels
	Surfaces        int     // 3D isosurface count
	BaseIndex       int     // Offset of the first isosurface level
	HeatmapDivisor  int     // 3D heatmap stride divisor
	VectorDivisions int     // 3D vectors every min(n)/VectorDivisions samples
}

// DefaultParams returns the stock density settings.
func DefaultParams() Params {
	return Params{
		Bands:           8,
		LabelHalfHeight: 5,
		ArrowDivisions:  12,
		ArrowLength:     15,
		Surfaces:        5,
		BaseIndex:       1,
		HeatmapDivisor:  32,
		VectorDivisions: 8,
	}
}

// Builder turns a session snapshot into scene primitives.
type Builder struct {
	Params    Params
	Extractor contour.Extractor // Chosen once from the surface capabilities
}

// NewBuilder creates a builder. A nil extractor falls back to point clouds.
func NewBuilder(p Params, ext contour.Extractor) *Builder {
	if ext == nil {
		ext = contour.PointCloudExtractor{Tolerance: 0.08, Epsilon: 1e-6}
	}
	return &Builder{Params: p, Extractor: ext}
}

// Build clears s and fills it from snap. 2D geometry is projected through
// cam; 3D geometry stays in world coordinates.
func (b *Builder) Build(s *Scene, snap interaction.Snapshot, opts Options, cam *camera.Camera) {
	s.Clear()

	g := snap.Grid
	if snap.Field != nil {
		g = snap.Field.Grid()
	} else if snap.GridErr != nil {
		return
	}

	if g.Is3D() {
		b.build3D(s, snap, g, opts, cam)
		return
	}
	b.build2D(s, snap, g, opts, cam)
}

func (b *Builder) build2D(s *Scene, snap interaction.Snapshot, g field.Grid, opts Options, cam *camera.Camera) {
	f := snap.Field
	if f != nil && f.HasScalar() {
		if opts.ShowPotential {
			b.heatmap2D(s, f, cam)
		}
		if opts.ShowEquipotential {
			b.contours2D(s, f, cam)
		}
		if snap.Mode == interaction.ModeEquipotential && snap.Iso != nil {
			hl := contour.Extract(f, snap.Iso.Value)
			b.cells(s, LayerHighlight, f.Grid(), hl.Cells, cam, Style{Color: WithAlpha(Gold, 230), Width: 4})
		}
	}
	if f != nil && opts.ShowFieldLines {
		b.arrows2D(s, f, cam)
	}

	b.charges2D(s, snap, cam)

	x, y, w, h := cam.WorldRect(g.X.Min, g.Y.Min, g.X.Max, g.Y.Max)
	s.Add(LayerGrid, Rect(x, y, w, h), Style{Color: GridGray, Width: 2})

	if snap.Mode == interaction.ModeMeasure && snap.Probe != nil {
		probePanel2D(s, snap.Probe, cam)
	}
	if snap.Mode == interaction.ModeEquipotential && snap.Iso != nil {
		isoPanel2D(s, snap.Iso, cam)
	}
}

func (b *Builder) heatmap2D(s *Scene, f *field.Field, cam *camera.Camera) {
	lo, hi, ok := f.ScalarRange()
	if !ok {
		return
	}
	g := f.Grid()
	hx, hy := g.X.Step()/2, g.Y.Step()/2
	for j := 0; j < g.NY(); j++ {
		for i := 0; i < g.NX(); i++ {
			v := f.Scalar(i, j, 0)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			p := g.Point(i, j, 0)
			x0, x1 := g.X.Clamp(p.X-hx), g.X.Clamp(p.X+hx)
			y0, y1 := g.Y.Clamp(p.Y-hy), g.Y.Clamp(p.Y+hy)
			x, y, w, h := cam.WorldRect(x0, y0, x1, y1)
			t := (v - lo) / (hi - lo + 1e-10)
			s.Add(LayerBackground, Rect(x, y, w, h), Style{Color: Diverging(t), Filled: true})
		}
	}
}

func (b *Builder) contours2D(s *Scene, f *field.Field, cam *camera.Camera) {
	contours := contour.ExtractBands(f, b.Params.Bands)
	g := f.Grid()
	for _, c := range contours {
		b.cells(s, LayerContour, g, c.Cells, cam, Style{Color: WithAlpha(HSL(c.Hue, 1, 0.4), 128), Width: 1.5})
	}

	const size, pad = 11.0, 4.0
	for _, l := range contour.PlaceLabels(f, contours, b.Params.LabelHalfHeight) {
		col := HSL(contours[l.Contour].Hue, 1, 0.4)
		a, c := g.Point(l.Cell.I, l.Cell.J, 0), g.Point(l.Cell.I+1, l.Cell.J+1, 0)
		cx, cy := cam.WorldToScreen((a.X+c.X)/2, (a.Y+c.Y)/2)
		w := TextWidth(l.Text, size)
		bx, by, bw, bh := cx-w/2-pad, cy-size/2-pad, w+2*pad, size+2*pad
		s.Add(LayerPanel, Rect(bx, by, bw, bh), Style{Color: LabelFill, Filled: true})
		s.Add(LayerPanel, Rect(bx, by, bw, bh), Style{Color: col, Width: 1.5})
		s.Add(LayerText, Text(cx-w/2, cy-size/2, l.Text, size), Style{Color: col})
	}
}

// cells outlines each contour cell.
func (b *Builder) cells(s *Scene, layer Layer, g field.Grid, cells []contour.Cell, cam *camera.Camera, st Style) {
	for _, c := range cells {
		p0, p1 := g.Point(c.I, c.J, 0), g.Point(c.I+1, c.J+1, 0)
		x, y, w, h := cam.WorldRect(p0.X, p0.Y, p1.X, p1.Y)
		s.Add(layer, Rect(x, y, w, h), st)
	}
}

func (b *Builder) arrows2D(s *Scene, f *field.Field, cam *camera.Camera) {
	g := f.Grid()
	step := 1
	if b.Params.ArrowDivisions > 0 {
		step = max(1, g.NX()/b.Params.ArrowDivisions)
	}
	length := b.Params.ArrowLength
	st := Style{Color: ArrowShade, Width: 1.5}
	for j := 0; j < g.NY(); j += step {
		for i := 0; i < g.NX(); i += step {
			e := f.Vector(i, j, 0)
			mag := math.Hypot(e.X, e.Y)
			if !(mag >= 1e-10) || math.IsInf(mag, 0) {
				continue
			}
			dx, dy := e.X/mag*length, e.Y/mag*length
			if cam.YUp {
				dy = -dy
			}
			p := g.Point(i, j, 0)
			px, py := cam.WorldToScreen(p.X, p.Y)
			tx, ty := px+dx, py+dy
			s.Add(LayerArrow, Line(px, py, tx, ty), st)

			angle := math.Atan2(dy, dx)
			const head = 8.0
			for _, side := range [2]float64{-math.Pi / 6, math.Pi / 6} {
				s.Add(LayerArrow, Line(tx, ty, tx-head*math.Cos(angle+side), ty-head*math.Sin(angle+side)), st)
			}
		}
	}
}

func (b *Builder) charges2D(s *Scene, snap interaction.Snapshot, cam *camera.Camera) {
	const radius, size = 22.0, 32.0
	for _, c := range snap.Charges {
		x, y := cam.WorldToScreen(c.X, c.Y)
		s.Add(LayerCharge, Disc(x, y, radius), Style{Color: chargeColor(c), Filled: true})
		ring := Black
		if snap.Dragging && snap.DragID == c.ID {
			ring = Gold
		}
		s.Add(LayerCharge, Ring(x, y, radius), Style{Color: ring, Width: 3})
		sign := chargeSign(c)
		s.Add(LayerText, Text(x-TextWidth(sign, size)/2, y-size/2, sign, size), Style{Color: White})
	}
}

func probePanel2D(s *Scene, p *interaction.Probe, cam *camera.Camera) {
	x, y := cam.WorldToScreen(p.Point.X, p.Point.Y)
	st := Style{Color: ProbeRed, Width: 2}
	s.Add(LayerMarker, Line(x-20, y, x+20, y), st)
	s.Add(LayerMarker, Line(x, y-20, x, y+20), st)

	title := "Position"
	if p.Stale {
		title = "Position (stale)"
	}
	panel(s, x+25, y-50, 220, 100, PanelWhite, PanelBorder, []panelLine{
		{title, 12},
		{fmt.Sprintf("X: %.3f m", p.Point.X), 11},
		{fmt.Sprintf("Y: %.3f m", p.Point.Y), 11},
		{"Field Values", 12},
		{fmt.Sprintf("E: %.2f V/m", p.Magnitude), 11},
		{"V: " + volts(p.Scalar), 11},
	})
}

func isoPanel2D(s *Scene, iso *interaction.IsoPick, cam *camera.Camera) {
	x, y := cam.WorldToScreen(iso.Point.X, iso.Point.Y)
	s.Add(LayerMarker, Ring(x, y, 25), Style{Color: Gold, Width: 3})
	s.Add(LayerMarker, Ring(x, y, 20), Style{Color: White, Width: 2})
	s.Add(LayerMarker, Line(x-40, y, x+40, y), Style{Color: Gold, Width: 2})
	s.Add(LayerMarker, Line(x, y-40, x, y+40), Style{Color: Gold, Width: 2})
	s.Add(LayerMarker, Disc(x, y, 5), Style{Color: Gold, Filled: true})

	panel(s, x+45, y-35, 180, 70, PanelGold, Black, []panelLine{
		{"Equipotential Line", 13},
		{fmt.Sprintf("V = %.2f V", iso.Value), 12},
		{fmt.Sprintf("X: %.3f m", iso.Point.X), 11},
		{fmt.Sprintf("Y: %.3f m", iso.Point.Y), 11},
	})
}

func (b *Builder) build3D(s *Scene, snap interaction.Snapshot, g field.Grid, opts Options, cam *camera.Camera) {
	f := snap.Field
	if f != nil && f.HasScalar() {
		if opts.ShowHeatmap {
			for _, hp := range contour.Heatmap(f, contour.HeatmapStride(g, b.Params.HeatmapDivisor)) {
				s.Add(LayerBackground, Point3(hp.Point, 2), Style{Color: WithAlpha(Heat(hp.T), 200), Filled: true})
			}
		}
		if opts.ShowPotentialSurface {
			b.surfaces(s, f, contour.Levels(f, b.Params.Surfaces, b.Params.BaseIndex), false)
			if lv, ok := b.highlightLevel(f, snap); ok {
				b.surfaces(s, f, []contour.Level{lv}, true)
			}
		}
	}
	if f != nil && opts.ShowFieldVectors {
		b.vectors3D(s, f)
	}

	for _, c := range snap.Charges {
		s.Add(LayerCharge, Point3(c.Pos(), 10), Style{Color: chargeColor(c), Filled: true})
	}
	gridBox3D(s, g)

	if snap.Mode == interaction.ModeMeasure && snap.Probe != nil {
		p := snap.Probe
		s.Add(LayerMarker, Point3(p.Point, 6), Style{Color: ProbeRed, Filled: true})
		title := "Probe"
		if p.Stale {
			title = "Probe (stale)"
		}
		panel(s, cam.OffsetX+10, cam.OffsetY+10, 220, 100, PanelWhite, PanelBorder, []panelLine{
			{title, 12},
			{fmt.Sprintf("X: %.3f  Y: %.3f  Z: %.3f", p.Point.X, p.Point.Y, p.Point.Z), 11},
			{fmt.Sprintf("E: %.3e V/m", p.Magnitude), 11},
			{"V: " + volts(p.Scalar), 11},
		})
	}
	if snap.Mode == interaction.ModeEquipotential && snap.Iso != nil {
		s.Add(LayerMarker, Point3(snap.Iso.Point, 6), Style{Color: Gold, Filled: true})
		panel(s, cam.OffsetX+10, cam.OffsetY+10, 180, 50, PanelGold, Black, []panelLine{
			{"Equipotential Surface", 13},
			{fmt.Sprintf("V = %.2f V", snap.Iso.Value), 12},
		})
	}
}

// highlightLevel is the picked equipotential if any, otherwise the slider level.
func (b *Builder) highlightLevel(f *field.Field, snap interaction.Snapshot) (contour.Level, bool) {
	if snap.Iso != nil {
		lo, hi, ok := f.ScalarRange()
		if !ok {
			return contour.Level{}, false
		}
		t := 0.0
		if hi > lo {
			t = (snap.Iso.Value - lo) / (hi - lo)
		}
		return contour.Level{Value: snap.Iso.Value, Normalized: t}, true
	}
	return contour.LevelAt(f, snap.Threshold)
}

func (b *Builder) surfaces(s *Scene, f *field.Field, levels []contour.Level, highlight bool) {
	for _, surf := range b.Extractor.Extract(f, levels) {
		layer, col := LayerContour, WithAlpha(HSL(surf.Hue, 0.8, 0.5), 140)
		if highlight {
			layer, col = LayerHighlight, WithAlpha(Gold, 200)
		}
		st := Style{Color: col, Filled: true}
		for _, t := range surf.Triangles {
			s.Add(layer, Triangle3(t[0], t[1], t[2]), st)
		}
		for _, p := range surf.Points {
			s.Add(layer, Point3(p, 3), st)
		}
	}
}

func (b *Builder) vectors3D(s *Scene, f *field.Field) {
	g := f.Grid()
	step := 1
	if b.Params.VectorDivisions > 0 {
		step = max(1, min(g.NX(), g.NY(), g.NZ())/b.Params.VectorDivisions)
	}
	length := 0.3 * min(g.X.Step(), g.Y.Step(), g.Z.Step())
	for k := 0; k < g.NZ(); k += step {
		for j := 0; j < g.NY(); j += step {
			for i := 0; i < g.NX(); i += step {
				e := f.Vector(i, j, k)
				mag := r3.Norm(e)
				if !(mag >= 1e-10) || math.IsInf(mag, 0) {
					continue
				}
				p := g.Point(i, j, k)
				tip := r3.Add(p, r3.Scale(length/mag, e))
				col := Magnitude(math.Log10(mag + 1))
				s.Add(LayerArrow, Line3(p, tip), Style{Color: col, Width: 1})
				s.Add(LayerArrow, Point3(tip, 2), Style{Color: col, Filled: true})
			}
		}
	}
}

func gridBox3D(s *Scene, g field.Grid) {
	xs := [2]float64{g.X.Min, g.X.Max}
	ys := [2]float64{g.Y.Min, g.Y.Max}
	zs := [2]float64{g.Z.Min, g.Z.Max}
	corner := func(i, j, k int) r3.Vec { return r3.Vec{X: xs[i], Y: ys[j], Z: zs[k]} }
	st := Style{Color: GridGray, Width: 1}
	for a := 0; a < 2; a++ {
		for c := 0; c < 2; c++ {
			s.Add(LayerGrid, Line3(corner(0, a, c), corner(1, a, c)), st)
			s.Add(LayerGrid, Line3(corner(a, 0, c), corner(a, 1, c)), st)
			s.Add(LayerGrid, Line3(corner(a, c, 0), corner(a, c, 1)), st)
		}
	}
}

type panelLine struct {
	text string
	size float64
}

// panel draws a filled, outlined box with one text line per entry.
func panel(s *Scene, x, y, w, h float64, fill, border color.RGBA, lines []panelLine) {
	s.Add(LayerPanel, Rect(x, y, w, h), Style{Color: fill, Filled: true})
	s.Add(LayerPanel, Rect(x, y, w, h), Style{Color: border, Width: 1})
	ty := y + 6
	for _, l := range lines {
		s.Add(LayerText, Text(x+10, ty, l.text, l.size), Style{Color: Black})
		ty += l.size + 4
	}
}

// TextWidth estimates the pixel width of s at a font size.
func TextWidth(s string, size float64) float64 {
	return float64(len(s)) * size * 0.6
}

func chargeColor(c charges.Charge) color.RGBA {
	if c.Q > 0 {
		return PositiveRed
	}
	return NegativeBlue
}

func chargeSign(c charges.Charge) string {
	if c.Q > 0 {
		return "+"
	}
	return "-"
}

func volts(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f V", v)
}
