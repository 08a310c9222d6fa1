package renderer

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/pthm-cable/fieldscope/contour"
)

// PlotSurface renders onto an in-memory gonum/plot canvas for PNG export.
// Its DPI is 72 so one vg point is one pixel.
type PlotSurface struct {
	canvas *vgimg.Canvas
	dc     draw.Canvas
	w, h   float64
}

// NewPlotSurface creates a white canvas of w x h pixels.
func NewPlotSurface(w, h int) *PlotSurface {
	c := vgimg.NewWith(vgimg.UseWH(vg.Length(w), vg.Length(h)), vgimg.UseDPI(72), vgimg.UseBackgroundColor(color.White))
	return &PlotSurface{canvas: c, dc: draw.New(c), w: float64(w), h: float64(h)}
}

func (s *PlotSurface) Size() (w, h float64) { return s.w, s.h }

// Capabilities reports no 3D support; PNG export covers the 2D view.
func (s *PlotSurface) Capabilities() contour.Capabilities {
	return contour.Capabilities{}
}

// pt flips y: the canvas origin is bottom left.
func (s *PlotSurface) pt(x, y float64) vg.Point {
	return vg.Point{X: vg.Length(x), Y: vg.Length(s.h - y)}
}

func (s *PlotSurface) rectPath(x, y, w, h float64) vg.Path {
	var p vg.Path
	p.Move(s.pt(x, y))
	p.Line(s.pt(x+w, y))
	p.Line(s.pt(x+w, y+h))
	p.Line(s.pt(x, y+h))
	p.Close()
	return p
}

func (s *PlotSurface) FillRect(x, y, w, h float64, c color.RGBA) {
	s.canvas.SetColor(c)
	s.canvas.Fill(s.rectPath(x, y, w, h))
}

func (s *PlotSurface) StrokeRect(x, y, w, h, width float64, c color.RGBA) {
	s.canvas.SetColor(c)
	s.canvas.SetLineWidth(vg.Length(width))
	s.canvas.Stroke(s.rectPath(x, y, w, h))
}

func (s *PlotSurface) Line(x0, y0, x1, y1, width float64, c color.RGBA) {
	var p vg.Path
	p.Move(s.pt(x0, y0))
	p.Line(s.pt(x1, y1))
	s.canvas.SetColor(c)
	s.canvas.SetLineWidth(vg.Length(width))
	s.canvas.Stroke(p)
}

func (s *PlotSurface) circle(x, y, r float64) vg.Path {
	var p vg.Path
	center := s.pt(x, y)
	p.Move(vg.Point{X: center.X + vg.Length(r), Y: center.Y})
	p.Arc(center, vg.Length(r), 0, 2*math.Pi)
	p.Close()
	return p
}

func (s *PlotSurface) Disc(x, y, r float64, c color.RGBA) {
	s.canvas.SetColor(c)
	s.canvas.Fill(s.circle(x, y, r))
}

func (s *PlotSurface) Ring(x, y, r, width float64, c color.RGBA) {
	s.canvas.SetColor(c)
	s.canvas.SetLineWidth(vg.Length(width))
	s.canvas.Stroke(s.circle(x, y, r))
}

func (s *PlotSurface) Text(x, y float64, text string, size float64, c color.RGBA) {
	sty := draw.TextStyle{
		Color:   c,
		Font:    font.From(plot.DefaultFont, vg.Length(size)),
		XAlign:  draw.XLeft,
		YAlign:  draw.YTop,
		Handler: plot.DefaultTextHandler,
	}
	s.dc.FillText(sty, s.pt(x, y), text)
}

// WriteTo encodes the canvas as PNG.
func (s *PlotSurface) WriteTo(w io.Writer) (int64, error) {
	return vgimg.PngCanvas{Canvas: s.canvas}.WriteTo(w)
}

// SavePNG writes the canvas to path.
func (s *PlotSurface) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	if _, err := s.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}
