package renderer

import (
	"fmt"
	"image/color"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fieldscope/contour"
)

// maxScatterPoints bounds the page size; denser scenes are strided.
const maxScatterPoints = 60000

// ScatterSurface collects the world-space primitives of a scene as colored
// points and renders them as an interactive 3D scatter page. Triangles
// contribute their centroids and lines their endpoints. 2D overlays are
// ignored.
type ScatterSurface struct {
	Title    string
	Subtitle string
	points   []opts.Chart3DData
}

// NewScatterSurface creates an empty export surface.
func NewScatterSurface(title string) *ScatterSurface {
	return &ScatterSurface{Title: title}
}

func (s *ScatterSurface) Size() (w, h float64) { return 900, 900 }

// Capabilities reports no mesh support so isosurfaces export as point clouds.
func (s *ScatterSurface) Capabilities() contour.Capabilities {
	return contour.Capabilities{}
}

func (s *ScatterSurface) FillRect(x, y, w, h float64, c color.RGBA) {}
func (s *ScatterSurface) StrokeRect(x, y, w, h, width float64, c color.RGBA) {}
func (s *ScatterSurface) Line(x0, y0, x1, y1, width float64, c color.RGBA) {}
func (s *ScatterSurface) Disc(x, y, r float64, c color.RGBA) {}
func (s *ScatterSurface) Ring(x, y, r, width float64, c color.RGBA) {}
func (s *ScatterSurface) Text(x, y float64, text string, size float64, c color.RGBA) {}

func (s *ScatterSurface) Begin3D() {}
func (s *ScatterSurface) End3D() {}

func (s *ScatterSurface) Point3(p r3.Vec, size float64, c color.RGBA) {
	s.add(p, c)
}

func (s *ScatterSurface) Line3(a, b r3.Vec, c color.RGBA) {
	s.add(a, c)
	s.add(b, c)
}

func (s *ScatterSurface) Triangle3(a, b, c r3.Vec, col color.RGBA) {
	s.add(r3.Scale(1.0/3, r3.Add(r3.Add(a, b), c)), col)
}

func (s *ScatterSurface) add(p r3.Vec, c color.RGBA) {
	s.points = append(s.points, opts.Chart3DData{
		Value:     []interface{}{p.X, p.Y, p.Z},
		ItemStyle: &opts.ItemStyle{Color: hexColor(c), Opacity: opts.Float(float32(c.A) / 255)},
	})
}

// Len returns the number of collected points.
func (s *ScatterSurface) Len() int { return len(s.points) }

// Render writes the HTML page.
func (s *ScatterSurface) Render(w io.Writer) error {
	data := s.points
	stride := 1
	if len(data) > maxScatterPoints {
		stride = len(data)/maxScatterPoints + 1
		thinned := make([]opts.Chart3DData, 0, len(data)/stride+1)
		for i := 0; i < len(data); i += stride {
			thinned = append(thinned, data[i])
		}
		data = thinned
	}

	scatter := charts.NewScatter3D()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: s.Title, Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: s.Title, Subtitle: fmt.Sprintf("%s points=%d stride=%d", s.Subtitle, len(data), stride)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxis3DOpts(opts.XAxis3D{Name: "X (m)"}),
		charts.WithYAxis3DOpts(opts.YAxis3D{Name: "Y (m)"}),
		charts.WithZAxis3DOpts(opts.ZAxis3D{Name: "Z (m)"}),
	)
	scatter.AddSeries("field", data)

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("render scatter: %w", err)
	}
	return nil
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
