// Package scene holds the primitives drawn in one frame. Builders add
// geometry descriptors; renderers read them back in draw order.
package scene

import (
	"image/color"
	"sort"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"
)

// Kind is the primitive type.
type Kind uint8

const (
	KindRect Kind = iota
	KindLine
	KindDisc
	KindRing
	KindText
	KindPoint3
	KindLine3
	KindTriangle3
)

// Layer orders primitives back to front.
type Layer uint8

const (
	LayerBackground Layer = iota
	LayerContour
	LayerHighlight
	LayerArrow
	LayerGrid
	LayerCharge
	LayerMarker
	LayerPanel
	LayerText
)

// Geometry is a primitive's shape. 2D kinds are in screen pixels and use
// only X and Y; 3D kinds are in world coordinates.
type Geometry struct {
	Kind    Kind
	A, B, C r3.Vec  // Rect uses A as the top-left corner and B as the size
	Radius  float64 // Disc and ring radius, point size, in pixels
	Text    string
	Size    float64 // Font size in pixels
}

// Style is how a primitive is painted.
type Style struct {
	Color  color.RGBA
	Width  float64 // Stroke width in pixels
	Filled bool
}

// Order is a primitive's draw position.
type Order struct {
	Layer Layer
	Seq   int // Insertion order within the scene
}

// Item is one primitive read back from a scene.
type Item struct {
	Geometry
	Style
	Order
}

// Scene stores primitives as entities of an ECS world so builders can add
// them from any step and renderers can filter them by component.
type Scene struct {
	world  *ecs.World
	mapper *ecs.Map3[Geometry, Style, Order]
	filter *ecs.Filter3[Geometry, Style, Order]
	seq    int
}

// New creates an empty scene.
func New() *Scene {
	world := ecs.NewWorld()
	return &Scene{
		world:  world,
		mapper: ecs.NewMap3[Geometry, Style, Order](world),
		filter: ecs.NewFilter3[Geometry, Style, Order](world),
	}
}

// Add appends a primitive on layer.
func (s *Scene) Add(layer Layer, g Geometry, st Style) {
	o := Order{Layer: layer, Seq: s.seq}
	s.seq++
	s.mapper.NewEntity(&g, &st, &o)
}

// Len returns the number of primitives.
func (s *Scene) Len() int { return s.seq }

// Clear removes every primitive, keeping the world's storage for reuse.
func (s *Scene) Clear() {
	var dead []ecs.Entity
	query := s.filter.Query()
	for query.Next() {
		dead = append(dead, query.Entity())
	}
	for _, e := range dead {
		s.world.RemoveEntity(e)
	}
	s.seq = 0
}

// Items returns the primitives sorted by layer, then insertion order.
func (s *Scene) Items() []Item {
	items := make([]Item, 0, s.seq)
	query := s.filter.Query()
	for query.Next() {
		g, st, o := query.Get()
		items = append(items, Item{Geometry: *g, Style: *st, Order: *o})
	}
	sort.Slice(items, func(a, b int) bool {
		if items[a].Layer != items[b].Layer {
			return items[a].Layer < items[b].Layer
		}
		return items[a].Seq < items[b].Seq
	})
	return items
}

// Count returns how many primitives of kind k the scene holds.
func (s *Scene) Count(k Kind) int {
	n := 0
	query := s.filter.Query()
	for query.Next() {
		g, _, _ := query.Get()
		if g.Kind == k {
			n++
		}
	}
	return n
}

// Rect is an axis-aligned pixel rectangle.
func Rect(x, y, w, h float64) Geometry {
	return Geometry{Kind: KindRect, A: r3.Vec{X: x, Y: y}, B: r3.Vec{X: w, Y: h}}
}

// Line is a pixel segment.
func Line(x0, y0, x1, y1 float64) Geometry {
	return Geometry{Kind: KindLine, A: r3.Vec{X: x0, Y: y0}, B: r3.Vec{X: x1, Y: y1}}
}

// Disc is a filled pixel circle.
func Disc(x, y, r float64) Geometry {
	return Geometry{Kind: KindDisc, A: r3.Vec{X: x, Y: y}, Radius: r}
}

// Ring is a circle outline.
func Ring(x, y, r float64) Geometry {
	return Geometry{Kind: KindRing, A: r3.Vec{X: x, Y: y}, Radius: r}
}

// Text is a string with its top-left corner at x, y.
func Text(x, y float64, s string, size float64) Geometry {
	return Geometry{Kind: KindText, A: r3.Vec{X: x, Y: y}, Text: s, Size: size}
}

// Point3 is a world-space point.
func Point3(p r3.Vec, size float64) Geometry {
	return Geometry{Kind: KindPoint3, A: p, Radius: size}
}

// Line3 is a world-space segment.
func Line3(a, b r3.Vec) Geometry {
	return Geometry{Kind: KindLine3, A: a, B: b}
}

// Triangle3 is a world-space face.
func Triangle3(a, b, c r3.Vec) Geometry {
	return Geometry{Kind: KindTriangle3, A: a, B: b, C: c}
}
