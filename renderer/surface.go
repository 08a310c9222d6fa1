// Package renderer paints scene primitives onto drawing surfaces. The PNG
// canvas and HTML 3D scatter page live here; the raylib window surface is in
// renderer/rlsurface so this package builds without cgo.
package renderer

import (
	"image/color"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fieldscope/contour"
	"github.com/pthm-cable/fieldscope/scene"
)

// Surface draws in pixel space with the origin at the top left.
type Surface interface {
	Size() (w, h float64)
	FillRect(x, y, w, h float64, c color.RGBA)
	StrokeRect(x, y, w, h, width float64, c color.RGBA)
	Line(x0, y0, x1, y1, width float64, c color.RGBA)
	Disc(x, y, r float64, c color.RGBA)
	Ring(x, y, r, width float64, c color.RGBA)
	Text(x, y float64, s string, size float64, c color.RGBA)
	Capabilities() contour.Capabilities
}

// Surface3D is implemented by surfaces that can show world-space geometry.
// 3D calls are bracketed by Begin3D and End3D.
type Surface3D interface {
	Surface
	Begin3D()
	End3D()
	Point3(p r3.Vec, size float64, c color.RGBA)
	Line3(a, b r3.Vec, c color.RGBA)
	Triangle3(a, b, c r3.Vec, col color.RGBA)
}

// Draw paints every primitive of s. 3D primitives are drawn first, in one
// 3D pass, so 2D overlays land on top; surfaces without 3D support skip them.
// It returns the number of primitives drawn.
func Draw(surf Surface, s *scene.Scene) int {
	items := s.Items()
	drawn := 0

	s3, has3D := surf.(Surface3D)
	if has3D && hasWorldItems(items) {
		s3.Begin3D()
		for i := range items {
			if draw3D(s3, &items[i]) {
				drawn++
			}
		}
		s3.End3D()
	}

	for i := range items {
		if draw2D(surf, &items[i]) {
			drawn++
		}
	}
	return drawn
}

func hasWorldItems(items []scene.Item) bool {
	for i := range items {
		if isWorld(items[i].Kind) {
			return true
		}
	}
	return false
}

func isWorld(k scene.Kind) bool {
	return k == scene.KindPoint3 || k == scene.KindLine3 || k == scene.KindTriangle3
}

func draw3D(s Surface3D, it *scene.Item) bool {
	switch it.Kind {
	case scene.KindPoint3:
		s.Point3(it.A, it.Radius, it.Color)
	case scene.KindLine3:
		s.Line3(it.A, it.B, it.Color)
	case scene.KindTriangle3:
		s.Triangle3(it.A, it.B, it.C, it.Color)
	default:
		return false
	}
	return true
}

func draw2D(s Surface, it *scene.Item) bool {
	switch it.Kind {
	case scene.KindRect:
		if it.Filled {
			s.FillRect(it.A.X, it.A.Y, it.B.X, it.B.Y, it.Color)
		} else {
			s.StrokeRect(it.A.X, it.A.Y, it.B.X, it.B.Y, it.Width, it.Color)
		}
	case scene.KindLine:
		s.Line(it.A.X, it.A.Y, it.B.X, it.B.Y, it.Width, it.Color)
	case scene.KindDisc:
		s.Disc(it.A.X, it.A.Y, it.Radius, it.Color)
	case scene.KindRing:
		s.Ring(it.A.X, it.A.Y, it.Radius, it.Width, it.Color)
	case scene.KindText:
		s.Text(it.A.X, it.A.Y, it.Text, it.Size, it.Color)
	default:
		return false
	}
	return true
}

// IntersectZ returns the point where the ray origin+t*dir, t >= 0, crosses
// the plane at height z. ok is false for rays parallel to or pointing away
// from the plane.
func IntersectZ(origin, dir r3.Vec, z float64) (p r3.Vec, ok bool) {
	if math.Abs(dir.Z) < 1e-12 {
		return r3.Vec{}, false
	}
	t := (z - origin.Z) / dir.Z
	if t < 0 {
		return r3.Vec{}, false
	}
	return r3.Add(origin, r3.Scale(t, dir)), true
}
