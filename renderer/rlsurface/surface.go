// Package rlsurface draws scene primitives into a raylib window. It is kept
// apart from renderer so headless exports build without cgo.
package rlsurface

import (
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fieldscope/contour"
	"github.com/pthm-cable/fieldscope/field"
	"github.com/pthm-cable/fieldscope/renderer"
)

var _ renderer.Surface3D = (*Surface)(nil)

// Surface draws into the current raylib frame. It must be used between
// rl.BeginDrawing and rl.EndDrawing on the window's goroutine.
type Surface struct {
	width, height int32
	camera        rl.Camera3D
	viewport      rl.Rectangle // Scissor area for the 3D pass
}

// New creates a surface for a window of the given size.
func New(width, height int32) *Surface {
	return &Surface{
		width:    width,
		height:   height,
		viewport: rl.NewRectangle(0, 0, float32(width), float32(height)),
		camera: rl.Camera3D{
			Position:   rl.NewVector3(3, 2.4, 3),
			Target:     rl.NewVector3(0, 0, 0),
			Up:         rl.NewVector3(0, 1, 0),
			Fovy:       45,
			Projection: rl.CameraPerspective,
		},
	}
}

// Resize updates the surface after a window resize.
func (s *Surface) Resize(width, height int32) {
	s.width, s.height = width, height
}

// SetViewport limits the 3D pass to a screen rectangle.
func (s *Surface) SetViewport(x, y, w, h float64) {
	s.viewport = rl.NewRectangle(float32(x), float32(y), float32(w), float32(h))
}

// Frame points the fixed 3D camera at the grid box from a diagonal.
func (s *Surface) Frame(g field.Grid) {
	c := g.Center()
	span := max(g.X.Range(), g.Y.Range(), g.Z.Range())
	s.camera.Target = vec3(c)
	s.camera.Position = rl.NewVector3(
		float32(c.X+span*1.5),
		float32(c.Y+span*1.2),
		float32(c.Z+span*1.5),
	)
}

func (s *Surface) Size() (w, h float64) {
	return float64(s.width), float64(s.height)
}

func (s *Surface) Capabilities() contour.Capabilities {
	return contour.Capabilities{Mesh: true}
}

func (s *Surface) FillRect(x, y, w, h float64, c color.RGBA) {
	rl.DrawRectangleRec(rl.NewRectangle(float32(x), float32(y), float32(w), float32(h)), rlColor(c))
}

func (s *Surface) StrokeRect(x, y, w, h, width float64, c color.RGBA) {
	rl.DrawRectangleLinesEx(rl.NewRectangle(float32(x), float32(y), float32(w), float32(h)), float32(width), rlColor(c))
}

func (s *Surface) Line(x0, y0, x1, y1, width float64, c color.RGBA) {
	rl.DrawLineEx(rl.NewVector2(float32(x0), float32(y0)), rl.NewVector2(float32(x1), float32(y1)), float32(width), rlColor(c))
}

func (s *Surface) Disc(x, y, r float64, c color.RGBA) {
	rl.DrawCircleV(rl.NewVector2(float32(x), float32(y)), float32(r), rlColor(c))
}

func (s *Surface) Ring(x, y, r, width float64, c color.RGBA) {
	inner := max(0, r-width/2)
	rl.DrawRing(rl.NewVector2(float32(x), float32(y)), float32(inner), float32(r+width/2), 0, 360, 48, rlColor(c))
}

func (s *Surface) Text(x, y float64, text string, size float64, c color.RGBA) {
	rl.DrawText(text, int32(x), int32(y), int32(size), rlColor(c))
}

func (s *Surface) Begin3D() {
	rl.BeginScissorMode(int32(s.viewport.X), int32(s.viewport.Y), int32(s.viewport.Width), int32(s.viewport.Height))
	rl.BeginMode3D(s.camera)
}

func (s *Surface) End3D() {
	rl.EndMode3D()
	rl.EndScissorMode()
}

func (s *Surface) Point3(p r3.Vec, size float64, c color.RGBA) {
	// Point sizes are pixels; scale to world units at roughly unit distance
	rl.DrawSphereEx(vec3(p), float32(size)*0.004, 4, 4, rlColor(c))
}

func (s *Surface) Line3(a, b r3.Vec, c color.RGBA) {
	rl.DrawLine3D(vec3(a), vec3(b), rlColor(c))
}

func (s *Surface) Triangle3(a, b, c r3.Vec, col color.RGBA) {
	// Draw both windings so faces show from either side
	rl.DrawTriangle3D(vec3(a), vec3(b), vec3(c), rlColor(col))
	rl.DrawTriangle3D(vec3(a), vec3(c), vec3(b), rlColor(col))
}

func vec3(p r3.Vec) rl.Vector3 {
	return rl.NewVector3(float32(p.X), float32(p.Y), float32(p.Z))
}

func rlColor(c color.RGBA) rl.Color {
	return rl.NewColor(c.R, c.G, c.B, c.A)
}

// PickPlane casts a ray through a screen point and returns where it meets
// the plane at height z in world coordinates.
func (s *Surface) PickPlane(sx, sy, z float64) (r3.Vec, bool) {
	ray := rl.GetScreenToWorldRay(rl.NewVector2(float32(sx), float32(sy)), s.camera)
	origin := r3.Vec{X: float64(ray.Position.X), Y: float64(ray.Position.Y), Z: float64(ray.Position.Z)}
	dir := r3.Vec{X: float64(ray.Direction.X), Y: float64(ray.Direction.Y), Z: float64(ray.Direction.Z)}
	return renderer.IntersectZ(origin, dir, z)
}
