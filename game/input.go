package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r3"
)

// handleInput processes keyboard and pointer input.
func (g *Game) handleInput() {
	g.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}
	if rl.IsKeyPressed(rl.KeyF3) {
		g.perfPanel.Toggle()
	}

	for key := rl.GetKeyPressed(); key != 0; key = rl.GetKeyPressed() {
		if id, on, ok := g.overlays.HandleKeyPress(key); ok {
			g.logger.Debug("overlay toggled", "overlay", id, "enabled", on)
			continue
		}
		if act, ok := KeyAction(key, g.session.Controller().Snapshot()); ok {
			g.apply(act)
		}
	}

	g.handlePointer()
}

// handleResize checks for window resize and propagates new dimensions.
func (g *Game) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	if w == g.screenWidth && h == g.screenHeight {
		return
	}
	g.screenWidth = w
	g.screenHeight = h
	g.surface.Resize(int32(w), int32(h))
	g.perfPanel.SetPosition(int32(w)-240, 40)
	g.layout()
}

// handlePointer forwards mouse presses, drags and releases inside the plot to
// the controller.
func (g *Game) handlePointer() {
	c := g.session.Controller()
	mouse := rl.GetMousePosition()

	if rl.IsMouseButtonReleased(rl.MouseButtonLeft) && g.pointerDown {
		g.pointerDown = false
		c.PointerUp()
		return
	}

	if rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
		if !g.plot.Contains(float64(mouse.X), float64(mouse.Y)) {
			return
		}
		p, ok := g.pointerWorld(mouse)
		if !ok {
			return
		}
		g.pointerDown = true
		g.lastPointer = mouse
		c.PointerDown(p)
		return
	}

	if g.pointerDown && mouse != g.lastPointer {
		g.lastPointer = mouse
		if _, dragging := c.Dragging(); !dragging {
			return
		}
		if p, ok := g.pointerWorld(mouse); ok {
			c.PointerMove(p)
		}
	}
}

// pointerWorld maps a screen point to world coordinates. In 3D the point is
// taken on the plane through the grid centre.
func (g *Game) pointerWorld(mouse rl.Vector2) (r3.Vec, bool) {
	grid, err := g.session.set.Grid()
	if err != nil {
		return r3.Vec{}, false
	}
	if grid.Is3D() {
		return g.surface.PickPlane(float64(mouse.X), float64(mouse.Y), grid.Center().Z)
	}
	x, y := g.camera.ScreenToWorld(float64(mouse.X), float64(mouse.Y))
	return r3.Vec{X: x, Y: y}, true
}
