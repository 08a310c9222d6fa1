package game

import (
	"math"

	"github.com/pthm-cable/fieldscope/config"
	"github.com/pthm-cable/fieldscope/field"
)

// Rows reserved above and below the plot for the HUD and status line.
const (
	hudHeight    = 30
	statusHeight = 40
)

// Rect is a screen rectangle in pixels.
type Rect struct {
	X, Y, W, H float64
}

// PlotRect places the plot to the right of the toolbar, inside the margins,
// keeping the world aspect ratio of g and centring it in the free space.
func PlotRect(screenW, screenH float64, vp config.ViewportConfig, g field.Grid) Rect {
	m := float64(vp.Margin)
	free := Rect{
		X: float64(vp.ToolbarSize) + m,
		Y: m + hudHeight,
	}
	free.W = math.Max(1, screenW-free.X-m)
	free.H = math.Max(1, screenH-free.Y-m-statusHeight)

	aspect := 1.0
	if g.X.Range() > 0 && g.Y.Range() > 0 {
		aspect = g.X.Range() / g.Y.Range()
	}
	if g.Is3D() {
		// The 3D view is a perspective of the whole box; use all the space
		return free
	}

	w, h := free.W, free.W/aspect
	if h > free.H {
		w, h = free.H*aspect, free.H
	}
	return Rect{
		X: free.X + (free.W-w)/2,
		Y: free.Y + (free.H-h)/2,
		W: w,
		H: h,
	}
}

// Contains reports whether a screen point is inside r.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.W && y >= r.Y && y <= r.Y+r.H
}
