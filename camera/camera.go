// Package camera provides the linear viewport transform between the plot area
// on screen and the grid's physical coordinates.
package camera

// Camera maps a rectangle of world coordinates onto a rectangle of pixels.
// The mapping is linear and independent per axis, with no rotation.
type Camera struct {
	// World bounds shown in the viewport
	MinX, MinY, MaxX, MaxY float64

	// Viewport placement on screen
	OffsetX, OffsetY     float64
	ViewportW, ViewportH float64

	// YUp puts MaxY at the top of the viewport instead of MinY
	YUp bool
}

// New creates a camera covering the given world bounds with the viewport at
// the screen origin.
func New(viewportW, viewportH, minX, minY, maxX, maxY float64) *Camera {
	return &Camera{
		MinX:      minX,
		MinY:      minY,
		MaxX:      maxX,
		MaxY:      maxY,
		ViewportW: viewportW,
		ViewportH: viewportH,
	}
}

// WorldToScreen converts world coordinates to screen coordinates.
func (c *Camera) WorldToScreen(wx, wy float64) (sx, sy float64) {
	nx := (wx - c.MinX) / (c.MaxX - c.MinX)
	ny := (wy - c.MinY) / (c.MaxY - c.MinY)
	if c.YUp {
		ny = 1 - ny
	}
	return c.OffsetX + nx*c.ViewportW, c.OffsetY + ny*c.ViewportH
}

// ScreenToWorld converts screen coordinates to world coordinates.
func (c *Camera) ScreenToWorld(sx, sy float64) (wx, wy float64) {
	nx := (sx - c.OffsetX) / c.ViewportW
	ny := (sy - c.OffsetY) / c.ViewportH
	if c.YUp {
		ny = 1 - ny
	}
	return c.MinX + nx*(c.MaxX-c.MinX), c.MinY + ny*(c.MaxY-c.MinY)
}

// ScaleX returns pixels per world unit along x.
func (c *Camera) ScaleX() float64 {
	return c.ViewportW / (c.MaxX - c.MinX)
}

// ScaleY returns pixels per world unit along y.
func (c *Camera) ScaleY() float64 {
	return c.ViewportH / (c.MaxY - c.MinY)
}

// Contains reports whether a screen point lies inside the viewport.
func (c *Camera) Contains(sx, sy float64) bool {
	return sx >= c.OffsetX && sx <= c.OffsetX+c.ViewportW &&
		sy >= c.OffsetY && sy <= c.OffsetY+c.ViewportH
}

// Place moves the viewport to a new screen rectangle.
func (c *Camera) Place(offsetX, offsetY, viewportW, viewportH float64) {
	c.OffsetX = offsetX
	c.OffsetY = offsetY
	c.Resize(viewportW, viewportH)
}

// Resize updates viewport dimensions. Non-positive sizes are clamped to one pixel.
func (c *Camera) Resize(viewportW, viewportH float64) {
	c.ViewportW = clamp(viewportW, 1, viewportW)
	c.ViewportH = clamp(viewportH, 1, viewportH)
}

// SetBounds replaces the world bounds, e.g. after a grid change.
func (c *Camera) SetBounds(minX, minY, maxX, maxY float64) {
	c.MinX, c.MinY, c.MaxX, c.MaxY = minX, minY, maxX, maxY
}

// WorldRect converts a world-space rectangle to a screen rectangle with
// positive width and height.
func (c *Camera) WorldRect(x0, y0, x1, y1 float64) (sx, sy, w, h float64) {
	ax, ay := c.WorldToScreen(x0, y0)
	bx, by := c.WorldToScreen(x1, y1)
	if bx < ax {
		ax, bx = bx, ax
	}
	if by < ay {
		ay, by = by, ay
	}
	return ax, ay, bx - ax, by - ay
}

// clamp restricts a value to a range.
func clamp(x, min, max float64) float64 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
