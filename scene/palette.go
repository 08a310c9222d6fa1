package scene

import (
	"image/color"
	"math"
)

// Fixed colors.
var (
	White        = color.RGBA{255, 255, 255, 255}
	Black        = color.RGBA{0, 0, 0, 255}
	Gold         = color.RGBA{255, 215, 0, 255}
	GridGray     = color.RGBA{153, 153, 153, 255}
	ProbeRed     = color.RGBA{255, 0, 0, 255}
	PositiveRed  = color.RGBA{255, 68, 68, 255}
	NegativeBlue = color.RGBA{68, 68, 255, 255}
	ArrowShade   = color.RGBA{0, 0, 0, 128}
	PanelWhite   = color.RGBA{255, 255, 255, 242}
	PanelGold    = color.RGBA{255, 215, 0, 242}
	PanelBorder  = color.RGBA{204, 204, 204, 255}
	LabelFill    = color.RGBA{255, 255, 255, 217}
)

// HSL converts hue in degrees, saturation and lightness in [0,1] to an
// opaque color.
func HSL(h, s, l float64) color.RGBA {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return color.RGBA{channel(r + m), channel(g + m), channel(b + m), 255}
}

// Diverging maps t in [0,1] onto blue, white and red.
func Diverging(t float64) color.RGBA {
	t = unit(t)
	if t < 0.5 {
		u := t * 2
		return color.RGBA{channel(u), channel(u), 255, 255}
	}
	u := (t - 0.5) * 2
	return color.RGBA{255, channel(1 - u), channel(1 - u), 255}
}

// Magnitude maps log10(|E|+1) onto blue, cyan, green, yellow and red,
// saturating at ten decades.
func Magnitude(logMag float64) color.RGBA {
	t := unit(logMag / 10)
	stops := [...]color.RGBA{
		{0, 0, 255, 255},
		{0, 255, 255, 255},
		{0, 255, 0, 255},
		{255, 255, 0, 255},
		{255, 0, 0, 255},
	}
	seg := min(int(t*4), 3)
	return Mix(stops[seg], stops[seg+1], t*4-float64(seg))
}

// Heat returns the 3D heatmap color for normalized potential t.
func Heat(t float64) color.RGBA {
	return HSL((0.7-0.7*unit(t))*360, 1, 0.5)
}

// Mix linearly interpolates two colors.
func Mix(a, b color.RGBA, t float64) color.RGBA {
	t = unit(t)
	lerp := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return color.RGBA{lerp(a.R, b.R), lerp(a.G, b.G), lerp(a.B, b.B), lerp(a.A, b.A)}
}

// WithAlpha returns c with a new alpha.
func WithAlpha(c color.RGBA, a uint8) color.RGBA {
	c.A = a
	return c
}

func channel(v float64) uint8 {
	return uint8(math.Round(unit(v) * 255))
}

func unit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
