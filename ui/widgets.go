package ui

import (
	"fmt"
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fieldscope/interaction"
)

// Renderer handles all UI drawing with consistent styling.
type Renderer struct {
	Theme Theme
}

// NewRenderer creates a renderer with the default theme.
func NewRenderer() *Renderer {
	return &Renderer{Theme: DefaultTheme()}
}

// DrawPanel draws a panel background with border.
func (r *Renderer) DrawPanel(x, y, width, height int32) {
	rl.DrawRectangle(x, y, width, height, r.Theme.PanelBg)
	rl.DrawRectangleLines(x, y, width, height, r.Theme.PanelBorder)
}

// DrawSectionHeader draws a section header and returns the new Y position.
func (r *Renderer) DrawSectionHeader(x, y int32, title string) int32 {
	rl.DrawText(title, x, y, r.Theme.HeaderSize, r.Theme.SectionHeader)
	return y + r.Theme.LineHeight + 2
}

// DrawLabelValue draws a label and value on the same line.
func (r *Renderer) DrawLabelValue(x, y int32, label, value string) int32 {
	rl.DrawText(label+":", x, y, r.Theme.FontSize, r.Theme.LabelColor)
	rl.DrawText(value, x+r.Theme.LabelWidth, y, r.Theme.FontSize, r.Theme.ValueColor)
	return y + r.Theme.LineHeight
}

// DrawToggle draws an on/off indicator with a name and a right-aligned key hint.
func (r *Renderer) DrawToggle(x, y, width int32, name, key string, on bool) int32 {
	c := r.Theme.ToggleOff
	nameColor := r.Theme.LabelColor
	if on {
		c = r.Theme.ToggleOn
		nameColor = r.Theme.ValueColor
	}
	rl.DrawRectangle(x, y+3, 9, 9, c)
	rl.DrawText(name, x+15, y, r.Theme.FontSize, nameColor)
	if key != "" {
		hint := fmt.Sprintf("[%s]", key)
		w := rl.MeasureText(hint, r.Theme.FontSize)
		rl.DrawText(hint, x+width-w, y, r.Theme.FontSize, r.Theme.KeyColor)
	}
	return y + r.Theme.LineHeight
}

// DrawColorbar draws a horizontal gradient from ramp(0) to ramp(1) with the
// end values printed underneath.
func (r *Renderer) DrawColorbar(x, y, width, height int32, min, max float64, ramp func(float64) color.RGBA) int32 {
	for i := int32(0); i < width; i++ {
		c := ramp(float64(i) / float64(width-1))
		rl.DrawRectangle(x+i, y, 1, height, rl.NewColor(c.R, c.G, c.B, c.A))
	}
	rl.DrawRectangleLines(x, y, width, height, r.Theme.PanelBorder)
	y += height + 2
	lo := fmt.Sprintf("%.2g V", min)
	hi := fmt.Sprintf("%.2g V", max)
	rl.DrawText(lo, x, y, r.Theme.FontSize-2, r.Theme.LabelColor)
	rl.DrawText(hi, x+width-rl.MeasureText(hi, r.Theme.FontSize-2), y, r.Theme.FontSize-2, r.Theme.LabelColor)
	return y + r.Theme.LineHeight
}

// LevelColor returns the text color for a status level.
func (t Theme) LevelColor(l interaction.Level) rl.Color {
	switch l {
	case interaction.LevelSuccess:
		return t.Success
	case interaction.LevelWarning:
		return t.Warning
	case interaction.LevelError:
		return t.Error
	}
	return t.Info
}
