// Package ui draws the viewer chrome around the plot: the toolbar, the
// display toggles, and the status line.
package ui

import rl "github.com/gen2brain/raylib-go/raylib"

// Theme holds UI styling constants.
type Theme struct {
	Background    rl.Color
	PanelBg       rl.Color
	PanelBorder   rl.Color
	SectionHeader rl.Color
	LabelColor    rl.Color
	ValueColor    rl.Color
	KeyColor      rl.Color
	ToggleOn      rl.Color
	ToggleOff     rl.Color
	Info          rl.Color
	Success       rl.Color
	Warning       rl.Color
	Error         rl.Color
	BannerBg      rl.Color
	Padding       int32
	LineHeight    int32
	LabelWidth    int32
	ButtonHeight  int32
	FontSize      int32
	HeaderSize    int32
}

// DefaultTheme returns the default UI theme.
func DefaultTheme() Theme {
	return Theme{
		Background:    rl.Color{R: 245, G: 245, B: 245, A: 255},
		PanelBg:       rl.Color{R: 255, G: 255, B: 255, A: 235},
		PanelBorder:   rl.Color{R: 200, G: 200, B: 200, A: 255},
		SectionHeader: rl.Color{R: 60, G: 60, B: 60, A: 255},
		LabelColor:    rl.Gray,
		ValueColor:    rl.DarkGray,
		KeyColor:      rl.Color{R: 150, G: 150, B: 150, A: 255},
		ToggleOn:      rl.Color{R: 76, G: 175, B: 80, A: 255},
		ToggleOff:     rl.Color{R: 190, G: 190, B: 190, A: 255},
		Info:          rl.DarkGray,
		Success:       rl.Color{R: 46, G: 125, B: 50, A: 255},
		Warning:       rl.Color{R: 230, G: 140, B: 0, A: 255},
		Error:         rl.Color{R: 198, G: 40, B: 40, A: 255},
		BannerBg:      rl.Color{R: 198, G: 40, B: 40, A: 230},
		Padding:       10,
		LineHeight:    18,
		LabelWidth:    70,
		ButtonHeight:  28,
		FontSize:      14,
		HeaderSize:    16,
	}
}
