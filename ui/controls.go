package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fieldscope/charges"
	"github.com/pthm-cable/fieldscope/interaction"
)

// Action is what the user asked for through the toolbar this frame.
type Action struct {
	Solve               bool
	AddCharge           bool
	ToggleMeasure       bool
	ToggleEquipotential bool
	ToggleDims          bool

	RemoveID int // Valid when Remove is set
	Remove   bool
	FlipID   int // Charge whose sign should be inverted, valid when Flip is set
	Flip     bool

	Threshold        float64
	ThresholdChanged bool

	SaveLayout bool
}

// Toolbar renders the left-side controls: solver and tool buttons, the
// charge list, the display toggles and the isosurface slider.
type Toolbar struct {
	renderer *Renderer
	x, y     int32
	width    int32
	maxRows  int
}

// NewToolbar creates a toolbar at the given position.
func NewToolbar(x, y, width int32) *Toolbar {
	return &Toolbar{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		maxRows:  8,
	}
}

// Width returns the toolbar width in pixels.
func (t *Toolbar) Width() int32 { return t.width }

// Theme returns the toolbar styling.
func (t *Toolbar) Theme() Theme { return t.renderer.Theme }

// Draw renders the toolbar and returns the requested actions.
func (t *Toolbar) Draw(snap interaction.Snapshot, overlays *OverlayRegistry) Action {
	act := Action{Threshold: snap.Threshold}
	r := t.renderer
	th := r.Theme
	x := float32(t.x + th.Padding)
	w := float32(t.width - th.Padding*2)
	bh := float32(th.ButtonHeight)
	y := float32(t.y + th.Padding)

	rl.DrawRectangle(t.x, t.y, t.width, int32(rl.GetScreenHeight())-t.y, th.PanelBg)
	rl.DrawLine(t.x+t.width-1, t.y, t.x+t.width-1, int32(rl.GetScreenHeight()), th.PanelBorder)

	y = float32(r.DrawSectionHeader(int32(x), int32(y), "Solver"))
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: w, Height: bh}, runLabel(snap)) {
		act.Solve = true
	}
	y += bh + 4
	half := (w - 4) / 2
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: half, Height: bh}, "Add Charge") {
		act.AddCharge = true
	}
	if gui.Button(rl.Rectangle{X: x + half + 4, Y: y, Width: half, Height: bh}, dimsLabel(snap)) {
		act.ToggleDims = true
	}
	y += bh + float32(th.Padding)

	y = float32(r.DrawSectionHeader(int32(x), int32(y), "Tools"))
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: half, Height: bh}, toolLabel("Measure", snap.Mode == interaction.ModeMeasure)) {
		act.ToggleMeasure = true
	}
	if gui.Button(rl.Rectangle{X: x + half + 4, Y: y, Width: half, Height: bh}, toolLabel("Equipot.", snap.Mode == interaction.ModeEquipotential)) {
		act.ToggleEquipotential = true
	}
	y += bh + float32(th.Padding)

	y = float32(r.DrawSectionHeader(int32(x), int32(y), fmt.Sprintf("Charges (%d)", len(snap.Charges))))
	for i, ch := range snap.Charges {
		if i >= t.maxRows {
			rl.DrawText(fmt.Sprintf("+%d more", len(snap.Charges)-i), int32(x), int32(y), th.FontSize, th.LabelColor)
			y += float32(th.LineHeight)
			break
		}
		rl.DrawText(ChargeLabel(ch), int32(x), int32(y)+4, th.FontSize, th.ValueColor)
		if gui.Button(rl.Rectangle{X: x + w - 52, Y: y, Width: 24, Height: 22}, "+/-") {
			act.Flip, act.FlipID = true, ch.ID
		}
		if gui.Button(rl.Rectangle{X: x + w - 24, Y: y, Width: 24, Height: 22}, "x") {
			act.Remove, act.RemoveID = true, ch.ID
		}
		y += 26
	}
	y += float32(th.Padding)

	y = float32(r.DrawSectionHeader(int32(x), int32(y), "Display"))
	for _, desc := range overlays.ForDims(snap.Grid.Dims) {
		y = float32(r.DrawToggle(int32(x), int32(y), int32(w), desc.Name, desc.KeyLabel, overlays.IsEnabled(desc.ID)))
	}

	if snap.Grid.Is3D() {
		y += float32(th.Padding)
		y = float32(r.DrawSectionHeader(int32(x), int32(y), fmt.Sprintf("Iso level %.0f%%", snap.Threshold*100)))
		v := gui.SliderBar(rl.Rectangle{X: x, Y: y, Width: w, Height: 18}, "", "", float32(snap.Threshold), 0, 1)
		if float64(v) != snap.Threshold {
			act.Threshold, act.ThresholdChanged = float64(v), true
		}
		y += 24
	}

	if snap.Field != nil {
		if min, max, ok := snap.Field.ScalarRange(); ok {
			y += float32(th.Padding)
			y = float32(r.DrawSectionHeader(int32(x), int32(y), "Potential"))
			r.DrawColorbar(int32(x), int32(y), int32(w), 12, min, max, potentialRamp)
		}
	}
	return act
}

// ChargeLabel formats one row of the charge list.
func ChargeLabel(ch charges.Charge) string {
	return fmt.Sprintf("#%d %+.1e C", ch.ID, ch.Q)
}

func runLabel(snap interaction.Snapshot) string {
	switch {
	case snap.Pending:
		return "Solving..."
	case snap.Stale && snap.Field != nil:
		return "Run Solver *"
	}
	return "Run Solver"
}

func dimsLabel(snap interaction.Snapshot) string {
	if snap.Grid.Is3D() {
		return "Switch to 2D"
	}
	return "Switch to 3D"
}

func toolLabel(name string, active bool) string {
	if active {
		return "[" + name + "]"
	}
	return name
}
