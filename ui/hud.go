package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fieldscope/field"
	"github.com/pthm-cable/fieldscope/interaction"
	"github.com/pthm-cable/fieldscope/scene"
	"github.com/pthm-cable/fieldscope/telemetry"
)

var potentialRamp = scene.Diverging

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title        string
	Snapshot     interaction.Snapshot
	Stats        field.Stats // Of the field on display
	FPS          int32
	ScreenWidth  int32
	ScreenHeight int32
}

// HUD renders the heads-up display over the plot area.
type HUD struct {
	renderer *Renderer
	x        int32
}

// NewHUD creates a HUD whose text starts at column x.
func NewHUD(x int32) *HUD {
	return &HUD{
		renderer: NewRenderer(),
		x:        x,
	}
}

// Draw renders the title, the field summary, and the status line.
func (h *HUD) Draw(data HUDData) {
	th := h.renderer.Theme
	rl.DrawText(data.Title, h.x, 6, 20, th.SectionHeader)
	rl.DrawText(SummaryLine(data.Snapshot, data.Stats), h.x+rl.MeasureText(data.Title, 20)+16, 10, th.FontSize, th.LabelColor)

	fps := fmt.Sprintf("%d FPS", data.FPS)
	rl.DrawText(fps, data.ScreenWidth-rl.MeasureText(fps, th.FontSize)-10, 10, th.FontSize, th.KeyColor)

	h.DrawStatus(data.Snapshot.Status, data.ScreenWidth, data.ScreenHeight)
}

// DrawStatus renders the status line at the bottom of the screen. A fatal
// status is also shown as a banner across the top of the plot.
func (h *HUD) DrawStatus(st interaction.Status, screenWidth, screenHeight int32) {
	th := h.renderer.Theme
	rl.DrawText(st.Message, h.x, screenHeight-22, th.FontSize, th.LevelColor(st.Level))
	if !st.Fatal {
		return
	}
	bw := screenWidth - h.x - 20
	rl.DrawRectangle(h.x, 34, bw, 28, th.BannerBg)
	msg := BannerText(st)
	rl.DrawText(msg, h.x+(bw-rl.MeasureText(msg, th.HeaderSize))/2, 40, th.HeaderSize, rl.White)
}

// DrawControls renders the key legend just above the status line.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, h.x, screenHeight-42, h.renderer.Theme.FontSize-2, h.renderer.Theme.KeyColor)
}

// SummaryLine describes the field on display in one line.
func SummaryLine(snap interaction.Snapshot, st field.Stats) string {
	if snap.Field == nil {
		if snap.Pending {
			return "waiting for first solve"
		}
		return "no field"
	}
	g := snap.Field.Grid()
	shape := fmt.Sprintf("%dx%d", g.NX(), g.NY())
	if g.Is3D() {
		shape += fmt.Sprintf("x%d", g.NZ())
	}
	s := fmt.Sprintf("%dD %s | #%d", snap.Dims, shape, snap.Applied)
	if st.Finite > 0 {
		s += fmt.Sprintf(" | V %.3g..%.3g", st.Min, st.Max)
	}
	s += fmt.Sprintf(" | |E| max %.3g", st.MaxField)
	if snap.FellBack {
		s += " | 2D fallback"
	}
	if snap.Stale {
		s += " | stale"
	}
	if snap.Pending {
		s += " | solving"
	}
	return s
}

// BannerText is the message shown for a fatal status.
func BannerText(st interaction.Status) string {
	return "Solver unavailable: " + st.Message
}

// PerfPanel renders frame phase timings.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
	visible  bool
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
	}
}

// Toggle switches panel visibility.
func (p *PerfPanel) Toggle() bool {
	p.visible = !p.visible
	return p.visible
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	if !p.visible {
		return
	}
	r := p.renderer
	phases := []string{telemetry.PhaseInput, telemetry.PhaseApply, telemetry.PhaseBuild, telemetry.PhaseDraw, telemetry.PhaseUI}
	height := r.Theme.LineHeight*int32(len(phases)+2) + r.Theme.Padding*2
	r.DrawPanel(p.x, p.y, 220, height)

	x := p.x + r.Theme.Padding
	y := r.DrawSectionHeader(x, p.y+r.Theme.Padding, "Frame Timing")
	y = r.DrawLabelValue(x, y, "Frame", fmt.Sprintf("%s (%.0f fps)", stats.AvgFrame.Round(time.Microsecond), stats.FPS))
	for _, phase := range phases {
		pct := stats.PhasePct[phase]
		color := r.Theme.ValueColor
		if pct > 50 {
			color = r.Theme.Error
		} else if pct > 25 {
			color = r.Theme.Warning
		}
		rl.DrawText(fmt.Sprintf("%-6s %8s %5.1f%%", phase, stats.PhaseAvg[phase].Round(time.Microsecond), pct), x, y, r.Theme.FontSize-2, color)
		y += r.Theme.LineHeight
	}
}
