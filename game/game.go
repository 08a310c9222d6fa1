// Package game runs the interactive viewer: it owns the session, drains solve
// results on the window goroutine, and rebuilds and draws the scene every
// frame.
package game

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fieldscope/camera"
	"github.com/pthm-cable/fieldscope/config"
	"github.com/pthm-cable/fieldscope/contour"
	"github.com/pthm-cable/fieldscope/field"
	"github.com/pthm-cable/fieldscope/interaction"
	"github.com/pthm-cable/fieldscope/renderer"
	"github.com/pthm-cable/fieldscope/renderer/rlsurface"
	"github.com/pthm-cable/fieldscope/scene"
	"github.com/pthm-cable/fieldscope/telemetry"
	"github.com/pthm-cable/fieldscope/ui"
)

// Title is shown in the window bar and HUD.
const Title = "Field Scope"

// Game holds the complete viewer state.
type Game struct {
	cfg    *config.Config
	logger *slog.Logger

	session    *Session
	dispatcher *interaction.AsyncDispatcher

	// Rendering
	builder *scene.Builder
	scene   *scene.Scene
	surface *rlsurface.Surface
	camera  *camera.Camera
	plot    Rect

	// UI
	overlays  *ui.OverlayRegistry
	toolbar   *ui.Toolbar
	hud       *ui.HUD
	perfPanel *ui.PerfPanel

	// Telemetry
	perf         *telemetry.PerfCollector
	output       *telemetry.OutputManager
	solveWindow  telemetry.SolveWindow
	logStats     bool
	lastFlush    time.Time
	frame        int64
	fieldStats   field.Stats
	selectionKey string

	// Pointer
	pointerDown bool
	lastPointer rl.Vector2

	screenWidth, screenHeight float32
}

// NewGameWithOptions creates the viewer. The raylib window must already be
// open.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := config.Cfg()
	logger := slog.Default()

	if opts.Solver == nil {
		return nil, fmt.Errorf("game: no solver configured")
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	dispatcher := interaction.NewAsyncDispatcher(opts.Solver, cfg.Derived.SolveTimeout)
	session, err := NewSession(cfg, dispatcher, rand.New(rand.NewSource(seed)), logger)
	if err != nil {
		dispatcher.Close()
		return nil, fmt.Errorf("creating session: %w", err)
	}

	if opts.Layout != nil {
		if err := session.Restore(opts.Layout); err != nil {
			dispatcher.Close()
			return nil, err
		}
	}

	output, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		dispatcher.Close()
		return nil, err
	}
	if err := output.WriteConfig(cfg); err != nil {
		logger.Error("failed to write config snapshot", "error", err)
	}

	w, h := int32(rl.GetScreenWidth()), int32(rl.GetScreenHeight())
	surface := rlsurface.New(w, h)
	ext := contour.SelectExtractor(surface.Capabilities(), cfg.Isosurface.PreferMesh, cfg.Isosurface.Tolerance, cfg.Isosurface.Epsilon)
	logger.Info("isosurface extractor selected", "extractor", ext.Name())

	g := &Game{
		cfg:          cfg,
		logger:       logger,
		session:      session,
		dispatcher:   dispatcher,
		builder:      scene.NewBuilder(scene.ParamsFrom(cfg), ext),
		scene:        scene.New(),
		surface:      surface,
		camera:       camera.New(1, 1, -1, -1, 1, 1),
		overlays:     ui.NewOverlayRegistry(scene.OptionsFrom(cfg)),
		toolbar:      ui.NewToolbar(0, 0, int32(cfg.Viewport.ToolbarSize)),
		hud:          ui.NewHUD(int32(cfg.Viewport.ToolbarSize + cfg.Viewport.Margin)),
		perfPanel:    ui.NewPerfPanel(w-240, 40),
		perf:         telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		output:       output,
		logStats:     opts.LogStats,
		lastFlush:    time.Now(),
		screenWidth:  float32(w),
		screenHeight: float32(h),
	}
	g.camera.YUp = cfg.Viewport.YUp
	g.layout()

	logger.Info("viewer started",
		"seed", seed,
		"dims", session.Dims(),
		"output_dir", output.Dir(),
	)
	return g, nil
}

// layout fits the camera and 3D viewport to the current grid and window.
func (g *Game) layout() {
	grid, err := g.session.set.Grid()
	if err != nil {
		return
	}
	g.plot = PlotRect(float64(g.screenWidth), float64(g.screenHeight), g.cfg.Viewport, grid)
	g.camera.Place(g.plot.X, g.plot.Y, g.plot.W, g.plot.H)
	g.camera.SetBounds(grid.X.Min, grid.Y.Min, grid.X.Max, grid.Y.Max)
	g.surface.SetViewport(g.plot.X, g.plot.Y, g.plot.W, g.plot.H)
	if grid.Is3D() {
		g.surface.Frame(grid)
	}
}

// Update handles input and applies finished solves.
func (g *Game) Update() {
	g.perf.StartFrame()

	g.perf.StartPhase(telemetry.PhaseInput)
	g.handleInput()

	g.perf.StartPhase(telemetry.PhaseApply)
	interaction.Drain(g.session.Controller(), g.dispatcher.Results(), g.onSolve)
	g.logSelections()
	g.flushTelemetry()
}

// Draw renders one frame and applies toolbar actions.
func (g *Game) Draw() {
	g.perf.StartPhase(telemetry.PhaseBuild)
	snap := g.session.Controller().Snapshot()
	g.builder.Build(g.scene, snap, g.overlays.Options(), g.camera)

	rl.BeginDrawing()
	rl.ClearBackground(g.toolbar.Theme().Background)

	g.perf.StartPhase(telemetry.PhaseDraw)
	renderer.Draw(g.surface, g.scene)

	g.perf.StartPhase(telemetry.PhaseUI)
	act := g.toolbar.Draw(snap, g.overlays)
	g.hud.Draw(ui.HUDData{
		Title:        Title,
		Snapshot:     snap,
		Stats:        g.fieldStats,
		FPS:          rl.GetFPS(),
		ScreenWidth:  int32(g.screenWidth),
		ScreenHeight: int32(g.screenHeight),
	})
	g.hud.DrawControls(int32(g.screenHeight), Controls)
	g.perfPanel.Draw(g.perf.Stats())

	rl.EndDrawing()
	g.perf.EndFrame()
	g.frame++

	g.apply(act)
}

// apply runs toolbar or key actions and relayouts after a grid change.
func (g *Game) apply(act ui.Action) {
	if act.SaveLayout {
		g.saveLayout()
	}
	dims := g.session.Dims()
	g.session.Apply(act)
	if g.session.Dims() != dims {
		g.layout()
	}
}

// Frame returns the number of frames drawn.
func (g *Game) Frame() int64 {
	return g.frame
}

// Unload cancels solves in flight and closes output files.
func (g *Game) Unload() {
	g.dispatcher.Close()
	if g.logStats {
		g.logger.Info("solves", "stats", g.solveWindow.Flush())
	}
	if err := g.output.Close(); err != nil {
		g.logger.Error("failed to close output", "error", err)
	}
}
