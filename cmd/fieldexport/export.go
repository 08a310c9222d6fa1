package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fieldscope/camera"
	"github.com/pthm-cable/fieldscope/charges"
	"github.com/pthm-cable/fieldscope/config"
	"github.com/pthm-cable/fieldscope/contour"
	"github.com/pthm-cable/fieldscope/field"
	"github.com/pthm-cable/fieldscope/interaction"
	"github.com/pthm-cable/fieldscope/renderer"
	"github.com/pthm-cable/fieldscope/scene"
	"github.com/pthm-cable/fieldscope/solver"
	"github.com/pthm-cable/fieldscope/telemetry"
)

// plotMargin is the blank border around the PNG plot, in pixels.
const plotMargin = 20

// chargeArg is one -charge flag: x,y[,z],q.
type chargeArg struct {
	X, Y, Z, Q float64
	HasZ       bool
}

// chargeList collects repeated -charge flags.
type chargeList []chargeArg

func (l *chargeList) String() string {
	parts := make([]string, len(*l))
	for i, c := range *l {
		if c.HasZ {
			parts[i] = fmt.Sprintf("%g,%g,%g,%g", c.X, c.Y, c.Z, c.Q)
		} else {
			parts[i] = fmt.Sprintf("%g,%g,%g", c.X, c.Y, c.Q)
		}
	}
	return strings.Join(parts, " ")
}

func (l *chargeList) Set(s string) error {
	vals, err := parseFloats(s)
	if err != nil {
		return err
	}
	switch len(vals) {
	case 3:
		*l = append(*l, chargeArg{X: vals[0], Y: vals[1], Q: vals[2]})
	case 4:
		*l = append(*l, chargeArg{X: vals[0], Y: vals[1], Z: vals[2], Q: vals[3], HasZ: true})
	default:
		return fmt.Errorf("want x,y,q or x,y,z,q, got %q", s)
	}
	return nil
}

// pointArg is an optional x,y[,z] flag.
type pointArg struct {
	P  r3.Vec
	OK bool
}

func (a *pointArg) String() string {
	if !a.OK {
		return ""
	}
	return fmt.Sprintf("%g,%g,%g", a.P.X, a.P.Y, a.P.Z)
}

func (a *pointArg) Set(s string) error {
	vals, err := parseFloats(s)
	if err != nil {
		return err
	}
	switch len(vals) {
	case 2:
		a.P = r3.Vec{X: vals[0], Y: vals[1]}
	case 3:
		a.P = r3.Vec{X: vals[0], Y: vals[1], Z: vals[2]}
	default:
		return fmt.Errorf("want x,y or x,y,z, got %q", s)
	}
	a.OK = true
	return nil
}

func parseFloats(s string) ([]float64, error) {
	fields := strings.Split(s, ",")
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", f, err)
		}
		out[i] = v
	}
	return out, nil
}

// defaultCharges is a dipole along x.
func defaultCharges() chargeList {
	return chargeList{{X: -0.3, Q: 1e-9}, {X: 0.3, Q: -1e-9}}
}

// applyLayout takes the grid and charges from a saved layout.
func applyLayout(cfg *config.Config, opts *exportOptions, l *telemetry.Layout) {
	g := l.Grid
	cfg.Grid.X = config.AxisConfig{Min: g.XMin, Max: g.XMax, Count: g.NX}
	cfg.Grid.Y = config.AxisConfig{Min: g.YMin, Max: g.YMax, Count: g.NY}
	cfg.Derived.Is3D = g.NZ != nil
	if g.NZ != nil {
		cfg.Grid.Count3D = *g.NZ
		cfg.Grid.Z.Count = *g.NZ
		if g.ZMin != nil && g.ZMax != nil {
			cfg.Grid.Z.Min, cfg.Grid.Z.Max = *g.ZMin, *g.ZMax
		}
	}
	cfg.Grid.Mode = "2d"
	if cfg.Derived.Is3D {
		cfg.Grid.Mode = "3d"
	}

	opts.Charges = opts.Charges[:0]
	for _, c := range l.Charges {
		opts.Charges = append(opts.Charges, chargeArg{X: c.X, Y: c.Y, Z: c.Z, Q: c.Q, HasZ: cfg.Derived.Is3D})
	}
}

// exportOptions controls one headless run.
type exportOptions struct {
	Charges       chargeList
	Probe         pointArg
	Pick          pointArg
	Contours      bool
	Null          bool
	OutputDir     string
	Width, Height int
	Seed          int64
}

// exportSummary lists what a run produced.
type exportSummary struct {
	Dims     int
	FellBack bool
	Stats    field.Stats
	PNG      string
	HTML     string
	Probes   int
	Null     *solver.Null
}

// ticketQueue keeps the last dispatched ticket for the caller to solve inline.
type ticketQueue struct {
	ticket *interaction.Ticket
}

func (q *ticketQueue) Dispatch(t interaction.Ticket) { q.ticket = &t }

func (q *ticketQueue) take() (interaction.Ticket, bool) {
	if q.ticket == nil {
		return interaction.Ticket{}, false
	}
	t := *q.ticket
	q.ticket = nil
	return t, true
}

// run solves the configured grid once and writes the PNG, the 3D HTML page
// and the CSV logs into opts.OutputDir.
func run(ctx context.Context, cfg *config.Config, fs interaction.FieldSolver, opts exportOptions, logger *slog.Logger) (*exportSummary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	g, err := cfg.GridFor(cfg.Dims())
	if err != nil {
		return nil, err
	}
	set := charges.NewSet(g, charges.Placement{
		Inset:  cfg.Interaction.PlacementInset,
		Jitter: cfg.Interaction.PlacementJitter,
		Charge: cfg.Interaction.DefaultCharge,
	}, rand.New(rand.NewSource(opts.Seed)))

	queue := &ticketQueue{}
	ctrl := interaction.New(interaction.Config{
		Softening:        cfg.Solver.Softening,
		IncludePotential: cfg.Solver.IncludePotential,
		PickRadius:       cfg.Interaction.PickRadius,
	}, set, queue, logger)

	for _, c := range opts.Charges {
		add := []charges.AddOption{charges.At(c.X, c.Y), charges.WithQ(c.Q)}
		if c.HasZ {
			add = append(add, charges.AtZ(c.Z))
		}
		if _, err := ctrl.AddCharge(add...); err != nil {
			return nil, fmt.Errorf("adding charge at (%g, %g): %w", c.X, c.Y, err)
		}
	}

	if _, err := ctrl.RequestSolve(); err != nil {
		return nil, fmt.Errorf("requesting solve: %w", err)
	}
	ticket, _ := queue.take()
	res, err := fs.SolveField(ctx, ticket.Request)
	result := interaction.Result{Seq: ticket.Seq, Result: res, Err: err}
	if err := ctrl.Apply(result); err != nil {
		return nil, err
	}

	output, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	defer output.Close()
	if err := output.WriteConfig(cfg); err != nil {
		return nil, fmt.Errorf("writing config snapshot: %w", err)
	}
	if err := output.WriteSolve(telemetry.NewSolveRecord(time.Now(), result, set.Len())); err != nil {
		return nil, err
	}
	if result.Err != nil {
		return nil, result.Err
	}

	sum := &exportSummary{
		Dims:     result.Dims,
		FellBack: result.FellBack,
		Stats:    result.Field.Stats(),
	}

	// Probe readings are logged before the equipotential tool replaces them
	if opts.Probe.OK {
		ctrl.ToggleMeasure()
		ctrl.PointerDown(opts.Probe.P)
		ctrl.PointerUp()
		sum.Probes += writeProbes(output, ctrl.Snapshot(), logger)
	}
	if opts.Pick.OK {
		ctrl.ToggleEquipotential()
		ctrl.PointerDown(opts.Pick.P)
		ctrl.PointerUp()
		sum.Probes += writeProbes(output, ctrl.Snapshot(), logger)
	}

	if opts.Null {
		null, err := solver.FindNull(ticket.Request, centroid(set.All()), 0)
		if err != nil {
			return nil, err
		}
		logger.Info("field null located",
			"x", null.Point.X, "y", null.Point.Y, "z", null.Point.Z,
			"magnitude", null.Magnitude,
			"evaluations", null.Evaluations,
		)
		sum.Null = &null
	}

	snap := ctrl.Snapshot()
	display := scene.OptionsFrom(cfg)
	if opts.Contours {
		display.ShowEquipotential = true
	}

	sum.PNG = filepath.Join(opts.OutputDir, "field.png")
	if err := writePNG(sum.PNG, cfg, flatten(snap), display, opts.Width, opts.Height); err != nil {
		return nil, err
	}
	logger.Info("png written", "path", sum.PNG)

	if snap.Field.Grid().Is3D() {
		display.ShowPotentialSurface = true
		sum.HTML = filepath.Join(opts.OutputDir, "field3d.html")
		if err := writeHTML(sum.HTML, cfg, snap, display); err != nil {
			return nil, err
		}
		logger.Info("html written", "path", sum.HTML)
	}
	return sum, nil
}

func writeProbes(output *telemetry.OutputManager, snap interaction.Snapshot, logger *slog.Logger) int {
	recs := telemetry.ProbeRecords(time.Now(), snap)
	if err := output.WriteProbes(recs); err != nil {
		logger.Error("failed to write probes", "error", err)
	}
	for _, r := range recs {
		logger.Info("probe", "mode", r.Mode, "x", r.X, "y", r.Y, "z", r.Z, "potential", r.Potential, "magnitude", r.Magnitude)
	}
	return len(recs)
}

// flatten replaces a 3D field with its middle z layer for the 2D plot.
func flatten(snap interaction.Snapshot) interaction.Snapshot {
	g := snap.Field.Grid()
	if !g.Is3D() {
		return snap
	}
	snap.Field = snap.Field.Slice(g.NZ() / 2)
	snap.Grid = snap.Field.Grid()
	snap.Dims = 2
	return snap
}

func centroid(cs []charges.Charge) r3.Vec {
	var c r3.Vec
	for _, ch := range cs {
		c = r3.Add(c, ch.Pos())
	}
	if len(cs) > 0 {
		c = r3.Scale(1/float64(len(cs)), c)
	}
	return c
}

// fitCamera places the grid's x/y box inside a w x h image with equal
// scales on both axes.
func fitCamera(g field.Grid, w, h int, yUp bool) *camera.Camera {
	availW := float64(w - 2*plotMargin)
	availH := float64(h - 2*plotMargin)
	aspect := g.X.Range() / g.Y.Range()
	pw, ph := availW, availW/aspect
	if ph > availH {
		pw, ph = availH*aspect, availH
	}
	cam := camera.New(pw, ph, g.X.Min, g.Y.Min, g.X.Max, g.Y.Max)
	cam.Place((float64(w)-pw)/2, (float64(h)-ph)/2, pw, ph)
	cam.YUp = yUp
	return cam
}

func writePNG(path string, cfg *config.Config, snap interaction.Snapshot, display scene.Options, w, h int) error {
	surf := renderer.NewPlotSurface(w, h)
	ext := contour.SelectExtractor(surf.Capabilities(), cfg.Isosurface.PreferMesh, cfg.Isosurface.Tolerance, cfg.Isosurface.Epsilon)
	s := scene.New()
	scene.NewBuilder(scene.ParamsFrom(cfg), ext).Build(s, snap, display, fitCamera(snap.Field.Grid(), w, h, cfg.Viewport.YUp))
	renderer.Draw(surf, s)
	if err := surf.SavePNG(path); err != nil {
		return fmt.Errorf("saving png: %w", err)
	}
	return nil
}

func writeHTML(path string, cfg *config.Config, snap interaction.Snapshot, display scene.Options) error {
	surf := renderer.NewScatterSurface(title)
	ext := contour.SelectExtractor(surf.Capabilities(), cfg.Isosurface.PreferMesh, cfg.Isosurface.Tolerance, cfg.Isosurface.Epsilon)
	w, h := surf.Size()
	s := scene.New()
	scene.NewBuilder(scene.ParamsFrom(cfg), ext).Build(s, snap, display, camera.New(w, h, -1, -1, 1, 1))
	renderer.Draw(surf, s)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating html: %w", err)
	}
	defer f.Close()
	if err := surf.Render(f); err != nil {
		return fmt.Errorf("rendering html: %w", err)
	}
	return f.Close()
}
