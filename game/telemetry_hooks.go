package game

import (
	"fmt"
	"time"

	"github.com/pthm-cable/fieldscope/interaction"
	"github.com/pthm-cable/fieldscope/telemetry"
)

// layoutDir receives saved layouts when no output directory is set.
const layoutDir = "layouts"

// saveLayout writes the current charges next to the CSV logs.
func (g *Game) saveLayout() {
	dir := g.output.Dir()
	if dir == "" {
		dir = layoutDir
	}
	path, err := telemetry.SaveLayout(telemetry.NewLayout(time.Now(), g.session.Controller().Snapshot()), dir)
	if err != nil {
		g.logger.Error("failed to save layout", "error", err)
		return
	}
	g.logger.Info("layout saved", "path", path)
}

// onSolve records an applied or failed solve.
func (g *Game) onSolve(r interaction.Result) {
	if r.Err == nil && r.Field != nil {
		g.fieldStats = r.Field.Stats()
	}
	rec := telemetry.NewSolveRecord(time.Now(), r, len(g.session.set.All()))
	g.solveWindow.Add(rec)
	if err := g.output.WriteSolve(rec); err != nil {
		g.logger.Error("failed to write solve", "error", err)
	}
}

// logSelections appends probe and equipotential picks to probes.csv when
// they change, including re-reads after a new field is applied.
func (g *Game) logSelections() {
	if !g.cfg.Telemetry.ProbeLogging || g.output == nil {
		return
	}
	snap := g.session.Controller().Snapshot()
	key := selectionKey(snap)
	if key == g.selectionKey {
		return
	}
	g.selectionKey = key
	if err := g.output.WriteProbes(telemetry.ProbeRecords(time.Now(), snap)); err != nil {
		g.logger.Error("failed to write probes", "error", err)
	}
}

func selectionKey(snap interaction.Snapshot) string {
	var probe, iso string
	if snap.Probe != nil {
		probe = fmt.Sprintf("%v/%v", snap.Probe.Point, snap.Probe.Stale)
	}
	if snap.Iso != nil {
		iso = fmt.Sprintf("%v", snap.Iso.Point)
	}
	return fmt.Sprintf("%s|%s|%d", probe, iso, snap.Applied)
}

// flushTelemetry summarizes solves and frame timing once per stats window.
func (g *Game) flushTelemetry() {
	window := g.cfg.Derived.StatsWindow
	if window <= 0 || time.Since(g.lastFlush) < window {
		return
	}
	g.lastFlush = time.Now()

	perfStats := g.perf.Stats()
	solveStats := g.solveWindow.Flush()
	if g.logStats {
		g.logger.Info("solves", "stats", solveStats)
		g.logger.Info("perf", "stats", perfStats)
	}
	if err := g.output.WritePerf(perfStats, g.frame); err != nil {
		g.logger.Error("failed to write perf", "error", err)
	}
}
