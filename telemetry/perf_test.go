package telemetry

import (
	"testing"
	"time"
)

// stepClock advances by the queued steps on each call.
type stepClock struct {
	t     time.Time
	steps []time.Duration
}

func (c *stepClock) now() time.Time {
	if len(c.steps) > 0 {
		c.t = c.t.Add(c.steps[0])
		c.steps = c.steps[1:]
	}
	return c.t
}

func TestPerfCollector_PhaseTiming(t *testing.T) {
	pc := NewPerfCollector(10)
	clock := &stepClock{}
	pc.now = clock.now

	for i := 0; i < 4; i++ {
		// StartFrame, StartPhase(build) +0, StartPhase(draw) +2ms, EndFrame +6ms
		clock.steps = append(clock.steps, 0, 0, 2*time.Millisecond, 6*time.Millisecond)
		pc.StartFrame()
		pc.StartPhase(PhaseBuild)
		pc.StartPhase(PhaseDraw)
		pc.EndFrame()
	}

	stats := pc.Stats()
	if stats.AvgFrame != 8*time.Millisecond {
		t.Errorf("avg frame = %v, want 8ms", stats.AvgFrame)
	}
	if stats.PhaseAvg[PhaseBuild] != 2*time.Millisecond {
		t.Errorf("build avg = %v, want 2ms", stats.PhaseAvg[PhaseBuild])
	}
	if pct := stats.PhasePct[PhaseDraw]; pct != 75 {
		t.Errorf("draw pct = %v, want 75", pct)
	}
	if stats.FPS != 125 {
		t.Errorf("fps = %v, want 125", stats.FPS)
	}
	if pc.Frames() != 4 {
		t.Errorf("frames = %d, want 4", pc.Frames())
	}
}

func TestPerfCollector_WindowWraps(t *testing.T) {
	pc := NewPerfCollector(2)
	clock := &stepClock{}
	pc.now = clock.now

	for _, d := range []time.Duration{100, 1, 3} {
		clock.steps = append(clock.steps, 0, d*time.Millisecond)
		pc.StartFrame()
		pc.EndFrame()
	}

	stats := pc.Stats()
	if stats.MaxFrame != 3*time.Millisecond || stats.MinFrame != time.Millisecond {
		t.Errorf("expected the oldest frame evicted, got min %v max %v", stats.MinFrame, stats.MaxFrame)
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	pc := NewPerfCollector(10)

	stats := pc.Stats()

	// Empty collector should return zero values without panicking
	if stats.AvgFrame != 0 {
		t.Error("expected zero avg frame duration for empty collector")
	}
	if stats.PhaseAvg == nil {
		t.Error("expected non-nil PhaseAvg map")
	}
	if stats.PhasePct == nil {
		t.Error("expected non-nil PhasePct map")
	}
}

func TestPerfStatsToCSV(t *testing.T) {
	s := PerfStats{
		AvgFrame: 1500 * time.Microsecond,
		PhasePct: map[string]float64{PhaseBuild: 40, PhaseDraw: 60},
		FPS:      666,
	}
	row := s.ToCSV(120)
	if row.Frame != 120 || row.AvgFrameUS != 1500 || row.BuildPct != 40 || row.DrawPct != 60 {
		t.Errorf("unexpected row: %+v", row)
	}
}
