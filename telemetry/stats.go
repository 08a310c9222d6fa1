package telemetry

import (
	"log/slog"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/stat"
)

// SolveStats summarizes solve latency and outcomes over a window.
type SolveStats struct {
	Count     int
	Failures  int
	Fallbacks int
	MeanMS    float64
	P50MS     float64
	P90MS     float64
	MaxMS     float64
}

// SolveWindow accumulates solve records between log flushes.
type SolveWindow struct {
	durations []float64
	failures  int
	fallbacks int
}

// Add records one solve.
func (w *SolveWindow) Add(rec SolveRecord) {
	if rec.Error != "" {
		w.failures++
		return
	}
	if rec.FellBack {
		w.fallbacks++
	}
	w.durations = append(w.durations, rec.DurationMS)
}

// Flush returns the window's statistics and resets it.
func (w *SolveWindow) Flush() SolveStats {
	s := SolveStats{
		Count:     len(w.durations) + w.failures,
		Failures:  w.failures,
		Fallbacks: w.fallbacks,
	}
	if n := len(w.durations); n > 0 {
		sorted := make([]float64, n)
		copy(sorted, w.durations)
		sort.Float64s(sorted)
		s.MeanMS = stat.Mean(sorted, nil)
		s.P50MS = stat.Quantile(0.50, stat.Empirical, sorted, nil)
		s.P90MS = stat.Quantile(0.90, stat.Empirical, sorted, nil)
		s.MaxMS = sorted[n-1]
	}
	*w = SolveWindow{}
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s SolveStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("count", s.Count),
		slog.Int("failures", s.Failures),
		slog.Int("fallbacks", s.Fallbacks),
		slog.Float64("mean_ms", s.MeanMS),
		slog.Float64("p50_ms", s.P50MS),
		slog.Float64("p90_ms", s.P90MS),
		slog.Float64("max_ms", s.MaxMS),
	)
}

// Since returns milliseconds elapsed from start, for ad hoc timing logs.
func Since(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
