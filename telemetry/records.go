package telemetry

import (
	"math"
	"time"

	"github.com/pthm-cable/fieldscope/interaction"
)

// SolveRecord is one applied or failed solve, written to solves.csv.
type SolveRecord struct {
	Time       string  `csv:"time"`
	Seq        uint64  `csv:"seq"`
	Requested  int     `csv:"requested_dims"`
	Dims       int     `csv:"dims"`
	FellBack   bool    `csv:"fell_back"`
	Exhausted  bool    `csv:"exhausted"`
	Charges    int     `csv:"charges"`
	NX         int     `csv:"nx"`
	NY         int     `csv:"ny"`
	NZ         int     `csv:"nz"`
	DurationMS float64 `csv:"duration_ms"`
	VMin       float64 `csv:"v_min"`
	VMax       float64 `csv:"v_max"`
	MaxField   float64 `csv:"max_field"`
	Error      string  `csv:"error"`
}

// NewSolveRecord flattens a solve result. Field statistics are left at zero
// for failed solves.
func NewSolveRecord(now time.Time, r interaction.Result, charges int) SolveRecord {
	rec := SolveRecord{
		Time:       now.UTC().Format(time.RFC3339Nano),
		Seq:        r.Seq,
		Requested:  r.Requested,
		Dims:       r.Dims,
		FellBack:   r.FellBack,
		Exhausted:  r.Exhausted,
		Charges:    charges,
		DurationMS: float64(r.Duration.Microseconds()) / 1000,
	}
	if r.Err != nil {
		rec.Error = r.Err.Error()
		return rec
	}
	if r.Field != nil {
		g := r.Field.Grid()
		rec.NX, rec.NY, rec.NZ = g.NX(), g.NY(), g.NZ()
		st := r.Field.Stats()
		if st.Finite > 0 {
			rec.VMin, rec.VMax = st.Min, st.Max
		}
		rec.MaxField = st.MaxField
	}
	return rec
}

// ProbeRecord is one measure or equipotential pick, written to probes.csv.
type ProbeRecord struct {
	Time      string  `csv:"time"`
	Mode      string  `csv:"mode"`
	X         float64 `csv:"x"`
	Y         float64 `csv:"y"`
	Z         float64 `csv:"z"`
	Potential string  `csv:"potential"` // Empty when the field has no data there
	Magnitude float64 `csv:"magnitude"`
	Stale     bool    `csv:"stale"`
}

// ProbeRecords returns the selections of snap worth logging.
func ProbeRecords(now time.Time, snap interaction.Snapshot) []ProbeRecord {
	ts := now.UTC().Format(time.RFC3339Nano)
	var out []ProbeRecord
	if p := snap.Probe; p != nil {
		out = append(out, ProbeRecord{
			Time:      ts,
			Mode:      interaction.ModeMeasure.String(),
			X:         p.Point.X,
			Y:         p.Point.Y,
			Z:         p.Point.Z,
			Potential: formatValue(p.Scalar),
			Magnitude: p.Magnitude,
			Stale:     p.Stale,
		})
	}
	if iso := snap.Iso; iso != nil {
		out = append(out, ProbeRecord{
			Time:      ts,
			Mode:      interaction.ModeEquipotential.String(),
			X:         iso.Point.X,
			Y:         iso.Point.Y,
			Z:         iso.Point.Z,
			Potential: formatValue(iso.Value),
			Stale:     snap.Stale,
		})
	}
	return out
}

func formatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return formatFloat(v)
}
