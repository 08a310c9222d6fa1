package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pthm-cable/fieldscope/field"
	"github.com/pthm-cable/fieldscope/interaction"
	"github.com/pthm-cable/fieldscope/solver"
)

// LayoutVersion is incremented when the format changes.
const LayoutVersion = 1

// Layout is a saved charge arrangement that can be reloaded into the viewer
// or the exporter.
type Layout struct {
	Version   int             `json:"version"`
	SavedAt   string          `json:"saved_at"`
	Seq       uint64          `json:"seq"` // Last solve issued when saved
	Grid      solver.GridSpec `json:"grid"`
	Charges   []ChargeState   `json:"charges"`
	Threshold float64         `json:"iso_threshold"`
}

// ChargeState is one saved charge.
type ChargeState struct {
	ID int     `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
	Q  float64 `json:"q"`
}

// NewLayout captures the charges and grid of snap.
func NewLayout(now time.Time, snap interaction.Snapshot) *Layout {
	l := &Layout{
		Version:   LayoutVersion,
		SavedAt:   now.UTC().Format(time.RFC3339),
		Seq:       snap.Seq,
		Grid:      solver.GridSpecFrom(snap.Grid),
		Charges:   make([]ChargeState, len(snap.Charges)),
		Threshold: snap.Threshold,
	}
	for i, c := range snap.Charges {
		l.Charges[i] = ChargeState{ID: c.ID, X: c.X, Y: c.Y, Z: c.Z, Q: c.Q}
	}
	return l
}

// FieldGrid validates and returns the saved grid.
func (l *Layout) FieldGrid() (field.Grid, error) {
	return l.Grid.Grid()
}

// SaveLayout writes a layout to dir as layout_<seq>.json.
// Returns the filepath where it was saved.
func SaveLayout(l *Layout, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create layout dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("layout_%d.json", l.Seq))

	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal layout: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write layout: %w", err)
	}
	return path, nil
}

// LoadLayout reads a layout from disk. Files from a newer format are rejected.
func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}

	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("unmarshal layout: %w", err)
	}
	if l.Version < 1 || l.Version > LayoutVersion {
		return nil, fmt.Errorf("layout %s: unsupported version %d", path, l.Version)
	}
	if _, err := l.FieldGrid(); err != nil {
		return nil, fmt.Errorf("layout %s: %w", path, err)
	}
	return &l, nil
}
