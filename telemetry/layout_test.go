package telemetry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pthm-cable/fieldscope/charges"
	"github.com/pthm-cable/fieldscope/field"
	"github.com/pthm-cable/fieldscope/interaction"
)

func layoutSnapshot(t *testing.T) interaction.Snapshot {
	t.Helper()
	a := field.Axis{Min: -1, Max: 1, Count: 5}
	g, err := field.NewGrid3D(a, a, a)
	if err != nil {
		t.Fatal(err)
	}
	return interaction.Snapshot{
		Grid: g,
		Seq:  7,
		Charges: []charges.Charge{
			{ID: 0, X: -0.3, Y: 0.1, Z: 0.2, Q: 1e-9},
			{ID: 3, X: 0.4, Y: -0.2, Z: 0, Q: -2e-9},
		},
		Threshold: 0.65,
	}
}

func TestLayoutSaveLoad(t *testing.T) {
	dir := t.TempDir()
	layout := NewLayout(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), layoutSnapshot(t))

	path, err := SaveLayout(layout, dir)
	if err != nil {
		t.Fatalf("SaveLayout failed: %v", err)
	}
	if want := filepath.Join(dir, "layout_7.json"); path != want {
		t.Errorf("Path mismatch: got %s, want %s", path, want)
	}

	loaded, err := LoadLayout(path)
	if err != nil {
		t.Fatalf("LoadLayout failed: %v", err)
	}
	if loaded.Version != LayoutVersion {
		t.Errorf("Version mismatch: got %d, want %d", loaded.Version, LayoutVersion)
	}
	if loaded.SavedAt != "2026-01-02T03:04:05Z" {
		t.Errorf("SavedAt mismatch: got %s", loaded.SavedAt)
	}
	if loaded.Threshold != 0.65 {
		t.Errorf("Threshold mismatch: got %g", loaded.Threshold)
	}
	if len(loaded.Charges) != 2 || loaded.Charges[1] != layout.Charges[1] {
		t.Errorf("Charges mismatch: got %+v", loaded.Charges)
	}
	g, err := loaded.FieldGrid()
	if err != nil {
		t.Fatalf("FieldGrid: %v", err)
	}
	if !g.Is3D() || g.NZ() != 5 {
		t.Errorf("expected the 5^3 grid back, got %+v", g)
	}
}

func TestLoadLayoutRejects(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"future version", `{"version": 99, "grid": {"xmin": -1, "xmax": 1, "ymin": -1, "ymax": 1, "nx": 5, "ny": 5}}`},
		{"bad grid", `{"version": 1, "grid": {"xmin": 1, "xmax": -1, "ymin": -1, "ymax": 1, "nx": 5, "ny": 5}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			if err := os.WriteFile(path, []byte(tt.body), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadLayout(path); err == nil {
				t.Error("expected an error")
			}
		})
	}

	if _, err := LoadLayout(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
