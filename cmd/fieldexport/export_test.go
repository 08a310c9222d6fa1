package main

import (
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pthm-cable/fieldscope/charges"
	"github.com/pthm-cable/fieldscope/config"
	"github.com/pthm-cable/fieldscope/interaction"
	"github.com/pthm-cable/fieldscope/solver"
	"github.com/pthm-cable/fieldscope/telemetry"
)

func testConfig(t *testing.T, dims int) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Grid.X.Count, cfg.Grid.Y.Count = 15, 15
	cfg.Grid.Count3D = 7
	cfg.Derived.Is3D = dims == 3
	return cfg
}

func testOptions(t *testing.T) exportOptions {
	return exportOptions{
		Charges:   defaultCharges(),
		OutputDir: t.TempDir(),
		Width:     200,
		Height:    160,
		Seed:      1,
	}
}

func TestChargeListSet(t *testing.T) {
	tests := []struct {
		in      string
		want    chargeArg
		wantErr bool
	}{
		{"0.1,-0.2,1e-9", chargeArg{X: 0.1, Y: -0.2, Q: 1e-9}, false},
		{"0, 0, 0.5, -2e-9", chargeArg{Z: 0.5, Q: -2e-9, HasZ: true}, false},
		{"1,2", chargeArg{}, true},
		{"a,b,c", chargeArg{}, true},
	}
	for _, tt := range tests {
		var l chargeList
		err := l.Set(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: %v", tt.in, err)
			continue
		}
		if len(l) != 1 || l[0] != tt.want {
			t.Errorf("%q: got %+v, want %+v", tt.in, l, tt.want)
		}
	}
}

func TestPointArgSet(t *testing.T) {
	var a pointArg
	if a.String() != "" {
		t.Errorf("unset point should print empty, got %q", a.String())
	}
	if err := a.Set("0.25,-0.5"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !a.OK || a.P.X != 0.25 || a.P.Y != -0.5 || a.P.Z != 0 {
		t.Errorf("unexpected point %+v", a)
	}
	if err := a.Set("1"); err == nil {
		t.Error("expected error for a single coordinate")
	}
}

func TestRun2D(t *testing.T) {
	cfg := testConfig(t, 2)
	opts := testOptions(t)
	opts.Contours = true
	opts.Null = true
	if err := opts.Probe.Set("0,0.5"); err != nil {
		t.Fatal(err)
	}
	if err := opts.Pick.Set("0.5,0.5"); err != nil {
		t.Fatal(err)
	}

	sum, err := run(context.Background(), cfg, solver.NewLocal(solver.DefaultLimits), opts, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Dims != 2 || sum.FellBack {
		t.Errorf("expected a 2D solve, got dims=%d fell_back=%v", sum.Dims, sum.FellBack)
	}
	if sum.Stats.Min >= 0 || sum.Stats.Max <= 0 {
		t.Errorf("a dipole should span both signs, got %g..%g", sum.Stats.Min, sum.Stats.Max)
	}
	if sum.Probes != 2 {
		t.Errorf("expected 2 probe records, got %d", sum.Probes)
	}
	if sum.HTML != "" {
		t.Errorf("no HTML expected for a 2D field, got %q", sum.HTML)
	}
	if sum.Null == nil {
		t.Fatal("expected a null search result")
	}

	f, err := os.Open(sum.PNG)
	if err != nil {
		t.Fatalf("open png: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 160 {
		t.Errorf("expected 200x160, got %v", b)
	}

	for _, name := range []string{"config.yaml", "solves.csv", "probes.csv"} {
		if _, err := os.Stat(filepath.Join(opts.OutputDir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	probes, err := os.ReadFile(filepath.Join(opts.OutputDir, "probes.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(probes), "measure") || !strings.Contains(string(probes), "equipotential") {
		t.Errorf("expected both tools in probes.csv, got:\n%s", probes)
	}
}

func TestRun3D(t *testing.T) {
	cfg := testConfig(t, 3)
	opts := testOptions(t)

	sum, err := run(context.Background(), cfg, solver.NewLocal(solver.DefaultLimits), opts, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Dims != 3 {
		t.Errorf("expected a 3D solve, got %d", sum.Dims)
	}
	if sum.HTML == "" {
		t.Fatal("expected an HTML export for a 3D field")
	}
	html, err := os.ReadFile(sum.HTML)
	if err != nil {
		t.Fatalf("read html: %v", err)
	}
	if !strings.Contains(string(html), "scatter3D") {
		t.Errorf("expected a scatter3D chart, got %.200s", html)
	}
	if _, err := os.Stat(sum.PNG); err != nil {
		t.Errorf("missing png: %v", err)
	}
}

type failingSolver struct{}

func (failingSolver) SolveField(ctx context.Context, req solver.Request) (solver.Result, error) {
	return solver.Result{Requested: req.Dims()}, &solver.SolveError{Dims: req.Dims(), Err: errors.New("service down")}
}

func TestRunSolverFailure(t *testing.T) {
	cfg := testConfig(t, 2)
	opts := testOptions(t)

	_, err := run(context.Background(), cfg, failingSolver{}, opts, nil)
	if !errors.Is(err, solver.ErrSolve) {
		t.Fatalf("expected ErrSolve, got %v", err)
	}
	solves, err := os.ReadFile(filepath.Join(opts.OutputDir, "solves.csv"))
	if err != nil {
		t.Fatalf("read solves.csv: %v", err)
	}
	if !strings.Contains(string(solves), "service down") {
		t.Errorf("expected the failure in solves.csv, got:\n%s", solves)
	}
}

func TestRunRejectsEmptyCharges(t *testing.T) {
	cfg := testConfig(t, 2)
	opts := testOptions(t)
	opts.Charges = nil

	if _, err := run(context.Background(), cfg, solver.NewLocal(solver.DefaultLimits), opts, nil); err == nil {
		t.Error("expected an error without charges")
	}
}

func TestApplyLayout(t *testing.T) {
	cfg := testConfig(t, 2)
	grid, err := cfg.GridFor(3)
	if err != nil {
		t.Fatal(err)
	}
	layout := telemetry.NewLayout(time.Now(), interaction.Snapshot{
		Grid:    grid,
		Charges: []charges.Charge{{ID: 0, X: 0.2, Y: 0.1, Z: -0.4, Q: 3e-9}},
	})

	opts := testOptions(t)
	applyLayout(cfg, &opts, layout)
	if cfg.Dims() != 3 || cfg.Grid.Count3D != 7 {
		t.Errorf("expected the 7^3 layout grid, got %dD count %d", cfg.Dims(), cfg.Grid.Count3D)
	}
	want := chargeArg{X: 0.2, Y: 0.1, Z: -0.4, Q: 3e-9, HasZ: true}
	if len(opts.Charges) != 1 || opts.Charges[0] != want {
		t.Errorf("unexpected charges %+v", opts.Charges)
	}

	sum, err := run(context.Background(), cfg, solver.NewLocal(solver.DefaultLimits), opts, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Dims != 3 || sum.Stats.Min <= 0 {
		t.Errorf("expected a positive 3D potential, got dims=%d min=%g", sum.Dims, sum.Stats.Min)
	}
}
