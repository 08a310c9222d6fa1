// Package main solves one charge configuration without a window and exports
// the result: a PNG of the 2D plot, an HTML point cloud for 3D fields and the
// usual CSV logs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/pthm-cable/fieldscope/config"
	"github.com/pthm-cable/fieldscope/httputil"
	"github.com/pthm-cable/fieldscope/interaction"
	"github.com/pthm-cable/fieldscope/solver"
	"github.com/pthm-cable/fieldscope/telemetry"
)

const title = "Field Scope"

func main() {
	var opts exportOptions
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	mode := flag.String("mode", "", "Grid mode, 2d or 3d (empty = use config)")
	solverURL := flag.String("solver", "", "Solver base URL (empty = solve in-process)")
	flag.Var(&opts.Charges, "charge", "Charge as x,y,q or x,y,z,q (repeatable, default a dipole)")
	flag.Var(&opts.Probe, "probe", "Measure the field at x,y[,z]")
	flag.Var(&opts.Pick, "pick", "Pick the equipotential through x,y[,z]")
	flag.BoolVar(&opts.Contours, "equipotentials", false, "Draw equipotential bands")
	flag.BoolVar(&opts.Null, "null", false, "Locate the point of weakest field")
	flag.StringVar(&opts.OutputDir, "out", "export", "Output directory")
	flag.IntVar(&opts.Width, "width", 900, "PNG width in pixels")
	flag.IntVar(&opts.Height, "height", 900, "PNG height in pixels")
	layoutPath := flag.String("layout", "", "Saved layout JSON to export (overrides -charge and -mode)")
	flag.Int64Var(&opts.Seed, "seed", 1, "RNG seed for charge placement")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	if *mode != "" {
		if *mode != "2d" && *mode != "3d" {
			fmt.Fprintf(os.Stderr, "invalid -mode %q\n", *mode)
			os.Exit(2)
		}
		cfg.Grid.Mode = *mode
		cfg.Derived.Is3D = *mode == "3d"
	}
	if *layoutPath != "" {
		l, err := telemetry.LoadLayout(*layoutPath)
		if err != nil {
			slog.Error("failed to load layout", "error", err)
			os.Exit(1)
		}
		applyLayout(cfg, &opts, l)
	}
	if len(opts.Charges) == 0 {
		opts.Charges = defaultCharges()
	}

	var fs interaction.FieldSolver = solver.NewLocal(solver.Limits{
		MaxCount2D: cfg.Grid.MaxCount2D,
		MaxCount3D: cfg.Grid.MaxCount3D,
	})
	if *solverURL != "" {
		fs = solver.NewClient(*solverURL, httputil.NewStandardClient(cfg.Derived.SolveTimeout), cfg.Solver.Fallback2D, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sum, err := run(ctx, cfg, fs, opts, logger)
	if err != nil {
		slog.Error("export failed", "error", err)
		os.Exit(1)
	}
	slog.Info("export complete",
		"dir", opts.OutputDir,
		"dims", sum.Dims,
		"fell_back", sum.FellBack,
		"v_min", sum.Stats.Min,
		"v_max", sum.Stats.Max,
		"max_field", sum.Stats.MaxField,
		"probes", sum.Probes,
	)
}
