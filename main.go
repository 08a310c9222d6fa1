package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fieldscope/config"
	"github.com/pthm-cable/fieldscope/game"
	"github.com/pthm-cable/fieldscope/httputil"
	"github.com/pthm-cable/fieldscope/interaction"
	"github.com/pthm-cable/fieldscope/solver"
	"github.com/pthm-cable/fieldscope/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	solverURL := flag.String("solver", "", "Solver base URL (empty = use config)")
	local := flag.Bool("local", false, "Solve in-process instead of calling the solver service")
	skipHealth := flag.Bool("skip-health", false, "Start even if the solver health check fails")
	logStats := flag.Bool("log-stats", false, "Output solve and frame stats via slog")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot (empty = use config)")
	mode := flag.String("mode", "", "Initial grid mode, 2d or 3d (empty = use config)")
	seed := flag.Int64("seed", 0, "RNG seed for charge placement (0 = time-based)")
	layoutPath := flag.String("layout", "", "Saved layout JSON to start from")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -log-level %q\n", *logLevel)
		os.Exit(2)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	if *mode != "" {
		if *mode != "2d" && *mode != "3d" {
			slog.Error("invalid -mode", "mode", *mode)
			os.Exit(2)
		}
		cfg.Grid.Mode = *mode
		cfg.Derived.Is3D = *mode == "3d"
	}
	if *solverURL != "" {
		cfg.Solver.BaseURL = *solverURL
	}
	if *outputDir != "" {
		cfg.Telemetry.OutputDir = *outputDir
	}

	var layout *telemetry.Layout
	if *layoutPath != "" {
		l, err := telemetry.LoadLayout(*layoutPath)
		if err != nil {
			slog.Error("failed to load layout", "error", err)
			os.Exit(1)
		}
		layout = l
	}

	fieldSolver, err := newSolver(cfg, *local, *skipHealth, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\nStart the solver service, pass -local to solve in-process, or -skip-health to continue anyway.\n", err)
		os.Exit(1)
	}

	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), game.Title)
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	g, err := game.NewGameWithOptions(game.Options{
		Seed:      *seed,
		LogStats:  *logStats,
		OutputDir: cfg.Telemetry.OutputDir,
		Solver:    fieldSolver,
		Layout:    layout,
	})
	if err != nil {
		slog.Error("failed to start viewer", "error", err)
		return
	}
	defer g.Unload()

	for !rl.WindowShouldClose() {
		g.Update()
		g.Draw()
	}
	slog.Info("viewer closed", "frames", g.Frame())
}

// newSolver returns the in-process solver or a client for the configured
// service after a health check.
func newSolver(cfg *config.Config, local, skipHealth bool, logger *slog.Logger) (interaction.FieldSolver, error) {
	if local {
		logger.Info("using in-process solver")
		return solver.NewLocal(solver.Limits{
			MaxCount2D: cfg.Grid.MaxCount2D,
			MaxCount3D: cfg.Grid.MaxCount3D,
		}), nil
	}

	client := solver.NewClient(cfg.Solver.BaseURL, httputil.NewStandardClient(cfg.Derived.SolveTimeout), cfg.Solver.Fallback2D, logger)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Derived.HealthTimeout)
	defer cancel()

	start := time.Now()
	if err := client.Health(ctx); err != nil {
		if !skipHealth {
			return nil, fmt.Errorf("solver at %s is not reachable: %w", cfg.Solver.BaseURL, err)
		}
		logger.Warn("solver health check failed, continuing", "url", cfg.Solver.BaseURL, "error", err)
		return client, nil
	}
	logger.Info("solver healthy",
		"url", cfg.Solver.BaseURL,
		"session", client.Session(),
		"latency_ms", float64(time.Since(start).Microseconds())/1000,
	)
	return client, nil
}
