package game

import (
	"github.com/pthm-cable/fieldscope/config"
	"github.com/pthm-cable/fieldscope/interaction"
	"github.com/pthm-cable/fieldscope/telemetry"
)

// Options configures a viewer session beyond the config file.
type Options struct {
	Seed      int64
	LogStats  bool   // Log solve and frame summaries every stats window
	OutputDir string // CSV logs and config snapshot; empty disables
	Solver    interaction.FieldSolver
	Layout    *telemetry.Layout // Charges to start with; nil starts empty
}

// controllerConfig maps the config file onto controller tuning.
func controllerConfig(cfg *config.Config) interaction.Config {
	return interaction.Config{
		Softening:         cfg.Solver.Softening,
		IncludePotential:  cfg.Solver.IncludePotential,
		PickRadius:        cfg.Interaction.PickRadius,
		DragSolveInterval: cfg.Derived.DragSolveInterval,
		AutoSolve:         cfg.Interaction.AutoSolve,
	}
}
