// Package config provides configuration loading and access for the viewer.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all viewer configuration parameters.
type Config struct {
	Screen      ScreenConfig      `yaml:"screen"`
	Viewport    ViewportConfig    `yaml:"viewport"`
	Solver      SolverConfig      `yaml:"solver"`
	Grid        GridConfig        `yaml:"grid"`
	Display     DisplayConfig     `yaml:"display"`
	Contour     ContourConfig     `yaml:"contour"`
	Isosurface  IsosurfaceConfig  `yaml:"isosurface"`
	Interaction InteractionConfig `yaml:"interaction"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// ViewportConfig holds the plot area placement inside the window.
type ViewportConfig struct {
	Margin      int  `yaml:"margin"`       // Pixels around the plot area
	ToolbarSize int  `yaml:"toolbar_size"` // Pixels reserved on the left for the toolbar
	YUp         bool `yaml:"y_up"`         // Flip so world y grows upwards
}

// SolverConfig holds solver service parameters.
type SolverConfig struct {
	BaseURL          string  `yaml:"base_url"`
	TimeoutSec       float64 `yaml:"timeout_sec"`
	HealthTimeoutSec float64 `yaml:"health_timeout_sec"`
	Softening        float64 `yaml:"softening"`
	IncludePotential bool    `yaml:"include_potential"`
	Fallback2D       bool    `yaml:"fallback_2d"` // Retry failed 3D solves in 2D
}

// AxisConfig is one grid axis.
type AxisConfig struct {
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`
	Count int     `yaml:"count"`
}

// GridConfig holds the initial grid definitions for both modes.
type GridConfig struct {
	Mode       string     `yaml:"mode"` // "2d" or "3d"
	X          AxisConfig `yaml:"x"`
	Y          AxisConfig `yaml:"y"`
	Z          AxisConfig `yaml:"z"`
	Count3D    int        `yaml:"count_3d"`    // Sample count per axis in 3D mode
	MaxCount2D int        `yaml:"max_count_2d"` // Solver limit per axis in 2D
	MaxCount3D int        `yaml:"max_count_3d"` // Solver limit per axis in 3D
}

// DisplayConfig holds the initial display toggles.
type DisplayConfig struct {
	ShowFieldLines       bool `yaml:"show_field_lines"`
	ShowPotential        bool `yaml:"show_potential"`
	ShowEquipotential    bool `yaml:"show_equipotential"`
	ShowFieldVectors     bool `yaml:"show_field_vectors"`
	ShowPotentialSurface bool `yaml:"show_potential_surface"`
	ShowHeatmap          bool `yaml:"show_heatmap"`
}

// ContourConfig holds 2D contour parameters.
type ContourConfig struct {
	Bands           int `yaml:"bands"`             // Number of equal-width bands (N-1 boundaries)
	LabelHalfHeight int `yaml:"label_half_height"` // Rows above/below the middle scanned for labels
	ArrowDivisions  int `yaml:"arrow_divisions"`   // Field arrows every nx/arrow_divisions samples
	ArrowLength     int `yaml:"arrow_length"`      // Arrow length in pixels
}

// IsosurfaceConfig holds 3D isosurface parameters.
type IsosurfaceConfig struct {
	Surfaces        int     `yaml:"surfaces"`         // Number of surfaces in the default sweep
	BaseIndex       int     `yaml:"base_index"`       // Offset in (n+base)/(num+base+1)
	Tolerance       float64 `yaml:"tolerance"`        // Relative band for the point cloud fallback
	Epsilon         float64 `yaml:"epsilon"`          // Absolute band for the point cloud fallback
	HeatmapDivisor  int     `yaml:"heatmap_divisor"`  // Heatmap stride = max(1, min(n)/divisor)
	VectorDivisions int     `yaml:"vector_divisions"` // 3D vectors every min(n)/divisions samples
	PreferMesh      bool    `yaml:"prefer_mesh"`      // Use triangle meshes when the surface supports them
}

// InteractionConfig holds pointer and charge editing parameters.
type InteractionConfig struct {
	PickRadius        float64 `yaml:"pick_radius"`         // World units
	PlacementInset    float64 `yaml:"placement_inset"`     // Fraction of the range kept clear for new charges
	PlacementJitter   float64 `yaml:"placement_jitter"`    // Fraction of the y range used for random y
	DefaultCharge     float64 `yaml:"default_charge"`      // Coulombs, sign alternates
	DragSolveInterval float64 `yaml:"drag_solve_interval"` // Seconds between solves while dragging (0 = every move)
	AutoSolve         bool    `yaml:"auto_solve"`          // Solve after every edit, not only drags
}

// TelemetryConfig holds output parameters.
type TelemetryConfig struct {
	OutputDir    string  `yaml:"output_dir"`    // Empty disables CSV output
	StatsWindow  float64 `yaml:"stats_window"`  // Seconds between solve/perf summaries
	PerfWindow   int     `yaml:"perf_window"`   // Frames averaged by the perf collector
	ProbeLogging bool    `yaml:"probe_logging"` // Append probe picks to probes.csv
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	ScreenW32         float32       // Screen.Width as float32
	ScreenH32         float32       // Screen.Height as float32
	SolveTimeout      time.Duration // Solver.TimeoutSec
	HealthTimeout     time.Duration // Solver.HealthTimeoutSec
	DragSolveInterval time.Duration // Interaction.DragSolveInterval
	StatsWindow       time.Duration // Telemetry.StatsWindow
	Is3D              bool          // Grid.Mode == "3d"
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Grid.Mode {
	case "2d", "3d":
	default:
		return fmt.Errorf("grid.mode must be 2d or 3d, got %q", c.Grid.Mode)
	}
	if c.Contour.Bands < 2 {
		return fmt.Errorf("contour.bands must be at least 2, got %d", c.Contour.Bands)
	}
	if c.Isosurface.Surfaces < 1 {
		return fmt.Errorf("isosurface.surfaces must be at least 1, got %d", c.Isosurface.Surfaces)
	}
	if c.Interaction.PickRadius <= 0 {
		return fmt.Errorf("interaction.pick_radius must be positive, got %g", c.Interaction.PickRadius)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.ScreenW32 = float32(c.Screen.Width)
	c.Derived.ScreenH32 = float32(c.Screen.Height)
	c.Derived.SolveTimeout = seconds(c.Solver.TimeoutSec)
	c.Derived.HealthTimeout = seconds(c.Solver.HealthTimeoutSec)
	c.Derived.DragSolveInterval = seconds(c.Interaction.DragSolveInterval)
	c.Derived.StatsWindow = seconds(c.Telemetry.StatsWindow)
	c.Derived.Is3D = c.Grid.Mode == "3d"

	// The 3D grid reuses the 2D extents with its own sample count
	if c.Grid.Count3D == 0 {
		c.Grid.Count3D = c.Grid.Z.Count
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
