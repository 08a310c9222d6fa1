package game

import (
	"fmt"
	"log/slog"
	"math/rand"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fieldscope/charges"
	"github.com/pthm-cable/fieldscope/config"
	"github.com/pthm-cable/fieldscope/interaction"
	"github.com/pthm-cable/fieldscope/telemetry"
	"github.com/pthm-cable/fieldscope/ui"
)

// Session ties the charge set and controller to the configured grids. It
// holds no window state and runs on the loop goroutine only.
type Session struct {
	cfg        *config.Config
	set        *charges.Set
	controller *interaction.Controller
	logger     *slog.Logger
}

// NewSession creates a session on the configured grid mode. Solves go
// through d.
func NewSession(cfg *config.Config, d interaction.Dispatcher, rng *rand.Rand, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	g, err := cfg.GridFor(cfg.Dims())
	if err != nil {
		return nil, err
	}
	set := charges.NewSet(g, charges.Placement{
		Inset:  cfg.Interaction.PlacementInset,
		Jitter: cfg.Interaction.PlacementJitter,
		Charge: cfg.Interaction.DefaultCharge,
	}, rng)
	return &Session{
		cfg:        cfg,
		set:        set,
		controller: interaction.New(controllerConfig(cfg), set, d, logger),
		logger:     logger,
	}, nil
}

// Controller returns the session's controller.
func (s *Session) Controller() *interaction.Controller { return s.controller }

// Dims returns the dimensionality of the current grid.
func (s *Session) Dims() int {
	g, _ := s.set.Grid()
	return g.Dims
}

// ToggleDims switches between the configured 2D and 3D grids. Charges are
// clamped into the new grid.
func (s *Session) ToggleDims() error {
	dims := 3
	if s.Dims() == 3 {
		dims = 2
	}
	g, err := s.cfg.GridFor(dims)
	if err != nil {
		s.logger.Error("grid switch failed", "dims", dims, "error", err)
		return err
	}
	s.logger.Info("grid switched", "dims", dims)
	return s.controller.SetGrid(g)
}

// FlipCharge inverts the sign of a charge.
func (s *Session) FlipCharge(id int) error {
	ch, ok := s.set.Get(id)
	if !ok {
		return fmt.Errorf("flip charge %d: %w", id, charges.ErrUnknownCharge)
	}
	return s.controller.SetChargeQ(id, -ch.Q)
}

// Restore replaces the grid and charges with a saved layout.
func (s *Session) Restore(l *telemetry.Layout) error {
	g, err := l.FieldGrid()
	if err != nil {
		return fmt.Errorf("restoring layout: %w", err)
	}
	cs := make([]charges.Charge, len(l.Charges))
	for i, c := range l.Charges {
		cs[i] = charges.Charge{ID: c.ID, X: c.X, Y: c.Y, Z: c.Z, Q: c.Q}
	}
	if err := s.controller.Load(g, cs); err != nil {
		return fmt.Errorf("restoring layout: %w", err)
	}
	s.controller.SetIsoThreshold(l.Threshold)
	s.logger.Info("layout restored", "charges", len(cs), "dims", g.Dims)
	return nil
}

// Apply performs the toolbar actions. Edits run before a requested solve so
// the solve includes them. Failures are already reported in the status.
func (s *Session) Apply(act ui.Action) {
	c := s.controller
	if act.ToggleMeasure {
		c.ToggleMeasure()
	}
	if act.ToggleEquipotential {
		c.ToggleEquipotential()
	}
	if act.ThresholdChanged {
		c.SetIsoThreshold(act.Threshold)
	}
	if act.ToggleDims {
		s.ToggleDims()
	}
	if act.AddCharge {
		c.AddCharge()
	}
	if act.Flip {
		s.FlipCharge(act.FlipID)
	}
	if act.Remove {
		c.RemoveCharge(act.RemoveID)
	}
	if act.Solve {
		c.RequestSolve()
	}
}

// KeyAction maps a key press to a toolbar action.
func KeyAction(key int32, snap interaction.Snapshot) (ui.Action, bool) {
	act := ui.Action{Threshold: snap.Threshold}
	switch key {
	case rl.KeyR, rl.KeyEnter:
		act.Solve = true
	case rl.KeyA:
		act.AddCharge = true
	case rl.KeyM:
		act.ToggleMeasure = true
	case rl.KeyE:
		act.ToggleEquipotential = true
	case rl.KeyTab:
		act.ToggleDims = true
	case rl.KeyS:
		act.SaveLayout = true
	case rl.KeyDelete, rl.KeyBackspace:
		// Remove the charge being dragged, else the newest one
		switch {
		case snap.Dragging:
			act.Remove, act.RemoveID = true, snap.DragID
		case len(snap.Charges) > 0:
			act.Remove, act.RemoveID = true, snap.Charges[len(snap.Charges)-1].ID
		default:
			return act, false
		}
	case rl.KeyLeftBracket, rl.KeyRightBracket:
		if !snap.Grid.Is3D() {
			return act, false
		}
		step := 0.05
		if key == rl.KeyLeftBracket {
			step = -step
		}
		act.Threshold, act.ThresholdChanged = snap.Threshold+step, true
	default:
		return act, false
	}
	return act, true
}

// Controls is the key legend shown under the plot.
const Controls = "R: solve | A: add | Del: remove | M: measure | E: equipotential | Tab: 2D/3D | S: save layout | [ ]: iso level | 1-6: layers | F3: perf"
