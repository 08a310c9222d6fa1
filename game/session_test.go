package game

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fieldscope/charges"
	"github.com/pthm-cable/fieldscope/config"
	"github.com/pthm-cable/fieldscope/interaction"
	"github.com/pthm-cable/fieldscope/telemetry"
	"github.com/pthm-cable/fieldscope/ui"
)

func init() {
	config.MustInit("")
}

type recordingDispatcher struct {
	tickets []interaction.Ticket
}

func (d *recordingDispatcher) Dispatch(t interaction.Ticket) {
	d.tickets = append(d.tickets, t)
}

func newTestSession(t *testing.T) (*Session, *recordingDispatcher) {
	t.Helper()
	d := &recordingDispatcher{}
	s, err := NewSession(config.Cfg(), d, rand.New(rand.NewSource(3)), nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s, d
}

func TestSessionApplyAddAndSolve(t *testing.T) {
	s, d := newTestSession(t)
	s.Apply(ui.Action{AddCharge: true, Solve: true})

	snap := s.Controller().Snapshot()
	if len(snap.Charges) != 1 {
		t.Fatalf("expected 1 charge, got %d", len(snap.Charges))
	}
	// One solve from the edit, one requested explicitly
	if len(d.tickets) != 2 {
		t.Fatalf("expected 2 tickets, got %d", len(d.tickets))
	}
	last := d.tickets[len(d.tickets)-1]
	if len(last.Request.Charges) != 1 || last.Seq != 2 {
		t.Errorf("unexpected last ticket %+v", last)
	}
}

func TestSessionSolveWithoutChargesBlocked(t *testing.T) {
	s, d := newTestSession(t)
	s.Apply(ui.Action{Solve: true})
	if len(d.tickets) != 0 {
		t.Errorf("expected no ticket, got %d", len(d.tickets))
	}
	if st := s.Controller().Status(); st.Level != interaction.LevelError {
		t.Errorf("expected error status, got %+v", st)
	}
}

func TestSessionToggleDims(t *testing.T) {
	s, d := newTestSession(t)
	s.Apply(ui.Action{AddCharge: true})
	before := len(d.tickets)

	s.Apply(ui.Action{ToggleDims: true})
	if s.Dims() != 3 {
		t.Fatalf("expected 3D after toggle, got %dD", s.Dims())
	}
	if len(d.tickets) != before+1 || d.tickets[len(d.tickets)-1].Request.Dims() != 3 {
		t.Errorf("expected a 3D solve after the switch")
	}
	snap := s.Controller().Snapshot()
	if !snap.Stale {
		t.Error("expected field stale after a grid change")
	}

	if err := s.ToggleDims(); err != nil {
		t.Fatalf("ToggleDims: %v", err)
	}
	if s.Dims() != 2 {
		t.Errorf("expected 2D after second toggle, got %dD", s.Dims())
	}
}

func TestSessionFlipAndRemove(t *testing.T) {
	s, _ := newTestSession(t)
	ch, err := s.Controller().AddCharge(charges.At(0.2, 0.1))
	if err != nil {
		t.Fatalf("AddCharge: %v", err)
	}

	s.Apply(ui.Action{Flip: true, FlipID: ch.ID})
	got, _ := s.set.Get(ch.ID)
	if got.Q != -ch.Q {
		t.Errorf("expected q %g after flip, got %g", -ch.Q, got.Q)
	}

	if err := s.FlipCharge(99); !errors.Is(err, charges.ErrUnknownCharge) {
		t.Errorf("expected ErrUnknownCharge, got %v", err)
	}

	s.Apply(ui.Action{Remove: true, RemoveID: ch.ID})
	if s.set.Len() != 0 {
		t.Errorf("expected charge removed, %d left", s.set.Len())
	}
}

func TestSessionToolsAndThreshold(t *testing.T) {
	s, _ := newTestSession(t)
	s.Apply(ui.Action{ToggleMeasure: true, Threshold: 0.8, ThresholdChanged: true})
	snap := s.Controller().Snapshot()
	if snap.Mode != interaction.ModeMeasure {
		t.Errorf("expected measure mode, got %s", snap.Mode)
	}
	if snap.Threshold != 0.8 {
		t.Errorf("expected threshold 0.8, got %g", snap.Threshold)
	}

	s.Apply(ui.Action{ToggleEquipotential: true})
	if m := s.Controller().Mode(); m != interaction.ModeEquipotential {
		t.Errorf("expected equipotential mode, got %s", m)
	}
}

func TestKeyAction(t *testing.T) {
	grid3, err := config.Cfg().GridFor(3)
	if err != nil {
		t.Fatal(err)
	}
	withCharges := interaction.Snapshot{Charges: []charges.Charge{{ID: 4}, {ID: 7}}, Threshold: 0.5}
	dragging := interaction.Snapshot{Charges: withCharges.Charges, Dragging: true, DragID: 4}
	in3D := interaction.Snapshot{Grid: grid3, Threshold: 0.5}

	tests := []struct {
		name  string
		key   int32
		snap  interaction.Snapshot
		ok    bool
		check func(ui.Action) bool
	}{
		{"solve", rl.KeyR, withCharges, true, func(a ui.Action) bool { return a.Solve }},
		{"add", rl.KeyA, withCharges, true, func(a ui.Action) bool { return a.AddCharge }},
		{"measure", rl.KeyM, withCharges, true, func(a ui.Action) bool { return a.ToggleMeasure }},
		{"equipotential", rl.KeyE, withCharges, true, func(a ui.Action) bool { return a.ToggleEquipotential }},
		{"dims", rl.KeyTab, withCharges, true, func(a ui.Action) bool { return a.ToggleDims }},
		{"save", rl.KeyS, withCharges, true, func(a ui.Action) bool { return a.SaveLayout }},
		{"remove newest", rl.KeyDelete, withCharges, true, func(a ui.Action) bool { return a.Remove && a.RemoveID == 7 }},
		{"remove dragged", rl.KeyBackspace, dragging, true, func(a ui.Action) bool { return a.Remove && a.RemoveID == 4 }},
		{"remove nothing", rl.KeyDelete, interaction.Snapshot{}, false, nil},
		{"iso up", rl.KeyRightBracket, in3D, true, func(a ui.Action) bool { return a.ThresholdChanged && math.Abs(a.Threshold-0.55) < 1e-12 }},
		{"iso down", rl.KeyLeftBracket, in3D, true, func(a ui.Action) bool { return a.ThresholdChanged && math.Abs(a.Threshold-0.45) < 1e-12 }},
		{"iso in 2D", rl.KeyRightBracket, withCharges, false, nil},
		{"unbound", rl.KeyQ, withCharges, false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			act, ok := KeyAction(tt.key, tt.snap)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if tt.check != nil && !tt.check(act) {
				t.Errorf("unexpected action %+v", act)
			}
		})
	}
}

func TestSelectionKey(t *testing.T) {
	base := interaction.Snapshot{Applied: 1}
	withProbe := base
	withProbe.Probe = &interaction.Probe{}
	if selectionKey(base) == selectionKey(withProbe) {
		t.Error("adding a probe should change the key")
	}
	reapplied := withProbe
	reapplied.Applied = 2
	if selectionKey(withProbe) == selectionKey(reapplied) {
		t.Error("a new field should change the key")
	}
}

func TestSessionRestoreLayout(t *testing.T) {
	src, _ := newTestSession(t)
	src.Apply(ui.Action{AddCharge: true})
	src.Apply(ui.Action{AddCharge: true})
	src.ToggleDims()
	src.Apply(ui.Action{Threshold: 0.8, ThresholdChanged: true})
	layout := telemetry.NewLayout(time.Now(), src.Controller().Snapshot())

	dst, d := newTestSession(t)
	if err := dst.Restore(layout); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	snap := dst.Controller().Snapshot()
	if dst.Dims() != 3 {
		t.Errorf("expected the saved 3D grid, got %dD", dst.Dims())
	}
	if len(snap.Charges) != 2 || snap.Charges[1].Q != layout.Charges[1].Q {
		t.Errorf("unexpected charges %+v", snap.Charges)
	}
	if snap.Threshold != 0.8 {
		t.Errorf("expected threshold 0.8, got %g", snap.Threshold)
	}
	if len(d.tickets) != 1 {
		t.Errorf("expected one solve after restoring, got %d", len(d.tickets))
	}

	layout.Grid.NX = 1
	if err := dst.Restore(layout); err == nil {
		t.Error("expected an invalid grid to fail")
	}
}
