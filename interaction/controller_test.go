package interaction

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fieldscope/charges"
	"github.com/pthm-cable/fieldscope/field"
	"github.com/pthm-cable/fieldscope/solver"
)

// recordingDispatcher keeps tickets for the test to resolve in any order.
type recordingDispatcher struct {
	tickets []Ticket
}

func (d *recordingDispatcher) Dispatch(t Ticket) {
	d.tickets = append(d.tickets, t)
}

func testGrid(t *testing.T) field.Grid {
	t.Helper()
	g, err := field.NewGrid2D(field.Axis{Min: -1, Max: 1, Count: 5}, field.Axis{Min: -1, Max: 1, Count: 5})
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func newController(t *testing.T, cfg Config) (*Controller, *recordingDispatcher) {
	t.Helper()
	set := charges.NewSet(testGrid(t), charges.Placement{Inset: 0.1, Jitter: 0.2, Charge: 1e-9}, rand.New(rand.NewSource(7)))
	d := &recordingDispatcher{}
	if cfg.PickRadius == 0 {
		cfg.PickRadius = 0.08
	}
	cfg.Softening = 1e-6
	cfg.IncludePotential = true
	return New(cfg, set, d, nil), d
}

// solve runs a ticket through the reference solver.
func solve(t *testing.T, tk Ticket) Result {
	t.Helper()
	resp, err := solver.Compute(tk.Request, solver.DefaultLimits)
	if err != nil {
		t.Fatal(err)
	}
	f, err := resp.ToField()
	if err != nil {
		t.Fatal(err)
	}
	return Result{Seq: tk.Seq, Result: solver.Result{Field: f, Requested: 2, Dims: 2}}
}

func TestModesAreMutuallyExclusive(t *testing.T) {
	c, _ := newController(t, Config{})

	c.ToggleMeasure()
	if c.Mode() != ModeMeasure {
		t.Fatalf("expected measure, got %v", c.Mode())
	}
	c.ToggleEquipotential()
	if c.Mode() != ModeEquipotential {
		t.Fatalf("expected equipotential, got %v", c.Mode())
	}
	c.ToggleEquipotential()
	if c.Mode() != ModeIdle {
		t.Fatalf("expected idle, got %v", c.Mode())
	}
}

func TestSequenceDiscardsOutOfOrderResponses(t *testing.T) {
	c, d := newController(t, Config{})
	if _, err := c.AddCharge(charges.At(0, 0)); err != nil {
		t.Fatal(err)
	}

	seq1, err := c.RequestSolve()
	if err != nil {
		t.Fatal(err)
	}
	c.PointerDown(r3.Vec{})
	c.PointerMove(r3.Vec{X: 0.5})
	c.PointerUp()
	if len(d.tickets) != 2 {
		t.Fatalf("expected 2 tickets, got %d", len(d.tickets))
	}
	seq2 := d.tickets[1].Seq
	if seq2 <= seq1 {
		t.Fatalf("sequence did not increase: %d then %d", seq1, seq2)
	}

	res2 := solve(t, d.tickets[1])
	res1 := solve(t, d.tickets[0])

	if err := c.Apply(res2); err != nil {
		t.Fatalf("Apply #2: %v", err)
	}
	if err := c.Apply(res1); !errors.Is(err, ErrStaleResponse) {
		t.Fatalf("expected #1 to be discarded, got %v", err)
	}

	snap := c.Snapshot()
	if snap.Field != res2.Field {
		t.Error("expected the field from response #2 on display")
	}
	if snap.Applied != seq2 {
		t.Errorf("expected applied seq %d, got %d", seq2, snap.Applied)
	}
	if snap.Stale {
		t.Error("expected fresh field after applying the latest solve")
	}
}

func TestEarlierResponseInOrderIsAlsoDiscarded(t *testing.T) {
	c, d := newController(t, Config{})
	c.AddCharge(charges.At(0, 0))
	c.RequestSolve()
	c.RequestSolve()

	if err := c.Apply(solve(t, d.tickets[0])); !errors.Is(err, ErrStaleResponse) {
		t.Errorf("expected ticket 1 to be stale once ticket 2 was issued, got %v", err)
	}
	if c.Field() != nil {
		t.Error("expected no field yet")
	}
}

func TestMutationAfterRequestKeepsStale(t *testing.T) {
	c, d := newController(t, Config{})
	c.AddCharge(charges.At(0, 0))
	c.RequestSolve()
	c.AddCharge(charges.At(0.5, 0.5))

	if err := c.Apply(solve(t, d.tickets[0])); err != nil {
		t.Fatal(err)
	}
	if !c.Stale() {
		t.Error("expected field to stay stale after an edit made during the solve")
	}
}

func TestFailedSolveKeepsLastField(t *testing.T) {
	c, d := newController(t, Config{})
	c.AddCharge(charges.At(0, 0))
	c.RequestSolve()
	good := solve(t, d.tickets[0])
	c.Apply(good)

	c.RequestSolve()
	err := c.Apply(Result{Seq: d.tickets[1].Seq, Err: &solver.SolveError{Dims: 2, StatusCode: 500}})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if c.Field() != good.Field {
		t.Error("expected last good field to be kept")
	}
	st := c.Status()
	if st.Level != LevelError || st.Fatal {
		t.Errorf("expected a non-fatal error status, got %+v", st)
	}
}

func TestSolveFailureFatality(t *testing.T) {
	tests := []struct {
		name      string
		result    solver.Result
		err       error
		wantFatal bool
	}{
		{"2d status", solver.Result{Requested: 2, Dims: 2}, &solver.SolveError{Dims: 2, StatusCode: 500, Detail: "boom"}, false},
		{"timeout", solver.Result{Requested: 2, Dims: 2}, context.DeadlineExceeded, false},
		{"3d without fallback", solver.Result{Requested: 3, Dims: 3}, &solver.SolveError{Dims: 3, StatusCode: 503}, false},
		{"fallback exhausted", solver.Result{Requested: 3, Dims: 3, Exhausted: true},
			errors.Join(&solver.SolveError{Dims: 3, StatusCode: 503}, &solver.SolveError{Dims: 2, StatusCode: 502}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, d := newController(t, Config{})
			c.AddCharge(charges.At(0, 0))
			c.RequestSolve()
			if err := c.Apply(Result{Seq: d.tickets[0].Seq, Result: tt.result, Err: tt.err}); err != nil {
				t.Fatalf("Apply: %v", err)
			}
			st := c.Status()
			if st.Level != LevelError {
				t.Errorf("expected error level, got %v", st.Level)
			}
			if st.Fatal != tt.wantFatal {
				t.Errorf("Fatal = %v, want %v (%s)", st.Fatal, tt.wantFatal, st.Message)
			}
		})
	}
}

func TestRequestSolveBlockedByValidation(t *testing.T) {
	c, d := newController(t, Config{})

	if _, err := c.RequestSolve(); !errors.Is(err, charges.ErrNoCharges) {
		t.Errorf("expected ErrNoCharges, got %v", err)
	}
	c.AddCharge(charges.WithQ(0))
	if _, err := c.RequestSolve(); !errors.Is(err, charges.ErrInvalidCharge) {
		t.Errorf("expected ErrInvalidCharge, got %v", err)
	}
	if len(d.tickets) != 0 {
		t.Errorf("expected no tickets, got %d", len(d.tickets))
	}
	if c.Status().Level != LevelError {
		t.Errorf("expected error status, got %+v", c.Status())
	}
}

func TestInvalidGridBlocksSolve(t *testing.T) {
	c, d := newController(t, Config{})
	c.AddCharge()
	bad := field.Grid{X: field.Axis{Min: 0, Max: 0, Count: 5}, Y: field.Axis{Min: -1, Max: 1, Count: 5}, Dims: 2}
	if err := c.SetGrid(bad); !errors.Is(err, field.ErrInvalidGrid) {
		t.Fatalf("expected ErrInvalidGrid, got %v", err)
	}
	if _, err := c.RequestSolve(); !errors.Is(err, field.ErrInvalidGrid) {
		t.Errorf("expected solve to be blocked, got %v", err)
	}
	if len(d.tickets) != 0 {
		t.Error("expected no ticket")
	}
}

func TestDragClampsAndWarns(t *testing.T) {
	c, d := newController(t, Config{})
	ch, _ := c.AddCharge(charges.At(0, 0))

	c.PointerDown(r3.Vec{X: 0.05})
	if id, ok := c.Dragging(); !ok || id != ch.ID {
		t.Fatalf("expected drag of charge %d", ch.ID)
	}
	c.PointerMove(r3.Vec{X: -3, Y: 0})
	c.PointerUp()

	snap := c.Snapshot()
	if snap.Charges[0].X != -1 {
		t.Errorf("expected x clamped to -1, got %g", snap.Charges[0].X)
	}
	if snap.Status.Level != LevelWarning {
		t.Errorf("expected clamp warning, got %+v", snap.Status)
	}
	if len(d.tickets) != 1 {
		t.Errorf("expected one solve from the drag, got %d", len(d.tickets))
	}
}

func TestDragRateLimit(t *testing.T) {
	now := time.Unix(0, 0)
	c, d := newController(t, Config{DragSolveInterval: time.Second, Now: func() time.Time { return now }})
	c.AddCharge(charges.At(0, 0))

	c.PointerDown(r3.Vec{})
	// Only the first move inside the interval solves
	c.PointerMove(r3.Vec{X: 0.1})
	c.PointerMove(r3.Vec{X: 0.2})
	now = now.Add(100 * time.Millisecond)
	c.PointerMove(r3.Vec{X: 0.3})
	if len(d.tickets) != 1 {
		t.Fatalf("expected 1 ticket during drag, got %d", len(d.tickets))
	}
	c.PointerUp()
	if len(d.tickets) != 2 {
		t.Fatalf("expected final solve on release, got %d tickets", len(d.tickets))
	}
}

func TestMeasureProbe(t *testing.T) {
	c, d := newController(t, Config{})
	c.AddCharge(charges.At(0.5, 0.5))
	c.RequestSolve()
	c.Apply(solve(t, d.tickets[0]))

	c.ToggleMeasure()
	c.PointerDown(r3.Vec{})
	snap := c.Snapshot()
	if snap.Probe == nil {
		t.Fatal("expected a probe")
	}
	if snap.Probe.I != 2 || snap.Probe.J != 2 {
		t.Errorf("expected nearest sample (2,2), got (%d,%d)", snap.Probe.I, snap.Probe.J)
	}
	if snap.Probe.Scalar != snap.Field.Scalar(2, 2, 0) {
		t.Errorf("probe %g does not match sample %g", snap.Probe.Scalar, snap.Field.Scalar(2, 2, 0))
	}

	c.ToggleMeasure()
	if c.Snapshot().Probe != nil {
		t.Error("expected probe cleared when the tool is turned off")
	}
}

func TestMeasureMarksStaleProbe(t *testing.T) {
	c, d := newController(t, Config{})
	c.AddCharge(charges.At(0.5, 0.5))
	c.RequestSolve()
	c.Apply(solve(t, d.tickets[0]))
	c.ToggleMeasure()
	c.AddCharge(charges.At(-0.5, -0.5))

	c.PointerDown(r3.Vec{})
	if p := c.Snapshot().Probe; p == nil || !p.Stale {
		t.Errorf("expected stale probe, got %+v", p)
	}
}

func TestEquipotentialPick(t *testing.T) {
	c, d := newController(t, Config{})
	c.AddCharge(charges.At(0.5, 0.5))
	c.RequestSolve()
	c.Apply(solve(t, d.tickets[0]))

	c.ToggleEquipotential()
	c.PointerDown(r3.Vec{X: -0.5, Y: 0})
	snap := c.Snapshot()
	if snap.Iso == nil {
		t.Fatal("expected an equipotential pick")
	}
	if snap.Iso.Value != snap.Field.Scalar(1, 2, 0) {
		t.Errorf("expected value of sample (1,2), got %g", snap.Iso.Value)
	}

	c.ToggleMeasure()
	if c.Snapshot().Iso != nil {
		t.Error("expected pick cleared when switching to measure")
	}
}

func TestToolsWithoutFieldWarn(t *testing.T) {
	c, _ := newController(t, Config{})
	c.ToggleMeasure()
	c.PointerDown(r3.Vec{X: 0.9, Y: 0.9})
	if c.Status().Level != LevelWarning {
		t.Errorf("expected warning, got %+v", c.Status())
	}
}

// stubSolver answers after a per-call delay so responses can overtake each other.
type stubSolver struct {
	mu     sync.Mutex
	delays []time.Duration
	calls  int
}

func (s *stubSolver) SolveField(ctx context.Context, req solver.Request) (solver.Result, error) {
	s.mu.Lock()
	delay := s.delays[s.calls%len(s.delays)]
	s.calls++
	s.mu.Unlock()

	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return solver.Result{}, ctx.Err()
	}
	resp, err := solver.Compute(req, solver.DefaultLimits)
	if err != nil {
		return solver.Result{}, err
	}
	f, err := resp.ToField()
	return solver.Result{Field: f, Requested: 2, Dims: 2}, err
}

func TestAsyncDispatcherDeliversLatest(t *testing.T) {
	stub := &stubSolver{delays: []time.Duration{200 * time.Millisecond, 10 * time.Millisecond}}
	d := NewAsyncDispatcher(stub, time.Second)
	defer d.Close()

	set := charges.NewSet(testGrid(t), charges.Placement{Charge: 1e-9}, nil)
	c := New(Config{PickRadius: 0.08, Softening: 1e-6, IncludePotential: true}, set, d, nil)
	c.AddCharge(charges.At(0, 0))
	c.RequestSolve()
	seq2, _ := c.RequestSolve()

	select {
	case r := <-d.Results():
		if r.Seq != seq2 {
			t.Fatalf("expected result for seq %d, got %d", seq2, r.Seq)
		}
		if err := c.Apply(r); err != nil {
			t.Fatalf("Apply: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result")
	}
	if c.Field() == nil {
		t.Error("expected field applied")
	}
	if n := Drain(c, d.Results()); n != 0 {
		t.Errorf("expected nothing left to drain, applied %d", n)
	}
}

func TestLoadReplacesChargesAndSolves(t *testing.T) {
	c, d := newController(t, Config{AutoSolve: true})
	c.AddCharge()
	c.ToggleMeasure()

	err := c.Load(testGrid(t), []charges.Charge{{ID: 2, X: 0.5, Q: 1e-9}, {ID: 5, X: -0.5, Q: 1e-9}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	snap := c.Snapshot()
	if len(snap.Charges) != 2 || snap.Charges[0].ID != 2 {
		t.Errorf("unexpected charges %+v", snap.Charges)
	}
	if !snap.Stale || snap.Probe != nil {
		t.Errorf("expected a stale field and no probe, got stale=%v probe=%v", snap.Stale, snap.Probe)
	}
	if len(d.tickets) != 2 {
		t.Fatalf("expected add and load to each solve, got %d tickets", len(d.tickets))
	}
	if got := len(d.tickets[1].Request.Charges); got != 2 {
		t.Errorf("expected the loaded charges in the request, got %d", got)
	}
	if snap.Status.Level != LevelInfo {
		t.Errorf("expected info status, got %v: %s", snap.Status.Level, snap.Status.Message)
	}
}
