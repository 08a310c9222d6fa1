// Package interaction owns the editing session: tool modes, charge dragging,
// probes, and the solve sequencing that keeps the displayed field consistent
// with the charges.
package interaction

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fieldscope/charges"
	"github.com/pthm-cable/fieldscope/field"
	"github.com/pthm-cable/fieldscope/solver"
)

// ErrStaleResponse is returned by Apply for a result that is not from the
// most recently issued solve. It is never shown to the user.
var ErrStaleResponse = errors.New("interaction: stale solve response")

// Mode is the active pointer tool.
type Mode int

const (
	ModeIdle Mode = iota
	ModeMeasure
	ModeEquipotential
)

func (m Mode) String() string {
	switch m {
	case ModeMeasure:
		return "measure"
	case ModeEquipotential:
		return "equipotential"
	}
	return "idle"
}

// Ticket is one solve to run. Seq increases with every request.
type Ticket struct {
	Seq     uint64
	Request solver.Request
}

// Result is the outcome of a ticket, delivered back on the owner goroutine.
type Result struct {
	Seq uint64
	solver.Result
	Err error
}

// Dispatcher runs tickets asynchronously and eventually feeds results to Apply.
type Dispatcher interface {
	Dispatch(t Ticket)
}

// Probe is a measure-tool reading. Stale is set when it was taken from a
// field that no longer matches the charges.
type Probe struct {
	field.Probe
	Stale bool
}

// IsoPick is the equipotential selected by the user.
type IsoPick struct {
	Point r3.Vec
	Value float64
}

// Config holds controller tuning.
type Config struct {
	Softening         float64
	IncludePotential  bool
	PickRadius        float64
	DragSolveInterval time.Duration // Minimum time between solves while dragging
	AutoSolve         bool          // Solve after every edit, not only drags
	Now               func() time.Time
}

// Controller is the single owner of session state. It is not safe for
// concurrent use; results from background solves must be applied on the
// goroutine that owns it.
type Controller struct {
	cfg        Config
	set        *charges.Set
	dispatcher Dispatcher
	logger     *slog.Logger

	field    *field.Field
	dims     int
	fellBack bool

	// Sequencing
	seq          uint64 // Last issued
	applied      uint64 // Seq of the field on display
	pending      bool
	mutations    uint64 // Bumped on every edit
	seqMutations uint64 // mutations at the time seq was issued
	stale        bool

	// Tools
	mode      Mode
	dragging  bool
	dragID    int
	dragDirty bool
	lastSolve time.Time
	probe     *Probe
	iso       *IsoPick
	threshold float64

	status Status
}

// New creates a controller over set. A nil logger uses slog.Default().
func New(cfg Config, set *charges.Set, d Dispatcher, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Controller{
		cfg:        cfg,
		set:        set,
		dispatcher: d,
		logger:     logger,
		stale:      true,
		threshold:  0.5,
		status:     Status{Message: "Add charges and run the solver", Level: LevelInfo},
	}
}

// Mode returns the active tool.
func (c *Controller) Mode() Mode { return c.mode }

// Stale reports whether the displayed field predates the latest edit.
func (c *Controller) Stale() bool { return c.stale }

// Field returns the field on display, or nil before the first solve.
func (c *Controller) Field() *field.Field { return c.field }

// Status returns the latest user-facing message.
func (c *Controller) Status() Status { return c.status }

// ToggleMeasure switches the measure tool on or off. Turning it on turns the
// equipotential tool off.
func (c *Controller) ToggleMeasure() { c.toggle(ModeMeasure) }

// ToggleEquipotential switches the equipotential picker on or off. Turning it
// on turns the measure tool off.
func (c *Controller) ToggleEquipotential() { c.toggle(ModeEquipotential) }

func (c *Controller) toggle(m Mode) {
	if c.mode == m {
		c.clearSelection(m)
		c.mode = ModeIdle
		c.setStatus(LevelInfo, fmt.Sprintf("%s tool off", m))
		return
	}
	c.clearSelection(c.mode)
	c.mode = m
	c.setStatus(LevelInfo, fmt.Sprintf("%s tool on", m))
}

func (c *Controller) clearSelection(m Mode) {
	switch m {
	case ModeMeasure:
		c.probe = nil
	case ModeEquipotential:
		c.iso = nil
	}
}

// PointerDown starts a drag when a charge is within the pick radius of p;
// otherwise it feeds the active tool.
func (c *Controller) PointerDown(p r3.Vec) {
	if ch, ok := c.set.Nearest(p, c.cfg.PickRadius); ok {
		c.dragging = true
		c.dragID = ch.ID
		c.dragDirty = false
		return
	}
	switch c.mode {
	case ModeMeasure:
		c.measure(p)
	case ModeEquipotential:
		c.pickEquipotential(p)
	}
}

// PointerMove moves the dragged charge, if any, and schedules a solve.
func (c *Controller) PointerMove(p r3.Vec) {
	if !c.dragging {
		return
	}
	_, warning, err := c.set.Move(c.dragID, p)
	if err != nil {
		// The charge was removed mid-drag
		c.dragging = false
		c.logger.Warn("drag target vanished", "id", c.dragID, "error", err)
		return
	}
	c.mutate()

	now := c.cfg.Now()
	if c.cfg.DragSolveInterval > 0 && now.Sub(c.lastSolve) < c.cfg.DragSolveInterval {
		c.dragDirty = true
	} else {
		c.dragDirty = false
		c.lastSolve = now
		c.RequestSolve()
	}
	if warning != nil {
		c.setStatus(LevelWarning, warning.Message)
	}
}

// PointerUp ends a drag, solving once more if the last move was rate limited.
func (c *Controller) PointerUp() {
	if !c.dragging {
		return
	}
	c.dragging = false
	if c.dragDirty {
		c.dragDirty = false
		c.RequestSolve()
	}
}

// Dragging reports the charge being dragged.
func (c *Controller) Dragging() (id int, ok bool) {
	return c.dragID, c.dragging
}

func (c *Controller) measure(p r3.Vec) {
	if c.field == nil {
		c.setStatus(LevelWarning, "Run the solver before measuring")
		return
	}
	pr := field.ProbeAt(c.field, p)
	if !pr.OK {
		c.probe = nil
		c.setStatus(LevelWarning, "Point is outside the grid")
		return
	}
	c.probe = &Probe{Probe: pr, Stale: c.stale}
	c.setStatus(LevelInfo, fmt.Sprintf("|E| = %.3e V/m, V = %s", pr.Magnitude, formatPotential(pr.Scalar)))
}

func (c *Controller) pickEquipotential(p r3.Vec) {
	if c.field == nil {
		c.setStatus(LevelWarning, "Run the solver before picking an equipotential")
		return
	}
	pr := field.ProbeAt(c.field, p)
	if !pr.OK || math.IsNaN(pr.Scalar) {
		c.setStatus(LevelWarning, "No potential data at this point")
		return
	}
	c.iso = &IsoPick{Point: p, Value: pr.Scalar}
	c.setStatus(LevelInfo, fmt.Sprintf("Equipotential V = %.3f V", pr.Scalar))
}

// SetIsoThreshold sets the normalized isosurface slider position.
func (c *Controller) SetIsoThreshold(t float64) {
	c.threshold = math.Max(0, math.Min(1, t))
}

// AddCharge adds a charge, marking the field stale.
func (c *Controller) AddCharge(opts ...charges.AddOption) (charges.Charge, error) {
	ch, err := c.set.Add(opts...)
	if err != nil {
		c.setStatus(LevelError, err.Error())
		return ch, err
	}
	c.mutate()
	c.setStatus(LevelInfo, fmt.Sprintf("Added charge %d", ch.ID))
	c.autoSolve()
	return ch, nil
}

// RemoveCharge removes a charge, marking the field stale.
func (c *Controller) RemoveCharge(id int) error {
	if err := c.set.Remove(id); err != nil {
		c.setStatus(LevelError, err.Error())
		return err
	}
	if c.dragging && c.dragID == id {
		c.dragging = false
	}
	c.mutate()
	c.setStatus(LevelInfo, fmt.Sprintf("Removed charge %d", id))
	c.autoSolve()
	return nil
}

// SetChargeQ changes a charge's magnitude, marking the field stale.
func (c *Controller) SetChargeQ(id int, q float64) error {
	if err := c.set.SetQ(id, q); err != nil {
		c.setStatus(LevelError, err.Error())
		return err
	}
	c.mutate()
	c.autoSolve()
	return nil
}

// SetGrid replaces the grid definition. An invalid grid is reported and
// blocks solving until corrected.
func (c *Controller) SetGrid(g field.Grid) error {
	warnings, err := c.set.SetGrid(g)
	if err != nil {
		c.setStatus(LevelError, err.Error())
		return err
	}
	c.mutate()
	if len(warnings) > 0 {
		c.setStatus(LevelWarning, fmt.Sprintf("%d charge(s) clamped to the new grid", len(warnings)))
	} else {
		c.setStatus(LevelInfo, fmt.Sprintf("Grid set to %dD", g.Dims))
	}
	c.autoSolve()
	return nil
}

// Load replaces the grid and charges in one edit, as when restoring a saved
// layout. Selections and any drag are dropped.
func (c *Controller) Load(g field.Grid, cs []charges.Charge) error {
	warnings, err := c.set.Reset(g, cs)
	if err != nil {
		c.setStatus(LevelError, err.Error())
		return err
	}
	c.dragging = false
	c.probe, c.iso = nil, nil
	c.mutate()
	if len(warnings) > 0 {
		c.setStatus(LevelWarning, fmt.Sprintf("Loaded %d charge(s), %d clamped to the grid", len(cs), len(warnings)))
	} else {
		c.setStatus(LevelInfo, fmt.Sprintf("Loaded %d charge(s)", len(cs)))
	}
	c.autoSolve()
	return nil
}

func (c *Controller) mutate() {
	c.mutations++
	c.stale = true
	if c.probe != nil {
		c.probe.Stale = true
	}
}

func (c *Controller) autoSolve() {
	if c.cfg.AutoSolve {
		c.RequestSolve()
	}
}

// RequestSolve validates the grid and charges and dispatches a new ticket.
// Validation failures block the solve and are reported in the status.
func (c *Controller) RequestSolve() (uint64, error) {
	g, err := c.set.Grid()
	if err != nil {
		c.setStatus(LevelError, err.Error())
		return 0, err
	}
	if err := c.set.Validate(); err != nil {
		c.setStatus(LevelError, validationMessage(err))
		return 0, err
	}

	c.seq++
	c.seqMutations = c.mutations
	c.pending = true
	t := Ticket{
		Seq:     c.seq,
		Request: solver.NewRequest(c.set.All(), g, c.cfg.Softening, c.cfg.IncludePotential),
	}
	c.logger.Debug("solve dispatched", "seq", t.Seq, "dims", g.Dims, "charges", len(t.Request.Charges))
	c.setStatus(LevelInfo, "Solving...")
	c.dispatcher.Dispatch(t)
	return t.Seq, nil
}

// Apply installs a solve result. Results that are not from the latest ticket
// are discarded with ErrStaleResponse. A failed solve keeps the previous
// field and reports the error in the status; only a failure with no fallback
// left to try is fatal.
func (c *Controller) Apply(r Result) error {
	if r.Seq != c.seq {
		c.logger.Debug("discarding stale solve", "seq", r.Seq, "latest", c.seq)
		return ErrStaleResponse
	}
	c.pending = false

	if r.Err != nil {
		c.logger.Error("solve failed", "seq", r.Seq, "exhausted", r.Exhausted, "error", r.Err)
		c.status = Status{Message: "Solve failed: " + r.Err.Error(), Level: LevelError, Fatal: r.Exhausted}
		return nil
	}

	c.field = r.Field
	c.dims = r.Dims
	c.fellBack = r.FellBack
	c.applied = r.Seq
	c.stale = c.mutations != c.seqMutations

	c.refreshSelections()

	g := r.Field.Grid()
	if r.FellBack {
		c.setStatus(LevelWarning, "3D solver unavailable, showing 2D field")
	} else {
		c.setStatus(LevelSuccess, fmt.Sprintf("Solved %dD field (%s) in %v", r.Dims, shape(g), r.Duration.Round(time.Millisecond)))
	}
	c.logger.Info("solve applied", "seq", r.Seq, "dims", r.Dims, "fell_back", r.FellBack, "duration", r.Duration)
	return nil
}

// refreshSelections re-reads probes against the newly applied field.
func (c *Controller) refreshSelections() {
	if c.probe != nil {
		pr := field.ProbeAt(c.field, c.probe.Point)
		if pr.OK {
			c.probe = &Probe{Probe: pr, Stale: c.stale}
		} else {
			c.probe = nil
		}
	}
	if c.iso != nil {
		if pr := field.ProbeAt(c.field, c.iso.Point); pr.OK && !math.IsNaN(pr.Scalar) {
			c.iso.Value = pr.Scalar
		} else {
			c.iso = nil
		}
	}
}

// Snapshot is a read-only view of the session for rendering.
type Snapshot struct {
	Field     *field.Field
	Dims      int
	FellBack  bool
	Grid      field.Grid
	GridErr   error
	Charges   []charges.Charge
	Stale     bool
	Pending   bool
	Seq       uint64
	Applied   uint64
	Mode      Mode
	Dragging  bool
	DragID    int
	Probe     *Probe
	Iso       *IsoPick
	Threshold float64
	Status    Status
}

// Snapshot copies the state needed to draw one frame.
func (c *Controller) Snapshot() Snapshot {
	g, gerr := c.set.Grid()
	s := Snapshot{
		Field:     c.field,
		Dims:      c.dims,
		FellBack:  c.fellBack,
		Grid:      g,
		GridErr:   gerr,
		Charges:   c.set.All(),
		Stale:     c.stale,
		Pending:   c.pending,
		Seq:       c.seq,
		Applied:   c.applied,
		Mode:      c.mode,
		Dragging:  c.dragging,
		DragID:    c.dragID,
		Threshold: c.threshold,
		Status:    c.status,
	}
	if c.probe != nil {
		p := *c.probe
		s.Probe = &p
	}
	if c.iso != nil {
		iso := *c.iso
		s.Iso = &iso
	}
	return s
}

func (c *Controller) setStatus(level Level, msg string) {
	c.status = Status{Message: msg, Level: level}
}

func validationMessage(err error) string {
	if errors.Is(err, charges.ErrNoCharges) {
		return "Add at least one charge"
	}
	return "Invalid charges: " + err.Error()
}

func formatPotential(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.3f V", v)
}

func shape(g field.Grid) string {
	if g.Is3D() {
		return fmt.Sprintf("%dx%dx%d", g.NX(), g.NY(), g.NZ())
	}
	return fmt.Sprintf("%dx%d", g.NX(), g.NY())
}
