// Package charges maintains the ordered set of point charges a user edits.
package charges

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fieldscope/field"
)

var (
	// ErrInvalidCharge indicates a charge with a non-finite coordinate or zero q.
	ErrInvalidCharge = errors.New("charges: invalid charge")

	// ErrUnknownCharge indicates an id that is not in the set.
	ErrUnknownCharge = errors.New("charges: unknown charge id")

	// ErrNoCharges indicates a solve was requested with an empty set.
	ErrNoCharges = errors.New("charges: at least one charge is required")
)

// InvalidChargeError cites the offending entry by display index and id.
type InvalidChargeError struct {
	Index  int
	ID     int
	Reason string
}

func (e *InvalidChargeError) Error() string {
	return fmt.Sprintf("charge %d (id %d): %s", e.Index+1, e.ID, e.Reason)
}

func (e *InvalidChargeError) Unwrap() error {
	return ErrInvalidCharge
}

// Charge is a point source. Q is in coulombs.
type Charge struct {
	ID      int
	X, Y, Z float64
	Q       float64
}

// Pos returns the charge position.
func (c Charge) Pos() r3.Vec {
	return r3.Vec{X: c.X, Y: c.Y, Z: c.Z}
}

// Warning is a non-fatal notice about an edit, such as a clamped move.
type Warning struct {
	ChargeID int
	Message  string
}

// Placement controls where Add puts charges without explicit coordinates.
type Placement struct {
	Inset  float64 // Fraction of each range kept clear at the edges
	Jitter float64 // Fraction of the y range used for the random offset
	Charge float64 // Magnitude of the default q; sign alternates
}

// Set is an ordered collection of charges. Ids increase monotonically and
// are never reused. Set is not safe for concurrent use.
type Set struct {
	charges   []Charge
	nextID    int
	grid      field.Grid
	gridErr   error
	placement Placement
	rng       *rand.Rand
}

// NewSet creates an empty set bound to grid. An invalid grid is recorded and
// blocks Add until SetGrid receives a valid one.
func NewSet(grid field.Grid, placement Placement, rng *rand.Rand) *Set {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	s := &Set{placement: placement, rng: rng}
	s.SetGrid(grid)
	return s
}

// SetGrid replaces the grid bounds. Existing charges are clamped into a valid
// grid and a warning is returned for each that moved.
func (s *Set) SetGrid(grid field.Grid) ([]Warning, error) {
	if err := grid.Validate(); err != nil {
		s.gridErr = err
		return nil, err
	}
	s.grid = grid
	s.gridErr = nil

	var warnings []Warning
	for i := range s.charges {
		c := &s.charges[i]
		p := grid.Clamp(c.Pos())
		if p != c.Pos() {
			c.X, c.Y, c.Z = p.X, p.Y, p.Z
			warnings = append(warnings, clampWarning(c.ID))
		}
	}
	return warnings, nil
}

// Grid returns the current bounds and the validation error, if any.
func (s *Set) Grid() (field.Grid, error) {
	return s.grid, s.gridErr
}

// Reset replaces the grid and every charge, keeping the given ids. Charges
// are clamped into the grid; later Adds continue after the highest id.
func (s *Set) Reset(grid field.Grid, cs []Charge) ([]Warning, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	seen := make(map[int]bool, len(cs))
	for _, c := range cs {
		if seen[c.ID] {
			return nil, fmt.Errorf("reset: duplicate charge id %d", c.ID)
		}
		seen[c.ID] = true
	}

	s.charges = append([]Charge(nil), cs...)
	s.nextID = 0
	for _, c := range cs {
		s.nextID = max(s.nextID, c.ID+1)
	}
	if !grid.Is3D() {
		for i := range s.charges {
			s.charges[i].Z = 0
		}
	}
	return s.SetGrid(grid)
}

// AddOption sets an explicit value for a new charge.
type AddOption func(*addSpec)

type addSpec struct {
	x, y, z, q *float64
}

// At places the new charge at (x, y).
func At(x, y float64) AddOption {
	return func(a *addSpec) { a.x, a.y = &x, &y }
}

// AtZ sets the new charge's z coordinate.
func AtZ(z float64) AddOption {
	return func(a *addSpec) { a.z = &z }
}

// WithQ sets the new charge's magnitude.
func WithQ(q float64) AddOption {
	return func(a *addSpec) { a.q = &q }
}

// Add appends a charge and returns it. Omitted coordinates are spread around
// the grid centre and omitted q alternates sign. Explicit coordinates are
// clamped to the grid. Add fails while the grid is invalid.
func (s *Set) Add(opts ...AddOption) (Charge, error) {
	if s.gridErr != nil {
		return Charge{}, fmt.Errorf("adding charge: %w", s.gridErr)
	}
	var spec addSpec
	for _, opt := range opts {
		opt(&spec)
	}

	id := s.nextID
	g := s.grid
	c := Charge{ID: id}

	if spec.x != nil {
		c.X = g.X.Clamp(*spec.x)
	} else {
		c.X = s.insetClamp(g.X, s.defaultX(id))
	}
	if spec.y != nil {
		c.Y = g.Y.Clamp(*spec.y)
	} else {
		jitter := (s.rng.Float64() - 0.5) * g.Y.Range() * s.placement.Jitter
		c.Y = s.insetClamp(g.Y, g.Y.Center()+jitter)
	}
	if g.Is3D() {
		c.Z = g.Z.Center()
		if spec.z != nil {
			c.Z = g.Z.Clamp(*spec.z)
		}
	}
	if spec.q != nil {
		c.Q = *spec.q
	} else {
		c.Q = s.placement.Charge
		if id%2 == 1 {
			c.Q = -c.Q
		}
	}

	s.nextID++
	s.charges = append(s.charges, c)
	return c, nil
}

// defaultX spreads successive charges outwards from the centre, alternating
// right (even ids) and left (odd ids) in steps of an eighth of the range.
func (s *Set) defaultX(id int) float64 {
	a := s.grid.X
	if id == 0 {
		return a.Center()
	}
	offset := math.Ceil(float64(id)/2) * a.Range() / 8
	if id%2 == 0 {
		return a.Center() + offset
	}
	return a.Center() - offset
}

func (s *Set) insetClamp(a field.Axis, v float64) float64 {
	pad := a.Range() * s.placement.Inset
	return math.Max(a.Min+pad, math.Min(a.Max-pad, v))
}

// Remove deletes the charge with the given id.
func (s *Set) Remove(id int) error {
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("removing %d: %w", id, ErrUnknownCharge)
	}
	s.charges = append(s.charges[:i], s.charges[i+1:]...)
	return nil
}

// Move sets a charge's position, clamping it to the grid. A clamped move is
// never rejected; it returns a warning instead. Non-finite coordinates keep
// the charge's previous value on that axis.
func (s *Set) Move(id int, p r3.Vec) (Charge, *Warning, error) {
	i := s.indexOf(id)
	if i < 0 {
		return Charge{}, nil, fmt.Errorf("moving %d: %w", id, ErrUnknownCharge)
	}
	c := &s.charges[i]
	if !finite(p.X) {
		p.X = c.X
	}
	if !finite(p.Y) {
		p.Y = c.Y
	}
	if !s.grid.Is3D() || !finite(p.Z) {
		p.Z = c.Z
	}
	clamped := s.grid.Clamp(p)
	c.X, c.Y, c.Z = clamped.X, clamped.Y, clamped.Z

	if clamped != p {
		w := clampWarning(id)
		return *c, &w, nil
	}
	return *c, nil, nil
}

// SetQ updates a charge's magnitude. Zero is accepted here and reported by Validate.
func (s *Set) SetQ(id int, q float64) error {
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("updating %d: %w", id, ErrUnknownCharge)
	}
	s.charges[i].Q = q
	return nil
}

// Validate reports every charge that cannot be sent to the solver, joined
// into one error. An empty set is reported as ErrNoCharges.
func (s *Set) Validate() error {
	if len(s.charges) == 0 {
		return ErrNoCharges
	}
	var errs []error
	for i, c := range s.charges {
		switch {
		case !finite(c.X) || !finite(c.Y) || !finite(c.Z):
			errs = append(errs, &InvalidChargeError{Index: i, ID: c.ID, Reason: "coordinates must be finite"})
		case !finite(c.Q):
			errs = append(errs, &InvalidChargeError{Index: i, ID: c.ID, Reason: "charge must be finite"})
		case c.Q == 0:
			errs = append(errs, &InvalidChargeError{Index: i, ID: c.ID, Reason: "charge must be non-zero"})
		}
	}
	return errors.Join(errs...)
}

// Nearest returns the charge closest to p within radius, measured in the xy
// plane. ok is false when no charge is close enough.
func (s *Set) Nearest(p r3.Vec, radius float64) (Charge, bool) {
	best, bestDist := -1, radius
	for i, c := range s.charges {
		d := math.Hypot(c.X-p.X, c.Y-p.Y)
		if d <= bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return Charge{}, false
	}
	return s.charges[best], true
}

// Get returns the charge with the given id.
func (s *Set) Get(id int) (Charge, bool) {
	if i := s.indexOf(id); i >= 0 {
		return s.charges[i], true
	}
	return Charge{}, false
}

// All returns a copy of the charges in display order.
func (s *Set) All() []Charge {
	out := make([]Charge, len(s.charges))
	copy(out, s.charges)
	return out
}

// Len returns the number of charges.
func (s *Set) Len() int { return len(s.charges) }

func (s *Set) indexOf(id int) int {
	for i, c := range s.charges {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func clampWarning(id int) Warning {
	return Warning{ChargeID: id, Message: fmt.Sprintf("charge %d clamped to grid bounds", id)}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
