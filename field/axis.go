// Package field holds the immutable result of one solve: grid geometry plus
// the scalar potential and vector field layers, and the samplers that read
// values off the grid at arbitrary points.
package field

import "math"

// Axis is count evenly spaced samples from Min to Max inclusive.
type Axis struct {
	Min   float64 `json:"min" yaml:"min"`
	Max   float64 `json:"max" yaml:"max"`
	Count int     `json:"count" yaml:"count"`
}

// NewAxis validates and returns an axis. name is used in the error only.
func NewAxis(name string, min, max float64, count int) (Axis, error) {
	a := Axis{Min: min, Max: max, Count: count}
	if err := a.validate(name); err != nil {
		return Axis{}, err
	}
	return a, nil
}

func (a Axis) validate(name string) error {
	fail := func(reason string) error {
		return &InvalidGridError{Axis: name, Min: a.Min, Max: a.Max, Count: a.Count, Reason: reason}
	}
	switch {
	case math.IsNaN(a.Min) || math.IsInf(a.Min, 0) || math.IsNaN(a.Max) || math.IsInf(a.Max, 0):
		return fail("bounds must be finite")
	case a.Min >= a.Max:
		return fail("min must be less than max")
	case a.Count < 2:
		return fail("at least 2 samples required")
	}
	return nil
}

// Step returns the spacing between adjacent samples.
func (a Axis) Step() float64 {
	return (a.Max - a.Min) / float64(a.Count-1)
}

// Coord returns the world coordinate of sample i.
func (a Axis) Coord(i int) float64 {
	return a.Min + float64(i)*a.Step()
}

// Center returns the midpoint of the axis range.
func (a Axis) Center() float64 {
	return (a.Min + a.Max) / 2
}

// Range returns Max - Min.
func (a Axis) Range() float64 {
	return a.Max - a.Min
}

// Normalize maps a world coordinate into [0,1] over the axis range. Values
// outside the range are not clamped.
func (a Axis) Normalize(x float64) float64 {
	return (x - a.Min) / (a.Max - a.Min)
}

// Clamp restricts x to the axis bounds.
func (a Axis) Clamp(x float64) float64 {
	return math.Max(a.Min, math.Min(a.Max, x))
}

// Contains reports whether x lies within the axis bounds.
func (a Axis) Contains(x float64) bool {
	return x >= a.Min && x <= a.Max
}

// NormalizedToIndex converts a normalized coordinate to the nearest sample
// index, clamped to [0, count-1]. inRange is false when clamping was needed.
func NormalizedToIndex(n float64, count int) (index int, inRange bool) {
	if math.IsNaN(n) {
		return 0, false
	}
	f := math.Round(n * float64(count-1))
	switch {
	case f < 0:
		return 0, false
	case f > float64(count-1):
		return count - 1, false
	}
	return int(f), true
}
