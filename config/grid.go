package config

import (
	"fmt"

	"github.com/pthm-cable/fieldscope/field"
)

// GridFor builds the configured grid for dims 2 or 3. The 3D grid reuses
// the x/y extents with count_3d samples on every axis. Counts above the
// solver limits are rejected.
func (c *Config) GridFor(dims int) (field.Grid, error) {
	gc := c.Grid
	nx, ny, nz, limit := gc.X.Count, gc.Y.Count, 0, gc.MaxCount2D
	if dims == 3 {
		nx, ny, nz, limit = gc.Count3D, gc.Count3D, gc.Count3D, gc.MaxCount3D
	}

	x, err := axis("x", gc.X, nx, limit)
	if err != nil {
		return field.Grid{}, err
	}
	y, err := axis("y", gc.Y, ny, limit)
	if err != nil {
		return field.Grid{}, err
	}
	if dims != 3 {
		return field.NewGrid2D(x, y)
	}
	z, err := axis("z", gc.Z, nz, limit)
	if err != nil {
		return field.Grid{}, err
	}
	return field.NewGrid3D(x, y, z)
}

// Dims returns the configured initial grid dimensionality.
func (c *Config) Dims() int {
	if c.Derived.Is3D {
		return 3
	}
	return 2
}

func axis(name string, ac AxisConfig, count, limit int) (field.Axis, error) {
	if limit > 0 && count > limit {
		return field.Axis{}, &field.InvalidGridError{
			Axis:   name,
			Min:    ac.Min,
			Max:    ac.Max,
			Count:  count,
			Reason: fmt.Sprintf("exceeds solver limit of %d samples", limit),
		}
	}
	return field.NewAxis(name, ac.Min, ac.Max, count)
}
