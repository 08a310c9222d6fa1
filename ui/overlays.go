package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fieldscope/scene"
)

// OverlayID uniquely identifies a display layer toggle.
type OverlayID string

// Standard overlay IDs, one per scene option.
const (
	OverlayFieldLines       OverlayID = "field_lines"
	OverlayPotential        OverlayID = "potential"
	OverlayEquipotential    OverlayID = "equipotential"
	OverlayFieldVectors     OverlayID = "field_vectors"
	OverlayPotentialSurface OverlayID = "potential_surface"
	OverlayHeatmap          OverlayID = "heatmap"
)

// Overlay categories match the grid dimensionality they apply to.
const (
	Category2D = "2d"
	Category3D = "3d"
)

// OverlayDescriptor defines a layer that can be toggled.
type OverlayDescriptor struct {
	ID          OverlayID   // Unique identifier
	Name        string      // Display name
	Description string      // What this overlay shows
	Key         int32       // Keyboard key to toggle (0 = no key)
	KeyLabel    string      // Key label for display (e.g., "1")
	Category    string      // Category2D or Category3D
	Exclusive   []OverlayID // Other overlays to disable when this is enabled
}

// OverlayRegistry manages overlay state and metadata.
type OverlayRegistry struct {
	descriptors []OverlayDescriptor
	byID        map[OverlayID]OverlayDescriptor
	enabled     map[OverlayID]bool
}

// NewOverlayRegistry creates a registry with the standard overlays, enabled
// according to opts.
func NewOverlayRegistry(opts scene.Options) *OverlayRegistry {
	reg := &OverlayRegistry{
		byID:    make(map[OverlayID]OverlayDescriptor),
		enabled: make(map[OverlayID]bool),
	}
	reg.registerDefaults()
	reg.SetOptions(opts)
	return reg
}

func (r *OverlayRegistry) registerDefaults() {
	r.Register(OverlayDescriptor{
		ID:          OverlayFieldLines,
		Name:        "Field Lines",
		Description: "Arrows along the electric field",
		Key:         rl.KeyOne,
		KeyLabel:    "1",
		Category:    Category2D,
	})
	r.Register(OverlayDescriptor{
		ID:          OverlayPotential,
		Name:        "Potential",
		Description: "Potential heatmap, blue to red",
		Key:         rl.KeyTwo,
		KeyLabel:    "2",
		Category:    Category2D,
	})
	r.Register(OverlayDescriptor{
		ID:          OverlayEquipotential,
		Name:        "Equipotentials",
		Description: "Equipotential contour lines with labels",
		Key:         rl.KeyThree,
		KeyLabel:    "3",
		Category:    Category2D,
	})
	r.Register(OverlayDescriptor{
		ID:          OverlayFieldVectors,
		Name:        "Field Vectors",
		Description: "Sampled field vectors colored by magnitude",
		Key:         rl.KeyFour,
		KeyLabel:    "4",
		Category:    Category3D,
	})
	r.Register(OverlayDescriptor{
		ID:          OverlayPotentialSurface,
		Name:        "Isosurfaces",
		Description: "Equipotential surfaces and the selected level",
		Key:         rl.KeyFive,
		KeyLabel:    "5",
		Category:    Category3D,
	})
	r.Register(OverlayDescriptor{
		ID:          OverlayHeatmap,
		Name:        "Heatmap",
		Description: "Potential point cloud",
		Key:         rl.KeySix,
		KeyLabel:    "6",
		Category:    Category3D,
	})
}

// Register adds an overlay to the registry, disabled.
func (r *OverlayRegistry) Register(desc OverlayDescriptor) {
	r.descriptors = append(r.descriptors, desc)
	r.byID[desc.ID] = desc
	r.enabled[desc.ID] = false
}

// Toggle switches an overlay on/off and handles exclusivity.
func (r *OverlayRegistry) Toggle(id OverlayID) bool {
	if _, ok := r.byID[id]; !ok {
		return false
	}
	on := !r.enabled[id]
	r.SetEnabled(id, on)
	return on
}

// SetEnabled explicitly sets an overlay's state.
func (r *OverlayRegistry) SetEnabled(id OverlayID, enabled bool) {
	desc, ok := r.byID[id]
	if !ok {
		return
	}
	r.enabled[id] = enabled
	if enabled {
		for _, excl := range desc.Exclusive {
			r.enabled[excl] = false
		}
	}
}

// IsEnabled returns whether an overlay is active.
func (r *OverlayRegistry) IsEnabled(id OverlayID) bool {
	return r.enabled[id]
}

// Get returns an overlay descriptor by ID.
func (r *OverlayRegistry) Get(id OverlayID) (OverlayDescriptor, bool) {
	desc, ok := r.byID[id]
	return desc, ok
}

// All returns all registered overlays in registration order.
func (r *OverlayRegistry) All() []OverlayDescriptor {
	return r.descriptors
}

// ByCategory returns overlays filtered by category.
func (r *OverlayRegistry) ByCategory(category string) []OverlayDescriptor {
	var result []OverlayDescriptor
	for _, desc := range r.descriptors {
		if desc.Category == category {
			result = append(result, desc)
		}
	}
	return result
}

// ForDims returns the overlays that affect a grid of the given dimensionality.
func (r *OverlayRegistry) ForDims(dims int) []OverlayDescriptor {
	if dims == 3 {
		return r.ByCategory(Category3D)
	}
	return r.ByCategory(Category2D)
}

// HandleKeyPress checks if a key corresponds to an overlay toggle.
// Returns the overlay ID and new state if a toggle occurred.
func (r *OverlayRegistry) HandleKeyPress(key int32) (OverlayID, bool, bool) {
	for _, desc := range r.descriptors {
		if desc.Key == key {
			return desc.ID, r.Toggle(desc.ID), true
		}
	}
	return "", false, false
}

// Options returns the scene display options for the current toggles.
func (r *OverlayRegistry) Options() scene.Options {
	return scene.Options{
		ShowFieldLines:       r.enabled[OverlayFieldLines],
		ShowPotential:        r.enabled[OverlayPotential],
		ShowEquipotential:    r.enabled[OverlayEquipotential],
		ShowFieldVectors:     r.enabled[OverlayFieldVectors],
		ShowPotentialSurface: r.enabled[OverlayPotentialSurface],
		ShowHeatmap:          r.enabled[OverlayHeatmap],
	}
}

// SetOptions replaces every toggle with the values in opts.
func (r *OverlayRegistry) SetOptions(opts scene.Options) {
	r.enabled[OverlayFieldLines] = opts.ShowFieldLines
	r.enabled[OverlayPotential] = opts.ShowPotential
	r.enabled[OverlayEquipotential] = opts.ShowEquipotential
	r.enabled[OverlayFieldVectors] = opts.ShowFieldVectors
	r.enabled[OverlayPotentialSurface] = opts.ShowPotentialSurface
	r.enabled[OverlayHeatmap] = opts.ShowHeatmap
}
