package scene

import "github.com/pthm-cable/fieldscope/config"

// ParamsFrom reads the density settings from the contour and isosurface
// config sections.
func ParamsFrom(cfg *config.Config) Params {
	return Params{
		Bands:           cfg.Contour.Bands,
		LabelHalfHeight: cfg.Contour.LabelHalfHeight,
		ArrowDivisions:  cfg.Contour.ArrowDivisions,
		ArrowLength:     float64(cfg.Contour.ArrowLength),
		Surfaces:        cfg.Isosurface.Surfaces,
		BaseIndex:       cfg.Isosurface.BaseIndex,
		HeatmapDivisor:  cfg.Isosurface.HeatmapDivisor,
		VectorDivisions: cfg.Isosurface.VectorDivisions,
	}
}

// OptionsFrom reads the initial display toggles.
func OptionsFrom(cfg *config.Config) Options {
	d := cfg.Display
	return Options{
		ShowFieldLines:       d.ShowFieldLines,
		ShowPotential:        d.ShowPotential,
		ShowEquipotential:    d.ShowEquipotential,
		ShowFieldVectors:     d.ShowFieldVectors,
		ShowPotentialSurface: d.ShowPotentialSurface,
		ShowHeatmap:          d.ShowHeatmap,
	}
}
