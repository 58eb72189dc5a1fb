package atlas

import (
	stdmath "math"

	"github.com/Faultbox/uvatlas/internal/pack"
	"github.com/Faultbox/uvatlas/internal/param"
	"github.com/Faultbox/uvatlas/internal/segment"
)

// ChartOptions controls how meshes are cut into charts.
type ChartOptions struct {
	// MaxNormalDeviation is the largest angle in degrees between a face and its chart's average normal.
	MaxNormalDeviation float64 `yaml:"max_normal_deviation"`
	// MaxBoundaryRatio limits the isoperimetric ratio L²/(4πA) of a chart. 0 disables it.
	MaxBoundaryRatio float64 `yaml:"max_boundary_ratio"`

	NormalDeviationWeight float64 `yaml:"normal_deviation_weight"`
	RoundnessWeight       float64 `yaml:"roundness_weight"`
	NormalSeamWeight      float64 `yaml:"normal_seam_weight"`
	MaxCost               float64 `yaml:"max_cost"`

	// MaxChartArea and MaxBoundaryLength bound chart growth; 0 means no limit.
	MaxChartArea      float64 `yaml:"max_chart_area"`
	MaxBoundaryLength float64 `yaml:"max_boundary_length"`

	// MaxIterations is the number of re-split rounds for charts above MaxDistortion.
	MaxIterations int     `yaml:"max_iterations"`
	MaxDistortion float64 `yaml:"max_distortion"`

	// UseInputMeshUVs takes charts and their parametrization from the mesh's texture coordinates.
	UseInputMeshUVs bool `yaml:"use_input_mesh_uvs"`
	MergeCharts     bool `yaml:"merge_charts"`
}

// DefaultChartOptions returns the default chart options.
func DefaultChartOptions() ChartOptions {
	seg := segment.DefaultOptions()
	return ChartOptions{
		MaxNormalDeviation:    seg.MaxNormalDeviation,
		MaxBoundaryRatio:      seg.MaxBoundaryRatio,
		NormalDeviationWeight: seg.NormalDeviationWeight,
		RoundnessWeight:       seg.RoundnessWeight,
		NormalSeamWeight:      seg.NormalSeamWeight,
		MaxCost:               seg.MaxCost,
		MaxIterations:         2,
		MaxDistortion:         param.DefaultOptions().MaxDistortion,
		MergeCharts:           seg.MergeCharts,
	}
}

// Validate reports the first invalid field as a *ValidationError.
func (o ChartOptions) Validate() error {
	switch {
	case !finite(o.MaxNormalDeviation) || o.MaxNormalDeviation <= 0 || o.MaxNormalDeviation > 180:
		return validationf("MaxNormalDeviation must be in (0, 180], got %g", o.MaxNormalDeviation)
	case !nonNegative(o.MaxBoundaryRatio):
		return validationf("MaxBoundaryRatio must not be negative, got %g", o.MaxBoundaryRatio)
	case !nonNegative(o.NormalDeviationWeight), !nonNegative(o.RoundnessWeight), !nonNegative(o.NormalSeamWeight):
		return validationf("chart weights must not be negative, got %g/%g/%g",
			o.NormalDeviationWeight, o.RoundnessWeight, o.NormalSeamWeight)
	case !finite(o.MaxCost) || o.MaxCost <= 0:
		return validationf("MaxCost must be positive, got %g", o.MaxCost)
	case !nonNegative(o.MaxChartArea):
		return validationf("MaxChartArea must not be negative, got %g", o.MaxChartArea)
	case !nonNegative(o.MaxBoundaryLength):
		return validationf("MaxBoundaryLength must not be negative, got %g", o.MaxBoundaryLength)
	case o.MaxIterations < 0:
		return validationf("MaxIterations must not be negative, got %d", o.MaxIterations)
	case !finite(o.MaxDistortion) || o.MaxDistortion < 1:
		return validationf("MaxDistortion must be at least 1, got %g", o.MaxDistortion)
	}
	return nil
}

func (o ChartOptions) segment() segment.Options {
	return segment.Options{
		MaxNormalDeviation:    o.MaxNormalDeviation,
		MaxBoundaryRatio:      o.MaxBoundaryRatio,
		NormalDeviationWeight: o.NormalDeviationWeight,
		RoundnessWeight:       o.RoundnessWeight,
		NormalSeamWeight:      o.NormalSeamWeight,
		MaxCost:               o.MaxCost,
		MaxChartArea:          o.MaxChartArea,
		MaxBoundaryLength:     o.MaxBoundaryLength,
		MergeCharts:           o.MergeCharts,
	}
}

func (o ChartOptions) param() param.Options {
	opts := param.DefaultOptions()
	opts.MaxDistortion = o.MaxDistortion
	return opts
}

// PackOptions controls how charts are placed in atlases.
type PackOptions struct {
	// Padding is the number of empty texels around each chart.
	Padding int `yaml:"padding"`
	// TexelsPerUnit sets texel density; 0 estimates it from the total chart area.
	TexelsPerUnit float64 `yaml:"texels_per_unit"`
	// Resolution fixes square atlas bins of this size; 0 grows a single atlas.
	Resolution   int `yaml:"resolution"`
	MaxAtlasSize int `yaml:"max_atlas_size"`
	// MaxChartSize scales down charts wider or taller than this many texels; 0 means no limit.
	MaxChartSize int `yaml:"max_chart_size"`

	RotateCharts       bool    `yaml:"rotate_charts"`
	RotationStep       float64 `yaml:"rotation_step"`
	RotateChartsToAxis bool    `yaml:"rotate_charts_to_axis"`
	BlockAlign         bool    `yaml:"block_align"`
	BruteForce         bool    `yaml:"brute_force"`
}

// DefaultPackOptions returns the default pack options.
func DefaultPackOptions() PackOptions {
	p := pack.DefaultOptions()
	return PackOptions{
		Padding:            p.Padding,
		MaxAtlasSize:       p.MaxAtlasSize,
		RotateCharts:       p.RotateCharts,
		RotationStep:       p.RotationStep,
		RotateChartsToAxis: p.RotateChartsToAxis,
		BruteForce:         p.BruteForce,
	}
}

// Validate reports the first invalid field as a *ValidationError.
func (o PackOptions) Validate() error {
	switch {
	case o.Padding < 0:
		return validationf("Padding must not be negative, got %d", o.Padding)
	case !nonNegative(o.TexelsPerUnit):
		return validationf("TexelsPerUnit must not be negative, got %g", o.TexelsPerUnit)
	case o.Resolution < 0:
		return validationf("Resolution must not be negative, got %d", o.Resolution)
	case o.Resolution > 0 && o.Resolution <= 2*o.Padding:
		return validationf("Resolution %d leaves no room inside padding %d", o.Resolution, o.Padding)
	case o.MaxAtlasSize <= 0:
		return validationf("MaxAtlasSize must be positive, got %d", o.MaxAtlasSize)
	case o.MaxAtlasSize <= 2*o.Padding:
		return validationf("MaxAtlasSize %d leaves no room inside padding %d", o.MaxAtlasSize, o.Padding)
	case o.MaxChartSize < 0:
		return validationf("MaxChartSize must not be negative, got %d", o.MaxChartSize)
	case !finite(o.RotationStep) || o.RotationStep < pack.MinRotationStep || o.RotationStep > 360:
		return validationf("RotationStep must be in [%g, 360], got %g", pack.MinRotationStep, o.RotationStep)
	}
	return nil
}

func (o PackOptions) pack() pack.Options {
	return pack.Options{
		Padding:            o.Padding,
		TexelsPerUnit:      o.TexelsPerUnit,
		Resolution:         o.Resolution,
		MaxAtlasSize:       o.MaxAtlasSize,
		MaxChartSize:       o.MaxChartSize,
		RotateCharts:       o.RotateCharts,
		RotationStep:       o.RotationStep,
		RotateChartsToAxis: o.RotateChartsToAxis,
		BlockAlign:         o.BlockAlign,
		BruteForce:         o.BruteForce,
	}
}

func finite(v float64) bool {
	return !stdmath.IsNaN(v) && !stdmath.IsInf(v, 0)
}

func nonNegative(v float64) bool {
	return finite(v) && v >= 0
}
