// Package pack places parametrized charts into texture atlases.
package pack

// DefaultMaxAtlasSize is the default limit on atlas width and height.
const DefaultMaxAtlasSize = 4096

// MinRotationStep is the finest rotation step in degrees. It caps a chart at 360 candidate footprints.
const MinRotationStep = 1.0

// defaultTarget is the atlas side used to estimate texel density when no resolution is set.
const defaultTarget = 1024

// Options controls chart packing.
type Options struct {
	// Padding is the number of empty texels kept around every chart.
	Padding int
	// TexelsPerUnit sets texel density; 0 estimates it from the total chart area.
	TexelsPerUnit float64
	// Resolution fixes the side of square atlas bins; 0 grows a single atlas.
	Resolution int
	// MaxAtlasSize limits atlas growth in single atlas mode.
	MaxAtlasSize int
	// MaxChartSize limits chart width and height in texels; 0 means unlimited.
	MaxChartSize int
	// RotateCharts tries rotations in RotationStep degree increments.
	RotateCharts bool
	// RotationStep in degrees, in [MinRotationStep, 360].
	RotationStep float64
	// RotateChartsToAxis aligns each chart with its minimum area bounding rectangle first.
	RotateChartsToAxis bool
	// BlockAlign places charts on a 4 texel grid.
	BlockAlign bool
	// BruteForce scans every position. Otherwise the scan strides and falls back to a full scan.
	BruteForce bool
}

// DefaultOptions returns the default packing options.
func DefaultOptions() Options {
	return Options{
		Padding:            1,
		MaxAtlasSize:       DefaultMaxAtlasSize,
		RotateCharts:       true,
		RotationStep:       90,
		RotateChartsToAxis: true,
		BruteForce:         true,
	}
}

// rotations returns the candidate angles in degrees added to a chart's base angle.
func (o Options) rotations() []float64 {
	if !o.RotateCharts || o.RotationStep <= 0 || o.RotationStep >= 360 {
		return []float64{0}
	}
	step := max(o.RotationStep, MinRotationStep)
	var out []float64
	for i := 0; float64(i)*step < 360-1e-9; i++ {
		out = append(out, float64(i)*step)
	}
	return out
}

func (o Options) maxAtlasSize() int {
	if o.MaxAtlasSize <= 0 {
		return DefaultMaxAtlasSize
	}
	return o.MaxAtlasSize
}
