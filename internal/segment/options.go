// Package segment partitions mesh faces into charts by greedy region growing.
package segment

// Options controls chart growth.
type Options struct {
	// MaxNormalDeviation is the largest angle, in degrees, between a face normal
	// and the running chart normal.
	MaxNormalDeviation float64
	// MaxBoundaryRatio limits L²/(4πA) of a chart. Growth that would exceed it is
	// refused unless it does not worsen the ratio. 0 disables the limit.
	MaxBoundaryRatio float64

	NormalDeviationWeight float64
	RoundnessWeight       float64
	NormalSeamWeight      float64
	// MaxCost refuses faces whose weighted cost exceeds it.
	MaxCost float64

	// MaxChartArea and MaxBoundaryLength bound chart size; 0 means no limit.
	MaxChartArea      float64
	MaxBoundaryLength float64

	// MergeCharts folds charts that are mostly enclosed by a neighbour into it.
	MergeCharts bool
}

// DefaultOptions returns the growth settings used when none are given.
func DefaultOptions() Options {
	return Options{
		MaxNormalDeviation:    75,
		MaxBoundaryRatio:      4.5,
		NormalDeviationWeight: 2.0,
		RoundnessWeight:       0.5,
		NormalSeamWeight:      4.0,
		MaxCost:               2.0,
		MergeCharts:           true,
	}
}

// splitOptions tightens growth for a re-split round.
func (o Options) splitOptions(round int) Options {
	split := o
	scale := 1.0
	for i := 0; i < round; i++ {
		scale *= 0.5
	}
	split.MaxNormalDeviation = o.MaxNormalDeviation * scale
	if split.MaxNormalDeviation < 5 {
		split.MaxNormalDeviation = 5
	}
	split.MergeCharts = false
	return split
}
