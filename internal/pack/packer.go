package pack

import (
	stdmath "math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/uvatlas/internal/parallel"
	"github.com/Faultbox/uvatlas/pkg/math"
)

// Placement locates one chart in the atlas.
type Placement struct {
	Bin int
	// X, Y is the texel position of the chart origin, inside its padding.
	X, Y int
	// Angle is the chart rotation in degrees.
	Angle float64
	// Scale converts chart units to texels.
	Scale float64
	// Width, Height is the chart extent in texels without padding.
	Width, Height int

	origin math.Vec2
}

// Transform maps a chart uv to texel coordinates in its bin.
func (p Placement) Transform(uv math.Vec2) math.Vec2 {
	r := uv.Rotate(p.Angle * stdmath.Pi / 180).Sub(p.origin).Scale(p.Scale)
	return r.Add(math.Vec2{X: float64(p.X), Y: float64(p.Y)})
}

// Result is the outcome of packing.
type Result struct {
	Placements    []Placement // indexed like the input charts
	Width, Height int
	TexelsPerUnit float64
	Utilization   []float64 // per bin
}

// AtlasCount returns the number of bins.
func (r *Result) AtlasCount() int { return len(r.Utilization) }

// Normalize converts texel coordinates to [0, 1] atlas coordinates.
func (r *Result) Normalize(texel math.Vec2) math.Vec2 {
	if r.Width == 0 || r.Height == 0 {
		return math.Vec2{}
	}
	uv := math.Vec2{X: texel.X / float64(r.Width), Y: texel.Y / float64(r.Height)}
	return math.Vec2{X: stdmath.Min(stdmath.Max(uv.X, 0), 1), Y: stdmath.Min(stdmath.Max(uv.Y, 0), 1)}
}

// bin is one atlas page. Scans hold the read lock; placement and growth the write lock.
type bin struct {
	mu           sync.RWMutex
	img          *bitImage
	usedW, usedH int
}

// fit is a candidate position for one footprint.
type fit struct {
	ok   bool
	x, y int
}

// Packer places charts into bins.
type Packer struct {
	opts Options
	pool *parallel.WorkerPool
	log  *zap.Logger
}

// New creates a packer. pool may be nil to evaluate rotations sequentially;
// a nil logger disables logging.
func New(opts Options, pool *parallel.WorkerPool, log *zap.Logger) *Packer {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Padding < 0 {
		opts.Padding = 0
	}
	// an empty bin must always fit a one texel chart
	side := opts.maxAtlasSize()
	if opts.Resolution > 0 {
		side = opts.Resolution
	}
	if 2*opts.Padding >= side {
		opts.Padding = (side - 1) / 2
	}
	return &Packer{opts: opts, pool: pool, log: log}
}

func (p *Packer) forEach(n int, fn func(i int)) {
	if p.pool == nil || !p.pool.IsRunning() {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	p.pool.ForEach(n, fn)
}

// TexelsPerUnit returns the texel density used for charts with the given total area.
func (p *Packer) TexelsPerUnit(totalArea float64) float64 {
	if p.opts.TexelsPerUnit > 0 {
		return p.opts.TexelsPerUnit
	}
	if totalArea <= 0 {
		return 1
	}
	target := float64(defaultTarget)
	if p.opts.Resolution > 0 {
		target = float64(p.opts.Resolution)
	}
	return stdmath.Sqrt(target * target * 0.7 / totalArea)
}

// Pack places every chart. Charts are never rejected: a chart too large for a bin
// is scaled down until it fits.
func (p *Packer) Pack(charts []Shape) *Result {
	res := &Result{Placements: make([]Placement, len(charts))}
	if len(charts) == 0 {
		res.TexelsPerUnit = p.TexelsPerUnit(0)
		return res
	}

	total := 0.0
	for _, c := range charts {
		total += shapeArea(c)
	}
	tpu := p.TexelsPerUnit(total)
	res.TexelsPerUnit = tpu

	footprints := make([][]*footprint, len(charts))
	p.forEach(len(charts), func(i int) {
		footprints[i] = p.footprints(charts[i], tpu)
	})

	order := make([]int, len(charts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		fa, fb := footprints[order[a]][0].area(), footprints[order[b]][0].area()
		if fa != fb {
			return fa > fb
		}
		return order[a] < order[b]
	})

	bins := []*bin{p.newBin(p.initialSide(footprints))}
	for _, ci := range order {
		bi, f, at := p.place(&bins, footprints[ci])
		b := bins[bi]
		b.mu.Lock()
		b.img.blit(f.raw, at.x, at.y)
		b.usedW = max(b.usedW, at.x+f.raw.width)
		b.usedH = max(b.usedH, at.y+f.raw.height)
		b.mu.Unlock()

		res.Placements[ci] = Placement{
			Bin:    bi,
			X:      at.x + f.padding,
			Y:      at.y + f.padding,
			Angle:  f.angle,
			Scale:  f.scale,
			Width:  f.width,
			Height: f.height,
			origin: f.origin,
		}
	}

	p.finish(res, bins)
	p.log.Debug("packed charts",
		zap.Int("charts", len(charts)),
		zap.Int("atlases", len(bins)),
		zap.Int("width", res.Width),
		zap.Int("height", res.Height),
		zap.Float64("texels_per_unit", tpu))
	return res
}

// footprints rasterizes a chart at every candidate rotation.
func (p *Packer) footprints(s Shape, tpu float64) []*footprint {
	base := 0.0
	if p.opts.RotateChartsToAxis {
		base = minAreaRectAngle(shapePoints(s))
	}
	rotations := p.opts.rotations()

	largest := 0.0
	for _, r := range rotations {
		lo, hi := shapeBounds(s, base+r)
		size := hi.Sub(lo)
		largest = stdmath.Max(largest, stdmath.Max(size.X, size.Y)*tpu)
	}
	scale := tpu
	if limit := float64(p.chartLimit()); largest > limit {
		scale *= limit / largest * (1 - 1e-6)
	}

	out := make([]*footprint, len(rotations))
	for i, r := range rotations {
		out[i] = rasterize(s, i, base+r, scale, p.opts.Padding)
	}
	return out
}

// chartLimit is the largest chart extent in texels that fits an empty bin.
func (p *Packer) chartLimit() int {
	side := p.opts.maxAtlasSize()
	if p.opts.Resolution > 0 {
		side = p.opts.Resolution
	}
	limit := max(1, side-2*p.opts.Padding)
	if p.opts.MaxChartSize > 0 {
		limit = min(limit, p.opts.MaxChartSize)
	}
	return limit
}

func (p *Packer) initialSide(footprints [][]*footprint) int {
	if p.opts.Resolution > 0 {
		return p.opts.Resolution
	}
	area := 0
	for _, fs := range footprints {
		area += fs[0].mask.width * fs[0].mask.height
	}
	side := 1
	for side*side < area {
		side *= 2
	}
	return min(side, p.opts.maxAtlasSize())
}

func (p *Packer) newBin(side int) *bin {
	return &bin{img: newBitImage(side, side)}
}

// place finds a bin and position for a chart, growing or adding bins as needed.
func (p *Packer) place(bins *[]*bin, fs []*footprint) (int, *footprint, fit) {
	for bi, b := range *bins {
		if f, at, ok := p.bestFit(b, fs); ok {
			return bi, f, at
		}
	}
	for {
		last := len(*bins) - 1
		if p.opts.Resolution > 0 || !p.grow((*bins)[last]) {
			*bins = append(*bins, p.newBin(p.initialSide(nil)))
			p.log.Debug("started new atlas", zap.Int("atlas", len(*bins)-1))
		}
		last = len(*bins) - 1
		if f, at, ok := p.bestFit((*bins)[last], fs); ok {
			return last, f, at
		}
	}
}

// grow doubles the smaller side of a bin. It returns false once both sides are at the limit.
func (p *Packer) grow(b *bin) bool {
	limit := p.opts.maxAtlasSize()
	b.mu.Lock()
	defer b.mu.Unlock()
	w, h := b.img.width, b.img.height
	switch {
	case w >= limit && h >= limit:
		return false
	case (w <= h && w < limit) || h >= limit:
		w = min(2*w, limit)
	default:
		h = min(2*h, limit)
	}
	b.img = b.img.resized(w, h)
	p.log.Debug("grew atlas", zap.Int("width", w), zap.Int("height", h))
	return true
}

// bestFit scans the bin for every rotation in parallel and keeps the placement with
// the smallest resulting extent, then area, then rotation index.
func (p *Packer) bestFit(b *bin, fs []*footprint) (*footprint, fit, bool) {
	b.mu.RLock()
	usedW, usedH := b.usedW, b.usedH
	b.mu.RUnlock()

	fits := make([]fit, len(fs))
	p.forEach(len(fs), func(i int) {
		b.mu.RLock()
		defer b.mu.RUnlock()
		fits[i] = p.scan(b.img, fs[i].mask, usedW, usedH)
	})

	best := -1
	var bestExtent, bestArea int
	for i, at := range fits {
		if !at.ok {
			continue
		}
		extent, area := score(usedW, usedH, at.x+fs[i].mask.width, at.y+fs[i].mask.height)
		if best < 0 || extent < bestExtent || (extent == bestExtent && area < bestArea) {
			best, bestExtent, bestArea = i, extent, area
		}
	}
	if best < 0 {
		return nil, fit{}, false
	}
	return fs[best], fits[best], true
}

// score returns the extent and area of the used rectangle after covering (0, 0)-(right, bottom).
func score(usedW, usedH, right, bottom int) (extent, area int) {
	w, h := max(usedW, right), max(usedH, bottom)
	return max(w, h), w * h
}

// scan finds a free position for mask. BruteForce returns the position with the best
// score; otherwise the scan strides first and returns the first row-major fit.
func (p *Packer) scan(img, mask *bitImage, usedW, usedH int) fit {
	if mask.width > img.width || mask.height > img.height {
		return fit{}
	}
	step := 1
	if p.opts.BlockAlign {
		step = 4
	}
	lastX, lastY := img.width-mask.width, img.height-mask.height
	if p.opts.BruteForce {
		return scanBest(img, mask, usedW, usedH, step)
	}
	stride := max(step, min(mask.width, mask.height)/4)
	stride -= stride % step
	if stride > step {
		if at := scanStep(img, mask, lastX, lastY, stride); at.ok {
			return at
		}
	}
	return scanStep(img, mask, lastX, lastY, step)
}

// scanStep returns the first row-major fit with its corner in [0, lastX]x[0, lastY].
func scanStep(img, mask *bitImage, lastX, lastY, step int) fit {
	for y := 0; y <= lastY; y += step {
		for x := 0; x <= lastX; x += step {
			if !img.overlaps(mask, x, y) {
				return fit{ok: true, x: x, y: y}
			}
		}
	}
	return fit{}
}

// scanBest returns the fit with the smallest score, first in row-major order on ties.
func scanBest(img, mask *bitImage, usedW, usedH, step int) fit {
	// inside the used rectangle every fit has the lowest possible score
	lastX := min(usedW, img.width) - mask.width
	lastY := min(usedH, img.height) - mask.height
	if at := scanStep(img, mask, lastX, lastY, step); at.ok {
		return at
	}

	var best fit
	var bestExtent, bestArea int
	for y := 0; y+mask.height <= img.height; y += step {
		if best.ok && max(usedH, y+mask.height) > bestExtent {
			break
		}
		for x := 0; x+mask.width <= img.width; x += step {
			if x <= lastX && y <= lastY {
				continue
			}
			// the score never decreases along a row
			extent, area := score(usedW, usedH, x+mask.width, y+mask.height)
			if best.ok && (extent > bestExtent || (extent == bestExtent && area >= bestArea)) {
				break
			}
			if !img.overlaps(mask, x, y) {
				best = fit{ok: true, x: x, y: y}
				bestExtent, bestArea = extent, area
				break
			}
		}
	}
	return best
}

// finish sets the atlas size and per bin utilization.
func (p *Packer) finish(res *Result, bins []*bin) {
	if p.opts.Resolution > 0 {
		res.Width, res.Height = p.opts.Resolution, p.opts.Resolution
	} else {
		for _, b := range bins {
			res.Width = max(res.Width, b.usedW)
			res.Height = max(res.Height, b.usedH)
		}
	}
	for _, b := range bins {
		used := b.img.resized(res.Width, res.Height).count()
		res.Utilization = append(res.Utilization, float64(used)/float64(res.Width*res.Height))
	}
}
