package segment

import (
	"container/heap"
	stdmath "math"
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/uvatlas/internal/geometry"
	"github.com/Faultbox/uvatlas/pkg/math"
)

// Segmenter grows charts over one mesh.
type Segmenter struct {
	mesh *geometry.Mesh
	opts Options
	log  *zap.Logger
}

// New creates a segmenter. A nil logger disables logging.
func New(mesh *geometry.Mesh, opts Options, log *zap.Logger) *Segmenter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Segmenter{mesh: mesh, opts: opts, log: log}
}

// Segment partitions every face of the mesh into charts.
// Each chart lists its faces in ascending order; charts are ordered by their lowest face.
func (s *Segmenter) Segment() [][]int {
	n := s.mesh.FaceCount()
	member := make([]bool, n)
	faces := make([]int, n)
	for f := range member {
		member[f] = true
		faces[f] = f
	}

	g := s.newGrower(member, s.opts)
	g.growAll(faces)
	if s.opts.MergeCharts {
		g.merge()
	}
	charts := g.result()
	s.log.Debug("segmented mesh",
		zap.Int("faces", n),
		zap.Int("components", s.mesh.ComponentCount()),
		zap.Int("charts", len(charts)))
	return charts
}

// Resplit breaks a chart into smaller charts using tighter thresholds for the given
// round (1 for the first retry). A chart of one face is returned unchanged.
func (s *Segmenter) Resplit(faces []int, round int) [][]int {
	if len(faces) <= 1 {
		return [][]int{append([]int(nil), faces...)}
	}

	member := make([]bool, s.mesh.FaceCount())
	for _, f := range faces {
		member[f] = true
	}
	sorted := append([]int(nil), faces...)
	sort.Ints(sorted)

	g := s.newGrower(member, s.opts.splitOptions(round))
	g.growAll(sorted)
	charts := g.result()
	if len(charts) > 1 {
		return charts
	}
	return s.bisect(sorted, member)
}

// bisect splits faces at the median centroid along the longest bounding box axis,
// then separates each half into connected pieces.
func (s *Segmenter) bisect(faces []int, member []bool) [][]int {
	lo := math.Vec3{X: stdmath.Inf(1), Y: stdmath.Inf(1), Z: stdmath.Inf(1)}
	hi := lo.Scale(-1)
	centroids := make(map[int]math.Vec3, len(faces))
	for _, f := range faces {
		c := s.mesh.FaceCentroid(f)
		centroids[f] = c
		lo = lo.Min(c)
		hi = hi.Max(c)
	}
	extent := hi.Sub(lo)
	axis := 0
	for k := 1; k < 3; k++ {
		if extent.Component(k) > extent.Component(axis) {
			axis = k
		}
	}

	order := append([]int(nil), faces...)
	sort.SliceStable(order, func(i, j int) bool {
		ci, cj := centroids[order[i]].Component(axis), centroids[order[j]].Component(axis)
		if ci != cj {
			return ci < cj
		}
		return order[i] < order[j]
	})

	half := len(order) / 2
	for _, f := range order[half:] {
		member[f] = false
	}
	first := s.connectedPieces(order[:half], member)
	for _, f := range order[:half] {
		member[f] = false
	}
	for _, f := range order[half:] {
		member[f] = true
	}
	second := s.connectedPieces(order[half:], member)

	charts := append(first, second...)
	sortCharts(charts)
	return charts
}

// connectedPieces groups faces (all flagged in member) by edge connectivity.
func (s *Segmenter) connectedPieces(faces []int, member []bool) [][]int {
	seen := make(map[int]bool, len(faces))
	var pieces [][]int
	sorted := append([]int(nil), faces...)
	sort.Ints(sorted)
	for _, start := range sorted {
		if seen[start] {
			continue
		}
		seen[start] = true
		piece := []int{start}
		for queue := []int{start}; len(queue) > 0; {
			f := queue[0]
			queue = queue[1:]
			for k := 0; k < 3; k++ {
				nf := s.mesh.NeighborFace(3*f + k)
				if nf < 0 || !member[nf] || seen[nf] {
					continue
				}
				seen[nf] = true
				piece = append(piece, nf)
				queue = append(queue, nf)
			}
		}
		sort.Ints(piece)
		pieces = append(pieces, piece)
	}
	return pieces
}

// UVIslands groups faces into charts that are connected without crossing a
// texture-coordinate seam. It requires a mesh with input UVs.
func UVIslands(mesh *geometry.Mesh) [][]int {
	n := mesh.FaceCount()
	chart := make([]int, n)
	for i := range chart {
		chart[i] = -1
	}
	var islands [][]int
	for start := 0; start < n; start++ {
		if chart[start] >= 0 {
			continue
		}
		id := len(islands)
		chart[start] = id
		island := []int{start}
		for queue := []int{start}; len(queue) > 0; {
			f := queue[0]
			queue = queue[1:]
			for k := 0; k < 3; k++ {
				h := 3*f + k
				nf := mesh.NeighborFace(h)
				if nf < 0 || chart[nf] >= 0 || mesh.IsUVSeam(h) {
					continue
				}
				chart[nf] = id
				island = append(island, nf)
				queue = append(queue, nf)
			}
		}
		sort.Ints(island)
		islands = append(islands, island)
	}
	return islands
}

func sortCharts(charts [][]int) {
	sort.Slice(charts, func(i, j int) bool {
		return charts[i][0] < charts[j][0]
	})
}

// chartState tracks one chart while it grows.
type chartState struct {
	id        int
	faces     []int
	area      float64
	boundary  float64
	normalSum math.Vec3
	normal    math.Vec3
	gen       int
	merged    bool
}

func (c *chartState) ratio() float64 {
	if c.area <= 0 {
		return 0
	}
	return c.boundary * c.boundary / (4 * stdmath.Pi * c.area)
}

// grower holds assignment state for one segmentation pass.
type grower struct {
	mesh     *geometry.Mesh
	opts     Options
	cosLimit float64
	member   []bool
	assigned []int
	charts   []*chartState
}

func (s *Segmenter) newGrower(member []bool, opts Options) *grower {
	assigned := make([]int, len(member))
	for i := range assigned {
		assigned[i] = -1
	}
	return &grower{
		mesh:     s.mesh,
		opts:     opts,
		cosLimit: stdmath.Cos(opts.MaxNormalDeviation * stdmath.Pi / 180),
		member:   member,
		assigned: assigned,
	}
}

// growAll seeds charts from the largest unassigned face until every face is taken.
func (g *grower) growAll(faces []int) {
	seeds := append([]int(nil), faces...)
	sort.SliceStable(seeds, func(i, j int) bool {
		ai, aj := g.mesh.FaceArea(seeds[i]), g.mesh.FaceArea(seeds[j])
		if ai != aj {
			return ai > aj
		}
		return seeds[i] < seeds[j]
	})
	for _, seed := range seeds {
		if g.assigned[seed] >= 0 {
			continue
		}
		g.grow(seed)
	}
}

func (g *grower) grow(seed int) {
	c := &chartState{id: len(g.charts)}
	g.charts = append(g.charts, c)

	frontier := &candidateHeap{}
	g.addFace(c, seed, frontier)

	for frontier.Len() > 0 {
		cand := heap.Pop(frontier).(candidate)
		if g.assigned[cand.face] >= 0 {
			continue
		}
		if cand.gen != c.gen {
			cost, ok := g.evaluate(c, cand.face)
			if !ok {
				continue
			}
			if cost > cand.cost+1e-12 {
				heap.Push(frontier, candidate{face: cand.face, cost: cost, gen: c.gen})
				continue
			}
		}
		g.addFace(c, cand.face, frontier)
	}
}

func (g *grower) addFace(c *chartState, face int, frontier *candidateHeap) {
	g.assigned[face] = c.id
	c.faces = append(c.faces, face)
	c.area += g.mesh.FaceArea(face)
	for k := 0; k < 3; k++ {
		h := 3*face + k
		l := g.mesh.EdgeLength(h)
		nf := g.mesh.NeighborFace(h)
		if nf >= 0 && g.assigned[nf] == c.id {
			c.boundary -= l
		} else {
			c.boundary += l
		}
	}
	if !g.mesh.IsDegenerate(face) {
		c.normalSum = c.normalSum.Add(g.mesh.FaceNormal(face).Scale(g.mesh.FaceArea(face)))
		c.normal = c.normalSum.Normalize()
	}
	c.gen++

	for k := 0; k < 3; k++ {
		nf := g.mesh.NeighborFace(3*face + k)
		if nf < 0 || !g.member[nf] || g.assigned[nf] >= 0 {
			continue
		}
		if cost, ok := g.evaluate(c, nf); ok {
			heap.Push(frontier, candidate{face: nf, cost: cost, gen: c.gen})
		}
	}
}

// evaluate returns the cost of adding face to c, or false if a limit refuses it.
func (g *grower) evaluate(c *chartState, face int) (float64, bool) {
	normalTerm := 0.0
	if !g.mesh.IsDegenerate(face) && c.normal != (math.Vec3{}) {
		d := g.mesh.FaceNormal(face).Dot(c.normal)
		if d < g.cosLimit {
			return 0, false
		}
		normalTerm = 1 - stdmath.Min(d, 1)
	}

	var perimeter, shared, seam float64
	for k := 0; k < 3; k++ {
		h := 3*face + k
		l := g.mesh.EdgeLength(h)
		perimeter += l
		nf := g.mesh.NeighborFace(h)
		if nf >= 0 && g.assigned[nf] == c.id {
			shared += l
			if g.mesh.IsNormalSeam(h) {
				seam += l
			}
		}
	}

	newArea := c.area + g.mesh.FaceArea(face)
	newBoundary := c.boundary + perimeter - 2*shared
	if g.opts.MaxChartArea > 0 && newArea > g.opts.MaxChartArea {
		return 0, false
	}
	if g.opts.MaxBoundaryLength > 0 && newBoundary > g.opts.MaxBoundaryLength {
		return 0, false
	}
	if g.opts.MaxBoundaryRatio > 0 && newArea > 0 {
		newRatio := newBoundary * newBoundary / (4 * stdmath.Pi * newArea)
		if newRatio > g.opts.MaxBoundaryRatio && newRatio > c.ratio() {
			return 0, false
		}
	}

	roundTerm := 0.0
	if perimeter > 0 {
		roundTerm = 1 - shared/perimeter
	}
	seamTerm := 0.0
	if shared > 0 {
		seamTerm = seam / shared
	}
	cost := g.opts.NormalDeviationWeight*normalTerm +
		g.opts.RoundnessWeight*roundTerm +
		g.opts.NormalSeamWeight*seamTerm
	if cost > g.opts.MaxCost {
		return 0, false
	}
	return cost, true
}

// merge folds small or enclosed charts into the neighbour they share most boundary with.
func (g *grower) merge() {
	for pass := 0; pass < 4; pass++ {
		order := make([]*chartState, 0, len(g.charts))
		for _, c := range g.charts {
			if !c.merged {
				order = append(order, c)
			}
		}
		sort.SliceStable(order, func(i, j int) bool {
			if order[i].area != order[j].area {
				return order[i].area < order[j].area
			}
			return order[i].id < order[j].id
		})

		mergedAny := false
		for _, a := range order {
			if a.merged {
				continue
			}
			b, shared := g.bestNeighbor(a)
			if b == nil || !g.canMerge(a, b, shared) {
				continue
			}
			g.absorb(b, a, shared)
			mergedAny = true
		}
		if !mergedAny {
			return
		}
	}
}

func (g *grower) bestNeighbor(a *chartState) (*chartState, float64) {
	shared := make(map[int]float64)
	for _, f := range a.faces {
		for k := 0; k < 3; k++ {
			h := 3*f + k
			nf := g.mesh.NeighborFace(h)
			if nf < 0 || !g.member[nf] {
				continue
			}
			if other := g.assigned[nf]; other != a.id {
				shared[other] += g.mesh.EdgeLength(h)
			}
		}
	}
	best, bestLen := -1, 0.0
	for id, l := range shared {
		if l > bestLen || (l == bestLen && id < best) {
			best, bestLen = id, l
		}
	}
	if best < 0 {
		return nil, 0
	}
	return g.charts[best], bestLen
}

func (g *grower) canMerge(a, b *chartState, shared float64) bool {
	if a.boundary <= 0 {
		return false
	}
	enclosed := shared >= 0.6*a.boundary
	small := a.area < 0.1*b.area && shared >= 0.3*a.boundary
	if !enclosed && !small {
		return false
	}

	normal := a.normalSum.Add(b.normalSum).Normalize()
	if normal != (math.Vec3{}) {
		for _, list := range [][]int{a.faces, b.faces} {
			for _, f := range list {
				if g.mesh.IsDegenerate(f) {
					continue
				}
				if g.mesh.FaceNormal(f).Dot(normal) < g.cosLimit {
					return false
				}
			}
		}
	}

	area := a.area + b.area
	boundary := a.boundary + b.boundary - 2*shared
	if g.opts.MaxChartArea > 0 && area > g.opts.MaxChartArea {
		return false
	}
	if g.opts.MaxBoundaryLength > 0 && boundary > g.opts.MaxBoundaryLength {
		return false
	}
	if g.opts.MaxBoundaryRatio > 0 && area > 0 {
		ratio := boundary * boundary / (4 * stdmath.Pi * area)
		if ratio > g.opts.MaxBoundaryRatio && ratio > b.ratio() {
			return false
		}
	}
	return true
}

func (g *grower) absorb(dst, src *chartState, shared float64) {
	for _, f := range src.faces {
		g.assigned[f] = dst.id
	}
	dst.faces = append(dst.faces, src.faces...)
	dst.area += src.area
	dst.boundary += src.boundary - 2*shared
	dst.normalSum = dst.normalSum.Add(src.normalSum)
	dst.normal = dst.normalSum.Normalize()
	dst.gen++
	src.faces = nil
	src.merged = true
}

func (g *grower) result() [][]int {
	var charts [][]int
	for _, c := range g.charts {
		if c.merged || len(c.faces) == 0 {
			continue
		}
		faces := append([]int(nil), c.faces...)
		sort.Ints(faces)
		charts = append(charts, faces)
	}
	sortCharts(charts)
	return charts
}
