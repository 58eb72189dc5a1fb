package param

import (
	stdmath "math"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/uvatlas/internal/geometry"
	"github.com/Faultbox/uvatlas/pkg/math"
)

// Options controls parametrization.
type Options struct {
	// MaxDistortion is the penalty base for flipped triangles.
	MaxDistortion float64
	// MaxSolverIterations bounds conjugate gradients; 0 picks a bound from the system size.
	MaxSolverIterations int
	// Tolerance is the relative residual at which the solve stops.
	Tolerance float64
}

// DefaultOptions returns the default parametrization options.
func DefaultOptions() Options {
	return Options{
		MaxDistortion: 2.0,
		Tolerance:     1e-9,
	}
}

// Parametrizer flattens charts of one mesh.
type Parametrizer struct {
	mesh *geometry.Mesh
	opts Options
	log  *zap.Logger
}

// New creates a parametrizer. A nil logger disables logging.
func New(mesh *geometry.Mesh, opts Options, log *zap.Logger) *Parametrizer {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultOptions().Tolerance
	}
	return &Parametrizer{mesh: mesh, opts: opts, log: log}
}

// Parametrize computes a least squares conformal map for the faces, falling back
// to a planar projection when the chart cannot be solved. faces must be sorted.
func (p *Parametrizer) Parametrize(faces []int) *Chart {
	c := newChart(p.mesh, faces)
	if err := p.lscm(c); err != nil {
		p.log.Debug("lscm fallback to planar projection",
			zap.Int("faces", len(faces)),
			zap.Int("first_face", firstFace(faces)),
			zap.Error(err))
		p.planar(c)
		c.Fallback = true
	}
	c.normalize()
	p.measure(c)
	return c
}

// FromInputUVs builds a chart from the mesh's own texture coordinates.
func (p *Parametrizer) FromInputUVs(faces []int) *Chart {
	c := newChart(p.mesh, faces)
	c.InputUVs = true
	for i, v := range c.Vertices {
		c.UVs[i] = p.mesh.UVs[v]
	}
	c.normalize()
	p.measure(c)
	return c
}

// unknowns assigns one solver unknown per welded position in the chart.
func (p *Parametrizer) unknowns(c *Chart) (ids []int, positions []math.Vec3) {
	ids = make([]int, len(c.Vertices))
	seen := make(map[uint32]int, len(c.Vertices))
	for i, v := range c.Vertices {
		key := p.mesh.Canonical(v)
		id, ok := seen[key]
		if !ok {
			id = len(positions)
			seen[key] = id
			positions = append(positions, p.mesh.Positions[v])
		}
		ids[i] = id
	}
	return ids, positions
}

func (p *Parametrizer) facing(c *Chart) math.Vec3 {
	var n math.Vec3
	for _, f := range c.Faces {
		n = n.Add(p.mesh.FaceNormal(f).Scale(p.mesh.FaceArea(f)))
	}
	return n
}

func (p *Parametrizer) lscm(c *Chart) error {
	ids, positions := p.unknowns(c)
	if len(positions) < 3 {
		return errors.Errorf("chart has %d distinct vertices", len(positions))
	}
	if c.Area3D <= 0 {
		return errors.New("chart has no area")
	}

	fr, err := fitPlane(positions, p.facing(c))
	if err != nil {
		return errors.Wrap(err, "fit chart plane")
	}
	if fr.collinear() {
		return errors.New("chart vertices are collinear")
	}

	// only vertices of usable faces take part in the system
	used := make([]bool, len(positions))
	for i, f := range c.Faces {
		if p.mesh.IsDegenerate(f) {
			continue
		}
		for k := 0; k < 3; k++ {
			used[ids[c.Corners[3*i+k]]] = true
		}
	}

	initial := make([]math.Vec2, len(positions))
	pinLo, pinHi := -1, -1
	for i, pos := range positions {
		initial[i] = fr.project(pos)
		if !used[i] {
			continue
		}
		if pinLo < 0 || initial[i].X < initial[pinLo].X {
			pinLo = i
		}
		if pinHi < 0 || initial[i].X > initial[pinHi].X {
			pinHi = i
		}
	}
	if pinLo < 0 || pinLo == pinHi || initial[pinLo] == initial[pinHi] {
		return errors.New("no distinct pin vertices")
	}

	// column of each free unknown's u; its v follows at +free
	column := make([]int, len(positions))
	free := 0
	for i := range positions {
		if !used[i] || i == pinLo || i == pinHi {
			column[i] = -1
			continue
		}
		column[i] = free
		free++
	}

	a := newSparseMatrix(2*free, 2*len(c.Faces), 12*len(c.Faces))
	var b []float64
	for i, f := range c.Faces {
		if p.mesh.IsDegenerate(f) {
			continue
		}
		w := localTriangle(p.mesh.Position(f, 0), p.mesh.Position(f, 1), p.mesh.Position(f, 2))
		scale := 1 / stdmath.Sqrt(2*p.mesh.FaceArea(f))

		var reRHS, imRHS float64
		for k := 0; k < 3; k++ {
			u := ids[c.Corners[3*i+k]]
			ak, bk := w[k].X*scale, w[k].Y*scale
			if col := column[u]; col >= 0 {
				continue
			}
			fixed := initial[u]
			reRHS -= ak*fixed.X - bk*fixed.Y
			imRHS -= bk*fixed.X + ak*fixed.Y
		}

		// real part: a u - b v
		for k := 0; k < 3; k++ {
			if col := column[ids[c.Corners[3*i+k]]]; col >= 0 {
				a.set(col, w[k].X*scale)
				a.set(col+free, -w[k].Y*scale)
			}
		}
		a.endRow()
		b = append(b, reRHS)

		// imaginary part: b u + a v
		for k := 0; k < 3; k++ {
			if col := column[ids[c.Corners[3*i+k]]]; col >= 0 {
				a.set(col, w[k].Y*scale)
				a.set(col+free, w[k].X*scale)
			}
		}
		a.endRow()
		b = append(b, imRHS)
	}

	x := make([]float64, 2*free)
	for i, col := range column {
		if col >= 0 {
			x[col] = initial[i].X
			x[col+free] = initial[i].Y
		}
	}

	maxIter := p.opts.MaxSolverIterations
	if maxIter <= 0 {
		maxIter = 4*len(x) + 200
	}
	iterations, err := solveLeastSquares(a, b, x, maxIter, p.opts.Tolerance)
	if err != nil {
		return errors.Wrap(err, "solve lscm system")
	}

	solved := make([]math.Vec2, len(positions))
	for i, col := range column {
		if col < 0 {
			solved[i] = initial[i]
			continue
		}
		solved[i] = math.Vec2{X: x[col], Y: x[col+free]}
		if !solved[i].IsFinite() {
			return errors.Errorf("non-finite uv for unknown %d", i)
		}
	}
	for i, id := range ids {
		c.UVs[i] = solved[id]
	}
	p.log.Debug("lscm solved",
		zap.Int("faces", len(c.Faces)),
		zap.Int("unknowns", 2*free),
		zap.Int("iterations", iterations))
	return nil
}

// planar projects the chart onto its best-fit plane.
func (p *Parametrizer) planar(c *Chart) {
	facing := p.facing(c)
	positions := make([]math.Vec3, len(c.Vertices))
	for i, v := range c.Vertices {
		positions[i] = p.mesh.Positions[v]
	}
	fr, err := fitPlane(positions, facing)
	if err != nil {
		fr = axisFrame(facing)
	}
	for i, pos := range positions {
		c.UVs[i] = fr.project(pos)
		if !c.UVs[i].IsFinite() {
			c.UVs[i] = math.Vec2{}
		}
	}
}

// measure fills Area2D, Distortion and Flipped.
func (p *Parametrizer) measure(c *Chart) {
	c.Area2D, c.Distortion, c.Flipped = 0, 0, 0
	weight := 0.0
	for i, f := range c.Faces {
		a, b, d := c.Triangle(i)
		area2 := math.TriangleArea2(a, b, d)
		c.Area2D += stdmath.Abs(area2)
		if p.mesh.IsDegenerate(f) {
			continue
		}
		area3 := p.mesh.FaceArea(f)
		weight += area3
		if area2 <= 0 {
			c.Flipped++
			c.Distortion += (p.opts.MaxDistortion + 1) * area3
			continue
		}
		r := area2 / area3
		c.Distortion += stdmath.Max(r, 1/r) * area3
	}
	if weight > 0 {
		c.Distortion /= weight
	} else {
		c.Distortion = 1
	}
}

// localTriangle returns the LSCM weights W0 = z2-z1, W1 = z0-z2, W2 = z1-z0 of a
// triangle expressed in its own orthonormal frame.
func localTriangle(p0, p1, p2 math.Vec3) [3]math.Vec2 {
	e1 := p1.Sub(p0)
	l := e1.Length()
	x := e1.Scale(1 / l)
	n := e1.Cross(p2.Sub(p0)).Normalize()
	y := n.Cross(x)

	z0 := math.Vec2{}
	z1 := math.Vec2{X: l}
	z2 := math.Vec2{X: p2.Sub(p0).Dot(x), Y: p2.Sub(p0).Dot(y)}
	return [3]math.Vec2{z2.Sub(z1), z0.Sub(z2), z1.Sub(z0)}
}

func firstFace(faces []int) int {
	if len(faces) == 0 {
		return -1
	}
	return faces[0]
}
