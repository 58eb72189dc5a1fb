// Package atlas generates UV atlases: it cuts triangle meshes into charts, flattens
// every chart and packs the charts into one or more texture atlases.
//
// Basic usage:
//
//	a := atlas.New()
//	if _, err := a.AddMesh(atlas.Rows3(positions), atlas.Triangles(faces), nil, nil); err != nil {
//		return err
//	}
//	if err := a.Generate(atlas.DefaultChartOptions(), atlas.DefaultPackOptions()); err != nil {
//		return err
//	}
//	mesh, err := a.GetMesh(0)
package atlas

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/uvatlas/internal/assemble"
	"github.com/Faultbox/uvatlas/internal/geometry"
	"github.com/Faultbox/uvatlas/internal/pack"
	"github.com/Faultbox/uvatlas/internal/parallel"
	"github.com/Faultbox/uvatlas/pkg/math"
)

// ChartInfo describes one chart of a mesh result.
type ChartInfo struct {
	Atlas       int
	FirstVertex int
	VertexCount int
	Faces       []int
}

// MeshResult is the atlas output for one input mesh. Results are shared; do not modify them.
type MeshResult struct {
	// VertexMapping maps every output vertex to the input vertex it was created from.
	VertexMapping []uint32
	// Indices holds one output triangle per input triangle, in input order.
	Indices []uint32
	// UVs holds two coordinates per output vertex, normalised to [0, 1] within its atlas.
	UVs []float32
	// AtlasIndex is the atlas of every output vertex.
	AtlasIndex []uint32
	Charts     []ChartInfo
}

// VertexCount returns the number of output vertices.
func (r *MeshResult) VertexCount() int { return len(r.VertexMapping) }

// Atlas collects meshes and holds the result of the last Generate.
//
// Thread safety: Atlas is safe for concurrent use. Meshes added after Generate
// only appear in results after the next Generate.
type Atlas struct {
	log     *zap.Logger
	workers int
	store   *geometry.Store

	mu            sync.RWMutex
	results       []*MeshResult
	chartCount    int
	atlasCount    int
	width         int
	height        int
	texelsPerUnit float32
	utilization   []float32
}

// Option configures an Atlas.
type Option func(*Atlas)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(a *Atlas) {
		if log != nil {
			a.log = log
		}
	}
}

// WithWorkers sets the number of goroutines used by Generate. 0 uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(a *Atlas) { a.workers = n }
}

// New creates an empty atlas.
func New(opts ...Option) *Atlas {
	a := &Atlas{
		log:   zap.NewNop(),
		store: geometry.NewStore(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AddMesh validates and stores a mesh and returns its index.
//
// positions and normals are Nx3, uvs Nx2 and indices Mx3; normals and uvs may be nil.
// Nothing is stored when an error is returned.
func (a *Atlas) AddMesh(positions Float32Array, indices Uint32Array, normals, uvs *Float32Array) (int, error) {
	if err := checkShape("Position", positions.Shape, len(positions.Data), 3, -1); err != nil {
		return -1, err
	}
	if err := checkShape("Index", indices.Shape, len(indices.Data), 3, -1); err != nil {
		return -1, err
	}
	n := positions.Rows()
	if normals != nil {
		if err := checkShape("Normal", normals.Shape, len(normals.Data), 3, n); err != nil {
			return -1, err
		}
	}
	if uvs != nil {
		if err := checkShape("Texture coordinates", uvs.Shape, len(uvs.Data), 2, n); err != nil {
			return -1, err
		}
	}

	pos, err := toVec3("Position", positions.Data)
	if err != nil {
		return -1, err
	}
	var nrm []math.Vec3
	if normals != nil {
		if nrm, err = toVec3("Normal", normals.Data); err != nil {
			return -1, err
		}
	}
	var tex []math.Vec2
	if uvs != nil {
		if tex, err = toVec2("Texture coordinates", uvs.Data); err != nil {
			return -1, err
		}
	}
	idx := append([]uint32(nil), indices.Data...)

	mesh, err := geometry.NewMesh(pos, idx, nrm, tex)
	if err != nil {
		var oor *geometry.OutOfRangeError
		if errors.As(err, &oor) {
			return -1, &RangeError{Triangle: oor.Triangle, Index: oor.Index, VertexCount: oor.VertexCount}
		}
		return -1, &ValidationError{Msg: err.Error()}
	}

	id := a.store.Add(mesh)
	a.log.Debug("added mesh",
		zap.Int("mesh", id),
		zap.Int("vertices", mesh.VertexCount()),
		zap.Int("triangles", mesh.FaceCount()),
		zap.Int("components", mesh.ComponentCount()))
	return id, nil
}

func toVec3(name string, data []float32) ([]math.Vec3, error) {
	out := make([]math.Vec3, len(data)/3)
	for i := range out {
		v := math.Vec3{X: float64(data[3*i]), Y: float64(data[3*i+1]), Z: float64(data[3*i+2])}
		if !v.IsFinite() {
			return nil, validationf("%s array has a non-finite value in row %d", name, i)
		}
		out[i] = v
	}
	return out, nil
}

func toVec2(name string, data []float32) ([]math.Vec2, error) {
	out := make([]math.Vec2, len(data)/2)
	for i := range out {
		v := math.Vec2{X: float64(data[2*i]), Y: float64(data[2*i+1])}
		if !v.IsFinite() {
			return nil, validationf("%s array has a non-finite value in row %d", name, i)
		}
		out[i] = v
	}
	return out, nil
}

// Generate computes charts for every mesh added so far and packs them.
// It fails only when the options are invalid; the previous results are kept then.
func (a *Atlas) Generate(chartOpts ChartOptions, packOpts PackOptions) error {
	if err := chartOpts.Validate(); err != nil {
		return err
	}
	if err := packOpts.Validate(); err != nil {
		return err
	}

	start := time.Now()
	meshes := a.store.Snapshot()
	pool := parallel.NewWorkerPool(a.workers)
	defer pool.Close()

	charts := newDriver(meshes, chartOpts, pool, a.log).run()
	segmented := time.Since(start)

	shapes := make([]pack.Shape, 0)
	for _, list := range charts {
		for _, c := range list {
			shapes = append(shapes, c)
		}
	}
	packed := pack.New(packOpts.pack(), pool, a.log).Pack(shapes)

	results := make([]*MeshResult, len(meshes))
	next := 0
	for mi, list := range charts {
		placed := make([]assemble.PlacedChart, len(list))
		for ci, c := range list {
			placed[ci] = assemble.PlacedChart{Chart: c, Placement: packed.Placements[next]}
			next++
		}
		out, err := assemble.Assemble(meshes[mi].FaceCount(), placed, packed)
		if err != nil {
			// charts always partition their mesh; reaching this is a bug
			panic(err)
		}
		results[mi] = newMeshResult(out)
	}

	utilization := make([]float32, len(packed.Utilization))
	for i, u := range packed.Utilization {
		utilization[i] = float32(u)
	}

	a.mu.Lock()
	a.results = results
	a.chartCount = len(shapes)
	a.atlasCount = packed.AtlasCount()
	a.width = packed.Width
	a.height = packed.Height
	a.texelsPerUnit = float32(packed.TexelsPerUnit)
	a.utilization = utilization
	a.mu.Unlock()

	a.log.Info("generated atlas",
		zap.Int("meshes", len(meshes)),
		zap.Int("charts", len(shapes)),
		zap.Int("atlases", packed.AtlasCount()),
		zap.Int("width", packed.Width),
		zap.Int("height", packed.Height),
		zap.Float64("texels_per_unit", packed.TexelsPerUnit),
		zap.Float32s("utilization", utilization),
		zap.Duration("segment_param", segmented),
		zap.Duration("total", time.Since(start)))
	return nil
}

func newMeshResult(m *assemble.Mesh) *MeshResult {
	r := &MeshResult{
		VertexMapping: m.VertexMapping,
		Indices:       m.Indices,
		UVs:           m.UVs,
		AtlasIndex:    m.AtlasIndex,
		Charts:        make([]ChartInfo, len(m.Charts)),
	}
	for i, c := range m.Charts {
		r.Charts[i] = ChartInfo{
			Atlas:       c.Atlas,
			FirstVertex: c.FirstVertex,
			VertexCount: c.VertexCount,
			Faces:       c.Faces,
		}
	}
	return r
}

// GetMesh returns the result for mesh i of the last Generate.
func (a *Atlas) GetMesh(i int) (*MeshResult, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if i < 0 || i >= len(a.results) {
		return nil, &IndexError{Index: i, Count: len(a.results)}
	}
	return a.results[i], nil
}

// MeshCount returns the number of meshes added.
func (a *Atlas) MeshCount() int { return a.store.Len() }

// ChartCount returns the number of charts of the last Generate.
func (a *Atlas) ChartCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.chartCount
}

// AtlasCount returns the number of atlases of the last Generate.
func (a *Atlas) AtlasCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.atlasCount
}

// Width returns the atlas width in texels.
func (a *Atlas) Width() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.width
}

// Height returns the atlas height in texels.
func (a *Atlas) Height() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.height
}

// TexelsPerUnit returns the texel density used by the last Generate.
func (a *Atlas) TexelsPerUnit() float32 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.texelsPerUnit
}

// Utilization returns the fraction of texels covered by charts, per atlas.
func (a *Atlas) Utilization() []float32 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]float32(nil), a.utilization...)
}

// Parametrize runs the whole pipeline on a single mesh with default options.
// When uvs is given, charts follow the mesh's own texture coordinates.
func Parametrize(positions Float32Array, indices Uint32Array, normals, uvs *Float32Array) (*MeshResult, error) {
	a := New()
	if _, err := a.AddMesh(positions, indices, normals, uvs); err != nil {
		return nil, err
	}
	opts := DefaultChartOptions()
	opts.UseInputMeshUVs = uvs != nil
	if err := a.Generate(opts, DefaultPackOptions()); err != nil {
		return nil, err
	}
	return a.GetMesh(0)
}
