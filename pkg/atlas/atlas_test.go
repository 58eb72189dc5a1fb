package atlas

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/uvatlas/internal/meshgen"
)

func addGenerated(t *testing.T, a *Atlas, g *meshgen.Mesh) int {
	t.Helper()
	normals := Rows3(g.Normals)
	id, err := a.AddMesh(Rows3(g.Positions), Triangles(g.Triangles), &normals, nil)
	require.NoError(t, err)
	return id
}

func TestAddMesh_ShapeErrors(t *testing.T) {
	three := NewFloat32Array(make([]float32, 9), 3, 3)
	tri := NewUint32Array([]uint32{0, 1, 2}, 1, 3)

	tests := []struct {
		name      string
		positions Float32Array
		indices   Uint32Array
		normals   *Float32Array
		uvs       *Float32Array
		want      string
	}{
		{"positions 1-d", NewFloat32Array([]float32{0}, 1), tri, nil, nil, "Position array expected to be Nx3."},
		{"positions 1x1", NewFloat32Array([]float32{0}, 1, 1), tri, nil, nil, "Position array expected to be Nx3."},
		{"positions short data", NewFloat32Array(make([]float32, 8), 3, 3), tri, nil, nil, "Position array expected to be Nx3."},
		{"positions 3-d", NewFloat32Array(make([]float32, 9), 1, 3, 3), tri, nil, nil, "Position array expected to be Nx3."},
		{"indices Mx2", three, NewUint32Array([]uint32{0, 1}, 1, 2), nil, nil, "Index array expected to be Nx3."},
		{"normals Nx2", three, tri, &Float32Array{Data: make([]float32, 6), Shape: []int{3, 2}}, nil, "Normal array expected to be Nx3."},
		{"normals rows", three, tri, &Float32Array{Data: make([]float32, 3), Shape: []int{1, 3}}, nil,
			"Normal has invalid number of elements in the first dimension (expected 3, got 1)"},
		{"uvs Nx3", three, tri, nil, &Float32Array{Data: make([]float32, 9), Shape: []int{3, 3}}, "Texture coordinates array expected to be Nx2."},
		{"uvs rows", three, tri, nil, &Float32Array{Data: make([]float32, 4), Shape: []int{2, 2}},
			"Texture coordinates has invalid number of elements in the first dimension (expected 3, got 2)"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := New()
			id, err := a.AddMesh(tc.positions, tc.indices, tc.normals, tc.uvs)
			require.Error(t, err)
			assert.Equal(t, tc.want, err.Error())
			assert.True(t, errors.Is(err, ErrValidation))
			var ve *ValidationError
			assert.True(t, errors.As(err, &ve))
			assert.Equal(t, -1, id)
			assert.Zero(t, a.MeshCount())
		})
	}
}

func TestAddMesh_NonFinitePosition(t *testing.T) {
	data := []float32{0, 0, 0, 1, 0, 0, 0, float32(nanValue()), 0}
	_, err := New().AddMesh(NewFloat32Array(data, 3, 3), NewUint32Array([]uint32{0, 1, 2}, 1, 3), nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "row 2")
}

func nanValue() float64 {
	zero := 0.0
	return zero / zero
}

func TestAddMesh_RangeError(t *testing.T) {
	a := New()
	positions := NewFloat32Array([]float32{0.1, 0.2, 0.3}, 1, 3)
	_, err := a.AddMesh(positions, Triangles([][3]uint32{{0, 1, 2}}), nil, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
	assert.True(t, errors.Is(err, ErrRange))
	var re *RangeError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, uint32(1), re.Index)
	assert.Equal(t, 0, re.Triangle)
	assert.Equal(t, 1, re.VertexCount)
	assert.Zero(t, a.MeshCount())
}

func TestAddMesh_ReturnsIncreasingIndices(t *testing.T) {
	a := New()
	assert.Equal(t, 0, addGenerated(t, a, meshgen.Plane(1, 1)))
	assert.Equal(t, 1, addGenerated(t, a, meshgen.Cube(1)))
	assert.Equal(t, 2, a.MeshCount())
}

func TestGetMesh_OutOfBounds(t *testing.T) {
	a := New()
	_, err := a.GetMesh(0)
	require.Error(t, err)
	assert.Equal(t, "mesh index 0 out of bounds for atlas with 0 generated meshes.", err.Error())
	assert.True(t, errors.Is(err, ErrIndex))

	addGenerated(t, a, meshgen.Cube(2))
	_, err = a.GetMesh(0)
	assert.Error(t, err, "no results before Generate")

	require.NoError(t, a.Generate(DefaultChartOptions(), DefaultPackOptions()))
	_, err = a.GetMesh(0)
	assert.NoError(t, err)

	_, err = a.GetMesh(1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of bounds")

	_, err = a.GetMesh(-1)
	assert.True(t, errors.Is(err, ErrIndex))
}

func TestGenerate_Empty(t *testing.T) {
	a := New()
	require.NoError(t, a.Generate(DefaultChartOptions(), DefaultPackOptions()))
	assert.Zero(t, a.ChartCount())
	assert.Zero(t, a.AtlasCount())
	assert.Zero(t, a.MeshCount())
	assert.Empty(t, a.Utilization())
}

func TestGenerate_InvalidOptionsKeepResults(t *testing.T) {
	a := New()
	addGenerated(t, a, meshgen.Cube(2))
	require.NoError(t, a.Generate(DefaultChartOptions(), DefaultPackOptions()))
	charts := a.ChartCount()

	pk := DefaultPackOptions()
	pk.RotationStep = 0
	err := a.Generate(DefaultChartOptions(), pk)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, charts, a.ChartCount())
	_, err = a.GetMesh(0)
	assert.NoError(t, err)
}

func TestGenerate_CubeCharts(t *testing.T) {
	a := New()
	addGenerated(t, a, meshgen.Cube(2))
	require.NoError(t, a.Generate(DefaultChartOptions(), DefaultPackOptions()))

	assert.Equal(t, 6, a.ChartCount())
	assert.Equal(t, 1, a.AtlasCount())
	assert.Greater(t, a.Width(), 0)
	assert.Greater(t, a.Height(), 0)
	assert.Greater(t, a.TexelsPerUnit(), float32(0))
	require.Len(t, a.Utilization(), 1)
	assert.Greater(t, a.Utilization()[0], float32(0))
	assert.LessOrEqual(t, a.Utilization()[0], float32(1))

	mesh, err := a.GetMesh(0)
	require.NoError(t, err)
	assert.Len(t, mesh.Charts, 6)
	// each side keeps its own 9 vertices
	assert.Equal(t, 54, mesh.VertexCount())
}

func TestGenerate_OutputProperties(t *testing.T) {
	for _, g := range []*meshgen.Mesh{
		meshgen.Plane(6, 4),
		meshgen.Cube(3),
		meshgen.Sphere(12, 24),
		meshgen.Cylinder(16, 4, 2),
		meshgen.Torus(24, 12, 1, 0.3),
	} {
		t.Run(g.Name, func(t *testing.T) {
			a := New(WithWorkers(4))
			addGenerated(t, a, g)
			require.NoError(t, a.Generate(DefaultChartOptions(), DefaultPackOptions()))
			mesh, err := a.GetMesh(0)
			require.NoError(t, err)

			assertMeshResult(t, g, mesh, a.AtlasCount())
			assertNoOverlap(t, a, []*MeshResult{mesh})
		})
	}
}

func TestGenerate_ResplitRounds(t *testing.T) {
	g := meshgen.Sphere(16, 32)
	charts := make(map[int]int)
	for _, iterations := range []int{0, 1, 3, 8} {
		a := New(WithWorkers(4))
		addGenerated(t, a, g)
		opts := DefaultChartOptions()
		opts.MaxDistortion = 1.01
		opts.MaxIterations = iterations
		require.NoError(t, a.Generate(opts, DefaultPackOptions()))
		charts[iterations] = a.ChartCount()

		mesh, err := a.GetMesh(0)
		require.NoError(t, err)
		assertMeshResult(t, g, mesh, a.AtlasCount())
		assertNoOverlap(t, a, []*MeshResult{mesh})
	}

	// every extra round splits the distorted charts again until none can be split
	assert.Greater(t, charts[1], charts[0])
	assert.Greater(t, charts[3], charts[1])
	assert.Equal(t, charts[3], charts[8])
}

func TestGenerate_CompactAtlas(t *testing.T) {
	a := New(WithWorkers(4))
	addGenerated(t, a, meshgen.Torus(48, 24, 1, 0.3))
	require.NoError(t, a.Generate(DefaultChartOptions(), DefaultPackOptions()))
	require.Equal(t, 1, a.AtlasCount())

	w, h := float64(a.Width()), float64(a.Height())
	assert.LessOrEqual(t, max(w, h)/min(w, h), 1.5, "atlas %vx%v", w, h)
	assert.Greater(t, a.Utilization()[0], float32(0.4))
}

func TestGenerate_Deterministic(t *testing.T) {
	run := func() (*Atlas, *MeshResult) {
		a := New(WithWorkers(3))
		addGenerated(t, a, meshgen.Torus(20, 10, 1, 0.4))
		require.NoError(t, a.Generate(DefaultChartOptions(), DefaultPackOptions()))
		mesh, err := a.GetMesh(0)
		require.NoError(t, err)
		return a, mesh
	}
	a1, m1 := run()
	a2, m2 := run()

	assert.Equal(t, a1.ChartCount(), a2.ChartCount())
	assert.Equal(t, a1.Width(), a2.Width())
	assert.Equal(t, a1.Height(), a2.Height())
	assert.Equal(t, m1, m2)

	require.NoError(t, a1.Generate(DefaultChartOptions(), DefaultPackOptions()))
	again, err := a1.GetMesh(0)
	require.NoError(t, err)
	assert.Equal(t, m1, again)
}

func TestGenerate_MultipleMeshes(t *testing.T) {
	a := New()
	meshes := []*meshgen.Mesh{meshgen.Cube(2), meshgen.Sphere(8, 16), meshgen.Plane(3, 3)}
	for _, g := range meshes {
		addGenerated(t, a, g)
	}
	require.NoError(t, a.Generate(DefaultChartOptions(), DefaultPackOptions()))

	var results []*MeshResult
	total := 0
	for i, g := range meshes {
		mesh, err := a.GetMesh(i)
		require.NoError(t, err)
		assertMeshResult(t, g, mesh, a.AtlasCount())
		results = append(results, mesh)
		total += len(mesh.Charts)
	}
	assert.Equal(t, a.ChartCount(), total)
	assertNoOverlap(t, a, results)

	// meshes added later wait for the next Generate
	addGenerated(t, a, meshgen.Plane(1, 1))
	assert.Equal(t, 4, a.MeshCount())
	_, err := a.GetMesh(3)
	assert.True(t, errors.Is(err, ErrIndex))
	assert.Equal(t, "mesh index 3 out of bounds for atlas with 3 generated meshes.", err.Error())
	require.NoError(t, a.Generate(DefaultChartOptions(), DefaultPackOptions()))
	_, err = a.GetMesh(3)
	assert.NoError(t, err)
}

func TestGenerate_FixedResolutionUsesSeveralAtlases(t *testing.T) {
	a := New()
	addGenerated(t, a, meshgen.Cube(2))
	pk := DefaultPackOptions()
	pk.Resolution = 64
	pk.TexelsPerUnit = 40
	require.NoError(t, a.Generate(DefaultChartOptions(), pk))

	assert.Greater(t, a.AtlasCount(), 1)
	assert.Equal(t, 64, a.Width())
	assert.Equal(t, 64, a.Height())
	assert.Len(t, a.Utilization(), a.AtlasCount())

	mesh, err := a.GetMesh(0)
	require.NoError(t, err)
	assertMeshResult(t, meshgen.Cube(2), mesh, a.AtlasCount())
	assertNoOverlap(t, a, []*MeshResult{mesh})
}

func TestGenerate_TexelsPerUnit(t *testing.T) {
	a := New()
	addGenerated(t, a, meshgen.Plane(2, 1))
	pk := DefaultPackOptions()
	pk.TexelsPerUnit = 16
	pk.RotateChartsToAxis = false
	pk.RotateCharts = false
	require.NoError(t, a.Generate(DefaultChartOptions(), pk))

	assert.Equal(t, float32(16), a.TexelsPerUnit())
	assert.Equal(t, 34, a.Width())
	assert.Equal(t, 18, a.Height())
}

func TestGenerate_InputUVs(t *testing.T) {
	g := meshgen.Plane(2, 2)
	uvs := make([][2]float32, len(g.Positions))
	for i, p := range g.Positions {
		uvs[i] = [2]float32{p[0] / 4, p[1] / 4}
	}
	uvArray := Rows2(uvs)

	a := New()
	_, err := a.AddMesh(Rows3(g.Positions), Triangles(g.Triangles), nil, &uvArray)
	require.NoError(t, err)

	opts := DefaultChartOptions()
	opts.UseInputMeshUVs = true
	require.NoError(t, a.Generate(opts, DefaultPackOptions()))
	assert.Equal(t, 1, a.ChartCount())

	mesh, err := a.GetMesh(0)
	require.NoError(t, err)
	assertMeshResult(t, g, mesh, a.AtlasCount())
}

func TestParametrize(t *testing.T) {
	g := meshgen.Sphere(8, 12)
	mesh, err := Parametrize(Rows3(g.Positions), Triangles(g.Triangles), nil, nil)
	require.NoError(t, err)
	assertMeshResult(t, g, mesh, 1)

	_, err = Parametrize(NewFloat32Array([]float32{0}, 1), Triangles(g.Triangles), nil, nil)
	assert.True(t, errors.Is(err, ErrValidation))

	bad := NewFloat32Array(make([]float32, 4), 2, 2)
	_, err = Parametrize(Rows3(g.Positions), Triangles(g.Triangles), nil, &bad)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestParametrize_InputUVs(t *testing.T) {
	g := meshgen.Plane(3, 2)
	uvs := make([][2]float32, len(g.Positions))
	for i, p := range g.Positions {
		uvs[i] = [2]float32{p[0] / 3, p[1] / 2}
	}
	uvArray := Rows2(uvs)

	mesh, err := Parametrize(Rows3(g.Positions), Triangles(g.Triangles), nil, &uvArray)
	require.NoError(t, err)
	assertMeshResult(t, g, mesh, 1)
	assert.Len(t, mesh.Charts, 1)
	// one island keeps every input vertex once
	assert.Equal(t, len(g.Positions), mesh.VertexCount())
}

func TestAtlas_ConcurrentReaders(t *testing.T) {
	a := New()
	addGenerated(t, a, meshgen.Sphere(8, 16))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = a.ChartCount()
				_ = a.Utilization()
				_, _ = a.GetMesh(0)
			}
		}()
	}
	require.NoError(t, a.Generate(DefaultChartOptions(), DefaultPackOptions()))
	wg.Wait()
}

func TestOptions_Validate(t *testing.T) {
	assert.NoError(t, DefaultChartOptions().Validate())
	assert.NoError(t, DefaultPackOptions().Validate())

	chart := func(mut func(*ChartOptions)) error {
		o := DefaultChartOptions()
		mut(&o)
		return o.Validate()
	}
	pk := func(mut func(*PackOptions)) error {
		o := DefaultPackOptions()
		mut(&o)
		return o.Validate()
	}

	for name, err := range map[string]error{
		"deviation zero":      chart(func(o *ChartOptions) { o.MaxNormalDeviation = 0 }),
		"deviation above 180": chart(func(o *ChartOptions) { o.MaxNormalDeviation = 181 }),
		"negative weight":     chart(func(o *ChartOptions) { o.RoundnessWeight = -1 }),
		"zero cost":           chart(func(o *ChartOptions) { o.MaxCost = 0 }),
		"negative iterations": chart(func(o *ChartOptions) { o.MaxIterations = -1 }),
		"distortion below 1":  chart(func(o *ChartOptions) { o.MaxDistortion = 0.5 }),
		"negative padding":    pk(func(o *PackOptions) { o.Padding = -1 }),
		"resolution too small": pk(func(o *PackOptions) {
			o.Padding = 4
			o.Resolution = 8
		}),
		"zero atlas size":    pk(func(o *PackOptions) { o.MaxAtlasSize = 0 }),
		"rotation step 0":    pk(func(o *PackOptions) { o.RotationStep = 0 }),
		"rotation step 361":  pk(func(o *PackOptions) { o.RotationStep = 361 }),
		"rotation step 0.01": pk(func(o *PackOptions) { o.RotationStep = 0.01 }),
		"rotation step NaN":  pk(func(o *PackOptions) { o.RotationStep = nanValue() }),
	} {
		assert.True(t, errors.Is(err, ErrValidation), name)
	}

	assert.NoError(t, pk(func(o *PackOptions) { o.RotationStep = 360 }))
	assert.NoError(t, pk(func(o *PackOptions) { o.RotationStep = 1 }))
}
