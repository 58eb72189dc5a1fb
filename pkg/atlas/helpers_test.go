package atlas

import (
	stdmath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/uvatlas/internal/meshgen"
)

// assertMeshResult checks the structural guarantees of one mesh result.
func assertMeshResult(t *testing.T, g *meshgen.Mesh, mesh *MeshResult, atlasCount int) {
	t.Helper()
	require.Len(t, mesh.Indices, 3*g.TriangleCount())
	require.Len(t, mesh.UVs, 2*mesh.VertexCount())
	require.Len(t, mesh.AtlasIndex, mesh.VertexCount())

	for i, tri := range g.Triangles {
		for k := 0; k < 3; k++ {
			idx := mesh.Indices[3*i+k]
			require.Less(t, int(idx), mesh.VertexCount(), "triangle %d corner %d", i, k)
			assert.Equal(t, tri[k], mesh.VertexMapping[idx], "triangle %d corner %d", i, k)
		}
	}
	for _, v := range mesh.VertexMapping {
		assert.Less(t, int(v), g.VertexCount())
	}
	for i, uv := range mesh.UVs {
		if uv < 0 || uv > 1 {
			t.Errorf("uv component %d = %v outside [0, 1]", i, uv)
		}
	}
	for _, ai := range mesh.AtlasIndex {
		assert.Less(t, int(ai), atlasCount)
	}

	covered := 0
	for _, c := range mesh.Charts {
		covered += len(c.Faces)
		for v := c.FirstVertex; v < c.FirstVertex+c.VertexCount; v++ {
			assert.Equal(t, uint32(c.Atlas), mesh.AtlasIndex[v])
		}
	}
	assert.Equal(t, g.TriangleCount(), covered)
}

// assertNoOverlap samples texel centres and fails if two charts cover the same one.
func assertNoOverlap(t *testing.T, a *Atlas, meshes []*MeshResult) {
	t.Helper()
	w, h := a.Width(), a.Height()
	owners := make([][]int32, a.AtlasCount())
	for i := range owners {
		owners[i] = make([]int32, w*h)
		for j := range owners[i] {
			owners[i][j] = -1
		}
	}

	id := int32(0)
	for _, mesh := range meshes {
		for _, c := range mesh.Charts {
			grid := owners[c.Atlas]
			for _, f := range c.Faces {
				var p [3][2]float64
				for k := 0; k < 3; k++ {
					v := mesh.Indices[3*f+k]
					p[k] = [2]float64{float64(mesh.UVs[2*v]) * float64(w), float64(mesh.UVs[2*v+1]) * float64(h)}
				}
				for _, cell := range coveredCells(p, w, h) {
					if owner := grid[cell]; owner >= 0 && owner != id {
						t.Fatalf("texel %d of atlas %d covered by charts %d and %d", cell, c.Atlas, owner, id)
					}
					grid[cell] = id
				}
			}
			id++
		}
	}
}

// coveredCells returns the texels whose centre lies clearly inside the triangle.
func coveredCells(p [3][2]float64, w, h int) []int {
	area := (p[1][0]-p[0][0])*(p[2][1]-p[0][1]) - (p[2][0]-p[0][0])*(p[1][1]-p[0][1])
	if stdmath.Abs(area) < 1e-9 {
		return nil
	}
	if area < 0 {
		p[1], p[2] = p[2], p[1]
	}
	const margin = 1e-3
	inside := func(x, y float64) bool {
		for k := 0; k < 3; k++ {
			a, b := p[k], p[(k+1)%3]
			dx, dy := b[0]-a[0], b[1]-a[1]
			l := stdmath.Hypot(dx, dy)
			if dx*(y-a[1])-dy*(x-a[0]) <= margin*l {
				return false
			}
		}
		return true
	}

	x0 := max(0, int(stdmath.Floor(min(p[0][0], p[1][0], p[2][0]))))
	x1 := min(w-1, int(stdmath.Ceil(max(p[0][0], p[1][0], p[2][0]))))
	y0 := max(0, int(stdmath.Floor(min(p[0][1], p[1][1], p[2][1]))))
	y1 := min(h-1, int(stdmath.Ceil(max(p[0][1], p[1][1], p[2][1]))))
	var cells []int
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if inside(float64(x)+0.5, float64(y)+0.5) {
				cells = append(cells, y*w+x)
			}
		}
	}
	return cells
}
