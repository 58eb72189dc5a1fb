// Package assemble turns packed charts back into per-mesh vertex and index buffers.
package assemble

import (
	"fmt"

	"github.com/Faultbox/uvatlas/internal/pack"
	"github.com/Faultbox/uvatlas/internal/param"
)

// PlacedChart is a parametrized chart with its atlas placement.
type PlacedChart struct {
	Chart     *param.Chart
	Placement pack.Placement
}

// ChartRange records which output vertices and input faces belong to one chart.
type ChartRange struct {
	Atlas       int
	FirstVertex int
	VertexCount int
	Faces       []int
}

// Mesh is the output of one input mesh.
type Mesh struct {
	VertexMapping []uint32
	Indices       []uint32
	UVs           []float32
	AtlasIndex    []uint32
	Charts        []ChartRange
}

// VertexCount returns the number of output vertices.
func (m *Mesh) VertexCount() int { return len(m.VertexMapping) }

// Assemble builds the output of a mesh with faceCount triangles from its charts,
// which must be ordered and together cover every face exactly once.
func Assemble(faceCount int, charts []PlacedChart, res *pack.Result) (*Mesh, error) {
	faceChart := make([]int32, faceCount)
	faceSlot := make([]int32, faceCount)
	for i := range faceChart {
		faceChart[i] = -1
	}

	out := &Mesh{Charts: make([]ChartRange, len(charts))}
	for ci, pc := range charts {
		c := pc.Chart
		first := len(out.VertexMapping)
		for slot, f := range c.Faces {
			if f < 0 || f >= faceCount {
				return nil, fmt.Errorf("chart %d references face %d of %d", ci, f, faceCount)
			}
			if faceChart[f] >= 0 {
				return nil, fmt.Errorf("face %d assigned to charts %d and %d", f, faceChart[f], ci)
			}
			faceChart[f] = int32(ci)
			faceSlot[f] = int32(slot)
		}
		for local, v := range c.Vertices {
			uv := res.Normalize(pc.Placement.Transform(c.UVs[local]))
			out.VertexMapping = append(out.VertexMapping, v)
			out.UVs = append(out.UVs, float32(uv.X), float32(uv.Y))
			out.AtlasIndex = append(out.AtlasIndex, uint32(pc.Placement.Bin))
		}
		out.Charts[ci] = ChartRange{
			Atlas:       pc.Placement.Bin,
			FirstVertex: first,
			VertexCount: len(c.Vertices),
			Faces:       c.Faces,
		}
	}

	out.Indices = make([]uint32, 0, 3*faceCount)
	for f := 0; f < faceCount; f++ {
		ci := faceChart[f]
		if ci < 0 {
			return nil, fmt.Errorf("face %d is not in any chart", f)
		}
		c := charts[ci].Chart
		base := uint32(out.Charts[ci].FirstVertex)
		slot := faceSlot[f]
		for k := 0; k < 3; k++ {
			out.Indices = append(out.Indices, base+uint32(c.Corners[3*slot+int32(k)]))
		}
	}
	return out, nil
}
