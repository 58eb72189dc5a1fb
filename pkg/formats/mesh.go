package formats

import (
	"errors"
	"fmt"
)

// ErrMeshShape is returned when per-vertex attribute counts disagree.
var ErrMeshShape = errors.New("mesh attribute count mismatch")

// Mesh is an indexed triangle mesh with a single index stream.
// Normals and UVs are either nil or hold one entry per position.
type Mesh struct {
	Name      string
	Positions [][3]float32
	Normals   [][3]float32
	UVs       [][2]float32
	Indices   [][3]uint32
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int { return len(m.Positions) }

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int { return len(m.Indices) }

// Validate checks attribute counts and index bounds.
func (m *Mesh) Validate() error {
	if m.Normals != nil && len(m.Normals) != len(m.Positions) {
		return fmt.Errorf("%w: %d normals for %d positions", ErrMeshShape, len(m.Normals), len(m.Positions))
	}
	if m.UVs != nil && len(m.UVs) != len(m.Positions) {
		return fmt.Errorf("%w: %d uvs for %d positions", ErrMeshShape, len(m.UVs), len(m.Positions))
	}
	n := uint32(len(m.Positions))
	for i, tri := range m.Indices {
		for _, idx := range tri {
			if idx >= n {
				return fmt.Errorf("%w: triangle %d references vertex %d of %d", ErrIndexOutOfRange, i, idx, n)
			}
		}
	}
	return nil
}
