// Package geometry holds validated input meshes and the topology derived from them.
package geometry

import (
	"errors"
	"fmt"
	stdmath "math"

	"github.com/Faultbox/uvatlas/pkg/math"
)

// ErrIndexOutOfRange is wrapped by OutOfRangeError.
var ErrIndexOutOfRange = errors.New("triangle index out of range")

// OutOfRangeError reports a triangle corner referencing a missing vertex.
type OutOfRangeError struct {
	Triangle    int
	Index       uint32
	VertexCount int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("index %d of triangle %d out of range (mesh has %d vertices)",
		e.Index, e.Triangle, e.VertexCount)
}

// Unwrap returns ErrIndexOutOfRange.
func (e *OutOfRangeError) Unwrap() error {
	return ErrIndexOutOfRange
}

// Mesh is an immutable triangle mesh plus its derived topology.
//
// Half-edge h belongs to face h/3 and runs from corner h%3 to corner (h+1)%3.
type Mesh struct {
	Positions []math.Vec3
	Normals   []math.Vec3 // nil when the mesh has no normals
	UVs       []math.Vec2 // nil when the mesh has no texture coordinates
	Indices   []uint32

	faceNormals []math.Vec3
	faceAreas   []float64
	degenerate  []bool
	canonical   []uint32
	opposite    []int32
	component   []int32

	componentCount int
	surfaceArea    float64
}

// NewMesh validates indices and builds topology. The slices are retained, not copied.
func NewMesh(positions []math.Vec3, indices []uint32, normals []math.Vec3, uvs []math.Vec2) (*Mesh, error) {
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("index count %d is not a multiple of 3", len(indices))
	}
	if normals != nil && len(normals) != len(positions) {
		return nil, fmt.Errorf("normal count %d does not match vertex count %d", len(normals), len(positions))
	}
	if uvs != nil && len(uvs) != len(positions) {
		return nil, fmt.Errorf("uv count %d does not match vertex count %d", len(uvs), len(positions))
	}
	for i, idx := range indices {
		if int(idx) >= len(positions) {
			return nil, &OutOfRangeError{Triangle: i / 3, Index: idx, VertexCount: len(positions)}
		}
	}

	m := &Mesh{
		Positions: positions,
		Normals:   normals,
		UVs:       uvs,
		Indices:   indices,
	}
	m.computeFaces()
	m.weld()
	m.linkEdges()
	m.labelComponents()
	return m, nil
}

// VertexCount returns the number of input vertices.
func (m *Mesh) VertexCount() int { return len(m.Positions) }

// FaceCount returns the number of triangles.
func (m *Mesh) FaceCount() int { return len(m.Indices) / 3 }

// HasNormals reports whether per-vertex normals were supplied.
func (m *Mesh) HasNormals() bool { return m.Normals != nil }

// HasUVs reports whether per-vertex texture coordinates were supplied.
func (m *Mesh) HasUVs() bool { return m.UVs != nil }

// Vertex returns the input vertex at a face corner.
func (m *Mesh) Vertex(face, corner int) uint32 {
	return m.Indices[3*face+corner]
}

// Position returns the position at a face corner.
func (m *Mesh) Position(face, corner int) math.Vec3 {
	return m.Positions[m.Indices[3*face+corner]]
}

// Canonical returns the representative of all vertices sharing v's exact position.
func (m *Mesh) Canonical(v uint32) uint32 {
	return m.canonical[v]
}

// FaceNormal returns the unit normal of a face, or the zero vector if degenerate.
func (m *Mesh) FaceNormal(face int) math.Vec3 { return m.faceNormals[face] }

// FaceArea returns the area of a face.
func (m *Mesh) FaceArea(face int) float64 { return m.faceAreas[face] }

// IsDegenerate reports whether a face has no usable area or repeats a vertex.
func (m *Mesh) IsDegenerate(face int) bool { return m.degenerate[face] }

// FaceCentroid returns the average of a face's corner positions.
func (m *Mesh) FaceCentroid(face int) math.Vec3 {
	return m.Position(face, 0).Add(m.Position(face, 1)).Add(m.Position(face, 2)).Scale(1.0 / 3.0)
}

// SurfaceArea returns the summed area of all faces.
func (m *Mesh) SurfaceArea() float64 { return m.surfaceArea }

// EdgeFrom returns the start vertex of half-edge h.
func (m *Mesh) EdgeFrom(h int) uint32 { return m.Indices[h] }

// EdgeTo returns the end vertex of half-edge h.
func (m *Mesh) EdgeTo(h int) uint32 { return m.Indices[nextEdge(h)] }

// EdgeLength returns the length of half-edge h.
func (m *Mesh) EdgeLength(h int) float64 {
	return m.Positions[m.EdgeFrom(h)].Distance(m.Positions[m.EdgeTo(h)])
}

// Opposite returns the twin of half-edge h across a manifold edge, or -1 on a boundary.
func (m *Mesh) Opposite(h int) int { return int(m.opposite[h]) }

// NeighborFace returns the face across half-edge h, or -1 on a boundary.
func (m *Mesh) NeighborFace(h int) int {
	o := m.opposite[h]
	if o < 0 {
		return -1
	}
	return int(o) / 3
}

// Perimeter returns the summed edge length of a face.
func (m *Mesh) Perimeter(face int) float64 {
	return m.EdgeLength(3*face) + m.EdgeLength(3*face+1) + m.EdgeLength(3*face+2)
}

// Component returns the connected component id of a face.
func (m *Mesh) Component(face int) int { return int(m.component[face]) }

// ComponentCount returns the number of edge-connected components.
func (m *Mesh) ComponentCount() int { return m.componentCount }

// IsNormalSeam reports whether the input normals disagree across half-edge h.
func (m *Mesh) IsNormalSeam(h int) bool {
	if m.Normals == nil {
		return false
	}
	o := m.Opposite(h)
	if o < 0 {
		return false
	}
	// h runs a->b, o runs b'->a'
	a, b := m.EdgeFrom(h), m.EdgeTo(h)
	a2, b2 := m.EdgeTo(o), m.EdgeFrom(o)
	return !sameNormal(m.Normals, a, a2) || !sameNormal(m.Normals, b, b2)
}

// IsUVSeam reports whether the input texture coordinates disagree across half-edge h.
func (m *Mesh) IsUVSeam(h int) bool {
	if m.UVs == nil {
		return false
	}
	o := m.Opposite(h)
	if o < 0 {
		return true
	}
	a, b := m.EdgeFrom(h), m.EdgeTo(h)
	a2, b2 := m.EdgeTo(o), m.EdgeFrom(o)
	return m.UVs[a] != m.UVs[a2] || m.UVs[b] != m.UVs[b2]
}

func sameNormal(normals []math.Vec3, a, b uint32) bool {
	if a == b {
		return true
	}
	return normals[a].Normalize().Dot(normals[b].Normalize()) > 0.999
}

func nextEdge(h int) int {
	if h%3 == 2 {
		return h - 2
	}
	return h + 1
}

func (m *Mesh) computeFaces() {
	n := m.FaceCount()
	m.faceNormals = make([]math.Vec3, n)
	m.faceAreas = make([]float64, n)
	m.degenerate = make([]bool, n)

	for f := 0; f < n; f++ {
		i0, i1, i2 := m.Vertex(f, 0), m.Vertex(f, 1), m.Vertex(f, 2)
		p0, p1, p2 := m.Positions[i0], m.Positions[i1], m.Positions[i2]
		cross := math.TriangleNormal(p0, p1, p2)
		area := cross.Length() * 0.5

		longest := stdmath.Max(p0.Sub(p1).LengthSq(), stdmath.Max(p1.Sub(p2).LengthSq(), p2.Sub(p0).LengthSq()))
		if i0 == i1 || i1 == i2 || i2 == i0 || !cross.IsFinite() || area == 0 || 2*area <= 1e-10*longest {
			m.degenerate[f] = true
			if stdmath.IsNaN(area) || stdmath.IsInf(area, 0) {
				area = 0
			}
			m.faceAreas[f] = area
			continue
		}
		m.faceNormals[f] = cross.Scale(1 / (2 * area))
		m.faceAreas[f] = area
		m.surfaceArea += area
	}
}

// weld maps vertices with bit-identical positions onto the lowest such index.
func (m *Mesh) weld() {
	m.canonical = make([]uint32, len(m.Positions))
	first := make(map[math.Vec3]uint32, len(m.Positions))
	for i, p := range m.Positions {
		if c, ok := first[p]; ok {
			m.canonical[i] = c
			continue
		}
		first[p] = uint32(i)
		m.canonical[i] = uint32(i)
	}
}

// linkEdges pairs half-edges that share canonical endpoints in opposite directions.
// Edges shared by more than two faces, or by two faces with inconsistent winding,
// stay unpaired and act as boundaries.
func (m *Mesh) linkEdges() {
	edgeCount := len(m.Indices)
	m.opposite = make([]int32, edgeCount)
	for i := range m.opposite {
		m.opposite[i] = -1
	}

	edges := make(map[[2]uint32][]int32, edgeCount)
	for h := 0; h < edgeCount; h++ {
		a := m.canonical[m.EdgeFrom(h)]
		b := m.canonical[m.EdgeTo(h)]
		if a == b {
			continue
		}
		key := [2]uint32{a, b}
		if b < a {
			key = [2]uint32{b, a}
		}
		edges[key] = append(edges[key], int32(h))
	}

	for _, list := range edges {
		if len(list) != 2 {
			continue
		}
		h1, h2 := int(list[0]), int(list[1])
		if h1/3 == h2/3 {
			continue
		}
		if m.canonical[m.EdgeFrom(h1)] != m.canonical[m.EdgeTo(h2)] {
			continue
		}
		m.opposite[h1] = int32(h2)
		m.opposite[h2] = int32(h1)
	}
}

func (m *Mesh) labelComponents() {
	n := m.FaceCount()
	parent := make([]int32, n)
	for i := range parent {
		parent[i] = int32(i)
	}
	var find func(x int32) int32
	find = func(x int32) int32 {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}

	for h := range m.opposite {
		o := m.opposite[h]
		if o < 0 {
			continue
		}
		ra, rb := find(int32(h/3)), find(o/3)
		if ra == rb {
			continue
		}
		if ra < rb {
			parent[rb] = ra
		} else {
			parent[ra] = rb
		}
	}

	m.component = make([]int32, n)
	ids := make(map[int32]int32)
	for f := 0; f < n; f++ {
		root := find(int32(f))
		id, ok := ids[root]
		if !ok {
			id = int32(len(ids))
			ids[root] = id
		}
		m.component[f] = id
	}
	m.componentCount = len(ids)
}
