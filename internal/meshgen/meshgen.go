// Package meshgen builds procedural triangle meshes used as pipeline fixtures
// and by the demo command.
package meshgen

import (
	"fmt"
	stdmath "math"
	"sort"

	"github.com/Faultbox/uvatlas/pkg/math"
)

// Mesh is an indexed triangle mesh in float32 buffers.
type Mesh struct {
	Name      string
	Positions [][3]float32
	Normals   [][3]float32
	Triangles [][3]uint32
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int { return len(m.Positions) }

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int { return len(m.Triangles) }

// FlatPositions returns positions as x,y,z triples.
func (m *Mesh) FlatPositions() []float32 {
	out := make([]float32, 0, len(m.Positions)*3)
	for _, p := range m.Positions {
		out = append(out, p[0], p[1], p[2])
	}
	return out
}

// FlatNormals returns normals as x,y,z triples, or nil if the mesh has none.
func (m *Mesh) FlatNormals() []float32 {
	if m.Normals == nil {
		return nil
	}
	out := make([]float32, 0, len(m.Normals)*3)
	for _, n := range m.Normals {
		out = append(out, n[0], n[1], n[2])
	}
	return out
}

// FlatIndices returns triangle indices as a flat list.
func (m *Mesh) FlatIndices() []uint32 {
	out := make([]uint32, 0, len(m.Triangles)*3)
	for _, t := range m.Triangles {
		out = append(out, t[0], t[1], t[2])
	}
	return out
}

// Vec3Positions converts positions to float64 vectors.
func (m *Mesh) Vec3Positions() []math.Vec3 {
	return toVec3(m.Positions)
}

// Vec3Normals converts normals to float64 vectors, or nil if the mesh has none.
func (m *Mesh) Vec3Normals() []math.Vec3 {
	if m.Normals == nil {
		return nil
	}
	return toVec3(m.Normals)
}

func toVec3(src [][3]float32) []math.Vec3 {
	out := make([]math.Vec3, len(src))
	for i, p := range src {
		out[i] = math.Vec3{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])}
	}
	return out
}

// Plane builds an nx by ny grid of unit quads in the XY plane, facing +Z.
func Plane(nx, ny int) *Mesh {
	m := &Mesh{Name: "plane"}
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			m.Positions = append(m.Positions, [3]float32{float32(i), float32(j), 0})
			m.Normals = append(m.Normals, [3]float32{0, 0, 1})
		}
	}
	row := uint32(nx + 1)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			a := uint32(j)*row + uint32(i)
			b, c, d := a+1, a+row+1, a+row
			m.Triangles = append(m.Triangles, [3]uint32{a, b, c}, [3]uint32{a, c, d})
		}
	}
	return m
}

// cubeFace describes one side of the lattice cube: origin and the two axes, in lattice steps.
type cubeFace struct {
	origin, u, v [3]int
	normal       [3]float32
}

// Cube builds a unit cube centred at the origin. Each side is an n by n grid with
// its own vertices, so corners and edges are duplicated with identical positions
// and per-side normals.
func Cube(n int) *Mesh {
	faces := []cubeFace{
		{[3]int{0, 0, n}, [3]int{1, 0, 0}, [3]int{0, 1, 0}, [3]float32{0, 0, 1}},
		{[3]int{n, 0, 0}, [3]int{-1, 0, 0}, [3]int{0, 1, 0}, [3]float32{0, 0, -1}},
		{[3]int{n, 0, n}, [3]int{0, 0, -1}, [3]int{0, 1, 0}, [3]float32{1, 0, 0}},
		{[3]int{0, 0, 0}, [3]int{0, 0, 1}, [3]int{0, 1, 0}, [3]float32{-1, 0, 0}},
		{[3]int{0, n, n}, [3]int{1, 0, 0}, [3]int{0, 0, -1}, [3]float32{0, 1, 0}},
		{[3]int{0, 0, 0}, [3]int{1, 0, 0}, [3]int{0, 0, 1}, [3]float32{0, -1, 0}},
	}

	m := &Mesh{Name: "cube"}
	for _, f := range faces {
		base := uint32(len(m.Positions))
		for j := 0; j <= n; j++ {
			for i := 0; i <= n; i++ {
				var p [3]float32
				for k := 0; k < 3; k++ {
					lattice := f.origin[k] + i*f.u[k] + j*f.v[k]
					p[k] = float32(lattice)/float32(n) - 0.5
				}
				m.Positions = append(m.Positions, p)
				m.Normals = append(m.Normals, f.normal)
			}
		}
		row := uint32(n + 1)
		for j := 0; j < n; j++ {
			for i := 0; i < n; i++ {
				a := base + uint32(j)*row + uint32(i)
				b, c, d := a+1, a+row+1, a+row
				m.Triangles = append(m.Triangles, [3]uint32{a, b, c}, [3]uint32{a, c, d})
			}
		}
	}
	return m
}

// Sphere builds a UV sphere of radius 1 with shared vertices and single-vertex poles.
func Sphere(rings, segments int) *Mesh {
	m := &Mesh{Name: "sphere"}
	add := func(p [3]float32) {
		m.Positions = append(m.Positions, p)
		m.Normals = append(m.Normals, p)
	}
	add([3]float32{0, 1, 0})
	for i := 1; i < rings; i++ {
		theta := stdmath.Pi * float64(i) / float64(rings)
		st, ct := stdmath.Sincos(theta)
		for j := 0; j < segments; j++ {
			phi := 2 * stdmath.Pi * float64(j) / float64(segments)
			sp, cp := stdmath.Sincos(phi)
			add([3]float32{float32(st * cp), float32(ct), float32(st * sp)})
		}
	}
	add([3]float32{0, -1, 0})
	bottom := uint32(len(m.Positions) - 1)

	v := func(i, j int) uint32 {
		return uint32(1 + (i-1)*segments + (j % segments))
	}
	for j := 0; j < segments; j++ {
		m.Triangles = append(m.Triangles, [3]uint32{0, v(1, j+1), v(1, j)})
	}
	for i := 1; i < rings-1; i++ {
		for j := 0; j < segments; j++ {
			a, b, c, d := v(i, j), v(i, j+1), v(i+1, j+1), v(i+1, j)
			m.Triangles = append(m.Triangles, [3]uint32{a, b, c}, [3]uint32{a, c, d})
		}
	}
	for j := 0; j < segments; j++ {
		m.Triangles = append(m.Triangles, [3]uint32{bottom, v(rings-1, j), v(rings-1, j+1)})
	}
	return m
}

// Cylinder builds an open tube of radius 1 and the given height along Y.
func Cylinder(segments, stacks int, height float32) *Mesh {
	m := &Mesh{Name: "cylinder"}
	for i := 0; i <= stacks; i++ {
		y := height * float32(i) / float32(stacks)
		for j := 0; j < segments; j++ {
			phi := 2 * stdmath.Pi * float64(j) / float64(segments)
			s, c := stdmath.Sincos(phi)
			m.Positions = append(m.Positions, [3]float32{float32(c), y, float32(s)})
			m.Normals = append(m.Normals, [3]float32{float32(c), 0, float32(s)})
		}
	}
	v := func(i, j int) uint32 { return uint32(i*segments + j%segments) }
	for i := 0; i < stacks; i++ {
		for j := 0; j < segments; j++ {
			a, b, c, d := v(i, j), v(i+1, j), v(i+1, j+1), v(i, j+1)
			m.Triangles = append(m.Triangles, [3]uint32{a, b, c}, [3]uint32{a, c, d})
		}
	}
	return m
}

// Torus builds a closed torus with the given radii.
func Torus(majorSegments, minorSegments int, majorRadius, minorRadius float64) *Mesh {
	m := &Mesh{Name: "torus"}
	for i := 0; i < majorSegments; i++ {
		u := 2 * stdmath.Pi * float64(i) / float64(majorSegments)
		su, cu := stdmath.Sincos(u)
		for j := 0; j < minorSegments; j++ {
			w := 2 * stdmath.Pi * float64(j) / float64(minorSegments)
			sw, cw := stdmath.Sincos(w)
			r := majorRadius + minorRadius*cw
			m.Positions = append(m.Positions, [3]float32{float32(r * cu), float32(minorRadius * sw), float32(r * su)})
			m.Normals = append(m.Normals, [3]float32{float32(cw * cu), float32(sw), float32(cw * su)})
		}
	}
	v := func(i, j int) uint32 {
		return uint32((i%majorSegments)*minorSegments + j%minorSegments)
	}
	for i := 0; i < majorSegments; i++ {
		for j := 0; j < minorSegments; j++ {
			a, b, c, d := v(i, j), v(i+1, j), v(i+1, j+1), v(i, j+1)
			m.Triangles = append(m.Triangles, [3]uint32{a, c, b}, [3]uint32{a, d, c})
		}
	}
	return m
}

// generators maps demo names to constructors at a detail level.
var generators = map[string]func(detail int) *Mesh{
	"plane":    func(d int) *Mesh { return Plane(d, d) },
	"cube":     func(d int) *Mesh { return Cube(d) },
	"sphere":   func(d int) *Mesh { return Sphere(d, 2*d) },
	"cylinder": func(d int) *Mesh { return Cylinder(2*d, d, 2) },
	"torus":    func(d int) *Mesh { return Torus(2*d, d, 1, 0.35) },
}

// Names returns the generator names in sorted order.
func Names() []string {
	names := make([]string, 0, len(generators))
	for name := range generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByName builds a named mesh. detail must be at least 2.
func ByName(name string, detail int) (*Mesh, error) {
	gen, ok := generators[name]
	if !ok {
		return nil, fmt.Errorf("unknown mesh %q (available: %v)", name, Names())
	}
	if detail < 2 {
		return nil, fmt.Errorf("detail must be at least 2, got %d", detail)
	}
	return gen(detail), nil
}
