// Package param flattens charts into the plane.
package param

import (
	stdmath "math"

	"github.com/Faultbox/uvatlas/internal/geometry"
	"github.com/Faultbox/uvatlas/pkg/math"
)

// Chart is a parametrized chart of one mesh.
//
// Local vertices are numbered in order of first appearance while walking Faces
// in ascending order, corner by corner.
type Chart struct {
	Faces    []int
	Vertices []uint32    // local vertex -> input vertex
	Corners  []int32     // 3 per face, local vertex of each corner
	UVs      []math.Vec2 // per local vertex, in mesh units with the minimum at the origin

	Area3D     float64
	Area2D     float64
	Distortion float64
	Flipped    int
	Fallback   bool
	InputUVs   bool
}

// FaceCount returns the number of faces in the chart.
func (c *Chart) FaceCount() int { return len(c.Faces) }

// Triangle returns the UVs of the i-th chart face.
func (c *Chart) Triangle(i int) (math.Vec2, math.Vec2, math.Vec2) {
	return c.UVs[c.Corners[3*i]], c.UVs[c.Corners[3*i+1]], c.UVs[c.Corners[3*i+2]]
}

// Bounds returns the extent of the chart UVs.
func (c *Chart) Bounds() (lo, hi math.Vec2) {
	if len(c.UVs) == 0 {
		return
	}
	lo, hi = c.UVs[0], c.UVs[0]
	for _, uv := range c.UVs[1:] {
		lo = lo.Min(uv)
		hi = hi.Max(uv)
	}
	return lo, hi
}

func newChart(mesh *geometry.Mesh, faces []int) *Chart {
	c := &Chart{
		Faces:   faces,
		Corners: make([]int32, 3*len(faces)),
	}
	local := make(map[uint32]int32, len(faces))
	for i, f := range faces {
		for k := 0; k < 3; k++ {
			v := mesh.Vertex(f, k)
			id, ok := local[v]
			if !ok {
				id = int32(len(c.Vertices))
				local[v] = id
				c.Vertices = append(c.Vertices, v)
			}
			c.Corners[3*i+k] = id
		}
		c.Area3D += mesh.FaceArea(f)
	}
	c.UVs = make([]math.Vec2, len(c.Vertices))
	return c
}

// normalize scales UVs so the 2D area matches the 3D area and moves the minimum to the origin.
func (c *Chart) normalize() {
	area := 0.0
	for i := range c.Faces {
		a, b, d := c.Triangle(i)
		area += stdmath.Abs(math.TriangleArea2(a, b, d))
	}
	if area > 0 && c.Area3D > 0 {
		s := stdmath.Sqrt(c.Area3D / area)
		for i := range c.UVs {
			c.UVs[i] = c.UVs[i].Scale(s)
		}
	}
	lo, _ := c.Bounds()
	for i := range c.UVs {
		c.UVs[i] = c.UVs[i].Sub(lo)
	}
}
