package pack

import (
	stdmath "math"

	"github.com/Faultbox/uvatlas/pkg/math"
)

// Shape is a flattened chart as seen by the packer.
type Shape interface {
	FaceCount() int
	Triangle(i int) (math.Vec2, math.Vec2, math.Vec2)
}

// footprint is a chart rasterized at one rotation and scale.
type footprint struct {
	rotation int     // candidate index
	angle    float64 // degrees
	origin   math.Vec2
	scale    float64
	padding  int
	width    int // chart texels without padding
	height   int
	raw      *bitImage // chart texels at (padding, padding)
	mask     *bitImage // raw dilated by padding
}

// area returns the padded footprint rectangle area used to order charts.
func (f *footprint) area() int { return f.raw.width * f.raw.height }

func shapeArea(s Shape) float64 {
	area := 0.0
	for i := 0; i < s.FaceCount(); i++ {
		a, b, c := s.Triangle(i)
		area += stdmath.Abs(math.TriangleArea2(a, b, c))
	}
	return area
}

func shapeBounds(s Shape, degrees float64) (lo, hi math.Vec2) {
	radians := degrees * stdmath.Pi / 180
	lo = math.Vec2{X: stdmath.Inf(1), Y: stdmath.Inf(1)}
	hi = lo.Scale(-1)
	for i := 0; i < s.FaceCount(); i++ {
		a, b, c := s.Triangle(i)
		for _, p := range [3]math.Vec2{a, b, c} {
			r := p.Rotate(radians)
			lo = lo.Min(r)
			hi = hi.Max(r)
		}
	}
	if s.FaceCount() == 0 {
		return math.Vec2{}, math.Vec2{}
	}
	return lo, hi
}

func shapePoints(s Shape) []math.Vec2 {
	points := make([]math.Vec2, 0, 3*s.FaceCount())
	for i := 0; i < s.FaceCount(); i++ {
		a, b, c := s.Triangle(i)
		points = append(points, a, b, c)
	}
	return points
}

// texelExtent returns the number of texels spanned by a length, at least one.
func texelExtent(length float64) int {
	return max(1, int(stdmath.Ceil(length-1e-9)))
}

// rasterize builds the footprint of s rotated by degrees and scaled to texels.
func rasterize(s Shape, rotation int, degrees, scale float64, padding int) *footprint {
	lo, hi := shapeBounds(s, degrees)
	extent := hi.Sub(lo).Scale(scale)
	f := &footprint{
		rotation: rotation,
		angle:    degrees,
		origin:   lo,
		scale:    scale,
		padding:  padding,
		width:    texelExtent(extent.X),
		height:   texelExtent(extent.Y),
	}
	f.raw = newBitImage(f.width+2*padding, f.height+2*padding)

	pad := math.Vec2{X: float64(padding), Y: float64(padding)}
	for i := 0; i < s.FaceCount(); i++ {
		a, b, c := s.Triangle(i)
		rasterTriangle(f.raw, f.local(a).Add(pad), f.local(b).Add(pad), f.local(c).Add(pad))
	}
	f.mask = f.raw.dilated(padding)
	return f
}

// local maps a chart uv to texels relative to the chart origin.
func (f *footprint) local(uv math.Vec2) math.Vec2 {
	return uv.Rotate(f.angle * stdmath.Pi / 180).Sub(f.origin).Scale(f.scale)
}

// rasterTriangle sets every texel the triangle touches.
func rasterTriangle(img *bitImage, a, b, c math.Vec2) {
	lo := a.Min(b).Min(c)
	hi := a.Max(b).Max(c)
	x0 := clamp(int(stdmath.Floor(lo.X)), 0, img.width-1)
	y0 := clamp(int(stdmath.Floor(lo.Y)), 0, img.height-1)
	x1 := clamp(int(stdmath.Ceil(hi.X))-1, x0, img.width-1)
	y1 := clamp(int(stdmath.Ceil(hi.Y))-1, y0, img.height-1)

	area := math.TriangleArea2(a, b, c)
	if area < 0 {
		b, c = c, b
	}
	degenerate := stdmath.Abs(area) < 1e-12
	edges := [3][2]math.Vec2{{a, b}, {b, c}, {c, a}}

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if degenerate || cellTouches(edges, float64(x), float64(y)) {
				img.set(x, y)
			}
		}
	}
}

// cellTouches reports whether the unit cell at (x, y) is not fully outside any edge.
func cellTouches(edges [3][2]math.Vec2, x, y float64) bool {
	corners := [4]math.Vec2{{X: x, Y: y}, {X: x + 1, Y: y}, {X: x, Y: y + 1}, {X: x + 1, Y: y + 1}}
	for _, e := range edges {
		d := e[1].Sub(e[0])
		eps := 1e-9 * d.Length()
		outside := true
		for _, p := range corners {
			if d.Cross(p.Sub(e[0])) >= -eps {
				outside = false
				break
			}
		}
		if outside {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
