package param

import (
	stdmath "math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/Faultbox/uvatlas/pkg/math"
)

// frame is an orthonormal basis of a chart's best-fit plane.
type frame struct {
	origin math.Vec3
	u, v   math.Vec3 // u is the principal axis
	normal math.Vec3
	// spread holds the covariance eigenvalues in ascending order.
	spread [3]float64
}

func (f frame) project(p math.Vec3) math.Vec2 {
	d := p.Sub(f.origin)
	return math.Vec2{X: d.Dot(f.u), Y: d.Dot(f.v)}
}

// collinear reports whether the points lie on a line.
func (f frame) collinear() bool {
	return f.spread[1] <= 1e-12*f.spread[2]
}

// fitPlane computes the best-fit plane of points. facing orients the plane normal;
// the zero vector leaves it as computed.
func fitPlane(points []math.Vec3, facing math.Vec3) (frame, error) {
	if len(points) == 0 {
		return frame{}, errors.New("no points to fit")
	}
	var centroid math.Vec3
	for _, p := range points {
		centroid = centroid.Add(p)
	}
	centroid = centroid.Scale(1 / float64(len(points)))

	var cov [9]float64
	for _, p := range points {
		d := p.Sub(centroid)
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				cov[3*i+j] += d.Component(i) * d.Component(j)
			}
		}
	}

	var es mat.EigenSym
	if !es.Factorize(mat.NewSymDense(3, cov[:]), true) {
		return frame{}, errors.New("eigen decomposition of covariance failed")
	}
	values := es.Values(nil)
	var vectors mat.Dense
	es.VectorsTo(&vectors)

	column := func(j int) math.Vec3 {
		return math.Vec3{X: vectors.At(0, j), Y: vectors.At(1, j), Z: vectors.At(2, j)}
	}
	f := frame{origin: centroid, u: column(2).Normalize(), normal: column(0).Normalize()}
	copy(f.spread[:], values)
	if facing != (math.Vec3{}) && f.normal.Dot(facing) < 0 {
		f.normal = f.normal.Scale(-1)
	}
	f.v = f.normal.Cross(f.u)
	if !f.u.IsFinite() || !f.v.IsFinite() || f.v.LengthSq() < 0.5 {
		return frame{}, errors.Errorf("invalid plane basis (eigenvalues %v)", values)
	}
	return f, nil
}

// axisFrame projects along the dominant axis of facing when no plane can be fitted.
func axisFrame(facing math.Vec3) frame {
	ax, ay, az := stdmath.Abs(facing.X), stdmath.Abs(facing.Y), stdmath.Abs(facing.Z)
	f := frame{}
	switch {
	case ax >= ay && ax >= az:
		f.u, f.v = math.Vec3{Y: 1}, math.Vec3{Z: 1}
	case ay >= az:
		f.u, f.v = math.Vec3{Z: 1}, math.Vec3{X: 1}
	default:
		f.u, f.v = math.Vec3{X: 1}, math.Vec3{Y: 1}
	}
	f.normal = f.u.Cross(f.v)
	if facing.Dot(f.normal) < 0 {
		f.v = f.v.Scale(-1)
		f.normal = f.normal.Scale(-1)
	}
	return f
}
