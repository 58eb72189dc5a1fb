package pack

import (
	stdmath "math"
	"sort"

	"github.com/Faultbox/uvatlas/pkg/math"
)

// convexHull returns the hull of points in counter-clockwise order (monotone chain).
func convexHull(points []math.Vec2) []math.Vec2 {
	pts := append([]math.Vec2(nil), points...)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})
	if len(pts) < 3 {
		return pts
	}

	hull := make([]math.Vec2, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && hull[len(hull)-1].Sub(hull[len(hull)-2]).Cross(p.Sub(hull[len(hull)-2])) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && hull[len(hull)-1].Sub(hull[len(hull)-2]).Cross(p.Sub(hull[len(hull)-2])) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// minAreaRectAngle returns the rotation in degrees that aligns points with their
// minimum area bounding rectangle, preferring the wider orientation.
func minAreaRectAngle(points []math.Vec2) float64 {
	hull := convexHull(points)
	if len(hull) < 3 {
		if len(hull) == 2 {
			d := hull[1].Sub(hull[0])
			return -stdmath.Atan2(d.Y, d.X) * 180 / stdmath.Pi
		}
		return 0
	}

	bestAngle, bestArea := 0.0, stdmath.Inf(1)
	var bestW, bestH float64
	for i := range hull {
		d := hull[(i+1)%len(hull)].Sub(hull[i])
		if d.LengthSq() == 0 {
			continue
		}
		angle := -stdmath.Atan2(d.Y, d.X)
		lo, hi := rotatedBounds(hull, angle)
		w, h := hi.X-lo.X, hi.Y-lo.Y
		if area := w * h; area < bestArea-1e-12 {
			bestAngle, bestArea, bestW, bestH = angle, area, w, h
		}
	}
	if bestH > bestW {
		bestAngle += stdmath.Pi / 2
	}
	return bestAngle * 180 / stdmath.Pi
}

func rotatedBounds(points []math.Vec2, radians float64) (lo, hi math.Vec2) {
	lo = math.Vec2{X: stdmath.Inf(1), Y: stdmath.Inf(1)}
	hi = lo.Scale(-1)
	for _, p := range points {
		r := p.Rotate(radians)
		lo = lo.Min(r)
		hi = hi.Max(r)
	}
	return lo, hi
}
