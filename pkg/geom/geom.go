// Package geom holds the planar primitives the network is built from.
package geom

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Point is a position in the plane.
type Point = orb.Point

// Square is the default placement area, [-1,1] on both axes.
var Square = orb.Bound{Min: orb.Point{-1, -1}, Max: orb.Point{1, 1}}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return planar.Distance(a, b)
}

// Sub returns a-b.
func Sub(a, b Point) Point {
	return Point{a[0] - b[0], a[1] - b[1]}
}

// Lerp returns the point a fraction t of the way from a to b.
func Lerp(a, b Point, t float64) Point {
	return Point{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
}

// Heading returns the angle in radians of the direction from a to b.
func Heading(a, b Point) float64 {
	return math.Atan2(b[1]-a[1], b[0]-a[0])
}

// SegmentsIntersect reports whether p0+t*d0 and p1+t*d1 cross for some
// t0, t1 in [0, 1). Parallel or degenerate segments never intersect.
func SegmentsIntersect(p0, d0, p1, d1 Point) bool {
	det := d1[0]*d0[1] - d1[1]*d0[0]
	if det == 0 {
		return false
	}
	s := Sub(p1, p0)
	t1 := -(s[0]*d0[1] - s[1]*d0[0]) / det
	if t1 < 0 || 1 <= t1 {
		return false
	}
	t0 := -(s[0]*d1[1] - s[1]*d1[0]) / det
	if t0 < 0 || 1 <= t0 {
		return false
	}
	return true
}

// Crosses reports whether segment a0-a1 intersects segment b0-b1.
func Crosses(a0, a1, b0, b1 Point) bool {
	return SegmentsIntersect(a0, Sub(a1, a0), b0, Sub(b1, b0))
}
