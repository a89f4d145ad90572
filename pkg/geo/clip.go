package geo

import "math"

// CircleSegments is the ring resolution used for catchment circles.
const CircleSegments = 64

// ApproximateCircle returns a counter-clockwise regular polygon with the
// given number of vertices on the circle. Fewer than 3 segments means 3.
func ApproximateCircle(center Point2D, radius float64, segments int) Polygon {
	segments = max(segments, 3)
	step := 2 * math.Pi / float64(segments)
	ring := make([]Point2D, segments)
	for i := range ring {
		ring[i] = center.Add(Pt(radius, 0).Rotate(step * float64(i)))
	}
	return Polygon{Exterior: ring}
}

// clipToHalfPlane keeps the part of convex poly left of the directed line
// a→b. Holes are dropped; Voronoi cells never have any.
func clipToHalfPlane(poly Polygon, a, b Point2D) Polygon {
	ring := poly.Exterior
	if len(ring) < 3 {
		return Polygon{}
	}
	dir := b.Sub(a)
	side := func(p Point2D) float64 { return cross(dir, p.Sub(a)) }

	kept := make([]Point2D, 0, len(ring)+1)
	for i, cur := range ring {
		next := ring[(i+1)%len(ring)]
		sc, sn := side(cur), side(next)
		if sc >= 0 {
			kept = append(kept, cur)
		}
		if (sc > 0 && sn < 0) || (sc < 0 && sn > 0) {
			kept = append(kept, cur.Lerp(next, sc/(sc-sn)))
		}
	}
	if len(kept) < 3 {
		return Polygon{}
	}
	return Polygon{Exterior: kept}
}

func cross(u, v Point2D) float64 { return u.X*v.Y - u.Y*v.X }
