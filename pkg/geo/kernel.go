package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/ctessum/geom"
)

// ErrInvalidGeometry is returned when the clipping kernel cannot process its
// input (self-intersecting or otherwise degenerate rings).
var ErrInvalidGeometry = errors.New("geo: invalid geometry")

// areaEpsilon is the smallest ring area kept in kernel output.
const areaEpsilon = 1e-9

// Intersection returns the part of a covered by b. Kernel failures yield an
// empty result.
func Intersection(a, b MultiPolygon) MultiPolygon {
	out, _ := TryIntersection(a, b)
	return out
}

// TryIntersection is Intersection with kernel failures reported.
func TryIntersection(a, b MultiPolygon) (MultiPolygon, error) {
	if a.IsEmpty() || b.IsEmpty() || !boundsOverlap(a, b) {
		return nil, nil
	}
	ga, gb := toGeom(a), toGeom(b)
	return safeOp(func() geom.Polygonal { return ga.Intersection(gb) })
}

// Difference returns the part of a not covered by b. Kernel failures yield a
// unchanged.
func Difference(a, b MultiPolygon) MultiPolygon {
	if a.IsEmpty() {
		return nil
	}
	if b.IsEmpty() || !boundsOverlap(a, b) {
		return a
	}
	ga, gb := toGeom(a), toGeom(b)
	out, err := safeOp(func() geom.Polygonal { return ga.Difference(gb) })
	if err != nil {
		return a
	}
	return out
}

// Union merges all parts into a set of non-overlapping simple polygons.
// Parts that the kernel cannot merge are dropped.
func Union(parts ...MultiPolygon) MultiPolygon {
	var acc geom.Polygon
	for _, m := range parts {
		for _, p := range m {
			if p.IsEmpty() || p.Area() <= areaEpsilon {
				continue
			}
			gp := toGeom(MultiPolygon{p})
			if acc == nil {
				acc = gp
				continue
			}
			prev := acc
			merged, err := safeOp(func() geom.Polygonal { return prev.Union(gp) })
			if err != nil {
				continue
			}
			acc = toGeom(merged)
		}
	}
	if acc == nil {
		return nil
	}
	return fromGeom(acc)
}

func safeOp(op func() geom.Polygonal) (out MultiPolygon, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, r)
		}
	}()
	return fromGeom(flatten(op())), nil
}

// flatten collects the rings of every polygon in g.
func flatten(g geom.Polygonal) geom.Polygon {
	if g == nil {
		return nil
	}
	var rings geom.Polygon
	for _, p := range g.Polygons() {
		rings = append(rings, p...)
	}
	return rings
}

func boundsOverlap(a, b MultiPolygon) bool {
	aMin, aMax := a.BoundingBox()
	bMin, bMax := b.BoundingBox()
	return aMin.X <= bMax.X && bMin.X <= aMax.X && aMin.Y <= bMax.Y && bMin.Y <= aMax.Y
}

func toGeom(m MultiPolygon) geom.Polygon {
	var out geom.Polygon
	for _, p := range m {
		if p.IsEmpty() {
			continue
		}
		out = append(out, toPath(p.Exterior))
		for _, h := range p.Holes {
			if len(h) >= 3 {
				out = append(out, toPath(h))
			}
		}
	}
	return out
}

func toPath(ring []Point2D) geom.Path {
	path := make(geom.Path, len(ring))
	for i, v := range ring {
		path[i] = geom.Point{X: v.X, Y: v.Y}
	}
	return path
}

// fromGeom splits kernel output rings into simple polygons. A ring nested in
// an even number of other rings is an exterior; an odd nesting depth makes it
// a hole of the innermost exterior around it.
func fromGeom(g geom.Polygon) MultiPolygon {
	rings := make([][]Point2D, 0, len(g))
	for _, path := range g {
		ring := make([]Point2D, 0, len(path))
		for _, v := range path {
			ring = append(ring, Pt(v.X, v.Y))
		}
		if n := len(ring); n > 1 && ring[0] == ring[n-1] {
			ring = ring[:n-1]
		}
		if len(ring) >= 3 && math.Abs(ringSignedArea(ring)) > areaEpsilon {
			rings = append(rings, ring)
		}
	}
	if len(rings) == 0 {
		return nil
	}

	areas := make([]float64, len(rings))
	for i, r := range rings {
		areas[i] = math.Abs(ringSignedArea(r))
	}
	// inside[i] lists the rings that enclose ring i.
	inside := make([][]int, len(rings))
	for i := range rings {
		for j := range rings {
			if i == j || areas[j] <= areas[i] {
				continue
			}
			if ringContains(rings[j], farthestVertex(rings[i], rings[j])) {
				inside[i] = append(inside[i], j)
			}
		}
	}

	outerIdx := make(map[int]int)
	var out MultiPolygon
	for i, r := range rings {
		if len(inside[i])%2 == 0 {
			outerIdx[i] = len(out)
			out = append(out, Polygon{Exterior: r})
		}
	}
	for i, r := range rings {
		if len(inside[i])%2 == 0 {
			continue
		}
		parent := -1
		for _, j := range inside[i] {
			if len(inside[j])%2 != 0 {
				continue
			}
			if parent < 0 || areas[j] < areas[parent] {
				parent = j
			}
		}
		if k, ok := outerIdx[parent]; ok {
			out[k].Holes = append(out[k].Holes, r)
		}
	}
	return out
}

// farthestVertex returns the vertex of ring farthest from the boundary of
// other, which is the most reliable probe for a containment test.
func farthestVertex(ring, other []Point2D) Point2D {
	best := ring[0]
	bestDist := -1.0
	for _, v := range ring {
		if d := ringDistance(other, v); d > bestDist {
			best, bestDist = v, d
		}
	}
	return best
}
