package geo

import "math"

// Region is anything that can answer a point-in-area test.
type Region interface {
	Contains(pt Point2D) bool
}

// MultiPolygon is a set of non-overlapping simple polygons.
type MultiPolygon []Polygon

// Area returns the summed area of all member polygons.
func (m MultiPolygon) Area() float64 {
	total := 0.0
	for _, p := range m {
		total += p.Area()
	}
	return total
}

// IsEmpty reports whether m has no member with positive area.
func (m MultiPolygon) IsEmpty() bool {
	for _, p := range m {
		if !p.IsEmpty() && p.Area() > 0 {
			return false
		}
	}
	return true
}

// Contains reports whether any member polygon contains pt.
func (m MultiPolygon) Contains(pt Point2D) bool {
	for _, p := range m {
		if p.Contains(pt) {
			return true
		}
	}
	return false
}

// DistanceTo returns the smallest distance from pt to any member polygon.
func (m MultiPolygon) DistanceTo(pt Point2D) float64 {
	best := math.Inf(1)
	for _, p := range m {
		best = math.Min(best, p.DistanceTo(pt))
	}
	return best
}

// BoundingBox returns the bounds of all member exteriors.
func (m MultiPolygon) BoundingBox() (Point2D, Point2D) {
	if len(m) == 0 {
		return Point2D{}, Point2D{}
	}
	minP, maxP := m[0].BoundingBox()
	for _, p := range m[1:] {
		lo, hi := p.BoundingBox()
		minP = Pt(math.Min(minP.X, lo.X), math.Min(minP.Y, lo.Y))
		maxP = Pt(math.Max(maxP.X, hi.X), math.Max(maxP.Y, hi.Y))
	}
	return minP, maxP
}

// Translate returns every member moved by d.
func (m MultiPolygon) Translate(d Point2D) MultiPolygon {
	out := make(MultiPolygon, len(m))
	for i, p := range m {
		out[i] = p.Translate(d)
	}
	return out
}

// RotateAround returns every member rotated by angle radians around center.
func (m MultiPolygon) RotateAround(center Point2D, angle float64) MultiPolygon {
	out := make(MultiPolygon, len(m))
	for i, p := range m {
		out[i] = p.RotateAround(center, angle)
	}
	return out
}
