package geo

import "math"

// Polygon is a simple polygon: one exterior ring and zero or more holes.
// Rings are open (the first vertex is not repeated at the end).
type Polygon struct {
	Exterior []Point2D   `json:"exterior"`
	Holes    [][]Point2D `json:"holes,omitempty"`
}

// NewPolygon creates a hole-free polygon from a list of vertices.
func NewPolygon(pts ...Point2D) Polygon {
	return Polygon{Exterior: pts}
}

// Rect returns the axis-aligned rectangle spanning min and max.
func Rect(min, max Point2D) Polygon {
	return NewPolygon(min, Pt(max.X, min.Y), max, Pt(min.X, max.Y))
}

// Len returns the number of exterior vertices.
func (p Polygon) Len() int {
	return len(p.Exterior)
}

// IsEmpty returns true if the exterior has fewer than 3 vertices.
func (p Polygon) IsEmpty() bool {
	return len(p.Exterior) < 3
}

// IsValid reports whether the polygon is non-empty, has finite coordinates
// and encloses a positive area.
func (p Polygon) IsValid() bool {
	if p.IsEmpty() {
		return false
	}
	for _, v := range p.Exterior {
		if !v.IsFinite() {
			return false
		}
	}
	for _, h := range p.Holes {
		for _, v := range h {
			if !v.IsFinite() {
				return false
			}
		}
	}
	return p.Area() > 0
}

// SignedArea returns the signed area of the exterior ring using the shoelace
// formula. Positive for counterclockwise winding, negative for clockwise.
func (p Polygon) SignedArea() float64 {
	return ringSignedArea(p.Exterior)
}

// Area returns the exterior area minus the area of the holes.
func (p Polygon) Area() float64 {
	a := math.Abs(ringSignedArea(p.Exterior))
	for _, h := range p.Holes {
		a -= math.Abs(ringSignedArea(h))
	}
	return math.Max(a, 0)
}

// Centroid returns the area centroid of the exterior ring.
func (p Polygon) Centroid() Point2D {
	n := len(p.Exterior)
	if n == 0 {
		return Point2D{}
	}
	a := ringSignedArea(p.Exterior)
	if n < 3 || math.Abs(a) < 1e-12 {
		// Degenerate: return average.
		return Mean(p.Exterior)
	}
	cx, cy := 0.0, 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		vi, vj := p.Exterior[i], p.Exterior[j]
		cross := vi.X*vj.Y - vj.X*vi.Y
		cx += (vi.X + vj.X) * cross
		cy += (vi.Y + vj.Y) * cross
	}
	f := 1.0 / (6.0 * a)
	return Point2D{cx * f, cy * f}
}

// BoundingBox returns the axis-aligned bounding box as (min, max).
func (p Polygon) BoundingBox() (Point2D, Point2D) {
	return ringBounds(p.Exterior)
}

// Contains returns true if the point lies inside the exterior ring and
// outside every hole, using ray casting.
func (p Polygon) Contains(pt Point2D) bool {
	if !ringContains(p.Exterior, pt) {
		return false
	}
	for _, h := range p.Holes {
		if ringContains(h, pt) {
			return false
		}
	}
	return true
}

// DistanceTo returns 0 when pt is inside p and otherwise the distance from
// pt to the nearest polygon edge.
func (p Polygon) DistanceTo(pt Point2D) float64 {
	if p.Contains(pt) {
		return 0
	}
	best := ringDistance(p.Exterior, pt)
	for _, h := range p.Holes {
		best = math.Min(best, ringDistance(h, pt))
	}
	return best
}

// Translate returns the polygon moved by the vector d.
func (p Polygon) Translate(d Point2D) Polygon {
	return p.mapPoints(func(v Point2D) Point2D { return v.Add(d) })
}

// RotateAround returns the polygon rotated by angle radians around center.
func (p Polygon) RotateAround(center Point2D, angle float64) Polygon {
	return p.mapPoints(func(v Point2D) Point2D { return v.RotateAround(center, angle) })
}

func (p Polygon) mapPoints(f func(Point2D) Point2D) Polygon {
	out := Polygon{Exterior: mapRing(p.Exterior, f)}
	if len(p.Holes) > 0 {
		out.Holes = make([][]Point2D, len(p.Holes))
		for i, h := range p.Holes {
			out.Holes[i] = mapRing(h, f)
		}
	}
	return out
}

func mapRing(ring []Point2D, f func(Point2D) Point2D) []Point2D {
	out := make([]Point2D, len(ring))
	for i, v := range ring {
		out[i] = f(v)
	}
	return out
}

func ringSignedArea(ring []Point2D) float64 {
	n := len(ring)
	if n < 3 {
		return 0
	}
	area := 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += ring[i].X * ring[j].Y
		area -= ring[j].X * ring[i].Y
	}
	return area / 2
}

func ringBounds(ring []Point2D) (Point2D, Point2D) {
	if len(ring) == 0 {
		return Point2D{}, Point2D{}
	}
	minP := ring[0]
	maxP := ring[0]
	for _, v := range ring[1:] {
		minP.X = math.Min(minP.X, v.X)
		minP.Y = math.Min(minP.Y, v.Y)
		maxP.X = math.Max(maxP.X, v.X)
		maxP.Y = math.Max(maxP.Y, v.Y)
	}
	return minP, maxP
}

func ringContains(ring []Point2D, pt Point2D) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		vi := ring[i]
		vj := ring[j]
		if (vi.Y > pt.Y) != (vj.Y > pt.Y) &&
			pt.X < (vj.X-vi.X)*(pt.Y-vi.Y)/(vj.Y-vi.Y)+vi.X {
			inside = !inside
		}
		j = i
	}
	return inside
}

func ringDistance(ring []Point2D, pt Point2D) float64 {
	best := math.Inf(1)
	n := len(ring)
	for i := 0; i < n; i++ {
		best = math.Min(best, segmentDistance(pt, ring[i], ring[(i+1)%n]))
	}
	return best
}
