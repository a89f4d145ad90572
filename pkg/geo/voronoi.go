package geo

import "math"

// VoronoiCell represents one cell in a Voronoi diagram.
type VoronoiCell struct {
	SeedIndex int     // index into the original seed array
	Seed      Point2D // the seed point
	Polygon   Polygon // the cell boundary, clipped to the convex bounds
}

// Voronoi computes the Voronoi diagram of the given seed points, clipped to
// the given convex bounding polygon. Cells are returned in seed order.
func Voronoi(seeds []Point2D, bounds Polygon) []VoronoiCell {
	if len(seeds) == 0 {
		return nil
	}
	bounds = ensureCCW(bounds)
	cells := make([]VoronoiCell, len(seeds))
	for i, s := range seeds {
		cells[i] = VoronoiCell{SeedIndex: i, Seed: s, Polygon: cellOf(i, seeds, bounds)}
	}
	return cells
}

// VoronoiWithin tessellates region among seeds: the diagram is extended over
// a box covering region and all seeds, then each cell is intersected with
// region. The result is 1:1 with seeds; a seed whose cell misses region maps
// to an empty set.
func VoronoiWithin(seeds []Point2D, region Polygon) []MultiPolygon {
	if len(seeds) == 0 {
		return nil
	}
	lo, hi := region.BoundingBox()
	for _, s := range seeds {
		lo = Pt(math.Min(lo.X, s.X), math.Min(lo.Y, s.Y))
		hi = Pt(math.Max(hi.X, s.X), math.Max(hi.Y, s.Y))
	}
	margin := math.Max(1, 0.1*math.Max(hi.X-lo.X, hi.Y-lo.Y))
	box := Rect(lo.Sub(Pt(margin, margin)), hi.Add(Pt(margin, margin)))

	cells := Voronoi(seeds, box)
	out := make([]MultiPolygon, len(cells))
	for i, c := range cells {
		out[i] = Intersection(MultiPolygon{c.Polygon}, MultiPolygon{region})
	}
	return out
}

// cellOf cuts bounds down to the points nearer seeds[i] than any other
// seed, one bisector at a time. Coincident seeds share a cell.
func cellOf(i int, seeds []Point2D, bounds Polygon) Polygon {
	cell, seed := bounds, seeds[i]
	for _, other := range seeds {
		if other == seed {
			continue
		}
		mid := MidPoint(seed, other)
		cell = clipToHalfPlane(cell, mid, mid.Add(other.Sub(seed).Perp()))
		if cell.IsEmpty() {
			return Polygon{}
		}
	}
	return cell
}

func ensureCCW(p Polygon) Polygon {
	if p.SignedArea() >= 0 {
		return p
	}
	n := len(p.Exterior)
	rev := make([]Point2D, n)
	for i, v := range p.Exterior {
		rev[n-1-i] = v
	}
	return Polygon{Exterior: rev, Holes: p.Holes}
}
