package geo

import (
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
)

// pointPad gives point entries a non-degenerate box in the tree.
const pointPad = 1e-9

// Index is an R-tree over the bounding boxes of points or polygons. Queries
// return candidate positions into the slice the index was built from;
// callers apply the exact predicate.
type Index struct {
	tree *rtree.Rtree
	size int
}

// indexEntry carries a position alongside the box the tree sorts on.
type indexEntry struct {
	geom.Geom
	pos int
}

var _ geom.Geom = (*indexEntry)(nil)

func newIndex() *Index {
	return &Index{tree: rtree.NewTree(25, 50)}
}

// NewPointIndex indexes pts by position.
func NewPointIndex(pts []Point2D) *Index {
	ix := newIndex()
	for i, p := range pts {
		ix.insert(Pt(p.X-pointPad, p.Y-pointPad), Pt(p.X+pointPad, p.Y+pointPad), i)
	}
	return ix
}

// NewPolygonIndex indexes polys by their bounding boxes. Empty polygons are
// skipped.
func NewPolygonIndex(polys []Polygon) *Index {
	ix := newIndex()
	for i, p := range polys {
		if p.IsEmpty() {
			continue
		}
		lo, hi := p.BoundingBox()
		ix.insert(lo, hi, i)
	}
	return ix
}

func (ix *Index) insert(lo, hi Point2D, pos int) {
	ix.tree.Insert(&indexEntry{
		Geom: &geom.Bounds{
			Min: geom.Point{X: lo.X, Y: lo.Y},
			Max: geom.Point{X: hi.X, Y: hi.Y},
		},
		pos: pos,
	})
	ix.size++
}

// Len returns the number of indexed entries.
func (ix *Index) Len() int {
	return ix.size
}

// Search returns, in ascending order, the positions whose boxes intersect
// the box [lo, hi].
func (ix *Index) Search(lo, hi Point2D) []int {
	if ix.size == 0 {
		return nil
	}
	hits := ix.tree.SearchIntersect(&geom.Bounds{
		Min: geom.Point{X: lo.X, Y: lo.Y},
		Max: geom.Point{X: hi.X, Y: hi.Y},
	})
	out := make([]int, 0, len(hits))
	for _, h := range hits {
		if e, ok := h.(*indexEntry); ok {
			out = append(out, e.pos)
		}
	}
	sort.Ints(out)
	return out
}

// SearchRegion returns positions whose boxes intersect the bounds of m.
func (ix *Index) SearchRegion(m MultiPolygon) []int {
	if m.IsEmpty() {
		return nil
	}
	lo, hi := m.BoundingBox()
	return ix.Search(lo, hi)
}
