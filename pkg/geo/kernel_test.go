package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntersectionPartialOverlap(t *testing.T) {
	a := MultiPolygon{square(0, 0, 10)}
	b := MultiPolygon{square(5, 5, 10)}
	got := Intersection(a, b)
	require.Len(t, got, 1)
	assert.InDelta(t, 25, got.Area(), tolerance)
	assert.True(t, got.Contains(Pt(7, 7)))
}

func TestIntersectionDisjoint(t *testing.T) {
	got := Intersection(MultiPolygon{square(0, 0, 10)}, MultiPolygon{square(20, 20, 5)})
	assert.True(t, got.IsEmpty())
}

func TestIntersectionContained(t *testing.T) {
	got := Intersection(MultiPolygon{square(2, 2, 3)}, MultiPolygon{square(0, 0, 10)})
	assert.InDelta(t, 9, got.Area(), tolerance)
}

func TestDifferenceLeavesHole(t *testing.T) {
	got := Difference(MultiPolygon{square(0, 0, 10)}, MultiPolygon{square(3, 3, 2)})
	require.Len(t, got, 1)
	assert.Len(t, got[0].Holes, 1)
	assert.InDelta(t, 96, got.Area(), tolerance)
	assert.False(t, got.Contains(Pt(4, 4)))
	assert.True(t, got.Contains(Pt(1, 1)))
}

func TestDifferenceSplitsIntoParts(t *testing.T) {
	// A vertical bar through the middle cuts the square in two.
	bar := NewPolygon(Pt(4, -1), Pt(6, -1), Pt(6, 11), Pt(4, 11))
	got := Difference(MultiPolygon{square(0, 0, 10)}, MultiPolygon{bar})
	require.Len(t, got, 2)
	assert.InDelta(t, 80, got.Area(), tolerance)
}

func TestDifferenceDisjointReturnsInput(t *testing.T) {
	a := MultiPolygon{square(0, 0, 10)}
	got := Difference(a, MultiPolygon{square(50, 50, 1)})
	assert.Equal(t, a, got)
}

func TestUnionOverlapping(t *testing.T) {
	got := Union(MultiPolygon{square(0, 0, 10)}, MultiPolygon{square(5, 0, 10)})
	require.Len(t, got, 1)
	assert.InDelta(t, 150, got.Area(), tolerance)
}

func TestUnionDisjointKeepsParts(t *testing.T) {
	got := Union(MultiPolygon{square(0, 0, 1), square(10, 10, 2)})
	require.Len(t, got, 2)
	assert.InDelta(t, 5, got.Area(), tolerance)
}

func TestUnionEmpty(t *testing.T) {
	assert.Nil(t, Union())
	assert.Nil(t, Union(MultiPolygon{{}}))
}

func TestVoronoiWithinPartitionsRegion(t *testing.T) {
	region := NewPolygon(Pt(0, 0), Pt(40, 0), Pt(40, 10), Pt(0, 30))
	seeds := []Point2D{Pt(5, 5), Pt(20, 5), Pt(35, 5), Pt(80, 80)}
	cells := VoronoiWithin(seeds, region)
	require.Len(t, cells, len(seeds))

	total := 0.0
	for _, c := range cells {
		total += c.Area()
	}
	assert.InDelta(t, region.Area(), total, 0.1)
	assert.True(t, cells[0].Contains(Pt(2, 2)))
}

func TestIndexSearch(t *testing.T) {
	ix := NewPointIndex([]Point2D{Pt(0, 0), Pt(5, 5), Pt(10, 10)})
	assert.Equal(t, 3, ix.Len())
	assert.Equal(t, []int{0, 1}, ix.Search(Pt(-1, -1), Pt(6, 6)))
	assert.Empty(t, ix.Search(Pt(20, 20), Pt(30, 30)))

	pix := NewPolygonIndex([]Polygon{square(0, 0, 2), {}, square(8, 8, 2)})
	assert.Equal(t, 2, pix.Len())
	assert.Equal(t, []int{2}, pix.SearchRegion(MultiPolygon{square(9, 9, 5)}))
}

func TestIntersectionOfMultiPartInputs(t *testing.T) {
	a := MultiPolygon{square(0, 0, 10), square(20, 0, 10)}
	b := MultiPolygon{square(5, 0, 20)}
	got := Intersection(a, b)
	require.Len(t, got, 2)
	assert.InDelta(t, 100, got.Area(), tolerance)
	assert.True(t, got.Contains(Pt(7, 5)))
	assert.True(t, got.Contains(Pt(22, 5)))
}

func TestIndexSearchManyEntries(t *testing.T) {
	// Enough entries to force node splits in the tree.
	pts := make([]Point2D, 200)
	for i := range pts {
		pts[i] = Pt(float64(i), 0)
	}
	ix := NewPointIndex(pts)
	assert.Equal(t, []int{10, 11, 12}, ix.Search(Pt(9.5, -1), Pt(12.5, 1)))
}
