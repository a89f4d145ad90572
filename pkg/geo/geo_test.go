package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 0.01

func square(x, y, size float64) Polygon {
	return NewPolygon(Pt(x, y), Pt(x+size, y), Pt(x+size, y+size), Pt(x, y+size))
}

// --- Point2D tests ---

func TestPointDistance(t *testing.T) {
	assert.InDelta(t, 5.0, Pt(0, 0).Distance(Pt(3, 4)), tolerance)
}

func TestPointAngle(t *testing.T) {
	assert.InDelta(t, 0, Pt(1, 0).Angle(), tolerance)
	assert.InDelta(t, math.Pi/2, Pt(0, 1).Angle(), tolerance)
}

func TestPointRotate(t *testing.T) {
	r := Pt(1, 0).Rotate(math.Pi / 2)
	assert.InDelta(t, 0, r.X, tolerance)
	assert.InDelta(t, 1, r.Y, tolerance)
}

func TestPointRotateAround(t *testing.T) {
	r := Pt(2, 1).RotateAround(Pt(1, 1), math.Pi)
	assert.InDelta(t, 0, r.X, 1e-9)
	assert.InDelta(t, 1, r.Y, 1e-9)
}

func TestMean(t *testing.T) {
	m := Mean([]Point2D{Pt(0, 0), Pt(2, 0), Pt(2, 2), Pt(0, 2)})
	assert.Equal(t, Pt(1, 1), m)
	assert.Equal(t, Origin, Mean(nil))
}

// --- Polygon tests ---

func TestPolygonAreaSquare(t *testing.T) {
	assert.InDelta(t, 100, square(0, 0, 10).Area(), tolerance)
}

func TestPolygonAreaWithHole(t *testing.T) {
	p := square(0, 0, 10)
	p.Holes = [][]Point2D{square(2, 2, 2).Exterior}
	assert.InDelta(t, 96, p.Area(), tolerance)
}

func TestPolygonCentroid(t *testing.T) {
	c := square(0, 0, 10).Centroid()
	assert.InDelta(t, 5, c.X, tolerance)
	assert.InDelta(t, 5, c.Y, tolerance)
}

func TestPolygonContains(t *testing.T) {
	p := square(0, 0, 10)
	p.Holes = [][]Point2D{square(4, 4, 2).Exterior}

	assert.True(t, p.Contains(Pt(1, 1)))
	assert.False(t, p.Contains(Pt(5, 5)), "point in hole")
	assert.False(t, p.Contains(Pt(11, 5)))
}

func TestPolygonDistanceTo(t *testing.T) {
	p := square(0, 0, 10)
	assert.Zero(t, p.DistanceTo(Pt(5, 5)))
	assert.InDelta(t, 3, p.DistanceTo(Pt(13, 5)), 1e-9)
	assert.InDelta(t, 5, p.DistanceTo(Pt(13, 14)), 1e-9)
}

func TestPolygonBoundingBox(t *testing.T) {
	lo, hi := NewPolygon(Pt(1, 2), Pt(5, -1), Pt(3, 7)).BoundingBox()
	assert.Equal(t, Pt(1, -1), lo)
	assert.Equal(t, Pt(5, 7), hi)
}

func TestPolygonIsValid(t *testing.T) {
	assert.True(t, square(0, 0, 1).IsValid())
	assert.False(t, NewPolygon(Pt(0, 0), Pt(1, 1)).IsValid())
	assert.False(t, NewPolygon(Pt(0, 0), Pt(1, 1), Pt(2, 2)).IsValid(), "collinear")
	assert.False(t, NewPolygon(Pt(0, 0), Pt(math.NaN(), 1), Pt(2, 0)).IsValid())
}

func TestApproximateCircleArea(t *testing.T) {
	c := ApproximateCircle(Pt(0, 0), 10, 128)
	assert.InDelta(t, math.Pi*100, c.Area(), 1.0)
}

// --- Transform tests ---

func TestTransplantRetractRoundTrip(t *testing.T) {
	p := square(3, 4, 5)
	origin, dest := Pt(3, 4), Pt(100, -20)
	moved := Transplant(p, origin, dest, 0.7)
	assert.InDelta(t, p.Area(), moved.Area(), 1e-9)
	assert.True(t, moved.Contains(Transplant(Pt(5, 6), origin, dest, 0.7)))

	back := Retract(moved, origin, dest, 0.7)
	for i, v := range back.Exterior {
		assert.InDelta(t, p.Exterior[i].X, v.X, 1e-9)
		assert.InDelta(t, p.Exterior[i].Y, v.Y, 1e-9)
	}
}

func TestTransplantMovesOriginToDestination(t *testing.T) {
	got := Transplant(Pt(1, 1), Pt(1, 1), Pt(10, 10), math.Pi/3)
	assert.InDelta(t, 10, got.X, 1e-9)
	assert.InDelta(t, 10, got.Y, 1e-9)
}

// --- Voronoi tests ---

func TestVoronoiTwoPoints(t *testing.T) {
	bounds := square(0, 0, 100)
	cells := Voronoi([]Point2D{Pt(25, 50), Pt(75, 50)}, bounds)
	require.Len(t, cells, 2)
	assert.InDelta(t, 5000, cells[0].Polygon.Area(), 1)
	assert.InDelta(t, 5000, cells[1].Polygon.Area(), 1)
	assert.True(t, cells[0].Polygon.Contains(Pt(10, 10)))
	assert.True(t, cells[1].Polygon.Contains(Pt(90, 90)))
}

func TestVoronoiSinglePoint(t *testing.T) {
	bounds := square(0, 0, 100)
	cells := Voronoi([]Point2D{Pt(50, 50)}, bounds)
	require.Len(t, cells, 1)
	assert.InDelta(t, 10000, cells[0].Polygon.Area(), tolerance)
}

func TestVoronoiFourPointsSquare(t *testing.T) {
	seeds := []Point2D{Pt(25, 25), Pt(75, 25), Pt(75, 75), Pt(25, 75)}
	cells := Voronoi(seeds, square(0, 0, 100))
	total := 0.0
	for i, c := range cells {
		assert.Equal(t, i, c.SeedIndex)
		assert.InDelta(t, 2500, c.Polygon.Area(), 1)
		total += c.Polygon.Area()
	}
	assert.InDelta(t, 10000, total, 1)
}

func TestVoronoiClockwiseBounds(t *testing.T) {
	cw := NewPolygon(Pt(0, 0), Pt(0, 100), Pt(100, 100), Pt(100, 0))
	cells := Voronoi([]Point2D{Pt(25, 50), Pt(75, 50)}, cw)
	require.Len(t, cells, 2)
	assert.InDelta(t, 5000, cells[0].Polygon.Area(), 1)
}
