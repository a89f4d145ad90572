// Package cluster groups nearby points with fixed-radius density clustering.
package cluster

import (
	"math"

	"github.com/ChicagoDave/siteplanner/pkg/geo"
)

// Noise is the label given to points that belong to no group.
const Noise = -1

// Params contains parameters for the DBSCAN clustering algorithm.
type Params struct {
	Eps    float64 // Neighborhood radius in metres
	MinPts int     // Minimum neighbors (including the point itself) for a core point
}

// DefaultParams merges points closer than one metre and treats every point
// as a core point, so each point lands in exactly one group.
func DefaultParams() Params {
	return Params{Eps: 1, MinPts: 1}
}

// grid provides neighbor queries using a regular grid whose cell size
// matches eps.
type grid struct {
	cellSize float64
	cells    map[[2]int64][]int
}

func newGrid(points []geo.Point2D, cellSize float64) *grid {
	g := &grid{cellSize: cellSize, cells: make(map[[2]int64][]int)}
	for i, p := range points {
		k := g.key(p)
		g.cells[k] = append(g.cells[k], i)
	}
	return g
}

func (g *grid) key(p geo.Point2D) [2]int64 {
	return [2]int64{int64(math.Floor(p.X / g.cellSize)), int64(math.Floor(p.Y / g.cellSize))}
}

// regionQuery returns indices of all points within eps of points[idx].
func (g *grid) regionQuery(points []geo.Point2D, idx int, eps float64) []int {
	p := points[idx]
	base := g.key(p)
	eps2 := eps * eps
	var neighbors []int
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for _, c := range g.cells[[2]int64{base[0] + dx, base[1] + dy}] {
				d := points[c].Sub(p)
				if d.Dot(d) <= eps2 {
					neighbors = append(neighbors, c)
				}
			}
		}
	}
	return neighbors
}

// DBSCAN labels points by density group. Labels are 0-based group ids in
// order of discovery; points that are neither core nor border get Noise.
func DBSCAN(points []geo.Point2D, params Params) []int {
	n := len(points)
	labels := make([]int, n)
	if n == 0 {
		return labels
	}
	if params.MinPts < 1 {
		params.MinPts = 1
	}
	if params.Eps <= 0 {
		// Degenerate radius: only exact duplicates group together.
		params.Eps = 1e-12
	}

	const unvisited = -2
	for i := range labels {
		labels[i] = unvisited
	}

	g := newGrid(points, params.Eps)
	next := 0
	for i := 0; i < n; i++ {
		if labels[i] != unvisited {
			continue
		}
		neighbors := g.regionQuery(points, i, params.Eps)
		if len(neighbors) < params.MinPts {
			labels[i] = Noise
			continue
		}
		expand(points, g, labels, i, neighbors, next, params, unvisited)
		next++
	}
	return labels
}

// expand grows a group from a core point using a queue of neighbors.
func expand(points []geo.Point2D, g *grid, labels []int, seed int, neighbors []int, id int, params Params, unvisited int) {
	labels[seed] = id
	for j := 0; j < len(neighbors); j++ {
		idx := neighbors[j]
		if labels[idx] == Noise {
			labels[idx] = id // Noise becomes border point
		}
		if labels[idx] != unvisited {
			continue
		}
		labels[idx] = id
		more := g.regionQuery(points, idx, params.Eps)
		if len(more) >= params.MinPts {
			neighbors = append(neighbors, more...)
		}
	}
}

// Representatives returns, for each density group, the index of the member
// closest to the group centroid. Noise points represent themselves. The
// result is ordered by the first member of each group.
func Representatives(points []geo.Point2D, labels []int) []int {
	groups := make(map[int][]int)
	var order []int
	var reps []int
	for i, l := range labels {
		if l == Noise {
			order = append(order, -(i + 1))
			continue
		}
		if _, seen := groups[l]; !seen {
			order = append(order, l)
		}
		groups[l] = append(groups[l], i)
	}
	for _, o := range order {
		if o < 0 {
			reps = append(reps, -o-1)
			continue
		}
		members := groups[o]
		pts := make([]geo.Point2D, len(members))
		for k, m := range members {
			pts[k] = points[m]
		}
		centroid := geo.Mean(pts)
		best := members[0]
		for _, m := range members[1:] {
			if points[m].Distance(centroid) < points[best].Distance(centroid) {
				best = m
			}
		}
		reps = append(reps, best)
	}
	return reps
}
