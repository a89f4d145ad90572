// Package transport computes the optimal-transport (earth mover's) distance
// between two equal-size planar point sets.
package transport

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ChicagoDave/siteplanner/pkg/geo"
)

// ErrCardinality is returned when the two point sets differ in size.
var ErrCardinality = errors.New("transport: point sets differ in size")

// Distance returns the 1-Wasserstein distance between the uniform empirical
// distributions over a and b with Euclidean ground cost. With equal
// cardinality the optimal plan is a permutation, so this is the mean cost of
// the minimum-cost perfect matching.
func Distance(a, b []geo.Point2D) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrCardinality, len(a), len(b))
	}
	n := len(a)
	if n == 0 {
		return 0, nil
	}
	cost := CostMatrix(a, b)
	assignment := Assign(cost)
	total := 0.0
	for i, j := range assignment {
		total += cost.At(i, j)
	}
	return total / float64(n), nil
}

// CostMatrix returns the pairwise Euclidean distances between a and b.
func CostMatrix(a, b []geo.Point2D) *mat.Dense {
	cost := mat.NewDense(len(a), len(b), nil)
	for i, p := range a {
		for j, q := range b {
			cost.Set(i, j, p.Distance(q))
		}
	}
	return cost
}

// Assign solves the square assignment problem on cost with the Hungarian
// method (shortest augmenting paths with potentials, O(n³)). The result maps
// each row to its assigned column.
func Assign(cost mat.Matrix) []int {
	n, _ := cost.Dims()
	if n == 0 {
		return nil
	}
	// 1-based arrays; index 0 is the virtual source column.
	u := make([]float64, n+1)
	v := make([]float64, n+1)
	match := make([]int, n+1) // match[col] = row
	way := make([]int, n+1)

	for row := 1; row <= n; row++ {
		match[0] = row
		col0 := 0
		minv := make([]float64, n+1)
		used := make([]bool, n+1)
		for j := range minv {
			minv[j] = math.Inf(1)
		}
		for {
			used[col0] = true
			i0 := match[col0]
			delta := math.Inf(1)
			col1 := 0
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost.At(i0-1, j-1) - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = col0
				}
				if minv[j] < delta {
					delta = minv[j]
					col1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[match[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			col0 = col1
			if match[col0] == 0 {
				break
			}
		}
		for col0 != 0 {
			col1 := way[col0]
			match[col0] = match[col1]
			col0 = col1
		}
	}

	assignment := make([]int, n)
	for j := 1; j <= n; j++ {
		assignment[match[j]-1] = j - 1
	}
	return assignment
}
