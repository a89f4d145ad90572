// Package perception models a surveyed point of view: an anchor point, the
// catchment region around it and the cluster-labelled samples inside that
// region. Each cluster carries a canonical orientation taken from the
// dominant singular vector of its member offsets, which lets two perceptions
// be aligned and compared under rotation.
package perception

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/ChicagoDave/siteplanner/pkg/geo"
	"github.com/ChicagoDave/siteplanner/pkg/transport"
)

// ErrEmptyNeighborhood is returned when no sample falls inside a perception's
// region, so no cluster can be assigned to its anchor.
var ErrEmptyNeighborhood = errors.New("perception: no samples in neighborhood")

// Orientation is the dominant principal axis of one cluster's offsets from
// the anchor.
type Orientation struct {
	SingularValue float64     `json:"singular_value"`
	Axis          geo.Point2D `json:"axis"`
	Angle         float64     `json:"angle"`
}

// Perception is immutable once constructed. Transforming it yields a new
// Perception.
type Perception struct {
	id      string
	point   geo.Point2D
	region  geo.Polygon
	samples []Sample
	cluster int

	byCluster   map[int][]Sample
	offsets     map[int][]geo.Point2D
	orientation map[int]Orientation
	clusters    []int
}

// New builds a Perception from the samples lying inside region.
func New(id string, point geo.Point2D, region geo.Polygon, samples []Sample) (*Perception, error) {
	var clipped []Sample
	for _, s := range samples {
		if s.Within(region) {
			clipped = append(clipped, s)
		}
	}
	p, err := build(id, point, region, clipped)
	if err != nil {
		return nil, fmt.Errorf("perception %q: %w", id, err)
	}
	return p, nil
}

// NewWithRadius builds a Perception from the samples within radius of point.
// The region is a polygonal approximation of that circle.
func NewWithRadius(id string, point geo.Point2D, radius float64, samples []Sample) (*Perception, error) {
	var clipped []Sample
	for _, s := range samples {
		if s.Point.Distance(point) <= radius {
			clipped = append(clipped, s)
		}
	}
	region := geo.ApproximateCircle(point, radius, geo.CircleSegments)
	p, err := build(id, point, region, clipped)
	if err != nil {
		return nil, fmt.Errorf("perception %q: %w", id, err)
	}
	return p, nil
}

func build(id string, point geo.Point2D, region geo.Polygon, clipped []Sample) (*Perception, error) {
	if len(clipped) == 0 {
		return nil, ErrEmptyNeighborhood
	}

	nearest := clipped[0]
	best := nearest.Point.Distance(point)
	for _, s := range clipped[1:] {
		if d := s.Point.Distance(point); d < best {
			best, nearest = d, s
		}
	}

	p := &Perception{
		id:          id,
		point:       point,
		region:      region,
		samples:     clipped,
		cluster:     nearest.Cluster,
		byCluster:   make(map[int][]Sample),
		offsets:     make(map[int][]geo.Point2D),
		orientation: make(map[int]Orientation),
	}
	for _, s := range clipped {
		p.byCluster[s.Cluster] = append(p.byCluster[s.Cluster], s)
		p.offsets[s.Cluster] = append(p.offsets[s.Cluster], s.Point.Sub(point))
	}
	for c, offs := range p.offsets {
		p.clusters = append(p.clusters, c)
		p.orientation[c] = principalAxis(offs)
	}
	sort.Ints(p.clusters)
	return p, nil
}

// principalAxis returns the leading singular value and right singular vector
// of the n×2 offset matrix.
func principalAxis(offs []geo.Point2D) Orientation {
	data := make([]float64, 0, 2*len(offs))
	for _, o := range offs {
		data = append(data, o.X, o.Y)
	}
	a := mat.NewDense(len(offs), 2, data)

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return Orientation{Axis: geo.Pt(1, 0)}
	}
	values := svd.Values(nil)
	var v mat.Dense
	svd.VTo(&v)

	// Values are sorted descending, so column 0 is the dominant axis.
	axis := geo.Pt(v.At(0, 0), v.At(1, 0))
	return Orientation{
		SingularValue: values[0],
		Axis:          axis,
		Angle:         math.Atan2(axis.Y, axis.X),
	}
}

// ID returns the source label. IDs are not unique within a registry.
func (p *Perception) ID() string { return p.id }

// Point returns the anchor.
func (p *Perception) Point() geo.Point2D { return p.point }

// Region returns the catchment polygon.
func (p *Perception) Region() geo.Polygon { return p.region }

// Cluster returns the label of the sample nearest the anchor.
func (p *Perception) Cluster() int { return p.cluster }

// Samples returns a copy of the samples inside the region.
func (p *Perception) Samples() []Sample { return slices.Clone(p.samples) }

// Len returns the number of samples.
func (p *Perception) Len() int { return len(p.samples) }

// Clusters returns the cluster labels present, ascending.
func (p *Perception) Clusters() []int { return slices.Clone(p.clusters) }

// HasCluster reports whether any sample carries label c.
func (p *Perception) HasCluster(c int) bool {
	_, ok := p.byCluster[c]
	return ok
}

// ClusterSamples returns a copy of the samples labelled c.
func (p *Perception) ClusterSamples(c int) []Sample { return slices.Clone(p.byCluster[c]) }

// SampleCounts returns the number of samples per cluster.
func (p *Perception) SampleCounts() map[int]int {
	out := make(map[int]int, len(p.byCluster))
	for c, ss := range p.byCluster {
		out[c] = len(ss)
	}
	return out
}

// Orientation returns the canonical orientation of cluster c.
func (p *Perception) Orientation(c int) (Orientation, bool) {
	o, ok := p.orientation[c]
	return o, ok
}

// SamplesInPolygon returns the samples inside r.
func (p *Perception) SamplesInPolygon(r geo.Region) []Sample {
	var out []Sample
	for _, s := range p.samples {
		if s.Within(r) {
			out = append(out, s)
		}
	}
	return out
}

// Translate returns the perception moved by d. Orientations are unchanged.
func (p *Perception) Translate(d geo.Point2D) *Perception {
	moved := make([]Sample, len(p.samples))
	for i, s := range p.samples {
		moved[i] = s.Translate(d)
	}
	out, _ := build(p.id, p.point.Translate(d), p.region.Translate(d), moved)
	return out
}

// RotateAround returns the perception rotated by angle about center.
func (p *Perception) RotateAround(center geo.Point2D, angle float64) *Perception {
	moved := make([]Sample, len(p.samples))
	for i, s := range p.samples {
		moved[i] = s.RotateAround(center, angle)
	}
	out, _ := build(p.id, p.point.RotateAround(center, angle), p.region.RotateAround(center, angle), moved)
	return out
}

// Transplant moves the perception from origin's frame into destination's,
// rotated by angle about destination.
func (p *Perception) Transplant(origin, destination geo.Point2D, angle float64) *Perception {
	return geo.Transplant(p, origin, destination, angle)
}

// RotationTo returns the angle that aligns other onto p. The comparison uses
// p's own cluster when both perceptions have it, otherwise the shared
// cluster with the largest smaller-side count. The result lies in
// (-π/2, π/2]; axes are undirected so callers resolve the π ambiguity.
// Perceptions with no shared cluster give 0.
func (p *Perception) RotationTo(other *Perception) float64 {
	c, ok := p.sharedCluster(other)
	if !ok {
		return 0
	}
	return normalizeAxisAngle(p.orientation[c].Angle - other.orientation[c].Angle)
}

func (p *Perception) sharedCluster(other *Perception) (int, bool) {
	if p.HasCluster(p.cluster) && other.HasCluster(p.cluster) {
		return p.cluster, true
	}
	best, bestCount, found := 0, -1, false
	for _, c := range p.clusters {
		if !other.HasCluster(c) {
			continue
		}
		n := min(len(p.byCluster[c]), len(other.byCluster[c]))
		if n > bestCount {
			best, bestCount, found = c, n, true
		}
	}
	return best, found
}

func normalizeAxisAngle(a float64) float64 {
	a = math.Mod(a, math.Pi)
	if a > math.Pi/2 {
		a -= math.Pi
	} else if a <= -math.Pi/2 {
		a += math.Pi
	}
	return a
}

// DistanceTo compares the sample patterns of p and other, with other's
// offsets rotated by rotation. Each cluster contributes an optimal-transport
// cost; a cluster present on one side only is compared against its own
// centroid. The measure is asymmetric.
func (p *Perception) DistanceTo(other *Perception, rotation float64) (float64, error) {
	total := 0.0
	for _, c := range unionSorted(p.clusters, other.clusters) {
		a, inP := p.offsets[c]
		b, inOther := other.offsets[c]

		var pointsA, pointsB []geo.Point2D
		switch {
		case inP && inOther:
			pointsA, pointsB = padToMatch(a, b)
			pointsB = rotateAll(pointsB, rotation)
		case inP:
			pointsA, pointsB = a, repeat(geo.Mean(a), len(a))
		default:
			pointsA, pointsB = b, repeat(geo.Mean(b), len(b))
		}

		d, err := transport.Distance(pointsA, pointsB)
		if err != nil {
			return 0, fmt.Errorf("perception %q cluster %d: %w", p.id, c, err)
		}
		total += d
	}
	return total, nil
}

// DistanceRotationTo resolves the π ambiguity of RotationTo by keeping
// whichever of rotation and rotation+π gives the smaller distance. Ties keep
// the unflipped angle.
func (p *Perception) DistanceRotationTo(other *Perception) (distance, rotation float64, err error) {
	rotation = p.RotationTo(other)
	distance, err = p.DistanceTo(other, rotation)
	if err != nil {
		return 0, 0, err
	}
	flipped, err := p.DistanceTo(other, rotation+math.Pi)
	if err != nil {
		return 0, 0, err
	}
	if flipped < distance {
		return flipped, rotation + math.Pi, nil
	}
	return distance, rotation, nil
}

func padToMatch(a, b []geo.Point2D) ([]geo.Point2D, []geo.Point2D) {
	switch {
	case len(a) < len(b):
		a = append(slices.Clone(a), repeat(geo.Mean(a), len(b)-len(a))...)
	case len(b) < len(a):
		b = append(slices.Clone(b), repeat(geo.Mean(b), len(a)-len(b))...)
	}
	return a, b
}

func repeat(p geo.Point2D, n int) []geo.Point2D {
	out := make([]geo.Point2D, n)
	for i := range out {
		out[i] = p
	}
	return out
}

func rotateAll(pts []geo.Point2D, angle float64) []geo.Point2D {
	if angle == 0 {
		return pts
	}
	out := make([]geo.Point2D, len(pts))
	for i, pt := range pts {
		out[i] = pt.Rotate(angle)
	}
	return out
}

func unionSorted(a, b []int) []int {
	out := slices.Clone(a)
	for _, c := range b {
		if _, found := slices.BinarySearch(a, c); !found {
			out = append(out, c)
		}
	}
	sort.Ints(out)
	return out
}
