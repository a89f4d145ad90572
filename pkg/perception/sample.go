package perception

import "github.com/ChicagoDave/siteplanner/pkg/geo"

// Sample is a cluster-labelled point observation. Samples are values: two
// samples are equal when both coordinates and cluster match.
type Sample struct {
	Point   geo.Point2D `json:"point" yaml:"point"`
	Cluster int         `json:"cluster" yaml:"cluster"`
}

// NewSample builds a Sample at (x, y).
func NewSample(x, y float64, cluster int) Sample {
	return Sample{Point: geo.Pt(x, y), Cluster: cluster}
}

// Translate returns the sample moved by d.
func (s Sample) Translate(d geo.Point2D) Sample {
	return Sample{Point: s.Point.Translate(d), Cluster: s.Cluster}
}

// RotateAround returns the sample rotated by angle radians about center.
func (s Sample) RotateAround(center geo.Point2D, angle float64) Sample {
	return Sample{Point: s.Point.RotateAround(center, angle), Cluster: s.Cluster}
}

// Within reports whether the sample lies inside r.
func (s Sample) Within(r geo.Region) bool {
	return r.Contains(s.Point)
}

// Points extracts the locations of samples.
func Points(samples []Sample) []geo.Point2D {
	out := make([]geo.Point2D, len(samples))
	for i, s := range samples {
		out[i] = s.Point
	}
	return out
}
