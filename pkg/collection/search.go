package collection

import (
	"fmt"
	"math"
	"sort"

	"github.com/ChicagoDave/siteplanner/pkg/attributes"
	"github.com/ChicagoDave/siteplanner/pkg/buildings"
	"github.com/ChicagoDave/siteplanner/pkg/geo"
	"github.com/ChicagoDave/siteplanner/pkg/perception"
)

// NumConsidered is how many quota-ranked candidates Query re-ranks by
// pattern distance.
const NumConsidered = 20

// Similar is the result of FindSimilar. Rotation aligns the matched
// perception onto the query.
type Similar struct {
	Index      int
	Perception *perception.Perception
	Rotation   float64
	Distance   float64
}

// Match is the result of Query. Polygons are in the query perception's frame
// (the site); Buildings are in the matched perception's frame.
type Match struct {
	Index      int
	Perception *perception.Perception
	Rotation   float64
	Polygons   geo.MultiPolygon
	Achieved   attributes.Attributes
	Buildings  *buildings.Buildings
	Score      float64
	Distance   float64
}

// candidates returns the positions of perceptions whose cluster matches q's,
// or every position when none does.
func (c *Collection) candidates(q *perception.Perception) []int {
	var out []int
	for i, p := range c.perceptions {
		if p.Cluster() == q.Cluster() {
			out = append(out, i)
		}
	}
	if len(out) == 0 {
		out = make([]int, len(c.perceptions))
		for i := range out {
			out[i] = i
		}
	}
	return out
}

// FindSimilar returns the perception whose sample pattern is closest to q's
// after rotation.
func (c *Collection) FindSimilar(q *perception.Perception) (Similar, error) {
	if c.Len() == 0 {
		return Similar{}, ErrEmptyCollection
	}
	best := Similar{Index: -1, Distance: math.Inf(1)}
	for _, i := range c.candidates(q) {
		p := c.perceptions[i]
		d, rot, err := q.DistanceRotationTo(p)
		if err != nil {
			return Similar{}, fmt.Errorf("collection: comparing %q: %w", p.ID(), err)
		}
		if d < best.Distance {
			best = Similar{Index: i, Perception: p, Rotation: rot, Distance: d}
		}
	}
	return best, nil
}

// Query finds the perception best suited to fill region around q. Every
// candidate's region is transplanted onto q's anchor and clipped to region;
// the buildings under the clipped area, taken in the candidate's own frame,
// give what it can achieve. Candidates are ranked by how close that is to
// target, and the best NumConsidered are re-ranked by pattern distance to
// q, resolving the π ambiguity of the alignment.
func (c *Collection) Query(q *perception.Perception, region geo.MultiPolygon, b *buildings.Buildings, target attributes.Attributes) (Match, error) {
	if c.Len() == 0 {
		return Match{}, ErrEmptyCollection
	}

	idx := c.candidates(q)
	ranked := make([]Match, len(idx))
	for k, i := range idx {
		ranked[k] = c.evaluate(i, q, q.RotationTo(c.perceptions[i]), region, b, target)
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score < ranked[j].Score })
	if len(ranked) > NumConsidered {
		ranked = ranked[:NumConsidered]
	}

	best := Match{Index: -1, Distance: math.Inf(1)}
	for _, m := range ranked {
		p := m.Perception
		d, err := p.DistanceTo(q, -m.Rotation)
		if err != nil {
			return Match{}, fmt.Errorf("collection: comparing %q: %w", p.ID(), err)
		}
		flipped, err := p.DistanceTo(q, -(m.Rotation + math.Pi))
		if err != nil {
			return Match{}, fmt.Errorf("collection: comparing %q: %w", p.ID(), err)
		}
		if flipped < d {
			if flipped >= best.Distance {
				continue
			}
			m = c.evaluate(m.Index, q, m.Rotation+math.Pi, region, b, target)
			d = flipped
		}
		if d < best.Distance {
			m.Distance = d
			best = m
		}
	}
	return best, nil
}

// evaluate transplants candidate i onto q at rotation and measures what it
// achieves inside region.
func (c *Collection) evaluate(i int, q *perception.Perception, rotation float64, region geo.MultiPolygon, b *buildings.Buildings, target attributes.Attributes) Match {
	p := c.perceptions[i]
	m := Match{Index: i, Perception: p, Rotation: rotation}

	moved := geo.Transplant(geo.MultiPolygon{p.Region()}, p.Point(), q.Point(), rotation)
	m.Polygons = geo.Intersection(moved, region)
	if m.Polygons.IsEmpty() {
		m.Achieved = attributes.WithMaxHeight(target)
		m.Buildings = buildings.New(nil)
	} else {
		source := geo.Retract(m.Polygons, p.Point(), q.Point(), rotation)
		m.Achieved, m.Buildings = b.Query(source)
	}
	m.Score = target.DistanceTo(m.Achieved)
	return m
}
