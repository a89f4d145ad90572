// Package collection is the registry of perceptions used on both sides of
// generation: the read-only query library that matches are drawn from, and
// the site registry that grows as matched context is transplanted onto a
// site. Perceptions are addressed by position; ids are labels and may repeat.
package collection

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/ChicagoDave/siteplanner/internal/logging"
	"github.com/ChicagoDave/siteplanner/pkg/geo"
	"github.com/ChicagoDave/siteplanner/pkg/perception"
)

// PerceptionRadius is how far outside the site polygons an anchor may lie and
// still be kept by Filter.
const PerceptionRadius = 100.0

var (
	// ErrArityMismatch is returned when ids, points and regions differ in
	// length.
	ErrArityMismatch = errors.New("collection: ids, points and regions differ in length")
	// ErrEmptyCollection is returned by searches over a collection with no
	// perceptions.
	ErrEmptyCollection = errors.New("collection: no perceptions")
	// ErrNotFound is returned when no perception holds a sample.
	ErrNotFound = errors.New("collection: sample not held by any perception")
)

// Collection is immutable. Update and Filter return new collections. The
// anchor index, sample index and sample ownership map are built on first use.
type Collection struct {
	perceptions []*perception.Perception
	samples     []perception.Sample

	log       logging.Logger
	skipEmpty bool

	anchorOnce sync.Once
	anchors    *geo.Index

	sampleOnce  sync.Once
	sampleIndex *geo.Index

	ownerOnce sync.Once
	owners    map[perception.Sample][]int
}

// Option configures a Collection.
type Option func(*Collection)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Collection) { c.log = l }
}

// WithSkipEmpty makes construction drop perceptions whose region holds no
// sample, logging each, instead of failing.
func WithSkipEmpty() Option {
	return func(c *Collection) { c.skipEmpty = true }
}

func newCollection(samples []perception.Sample, opts ...Option) *Collection {
	c := &Collection{samples: samples, log: logging.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// derive returns an empty collection over samples with c's settings.
func (c *Collection) derive(samples []perception.Sample) *Collection {
	return &Collection{samples: samples, log: c.log, skipEmpty: c.skipEmpty}
}

// FromIDsPointsRegionsSamples builds one perception per (id, point, region)
// from the samples inside each region.
func FromIDsPointsRegionsSamples(ids []string, points []geo.Point2D, regions []geo.Polygon, samples []perception.Sample, opts ...Option) (*Collection, error) {
	c := newCollection(samples, opts...)
	if err := c.add(ids, points, regions); err != nil {
		return nil, err
	}
	return c, nil
}

// add builds perceptions against c's sample pool and appends them.
func (c *Collection) add(ids []string, points []geo.Point2D, regions []geo.Polygon) error {
	if len(ids) != len(points) || len(ids) != len(regions) {
		return fmt.Errorf("%w: %d ids, %d points, %d regions", ErrArityMismatch, len(ids), len(points), len(regions))
	}
	ix := c.samplesIndex()
	for i := range ids {
		var subset []perception.Sample
		for _, j := range ix.SearchRegion(geo.MultiPolygon{regions[i]}) {
			subset = append(subset, c.samples[j])
		}
		p, err := perception.New(ids[i], points[i], regions[i], subset)
		if err != nil {
			if c.skipEmpty && errors.Is(err, perception.ErrEmptyNeighborhood) {
				c.log.Warn("skipping perception with empty neighborhood", logging.String("id", ids[i]))
				continue
			}
			return fmt.Errorf("collection: entry %d: %w", i, err)
		}
		c.perceptions = append(c.perceptions, p)
	}
	return nil
}

// Len returns the number of perceptions.
func (c *Collection) Len() int { return len(c.perceptions) }

// At returns the perception at position i.
func (c *Collection) At(i int) *perception.Perception { return c.perceptions[i] }

// Perceptions returns the perceptions in registry order.
func (c *Collection) Perceptions() []*perception.Perception { return slices.Clone(c.perceptions) }

// Samples returns the sample pool.
func (c *Collection) Samples() []perception.Sample { return slices.Clone(c.samples) }

func (c *Collection) anchorIndex() *geo.Index {
	c.anchorOnce.Do(func() {
		pts := make([]geo.Point2D, len(c.perceptions))
		for i, p := range c.perceptions {
			pts[i] = p.Point()
		}
		c.anchors = geo.NewPointIndex(pts)
	})
	return c.anchors
}

func (c *Collection) samplesIndex() *geo.Index {
	c.sampleOnce.Do(func() {
		c.sampleIndex = geo.NewPointIndex(perception.Points(c.samples))
	})
	return c.sampleIndex
}

func (c *Collection) ownerMap() map[perception.Sample][]int {
	c.ownerOnce.Do(func() {
		c.owners = make(map[perception.Sample][]int)
		for i, p := range c.perceptions {
			for _, s := range p.Samples() {
				c.owners[s] = append(c.owners[s], i)
			}
		}
	})
	return c.owners
}

// Filter keeps the perceptions anchored within PerceptionRadius of any of
// sitePolygons. The sample pool shrinks to the samples those perceptions
// hold.
func (c *Collection) Filter(sitePolygons []geo.Polygon) *Collection {
	keep := make(map[int]bool)
	for _, poly := range sitePolygons {
		for _, i := range c.Near(poly, PerceptionRadius) {
			keep[i] = true
		}
	}

	var kept []*perception.Perception
	var pool []perception.Sample
	seen := make(map[perception.Sample]bool)
	for i, p := range c.perceptions {
		if !keep[i] {
			continue
		}
		kept = append(kept, p)
		for _, s := range p.Samples() {
			if !seen[s] {
				seen[s] = true
				pool = append(pool, s)
			}
		}
	}

	out := c.derive(pool)
	out.perceptions = kept
	c.log.Debug("filtered collection",
		logging.Int("before", c.Len()), logging.Int("after", out.Len()))
	return out
}

// Update returns a collection holding c's perceptions followed by new ones
// built from ids, points and regions. New samples join the pool first, so
// the new perceptions see both existing and new context.
func (c *Collection) Update(ids []string, points []geo.Point2D, regions []geo.Polygon, samples []perception.Sample) (*Collection, error) {
	pool := make([]perception.Sample, 0, len(c.samples)+len(samples))
	pool = append(pool, c.samples...)
	pool = append(pool, samples...)

	out := c.derive(pool)
	out.perceptions = slices.Clone(c.perceptions)
	if err := out.add(ids, points, regions); err != nil {
		return nil, err
	}
	return out, nil
}

// PerceptionFromSample returns the position and perception, among those
// holding s, whose anchor is closest to s.
func (c *Collection) PerceptionFromSample(s perception.Sample) (int, *perception.Perception, error) {
	holders := c.ownerMap()[s]
	if len(holders) == 0 {
		return -1, nil, fmt.Errorf("%w: (%g, %g) cluster %d", ErrNotFound, s.Point.X, s.Point.Y, s.Cluster)
	}
	best := holders[0]
	bestDist := c.perceptions[best].Point().Distance(s.Point)
	for _, i := range holders[1:] {
		if d := c.perceptions[i].Point().Distance(s.Point); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, c.perceptions[best], nil
}

// Near returns the positions of perceptions anchored within distance of
// polygon, ascending.
func (c *Collection) Near(polygon geo.Polygon, distance float64) []int {
	if polygon.IsEmpty() || c.Len() == 0 {
		return nil
	}
	lo, hi := polygon.BoundingBox()
	pad := geo.Pt(distance, distance)
	var out []int
	for _, i := range c.anchorIndex().Search(lo.Sub(pad), hi.Add(pad)) {
		if polygon.DistanceTo(c.perceptions[i].Point()) <= distance {
			out = append(out, i)
		}
	}
	return out
}

// SamplesWithin returns the pool samples inside region, in pool order.
func (c *Collection) SamplesWithin(region geo.MultiPolygon) []perception.Sample {
	var out []perception.Sample
	for _, i := range c.samplesIndex().SearchRegion(region) {
		if c.samples[i].Within(region) {
			out = append(out, c.samples[i])
		}
	}
	return out
}
