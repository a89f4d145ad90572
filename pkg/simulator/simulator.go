// Package simulator grows a layout over a site polygon. Each step splits the
// pending polygon among nearby site perceptions, asks the query library for
// the best-fitting match in every part, transplants the matched context onto
// the site and queues whatever the matches left uncovered.
package simulator

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/ChicagoDave/siteplanner/internal/logging"
	"github.com/ChicagoDave/siteplanner/pkg/attributes"
	"github.com/ChicagoDave/siteplanner/pkg/buildings"
	"github.com/ChicagoDave/siteplanner/pkg/cluster"
	"github.com/ChicagoDave/siteplanner/pkg/collection"
	"github.com/ChicagoDave/siteplanner/pkg/geo"
	"github.com/ChicagoDave/siteplanner/pkg/perception"
)

// Config holds the generation constants.
type Config struct {
	// MinPolygonArea is the resolution floor: smaller pending polygons are
	// dropped.
	MinPolygonArea float64 `mapstructure:"min_polygon_area" yaml:"min_polygon_area"`
	// MaxGenerationDistance bounds how far a site anchor may lie from a
	// pending polygon and still drive it.
	MaxGenerationDistance float64 `mapstructure:"max_generation_distance" yaml:"max_generation_distance"`
	// DedupeRadius and DedupeMinPoints parameterise the density grouping that
	// merges near-coincident anchors.
	DedupeRadius    float64 `mapstructure:"dedupe_radius" yaml:"dedupe_radius"`
	DedupeMinPoints int     `mapstructure:"dedupe_min_points" yaml:"dedupe_min_points"`
	// MaxIterations caps the queue loop. Zero means no cap.
	MaxIterations int `mapstructure:"max_iterations" yaml:"max_iterations"`
	// Workers bounds concurrent matching within one step.
	Workers int `mapstructure:"workers" yaml:"workers"`
}

// DefaultConfig returns the standard constants.
func DefaultConfig() Config {
	return Config{
		MinPolygonArea:        10,
		MaxGenerationDistance: 100,
		DedupeRadius:          1,
		DedupeMinPoints:       1,
		MaxIterations:         10000,
		Workers:               runtime.NumCPU(),
	}
}

// Generator drives one match: a site perception, the part of the pending
// polygon it owns and that part's share of the target.
type Generator struct {
	Perception *perception.Perception
	Polygon    geo.Polygon
	Target     attributes.Attributes
}

// Generation records one transplant. Polygons, Buildings and Samples are in
// the site frame.
type Generation struct {
	QueryID    string                `json:"query_id"`
	QueryPoint geo.Point2D           `json:"query_point"`
	SiteID     string                `json:"site_id"`
	SitePoint  geo.Point2D           `json:"site_point"`
	Rotation   float64               `json:"rotation"`
	Polygons   geo.MultiPolygon      `json:"polygons"`
	Achieved   attributes.Attributes `json:"achieved"`
	Buildings  *buildings.Buildings  `json:"-"`
	Samples    []perception.Sample   `json:"samples"`
	Target     attributes.Attributes `json:"target"`
	Score      float64               `json:"score"`
	Distance   float64               `json:"distance"`
}

// Step is the outcome of one Generate call.
type Step struct {
	Generations []Generation
	Leftovers   []geo.Polygon
	Collection  *collection.Collection
	Target      attributes.Attributes
	Achieved    attributes.Attributes
}

// Result is the outcome of Run.
type Result struct {
	Generations []Generation
	// Unresolved holds polygons no match could reduce: those under the area
	// floor, those that came back unchanged and any left when the iteration
	// cap was hit.
	Unresolved []geo.Polygon
	Collection *collection.Collection
	Target     attributes.Attributes
	Achieved   attributes.Attributes
	Iterations int
}

// GeneratedArea sums the area of every generated polygon.
func (r *Result) GeneratedArea() float64 {
	total := 0.0
	for _, g := range r.Generations {
		total += g.Polygons.Area()
	}
	return total
}

// UnresolvedArea sums the area of the unresolved polygons.
func (r *Result) UnresolvedArea() float64 {
	return geo.MultiPolygon(r.Unresolved).Area()
}

// Simulator matches against a fixed query library and its buildings.
type Simulator struct {
	query     *collection.Collection
	buildings *buildings.Buildings
	cfg       Config
	log       logging.Logger
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Simulator) { s.log = l }
}

// New returns a Simulator drawing matches from query and achieved
// attributes from b.
func New(query *collection.Collection, b *buildings.Buildings, cfg Config, opts ...Option) *Simulator {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	s := &Simulator{query: query, buildings: b, cfg: cfg, log: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run fills site until no pending polygon remains. The site collection and
// target are threaded through every step; neither input is modified.
func (s *Simulator) Run(ctx context.Context, site geo.Polygon, target attributes.Attributes, siteCollection *collection.Collection) (*Result, error) {
	res := &Result{Collection: siteCollection, Target: target}
	queue := []geo.Polygon{site}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.cfg.MaxIterations > 0 && res.Iterations >= s.cfg.MaxIterations {
			s.log.Warn("iteration cap reached",
				logging.Int("iterations", res.Iterations), logging.Int("pending", len(queue)))
			res.Unresolved = append(res.Unresolved, queue...)
			break
		}

		p := queue[0]
		queue = queue[1:]
		res.Iterations++

		area := p.Area()
		if area < s.cfg.MinPolygonArea {
			s.log.Debug("dropping polygon under area floor", logging.Float64("area", area))
			res.Unresolved = append(res.Unresolved, p)
			continue
		}

		step, err := s.Generate(ctx, p, res.Collection, res.Target)
		if err != nil {
			return nil, err
		}
		res.Generations = append(res.Generations, step.Generations...)
		res.Collection = step.Collection
		res.Target = step.Target
		res.Achieved = res.Achieved.Accumulate(step.Achieved)

		for _, l := range step.Leftovers {
			if l.IsEmpty() {
				continue
			}
			if sameArea(l.Area(), area) {
				res.Unresolved = append(res.Unresolved, l)
				continue
			}
			queue = append(queue, l)
		}
		s.log.Debug("step done",
			logging.Int("iteration", res.Iterations),
			logging.Int("generations", len(step.Generations)),
			logging.Int("pending", len(queue)))
	}

	s.log.Info("run done",
		logging.Int("iterations", res.Iterations),
		logging.Int("generations", len(res.Generations)),
		logging.Float64("generated_area", res.GeneratedArea()),
		logging.Float64("unresolved_area", res.UnresolvedArea()))
	return res, nil
}

// progressTolerance is the relative area change under which a leftover
// counts as its unchanged parent.
const progressTolerance = 1e-6

// coincidentTolerance is the distance under which two anchors are one seed.
const coincidentTolerance = 1e-9

// sameArea reports whether a leftover is the polygon it came from. Leftovers
// are always subsets of their parent, so equal area means no progress.
func sameArea(a, b float64) bool {
	return math.Abs(a-b) <= progressTolerance*math.Max(1, b)
}

// Generate runs one step over polygon p. Matching runs concurrently across
// generators; transplanting runs afterwards in generator order so the
// consumed-sample set and the result do not depend on scheduling.
func (s *Simulator) Generate(ctx context.Context, p geo.Polygon, siteCollection *collection.Collection, target attributes.Attributes) (*Step, error) {
	gens := s.FindGenerators(p, siteCollection, target)
	if len(gens) == 0 {
		s.log.Debug("no site perception near polygon", logging.Float64("area", p.Area()))
		return &Step{Leftovers: []geo.Polygon{p}, Collection: siteCollection, Target: target}, nil
	}

	matches := make([]collection.Match, len(gens))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, gen := range gens {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, err := s.query.Query(gen.Perception, geo.MultiPolygon{gen.Polygon}, s.buildings, gen.Target)
			if err != nil {
				return fmt.Errorf("simulator: matching site perception %q: %w", gen.Perception.ID(), err)
			}
			matches[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var (
		staged    stagedPerceptions
		leftovers geo.MultiPolygon
		out       []Generation
		achieved  attributes.Attributes
		consumed  = make(map[perception.Sample]bool)
	)
	for i, gen := range gens {
		m := matches[i]
		if m.Polygons.IsEmpty() || m.Polygons.Area() <= progressTolerance*gen.Polygon.Area() {
			leftovers = append(leftovers, gen.Polygon)
			continue
		}

		src, dst := m.Perception.Point(), gen.Perception.Point()
		back := geo.Retract(m.Polygons, src, dst, m.Rotation)
		var captured []perception.Sample
		for _, qs := range s.query.SamplesWithin(back) {
			if consumed[qs] {
				continue
			}
			consumed[qs] = true
			_, owner, err := s.query.PerceptionFromSample(qs)
			if err != nil {
				s.log.Debug("sample has no owner", logging.Err(err))
				continue
			}
			captured = append(captured, staged.transplant(owner, qs, src, dst, m.Rotation))
		}

		leftovers = append(leftovers, geo.Difference(geo.MultiPolygon{gen.Polygon}, m.Polygons)...)
		achieved = achieved.Accumulate(m.Achieved)
		out = append(out, Generation{
			QueryID:    m.Perception.ID(),
			QueryPoint: src,
			SiteID:     gen.Perception.ID(),
			SitePoint:  dst,
			Rotation:   m.Rotation,
			Polygons:   m.Polygons,
			Achieved:   m.Achieved,
			Buildings:  m.Buildings.Transplant(src, dst, m.Rotation),
			Samples:    captured,
			Target:     gen.Target,
			Score:      m.Score,
			Distance:   m.Distance,
		})
	}

	grown, err := siteCollection.Update(staged.ids, staged.points, staged.regions, staged.samples)
	if err != nil {
		return nil, fmt.Errorf("simulator: growing site collection: %w", err)
	}
	return &Step{
		Generations: out,
		Leftovers:   geo.Union(leftovers),
		Collection:  grown,
		Target:      target.Subtract(achieved),
		Achieved:    achieved,
	}, nil
}

type stagedPerceptions struct {
	ids     []string
	points  []geo.Point2D
	regions []geo.Polygon
	samples []perception.Sample
}

// transplant stages s under a copy of its owner moved from src to dst and
// returns the moved sample. The owner held s, so the moved sample is kept
// even when rotation drift puts it on the far side of a region edge.
func (st *stagedPerceptions) transplant(owner *perception.Perception, s perception.Sample, src, dst geo.Point2D, rotation float64) perception.Sample {
	moved := geo.Transplant(s, src, dst, rotation)
	st.add(owner.ID(),
		geo.Transplant(owner.Point(), src, dst, rotation),
		geo.Transplant(owner.Region(), src, dst, rotation),
		moved)
	return moved
}

func (st *stagedPerceptions) add(id string, point geo.Point2D, region geo.Polygon, s perception.Sample) {
	st.ids = append(st.ids, id)
	st.points = append(st.points, point)
	st.regions = append(st.regions, region)
	st.samples = append(st.samples, s)
}

// FindGenerators splits p among the site perceptions anchored within
// MaxGenerationDistance of it. Near-coincident anchors of the same cluster
// are merged first, and anchors on the same point keep only the first. With one anchor left it drives all of p; otherwise p is
// divided by the Voronoi diagram of the anchors and each part gets the
// target share matching its area.
func (s *Simulator) FindGenerators(p geo.Polygon, siteCollection *collection.Collection, target attributes.Attributes) []Generator {
	reps := s.representatives(siteCollection, siteCollection.Near(p, s.cfg.MaxGenerationDistance))
	switch len(reps) {
	case 0:
		return nil
	case 1:
		return []Generator{{Perception: siteCollection.At(reps[0]), Polygon: p, Target: target}}
	}

	seeds := make([]geo.Point2D, len(reps))
	for i, r := range reps {
		seeds[i] = siteCollection.At(r).Point()
	}
	total := p.Area()
	var gens []Generator
	for i, cell := range geo.VoronoiWithin(seeds, p) {
		for _, part := range cell {
			a := part.Area()
			if a <= 0 {
				continue
			}
			gens = append(gens, Generator{
				Perception: siteCollection.At(reps[i]),
				Polygon:    part,
				Target:     target.Ratio(a / total),
			})
		}
	}
	if len(gens) == 0 {
		return []Generator{{Perception: siteCollection.At(reps[0]), Polygon: p, Target: target}}
	}
	return gens
}

// representatives groups the perceptions at positions by cluster, merges
// near-coincident anchors within each group, then drops anchors that
// coincide across groups. Surviving positions are in ascending order.
func (s *Simulator) representatives(c *collection.Collection, positions []int) []int {
	byCluster := make(map[int][]int)
	for _, i := range positions {
		k := c.At(i).Cluster()
		byCluster[k] = append(byCluster[k], i)
	}

	params := cluster.Params{Eps: s.cfg.DedupeRadius, MinPts: s.cfg.DedupeMinPoints}
	var reps []int
	for _, members := range byCluster {
		pts := make([]geo.Point2D, len(members))
		for k, i := range members {
			pts[k] = c.At(i).Point()
		}
		for _, k := range cluster.Representatives(pts, cluster.DBSCAN(pts, params)) {
			reps = append(reps, members[k])
		}
	}
	slices.Sort(reps)
	return dropCoincident(c, reps)
}

// dropCoincident keeps the first of any anchors that sit on the same point,
// whatever their cluster. Coincident seeds would share one Voronoi cell.
func dropCoincident(c *collection.Collection, reps []int) []int {
	out := reps[:0]
	for _, i := range reps {
		p := c.At(i).Point()
		if !slices.ContainsFunc(out, func(j int) bool {
			return c.At(j).Point().Distance(p) <= coincidentTolerance
		}) {
			out = append(out, i)
		}
	}
	return out
}
