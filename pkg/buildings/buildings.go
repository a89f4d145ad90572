// Package buildings aggregates building footprints into development
// attributes for arbitrary sets of regions.
package buildings

import (
	"slices"
	"sync"

	"github.com/ChicagoDave/siteplanner/internal/logging"
	"github.com/ChicagoDave/siteplanner/pkg/attributes"
	"github.com/ChicagoDave/siteplanner/pkg/geo"
)

// containedTolerance is the relative area shortfall under which a clipped
// footprint still counts as fully contained.
const containedTolerance = 1e-9

// Footprint is one building outline with its floor areas.
type Footprint struct {
	ID             string      `json:"id"`
	Polygon        geo.Polygon `json:"polygon"`
	Height         float64     `json:"height"`
	ResidentialGFA float64     `json:"residential_gfa"`
	CommercialGFA  float64     `json:"commercial_gfa"`
	CivicGFA       float64     `json:"civic_gfa"`
	OtherGFA       float64     `json:"other_gfa"`
}

// Attributes returns the footprint's contribution when counted in full.
func (f Footprint) Attributes() attributes.Attributes {
	return attributes.Attributes{
		Height:         f.Height,
		ResidentialGFA: f.ResidentialGFA,
		CommercialGFA:  f.CommercialGFA,
		CivicGFA:       f.CivicGFA,
		OtherGFA:       f.OtherGFA,
		FootprintArea:  f.Polygon.Area(),
	}
}

// clip returns the part of f covering polygon, with floor areas scaled by
// the share of the original footprint it keeps.
func (f Footprint) clip(polygon geo.Polygon, fullArea float64) Footprint {
	r := polygon.Area() / fullArea
	return Footprint{
		ID:             f.ID,
		Polygon:        polygon,
		Height:         f.Height,
		ResidentialGFA: f.ResidentialGFA * r,
		CommercialGFA:  f.CommercialGFA * r,
		CivicGFA:       f.CivicGFA * r,
		OtherGFA:       f.OtherGFA * r,
	}
}

// Translate returns f moved by d.
func (f Footprint) Translate(d geo.Point2D) Footprint {
	f.Polygon = f.Polygon.Translate(d)
	return f
}

// RotateAround returns f rotated by angle about center.
func (f Footprint) RotateAround(center geo.Point2D, angle float64) Footprint {
	f.Polygon = f.Polygon.RotateAround(center, angle)
	return f
}

// Buildings is an immutable footprint set. The spatial index is built on
// first query.
type Buildings struct {
	footprints []Footprint
	log        logging.Logger

	once  sync.Once
	index *geo.Index
}

// Option configures Buildings.
type Option func(*Buildings)

// WithLogger sets the logger used to report skipped footprints.
func WithLogger(l logging.Logger) Option {
	return func(b *Buildings) { b.log = l }
}

// New wraps fs. The slice is not copied; callers must not modify it.
func New(fs []Footprint, opts ...Option) *Buildings {
	b := &Buildings{footprints: fs, log: logging.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Len returns the number of footprints.
func (b *Buildings) Len() int { return len(b.footprints) }

// Footprints returns a copy of the footprints.
func (b *Buildings) Footprints() []Footprint { return slices.Clone(b.footprints) }

// Total sums every footprint in full. SiteArea is left at zero.
func (b *Buildings) Total() attributes.Attributes {
	var out attributes.Attributes
	for _, f := range b.footprints {
		out = out.Accumulate(f.Attributes())
	}
	return out
}

// Transplant returns the set moved from origin's frame into destination's.
func (b *Buildings) Transplant(origin, destination geo.Point2D, angle float64) *Buildings {
	moved := make([]Footprint, len(b.footprints))
	for i, f := range b.footprints {
		moved[i] = geo.Transplant(f, origin, destination, angle)
	}
	return New(moved, WithLogger(b.log))
}

func (b *Buildings) spatialIndex() *geo.Index {
	b.once.Do(func() {
		polys := make([]geo.Polygon, len(b.footprints))
		for i, f := range b.footprints {
			polys[i] = f.Polygon
		}
		b.index = geo.NewPolygonIndex(polys)
	})
	return b.index
}

// Query measures what the footprints deliver inside the union of regions.
// Footprints fully inside count in full; footprints crossing the boundary
// are clipped and their floor areas scaled by the clipped share. SiteArea is
// the summed area of regions. The second result holds the footprints as
// counted, clipped where they were clipped.
func (b *Buildings) Query(regions geo.MultiPolygon) (attributes.Attributes, *Buildings) {
	achieved := attributes.Attributes{SiteArea: regions.Area()}
	region := geo.Union(regions)
	if region.IsEmpty() {
		return achieved, New(nil, WithLogger(b.log))
	}

	var counted []Footprint
	for _, i := range b.spatialIndex().SearchRegion(region) {
		f := b.footprints[i]
		if !f.Polygon.IsValid() {
			b.log.Warn("skipping invalid footprint", logging.String("id", f.ID))
			continue
		}
		full := f.Polygon.Area()
		clipped, err := geo.TryIntersection(geo.MultiPolygon{f.Polygon}, region)
		if err != nil {
			b.log.Warn("skipping footprint the kernel could not clip",
				logging.String("id", f.ID), logging.Err(err))
			continue
		}
		inside := clipped.Area()
		if inside <= 0 {
			continue
		}

		if inside >= full*(1-containedTolerance) {
			counted = append(counted, f)
			achieved = achieved.Accumulate(f.Attributes())
			continue
		}
		for _, part := range clipped {
			c := f.clip(part, full)
			counted = append(counted, c)
			achieved = achieved.Accumulate(c.Attributes())
		}
	}
	return achieved, New(counted, WithLogger(b.log))
}
