package dataset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ChicagoDave/siteplanner/pkg/geo"
	"github.com/ChicagoDave/siteplanner/pkg/perception"
	"github.com/ChicagoDave/siteplanner/pkg/simulator"
	"github.com/ChicagoDave/siteplanner/pkg/spec"
	"github.com/ChicagoDave/siteplanner/pkg/validation"
)

// maxListed caps how many ids a single finding quotes.
const maxListed = 5

// Validate checks loaded inputs against each other, against the project's
// targets and against the generation constants in cfg.
func (in *Inputs) Validate(p *spec.Project, cfg simulator.Config) *validation.Report {
	r := validation.NewReport()

	validateLibraryInputs("query", in.Query, r)
	validateLibraryInputs("site", in.Site, r)
	validateSites(in, cfg, r)
	validateSiteTargets(p, in, r)
	validateBuildings(in, r)

	return r
}

func validateLibraryInputs(name string, lib *Library, r *validation.Report) {
	if len(lib.IDs) == 0 {
		r.AddError(validation.Result{
			Level:   validation.LevelInput,
			Message: fmt.Sprintf("%s library has no point with both a region and a cluster", name),
			Path:    name + ".points",
		})
		return
	}
	if len(lib.Missing) > 0 {
		r.AddWarning(validation.Result{
			Level:       validation.LevelInput,
			Message:     fmt.Sprintf("%s library: %d points lack a region or cluster and are skipped (%s)", name, len(lib.Missing), listIDs(lib.Missing)),
			Path:        name + ".points",
			ActualValue: len(lib.Missing),
		})
	}

	ix := geo.NewPointIndex(perception.Points(lib.Samples))
	var invalid, outside, empty []string
	for i, region := range lib.Regions {
		id := lib.IDs[i]
		if !region.IsValid() {
			invalid = append(invalid, id)
			continue
		}
		if !region.Contains(lib.Points[i]) {
			outside = append(outside, id)
		}
		if !anySampleWithin(ix, lib.Samples, region) {
			empty = append(empty, id)
		}
	}
	if len(invalid) > 0 {
		r.AddError(validation.Result{
			Level:       validation.LevelInput,
			Message:     fmt.Sprintf("%s library: %d regions are degenerate (%s)", name, len(invalid), listIDs(invalid)),
			Path:        name + ".regions",
			ActualValue: len(invalid),
			Expected:    "polygons with at least 3 vertices and positive area",
		})
	}
	if len(outside) > 0 {
		r.AddWarning(validation.Result{
			Level:       validation.LevelInput,
			Message:     fmt.Sprintf("%s library: %d anchors lie outside their own region (%s)", name, len(outside), listIDs(outside)),
			Path:        name + ".regions",
			ActualValue: len(outside),
		})
	}
	if len(empty) > 0 {
		r.AddWarning(validation.Result{
			Level:       validation.LevelInput,
			Message:     fmt.Sprintf("%s library: %d regions contain no sample and are skipped (%s)", name, len(empty), listIDs(empty)),
			Path:        name + ".regions",
			ActualValue: len(empty),
			Suggestions: []string{"Check that regions and points share a coordinate reference system"},
		})
	}
}

func anySampleWithin(ix *geo.Index, samples []perception.Sample, region geo.Polygon) bool {
	for _, i := range ix.SearchRegion(geo.MultiPolygon{region}) {
		if samples[i].Within(region) {
			return true
		}
	}
	return false
}

func validateSites(in *Inputs, cfg simulator.Config, r *validation.Report) {
	if len(in.Sites) == 0 {
		r.AddError(validation.Result{
			Level:   validation.LevelInput,
			Message: "no site polygons",
			Path:    "site.polygons",
		})
		return
	}

	anchors := geo.NewPointIndex(in.Site.Points)
	seen := make(map[string]bool, len(in.Sites))
	for _, s := range in.Sites {
		path := fmt.Sprintf("site.polygons[%s]", s.ID)
		if seen[s.ID] {
			r.AddError(validation.Result{
				Level:   validation.LevelInput,
				Message: fmt.Sprintf("duplicate site id %q", s.ID),
				Path:    path,
			})
		}
		seen[s.ID] = true

		if !s.Polygon.IsValid() {
			r.AddError(validation.Result{
				Level:   validation.LevelInput,
				Message: fmt.Sprintf("site %s is degenerate", s.ID),
				Path:    path,
			})
			continue
		}
		if a := s.Polygon.Area(); a < cfg.MinPolygonArea {
			r.AddWarning(validation.Result{
				Level:       validation.LevelInput,
				Message:     fmt.Sprintf("site %s area %.2f is under the %.2f floor and will stay unresolved", s.ID, a, cfg.MinPolygonArea),
				Path:        path,
				ActualValue: a,
				Expected:    fmt.Sprintf(">= %.2f", cfg.MinPolygonArea),
			})
		}
		if !anchorNear(anchors, in.Site.Points, s.Polygon, cfg.MaxGenerationDistance) {
			r.AddWarning(validation.Result{
				Level:       validation.LevelInput,
				Message:     fmt.Sprintf("site %s has no site anchor within %.0f", s.ID, cfg.MaxGenerationDistance),
				Path:        path,
				Suggestions: []string{"Add site perceptions around the polygon or raise simulator.max_generation_distance"},
			})
		}
	}
}

func anchorNear(ix *geo.Index, pts []geo.Point2D, poly geo.Polygon, distance float64) bool {
	lo, hi := poly.BoundingBox()
	pad := geo.Pt(distance, distance)
	for _, i := range ix.Search(lo.Sub(pad), hi.Add(pad)) {
		if poly.DistanceTo(pts[i]) <= distance {
			return true
		}
	}
	return false
}

func validateSiteTargets(p *spec.Project, in *Inputs, r *validation.Report) {
	known := make(map[string]bool, len(in.Sites))
	for _, s := range in.Sites {
		known[s.ID] = true
	}
	var unknown []string
	for id := range p.Targets.Sites {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) == 0 {
		return
	}
	sort.Strings(unknown)
	r.AddWarning(validation.Result{
		Level:       validation.LevelInput,
		Message:     fmt.Sprintf("targets name %d unknown sites (%s)", len(unknown), listIDs(unknown)),
		Path:        "targets.sites",
		ActualValue: len(unknown),
	})
}

func validateBuildings(in *Inputs, r *validation.Report) {
	var invalid, negative []string
	for _, f := range in.Buildings {
		if !f.Polygon.IsValid() {
			invalid = append(invalid, f.ID)
		}
		if f.Height < 0 || f.ResidentialGFA < 0 || f.CommercialGFA < 0 || f.CivicGFA < 0 || f.OtherGFA < 0 {
			negative = append(negative, f.ID)
		}
	}
	if len(invalid) > 0 {
		r.AddWarning(validation.Result{
			Level:       validation.LevelInput,
			Message:     fmt.Sprintf("%d building footprints are degenerate and will be skipped (%s)", len(invalid), listIDs(invalid)),
			Path:        "query.buildings",
			ActualValue: len(invalid),
		})
	}
	if len(negative) > 0 {
		r.AddError(validation.Result{
			Level:       validation.LevelInput,
			Message:     fmt.Sprintf("%d buildings have negative height or floor area (%s)", len(negative), listIDs(negative)),
			Path:        "query.buildings",
			ActualValue: len(negative),
			Expected:    ">= 0",
		})
	}
}

func listIDs(ids []string) string {
	if len(ids) <= maxListed {
		return strings.Join(ids, ", ")
	}
	return strings.Join(ids[:maxListed], ", ") + fmt.Sprintf(" and %d more", len(ids)-maxListed)
}
