package validation

import (
	"fmt"
	"os"
	"sort"

	"github.com/ChicagoDave/siteplanner/pkg/attributes"
	"github.com/ChicagoDave/siteplanner/pkg/spec"
)

// SupportedVersion is the project file version this build reads.
const SupportedVersion = "0.1.0"

// ValidateSchema checks a parsed project for structural problems before
// any input is loaded: version, required input paths and their presence on
// disk, target values and output settings.
func ValidateSchema(p *spec.Project) *Report {
	r := NewReport()

	validateVersion(p, r)
	validateLibrary(p, "query", p.Query, r)
	validateLibrary(p, "site", p.Site.LibraryDef, r)
	validateInputFile(p, "site.polygons", p.Site.Polygons, true, r)
	validateBuildingsPath(p, r)
	validateTargets(p, r)
	validateOutput(p, r)

	return r
}

func validateVersion(p *spec.Project, r *Report) {
	switch p.SpecVersion {
	case SupportedVersion:
	case "":
		r.AddError(Result{
			Level:    LevelSchema,
			Message:  "spec_version is required",
			Path:     "spec_version",
			Expected: SupportedVersion,
		})
	default:
		r.AddWarning(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("spec_version %q is not %q; fields may be ignored", p.SpecVersion, SupportedVersion),
			Path:        "spec_version",
			ActualValue: p.SpecVersion,
			Expected:    SupportedVersion,
		})
	}
}

func validateLibrary(p *spec.Project, prefix string, lib spec.LibraryDef, r *Report) {
	validateInputFile(p, prefix+".points", lib.Points, true, r)
	validateInputFile(p, prefix+".regions", lib.Regions, true, r)
	validateInputFile(p, prefix+".clusters", lib.Clusters, true, r)
}

func validateBuildingsPath(p *spec.Project, r *Report) {
	if p.Query.Buildings == "" {
		r.AddWarning(Result{
			Level:       LevelSchema,
			Message:     "query.buildings is not set; every match will achieve zero floor area",
			Path:        "query.buildings",
			Suggestions: []string{"Point query.buildings at a GeoJSON file of footprints with height and GFA properties"},
		})
	} else {
		validateInputFile(p, "query.buildings", p.Query.Buildings, false, r)
	}
	if p.Site.Buildings != "" {
		r.AddInfo(Result{
			Level:   LevelSchema,
			Message: "site.buildings is ignored; achieved attributes come from the query library",
			Path:    "site.buildings",
		})
	}
}

func validateInputFile(p *spec.Project, path, value string, required bool, r *Report) {
	if value == "" {
		if required {
			r.AddError(Result{
				Level:   LevelSchema,
				Message: fmt.Sprintf("%s is required", path),
				Path:    path,
			})
		}
		return
	}
	resolved := p.Resolve(value)
	info, err := os.Stat(resolved)
	switch {
	case err != nil:
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("%s: cannot read %s", path, resolved),
			Path:        path,
			ActualValue: value,
			Suggestions: []string{"Input paths are resolved against the project directory"},
		})
	case info.IsDir():
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("%s: %s is a directory", path, resolved),
			Path:        path,
			ActualValue: value,
		})
	}
}

func validateTargets(p *spec.Project, r *Report) {
	validateTarget("targets.default", p.Targets.Default, r)
	if p.Targets.Default.IsZero() {
		r.AddInfo(Result{
			Level:   LevelSchema,
			Message: "targets.default is empty; sites without their own target are matched on form alone",
			Path:    "targets.default",
		})
	}

	ids := make([]string, 0, len(p.Targets.Sites))
	for id := range p.Targets.Sites {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		validateTarget(fmt.Sprintf("targets.sites.%s", id), p.Targets.Sites[id], r)
	}
}

func validateTarget(path string, a attributes.Attributes, r *Report) {
	fields := []struct {
		name  string
		value float64
	}{
		{"height", a.Height},
		{"residential_gfa", a.ResidentialGFA},
		{"commercial_gfa", a.CommercialGFA},
		{"civic_gfa", a.CivicGFA},
		{"other_gfa", a.OtherGFA},
		{"footprint_area", a.FootprintArea},
		{"site_area", a.SiteArea},
	}
	for _, f := range fields {
		if f.value < 0 {
			r.AddError(Result{
				Level:       LevelSchema,
				Message:     fmt.Sprintf("%s.%s must be non-negative", path, f.name),
				Path:        path + "." + f.name,
				ActualValue: f.value,
				Expected:    ">= 0",
			})
		}
	}
	if a.SiteArea > 0 && a.FootprintArea > a.SiteArea {
		r.AddWarning(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("%s: footprint_area %.0f exceeds site_area %.0f", path, a.FootprintArea, a.SiteArea),
			Path:        path + ".footprint_area",
			ActualValue: a.FootprintArea,
			Expected:    fmt.Sprintf("<= %.0f", a.SiteArea),
		})
	}
}

func validateOutput(p *spec.Project, r *Report) {
	if p.Output.SimplifyTolerance < 0 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     "output.simplify_tolerance must be non-negative",
			Path:        "output.simplify_tolerance",
			ActualValue: p.Output.SimplifyTolerance,
			Expected:    ">= 0",
		})
	}
}
