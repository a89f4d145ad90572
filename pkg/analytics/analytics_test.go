package analytics

import (
	"math"
	"strings"
	"testing"

	"github.com/ChicagoDave/siteplanner/pkg/attributes"
	"github.com/ChicagoDave/siteplanner/pkg/geo"
	"github.com/ChicagoDave/siteplanner/pkg/simulator"
	"github.com/ChicagoDave/siteplanner/pkg/validation"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

var site = geo.Rect(geo.Pt(0, 0), geo.Pt(40, 25))

func sampleResult() *simulator.Result {
	return &simulator.Result{
		Generations: []simulator.Generation{
			{
				QueryID:  "q1",
				Polygons: geo.MultiPolygon{geo.Rect(geo.Pt(0, 0), geo.Pt(20, 25))},
				Achieved: attributes.Attributes{Height: 25, ResidentialGFA: 300, FootprintArea: 100},
				Score:    2,
				Distance: 1,
			},
			{
				QueryID:  "q1",
				Polygons: geo.MultiPolygon{geo.Rect(geo.Pt(20, 0), geo.Pt(30, 25))},
				Achieved: attributes.Attributes{Height: 20, ResidentialGFA: 100, FootprintArea: 50},
				Score:    4,
				Distance: 3,
			},
		},
		Unresolved: []geo.Polygon{geo.Rect(geo.Pt(30, 0), geo.Pt(40, 25))},
		Achieved:   attributes.Attributes{Height: 25, ResidentialGFA: 400, FootprintArea: 150},
		Target:     attributes.Attributes{Height: 30, ResidentialGFA: 100, FootprintArea: 50},
		Iterations: 3,
	}
}

func TestSummarize(t *testing.T) {
	target := attributes.Attributes{Height: 30, ResidentialGFA: 500, FootprintArea: 200}
	s := Summarize("12", site, target, sampleResult())

	if s.SiteID != "12" {
		t.Errorf("SiteID = %q", s.SiteID)
	}
	if !approxEqual(s.SiteArea, 1000, 1e-9) {
		t.Errorf("SiteArea = %v, want 1000", s.SiteArea)
	}
	if !approxEqual(s.GeneratedArea, 750, 1e-9) {
		t.Errorf("GeneratedArea = %v, want 750", s.GeneratedArea)
	}
	if !approxEqual(s.UnresolvedArea, 250, 1e-9) {
		t.Errorf("UnresolvedArea = %v, want 250", s.UnresolvedArea)
	}
	if !approxEqual(s.Coverage, 0.75, 1e-12) {
		t.Errorf("Coverage = %v, want 0.75", s.Coverage)
	}
	if s.Generations != 2 || s.Iterations != 3 {
		t.Errorf("Generations/Iterations = %d/%d, want 2/3", s.Generations, s.Iterations)
	}
	if !approxEqual(s.Fulfilment.ResidentialGFA, 0.8, 1e-12) {
		t.Errorf("ResidentialGFA fulfilment = %v, want 0.8", s.Fulfilment.ResidentialGFA)
	}
	if !approxEqual(s.Fulfilment.FootprintArea, 0.75, 1e-12) {
		t.Errorf("FootprintArea fulfilment = %v, want 0.75", s.Fulfilment.FootprintArea)
	}
	if s.Fulfilment.CivicGFA != 1 {
		t.Errorf("untargeted quota fulfilment = %v, want 1", s.Fulfilment.CivicGFA)
	}
	if !approxEqual(s.MeanScore, 3, 1e-12) || !approxEqual(s.MeanDistance, 2, 1e-12) {
		t.Errorf("MeanScore/MeanDistance = %v/%v, want 3/2", s.MeanScore, s.MeanDistance)
	}
	if s.DistinctMatches != 1 {
		t.Errorf("DistinctMatches = %d, want 1", s.DistinctMatches)
	}
	if s.Remaining.ResidentialGFA != 100 {
		t.Errorf("Remaining = %+v", s.Remaining)
	}
}

func TestSummarizeEmptyResult(t *testing.T) {
	s := Summarize("0", site, attributes.Zero(), &simulator.Result{Unresolved: []geo.Polygon{site}})
	if s.GeneratedArea != 0 || s.Coverage != 0 || s.MeanScore != 0 {
		t.Errorf("empty result summary = %+v", s)
	}
}

func TestAggregate(t *testing.T) {
	a := Summarize("a", site, attributes.Attributes{Height: 30, ResidentialGFA: 500}, sampleResult())
	b := Summarize("b", site, attributes.Attributes{Height: 10, ResidentialGFA: 500}, sampleResult())

	run, report := Aggregate([]SiteSummary{a, b})

	if !approxEqual(run.SiteArea, 2000, 1e-9) || !approxEqual(run.GeneratedArea, 1500, 1e-9) {
		t.Errorf("areas = %v/%v, want 2000/1500", run.SiteArea, run.GeneratedArea)
	}
	if !approxEqual(run.Coverage, 0.75, 1e-12) {
		t.Errorf("Coverage = %v, want 0.75", run.Coverage)
	}
	if run.Generations != 4 {
		t.Errorf("Generations = %d, want 4", run.Generations)
	}
	if run.Target.Height != 30 || run.Target.ResidentialGFA != 1000 {
		t.Errorf("Target = %+v", run.Target)
	}
	if !approxEqual(run.Fulfilment.ResidentialGFA, 0.8, 1e-12) {
		t.Errorf("run fulfilment = %v, want 0.8", run.Fulfilment.ResidentialGFA)
	}

	if !report.Valid {
		t.Errorf("outcome findings never invalidate, got %v", report.Errors)
	}
	// Site b is capped at 10 but reached 25.
	found := false
	for _, w := range report.Warnings {
		if w.Path == "sites.b.height" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected height warning for site b, got %v", report.Warnings)
	}
}

func TestAggregateReportsLowCoverage(t *testing.T) {
	empty := Summarize("dry", site, attributes.Zero(), &simulator.Result{Unresolved: []geo.Polygon{site}})
	res := sampleResult()
	res.Generations = res.Generations[1:]
	low := Summarize("low", site, attributes.Zero(), res)

	_, report := Aggregate([]SiteSummary{empty, low})

	var msgs []string
	for _, w := range report.Warnings {
		if w.Level != validation.LevelOutcome {
			t.Errorf("unexpected level %q", w.Level)
		}
		msgs = append(msgs, w.Message)
	}
	joined := strings.Join(msgs, "\n")
	if !strings.Contains(joined, "site dry: nothing was generated") {
		t.Errorf("missing empty-site warning in %q", joined)
	}
	if !strings.Contains(joined, "site low: only 25.0%") {
		t.Errorf("missing low-coverage warning in %q", joined)
	}
}

func TestAggregateEmpty(t *testing.T) {
	run, report := Aggregate(nil)
	if run.Coverage != 0 || len(report.Info) != 0 {
		t.Errorf("empty aggregate = %+v, %v", run, report)
	}
}
