package analytics

import (
	"fmt"
	"strings"

	"github.com/ChicagoDave/siteplanner/pkg/validation"
)

const (
	// LowCoverage is the share of a site under which its coverage is
	// reported as a warning.
	LowCoverage = 0.5
	// fulfilledAt treats ratios this close to 1 as met.
	fulfilledAt = 1 - 1e-6
)

// validateOutcome runs the post-run checks.
func validateOutcome(run *RunSummary, report *validation.Report) {
	for _, s := range run.Sites {
		validateCoverage(s, report)
		validateHeight(s, report)
		validateQuotas(s, report)
	}
	if len(run.Sites) > 0 {
		report.AddInfo(validation.Result{
			Level:       validation.LevelOutcome,
			Message:     fmt.Sprintf("%d sites, %d generations, %.1f%% of site area generated", len(run.Sites), run.Generations, 100*run.Coverage),
			Path:        "run",
			ActualValue: run.Coverage,
		})
	}
}

func validateCoverage(s SiteSummary, report *validation.Report) {
	path := "sites." + s.SiteID
	switch {
	case s.Generations == 0:
		report.AddWarning(validation.Result{
			Level:       validation.LevelOutcome,
			Message:     fmt.Sprintf("site %s: nothing was generated", s.SiteID),
			Path:        path,
			Suggestions: []string{"Check that site perceptions lie near the polygon and share clusters with the query library"},
		})
	case s.Coverage < LowCoverage:
		report.AddWarning(validation.Result{
			Level:       validation.LevelOutcome,
			Message:     fmt.Sprintf("site %s: only %.1f%% of the area was generated", s.SiteID, 100*s.Coverage),
			Path:        path,
			ActualValue: s.Coverage,
			Expected:    fmt.Sprintf(">= %.0f%%", 100*LowCoverage),
		})
	case s.UnresolvedArea > 0:
		report.AddInfo(validation.Result{
			Level:       validation.LevelOutcome,
			Message:     fmt.Sprintf("site %s: %.2f of %.2f left unresolved", s.SiteID, s.UnresolvedArea, s.SiteArea),
			Path:        path,
			ActualValue: s.UnresolvedArea,
		})
	}
}

func validateHeight(s SiteSummary, report *validation.Report) {
	if s.Target.Height > 0 && s.Achieved.Height > s.Target.Height {
		report.AddWarning(validation.Result{
			Level:       validation.LevelOutcome,
			Message:     fmt.Sprintf("site %s: tallest building %.1f exceeds the %.1f height limit", s.SiteID, s.Achieved.Height, s.Target.Height),
			Path:        "sites." + s.SiteID + ".height",
			ActualValue: s.Achieved.Height,
			Expected:    fmt.Sprintf("<= %.1f", s.Target.Height),
		})
	}
}

func validateQuotas(s SiteSummary, report *validation.Report) {
	quotas := []struct {
		name   string
		target float64
		ratio  float64
	}{
		{"residential_gfa", s.Target.ResidentialGFA, s.Fulfilment.ResidentialGFA},
		{"commercial_gfa", s.Target.CommercialGFA, s.Fulfilment.CommercialGFA},
		{"civic_gfa", s.Target.CivicGFA, s.Fulfilment.CivicGFA},
		{"other_gfa", s.Target.OtherGFA, s.Fulfilment.OtherGFA},
		{"footprint_area", s.Target.FootprintArea, s.Fulfilment.FootprintArea},
	}
	var short []string
	for _, q := range quotas {
		if q.target > 0 && q.ratio < fulfilledAt {
			short = append(short, fmt.Sprintf("%s %.0f%%", q.name, 100*q.ratio))
		}
	}
	if len(short) == 0 {
		return
	}
	report.AddInfo(validation.Result{
		Level:   validation.LevelOutcome,
		Message: fmt.Sprintf("site %s: quotas short of target: %s", s.SiteID, strings.Join(short, ", ")),
		Path:    "sites." + s.SiteID,
	})
}
