// Package analytics derives per-site and per-run figures from generation
// results: how much of each site was filled and how far each quota got.
package analytics

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ChicagoDave/siteplanner/pkg/attributes"
	"github.com/ChicagoDave/siteplanner/pkg/geo"
	"github.com/ChicagoDave/siteplanner/pkg/simulator"
	"github.com/ChicagoDave/siteplanner/pkg/validation"
)

// Summarize describes the result of running one site.
func Summarize(id string, site geo.Polygon, target attributes.Attributes, res *simulator.Result) SiteSummary {
	s := SiteSummary{
		SiteID:         id,
		SiteArea:       site.Area(),
		UnresolvedArea: res.UnresolvedArea(),
		Generations:    len(res.Generations),
		Iterations:     res.Iterations,
		Target:         target,
		Achieved:       res.Achieved,
		Remaining:      res.Target,
		Fulfilment:     fulfilment(target, res.Achieved),
	}

	areas := make([]float64, len(res.Generations))
	scores := make([]float64, len(res.Generations))
	dists := make([]float64, len(res.Generations))
	used := make(map[string]bool)
	for i, g := range res.Generations {
		areas[i] = g.Polygons.Area()
		scores[i] = g.Score
		dists[i] = g.Distance
		used[g.QueryID] = true
	}
	s.GeneratedArea = floats.Sum(areas)
	s.Coverage = ratio(s.GeneratedArea, s.SiteArea)
	if len(res.Generations) > 0 {
		s.MeanScore = stat.Mean(scores, nil)
		s.MeanDistance = stat.Mean(dists, nil)
	}
	s.DistinctMatches = len(used)
	return s
}

// Aggregate totals site summaries and reports on their outcome.
func Aggregate(sites []SiteSummary) (*RunSummary, *validation.Report) {
	report := validation.NewReport()
	run := &RunSummary{Sites: sites}

	siteAreas := make([]float64, len(sites))
	generated := make([]float64, len(sites))
	unresolved := make([]float64, len(sites))
	for i, s := range sites {
		siteAreas[i] = s.SiteArea
		generated[i] = s.GeneratedArea
		unresolved[i] = s.UnresolvedArea
		run.Generations += s.Generations
		run.Target = run.Target.Accumulate(s.Target)
		run.Achieved = run.Achieved.Accumulate(s.Achieved)
	}
	run.SiteArea = floats.Sum(siteAreas)
	run.GeneratedArea = floats.Sum(generated)
	run.UnresolvedArea = floats.Sum(unresolved)
	run.Coverage = ratio(run.GeneratedArea, run.SiteArea)
	run.Fulfilment = fulfilment(run.Target, run.Achieved)

	validateOutcome(run, report)
	return run, report
}

func fulfilment(target, achieved attributes.Attributes) Fulfilment {
	return Fulfilment{
		Height:         quotaRatio(achieved.Height, target.Height),
		ResidentialGFA: quotaRatio(achieved.ResidentialGFA, target.ResidentialGFA),
		CommercialGFA:  quotaRatio(achieved.CommercialGFA, target.CommercialGFA),
		CivicGFA:       quotaRatio(achieved.CivicGFA, target.CivicGFA),
		OtherGFA:       quotaRatio(achieved.OtherGFA, target.OtherGFA),
		FootprintArea:  quotaRatio(achieved.FootprintArea, target.FootprintArea),
	}
}

func quotaRatio(achieved, target float64) float64 {
	if target <= 0 {
		return 1
	}
	return achieved / target
}

func ratio(a, b float64) float64 {
	if b <= 0 {
		return 0
	}
	return a / b
}
