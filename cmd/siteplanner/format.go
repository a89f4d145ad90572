package main

import (
	"fmt"
	"io"

	"github.com/ChicagoDave/siteplanner/pkg/analytics"
	"github.com/ChicagoDave/siteplanner/pkg/pipeline"
	"github.com/ChicagoDave/siteplanner/pkg/validation"
)

func printValidationReport(w io.Writer, r *validation.Report) {
	if len(r.Errors) > 0 {
		fmt.Fprintf(w, "ERRORS (%d):\n", len(r.Errors))
		for _, e := range r.Errors {
			printResult(w, e)
		}
		fmt.Fprintln(w)
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintf(w, "WARNINGS (%d):\n", len(r.Warnings))
		for _, e := range r.Warnings {
			printResult(w, e)
		}
		fmt.Fprintln(w)
	}

	if len(r.Info) > 0 {
		fmt.Fprintf(w, "INFO (%d):\n", len(r.Info))
		for _, i := range r.Info {
			fmt.Fprintf(w, "  [%s] %s\n", i.Level, i.Message)
		}
		fmt.Fprintln(w)
	}

	if r.Valid {
		fmt.Fprintf(w, "Result: VALID (%s)\n", r.Summary)
	} else {
		fmt.Fprintf(w, "Result: INVALID (%s)\n", r.Summary)
	}
}

func printResult(w io.Writer, e validation.Result) {
	fmt.Fprintf(w, "  [%s] %s\n", e.Level, e.Message)
	if e.Path != "" {
		if e.ActualValue != nil {
			fmt.Fprintf(w, "    -> %s = %v\n", e.Path, e.ActualValue)
		} else {
			fmt.Fprintf(w, "    -> %s\n", e.Path)
		}
	}
	if e.Expected != "" {
		fmt.Fprintf(w, "    expected: %s\n", e.Expected)
	}
	for _, s := range e.Suggestions {
		fmt.Fprintf(w, "    * %s\n", s)
	}
}

func printRunSummary(w io.Writer, r *analytics.RunSummary) {
	fmt.Fprintln(w, "Run Summary")
	fmt.Fprintln(w, "===========")
	fmt.Fprintf(w, "%-12s %12s %12s %9s %6s %12s %10s\n",
		"Site", "Area", "Generated", "Coverage", "Gens", "Resid. GFA", "Height")
	for _, s := range r.Sites {
		fmt.Fprintf(w, "%-12s %12s %12s %8.1f%% %6d %12s %10s\n",
			s.SiteID, formatArea(s.SiteArea), formatArea(s.GeneratedArea), s.Coverage*100,
			s.Generations, formatArea(s.Achieved.ResidentialGFA),
			fmt.Sprintf("%.0f/%.0f", s.Achieved.Height, s.Target.Height))
	}
	fmt.Fprintf(w, "%-12s %12s %12s %8.1f%% %6d %12s\n",
		"TOTAL", formatArea(r.SiteArea), formatArea(r.GeneratedArea), r.Coverage*100,
		r.Generations, formatArea(r.Achieved.ResidentialGFA))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Quota fulfilment")
	f := r.Fulfilment
	for _, row := range []struct {
		label string
		v     float64
	}{
		{"Residential GFA", f.ResidentialGFA},
		{"Commercial GFA", f.CommercialGFA},
		{"Civic GFA", f.CivicGFA},
		{"Other GFA", f.OtherGFA},
		{"Footprint", f.FootprintArea},
	} {
		fmt.Fprintf(w, "  %-16s %6.1f%%\n", row.label, row.v*100)
	}
}

func printMatches(w io.Writer, rows []pipeline.MatchRow) {
	fmt.Fprintf(w, "%-12s %-20s %7s %-12s %9s %10s\n",
		"Site", "Anchor", "Cluster", "Query", "Rotation", "Distance")
	for _, r := range rows {
		fmt.Fprintf(w, "%-12s %-20s %7d %-12s %9.3f %10.4f\n",
			r.SiteID, fmt.Sprintf("(%.1f, %.1f)", r.Anchor.X, r.Anchor.Y),
			r.Cluster, r.QueryID, r.Rotation, r.Distance)
	}
	fmt.Fprintf(w, "\n%d site perceptions matched\n", len(rows))
}

func formatArea(v float64) string {
	if v >= 1_000_000 {
		return fmt.Sprintf("%.2fM", v/1_000_000)
	}
	if v >= 10_000 {
		return fmt.Sprintf("%.1fK", v/1_000)
	}
	return fmt.Sprintf("%.0f", v)
}
