package analytics

import "github.com/ChicagoDave/siteplanner/pkg/attributes"

// Fulfilment holds achieved/target per quota. A quota with no target counts
// as fulfilled (1).
type Fulfilment struct {
	Height         float64 `json:"height" yaml:"height"`
	ResidentialGFA float64 `json:"residential_gfa" yaml:"residential_gfa"`
	CommercialGFA  float64 `json:"commercial_gfa" yaml:"commercial_gfa"`
	CivicGFA       float64 `json:"civic_gfa" yaml:"civic_gfa"`
	OtherGFA       float64 `json:"other_gfa" yaml:"other_gfa"`
	FootprintArea  float64 `json:"footprint_area" yaml:"footprint_area"`
}

// SiteSummary describes the outcome of filling one site polygon.
type SiteSummary struct {
	SiteID         string  `json:"site_id" yaml:"site_id"`
	SiteArea       float64 `json:"site_area" yaml:"site_area"`
	GeneratedArea  float64 `json:"generated_area" yaml:"generated_area"`
	UnresolvedArea float64 `json:"unresolved_area" yaml:"unresolved_area"`
	// Coverage is GeneratedArea / SiteArea.
	Coverage    float64 `json:"coverage" yaml:"coverage"`
	Generations int     `json:"generations" yaml:"generations"`
	Iterations  int     `json:"iterations" yaml:"iterations"`

	Target     attributes.Attributes `json:"target" yaml:"target"`
	Achieved   attributes.Attributes `json:"achieved" yaml:"achieved"`
	Remaining  attributes.Attributes `json:"remaining" yaml:"remaining"`
	Fulfilment Fulfilment            `json:"fulfilment" yaml:"fulfilment"`

	// MeanScore and MeanDistance average the quota score and perception
	// distance of the generations. Both are 0 without generations.
	MeanScore    float64 `json:"mean_score" yaml:"mean_score"`
	MeanDistance float64 `json:"mean_distance" yaml:"mean_distance"`
	// DistinctMatches counts the query perceptions used at least once.
	DistinctMatches int `json:"distinct_matches" yaml:"distinct_matches"`
}

// RunSummary aggregates every site of a run.
type RunSummary struct {
	Sites          []SiteSummary         `json:"sites" yaml:"sites"`
	SiteArea       float64               `json:"site_area" yaml:"site_area"`
	GeneratedArea  float64               `json:"generated_area" yaml:"generated_area"`
	UnresolvedArea float64               `json:"unresolved_area" yaml:"unresolved_area"`
	Coverage       float64               `json:"coverage" yaml:"coverage"`
	Generations    int                   `json:"generations" yaml:"generations"`
	Target         attributes.Attributes `json:"target" yaml:"target"`
	Achieved       attributes.Attributes `json:"achieved" yaml:"achieved"`
	Fulfilment     Fulfilment            `json:"fulfilment" yaml:"fulfilment"`
}
