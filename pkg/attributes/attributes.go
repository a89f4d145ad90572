// Package attributes holds the development-quota vector used both as a site
// target and as the achieved or remaining amount during generation.
package attributes

import (
	"math"
	"strconv"
)

// Distance weights. Footprint coverage dominates the fit score.
const (
	HeightWeight    = 0.05
	GFAWeight       = 0.05
	FootprintWeight = 0.75
)

// Attributes is a development quota. All fields except Height are
// non-negative areas.
type Attributes struct {
	Height         float64 `json:"height" yaml:"height"`
	ResidentialGFA float64 `json:"residential_gfa" yaml:"residential_gfa"`
	CommercialGFA  float64 `json:"commercial_gfa" yaml:"commercial_gfa"`
	CivicGFA       float64 `json:"civic_gfa" yaml:"civic_gfa"`
	OtherGFA       float64 `json:"other_gfa" yaml:"other_gfa"`
	FootprintArea  float64 `json:"footprint_area" yaml:"footprint_area"`
	SiteArea       float64 `json:"site_area" yaml:"site_area"`
}

// Zero returns empty attributes.
func Zero() Attributes { return Attributes{} }

// WithMaxHeight keeps only the height of a, zeroing every area.
func WithMaxHeight(a Attributes) Attributes {
	return Attributes{Height: a.Height}
}

// Accumulate combines a and b: the taller height and the sum of every area.
func (a Attributes) Accumulate(b Attributes) Attributes {
	return Attributes{
		Height:         math.Max(a.Height, b.Height),
		ResidentialGFA: a.ResidentialGFA + b.ResidentialGFA,
		CommercialGFA:  a.CommercialGFA + b.CommercialGFA,
		CivicGFA:       a.CivicGFA + b.CivicGFA,
		OtherGFA:       a.OtherGFA + b.OtherGFA,
		FootprintArea:  a.FootprintArea + b.FootprintArea,
		SiteArea:       a.SiteArea + b.SiteArea,
	}
}

// Subtract removes b from a. Height is unchanged and areas stop at zero.
func (a Attributes) Subtract(b Attributes) Attributes {
	return Attributes{
		Height:         a.Height,
		ResidentialGFA: clampSub(a.ResidentialGFA, b.ResidentialGFA),
		CommercialGFA:  clampSub(a.CommercialGFA, b.CommercialGFA),
		CivicGFA:       clampSub(a.CivicGFA, b.CivicGFA),
		OtherGFA:       clampSub(a.OtherGFA, b.OtherGFA),
		FootprintArea:  clampSub(a.FootprintArea, b.FootprintArea),
		SiteArea:       clampSub(a.SiteArea, b.SiteArea),
	}
}

// Ratio scales every area by r. Negative ratios act as zero.
func (a Attributes) Ratio(r float64) Attributes {
	r = math.Max(r, 0)
	return Attributes{
		Height:         a.Height,
		ResidentialGFA: a.ResidentialGFA * r,
		CommercialGFA:  a.CommercialGFA * r,
		CivicGFA:       a.CivicGFA * r,
		OtherGFA:       a.OtherGFA * r,
		FootprintArea:  a.FootprintArea * r,
		SiteArea:       a.SiteArea * r,
	}
}

// DistanceTo scores how far other falls from a. Height counts only when
// other is taller than a.
func (a Attributes) DistanceTo(other Attributes) float64 {
	return HeightWeight*math.Max(other.Height-a.Height, 0) +
		GFAWeight*math.Abs(a.ResidentialGFA-other.ResidentialGFA) +
		GFAWeight*math.Abs(a.CommercialGFA-other.CommercialGFA) +
		GFAWeight*math.Abs(a.CivicGFA-other.CivicGFA) +
		GFAWeight*math.Abs(a.OtherGFA-other.OtherGFA) +
		FootprintWeight*math.Abs(a.FootprintArea-other.FootprintArea)
}

// TotalGFA sums the four use categories.
func (a Attributes) TotalGFA() float64 {
	return a.ResidentialGFA + a.CommercialGFA + a.CivicGFA + a.OtherGFA
}

// SiteCoverage is footprint over site area, or 0 for an empty site.
func (a Attributes) SiteCoverage() float64 {
	if a.SiteArea <= 0 {
		return 0
	}
	return a.FootprintArea / a.SiteArea
}

// IsZero reports whether every area is zero.
func (a Attributes) IsZero() bool {
	return a.TotalGFA() == 0 && a.FootprintArea == 0 && a.SiteArea == 0
}

// CSVHeader lists the columns written by CSVRow.
func CSVHeader() []string {
	return []string{
		"maxHeight", "totalGFA", "residentialGFA", "commercialGFA",
		"civicGFA", "otherGFA", "siteCoverage", "footprintArea", "siteArea",
	}
}

// CSVRow renders a as one summary row.
func (a Attributes) CSVRow() []string {
	vals := []float64{
		a.Height, a.TotalGFA(), a.ResidentialGFA, a.CommercialGFA,
		a.CivicGFA, a.OtherGFA, a.SiteCoverage(), a.FootprintArea, a.SiteArea,
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return out
}

func clampSub(x, y float64) float64 {
	return math.Max(x-y, 0)
}
