package attributes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sample() Attributes {
	return Attributes{
		Height:         30,
		ResidentialGFA: 1000,
		CommercialGFA:  200,
		CivicGFA:       50,
		OtherGFA:       10,
		FootprintArea:  400,
		SiteArea:       1000,
	}
}

func TestAccumulateCommutativeAssociative(t *testing.T) {
	a := sample()
	b := Attributes{Height: 45, ResidentialGFA: 3, CommercialGFA: 7, CivicGFA: 11, OtherGFA: 13, FootprintArea: 17, SiteArea: 19}
	c := Attributes{Height: 12, ResidentialGFA: 0.5, CommercialGFA: 1.5, FootprintArea: 2.5}

	assert.Equal(t, a.Accumulate(b), b.Accumulate(a))
	assert.Equal(t, a.Accumulate(b).Accumulate(c), a.Accumulate(b.Accumulate(c)))
	assert.Equal(t, 45.0, a.Accumulate(b).Height)
	assert.Equal(t, 1003.0, a.Accumulate(b).ResidentialGFA)
}

func TestAccumulateZeroIsIdentity(t *testing.T) {
	a := sample()
	assert.Equal(t, a, a.Accumulate(Zero()))
}

func TestSubtractNeverNegative(t *testing.T) {
	a := sample()
	big := Attributes{Height: 99, ResidentialGFA: 5000, CommercialGFA: 5000, CivicGFA: 5000, OtherGFA: 5000, FootprintArea: 5000, SiteArea: 5000}
	got := a.Subtract(big)

	assert.Equal(t, a.Height, got.Height)
	assert.Zero(t, got.ResidentialGFA)
	assert.Zero(t, got.CommercialGFA)
	assert.Zero(t, got.CivicGFA)
	assert.Zero(t, got.OtherGFA)
	assert.Zero(t, got.FootprintArea)
	assert.Zero(t, got.SiteArea)

	partial := a.Subtract(Attributes{ResidentialGFA: 400})
	assert.Equal(t, 600.0, partial.ResidentialGFA)
}

func TestRatioRoundTrip(t *testing.T) {
	a := sample()
	for _, r := range []float64{0.1, 0.37, 1, 2.5, 1000} {
		got := a.Ratio(r).Ratio(1 / r)
		assert.InDelta(t, a.ResidentialGFA, got.ResidentialGFA, 1e-9)
		assert.InDelta(t, a.CommercialGFA, got.CommercialGFA, 1e-9)
		assert.InDelta(t, a.CivicGFA, got.CivicGFA, 1e-9)
		assert.InDelta(t, a.OtherGFA, got.OtherGFA, 1e-9)
		assert.InDelta(t, a.FootprintArea, got.FootprintArea, 1e-9)
		assert.InDelta(t, a.SiteArea, got.SiteArea, 1e-9)
		assert.Equal(t, a.Height, got.Height)
	}
}

func TestRatioNegativeClamps(t *testing.T) {
	got := sample().Ratio(-2)
	assert.Equal(t, WithMaxHeight(sample()), got)
}

func TestWithMaxHeight(t *testing.T) {
	got := WithMaxHeight(sample())
	assert.Equal(t, Attributes{Height: 30}, got)
	assert.True(t, got.IsZero())
}

func TestDistanceTo(t *testing.T) {
	// Under-height and equal footprint cost nothing.
	target := Attributes{Height: 10, FootprintArea: 50}
	achievable := Attributes{Height: 5, FootprintArea: 50}
	assert.Zero(t, target.DistanceTo(achievable))

	over := Attributes{Height: 20, FootprintArea: 50}
	assert.InDelta(t, 0.5, target.DistanceTo(over), 1e-12)

	gfa := Attributes{Height: 10, ResidentialGFA: 100, CommercialGFA: 20, FootprintArea: 40}
	assert.InDelta(t, 0.05*100+0.05*20+0.75*10, target.DistanceTo(gfa), 1e-12)
}

func TestTotalsAndCoverage(t *testing.T) {
	a := sample()
	assert.Equal(t, 1260.0, a.TotalGFA())
	assert.InDelta(t, 0.4, a.SiteCoverage(), 1e-12)
	assert.Zero(t, Zero().SiteCoverage())
}

func TestCSVRow(t *testing.T) {
	row := sample().CSVRow()
	assert.Len(t, row, len(CSVHeader()))
	assert.Equal(t, []string{"30", "1260", "1000", "200", "50", "10", "0.4", "400", "1000"}, row)
}
