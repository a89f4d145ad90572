package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ChicagoDave/siteplanner/pkg/geo"
)

// MatchRow pairs a site perception with its closest query perception.
type MatchRow struct {
	SiteID   string      `json:"site_id"`
	Anchor   geo.Point2D `json:"anchor"`
	Cluster  int         `json:"cluster"`
	QueryID  string      `json:"query_id"`
	Rotation float64     `json:"rotation"`
	Distance float64     `json:"distance"`
}

// Match finds the most similar query perception for every perception in
// the filtered site library. Rows keep site collection order.
func (p *Pipeline) Match(ctx context.Context, prep *Prepared) ([]MatchRow, error) {
	rows := make([]MatchRow, prep.Site.Len())
	g, gctx := errgroup.WithContext(ctx)
	if p.cfg.Workers > 0 {
		g.SetLimit(p.cfg.Workers)
	}
	for i := range rows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sp := prep.Site.At(i)
			sim, err := prep.Query.FindSimilar(sp)
			if err != nil {
				return fmt.Errorf("matching %s: %w", sp.ID(), err)
			}
			rows[i] = MatchRow{
				SiteID:   sp.ID(),
				Anchor:   sp.Point(),
				Cluster:  sp.Cluster(),
				QueryID:  sim.Perception.ID(),
				Rotation: sim.Rotation,
				Distance: sim.Distance,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}
