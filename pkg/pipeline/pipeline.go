// Package pipeline runs a project end to end: validate and load its inputs,
// fill every site polygon in turn, summarise the outcome and write it out.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/ChicagoDave/siteplanner/internal/logging"
	"github.com/ChicagoDave/siteplanner/internal/store"
	"github.com/ChicagoDave/siteplanner/pkg/analytics"
	"github.com/ChicagoDave/siteplanner/pkg/attributes"
	"github.com/ChicagoDave/siteplanner/pkg/buildings"
	"github.com/ChicagoDave/siteplanner/pkg/collection"
	"github.com/ChicagoDave/siteplanner/pkg/dataset"
	"github.com/ChicagoDave/siteplanner/pkg/simulator"
	"github.com/ChicagoDave/siteplanner/pkg/spec"
	"github.com/ChicagoDave/siteplanner/pkg/validation"
)

// ErrInvalid is returned when validation finds errors. The report is still
// available on the returned value.
var ErrInvalid = errors.New("pipeline: project has validation errors")

// Pipeline runs one project with fixed generation settings.
type Pipeline struct {
	project *spec.Project
	cfg     simulator.Config
	log     logging.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// New returns a pipeline for project.
func New(project *spec.Project, cfg simulator.Config, opts ...Option) *Pipeline {
	p := &Pipeline{project: project, cfg: cfg, log: logging.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Project returns the project the pipeline runs.
func (p *Pipeline) Project() *spec.Project { return p.project }

// Prepared holds validated inputs and the structures built from them.
type Prepared struct {
	Inputs *dataset.Inputs
	Query  *collection.Collection
	// Site is the site library filtered to perceptions near any site polygon.
	Site      *collection.Collection
	Buildings *buildings.Buildings
	Report    *validation.Report
}

// Validate checks the project file and, when that passes, its inputs.
func (p *Pipeline) Validate() (*validation.Report, *dataset.Inputs) {
	report := validation.ValidateSchema(p.project)
	if !report.Valid {
		return report, nil
	}
	in, err := dataset.Load(p.project)
	if err != nil {
		report.AddError(validation.Result{
			Level:   validation.LevelInput,
			Message: err.Error(),
			Path:    "inputs",
		})
		return report, nil
	}
	report.Merge(in.Validate(p.project, p.cfg))
	return report, in
}

// Prepare validates and loads the inputs and builds the collections. When
// validation fails it returns the report with ErrInvalid.
func (p *Pipeline) Prepare() (*Prepared, error) {
	report, in := p.Validate()
	if !report.Valid {
		return &Prepared{Report: report}, ErrInvalid
	}

	query, err := in.Query.Collection(
		collection.WithLogger(p.log.Named("query")), collection.WithSkipEmpty())
	if err != nil {
		return nil, fmt.Errorf("building query collection: %w", err)
	}
	site, err := in.Site.Collection(
		collection.WithLogger(p.log.Named("site")), collection.WithSkipEmpty())
	if err != nil {
		return nil, fmt.Errorf("building site collection: %w", err)
	}
	site = site.Filter(in.SitePolygons())

	p.log.Info("inputs loaded",
		logging.Int("query_perceptions", query.Len()),
		logging.Int("site_perceptions", site.Len()),
		logging.Int("sites", len(in.Sites)),
		logging.Int("buildings", len(in.Buildings)))

	return &Prepared{
		Inputs:    in,
		Query:     query,
		Site:      site,
		Buildings: buildings.New(in.Buildings, buildings.WithLogger(p.log.Named("buildings"))),
		Report:    report,
	}, nil
}

// SiteOutcome is the result of filling one site.
type SiteOutcome struct {
	Site    dataset.Site
	Target  attributes.Attributes
	Result  *simulator.Result
	Summary analytics.SiteSummary
}

// Outcome is the result of a full run.
type Outcome struct {
	Sites   []SiteOutcome
	Summary *analytics.RunSummary
	// Report holds the input findings followed by the outcome findings.
	Report *validation.Report
	// Collection is the site collection after every site has grown it.
	Collection *collection.Collection
}

// Run fills every site in file order. Each site sees the perceptions the
// previous sites transplanted.
func (p *Pipeline) Run(ctx context.Context, prep *Prepared) (*Outcome, error) {
	sim := simulator.New(prep.Query, prep.Buildings, p.cfg, simulator.WithLogger(p.log.Named("simulator")))

	out := &Outcome{Collection: prep.Site}
	summaries := make([]analytics.SiteSummary, 0, len(prep.Inputs.Sites))
	for _, s := range prep.Inputs.Sites {
		target := p.project.Targets.For(s.ID)
		p.log.Info("filling site", logging.String("site_id", s.ID), logging.Float64("area", s.Polygon.Area()))

		res, err := sim.Run(ctx, s.Polygon, target, out.Collection)
		if err != nil {
			return nil, fmt.Errorf("site %s: %w", s.ID, err)
		}
		out.Collection = res.Collection

		sum := analytics.Summarize(s.ID, s.Polygon, target, res)
		summaries = append(summaries, sum)
		out.Sites = append(out.Sites, SiteOutcome{Site: s, Target: target, Result: res, Summary: sum})
	}

	run, report := analytics.Aggregate(summaries)
	out.Summary = run
	out.Report = validation.NewReport()
	out.Report.Merge(prep.Report)
	out.Report.Merge(report)
	return out, nil
}

// Write writes every site, the summary and the manifest.
func (o *Outcome) Write(w *dataset.Writer, project string, cfg simulator.Config) error {
	for _, s := range o.Sites {
		if err := w.WriteSite(s.Site.ID, s.Site.Polygon, s.Result); err != nil {
			return err
		}
	}
	if err := w.WriteSummary(o.Summary); err != nil {
		return err
	}
	return w.WriteManifest(dataset.Manifest{Project: project, Simulator: cfg, Summary: o.Summary})
}

// Save stores the run and its generations.
func (o *Outcome) Save(ctx context.Context, st *store.Store, runID, project, dir string) error {
	var gens []store.Generation
	for _, s := range o.Sites {
		gens = append(gens, store.Generations(s.Site.ID, s.Result)...)
	}
	return st.SaveRun(ctx, store.Run{ID: runID, Project: project, Dir: dir, Summary: o.Summary}, gens)
}
