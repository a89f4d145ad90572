package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ChicagoDave/siteplanner/internal/config"
	"github.com/ChicagoDave/siteplanner/internal/logging"
	"github.com/ChicagoDave/siteplanner/internal/metrics"
	"github.com/ChicagoDave/siteplanner/internal/server"
	"github.com/ChicagoDave/siteplanner/internal/store"
	"github.com/ChicagoDave/siteplanner/pkg/dataset"
	"github.com/ChicagoDave/siteplanner/pkg/pipeline"
	"github.com/ChicagoDave/siteplanner/pkg/spec"
)

type generateOptions struct {
	runID  string
	dbPath string
}

// env is what every command needs before touching a project.
type env struct {
	cfg     *config.Config
	log     logging.Logger
	project *spec.Project
}

// setup loads settings, builds the logger and loads the project.
func setup(flags *globalFlags, projectPath string) (*env, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	project, err := spec.LoadProject(projectPath)
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}
	return &env{cfg: cfg, log: log, project: project}, nil
}

// prepare validates and loads the project, printing the report when it
// fails.
func (e *env) prepare(out io.Writer) (*pipeline.Pipeline, *pipeline.Prepared, error) {
	pl := pipeline.New(e.project, e.cfg.Simulator, pipeline.WithLogger(e.log.Named("pipeline")))
	prep, err := pl.Prepare()
	if errors.Is(err, pipeline.ErrInvalid) {
		printValidationReport(out, prep.Report)
		return nil, nil, fmt.Errorf("project has validation errors")
	}
	if err != nil {
		return nil, nil, err
	}
	return pl, prep, nil
}

// openStore opens the run database named by the flag, falling back to the
// settings file. It returns nil when neither names one.
func (e *env) openStore(flagPath string) (*store.Store, error) {
	path := flagPath
	if path == "" {
		path = e.cfg.Store.Path
	}
	if path == "" {
		return nil, nil
	}
	st, err := store.Open(path, store.WithLogger(e.log.Named("store")))
	if err != nil {
		return nil, fmt.Errorf("opening run store: %w", err)
	}
	return st, nil
}

func runGenerate(ctx context.Context, out io.Writer, flags *globalFlags, projectPath string, opts generateOptions) error {
	e, err := setup(flags, projectPath)
	if err != nil {
		return err
	}
	defer e.log.Sync()

	pl, prep, err := e.prepare(out)
	if err != nil {
		return err
	}
	outcome, err := pl.Run(ctx, prep)
	if err != nil {
		return err
	}

	w, err := dataset.NewWriter(e.project.OutputDir(), opts.runID,
		dataset.WithSimplifyTolerance(e.project.Output.SimplifyTolerance),
		dataset.WithWriterLogger(e.log.Named("writer")))
	if err != nil {
		return err
	}
	if err := outcome.Write(w, e.project.Name, e.cfg.Simulator); err != nil {
		return err
	}

	st, err := e.openStore(opts.dbPath)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
		if err := outcome.Save(ctx, st, w.RunID(), e.project.Name, w.Dir()); err != nil {
			return err
		}
	}

	printRunSummary(out, outcome.Summary)
	fmt.Fprintln(out)
	printValidationReport(out, outcome.Report)
	fmt.Fprintf(out, "\nRun %s written to %s (%d files)\n", w.RunID(), w.Dir(), len(w.Files()))
	return nil
}

func runValidate(out io.Writer, flags *globalFlags, projectPath string) error {
	e, err := setup(flags, projectPath)
	if err != nil {
		return err
	}
	defer e.log.Sync()

	report, _ := pipeline.New(e.project, e.cfg.Simulator, pipeline.WithLogger(e.log.Named("pipeline"))).Validate()
	printValidationReport(out, report)
	if !report.Valid {
		return fmt.Errorf("project has validation errors")
	}
	return nil
}

func runMatch(ctx context.Context, out io.Writer, flags *globalFlags, projectPath string) error {
	e, err := setup(flags, projectPath)
	if err != nil {
		return err
	}
	defer e.log.Sync()

	pl, prep, err := e.prepare(out)
	if err != nil {
		return err
	}
	rows, err := pl.Match(ctx, prep)
	if err != nil {
		return err
	}
	printMatches(out, rows)
	return nil
}

func runServe(ctx context.Context, flags *globalFlags, projectPath string, port int, dbPath string) error {
	e, err := setup(flags, projectPath)
	if err != nil {
		return err
	}
	defer e.log.Sync()

	if port == 0 {
		port = e.cfg.Server.Port
	}
	opts := []server.Option{
		server.WithLogger(e.log.Named("server")),
		server.WithMetrics(metrics.New()),
	}
	st, err := e.openStore(dbPath)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
		opts = append(opts, server.WithStore(st))
	}
	return server.New(projectPath, port, e.cfg.Simulator, opts...).Start(ctx)
}
