package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ChicagoDave/siteplanner/internal/logging"
	"github.com/ChicagoDave/siteplanner/internal/metrics"
	"github.com/ChicagoDave/siteplanner/internal/store"
	"github.com/ChicagoDave/siteplanner/pkg/analytics"
	"github.com/ChicagoDave/siteplanner/pkg/dataset"
	"github.com/ChicagoDave/siteplanner/pkg/pipeline"
	"github.com/ChicagoDave/siteplanner/pkg/simulator"
	"github.com/ChicagoDave/siteplanner/pkg/spec"
	"github.com/ChicagoDave/siteplanner/pkg/validation"
)

// Server is the local HTTP API over one project directory and, optionally,
// a run store. The project file is re-read on every request so edits show
// up without a restart.
type Server struct {
	projectPath string
	port        int
	cfg         simulator.Config
	store       *store.Store
	metrics     *metrics.Metrics
	log         logging.Logger

	// generate serialises runs: they share the output directory and store.
	generate sync.Mutex
}

// Option configures a Server.
type Option func(*Server)

// WithStore enables the run endpoints and records generated runs.
func WithStore(st *store.Store) Option {
	return func(s *Server) { s.store = st }
}

// WithMetrics records generation runs and serves them at /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Server) { s.log = l }
}

// New creates a server for the given project directory.
func New(projectPath string, port int, cfg simulator.Config, opts ...Option) *Server {
	s := &Server{
		projectPath: projectPath,
		port:        port,
		cfg:         cfg,
		log:         logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/project", s.handleProject)
	mux.HandleFunc("GET /api/validation", s.handleValidation)
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("GET /api/runs", s.handleRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleRun)
	mux.HandleFunc("GET /{$}", s.handleIndex)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	return mux
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("server started",
		logging.String("addr", "http://localhost"+srv.Addr),
		logging.String("project", s.projectPath),
		logging.Bool("store", s.store != nil))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, `<!DOCTYPE html>
<html><head><title>SitePlanner</title></head>
<body style="margin:0;background:#111;color:#fff;font-family:system-ui;display:flex;align-items:center;justify-content:center;height:100vh">
<div style="text-align:center">
<h1>SitePlanner</h1>
<p>API: <code>/api/project</code>, <code>/api/validation</code>, <code>POST /api/generate</code>, <code>/api/runs</code></p>
</div>
</body></html>`)
}

func (s *Server) handleProject(w http.ResponseWriter, _ *http.Request) {
	p, err := spec.LoadProject(s.projectPath)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleValidation(w http.ResponseWriter, _ *http.Request) {
	p, err := spec.LoadProject(s.projectPath)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	report, _ := pipeline.New(p, s.cfg, pipeline.WithLogger(s.log)).Validate()
	writeJSON(w, http.StatusOK, report)
}

type generateResponse struct {
	RunID   string                `json:"run_id"`
	Dir     string                `json:"dir"`
	Summary *analytics.RunSummary `json:"summary"`
	Report  *validation.Report    `json:"report"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	s.generate.Lock()
	defer s.generate.Unlock()

	p, err := spec.LoadProject(s.projectPath)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	start := time.Now()
	pl := pipeline.New(p, s.cfg, pipeline.WithLogger(s.log.Named("pipeline")))
	prep, err := pl.Prepare()
	if errors.Is(err, pipeline.ErrInvalid) {
		s.runFailed(metrics.StatusInvalid)
		writeJSON(w, http.StatusUnprocessableEntity, generateResponse{Report: prep.Report})
		return
	}
	if err != nil {
		s.runFailed(metrics.StatusFailed)
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	out, err := pl.Run(r.Context(), prep)
	if err != nil {
		s.runFailed(metrics.StatusFailed)
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveRun(time.Since(start), out.Summary.Generations, out.Summary.GeneratedArea, out.Summary.Coverage)
	}
	wr, err := dataset.NewWriter(p.OutputDir(), r.URL.Query().Get("run_id"),
		dataset.WithSimplifyTolerance(p.Output.SimplifyTolerance),
		dataset.WithWriterLogger(s.log.Named("writer")))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := out.Write(wr, p.Name, s.cfg); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if s.store != nil {
		if err := out.Save(r.Context(), s.store, wr.RunID(), p.Name, wr.Dir()); err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, generateResponse{
		RunID:   wr.RunID(),
		Dir:     wr.Dir(),
		Summary: out.Summary,
		Report:  out.Report,
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	runs, err := s.store.ListRuns(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

type runResponse struct {
	*store.Run
	Generations []store.Generation `json:"generations"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	run, gens, err := s.store.GetRun(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if gens == nil {
		gens = []store.Generation{}
	}
	writeJSON(w, http.StatusOK, runResponse{Run: run, Generations: gens})
}

func (s *Server) runFailed(status string) {
	if s.metrics != nil {
		s.metrics.RunFailed(status)
	}
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "no run store configured; start with --db"})
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", logging.Err(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
