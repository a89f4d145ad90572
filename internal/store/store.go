// Package store persists generation runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ChicagoDave/siteplanner/internal/logging"
	"github.com/ChicagoDave/siteplanner/pkg/analytics"
	"github.com/ChicagoDave/siteplanner/pkg/attributes"
	"github.com/ChicagoDave/siteplanner/pkg/geo"
	"github.com/ChicagoDave/siteplanner/pkg/simulator"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("store: run not found")

// timeLayout is fixed-width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Run is one stored generation run.
type Run struct {
	ID      string                `json:"id"`
	Project string                `json:"project"`
	Dir     string                `json:"dir,omitempty"`
	Created time.Time             `json:"created"`
	Summary *analytics.RunSummary `json:"summary"`
}

// Generation is one stored transplant.
type Generation struct {
	SiteID   string                `json:"site_id"`
	Seq      int                   `json:"seq"`
	QueryID  string                `json:"query_id"`
	AnchorID string                `json:"anchor_id"`
	Rotation float64               `json:"rotation"`
	Score    float64               `json:"score"`
	Distance float64               `json:"distance"`
	Area     float64               `json:"area"`
	Achieved attributes.Attributes `json:"achieved"`
	Polygons geo.MultiPolygon      `json:"polygons"`
}

// Generations flattens a site result into storable rows.
func Generations(siteID string, res *simulator.Result) []Generation {
	out := make([]Generation, len(res.Generations))
	for i, g := range res.Generations {
		out[i] = Generation{
			SiteID:   siteID,
			Seq:      i,
			QueryID:  g.QueryID,
			AnchorID: g.SiteID,
			Rotation: g.Rotation,
			Score:    g.Score,
			Distance: g.Distance,
			Area:     g.Polygons.Area(),
			Achieved: g.Achieved,
			Polygons: g.Polygons,
		}
	}
	return out
}

// Store wraps the run database.
type Store struct {
	db  *sql.DB
	log logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Open opens or creates the database at path and migrates it to the latest
// schema.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases shared and serialises
	// writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, log: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores a run and its generations in one transaction.
func (s *Store) SaveRun(ctx context.Context, run Run, gens []Generation) error {
	if run.Summary == nil {
		run.Summary = &analytics.RunSummary{}
	}
	if run.Created.IsZero() {
		run.Created = time.Now().UTC()
	}
	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, project, dir, created_at, sites, generations, site_area, generated_area, coverage, summary_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Project, run.Dir, run.Created.UTC().Format(timeLayout),
		len(run.Summary.Sites), len(gens), run.Summary.SiteArea, run.Summary.GeneratedArea,
		run.Summary.Coverage, string(summary))
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO generations (run_id, site_id, seq, query_id, anchor_id, rotation, score, distance, area, achieved_json, polygons_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, g := range gens {
		achieved, err := json.Marshal(g.Achieved)
		if err != nil {
			return fmt.Errorf("encoding achieved: %w", err)
		}
		polys, err := json.Marshal(g.Polygons)
		if err != nil {
			return fmt.Errorf("encoding polygons: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, run.ID, g.SiteID, g.Seq, g.QueryID, g.AnchorID,
			g.Rotation, g.Score, g.Distance, g.Area, string(achieved), string(polys)); err != nil {
			return fmt.Errorf("inserting generation %s/%d: %w", g.SiteID, g.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.log.Info("run saved", logging.String("run_id", run.ID), logging.Int("generations", len(gens)))
	return nil
}

// ListRuns returns every run, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project, dir, created_at, summary_json FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun returns a run and its generations ordered by site and sequence.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, []Generation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project, dir, created_at, summary_json FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT site_id, seq, query_id, anchor_id, rotation, score, distance, area, achieved_json, polygons_json
		FROM generations WHERE run_id = ? ORDER BY site_id, seq`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var gens []Generation
	for rows.Next() {
		var (
			g                 Generation
			achieved, polygon string
		)
		if err := rows.Scan(&g.SiteID, &g.Seq, &g.QueryID, &g.AnchorID, &g.Rotation,
			&g.Score, &g.Distance, &g.Area, &achieved, &polygon); err != nil {
			return nil, nil, err
		}
		if err := json.Unmarshal([]byte(achieved), &g.Achieved); err != nil {
			return nil, nil, fmt.Errorf("decoding achieved: %w", err)
		}
		if err := json.Unmarshal([]byte(polygon), &g.Polygons); err != nil {
			return nil, nil, fmt.Errorf("decoding polygons: %w", err)
		}
		gens = append(gens, g)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return &r, gens, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r                Run
		created, summary string
	)
	if err := sc.Scan(&r.ID, &r.Project, &r.Dir, &created, &summary); err != nil {
		return Run{}, err
	}
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return Run{}, fmt.Errorf("run %s: bad created_at: %w", r.ID, err)
	}
	r.Created = t
	r.Summary = &analytics.RunSummary{}
	if err := json.Unmarshal([]byte(summary), r.Summary); err != nil {
		return Run{}, fmt.Errorf("run %s: decoding summary: %w", r.ID, err)
	}
	return r, nil
}
