package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/simplify"
	"gopkg.in/yaml.v3"

	"github.com/ChicagoDave/siteplanner/internal/logging"
	"github.com/ChicagoDave/siteplanner/pkg/analytics"
	"github.com/ChicagoDave/siteplanner/pkg/attributes"
	"github.com/ChicagoDave/siteplanner/pkg/geo"
	"github.com/ChicagoDave/siteplanner/pkg/simulator"
)

// Feature types written to site GeoJSON files.
const (
	FeatureSite        = "site"
	FeatureMask        = "mask"
	FeatureOrigin      = "origin"
	FeatureDestination = "destination"
	FeatureBuilding    = "building"
	FeatureUnresolved  = "unresolved"
)

// ManifestFile is the run manifest written next to the site files.
const ManifestFile = "run.yaml"

// Manifest describes a written run.
type Manifest struct {
	RunID     string                `yaml:"run_id" json:"run_id"`
	Project   string                `yaml:"project" json:"project"`
	Created   time.Time             `yaml:"created" json:"created"`
	Simulator simulator.Config      `yaml:"simulator" json:"simulator"`
	Summary   *analytics.RunSummary `yaml:"summary" json:"summary"`
	Files     []string              `yaml:"files" json:"files"`
}

// Writer writes one run into <out>/<run id>.
type Writer struct {
	dir      string
	runID    string
	simplify float64
	files    []string
	log      logging.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithSimplifyTolerance simplifies written polygons with Douglas-Peucker at
// tol. Zero disables simplification.
func WithSimplifyTolerance(tol float64) WriterOption {
	return func(w *Writer) { w.simplify = tol }
}

// WithWriterLogger sets the logger.
func WithWriterLogger(l logging.Logger) WriterOption {
	return func(w *Writer) { w.log = l }
}

// NewWriter creates the run directory. An empty runID gets a random one.
func NewWriter(outDir, runID string, opts ...WriterOption) (*Writer, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	w := &Writer{dir: filepath.Join(outDir, runID), runID: runID, log: logging.NewNop()}
	for _, opt := range opts {
		opt(w)
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}
	return w, nil
}

// RunID returns the run id.
func (w *Writer) RunID() string { return w.runID }

// Dir returns the run directory.
func (w *Writer) Dir() string { return w.dir }

// Files returns the names of the files written so far, relative to Dir.
func (w *Writer) Files() []string { return append([]string(nil), w.files...) }

// SiteFile is the GeoJSON file name for a site.
func SiteFile(id string) string { return "site-" + id + ".geojson" }

// SamplesFile is the captured-samples CSV file name for a site.
func SamplesFile(id string) string { return "site-" + id + "-samples.csv" }

// WriteSite writes the site's GeoJSON and its captured samples.
func (w *Writer) WriteSite(id string, site geo.Polygon, res *simulator.Result) error {
	fc := geojson.NewFeatureCollection()

	f := geojson.NewFeature(w.polygon(site))
	f.Properties["type"] = FeatureSite
	f.Properties["site_id"] = id
	fc.Append(f)

	for i, g := range res.Generations {
		mask := geojson.NewFeature(w.multiPolygon(g.Polygons))
		mask.Properties["type"] = FeatureMask
		mask.Properties["generation"] = i
		mask.Properties["query_id"] = g.QueryID
		mask.Properties["site_id"] = g.SiteID
		mask.Properties["rotation"] = g.Rotation
		mask.Properties["score"] = g.Score
		mask.Properties["distance"] = g.Distance
		putAttributes(mask.Properties, g.Achieved)
		fc.Append(mask)

		origin := geojson.NewFeature(fromPoint(g.QueryPoint))
		origin.Properties["type"] = FeatureOrigin
		origin.Properties["generation"] = i
		origin.Properties["rotation"] = g.Rotation
		fc.Append(origin)

		dest := geojson.NewFeature(fromPoint(g.SitePoint))
		dest.Properties["type"] = FeatureDestination
		dest.Properties["generation"] = i
		fc.Append(dest)

		if g.Buildings == nil {
			continue
		}
		for _, fp := range g.Buildings.Footprints() {
			b := geojson.NewFeature(fromPolygon(fp.Polygon))
			b.Properties["type"] = FeatureBuilding
			b.Properties["generation"] = i
			b.Properties["id"] = fp.ID
			putAttributes(b.Properties, fp.Attributes())
			fc.Append(b)
		}
	}

	for _, u := range res.Unresolved {
		if u.IsEmpty() {
			continue
		}
		f := geojson.NewFeature(w.polygon(u))
		f.Properties["type"] = FeatureUnresolved
		f.Properties["area"] = u.Area()
		fc.Append(f)
	}

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding site %s: %w", id, err)
	}
	if err := w.writeFile(SiteFile(id), data); err != nil {
		return err
	}
	return w.writeSamples(id, res)
}

func (w *Writer) writeSamples(id string, res *simulator.Result) error {
	rows := [][]string{{"generation", "x", "y", "cluster"}}
	for i, g := range res.Generations {
		for _, s := range g.Samples {
			rows = append(rows, []string{
				strconv.Itoa(i),
				formatFloat(s.Point.X),
				formatFloat(s.Point.Y),
				strconv.Itoa(s.Cluster),
			})
		}
	}
	return w.writeCSV(SamplesFile(id), rows)
}

// WriteSummary writes summary.csv: one row per site with coverage figures
// followed by the target and achieved attributes.
func (w *Writer) WriteSummary(run *analytics.RunSummary) error {
	header := []string{"siteId", "coverage", "generatedArea", "unresolvedArea", "generations"}
	for _, h := range attributes.CSVHeader() {
		header = append(header, "target_"+h)
	}
	for _, h := range attributes.CSVHeader() {
		header = append(header, "achieved_"+h)
	}

	rows := [][]string{header}
	for _, s := range run.Sites {
		row := []string{
			s.SiteID,
			formatFloat(s.Coverage),
			formatFloat(s.GeneratedArea),
			formatFloat(s.UnresolvedArea),
			strconv.Itoa(s.Generations),
		}
		row = append(row, s.Target.CSVRow()...)
		row = append(row, s.Achieved.CSVRow()...)
		rows = append(rows, row)
	}
	return w.writeCSV("summary.csv", rows)
}

// WriteManifest writes run.yaml. RunID, Created and Files are filled in
// when unset.
func (w *Writer) WriteManifest(m Manifest) error {
	if m.RunID == "" {
		m.RunID = w.runID
	}
	if m.Created.IsZero() {
		m.Created = time.Now().UTC()
	}
	if m.Files == nil {
		m.Files = w.Files()
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	return w.writeFile(ManifestFile, data)
}

// ReadManifest reads the manifest of the run in dir.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

func (w *Writer) writeFile(name string, data []byte) error {
	if err := os.WriteFile(filepath.Join(w.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	w.files = append(w.files, name)
	w.log.Debug("wrote run file", logging.String("file", name), logging.Int("bytes", len(data)))
	return nil
}

func (w *Writer) writeCSV(name string, rows [][]string) error {
	f, err := os.Create(filepath.Join(w.dir, name))
	if err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	cw := csv.NewWriter(f)
	if err := cw.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	w.files = append(w.files, name)
	return nil
}

func (w *Writer) polygon(p geo.Polygon) orb.Polygon {
	return w.simplifyPolygon(fromPolygon(p))
}

func (w *Writer) multiPolygon(m geo.MultiPolygon) orb.MultiPolygon {
	out := fromMultiPolygon(m)
	for i := range out {
		out[i] = w.simplifyPolygon(out[i])
	}
	return out
}

// simplifyPolygon runs Douglas-Peucker over each ring, keeping any ring the
// simplification would collapse.
func (w *Writer) simplifyPolygon(poly orb.Polygon) orb.Polygon {
	if w.simplify <= 0 {
		return poly
	}
	out := make(orb.Polygon, len(poly))
	for i, ring := range poly {
		ls := orb.LineString(ring)
		s := simplify.DouglasPeucker(w.simplify).Simplify(ls.Clone())
		result, ok := s.(orb.LineString)
		if !ok || len(result) < 4 {
			out[i] = ring
			continue
		}
		out[i] = orb.Ring(result)
	}
	return out
}

func putAttributes(props geojson.Properties, a attributes.Attributes) {
	props["height"] = a.Height
	props["residential_gfa"] = a.ResidentialGFA
	props["commercial_gfa"] = a.CommercialGFA
	props["civic_gfa"] = a.CivicGFA
	props["other_gfa"] = a.OtherGFA
	props["footprint_area"] = a.FootprintArea
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
