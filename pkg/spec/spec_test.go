package spec

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleProject = `spec_version: "0.1.0"
name: tampines-north
query:
  points: data/query_points.geojson
  regions: data/query_regions.geojson
  clusters: data/query_clusters.csv
  buildings: data/query_buildings.geojson
site:
  points: data/site_points.geojson
  regions: data/site_regions.geojson
  clusters: data/site_clusters.csv
  polygons: data/site_polygons.geojson
targets:
  default:
    height: 60
    residential_gfa: 40000
    footprint_area: 9000
  sites:
    "12":
      height: 30
      commercial_gfa: 5000
`

func writeProject(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ProjectFile), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadProject(t *testing.T) {
	dir := writeProject(t, sampleProject)
	p, err := LoadProject(dir)
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}

	if p.SpecVersion != "0.1.0" {
		t.Errorf("spec_version = %q, want %q", p.SpecVersion, "0.1.0")
	}
	if p.Name != "tampines-north" {
		t.Errorf("name = %q, want tampines-north", p.Name)
	}
	if p.Query.Buildings != "data/query_buildings.geojson" {
		t.Errorf("query.buildings = %q", p.Query.Buildings)
	}
	if p.Site.Points != "data/site_points.geojson" {
		t.Errorf("site.points = %q (inline library fields not decoded)", p.Site.Points)
	}
	if p.Site.Polygons != "data/site_polygons.geojson" {
		t.Errorf("site.polygons = %q", p.Site.Polygons)
	}
	if p.Output.Dir != DefaultOutputDir {
		t.Errorf("output.dir = %q, want default %q", p.Output.Dir, DefaultOutputDir)
	}
	if p.Dir != dir {
		t.Errorf("Dir = %q, want %q", p.Dir, dir)
	}
}

func TestTargetsFor(t *testing.T) {
	p, err := LoadProject(writeProject(t, sampleProject))
	if err != nil {
		t.Fatal(err)
	}

	def := p.Targets.For("7")
	if def.Height != 60 || def.ResidentialGFA != 40000 || def.FootprintArea != 9000 {
		t.Errorf("default target = %+v", def)
	}
	site := p.Targets.For("12")
	if site.Height != 30 || site.CommercialGFA != 5000 || site.ResidentialGFA != 0 {
		t.Errorf("site 12 target = %+v", site)
	}
}

func TestResolve(t *testing.T) {
	p := &Project{Dir: "/data/proj"}
	if got := p.Resolve("in/points.geojson"); got != filepath.Join("/data/proj", "in/points.geojson") {
		t.Errorf("Resolve relative = %q", got)
	}
	if got := p.Resolve("/abs/x.csv"); got != "/abs/x.csv" {
		t.Errorf("Resolve absolute = %q", got)
	}
	if got := p.Resolve(""); got != "" {
		t.Errorf("Resolve empty = %q", got)
	}
	p.Output.Dir = "out"
	if got := p.OutputDir(); got != filepath.Join("/data/proj", "out") {
		t.Errorf("OutputDir = %q", got)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := LoadProject(t.TempDir()); err == nil {
		t.Error("expected error for missing project.yaml")
	}
}

func TestLoadMalformed(t *testing.T) {
	if _, err := LoadProject(writeProject(t, "query: [unclosed")); err == nil {
		t.Error("expected parse error")
	}
}
