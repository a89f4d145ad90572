package dataset

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChicagoDave/siteplanner/pkg/analytics"
	"github.com/ChicagoDave/siteplanner/pkg/attributes"
	"github.com/ChicagoDave/siteplanner/pkg/buildings"
	"github.com/ChicagoDave/siteplanner/pkg/geo"
	"github.com/ChicagoDave/siteplanner/pkg/perception"
	"github.com/ChicagoDave/siteplanner/pkg/simulator"
	"github.com/ChicagoDave/siteplanner/pkg/spec"
)

const pointsJSON = `{"type":"FeatureCollection","features":[
 {"type":"Feature","id":"a","geometry":{"type":"Point","coordinates":[0,0]},"properties":{}},
 {"type":"Feature","geometry":{"type":"Point","coordinates":[1,0.5]},"properties":{"id":7}},
 {"type":"Feature","geometry":{"type":"Point","coordinates":[2,0]},"properties":null},
 {"type":"Feature","id":"lonely","geometry":{"type":"Point","coordinates":[30,30]},"properties":{}}
]}`

const regionsJSON = `{"type":"FeatureCollection","features":[
 {"type":"Feature","id":"a","geometry":{"type":"Polygon","coordinates":[[[-5,-5],[5,-5],[5,5],[-5,5],[-5,-5]]]},"properties":{}},
 {"type":"Feature","id":"7","geometry":{"type":"Polygon","coordinates":[[[-4,-4],[6,-4],[6,6],[-4,6],[-4,-4]]]},"properties":{}},
 {"type":"Feature","id":"2","geometry":{"type":"MultiPolygon","coordinates":[[[[-3,-5],[7,-5],[7,5],[-3,5],[-3,-5]]]]},"properties":{}}
]}`

const clustersCSV = "id,cluster\na,1\n7,1\n2,2\nlonely,3\n"

const sitesJSON = `{"type":"FeatureCollection","features":[
 {"type":"Feature","id":12,"geometry":{"type":"Polygon","coordinates":[[[0,0],[40,0],[40,25],[0,25],[0,0]],[[10,10],[12,10],[12,12],[10,12],[10,10]]]},"properties":{}},
 {"type":"Feature","id":"m","geometry":{"type":"MultiPolygon","coordinates":[
   [[[100,0],[110,0],[110,10],[100,10],[100,0]]],
   [[[200,0],[210,0],[210,10],[200,10],[200,0]]]]},"properties":{}}
]}`

const buildingsJSON = `{"type":"FeatureCollection","features":[
 {"type":"Feature","id":"h","geometry":{"type":"Polygon","coordinates":[[[1,1],[3,1],[3,3],[1,3],[1,1]]]},
  "properties":{"height":25,"residential_gfa":50,"civic_gfa":"4"}},
 {"type":"Feature","id":"twin","geometry":{"type":"MultiPolygon","coordinates":[
   [[[10,10],[11,10],[11,11],[10,11],[10,10]]],
   [[[20,20],[23,20],[23,21],[20,21],[20,20]]]]},
  "properties":{"height":10,"commercial_gfa":40}}
]}`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestReadPoints(t *testing.T) {
	path := writeFile(t, t.TempDir(), "points.geojson", pointsJSON)
	ids, pts, err := ReadPoints(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "7", "2", "lonely"}, ids)
	assert.Equal(t, geo.Pt(1, 0.5), pts[1])
}

func TestReadPointsRejectsPolygons(t *testing.T) {
	path := writeFile(t, t.TempDir(), "points.geojson", regionsJSON)
	_, _, err := ReadPoints(path)
	assert.ErrorIs(t, err, ErrGeometryType)
}

func TestReadRegionsOpensRings(t *testing.T) {
	regions, err := ReadRegions(writeFile(t, t.TempDir(), "regions.geojson", regionsJSON))
	require.NoError(t, err)
	require.Len(t, regions, 3)
	assert.Len(t, regions["a"].Exterior, 4)
	assert.InDelta(t, 100, regions["a"].Area(), 1e-9)
	assert.InDelta(t, 100, regions["2"].Area(), 1e-9)
}

func TestParseClusters(t *testing.T) {
	got, err := parseClusters(strings.NewReader("cluster, id, note\n4, x, hi\n5, y,\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"x": 4, "y": 5}, got)

	_, err = parseClusters(strings.NewReader("name,label\nx,1\n"))
	assert.Error(t, err)

	_, err = parseClusters(strings.NewReader("id,cluster\nx,one\n"))
	assert.Error(t, err)
}

func TestLoadLibrary(t *testing.T) {
	dir := t.TempDir()
	lib, err := LoadLibrary(
		writeFile(t, dir, "points.geojson", pointsJSON),
		writeFile(t, dir, "regions.geojson", regionsJSON),
		writeFile(t, dir, "clusters.csv", clustersCSV),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "7", "2"}, lib.IDs)
	assert.Equal(t, []string{"lonely"}, lib.Missing)
	assert.Len(t, lib.Samples, 4, "every clustered point is a sample")
	assert.Equal(t, perception.NewSample(2, 0, 2), lib.Samples[2])

	c, err := lib.Collection()
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, "7", c.At(1).ID())
}

func TestReadSites(t *testing.T) {
	sites, err := ReadSites(writeFile(t, t.TempDir(), "sites.geojson", sitesJSON))
	require.NoError(t, err)
	require.Len(t, sites, 3)

	assert.Equal(t, "12", sites[0].ID)
	assert.Len(t, sites[0].Polygon.Holes, 1)
	assert.InDelta(t, 996, sites[0].Polygon.Area(), 1e-9)
	assert.Equal(t, "m-0", sites[1].ID)
	assert.Equal(t, "m-1", sites[2].ID)
}

func TestReadBuildings(t *testing.T) {
	fps, err := ReadBuildings(writeFile(t, t.TempDir(), "buildings.geojson", buildingsJSON))
	require.NoError(t, err)
	require.Len(t, fps, 3)

	assert.Equal(t, "h", fps[0].ID)
	assert.Equal(t, 25.0, fps[0].Height)
	assert.Equal(t, 50.0, fps[0].ResidentialGFA)
	assert.Equal(t, 4.0, fps[0].CivicGFA)
	assert.Equal(t, 0.0, fps[0].OtherGFA)

	// 1 and 3 square metres share 40 of commercial GFA.
	assert.Equal(t, "twin-0", fps[1].ID)
	assert.InDelta(t, 10, fps[1].CommercialGFA, 1e-9)
	assert.InDelta(t, 30, fps[2].CommercialGFA, 1e-9)
	assert.Equal(t, 10.0, fps[2].Height)
}

func TestReadBuildingsBadProperty(t *testing.T) {
	body := strings.Replace(buildingsJSON, `"height":25`, `"height":true`, 1)
	_, err := ReadBuildings(writeFile(t, t.TempDir(), "buildings.geojson", body))
	assert.Error(t, err)
}

func TestLoadProjectInputs(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"points.geojson":    pointsJSON,
		"regions.geojson":   regionsJSON,
		"clusters.csv":      clustersCSV,
		"sites.geojson":     sitesJSON,
		"buildings.geojson": buildingsJSON,
	} {
		writeFile(t, dir, name, body)
	}
	lib := spec.LibraryDef{Points: "points.geojson", Regions: "regions.geojson", Clusters: "clusters.csv"}
	withBuildings := lib
	withBuildings.Buildings = "buildings.geojson"
	p := &spec.Project{
		Dir:   dir,
		Query: withBuildings,
		Site:  spec.SiteDef{LibraryDef: lib, Polygons: "sites.geojson"},
	}

	in, err := Load(p)
	require.NoError(t, err)
	assert.Len(t, in.Query.IDs, 3)
	assert.Len(t, in.Sites, 3)
	assert.Len(t, in.Buildings, 3)
	assert.Len(t, in.SitePolygons(), 3)

	p.Site.Polygons = "missing.geojson"
	_, err = Load(p)
	assert.ErrorContains(t, err, "site polygons")
}

func sampleRun() *simulator.Result {
	mask := geo.MultiPolygon{geo.Rect(geo.Pt(15, 7.5), geo.Pt(25, 17.5))}
	return &simulator.Result{
		Generations: []simulator.Generation{{
			QueryID:    "q0",
			QueryPoint: geo.Pt(0, 0),
			SiteID:     "s0",
			SitePoint:  geo.Pt(20, 12.5),
			Polygons:   mask,
			Achieved:   attributes.Attributes{Height: 25, ResidentialGFA: 50, FootprintArea: 4, SiteArea: 100},
			Buildings: buildings.New([]buildings.Footprint{
				{ID: "h", Polygon: geo.Rect(geo.Pt(21, 13.5), geo.Pt(23, 15.5)), Height: 25, ResidentialGFA: 50},
			}),
			Samples: []perception.Sample{perception.NewSample(20, 12.5, 1), perception.NewSample(21, 12.6, 1)},
		}},
		Unresolved: []geo.Polygon{geo.Rect(geo.Pt(0, 0), geo.Pt(2, 2))},
		Achieved:   attributes.Attributes{Height: 25, ResidentialGFA: 50, FootprintArea: 4, SiteArea: 100},
		Iterations: 2,
	}
}

func TestWriterRun(t *testing.T) {
	out := t.TempDir()
	w, err := NewWriter(out, "")
	require.NoError(t, err)
	require.NotEmpty(t, w.RunID())
	assert.DirExists(t, w.Dir())

	site := geo.Rect(geo.Pt(0, 0), geo.Pt(40, 25))
	res := sampleRun()
	require.NoError(t, w.WriteSite("12", site, res))

	data, err := os.ReadFile(filepath.Join(w.Dir(), SiteFile("12")))
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)

	counts := map[string]int{}
	for _, f := range fc.Features {
		counts[f.Properties.MustString("type")]++
	}
	assert.Equal(t, map[string]int{
		FeatureSite: 1, FeatureMask: 1, FeatureOrigin: 1, FeatureDestination: 1,
		FeatureBuilding: 1, FeatureUnresolved: 1,
	}, counts)

	// Written geometry reads back through the same converters.
	sites, err := ReadSites(filepath.Join(w.Dir(), SiteFile("12")))
	require.Error(t, err, "points in the run file are not site polygons")
	assert.Nil(t, sites)
	mask := fc.Features[1]
	assert.Equal(t, "q0", mask.Properties.MustString("query_id"))
	assert.Equal(t, 50.0, mask.Properties.MustFloat64("residential_gfa"))

	f, err := os.Open(filepath.Join(w.Dir(), SamplesFile("12")))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"generation", "x", "y", "cluster"},
		{"0", "20", "12.5", "1"},
		{"0", "21", "12.6", "1"},
	}, rows)

	run, _ := analytics.Aggregate([]analytics.SiteSummary{
		analytics.Summarize("12", site, attributes.Attributes{Height: 30, ResidentialGFA: 200}, res),
	})
	require.NoError(t, w.WriteSummary(run))
	require.NoError(t, w.WriteManifest(Manifest{Project: "demo", Simulator: simulator.DefaultConfig(), Summary: run}))

	sf, err := os.Open(filepath.Join(w.Dir(), "summary.csv"))
	require.NoError(t, err)
	defer sf.Close()
	summary, err := csv.NewReader(sf).ReadAll()
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, "siteId", summary[0][0])
	assert.Equal(t, "target_maxHeight", summary[0][5])
	assert.Equal(t, []string{"12", "0.1", "100", "4", "1"}, summary[1][:5])

	m, err := ReadManifest(w.Dir())
	require.NoError(t, err)
	assert.Equal(t, w.RunID(), m.RunID)
	assert.Equal(t, "demo", m.Project)
	assert.False(t, m.Created.IsZero())
	assert.Equal(t, []string{SiteFile("12"), SamplesFile("12"), "summary.csv"}, m.Files)
	require.NotNil(t, m.Summary)
	assert.InDelta(t, 0.1, m.Summary.Coverage, 1e-12)
}

func TestWriterSimplifies(t *testing.T) {
	// A square with a nearly collinear extra vertex on its bottom edge.
	noisy := geo.NewPolygon(geo.Pt(0, 0), geo.Pt(5, 0.01), geo.Pt(10, 0), geo.Pt(10, 10), geo.Pt(0, 10))

	w, err := NewWriter(t.TempDir(), "fixed", WithSimplifyTolerance(0.1))
	require.NoError(t, err)
	assert.Equal(t, "fixed", w.RunID())
	assert.Len(t, w.polygon(noisy)[0], 5, "four corners plus the closing vertex")

	raw, err := NewWriter(t.TempDir(), "raw")
	require.NoError(t, err)
	assert.Len(t, raw.polygon(noisy)[0], 6)
}
