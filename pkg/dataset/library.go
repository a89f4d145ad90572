package dataset

import (
	"fmt"

	"github.com/ChicagoDave/siteplanner/pkg/buildings"
	"github.com/ChicagoDave/siteplanner/pkg/collection"
	"github.com/ChicagoDave/siteplanner/pkg/geo"
	"github.com/ChicagoDave/siteplanner/pkg/perception"
	"github.com/ChicagoDave/siteplanner/pkg/spec"
)

// Library holds the aligned arrays a collection is built from. Every point
// with a cluster label is also a sample; a point becomes a perception anchor
// only when it has both a region and a cluster.
type Library struct {
	IDs     []string
	Points  []geo.Point2D
	Regions []geo.Polygon
	Samples []perception.Sample

	// Missing lists point ids skipped for lacking a region or a cluster.
	Missing []string
}

// LoadLibrary joins a points file, a regions file and a clusters CSV on id.
func LoadLibrary(pointsPath, regionsPath, clustersPath string) (*Library, error) {
	ids, pts, err := ReadPoints(pointsPath)
	if err != nil {
		return nil, err
	}
	regions, err := ReadRegions(regionsPath)
	if err != nil {
		return nil, err
	}
	clusters, err := ReadClusters(clustersPath)
	if err != nil {
		return nil, err
	}
	return join(ids, pts, regions, clusters), nil
}

func join(ids []string, pts []geo.Point2D, regions map[string]geo.Polygon, clusters map[string]int) *Library {
	lib := &Library{}
	for i, id := range ids {
		k, hasCluster := clusters[id]
		if hasCluster {
			lib.Samples = append(lib.Samples, perception.NewSample(pts[i].X, pts[i].Y, k))
		}
		region, hasRegion := regions[id]
		if !hasCluster || !hasRegion {
			lib.Missing = append(lib.Missing, id)
			continue
		}
		lib.IDs = append(lib.IDs, id)
		lib.Points = append(lib.Points, pts[i])
		lib.Regions = append(lib.Regions, region)
	}
	return lib
}

// Collection builds the perception collection for the library.
func (l *Library) Collection(opts ...collection.Option) (*collection.Collection, error) {
	return collection.FromIDsPointsRegionsSamples(l.IDs, l.Points, l.Regions, l.Samples, opts...)
}

// Inputs is everything a project reads from disk.
type Inputs struct {
	Query     *Library
	Site      *Library
	Sites     []Site
	Buildings []buildings.Footprint
}

// Load reads every input file a project names. The query buildings file is
// optional.
func Load(p *spec.Project) (*Inputs, error) {
	query, err := LoadLibrary(p.Resolve(p.Query.Points), p.Resolve(p.Query.Regions), p.Resolve(p.Query.Clusters))
	if err != nil {
		return nil, fmt.Errorf("loading query library: %w", err)
	}
	site, err := LoadLibrary(p.Resolve(p.Site.Points), p.Resolve(p.Site.Regions), p.Resolve(p.Site.Clusters))
	if err != nil {
		return nil, fmt.Errorf("loading site library: %w", err)
	}
	sites, err := ReadSites(p.Resolve(p.Site.Polygons))
	if err != nil {
		return nil, fmt.Errorf("loading site polygons: %w", err)
	}

	in := &Inputs{Query: query, Site: site, Sites: sites}
	if p.Query.Buildings != "" {
		if in.Buildings, err = ReadBuildings(p.Resolve(p.Query.Buildings)); err != nil {
			return nil, fmt.Errorf("loading query buildings: %w", err)
		}
	}
	return in, nil
}

// SitePolygons returns the polygon of every site in order.
func (in *Inputs) SitePolygons() []geo.Polygon {
	out := make([]geo.Polygon, len(in.Sites))
	for i, s := range in.Sites {
		out[i] = s.Polygon
	}
	return out
}
