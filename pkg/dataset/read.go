package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/ChicagoDave/siteplanner/pkg/buildings"
	"github.com/ChicagoDave/siteplanner/pkg/geo"
)

// Site is one site polygon to fill.
type Site struct {
	ID      string      `json:"id"`
	Polygon geo.Polygon `json:"polygon"`
}

// ReadPoints reads Point features in file order.
func ReadPoints(path string) ([]string, []geo.Point2D, error) {
	fc, err := readFeatures(path)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]string, 0, len(fc.Features))
	pts := make([]geo.Point2D, 0, len(fc.Features))
	for i, f := range fc.Features {
		p, ok := f.Geometry.(orb.Point)
		if !ok {
			return nil, nil, fmt.Errorf("%s feature %d: %w: want Point", path, i, ErrGeometryType)
		}
		ids = append(ids, featureID(f, i))
		pts = append(pts, toPoint(p))
	}
	return ids, pts, nil
}

// ReadRegions reads catchment regions keyed by feature id. A MultiPolygon is
// accepted only when it has a single part.
func ReadRegions(path string) (map[string]geo.Polygon, error) {
	fc, err := readFeatures(path)
	if err != nil {
		return nil, err
	}
	out := make(map[string]geo.Polygon, len(fc.Features))
	for i, f := range fc.Features {
		parts, err := polygons(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("%s feature %d: %w", path, i, err)
		}
		if len(parts) != 1 {
			return nil, fmt.Errorf("%s feature %d: %w: region has %d parts", path, i, ErrGeometryType, len(parts))
		}
		out[featureID(f, i)] = parts[0]
	}
	return out, nil
}

// ReadClusters reads an id,cluster CSV with a header row. Extra columns are
// ignored.
func ReadClusters(path string) (map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()
	return parseClusters(f)
}

func parseClusters(r io.Reader) (map[string]int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading cluster header: %w", err)
	}
	idCol, clusterCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "id":
			idCol = i
		case "cluster":
			clusterCol = i
		}
	}
	if idCol < 0 || clusterCol < 0 {
		return nil, fmt.Errorf("cluster header %v: need id and cluster columns", header)
	}

	out := make(map[string]int)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cluster line %d: %w", line, err)
		}
		if len(rec) <= idCol || len(rec) <= clusterCol {
			return nil, fmt.Errorf("cluster line %d: too few fields", line)
		}
		k, err := strconv.Atoi(strings.TrimSpace(rec[clusterCol]))
		if err != nil {
			return nil, fmt.Errorf("cluster line %d: %w", line, err)
		}
		out[strings.TrimSpace(rec[idCol])] = k
	}
	return out, nil
}

// ReadSites reads site polygons. MultiPolygon features become one site per
// part, with ids suffixed "-0", "-1" and so on.
func ReadSites(path string) ([]Site, error) {
	fc, err := readFeatures(path)
	if err != nil {
		return nil, err
	}
	var out []Site
	for i, f := range fc.Features {
		parts, err := polygons(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("%s feature %d: %w", path, i, err)
		}
		id := featureID(f, i)
		if len(parts) == 1 {
			out = append(out, Site{ID: id, Polygon: parts[0]})
			continue
		}
		for k, p := range parts {
			out = append(out, Site{ID: id + "-" + strconv.Itoa(k), Polygon: p})
		}
	}
	return out, nil
}

// ReadBuildings reads building footprints. Height and GFA come from the
// height, residential_gfa, commercial_gfa, civic_gfa and other_gfa
// properties; missing ones are 0. The parts of a MultiPolygon share the
// feature's GFA in proportion to their area.
func ReadBuildings(path string) ([]buildings.Footprint, error) {
	fc, err := readFeatures(path)
	if err != nil {
		return nil, err
	}
	var out []buildings.Footprint
	for i, f := range fc.Features {
		parts, err := polygons(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("%s feature %d: %w", path, i, err)
		}
		var vals [5]float64
		for k, key := range []string{"height", "residential_gfa", "commercial_gfa", "civic_gfa", "other_gfa"} {
			if vals[k], err = number(f.Properties, key); err != nil {
				return nil, fmt.Errorf("%s feature %d: %w", path, i, err)
			}
		}

		id := featureID(f, i)
		total := geo.MultiPolygon(parts).Area()
		for k, p := range parts {
			share := 1.0
			if len(parts) > 1 && total > 0 {
				share = p.Area() / total
			}
			fp := buildings.Footprint{
				ID:             id,
				Polygon:        p,
				Height:         vals[0],
				ResidentialGFA: vals[1] * share,
				CommercialGFA:  vals[2] * share,
				CivicGFA:       vals[3] * share,
				OtherGFA:       vals[4] * share,
			}
			if len(parts) > 1 {
				fp.ID = id + "-" + strconv.Itoa(k)
			}
			out = append(out, fp)
		}
	}
	return out, nil
}
