// Package dataset reads perception libraries, site polygons and building
// footprints from GeoJSON and CSV files, and writes generation runs back out.
package dataset

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/ChicagoDave/siteplanner/pkg/geo"
)

// ErrGeometryType is returned when a feature holds a geometry of the wrong
// kind for the file it was read from.
var ErrGeometryType = errors.New("dataset: unexpected geometry type")

func readFeatures(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return fc, nil
}

// featureID returns the feature's id, falling back to properties.id and then
// to the feature's position in the collection.
func featureID(f *geojson.Feature, pos int) string {
	if s, ok := idString(f.ID); ok {
		return s
	}
	if s, ok := idString(f.Properties["id"]); ok {
		return s
	}
	return strconv.Itoa(pos)
}

func idString(v any) (string, bool) {
	switch id := v.(type) {
	case string:
		return id, id != ""
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), true
	case int:
		return strconv.Itoa(id), true
	}
	return "", false
}

// number reads a numeric property. Absent and null properties are 0;
// numeric strings are parsed.
func number(props geojson.Properties, key string) (float64, error) {
	switch v := props[key].(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("property %q: %w", key, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("property %q: unsupported type %T", key, v)
	}
}

func toPoint(p orb.Point) geo.Point2D {
	return geo.Pt(p[0], p[1])
}

func fromPoint(p geo.Point2D) orb.Point {
	return orb.Point{p.X, p.Y}
}

// openRing drops the closing vertex GeoJSON repeats at the end of a ring.
func openRing(r orb.Ring) []geo.Point2D {
	n := len(r)
	if n > 1 && r[0] == r[n-1] {
		n--
	}
	out := make([]geo.Point2D, n)
	for i := 0; i < n; i++ {
		out[i] = toPoint(r[i])
	}
	return out
}

func closedRing(pts []geo.Point2D) orb.Ring {
	r := make(orb.Ring, 0, len(pts)+1)
	for _, p := range pts {
		r = append(r, fromPoint(p))
	}
	if len(r) > 0 && r[0] != r[len(r)-1] {
		r = append(r, r[0])
	}
	return r
}

func toPolygon(p orb.Polygon) geo.Polygon {
	if len(p) == 0 {
		return geo.Polygon{}
	}
	out := geo.Polygon{Exterior: openRing(p[0])}
	for _, h := range p[1:] {
		out.Holes = append(out.Holes, openRing(h))
	}
	return out
}

func fromPolygon(p geo.Polygon) orb.Polygon {
	out := orb.Polygon{closedRing(p.Exterior)}
	for _, h := range p.Holes {
		out = append(out, closedRing(h))
	}
	return out
}

func fromMultiPolygon(m geo.MultiPolygon) orb.MultiPolygon {
	out := make(orb.MultiPolygon, 0, len(m))
	for _, p := range m {
		if p.IsEmpty() {
			continue
		}
		out = append(out, fromPolygon(p))
	}
	return out
}

// polygons flattens a Polygon or MultiPolygon geometry into its parts.
func polygons(g orb.Geometry) ([]geo.Polygon, error) {
	switch v := g.(type) {
	case orb.Polygon:
		return []geo.Polygon{toPolygon(v)}, nil
	case orb.MultiPolygon:
		out := make([]geo.Polygon, len(v))
		for i, p := range v {
			out[i] = toPolygon(p)
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("%w: missing geometry", ErrGeometryType)
	default:
		return nil, fmt.Errorf("%w: %s", ErrGeometryType, g.GeoJSONType())
	}
}
