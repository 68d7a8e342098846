package geo

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"liquorsales/internal/parser/csv"
)

// City is a named reference point drawn on the store map.
type City struct {
	Name string
	Lat  float64
	Lon  float64
}

// ParseCityCoordinates parses "<lat> / <lon>".
func ParseCityCoordinates(s string) (lat, lon float64, err error) {
	parts := strings.Split(s, " / ")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("geo: %w: city coordinates %q", ErrMalformedLocation, s)
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("geo: %w: city latitude %q", ErrMalformedLocation, parts[0])
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("geo: %w: city longitude %q", ErrMalformedLocation, parts[1])
	}
	return lat, lon, nil
}

// LoadCities reads a tab-separated file with "Name" and "Latitude/Longitude"
// columns and returns at most limit cities in file order (limit <= 0 means
// all).
func LoadCities(ctx context.Context, path string, limit int) ([]City, error) {
	rows, err := csv.ReadFile(ctx, path, []string{"name", "latitude_longitude"}, csv.Options{
		Comma:      '\t',
		LazyQuotes: true,
		Required:   []string{"name", "latitude_longitude"},
	})
	if err != nil {
		return nil, err
	}

	cities := make([]City, 0, len(rows))
	for _, r := range rows {
		if limit > 0 && len(cities) >= limit {
			break
		}
		lat, lon, err := ParseCityCoordinates(r[1])
		if err != nil {
			return nil, fmt.Errorf("%s: city %q: %w", path, r[0], err)
		}
		cities = append(cities, City{Name: strings.TrimSpace(r[0]), Lat: lat, Lon: lon})
	}
	return cities, nil
}

// Selector picks one feature from a FeatureCollection. Name, when set, is
// matched against the NAME property; otherwise Index is used.
type Selector struct {
	Index int
	Name  string
}

// Boundary is the outer ring of one state polygon, in GeoJSON (x, y) order.
type Boundary struct {
	Name string
	Ring orb.Ring
}

// LoadBoundary reads a GeoJSON FeatureCollection and returns the outer ring of
// the selected feature. For MultiPolygon features the ring of the polygon with
// the most vertices is returned.
func LoadBoundary(path string, sel Selector) (Boundary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Boundary{}, fmt.Errorf("read boundaries: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return Boundary{}, fmt.Errorf("parse boundaries %s: %w", path, err)
	}

	f, err := selectFeature(fc, sel)
	if err != nil {
		return Boundary{}, fmt.Errorf("%s: %w", path, err)
	}

	name := f.Properties.MustString("NAME", "")
	if f.Geometry == nil {
		return Boundary{}, fmt.Errorf("%s: feature %q has no geometry", path, name)
	}
	switch g := f.Geometry.(type) {
	case orb.Polygon:
		if len(g) == 0 {
			return Boundary{}, fmt.Errorf("%s: feature %q has an empty polygon", path, name)
		}
		return Boundary{Name: name, Ring: g[0]}, nil
	case orb.MultiPolygon:
		var best orb.Ring
		for _, poly := range g {
			if len(poly) > 0 && len(poly[0]) > len(best) {
				best = poly[0]
			}
		}
		if best == nil {
			return Boundary{}, fmt.Errorf("%s: feature %q has an empty multipolygon", path, name)
		}
		return Boundary{Name: name, Ring: best}, nil
	default:
		return Boundary{}, fmt.Errorf("%s: feature %q: unsupported geometry %s", path, name, f.Geometry.GeoJSONType())
	}
}

func selectFeature(fc *geojson.FeatureCollection, sel Selector) (*geojson.Feature, error) {
	if sel.Name != "" {
		for _, f := range fc.Features {
			if strings.EqualFold(f.Properties.MustString("NAME", ""), sel.Name) {
				return f, nil
			}
		}
		return nil, fmt.Errorf("no feature named %q", sel.Name)
	}
	if sel.Index < 0 || sel.Index >= len(fc.Features) {
		return nil, fmt.Errorf("feature index %d out of range (%d features)", sel.Index, len(fc.Features))
	}
	return fc.Features[sel.Index], nil
}
