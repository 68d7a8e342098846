package geo

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func formatPoint(p Point) string {
	return "(" + strconv.FormatFloat(p.Lat, 'g', -1, 64) + " " + strconv.FormatFloat(p.Lon, 'g', -1, 64) + ")"
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadCities(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "cities.txt",
		"Name\tCounty\tLatitude/Longitude\n"+
			"Des Moines \tPolk\t41.590833 / -93.620833\n"+
			"Cedar Rapids\tLinn\t41.983333 / -91.668611\n"+
			"Davenport\tScott\t41.543056 / -90.590833\n")

	cities, err := LoadCities(context.Background(), path, 2)
	require.NoError(t, err)
	require.Len(t, cities, 2)
	assert.Equal(t, City{Name: "Des Moines", Lat: 41.590833, Lon: -93.620833}, cities[0])
	assert.Equal(t, "Cedar Rapids", cities[1].Name)

	all, err := LoadCities(context.Background(), path, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestLoadCities_BadCoordinates(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "cities.txt", "Name\tLatitude/Longitude\nAmes\t42.03\n")
	_, err := LoadCities(context.Background(), path, 0)
	assert.ErrorIs(t, err, ErrMalformedLocation)
}

const boundaries = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"NAME": "Idaho"},
     "geometry": {"type": "Polygon", "coordinates": [[[-117,42],[-111,42],[-111,49],[-117,42]]]}},
    {"type": "Feature", "properties": {"NAME": "Iowa"},
     "geometry": {"type": "Polygon", "coordinates": [[[-96.6,43.5],[-91.2,43.5],[-90.1,41.8],[-91.4,40.4],[-95.8,40.6],[-96.6,43.5]]]}},
    {"type": "Feature", "properties": {"NAME": "Hawaii"},
     "geometry": {"type": "MultiPolygon", "coordinates": [
        [[[-155,19],[-154,19],[-155,20],[-155,19]]],
        [[[-160,22],[-159,22],[-159.5,22.5],[-159.8,22.3],[-160,22]]]
     ]}}
  ]
}`

func TestLoadBoundary(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "states.json", boundaries)

	b, err := LoadBoundary(path, Selector{Index: 1})
	require.NoError(t, err)
	assert.Equal(t, "Iowa", b.Name)
	require.Len(t, b.Ring, 6)
	assert.Equal(t, -96.6, b.Ring[0].X())
	assert.Equal(t, 43.5, b.Ring[0].Y())

	byName, err := LoadBoundary(path, Selector{Name: "iowa"})
	require.NoError(t, err)
	assert.Equal(t, b, byName)

	hi, err := LoadBoundary(path, Selector{Name: "Hawaii"})
	require.NoError(t, err)
	assert.Len(t, hi.Ring, 5)

	_, err = LoadBoundary(path, Selector{Index: 33})
	assert.Error(t, err)
	_, err = LoadBoundary(path, Selector{Name: "Atlantis"})
	assert.Error(t, err)
}
