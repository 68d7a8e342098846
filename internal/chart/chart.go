// Package chart renders the analysis figures as PNG files with gonum/plot.
package chart

import (
	"fmt"
	"image/color"
	"path/filepath"

	"github.com/paulmach/orb"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"liquorsales/internal/aggregate"
	"liquorsales/internal/geo"
)

// Output file names, relative to the output directory.
const (
	FamiliesFile = "Dis_Liquor.png"
	StoreMapFile = "StoreMap.png"
	VendorsFile  = "Vendors_by_rank.png"
)

var (
	barColor   = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	storeColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	cityColor  = color.RGBA{R: 255, G: 165, A: 255}
)

// Size is the rendered image size.
type Size struct {
	Width  vg.Length
	Height vg.Length
}

// DefaultSize matches a default matplotlib figure (8x6 inches).
var DefaultSize = Size{Width: 8 * vg.Inch, Height: 6 * vg.Inch}

// Families builds a bar chart of sales counts per family, in thousands.
// Bars keep the order of counts.
func Families(counts []aggregate.FamilyCount) (*plot.Plot, error) {
	if len(counts) == 0 {
		return nil, fmt.Errorf("chart: families: %w", plotter.ErrNoData)
	}

	p := plot.New()
	p.Title.Text = "Distribution of Liquor Sold"
	p.Y.Label.Text = "Number of Sales (in Thousands)"

	values, labels := familyValues(counts)
	bars, err := plotter.NewBarChart(values, vg.Points(40))
	if err != nil {
		return nil, fmt.Errorf("chart: families: %w", err)
	}
	bars.Color = barColor
	bars.LineStyle.Width = vg.Length(0)

	p.Add(bars)
	p.NominalX(labels...)
	p.Y.Min = 0
	return p, nil
}

// StoreMap builds a scatter of store locations over the state boundary,
// with the given cities labeled.
//
// Stores are drawn with X = Lat and Y = Lon, the textual order of the
// location field, which puts them in the same (x, y) frame as the GeoJSON
// boundary. Cities carry geographic latitude/longitude and are drawn as
// (Lon, Lat).
//
// An empty boundary ring and an empty city list are allowed.
func StoreMap(stores []geo.StoreLocation, boundary geo.Boundary, cities []geo.City) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Liquor Stores in Iowa"
	if boundary.Name != "" {
		p.Title.Text = "Liquor Stores in " + boundary.Name
	}

	if len(stores) > 0 {
		sc, err := plotter.NewScatter(storeXYs(stores))
		if err != nil {
			return nil, fmt.Errorf("chart: store map: %w", err)
		}
		sc.GlyphStyle.Color = storeColor
		sc.GlyphStyle.Radius = vg.Points(0.5)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(sc)
	}

	if len(boundary.Ring) > 0 {
		line, err := plotter.NewLine(ringXYs(boundary.Ring))
		if err != nil {
			return nil, fmt.Errorf("chart: boundary: %w", err)
		}
		p.Add(line)
	}

	if len(cities) > 0 {
		pts, names := cityXYs(cities)
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("chart: cities: %w", err)
		}
		sc.GlyphStyle.Color = cityColor
		sc.GlyphStyle.Radius = vg.Points(3)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}

		labels, err := plotter.NewLabels(plotter.XYLabels{XYs: pts, Labels: names})
		if err != nil {
			return nil, fmt.Errorf("chart: city labels: %w", err)
		}
		labels.Offset = vg.Point{X: vg.Points(4), Y: vg.Points(2)}
		p.Add(sc, labels)
	}

	return p, nil
}

func familyValues(counts []aggregate.FamilyCount) (plotter.Values, []string) {
	values := make(plotter.Values, len(counts))
	labels := make([]string, len(counts))
	for i, c := range counts {
		values[i] = float64(c.Count) / 1000
		labels[i] = c.Family.Name()
	}
	return values, labels
}

func storeXYs(stores []geo.StoreLocation) plotter.XYs {
	pts := make(plotter.XYs, len(stores))
	for i, s := range stores {
		pts[i] = plotter.XY{X: s.Lat, Y: s.Lon}
	}
	return pts
}

func ringXYs(ring orb.Ring) plotter.XYs {
	pts := make(plotter.XYs, len(ring))
	for i, pt := range ring {
		pts[i] = plotter.XY{X: pt.X(), Y: pt.Y()}
	}
	return pts
}

func cityXYs(cities []geo.City) (plotter.XYs, []string) {
	pts := make(plotter.XYs, len(cities))
	names := make([]string, len(cities))
	for i, c := range cities {
		pts[i] = plotter.XY{X: c.Lon, Y: c.Lat}
		names[i] = c.Name
	}
	return pts, names
}

// VolumeByRank builds a line of total volume against rank (0 = largest).
// An empty ranking yields empty axes.
func VolumeByRank(title string, ranked []aggregate.Ranked) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Rank"
	p.Y.Label.Text = "Volume sold (in Liters)"

	if len(ranked) == 0 {
		return p, nil
	}
	pts := make(plotter.XYs, len(ranked))
	for i, r := range ranked {
		pts[i] = plotter.XY{X: float64(i), Y: r.Total}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("chart: ranking: %w", err)
	}
	line.Width = vg.Points(1.5)
	p.Add(line, plotter.NewGrid())
	return p, nil
}

// Save writes p to path; the format follows the file extension.
func Save(p *plot.Plot, size Size, path string) error {
	if err := p.Save(size.Width, size.Height, path); err != nil {
		return fmt.Errorf("chart: save %s: %w", path, err)
	}
	return nil
}

// Input is everything WriteAll draws.
type Input struct {
	Result   *aggregate.Result
	Boundary geo.Boundary
	Cities   []geo.City
}

// WriteAll renders the three figures into dir and returns their paths in
// the order families, store map, vendors.
func WriteAll(dir string, size Size, in Input) ([]string, error) {
	if in.Result == nil {
		return nil, fmt.Errorf("chart: no result to draw")
	}

	fam, err := Families(in.Result.Selected)
	if err != nil {
		return nil, err
	}
	stores, err := StoreMap(in.Result.Locations, in.Boundary, in.Cities)
	if err != nil {
		return nil, err
	}
	vendors, err := VolumeByRank("Vendors ranked by Volume of total liquor sold", in.Result.Vendors)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, 3)
	for _, f := range []struct {
		p    *plot.Plot
		name string
	}{
		{fam, FamiliesFile},
		{stores, StoreMapFile},
		{vendors, VendorsFile},
	} {
		path := filepath.Join(dir, f.name)
		if err := Save(f.p, size, path); err != nil {
			return out, err
		}
		out = append(out, path)
	}
	return out, nil
}
