package geo

// Bounds is an outlier filter over parsed points.
//
// A point is kept when LonMin < Lon <= LonMax and Lat < LatMax.
type Bounds struct {
	LonMin float64
	LonMax float64
	LatMax float64
}

// DefaultFilter keeps the band the source data uses for in-state stores:
// 40 < Lon <= 44 and Lat < -80.
var DefaultFilter = Bounds{LonMin: 40, LonMax: 44, LatMax: -80}

// Keep reports whether p passes the filter.
func (b Bounds) Keep(p Point) bool {
	return p.Lon > b.LonMin && p.Lon <= b.LonMax && p.Lat < b.LatMax
}

// StoreLocation is the canonical location of one store.
type StoreLocation struct {
	Store string
	Point
}

// Deduper keeps the first location seen per store. Later locations for the
// same store are discarded even if they differ.
type Deduper struct {
	seen  map[string]struct{}
	order []StoreLocation
}

// NewDeduper returns an empty Deduper.
func NewDeduper() *Deduper {
	return &Deduper{seen: make(map[string]struct{})}
}

// Add records p for store unless the store was already seen. It reports
// whether p was kept.
func (d *Deduper) Add(store string, p Point) bool {
	if _, ok := d.seen[store]; ok {
		return false
	}
	d.seen[store] = struct{}{}
	d.order = append(d.order, StoreLocation{Store: store, Point: p})
	return true
}

// Seen reports whether store already has a location.
func (d *Deduper) Seen(store string) bool {
	_, ok := d.seen[store]
	return ok
}

// Len returns the number of distinct stores.
func (d *Deduper) Len() int { return len(d.order) }

// Locations returns the kept locations in first-seen order.
func (d *Deduper) Locations() []StoreLocation {
	return append([]StoreLocation(nil), d.order...)
}

// RawLocation is an unparsed (store, location text) pair.
type RawLocation struct {
	Store    string
	Location string
}

// ResolveStats counts what Resolve dropped.
type ResolveStats struct {
	Malformed  int
	Duplicates int
	Outliers   int
}

// Resolve parses, deduplicates and filters rows in one pass. Deduplication
// runs before the filter, so a store whose first location is an outlier is
// dropped even if a later row has a good one.
func Resolve(rows []RawLocation, filter Bounds) ([]StoreLocation, ResolveStats) {
	var st ResolveStats
	d := NewDeduper()
	for _, r := range rows {
		if r.Store == "" || r.Location == "" {
			st.Malformed++
			continue
		}
		p, err := ParsePoint(r.Location)
		if err != nil {
			st.Malformed++
			continue
		}
		if !d.Add(r.Store, p) {
			st.Duplicates++
		}
	}
	return FilterLocations(d.Locations(), filter, &st), st
}

// FilterLocations returns the locations that pass filter. When st is non-nil
// its Outliers counter is incremented for each dropped location.
func FilterLocations(locs []StoreLocation, filter Bounds, st *ResolveStats) []StoreLocation {
	out := make([]StoreLocation, 0, len(locs))
	for _, l := range locs {
		if !filter.Keep(l.Point) {
			if st != nil {
				st.Outliers++
			}
			continue
		}
		out = append(out, l)
	}
	return out
}
