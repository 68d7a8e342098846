package aggregate

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"liquorsales/internal/category"
	"liquorsales/internal/geo"
	"liquorsales/internal/metrics"
	"liquorsales/internal/sales"
	"liquorsales/internal/transformer"
)

// Logger is the minimal logging interface used by the engine.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

// Drop reasons, keyed as "<aggregate>.<reason>" in Result.Drops.
const (
	DropMissingCategory   = "families.missing_category"
	DropMissingDate       = "import_ratio.missing_date"
	DropInvalidDate       = "import_ratio.invalid_date"
	DropMissingVendor     = "vendor_volume.missing_vendor"
	DropVendorVolume      = "vendor_volume.missing_volume"
	DropMissingStore      = "store_volume.missing_store"
	DropStoreVolume       = "store_volume.missing_volume"
	DropMissingLocation   = "store_map.missing_location"
	DropMalformedLocation = "store_map.malformed_location"
)

// DefaultVendorThreshold is the volume (liters) a vendor must exceed to be
// ranked.
const DefaultVendorThreshold = 10000

// DefaultFamilies are the families shown on the distribution chart.
var DefaultFamilies = []category.Family{category.Whiskey, category.Vodka, category.Rum, category.Liquers}

// Engine runs every aggregate over one stream of transactions.
//
// Create engines with NewEngine. A single Engine is driven by one goroutine; it is not safe for concurrent
// use. Row-level problems (missing or malformed fields) drop the row from the
// affected aggregate only and are counted by reason. A category code outside
// the family table aborts the pass.
type Engine struct {
	Logger Logger
	// Debug logs every dropped row.
	Debug bool

	VendorThreshold float64
	StoreThreshold  float64
	Families        []category.Family
	Filter          geo.Bounds

	rows       int64
	families   *FamilyCounter
	imports    *ImportRatio
	vendors    *VolumeRanker
	stores     *VolumeRanker
	locations  *geo.Deduper
	locStats   geo.ResolveStats
	categories *category.Distinct
	drops      map[string]int64
}

// NewEngine returns an engine with the default thresholds, families and
// location filter.
func NewEngine() *Engine {
	return &Engine{
		VendorThreshold: DefaultVendorThreshold,
		Families:        DefaultFamilies,
		Filter:          geo.DefaultFilter,
		families:        NewFamilyCounter(),
		imports:         NewImportRatio(),
		vendors:         NewVolumeRanker(),
		stores:          NewVolumeRanker(),
		locations:       geo.NewDeduper(),
		categories:      category.NewDistinct(),
		drops:           make(map[string]int64),
	}
}

// Run consumes rows until the channel closes or ctx is canceled. Each row is
// coerced once, fed to every aggregate, and freed.
//
// Errors:
//   - ctx.Err() when canceled.
//   - An error wrapping category.ErrUnknownCategoryFamily, with the line
//     number, when a row carries a code outside the family table.
func (e *Engine) Run(ctx context.Context, rows <-chan *transformer.Row) (res *Result, err error) {
	start := time.Now()
	defer metrics.RecordStep("aggregate", start, &err)
	logf := e.logger()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case r, ok := <-rows:
			if !ok {
				res = e.Result()
				e.report(res)
				logf("stage=aggregate rows=%d dropped=%d vendors=%d stores=%d locations=%d duration=%s",
					res.Rows, res.Dropped(), res.VendorCount, res.StoreCount, len(res.Locations),
					time.Since(start).Truncate(time.Millisecond))
				return res, nil
			}
			tx := sales.FromRow(r)
			r.Free()
			if err := e.Observe(&tx); err != nil {
				return nil, err
			}
		}
	}
}

// Observe feeds one transaction to every aggregate.
func (e *Engine) Observe(tx *sales.Transaction) error {
	e.rows++

	cat, err := tx.Decode()
	switch {
	case err == nil:
		e.families.Add(cat.Family)
		if err := e.categories.Add(cat.Code, tx.CategoryName); err != nil {
			return fmt.Errorf("aggregate: line %d: %w", tx.Line, err)
		}
	case sales.IsMissing(err):
		e.drop(tx, DropMissingCategory, err)
	default:
		return fmt.Errorf("aggregate: line %d: %w", tx.Line, err)
	}

	if cat.Family != 0 {
		if d, err := tx.RequireDate(); err == nil {
			e.imports.Add(d.Year(), cat.Imported())
		} else if sales.IsMissing(err) {
			e.drop(tx, DropMissingDate, err)
		} else {
			e.drop(tx, DropInvalidDate, err)
		}
	}

	switch {
	case tx.VendorNumber == "":
		e.drop(tx, DropMissingVendor, nil)
	case !tx.HasVolume:
		e.drop(tx, DropVendorVolume, nil)
	default:
		e.vendors.Add(tx.VendorNumber, tx.VendorName, tx.VolumeLiters)
	}

	if tx.StoreNumber == "" {
		e.drop(tx, DropMissingStore, nil)
		return nil
	}
	if tx.HasVolume {
		e.stores.Add(tx.StoreNumber, tx.StoreName, tx.VolumeLiters)
	} else {
		e.drop(tx, DropStoreVolume, nil)
	}

	if e.locations.Seen(tx.StoreNumber) {
		e.locStats.Duplicates++
		return nil
	}
	if tx.StoreLocation == "" {
		e.drop(tx, DropMissingLocation, nil)
		return nil
	}
	p, err := geo.ParsePoint(tx.StoreLocation)
	if err != nil {
		e.locStats.Malformed++
		e.drop(tx, DropMalformedLocation, err)
		return nil
	}
	e.locations.Add(tx.StoreNumber, p)
	return nil
}

func (e *Engine) drop(tx *sales.Transaction, reason string, err error) {
	e.drops[reason]++
	if e.Debug {
		e.logger()("stage=aggregate_drop line=%d reason=%s err=%v", tx.Line, reason, err)
	}
}

// Result snapshots every aggregate. The location filter is applied here,
// after deduplication.
func (e *Engine) Result() *Result {
	st := e.locStats
	locs := geo.FilterLocations(e.locations.Locations(), e.Filter, &st)

	drops := make(map[string]int64, len(e.drops))
	for k, v := range e.drops {
		drops[k] = v
	}

	return &Result{
		Rows:          e.rows,
		Families:      e.families.Counts(),
		Selected:      e.families.Select(e.Families),
		ImportByYear:  e.imports.ByYear(),
		ImportSamples: e.importSamples(),
		ImportOverall: e.imports.Overall(),
		Vendors:       e.vendors.Ranking(e.VendorThreshold),
		VendorCount:   e.vendors.Len(),
		Stores:        e.stores.Ranking(e.StoreThreshold),
		StoreCount:    e.stores.Len(),
		Locations:     locs,
		LocationStats: st,
		Categories:    e.categories.Entries(),
		Drops:         drops,
	}
}

func (e *Engine) importSamples() map[int]int64 {
	out := make(map[int]int64)
	for _, y := range e.imports.Years() {
		out[y] = e.imports.Samples(y)
	}
	return out
}

func (e *Engine) report(res *Result) {
	metrics.IncCounter(metrics.RecordsTotal, float64(res.Rows), metrics.Labels{"kind": "read"})
	for _, reason := range res.DropReasons() {
		metrics.IncCounter(metrics.DropsTotal, float64(res.Drops[reason]), metrics.Labels{"reason": reason})
	}
}

func (e *Engine) logger() func(format string, v ...any) {
	if e.Logger == nil {
		l := log.New(discardWriter{}, "", 0)
		return l.Printf
	}
	return e.Logger.Printf
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (n int, err error) { return len(p), nil }

// Result holds the output of one pass.
type Result struct {
	Rows int64

	Families map[category.Family]int64
	Selected []FamilyCount

	ImportByYear  map[int]float64
	ImportSamples map[int]int64
	ImportOverall float64

	Vendors     []Ranked
	VendorCount int
	Stores      []Ranked
	StoreCount  int

	Locations     []geo.StoreLocation
	LocationStats geo.ResolveStats

	Categories []category.Entry

	Drops map[string]int64
}

// Years returns the years of ImportByYear in ascending order.
func (r *Result) Years() []int {
	years := make([]int, 0, len(r.ImportByYear))
	for y := range r.ImportByYear {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Dropped returns the total of all drop counters. A row dropped from several
// aggregates is counted once per aggregate.
func (r *Result) Dropped() int64 {
	var n int64
	for _, v := range r.Drops {
		n += v
	}
	return n
}

// DropReasons returns the drop reasons that occurred, sorted.
func (r *Result) DropReasons() []string {
	out := make([]string, 0, len(r.Drops))
	for k := range r.Drops {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
