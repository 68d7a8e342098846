package analysis

import (
	"context"
	"fmt"
	"sort"
	"time"

	"liquorsales/internal/aggregate"
	"liquorsales/internal/storage"
)

// Results tables. Every row carries the run_id of the analysis that
// produced it, so repeated runs accumulate side by side.
const (
	TableRuns       = "liquor_runs"
	TableFamilies   = "liquor_family_counts"
	TableImports    = "liquor_import_ratio"
	TableVendors    = "liquor_vendor_volume"
	TableStores     = "liquor_store_volume"
	TableLocations  = "liquor_store_locations"
	TableCategories = "liquor_categories"
	TableDrops      = "liquor_drops"
)

func runIDColumn() storage.ColumnSpec {
	return storage.ColumnSpec{Name: "run_id", Type: storage.TypeText, NotNull: true}
}

func uniqueOn(cols ...string) []storage.ConstraintSpec {
	return []storage.ConstraintSpec{{Kind: "unique", Columns: cols}}
}

// ResultTables returns the specs of every results table.
func ResultTables() []storage.TableSpec {
	return []storage.TableSpec{
		{
			Name: TableRuns,
			Columns: []storage.ColumnSpec{
				runIDColumn(),
				{Name: "source", Type: storage.TypeText},
				{Name: "started_at", Type: storage.TypeTimestamp, NotNull: true},
				{Name: "finished_at", Type: storage.TypeTimestamp, NotNull: true},
				{Name: "row_count", Type: storage.TypeInteger, NotNull: true},
				{Name: "dropped", Type: storage.TypeInteger, NotNull: true},
				{Name: "import_ratio", Type: storage.TypeReal},
			},
			Constraints: uniqueOn("run_id"),
		},
		{
			Name: TableFamilies,
			Columns: []storage.ColumnSpec{
				runIDColumn(),
				{Name: "family", Type: storage.TypeInteger, NotNull: true},
				{Name: "name", Type: storage.TypeText},
				{Name: "row_count", Type: storage.TypeInteger, NotNull: true},
			},
			Constraints: uniqueOn("run_id", "family"),
		},
		{
			Name: TableImports,
			Columns: []storage.ColumnSpec{
				runIDColumn(),
				{Name: "year", Type: storage.TypeInteger, NotNull: true},
				{Name: "row_count", Type: storage.TypeInteger, NotNull: true},
				{Name: "ratio", Type: storage.TypeReal, NotNull: true},
			},
			Constraints: uniqueOn("run_id", "year"),
		},
		rankingTable(TableVendors, "vendor"),
		rankingTable(TableStores, "store"),
		{
			Name: TableLocations,
			Columns: []storage.ColumnSpec{
				runIDColumn(),
				{Name: "store", Type: storage.TypeText, NotNull: true},
				{Name: "lat", Type: storage.TypeReal, NotNull: true},
				{Name: "lon", Type: storage.TypeReal, NotNull: true},
			},
			Constraints: uniqueOn("run_id", "store"),
		},
		{
			Name: TableCategories,
			Columns: []storage.ColumnSpec{
				runIDColumn(),
				{Name: "code", Type: storage.TypeInteger, NotNull: true},
				{Name: "name", Type: storage.TypeText},
				{Name: "family", Type: storage.TypeInteger, NotNull: true},
				{Name: "origin", Type: storage.TypeText, NotNull: true},
			},
			Constraints: uniqueOn("run_id", "code"),
		},
		{
			Name: TableDrops,
			Columns: []storage.ColumnSpec{
				runIDColumn(),
				{Name: "reason", Type: storage.TypeText, NotNull: true},
				{Name: "row_count", Type: storage.TypeInteger, NotNull: true},
			},
			Constraints: uniqueOn("run_id", "reason"),
		},
	}
}

func rankingTable(name, key string) storage.TableSpec {
	return storage.TableSpec{
		Name: name,
		Columns: []storage.ColumnSpec{
			runIDColumn(),
			{Name: "rank", Type: storage.TypeInteger, NotNull: true},
			{Name: key, Type: storage.TypeText, NotNull: true},
			{Name: "name", Type: storage.TypeText},
			{Name: "liters", Type: storage.TypeReal, NotNull: true},
		},
		Constraints: uniqueOn("run_id", key),
	}
}

// RunInfo identifies one stored run.
type RunInfo struct {
	ID       string
	Source   string
	Started  time.Time
	Finished time.Time
}

type tableRows struct {
	spec storage.TableSpec
	rows [][]any
}

func resultRows(run RunInfo, res *aggregate.Result) []tableRows {
	specs := ResultTables()
	out := make([]tableRows, len(specs))
	for i, s := range specs {
		out[i].spec = s
	}
	id := run.ID

	out[0].rows = [][]any{{id, run.Source, run.Started.UTC(), run.Finished.UTC(), res.Rows, res.Dropped(), res.ImportOverall}}

	for _, fc := range familyCounts(res) {
		out[1].rows = append(out[1].rows, []any{id, int64(fc.Family), fc.Family.Name(), fc.Count})
	}
	for _, y := range res.Years() {
		out[2].rows = append(out[2].rows, []any{id, int64(y), res.ImportSamples[y], res.ImportByYear[y]})
	}
	for i, v := range res.Vendors {
		out[3].rows = append(out[3].rows, []any{id, int64(i + 1), v.Key, v.Name, v.Total})
	}
	for i, s := range res.Stores {
		out[4].rows = append(out[4].rows, []any{id, int64(i + 1), s.Key, s.Name, s.Total})
	}
	for _, l := range res.Locations {
		out[5].rows = append(out[5].rows, []any{id, l.Store, l.Lat, l.Lon})
	}
	for _, c := range res.Categories {
		out[6].rows = append(out[6].rows, []any{id, int64(c.Code), c.Name, int64(c.Family), c.Origin.String()})
	}
	for _, r := range res.DropReasons() {
		out[7].rows = append(out[7].rows, []any{id, r, res.Drops[r]})
	}
	return out
}

// familyCounts returns every family with a non-zero count, in code order.
func familyCounts(res *aggregate.Result) []aggregate.FamilyCount {
	out := make([]aggregate.FamilyCount, 0, len(res.Families))
	for f, n := range res.Families {
		if n > 0 {
			out = append(out, aggregate.FamilyCount{Family: f, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Family < out[j].Family })
	return out
}

// SaveResults creates the results tables if needed and inserts res under
// run.ID. Inserts dedupe on each table's unique key, so saving the same run
// twice is a no-op. It returns rows inserted per table.
func SaveResults(ctx context.Context, repo storage.Repository, run RunInfo, res *aggregate.Result) (map[string]int64, error) {
	if err := repo.EnsureTables(ctx, ResultTables()); err != nil {
		return nil, err
	}
	inserted := make(map[string]int64)
	for _, t := range resultRows(run, res) {
		if len(t.rows) == 0 {
			continue
		}
		n, err := repo.InsertRows(ctx, t.spec.Name, t.spec.ColumnNames(), t.rows, t.spec.Constraints[0].Columns)
		if err != nil {
			return inserted, fmt.Errorf("store %s: %w", t.spec.Name, err)
		}
		inserted[t.spec.Name] = n
	}
	return inserted, nil
}
