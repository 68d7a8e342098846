package analysis

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquorsales/internal/aggregate"
	"liquorsales/internal/category"
	"liquorsales/internal/chart"
	"liquorsales/internal/config"
	"liquorsales/internal/parser/csv"
	"liquorsales/internal/report"
	"liquorsales/internal/storage"
	_ "liquorsales/internal/storage/sqlite"
)

const header = "Invoice/Item Number,Date,Store Number,Store Name,Store Location,Category,Category Name," +
	"Vendor Number,Vendor Name,Bottles Sold,Bottle Volume (ml),Volume Sold (Liters)\n"

const salesCSV = header +
	`S1,01/05/2014,2191,Keokuk Spirits,"1013 MAIN
KEOKUK 52632
(-91.55 43.17)",1031080,VODKA 80 PROOF,260,Diageo Americas,12,1000,12` + "\n" +
	`S2,02/05/2015,2191,Keokuk Spirits,"(-90.00 42.00)",1032080,IMPORTED VODKA,260,Diageo Americas,,,8000` + "\n" +
	`S3,03/01/2015,4000,Hy-Vee #3,"(-93.6 41.5)",1011100,BLENDED WHISKIES,65,Jim Beam Brands,,,20000` + "\n" +
	`S4,13/45/2015,5000,Casey's,,1062200,IMPORTED RUM,65,Jim Beam Brands,,,1` + "\n" +
	`S5,03/02/2015,6000,Fareway,,,,370,Sazerac,,,5` + "\n"

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func baseConfig(t *testing.T, dir string) *config.Config {
	t.Helper()
	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	cfg.Input = config.InputConfig{Transactions: writeFile(t, dir, "sales.csv", salesCSV)}
	cfg.Output = config.OutputConfig{Dir: filepath.Join(dir, "out")}
	cfg.Runtime.ChannelBuffer = 2
	cfg.Storage.Kind = "none"
	return cfg
}

func TestAggregate_File(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := baseConfig(t, dir)
	engine, err := Engine(cfg, nil, false)
	require.NoError(t, err)

	res, err := Aggregate(context.Background(), cfg.Input.Transactions, engine, 1)
	require.NoError(t, err)

	assert.Equal(t, int64(5), res.Rows)
	assert.Equal(t, int64(2), res.Families[category.Vodka])
	assert.Equal(t, int64(1), res.Families[category.Whiskey])
	assert.Equal(t, int64(1), res.Families[category.Rum])

	assert.Equal(t, 0.0, res.ImportByYear[2014])
	assert.Equal(t, 0.5, res.ImportByYear[2015])
	assert.InDelta(t, 1.0/3.0, res.ImportOverall, 1e-12)

	require.Len(t, res.Vendors, 1)
	assert.Equal(t, "65", res.Vendors[0].Key)
	assert.Equal(t, 20001.0, res.Vendors[0].Total)
	assert.Equal(t, 3, res.VendorCount)

	require.Len(t, res.Stores, 4)
	assert.Equal(t, "4000", res.Stores[0].Key)
	assert.Equal(t, 8012.0, res.Stores[1].Total)

	require.Len(t, res.Locations, 2)
	assert.Equal(t, "2191", res.Locations[0].Store)
	assert.Equal(t, -91.55, res.Locations[0].Lat)

	assert.Equal(t, int64(1), res.Drops[aggregate.DropInvalidDate])
	assert.Equal(t, int64(1), res.Drops[aggregate.DropMissingCategory])
}

func TestAggregate_MissingRequiredColumn(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "sales.csv", "Date,Store Number,Category\n01/05/2014,1,1031080\n")
	engine, err := Engine(baseConfig(t, dir), nil, false)
	require.NoError(t, err)

	_, err = Aggregate(context.Background(), path, engine, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, csv.ErrMissingColumn), "got %v", err)
}

func TestAggregate_UnknownFamilyAborts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	body := header + "S1,01/05/2014,1,A,,9991080,BOGUS,260,V,,,1\n"
	for i := 0; i < 50; i++ {
		body += "S2,01/05/2014,1,A,,1031080,VODKA,260,V,,,1\n"
	}
	path := writeFile(t, dir, "sales.csv", body)
	engine, err := Engine(baseConfig(t, dir), nil, false)
	require.NoError(t, err)

	_, err = Aggregate(context.Background(), path, engine, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, category.ErrUnknownCategoryFamily), "got %v", err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestAggregate_MissingFile(t *testing.T) {
	t.Parallel()

	engine, err := Engine(baseConfig(t, t.TempDir()), nil, false)
	require.NoError(t, err)
	_, err = Aggregate(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), engine, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestEngine_RejectsUnknownConfiguredFamily(t *testing.T) {
	t.Parallel()

	cfg := baseConfig(t, t.TempDir())
	cfg.Analysis.Families = []int{101, 111}
	_, err := Engine(cfg, nil, false)
	assert.True(t, errors.Is(err, category.ErrUnknownCategoryFamily))
}

type fakeRepo struct {
	ensured  []storage.TableSpec
	inserted map[string][][]any
	dedupe   map[string][]string
	closed   bool
}

func (f *fakeRepo) Close() { f.closed = true }

func (f *fakeRepo) EnsureTables(_ context.Context, tables []storage.TableSpec) error {
	f.ensured = tables
	return nil
}

func (f *fakeRepo) InsertRows(_ context.Context, table string, columns []string, rows [][]any, dedupe []string) (int64, error) {
	if f.inserted == nil {
		f.inserted = map[string][][]any{}
		f.dedupe = map[string][]string{}
	}
	for _, r := range rows {
		if len(r) != len(columns) {
			return 0, errors.New("row width mismatch")
		}
	}
	f.inserted[table] = append(f.inserted[table], rows...)
	f.dedupe[table] = dedupe
	return int64(len(rows)), nil
}

func fixedRunner(repo storage.Repository) *Runner {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &Runner{
		NewRepository: func(context.Context, storage.Config) (storage.Repository, error) { return repo, nil },
		NewRunID:      func() string { return "run-1" },
		Now:           func() time.Time { return now },
	}
}

func TestRunner_Run_AllOutputs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := baseConfig(t, dir)
	cfg.Input.Boundaries = writeFile(t, dir, "states.json", `{"type":"FeatureCollection","features":[
{"type":"Feature","properties":{"NAME":"Iowa"},"geometry":{"type":"Polygon","coordinates":[[[-96.6,43.5],[-90.1,43.5],[-90.1,40.4],[-96.6,40.4],[-96.6,43.5]]]}}]}`)
	cfg.Analysis.BoundaryFeature = 0
	cfg.Input.Cities = writeFile(t, dir, "cities.txt", "Name\tLatitude/Longitude\nDes Moines \t41.59 / -93.62\nCedar Rapids\t41.98 / -91.67\n")
	cfg.Input.Population = writeFile(t, dir, "pop.txt", "County\tPopulation\nPolk\t430640\nLinn\t211226\n")
	cfg.Input.PopulationCache = filepath.Join(dir, "pop.cache")
	cfg.Output.Charts, cfg.Output.Report = true, true
	cfg.Storage = config.StorageConfig{Kind: "fake"}

	repo := &fakeRepo{}
	out, err := fixedRunner(repo).Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, "run-1", out.RunID)
	require.Len(t, out.Charts, 3)
	for _, p := range out.Charts {
		_, err := os.Stat(p)
		require.NoError(t, err)
	}
	assert.Equal(t, filepath.Join(cfg.Output.Dir, chart.FamiliesFile), out.Charts[0])
	assert.Equal(t, filepath.Join(cfg.Output.Dir, report.File), out.Report)
	require.NotNil(t, out.Population)
	assert.Equal(t, int64(641866), out.Population.Total())

	assert.True(t, repo.closed)
	assert.Len(t, repo.ensured, len(ResultTables()))
	assert.Len(t, repo.inserted[TableRuns], 1)
	assert.Equal(t, "run-1", repo.inserted[TableRuns][0][0])
	assert.Len(t, repo.inserted[TableVendors], 1)
	assert.Len(t, repo.inserted[TableLocations], 2)
	assert.Equal(t, []string{"run_id", "year"}, repo.dedupe[TableImports])
	assert.Equal(t, int64(1), out.Stored[TableRuns])

	_, err = os.Stat(cfg.Input.PopulationCache)
	require.NoError(t, err)
}

func TestRunner_Run_OutputsDisabled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := baseConfig(t, dir)
	cfg.Output.Charts, cfg.Output.Report = false, false

	out, err := fixedRunner(nil).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Empty(t, out.Charts)
	assert.Empty(t, out.Report)
	assert.Nil(t, out.Stored)

	_, err = os.Stat(cfg.Output.Dir)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRunner_Run_MissingBoundaryFileIsFatal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := baseConfig(t, dir)
	cfg.Output.Charts = true
	cfg.Input.Boundaries = filepath.Join(dir, "missing.json")

	_, err := fixedRunner(nil).Run(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRunner_Run_RequiresTransactions(t *testing.T) {
	t.Parallel()

	cfg := baseConfig(t, t.TempDir())
	cfg.Input.Transactions = ""
	_, err := fixedRunner(nil).Run(context.Background(), cfg)
	assert.True(t, errors.Is(err, config.ErrMissingInput))
}

func TestSaveResults_SQLite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dsn := "file:" + filepath.Join(dir, "results.db")
	cfg := baseConfig(t, dir)
	engine, err := Engine(cfg, nil, false)
	require.NoError(t, err)
	res, err := Aggregate(context.Background(), cfg.Input.Transactions, engine, 4)
	require.NoError(t, err)

	ctx := context.Background()
	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: dsn})
	require.NoError(t, err)
	run := RunInfo{ID: "run-1", Source: "sales.csv", Started: time.Now(), Finished: time.Now()}

	first, err := SaveResults(ctx, repo, run, res)
	require.NoError(t, err)
	assert.Equal(t, int64(2), first[TableLocations])

	again, err := SaveResults(ctx, repo, run, res)
	require.NoError(t, err)
	for table, n := range again {
		assert.Zero(t, n, "table %s re-inserted rows", table)
	}
	repo.Close()

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM liquor_store_volume WHERE run_id = 'run-1'`).Scan(&n))
	assert.Equal(t, 4, n)

	var vendor string
	require.NoError(t, db.QueryRow(`SELECT vendor FROM liquor_vendor_volume WHERE "rank" = 1`).Scan(&vendor))
	assert.Equal(t, "65", vendor)
}

func TestResultTables_Valid(t *testing.T) {
	t.Parallel()

	names := make([]string, 0)
	for _, spec := range ResultTables() {
		require.NoError(t, spec.Validate(), spec.Name)
		require.NotEmpty(t, spec.Constraints)
		names = append(names, spec.Name)
	}
	assert.True(t, strings.HasPrefix(strings.Join(names, ","), TableRuns))
}
