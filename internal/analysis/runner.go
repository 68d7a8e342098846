package analysis

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"liquorsales/internal/aggregate"
	"liquorsales/internal/category"
	"liquorsales/internal/chart"
	"liquorsales/internal/config"
	"liquorsales/internal/geo"
	"liquorsales/internal/metrics"
	"liquorsales/internal/population"
	"liquorsales/internal/report"
	"liquorsales/internal/storage"
)

// Logger is the minimal logging interface used by the runner.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

// Runner executes analysis runs. The function fields are seams for tests.
type Runner struct {
	Logger Logger
	Debug  bool

	NewRepository func(ctx context.Context, cfg storage.Config) (storage.Repository, error)
	NewRunID      func() string
	Now           func() time.Time
}

// NewDefaultRunner returns a runner backed by the storage registry.
func NewDefaultRunner(logger Logger) *Runner {
	return &Runner{
		Logger:        logger,
		NewRepository: storage.New,
		NewRunID:      func() string { return uuid.NewString() },
		Now:           time.Now,
	}
}

// Outcome summarizes one run.
type Outcome struct {
	RunID      string
	Result     *aggregate.Result
	Population *population.Table
	Charts     []string
	Report     string
	Stored     map[string]int64
	Duration   time.Duration
}

// Engine builds an aggregate engine from the analysis settings.
func Engine(cfg *config.Config, logger Logger, debug bool) (*aggregate.Engine, error) {
	fams := make([]category.Family, len(cfg.Analysis.Families))
	for i, code := range cfg.Analysis.Families {
		f := category.Family(code)
		if !f.Known() {
			return nil, fmt.Errorf("analysis: %w: %d in analysis.families", category.ErrUnknownCategoryFamily, code)
		}
		fams[i] = f
	}

	e := aggregate.NewEngine()
	e.Logger = logger
	e.Debug = debug
	e.VendorThreshold = cfg.Analysis.VendorThreshold
	e.StoreThreshold = cfg.Analysis.StoreThreshold
	if len(fams) > 0 {
		e.Families = fams
	}
	return e, nil
}

// Run performs the full analysis: aggregate, population, charts, report and
// results store, in that order. Charts, report, population and store are
// each skipped when disabled or unconfigured.
func (r *Runner) Run(ctx context.Context, cfg *config.Config) (*Outcome, error) {
	if err := cfg.Require("transactions"); err != nil {
		return nil, err
	}
	logf := r.logger()
	started := r.now()
	out := &Outcome{RunID: r.runID()}

	engine, err := Engine(cfg, r.Logger, r.Debug)
	if err != nil {
		return nil, err
	}
	res, err := Aggregate(ctx, cfg.Input.Transactions, engine, cfg.Runtime.ChannelBuffer)
	if err != nil {
		return nil, err
	}
	out.Result = res

	if cfg.Input.Population != "" {
		t, hit, err := population.LoadCached(ctx, cfg.Input.Population, cfg.Input.PopulationCache, population.Options{})
		if err != nil {
			return nil, err
		}
		out.Population = t
		logf("stage=population keys=%d total=%d cache_hit=%t", t.Len(), t.Total(), hit)
	}

	if (cfg.Output.Charts || cfg.Output.Report) && cfg.Output.Dir != "" {
		if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("output dir: %w", err)
		}
	}

	if cfg.Output.Charts {
		paths, err := r.writeCharts(ctx, cfg, res)
		if err != nil {
			return nil, err
		}
		out.Charts = paths
	}

	if cfg.Output.Report {
		path := filepath.Join(cfg.Output.Dir, report.File)
		err := func() (err error) {
			defer metrics.RecordStep("report", time.Now(), &err)
			return report.WriteWorkbook(path, report.Summary{
				RunID:      out.RunID,
				Source:     cfg.Input.Transactions,
				Result:     res,
				Population: out.Population,
			})
		}()
		if err != nil {
			return nil, err
		}
		out.Report = path
		logf("stage=report path=%s", path)
	}

	if cfg.Storage.Enabled() {
		stored, err := r.store(ctx, cfg, RunInfo{
			ID:       out.RunID,
			Source:   cfg.Input.Transactions,
			Started:  started,
			Finished: r.now(),
		}, res)
		if err != nil {
			return nil, err
		}
		out.Stored = stored
	}

	out.Duration = r.now().Sub(started)
	logf("stage=run run_id=%s rows=%d dropped=%d duration=%s",
		out.RunID, res.Rows, res.Dropped(), out.Duration.Truncate(time.Millisecond))
	return out, nil
}

func (r *Runner) writeCharts(ctx context.Context, cfg *config.Config, res *aggregate.Result) (paths []string, err error) {
	start := time.Now()
	defer metrics.RecordStep("charts", start, &err)

	in := chart.Input{Result: res}
	if cfg.Input.Boundaries != "" {
		b, err := geo.LoadBoundary(cfg.Input.Boundaries, geo.Selector{
			Index: cfg.Analysis.BoundaryFeature,
			Name:  cfg.Analysis.BoundaryName,
		})
		if err != nil {
			return nil, err
		}
		in.Boundary = b
	}
	if cfg.Input.Cities != "" && cfg.Analysis.Cities > 0 {
		cities, err := geo.LoadCities(ctx, cfg.Input.Cities, cfg.Analysis.Cities)
		if err != nil {
			return nil, err
		}
		in.Cities = cities
	}

	paths, err = chart.WriteAll(cfg.Output.Dir, chart.DefaultSize, in)
	if err != nil {
		return nil, err
	}
	r.logger()("stage=charts files=%d boundary=%q cities=%d duration=%s",
		len(paths), in.Boundary.Name, len(in.Cities), time.Since(start).Truncate(time.Millisecond))
	return paths, nil
}

func (r *Runner) store(ctx context.Context, cfg *config.Config, run RunInfo, res *aggregate.Result) (stored map[string]int64, err error) {
	start := time.Now()
	defer metrics.RecordStep("store", start, &err)

	newRepo := r.NewRepository
	if newRepo == nil {
		newRepo = storage.New
	}
	repo, err := newRepo(ctx, storage.Config{Kind: cfg.Storage.Kind, DSN: os.ExpandEnv(cfg.Storage.DSN)})
	if err != nil {
		return nil, fmt.Errorf("results store (kind=%s): %w", cfg.Storage.Kind, err)
	}
	defer repo.Close()

	stored, err = SaveResults(ctx, repo, run, res)
	if err != nil {
		return nil, err
	}
	var total int64
	for _, n := range stored {
		total += n
	}
	metrics.IncCounter(metrics.RecordsTotal, float64(total), metrics.Labels{"kind": "stored"})
	r.logger()("stage=store kind=%s run_id=%s tables=%d rows=%d duration=%s",
		cfg.Storage.Kind, run.ID, len(stored), total, time.Since(start).Truncate(time.Millisecond))
	return stored, nil
}

func (r *Runner) runID() string {
	if r.NewRunID != nil {
		return r.NewRunID()
	}
	return uuid.NewString()
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) logger() func(format string, v ...any) {
	if r.Logger != nil {
		return r.Logger.Printf
	}
	return log.New(discardWriter{}, "", 0).Printf
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (n int, err error) { return len(p), nil }
