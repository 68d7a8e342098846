// Package analysis drives one analysis run: a single streamed pass over the
// transactions file feeding every aggregate, then charts, the workbook and
// the optional results store.
package analysis

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"liquorsales/internal/aggregate"
	"liquorsales/internal/metrics"
	"liquorsales/internal/parser/csv"
	"liquorsales/internal/sales"
	"liquorsales/internal/transformer"
)

// DropMalformedRecord counts CSV records the reader could not parse.
const DropMalformedRecord = "csv.malformed_record"

// DefaultChannelBuffer is the row channel capacity when none is configured.
const DefaultChannelBuffer = 1024

// Aggregate streams the transactions file at path through engine.
//
// One goroutine reads and projects CSV records into pooled rows; engine
// consumes them. The first error from either side cancels the other.
//
// Errors:
//   - The file cannot be opened.
//   - A required column is missing from the header (csv.ErrMissingColumn).
//   - The engine aborts (unknown category family) or ctx is canceled.
func Aggregate(ctx context.Context, path string, engine *aggregate.Engine, buffer int) (res *aggregate.Result, err error) {
	start := time.Now()
	defer metrics.RecordStep("read", start, &err)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transactions: %w", err)
	}
	if buffer <= 0 {
		buffer = DefaultChannelBuffer
	}

	rows := make(chan *transformer.Row, buffer)
	var malformed int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(rows)
		err := csv.StreamCSVRows(gctx, f, sales.Columns, csv.Options{
			LazyQuotes: true,
			Required:   sales.Required,
		}, rows, func(line int, err error) {
			malformed++
		})
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		res, err = engine.Run(gctx, rows)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if malformed > 0 {
		res.Drops[DropMalformedRecord] += malformed
		metrics.IncCounter(metrics.DropsTotal, float64(malformed), metrics.Labels{"reason": DropMalformedRecord})
	}
	return res, nil
}
