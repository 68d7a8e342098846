package csv

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"liquorsales/internal/transformer"
)

// ReadFile reads a small reference file fully, projected onto columns.
// Malformed records fail the read: reference tables are expected to be clean.
func ReadFile(ctx context.Context, path string, columns []string, opt Options) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	rows := make(chan *transformer.Row, 64)

	g.Go(func() error {
		defer close(rows)
		var bad error
		err := StreamCSVRows(ctx, f, columns, opt, rows, func(line int, err error) {
			if bad == nil {
				bad = fmt.Errorf("%s line %d: %w", path, line, err)
			}
		})
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return bad
	})

	var out [][]string
	for r := range rows {
		out = append(out, append([]string(nil), r.V...))
		r.Free()
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
