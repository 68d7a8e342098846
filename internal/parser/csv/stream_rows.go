// Package csv streams delimited text files into pooled transformer rows
// projected onto a caller-chosen column list.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"liquorsales/internal/transformer"
)

// ErrMissingColumn is returned when a required column is absent from the header.
var ErrMissingColumn = errors.New("missing required column")

// Options controls how a delimited file is read.
//
// The zero value reads a comma-separated file with a header row.
type Options struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune
	// NoHeader treats the first record as data; columns are then matched by
	// position.
	NoHeader bool
	// LazyQuotes is passed to encoding/csv.
	LazyQuotes bool
	// HeaderMap maps a raw (trimmed) source header to a canonical field name.
	// Headers not in the map go through NormalizeHeader.
	HeaderMap map[string]string
	// Required lists canonical columns that must be present in the header.
	// A missing one fails the read before any row is emitted.
	Required []string
}

// Resolve maps each requested column onto its index in header. Missing
// columns get -1. It returns an error wrapping ErrMissingColumn for the first
// required column not found.
func Resolve(header []string, columns []string, opt Options) ([]int, error) {
	srcToIdx := make(map[string]int, len(header))
	for i, h := range header {
		if transformer.HasEdgeSpace(h) {
			h = strings.TrimSpace(h)
		}
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		if mapped, ok := opt.HeaderMap[h]; ok {
			h = mapped
		} else {
			h = NormalizeHeader(h)
		}
		if _, dup := srcToIdx[h]; !dup {
			srcToIdx[h] = i
		}
	}

	colIx := make([]int, len(columns))
	for t, target := range columns {
		colIx[t] = -1
		if si, ok := srcToIdx[target]; ok {
			colIx[t] = si
		}
	}

	for _, req := range opt.Required {
		if _, ok := srcToIdx[req]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, req)
		}
	}
	return colIx, nil
}

// StreamCSVRows reads src and sends one pooled *transformer.Row per record to
// out, with fields aligned to columns.
//
// Malformed records are reported to onErr and skipped. Header problems
// (unreadable header, missing required column) are fatal and returned.
//
// On ctx cancellation in-flight rows are dropped, not pooled: the consumer may
// still hold references to rows handed over earlier.
func StreamCSVRows(
	ctx context.Context,
	src io.ReadCloser,
	columns []string,
	opt Options,
	out chan<- *transformer.Row,
	onErr func(line int, err error),
) error {
	defer src.Close()

	comma := opt.Comma
	if comma == 0 {
		comma = ','
	}

	cr := csv.NewReader(src)
	cr.Comma = comma
	cr.ReuseRecord = true
	cr.LazyQuotes = opt.LazyQuotes
	cr.FieldsPerRecord = -1

	var line int
	readRec := func() ([]string, error) {
		line++
		return cr.Read()
	}

	var colIx []int
	if !opt.NoHeader {
		hdr, err := readRec()
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		colIx, err = Resolve(hdr, columns, opt)
		if err != nil {
			return err
		}
	} else {
		colIx = make([]int, len(columns))
		for i := range colIx {
			colIx[i] = i
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, err := readRec()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				if onErr != nil {
					onErr(line, fmt.Errorf("csv read: %w", err))
				}
				continue
			}
			return fmt.Errorf("csv read line %d: %w", line, err)
		}

		row := transformer.GetRow(len(columns))
		row.Line = line
		for t, si := range colIx {
			if si < 0 || si >= len(rec) {
				continue
			}
			v := rec[si]
			if transformer.HasEdgeSpace(v) {
				v = strings.TrimSpace(v)
			}
			row.V[t] = v
		}

		select {
		case out <- row:
		case <-ctx.Done():
			row.Drop()
			return ctx.Err()
		}
	}
}
