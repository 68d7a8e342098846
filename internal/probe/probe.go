// Package probe samples the head of a delimited file and reports its columns
// with a best-effort type per column.
//
// The probe is used to check the layout of a transactions export before a
// full run:
//   - At most Options.Rows data rows are read after the header.
//   - Records with the wrong field count are skipped.
//   - Inference never fails the probe; columns with no usable values are
//     reported as text.
package probe

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	csvparser "liquorsales/internal/parser/csv"
)

// DefaultRows is the number of data rows sampled when Options.Rows is zero.
const DefaultRows = 100

// distinctCap bounds the per-column distinct set.
const distinctCap = 1000

// Options control sampling.
type Options struct {
	// Path of the delimited file.
	Path string
	// Rows is the maximum number of data rows to read. Zero means DefaultRows.
	Rows int
	// Delimiter (single rune). Zero means ','.
	Delimiter rune
}

// Column describes one header field.
type Column struct {
	Index      int
	Name       string
	Normalized string
	Type       Type
	// NonEmpty counts sampled rows with a value in this column.
	NonEmpty int
	// Distinct counts distinct sampled values, capped at 1000.
	Distinct int
}

// Result is the outcome of a probe.
type Result struct {
	Columns []Column
	// Rows is the number of data rows sampled.
	Rows int
	// Skipped counts records dropped for a wrong field count.
	Skipped int
}

// Sample reads the header and up to opt.Rows data rows from opt.Path.
//
// Errors:
//   - The file cannot be opened.
//   - The header cannot be read (including an empty file).
//   - A read error other than a record-level parse error.
func Sample(ctx context.Context, opt Options) (Result, error) {
	rows := opt.Rows
	if rows <= 0 {
		rows = DefaultRows
	}
	delim := opt.Delimiter
	if delim == 0 {
		delim = ','
	}

	f, err := os.Open(opt.Path)
	if err != nil {
		return Result{}, fmt.Errorf("probe: open %s: %w", opt.Path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = false

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Result{}, fmt.Errorf("probe: %s: empty file", opt.Path)
		}
		return Result{}, fmt.Errorf("probe: read header: %w", err)
	}

	res := Result{Columns: make([]Column, len(header))}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
		res.Columns[i] = Column{Index: i, Name: h, Normalized: csvparser.NormalizeHeader(h)}
	}

	sample := make([][]string, 0, rows)
	for len(sample) < rows {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				res.Skipped++
				continue
			}
			return Result{}, fmt.Errorf("probe: read: %w", err)
		}
		if len(rec) != len(header) {
			res.Skipped++
			continue
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		sample = append(sample, rec)
	}
	res.Rows = len(sample)

	types := inferTypes(len(header), sample)
	for i := range res.Columns {
		res.Columns[i].Type = types[i]
		res.Columns[i].NonEmpty, res.Columns[i].Distinct = columnStats(sample, i)
	}
	return res, nil
}

// Column returns the column with the given normalized name.
func (r Result) Column(normalized string) (Column, bool) {
	for _, c := range r.Columns {
		if c.Normalized == normalized {
			return c, true
		}
	}
	return Column{}, false
}

func columnStats(rows [][]string, col int) (nonEmpty, distinct int) {
	set := make(map[string]struct{})
	for _, r := range rows {
		v := r[col]
		if v == "" {
			continue
		}
		nonEmpty++
		if len(set) < distinctCap {
			set[v] = struct{}{}
		}
	}
	return nonEmpty, len(set)
}

// RenderTable writes the column list as a text table.
func RenderTable(w io.Writer, res Result) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Column", "Normalized", "Type", "Non-empty", "Distinct"})
	for _, c := range res.Columns {
		t.AppendRow(table.Row{c.Index, c.Name, c.Normalized, c.Type, c.NonEmpty, c.Distinct})
	}
	t.AppendFooter(table.Row{"", "", "", "rows", res.Rows, ""})
	t.Render()
}
