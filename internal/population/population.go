// Package population loads the population-by-county reference table and
// keeps a binary cache of it next to the source file.
//
// The table is informational: it is loaded and cached but not joined to
// sales transactions.
package population

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	csvparser "liquorsales/internal/parser/csv"
	"liquorsales/internal/transformer"
)

// Default column names (normalized headers).
const (
	DefaultKeyColumn   = "county"
	DefaultValueColumn = "population"
)

// ErrInvalidPopulation is returned for a population value that is not a
// non-negative number.
var ErrInvalidPopulation = errors.New("invalid population")

// Options select the key and value columns.
type Options struct {
	// Key is the normalized header of the key column. Empty means "county".
	Key string
	// Value is the normalized header of the population column. Empty means
	// "population".
	Value string
}

func (o Options) withDefaults() Options {
	if o.Key == "" {
		o.Key = DefaultKeyColumn
	}
	if o.Value == "" {
		o.Value = DefaultValueColumn
	}
	return o
}

// Table maps a county (or zip) key to its population. Keys keep file order.
type Table struct {
	KeyColumn   string
	ValueColumn string

	keys   []string
	values map[string]int64
}

// NewTable returns an empty table for the given columns.
func NewTable(keyColumn, valueColumn string) *Table {
	return &Table{KeyColumn: keyColumn, ValueColumn: valueColumn, values: make(map[string]int64)}
}

// Add adds n to key. Keys that appear more than once are summed.
func (t *Table) Add(key string, n int64) {
	if _, ok := t.values[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.values[key] += n
}

// Get returns the population of key.
func (t *Table) Get(key string) (int64, bool) {
	n, ok := t.values[key]
	return n, ok
}

// Len returns the number of keys.
func (t *Table) Len() int { return len(t.keys) }

// Keys returns the keys in first-seen order.
func (t *Table) Keys() []string { return append([]string(nil), t.keys...) }

// Total returns the sum over all keys.
func (t *Table) Total() int64 {
	var n int64
	for _, v := range t.values {
		n += v
	}
	return n
}

// Entry is one (key, population) pair.
type Entry struct {
	Key        string
	Population int64
}

// Top returns the n most populous entries, ties in file order. n <= 0 returns
// all entries.
func (t *Table) Top(n int) []Entry {
	out := make([]Entry, len(t.keys))
	for i, k := range t.keys {
		out[i] = Entry{Key: k, Population: t.values[k]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Population > out[j].Population })
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// Load reads a tab-separated population file.
//
// Errors:
//   - The file cannot be opened or a record is malformed.
//   - The key or value column is missing from the header
//     (wraps csv.ErrMissingColumn).
//   - A value is not a non-negative number (wraps ErrInvalidPopulation).
func Load(ctx context.Context, path string, opt Options) (*Table, error) {
	opt = opt.withDefaults()
	rows, err := csvparser.ReadFile(ctx, path, []string{opt.Key, opt.Value}, csvparser.Options{
		Comma:      '\t',
		LazyQuotes: true,
		Required:   []string{opt.Key, opt.Value},
	})
	if err != nil {
		return nil, fmt.Errorf("population: %w", err)
	}

	t := NewTable(opt.Key, opt.Value)
	for i, r := range rows {
		key := strings.TrimSpace(r[0])
		if key == "" {
			continue
		}
		n, err := parsePopulation(r[1])
		if err != nil {
			return nil, fmt.Errorf("population: %s row %d (%s): %w", path, i+1, key, err)
		}
		t.Add(key, n)
	}
	return t, nil
}

func parsePopulation(s string) (int64, error) {
	f, err := transformer.ParseFloat(s)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPopulation, s)
	}
	return int64(math.Round(f)), nil
}
