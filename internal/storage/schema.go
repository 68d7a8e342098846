package storage

import (
	"fmt"
	"strings"
)

// ColumnType is a portable column type; each backend maps it to a native one.
type ColumnType string

const (
	TypeText      ColumnType = "text"
	TypeInteger   ColumnType = "integer"
	TypeReal      ColumnType = "real"
	TypeTimestamp ColumnType = "timestamp"
)

// TableSpec describes one results table.
type TableSpec struct {
	Name        string
	Columns     []ColumnSpec
	Constraints []ConstraintSpec
}

// ColumnSpec describes one column.
type ColumnSpec struct {
	Name    string
	Type    ColumnType
	NotNull bool
}

// ConstraintSpec describes a table constraint. Only "unique" is supported.
type ConstraintSpec struct {
	Kind    string
	Columns []string
}

// ColumnNames returns the column names in declaration order.
func (t TableSpec) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Validate checks names, types and that constraints reference declared
// columns.
func (t TableSpec) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("storage: table name is empty")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("storage: table %s has no columns", t.Name)
	}
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("storage: table %s: column name is empty", t.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("storage: table %s: duplicate column %s", t.Name, c.Name)
		}
		seen[c.Name] = true
		switch c.Type {
		case TypeText, TypeInteger, TypeReal, TypeTimestamp:
		default:
			return fmt.Errorf("storage: table %s: column %s: unsupported type %q", t.Name, c.Name, c.Type)
		}
	}
	for _, con := range t.Constraints {
		if !strings.EqualFold(con.Kind, "unique") {
			return fmt.Errorf("storage: table %s: unsupported constraint kind: %s", t.Name, con.Kind)
		}
		if len(con.Columns) == 0 {
			return fmt.Errorf("storage: table %s: unique constraint has no columns", t.Name)
		}
		for _, c := range con.Columns {
			if !seen[c] {
				return fmt.Errorf("storage: table %s: constraint column %s not declared", t.Name, c)
			}
		}
	}
	return nil
}

// Chunks splits rows so that no chunk binds more than maxParams parameters.
// Every chunk has at least one row.
func Chunks(rows [][]any, columns, maxParams int) [][][]any {
	if len(rows) == 0 {
		return nil
	}
	per := maxParams / max(1, columns)
	if per < 1 {
		per = 1
	}
	out := make([][][]any, 0, (len(rows)+per-1)/per)
	for start := 0; start < len(rows); start += per {
		end := min(start+per, len(rows))
		out = append(out, rows[start:end])
	}
	return out
}

// DedupeRows keeps the first row per dedupe key, preserving order.
//
// Errors:
//   - A dedupe column is not present in columns.
func DedupeRows(rows [][]any, columns, dedupeColumns []string) ([][]any, error) {
	if len(dedupeColumns) == 0 {
		return rows, nil
	}
	pos := make(map[string]int, len(columns))
	for i, c := range columns {
		pos[c] = i
	}
	idx := make([]int, len(dedupeColumns))
	for i, dc := range dedupeColumns {
		p, ok := pos[dc]
		if !ok {
			return nil, fmt.Errorf("storage: dedupe column %q not present in columns", dc)
		}
		idx[i] = p
	}

	seen := make(map[string]struct{}, len(rows))
	out := make([][]any, 0, len(rows))
	var b strings.Builder
	for _, r := range rows {
		b.Reset()
		for _, p := range idx {
			fmt.Fprintf(&b, "%v\x00", r[p])
		}
		k := b.String()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out, nil
}
