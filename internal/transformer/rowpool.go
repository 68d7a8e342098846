// Package transformer holds the pooled row type that flows from the CSV reader
// to the aggregation loop, plus the scalar coercions applied to raw fields.
package transformer

import "sync"

// Row is a pooled, positional record projected onto a fixed column list.
//
// Ownership contract:
//   - Exactly one goroutine owns a Row at a time.
//   - Sending a Row on a channel transfers ownership.
//   - The final consumer calls Free() once it no longer reads r.V.
//
// On cancellation paths call Drop() instead of Free(); a canceled consumer may
// still be reading a Row that the reader would otherwise reuse.
type Row struct {
	// V holds trimmed field values. An empty string means the field was
	// missing or blank in the source.
	V    []string
	Line int // 1-based physical record number, header included
}

var rowPool sync.Pool

// GetRow returns a Row with len(V) == colCount and every field cleared.
func GetRow(colCount int) *Row {
	if v := rowPool.Get(); v != nil {
		r := v.(*Row)
		if cap(r.V) < colCount {
			r.V = make([]string, colCount)
		}
		r.V = r.V[:colCount]
		clear(r.V)
		r.Line = 0
		return r
	}
	return &Row{V: make([]string, colCount)}
}

// Free returns the Row to the pool.
func (r *Row) Free() {
	rowPool.Put(r)
}

// Drop releases the Row without pooling it.
func (r *Row) Drop() {
	r.V = nil
	r.Line = 0
}

// Field returns V[i], or "" when i is out of range (column absent from the
// header).
func (r *Row) Field(i int) string {
	if i < 0 || i >= len(r.V) {
		return ""
	}
	return r.V[i]
}
