// Package aggregate computes the per-family counts, import ratios and volume
// rankings over a stream of transactions.
package aggregate

import (
	"sort"

	"liquorsales/internal/category"
)

// FamilyCounter counts transactions per category family.
type FamilyCounter struct {
	counts map[category.Family]int64
}

// NewFamilyCounter returns an empty counter.
func NewFamilyCounter() *FamilyCounter {
	return &FamilyCounter{counts: make(map[category.Family]int64)}
}

// Add counts one transaction of family f.
func (c *FamilyCounter) Add(f category.Family) { c.counts[f]++ }

// Counts returns a copy of the per-family counts.
func (c *FamilyCounter) Counts() map[category.Family]int64 {
	out := make(map[category.Family]int64, len(c.counts))
	for f, n := range c.counts {
		out[f] = n
	}
	return out
}

// FamilyCount is one entry of a Select result.
type FamilyCount struct {
	Family category.Family
	Count  int64
}

// Select returns the counts of families in the requested order. Families
// never seen are reported with a zero count.
func (c *FamilyCounter) Select(families []category.Family) []FamilyCount {
	out := make([]FamilyCount, len(families))
	for i, f := range families {
		out[i] = FamilyCount{Family: f, Count: c.counts[f]}
	}
	return out
}

// ImportRatio tracks the share of imported transactions per calendar year.
type ImportRatio struct {
	total    map[int]int64
	imported map[int]int64
}

// NewImportRatio returns an empty ImportRatio.
func NewImportRatio() *ImportRatio {
	return &ImportRatio{total: make(map[int]int64), imported: make(map[int]int64)}
}

// Add records one transaction for year.
func (r *ImportRatio) Add(year int, imported bool) {
	r.total[year]++
	if imported {
		r.imported[year]++
	}
}

// Years returns the observed years in ascending order.
func (r *ImportRatio) Years() []int {
	years := make([]int, 0, len(r.total))
	for y := range r.total {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Samples returns the number of transactions recorded for year.
func (r *ImportRatio) Samples(year int) int64 { return r.total[year] }

// ByYear returns the mean import flag per year. Every value is in [0, 1].
func (r *ImportRatio) ByYear() map[int]float64 {
	out := make(map[int]float64, len(r.total))
	for y, n := range r.total {
		out[y] = float64(r.imported[y]) / float64(n)
	}
	return out
}

// Overall returns the mean import flag across all years, or 0 when nothing
// was recorded.
func (r *ImportRatio) Overall() float64 {
	var n, imp int64
	for y, t := range r.total {
		n += t
		imp += r.imported[y]
	}
	if n == 0 {
		return 0
	}
	return float64(imp) / float64(n)
}

// Ranked is one entry of a volume ranking.
type Ranked struct {
	Key   string
	Name  string
	Total float64
}

// VolumeRanker sums volume per key and ranks keys by total.
//
// Keys remember the order they were first seen in; ties in the ranking keep
// that order.
type VolumeRanker struct {
	index map[string]int
	items []Ranked
}

// NewVolumeRanker returns an empty ranker.
func NewVolumeRanker() *VolumeRanker {
	return &VolumeRanker{index: make(map[string]int)}
}

// Add adds v to key's total. name is kept from the first call that carries a
// non-empty one.
func (r *VolumeRanker) Add(key, name string, v float64) {
	i, ok := r.index[key]
	if !ok {
		i = len(r.items)
		r.index[key] = i
		r.items = append(r.items, Ranked{Key: key})
	}
	it := &r.items[i]
	it.Total += v
	if it.Name == "" {
		it.Name = name
	}
}

// Len returns the number of distinct keys.
func (r *VolumeRanker) Len() int { return len(r.items) }

// Ranking returns the keys whose total is strictly greater than threshold,
// sorted by total descending. The threshold applies to totals, after
// aggregation.
func (r *VolumeRanker) Ranking(threshold float64) []Ranked {
	out := make([]Ranked, 0, len(r.items))
	for _, it := range r.items {
		if it.Total > threshold {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out
}
