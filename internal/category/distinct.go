package category

import "sort"

// Entry is one distinct category code with the first name seen for it.
type Entry struct {
	Category
	Name string
}

// Distinct collects distinct (code, name) pairs. The first non-empty name
// seen for a code wins.
type Distinct struct {
	byCode map[int]*Entry
}

// NewDistinct returns an empty collector.
func NewDistinct() *Distinct {
	return &Distinct{byCode: make(map[int]*Entry)}
}

// Add records code with name. It returns the decode error for unknown
// families so the caller can decide whether to abort.
func (d *Distinct) Add(code int, name string) error {
	if e, ok := d.byCode[code]; ok {
		if e.Name == "" {
			e.Name = name
		}
		return nil
	}
	c, err := Decode(code)
	if err != nil {
		return err
	}
	d.byCode[code] = &Entry{Category: c, Name: name}
	return nil
}

// Len returns the number of distinct codes.
func (d *Distinct) Len() int { return len(d.byCode) }

// Entries returns all entries sorted by code.
func (d *Distinct) Entries() []Entry {
	out := make([]Entry, 0, len(d.byCode))
	for _, e := range d.byCode {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// InFamily returns the entries whose family is f, sorted by code.
func (d *Distinct) InFamily(f Family) []Entry {
	var out []Entry
	for _, e := range d.Entries() {
		if e.Family == f {
			out = append(out, e)
		}
	}
	return out
}
