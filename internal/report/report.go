// Package report writes the aggregate results as an Excel workbook and as
// plain-text tables.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/xuri/excelize/v2"

	"liquorsales/internal/aggregate"
	"liquorsales/internal/category"
	"liquorsales/internal/population"
)

// File is the workbook name written into the output directory.
const File = "summary.xlsx"

// Sheet names, in workbook order.
const (
	SheetFamilies   = "Families"
	SheetImports    = "ImportRatio"
	SheetVendors    = "Vendors"
	SheetStores     = "Stores"
	SheetCategories = "Categories"
	SheetDrops      = "Drops"
	SheetPopulation = "Population"
)

const (
	populationTopN   = 25
	textRankingLimit = 10
)

// Summary is the content of one report.
type Summary struct {
	RunID      string
	Source     string
	Result     *aggregate.Result
	Population *population.Table
}

type sheet struct {
	name    string
	headers []string
	rows    [][]any
}

func (s Summary) sheets() []sheet {
	res := s.Result
	out := []sheet{
		{name: SheetFamilies, headers: []string{"Family", "Name", "Rows", "Selected"}},
		{name: SheetImports, headers: []string{"Year", "Rows", "Import ratio"}},
		{name: SheetVendors, headers: []string{"Rank", "Vendor", "Name", "Liters"}},
		{name: SheetStores, headers: []string{"Rank", "Store", "Name", "Liters"}},
		{name: SheetCategories, headers: []string{"Code", "Name", "Family", "Origin"}},
		{name: SheetDrops, headers: []string{"Reason", "Rows"}},
	}

	selected := make(map[category.Family]bool, len(res.Selected))
	for _, fc := range res.Selected {
		selected[fc.Family] = true
	}
	for _, fc := range familyRows(res) {
		out[0].rows = append(out[0].rows, []any{int(fc.Family), fc.Family.Name(), fc.Count, selected[fc.Family]})
	}

	for _, y := range res.Years() {
		out[1].rows = append(out[1].rows, []any{y, res.ImportSamples[y], res.ImportByYear[y]})
	}
	out[1].rows = append(out[1].rows, []any{"all", sumSamples(res.ImportSamples), res.ImportOverall})

	for i, v := range res.Vendors {
		out[2].rows = append(out[2].rows, []any{i + 1, v.Key, v.Name, v.Total})
	}
	for i, st := range res.Stores {
		out[3].rows = append(out[3].rows, []any{i + 1, st.Key, st.Name, st.Total})
	}
	for _, c := range res.Categories {
		out[4].rows = append(out[4].rows, []any{c.Code, c.Name, c.Family.String(), c.Origin.String()})
	}
	for _, r := range res.DropReasons() {
		out[5].rows = append(out[5].rows, []any{r, res.Drops[r]})
	}

	if s.Population != nil {
		pop := sheet{name: SheetPopulation, headers: []string{s.Population.KeyColumn, s.Population.ValueColumn}}
		for _, e := range s.Population.Top(populationTopN) {
			pop.rows = append(pop.rows, []any{e.Key, e.Population})
		}
		pop.rows = append(pop.rows, []any{"total", s.Population.Total()})
		out = append(out, pop)
	}
	return out
}

// familyRows lists every family with a non-zero count plus every selected
// family, in family-code order.
func familyRows(res *aggregate.Result) []aggregate.FamilyCount {
	counts := make(map[category.Family]int64, len(res.Families)+len(res.Selected))
	for _, fc := range res.Selected {
		counts[fc.Family] = fc.Count
	}
	for f, n := range res.Families {
		if n > 0 {
			counts[f] = n
		}
	}
	out := make([]aggregate.FamilyCount, 0, len(counts))
	for f, n := range counts {
		out = append(out, aggregate.FamilyCount{Family: f, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Family < out[j].Family })
	return out
}

func sumSamples(m map[int]int64) int64 {
	var n int64
	for _, v := range m {
		n += v
	}
	return n
}

// Workbook builds the summary workbook. The caller closes the file.
func Workbook(s Summary) (*excelize.File, error) {
	if s.Result == nil {
		return nil, fmt.Errorf("report: no result")
	}

	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("report: style: %w", err)
	}

	for i, sh := range s.sheets() {
		if i == 0 {
			err = f.SetSheetName("Sheet1", sh.name)
		} else {
			_, err = f.NewSheet(sh.name)
		}
		if err == nil {
			err = writeSheet(f, sh, bold)
		}
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("report: sheet %s: %w", sh.name, err)
		}
	}

	if s.RunID != "" || s.Source != "" {
		props := &excelize.DocProperties{Title: "Liquor sales summary", Subject: s.Source, Identifier: s.RunID}
		if err := f.SetDocProps(props); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("report: properties: %w", err)
		}
	}
	return f, nil
}

func writeSheet(f *excelize.File, sh sheet, headerStyle int) error {
	header := make([]any, len(sh.headers))
	for i, h := range sh.headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sh.name, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.ColumnNumberToName(len(sh.headers))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sh.name, "A1", last+"1", headerStyle); err != nil {
		return err
	}
	if err := f.SetColWidth(sh.name, "A", last, 18); err != nil {
		return err
	}
	for i, row := range sh.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(sh.name, cell, &r); err != nil {
			return err
		}
	}
	return nil
}

// WriteWorkbook builds the workbook and saves it to path.
func WriteWorkbook(path string, s Summary) error {
	f, err := Workbook(s)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("report: save %s: %w", path, err)
	}
	return nil
}

// WriteText renders the headline tables: selected families, import ratio
// per year, the top vendors and the drop counters.
func WriteText(w io.Writer, s Summary) error {
	if s.Result == nil {
		return fmt.Errorf("report: no result")
	}
	res := s.Result

	fam := newTable(w, "Sales by family")
	fam.AppendHeader(table.Row{"Family", "Name", "Rows"})
	for _, fc := range res.Selected {
		fam.AppendRow(table.Row{int(fc.Family), fc.Family.Name(), fc.Count})
	}
	fam.Render()

	imp := newTable(w, "Import ratio")
	imp.AppendHeader(table.Row{"Year", "Rows", "Ratio"})
	for _, y := range res.Years() {
		imp.AppendRow(table.Row{y, res.ImportSamples[y], formatRatio(res.ImportByYear[y])})
	}
	imp.AppendFooter(table.Row{"all", sumSamples(res.ImportSamples), formatRatio(res.ImportOverall)})
	imp.Render()

	ven := newTable(w, fmt.Sprintf("Top vendors (%d of %d above threshold)", min(textRankingLimit, len(res.Vendors)), len(res.Vendors)))
	ven.AppendHeader(table.Row{"Rank", "Vendor", "Name", "Liters"})
	for i, v := range res.Vendors {
		if i >= textRankingLimit {
			break
		}
		ven.AppendRow(table.Row{i + 1, v.Key, v.Name, strconv.FormatFloat(v.Total, 'f', 2, 64)})
	}
	ven.Render()

	if len(res.Drops) > 0 {
		dr := newTable(w, "Dropped rows")
		dr.AppendHeader(table.Row{"Reason", "Rows"})
		for _, r := range res.DropReasons() {
			dr.AppendRow(table.Row{r, res.Drops[r]})
		}
		dr.Render()
	}
	return nil
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	return t
}

func formatRatio(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// WriteCategories renders distinct category codes with their decoded family
// and origin.
func WriteCategories(w io.Writer, entries []category.Entry) {
	t := newTable(w, fmt.Sprintf("Categories (%d)", len(entries)))
	t.AppendHeader(table.Row{"Code", "Name", "Family", "Origin"})
	for _, e := range entries {
		t.AppendRow(table.Row{e.Code, e.Name, e.Family.String(), e.Origin.String()})
	}
	t.Render()
}

// WritePopulation renders the n most populous keys and the table total.
func WritePopulation(w io.Writer, pop *population.Table, n int) {
	t := newTable(w, fmt.Sprintf("Population (%d keys)", pop.Len()))
	t.AppendHeader(table.Row{pop.KeyColumn, pop.ValueColumn})
	for _, e := range pop.Top(n) {
		t.AppendRow(table.Row{e.Key, e.Population})
	}
	t.AppendFooter(table.Row{"total", pop.Total()})
	t.Render()
}
