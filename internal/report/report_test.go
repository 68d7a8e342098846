package report

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"liquorsales/internal/aggregate"
	"liquorsales/internal/category"
	"liquorsales/internal/population"
)

func sampleResult() *aggregate.Result {
	return &aggregate.Result{
		Rows: 10,
		Families: map[category.Family]int64{
			category.Whiskey: 4,
			category.Vodka:   5,
			category.Gin:     1,
		},
		Selected: []aggregate.FamilyCount{
			{Family: category.Whiskey, Count: 4},
			{Family: category.Vodka, Count: 5},
			{Family: category.Rum, Count: 0},
		},
		ImportByYear:  map[int]float64{2014: 0.5, 2015: 0.25},
		ImportSamples: map[int]int64{2014: 2, 2015: 4},
		ImportOverall: 1.0 / 3.0,
		Vendors: []aggregate.Ranked{
			{Key: "260", Name: "Diageo Americas", Total: 30000},
			{Key: "65", Name: "Jim Beam Brands", Total: 12000},
		},
		Stores: []aggregate.Ranked{{Key: "2633", Name: "Hy-Vee #3", Total: 500}},
		Categories: []category.Entry{
			{Category: category.Category{Code: 1012100, Family: category.Whiskey, Origin: category.OriginDomestic}, Name: "CANADIAN WHISKIES"},
		},
		Drops: map[string]int64{aggregate.DropInvalidDate: 1},
	}
}

func TestWorkbook_Sheets(t *testing.T) {
	t.Parallel()

	pop := population.NewTable("county", "population")
	pop.Add("Polk", 430640)
	pop.Add("Linn", 211226)

	f, err := Workbook(Summary{RunID: "run-1", Source: "sales.csv", Result: sampleResult(), Population: pop})
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{
		SheetFamilies, SheetImports, SheetVendors, SheetStores, SheetCategories, SheetDrops, SheetPopulation,
	}, f.GetSheetList())

	fam, err := f.GetRows(SheetFamilies)
	require.NoError(t, err)
	require.Equal(t, []string{"Family", "Name", "Rows", "Selected"}, fam[0])
	// header + Whiskey, Vodka, Gin, Rum in code order
	require.Len(t, fam, 5)
	require.Equal(t, []string{"101", "Whiskey", "4"}, fam[1][:3])
	require.Equal(t, []string{"104", "Gin", "1"}, fam[3][:3])
	require.Equal(t, []string{"106", "Rum", "0"}, fam[4][:3])

	imp, err := f.GetRows(SheetImports)
	require.NoError(t, err)
	require.Equal(t, []string{"2014", "2", "0.5"}, imp[1])
	require.Equal(t, "all", imp[3][0])
	require.Equal(t, "6", imp[3][1])

	ven, err := f.GetRows(SheetVendors)
	require.NoError(t, err)
	require.Equal(t, []string{"1", "260", "Diageo Americas", "30000"}, ven[1])

	pr, err := f.GetRows(SheetPopulation)
	require.NoError(t, err)
	require.Equal(t, []string{"county", "population"}, pr[0])
	require.Equal(t, []string{"Polk", "430640"}, pr[1])
	require.Equal(t, []string{"total", "641866"}, pr[3])
}

func TestWorkbook_NoPopulation(t *testing.T) {
	t.Parallel()

	f, err := Workbook(Summary{Result: sampleResult()})
	require.NoError(t, err)
	defer f.Close()
	require.NotContains(t, f.GetSheetList(), SheetPopulation)
}

func TestWorkbook_NilResult(t *testing.T) {
	t.Parallel()

	_, err := Workbook(Summary{})
	require.Error(t, err)
}

func TestWriteWorkbook_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), File)
	require.NoError(t, WriteWorkbook(path, Summary{RunID: "run-1", Result: sampleResult()}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	props, err := f.GetDocProps()
	require.NoError(t, err)
	require.Equal(t, "run-1", props.Identifier)

	drops, err := f.GetRows(SheetDrops)
	require.NoError(t, err)
	require.Equal(t, []string{aggregate.DropInvalidDate, "1"}, drops[1])
}

func TestWriteText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, Summary{Result: sampleResult()}))

	out := buf.String()
	require.Contains(t, out, "Sales by family")
	require.Contains(t, out, "Vodka")
	require.Contains(t, out, "0.2500")
	require.Contains(t, out, "Diageo Americas")
	require.Contains(t, out, aggregate.DropInvalidDate)
}

func TestWriteCategories(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	WriteCategories(&buf, sampleResult().Categories)
	out := buf.String()
	require.Contains(t, out, "Categories (1)")
	require.Contains(t, out, "CANADIAN WHISKIES")
	require.Contains(t, out, "domestic")
}

func TestWritePopulation(t *testing.T) {
	t.Parallel()

	pop := population.NewTable("county", "population")
	pop.Add("Polk", 10)
	pop.Add("Linn", 20)
	pop.Add("Scott", 5)

	var buf bytes.Buffer
	WritePopulation(&buf, pop, 2)
	out := buf.String()
	require.Contains(t, out, "Linn")
	require.Contains(t, out, "Polk")
	require.NotContains(t, out, "Scott")
	require.Contains(t, out, "35")
}
