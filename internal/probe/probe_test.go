package probe

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const salesHead = "\uFEFFInvoice/Item Number,Date,Store Number,Store Location,Category,Bottle Volume (ml),Volume Sold (Liters),Is Active\n" +
	"INV-1,11/04/2014,2191,POINT (-91.55 43.17),1062310,750,9.0,yes\n" +
	"INV-2,11/05/2014,2205,,1031080,1000,12,no\n" +
	"INV-3,broken,row\n" +
	"INV-4,1/2/2015,2191,POINT (-91.55 43.17),1081600,750,$1.50,y\n"

func writeSample(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "sample.csv")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestSample_InfersColumns(t *testing.T) {
	t.Parallel()

	res, err := Sample(context.Background(), Options{Path: writeSample(t, salesHead)})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Columns, 8)

	want := map[string]Type{
		"invoice_item_number": TypeText,
		"date":                TypeDate,
		"store_number":        TypeInteger,
		"store_location":      TypeText,
		"category":            TypeInteger,
		"bottle_volume_ml":    TypeInteger,
		"volume_sold_liters":  TypeFloat,
		"is_active":           TypeBoolean,
	}
	for name, typ := range want {
		c, ok := res.Column(name)
		require.True(t, ok, name)
		assert.Equal(t, typ, c.Type, name)
	}

	first := res.Columns[0]
	assert.Equal(t, "Invoice/Item Number", first.Name)
	assert.Equal(t, 0, first.Index)

	loc, _ := res.Column("store_location")
	assert.Equal(t, 2, loc.NonEmpty)
	assert.Equal(t, 1, loc.Distinct)
}

func TestSample_RowLimit(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString("a,b\n")
	for i := 0; i < 250; i++ {
		b.WriteString("1,x\n")
	}
	p := writeSample(t, b.String())

	res, err := Sample(context.Background(), Options{Path: p})
	require.NoError(t, err)
	assert.Equal(t, DefaultRows, res.Rows)

	res, err = Sample(context.Background(), Options{Path: p, Rows: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Rows)
}

func TestSample_Delimiter(t *testing.T) {
	t.Parallel()

	res, err := Sample(context.Background(), Options{
		Path:      writeSample(t, "Zip\tPopulation\n50010\t61000\n"),
		Delimiter: '\t',
	})
	require.NoError(t, err)
	require.Len(t, res.Columns, 2)
	assert.Equal(t, TypeInteger, res.Columns[1].Type)
}

func TestSample_Errors(t *testing.T) {
	t.Parallel()

	_, err := Sample(context.Background(), Options{Path: filepath.Join(t.TempDir(), "nope.csv")})
	assert.Error(t, err)

	_, err = Sample(context.Background(), Options{Path: writeSample(t, "")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty file")
}

func TestSample_HeaderOnly(t *testing.T) {
	t.Parallel()

	res, err := Sample(context.Background(), Options{Path: writeSample(t, "a,b\n")})
	require.NoError(t, err)
	assert.Zero(t, res.Rows)
	for _, c := range res.Columns {
		assert.Equal(t, TypeText, c.Type)
	}
}

func TestRenderTable(t *testing.T) {
	t.Parallel()

	res := Result{
		Columns: []Column{{Index: 0, Name: "Category", Normalized: "category", Type: TypeInteger, NonEmpty: 3, Distinct: 2}},
		Rows:    3,
	}
	var buf bytes.Buffer
	RenderTable(&buf, res)

	out := buf.String()
	assert.Contains(t, out, "Category")
	assert.Contains(t, out, "category")
	assert.Contains(t, out, "integer")
}

func TestParseBoolLoose(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in    string
		ok    bool
		value bool
	}{
		{"true", true, true},
		{"FALSE", true, false},
		{" yes ", true, true},
		{"n", true, false},
		{"1", false, false},
		{"maybe", false, false},
	}
	for _, tt := range tests {
		got, ok := parseBoolLoose(tt.in)
		if ok != tt.ok || got != tt.value {
			t.Fatalf("parseBoolLoose(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.value, tt.ok)
		}
	}
}
