package csv

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquorsales/internal/transformer"
)

func collect(t *testing.T, input string, columns []string, opt Options) ([][]string, []int, error) {
	t.Helper()

	out := make(chan *transformer.Row, 16)
	var lines []int
	var rows [][]string
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		errCh <- StreamCSVRows(context.Background(), io.NopCloser(strings.NewReader(input)), columns, opt, out, func(line int, err error) {
			lines = append(lines, line)
		})
	}()

	for r := range out {
		rows = append(rows, append([]string(nil), r.V...))
		r.Free()
	}
	return rows, lines, <-errCh
}

func TestNormalizeHeader(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Date":                      "date",
		"Store Number":              "store_number",
		"Volume Sold (Liters)":      "volume_sold_liters",
		"Bottle Volume (ml)":        "bottle_volume_ml",
		"Latitude/Longitude":        "latitude_longitude",
		"  Category Name  ":         "category_name",
		"\uFEFFInvoice/Item Number": "invoice_item_number",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeHeader(in), "NormalizeHeader(%q)", in)
	}
}

func TestStreamCSVRows_ProjectsColumns(t *testing.T) {
	t.Parallel()

	input := "Date,Store Number,Category,Volume Sold (Liters)\n" +
		"1/5/2015, 2191 ,1031200,9.0\n" +
		"2/6/2016,2205,,1.5\n"

	rows, badLines, err := collect(t, input, []string{"volume_sold_liters", "category", "absent"}, Options{})
	require.NoError(t, err)
	assert.Empty(t, badLines)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"9.0", "1031200", ""}, rows[0])
	assert.Equal(t, []string{"1.5", "", ""}, rows[1])
}

func TestStreamCSVRows_RequiredColumnMissing(t *testing.T) {
	t.Parallel()

	_, _, err := collect(t, "a,b\n1,2\n", []string{"a"}, Options{Required: []string{"store_number"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumn))
}

func TestStreamCSVRows_TabsAndHeaderMap(t *testing.T) {
	t.Parallel()

	input := "Zip\tPop 2010\n50309\t12000\n"
	rows, _, err := collect(t, input, []string{"zip", "population"}, Options{
		Comma:     '\t',
		HeaderMap: map[string]string{"Pop 2010": "population"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"50309", "12000"}, rows[0])
}

func TestStreamCSVRows_SkipsMalformedRecord(t *testing.T) {
	t.Parallel()

	input := "a,b\n1,2\n\"bad,3\n"
	rows, badLines, err := collect(t, input, []string{"a", "b"}, Options{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.NotEmpty(t, badLines)
}

func TestStreamCSVRows_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan *transformer.Row)
	err := StreamCSVRows(ctx, io.NopCloser(strings.NewReader("a\n1\n2\n")), []string{"a"}, Options{}, out, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
