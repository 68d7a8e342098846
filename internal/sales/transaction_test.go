package sales

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquorsales/internal/category"
	"liquorsales/internal/transformer"
)

func row(fields map[string]string) *transformer.Row {
	r := transformer.GetRow(len(Columns))
	for i, c := range Columns {
		r.V[i] = fields[c]
	}
	r.Line = 2
	return r
}

func TestFromRow_Full(t *testing.T) {
	t.Parallel()

	r := row(map[string]string{
		ColDate:           "11/04/2014",
		ColStoreNumber:    "2191",
		ColStoreLocation:  "(-91.55 43.17)",
		ColCategory:       "1062310",
		ColCategoryName:   "SPICED RUM",
		ColVendorNumber:   "260.0",
		ColBottlesSold:    "12",
		ColBottleVolumeML: "750",
		ColVolumeLiters:   "9.0",
	})
	tx := FromRow(r)

	require.True(t, tx.HasDate)
	assert.Equal(t, time.Date(2014, 11, 4, 0, 0, 0, 0, time.UTC), tx.Date)
	assert.Equal(t, 2014, tx.Year())
	assert.Equal(t, "2191", tx.StoreNumber)
	assert.Equal(t, "260", tx.VendorNumber)
	assert.Equal(t, 9.0, tx.VolumeLiters)
	assert.Equal(t, 2, tx.Line)

	c, err := tx.Decode()
	require.NoError(t, err)
	assert.Equal(t, category.Rum, c.Family)
	assert.True(t, c.Imported())
}

func TestFromRow_DerivesVolume(t *testing.T) {
	t.Parallel()

	tx := FromRow(row(map[string]string{
		ColBottlesSold:    "6",
		ColBottleVolumeML: "1,750",
	}))
	require.True(t, tx.HasVolume)
	assert.InDelta(t, 10.5, tx.VolumeLiters, 1e-9)
}

func TestFromRow_MissingAndMalformed(t *testing.T) {
	t.Parallel()

	tx := FromRow(row(map[string]string{ColDate: "2014-11-04"}))
	assert.False(t, tx.HasDate)
	_, err := tx.RequireDate()
	assert.ErrorIs(t, err, transformer.ErrInvalidDateFormat)

	tx = FromRow(row(nil))
	_, err = tx.RequireDate()
	assert.True(t, IsMissing(err))
	_, err = tx.Decode()
	assert.True(t, IsMissing(err))
	assert.False(t, tx.HasVolume)
}
