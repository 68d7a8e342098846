// Package sales defines the transaction record read from the liquor sales
// file and its coercion from raw CSV fields.
package sales

import (
	"errors"
	"fmt"
	"time"

	"liquorsales/internal/category"
	"liquorsales/internal/transformer"
)

// Canonical column names (normalized source headers).
const (
	ColDate           = "date"
	ColStoreNumber    = "store_number"
	ColStoreName      = "store_name"
	ColStoreLocation  = "store_location"
	ColCategory       = "category"
	ColCategoryName   = "category_name"
	ColVendorNumber   = "vendor_number"
	ColVendorName     = "vendor_name"
	ColBottlesSold    = "bottles_sold"
	ColBottleVolumeML = "bottle_volume_ml"
	ColVolumeLiters   = "volume_sold_liters"
)

// Columns is the projection read from the transactions file, in Row order.
var Columns = []string{
	ColDate,
	ColStoreNumber,
	ColStoreName,
	ColStoreLocation,
	ColCategory,
	ColCategoryName,
	ColVendorNumber,
	ColVendorName,
	ColBottlesSold,
	ColBottleVolumeML,
	ColVolumeLiters,
}

// Required are the columns whose absence from the header fails a run.
var Required = []string{ColDate, ColStoreNumber, ColCategory, ColVendorNumber}

const (
	ixDate = iota
	ixStoreNumber
	ixStoreName
	ixStoreLocation
	ixCategory
	ixCategoryName
	ixVendorNumber
	ixVendorName
	ixBottlesSold
	ixBottleVolumeML
	ixVolumeLiters
)

// ErrMissingRequiredField is category.ErrMissingRequiredField, re-exported so
// callers that only deal with transactions need not import category.
var ErrMissingRequiredField = category.ErrMissingRequiredField

// Transaction is one sales record. Optional fields carry a Has* flag so that
// a missing value is never confused with zero.
type Transaction struct {
	Line int

	Date    time.Time
	HasDate bool
	// DateErr holds the parse error for a present but malformed date.
	DateErr error

	StoreNumber   string
	StoreName     string
	StoreLocation string

	Category     int
	HasCategory  bool
	CategoryName string

	VendorNumber string
	VendorName   string

	BottlesSold    int
	BottleVolumeML float64

	VolumeLiters float64
	HasVolume    bool
}

// Year returns the calendar year of Date. It is only meaningful when
// HasDate is true.
func (t *Transaction) Year() int { return t.Date.Year() }

// Decode decodes the category code. Rows without a code return an error
// wrapping ErrMissingRequiredField.
func (t *Transaction) Decode() (category.Category, error) {
	return category.DecodeNullable(t.Category, t.HasCategory)
}

// FromRow coerces a row projected onto Columns.
//
// FromRow never fails as a whole: each field is parsed independently and the
// Has* flags record what was usable. A present but unparseable date is kept
// in DateErr so aggregations can tell "missing" from "malformed". Volume sold
// falls back to bottles * bottle volume when its own column is empty.
func FromRow(r *transformer.Row) Transaction {
	tx := Transaction{
		Line:          r.Line,
		StoreNumber:   r.Field(ixStoreNumber),
		StoreName:     r.Field(ixStoreName),
		StoreLocation: r.Field(ixStoreLocation),
		CategoryName:  r.Field(ixCategoryName),
		VendorNumber:  normalizeID(r.Field(ixVendorNumber)),
		VendorName:    r.Field(ixVendorName),
	}

	if s := r.Field(ixDate); s != "" {
		d, err := transformer.ParseUSDate(s)
		if err != nil {
			tx.DateErr = err
		} else {
			tx.Date, tx.HasDate = d, true
		}
	}

	if s := r.Field(ixCategory); s != "" {
		if n, err := transformer.ParseInt(s); err == nil {
			tx.Category, tx.HasCategory = n, true
		}
	}

	hasBottles, hasBottleVol := false, false
	if s := r.Field(ixBottlesSold); s != "" {
		if n, err := transformer.ParseInt(s); err == nil {
			tx.BottlesSold, hasBottles = n, true
		}
	}
	if s := r.Field(ixBottleVolumeML); s != "" {
		if f, err := transformer.ParseFloat(s); err == nil {
			tx.BottleVolumeML, hasBottleVol = f, true
		}
	}
	if s := r.Field(ixVolumeLiters); s != "" {
		if f, err := transformer.ParseFloat(s); err == nil {
			tx.VolumeLiters, tx.HasVolume = f, true
		}
	}
	if !tx.HasVolume && hasBottles && hasBottleVol {
		tx.VolumeLiters = float64(tx.BottlesSold) * tx.BottleVolumeML / 1000
		tx.HasVolume = true
	}

	return tx
}

// RequireDate returns the date or an error explaining why it is unusable.
func (t *Transaction) RequireDate() (time.Time, error) {
	if t.HasDate {
		return t.Date, nil
	}
	if t.DateErr != nil {
		return time.Time{}, t.DateErr
	}
	return time.Time{}, fmt.Errorf("sales: %w: %s", ErrMissingRequiredField, ColDate)
}

// IsMissing reports whether err marks a missing (as opposed to malformed)
// field.
func IsMissing(err error) bool {
	return errors.Is(err, ErrMissingRequiredField)
}

// normalizeID drops a trailing ".0" that float-typed exports add to integer
// identifiers, so "260.0" and "260" group together.
func normalizeID(s string) string {
	if len(s) > 2 && s[len(s)-2:] == ".0" {
		return s[:len(s)-2]
	}
	return s
}
