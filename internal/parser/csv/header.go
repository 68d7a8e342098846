package csv

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var headerFolder = cases.Fold()

// NormalizeHeader converts a source header into its canonical field name:
// NFKC-normalized, case-folded, with every run of non-alphanumeric runes
// collapsed into a single underscore.
//
//	"Volume Sold (Liters)" -> "volume_sold_liters"
//	"Invoice/Item Number" -> "invoice_item_number"
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\uFEFF")
	h = norm.NFKC.String(strings.TrimSpace(h))
	h = headerFolder.String(h)

	var b strings.Builder
	b.Grow(len(h))
	pendingSep := false
	for _, r := range h {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// DisplayHeader title-cases a canonical field name for chart and report labels.
func DisplayHeader(field string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(field, "_", " "))
}
