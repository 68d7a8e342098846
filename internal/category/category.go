// Package category decodes liquor category codes into a family and an origin.
//
// Category codes in the sales data are 7-digit integers such as 1031200. The
// leading three digits select the liquor family (code / 10000 == 103 is
// Vodka) and the fourth leading digit encodes origin:
//
//	1031200  ->  family 103 (Vodka), origin digit 1 (domestic)
//	1032200  ->  family 103 (Vodka), origin digit 2 (imported)
//	1700000  ->  family 170, origin digit 0 (special order)
//
// The origin convention comes from the dataset publisher's code layout and has
// not been checked against an authoritative code book.
package category

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrUnknownCategoryFamily is returned for codes whose family is not in
	// the family table. It is fatal for aggregations: dropping such rows would
	// silently skew every per-family statistic.
	ErrUnknownCategoryFamily = errors.New("unknown category family")

	// ErrMissingRequiredField is returned when a row has no category code.
	ErrMissingRequiredField = errors.New("missing required field")
)

const (
	// canonicalDigits is the length of a full category code.
	canonicalDigits = 7
	// familyDivisor strips the four trailing digits, leaving the family.
	familyDivisor = 10000
	// originDivisor brings the fourth leading digit of a canonical code into
	// the units place.
	originDivisor = 1000
)

// Family is the three-digit liquor family prefix of a category code.
type Family int

const (
	Whiskey            Family = 101
	Tequila            Family = 102
	Vodka              Family = 103
	Gin                Family = 104
	Brandies           Family = 105
	Rum                Family = 106
	Cocktails          Family = 107
	Liquers            Family = 108
	DistilledSpirits   Family = 109
	Unnamed            Family = 110
	HighProofBeer      Family = 150
	TemporarySpecialty Family = 170
	SpecialOrder       Family = 190
)

var familyNames = map[Family]string{
	Whiskey:            "Whiskey",
	Tequila:            "Tequila",
	Vodka:              "Vodka",
	Gin:                "Gin",
	Brandies:           "Brandies",
	Rum:                "Rum",
	Cocktails:          "Cocktails",
	Liquers:            "Liquers",
	DistilledSpirits:   "Distilled Spirits",
	Unnamed:            "",
	HighProofBeer:      "High Proof Beer",
	TemporarySpecialty: "Temporary and Specialty Packages",
	SpecialOrder:       "Special Order Items",
}

var familyOrder = []Family{
	Whiskey, Tequila, Vodka, Gin, Brandies, Rum, Cocktails, Liquers,
	DistilledSpirits, Unnamed, HighProofBeer, TemporarySpecialty, SpecialOrder,
}

// Families returns every known family in code order.
func Families() []Family {
	return append([]Family(nil), familyOrder...)
}

// Known reports whether f is in the family table.
func (f Family) Known() bool {
	_, ok := familyNames[f]
	return ok
}

// Name returns the family's table name. Family 110 has an empty name.
func (f Family) Name() string {
	return familyNames[f]
}

// String returns the name, or the numeric code when the name is empty.
func (f Family) String() string {
	if n := familyNames[f]; n != "" {
		return n
	}
	return strconv.Itoa(int(f))
}

// ParseFamily accepts a numeric family code ("103") or a case-insensitive
// family name ("vodka").
func ParseFamily(s string) (Family, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		f := Family(n)
		if !f.Known() {
			return 0, fmt.Errorf("category: %w: %d", ErrUnknownCategoryFamily, n)
		}
		return f, nil
	}
	for _, f := range familyOrder {
		if n := familyNames[f]; n != "" && strings.EqualFold(n, s) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("category: %w: %q", ErrUnknownCategoryFamily, s)
}

// Origin is the origin class carried by the fourth leading digit of a code.
type Origin int

const (
	OriginSpecialOrder Origin = 0
	OriginDomestic     Origin = 1
	OriginImported     Origin = 2
	// OriginOther covers digits 3-9, which the code layout does not assign.
	OriginOther Origin = -1
)

func (o Origin) String() string {
	switch o {
	case OriginSpecialOrder:
		return "special order"
	case OriginDomestic:
		return "domestic"
	case OriginImported:
		return "imported"
	default:
		return "other"
	}
}

// Category is a decoded category code.
type Category struct {
	Code   int
	Family Family
	Origin Origin
}

// Imported reports whether the code is an imported product.
func (c Category) Imported() bool { return c.Origin == OriginImported }

// ImportFlag is Imported as 0 or 1, the form averaged by import ratios.
func (c Category) ImportFlag() int {
	if c.Imported() {
		return 1
	}
	return 0
}

// Decode maps a category code to its family and origin.
//
// Codes shorter than seven digits are read as prefixes of a full code, so
// 1031 decodes like 1031000. Unknown families return an error wrapping
// ErrUnknownCategoryFamily; negative codes are always unknown.
func Decode(code int) (Category, error) {
	if code <= 0 {
		return Category{}, fmt.Errorf("category: %w: code %d", ErrUnknownCategoryFamily, code)
	}

	canonical := canonicalize(code)
	fam := Family(canonical / familyDivisor)
	if !fam.Known() {
		return Category{}, fmt.Errorf("category: %w: code %d (family %d)", ErrUnknownCategoryFamily, code, int(fam))
	}

	return Category{
		Code:   code,
		Family: fam,
		Origin: originOf(canonical),
	}, nil
}

// DecodeNullable decodes code when ok is true and returns an error wrapping
// ErrMissingRequiredField otherwise.
func DecodeNullable(code int, ok bool) (Category, error) {
	if !ok {
		return Category{}, fmt.Errorf("category: %w: category", ErrMissingRequiredField)
	}
	return Decode(code)
}

// canonicalize scales a short code up to seven digits. Longer codes are
// returned unchanged and end up outside the family table.
func canonicalize(code int) int {
	for n := digits(code); n < canonicalDigits; n++ {
		code *= 10
	}
	return code
}

func originOf(canonical int) Origin {
	switch d := (canonical / originDivisor) % 10; d {
	case 0:
		return OriginSpecialOrder
	case 1:
		return OriginDomestic
	case 2:
		return OriginImported
	default:
		return OriginOther
	}
}

func digits(n int) int {
	d := 1
	for n >= 10 {
		n /= 10
		d++
	}
	return d
}
