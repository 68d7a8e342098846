// Package geo resolves store coordinates from the free-text "Store Location"
// column and loads the reference geometry drawn under them (state boundary,
// city markers).
//
// Store locations look like
//
//	"1460 2ND AVE\nDES MOINES 50314\n(41.554101 -93.596754)"
//
// The first number inside the parentheses is read as Lat and the last as Lon.
// Field names follow that textual order, not a geographic claim; the default
// outlier Filter is expressed in the same terms.
package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedLocation is returned when a location has no parseable
// "(a b)" coordinate pair.
var ErrMalformedLocation = errors.New("malformed location")

// Point is a parsed coordinate pair.
type Point struct {
	Lat float64
	Lon float64
}

// ParseLatitude returns the number between the first '(' and the whitespace
// that follows it.
func ParseLatitude(text string) (float64, error) {
	i := strings.IndexByte(text, '(')
	if i < 0 {
		return 0, fmt.Errorf("geo: %w: no '(' in %q", ErrMalformedLocation, text)
	}
	rest := text[i+1:]
	if j := strings.IndexAny(rest, " \t\r\n"); j >= 0 {
		rest = rest[:j]
	}
	rest = strings.TrimSuffix(rest, ")")
	v, err := strconv.ParseFloat(rest, 64)
	if err != nil {
		return 0, fmt.Errorf("geo: %w: latitude %q", ErrMalformedLocation, rest)
	}
	return v, nil
}

// ParseLongitude returns the last whitespace-delimited token before the first
// ')'.
func ParseLongitude(text string) (float64, error) {
	i := strings.IndexByte(text, ')')
	if i < 0 {
		return 0, fmt.Errorf("geo: %w: no ')' in %q", ErrMalformedLocation, text)
	}
	fields := strings.Fields(text[:i])
	if len(fields) == 0 {
		return 0, fmt.Errorf("geo: %w: empty coordinates in %q", ErrMalformedLocation, text)
	}
	tok := strings.TrimPrefix(fields[len(fields)-1], "(")
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("geo: %w: longitude %q", ErrMalformedLocation, tok)
	}
	return v, nil
}

// ParsePoint parses both components of a location.
func ParsePoint(text string) (Point, error) {
	lat, err := ParseLatitude(text)
	if err != nil {
		return Point{}, err
	}
	lon, err := ParseLongitude(text)
	if err != nil {
		return Point{}, err
	}
	return Point{Lat: lat, Lon: lon}, nil
}
