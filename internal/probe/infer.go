package probe

import (
	"strconv"
	"strings"

	"liquorsales/internal/transformer"
)

// Type is a coarse inferred column type.
type Type string

const (
	TypeInteger Type = "integer"
	TypeFloat   Type = "float"
	TypeBoolean Type = "boolean"
	TypeDate    Type = "date"
	TypeText    Type = "text"
)

// inferTypes infers one Type per column from the sampled rows. Empty values
// are ignored; a column with no values is text. More specific types win:
// integer, then boolean, then date, then float.
func inferTypes(cols int, rows [][]string) []Type {
	out := make([]Type, cols)
	for col := range out {
		out[col] = inferColumn(rows, col)
	}
	return out
}

func inferColumn(rows [][]string, col int) Type {
	var seen bool
	allInt, allFloat, allBool, allDate := true, true, true, true

	for _, r := range rows {
		if col >= len(r) {
			continue
		}
		v := strings.TrimSpace(r[col])
		if v == "" {
			continue
		}
		seen = true

		if allInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				allInt = false
			}
		}
		if allFloat {
			if _, err := transformer.ParseFloat(v); err != nil {
				allFloat = false
			}
		}
		if allBool {
			if _, ok := parseBoolLoose(v); !ok {
				allBool = false
			}
		}
		if allDate {
			if _, err := transformer.ParseUSDate(v); err != nil {
				allDate = false
			}
		}
	}

	switch {
	case !seen:
		return TypeText
	case allInt:
		return TypeInteger
	case allBool:
		return TypeBoolean
	case allDate:
		return TypeDate
	case allFloat:
		return TypeFloat
	default:
		return TypeText
	}
}

func parseBoolLoose(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "t", "true", "yes", "y":
		return true, true
	case "f", "false", "no", "n":
		return false, true
	default:
		return false, false
	}
}
