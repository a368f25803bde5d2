// =============================================================================
// PLC Text Generator - Placeholder Formats
// =============================================================================
//
// Every placeholder of an adapter is bound to exactly one Format when the
// adapter is built. The format directives of the configuration ("", "000",
// "e", "g") are parsed once here and never at render time.
//
//   | Directive | Kind       | Example ({Index:000}, {HiLimit:e}) |
//   |-----------|------------|------------------------------------|
//   | ""        | Verbatim   | "AI_101"                           |
//   | "000"     | ZeroPadded | 7 -> "007"                         |
//   | "e"       | Scientific | 1500 -> "1.500000e+03"             |
//   | "g"       | General    | 0.25 -> "0.25"                     |
//
// =============================================================================

package render

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ginjaninja78/plc-text-generator/internal/types"
)

// FormatKind enumerates the supported placeholder renderings.
type FormatKind int

const (
	// Verbatim substitutes the value's plain text ("" when null).
	Verbatim FormatKind = iota

	// ZeroPadded renders an integer as fixed-width zero-padded decimal.
	ZeroPadded

	// Scientific renders a number in scientific notation with six decimals.
	Scientific

	// General renders a number in its shortest exact decimal form.
	General
)

// Format is a resolved placeholder rendering.
type Format struct {
	Kind FormatKind

	// Width is the digit count for ZeroPadded.
	Width int
}

// ParseFormat resolves a configuration directive into a Format.
func ParseFormat(directive string) (Format, error) {
	switch d := strings.TrimSpace(directive); {
	case d == "":
		return Format{Kind: Verbatim}, nil
	case strings.EqualFold(d, "e"):
		return Format{Kind: Scientific}, nil
	case strings.EqualFold(d, "g"):
		return Format{Kind: General}, nil
	case strings.Trim(d, "0") == "":
		return Format{Kind: ZeroPadded, Width: len(d)}, nil
	default:
		return Format{}, fmt.Errorf("unsupported format directive %q", directive)
	}
}

// Directive returns the placeholder suffix of the format, "" for Verbatim.
func (f Format) Directive() string {
	switch f.Kind {
	case ZeroPadded:
		return strings.Repeat("0", f.Width)
	case Scientific:
		return "e"
	case General:
		return "g"
	default:
		return ""
	}
}

// Placeholder returns the token name registered for field under this format.
func (f Format) Placeholder(field string) string {
	if d := f.Directive(); d != "" {
		return field + ":" + d
	}
	return field
}

// Apply renders v. Null values always render as "".
func (f Format) Apply(v types.Value) string {
	if !v.Valid {
		return ""
	}

	switch f.Kind {
	case ZeroPadded:
		n, ok := asInt(v)
		if !ok {
			return v.Text()
		}
		return fmt.Sprintf("%0*d", f.Width, n)

	case Scientific:
		x, ok := asFloat(v)
		if !ok {
			return v.Text()
		}
		return strconv.FormatFloat(x, 'e', 6, 64)

	case General:
		x, ok := asFloat(v)
		if !ok {
			return v.Text()
		}
		return strconv.FormatFloat(x, 'g', -1, 64)

	default:
		return v.Text()
	}
}

// asInt converts a value to an integer if it represents one.
func asInt(v types.Value) (int64, bool) {
	switch v.Kind {
	case types.KindInt, types.KindNullInt:
		return v.Int, true
	case types.KindFloat:
		return int64(math.Round(v.Float)), true
	default:
		n, err := strconv.ParseInt(strings.TrimSpace(v.Str), 10, 64)
		return n, err == nil
	}
}

// asFloat converts a value to a float if it represents a number.
func asFloat(v types.Value) (float64, bool) {
	switch v.Kind {
	case types.KindInt, types.KindNullInt:
		return float64(v.Int), true
	case types.KindFloat:
		return v.Float, true
	default:
		x, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		return x, err == nil
	}
}
