package render

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/plc-text-generator/internal/types"
)

// SubtypeKind selects how a record's subtype is derived.
type SubtypeKind int

const (
	// SubtypeBlank always yields "", so only lines with a blank SubType match.
	SubtypeBlank SubtypeKind = iota
	// SubtypeFixed yields one field verbatim.
	SubtypeFixed
	// SubtypeComposed joins several categorical fields with '_'.
	SubtypeComposed
	// SubtypeConditional yields Literal when Field is not blank, else "".
	SubtypeConditional
)

// ParseSubtypeKind maps a configuration name to a SubtypeKind.
func ParseSubtypeKind(name string) (SubtypeKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "blank":
		return SubtypeBlank, nil
	case "fixed":
		return SubtypeFixed, nil
	case "composed":
		return SubtypeComposed, nil
	case "conditional":
		return SubtypeConditional, nil
	default:
		return SubtypeBlank, fmt.Errorf("unknown subtype kind %q", name)
	}
}

// Subtype is a per-schema classifier strategy.
type Subtype struct {
	Kind    SubtypeKind
	Field   string
	Fields  []string
	Literal string
}

// Of derives the subtype tag of r.
func (s Subtype) Of(r types.Record) string {
	switch s.Kind {
	case SubtypeFixed:
		return r.Text(s.Field)
	case SubtypeComposed:
		parts := make([]string, len(s.Fields))
		for i, field := range s.Fields {
			parts[i] = strings.TrimSpace(r.Text(field))
		}
		return ComposeKey(parts...)
	case SubtypeConditional:
		if r.Get(s.Field).IsBlank() {
			return ""
		}
		return s.Literal
	default:
		return ""
	}
}

// ComposeKey joins parts with '_', collapses repeated '_' and trims the
// result, so empty parts leave no stray separator: ("AI","","HH") -> "AI_HH".
func ComposeKey(parts ...string) string {
	joined := strings.Join(parts, "_")

	var out strings.Builder
	out.Grow(len(joined))
	previous := byte(0)
	for i := 0; i < len(joined); i++ {
		c := joined[i]
		if c == '_' && previous == '_' {
			continue
		}
		out.WriteByte(c)
		previous = c
	}

	return strings.Trim(out.String(), "_")
}

// SubtypeMatches reports whether a line's SubType filter accepts subtype.
func SubtypeMatches(lineSubType, subtype string) bool {
	return lineSubType == "" || lineSubType == subtype
}
