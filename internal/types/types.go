// =============================================================================
// PLC Text Generator - Shared Types
// =============================================================================
//
// This package contains the data model shared by the template source, the
// row source provider and the rendering engine:
//   - Value / Record  : one typed row of an engineering dataset
//   - Template        : Sheets -> Groups -> Lines, immutable once loaded
//
// Keeping these types here avoids import cycles between:
//   - xlsxparser (builds Templates)
//   - dataset    (builds Records)
//   - render     (consumes both)
//
// =============================================================================

package types

import (
	"strconv"
	"strings"
)

// =============================================================================
// RECORD VALUES
// =============================================================================

// ValueKind identifies the type stored in a Value.
type ValueKind int

const (
	// KindString is free text. A missing string renders as "".
	KindString ValueKind = iota

	// KindInt is a mandatory integer.
	KindInt

	// KindNullInt is an integer that may be absent.
	KindNullInt

	// KindFloat is a floating point value (engineering limits, scalings).
	KindFloat
)

// String returns the configuration name of the kind.
func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindNullInt:
		return "nullint"
	case KindFloat:
		return "float"
	default:
		return "unknown"
	}
}

// ParseValueKind maps a configuration name to a ValueKind.
func ParseValueKind(name string) (ValueKind, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "string", "str", "text":
		return KindString, true
	case "int", "integer":
		return KindInt, true
	case "nullint", "nullable_int", "int?":
		return KindNullInt, true
	case "float", "double", "real":
		return KindFloat, true
	default:
		return KindString, false
	}
}

// Value is a single typed field of a Record.
type Value struct {
	Kind ValueKind

	// Str holds the value for KindString.
	Str string

	// Int holds the value for KindInt and KindNullInt.
	Int int64

	// Float holds the value for KindFloat.
	Float float64

	// Valid is false for a null value (nullable int, missing float).
	Valid bool
}

// StringValue builds a text value.
func StringValue(s string) Value {
	return Value{Kind: KindString, Str: s, Valid: true}
}

// IntValue builds an integer value.
func IntValue(i int64) Value {
	return Value{Kind: KindInt, Int: i, Valid: true}
}

// NullInt builds a nullable integer; valid=false means null.
func NullInt(i int64, valid bool) Value {
	return Value{Kind: KindNullInt, Int: i, Valid: valid}
}

// FloatValue builds a floating point value.
func FloatValue(f float64) Value {
	return Value{Kind: KindFloat, Float: f, Valid: true}
}

// IsBlank reports whether the value is null or an empty/whitespace string.
func (v Value) IsBlank() bool {
	if !v.Valid {
		return true
	}
	if v.Kind == KindString {
		return strings.TrimSpace(v.Str) == ""
	}
	return false
}

// Text returns the plain textual form of the value, "" when null.
func (v Value) Text() string {
	if !v.Valid {
		return ""
	}
	switch v.Kind {
	case KindInt, KindNullInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	default:
		return v.Str
	}
}

// Record is one row of a schema-specific dataset: field name -> typed value.
// Records are read-only while a render pass runs.
type Record map[string]Value

// Get returns the named field. A missing field is a null string.
func (r Record) Get(name string) Value {
	if v, ok := r[name]; ok {
		return v
	}
	return Value{Kind: KindString}
}

// Text returns the textual form of the named field.
func (r Record) Text(name string) string {
	return r.Get(name).Text()
}

// =============================================================================
// TEMPLATE MODEL
// =============================================================================

// GroupBy selects the rendering strategy of a Group.
type GroupBy int

const (
	// GroupByInput drives iteration from the datasets: every adapter renders
	// all of its records against the group's data lines.
	GroupByInput GroupBy = iota

	// GroupBySingleton is GroupByOutput keeping only the first emission per line.
	GroupBySingleton

	// GroupByOutput drives iteration from the template: each data line is
	// rendered once per matching record.
	GroupByOutput
)

// String returns the template name of the strategy.
func (g GroupBy) String() string {
	switch g {
	case GroupByInput:
		return "Input"
	case GroupBySingleton:
		return "Singleton"
	case GroupByOutput:
		return "Output"
	default:
		return "Unknown"
	}
}

// ParseGroupBy maps a template strategy name to a GroupBy.
func ParseGroupBy(name string) (GroupBy, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "input":
		return GroupByInput, true
	case "singleton", "single":
		return GroupBySingleton, true
	case "output":
		return GroupByOutput, true
	default:
		return GroupByInput, false
	}
}

// Template is the root of a loaded template. It owns the Sheets in order.
type Template struct {
	// Source is the path the template was loaded from.
	Source string

	// Sheets are the output sheets in declaration order.
	Sheets []*Sheet
}

// Sheet is one output artifact.
type Sheet struct {
	// Name identifies the sheet and, by default, the output file.
	Name string

	// FileName overrides the output file name when set.
	FileName string

	// IgnoreSheet skips the sheet during output.
	IgnoreSheet bool

	// Root is the top-level group.
	Root *Group
}

// Group is a node of the line-group tree. Rendering order is always:
// Headers, Data (per GroupBy), Groups (declaration order), Footers.
type Group struct {
	Headers []Line
	Data    []TemplateLine
	Groups  []*Group
	Footers []Line
	GroupBy GroupBy
}

// Line is a header or footer line. It is never keyed on a row.
type Line struct {
	Items []string
}

// TemplateLine is one substitution template with its filters.
type TemplateLine struct {
	// Type is the schema key of the adapter this line applies to.
	Type string

	// SubType restricts the line to records with an equal derived subtype.
	// Blank matches every record.
	SubType string

	// Rule is a placeholder-bearing predicate. Blank always passes.
	Rule string

	// Items are joined with the configured separator before substitution.
	Items []string

	// Row is the template source row, used in diagnostics. Zero if unknown.
	Row int
}

// Joined returns the Items joined with separator.
func (l TemplateLine) Joined(separator string) string {
	return strings.Join(l.Items, separator)
}

// Walk visits g and all of its descendants depth-first, parents first.
func (g *Group) Walk(visit func(*Group)) {
	if g == nil {
		return
	}
	visit(g)
	for _, child := range g.Groups {
		child.Walk(visit)
	}
}
