// =============================================================================
// PLC Text Generator - Validation Engine
// =============================================================================
//
// This module diagnoses problems that do not stop generation but make its
// output untrustworthy:
//   - Template level: lines whose Type has no adapter, placeholders outside
//     the adapter vocabulary, packed-word types in Output/Singleton groups
//   - Dataset level: packed-word runs that the unpacker would reassemble
//     incompletely (missing or repeated Bit00, repeated or unordered labels,
//     an address that reappears after its run ended)
//   - Output level: rendered lines still containing '{'
//
// ERROR HANDLING:
//   - Diagnostics are collected, never returned as Go errors
//   - Each diagnostic carries its sheet, template row or output line
//   - "error" marks lines or words that lose output, "warning" the rest
//
// =============================================================================

package validation

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ginjaninja78/plc-text-generator/internal/render"
	"github.com/ginjaninja78/plc-text-generator/internal/types"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Rule names of the checks.
const (
	RuleUnknownType       = "unknown_type"
	RulePlaceholder       = "placeholder_closure"
	RuleGlobalPlaceholder = "global_closure"
	RulePackedGrouping    = "packed_grouping"
	RuleWordBit00         = "word_bit00"
	RuleWordDuplicateBit  = "word_duplicate_bit"
	RuleWordOrder         = "word_order"
	RuleWordUnknownLabel  = "word_unknown_label"
	RuleWordReappears     = "word_address_reappears"
	RuleWordOrphan        = "word_orphan_row"
	RuleUnresolved        = "unresolved_placeholder"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single diagnostic.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Sheet is the template sheet, empty for dataset diagnostics.
	Sheet string

	// Type is the schema key involved.
	Type string

	// Line is the template row, dataset row or output line (1-based).
	Line int

	// Value is the offending placeholder, label, address or text.
	Value string

	// Rule is the check that was violated.
	Rule string

	// Message is a human-readable error message.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var where []string
	if e.Sheet != "" {
		where = append(where, "sheet "+e.Sheet)
	}
	if e.Type != "" {
		where = append(where, "type "+e.Type)
	}
	if e.Line > 0 {
		where = append(where, fmt.Sprintf("line %d", e.Line))
	}
	location := strings.Join(where, ", ")
	if location == "" {
		location = "-"
	}

	msg := fmt.Sprintf("[%s] %s: %s", strings.ToUpper(e.Severity), location, e.Message)
	if e.Value != "" {
		msg += fmt.Sprintf(" (value: '%s')", e.Value)
	}
	return msg
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no errors.
	IsValid bool

	// Errors contains all diagnostics (including warnings).
	Errors []*ValidationError

	// ErrorCount is the number of errors.
	ErrorCount int

	// WarningCount is the number of warnings.
	WarningCount int
}

// NewResult counts diagnostics.
func NewResult(diagnostics ...[]*ValidationError) *ValidationResult {
	result := &ValidationResult{IsValid: true}
	for _, list := range diagnostics {
		result.Add(list...)
	}
	return result
}

// Add appends diagnostics and updates the counts.
func (r *ValidationResult) Add(diagnostics ...*ValidationError) {
	for _, d := range diagnostics {
		r.Errors = append(r.Errors, d)
		if d.Severity == SeverityError {
			r.ErrorCount++
			r.IsValid = false
		} else {
			r.WarningCount++
		}
	}
}

// =============================================================================
// VALIDATOR
// =============================================================================

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// TreatWarningsAsErrors reports every warning as an error.
	// Default: false
	TreatWarningsAsErrors bool

	// Globals are the placeholders available to header and footer lines.
	Globals map[string]string
}

// DefaultValidationOptions returns the default validation options.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{}
}

// AdapterSet resolves the adapters of a run.
type AdapterSet interface {
	Adapter(typeKey string) (*render.Adapter, bool)
	Adapters() []*render.Adapter
}

// Validator runs the template and dataset checks of one run.
type Validator struct {
	adapters AdapterSet
	source   render.RowSource
	options  ValidationOptions
}

// NewValidator creates a new Validator instance.
func NewValidator(adapters AdapterSet, source render.RowSource) *Validator {
	return NewValidatorWithOptions(adapters, source, DefaultValidationOptions())
}

// NewValidatorWithOptions creates a new Validator with custom options.
func NewValidatorWithOptions(adapters AdapterSet, source render.RowSource, options ValidationOptions) *Validator {
	return &Validator{adapters: adapters, source: source, options: options}
}

// ValidateAll runs the template checks on every non-ignored sheet and the
// word-run checks on every packed-word adapter.
func (v *Validator) ValidateAll(tmpl *types.Template) *ValidationResult {
	result := NewResult()
	if tmpl != nil {
		for _, sheet := range tmpl.Sheets {
			if sheet.IgnoreSheet {
				continue
			}
			result.Add(v.ValidateSheet(sheet)...)
		}
	}
	for _, a := range v.adapters.Adapters() {
		if a.Packed() {
			result.Add(v.ValidateWordRuns(a)...)
		}
	}
	return v.finish(result)
}

// finish applies TreatWarningsAsErrors.
func (v *Validator) finish(result *ValidationResult) *ValidationResult {
	if !v.options.TreatWarningsAsErrors {
		return result
	}
	promoted := NewResult()
	for _, d := range result.Errors {
		copied := *d
		copied.Severity = SeverityError
		promoted.Add(&copied)
	}
	return promoted
}

// =============================================================================
// TEMPLATE CHECKS
// =============================================================================

// ValidateSheet checks every line of a sheet's group tree.
func (v *Validator) ValidateSheet(sheet *types.Sheet) []*ValidationError {
	var diagnostics []*ValidationError

	sheet.Root.Walk(func(g *types.Group) {
		for _, line := range append(append([]types.Line(nil), g.Headers...), g.Footers...) {
			for _, name := range render.Placeholders(strings.Join(line.Items, " ")) {
				if _, ok := v.options.Globals[name]; !ok {
					diagnostics = append(diagnostics, &ValidationError{
						Severity: SeverityWarning,
						Sheet:    sheet.Name,
						Value:    name,
						Rule:     RuleGlobalPlaceholder,
						Message:  "header or footer placeholder is not a global",
					})
				}
			}
		}

		for _, line := range g.Data {
			diagnostics = append(diagnostics, v.validateLine(sheet.Name, g.GroupBy, line)...)
		}
	})

	return diagnostics
}

// validateLine checks one data line.
func (v *Validator) validateLine(sheet string, groupBy types.GroupBy, line types.TemplateLine) []*ValidationError {
	a, ok := v.adapters.Adapter(line.Type)
	if !ok {
		return []*ValidationError{{
			Severity: SeverityWarning,
			Sheet:    sheet,
			Type:     line.Type,
			Line:     line.Row,
			Rule:     RuleUnknownType,
			Message:  "no schema is configured for this type, line never renders",
		}}
	}

	var diagnostics []*ValidationError

	if a.Packed() && groupBy != types.GroupByInput {
		diagnostics = append(diagnostics, &ValidationError{
			Severity: SeverityError,
			Sheet:    sheet,
			Type:     line.Type,
			Line:     line.Row,
			Value:    groupBy.String(),
			Rule:     RulePackedGrouping,
			Message:  "packed-word types render only in Input groups",
		})
	}

	seen := make(map[string]bool)
	texts := append(append([]string(nil), line.Items...), line.Rule)
	for _, text := range texts {
		for _, name := range render.Placeholders(text) {
			if a.KnowsFor(line.SubType, name) || seen[name] {
				continue
			}
			seen[name] = true
			message := "placeholder is not part of the schema vocabulary"
			if a.Knows(name) {
				message = "placeholder does not resolve for every record the SubType admits"
			}
			diagnostics = append(diagnostics, &ValidationError{
				Severity: SeverityWarning,
				Sheet:    sheet,
				Type:     line.Type,
				Line:     line.Row,
				Value:    name,
				Rule:     RulePlaceholder,
				Message:  message,
			})
		}
	}

	return diagnostics
}

// =============================================================================
// DATASET CHECKS
// =============================================================================

// ValidateWordRuns checks the packed-word runs of a packed adapter's dataset
// in the order the unpacker consumes them.
func (v *Validator) ValidateWordRuns(a *render.Adapter) []*ValidationError {
	schema := a.Schema()
	w := schema.Words
	if w == nil || v.source == nil {
		return nil
	}
	rows, ok := v.source.Rows(schema.Dataset)
	if !ok {
		return nil
	}

	var diagnostics []*ValidationError
	report := func(severity string, row int, value, rule, message string) {
		diagnostics = append(diagnostics, &ValidationError{
			Severity: severity,
			Type:     schema.Type,
			Line:     row + 1,
			Value:    value,
			Rule:     rule,
			Message:  message,
		})
	}

	finished := make(map[string]int)
	for i := 0; i < len(rows); {
		kind := w.KindOf(rows[i])
		bits := w.BitsFor(kind)
		if bits == 0 {
			i++
			continue
		}

		address := w.AddressOf(rows[i])
		if address == "" {
			report(SeverityWarning, i, rows[i].Text(w.BitField), RuleWordOrphan, "bit row without a leading address row is skipped")
			i++
			continue
		}

		if first, ok := finished[address]; ok {
			report(SeverityError, i, address, RuleWordReappears,
				fmt.Sprintf("address already used by the run starting at row %d, rows are not grouped by address", first+1))
		}

		_, consumed := w.Unpack(rows, i, kind)

		bit00 := 0
		last := -1
		labels := make(map[int]bool)
		for j := i; j < i+consumed; j++ {
			label := rows[j].Text(w.BitField)
			n, ok := render.ParseBitLabel(label, bits)
			if !ok {
				report(SeverityWarning, j, label, RuleWordUnknownLabel, fmt.Sprintf("not a bit label of a %d-bit word, row ignored", bits))
				continue
			}
			if n == 0 {
				bit00++
			}
			if labels[n] {
				report(SeverityError, j, label, RuleWordDuplicateBit, "bit label repeated within the word, the later row wins")
			} else if n < last {
				report(SeverityWarning, j, label, RuleWordOrder, "bit labels are not in ascending order")
			}
			labels[n] = true
			if n > last {
				last = n
			}
		}
		if bit00 != 1 {
			report(SeverityError, i, address, RuleWordBit00, fmt.Sprintf("word has %d Bit00 rows, expected exactly one", bit00))
		}

		if _, ok := finished[address]; !ok {
			finished[address] = i
		}
		i += consumed
	}

	return diagnostics
}

// =============================================================================
// OUTPUT CHECKS
// =============================================================================

// UnresolvedPlaceholders reports every line of a rendered sheet that still
// contains '{'.
func UnresolvedPlaceholders(sheet, text string) []*ValidationError {
	var diagnostics []*ValidationError
	for i, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, "{") {
			continue
		}
		diagnostics = append(diagnostics, &ValidationError{
			Severity: SeverityWarning,
			Sheet:    sheet,
			Line:     i + 1,
			Value:    unresolvedTokens(line),
			Rule:     RuleUnresolved,
			Message:  "rendered line contains an unresolved placeholder",
		})
	}
	return diagnostics
}

// unresolvedTokens lists the distinct {Name} tokens of a line, or the line
// itself when a brace is unterminated.
func unresolvedTokens(line string) string {
	names := render.Placeholders(line)
	if len(names) == 0 {
		return strings.TrimSpace(line)
	}
	seen := make(map[string]bool, len(names))
	var tokens []string
	for _, name := range names {
		if !seen[name] {
			seen[name] = true
			tokens = append(tokens, "{"+name+"}")
		}
	}
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats diagnostics for display or logging.
//
// PARAMETERS:
//   - errors: The diagnostics to format.
//
// RETURNS:
//   - A formatted string containing all diagnostics.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d diagnostic(s):\n\n", len(errors)))

	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}

// WriteErrorLog writes diagnostics to a report file.
//
// PARAMETERS:
//   - errors: The diagnostics to write.
//   - filePath: The path to the report file.
//
// RETURNS:
//   - An error if writing fails.
func WriteErrorLog(errors []*ValidationError, filePath string) error {
	var builder strings.Builder
	builder.WriteString("================================================================================\n")
	builder.WriteString("PLC Text Generator - Validation Report\n")
	builder.WriteString("================================================================================\n\n")
	builder.WriteString(fmt.Sprintf("Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05")))
	builder.WriteString(FormatErrors(errors))

	if err := os.WriteFile(filePath, []byte(builder.String()), 0644); err != nil {
		return fmt.Errorf("failed to write validation report: %w", err)
	}
	return nil
}
