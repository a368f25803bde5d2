package render

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ginjaninja78/plc-text-generator/internal/errs"
	"github.com/ginjaninja78/plc-text-generator/internal/types"
)

// RowSource supplies the materialized datasets of a render pass.
type RowSource interface {
	// Rows returns the ordered records of a dataset, false if it is absent.
	Rows(dataset string) ([]types.Record, bool)

	// Lookup returns the record of a dataset whose index field equals index.
	Lookup(dataset string, index int64) (types.Record, bool)
}

// RuleGate evaluates a fully substituted rule.
type RuleGate interface {
	Evaluate(predicate string) (bool, error)
}

// AdapterOptions tunes an Adapter.
type AdapterOptions struct {
	// SampleLimit caps the records visited per call. 0 means unlimited.
	SampleLimit int

	Logger *zap.Logger
}

// binding is the resolution of one placeholder name.
type binding struct {
	field  string
	format Format
	join   *Join
}

// Adapter renders the records of one schema against template lines.
// It holds no per-record state and may be shared by sheets.
type Adapter struct {
	schema Schema
	source RowSource
	gate   RuleGate
	limit  int
	logger *zap.Logger

	vocab map[string]binding

	// wordVocab holds the aggregate field names per packed-word width.
	wordVocab map[int]map[string]bool
}

// NewAdapter builds the placeholder vocabulary of schema once.
func NewAdapter(schema Schema, source RowSource, gate RuleGate, opts AdapterOptions) *Adapter {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &Adapter{
		schema: schema,
		source: source,
		gate:   gate,
		limit:  opts.SampleLimit,
		logger: logger.With(zap.String("type", schema.Type)),
		vocab:  make(map[string]binding),
	}

	for _, field := range schema.Fields {
		for _, format := range field.Formats {
			a.vocab[format.Placeholder(field.Name)] = binding{field: field.Name, format: format}
		}
	}
	for i := range schema.Joins {
		a.vocab[schema.Joins[i].As] = binding{join: &schema.Joins[i]}
	}

	if schema.Words != nil {
		a.wordVocab = make(map[int]map[string]bool, 2)
		for _, bits := range []int{16, 32} {
			names := make(map[string]bool, 2*bits+1)
			for _, name := range AggregateFields(bits) {
				names[name] = true
			}
			a.wordVocab[bits] = names
		}
	}

	return a
}

// Type returns the schema key of the adapter.
func (a *Adapter) Type() string {
	return a.schema.Type
}

// Schema returns the resolved schema.
func (a *Adapter) Schema() Schema {
	return a.schema
}

// Packed reports whether the adapter unpacks bit rows into words.
func (a *Adapter) Packed() bool {
	return a.schema.Words != nil
}

// Vocabulary returns the sorted placeholder names known to the adapter,
// including the 32-bit aggregate fields of packed schemas.
func (a *Adapter) Vocabulary() []string {
	names := make([]string, 0, len(a.vocab))
	for name := range a.vocab {
		names = append(names, name)
	}
	if a.Packed() {
		for name := range a.wordVocab[32] {
			if _, ok := a.vocab[name]; !ok {
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// Knows reports whether name is a placeholder of the adapter.
func (a *Adapter) Knows(name string) bool {
	if _, ok := a.vocab[name]; ok {
		return true
	}
	return a.Packed() && a.wordVocab[32][name]
}

// KnowsFor reports whether name resolves for every record a line with the
// given SubType filter can match. Schema fields resolve for plain rows and
// aggregate words alike; aggregate fields only resolve on lines restricted
// to a word kind wide enough to carry them.
func (a *Adapter) KnowsFor(lineSubType, name string) bool {
	if _, ok := a.vocab[name]; ok {
		return true
	}
	if !a.Packed() {
		return false
	}
	bits := a.schema.Words.BitsFor(lineSubType)
	return bits > 0 && a.wordVocab[bits][name]
}

// Subtype derives the subtype tag of r.
func (a *Adapter) Subtype(r types.Record) string {
	return a.schema.Subtype.Of(r)
}

// Render substitutes every known placeholder of text from r.
func (a *Adapter) Render(r types.Record, text string) string {
	return Substitute(text, a.resolver(r))
}

// =============================================================================
// INPUT DIRECTION
// =============================================================================

// RenderAllForInput renders every record of the adapter's dataset against
// the group's data lines of this Type, in record order then line order.
// Each emitted line is terminated by "\n". A missing dataset yields "".
func (a *Adapter) RenderAllForInput(group *types.Group, separator string) string {
	if group == nil {
		return ""
	}

	var lines []types.TemplateLine
	for _, line := range group.Data {
		if line.Type == a.schema.Type {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return ""
	}

	rows, ok := a.rows()
	if !ok {
		return ""
	}

	var out strings.Builder
	visited := 0
	for i := 0; i < len(rows); {
		if a.limit > 0 && visited >= a.limit {
			break
		}
		row := rows[i]

		if w := a.schema.Words; w != nil {
			kind := w.KindOf(row)
			if bits := w.BitsFor(kind); bits > 0 {
				if w.AddressOf(row) == "" {
					// Continuation row without a leading address row.
					a.logger.Debug("skipping packed-word row without address", zap.Int("row", i))
					i++
					continue
				}
				agg, consumed := w.Unpack(rows, i, kind)
				resolve := a.wordResolver(agg, bits, w.LeadRow(rows, i, consumed))
				a.emit(&out, lines, kind, resolve, separator, agg.Text(AddressField))
				i += consumed
				visited++
				continue
			}
		}

		a.emit(&out, lines, a.Subtype(row), a.resolver(row), separator, a.indexOf(row))
		i++
		visited++
	}

	return out.String()
}

// emit appends every line accepted by subtype and rule for one record.
func (a *Adapter) emit(out *strings.Builder, lines []types.TemplateLine, subtype string, resolve Resolver, separator, index string) {
	for _, line := range lines {
		if !SubtypeMatches(line.SubType, subtype) {
			continue
		}
		if !a.passes(line, resolve, index) {
			continue
		}
		out.WriteString(Substitute(line.Joined(separator), resolve))
		out.WriteByte('\n')
	}
}

// =============================================================================
// OUTPUT DIRECTION
// =============================================================================

// RenderOneLineAcrossRecords renders raw, the pre-joined text of line, once
// per record accepted by the line's subtype and rule. With firstOnly the
// first accepted record is the only one emitted. Packed-word adapters cannot
// be driven from the template side and yield "".
func (a *Adapter) RenderOneLineAcrossRecords(line types.TemplateLine, raw string, firstOnly bool) string {
	if line.Type != a.schema.Type {
		return ""
	}
	if a.Packed() {
		a.logger.Warn("packed-word adapter requires the Input grouping, line dropped",
			zap.Int("template_row", line.Row),
			zap.Error(errs.Wrap(errs.SoftFail, a.schema.Type, "render", errs.ErrUnsupportedGrouping)))
		return ""
	}

	rows, ok := a.rows()
	if !ok {
		return ""
	}

	var out strings.Builder
	for i, row := range rows {
		if a.limit > 0 && i >= a.limit {
			break
		}
		if !SubtypeMatches(line.SubType, a.Subtype(row)) {
			continue
		}
		resolve := a.resolver(row)
		if !a.passes(line, resolve, a.indexOf(row)) {
			continue
		}
		out.WriteString(Substitute(raw, resolve))
		out.WriteByte('\n')
		if firstOnly {
			break
		}
	}

	return out.String()
}

// =============================================================================
// RESOLUTION
// =============================================================================

// rows fetches the adapter's dataset. Absence is a soft failure.
func (a *Adapter) rows() ([]types.Record, bool) {
	if a.source == nil {
		a.logger.Debug("no row source, adapter contributes no output")
		return nil, false
	}
	rows, ok := a.source.Rows(a.schema.Dataset)
	if !ok {
		a.logger.Debug("dataset missing, adapter contributes no output",
			zap.String("dataset", a.schema.Dataset),
			zap.Error(errs.ErrDatasetMissing))
	}
	return rows, ok
}

// resolver returns the placeholder resolution of one record. Rendered values
// are memoized for the lifetime of the returned function only.
func (a *Adapter) resolver(r types.Record) Resolver {
	memo := make(map[string]string)
	return func(name string) (string, bool) {
		if v, ok := memo[name]; ok {
			return v, true
		}
		b, ok := a.vocab[name]
		if !ok {
			return "", false
		}
		var v string
		if b.join != nil {
			v = a.resolveJoin(r, *b.join)
		} else {
			v = b.format.Apply(r.Get(b.field))
		}
		memo[name] = v
		return v, true
	}
}

// wordResolver resolves the aggregate fields of a bits-wide word. Any other
// name falls back to the schema fields of the run's lead row.
func (a *Adapter) wordResolver(agg types.Record, bits int, lead types.Record) Resolver {
	names := a.wordVocab[bits]
	fallback := a.resolver(lead)
	return func(name string) (string, bool) {
		if names[name] {
			return agg.Text(name), true
		}
		return fallback(name)
	}
}

// resolveJoin looks up the record referenced by j.Field. A blank reference
// renders as ""; an unresolvable one renders as "" and is logged.
func (a *Adapter) resolveJoin(r types.Record, j Join) string {
	local := r.Get(j.Field)
	if local.IsBlank() {
		return ""
	}

	index, ok := asInt(local)
	if !ok {
		a.logger.Warn("cross reference is not an index",
			zap.String("index", a.indexOf(r)),
			zap.String("field", j.Field),
			zap.String("value", local.Text()))
		return ""
	}

	if a.source != nil {
		if target, found := a.source.Lookup(j.Dataset, index); found {
			return target.Text(j.Take)
		}
	}

	a.logger.Warn("cross-dataset lookup failed",
		zap.String("index", a.indexOf(r)),
		zap.String("dataset", j.Dataset),
		zap.Int64("reference", index),
		zap.Error(errs.ErrLookupFailed))
	return ""
}

// passes evaluates the line's rule for one record. A blank rule passes;
// an evaluation error suppresses the line.
func (a *Adapter) passes(line types.TemplateLine, resolve Resolver, index string) bool {
	if strings.TrimSpace(line.Rule) == "" {
		return true
	}
	predicate := Substitute(line.Rule, resolve)

	if a.gate == nil {
		a.logger.Warn("no rule gate configured, line suppressed",
			zap.String("index", index),
			zap.String("rule", predicate))
		return false
	}

	ok, err := a.gate.Evaluate(predicate)
	if err != nil {
		a.logger.Warn("rule evaluation failed, line suppressed",
			zap.String("index", index),
			zap.String("rule", predicate),
			zap.Int("template_row", line.Row),
			zap.Error(errs.Wrap(errs.SoftSkip, a.schema.Type, "rule", fmt.Errorf("%w: %v", errs.ErrRuleFailed, err))))
		return false
	}
	return ok
}

// indexOf returns the record's index text for diagnostics.
func (a *Adapter) indexOf(r types.Record) string {
	return r.Text(a.schema.IndexField)
}
