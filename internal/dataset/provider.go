// =============================================================================
// PLC Text Generator - Row Source Provider
// =============================================================================
//
// The provider owns every dataset of a run. Datasets come from one workbook
// (one worksheet per dataset) or from a folder of <dataset>.csv files, and
// are materialized completely before rendering starts.
//
// Raw cell text is converted to typed Records on first access using the field
// kinds declared by the schemas reading the dataset. Fields nobody declares
// stay strings. A cell that does not parse as its declared kind becomes null
// and is logged; the row is kept.
//
// =============================================================================

package dataset

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ginjaninja78/plc-text-generator/internal/config"
	"github.com/ginjaninja78/plc-text-generator/internal/csvparser"
	"github.com/ginjaninja78/plc-text-generator/internal/errs"
	"github.com/ginjaninja78/plc-text-generator/internal/types"
	"github.com/ginjaninja78/plc-text-generator/internal/xlsxparser"
)

// DefaultIndexField is the lookup field of datasets no schema declares.
const DefaultIndexField = "Index"

// Table is one raw dataset.
type Table struct {
	Name    string
	Headers []string
	Rows    []map[string]string

	// Source is the file the table was read from.
	Source string
}

// dataset is the typed, indexed form of a Table.
type dataset struct {
	records []types.Record
	byIndex map[int64]int
}

// Provider serves datasets to adapters. It is safe for concurrent readers.
type Provider struct {
	mu sync.Mutex

	tables     map[string]*Table
	names      []string
	kinds      map[string]map[string]types.ValueKind
	indexField map[string]string
	typed      map[string]*dataset

	logger *zap.Logger
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads every dataset below path, which is either a workbook or a folder
// of CSV files.
//
// PARAMETERS:
//   - path: The data_path of the main configuration.
//   - settings: CSV settings used for folder sources.
//   - logger: Destination of conversion warnings; nil discards them.
//
// RETURNS:
//   - A Provider holding all datasets.
//   - A Fatal classified error if the source cannot be read.
func Load(path string, settings config.CSVSettings, logger *zap.Logger) (*Provider, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errs.Fatalf(errs.ErrDataNotFound, "%s", path)
	}

	var tables []*Table
	if info.IsDir() {
		tables, err = loadCSVFolder(path, settings)
	} else {
		tables, err = loadWorkbook(path)
	}
	if err != nil {
		return nil, errs.Wrap(errs.Fatal, "dataset", "load", err)
	}

	return NewProvider(tables, logger), nil
}

// loadCSVFolder reads <dataset>.csv files in name order.
func loadCSVFolder(dir string, settings config.CSVSettings) ([]*Table, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list data folder: %w", err)
	}

	var tables []*Table
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := csvparser.Parse(path, settings)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", entry.Name(), err)
		}
		tables = append(tables, &Table{
			Name:    strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())),
			Headers: data.Headers,
			Rows:    data.Rows,
			Source:  path,
		})
	}
	return tables, nil
}

// loadWorkbook reads one dataset per worksheet.
func loadWorkbook(path string) ([]*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
	default:
		return nil, fmt.Errorf("unsupported data source %s: expected a workbook or a folder", path)
	}

	sheets, err := xlsxparser.ReadTables(path)
	if err != nil {
		return nil, err
	}

	tables := make([]*Table, 0, len(sheets))
	for _, s := range sheets {
		tables = append(tables, &Table{Name: s.Name, Headers: s.Headers, Rows: s.Rows, Source: path})
	}
	return tables, nil
}

// NewProvider wraps already loaded tables. A later table with the name of an
// earlier one replaces it.
func NewProvider(tables []*Table, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Provider{
		tables:     make(map[string]*Table, len(tables)),
		kinds:      make(map[string]map[string]types.ValueKind),
		indexField: make(map[string]string),
		typed:      make(map[string]*dataset),
		logger:     logger,
	}
	for _, t := range tables {
		if _, exists := p.tables[t.Name]; !exists {
			p.names = append(p.names, t.Name)
		}
		p.tables[t.Name] = t
	}
	return p
}

// =============================================================================
// SCHEMA DECLARATIONS
// =============================================================================

// Declare registers the field kinds and index field a schema expects of a
// dataset. Declarations of several schemas merge; the first declared kind of
// a field wins. Declarations must precede the first Rows call of the dataset.
func (p *Provider) Declare(name, indexField string, kinds map[string]types.ValueKind) {
	p.mu.Lock()
	defer p.mu.Unlock()

	name = p.resolveName(name)

	merged, ok := p.kinds[name]
	if !ok {
		merged = make(map[string]types.ValueKind, len(kinds))
		p.kinds[name] = merged
	}
	for field, kind := range kinds {
		if existing, ok := merged[field]; ok && existing != kind {
			p.logger.Warn("conflicting field kinds, keeping the first",
				zap.String("dataset", name),
				zap.String("field", field),
				zap.String("kept", existing.String()),
				zap.String("ignored", kind.String()))
			continue
		}
		merged[field] = kind
	}

	if indexField != "" {
		if _, ok := p.indexField[name]; !ok {
			p.indexField[name] = indexField
		}
	}
}

// =============================================================================
// ROW SOURCE
// =============================================================================

// Names returns the dataset names in load order.
func (p *Provider) Names() []string {
	return append([]string(nil), p.names...)
}

// Table returns the raw form of a dataset.
func (p *Provider) Table(name string) (*Table, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.tables[p.resolveName(name)]
	return t, ok
}

// Rows returns the typed records of a dataset in source order.
func (p *Provider) Rows(name string) ([]types.Record, bool) {
	d, ok := p.dataset(name)
	if !ok {
		return nil, false
	}
	return d.records, true
}

// Lookup returns the record of a dataset whose index field equals index.
func (p *Provider) Lookup(name string, index int64) (types.Record, bool) {
	d, ok := p.dataset(name)
	if !ok {
		return nil, false
	}
	i, ok := d.byIndex[index]
	if !ok {
		return nil, false
	}
	return d.records[i], true
}

// dataset converts a table on first use.
func (p *Provider) dataset(name string) (*dataset, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	name = p.resolveName(name)
	if d, ok := p.typed[name]; ok {
		return d, true
	}
	t, ok := p.tables[name]
	if !ok {
		return nil, false
	}

	d := p.convert(t)
	p.typed[name] = d
	return d, true
}

// resolveName maps name to a loaded table name, ignoring case when there is
// no exact match. Caller holds p.mu or the name set is immutable.
func (p *Provider) resolveName(name string) string {
	if _, ok := p.tables[name]; ok {
		return name
	}
	for _, candidate := range p.names {
		if strings.EqualFold(candidate, name) {
			return candidate
		}
	}
	return name
}

// =============================================================================
// TYPED CONVERSION
// =============================================================================

// convert builds the typed records and the index of a table.
func (p *Provider) convert(t *Table) *dataset {
	kinds := p.kinds[t.Name]
	indexField := p.indexField[t.Name]
	if indexField == "" {
		indexField = DefaultIndexField
	}

	d := &dataset{
		records: make([]types.Record, 0, len(t.Rows)),
		byIndex: make(map[int64]int, len(t.Rows)),
	}

	for rowNum, raw := range t.Rows {
		record := make(types.Record, len(raw))
		for field, text := range raw {
			kind := kinds[field]
			value, ok := ConvertValue(text, kind)
			if !ok {
				p.logger.Warn("value does not match declared kind, using null",
					zap.String("dataset", t.Name),
					zap.Int("row", rowNum+1),
					zap.String("field", field),
					zap.String("kind", kind.String()),
					zap.String("value", text))
			}
			record[field] = value
		}

		if n, ok := parseInt(raw[indexField]); ok {
			if _, dup := d.byIndex[n]; dup {
				p.logger.Debug("duplicate index, lookups use the first row",
					zap.String("dataset", t.Name),
					zap.Int64("index", n))
			} else {
				d.byIndex[n] = len(d.records)
			}
		}

		d.records = append(d.records, record)
	}

	names := make([]string, 0, len(kinds))
	for field := range kinds {
		if !t.HasField(field) {
			names = append(names, field)
		}
	}
	if len(names) > 0 && len(t.Rows) > 0 {
		sort.Strings(names)
		p.logger.Debug("declared fields missing from dataset",
			zap.String("dataset", t.Name),
			zap.Strings("fields", names))
	}

	return d
}

// HasField reports whether field is a column of the table.
func (t *Table) HasField(field string) bool {
	for _, h := range t.Headers {
		if h == field {
			return true
		}
	}
	return false
}

// ConvertValue parses raw cell text as kind. Blank text is null for numeric
// kinds. The second result is false when non-blank text does not parse.
func ConvertValue(text string, kind types.ValueKind) (types.Value, bool) {
	trimmed := strings.TrimSpace(text)

	switch kind {
	case types.KindInt, types.KindNullInt:
		if trimmed == "" {
			return types.Value{Kind: kind}, true
		}
		n, ok := parseInt(trimmed)
		if !ok {
			return types.Value{Kind: kind}, false
		}
		if kind == types.KindInt {
			return types.IntValue(n), true
		}
		return types.NullInt(n, true), true

	case types.KindFloat:
		if trimmed == "" {
			return types.Value{Kind: types.KindFloat}, true
		}
		x, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			// Decimal comma from localized exports.
			x, err = strconv.ParseFloat(strings.Replace(trimmed, ",", ".", 1), 64)
		}
		if err != nil {
			return types.Value{Kind: types.KindFloat}, false
		}
		return types.FloatValue(x), true

	default:
		return types.StringValue(text), true
	}
}

// parseInt accepts integers and integral floats ("12", "12.0", "1e3").
func parseInt(text string) (int64, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n, true
	}
	x, err := strconv.ParseFloat(text, 64)
	if err != nil || x != math.Trunc(x) || math.Abs(x) > math.MaxInt64 {
		return 0, false
	}
	return int64(x), true
}
