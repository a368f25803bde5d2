package render

import (
	"fmt"

	"github.com/ginjaninja78/plc-text-generator/internal/config"
	"github.com/ginjaninja78/plc-text-generator/internal/types"
)

// Field is one placeholder-bearing field of a schema.
type Field struct {
	Name    string
	Kind    types.ValueKind
	Formats []Format
}

// Join exposes the Take field of the Dataset record whose index equals the
// local Field as placeholder As.
type Join struct {
	Field   string
	Dataset string
	Take    string
	As      string
}

// Schema is the resolved description of one adapter.
type Schema struct {
	// Type is the key matched against TemplateLine.Type.
	Type string

	// Dataset is the Row Source key of the schema's records.
	Dataset string

	// IndexField identifies a record in logs and lookups.
	IndexField string

	Fields  []Field
	Subtype Subtype
	Joins   []Join

	// Words is non-nil for schemas holding packed-word rows.
	Words *WordUnpacker
}

// SchemaFromConfig resolves a schema table entry. Format directives and the
// subtype strategy are parsed here once.
func SchemaFromConfig(c config.SchemaConfig) (Schema, error) {
	schema := Schema{
		Type:       c.Type,
		Dataset:    c.Dataset,
		IndexField: c.IndexField,
	}
	if schema.Dataset == "" {
		schema.Dataset = c.Type
	}
	if schema.IndexField == "" {
		schema.IndexField = "Index"
	}

	for _, fc := range c.Fields {
		kind, ok := types.ParseValueKind(fc.Kind)
		if !ok {
			return Schema{}, fmt.Errorf("schema %s: field %s: unknown kind %q", c.Type, fc.Name, fc.Kind)
		}
		field := Field{Name: fc.Name, Kind: kind}
		directives := fc.Formats
		if len(directives) == 0 {
			directives = []string{""}
		}
		for _, directive := range directives {
			format, err := ParseFormat(directive)
			if err != nil {
				return Schema{}, fmt.Errorf("schema %s: field %s: %w", c.Type, fc.Name, err)
			}
			field.Formats = append(field.Formats, format)
		}
		schema.Fields = append(schema.Fields, field)
	}

	kind, err := ParseSubtypeKind(c.Subtype.Kind)
	if err != nil {
		return Schema{}, fmt.Errorf("schema %s: %w", c.Type, err)
	}
	schema.Subtype = Subtype{
		Kind:    kind,
		Field:   c.Subtype.Field,
		Fields:  append([]string(nil), c.Subtype.Fields...),
		Literal: c.Subtype.Literal,
	}

	for _, jc := range c.Joins {
		schema.Joins = append(schema.Joins, Join{Field: jc.Field, Dataset: jc.Dataset, Take: jc.Take, As: jc.As})
	}

	if w := c.Words; w != nil {
		schema.Words = &WordUnpacker{
			KindField:        w.KindField,
			AddressField:     w.AddressField,
			BitField:         w.BitField,
			TagField:         w.TagField,
			DescriptionField: w.DescriptionField,
			Int16Kind:        w.Int16Kind,
			Int32Kind:        w.Int32Kind,
		}
	}

	return schema, nil
}

// FieldKinds returns the declared kind of every field, for typed conversion
// of the schema's dataset.
func (s Schema) FieldKinds() map[string]types.ValueKind {
	kinds := make(map[string]types.ValueKind, len(s.Fields))
	for _, field := range s.Fields {
		kinds[field.Name] = field.Kind
	}
	return kinds
}
