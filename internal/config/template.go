// =============================================================================
// PLC Text Generator - YAML Template Loader
// =============================================================================
//
// Templates may be written in YAML instead of a workbook. The document mirrors
// the template model one to one:
//
//   sheets:
//     - name: OB35
//       file: OB35.awl
//       groupby: Input
//       headers:
//         - "ORGANIZATION_BLOCK OB35"
//       data:
//         - type: ALM_GEN
//           subtype: USED_ANLG
//           rule: "{Index} > 0"
//           items: ["A {Tag}", "= {Out}"]
//       groups:
//         - groupby: Singleton
//           data: [...]
//       footers:
//         - ["END_ORGANIZATION_BLOCK"]
//
// A header or footer line is either one string or a list of items.
//
// =============================================================================

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/plc-text-generator/internal/errs"
	"github.com/ginjaninja78/plc-text-generator/internal/types"
)

// yamlTemplate is the document root.
type yamlTemplate struct {
	Sheets []yamlSheet `yaml:"sheets"`
}

type yamlSheet struct {
	yamlGroup `yaml:",inline"`

	Name   string `yaml:"name"`
	File   string `yaml:"file"`
	Ignore bool   `yaml:"ignore"`
}

type yamlGroup struct {
	GroupBy string         `yaml:"groupby"`
	Headers []yamlLine     `yaml:"headers"`
	Data    []yamlDataLine `yaml:"data"`
	Groups  []yamlGroup    `yaml:"groups"`
	Footers []yamlLine     `yaml:"footers"`
}

type yamlDataLine struct {
	Type    string   `yaml:"type"`
	SubType string   `yaml:"subtype"`
	Rule    string   `yaml:"rule"`
	Items   []string `yaml:"items"`
}

// yamlLine accepts a scalar or a sequence of scalars.
type yamlLine []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *yamlLine) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*l = yamlLine{node.Value}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	default:
		return fmt.Errorf("line %d: header or footer must be a string or a list of strings", node.Line)
	}
}

// LoadTemplateYAML reads a YAML template file.
func LoadTemplateYAML(path string) (*types.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}

	tmpl, err := ParseTemplateYAML(data)
	if err != nil {
		return nil, err
	}
	tmpl.Source = path
	return tmpl, nil
}

// ParseTemplateYAML builds a Template from a YAML document.
func ParseTemplateYAML(data []byte) (*types.Template, error) {
	var doc yamlTemplate
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidTemplate, err)
	}

	tmpl := &types.Template{}
	for i, ys := range doc.Sheets {
		if ys.Name == "" {
			return nil, fmt.Errorf("%w: sheets[%d]: name is required", errs.ErrInvalidTemplate, i)
		}

		root, err := buildGroup(ys.yamlGroup)
		if err != nil {
			return nil, fmt.Errorf("%w: sheet %s: %v", errs.ErrInvalidTemplate, ys.Name, err)
		}

		tmpl.Sheets = append(tmpl.Sheets, &types.Sheet{
			Name:        ys.Name,
			FileName:    ys.File,
			IgnoreSheet: ys.Ignore || (len(ys.Name) > 0 && ys.Name[0] == '_'),
			Root:        root,
		})
	}

	return tmpl, nil
}

// buildGroup converts a YAML group and its children.
func buildGroup(yg yamlGroup) (*types.Group, error) {
	groupBy, ok := types.ParseGroupBy(yg.GroupBy)
	if !ok {
		return nil, fmt.Errorf("unknown group strategy %q", yg.GroupBy)
	}

	g := &types.Group{GroupBy: groupBy}
	for _, h := range yg.Headers {
		g.Headers = append(g.Headers, types.Line{Items: []string(h)})
	}
	for i, d := range yg.Data {
		if d.Type == "" {
			return nil, fmt.Errorf("data[%d]: type is required", i)
		}
		g.Data = append(g.Data, types.TemplateLine{
			Type:    d.Type,
			SubType: d.SubType,
			Rule:    d.Rule,
			Items:   d.Items,
			Row:     i + 1,
		})
	}
	for _, child := range yg.Groups {
		cg, err := buildGroup(child)
		if err != nil {
			return nil, err
		}
		g.Groups = append(g.Groups, cg)
	}
	for _, f := range yg.Footers {
		g.Footers = append(g.Footers, types.Line{Items: []string(f)})
	}

	return g, nil
}
