package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/plc-text-generator/internal/errs"
	"github.com/ginjaninja78/plc-text-generator/internal/types"
)

const minimalConfig = `
template_path: template.xlsx
data_path: data
schemas:
  - type: ALM_GEN
    dataset: Alarms
    fields:
      - {name: Index, kind: int, formats: ["", "000"]}
      - {name: Tag}
    subtype:
      kind: conditional
      field: Address
      literal: USED_ANLG
  - type: WORDS
    words: {}
`

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalConfig), "/project")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/project", "template.xlsx"), cfg.TemplatePath)
	assert.Equal(t, filepath.Join("/project", "data"), cfg.DataPath)
	assert.Equal(t, filepath.Join("/project", "output"), cfg.OutputDir)
	assert.Equal(t, filepath.Join("/project", "output", "backup"), cfg.BackupDir)
	assert.Equal(t, ".txt", cfg.OutputExtension)
	assert.Equal(t, "UTF-8", cfg.Encoding)
	assert.Equal(t, "lf", cfg.LineEnding)
	assert.Equal(t, " ", cfg.Separator)
	assert.Equal(t, 10, cfg.SampleLimit)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, CSVSettings{Delimiter: ",", Encoding: "UTF-8", HeaderRows: 1}, cfg.CSV)

	require.Len(t, cfg.Schemas, 2)
	alarms := cfg.Schemas[0]
	assert.Equal(t, "Alarms", alarms.Dataset)
	assert.Equal(t, "Index", alarms.IndexField)
	assert.Equal(t, []string{""}, alarms.Fields[1].Formats)

	words, ok := cfg.Schema("WORDS")
	require.True(t, ok)
	assert.Equal(t, "WORDS", words.Dataset)
	assert.Equal(t, "blank", words.Subtype.Kind)
	assert.Equal(t, &WordsConfig{
		KindField:        "DataType",
		AddressField:     "Address",
		BitField:         "BitAddr",
		TagField:         "Tag",
		DescriptionField: "Description",
		Int16Kind:        "INT_B",
		Int32Kind:        "DINT_B",
	}, words.Words)

	_, ok = cfg.Schema("NOPE")
	assert.False(t, ok)
}

func TestParseOutputExtension(t *testing.T) {
	cfg, err := Parse([]byte("template_path: t.xlsx\ndata_path: d\noutput_extension: awl\n"), "")
	require.NoError(t, err)
	assert.Equal(t, ".awl", cfg.OutputExtension)
	assert.Equal(t, "t.xlsx", cfg.TemplatePath)
}

func TestParseExplicitEmptySeparator(t *testing.T) {
	cfg, err := Parse([]byte("template_path: t.xlsx\ndata_path: d\nseparator: \"\"\n"), "")
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Separator)

	cfg, err = Parse([]byte("template_path: t.xlsx\ndata_path: d\nseparator: \",\"\n"), "")
	require.NoError(t, err)
	assert.Equal(t, ",", cfg.Separator)
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing template", "data_path: d\n"},
		{"missing data", "template_path: t\n"},
		{"bad line ending", "template_path: t\ndata_path: d\nline_ending: cr\n"},
		{"schema without type", "template_path: t\ndata_path: d\nschemas: [{dataset: x}]\n"},
		{"duplicate type", "template_path: t\ndata_path: d\nschemas: [{type: A}, {type: A}]\n"},
		{"unknown kind", "template_path: t\ndata_path: d\nschemas: [{type: A, fields: [{name: X, kind: money}]}]\n"},
		{"bad format", "template_path: t\ndata_path: d\nschemas: [{type: A, fields: [{name: X, formats: ['0.0']}]}]\n"},
		{"fixed without field", "template_path: t\ndata_path: d\nschemas: [{type: A, subtype: {kind: fixed}}]\n"},
		{"composed one field", "template_path: t\ndata_path: d\nschemas: [{type: A, subtype: {kind: composed, fields: [X]}}]\n"},
		{"unknown subtype", "template_path: t\ndata_path: d\nschemas: [{type: A, subtype: {kind: regex}}]\n"},
		{"incomplete join", "template_path: t\ndata_path: d\nschemas: [{type: A, joins: [{field: X}]}]\n"},
		{"not yaml", "template_path: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), "")
			require.Error(t, err)
			assert.True(t, errors.Is(err, errs.ErrInvalidConfig))
			assert.True(t, errs.IsFatal(err))
		})
	}
}

func TestLoadMainConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "template.yaml"), []byte("sheets: []\n"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "data"), 0755))

	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("template_path: template.yaml\ndata_path: data\n"), 0644))

	cfg, err := LoadMainConfig(configPath)
	require.NoError(t, err)
	assert.DirExists(t, cfg.OutputDir)
	assert.DirExists(t, cfg.BackupDir)
}

func TestLoadMainConfigFatal(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadMainConfig(filepath.Join(dir, "missing.yaml"))
	assert.True(t, errors.Is(err, errs.ErrConfigNotFound))

	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("template_path: nope.xlsx\ndata_path: data\n"), 0644))
	_, err = LoadMainConfig(configPath)
	assert.True(t, errors.Is(err, errs.ErrTemplateNotFound))
	assert.True(t, errs.IsFatal(err))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "nope.xlsx"), nil, 0644))
	_, err = LoadMainConfig(configPath)
	assert.True(t, errors.Is(err, errs.ErrDataNotFound))
}

func TestParseTemplateYAML(t *testing.T) {
	doc := `
sheets:
  - name: OB35
    file: OB35.awl
    headers:
      - "ORGANIZATION_BLOCK OB35"
      - ["TITLE", "= {Project}"]
    data:
      - type: ALM_GEN
        subtype: USED_ANLG
        rule: "{Index} > 0"
        items: ["A {Tag}", "= {Out}"]
    groups:
      - groupby: Singleton
        data:
          - {type: TMR, items: ["{Tag}"]}
    footers:
      - END_ORGANIZATION_BLOCK
  - name: _Scratch
    data: [{type: TMR, items: ["{Tag}"]}]
`
	tmpl, err := ParseTemplateYAML([]byte(doc))
	require.NoError(t, err)
	require.Len(t, tmpl.Sheets, 2)

	sheet := tmpl.Sheets[0]
	assert.Equal(t, "OB35.awl", sheet.FileName)
	assert.False(t, sheet.IgnoreSheet)
	assert.Equal(t, types.GroupByInput, sheet.Root.GroupBy)
	assert.Equal(t, []types.Line{
		{Items: []string{"ORGANIZATION_BLOCK OB35"}},
		{Items: []string{"TITLE", "= {Project}"}},
	}, sheet.Root.Headers)
	assert.Equal(t, types.TemplateLine{
		Type: "ALM_GEN", SubType: "USED_ANLG", Rule: "{Index} > 0",
		Items: []string{"A {Tag}", "= {Out}"}, Row: 1,
	}, sheet.Root.Data[0])
	require.Len(t, sheet.Root.Groups, 1)
	assert.Equal(t, types.GroupBySingleton, sheet.Root.Groups[0].GroupBy)
	assert.Equal(t, []types.Line{{Items: []string{"END_ORGANIZATION_BLOCK"}}}, sheet.Root.Footers)

	assert.True(t, tmpl.Sheets[1].IgnoreSheet)
}

func TestParseTemplateYAMLErrors(t *testing.T) {
	for _, doc := range []string{
		"sheets: [{data: []}]",
		"sheets: [{name: A, groupby: Sideways}]",
		"sheets: [{name: A, data: [{items: [x]}]}]",
		"sheets: [{name: A, headers: [{a: b}]}]",
	} {
		_, err := ParseTemplateYAML([]byte(doc))
		require.Error(t, err, doc)
		assert.True(t, errors.Is(err, errs.ErrInvalidTemplate), doc)
	}
}
