package xlsxparser

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/plc-text-generator/internal/errs"
	"github.com/ginjaninja78/plc-text-generator/internal/types"
)

// writeWorkbook saves a workbook with one worksheet per entry of sheets, in
// the given order.
func writeWorkbook(t *testing.T, order []string, sheets map[string][][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			cells := row
			require.NoError(t, f.SetSheetRow(name, fmt.Sprintf("A%d", r+1), &cells))
		}
	}

	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

var titleRow = []interface{}{"Directive", "Type", "SubType", "Rule", "Items"}

func TestParseTemplate(t *testing.T) {
	path := writeWorkbook(t, []string{"OB35", "_Notes"}, map[string][][]interface{}{
		"OB35": {
			titleRow,
			{"FILE", "OB35.awl"},
			{"# generated alarms block"},
			{"HEADER", "ORGANIZATION_BLOCK", "OB35"},
			{},
			{"DATA", "ALM_GEN", "", "", "  A {Tag}", "= {Out}"},
			{"", "TMR", "DI", "{Index} > 0", "L {Tag}"},
			{"GROUP Output"},
			{"HEADER", "NETWORK"},
			{"DATA", "ALM_GEN", "USED_ANLG", "", "CALL {Tag}"},
			{"GROUP", "Singleton"},
			{"DATA", "TMR", "", "", "// first timer {Tag}"},
			{"END"},
			{"FOOTER", "END_NETWORK"},
			{"END"},
			{"FOOTER", "END_ORGANIZATION_BLOCK"},
		},
		"_Notes": {
			titleRow,
			{"DATA", "ALM_GEN", "", "", "{Tag}"},
		},
	})

	tmpl, err := ParseTemplate(path)
	require.NoError(t, err)
	require.Len(t, tmpl.Sheets, 2)
	assert.Equal(t, path, tmpl.Source)

	sheet := tmpl.Sheets[0]
	assert.Equal(t, "OB35", sheet.Name)
	assert.Equal(t, "OB35.awl", sheet.FileName)
	assert.False(t, sheet.IgnoreSheet)

	root := sheet.Root
	assert.Equal(t, types.GroupByInput, root.GroupBy)
	assert.Equal(t, []types.Line{{Items: []string{"ORGANIZATION_BLOCK", "OB35"}}}, root.Headers)
	assert.Equal(t, []types.Line{{Items: []string{"END_ORGANIZATION_BLOCK"}}}, root.Footers)
	require.Len(t, root.Data, 2)
	assert.Equal(t, types.TemplateLine{Type: "ALM_GEN", Items: []string{"  A {Tag}", "= {Out}"}, Row: 6}, root.Data[0])
	assert.Equal(t, types.TemplateLine{Type: "TMR", SubType: "DI", Rule: "{Index} > 0", Items: []string{"L {Tag}"}, Row: 7}, root.Data[1])

	require.Len(t, root.Groups, 1)
	output := root.Groups[0]
	assert.Equal(t, types.GroupByOutput, output.GroupBy)
	assert.Equal(t, "USED_ANLG", output.Data[0].SubType)
	require.Len(t, output.Groups, 1)
	assert.Equal(t, types.GroupBySingleton, output.Groups[0].GroupBy)
	assert.Equal(t, []types.Line{{Items: []string{"END_NETWORK"}}}, output.Footers)

	assert.True(t, tmpl.Sheets[1].IgnoreSheet)
}

func TestParseTemplateGroupByAndIgnore(t *testing.T) {
	path := writeWorkbook(t, []string{"Globals"}, map[string][][]interface{}{
		"Globals": {
			titleRow,
			{"GROUPBY", "Singleton"},
			{"IGNORE"},
			{"DATA", "ALM_GEN", "", "", "{Tag}"},
		},
	})

	tmpl, err := ParseTemplate(path)
	require.NoError(t, err)
	assert.Equal(t, types.GroupBySingleton, tmpl.Sheets[0].Root.GroupBy)
	assert.True(t, tmpl.Sheets[0].IgnoreSheet)
}

func TestParseTemplateSkipsNoteRows(t *testing.T) {
	path := writeWorkbook(t, []string{"OB1"}, map[string][][]interface{}{
		"OB1": {
			titleRow,
			{"", "", "", "", "reviewed by commissioning"},
			{"DATA", "ALM_GEN", "", "", "{Tag}"},
		},
	})

	tmpl, err := ParseTemplate(path)
	require.NoError(t, err)
	root := tmpl.Sheets[0].Root
	require.Len(t, root.Data, 1)
	assert.Equal(t, 3, root.Data[0].Row)
}

func TestParseTemplateDataWithoutTypeNamesColumn(t *testing.T) {
	path := writeWorkbook(t, []string{"Bad"}, map[string][][]interface{}{
		"Bad": {titleRow, {"DATA", "", "", "", "{Tag}"}},
	})

	_, err := ParseTemplate(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrInvalidTemplate)
	assert.Contains(t, err.Error(), "row 2")
	assert.Contains(t, err.Error(), "column B")
}

func TestParseTemplateErrors(t *testing.T) {
	tests := []struct {
		name string
		rows [][]interface{}
	}{
		{"unclosed group", [][]interface{}{titleRow, {"GROUP", "Input"}}},
		{"end without group", [][]interface{}{titleRow, {"END"}}},
		{"unknown strategy", [][]interface{}{titleRow, {"GROUP", "Sideways"}}},
		{"unknown directive", [][]interface{}{titleRow, {"REPEAT", "ALM_GEN"}}},
		{"data without type", [][]interface{}{titleRow, {"DATA", "", "", "", "{Tag}"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeWorkbook(t, []string{"Bad"}, map[string][][]interface{}{"Bad": tt.rows})
			_, err := ParseTemplate(path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errs.ErrInvalidTemplate))
		})
	}

	_, err := ParseTemplate(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Error(t, err)
}

func TestReadTables(t *testing.T) {
	path := writeWorkbook(t, []string{"Alarms", "Words", "_Lists", "Empty"}, map[string][][]interface{}{
		"Alarms": {
			{"Index", "", "Tag"},
			{1, "x", "TT_101"},
			{},
			{2, "", " TT_102 "},
		},
		"Words": {
			{"DataType", "Address", "BitAddr", "Tag"},
			{"INT_B", "DB1.DBW0", "Bit00", "X1"},
		},
		"_Lists": {{"Kind"}, {"DI"}},
	})

	tables, err := ReadTables(path)
	require.NoError(t, err)
	require.Len(t, tables, 2)

	alarms := tables[0]
	assert.Equal(t, "Alarms", alarms.Name)
	assert.Equal(t, []string{"Index", "Column_2", "Tag"}, alarms.Headers)
	require.Len(t, alarms.Rows, 2)
	assert.Equal(t, map[string]string{"Index": "1", "Column_2": "x", "Tag": "TT_101"}, alarms.Rows[0])
	assert.Equal(t, "TT_102", alarms.Rows[1]["Tag"])
	assert.Equal(t, "", alarms.Rows[1]["Column_2"])

	assert.Equal(t, "Words", tables[1].Name)
	assert.Equal(t, "Bit00", tables[1].Rows[0]["BitAddr"])
}
