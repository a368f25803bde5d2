// =============================================================================
// PLC Text Generator - XLSX Template Parser
// =============================================================================
//
// This module parses template workbooks. Every worksheet describes one output
// sheet as a sequence of directive rows that build the group tree:
//
//   | Column A  | Column B      | Column C  | Column D      | Column E..       |
//   |-----------|---------------|-----------|---------------|------------------|
//   | Directive | Type/Argument | SubType   | Rule          | Items            |
//   | FILE      | OB35.awl      |           |               |                  |
//   | HEADER    | ORGANIZATION_BLOCK OB35   |               |                  |
//   | GROUP     | Output        |           |               |                  |
//   | DATA      | ALM_GEN       | USED_ANLG | {Index} > 0   | A {Tag}          |
//   | END       |               |           |               |                  |
//   | FOOTER    | END_ORGANIZATION_BLOCK    |               |                  |
//
// DIRECTIVES:
//   GROUP <strategy>   opens a child group (Input, Output or Singleton)
//   END                closes the innermost open group
//   GROUPBY <strategy> sets the strategy of the current group
//   HEADER / FOOTER    literal line; items start at column B
//   DATA or blank      template line of the given Type
//   FILE <name>        output file name of the sheet
//   IGNORE             the sheet is loaded but not written
//   # ...              comment row
//
// Worksheets whose name starts with "_" are ignored sheets.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/plc-text-generator/internal/errs"
	"github.com/ginjaninja78/plc-text-generator/internal/types"
)

// =============================================================================
// TEMPLATE COLUMN CONFIGURATION
// =============================================================================

// TemplateColumns defines which columns of a template sheet hold which part
// of a directive row. Column indices are 0-based (A=0, B=1, C=2, etc.)
type TemplateColumns struct {
	// DirectiveColumn holds the row directive.
	// Default: 0 (Column A)
	DirectiveColumn int

	// TypeColumn holds the line Type, or the directive argument.
	// Default: 1 (Column B)
	TypeColumn int

	// SubTypeColumn holds the optional SubType filter.
	// Default: 2 (Column C)
	SubTypeColumn int

	// RuleColumn holds the optional rule.
	// Default: 3 (Column D)
	RuleColumn int

	// ItemsStartColumn is the first item column of data lines.
	// Default: 4 (Column E)
	ItemsStartColumn int

	// DataStartRow is the first directive row (0-based); rows above it are
	// column titles.
	// Default: 1 (Row 2)
	DataStartRow int
}

// DefaultTemplateColumns returns the default column configuration.
func DefaultTemplateColumns() TemplateColumns {
	return TemplateColumns{
		DirectiveColumn:  0, // Column A
		TypeColumn:       1, // Column B
		SubTypeColumn:    2, // Column C
		RuleColumn:       3, // Column D
		ItemsStartColumn: 4, // Column E
		DataStartRow:     1, // Row 2
	}
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// ParseTemplate reads a template workbook.
//
// PARAMETERS:
//   - templatePath: The path to the XLSX template file.
//
// RETURNS:
//   - The Template with one Sheet per worksheet, in workbook order.
//   - An error if the file cannot be read or a sheet is malformed.
func ParseTemplate(templatePath string) (*types.Template, error) {
	return ParseTemplateWithConfig(templatePath, DefaultTemplateColumns())
}

// ParseTemplateWithConfig reads a template workbook using a custom column
// configuration.
func ParseTemplateWithConfig(templatePath string, columns TemplateColumns) (*types.Template, error) {
	f, err := excelize.OpenFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open template file: %w", err)
	}
	defer f.Close()

	tmpl := &types.Template{Source: templatePath}

	sheetNames := f.GetSheetList()
	if len(sheetNames) == 0 {
		return nil, fmt.Errorf("%w: template file has no sheets", errs.ErrInvalidTemplate)
	}

	for _, sheetName := range sheetNames {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return nil, fmt.Errorf("failed to read rows of sheet '%s': %w", sheetName, err)
		}

		sheet, err := parseSheet(sheetName, rows, columns)
		if err != nil {
			return nil, fmt.Errorf("error parsing sheet '%s': %w", sheetName, err)
		}
		tmpl.Sheets = append(tmpl.Sheets, sheet)
	}

	return tmpl, nil
}

// parseSheet builds one Sheet from its directive rows.
func parseSheet(name string, rows [][]string, columns TemplateColumns) (*types.Sheet, error) {
	sheet := &types.Sheet{
		Name:        name,
		IgnoreSheet: strings.HasPrefix(name, "_"),
		Root:        &types.Group{GroupBy: types.GroupByInput},
	}
	stack := []*types.Group{sheet.Root}

	for i := columns.DataStartRow; i < len(rows); i++ {
		row := rows[i]
		if len(row) == 0 || isRowEmpty(row) {
			continue
		}

		getCell := func(index int) string {
			if index < len(row) {
				return strings.TrimSpace(row[index])
			}
			return ""
		}

		directive, argument := splitDirective(getCell(columns.DirectiveColumn))
		if argument == "" {
			argument = getCell(columns.TypeColumn)
		}
		current := stack[len(stack)-1]

		switch {
		case strings.HasPrefix(directive, "#"):
			continue

		case directive == "" && getCell(columns.TypeColumn) == "":
			// Note row: text beside the template, no directive and no type.
			continue

		case directive == "GROUP":
			groupBy, ok := types.ParseGroupBy(argument)
			if !ok {
				return nil, fmt.Errorf("%w: row %d: unknown group strategy %q", errs.ErrInvalidTemplate, i+1, argument)
			}
			child := &types.Group{GroupBy: groupBy}
			current.Groups = append(current.Groups, child)
			stack = append(stack, child)

		case directive == "END":
			if len(stack) == 1 {
				return nil, fmt.Errorf("%w: row %d: END without GROUP", errs.ErrInvalidTemplate, i+1)
			}
			stack = stack[:len(stack)-1]

		case directive == "GROUPBY":
			groupBy, ok := types.ParseGroupBy(argument)
			if !ok {
				return nil, fmt.Errorf("%w: row %d: unknown group strategy %q", errs.ErrInvalidTemplate, i+1, argument)
			}
			current.GroupBy = groupBy

		case directive == "HEADER":
			current.Headers = append(current.Headers, types.Line{Items: items(row, columns.TypeColumn)})

		case directive == "FOOTER":
			current.Footers = append(current.Footers, types.Line{Items: items(row, columns.TypeColumn)})

		case directive == "FILE":
			sheet.FileName = argument

		case directive == "IGNORE":
			sheet.IgnoreSheet = true

		case directive == "DATA" || directive == "":
			typeKey := getCell(columns.TypeColumn)
			if typeKey == "" {
				column, _ := excelize.ColumnNumberToName(columns.TypeColumn + 1)
				return nil, fmt.Errorf("%w: row %d: DATA line without type in column %s", errs.ErrInvalidTemplate, i+1, column)
			}
			current.Data = append(current.Data, types.TemplateLine{
				Type:    typeKey,
				SubType: getCell(columns.SubTypeColumn),
				Rule:    getCell(columns.RuleColumn),
				Items:   items(row, columns.ItemsStartColumn),
				Row:     i + 1,
			})

		default:
			return nil, fmt.Errorf("%w: row %d: unknown directive %q", errs.ErrInvalidTemplate, i+1, directive)
		}
	}

	if len(stack) != 1 {
		return nil, fmt.Errorf("%w: %d GROUP directive(s) without END", errs.ErrInvalidTemplate, len(stack)-1)
	}

	return sheet, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// splitDirective splits "GROUP Output" into ("GROUP", "Output").
func splitDirective(cell string) (string, string) {
	if strings.HasPrefix(cell, "#") {
		return "#", ""
	}
	fields := strings.Fields(cell)
	if len(fields) == 0 {
		return "", ""
	}
	return strings.ToUpper(fields[0]), strings.Join(fields[1:], " ")
}

// items returns the cells from start on. Item text is kept untrimmed since
// leading blanks are indentation of the generated listing.
func items(row []string, start int) []string {
	if start >= len(row) {
		return nil
	}
	return append([]string(nil), row[start:]...)
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
