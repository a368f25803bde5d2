package xlsxparser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is one dataset worksheet: a header row of field names followed by
// data rows, in sheet order.
type Table struct {
	Name    string
	Headers []string
	Rows    []map[string]string
}

// ReadTables reads every non-empty worksheet of a dataset workbook.
// Worksheets whose name starts with "_" are skipped. Cell values are read
// raw so that numbers are not subject to the workbook's display format.
func ReadTables(workbookPath string) ([]*Table, error) {
	f, err := excelize.OpenFile(workbookPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open data workbook: %w", err)
	}
	defer f.Close()

	var tables []*Table
	for _, sheetName := range f.GetSheetList() {
		if strings.HasPrefix(sheetName, "_") {
			continue
		}

		rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read rows of sheet '%s': %w", sheetName, err)
		}
		if len(rows) == 0 {
			continue
		}

		tables = append(tables, buildTable(sheetName, rows))
	}

	return tables, nil
}

// buildTable maps rows[1:] onto the header row rows[0].
func buildTable(name string, rows [][]string) *Table {
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Column_%d", i+1)
		}
		headers[i] = h
	}

	table := &Table{Name: name, Headers: headers}
	for _, row := range rows[1:] {
		if isRowEmpty(row) {
			continue
		}
		record := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(row) {
				record[h] = strings.TrimSpace(row[i])
			} else {
				record[h] = ""
			}
		}
		table.Rows = append(table.Rows, record)
	}
	return table
}
