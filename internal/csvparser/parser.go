// =============================================================================
// PLC Text Generator - CSV Dataset Parser
// =============================================================================
//
// This module reads engineering datasets exported as CSV files, one file per
// dataset (Alarms.csv, Words.csv, ...). It handles:
//   - Different delimiters (comma, semicolon, pipe, tab)
//   - Multi-line headers, merged into one field name per column
//   - Legacy encodings (Windows-1252 exports from spreadsheet tools, UTF-16)
//   - Quoted fields with embedded delimiters
//
// Row order is preserved: packed-word rows rely on it.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/ginjaninja78/plc-text-generator/internal/config"
	"github.com/ginjaninja78/plc-text-generator/pkg/utils"
)

// =============================================================================
// CSV DATA STRUCTURE
// =============================================================================

// CSVData represents one parsed dataset file.
type CSVData struct {
	// Headers contains the field names in column order.
	// For multi-line headers, these are the merged headers.
	Headers []string

	// Rows contains the data rows as maps of header -> value.
	Rows []map[string]string

	// SourceFile is the path to the source CSV file.
	SourceFile string
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV dataset file.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: The CSV settings of the main configuration.
//
// RETURNS:
//   - A pointer to the CSVData struct containing the parsed data.
//   - An error if the file cannot be read, decoded or parsed.
//
// PARSING PROCESS:
//   1. Open the file and decode it from the configured encoding
//   2. Configure the CSV reader with the configured delimiter
//   3. Read and merge header rows
//   4. Convert each remaining non-empty row to a map of header -> value
func Parse(filePath string, settings config.CSVSettings) (*CSVData, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	decoded, err := utils.NewDecodingReader(bufio.NewReader(file), settings.Encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filePath, err)
	}

	csvReader := csv.NewReader(decoded)
	configureReader(csvReader, settings)

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	if len(allRows) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	headers, err := extractHeaders(allRows, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to extract headers: %w", err)
	}

	return &CSVData{
		Headers:    headers,
		Rows:       extractDataRows(allRows[settings.HeaderRows:], headers),
		SourceFile: filePath,
	}, nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	// Exports from spreadsheet tools are not always rectangular.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// extractHeaders extracts and merges headers from the CSV.
//
// MULTI-LINE HEADER HANDLING:
//   Non-empty values of a column are joined with a space.
//
//   Row 1: "Alarm", "", "Status", ""
//   Row 2: "Index", "Tag", "Index", "Class"
//   Result: "Alarm Index", "Tag", "Status Index", "Class"
func extractHeaders(allRows [][]string, settings config.CSVSettings) ([]string, error) {
	if settings.HeaderRows <= 0 {
		return nil, fmt.Errorf("header_rows must be at least 1")
	}

	if len(allRows) < settings.HeaderRows {
		return nil, fmt.Errorf("file has fewer rows than header_rows setting")
	}

	if settings.HeaderRows == 1 {
		return cleanHeaders(allRows[0]), nil
	}

	maxCols := 0
	for i := 0; i < settings.HeaderRows; i++ {
		if len(allRows[i]) > maxCols {
			maxCols = len(allRows[i])
		}
	}

	headers := make([]string, maxCols)
	for col := 0; col < maxCols; col++ {
		var parts []string
		for row := 0; row < settings.HeaderRows; row++ {
			if col < len(allRows[row]) {
				if value := strings.TrimSpace(allRows[row][col]); value != "" {
					parts = append(parts, value)
				}
			}
		}
		headers[col] = strings.Join(parts, " ")
	}

	return cleanHeaders(headers), nil
}

// cleanHeaders trims header values and names empty headers by position.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))

	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = header
	}

	return cleaned
}

// extractDataRows converts the data rows to maps, skipping empty rows.
// Missing trailing cells read as "".
func extractDataRows(rows [][]string, headers []string) []map[string]string {
	dataRows := make([]map[string]string, 0, len(rows))

	for _, row := range rows {
		if isRowEmpty(row) {
			continue
		}

		rowMap := make(map[string]string, len(headers))
		for colIndex, header := range headers {
			if colIndex < len(row) {
				rowMap[header] = strings.TrimSpace(row[colIndex])
			} else {
				rowMap[header] = ""
			}
		}

		dataRows = append(dataRows, rowMap)
	}

	return dataRows
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
