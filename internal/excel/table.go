package excel

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

const utf8BOM = "\ufeff"

// readTable loads the first sheet of a workbook or a CSV file as raw rows.
// The extension picks the format; anything unknown is tried as a workbook and
// then as CSV.
func readTable(fileName string, reader io.Reader) ([][]string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("input file is empty")
	}

	switch strings.ToLower(strings.TrimSpace(filepath.Ext(fileName))) {
	case ".csv", ".txt":
		return parseCSVRows(data)
	case ".xlsx", ".xlsm", ".xltx":
		return parseExcelRows(data)
	default:
		if rows, err := parseExcelRows(data); err == nil {
			return rows, nil
		}
		rows, err := parseCSVRows(data)
		if err != nil {
			return nil, fmt.Errorf("unsupported or invalid file format: %w", err)
		}
		return rows, nil
	}
}

// parseCSVRows reads UTF-8 or Shift-JIS CSV. Input that is not valid UTF-8
// is decoded as Shift-JIS.
func parseCSVRows(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte(utf8BOM))

	var source io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		source = transform.NewReader(source, japanese.ShiftJIS.NewDecoder())
	}

	reader := csv.NewReader(source)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("csv file is empty")
	}
	return rows, nil
}

func parseExcelRows(data []byte) ([][]string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open excel file: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("excel file has no sheets")
	}

	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("excel file is empty")
	}
	return rows, nil
}

func readCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
