package excel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"perfreport/internal/report"

	"github.com/xuri/excelize/v2"
)

const reportSheet = "Report"

// WriteReport renders a stored report snapshot as a workbook. Known columns
// come first in report order; any extra keys follow alphabetically.
func WriteReport(w io.Writer, snapshot json.RawMessage) error {
	rows, err := decodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	columns := snapshotColumns(rows)

	file := excelize.NewFile()
	defer file.Close()
	if err := file.SetSheetName(file.GetSheetName(0), reportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	if err := file.SetSheetRow(reportSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for r, row := range rows {
		values := make([]any, len(columns))
		for c, col := range columns {
			values[c] = cellValue(row[col])
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := file.SetSheetRow(reportSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", r+1, err)
		}
	}

	if err := file.SetPanes(reportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if _, err := file.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func decodeSnapshot(snapshot json.RawMessage) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(snapshot))
	dec.UseNumber()
	var rows []map[string]any
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode report snapshot: %w", err)
	}
	return rows, nil
}

func snapshotColumns(rows []map[string]any) []string {
	columns := report.Columns()
	known := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		known[col] = struct{}{}
	}
	var extra []string
	for _, row := range rows {
		for key := range row {
			if _, ok := known[key]; ok {
				continue
			}
			known[key] = struct{}{}
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	return append(columns, extra...)
}

func cellValue(v any) any {
	switch value := v.(type) {
	case nil:
		return nil
	case json.Number:
		if f, err := value.Float64(); err == nil {
			return f
		}
		return value.String()
	case string, bool:
		return value
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprint(value)
		}
		return string(data)
	}
}
