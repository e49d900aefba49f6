package excel

import (
	"bytes"
	"encoding/json"
	"testing"

	"perfreport/internal/report"

	"github.com/xuri/excelize/v2"
)

func TestWriteReport(t *testing.T) {
	row := report.ProjectSummaryRow{ParentCode: "P-1", ClientName: "Acme", ProjectName: "Alpha", Rank: report.RankSA, ProjectCode: "0000123"}
	row.Add(0, 1500)
	snapshot, err := json.Marshal([]report.ProjectSummaryRow{row})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteReport(&buf, snapshot); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(reportSheet)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d", len(rows))
	}
	columns := report.Columns()
	for i, col := range columns {
		if rows[0][i] != col {
			t.Fatalf("header %d = %q, want %q", i, rows[0][i], col)
		}
	}
	if rows[1][4] != "0000123" || rows[1][5] != "1500" {
		t.Fatalf("unexpected data row: %v", rows[1])
	}
}

func TestWriteReportExtraColumns(t *testing.T) {
	snapshot := json.RawMessage(`[{"案件コード":"1","備考":"note","純売上額":3}]`)
	var buf bytes.Buffer
	if err := WriteReport(&buf, snapshot); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, _ := f.GetRows(reportSheet)
	header := rows[0]
	if header[len(header)-1] != "備考" {
		t.Fatalf("extra column should be last, header = %v", header)
	}
}

func TestWriteReportRejectsBadSnapshot(t *testing.T) {
	if err := WriteReport(&bytes.Buffer{}, json.RawMessage(`{"not":"a list"}`)); err == nil {
		t.Fatal("expected decode error")
	}
}
