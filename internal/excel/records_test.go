package excel

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/japanese"
)

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf
}

func TestParseCRMWorkbook(t *testing.T) {
	buf := workbook(t, [][]any{
		{"No", "ステータス", "フェーズ", "会社名", "案件名", "受注金額（ネット）", "契約開始日", "契約終了日", "請求方法(回数)", "見込みフラグ"},
		{"45", "進行中", "C_先方検討中", "Globex", "Migration", "1,200", "4/1/2024", "2025/3/31", "12", "〇"},
		{},
		{"46", "", "A", "Initech", "Audit", "-", "2024年10月1日", "", "", ""},
		{"", "注記", "", "", "", "", "", "", "", ""},
	})

	records, err := ParseCRM("crm.xlsx", buf)
	if err != nil {
		t.Fatalf("ParseCRM: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.ProjectID != 45 || first.Phase != "C_先方検討中" || first.CompanyName != "Globex" {
		t.Fatalf("unexpected first record: %+v", first)
	}
	if first.OrderAmountNet == nil || *first.OrderAmountNet != 1200 {
		t.Fatalf("net amount = %v", first.OrderAmountNet)
	}
	if first.ContractStartDate == nil || !first.ContractStartDate.Equal(time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start date = %v", first.ContractStartDate)
	}
	if first.ContractEndDate == nil || !first.ContractEndDate.Equal(time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("end date = %v", first.ContractEndDate)
	}
	if first.BillingCount == nil || *first.BillingCount != 12 || !first.HighPotential {
		t.Fatalf("billing/high potential = %v/%t", first.BillingCount, first.HighPotential)
	}

	second := records[1]
	if second.OrderAmountNet == nil || *second.OrderAmountNet != 0 {
		t.Fatalf("dash amount should be zero, got %v", second.OrderAmountNet)
	}
	if second.ContractStartDate == nil || second.ContractStartDate.Month() != time.October {
		t.Fatalf("japanese date = %v", second.ContractStartDate)
	}
	if second.ContractEndDate != nil || second.BillingCount != nil || second.HighPotential {
		t.Fatalf("blank cells should stay empty: %+v", second)
	}
}

func TestParseCRMRejectsBadAmount(t *testing.T) {
	buf := workbook(t, [][]any{
		{"No", "受注金額（ネット）"},
		{"1", "many"},
	})
	_, err := ParseCRM("crm.xlsx", buf)
	if err == nil || !strings.Contains(err.Error(), "row 2") {
		t.Fatalf("expected row 2 error, got %v", err)
	}
}

func TestParseCRMMissingRequiredColumn(t *testing.T) {
	buf := workbook(t, [][]any{{"会社名"}, {"Acme"}})
	if _, err := ParseCRM("crm.xlsx", buf); err == nil {
		t.Fatal("expected missing column error")
	}
}

func TestParseERPShiftJISCSV(t *testing.T) {
	csvText := "JOBNo.,クライアント名,案件名,売上計上日,売上金額,営業利益\r\n" +
		"123.0,株式会社テスト,保守,2024/05/10,\"￥1,000\",250\r\n" +
		"JOB-99,テスト,開発,not-a-date,N/A,-\r\n"
	encoded, err := japanese.ShiftJIS.NewEncoder().String(csvText)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	records, err := ParseERP("erp.csv", strings.NewReader(encoded))
	if err != nil {
		t.Fatalf("ParseERP: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].JobNo != "123" || records[0].ClientName != "株式会社テスト" {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if *records[0].SalesAmount != 1000 || *records[0].OperatingProfit != 250 {
		t.Fatalf("amounts = %v/%v", *records[0].SalesAmount, *records[0].OperatingProfit)
	}
	if records[1].SalesDate != nil {
		t.Fatalf("unparseable date should be nil, got %v", records[1].SalesDate)
	}
	if *records[1].SalesAmount != 0 || *records[1].OperatingProfit != 0 {
		t.Fatalf("placeholder amounts should be zero")
	}
}

func TestParseERPUTF8WithBOM(t *testing.T) {
	csvText := "\ufeffJOBNo.,案件名,売上計上日,営業利益\n0000123,保守,2024-06-01,10\n"
	records, err := ParseERP("erp.csv", strings.NewReader(csvText))
	if err != nil {
		t.Fatalf("ParseERP: %v", err)
	}
	if len(records) != 1 || records[0].JobNo != "0000123" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestParseMappingsUnknownExtension(t *testing.T) {
	buf := workbook(t, [][]any{
		{"顧客名", "部署名", "親コード", "案件名"},
		{"Acme", "営業", "P-1", "Alpha"},
	})
	records, err := ParseMappings("mapping.bin", buf)
	if err != nil {
		t.Fatalf("ParseMappings: %v", err)
	}
	if len(records) != 1 || records[0].ParentCode != "P-1" || records[0].ProjectName != "Alpha" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestFromRecords(t *testing.T) {
	var payload []map[string]any
	body := `[{"No": 7, "フェーズ": "A", "受注金額（ネット）": "3", "契約開始日": "2024/4/1", "契約終了日": "2024/6/30", "見込みフラグ": "◎"},
	          {"project_id": 8, "order_amount_net": 1.5, "high_potential_mark": true}]`
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	crm, err := CRMFromRecords(payload)
	if err != nil {
		t.Fatalf("CRMFromRecords: %v", err)
	}
	if len(crm) != 2 || crm[0].ProjectID != 7 || !crm[0].HighPotential || crm[1].ProjectID != 8 || !crm[1].HighPotential {
		t.Fatalf("unexpected records: %+v", crm)
	}
	if *crm[1].OrderAmountNet != 1.5 {
		t.Fatalf("net = %v", *crm[1].OrderAmountNet)
	}

	erp, err := ERPFromRecords([]map[string]any{{"JOBNo.": 123.0, "営業利益": "1,000"}})
	if err != nil {
		t.Fatalf("ERPFromRecords: %v", err)
	}
	if erp[0].JobNo != "123" || *erp[0].OperatingProfit != 1000 {
		t.Fatalf("unexpected erp record: %+v", erp[0])
	}

	mappings, _ := MappingsFromRecords([]map[string]any{{"顧客名": "Acme", "案件名": "Alpha", "親コード": nil}})
	if len(mappings) != 1 || mappings[0].ParentCode != "" {
		t.Fatalf("unexpected mappings: %+v", mappings)
	}
}
