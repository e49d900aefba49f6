package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"perfreport/internal/domain"
	"perfreport/internal/service"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap/zaptest"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func generateFixture(t *testing.T) generateOptions {
	t.Helper()
	dir := t.TempDir()
	return generateOptions{
		crmPath:      writeFile(t, dir, "crm.csv", "No,フェーズ,会社名,案件名\n5,E,Globex,Dormant\n"),
		erpPath:      writeFile(t, dir, "erp.csv", "JOBNo.,クライアント名,案件名,営業利益,売上計上日\n123,Acme,Alpha,\"1,000\",2024/05/10\n"),
		dataCodePath: writeFile(t, dir, "codes.csv", "顧客名,案件名,親コード\nAcme,Alpha,P-1\n"),
		month:        "May",
		year:         "2024",
	}
}

func TestRunGeneratePrintsJSON(t *testing.T) {
	opts := generateFixture(t)
	var out bytes.Buffer
	if err := runGenerate(opts, zaptest.NewLogger(t), &out); err != nil {
		t.Fatalf("runGenerate: %v", err)
	}

	var rows []map[string]any
	if err := json.Unmarshal(out.Bytes(), &rows); err != nil {
		t.Fatalf("decode output %q: %v", out.String(), err)
	}
	if len(rows) != 1 || rows[0]["案件コード"] != "0000123" || rows[0]["親コード"] != "P-1" || rows[0]["5月"] != 1000.0 {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestRunGenerateWritesWorkbook(t *testing.T) {
	opts := generateFixture(t)
	opts.xlsxPath = filepath.Join(t.TempDir(), "report.xlsx")
	var out bytes.Buffer
	if err := runGenerate(opts, zaptest.NewLogger(t), &out); err != nil {
		t.Fatalf("runGenerate: %v", err)
	}
	if !strings.Contains(out.String(), "wrote 1 projects") {
		t.Fatalf("unexpected summary %q", out.String())
	}

	f, err := excelize.OpenFile(opts.xlsxPath)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Report")
	if err != nil || len(rows) != 2 {
		t.Fatalf("GetRows = %v, %v", rows, err)
	}
}

func TestRunGenerateRejectsBadPeriod(t *testing.T) {
	opts := generateFixture(t)
	opts.month = "Smarch"
	if err := runGenerate(opts, zaptest.NewLogger(t), io.Discard); err == nil {
		t.Fatal("expected invalid month to fail")
	}
}

type recordingUploader struct {
	kind     service.UploadKind
	input    domain.UploadInput
	fileName string
	body     string
}

func (u *recordingUploader) UploadFile(_ context.Context, kind service.UploadKind, input domain.UploadInput, fileName string, r io.Reader) (service.UploadResult, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return service.UploadResult{}, err
	}
	u.kind, u.input, u.fileName, u.body = kind, input, fileName, string(body)
	return service.UploadResult{Upload: domain.Upload{UploadID: 9, UploadType: kind.Type()}, Records: 1}, nil
}

func TestRunImport(t *testing.T) {
	path := writeFile(t, t.TempDir(), "April CRM.csv", "No,案件名\n1,Alpha\n")
	up := &recordingUploader{}
	var out bytes.Buffer

	err := runImport(context.Background(), up, importOptions{kind: "CRM", file: path, month: "April", year: "2024"}, &out)
	if err != nil {
		t.Fatalf("runImport: %v", err)
	}
	if up.kind != service.KindCRM || up.fileName != "April CRM.csv" || up.input.Name != "April CRM" || up.input.Description != nil {
		t.Fatalf("unexpected upload: %+v", up)
	}
	if !strings.HasPrefix(up.body, "No,") {
		t.Fatalf("file body not forwarded: %q", up.body)
	}
	if out.String() != "stored CRM upload 9 (1 records)\n" {
		t.Fatalf("unexpected output %q", out.String())
	}

	if err := runImport(context.Background(), up, importOptions{kind: "ledger", file: path}, io.Discard); err == nil {
		t.Fatal("expected unknown kind to fail")
	}
}

func TestGenerateRequiresFlags(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"generate", "--crm", "x.csv"})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "required flag") {
		t.Fatalf("expected missing flag error, got %v", err)
	}
}
