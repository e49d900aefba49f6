package excel

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

// schema describes one upload kind: which header labels map to which
// canonical field, and which fields must be present.
type schema struct {
	kind     string
	aliases  map[string]string
	required []string
}

func newSchema(kind string, labels map[string][]string, required ...string) schema {
	aliases := make(map[string]string)
	for canonical, names := range labels {
		aliases[normalizeHeader(canonical)] = canonical
		for _, name := range names {
			aliases[normalizeHeader(name)] = canonical
		}
	}
	return schema{kind: kind, aliases: aliases, required: required}
}

var crmSchema = newSchema("crm", map[string][]string{
	"project_id":          {"No", "No.", "案件No"},
	"status":              {"ステータス"},
	"phase":               {"フェーズ"},
	"company_name":        {"会社名"},
	"department":          {"部署名"},
	"project_name":        {"案件名"},
	"project_manager":     {"PJ責任者"},
	"pm":                  {"PM"},
	"order_amount_gross":  {"受注金額（グロス）", "受注金額(グロス)"},
	"order_amount_net":    {"受注金額（ネット）", "受注金額(ネット)"},
	"contract_start_date": {"契約開始日"},
	"contract_end_date":   {"契約終了日"},
	"billing_method":      {"請求方法(回数)", "請求方法（回数）", "請求回数"},
	"unit":                {"ユニット"},
	"high_potential_mark": {"見込みフラグ"},
}, "project_id")

var erpSchema = newSchema("erp", map[string][]string{
	"job_no":           {"JOBNo.", "JOBNo", "JOB No."},
	"salesperson_code": {"営業担当者コード"},
	"client_code":      {"クライアントコード"},
	"client_name":      {"クライアント名"},
	"project_name":     {"案件名"},
	"sales_date":       {"売上計上日", "sales_posting_date"},
	"progress_status":  {"進捗", "progress"},
	"sales_amount":     {"売上金額"},
	"operating_profit": {"営業利益"},
}, "job_no")

var mappingSchema = newSchema("mapping", map[string][]string{
	"customer_name":   {"顧客名"},
	"department_name": {"部署名"},
	"parent_code":     {"親コード"},
	"project_name":    {"案件名"},
}, "customer_name", "project_name")

func (s schema) mapColumns(header []string) (map[string]int, error) {
	mapped := make(map[string]int)
	for idx, col := range header {
		normalized := normalizeHeader(col)
		if normalized == "" {
			continue
		}
		canonical, ok := s.aliases[normalized]
		if !ok {
			continue
		}
		if _, exists := mapped[canonical]; !exists {
			mapped[canonical] = idx
		}
	}
	for _, field := range s.required {
		if _, ok := mapped[field]; !ok {
			return nil, fmt.Errorf("missing required %s column: %s", s.kind, field)
		}
	}
	return mapped, nil
}

// fields is one source row keyed by canonical field name.
type fields map[string]string

func (f fields) get(key string) string {
	return strings.TrimSpace(f[key])
}

// tableFields converts data rows under a header into canonical fields,
// dropping rows with no content. The returned line numbers are 1-based
// spreadsheet rows for error messages.
func (s schema) tableFields(rows [][]string) ([]fields, []int, error) {
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("input file is empty")
	}
	colMap, err := s.mapColumns(rows[0])
	if err != nil {
		return nil, nil, err
	}
	out := make([]fields, 0, len(rows)-1)
	lines := make([]int, 0, len(rows)-1)
	for index := 1; index < len(rows); index++ {
		cells := rows[index]
		if isBlankRow(cells) {
			continue
		}
		row := make(fields, len(colMap))
		for canonical, idx := range colMap {
			row[canonical] = readCell(cells, idx)
		}
		out = append(out, row)
		lines = append(lines, index+1)
	}
	return out, lines, nil
}

// recordFields converts JSON upload records, keyed by any known label, into
// canonical fields.
func (s schema) recordFields(records []map[string]any) ([]fields, []int) {
	out := make([]fields, 0, len(records))
	lines := make([]int, 0, len(records))
	for i, record := range records {
		row := make(fields, len(record))
		for key, value := range record {
			canonical, ok := s.aliases[normalizeHeader(key)]
			if !ok {
				continue
			}
			if _, exists := row[canonical]; exists {
				continue
			}
			row[canonical] = stringify(value)
		}
		out = append(out, row)
		lines = append(lines, i+1)
	}
	return out, lines
}

func normalizeHeader(raw string) string {
	value := strings.TrimSpace(raw)
	value = strings.TrimPrefix(value, utf8BOM)
	value = width.Fold.String(value)
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, "_", " ")
	value = strings.Join(strings.Fields(value), " ")
	return value
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}
