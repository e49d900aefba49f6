package excel

import (
	"fmt"
	"io"

	"perfreport/internal/domain"
)

// ParseCRM reads a CRM project export. Rows without a project number are
// ignored; a malformed number or amount fails the whole file.
func ParseCRM(fileName string, reader io.Reader) ([]domain.CRMRecord, error) {
	rows, lines, err := tableFor(crmSchema, fileName, reader)
	if err != nil {
		return nil, err
	}
	return buildCRM(rows, lines, "row")
}

// CRMFromRecords normalizes a JSON CRM upload keyed by spreadsheet labels.
func CRMFromRecords(records []map[string]any) ([]domain.CRMRecord, error) {
	rows, lines := crmSchema.recordFields(records)
	return buildCRM(rows, lines, "record")
}

func ParseERP(fileName string, reader io.Reader) ([]domain.ERPRecord, error) {
	rows, lines, err := tableFor(erpSchema, fileName, reader)
	if err != nil {
		return nil, err
	}
	return buildERP(rows, lines, "row")
}

func ERPFromRecords(records []map[string]any) ([]domain.ERPRecord, error) {
	rows, lines := erpSchema.recordFields(records)
	return buildERP(rows, lines, "record")
}

func ParseMappings(fileName string, reader io.Reader) ([]domain.MappingRecord, error) {
	rows, _, err := tableFor(mappingSchema, fileName, reader)
	if err != nil {
		return nil, err
	}
	return buildMappings(rows), nil
}

func MappingsFromRecords(records []map[string]any) ([]domain.MappingRecord, error) {
	rows, _ := mappingSchema.recordFields(records)
	return buildMappings(rows), nil
}

func tableFor(s schema, fileName string, reader io.Reader) ([]fields, []int, error) {
	table, err := readTable(fileName, reader)
	if err != nil {
		return nil, nil, err
	}
	return s.tableFields(table)
}

func buildCRM(rows []fields, lines []int, unit string) ([]domain.CRMRecord, error) {
	result := make([]domain.CRMRecord, 0, len(rows))
	for i, row := range rows {
		rawID := row.get("project_id")
		if rawID == "" {
			continue
		}
		id, err := parseWholeNumber(rawID)
		if err != nil {
			return nil, fmt.Errorf("%s %d invalid No: %w", unit, lines[i], err)
		}
		gross, err := parseAmount(row.get("order_amount_gross"))
		if err != nil {
			return nil, fmt.Errorf("%s %d invalid order_amount_gross: %w", unit, lines[i], err)
		}
		net, err := parseAmount(row.get("order_amount_net"))
		if err != nil {
			return nil, fmt.Errorf("%s %d invalid order_amount_net: %w", unit, lines[i], err)
		}
		billing, err := parseBillingCount(row.get("billing_method"))
		if err != nil {
			return nil, fmt.Errorf("%s %d invalid billing_method: %w", unit, lines[i], err)
		}

		result = append(result, domain.CRMRecord{
			ProjectID:         id,
			Status:            row.get("status"),
			Phase:             row.get("phase"),
			CompanyName:       row.get("company_name"),
			Department:        row.get("department"),
			ProjectName:       row.get("project_name"),
			ProjectManager:    row.get("project_manager"),
			PM:                row.get("pm"),
			OrderAmountGross:  gross,
			OrderAmountNet:    net,
			Unit:              row.get("unit"),
			ContractStartDate: parseDate(row.get("contract_start_date")),
			ContractEndDate:   parseDate(row.get("contract_end_date")),
			BillingCount:      billing,
			HighPotential:     parseHighPotential(row.get("high_potential_mark")),
		})
	}
	return result, nil
}

func buildERP(rows []fields, lines []int, unit string) ([]domain.ERPRecord, error) {
	result := make([]domain.ERPRecord, 0, len(rows))
	for i, row := range rows {
		jobNo := normalizeCode(row.get("job_no"))
		if jobNo == "" {
			continue
		}
		sales, err := parseAmount(row.get("sales_amount"))
		if err != nil {
			return nil, fmt.Errorf("%s %d invalid sales_amount: %w", unit, lines[i], err)
		}
		profit, err := parseAmount(row.get("operating_profit"))
		if err != nil {
			return nil, fmt.Errorf("%s %d invalid operating_profit: %w", unit, lines[i], err)
		}

		result = append(result, domain.ERPRecord{
			JobNo:           jobNo,
			ClientCode:      normalizeCode(row.get("client_code")),
			ClientName:      row.get("client_name"),
			ProjectName:     row.get("project_name"),
			SalesAmount:     sales,
			OperatingProfit: profit,
			SalesDate:       parseDate(row.get("sales_date")),
			ProgressStatus:  row.get("progress_status"),
		})
	}
	return result, nil
}

func buildMappings(rows []fields) []domain.MappingRecord {
	result := make([]domain.MappingRecord, 0, len(rows))
	for _, row := range rows {
		customer := row.get("customer_name")
		project := row.get("project_name")
		if customer == "" && project == "" {
			continue
		}
		result = append(result, domain.MappingRecord{
			CustomerName:   customer,
			DepartmentName: row.get("department_name"),
			ParentCode:     row.get("parent_code"),
			ProjectName:    project,
		})
	}
	return result
}
