package repository

import (
	"context"
	"fmt"

	"perfreport/internal/domain"

	"github.com/jackc/pgx/v5"
)

// ListCRMRecords returns a batch in upload order. Report row order and
// first-match mapping depend on it.
func (r *Repository) ListCRMRecords(ctx context.Context, uploadID int64) ([]domain.CRMRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT
			id,
			upload_id,
			project_id,
			status,
			phase,
			company_name,
			department,
			project_name,
			project_manager,
			pm,
			order_amount_gross,
			order_amount_net,
			unit,
			contract_start_date,
			contract_end_date,
			billing_method,
			high_potential_mark
		FROM crm_projects_raw
		WHERE upload_id = $1
		ORDER BY id ASC
	`, uploadID)
	if err != nil {
		return nil, fmt.Errorf("list crm records: %w", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CRMRecord, error) {
		var rec domain.CRMRecord
		err := row.Scan(
			&rec.ID,
			&rec.UploadID,
			&rec.ProjectID,
			&rec.Status,
			&rec.Phase,
			&rec.CompanyName,
			&rec.Department,
			&rec.ProjectName,
			&rec.ProjectManager,
			&rec.PM,
			&rec.OrderAmountGross,
			&rec.OrderAmountNet,
			&rec.Unit,
			&rec.ContractStartDate,
			&rec.ContractEndDate,
			&rec.BillingCount,
			&rec.HighPotential,
		)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan crm records: %w", err)
	}
	return records, nil
}

func (r *Repository) ListERPRecords(ctx context.Context, uploadID int64) ([]domain.ERPRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT
			id,
			upload_id,
			job_no,
			client_code,
			client_name,
			project_name,
			sales_amount,
			operating_profit,
			sales_date,
			progress_status
		FROM erp_sales_raw
		WHERE upload_id = $1
		ORDER BY id ASC
	`, uploadID)
	if err != nil {
		return nil, fmt.Errorf("list erp records: %w", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ERPRecord, error) {
		var rec domain.ERPRecord
		err := row.Scan(
			&rec.ID,
			&rec.UploadID,
			&rec.JobNo,
			&rec.ClientCode,
			&rec.ClientName,
			&rec.ProjectName,
			&rec.SalesAmount,
			&rec.OperatingProfit,
			&rec.SalesDate,
			&rec.ProgressStatus,
		)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan erp records: %w", err)
	}
	return records, nil
}

func (r *Repository) ListMappingRecords(ctx context.Context, uploadID int64) ([]domain.MappingRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, upload_id, customer_name, department_name, parent_code, project_name
		FROM data_code_raw
		WHERE upload_id = $1
		ORDER BY id ASC
	`, uploadID)
	if err != nil {
		return nil, fmt.Errorf("list mapping records: %w", err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.MappingRecord])
	if err != nil {
		return nil, fmt.Errorf("scan mapping records: %w", err)
	}
	return records, nil
}
