package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"perfreport/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

type ListFilter struct {
	Limit  int
	Offset int
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// CreateCRMUpload stores a CRM batch and its records in one transaction.
func (r *Repository) CreateCRMUpload(ctx context.Context, input domain.UploadInput, records []domain.CRMRecord) (domain.Upload, error) {
	return r.createUpload(ctx, domain.UploadTypeCRM, input, func(tx pgx.Tx, uploadID int64) error {
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"crm_projects_raw"},
			[]string{
				"upload_id",
				"project_id",
				"status",
				"phase",
				"company_name",
				"department",
				"project_name",
				"project_manager",
				"pm",
				"order_amount_gross",
				"order_amount_net",
				"unit",
				"contract_start_date",
				"contract_end_date",
				"billing_method",
				"high_potential_mark",
			},
			pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
				rec := records[i]
				return []any{
					uploadID,
					rec.ProjectID,
					rec.Status,
					rec.Phase,
					rec.CompanyName,
					rec.Department,
					rec.ProjectName,
					rec.ProjectManager,
					rec.PM,
					rec.OrderAmountGross,
					rec.OrderAmountNet,
					rec.Unit,
					rec.ContractStartDate,
					rec.ContractEndDate,
					rec.BillingCount,
					rec.HighPotential,
				}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copy crm records: %w", err)
		}
		return nil
	})
}

func (r *Repository) CreateERPUpload(ctx context.Context, input domain.UploadInput, records []domain.ERPRecord) (domain.Upload, error) {
	return r.createUpload(ctx, domain.UploadTypeERPSales, input, func(tx pgx.Tx, uploadID int64) error {
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"erp_sales_raw"},
			[]string{
				"upload_id",
				"job_no",
				"client_code",
				"client_name",
				"project_name",
				"sales_amount",
				"operating_profit",
				"sales_date",
				"progress_status",
			},
			pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
				rec := records[i]
				return []any{
					uploadID,
					rec.JobNo,
					rec.ClientCode,
					rec.ClientName,
					rec.ProjectName,
					rec.SalesAmount,
					rec.OperatingProfit,
					rec.SalesDate,
					rec.ProgressStatus,
				}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copy erp records: %w", err)
		}
		return nil
	})
}

func (r *Repository) CreateMappingUpload(ctx context.Context, input domain.UploadInput, records []domain.MappingRecord) (domain.Upload, error) {
	return r.createUpload(ctx, domain.UploadTypeDataCode, input, func(tx pgx.Tx, uploadID int64) error {
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"data_code_raw"},
			[]string{"upload_id", "customer_name", "department_name", "parent_code", "project_name"},
			pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
				rec := records[i]
				return []any{uploadID, rec.CustomerName, rec.DepartmentName, rec.ParentCode, rec.ProjectName}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copy mapping records: %w", err)
		}
		return nil
	})
}

func (r *Repository) createUpload(
	ctx context.Context,
	uploadType domain.UploadType,
	input domain.UploadInput,
	insertRecords func(tx pgx.Tx, uploadID int64) error,
) (domain.Upload, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Upload{}, fmt.Errorf("begin upload tx: %w", err)
	}
	defer tx.Rollback(ctx)

	upload, err := insertUploadTx(ctx, tx, uploadType, input)
	if err != nil {
		return domain.Upload{}, err
	}
	if err := insertRecords(tx, upload.UploadID); err != nil {
		return domain.Upload{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Upload{}, fmt.Errorf("commit upload tx: %w", err)
	}
	return upload, nil
}

func insertUploadTx(ctx context.Context, tx pgx.Tx, uploadType domain.UploadType, input domain.UploadInput) (domain.Upload, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO monthly_uploads (
			upload_type,
			file_name,
			name,
			month,
			year,
			description
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+uploadColumns,
		string(uploadType),
		input.FileName,
		input.Name,
		input.Month,
		input.Year,
		input.Description,
	)
	upload, err := scanUploadRow(row)
	if err != nil {
		return domain.Upload{}, fmt.Errorf("insert %s upload: %w", uploadType, err)
	}
	return upload, nil
}

const uploadColumns = `
	upload_id,
	upload_type,
	file_name,
	name,
	month,
	year,
	description,
	upload_timestamp
`

// ListUploads returns batches of one type, newest first.
func (r *Repository) ListUploads(ctx context.Context, uploadType domain.UploadType, filter ListFilter) ([]domain.Upload, error) {
	limit := normalizeLimit(filter.Limit)
	rows, err := r.pool.Query(ctx, `
		SELECT `+uploadColumns+`
		FROM monthly_uploads
		WHERE upload_type = $1
		ORDER BY upload_timestamp DESC, upload_id DESC
		LIMIT $2 OFFSET $3
	`, string(uploadType), limit, normalizeOffset(filter.Offset))
	if err != nil {
		return nil, fmt.Errorf("list %s uploads: %w", uploadType, err)
	}
	uploads, err := pgx.CollectRows(rows, scanUpload)
	if err != nil {
		return nil, fmt.Errorf("collect %s uploads: %w", uploadType, err)
	}
	return uploads, nil
}

func (r *Repository) GetUpload(ctx context.Context, id int64) (*domain.Upload, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+uploadColumns+`
		FROM monthly_uploads
		WHERE upload_id = $1
	`, id)
	upload, err := scanUploadRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get upload: %w", err)
	}
	return &upload, nil
}

// GetUploadsByIDs returns the batches that exist among ids, in id order.
func (r *Repository) GetUploadsByIDs(ctx context.Context, ids []int64) ([]domain.Upload, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+uploadColumns+`
		FROM monthly_uploads
		WHERE upload_id = ANY($1)
		ORDER BY upload_id ASC
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("get uploads by ids: %w", err)
	}
	uploads, err := pgx.CollectRows(rows, scanUpload)
	if err != nil {
		return nil, fmt.Errorf("collect uploads: %w", err)
	}
	return uploads, nil
}

// LatestUpload returns the most recent batch of a type or ErrNotFound.
func (r *Repository) LatestUpload(ctx context.Context, uploadType domain.UploadType) (*domain.Upload, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+uploadColumns+`
		FROM monthly_uploads
		WHERE upload_type = $1
		ORDER BY upload_timestamp DESC, upload_id DESC
		LIMIT 1
	`, string(uploadType))
	upload, err := scanUploadRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("latest %s upload: %w", uploadType, err)
	}
	return &upload, nil
}

func scanUpload(rows pgx.CollectableRow) (domain.Upload, error) {
	return scanUploadRow(rows)
}

func scanUploadRow(row pgx.Row) (domain.Upload, error) {
	var (
		upload      domain.Upload
		uploadType  string
		description sql.NullString
	)
	if err := row.Scan(
		&upload.UploadID,
		&uploadType,
		&upload.FileName,
		&upload.Name,
		&upload.Month,
		&upload.Year,
		&description,
		&upload.UploadedAt,
	); err != nil {
		return domain.Upload{}, err
	}
	upload.UploadType = domain.UploadType(uploadType)
	if description.Valid {
		value := description.String
		upload.Description = &value
	}
	return upload, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 200
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
