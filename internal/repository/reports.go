package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"perfreport/internal/domain"

	"github.com/jackc/pgx/v5"
)

type ReportInput struct {
	Name     string
	Month    string
	Year     string
	UploadID int64
	Snapshot json.RawMessage
}

func (r *Repository) CreateReport(ctx context.Context, input ReportInput) (domain.Report, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO performance_reports (name, month, year, upload_id, report_snapshot)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING report_id, name, month, year, upload_id, generated_at, report_snapshot
	`, input.Name, input.Month, input.Year, input.UploadID, []byte(input.Snapshot))
	report, err := scanReportRow(row, true)
	if err != nil {
		return domain.Report{}, fmt.Errorf("insert report: %w", err)
	}
	return report, nil
}

// CreateChatReport records a CHAT_REPORT batch and the report that references
// it atomically.
func (r *Repository) CreateChatReport(ctx context.Context, upload domain.UploadInput, snapshot json.RawMessage) (domain.Upload, domain.Report, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Upload{}, domain.Report{}, fmt.Errorf("begin chat report tx: %w", err)
	}
	defer tx.Rollback(ctx)

	created, err := insertUploadTx(ctx, tx, domain.UploadTypeChatReport, upload)
	if err != nil {
		return domain.Upload{}, domain.Report{}, err
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO performance_reports (name, month, year, upload_id, report_snapshot)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING report_id, name, month, year, upload_id, generated_at, report_snapshot
	`, upload.Name, upload.Month, upload.Year, created.UploadID, []byte(snapshot))
	report, err := scanReportRow(row, true)
	if err != nil {
		return domain.Upload{}, domain.Report{}, fmt.Errorf("insert chat report: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Upload{}, domain.Report{}, fmt.Errorf("commit chat report tx: %w", err)
	}
	return created, report, nil
}

func (r *Repository) GetReport(ctx context.Context, id int64) (*domain.Report, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT report_id, name, month, year, upload_id, generated_at, report_snapshot
		FROM performance_reports
		WHERE report_id = $1
	`, id)
	report, err := scanReportRow(row, true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get report: %w", err)
	}
	return &report, nil
}

func (r *Repository) LatestReport(ctx context.Context) (*domain.Report, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT report_id, name, month, year, upload_id, generated_at, report_snapshot
		FROM performance_reports
		ORDER BY generated_at DESC, report_id DESC
		LIMIT 1
	`)
	report, err := scanReportRow(row, true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("latest report: %w", err)
	}
	return &report, nil
}

// ListReports returns report history newest first, without snapshots.
func (r *Repository) ListReports(ctx context.Context, filter ListFilter) ([]domain.Report, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT report_id, name, month, year, upload_id, generated_at
		FROM performance_reports
		ORDER BY generated_at DESC, report_id DESC
		LIMIT $1 OFFSET $2
	`, normalizeLimit(filter.Limit), normalizeOffset(filter.Offset))
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	reports, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Report, error) {
		return scanReportRow(row, false)
	})
	if err != nil {
		return nil, fmt.Errorf("collect reports: %w", err)
	}
	return reports, nil
}

func scanReportRow(row pgx.Row, withSnapshot bool) (domain.Report, error) {
	var (
		report   domain.Report
		snapshot []byte
	)
	dest := []any{
		&report.ReportID,
		&report.Name,
		&report.Month,
		&report.Year,
		&report.UploadID,
		&report.GeneratedAt,
	}
	if withSnapshot {
		dest = append(dest, &snapshot)
	}
	if err := row.Scan(dest...); err != nil {
		return domain.Report{}, err
	}
	if withSnapshot {
		report.Snapshot = json.RawMessage(snapshot)
	}
	return report, nil
}
