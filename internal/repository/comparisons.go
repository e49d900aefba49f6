package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"perfreport/internal/domain"

	"github.com/jackc/pgx/v5"
)

type ComparisonInput struct {
	ComparisonID  string
	SessionID     string
	QueryText     string
	OldReportSize int
	NewReportSize int
}

const comparisonColumns = `
	comparison_id::text,
	session_id,
	query_text,
	old_report_size,
	new_report_size,
	status,
	result,
	error,
	created_at
`

// CreateComparison stores a pending comparison request.
func (r *Repository) CreateComparison(ctx context.Context, input ComparisonInput) (domain.Comparison, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO report_comparisons (
			comparison_id,
			session_id,
			query_text,
			old_report_size,
			new_report_size,
			status
		) VALUES ($1::uuid, $2, $3, $4, $5, $6)
		RETURNING `+comparisonColumns,
		input.ComparisonID,
		input.SessionID,
		input.QueryText,
		input.OldReportSize,
		input.NewReportSize,
		string(domain.ComparisonPending),
	)
	comparison, err := scanComparisonRow(row)
	if err != nil {
		return domain.Comparison{}, fmt.Errorf("insert comparison: %w", err)
	}
	return comparison, nil
}

// FinishComparison moves a pending comparison to success or error.
func (r *Repository) FinishComparison(
	ctx context.Context,
	id string,
	status domain.ComparisonStatus,
	result *string,
	errMessage *string,
) (*domain.Comparison, error) {
	if status != domain.ComparisonSuccess && status != domain.ComparisonError {
		return nil, fmt.Errorf("invalid final comparison status %q", status)
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE report_comparisons
		SET status = $2, result = $3, error = $4
		WHERE comparison_id = $1::uuid
		RETURNING `+comparisonColumns,
		id,
		string(status),
		result,
		errMessage,
	)
	comparison, err := scanComparisonRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("finish comparison: %w", err)
	}
	return &comparison, nil
}

func (r *Repository) GetComparison(ctx context.Context, id string) (*domain.Comparison, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+comparisonColumns+`
		FROM report_comparisons
		WHERE comparison_id::text = $1
	`, strings.ToLower(strings.TrimSpace(id)))
	comparison, err := scanComparisonRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get comparison: %w", err)
	}
	return &comparison, nil
}

// ListComparisons returns comparisons newest first. An empty session lists
// every session.
func (r *Repository) ListComparisons(ctx context.Context, sessionID string, filter ListFilter) ([]domain.Comparison, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+comparisonColumns+`
		FROM report_comparisons
		WHERE ($1 = '' OR session_id = $1)
		ORDER BY created_at DESC, comparison_id DESC
		LIMIT $2 OFFSET $3
	`, sessionID, normalizeLimit(filter.Limit), normalizeOffset(filter.Offset))
	if err != nil {
		return nil, fmt.Errorf("list comparisons: %w", err)
	}
	comparisons, err := pgx.CollectRows(rows, scanComparison)
	if err != nil {
		return nil, fmt.Errorf("collect comparisons: %w", err)
	}
	return comparisons, nil
}

// ComparisonHistory returns every comparison of a session in the order it was
// asked.
func (r *Repository) ComparisonHistory(ctx context.Context, sessionID string) ([]domain.Comparison, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+comparisonColumns+`
		FROM report_comparisons
		WHERE session_id = $1
		ORDER BY created_at ASC, comparison_id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("comparison history: %w", err)
	}
	comparisons, err := pgx.CollectRows(rows, scanComparison)
	if err != nil {
		return nil, fmt.Errorf("collect comparison history: %w", err)
	}
	return comparisons, nil
}

func scanComparison(rows pgx.CollectableRow) (domain.Comparison, error) {
	return scanComparisonRow(rows)
}

func scanComparisonRow(row pgx.Row) (domain.Comparison, error) {
	var (
		comparison domain.Comparison
		status     string
	)
	if err := row.Scan(
		&comparison.ComparisonID,
		&comparison.SessionID,
		&comparison.QueryText,
		&comparison.OldReportSize,
		&comparison.NewReportSize,
		&status,
		&comparison.Result,
		&comparison.Error,
		&comparison.CreatedAt,
	); err != nil {
		return domain.Comparison{}, err
	}
	comparison.Status = domain.ComparisonStatus(status)
	return comparison, nil
}
