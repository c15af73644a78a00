package postgres

import (
	"context"
	"fmt"

	"github.com/ghostboard/ghostboard/internal/models"
	"github.com/ghostboard/ghostboard/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// ReportStore implements store.ReportStore using PostgreSQL.
type ReportStore struct {
	pool *pgxpool.Pool
}

// NewReportStore creates a new PostgreSQL-backed report store.
func NewReportStore(pool *pgxpool.Pool) *ReportStore {
	return &ReportStore{
		pool: pool,
	}
}

// Create inserts a report row. Callers must hold a quota grant for the
// submission before writing; this store does not re-check quotas.
func (s *ReportStore) Create(ctx context.Context, report *models.Report) error {
	if report.ID == uuid.Nil {
		report.ID = uuid.Must(uuid.NewV7())
	}
	if report.Status == "" {
		report.Status = models.ReportStatusPending
	}

	query := `
		INSERT INTO reports (
			id, company_id, stage, level, category, detail, elapsed_days, status
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		RETURNING created_at
	`

	err := s.pool.QueryRow(ctx, query,
		report.ID,
		report.CompanyID,
		report.Stage,
		report.Level,
		report.Category,
		report.Detail,
		report.ElapsedDays,
		report.Status,
	).Scan(&report.CreatedAt)

	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrCompanyNotFound
		}
		return fmt.Errorf("failed to create report: %w", describePostgresError(err))
	}

	log.Debug().
		Str("report_id", report.ID.String()).
		Str("company_id", report.CompanyID.String()).
		Msg("Created report")

	return nil
}

// ListByCompany returns all reports for a company, newest first.
func (s *ReportStore) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*models.Report, error) {
	query := `
		SELECT id, company_id, stage, level, category, detail, elapsed_days, status, created_at
		FROM reports
		WHERE company_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", describePostgresError(err))
	}
	defer rows.Close()

	var reports []*models.Report
	for rows.Next() {
		var report models.Report
		err := rows.Scan(
			&report.ID,
			&report.CompanyID,
			&report.Stage,
			&report.Level,
			&report.Category,
			&report.Detail,
			&report.ElapsedDays,
			&report.Status,
			&report.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, &report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}

	return reports, nil
}
