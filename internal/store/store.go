// Package store defines the storage contracts for the report ingestion
// pipeline and the error taxonomy callers discriminate on.
package store

import (
	"context"
	"errors"

	"github.com/ghostboard/ghostboard/internal/models"
	"github.com/google/uuid"
)

// Sentinel errors for common error conditions
var (
	ErrInvalidCompanyName = errors.New("invalid company name")
	ErrCompanyNotFound    = errors.New("company not found")
)

// CompanyStore resolves and reads company records.
type CompanyStore interface {
	// Resolve finds or creates the company for (normalized rawName, country).
	// country may be empty when the submitter did not supply one. The
	// operation is race-hardened: a concurrent writer winning the creation
	// race results in a compensating read, not an error. A stored company
	// with no country is back-filled once when a later caller supplies one.
	Resolve(ctx context.Context, rawName, country string) (*models.Company, error)

	// Get retrieves a company by ID. Returns ErrCompanyNotFound if absent.
	Get(ctx context.Context, id uuid.UUID) (*models.Company, error)
}

// QuotaStore enforces submission quotas. Enforce checks the daily cap
// first: a daily rejection leaves no trace, but a granted daily unit is
// consumed even when the per-company or duplicate checks reject afterwards.
// The per-company count and the position insert run as one atomic unit, so
// a rejection there never leaves a partial position row. Rejections are
// returned as *QuotaError; anything else is an internal storage fault and
// propagates unchanged.
type QuotaStore interface {
	Enforce(ctx context.Context, submitterHash string, companyID uuid.UUID, positionCategory, positionDetail string) error
}

// ReportStore persists reports once the quota store has granted permission.
type ReportStore interface {
	Create(ctx context.Context, report *models.Report) error
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*models.Report, error)
}
