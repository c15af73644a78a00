package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ghostboard/ghostboard/internal/models"
	"github.com/ghostboard/ghostboard/internal/normalize"
	"github.com/ghostboard/ghostboard/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// CompanyStore implements store.CompanyStore using PostgreSQL.
type CompanyStore struct {
	pool *pgxpool.Pool
}

// NewCompanyStore creates a new PostgreSQL-backed company store.
// It shares the connection pool with the other stores.
func NewCompanyStore(pool *pgxpool.Pool) *CompanyStore {
	return &CompanyStore{
		pool: pool,
	}
}

const companyColumns = `id, canonical_name, normalized_name, country, created_at, updated_at`

// Resolve finds or creates the company for (normalized rawName, country).
// The find-or-create is race-hardened: when a concurrent writer wins the
// creation race, the unique violation is resolved by a compensating re-read
// instead of an error, so the operation is effectively idempotent.
func (s *CompanyStore) Resolve(ctx context.Context, rawName, country string) (*models.Company, error) {
	normalized := normalize.Name(rawName)
	if normalized == "" {
		return nil, store.ErrInvalidCompanyName
	}

	company, err := s.find(ctx, normalized, country)
	if err == nil {
		if company.Country == nil && country != "" {
			return s.backfillCountry(ctx, company, country)
		}
		return company, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up company: %w", describePostgresError(err))
	}

	created, err := s.create(ctx, rawName, normalized, country)
	if err == nil {
		return created, nil
	}
	if !isUniqueViolation(err) {
		return nil, fmt.Errorf("failed to create company: %w", describePostgresError(err))
	}

	// A concurrent writer won the creation race; fall back to its row.
	company, err = s.find(ctx, normalized, country)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read company after create race: %w", describePostgresError(err))
	}
	return company, nil
}

// Get retrieves a company by ID.
func (s *CompanyStore) Get(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+companyColumns+`
		FROM companies
		WHERE id = $1
	`, id)

	company, err := scanCompany(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrCompanyNotFound
		}
		return nil, fmt.Errorf("failed to get company: %w", describePostgresError(err))
	}
	return company, nil
}

// find reads the row for (normalizedName, country). When a country is
// supplied, an exact match is preferred over a row with no country yet;
// the latter is the backfill candidate.
func (s *CompanyStore) find(ctx context.Context, normalized, country string) (*models.Company, error) {
	if country == "" {
		row := s.pool.QueryRow(ctx, `
			SELECT `+companyColumns+`
			FROM companies
			WHERE normalized_name = $1 AND country IS NULL
		`, normalized)
		return scanCompany(row)
	}

	row := s.pool.QueryRow(ctx, `
		SELECT `+companyColumns+`
		FROM companies
		WHERE normalized_name = $1 AND (country = $2 OR country IS NULL)
		ORDER BY (country IS NULL)
		LIMIT 1
	`, normalized, country)
	return scanCompany(row)
}

func (s *CompanyStore) create(ctx context.Context, canonical, normalized, country string) (*models.Company, error) {
	id := uuid.Must(uuid.NewV7())

	var countryArg *string
	if country != "" {
		countryArg = &country
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO companies (id, canonical_name, normalized_name, country)
		VALUES ($1, $2, $3, $4)
		RETURNING `+companyColumns+`
	`, id, canonical, normalized, countryArg)

	company, err := scanCompany(row)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("company_id", company.ID.String()).
		Str("normalized_name", company.NormalizedName).
		Msg("Created company")

	return company, nil
}

// backfillCountry sets the country on a row that has none. The update is
// guarded so it happens at most once; losing the race to a concurrent
// backfill falls back to whatever that writer committed.
func (s *CompanyStore) backfillCountry(ctx context.Context, company *models.Company, country string) (*models.Company, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE companies
		SET country = $2, updated_at = now()
		WHERE id = $1 AND country IS NULL
	`, company.ID, country)
	if err != nil {
		return nil, fmt.Errorf("failed to backfill company country: %w", describePostgresError(err))
	}

	if tag.RowsAffected() == 0 {
		return s.Get(ctx, company.ID)
	}

	log.Debug().
		Str("company_id", company.ID.String()).
		Str("country", country).
		Msg("Back-filled company country")

	company.Country = &country
	return company, nil
}

func scanCompany(row pgx.Row) (*models.Company, error) {
	var company models.Company
	err := row.Scan(
		&company.ID,
		&company.CanonicalName,
		&company.NormalizedName,
		&company.Country,
		&company.CreatedAt,
		&company.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &company, nil
}
