package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ghostboard/ghostboard/internal/normalize"
	"github.com/ghostboard/ghostboard/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// calendarDayFormat buckets daily counters by UTC date, immune to
// local-timezone drift.
const calendarDayFormat = "2006-01-02"

// QuotaStore implements store.QuotaStore using PostgreSQL.
//
// Two TOCTOU hazards are closed here. The daily counter is a single
// conditional upsert, so concurrent submissions cannot both observe a stale
// count and pass the cap — the statement's own atomicity serializes them.
// The position count-then-insert sequence runs inside one transaction under
// pg_advisory_xact_lock keyed by (submitter, company), so only one
// transaction per pair is mid-flight through that sequence at a time;
// different pairs proceed fully in parallel. The lock is released
// automatically on commit or rollback.
type QuotaStore struct {
	pool *pgxpool.Pool
	cfg  *QuotaConfig

	now func() time.Time // overridable in tests
}

// NewQuotaStore creates a PostgreSQL-backed quota store.
// The configuration is required; the store refuses to run without valid caps.
func NewQuotaStore(pool *pgxpool.Pool, cfg *QuotaConfig) (*QuotaStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("quota config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid quota config: %w", err)
	}
	return &QuotaStore{
		pool: pool,
		cfg:  cfg,
		now:  time.Now,
	}, nil
}

// Enforce applies the daily cap, the per-company cap, and the duplicate
// position guard for one submission attempt.
//
// The daily increment commits independently of the position checks: a
// submission rejected for a duplicate or per-company violation still
// consumes one unit of daily quota. That ordering is deliberate product
// behavior, not an accident of implementation. The counter itself can never
// exceed the cap, because the increment is conditional.
func (s *QuotaStore) Enforce(ctx context.Context, submitterHash string, companyID uuid.UUID, positionCategory, positionDetail string) error {
	if submitterHash == "" {
		return fmt.Errorf("submitter hash is required")
	}

	calendarDay := s.now().UTC().Format(calendarDayFormat)

	// Daily cap: atomic conditional upsert. No row back means the counter
	// is already at the cap and was left untouched.
	var count int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO daily_submitter_limits (submitter_hash, calendar_day, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (submitter_hash, calendar_day)
		DO UPDATE SET count = daily_submitter_limits.count + 1
		WHERE daily_submitter_limits.count < $3
		RETURNING count
	`, submitterHash, calendarDay, s.cfg.DailyMax).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Debug().
				Str("calendar_day", calendarDay).
				Msg("Submission rejected: daily limit reached")
			return store.ErrDailyLimitExceeded
		}
		return fmt.Errorf("failed to increment daily counter: %w", describePostgresError(err))
	}

	// Position checks: one transaction, serialized per (submitter, company).
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", describePostgresError(err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback is safe to call after commit

	_, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1), hashtext($2))`,
		submitterHash, companyID.String())
	if err != nil {
		return fmt.Errorf("failed to acquire submission lock: %w", describePostgresError(err))
	}

	var existing int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM company_position_limits
		WHERE submitter_hash = $1 AND company_id = $2
	`, submitterHash, companyID).Scan(&existing)
	if err != nil {
		return fmt.Errorf("failed to count position rows: %w", describePostgresError(err))
	}

	if existing >= s.cfg.CompanyMax {
		log.Debug().
			Str("company_id", companyID.String()).
			Int("existing", existing).
			Msg("Submission rejected: per-company limit reached")
		return store.ErrCompanyLimitExceeded
	}

	positionKey := normalize.PositionKey(positionCategory, positionDetail)

	tag, err := tx.Exec(ctx, `
		INSERT INTO company_position_limits (submitter_hash, company_id, position_key)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`, submitterHash, companyID, positionKey)
	if err != nil {
		return fmt.Errorf("failed to insert position row: %w", describePostgresError(err))
	}

	if tag.RowsAffected() == 0 {
		log.Debug().
			Str("company_id", companyID.String()).
			Msg("Submission rejected: duplicate position")
		return store.ErrDuplicatePosition
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit quota transaction: %w", describePostgresError(err))
	}

	return nil
}
