package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ghostboard/ghostboard/internal/normalize"
	"github.com/ghostboard/ghostboard/internal/store"
	"github.com/google/uuid"
)

// QuotaStore is an in-memory implementation of store.QuotaStore.
//
// A single mutex serializes all Enforce calls, which is a coarser scope than
// the PostgreSQL store's per-(submitter, company) advisory lock but gives
// the same observable semantics: the daily counter never exceeds its cap,
// position rows are unique, and a rejected attempt leaves position state
// untouched while company/duplicate rejections still consume daily quota.
type QuotaStore struct {
	mu         sync.Mutex
	daily      map[string]int                 // submitterHash + "|" + calendarDay
	positions  map[string]map[string]struct{} // submitterHash + "|" + companyID
	dailyMax   int
	companyMax int

	now func() time.Time // overridable in tests
}

// NewQuotaStore creates an in-memory quota store with the given caps.
func NewQuotaStore(dailyMax, companyMax int) *QuotaStore {
	return &QuotaStore{
		daily:      make(map[string]int),
		positions:  make(map[string]map[string]struct{}),
		dailyMax:   dailyMax,
		companyMax: companyMax,
		now:        time.Now,
	}
}

// Enforce applies the daily cap, the per-company cap, and the duplicate
// position guard. See store.QuotaStore for the contract.
func (s *QuotaStore) Enforce(ctx context.Context, submitterHash string, companyID uuid.UUID, positionCategory, positionDetail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Daily cap. The increment is conditional: a rejected attempt must not
	// grow the counter past the limit.
	day := s.now().UTC().Format("2006-01-02")
	dailyKey := submitterHash + "|" + day
	if s.daily[dailyKey]+1 > s.dailyMax {
		return store.ErrDailyLimitExceeded
	}
	s.daily[dailyKey]++

	// Per-company cap and duplicate guard. The daily increment above stays
	// even when these reject; failing a company check still consumes one
	// unit of daily quota.
	pairKey := submitterHash + "|" + companyID.String()
	existing := s.positions[pairKey]
	if len(existing) >= s.companyMax {
		return store.ErrCompanyLimitExceeded
	}

	positionKey := normalize.PositionKey(positionCategory, positionDetail)
	if _, ok := existing[positionKey]; ok {
		return store.ErrDuplicatePosition
	}

	if existing == nil {
		existing = make(map[string]struct{})
		s.positions[pairKey] = existing
	}
	existing[positionKey] = struct{}{}

	return nil
}

// DailyCount reports the committed daily counter for test assertions.
func (s *QuotaStore) DailyCount(submitterHash string, day string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.daily[submitterHash+"|"+day]
}

// PositionCount reports the number of position rows for a pair, for tests.
func (s *QuotaStore) PositionCount(submitterHash string, companyID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.positions[submitterHash+"|"+companyID.String()])
}
