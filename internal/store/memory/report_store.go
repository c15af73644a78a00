package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ghostboard/ghostboard/internal/models"
	"github.com/google/uuid"
)

// ReportStore is an in-memory implementation of store.ReportStore.
type ReportStore struct {
	mu      sync.Mutex
	reports map[uuid.UUID]*models.Report
}

// NewReportStore creates a new in-memory report store.
func NewReportStore() *ReportStore {
	return &ReportStore{
		reports: make(map[uuid.UUID]*models.Report),
	}
}

// Create persists a report, filling in ID, status, and creation time.
func (s *ReportStore) Create(ctx context.Context, report *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if report.ID == uuid.Nil {
		report.ID = uuid.Must(uuid.NewV7())
	}
	if report.Status == "" {
		report.Status = models.ReportStatusPending
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}

	s.reports[report.ID] = copyReport(report)
	return nil
}

// ListByCompany returns all reports for a company, newest first.
func (s *ReportStore) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Report
	for _, r := range s.reports {
		if r.CompanyID == companyID {
			out = append(out, copyReport(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func copyReport(r *models.Report) *models.Report {
	out := *r
	if r.ElapsedDays != nil {
		d := *r.ElapsedDays
		out.ElapsedDays = &d
	}
	return &out
}
