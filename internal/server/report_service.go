package server

import (
	"context"
	"fmt"

	"github.com/ghostboard/ghostboard/internal/identity"
	"github.com/ghostboard/ghostboard/internal/models"
	"github.com/ghostboard/ghostboard/internal/store"
)

// SubmitInput carries one anonymous report submission.
type SubmitInput struct {
	CompanyName string
	Country     string
	Stage       string
	Level       string
	Category    string
	Detail      string
	ElapsedDays *int
}

// ReportService runs the ingestion pipeline for one submission: derive the
// submitter identity, resolve the target company, enforce quotas, and only
// then persist the report. The report write happens outside the quota
// transaction; a granted quota is never revoked by a failed report insert.
type ReportService struct {
	hasher    *identity.Hasher
	companies store.CompanyStore
	quotas    store.QuotaStore
	reports   store.ReportStore
}

// NewReportService creates a report service over the given stores.
func NewReportService(hasher *identity.Hasher, companies store.CompanyStore, quotas store.QuotaStore, reports store.ReportStore) *ReportService {
	return &ReportService{
		hasher:    hasher,
		companies: companies,
		quotas:    quotas,
		reports:   reports,
	}
}

// Submit processes one submission from the given raw network address.
// Identity derivation is a hard precondition: it fails before any store is
// touched. Quota rejections come back as *store.QuotaError; anything else
// is an internal fault the caller must log.
func (s *ReportService) Submit(ctx context.Context, rawAddress string, in SubmitInput) (*models.Report, error) {
	submitterHash, err := s.hasher.Hash(rawAddress)
	if err != nil {
		return nil, err
	}

	company, err := s.companies.Resolve(ctx, in.CompanyName, in.Country)
	if err != nil {
		return nil, err
	}

	if err := s.quotas.Enforce(ctx, submitterHash, company.ID, in.Category, in.Detail); err != nil {
		return nil, err
	}

	report := &models.Report{
		CompanyID:   company.ID,
		Stage:       in.Stage,
		Level:       in.Level,
		Category:    in.Category,
		Detail:      in.Detail,
		ElapsedDays: in.ElapsedDays,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to persist report: %w", err)
	}

	return report, nil
}
