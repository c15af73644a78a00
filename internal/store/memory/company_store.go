// Package memory provides in-memory store implementations for development
// and testing. They mirror the quota semantics of the PostgreSQL stores but
// serialize on process-local mutexes, so they cannot span replicas.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ghostboard/ghostboard/internal/models"
	"github.com/ghostboard/ghostboard/internal/normalize"
	"github.com/ghostboard/ghostboard/internal/store"
	"github.com/google/uuid"
)

// CompanyStore is an in-memory implementation of store.CompanyStore.
type CompanyStore struct {
	mu        sync.Mutex
	companies map[uuid.UUID]*models.Company
	created   int // total creations, exposed for tests
}

// NewCompanyStore creates a new in-memory company store.
func NewCompanyStore() *CompanyStore {
	return &CompanyStore{
		companies: make(map[uuid.UUID]*models.Company),
	}
}

// Resolve finds or creates the company for the given raw name and country.
// The whole find-or-create runs under one lock, so the unique-violation race
// the PostgreSQL store compensates for cannot occur here.
func (s *CompanyStore) Resolve(ctx context.Context, rawName, country string) (*models.Company, error) {
	normalized := normalize.Name(rawName)
	if normalized == "" {
		return nil, store.ErrInvalidCompanyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Exact (normalizedName, country) match wins.
	if country != "" {
		if c := s.findLocked(normalized, &country); c != nil {
			return copyCompany(c), nil
		}
	}

	// A row with no country matches either way, and is back-filled once when
	// the caller supplied one.
	if c := s.findLocked(normalized, nil); c != nil {
		if country != "" {
			cc := country
			c.Country = &cc
			c.UpdatedAt = time.Now()
		}
		return copyCompany(c), nil
	}

	company := &models.Company{
		ID:             uuid.Must(uuid.NewV7()),
		CanonicalName:  rawName,
		NormalizedName: normalized,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	if country != "" {
		cc := country
		company.Country = &cc
	}
	s.companies[company.ID] = company
	s.created++

	return copyCompany(company), nil
}

// Get retrieves a company by ID.
func (s *CompanyStore) Get(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.companies[id]
	if !ok {
		return nil, store.ErrCompanyNotFound
	}
	return copyCompany(c), nil
}

// Created reports how many companies have been created, for test assertions.
func (s *CompanyStore) Created() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created
}

func (s *CompanyStore) findLocked(normalized string, country *string) *models.Company {
	for _, c := range s.companies {
		if c.NormalizedName != normalized {
			continue
		}
		if country == nil && c.Country == nil {
			return c
		}
		if country != nil && c.Country != nil && *c.Country == *country {
			return c
		}
	}
	return nil
}

// copyCompany returns a copy to avoid external modifications.
func copyCompany(c *models.Company) *models.Company {
	out := *c
	if c.Country != nil {
		country := *c.Country
		out.Country = &country
	}
	return &out
}
