package models

import (
	"time"

	"github.com/google/uuid"
)

// Company represents a company that reports can reference.
// At most one row exists per (NormalizedName, Country) pair; Country may be
// nil when no report has supplied one yet.
type Company struct {
	ID             uuid.UUID // UUIDv7
	CanonicalName  string    // name as first submitted
	NormalizedName string    // lowercased, whitespace-collapsed
	Country        *string   // ISO alpha-2 style code, nil when unknown
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
