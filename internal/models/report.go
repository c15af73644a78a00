package models

import (
	"time"

	"github.com/google/uuid"
)

// Report statuses as stored in the reports table.
const (
	ReportStatusPending  = "pending"
	ReportStatusApproved = "approved"
	ReportStatusRejected = "rejected"
)

// Report is a single anonymous submission about a company.
// It deliberately carries no submitter identifier; the quota tables are the
// only place the submitter hash persists.
type Report struct {
	ID          uuid.UUID // UUIDv7
	CompanyID   uuid.UUID // FK to companies
	Stage       string    // e.g. "phone_screen", "onsite", "offer"
	Level       string    // e.g. "junior", "senior", "staff"
	Category    string    // position category, first half of the position key
	Detail      string    // free-text position label
	ElapsedDays *int      // days since last contact, nil when not supplied
	Status      string    // pending|approved|rejected, moderation owns transitions
	CreatedAt   time.Time
}

// DailySubmitterLimit tracks how many submissions a hashed submitter has
// attempted on a given UTC calendar day. Count only grows within a day; a
// new day starts a fresh row.
type DailySubmitterLimit struct {
	SubmitterHash string
	CalendarDay   string // UTC "YYYY-MM-DD"
	Count         int
}

// CompanyPositionLimit records one accepted submission per
// (submitter, company, position key). Rows are immutable once written.
type CompanyPositionLimit struct {
	SubmitterHash string
	CompanyID     uuid.UUID
	PositionKey   string
	CreatedAt     time.Time
}
