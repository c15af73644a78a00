package store

import "errors"

// QuotaReason is the machine-readable code identifying which quota rule
// refused a submission.
type QuotaReason string

const (
	ReasonDailyLimitExceeded   QuotaReason = "daily_limit_exceeded"
	ReasonCompanyLimitExceeded QuotaReason = "company_limit_exceeded"
	ReasonDuplicatePosition    QuotaReason = "duplicate_position"
)

// QuotaError is an expected, user-facing rejection of a submission. It is
// distinct from internal storage faults: callers map it to a 429-class
// response and should not log it as an anomaly.
type QuotaError struct {
	Reason  QuotaReason
	Message string
}

func (e *QuotaError) Error() string {
	return e.Message
}

// Quota rejections with their fixed user-facing messages. Stores return
// these values directly so errors.Is works on them.
var (
	ErrDailyLimitExceeded = &QuotaError{
		Reason:  ReasonDailyLimitExceeded,
		Message: "You have reached the daily report limit.",
	}
	ErrCompanyLimitExceeded = &QuotaError{
		Reason:  ReasonCompanyLimitExceeded,
		Message: "You have reached the maximum number of reports for this company.",
	}
	ErrDuplicatePosition = &QuotaError{
		Reason:  ReasonDuplicatePosition,
		Message: "You have already submitted a report for this position at this company.",
	}
)

// AsQuotaError extracts a *QuotaError from an error chain.
func AsQuotaError(err error) (*QuotaError, bool) {
	var qe *QuotaError
	if errors.As(err, &qe) {
		return qe, true
	}
	return nil, false
}
