package postgres

import "fmt"

// QuotaConfig holds the quota caps the enforcer applies. The enforcer
// refuses to run with missing or non-positive values; validation of where
// the values come from (flags, env) is the caller's concern.
type QuotaConfig struct {
	// DailyMax is the maximum number of submission attempts a single
	// submitter may make per UTC calendar day.
	DailyMax int

	// CompanyMax is the maximum number of distinct positions a single
	// submitter may report for one company.
	CompanyMax int
}

// Validate checks that the quota configuration is valid.
func (c *QuotaConfig) Validate() error {
	if c.DailyMax <= 0 {
		return fmt.Errorf("daily maximum must be a positive integer, got %d", c.DailyMax)
	}
	if c.CompanyMax <= 0 {
		return fmt.Errorf("per-company maximum must be a positive integer, got %d", c.CompanyMax)
	}
	return nil
}
