package payconfig

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status enum. Only approved configuration reaches a calculation.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusApproved Status = "approved"
	StatusArchived Status = "archived"
)

// TaxRule - a rate applied to base salary. The salary band is explicit when
// MinSalary or MaxSalary is set, otherwise it is read from the name
// ("5000-10000", "above 10000", "below 5000").
type TaxRule struct {
	ID        string
	Name      string
	Rate      decimal.Decimal // percent
	MinSalary *decimal.Decimal
	MaxSalary *decimal.Decimal
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// InsuranceBracket - an inclusive salary range with employee and employer rates
type InsuranceBracket struct {
	ID           string
	Name         string
	MinSalary    decimal.Decimal
	MaxSalary    decimal.Decimal
	EmployeeRate decimal.Decimal // percent
	EmployerRate decimal.Decimal // percent
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Contains checks if salary lies inside the bracket, bounds included
func (b InsuranceBracket) Contains(salary decimal.Decimal) bool {
	return salary.GreaterThanOrEqual(b.MinSalary) && salary.LessThanOrEqual(b.MaxSalary)
}

// AllowanceRule - a flat allowance. EmployeeID nil means a system default.
type AllowanceRule struct {
	ID         string
	Name       string
	Amount     decimal.Decimal
	EmployeeID *string
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ShortTimeRule - percentage of the minute rate deducted per missing minute
type ShortTimeRule struct {
	DeductionPercent decimal.Decimal
}

// LatenessRule - grace minutes, per-minute penalty and cap (zero cap = uncapped)
type LatenessRule struct {
	GraceMinutes     int
	PenaltyPerMinute decimal.Decimal
	MaxPenalty       decimal.Decimal
}

// OvertimeRule - multiplier applied to the hourly rate
type OvertimeRule struct {
	Multiplier decimal.Decimal
}

// PenaltyRules - optional rules, nil means the documented default applies
type PenaltyRules struct {
	ShortTime *ShortTimeRule
	Lateness  *LatenessRule
	Overtime  *OvertimeRule
}

// Settings - company wide payroll settings
type Settings struct {
	MinimumWage *decimal.Decimal
	Penalties   PenaltyRules
	UpdatedAt   time.Time
}

// Snapshot is the configuration a single run computes against. It is
// resolved once and handed to every employee calculation by value; callers
// must not mutate the slices.
type Snapshot struct {
	TaxRules          []TaxRule
	InsuranceBrackets []InsuranceBracket
	Allowances        []AllowanceRule
	MinimumWage       *decimal.Decimal
	Penalties         PenaltyRules

	FallbackBaseSalary           decimal.Decimal
	DefaultOvertimeMultiplier    decimal.Decimal
	TerminationBenefitMultiplier decimal.Decimal

	ResolvedAt time.Time
}

// OvertimeMultiplier returns the configured multiplier or the default.
func (s Snapshot) OvertimeMultiplier() decimal.Decimal {
	if s.Penalties.Overtime != nil && s.Penalties.Overtime.Multiplier.IsPositive() {
		return s.Penalties.Overtime.Multiplier
	}
	return s.DefaultOvertimeMultiplier
}
