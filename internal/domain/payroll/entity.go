package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// RunStatus enum
type RunStatus string

const (
	RunStatusDraft                  RunStatus = "draft"
	RunStatusUnderReview            RunStatus = "under_review"
	RunStatusPendingFinanceApproval RunStatus = "pending_finance_approval"
	RunStatusApproved               RunStatus = "approved"
	RunStatusLocked                 RunStatus = "locked"
	RunStatusUnlocked               RunStatus = "unlocked"
	RunStatusRejected               RunStatus = "rejected"
)

// Active reports whether a run in this status blocks another run for the
// same entity and period. Rejected runs do not.
func (s RunStatus) Active() bool {
	return s != RunStatusRejected
}

// Finalized reports whether the run's results are signed off and closed to
// review changes until it is unlocked.
func (s RunStatus) Finalized() bool {
	return s == RunStatusApproved || s == RunStatusLocked
}

// PaymentStatus enum
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// BankStatus enum
type BankStatus string

const (
	BankStatusValid   BankStatus = "valid"
	BankStatusMissing BankStatus = "missing"
)

// MaxRunIrregularities bounds Totals.Irregularities.
const MaxRunIrregularities = 100

// Totals - aggregate figures over every detail of a run
type Totals struct {
	EmployeeCount   int
	ExceptionsCount int
	Gross           decimal.Decimal
	Net             decimal.Decimal
	Tax             decimal.Decimal
	Insurance       decimal.Decimal
	Penalties       decimal.Decimal
	Allowances      decimal.Decimal
	Overtime        decimal.Decimal
	Refunds         decimal.Decimal
	Bonuses         decimal.Decimal
	Irregularities  []string // "<employee_id>: <message>", at most MaxRunIrregularities
}

// PayrollRun - one payroll cycle for an entity and period
type PayrollRun struct {
	ID            string
	EntityID      *string // department; nil covers every department
	Period        Period
	Status        RunStatus
	PaymentStatus PaymentStatus
	Totals        Totals

	SpecialistID      string
	SubmittedAt       *time.Time
	ManagerID         *string
	ManagerApprovedAt *time.Time
	FinanceID         *string
	FinanceApprovedAt *time.Time
	RejectedBy        *string
	RejectedAt        *time.Time
	RejectionReason   *string
	LockedBy          *string
	LockedAt          *time.Time
	UnlockedBy        *string
	UnlockedAt        *time.Time
	UnlockReason      *string
	ProcessedAt       *time.Time

	PayslipsGenerated   bool
	PayslipsGeneratedAt *time.Time
	PaidAt              *time.Time

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TaxLine - tax applied to one detail
type TaxLine struct {
	RuleID   *string
	RuleName string
	Rate     decimal.Decimal
	Amount   decimal.Decimal
}

// InsuranceLine - insurance applied to one detail
type InsuranceLine struct {
	BracketID    *string
	BracketName  string
	EmployeeRate decimal.Decimal
	EmployerRate decimal.Decimal
	Amount       decimal.Decimal
	EmployerPart decimal.Decimal
}

// PenaltyKind enum
type PenaltyKind string

const (
	PenaltyKindMissingWork PenaltyKind = "missing_work"
	PenaltyKindLateness    PenaltyKind = "lateness"
)

// PenaltyLine - one penalty with its human readable reason
type PenaltyLine struct {
	Kind   PenaltyKind
	Amount decimal.Decimal
	Reason string
}

// AttendanceDetail - attendance facts the pay computation used
type AttendanceDetail struct {
	ActualMinutes        int
	ScheduledMinutes     int
	OvertimeMinutes      int
	LatenessMinutes      int
	MissingMinutes       int
	WorkingDays          int
	DaysInMonth          int
	DaysWorked           decimal.Decimal
	UnpaidLeaveDays      decimal.Decimal
	UnpaidLeaveDeduction decimal.Decimal // informational, already reflected in proration
	ProrationRatio       decimal.Decimal
	HourlyRate           decimal.Decimal
}

// OvertimeLine - overtime pay
type OvertimeLine struct {
	Minutes    int
	Multiplier decimal.Decimal
	Amount     decimal.Decimal
	Reason     string
}

// RefundLine - one approved refund paid (or deferred) with a detail
type RefundLine struct {
	RefundID    string
	Amount      decimal.Decimal
	Description string
	DisputeID   *string
	ClaimID     *string
}

// BenefitLine - a signing bonus or termination benefit paid with a detail
type BenefitLine struct {
	BenefitID string
	Kind      string
	Amount    decimal.Decimal
}

// EmployeePayrollDetail - one employee's computed pay within one run
type EmployeePayrollDetail struct {
	ID         string
	RunID      string
	EmployeeID string

	BaseSalary         decimal.Decimal
	Allowances         decimal.Decimal
	AllowanceBreakdown map[string]decimal.Decimal
	GrossSalary        decimal.Decimal // base + allowances before proration
	ProratedGross      decimal.Decimal

	Tax       TaxLine
	Insurance InsuranceLine
	Penalties []PenaltyLine
	Overtime  OvertimeLine

	Attendance AttendanceDetail

	Refunds         []RefundLine
	RefundTotal     decimal.Decimal
	RefundsDeferred bool

	Benefits     []BenefitLine
	BonusTotal   decimal.Decimal // signing bonuses
	BenefitTotal decimal.Decimal // termination benefits

	NetSalary decimal.Decimal // prorated gross + refunds - tax - insurance
	NetPay    decimal.Decimal

	BankStatus    BankStatus
	PaymentStatus PaymentStatus
	FloorAdjusted bool

	Exception      string
	Irregularities []Irregularity

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PenaltyTotal sums every penalty line.
func (d EmployeePayrollDetail) PenaltyTotal() decimal.Decimal {
	total := decimal.Zero
	for _, p := range d.Penalties {
		total = total.Add(p.Amount)
	}
	return total
}

// IsProcessingFailure reports whether d is the placeholder written when the
// calculation for its employee failed.
func (d EmployeePayrollDetail) IsProcessingFailure() bool {
	for _, irr := range d.Irregularities {
		if irr.Code == IrregularityProcessingError {
			return true
		}
	}
	return false
}

// HasOpenIrregularities reports whether any irregularity is still open or escalated.
func (d EmployeePayrollDetail) HasOpenIrregularities() bool {
	for _, irr := range d.Irregularities {
		if irr.Status != IrregularityStatusResolved {
			return true
		}
	}
	return false
}

// Payslip - the employee facing statement for one detail
type Payslip struct {
	ID         string
	RunID      string
	DetailID   string
	EmployeeID string
	Period     Period

	BaseSalary  decimal.Decimal
	Allowances  map[string]decimal.Decimal
	Overtime    decimal.Decimal
	Bonuses     decimal.Decimal
	Benefits    decimal.Decimal
	Refunds     []RefundLine
	RefundTotal decimal.Decimal

	Tax       decimal.Decimal
	Insurance decimal.Decimal
	Penalties []PenaltyLine

	TotalEarnings   decimal.Decimal
	TotalDeductions decimal.Decimal
	Adjustment      decimal.Decimal // floor top-up or negative clamp
	NetPay          decimal.Decimal

	PaymentStatus PaymentStatus
	PaidAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RunFilter - list filter for payroll runs
type RunFilter struct {
	Period   *Period
	EntityID *string
	Status   *RunStatus
	Page     int
	Limit    int
}
