package payroll

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== RUN REQUEST DTOs ==========

type CreateRunRequest struct {
	EntityID *string `json:"entity_id,omitempty"`
	Period   string  `json:"period"`
}

func (r *CreateRunRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Period) {
		errs = append(errs, validator.ValidationError{Field: "period", Message: "is required"})
	} else if _, ok := validator.IsValidPeriod(r.Period); !ok {
		errs = append(errs, validator.ValidationError{Field: "period", Message: "must be in YYYY-MM format"})
	}
	if r.EntityID != nil && validator.IsEmpty(*r.EntityID) {
		errs = append(errs, validator.ValidationError{Field: "entity_id", Message: "must not be blank"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// TransitionRequest carries the version the caller read and, where the
// transition demands one, a reason. The reason is checked by the transition
// itself.
type TransitionRequest struct {
	RunID           string `json:"-"`
	ExpectedVersion int64  `json:"expected_version"`
	Reason          string `json:"reason,omitempty"`
}

func (r *TransitionRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.RunID) {
		errs = append(errs, validator.ValidationError{Field: "run_id", Message: "must be a valid UUID"})
	}
	if r.ExpectedVersion < 1 {
		errs = append(errs, validator.ValidationError{Field: "expected_version", Message: "must be at least 1"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type EscalateIrregularityRequest struct {
	DetailID       string `json:"-"`
	IrregularityID string `json:"-"`
	Reason         string `json:"reason"`
}

func (r *EscalateIrregularityRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.DetailID) {
		errs = append(errs, validator.ValidationError{Field: "detail_id", Message: "must be a valid UUID"})
	}
	if !validator.IsValidUUID(r.IrregularityID) {
		errs = append(errs, validator.ValidationError{Field: "irregularity_id", Message: "must be a valid UUID"})
	}
	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{Field: "reason", Message: "is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ResolveIrregularityRequest struct {
	DetailID       string `json:"-"`
	IrregularityID string `json:"-"`
	Action         string `json:"action"`
	Note           string `json:"note,omitempty"`
}

func (r *ResolveIrregularityRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.DetailID) {
		errs = append(errs, validator.ValidationError{Field: "detail_id", Message: "must be a valid UUID"})
	}
	if !validator.IsValidUUID(r.IrregularityID) {
		errs = append(errs, validator.ValidationError{Field: "irregularity_id", Message: "must be a valid UUID"})
	}
	allowed := make([]string, 0, len(ManualResolutions))
	for _, res := range ManualResolutions {
		allowed = append(allowed, string(res))
	}
	if !validator.IsInSlice(r.Action, allowed) {
		errs = append(errs, validator.ValidationError{Field: "action", Message: "must be one of " + strings.Join(allowed, ", ")})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ListRunsRequest struct {
	Period   *string `json:"period,omitempty"`
	EntityID *string `json:"entity_id,omitempty"`
	Status   *string `json:"status,omitempty"`
	Page     int     `json:"page"`
	Limit    int     `json:"limit"`
}

func (r *ListRunsRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.Period != nil {
		if _, ok := validator.IsValidPeriod(*r.Period); !ok {
			errs = append(errs, validator.ValidationError{Field: "period", Message: "must be in YYYY-MM format"})
		}
	}
	if r.Status != nil {
		statuses := []string{
			string(RunStatusDraft), string(RunStatusUnderReview), string(RunStatusPendingFinanceApproval),
			string(RunStatusApproved), string(RunStatusLocked), string(RunStatusUnlocked), string(RunStatusRejected),
		}
		if !validator.IsInSlice(*r.Status, statuses) {
			errs = append(errs, validator.ValidationError{Field: "status", Message: "is not a valid run status"})
		}
	}
	if r.Page < 0 {
		errs = append(errs, validator.ValidationError{Field: "page", Message: "must be non-negative"})
	}
	if r.Limit < 0 || r.Limit > 100 {
		errs = append(errs, validator.ValidationError{Field: "limit", Message: "must be between 0 and 100"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ========== RESPONSE DTOs ==========

type TotalsResponse struct {
	EmployeeCount   int             `json:"employee_count"`
	ExceptionsCount int             `json:"exceptions_count"`
	Gross           decimal.Decimal `json:"gross"`
	Net             decimal.Decimal `json:"net"`
	Tax             decimal.Decimal `json:"tax"`
	Insurance       decimal.Decimal `json:"insurance"`
	Penalties       decimal.Decimal `json:"penalties"`
	Allowances      decimal.Decimal `json:"allowances"`
	Overtime        decimal.Decimal `json:"overtime"`
	Refunds         decimal.Decimal `json:"refunds"`
	Bonuses         decimal.Decimal `json:"bonuses"`
	Irregularities  []string        `json:"irregularities"`
}

type RunResponse struct {
	ID                  string         `json:"id"`
	EntityID            *string        `json:"entity_id,omitempty"`
	Period              string         `json:"period"`
	Status              string         `json:"status"`
	PaymentStatus       string         `json:"payment_status"`
	Totals              TotalsResponse `json:"totals"`
	SpecialistID        string         `json:"specialist_id"`
	SubmittedAt         *time.Time     `json:"submitted_at,omitempty"`
	ManagerID           *string        `json:"manager_id,omitempty"`
	ManagerApprovedAt   *time.Time     `json:"manager_approved_at,omitempty"`
	FinanceID           *string        `json:"finance_id,omitempty"`
	FinanceApprovedAt   *time.Time     `json:"finance_approved_at,omitempty"`
	RejectionReason     *string        `json:"rejection_reason,omitempty"`
	UnlockReason        *string        `json:"unlock_reason,omitempty"`
	LockedAt            *time.Time     `json:"locked_at,omitempty"`
	PayslipsGenerated   bool           `json:"payslips_generated"`
	PayslipsGeneratedAt *time.Time     `json:"payslips_generated_at,omitempty"`
	Version             int64          `json:"version"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

type IrregularityResponse struct {
	ID               string     `json:"id"`
	Code             string     `json:"code"`
	Message          string     `json:"message"`
	Severity         string     `json:"severity"`
	Status           string     `json:"status"`
	EscalatedBy      *string    `json:"escalated_by,omitempty"`
	EscalatedAt      *time.Time `json:"escalated_at,omitempty"`
	EscalationReason *string    `json:"escalation_reason,omitempty"`
	ResolvedBy       *string    `json:"resolved_by,omitempty"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
	Resolution       *string    `json:"resolution,omitempty"`
	ResolutionNote   *string    `json:"resolution_note,omitempty"`
}

type PenaltyResponse struct {
	Kind   string          `json:"kind"`
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

type RefundLineResponse struct {
	RefundID    string          `json:"refund_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	DisputeID   *string         `json:"dispute_id,omitempty"`
	ClaimID     *string         `json:"claim_id,omitempty"`
}

type DetailResponse struct {
	ID                   string                     `json:"id"`
	RunID                string                     `json:"run_id"`
	EmployeeID           string                     `json:"employee_id"`
	BaseSalary           decimal.Decimal            `json:"base_salary"`
	Allowances           decimal.Decimal            `json:"allowances"`
	AllowanceBreakdown   map[string]decimal.Decimal `json:"allowance_breakdown,omitempty"`
	GrossSalary          decimal.Decimal            `json:"gross_salary"`
	ProratedGross        decimal.Decimal            `json:"prorated_gross"`
	Tax                  decimal.Decimal            `json:"tax"`
	TaxRule              string                     `json:"tax_rule,omitempty"`
	Insurance            decimal.Decimal            `json:"insurance"`
	InsuranceBracket     string                     `json:"insurance_bracket,omitempty"`
	Penalties            []PenaltyResponse          `json:"penalties"`
	OvertimePay          decimal.Decimal            `json:"overtime_pay"`
	OvertimeReason       string                     `json:"overtime_reason,omitempty"`
	ActualMinutes        int                        `json:"actual_minutes"`
	ScheduledMinutes     int                        `json:"scheduled_minutes"`
	MissingMinutes       int                        `json:"missing_minutes"`
	LatenessMinutes      int                        `json:"lateness_minutes"`
	OvertimeMinutes      int                        `json:"overtime_minutes"`
	DaysWorked           decimal.Decimal            `json:"days_worked"`
	DaysInMonth          int                        `json:"days_in_month"`
	UnpaidLeaveDays      decimal.Decimal            `json:"unpaid_leave_days"`
	UnpaidLeaveDeduction decimal.Decimal            `json:"unpaid_leave_deduction"`
	HourlyRate           decimal.Decimal            `json:"hourly_rate"`
	Refunds              []RefundLineResponse       `json:"refunds"`
	RefundTotal          decimal.Decimal            `json:"refund_total"`
	RefundsDeferred      bool                       `json:"refunds_deferred"`
	BonusTotal           decimal.Decimal            `json:"bonus_total"`
	BenefitTotal         decimal.Decimal            `json:"benefit_total"`
	NetSalary            decimal.Decimal            `json:"net_salary"`
	NetPay               decimal.Decimal            `json:"net_pay"`
	BankStatus           string                     `json:"bank_status"`
	PaymentStatus        string                     `json:"payment_status"`
	FloorAdjusted        bool                       `json:"floor_adjusted"`
	Exception            string                     `json:"exception"`
	Irregularities       []IrregularityResponse     `json:"irregularities"`
}

type PayslipResponse struct {
	ID              string                     `json:"id"`
	RunID           string                     `json:"run_id"`
	EmployeeID      string                     `json:"employee_id"`
	Period          string                     `json:"period"`
	BaseSalary      decimal.Decimal            `json:"base_salary"`
	Allowances      map[string]decimal.Decimal `json:"allowances,omitempty"`
	Overtime        decimal.Decimal            `json:"overtime"`
	Bonuses         decimal.Decimal            `json:"bonuses"`
	Benefits        decimal.Decimal            `json:"benefits"`
	Refunds         []RefundLineResponse       `json:"refunds"`
	Tax             decimal.Decimal            `json:"tax"`
	Insurance       decimal.Decimal            `json:"insurance"`
	Penalties       []PenaltyResponse          `json:"penalties"`
	TotalEarnings   decimal.Decimal            `json:"total_earnings"`
	TotalDeductions decimal.Decimal            `json:"total_deductions"`
	Adjustment      decimal.Decimal            `json:"adjustment"`
	NetPay          decimal.Decimal            `json:"net_pay"`
	PaymentStatus   string                     `json:"payment_status"`
	PaidAt          *time.Time                 `json:"paid_at,omitempty"`
}

type ListRunsResponse struct {
	Runs       []RunResponse `json:"runs"`
	TotalCount int64         `json:"total_count"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	TotalPages int           `json:"total_pages"`
}
