package payroll

import "errors"

// Error kinds shared by every payroll operation. Handlers map these to
// status codes; specific errors below wrap one of them.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

var (
	ErrInvalidPeriod          = errors.New("invalid payroll period")
	ErrRunNotFound            = errors.New("payroll run not found")
	ErrDetailNotFound         = errors.New("payroll detail not found")
	ErrPayslipNotFound        = errors.New("payslip not found")
	ErrIrregularityNotFound   = errors.New("irregularity not found")
	ErrDuplicatePeriod        = errors.New("an active payroll run already exists for this entity and period")
	ErrStaleVersion           = errors.New("payroll run was modified by another request")
	ErrRunAlreadyProcessed    = errors.New("payroll run already has employee details")
	ErrDetailAlreadyExists    = errors.New("payroll detail already exists for this employee in this run")
	ErrInvalidTransition      = errors.New("transition not allowed from current status")
	ErrMissingRole            = errors.New("caller lacks the role required for this action")
	ErrSelfApproval           = errors.New("approver must differ from the previous actors on this run")
	ErrInactiveApprover       = errors.New("approver is not an active employee")
	ErrReasonRequired         = errors.New("a reason is required for this action")
	ErrManagerApprovalMissing = errors.New("run has not been approved by a manager")
	ErrRunProcessingFailed    = errors.New("payroll run processing failed")
	ErrRunBusy                = errors.New("payroll run is being processed by another request")
	ErrIrregularityNotOpen    = errors.New("irregularity is not open")
	ErrIrregularityResolved   = errors.New("irregularity is already resolved")
	ErrInvalidResolution      = errors.New("invalid irregularity resolution")
	ErrRunFinalized           = errors.New("payroll run is approved or locked")
)

// Kind returns the error kind err belongs to, or nil for internal errors.
func Kind(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrInvalidPeriod),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrDuplicatePeriod),
		errors.Is(err, ErrReasonRequired),
		errors.Is(err, ErrInvalidResolution):
		return ErrValidation
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrMissingRole),
		errors.Is(err, ErrSelfApproval),
		errors.Is(err, ErrInactiveApprover):
		return ErrUnauthorized
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrRunNotFound),
		errors.Is(err, ErrDetailNotFound),
		errors.Is(err, ErrPayslipNotFound),
		errors.Is(err, ErrIrregularityNotFound):
		return ErrNotFound
	case errors.Is(err, ErrConflict),
		errors.Is(err, ErrStaleVersion),
		errors.Is(err, ErrRunAlreadyProcessed),
		errors.Is(err, ErrDetailAlreadyExists),
		errors.Is(err, ErrManagerApprovalMissing),
		errors.Is(err, ErrRunBusy),
		errors.Is(err, ErrIrregularityNotOpen),
		errors.Is(err, ErrIrregularityResolved),
		errors.Is(err, ErrRunFinalized):
		return ErrConflict
	}
	return nil
}
