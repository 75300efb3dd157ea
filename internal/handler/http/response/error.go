package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/benefit"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Payroll run errors
	case errors.Is(err, payroll.ErrInvalidPeriod):
		BadRequest(w, "Period must be in YYYY-MM format", nil)
	case errors.Is(err, payroll.ErrReasonRequired):
		BadRequest(w, "A reason is required for this action", nil)
	case errors.Is(err, payroll.ErrInvalidResolution):
		BadRequest(w, "Invalid irregularity resolution", nil)
	case errors.Is(err, payroll.ErrRunNotFound):
		NotFound(w, "Payroll run not found")
	case errors.Is(err, payroll.ErrDetailNotFound):
		NotFound(w, "Payroll detail not found")
	case errors.Is(err, payroll.ErrPayslipNotFound):
		NotFound(w, "Payslip not found")
	case errors.Is(err, payroll.ErrIrregularityNotFound):
		NotFound(w, "Irregularity not found")
	case errors.Is(err, payroll.ErrMissingRole):
		Forbidden(w, "Insufficient permissions for this action")
	case errors.Is(err, payroll.ErrSelfApproval):
		Forbidden(w, "Approver must differ from the previous actors on this run")
	case errors.Is(err, payroll.ErrInactiveApprover):
		Forbidden(w, "Approver is not an active employee")
	case errors.Is(err, payroll.ErrDuplicatePeriod):
		Conflict(w, "An active payroll run already exists for this entity and period")
	case errors.Is(err, payroll.ErrStaleVersion):
		Conflict(w, "Payroll run was modified by another request, reload and retry")
	case errors.Is(err, payroll.ErrInvalidTransition):
		Conflict(w, err.Error())
	case errors.Is(err, payroll.ErrRunBusy):
		Conflict(w, "Payroll run is being processed")
	case errors.Is(err, payroll.ErrRunAlreadyProcessed),
		errors.Is(err, payroll.ErrDetailAlreadyExists),
		errors.Is(err, payroll.ErrManagerApprovalMissing),
		errors.Is(err, payroll.ErrIrregularityNotOpen),
		errors.Is(err, payroll.ErrIrregularityResolved):
		Conflict(w, err.Error())

	// Benefit domain errors
	case errors.Is(err, benefit.ErrBenefitNotFound):
		NotFound(w, "Benefit not found")
	case errors.Is(err, benefit.ErrReasonRequired):
		BadRequest(w, "Rejection reason is required", nil)
	case errors.Is(err, benefit.ErrMissingRole):
		Forbidden(w, "Insufficient permissions for this action")
	case errors.Is(err, benefit.ErrSelfApproval):
		Forbidden(w, "Benefit cannot be approved by its creator")
	case errors.Is(err, benefit.ErrInvalidTransition),
		errors.Is(err, benefit.ErrAlreadyPaid),
		errors.Is(err, benefit.ErrTerminationExists):
		Conflict(w, err.Error())

	// Employee domain errors
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, employee.ErrEmployeeInactive):
		Conflict(w, "Employee is not active")

	default:
		handleKind(w, err)
	}
}

// handleKind falls back to the payroll error kinds for errors that only
// wrap a kind sentinel.
func handleKind(w http.ResponseWriter, err error) {
	switch payroll.Kind(err) {
	case payroll.ErrValidation:
		BadRequest(w, err.Error(), nil)
	case payroll.ErrUnauthorized:
		Forbidden(w, err.Error())
	case payroll.ErrNotFound:
		NotFound(w, err.Error())
	case payroll.ErrConflict:
		Conflict(w, err.Error())
	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}

// ProcessingFailed reports a run whose processing failed. The reverted run
// is returned so the caller sees the new version and exception count.
func ProcessingFailed(w http.ResponseWriter, err error, run interface{}) {
	writeJSON(w, http.StatusUnprocessableEntity, Response{
		Success: false,
		Data:    run,
		Error: &ErrorDetail{
			Code:    "PROCESSING_FAILED",
			Message: err.Error(),
		},
	})
}
