package payroll

import (
	"context"
	"time"
)

// RunRepository persists payroll runs. Update is a compare-and-set on
// Version: it fails with ErrStaleVersion when the stored version differs
// from expectedVersion and bumps the version on success.
type RunRepository interface {
	Create(ctx context.Context, run PayrollRun) (PayrollRun, error)
	GetByID(ctx context.Context, id string) (PayrollRun, error)
	List(ctx context.Context, filter RunFilter) ([]PayrollRun, int64, error)
	ExistsActive(ctx context.Context, entityID *string, period Period, excludeID string) (bool, error)
	Update(ctx context.Context, run PayrollRun, expectedVersion int64) (PayrollRun, error)
}

// DetailRepository persists employee payroll details. Create fails with
// ErrDetailAlreadyExists when (run, employee) is already present.
type DetailRepository interface {
	Create(ctx context.Context, detail EmployeePayrollDetail) (EmployeePayrollDetail, error)
	GetByID(ctx context.Context, id string) (EmployeePayrollDetail, error)
	CountByRun(ctx context.Context, runID string) (int, error)
	ListByRun(ctx context.Context, runID string) ([]EmployeePayrollDetail, error)
	// PreviousForEmployee returns the employee's most recent calculated detail
	// from a non-rejected run whose period is strictly before the given one.
	// Processing-failure details are skipped.
	PreviousForEmployee(ctx context.Context, employeeID string, before Period) (EmployeePayrollDetail, error)
	Update(ctx context.Context, detail EmployeePayrollDetail) error
	MarkRunPaid(ctx context.Context, runID string) error
	DeleteByRun(ctx context.Context, runID string) error
}

type PayslipRepository interface {
	Create(ctx context.Context, payslip Payslip) (Payslip, error)
	GetByEmployeeRun(ctx context.Context, employeeID string, runID string) (Payslip, error)
	ListByRun(ctx context.Context, runID string) ([]Payslip, error)
	MarkRunPaid(ctx context.Context, runID string, paidAt time.Time) (int, error)
	DeleteByRun(ctx context.Context, runID string) error
}
