package user

import "strings"

// Permission is "<resource>.<action>".
type Permission string

const (
	// Payroll runs
	PermissionRunCreate         Permission = "payroll_run.create"
	PermissionRunView           Permission = "payroll_run.view"
	PermissionRunSubmit         Permission = "payroll_run.submit"
	PermissionRunReject         Permission = "payroll_run.reject"
	PermissionRunEdit           Permission = "payroll_run.edit"
	PermissionRunApproveReview  Permission = "payroll_run.approve_review"
	PermissionRunApproveFinance Permission = "payroll_run.approve_finance"
	PermissionRunLock           Permission = "payroll_run.lock"
	PermissionRunUnlock         Permission = "payroll_run.unlock"
	PermissionRunExport         Permission = "payroll_run.export"

	// Irregularities
	PermissionIrregularityEscalate Permission = "irregularity.escalate"
	PermissionIrregularityResolve  Permission = "irregularity.resolve"

	// Signing bonuses and termination benefits
	PermissionBenefitView    Permission = "benefit.view"
	PermissionBenefitCreate  Permission = "benefit.create"
	PermissionBenefitApprove Permission = "benefit.approve"
	PermissionBenefitReject  Permission = "benefit.reject"

	// Payslips
	PermissionPayslipViewOwn Permission = "payslip.view_own"
	PermissionPayslipViewAll Permission = "payslip.view_all"
)

// Resource returns the part before the first dot.
func (p Permission) Resource() string {
	resource, _, _ := strings.Cut(string(p), ".")
	return resource
}

// Action returns the part after the first dot.
func (p Permission) Action() string {
	_, action, _ := strings.Cut(string(p), ".")
	return action
}

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RolePayrollSpecialist: {
		PermissionRunCreate,
		PermissionRunView,
		PermissionRunSubmit,
		PermissionRunReject,
		PermissionRunEdit,
		PermissionRunExport,
		PermissionIrregularityEscalate,
		PermissionBenefitView,
		PermissionBenefitCreate,
		PermissionPayslipViewOwn,
		PermissionPayslipViewAll,
	},
	RolePayrollManager: {
		PermissionRunView,
		PermissionRunApproveReview,
		PermissionRunLock,
		PermissionRunUnlock,
		PermissionRunExport,
		PermissionIrregularityEscalate,
		PermissionIrregularityResolve,
		PermissionBenefitView,
		PermissionBenefitApprove,
		PermissionBenefitReject,
		PermissionPayslipViewOwn,
		PermissionPayslipViewAll,
	},
	RoleFinance: {
		PermissionRunView,
		PermissionRunApproveFinance,
		PermissionRunExport,
		PermissionIrregularityResolve,
		PermissionBenefitView,
		PermissionPayslipViewOwn,
		PermissionPayslipViewAll,
	},
	RoleEmployee: {
		PermissionPayslipViewOwn,
	},
}
