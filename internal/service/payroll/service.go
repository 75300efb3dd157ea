package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/benefit"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/refund"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
)

const (
	defaultPage  = 1
	defaultLimit = 20
)

// CapabilityChecker answers whether any of roles grants perm.
type CapabilityChecker interface {
	Can(roles []user.Role, perm user.Permission) (bool, error)
}

// RunProcessor computes a run's details and totals.
type RunProcessor interface {
	ProcessRun(ctx context.Context, runID string) (payroll.PayrollRun, error)
}

type PayrollServiceImpl struct {
	tx        database.Transactor
	runs      payroll.RunRepository
	details   payroll.DetailRepository
	payslips  payroll.PayslipRepository
	refunds   refund.RefundRepository
	benefits  benefit.BenefitRepository
	employees employee.EmployeeRepository
	processor RunProcessor
	caps      CapabilityChecker
	notifier  notification.Service
	now       func() time.Time
}

func NewPayrollService(
	tx database.Transactor,
	runs payroll.RunRepository,
	details payroll.DetailRepository,
	payslips payroll.PayslipRepository,
	refunds refund.RefundRepository,
	benefits benefit.BenefitRepository,
	employees employee.EmployeeRepository,
	processor RunProcessor,
	caps CapabilityChecker,
	notifier notification.Service,
) payroll.PayrollService {
	return &PayrollServiceImpl{
		tx:        tx,
		runs:      runs,
		details:   details,
		payslips:  payslips,
		refunds:   refunds,
		benefits:  benefits,
		employees: employees,
		processor: processor,
		caps:      caps,
		notifier:  notifier,
		now:       time.Now,
	}
}

// ========== RUNS ==========

func (s *PayrollServiceImpl) GetRun(ctx context.Context, actor user.Actor, runID string) (payroll.RunResponse, error) {
	if err := s.authorize(actor, user.PermissionRunView); err != nil {
		return payroll.RunResponse{}, err
	}

	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return payroll.RunResponse{}, err
	}
	return mapToRunResponse(run), nil
}

func (s *PayrollServiceImpl) ListRuns(ctx context.Context, actor user.Actor, req payroll.ListRunsRequest) (payroll.ListRunsResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.ListRunsResponse{}, err
	}
	if err := s.authorize(actor, user.PermissionRunView); err != nil {
		return payroll.ListRunsResponse{}, err
	}

	filter := payroll.RunFilter{
		EntityID: req.EntityID,
		Page:     req.Page,
		Limit:    req.Limit,
	}
	if filter.Page == 0 {
		filter.Page = defaultPage
	}
	if filter.Limit == 0 {
		filter.Limit = defaultLimit
	}
	if req.Period != nil {
		p, err := payroll.ParsePeriod(*req.Period)
		if err != nil {
			return payroll.ListRunsResponse{}, err
		}
		filter.Period = &p
	}
	if req.Status != nil {
		status := payroll.RunStatus(*req.Status)
		filter.Status = &status
	}

	runs, totalCount, err := s.runs.List(ctx, filter)
	if err != nil {
		return payroll.ListRunsResponse{}, fmt.Errorf("failed to list payroll runs: %w", err)
	}

	responses := make([]payroll.RunResponse, 0, len(runs))
	for _, r := range runs {
		responses = append(responses, mapToRunResponse(r))
	}

	return payroll.ListRunsResponse{
		Runs:       responses,
		TotalCount: totalCount,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(totalCount) / float64(filter.Limit))),
	}, nil
}

// ========== DETAILS & PAYSLIPS ==========

func (s *PayrollServiceImpl) ListDetails(ctx context.Context, actor user.Actor, runID string) ([]payroll.DetailResponse, error) {
	if err := s.authorize(actor, user.PermissionRunView); err != nil {
		return nil, err
	}
	if _, err := s.runs.GetByID(ctx, runID); err != nil {
		return nil, err
	}

	details, err := s.details.ListByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll details: %w", err)
	}

	responses := make([]payroll.DetailResponse, 0, len(details))
	for _, d := range details {
		responses = append(responses, mapToDetailResponse(d))
	}
	return responses, nil
}

// GetPayslip returns an employee's payslip for a run. Employees may read
// their own; anyone else needs payslip.view_all.
func (s *PayrollServiceImpl) GetPayslip(ctx context.Context, actor user.Actor, runID string, employeeID string) (payroll.PayslipResponse, error) {
	perm := user.PermissionPayslipViewAll
	if actor.EmployeeID != "" && actor.EmployeeID == employeeID {
		perm = user.PermissionPayslipViewOwn
	}
	if err := s.authorize(actor, perm); err != nil {
		return payroll.PayslipResponse{}, err
	}

	payslip, err := s.payslips.GetByEmployeeRun(ctx, employeeID, runID)
	if err != nil {
		return payroll.PayslipResponse{}, err
	}
	return mapToPayslipResponse(payslip), nil
}

// ========== HELPERS ==========

func (s *PayrollServiceImpl) authorize(actor user.Actor, perm user.Permission) error {
	ok, err := s.caps.Can(actor.Roles, perm)
	if err != nil {
		return fmt.Errorf("failed to check permission %s: %w", perm, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", perm, payroll.ErrMissingRole)
	}
	return nil
}

// notify queues an event. Delivery problems never fail the caller.
func (s *PayrollServiceImpl) notify(ctx context.Context, eventType notification.EventType, run payroll.PayrollRun, actorID, message string) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Queue(ctx, notification.Event{
		Type:      eventType,
		SubjectID: run.ID,
		ActorID:   actorID,
		Message:   message,
		Data: map[string]interface{}{
			"period":  run.Period.String(),
			"status":  string(run.Status),
			"version": run.Version,
		},
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("failed to queue payroll notification",
			"run_id", run.ID,
			"event_type", eventType,
			"error", err,
		)
	}
}

func mapToRunResponse(r payroll.PayrollRun) payroll.RunResponse {
	irregularities := r.Totals.Irregularities
	if irregularities == nil {
		irregularities = []string{}
	}

	return payroll.RunResponse{
		ID:            r.ID,
		EntityID:      r.EntityID,
		Period:        r.Period.String(),
		Status:        string(r.Status),
		PaymentStatus: string(r.PaymentStatus),
		Totals: payroll.TotalsResponse{
			EmployeeCount:   r.Totals.EmployeeCount,
			ExceptionsCount: r.Totals.ExceptionsCount,
			Gross:           r.Totals.Gross,
			Net:             r.Totals.Net,
			Tax:             r.Totals.Tax,
			Insurance:       r.Totals.Insurance,
			Penalties:       r.Totals.Penalties,
			Allowances:      r.Totals.Allowances,
			Overtime:        r.Totals.Overtime,
			Refunds:         r.Totals.Refunds,
			Bonuses:         r.Totals.Bonuses,
			Irregularities:  irregularities,
		},
		SpecialistID:        r.SpecialistID,
		SubmittedAt:         r.SubmittedAt,
		ManagerID:           r.ManagerID,
		ManagerApprovedAt:   r.ManagerApprovedAt,
		FinanceID:           r.FinanceID,
		FinanceApprovedAt:   r.FinanceApprovedAt,
		RejectionReason:     r.RejectionReason,
		UnlockReason:        r.UnlockReason,
		LockedAt:            r.LockedAt,
		PayslipsGenerated:   r.PayslipsGenerated,
		PayslipsGeneratedAt: r.PayslipsGeneratedAt,
		Version:             r.Version,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

func mapToIrregularityResponse(irr payroll.Irregularity) payroll.IrregularityResponse {
	var resolution *string
	if irr.Resolution != nil {
		str := string(*irr.Resolution)
		resolution = &str
	}

	return payroll.IrregularityResponse{
		ID:               irr.ID,
		Code:             string(irr.Code),
		Message:          irr.Message,
		Severity:         string(irr.Severity),
		Status:           string(irr.Status),
		EscalatedBy:      irr.EscalatedBy,
		EscalatedAt:      irr.EscalatedAt,
		EscalationReason: irr.EscalationReason,
		ResolvedBy:       irr.ResolvedBy,
		ResolvedAt:       irr.ResolvedAt,
		Resolution:       resolution,
		ResolutionNote:   irr.ResolutionNote,
	}
}

func mapToPenaltyResponses(lines []payroll.PenaltyLine) []payroll.PenaltyResponse {
	result := make([]payroll.PenaltyResponse, 0, len(lines))
	for _, p := range lines {
		result = append(result, payroll.PenaltyResponse{
			Kind:   string(p.Kind),
			Amount: p.Amount,
			Reason: p.Reason,
		})
	}
	return result
}

func mapToRefundResponses(lines []payroll.RefundLine) []payroll.RefundLineResponse {
	result := make([]payroll.RefundLineResponse, 0, len(lines))
	for _, r := range lines {
		result = append(result, payroll.RefundLineResponse{
			RefundID:    r.RefundID,
			Amount:      r.Amount,
			Description: r.Description,
			DisputeID:   r.DisputeID,
			ClaimID:     r.ClaimID,
		})
	}
	return result
}

func mapToDetailResponse(d payroll.EmployeePayrollDetail) payroll.DetailResponse {
	irregularities := make([]payroll.IrregularityResponse, 0, len(d.Irregularities))
	for _, irr := range d.Irregularities {
		irregularities = append(irregularities, mapToIrregularityResponse(irr))
	}

	return payroll.DetailResponse{
		ID:                   d.ID,
		RunID:                d.RunID,
		EmployeeID:           d.EmployeeID,
		BaseSalary:           d.BaseSalary,
		Allowances:           d.Allowances,
		AllowanceBreakdown:   d.AllowanceBreakdown,
		GrossSalary:          d.GrossSalary,
		ProratedGross:        d.ProratedGross,
		Tax:                  d.Tax.Amount,
		TaxRule:              d.Tax.RuleName,
		Insurance:            d.Insurance.Amount,
		InsuranceBracket:     d.Insurance.BracketName,
		Penalties:            mapToPenaltyResponses(d.Penalties),
		OvertimePay:          d.Overtime.Amount,
		OvertimeReason:       d.Overtime.Reason,
		ActualMinutes:        d.Attendance.ActualMinutes,
		ScheduledMinutes:     d.Attendance.ScheduledMinutes,
		MissingMinutes:       d.Attendance.MissingMinutes,
		LatenessMinutes:      d.Attendance.LatenessMinutes,
		OvertimeMinutes:      d.Attendance.OvertimeMinutes,
		DaysWorked:           d.Attendance.DaysWorked,
		DaysInMonth:          d.Attendance.DaysInMonth,
		UnpaidLeaveDays:      d.Attendance.UnpaidLeaveDays,
		UnpaidLeaveDeduction: d.Attendance.UnpaidLeaveDeduction,
		HourlyRate:           d.Attendance.HourlyRate,
		Refunds:              mapToRefundResponses(d.Refunds),
		RefundTotal:          d.RefundTotal,
		RefundsDeferred:      d.RefundsDeferred,
		BonusTotal:           d.BonusTotal,
		BenefitTotal:         d.BenefitTotal,
		NetSalary:            d.NetSalary,
		NetPay:               d.NetPay,
		BankStatus:           string(d.BankStatus),
		PaymentStatus:        string(d.PaymentStatus),
		FloorAdjusted:        d.FloorAdjusted,
		Exception:            d.Exception,
		Irregularities:       irregularities,
	}
}

func mapToPayslipResponse(p payroll.Payslip) payroll.PayslipResponse {
	return payroll.PayslipResponse{
		ID:              p.ID,
		RunID:           p.RunID,
		EmployeeID:      p.EmployeeID,
		Period:          p.Period.String(),
		BaseSalary:      p.BaseSalary,
		Allowances:      p.Allowances,
		Overtime:        p.Overtime,
		Bonuses:         p.Bonuses,
		Benefits:        p.Benefits,
		Refunds:         mapToRefundResponses(p.Refunds),
		Tax:             p.Tax,
		Insurance:       p.Insurance,
		Penalties:       mapToPenaltyResponses(p.Penalties),
		TotalEarnings:   p.TotalEarnings,
		TotalDeductions: p.TotalDeductions,
		Adjustment:      p.Adjustment,
		NetPay:          p.NetPay,
		PaymentStatus:   string(p.PaymentStatus),
		PaidAt:          p.PaidAt,
	}
}
