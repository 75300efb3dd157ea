package payroll

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
)

// EscalateIrregularity hands an open irregularity to a higher reviewer.
func (s *PayrollServiceImpl) EscalateIrregularity(ctx context.Context, actor user.Actor, req payroll.EscalateIrregularityRequest) (payroll.DetailResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.DetailResponse{}, err
	}
	if err := s.authorize(actor, user.PermissionIrregularityEscalate); err != nil {
		return payroll.DetailResponse{}, err
	}

	detail, run, err := s.reviewableDetail(ctx, req.DetailID)
	if err != nil {
		return payroll.DetailResponse{}, err
	}
	irr, err := findIrregularity(&detail, req.IrregularityID)
	if err != nil {
		return payroll.DetailResponse{}, err
	}
	switch irr.Status {
	case payroll.IrregularityStatusResolved:
		return payroll.DetailResponse{}, payroll.ErrIrregularityResolved
	case payroll.IrregularityStatusEscalated:
		return payroll.DetailResponse{}, payroll.ErrIrregularityNotOpen
	}

	now := s.now()
	by, reason := actor.EmployeeID, req.Reason
	irr.Status = payroll.IrregularityStatusEscalated
	irr.EscalatedBy = &by
	irr.EscalatedAt = &now
	irr.EscalationReason = &reason
	detail.UpdatedAt = now

	if err := s.details.Update(ctx, detail); err != nil {
		return payroll.DetailResponse{}, fmt.Errorf("failed to escalate irregularity: %w", err)
	}

	s.notify(ctx, notification.TypeIrregularityRaised, run, actor.EmployeeID,
		fmt.Sprintf("Irregularity for employee %s escalated: %s", detail.EmployeeID, irr.Message))
	return mapToDetailResponse(detail), nil
}

// ResolveIrregularity closes one irregularity. Whatever the action, the
// detail's exception text is cleared; the remaining entries keep their own
// status.
func (s *PayrollServiceImpl) ResolveIrregularity(ctx context.Context, actor user.Actor, req payroll.ResolveIrregularityRequest) (payroll.DetailResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.DetailResponse{}, err
	}
	if err := s.authorize(actor, user.PermissionIrregularityResolve); err != nil {
		return payroll.DetailResponse{}, err
	}

	resolution, ok := manualResolution(req.Action)
	if !ok {
		return payroll.DetailResponse{}, payroll.ErrInvalidResolution
	}

	detail, _, err := s.reviewableDetail(ctx, req.DetailID)
	if err != nil {
		return payroll.DetailResponse{}, err
	}
	irr, err := findIrregularity(&detail, req.IrregularityID)
	if err != nil {
		return payroll.DetailResponse{}, err
	}
	if irr.Status == payroll.IrregularityStatusResolved {
		return payroll.DetailResponse{}, payroll.ErrIrregularityResolved
	}

	now := s.now()
	by := actor.EmployeeID
	irr.Status = payroll.IrregularityStatusResolved
	irr.Resolution = &resolution
	irr.ResolvedBy = &by
	irr.ResolvedAt = &now
	if req.Note != "" {
		note := req.Note
		irr.ResolutionNote = &note
	}
	detail.Exception = ""
	detail.UpdatedAt = now

	if err := s.details.Update(ctx, detail); err != nil {
		return payroll.DetailResponse{}, fmt.Errorf("failed to resolve irregularity: %w", err)
	}
	return mapToDetailResponse(detail), nil
}

// reviewableDetail loads a detail together with its run, refusing details of
// a finalized run.
func (s *PayrollServiceImpl) reviewableDetail(ctx context.Context, detailID string) (payroll.EmployeePayrollDetail, payroll.PayrollRun, error) {
	detail, err := s.details.GetByID(ctx, detailID)
	if err != nil {
		return payroll.EmployeePayrollDetail{}, payroll.PayrollRun{}, err
	}
	run, err := s.runs.GetByID(ctx, detail.RunID)
	if err != nil {
		return payroll.EmployeePayrollDetail{}, payroll.PayrollRun{}, err
	}
	if run.Status.Finalized() {
		return payroll.EmployeePayrollDetail{}, payroll.PayrollRun{}, fmt.Errorf("%w: run is %s", payroll.ErrRunFinalized, run.Status)
	}
	return detail, run, nil
}

func findIrregularity(detail *payroll.EmployeePayrollDetail, id string) (*payroll.Irregularity, error) {
	for i := range detail.Irregularities {
		if detail.Irregularities[i].ID == id {
			return &detail.Irregularities[i], nil
		}
	}
	return nil, payroll.ErrIrregularityNotFound
}

func manualResolution(action string) (payroll.Resolution, bool) {
	for _, r := range payroll.ManualResolutions {
		if string(r) == action {
			return r, true
		}
	}
	return "", false
}
