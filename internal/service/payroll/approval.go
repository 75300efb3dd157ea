package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
)

// transition is one edge of the run state machine together with the
// permission that unlocks it.
type transition struct {
	perm           user.Permission
	from           []payroll.RunStatus
	to             payroll.RunStatus
	reasonRequired bool
}

var (
	submitTransition = transition{
		perm: user.PermissionRunSubmit,
		from: []payroll.RunStatus{payroll.RunStatusDraft},
		to:   payroll.RunStatusUnderReview,
	}
	approveReviewTransition = transition{
		perm: user.PermissionRunApproveReview,
		from: []payroll.RunStatus{payroll.RunStatusUnderReview},
		to:   payroll.RunStatusPendingFinanceApproval,
	}
	approveFinanceTransition = transition{
		perm: user.PermissionRunApproveFinance,
		from: []payroll.RunStatus{payroll.RunStatusPendingFinanceApproval},
		to:   payroll.RunStatusApproved,
	}
	lockTransition = transition{
		perm: user.PermissionRunLock,
		from: []payroll.RunStatus{payroll.RunStatusApproved, payroll.RunStatusUnlocked},
		to:   payroll.RunStatusLocked,
	}
	unlockTransition = transition{
		perm:           user.PermissionRunUnlock,
		from:           []payroll.RunStatus{payroll.RunStatusLocked},
		to:             payroll.RunStatusUnlocked,
		reasonRequired: true,
	}
	rejectTransition = transition{
		perm:           user.PermissionRunReject,
		from:           []payroll.RunStatus{payroll.RunStatusDraft, payroll.RunStatusUnderReview},
		to:             payroll.RunStatusRejected,
		reasonRequired: true,
	}
	editTransition = transition{
		perm: user.PermissionRunEdit,
		from: []payroll.RunStatus{payroll.RunStatusRejected},
		to:   payroll.RunStatusDraft,
	}
)

func (t transition) allowedFrom(status payroll.RunStatus) bool {
	for _, s := range t.from {
		if s == status {
			return true
		}
	}
	return false
}

// CreateRun opens a draft run. Only one non-rejected run may exist per
// entity and period.
func (s *PayrollServiceImpl) CreateRun(ctx context.Context, actor user.Actor, req payroll.CreateRunRequest) (payroll.RunResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.RunResponse{}, err
	}
	if err := s.authorize(actor, user.PermissionRunCreate); err != nil {
		return payroll.RunResponse{}, err
	}

	period, err := payroll.ParsePeriod(req.Period)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	exists, err := s.runs.ExistsActive(ctx, req.EntityID, period, "")
	if err != nil {
		return payroll.RunResponse{}, fmt.Errorf("failed to check existing runs: %w", err)
	}
	if exists {
		return payroll.RunResponse{}, payroll.ErrDuplicatePeriod
	}

	now := s.now()
	run, err := s.runs.Create(ctx, payroll.PayrollRun{
		ID:            newID(),
		EntityID:      req.EntityID,
		Period:        period,
		Status:        payroll.RunStatusDraft,
		PaymentStatus: payroll.PaymentStatusPending,
		Totals:        SumDetails(nil),
		SpecialistID:  actor.EmployeeID,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return payroll.RunResponse{}, err
	}

	s.notify(ctx, notification.TypeRunCreated, run, actor.EmployeeID,
		fmt.Sprintf("Payroll run for %s created", run.Period))
	return mapToRunResponse(run), nil
}

// SubmitForReview moves a draft under review and processes it. When
// processing fails the run is put back to draft, its exception counter is
// incremented and the reverted run is returned with ErrRunProcessingFailed.
func (s *PayrollServiceImpl) SubmitForReview(ctx context.Context, actor user.Actor, req payroll.TransitionRequest) (payroll.RunResponse, error) {
	run, err := s.guard(ctx, actor, req, submitTransition)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	now := s.now()
	run.Status = payroll.RunStatusUnderReview
	run.SubmittedAt = &now
	run.UpdatedAt = now
	run, err = s.runs.Update(ctx, run, run.Version)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	processed, procErr := s.processor.ProcessRun(ctx, run.ID)
	if procErr != nil {
		slog.Error("payroll run processing failed", "run_id", run.ID, "error", procErr)

		reverted, err := s.revertToDraft(context.WithoutCancel(ctx), run.ID, procErr)
		if err != nil {
			return payroll.RunResponse{}, fmt.Errorf("%w: %v (revert failed: %v)", payroll.ErrRunProcessingFailed, procErr, err)
		}
		s.notify(ctx, notification.TypeRunProcessingError, reverted, actor.EmployeeID,
			fmt.Sprintf("Processing of payroll run for %s failed", reverted.Period))
		return mapToRunResponse(reverted), fmt.Errorf("%w: %v", payroll.ErrRunProcessingFailed, procErr)
	}

	s.notify(ctx, notification.TypeRunSubmitted, processed, actor.EmployeeID,
		fmt.Sprintf("Payroll run for %s submitted for review with %d employees", processed.Period, processed.Totals.EmployeeCount))
	return mapToRunResponse(processed), nil
}

func (s *PayrollServiceImpl) revertToDraft(ctx context.Context, runID string, cause error) (payroll.PayrollRun, error) {
	var reverted payroll.PayrollRun
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		run, err := s.runs.GetByID(ctx, runID)
		if err != nil {
			return err
		}

		// Results of a concurrent or earlier successful pass are not ours to clear.
		if !errors.Is(cause, payroll.ErrRunAlreadyProcessed) && !errors.Is(cause, payroll.ErrRunBusy) {
			if err := s.resetResults(ctx, run.ID); err != nil {
				return err
			}
			exceptions := run.Totals.ExceptionsCount
			run.Totals = SumDetails(nil)
			run.Totals.ExceptionsCount = exceptions
			run.ProcessedAt = nil
			run.PayslipsGenerated = false
			run.PayslipsGeneratedAt = nil
		}

		run.Status = payroll.RunStatusDraft
		run.SubmittedAt = nil
		run.Totals.ExceptionsCount++
		run.UpdatedAt = s.now()

		reverted, err = s.runs.Update(ctx, run, run.Version)
		return err
	})
	return reverted, err
}

// ApproveReview moves a run to pending finance approval and auto-resolves
// every open irregularity on it.
func (s *PayrollServiceImpl) ApproveReview(ctx context.Context, actor user.Actor, req payroll.TransitionRequest) (payroll.RunResponse, error) {
	run, err := s.guard(ctx, actor, req, approveReviewTransition)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	var updated payroll.PayrollRun
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		now := s.now()
		details, err := s.details.ListByRun(ctx, run.ID)
		if err != nil {
			return fmt.Errorf("failed to list payroll details: %w", err)
		}
		for _, d := range details {
			if !autoResolve(&d, actor.EmployeeID, now) {
				continue
			}
			if err := s.details.Update(ctx, d); err != nil {
				return fmt.Errorf("failed to auto-resolve irregularities: %w", err)
			}
		}

		approver := actor.EmployeeID
		run.Status = payroll.RunStatusPendingFinanceApproval
		run.ManagerID = &approver
		run.ManagerApprovedAt = &now
		run.UpdatedAt = now
		updated, err = s.runs.Update(ctx, run, run.Version)
		return err
	})
	if err != nil {
		return payroll.RunResponse{}, err
	}

	s.notify(ctx, notification.TypeRunReviewApproved, updated, actor.EmployeeID,
		fmt.Sprintf("Payroll run for %s is awaiting finance approval", updated.Period))
	return mapToRunResponse(updated), nil
}

// ApproveFinance approves the run for payment and marks every payslip paid.
func (s *PayrollServiceImpl) ApproveFinance(ctx context.Context, actor user.Actor, req payroll.TransitionRequest) (payroll.RunResponse, error) {
	run, err := s.guard(ctx, actor, req, approveFinanceTransition)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	var updated payroll.PayrollRun
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		now := s.now()
		if _, err := s.payslips.MarkRunPaid(ctx, run.ID, now); err != nil {
			return fmt.Errorf("failed to mark payslips paid: %w", err)
		}
		if err := s.details.MarkRunPaid(ctx, run.ID); err != nil {
			return fmt.Errorf("failed to mark details paid: %w", err)
		}

		approver := actor.EmployeeID
		run.Status = payroll.RunStatusApproved
		run.FinanceID = &approver
		run.FinanceApprovedAt = &now
		run.PaymentStatus = payroll.PaymentStatusPaid
		run.PaidAt = &now
		run.UpdatedAt = now
		updated, err = s.runs.Update(ctx, run, run.Version)
		return err
	})
	if err != nil {
		return payroll.RunResponse{}, err
	}

	s.notify(ctx, notification.TypeRunApproved, updated, actor.EmployeeID,
		fmt.Sprintf("Payroll run for %s approved for payment", updated.Period))
	return mapToRunResponse(updated), nil
}

func (s *PayrollServiceImpl) Lock(ctx context.Context, actor user.Actor, req payroll.TransitionRequest) (payroll.RunResponse, error) {
	run, err := s.guard(ctx, actor, req, lockTransition)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	now := s.now()
	by := actor.EmployeeID
	run.Status = payroll.RunStatusLocked
	run.LockedBy = &by
	run.LockedAt = &now
	run.UpdatedAt = now
	updated, err := s.runs.Update(ctx, run, run.Version)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	s.notify(ctx, notification.TypeRunLocked, updated, actor.EmployeeID,
		fmt.Sprintf("Payroll run for %s locked", updated.Period))
	return mapToRunResponse(updated), nil
}

func (s *PayrollServiceImpl) Unlock(ctx context.Context, actor user.Actor, req payroll.TransitionRequest) (payroll.RunResponse, error) {
	run, err := s.guard(ctx, actor, req, unlockTransition)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	now := s.now()
	by, reason := actor.EmployeeID, req.Reason
	run.Status = payroll.RunStatusUnlocked
	run.UnlockedBy = &by
	run.UnlockedAt = &now
	run.UnlockReason = &reason
	run.UpdatedAt = now
	updated, err := s.runs.Update(ctx, run, run.Version)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	s.notify(ctx, notification.TypeRunUnlocked, updated, actor.EmployeeID,
		fmt.Sprintf("Payroll run for %s unlocked: %s", updated.Period, reason))
	return mapToRunResponse(updated), nil
}

func (s *PayrollServiceImpl) Reject(ctx context.Context, actor user.Actor, req payroll.TransitionRequest) (payroll.RunResponse, error) {
	run, err := s.guard(ctx, actor, req, rejectTransition)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	now := s.now()
	by, reason := actor.EmployeeID, req.Reason
	run.Status = payroll.RunStatusRejected
	run.RejectedBy = &by
	run.RejectedAt = &now
	run.RejectionReason = &reason
	run.UpdatedAt = now
	updated, err := s.runs.Update(ctx, run, run.Version)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	s.notify(ctx, notification.TypeRunRejected, updated, actor.EmployeeID,
		fmt.Sprintf("Payroll run for %s rejected: %s", updated.Period, reason))
	return mapToRunResponse(updated), nil
}

// EditRejected reopens a rejected run as a draft. Previously computed results
// are discarded so the run can be processed again.
func (s *PayrollServiceImpl) EditRejected(ctx context.Context, actor user.Actor, req payroll.TransitionRequest) (payroll.RunResponse, error) {
	run, err := s.guard(ctx, actor, req, editTransition)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	exists, err := s.runs.ExistsActive(ctx, run.EntityID, run.Period, run.ID)
	if err != nil {
		return payroll.RunResponse{}, fmt.Errorf("failed to check existing runs: %w", err)
	}
	if exists {
		return payroll.RunResponse{}, payroll.ErrDuplicatePeriod
	}

	var updated payroll.PayrollRun
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.resetResults(ctx, run.ID); err != nil {
			return err
		}

		exceptions := run.Totals.ExceptionsCount
		run.Status = payroll.RunStatusDraft
		run.Totals = SumDetails(nil)
		run.Totals.ExceptionsCount = exceptions
		run.RejectedBy = nil
		run.RejectedAt = nil
		run.RejectionReason = nil
		run.SubmittedAt = nil
		run.ProcessedAt = nil
		run.PayslipsGenerated = false
		run.PayslipsGeneratedAt = nil
		run.UpdatedAt = s.now()
		updated, err = s.runs.Update(ctx, run, run.Version)
		return err
	})
	if err != nil {
		return payroll.RunResponse{}, err
	}

	s.notify(ctx, notification.TypeRunReopened, updated, actor.EmployeeID,
		fmt.Sprintf("Payroll run for %s reopened for editing", updated.Period))
	return mapToRunResponse(updated), nil
}

// guard runs every check a transition needs before it may mutate anything:
// request shape, capability, version, source status and approver identity.
func (s *PayrollServiceImpl) guard(ctx context.Context, actor user.Actor, req payroll.TransitionRequest, t transition) (payroll.PayrollRun, error) {
	if err := req.Validate(); err != nil {
		return payroll.PayrollRun{}, err
	}
	if t.reasonRequired && validator.IsEmpty(req.Reason) {
		return payroll.PayrollRun{}, payroll.ErrReasonRequired
	}
	if err := s.authorize(actor, t.perm); err != nil {
		return payroll.PayrollRun{}, err
	}

	run, err := s.runs.GetByID(ctx, req.RunID)
	if err != nil {
		return payroll.PayrollRun{}, err
	}
	if run.Version != req.ExpectedVersion {
		return payroll.PayrollRun{}, payroll.ErrStaleVersion
	}
	if !t.allowedFrom(run.Status) {
		return payroll.PayrollRun{}, fmt.Errorf("%w: cannot move from %s to %s", payroll.ErrInvalidTransition, run.Status, t.to)
	}

	switch t.perm {
	case user.PermissionRunApproveReview:
		if actor.EmployeeID == run.SpecialistID {
			return payroll.PayrollRun{}, payroll.ErrSelfApproval
		}
		if err := s.requireActive(ctx, actor.EmployeeID); err != nil {
			return payroll.PayrollRun{}, err
		}
	case user.PermissionRunApproveFinance:
		if actor.EmployeeID == run.SpecialistID || (run.ManagerID != nil && actor.EmployeeID == *run.ManagerID) {
			return payroll.PayrollRun{}, payroll.ErrSelfApproval
		}
		if run.ManagerApprovedAt == nil {
			return payroll.PayrollRun{}, payroll.ErrManagerApprovalMissing
		}
		if err := s.requireActive(ctx, actor.EmployeeID); err != nil {
			return payroll.PayrollRun{}, err
		}
	}

	return run, nil
}

func (s *PayrollServiceImpl) requireActive(ctx context.Context, employeeID string) error {
	emp, err := s.employees.GetByID(ctx, employeeID)
	if errors.Is(err, employee.ErrEmployeeNotFound) {
		return payroll.ErrInactiveApprover
	}
	if err != nil {
		return fmt.Errorf("failed to get approver: %w", err)
	}
	if !emp.IsActive() {
		return payroll.ErrInactiveApprover
	}
	return nil
}

// resetResults removes a run's details and payslips and releases the refunds
// and benefits they paid.
func (s *PayrollServiceImpl) resetResults(ctx context.Context, runID string) error {
	if err := s.payslips.DeleteByRun(ctx, runID); err != nil {
		return fmt.Errorf("failed to delete payslips: %w", err)
	}
	if err := s.details.DeleteByRun(ctx, runID); err != nil {
		return fmt.Errorf("failed to delete payroll details: %w", err)
	}
	if _, err := s.refunds.RevertRun(ctx, runID); err != nil {
		return fmt.Errorf("failed to revert refunds: %w", err)
	}
	if _, err := s.benefits.RevertRun(ctx, runID); err != nil {
		return fmt.Errorf("failed to revert benefits: %w", err)
	}
	return nil
}

// autoResolve resolves every unresolved irregularity on d. It reports whether
// d changed.
func autoResolve(d *payroll.EmployeePayrollDetail, actorID string, now time.Time) bool {
	changed := d.Exception != ""
	resolution := payroll.ResolutionAutoResolved
	for i := range d.Irregularities {
		irr := &d.Irregularities[i]
		if irr.Status == payroll.IrregularityStatusResolved {
			continue
		}
		by, at := actorID, now
		irr.Status = payroll.IrregularityStatusResolved
		irr.Resolution = &resolution
		irr.ResolvedBy = &by
		irr.ResolvedAt = &at
		changed = true
	}
	d.Exception = ""
	if changed {
		d.UpdatedAt = now
	}
	return changed
}
