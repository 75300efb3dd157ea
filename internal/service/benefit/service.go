package benefit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/benefit"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
	"github.com/google/uuid"
)

// CapabilityChecker answers whether any of roles grants perm.
type CapabilityChecker interface {
	Can(roles []user.Role, perm user.Permission) (bool, error)
}

type BenefitServiceImpl struct {
	benefitRepo  benefit.BenefitRepository
	employeeRepo employee.EmployeeRepository
	caps         CapabilityChecker
	notifier     notification.Service
	now          func() time.Time
}

func NewBenefitService(
	benefitRepo benefit.BenefitRepository,
	employeeRepo employee.EmployeeRepository,
	caps CapabilityChecker,
	notifier notification.Service,
) benefit.BenefitService {
	return &BenefitServiceImpl{
		benefitRepo:  benefitRepo,
		employeeRepo: employeeRepo,
		caps:         caps,
		notifier:     notifier,
		now:          time.Now,
	}
}

// Create records a pending signing bonus or termination benefit. An employee
// has at most one termination benefit.
func (s *BenefitServiceImpl) Create(ctx context.Context, actor user.Actor, req benefit.CreateBenefitRequest) (benefit.BenefitResponse, error) {
	if err := req.Validate(); err != nil {
		return benefit.BenefitResponse{}, err
	}
	if err := s.authorize(actor, user.PermissionBenefitCreate); err != nil {
		return benefit.BenefitResponse{}, err
	}

	if _, err := s.employeeRepo.GetByID(ctx, req.EmployeeID); err != nil {
		return benefit.BenefitResponse{}, err
	}

	kind := benefit.Kind(req.Kind)
	if kind == benefit.KindTerminationBenefit {
		exists, err := s.benefitRepo.ExistsForEmployee(ctx, req.EmployeeID, kind)
		if err != nil {
			return benefit.BenefitResponse{}, fmt.Errorf("failed to check termination benefit: %w", err)
		}
		if exists {
			return benefit.BenefitResponse{}, benefit.ErrTerminationExists
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return benefit.BenefitResponse{}, fmt.Errorf("failed to generate benefit id: %w", err)
	}

	now := s.now()
	createdBy := actor.EmployeeID
	created, err := s.benefitRepo.Create(ctx, benefit.Benefit{
		ID:         id.String(),
		Kind:       kind,
		EmployeeID: req.EmployeeID,
		Amount:     req.Amount.Round(2),
		Status:     benefit.StatusPending,
		Notes:      req.Notes,
		CreatedBy:  &createdBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return benefit.BenefitResponse{}, fmt.Errorf("failed to create benefit: %w", err)
	}
	return mapToBenefitResponse(created), nil
}

func (s *BenefitServiceImpl) Get(ctx context.Context, actor user.Actor, id string) (benefit.BenefitResponse, error) {
	if err := s.authorize(actor, user.PermissionBenefitView); err != nil {
		return benefit.BenefitResponse{}, err
	}

	b, err := s.benefitRepo.GetByID(ctx, id)
	if err != nil {
		return benefit.BenefitResponse{}, err
	}
	return mapToBenefitResponse(b), nil
}

// Approve moves a pending benefit to approved. The next run that includes
// the employee pays it.
func (s *BenefitServiceImpl) Approve(ctx context.Context, actor user.Actor, id string) (benefit.BenefitResponse, error) {
	if !validator.IsValidUUID(id) {
		return benefit.BenefitResponse{}, validator.ValidationErrors{{Field: "id", Message: "must be a valid UUID"}}
	}
	if err := s.authorize(actor, user.PermissionBenefitApprove); err != nil {
		return benefit.BenefitResponse{}, err
	}

	b, err := s.benefitRepo.GetByID(ctx, id)
	if err != nil {
		return benefit.BenefitResponse{}, err
	}
	if !b.Status.CanTransition(benefit.StatusApproved) {
		return benefit.BenefitResponse{}, fmt.Errorf("%w: %s to %s", benefit.ErrInvalidTransition, b.Status, benefit.StatusApproved)
	}
	if b.CreatedBy != nil && *b.CreatedBy == actor.EmployeeID {
		return benefit.BenefitResponse{}, benefit.ErrSelfApproval
	}

	from := b.Status
	now := s.now()
	by := actor.EmployeeID
	b.Status = benefit.StatusApproved
	b.ApprovedBy = &by
	b.ApprovedAt = &now
	b.UpdatedAt = now
	if err := s.benefitRepo.Update(ctx, b, from); err != nil {
		return benefit.BenefitResponse{}, fmt.Errorf("failed to approve benefit: %w", err)
	}

	s.notify(ctx, notification.TypeBenefitApproved, b, actor.EmployeeID,
		fmt.Sprintf("%s of %s approved", kindLabel(b.Kind), b.Amount.StringFixed(2)))
	return mapToBenefitResponse(b), nil
}

func (s *BenefitServiceImpl) Reject(ctx context.Context, actor user.Actor, req benefit.RejectBenefitRequest) (benefit.BenefitResponse, error) {
	if err := req.Validate(); err != nil {
		return benefit.BenefitResponse{}, err
	}
	if validator.IsEmpty(req.Reason) {
		return benefit.BenefitResponse{}, benefit.ErrReasonRequired
	}
	if err := s.authorize(actor, user.PermissionBenefitReject); err != nil {
		return benefit.BenefitResponse{}, err
	}

	b, err := s.benefitRepo.GetByID(ctx, req.ID)
	if err != nil {
		return benefit.BenefitResponse{}, err
	}
	if !b.Status.CanTransition(benefit.StatusRejected) {
		return benefit.BenefitResponse{}, fmt.Errorf("%w: %s to %s", benefit.ErrInvalidTransition, b.Status, benefit.StatusRejected)
	}

	from := b.Status
	now := s.now()
	by, reason := actor.EmployeeID, req.Reason
	b.Status = benefit.StatusRejected
	b.RejectedBy = &by
	b.RejectedAt = &now
	b.RejectionReason = &reason
	b.UpdatedAt = now
	if err := s.benefitRepo.Update(ctx, b, from); err != nil {
		return benefit.BenefitResponse{}, fmt.Errorf("failed to reject benefit: %w", err)
	}

	s.notify(ctx, notification.TypeBenefitRejected, b, actor.EmployeeID,
		fmt.Sprintf("%s rejected: %s", kindLabel(b.Kind), reason))
	return mapToBenefitResponse(b), nil
}

func (s *BenefitServiceImpl) authorize(actor user.Actor, perm user.Permission) error {
	ok, err := s.caps.Can(actor.Roles, perm)
	if err != nil {
		return fmt.Errorf("failed to check permission %s: %w", perm, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", perm, benefit.ErrMissingRole)
	}
	return nil
}

func (s *BenefitServiceImpl) notify(ctx context.Context, eventType notification.EventType, b benefit.Benefit, actorID, message string) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Queue(ctx, notification.Event{
		Type:      eventType,
		SubjectID: b.ID,
		ActorID:   actorID,
		Message:   message,
		Data: map[string]interface{}{
			"employee_id": b.EmployeeID,
			"kind":        string(b.Kind),
			"amount":      b.Amount.StringFixed(2),
		},
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("failed to queue benefit notification", "benefit_id", b.ID, "error", err)
	}
}

func kindLabel(k benefit.Kind) string {
	if k == benefit.KindTerminationBenefit {
		return "Termination benefit"
	}
	return "Signing bonus"
}

func mapToBenefitResponse(b benefit.Benefit) benefit.BenefitResponse {
	return benefit.BenefitResponse{
		ID:              b.ID,
		Kind:            string(b.Kind),
		EmployeeID:      b.EmployeeID,
		Amount:          b.Amount,
		Status:          string(b.Status),
		Notes:           b.Notes,
		ApprovedBy:      b.ApprovedBy,
		ApprovedAt:      b.ApprovedAt,
		RejectedBy:      b.RejectedBy,
		RejectedAt:      b.RejectedAt,
		RejectionReason: b.RejectionReason,
		PaidInRunID:     b.PaidInRunID,
		PaidAt:          b.PaidAt,
		CreatedAt:       b.CreatedAt,
	}
}
