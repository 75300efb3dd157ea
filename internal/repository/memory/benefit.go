package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/benefit"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/refund"
)

// ========== BENEFITS ==========

type benefitRepository struct {
	s *Store
}

func NewBenefitRepository(s *Store) benefit.BenefitRepository {
	return &benefitRepository{s: s}
}

func (r *benefitRepository) Create(_ context.Context, b benefit.Benefit) (benefit.Benefit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if b.Kind == benefit.KindTerminationBenefit {
		for _, existing := range r.s.benefits {
			if existing.EmployeeID == b.EmployeeID && existing.Kind == benefit.KindTerminationBenefit {
				return benefit.Benefit{}, benefit.ErrTerminationExists
			}
		}
	}
	r.s.benefits[b.ID] = b
	return b, nil
}

func (r *benefitRepository) GetByID(_ context.Context, id string) (benefit.Benefit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.benefits[id]
	if !ok {
		return benefit.Benefit{}, benefit.ErrBenefitNotFound
	}
	return b, nil
}

func (r *benefitRepository) ListByEmployee(_ context.Context, employeeID string, status *benefit.Status) ([]benefit.Benefit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []benefit.Benefit
	for _, b := range r.s.benefits {
		if b.EmployeeID != employeeID || (status != nil && b.Status != *status) {
			continue
		}
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *benefitRepository) ExistsForEmployee(_ context.Context, employeeID string, kind benefit.Kind) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, b := range r.s.benefits {
		if b.EmployeeID == employeeID && b.Kind == kind {
			return true, nil
		}
	}
	return false, nil
}

func (r *benefitRepository) Update(_ context.Context, b benefit.Benefit, expected benefit.Status) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.benefits[b.ID]
	if !ok {
		return benefit.ErrBenefitNotFound
	}
	if current.Status != expected {
		return fmt.Errorf("%w: expected %s, found %s", benefit.ErrInvalidTransition, expected, current.Status)
	}
	r.s.benefits[b.ID] = b
	return nil
}

func (r *benefitRepository) MarkPaid(_ context.Context, ids []string, runID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, id := range ids {
		b, ok := r.s.benefits[id]
		if !ok {
			return benefit.ErrBenefitNotFound
		}
		if b.PaidInRunID != nil {
			return benefit.ErrAlreadyPaid
		}
		if !b.Status.CanTransition(benefit.StatusPaid) {
			return benefit.ErrInvalidTransition
		}
	}

	now := time.Now()
	for _, id := range ids {
		b := r.s.benefits[id]
		run := runID
		b.Status = benefit.StatusPaid
		b.PaidInRunID = &run
		b.PaidAt = &now
		b.UpdatedAt = now
		r.s.benefits[id] = b
	}
	return nil
}

func (r *benefitRepository) RevertRun(_ context.Context, runID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n := 0
	for id, b := range r.s.benefits {
		if b.PaidInRunID == nil || *b.PaidInRunID != runID {
			continue
		}
		b.Status = benefit.StatusApproved
		b.PaidInRunID = nil
		b.PaidAt = nil
		b.UpdatedAt = time.Now()
		r.s.benefits[id] = b
		n++
	}
	return n, nil
}

// ========== REFUNDS ==========

type refundRepository struct {
	s *Store
}

func NewRefundRepository(s *Store) refund.RefundRepository {
	return &refundRepository{s: s}
}

func (r *refundRepository) Create(_ context.Context, rf refund.Refund) (refund.Refund, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.refunds[rf.ID] = rf
	return rf, nil
}

func (r *refundRepository) GetByID(_ context.Context, id string) (refund.Refund, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rf, ok := r.s.refunds[id]
	if !ok {
		return refund.Refund{}, refund.ErrRefundNotFound
	}
	return rf, nil
}

func (r *refundRepository) ListPayable(_ context.Context, employeeID string) ([]refund.Refund, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []refund.Refund
	for _, rf := range r.s.refunds {
		if rf.EmployeeID == employeeID && rf.Payable() {
			result = append(result, rf)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *refundRepository) MarkPaid(_ context.Context, ids []string, runID string, paidAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, id := range ids {
		rf, ok := r.s.refunds[id]
		if !ok {
			return refund.ErrRefundNotFound
		}
		if rf.PaidInRunID != nil {
			return refund.ErrRefundAlreadyPaid
		}
	}

	for _, id := range ids {
		rf := r.s.refunds[id]
		run, at := runID, paidAt
		rf.Status = refund.StatusPaid
		rf.PaidInRunID = &run
		rf.PaidAt = &at
		rf.DeferredInRunID = nil
		rf.DeferralReason = nil
		rf.UpdatedAt = paidAt
		r.s.refunds[id] = rf
	}
	return nil
}

func (r *refundRepository) MarkDeferred(_ context.Context, ids []string, runID string, reason string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now()
	for _, id := range ids {
		rf, ok := r.s.refunds[id]
		if !ok {
			return refund.ErrRefundNotFound
		}
		if rf.PaidInRunID != nil {
			return refund.ErrRefundAlreadyPaid
		}
		run, why := runID, reason
		rf.Status = refund.StatusDeferred
		rf.DeferredInRunID = &run
		rf.DeferralReason = &why
		rf.UpdatedAt = now
		r.s.refunds[id] = rf
	}
	return nil
}

func (r *refundRepository) RevertRun(_ context.Context, runID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n := 0
	for id, rf := range r.s.refunds {
		paidHere := rf.PaidInRunID != nil && *rf.PaidInRunID == runID
		deferredHere := rf.DeferredInRunID != nil && *rf.DeferredInRunID == runID
		if !paidHere && !deferredHere {
			continue
		}
		rf.Status = refund.StatusPending
		rf.PaidInRunID = nil
		rf.PaidAt = nil
		rf.DeferredInRunID = nil
		rf.DeferralReason = nil
		rf.UpdatedAt = time.Now()
		r.s.refunds[id] = rf
		n++
	}
	return n, nil
}
