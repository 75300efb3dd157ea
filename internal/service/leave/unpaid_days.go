package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/leave"
	"github.com/shopspring/decimal"
)

var half = decimal.NewFromFloat(0.5)

// UnpaidDayCounter counts approved unpaid leave days for payroll.
type UnpaidDayCounter struct {
	leaveTypeRepo    leave.LeaveTypeRepository
	leaveRequestRepo leave.LeaveRequestRepository
}

func NewUnpaidDayCounter(leaveTypeRepo leave.LeaveTypeRepository, leaveRequestRepo leave.LeaveRequestRepository) *UnpaidDayCounter {
	return &UnpaidDayCounter{
		leaveTypeRepo:    leaveTypeRepo,
		leaveRequestRepo: leaveRequestRepo,
	}
}

// UnpaidDays returns the approved unpaid leave days overlapping [from, to].
// Each calendar day inside the overlap counts once; half-day requests count 0.5.
func (c *UnpaidDayCounter) UnpaidDays(ctx context.Context, employeeID string, from, to time.Time) (decimal.Decimal, error) {
	if to.Before(from) {
		return decimal.Zero, nil
	}

	types, err := c.leaveTypeRepo.ListUnpaid(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to list unpaid leave types: %w", err)
	}
	if len(types) == 0 {
		return decimal.Zero, nil
	}

	typeIDs := make([]string, 0, len(types))
	for _, lt := range types {
		typeIDs = append(typeIDs, lt.ID)
	}

	requests, err := c.leaveRequestRepo.ListApprovedOverlapping(ctx, employeeID, typeIDs, from, to)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to list approved leave requests: %w", err)
	}

	// A day covered by two requests is still one day.
	covered := make(map[string]decimal.Decimal)
	for _, req := range requests {
		if req.Status != leave.LeaveRequestStatusApproved {
			continue
		}
		weight := decimal.NewFromInt(1)
		if req.DurationType.IsHalfDay() {
			weight = half
		}

		start := maxDate(dateOf(req.StartDate), dateOf(from))
		end := minDate(dateOf(req.EndDate), dateOf(to))
		for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
			key := day.Format("2006-01-02")
			if weight.GreaterThan(covered[key]) {
				covered[key] = weight
			}
		}
	}

	total := decimal.Zero
	for _, w := range covered {
		total = total.Add(w)
	}
	return total, nil
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func maxDate(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minDate(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
