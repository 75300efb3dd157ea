package leave

import (
	"context"
	"time"
)

// LeaveTypeRepository - read access to leave_types
type LeaveTypeRepository interface {
	ListUnpaid(ctx context.Context) ([]LeaveType, error)
}

// LeaveRequestRepository - read access to leave_requests
type LeaveRequestRepository interface {
	// ListApprovedOverlapping returns approved requests of the given types
	// that overlap [from, to].
	ListApprovedOverlapping(ctx context.Context, employeeID string, leaveTypeIDs []string, from, to time.Time) ([]LeaveRequest, error)
}
