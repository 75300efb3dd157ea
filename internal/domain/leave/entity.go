package leave

import (
	"time"
)

// LeaveType entity
type LeaveType struct {
	ID          string
	Name        string
	Code        *string
	Description *string

	IsActive *bool
	IsPaid   *bool // nil is treated as paid

	// Deduction Rules
	DeductionType *string // 'working_days', 'calendar_days'
	AllowHalfDay  *bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Unpaid reports whether taking this leave reduces pay.
func (lt LeaveType) Unpaid() bool {
	return lt.IsPaid != nil && !*lt.IsPaid
}

type LeaveRequestStatus string

const (
	LeaveRequestStatusWaitingApproval LeaveRequestStatus = "waiting_approval"
	LeaveRequestStatusApproved        LeaveRequestStatus = "approved"
	LeaveRequestStatusRejected        LeaveRequestStatus = "rejected"
	LeaveRequestStatusCancelled       LeaveRequestStatus = "cancelled"
)

// LeaveDurationEnum maps to leave_duration_enum in DB
type LeaveDurationEnum string

const (
	LeaveDurationFullDay          LeaveDurationEnum = "full_day"
	LeaveDurationHalfDayMorning   LeaveDurationEnum = "half_day_morning"
	LeaveDurationHalfDayAfternoon LeaveDurationEnum = "half_day_afternoon"
)

// IsHalfDay checks if the duration covers half a day
func (d LeaveDurationEnum) IsHalfDay() bool {
	return d == LeaveDurationHalfDayMorning || d == LeaveDurationHalfDayAfternoon
}

// LeaveRequest entity
type LeaveRequest struct {
	ID          string
	EmployeeID  string
	LeaveTypeID string

	StartDate time.Time
	EndDate   time.Time

	DurationType LeaveDurationEnum
	TotalDays    float64

	Status     LeaveRequestStatus
	ApprovedBy *string
	ApprovedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
