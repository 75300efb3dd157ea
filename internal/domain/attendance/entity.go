package attendance

import (
	"time"
)

type Status string

const (
	StatusPresent         Status = "present"
	StatusLate            Status = "late"
	StatusAbsent          Status = "absent"
	StatusOnLeave         Status = "on_leave"
	StatusHoliday         Status = "holiday"
	StatusWaitingApproval Status = "waiting_approval"
	StatusRejected        Status = "rejected"
)

// Counted reports whether a record of this status takes part in payroll
// aggregation. Rejected and unapproved records do not.
func (s Status) Counted() bool {
	return s != StatusRejected && s != StatusWaitingApproval
}

type Attendance struct {
	ID                 string
	EmployeeID         string
	Date               time.Time
	ClockIn            *time.Time
	ClockOut           *time.Time
	WorkHoursInMinutes *int
	LateMinutes        *int
	EarlyLeaveMinutes  *int
	OvertimeMinutes    *int
	Status             Status
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Summary - per employee, per period aggregate
type Summary struct {
	EmployeeID       string
	ActualMinutes    int
	ScheduledMinutes int
	OvertimeMinutes  int
	LatenessMinutes  int
	WorkingDays      int
}

// MissingMinutes = max(0, scheduled - actual)
func (s Summary) MissingMinutes() int {
	if s.ScheduledMinutes > s.ActualMinutes {
		return s.ScheduledMinutes - s.ActualMinutes
	}
	return 0
}

// HasSchedule reports whether any scheduled time backs the summary.
func (s Summary) HasSchedule() bool {
	return s.ScheduledMinutes > 0
}
