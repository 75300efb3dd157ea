package schedule

import (
	"context"
	"time"
)

// WorkScheduleRepository resolves shift assignments.
type WorkScheduleRepository interface {
	// GetForEmployeeOn returns the schedule assigned to the employee on date,
	// falling back to the employee's default schedule. ErrWorkScheduleNotFound
	// when neither exists.
	GetForEmployeeOn(ctx context.Context, employeeID string, date time.Time) (WorkSchedule, error)
}
