package attendance

import (
	"context"
	"time"
)

// AttendanceRepository is the attendance collaborator. It is read-only from
// the payroll side.
type AttendanceRepository interface {
	// ListByEmployeeBetween returns daily records with from <= date <= to
	ListByEmployeeBetween(ctx context.Context, employeeID string, from, to time.Time) ([]Attendance, error)
}
