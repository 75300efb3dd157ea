package payroll

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/schedule"
)

// DefaultDailyMinutes is used for a record day when no schedule resolves.
const DefaultDailyMinutes = 480

// AttendanceAggregator sums daily attendance records into a period summary.
// It never writes.
type AttendanceAggregator struct {
	attendanceRepo attendance.AttendanceRepository
	scheduleRepo   schedule.WorkScheduleRepository
	defaultMinutes int
}

func NewAttendanceAggregator(
	attendanceRepo attendance.AttendanceRepository,
	scheduleRepo schedule.WorkScheduleRepository,
	defaultMinutes int,
) *AttendanceAggregator {
	if defaultMinutes <= 0 {
		defaultMinutes = DefaultDailyMinutes
	}
	return &AttendanceAggregator{
		attendanceRepo: attendanceRepo,
		scheduleRepo:   scheduleRepo,
		defaultMinutes: defaultMinutes,
	}
}

func (a *AttendanceAggregator) Aggregate(ctx context.Context, employeeID string, period payroll.Period) (attendance.Summary, error) {
	records, err := a.attendanceRepo.ListByEmployeeBetween(ctx, employeeID, period.Start(), period.End())
	if err != nil {
		return attendance.Summary{}, fmt.Errorf("failed to list attendance: %w", err)
	}

	summary := attendance.Summary{EmployeeID: employeeID}
	for _, rec := range records {
		if !rec.Status.Counted() {
			continue
		}

		actual := intValue(rec.WorkHoursInMinutes)
		summary.ActualMinutes += actual
		summary.OvertimeMinutes += intValue(rec.OvertimeMinutes)
		summary.LatenessMinutes += intValue(rec.LateMinutes)
		if actual > 0 {
			summary.WorkingDays++
		}

		scheduled, err := a.scheduledMinutes(ctx, employeeID, rec)
		if err != nil {
			return attendance.Summary{}, err
		}
		summary.ScheduledMinutes += scheduled
	}

	return summary, nil
}

func (a *AttendanceAggregator) scheduledMinutes(ctx context.Context, employeeID string, rec attendance.Attendance) (int, error) {
	ws, err := a.scheduleRepo.GetForEmployeeOn(ctx, employeeID, rec.Date)
	if errors.Is(err, schedule.ErrWorkScheduleNotFound) {
		return a.defaultMinutes, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve schedule for %s: %w", rec.Date.Format("2006-01-02"), err)
	}

	t, ok := ws.TimeFor(rec.Date)
	if !ok {
		// Worked on a day off; nothing was scheduled.
		return 0, nil
	}
	return t.ScheduledMinutes(), nil
}

func intValue(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
