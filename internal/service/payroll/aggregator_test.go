package payroll

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/payroll-backend-go/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestAttendanceAggregator_Aggregate(t *testing.T) {
	store := memory.NewStore()
	clock := func(h int) time.Time { return time.Date(0, 1, 1, h, 0, 0, 0, time.UTC) }
	// Monday to Friday, 08:00-16:00.
	var times []schedule.WorkScheduleTime
	for day := 1; day <= 5; day++ {
		times = append(times, schedule.WorkScheduleTime{DayOfWeek: day, ClockInTime: clock(8), ClockOutTime: clock(16)})
	}
	store.AssignSchedule("emp-1", schedule.WorkSchedule{ID: "ws-1", Name: "Office", Times: times})

	store.AddAttendance(
		// Monday, full day with overtime and lateness
		attendance.Attendance{ID: "a1", EmployeeID: "emp-1", Date: date(time.April, 1), WorkHoursInMinutes: intPtr(480), OvertimeMinutes: intPtr(60), LateMinutes: intPtr(10), Status: attendance.StatusLate},
		// Tuesday, short day
		attendance.Attendance{ID: "a2", EmployeeID: "emp-1", Date: date(time.April, 2), WorkHoursInMinutes: intPtr(300), Status: attendance.StatusPresent},
		// Saturday, not scheduled
		attendance.Attendance{ID: "a3", EmployeeID: "emp-1", Date: date(time.April, 6), WorkHoursInMinutes: intPtr(120), Status: attendance.StatusPresent},
		// Rejected records are ignored
		attendance.Attendance{ID: "a4", EmployeeID: "emp-1", Date: date(time.April, 3), WorkHoursInMinutes: intPtr(480), Status: attendance.StatusRejected},
		// Outside the period
		attendance.Attendance{ID: "a5", EmployeeID: "emp-1", Date: date(time.May, 1), WorkHoursInMinutes: intPtr(480), Status: attendance.StatusPresent},
	)

	agg := NewAttendanceAggregator(memory.NewAttendanceRepository(store), memory.NewWorkScheduleRepository(store), 0)

	summary, err := agg.Aggregate(context.Background(), "emp-1", april2024)
	require.NoError(t, err)

	assert.Equal(t, 900, summary.ActualMinutes)
	assert.Equal(t, 960, summary.ScheduledMinutes)
	assert.Equal(t, 60, summary.OvertimeMinutes)
	assert.Equal(t, 10, summary.LatenessMinutes)
	assert.Equal(t, 3, summary.WorkingDays)
	assert.Equal(t, 60, summary.MissingMinutes())
}

func TestAttendanceAggregator_DefaultMinutesWithoutSchedule(t *testing.T) {
	store := memory.NewStore()
	store.AddAttendance(
		attendance.Attendance{ID: "a1", EmployeeID: "emp-1", Date: date(time.April, 1), WorkHoursInMinutes: intPtr(420), Status: attendance.StatusPresent},
		attendance.Attendance{ID: "a2", EmployeeID: "emp-1", Date: date(time.April, 2), Status: attendance.StatusAbsent},
	)

	agg := NewAttendanceAggregator(memory.NewAttendanceRepository(store), memory.NewWorkScheduleRepository(store), 450)

	summary, err := agg.Aggregate(context.Background(), "emp-1", april2024)
	require.NoError(t, err)

	assert.Equal(t, 420, summary.ActualMinutes)
	assert.Equal(t, 900, summary.ScheduledMinutes)
	assert.Equal(t, 1, summary.WorkingDays)
	assert.Equal(t, 480, summary.MissingMinutes())
}

func TestAttendanceAggregator_NoRecords(t *testing.T) {
	store := memory.NewStore()
	agg := NewAttendanceAggregator(memory.NewAttendanceRepository(store), memory.NewWorkScheduleRepository(store), 0)

	summary, err := agg.Aggregate(context.Background(), "emp-1", april2024)
	require.NoError(t, err)

	assert.False(t, summary.HasSchedule())
	assert.Zero(t, summary.MissingMinutes())
}
