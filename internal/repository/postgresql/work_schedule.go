package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type workScheduleRepositoryImpl struct {
	db *database.DB
}

func NewWorkScheduleRepository(db *database.DB) schedule.WorkScheduleRepository {
	return &workScheduleRepositoryImpl{db: db}
}

// GetForEmployeeOn implements schedule.WorkScheduleRepository. An assignment
// covering date wins over the employee's default schedule.
func (w *workScheduleRepositoryImpl) GetForEmployeeOn(ctx context.Context, employeeID string, date time.Time) (schedule.WorkSchedule, error) {
	q := GetQuerier(ctx, w.db)

	query := `
		WITH target_schedule AS (
			SELECT work_schedule_id AS id, 1 AS priority
			FROM employee_schedule_assignments
			WHERE employee_id = $1
			  AND $2::date BETWEEN start_date AND end_date
			UNION ALL
			SELECT work_schedule_id AS id, 2 AS priority
			FROM employees
			WHERE id = $1 AND work_schedule_id IS NOT NULL
			ORDER BY priority
			LIMIT 1
		)
		SELECT ws.id, ws.name, ws.grace_period_minutes, ws.created_at, ws.updated_at
		FROM target_schedule ts
		JOIN work_schedules ws ON ws.id = ts.id
		WHERE ws.deleted_at IS NULL
	`

	var ws schedule.WorkSchedule
	err := q.QueryRow(ctx, query, employeeID, date).Scan(
		&ws.ID, &ws.Name, &ws.GracePeriodMinutes, &ws.CreatedAt, &ws.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return schedule.WorkSchedule{}, schedule.ErrWorkScheduleNotFound
		}
		return schedule.WorkSchedule{}, fmt.Errorf("failed to get work schedule: %w", err)
	}

	times, err := w.listTimes(ctx, ws.ID)
	if err != nil {
		return schedule.WorkSchedule{}, err
	}
	ws.Times = times
	return ws, nil
}

func (w *workScheduleRepositoryImpl) listTimes(ctx context.Context, workScheduleID string) ([]schedule.WorkScheduleTime, error) {
	q := GetQuerier(ctx, w.db)

	query := `
		SELECT id, work_schedule_id, day_of_week, clock_in_time, break_start_time, break_end_time,
			   clock_out_time, is_next_day_checkout, created_at, updated_at
		FROM work_schedule_times
		WHERE work_schedule_id = $1
		ORDER BY day_of_week
	`

	rows, err := q.Query(ctx, query, workScheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list work schedule times: %w", err)
	}
	defer rows.Close()

	var times []schedule.WorkScheduleTime
	for rows.Next() {
		var (
			t                    schedule.WorkScheduleTime
			clockIn, clockOut    pgtype.Time
			breakStart, breakEnd pgtype.Time
		)
		if err := rows.Scan(
			&t.ID, &t.WorkScheduleID, &t.DayOfWeek, &clockIn, &breakStart, &breakEnd,
			&clockOut, &t.IsNextDayCheckout, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan work schedule time: %w", err)
		}
		t.ClockInTime = clockOfDay(clockIn)
		t.ClockOutTime = clockOfDay(clockOut)
		if breakStart.Valid && breakEnd.Valid {
			start, end := clockOfDay(breakStart), clockOfDay(breakEnd)
			t.BreakStartTime = &start
			t.BreakEndTime = &end
		}
		times = append(times, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate work schedule times: %w", err)
	}
	return times, nil
}

// clockOfDay converts a TIME column to a time.Time on the zero date.
func clockOfDay(t pgtype.Time) time.Time {
	return time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(t.Microseconds) * time.Microsecond)
}
