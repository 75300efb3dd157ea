package schedule

import "time"

type WorkSchedule struct {
	ID                 string
	Name               string
	GracePeriodMinutes int
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Times []WorkScheduleTime
}

// TimeFor returns the schedule entry for the weekday of date.
func (ws WorkSchedule) TimeFor(date time.Time) (WorkScheduleTime, bool) {
	day := isoWeekday(date)
	for _, t := range ws.Times {
		if t.DayOfWeek == day {
			return t, true
		}
	}
	return WorkScheduleTime{}, false
}

type WorkScheduleTime struct {
	ID                string
	WorkScheduleID    string
	DayOfWeek         int // 1=Monday, ..., 7=Sunday
	ClockInTime       time.Time
	BreakStartTime    *time.Time
	BreakEndTime      *time.Time
	ClockOutTime      time.Time
	IsNextDayCheckout bool // Indicates if checkout is on the next day
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ScheduledMinutes is the shift length minus the break. Only the clock
// component of the time fields is used.
func (t WorkScheduleTime) ScheduledMinutes() int {
	in := minuteOfDay(t.ClockInTime)
	out := minuteOfDay(t.ClockOutTime)
	if t.IsNextDayCheckout || out < in {
		out += 24 * 60
	}
	minutes := out - in
	if t.BreakStartTime != nil && t.BreakEndTime != nil {
		brk := minuteOfDay(*t.BreakEndTime) - minuteOfDay(*t.BreakStartTime)
		if brk < 0 {
			brk += 24 * 60
		}
		minutes -= brk
	}
	if minutes < 0 {
		return 0
	}
	return minutes
}

type EmployeeScheduleAssignment struct {
	ID             string
	EmployeeID     string
	WorkScheduleID string
	StartDate      time.Time
	EndDate        time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func isoWeekday(t time.Time) int {
	if t.Weekday() == time.Sunday {
		return 7
	}
	return int(t.Weekday())
}
