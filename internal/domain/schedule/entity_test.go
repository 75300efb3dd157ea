package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func clock(h, m int) time.Time {
	return time.Date(0, 1, 1, h, m, 0, 0, time.UTC)
}

func TestWorkScheduleTime_ScheduledMinutes(t *testing.T) {
	brkStart, brkEnd := clock(12, 0), clock(13, 0)

	tests := []struct {
		name string
		t    WorkScheduleTime
		want int
	}{
		{"day shift with break", WorkScheduleTime{ClockInTime: clock(8, 0), ClockOutTime: clock(17, 0), BreakStartTime: &brkStart, BreakEndTime: &brkEnd}, 480},
		{"day shift no break", WorkScheduleTime{ClockInTime: clock(9, 0), ClockOutTime: clock(17, 0)}, 480},
		{"night shift", WorkScheduleTime{ClockInTime: clock(22, 0), ClockOutTime: clock(6, 0), IsNextDayCheckout: true}, 480},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.t.ScheduledMinutes())
		})
	}
}

func TestWorkSchedule_TimeFor(t *testing.T) {
	ws := WorkSchedule{Times: []WorkScheduleTime{{DayOfWeek: 1}, {DayOfWeek: 7}}}

	_, ok := ws.TimeFor(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)) // Monday
	assert.True(t, ok)
	_, ok = ws.TimeFor(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)) // Sunday
	assert.True(t, ok)
	_, ok = ws.TimeFor(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) // Tuesday
	assert.False(t, ok)
}
