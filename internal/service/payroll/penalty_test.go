package payroll

import (
	"testing"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payconfig"
	"github.com/stretchr/testify/assert"
)

func TestHourlyAndMinuteRate(t *testing.T) {
	hourly := HourlyRate(d("6000"), 30)
	assert.True(t, d("25").Equal(hourly))
	assert.True(t, hourly.Equal(MinuteRate(hourly).Mul(sixty).Round(10)))
	assert.True(t, HourlyRate(d("6000"), 0).IsZero())
}

func TestMissingWorkPenalty(t *testing.T) {
	minute := MinuteRate(HourlyRate(d("6000"), 30)) // 25/60

	t.Run("full minute rate by default", func(t *testing.T) {
		c := MissingWorkPenalty(minute, 120, nil)
		assert.True(t, d("50").Equal(c.Amount), c.Amount.String())
		assert.Contains(t, c.Reason, "120 missing work minutes")
	})

	t.Run("short-time rule percentage", func(t *testing.T) {
		c := MissingWorkPenalty(minute, 120, &payconfig.ShortTimeRule{DeductionPercent: d("50")})
		assert.True(t, d("25").Equal(c.Amount), c.Amount.String())
		assert.Contains(t, c.Reason, "50% deduction")
	})

	t.Run("nothing missing", func(t *testing.T) {
		c := MissingWorkPenalty(minute, 0, nil)
		assert.True(t, c.Amount.IsZero())
		assert.Empty(t, c.Reason)
	})
}

func TestLatenessPenalty(t *testing.T) {
	minute := MinuteRate(HourlyRate(d("6000"), 30))

	t.Run("default minute rate", func(t *testing.T) {
		c := LatenessPenalty(minute, 60, nil)
		assert.True(t, d("25").Equal(c.Amount), c.Amount.String())
	})

	t.Run("within grace", func(t *testing.T) {
		c := LatenessPenalty(minute, 10, &payconfig.LatenessRule{GraceMinutes: 15, PenaltyPerMinute: d("2")})
		assert.True(t, c.Amount.IsZero())
	})

	t.Run("beyond grace", func(t *testing.T) {
		c := LatenessPenalty(minute, 25, &payconfig.LatenessRule{GraceMinutes: 15, PenaltyPerMinute: d("2")})
		assert.True(t, d("20").Equal(c.Amount), c.Amount.String())
		assert.Equal(t, "10 late minutes beyond 15 minute grace at 2.00 per minute", c.Reason)
	})

	t.Run("capped", func(t *testing.T) {
		c := LatenessPenalty(minute, 115, &payconfig.LatenessRule{GraceMinutes: 15, PenaltyPerMinute: d("2"), MaxPenalty: d("150")})
		assert.True(t, d("150").Equal(c.Amount), c.Amount.String())
		assert.Contains(t, c.Reason, "capped at 150.00")
	})
}

func TestOvertimePay(t *testing.T) {
	hourly := HourlyRate(d("6000"), 30)

	c := OvertimePay(hourly, 120, d("1.5"))
	assert.True(t, d("75").Equal(c.Amount), c.Amount.String())
	assert.Equal(t, "2.00 overtime hours at 25.00 per hour x 1.5", c.Reason)

	assert.True(t, OvertimePay(hourly, 0, d("1.5")).Amount.IsZero())
}
