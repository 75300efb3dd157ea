package payroll

import (
	"fmt"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payconfig"
	"github.com/shopspring/decimal"
)

const hoursPerDay = 8

var sixty = decimal.NewFromInt(60)

// Charge is an amount together with the reason persisted next to it.
type Charge struct {
	Amount decimal.Decimal
	Reason string
}

// HourlyRate = base / (daysInMonth * 8)
func HourlyRate(base decimal.Decimal, daysInMonth int) decimal.Decimal {
	if daysInMonth <= 0 {
		return decimal.Zero
	}
	return base.Div(decimal.NewFromInt(int64(daysInMonth * hoursPerDay)))
}

// MinuteRate = hourly / 60
func MinuteRate(hourly decimal.Decimal) decimal.Decimal {
	return hourly.Div(sixty)
}

// MissingWorkPenalty deducts the full minute rate per missing minute, or the
// short-time rule's percentage of it when one is configured.
func MissingWorkPenalty(minuteRate decimal.Decimal, missingMinutes int, rule *payconfig.ShortTimeRule) Charge {
	if missingMinutes <= 0 {
		return Charge{Amount: decimal.Zero}
	}

	pct := hundred
	if rule != nil {
		pct = rule.DeductionPercent
	}
	amount := money(percentOf(minuteRate.Mul(decimal.NewFromInt(int64(missingMinutes))), pct))

	return Charge{
		Amount: amount,
		Reason: fmt.Sprintf("%d missing work minutes at %s per minute (%s%% deduction)",
			missingMinutes, minuteRate.StringFixed(4), pct.String()),
	}
}

// LatenessPenalty charges minutes beyond the grace period at the configured
// per-minute penalty, capped at the configured maximum. Without a rule every
// late minute is charged at the minute rate.
func LatenessPenalty(minuteRate decimal.Decimal, lateMinutes int, rule *payconfig.LatenessRule) Charge {
	if lateMinutes <= 0 {
		return Charge{Amount: decimal.Zero}
	}

	if rule == nil {
		return Charge{
			Amount: money(minuteRate.Mul(decimal.NewFromInt(int64(lateMinutes)))),
			Reason: fmt.Sprintf("%d late minutes at minute rate %s", lateMinutes, minuteRate.StringFixed(4)),
		}
	}

	excess := lateMinutes - rule.GraceMinutes
	if excess <= 0 {
		return Charge{Amount: decimal.Zero}
	}

	amount := money(rule.PenaltyPerMinute.Mul(decimal.NewFromInt(int64(excess))))
	reason := fmt.Sprintf("%d late minutes beyond %d minute grace at %s per minute",
		excess, rule.GraceMinutes, rule.PenaltyPerMinute.StringFixed(2))
	if rule.MaxPenalty.IsPositive() && amount.GreaterThan(rule.MaxPenalty) {
		amount = money(rule.MaxPenalty)
		reason += fmt.Sprintf(", capped at %s", amount.StringFixed(2))
	}

	return Charge{Amount: amount, Reason: reason}
}

// OvertimePay = overtime hours * hourly rate * multiplier
func OvertimePay(hourly decimal.Decimal, overtimeMinutes int, multiplier decimal.Decimal) Charge {
	if overtimeMinutes <= 0 {
		return Charge{Amount: decimal.Zero}
	}

	hours := decimal.NewFromInt(int64(overtimeMinutes)).Div(sixty)
	return Charge{
		Amount: money(hours.Mul(hourly).Mul(multiplier)),
		Reason: fmt.Sprintf("%s overtime hours at %s per hour x %s",
			hours.StringFixed(2), hourly.StringFixed(2), multiplier.String()),
	}
}
