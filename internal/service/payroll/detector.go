package payroll

import (
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	overtimeShareLimit  = decimal.NewFromFloat(0.5)
	deductionShareLimit = decimal.NewFromFloat(0.6)
)

// Detector flags anomalous pay details.
type Detector struct {
	spikeThreshold decimal.Decimal // fraction, 0.25 = 25%
	now            func() time.Time
}

func NewDetector(spikeThreshold decimal.Decimal) *Detector {
	if !spikeThreshold.IsPositive() {
		spikeThreshold = decimal.NewFromFloat(0.25)
	}
	return &Detector{spikeThreshold: spikeThreshold, now: time.Now}
}

// Detect evaluates every rule against detail. previousBase is the base salary
// of the employee's latest earlier detail, if any.
func (dt *Detector) Detect(detail payroll.EmployeePayrollDetail, previousBase *decimal.Decimal) []payroll.Irregularity {
	var out []payroll.Irregularity

	if detail.BankStatus != payroll.BankStatusValid {
		out = append(out, dt.New(payroll.IrregularityBankMissing, payroll.SeverityWarning,
			"Bank account information is missing"))
	}

	switch {
	case detail.NetSalary.IsNegative():
		out = append(out, dt.New(payroll.IrregularityNetNegative, payroll.SeverityCritical,
			fmt.Sprintf("Net salary is negative (%s)", detail.NetSalary.StringFixed(2))))
	case detail.NetSalary.IsZero():
		out = append(out, dt.New(payroll.IrregularityNetZero, payroll.SeverityWarning,
			"Net salary is zero"))
	}

	if detail.Tax.Amount.IsPositive() && detail.Tax.Amount.GreaterThanOrEqual(detail.ProratedGross) {
		out = append(out, dt.New(payroll.IrregularityTaxExceedsGross, payroll.SeverityCritical,
			fmt.Sprintf("Tax (%s) is at least 100%% of gross (%s)",
				detail.Tax.Amount.StringFixed(2), detail.ProratedGross.StringFixed(2))))
	}

	if detail.BaseSalary.IsPositive() && detail.Overtime.Amount.GreaterThan(detail.BaseSalary.Mul(overtimeShareLimit)) {
		out = append(out, dt.New(payroll.IrregularityOvertimeExcessive, payroll.SeverityWarning,
			fmt.Sprintf("Overtime pay (%s) exceeds 50%% of base salary (%s)",
				detail.Overtime.Amount.StringFixed(2), detail.BaseSalary.StringFixed(2))))
	}

	deductions := detail.Tax.Amount.Add(detail.Insurance.Amount)
	if detail.ProratedGross.IsPositive() && deductions.GreaterThan(detail.ProratedGross.Mul(deductionShareLimit)) {
		out = append(out, dt.New(payroll.IrregularityDeductionsExcessive, payroll.SeverityWarning,
			fmt.Sprintf("Total deductions (%s) exceed 60%% of gross (%s)",
				deductions.StringFixed(2), detail.ProratedGross.StringFixed(2))))
	}

	if previousBase != nil && previousBase.IsPositive() {
		change := detail.BaseSalary.Sub(*previousBase).Div(*previousBase)
		if change.GreaterThan(dt.spikeThreshold) {
			out = append(out, dt.New(payroll.IrregularitySalarySpike, payroll.SeverityInfo,
				fmt.Sprintf("Base salary increased %s%% from previous run (%s -> %s)",
					change.Mul(hundred).StringFixed(2), previousBase.StringFixed(2), detail.BaseSalary.StringFixed(2))))
		}
	}

	return out
}

// New builds an open irregularity.
func (dt *Detector) New(code payroll.IrregularityCode, severity payroll.Severity, message string) payroll.Irregularity {
	return payroll.Irregularity{
		ID:         newID(),
		Code:       code,
		Message:    message,
		Severity:   severity,
		Status:     payroll.IrregularityStatusOpen,
		DetectedAt: dt.now(),
	}
}

// exceptionText joins irregularity messages into the detail's exception ledger.
func exceptionText(irregularities []payroll.Irregularity) string {
	msgs := make([]string, 0, len(irregularities))
	for _, irr := range irregularities {
		msgs = append(msgs, irr.Message)
	}
	return strings.Join(msgs, "; ")
}

// newID returns a UUIDv7, falling back to a random v4 if the clock source fails.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
