package payroll

import (
	"testing"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func cleanDetail() payroll.EmployeePayrollDetail {
	return payroll.EmployeePayrollDetail{
		BaseSalary:    d("6000"),
		ProratedGross: d("6000"),
		NetSalary:     d("5400"),
		NetPay:        d("5400"),
		Tax:           payroll.TaxLine{Amount: d("600")},
		BankStatus:    payroll.BankStatusValid,
	}
}

func TestDetector_Detect(t *testing.T) {
	dt := NewDetector(decimal.Zero)

	tests := []struct {
		name   string
		mutate func(*payroll.EmployeePayrollDetail)
		prev   *decimal.Decimal
		want   []payroll.IrregularityCode
	}{
		{"clean detail", func(*payroll.EmployeePayrollDetail) {}, nil, []payroll.IrregularityCode{}},
		{"missing bank", func(x *payroll.EmployeePayrollDetail) { x.BankStatus = payroll.BankStatusMissing }, nil,
			[]payroll.IrregularityCode{payroll.IrregularityBankMissing}},
		{"negative net", func(x *payroll.EmployeePayrollDetail) { x.NetSalary = d("-1") }, nil,
			[]payroll.IrregularityCode{payroll.IrregularityNetNegative}},
		{"zero net", func(x *payroll.EmployeePayrollDetail) { x.NetSalary = decimal.Zero }, nil,
			[]payroll.IrregularityCode{payroll.IrregularityNetZero}},
		{"tax equals gross", func(x *payroll.EmployeePayrollDetail) { x.ProratedGross = d("600") }, nil,
			[]payroll.IrregularityCode{payroll.IrregularityTaxExceedsGross, payroll.IrregularityDeductionsExcessive}},
		{"overtime above half of base", func(x *payroll.EmployeePayrollDetail) { x.Overtime.Amount = d("3000.01") }, nil,
			[]payroll.IrregularityCode{payroll.IrregularityOvertimeExcessive}},
		{"overtime exactly half of base", func(x *payroll.EmployeePayrollDetail) { x.Overtime.Amount = d("3000") }, nil,
			[]payroll.IrregularityCode{}},
		{"deductions above 60 percent", func(x *payroll.EmployeePayrollDetail) { x.Insurance.Amount = d("3000.01") }, nil,
			[]payroll.IrregularityCode{payroll.IrregularityDeductionsExcessive}},
		{"salary spike", func(*payroll.EmployeePayrollDetail) {}, dp("4000"),
			[]payroll.IrregularityCode{payroll.IrregularitySalarySpike}},
		{"raise at threshold", func(*payroll.EmployeePayrollDetail) {}, dp("4800"),
			[]payroll.IrregularityCode{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detail := cleanDetail()
			tt.mutate(&detail)
			got := dt.Detect(detail, tt.prev)
			assert.Equal(t, tt.want, irregularityCodes(got))
			for _, irr := range got {
				assert.Equal(t, payroll.IrregularityStatusOpen, irr.Status)
				assert.NotEmpty(t, irr.ID)
				assert.NotEmpty(t, irr.Message)
			}
		})
	}
}

func TestExceptionText(t *testing.T) {
	dt := NewDetector(decimal.Zero)
	irrs := []payroll.Irregularity{
		dt.New(payroll.IrregularityBankMissing, payroll.SeverityWarning, "Bank account information is missing"),
		dt.New(payroll.IrregularityNetZero, payroll.SeverityWarning, "Net salary is zero"),
	}
	assert.Equal(t, "Bank account information is missing; Net salary is zero", exceptionText(irrs))
	assert.Empty(t, exceptionText(nil))
}
