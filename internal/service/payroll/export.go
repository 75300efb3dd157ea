package payroll

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const registerSheet = "Register"

var registerHeadings = []interface{}{
	"Employee ID", "Base Salary", "Allowances", "Prorated Gross", "Tax", "Insurance",
	"Penalties", "Overtime", "Refunds", "Bonuses", "Benefits", "Net Pay",
	"Bank Status", "Payment Status", "Exception",
}

// ExportRun renders the run register as an xlsx workbook: one row per
// detail followed by a totals row.
func (s *PayrollServiceImpl) ExportRun(ctx context.Context, actor user.Actor, runID string) ([]byte, error) {
	if err := s.authorize(actor, user.PermissionRunExport); err != nil {
		return nil, err
	}

	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	details, err := s.details.ListByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll details: %w", err)
	}

	return buildRegister(run, details)
}

func buildRegister(run payroll.PayrollRun, details []payroll.EmployeePayrollDetail) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", registerSheet); err != nil {
		return nil, err
	}

	if err := setRow(f, 1, registerHeadings); err != nil {
		return nil, err
	}

	for i, d := range details {
		refunds := d.RefundTotal
		if d.RefundsDeferred {
			refunds = decimal.Zero
		}
		row := []interface{}{
			d.EmployeeID,
			amount(d.BaseSalary),
			amount(d.Allowances),
			amount(d.ProratedGross),
			amount(d.Tax.Amount),
			amount(d.Insurance.Amount),
			amount(d.PenaltyTotal()),
			amount(d.Overtime.Amount),
			amount(refunds),
			amount(d.BonusTotal),
			amount(d.BenefitTotal),
			amount(d.NetPay),
			string(d.BankStatus),
			string(d.PaymentStatus),
			d.Exception,
		}
		if err := setRow(f, i+2, row); err != nil {
			return nil, err
		}
	}

	t := SumDetails(details)
	benefits := decimal.Zero
	for _, d := range details {
		benefits = benefits.Add(d.BenefitTotal)
	}
	totals := []interface{}{
		fmt.Sprintf("Total %s (%d)", run.Period, t.EmployeeCount),
		"",
		amount(t.Allowances),
		amount(t.Gross),
		amount(t.Tax),
		amount(t.Insurance),
		amount(t.Penalties),
		amount(t.Overtime),
		amount(t.Refunds),
		amount(t.Bonuses.Sub(benefits)),
		amount(benefits),
		amount(t.Net),
	}
	if err := setRow(f, len(details)+2, totals); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write register: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(registerSheet, cell, &values)
}

func amount(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
