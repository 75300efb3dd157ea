package payroll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/benefit"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payconfig"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/refund"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/shopspring/decimal"
)

// AttendanceSource yields the attendance summary of one employee for a period.
type AttendanceSource interface {
	Aggregate(ctx context.Context, employeeID string, period payroll.Period) (attendance.Summary, error)
}

// UnpaidLeaveSource counts approved unpaid leave days in [from, to].
type UnpaidLeaveSource interface {
	UnpaidDays(ctx context.Context, employeeID string, from, to time.Time) (decimal.Decimal, error)
}

const floorDeferralReason = "net pay below prorated minimum wage"

// CalcInput is everything one employee calculation needs besides lookups.
type CalcInput struct {
	Employee employee.Employee
	Run      payroll.PayrollRun
	Snapshot payconfig.Snapshot
}

// Outcome is the persisted result of one employee calculation.
type Outcome struct {
	Detail        payroll.EmployeePayrollDetail
	Payslip       payroll.Payslip
	FloorAdjusted bool
}

// Calculator computes and persists one employee's pay within a run.
type Calculator struct {
	tx         database.Transactor
	details    payroll.DetailRepository
	payslips   payroll.PayslipRepository
	refunds    refund.RefundRepository
	benefits   benefit.BenefitRepository
	grades     employee.PayGradeRepository
	attendance AttendanceSource
	leave      UnpaidLeaveSource
	detector   *Detector
	now        func() time.Time
}

func NewCalculator(
	tx database.Transactor,
	details payroll.DetailRepository,
	payslips payroll.PayslipRepository,
	refunds refund.RefundRepository,
	benefits benefit.BenefitRepository,
	grades employee.PayGradeRepository,
	attendance AttendanceSource,
	leave UnpaidLeaveSource,
	detector *Detector,
) *Calculator {
	return &Calculator{
		tx:         tx,
		details:    details,
		payslips:   payslips,
		refunds:    refunds,
		benefits:   benefits,
		grades:     grades,
		attendance: attendance,
		leave:      leave,
		detector:   detector,
		now:        time.Now,
	}
}

// Calculate runs the full pay computation for in.Employee and persists the
// detail, payslip and every side effect in one transaction.
func (c *Calculator) Calculate(ctx context.Context, in CalcInput) (Outcome, error) {
	emp, run, snap := in.Employee, in.Run, in.Snapshot
	period := run.Period
	daysInMonth := period.DaysInMonth()
	days := decimal.NewFromInt(int64(daysInMonth))

	// 1. Refunds owed to the employee
	payable, err := c.refunds.ListPayable(ctx, emp.ID)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to list refunds: %w", err)
	}
	refundLines, refundTotal, refundIDs := refundBreakdown(payable)

	// 2. Status
	if !emp.IsActive() {
		return Outcome{}, fmt.Errorf("employee %s: %w", emp.ID, employee.ErrEmployeeInactive)
	}

	// 3. Base salary
	base, err := c.baseSalary(ctx, emp, snap)
	if err != nil {
		return Outcome{}, err
	}

	// 4. Allowances
	allowances, breakdown := ResolveAllowances(snap.Allowances, emp.ID)

	// 5. Days worked
	from, to, employedDays := employedSpan(emp, period)
	unpaidDays := decimal.Zero
	if employedDays > 0 {
		unpaidDays, err = c.leave.UnpaidDays(ctx, emp.ID, from, to)
		if err != nil {
			return Outcome{}, fmt.Errorf("failed to count unpaid leave: %w", err)
		}
	}
	daysWorked := decimal.NewFromInt(int64(employedDays)).Sub(unpaidDays)
	if daysWorked.IsNegative() {
		daysWorked = decimal.Zero
	}

	var termination *benefit.Benefit
	if emp.TerminationDate != nil && period.Contains(*emp.TerminationDate) {
		termination = c.terminationBenefit(emp, base, snap)
	}

	// 6. Attendance, penalties and overtime
	summary, err := c.attendance.Aggregate(ctx, emp.ID, period)
	if err != nil {
		return Outcome{}, err
	}
	hourly := HourlyRate(base, daysInMonth)
	minuteRate := MinuteRate(hourly)
	missing := MissingWorkPenalty(minuteRate, summary.MissingMinutes(), snap.Penalties.ShortTime)
	late := LatenessPenalty(minuteRate, summary.LatenessMinutes, snap.Penalties.Lateness)
	overtime := OvertimePay(hourly, summary.OvertimeMinutes, snap.OvertimeMultiplier())

	// 7. Proration
	gross := base.Add(allowances)
	dayRatio := decimal.Zero
	if daysInMonth > 0 {
		dayRatio = daysWorked.Div(days)
	}
	ratio := dayRatio
	if summary.HasSchedule() {
		ratio = decimal.Min(
			decimal.NewFromInt(int64(summary.ActualMinutes)).Div(decimal.NewFromInt(int64(summary.ScheduledMinutes))),
			decimal.NewFromInt(1),
			dayRatio,
		)
	}
	prorated := money(gross.Mul(ratio))
	unpaidDeduction := decimal.Zero
	if daysInMonth > 0 {
		unpaidDeduction = money(gross.Mul(unpaidDays).Div(days))
	}

	// 8. Tax on base, insurance on prorated gross
	taxLine := payroll.TaxLine{Rate: decimal.Zero, Amount: decimal.Zero}
	if rule, ok := ResolveTaxRule(snap.TaxRules, base); ok {
		id := rule.ID
		taxLine = payroll.TaxLine{
			RuleID:   &id,
			RuleName: rule.Name,
			Rate:     rule.Rate,
			Amount:   money(percentOf(base, rule.Rate)),
		}
	}
	insLine := payroll.InsuranceLine{EmployeeRate: decimal.Zero, EmployerRate: decimal.Zero, Amount: decimal.Zero, EmployerPart: decimal.Zero}
	if bracket, ok := ResolveInsuranceBracket(snap.InsuranceBrackets, base); ok {
		id := bracket.ID
		insLine = payroll.InsuranceLine{
			BracketID:    &id,
			BracketName:  bracket.Name,
			EmployeeRate: bracket.EmployeeRate,
			EmployerRate: bracket.EmployerRate,
			Amount:       money(percentOf(prorated, bracket.EmployeeRate)),
			EmployerPart: money(percentOf(prorated, bracket.EmployerRate)),
		}
	}

	// 9. Totals
	var penalties []payroll.PenaltyLine
	if missing.Amount.IsPositive() {
		penalties = append(penalties, payroll.PenaltyLine{Kind: payroll.PenaltyKindMissingWork, Amount: missing.Amount, Reason: missing.Reason})
	}
	if late.Amount.IsPositive() {
		penalties = append(penalties, payroll.PenaltyLine{Kind: payroll.PenaltyKindLateness, Amount: late.Amount, Reason: late.Reason})
	}
	penaltyTotal := missing.Amount.Add(late.Amount)

	finalGross := prorated.Add(refundTotal)
	netSalary := money(finalGross.Sub(taxLine.Amount).Sub(insLine.Amount))
	netPay := money(netSalary.Sub(penaltyTotal).Add(overtime.Amount))

	now := c.now()
	detail := payroll.EmployeePayrollDetail{
		ID:                 newID(),
		RunID:              run.ID,
		EmployeeID:         emp.ID,
		BaseSalary:         money(base),
		Allowances:         money(allowances),
		AllowanceBreakdown: breakdown,
		GrossSalary:        money(gross),
		ProratedGross:      prorated,
		Tax:                taxLine,
		Insurance:          insLine,
		Penalties:          penalties,
		Overtime: payroll.OvertimeLine{
			Minutes:    summary.OvertimeMinutes,
			Multiplier: snap.OvertimeMultiplier(),
			Amount:     overtime.Amount,
			Reason:     overtime.Reason,
		},
		Attendance: payroll.AttendanceDetail{
			ActualMinutes:        summary.ActualMinutes,
			ScheduledMinutes:     summary.ScheduledMinutes,
			OvertimeMinutes:      summary.OvertimeMinutes,
			LatenessMinutes:      summary.LatenessMinutes,
			MissingMinutes:       summary.MissingMinutes(),
			WorkingDays:          summary.WorkingDays,
			DaysInMonth:          daysInMonth,
			DaysWorked:           daysWorked,
			UnpaidLeaveDays:      unpaidDays,
			UnpaidLeaveDeduction: unpaidDeduction,
			ProrationRatio:       ratio.Round(6),
			HourlyRate:           hourly.Round(4),
		},
		Refunds:       refundLines,
		RefundTotal:   refundTotal,
		BonusTotal:    decimal.Zero,
		BenefitTotal:  decimal.Zero,
		NetSalary:     netSalary,
		NetPay:        netPay,
		BankStatus:    bankStatus(emp),
		PaymentStatus: payroll.PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// 10. Minimum wage floor
	if snap.MinimumWage != nil && daysInMonth > 0 {
		floor := money(snap.MinimumWage.Mul(daysWorked).Div(days))
		if netPay.LessThan(floor) {
			return c.persistFloored(ctx, detail, floor, refundIDs, termination, period)
		}
	}

	// 11. Normal path
	var irregularities []payroll.Irregularity
	if detail.NetPay.IsNegative() {
		irregularities = append(irregularities, c.detector.New(payroll.IrregularityNegativeNetClamped, payroll.SeverityCritical,
			fmt.Sprintf("Net pay %s clamped to zero", detail.NetPay.StringFixed(2))))
		detail.NetPay = decimal.Zero
	}

	previousBase, err := c.previousBase(ctx, emp.ID, run.Period)
	if err != nil {
		return Outcome{}, err
	}

	benefitIDs, err := c.includeBenefits(ctx, &detail)
	if err != nil {
		return Outcome{}, err
	}

	irregularities = append(irregularities, c.detector.Detect(detail, previousBase)...)
	detail.Irregularities = irregularities
	detail.Exception = exceptionText(irregularities)

	payslip := buildPayslip(detail, period, refundLines, refundTotal)

	err = c.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := c.createTermination(ctx, termination); err != nil {
			return err
		}
		saved, err := c.details.Create(ctx, detail)
		if err != nil {
			return fmt.Errorf("failed to create payroll detail: %w", err)
		}
		detail = saved
		payslip.DetailID = saved.ID
		if payslip, err = c.payslips.Create(ctx, payslip); err != nil {
			return fmt.Errorf("failed to create payslip: %w", err)
		}
		if len(refundIDs) > 0 {
			if err := c.refunds.MarkPaid(ctx, refundIDs, run.ID, now); err != nil {
				return fmt.Errorf("failed to mark refunds paid: %w", err)
			}
		}
		if len(benefitIDs) > 0 {
			if err := c.benefits.MarkPaid(ctx, benefitIDs, run.ID); err != nil {
				return fmt.Errorf("failed to mark benefits paid: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{Detail: detail, Payslip: payslip}, nil
}

// persistFloored writes a detail forced up to the prorated minimum wage.
// Refunds are deferred to the next run and bonuses are left untouched.
func (c *Calculator) persistFloored(
	ctx context.Context,
	detail payroll.EmployeePayrollDetail,
	floor decimal.Decimal,
	refundIDs []string,
	termination *benefit.Benefit,
	period payroll.Period,
) (Outcome, error) {
	irr := c.detector.New(payroll.IrregularityFloorAdjusted, payroll.SeverityWarning,
		fmt.Sprintf("Net pay %s raised to prorated minimum wage %s", detail.NetPay.StringFixed(2), floor.StringFixed(2)))

	detail.NetPay = floor
	detail.FloorAdjusted = true
	detail.RefundsDeferred = len(refundIDs) > 0
	detail.Irregularities = []payroll.Irregularity{irr}
	detail.Exception = exceptionText(detail.Irregularities)

	payslip := buildPayslip(detail, period, nil, decimal.Zero)

	err := c.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := c.createTermination(ctx, termination); err != nil {
			return err
		}
		saved, err := c.details.Create(ctx, detail)
		if err != nil {
			return fmt.Errorf("failed to create payroll detail: %w", err)
		}
		detail = saved
		payslip.DetailID = saved.ID
		if payslip, err = c.payslips.Create(ctx, payslip); err != nil {
			return fmt.Errorf("failed to create payslip: %w", err)
		}
		if len(refundIDs) > 0 {
			if err := c.refunds.MarkDeferred(ctx, refundIDs, detail.RunID, floorDeferralReason); err != nil {
				return fmt.Errorf("failed to defer refunds: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{Detail: detail, Payslip: payslip, FloorAdjusted: true}, nil
}

// RecordFailure persists a zero-pay detail carrying the processing error.
func (c *Calculator) RecordFailure(ctx context.Context, run payroll.PayrollRun, employeeID string, cause error) (payroll.EmployeePayrollDetail, error) {
	now := c.now()
	irr := c.detector.New(payroll.IrregularityProcessingError, payroll.SeverityCritical,
		"Processing error: "+cause.Error())

	detail := payroll.EmployeePayrollDetail{
		ID:             newID(),
		RunID:          run.ID,
		EmployeeID:     employeeID,
		BaseSalary:     decimal.Zero,
		Allowances:     decimal.Zero,
		GrossSalary:    decimal.Zero,
		ProratedGross:  decimal.Zero,
		Tax:            payroll.TaxLine{Rate: decimal.Zero, Amount: decimal.Zero},
		Insurance:      payroll.InsuranceLine{EmployeeRate: decimal.Zero, EmployerRate: decimal.Zero, Amount: decimal.Zero, EmployerPart: decimal.Zero},
		Overtime:       payroll.OvertimeLine{Multiplier: decimal.Zero, Amount: decimal.Zero},
		RefundTotal:    decimal.Zero,
		BonusTotal:     decimal.Zero,
		BenefitTotal:   decimal.Zero,
		NetSalary:      decimal.Zero,
		NetPay:         decimal.Zero,
		BankStatus:     payroll.BankStatusMissing,
		PaymentStatus:  payroll.PaymentStatusPending,
		Exception:      irr.Message,
		Irregularities: []payroll.Irregularity{irr},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	saved, err := c.details.Create(ctx, detail)
	if err != nil {
		return payroll.EmployeePayrollDetail{}, fmt.Errorf("failed to record processing error: %w", err)
	}
	return saved, nil
}

// baseSalary resolves pay grade, then employee override, then minimum wage,
// then the configured fallback.
func (c *Calculator) baseSalary(ctx context.Context, emp employee.Employee, snap payconfig.Snapshot) (decimal.Decimal, error) {
	if emp.PayGradeID != nil {
		grade, err := c.grades.GetByID(ctx, *emp.PayGradeID)
		switch {
		case err == nil && grade.BaseSalary.IsPositive():
			return grade.BaseSalary, nil
		case err != nil && !errors.Is(err, employee.ErrPayGradeNotFound):
			return decimal.Zero, fmt.Errorf("failed to get pay grade: %w", err)
		}
	}
	if emp.BaseSalary != nil && emp.BaseSalary.IsPositive() {
		return *emp.BaseSalary, nil
	}
	if snap.MinimumWage != nil {
		return *snap.MinimumWage, nil
	}
	return snap.FallbackBaseSalary, nil
}

// previousBase is the base salary of the latest calculated month before period.
func (c *Calculator) previousBase(ctx context.Context, employeeID string, period payroll.Period) (*decimal.Decimal, error) {
	prev, err := c.details.PreviousForEmployee(ctx, employeeID, period)
	if errors.Is(err, payroll.ErrDetailNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get previous detail: %w", err)
	}
	return &prev.BaseSalary, nil
}

// includeBenefits adds approved, unpaid bonuses and benefits to detail and
// returns their ids.
func (c *Calculator) includeBenefits(ctx context.Context, detail *payroll.EmployeePayrollDetail) ([]string, error) {
	approved := benefit.StatusApproved
	items, err := c.benefits.ListByEmployee(ctx, detail.EmployeeID, &approved)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved benefits: %w", err)
	}

	var ids []string
	for _, b := range items {
		if b.PaidInRunID != nil {
			continue
		}
		amount := money(b.Amount)
		switch b.Kind {
		case benefit.KindSigningBonus:
			detail.BonusTotal = detail.BonusTotal.Add(amount)
		default:
			detail.BenefitTotal = detail.BenefitTotal.Add(amount)
		}
		detail.NetPay = detail.NetPay.Add(amount)
		detail.Benefits = append(detail.Benefits, payroll.BenefitLine{
			BenefitID: b.ID,
			Kind:      string(b.Kind),
			Amount:    amount,
		})
		ids = append(ids, b.ID)
	}
	return ids, nil
}

func (c *Calculator) terminationBenefit(emp employee.Employee, base decimal.Decimal, snap payconfig.Snapshot) *benefit.Benefit {
	now := c.now()
	multiplier := snap.TerminationBenefitMultiplier
	if !multiplier.IsPositive() {
		multiplier = decimal.NewFromInt(1)
	}
	notes := fmt.Sprintf("Termination effective %s", emp.TerminationDate.Format("2006-01-02"))
	return &benefit.Benefit{
		ID:         newID(),
		Kind:       benefit.KindTerminationBenefit,
		EmployeeID: emp.ID,
		Amount:     money(base.Mul(multiplier)),
		Status:     benefit.StatusPending,
		Notes:      &notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// createTermination stores b unless the employee already has one.
func (c *Calculator) createTermination(ctx context.Context, b *benefit.Benefit) error {
	if b == nil {
		return nil
	}
	exists, err := c.benefits.ExistsForEmployee(ctx, b.EmployeeID, benefit.KindTerminationBenefit)
	if err != nil {
		return fmt.Errorf("failed to check termination benefit: %w", err)
	}
	if exists {
		return nil
	}
	if _, err := c.benefits.Create(ctx, *b); err != nil {
		return fmt.Errorf("failed to create termination benefit: %w", err)
	}
	return nil
}

// employedSpan clips the period to the employee's hire and termination dates.
func employedSpan(emp employee.Employee, period payroll.Period) (time.Time, time.Time, int) {
	from, to := period.Start(), period.End()

	hire := dateOnly(emp.HireDate)
	if !emp.HireDate.IsZero() && hire.After(from) {
		from = hire
	}
	if emp.TerminationDate != nil {
		if term := dateOnly(*emp.TerminationDate); term.Before(to) {
			to = term
		}
	}
	if to.Before(from) {
		return from, to, 0
	}
	return from, to, int(to.Sub(from).Hours()/24) + 1
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func refundBreakdown(refunds []refund.Refund) ([]payroll.RefundLine, decimal.Decimal, []string) {
	total := decimal.Zero
	lines := make([]payroll.RefundLine, 0, len(refunds))
	ids := make([]string, 0, len(refunds))
	for _, r := range refunds {
		if !r.Payable() {
			continue
		}
		amount := money(r.Amount)
		total = total.Add(amount)
		lines = append(lines, payroll.RefundLine{
			RefundID:    r.ID,
			Amount:      amount,
			Description: r.Description,
			DisputeID:   r.DisputeID,
			ClaimID:     r.ClaimID,
		})
		ids = append(ids, r.ID)
	}
	return lines, total, ids
}

func bankStatus(emp employee.Employee) payroll.BankStatus {
	if emp.HasBankAccount() {
		return payroll.BankStatusValid
	}
	return payroll.BankStatusMissing
}

// buildPayslip derives the employee facing statement. Adjustment carries
// whatever the floor or the negative clamp moved net pay by.
func buildPayslip(detail payroll.EmployeePayrollDetail, period payroll.Period, refunds []payroll.RefundLine, refundTotal decimal.Decimal) payroll.Payslip {
	earnings := detail.ProratedGross.
		Add(detail.Overtime.Amount).
		Add(refundTotal).
		Add(detail.BonusTotal).
		Add(detail.BenefitTotal)
	deductions := detail.Tax.Amount.Add(detail.Insurance.Amount).Add(detail.PenaltyTotal())

	return payroll.Payslip{
		ID:              newID(),
		RunID:           detail.RunID,
		DetailID:        detail.ID,
		EmployeeID:      detail.EmployeeID,
		Period:          period,
		BaseSalary:      detail.BaseSalary,
		Allowances:      detail.AllowanceBreakdown,
		Overtime:        detail.Overtime.Amount,
		Bonuses:         detail.BonusTotal,
		Benefits:        detail.BenefitTotal,
		Refunds:         refunds,
		RefundTotal:     refundTotal,
		Tax:             detail.Tax.Amount,
		Insurance:       detail.Insurance.Amount,
		Penalties:       detail.Penalties,
		TotalEarnings:   money(earnings),
		TotalDeductions: money(deductions),
		Adjustment:      money(detail.NetPay.Sub(earnings.Sub(deductions))),
		NetPay:          detail.NetPay,
		PaymentStatus:   payroll.PaymentStatusPending,
		CreatedAt:       detail.CreatedAt,
		UpdatedAt:       detail.UpdatedAt,
	}
}
