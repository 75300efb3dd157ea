package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

// ========== RUNS ==========

const runColumns = `
	id, entity_id, period_year, period_month, status, payment_status,
	employee_count, exceptions_count, total_gross, total_net, total_tax, total_insurance,
	total_penalties, total_allowances, total_overtime, total_refunds, total_bonuses, irregularities,
	specialist_id, submitted_at, manager_id, manager_approved_at, finance_id, finance_approved_at,
	rejected_by, rejected_at, rejection_reason, locked_by, locked_at,
	unlocked_by, unlocked_at, unlock_reason, processed_at,
	payslips_generated, payslips_generated_at, paid_at,
	version, created_at, updated_at`

type runRepository struct {
	db *database.DB
}

func NewRunRepository(db *database.DB) payroll.RunRepository {
	return &runRepository{db: db}
}

func (r *runRepository) Create(ctx context.Context, run payroll.PayrollRun) (payroll.PayrollRun, error) {
	q := GetQuerier(ctx, r.db)

	irregularities, err := marshalJSON(run.Totals.Irregularities)
	if err != nil {
		return payroll.PayrollRun{}, err
	}

	query := `
		INSERT INTO payroll_runs (
			id, entity_id, period_year, period_month, status, payment_status,
			irregularities, specialist_id, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + runColumns

	created, err := scanRun(q.QueryRow(ctx, query,
		run.ID, run.EntityID, run.Period.Year, int(run.Period.Month), run.Status, run.PaymentStatus,
		irregularities, run.SpecialistID, run.Version, run.CreatedAt, run.UpdatedAt,
	))
	if err != nil {
		if isUniqueViolation(err, "uk_payroll_runs_active_period") {
			return payroll.PayrollRun{}, payroll.ErrDuplicatePeriod
		}
		return payroll.PayrollRun{}, fmt.Errorf("failed to create payroll run: %w", err)
	}
	return created, nil
}

func (r *runRepository) GetByID(ctx context.Context, id string) (payroll.PayrollRun, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + runColumns + ` FROM payroll_runs WHERE id = $1`

	run, err := scanRun(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRun{}, payroll.ErrRunNotFound
		}
		return payroll.PayrollRun{}, fmt.Errorf("failed to get payroll run: %w", err)
	}
	return run, nil
}

func (r *runRepository) List(ctx context.Context, filter payroll.RunFilter) ([]payroll.PayrollRun, int64, error) {
	q := GetQuerier(ctx, r.db)

	var (
		conditions []string
		args       []interface{}
		argIdx     = 1
	)
	if filter.Period != nil {
		conditions = append(conditions, fmt.Sprintf("period_year = $%d AND period_month = $%d", argIdx, argIdx+1))
		args = append(args, filter.Period.Year, int(filter.Period.Month))
		argIdx += 2
	}
	if filter.EntityID != nil {
		conditions = append(conditions, fmt.Sprintf("entity_id = $%d", argIdx))
		args = append(args, *filter.EntityID)
		argIdx++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *filter.Status)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM payroll_runs"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count payroll runs: %w", err)
	}

	query := `SELECT ` + runColumns + ` FROM payroll_runs` + where + ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
		args = append(args, filter.Limit, (page-1)*filter.Limit)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payroll runs: %w", err)
	}
	defer rows.Close()

	runs := []payroll.PayrollRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan payroll run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate payroll runs: %w", err)
	}
	return runs, total, nil
}

func (r *runRepository) ExistsActive(ctx context.Context, entityID *string, period payroll.Period, excludeID string) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM payroll_runs
			WHERE period_year = $1 AND period_month = $2
			  AND entity_id IS NOT DISTINCT FROM $3::uuid
			  AND status <> 'rejected'
			  AND id::text <> $4
		)
	`

	var exists bool
	if err := q.QueryRow(ctx, query, period.Year, int(period.Month), entityID, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check active payroll run: %w", err)
	}
	return exists, nil
}

func (r *runRepository) Update(ctx context.Context, run payroll.PayrollRun, expectedVersion int64) (payroll.PayrollRun, error) {
	q := GetQuerier(ctx, r.db)

	irregularities, err := marshalJSON(run.Totals.Irregularities)
	if err != nil {
		return payroll.PayrollRun{}, err
	}

	t := run.Totals
	query := `
		UPDATE payroll_runs SET
			entity_id = $3, period_year = $4, period_month = $5, status = $6, payment_status = $7,
			employee_count = $8, exceptions_count = $9, total_gross = $10, total_net = $11,
			total_tax = $12, total_insurance = $13, total_penalties = $14, total_allowances = $15,
			total_overtime = $16, total_refunds = $17, total_bonuses = $18, irregularities = $19,
			submitted_at = $20, manager_id = $21, manager_approved_at = $22,
			finance_id = $23, finance_approved_at = $24,
			rejected_by = $25, rejected_at = $26, rejection_reason = $27,
			locked_by = $28, locked_at = $29, unlocked_by = $30, unlocked_at = $31, unlock_reason = $32,
			processed_at = $33, payslips_generated = $34, payslips_generated_at = $35, paid_at = $36,
			updated_at = $37, version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING ` + runColumns

	updated, err := scanRun(q.QueryRow(ctx, query,
		run.ID, expectedVersion,
		run.EntityID, run.Period.Year, int(run.Period.Month), run.Status, run.PaymentStatus,
		t.EmployeeCount, t.ExceptionsCount, t.Gross, t.Net,
		t.Tax, t.Insurance, t.Penalties, t.Allowances,
		t.Overtime, t.Refunds, t.Bonuses, irregularities,
		run.SubmittedAt, run.ManagerID, run.ManagerApprovedAt,
		run.FinanceID, run.FinanceApprovedAt,
		run.RejectedBy, run.RejectedAt, run.RejectionReason,
		run.LockedBy, run.LockedAt, run.UnlockedBy, run.UnlockedAt, run.UnlockReason,
		run.ProcessedAt, run.PayslipsGenerated, run.PayslipsGeneratedAt, run.PaidAt,
		run.UpdatedAt,
	))
	if err == nil {
		return updated, nil
	}
	if isUniqueViolation(err, "uk_payroll_runs_active_period") {
		return payroll.PayrollRun{}, payroll.ErrDuplicatePeriod
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return payroll.PayrollRun{}, fmt.Errorf("failed to update payroll run: %w", err)
	}

	// No row matched: either the run is gone or its version moved on.
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM payroll_runs WHERE id = $1)`, run.ID).Scan(&exists); err != nil {
		return payroll.PayrollRun{}, fmt.Errorf("failed to check payroll run: %w", err)
	}
	if !exists {
		return payroll.PayrollRun{}, payroll.ErrRunNotFound
	}
	return payroll.PayrollRun{}, payroll.ErrStaleVersion
}

func scanRun(row pgx.Row) (payroll.PayrollRun, error) {
	var (
		run            payroll.PayrollRun
		month          int
		irregularities []byte
	)
	err := row.Scan(
		&run.ID, &run.EntityID, &run.Period.Year, &month, &run.Status, &run.PaymentStatus,
		&run.Totals.EmployeeCount, &run.Totals.ExceptionsCount, &run.Totals.Gross, &run.Totals.Net,
		&run.Totals.Tax, &run.Totals.Insurance, &run.Totals.Penalties, &run.Totals.Allowances,
		&run.Totals.Overtime, &run.Totals.Refunds, &run.Totals.Bonuses, &irregularities,
		&run.SpecialistID, &run.SubmittedAt, &run.ManagerID, &run.ManagerApprovedAt,
		&run.FinanceID, &run.FinanceApprovedAt,
		&run.RejectedBy, &run.RejectedAt, &run.RejectionReason, &run.LockedBy, &run.LockedAt,
		&run.UnlockedBy, &run.UnlockedAt, &run.UnlockReason, &run.ProcessedAt,
		&run.PayslipsGenerated, &run.PayslipsGeneratedAt, &run.PaidAt,
		&run.Version, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		return payroll.PayrollRun{}, err
	}
	run.Period.Month = time.Month(month)
	if err := unmarshalJSON(irregularities, &run.Totals.Irregularities); err != nil {
		return payroll.PayrollRun{}, err
	}
	return run, nil
}

// ========== DETAILS ==========

const detailColumns = `
	id, run_id, employee_id,
	base_salary, allowances, allowance_breakdown, gross_salary, prorated_gross,
	tax, insurance, penalties, overtime, attendance,
	refunds, refund_total, refunds_deferred,
	benefits, bonus_total, benefit_total,
	net_salary, net_pay, bank_status, payment_status, floor_adjusted,
	exception, irregularities, created_at, updated_at`

type detailRepository struct {
	db *database.DB
}

func NewDetailRepository(db *database.DB) payroll.DetailRepository {
	return &detailRepository{db: db}
}

// detailDocuments holds the JSONB encoded parts of a detail.
type detailDocuments struct {
	allowanceBreakdown []byte
	tax                []byte
	insurance          []byte
	penalties          []byte
	overtime           []byte
	attendance         []byte
	refunds            []byte
	benefits           []byte
	irregularities     []byte
}

func encodeDetail(d payroll.EmployeePayrollDetail) (detailDocuments, error) {
	var (
		docs detailDocuments
		err  error
	)
	encode := func(dst *[]byte, v interface{}) {
		if err != nil {
			return
		}
		*dst, err = marshalJSON(v)
	}
	encode(&docs.allowanceBreakdown, d.AllowanceBreakdown)
	encode(&docs.tax, d.Tax)
	encode(&docs.insurance, d.Insurance)
	encode(&docs.penalties, d.Penalties)
	encode(&docs.overtime, d.Overtime)
	encode(&docs.attendance, d.Attendance)
	encode(&docs.refunds, d.Refunds)
	encode(&docs.benefits, d.Benefits)
	encode(&docs.irregularities, d.Irregularities)
	return docs, err
}

func (r *detailRepository) Create(ctx context.Context, d payroll.EmployeePayrollDetail) (payroll.EmployeePayrollDetail, error) {
	q := GetQuerier(ctx, r.db)

	docs, err := encodeDetail(d)
	if err != nil {
		return payroll.EmployeePayrollDetail{}, err
	}

	query := `
		INSERT INTO payroll_details (
			id, run_id, employee_id,
			base_salary, allowances, allowance_breakdown, gross_salary, prorated_gross,
			tax, insurance, penalties, overtime, attendance,
			refunds, refund_total, refunds_deferred,
			benefits, bonus_total, benefit_total,
			net_salary, net_pay, bank_status, payment_status, floor_adjusted,
			exception, irregularities, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28
		)
		RETURNING ` + detailColumns

	created, err := scanDetail(q.QueryRow(ctx, query,
		d.ID, d.RunID, d.EmployeeID,
		d.BaseSalary, d.Allowances, docs.allowanceBreakdown, d.GrossSalary, d.ProratedGross,
		docs.tax, docs.insurance, docs.penalties, docs.overtime, docs.attendance,
		docs.refunds, d.RefundTotal, d.RefundsDeferred,
		docs.benefits, d.BonusTotal, d.BenefitTotal,
		d.NetSalary, d.NetPay, d.BankStatus, d.PaymentStatus, d.FloorAdjusted,
		d.Exception, docs.irregularities, d.CreatedAt, d.UpdatedAt,
	))
	if err != nil {
		if isUniqueViolation(err, "uk_payroll_details_run_employee") {
			return payroll.EmployeePayrollDetail{}, payroll.ErrDetailAlreadyExists
		}
		return payroll.EmployeePayrollDetail{}, fmt.Errorf("failed to create payroll detail: %w", err)
	}
	return created, nil
}

func (r *detailRepository) GetByID(ctx context.Context, id string) (payroll.EmployeePayrollDetail, error) {
	q := GetQuerier(ctx, r.db)

	d, err := scanDetail(q.QueryRow(ctx, `SELECT `+detailColumns+` FROM payroll_details WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.EmployeePayrollDetail{}, payroll.ErrDetailNotFound
		}
		return payroll.EmployeePayrollDetail{}, fmt.Errorf("failed to get payroll detail: %w", err)
	}
	return d, nil
}

func (r *detailRepository) CountByRun(ctx context.Context, runID string) (int, error) {
	q := GetQuerier(ctx, r.db)

	var n int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM payroll_details WHERE run_id = $1`, runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count payroll details: %w", err)
	}
	return n, nil
}

func (r *detailRepository) ListByRun(ctx context.Context, runID string) ([]payroll.EmployeePayrollDetail, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + detailColumns + ` FROM payroll_details WHERE run_id = $1 ORDER BY created_at, id`

	rows, err := q.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll details: %w", err)
	}
	defer rows.Close()

	details := []payroll.EmployeePayrollDetail{}
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payroll detail: %w", err)
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payroll details: %w", err)
	}
	return details, nil
}

func (r *detailRepository) PreviousForEmployee(ctx context.Context, employeeID string, before payroll.Period) (payroll.EmployeePayrollDetail, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + detailColumns + `
		FROM payroll_details
		WHERE employee_id = $1
			AND NOT irregularities @> jsonb_build_array(jsonb_build_object('Code', $4::text))
			AND run_id IN (
				SELECT id FROM payroll_runs
				WHERE status <> $5 AND (period_year, period_month) < ($2, $3)
			)
		ORDER BY (
			SELECT period_year * 12 + period_month FROM payroll_runs WHERE payroll_runs.id = payroll_details.run_id
		) DESC, created_at DESC
		LIMIT 1
	`

	d, err := scanDetail(q.QueryRow(ctx, query,
		employeeID, before.Year, int(before.Month),
		string(payroll.IrregularityProcessingError), payroll.RunStatusRejected,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.EmployeePayrollDetail{}, payroll.ErrDetailNotFound
		}
		return payroll.EmployeePayrollDetail{}, fmt.Errorf("failed to get latest payroll detail: %w", err)
	}
	return d, nil
}

func (r *detailRepository) Update(ctx context.Context, d payroll.EmployeePayrollDetail) error {
	q := GetQuerier(ctx, r.db)

	docs, err := encodeDetail(d)
	if err != nil {
		return err
	}

	query := `
		UPDATE payroll_details SET
			base_salary = $2, allowances = $3, allowance_breakdown = $4, gross_salary = $5, prorated_gross = $6,
			tax = $7, insurance = $8, penalties = $9, overtime = $10, attendance = $11,
			refunds = $12, refund_total = $13, refunds_deferred = $14,
			benefits = $15, bonus_total = $16, benefit_total = $17,
			net_salary = $18, net_pay = $19, bank_status = $20, payment_status = $21, floor_adjusted = $22,
			exception = $23, irregularities = $24, updated_at = $25
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query,
		d.ID,
		d.BaseSalary, d.Allowances, docs.allowanceBreakdown, d.GrossSalary, d.ProratedGross,
		docs.tax, docs.insurance, docs.penalties, docs.overtime, docs.attendance,
		docs.refunds, d.RefundTotal, d.RefundsDeferred,
		docs.benefits, d.BonusTotal, d.BenefitTotal,
		d.NetSalary, d.NetPay, d.BankStatus, d.PaymentStatus, d.FloorAdjusted,
		d.Exception, docs.irregularities, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update payroll detail: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrDetailNotFound
	}
	return nil
}

func (r *detailRepository) MarkRunPaid(ctx context.Context, runID string) error {
	q := GetQuerier(ctx, r.db)

	query := `UPDATE payroll_details SET payment_status = $2, updated_at = NOW() WHERE run_id = $1`
	if _, err := q.Exec(ctx, query, runID, payroll.PaymentStatusPaid); err != nil {
		return fmt.Errorf("failed to mark payroll details paid: %w", err)
	}
	return nil
}

func (r *detailRepository) DeleteByRun(ctx context.Context, runID string) error {
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `DELETE FROM payroll_details WHERE run_id = $1`, runID); err != nil {
		return fmt.Errorf("failed to delete payroll details: %w", err)
	}
	return nil
}

func scanDetail(row pgx.Row) (payroll.EmployeePayrollDetail, error) {
	var (
		d    payroll.EmployeePayrollDetail
		docs detailDocuments
	)
	err := row.Scan(
		&d.ID, &d.RunID, &d.EmployeeID,
		&d.BaseSalary, &d.Allowances, &docs.allowanceBreakdown, &d.GrossSalary, &d.ProratedGross,
		&docs.tax, &docs.insurance, &docs.penalties, &docs.overtime, &docs.attendance,
		&docs.refunds, &d.RefundTotal, &d.RefundsDeferred,
		&docs.benefits, &d.BonusTotal, &d.BenefitTotal,
		&d.NetSalary, &d.NetPay, &d.BankStatus, &d.PaymentStatus, &d.FloorAdjusted,
		&d.Exception, &docs.irregularities, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return payroll.EmployeePayrollDetail{}, err
	}

	for _, part := range []struct {
		src []byte
		dst interface{}
	}{
		{docs.allowanceBreakdown, &d.AllowanceBreakdown},
		{docs.tax, &d.Tax},
		{docs.insurance, &d.Insurance},
		{docs.penalties, &d.Penalties},
		{docs.overtime, &d.Overtime},
		{docs.attendance, &d.Attendance},
		{docs.refunds, &d.Refunds},
		{docs.benefits, &d.Benefits},
		{docs.irregularities, &d.Irregularities},
	} {
		if err := unmarshalJSON(part.src, part.dst); err != nil {
			return payroll.EmployeePayrollDetail{}, err
		}
	}
	return d, nil
}

// ========== PAYSLIPS ==========

const payslipColumns = `
	id, run_id, detail_id, employee_id, period_year, period_month,
	base_salary, allowances, overtime, bonuses, benefits, refunds, refund_total,
	tax, insurance, penalties, total_earnings, total_deductions, adjustment, net_pay,
	payment_status, paid_at, created_at, updated_at`

type payslipRepository struct {
	db *database.DB
}

func NewPayslipRepository(db *database.DB) payroll.PayslipRepository {
	return &payslipRepository{db: db}
}

func (r *payslipRepository) Create(ctx context.Context, p payroll.Payslip) (payroll.Payslip, error) {
	q := GetQuerier(ctx, r.db)

	allowances, err := marshalJSON(p.Allowances)
	if err != nil {
		return payroll.Payslip{}, err
	}
	refunds, err := marshalJSON(p.Refunds)
	if err != nil {
		return payroll.Payslip{}, err
	}
	penalties, err := marshalJSON(p.Penalties)
	if err != nil {
		return payroll.Payslip{}, err
	}

	query := `
		INSERT INTO payslips (
			id, run_id, detail_id, employee_id, period_year, period_month,
			base_salary, allowances, overtime, bonuses, benefits, refunds, refund_total,
			tax, insurance, penalties, total_earnings, total_deductions, adjustment, net_pay,
			payment_status, paid_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24
		)
		RETURNING ` + payslipColumns

	created, err := scanPayslip(q.QueryRow(ctx, query,
		p.ID, p.RunID, p.DetailID, p.EmployeeID, p.Period.Year, int(p.Period.Month),
		p.BaseSalary, allowances, p.Overtime, p.Bonuses, p.Benefits, refunds, p.RefundTotal,
		p.Tax, p.Insurance, penalties, p.TotalEarnings, p.TotalDeductions, p.Adjustment, p.NetPay,
		p.PaymentStatus, p.PaidAt, p.CreatedAt, p.UpdatedAt,
	))
	if err != nil {
		return payroll.Payslip{}, fmt.Errorf("failed to create payslip: %w", err)
	}
	return created, nil
}

func (r *payslipRepository) GetByEmployeeRun(ctx context.Context, employeeID string, runID string) (payroll.Payslip, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payslipColumns + ` FROM payslips WHERE employee_id = $1 AND run_id = $2`

	p, err := scanPayslip(q.QueryRow(ctx, query, employeeID, runID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.Payslip{}, payroll.ErrPayslipNotFound
		}
		return payroll.Payslip{}, fmt.Errorf("failed to get payslip: %w", err)
	}
	return p, nil
}

func (r *payslipRepository) ListByRun(ctx context.Context, runID string) ([]payroll.Payslip, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT `+payslipColumns+` FROM payslips WHERE run_id = $1 ORDER BY created_at, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payslips: %w", err)
	}
	defer rows.Close()

	payslips := []payroll.Payslip{}
	for rows.Next() {
		p, err := scanPayslip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payslip: %w", err)
		}
		payslips = append(payslips, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payslips: %w", err)
	}
	return payslips, nil
}

func (r *payslipRepository) MarkRunPaid(ctx context.Context, runID string, paidAt time.Time) (int, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payslips SET payment_status = $2, paid_at = $3, updated_at = $3
		WHERE run_id = $1 AND payment_status <> $2
	`
	tag, err := q.Exec(ctx, query, runID, payroll.PaymentStatusPaid, paidAt)
	if err != nil {
		return 0, fmt.Errorf("failed to mark payslips paid: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *payslipRepository) DeleteByRun(ctx context.Context, runID string) error {
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `DELETE FROM payslips WHERE run_id = $1`, runID); err != nil {
		return fmt.Errorf("failed to delete payslips: %w", err)
	}
	return nil
}

func scanPayslip(row pgx.Row) (payroll.Payslip, error) {
	var (
		p                              payroll.Payslip
		month                          int
		allowances, refunds, penalties []byte
	)
	err := row.Scan(
		&p.ID, &p.RunID, &p.DetailID, &p.EmployeeID, &p.Period.Year, &month,
		&p.BaseSalary, &allowances, &p.Overtime, &p.Bonuses, &p.Benefits, &refunds, &p.RefundTotal,
		&p.Tax, &p.Insurance, &penalties, &p.TotalEarnings, &p.TotalDeductions, &p.Adjustment, &p.NetPay,
		&p.PaymentStatus, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return payroll.Payslip{}, err
	}
	p.Period.Month = time.Month(month)

	if err := unmarshalJSON(allowances, &p.Allowances); err != nil {
		return payroll.Payslip{}, err
	}
	if err := unmarshalJSON(refunds, &p.Refunds); err != nil {
		return payroll.Payslip{}, err
	}
	if err := unmarshalJSON(penalties, &p.Penalties); err != nil {
		return payroll.Payslip{}, err
	}
	return p, nil
}

// ========== JSONB ==========

func marshalJSON(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode jsonb column: %w", err)
	}
	return b, nil
}

func unmarshalJSON(b []byte, dst interface{}) error {
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("failed to decode jsonb column: %w", err)
	}
	return nil
}
