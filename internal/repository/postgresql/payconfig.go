package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payconfig"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type payConfigRepository struct {
	db *database.DB
}

func NewPayConfigRepository(db *database.DB) payconfig.Repository {
	return &payConfigRepository{db: db}
}

func (r *payConfigRepository) ListTaxRules(ctx context.Context, status payconfig.Status) ([]payconfig.TaxRule, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, name, rate, min_salary, max_salary, status, created_at, updated_at
		FROM tax_rules
		WHERE status = $1
		ORDER BY created_at, id
	`

	rows, err := q.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list tax rules: %w", err)
	}
	defer rows.Close()

	var rules []payconfig.TaxRule
	for rows.Next() {
		var t payconfig.TaxRule
		if err := rows.Scan(&t.ID, &t.Name, &t.Rate, &t.MinSalary, &t.MaxSalary, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tax rule: %w", err)
		}
		rules = append(rules, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tax rules: %w", err)
	}
	return rules, nil
}

func (r *payConfigRepository) ListInsuranceBrackets(ctx context.Context, status payconfig.Status) ([]payconfig.InsuranceBracket, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, name, min_salary, max_salary, employee_rate, employer_rate, status, created_at, updated_at
		FROM insurance_brackets
		WHERE status = $1
		ORDER BY min_salary, id
	`

	rows, err := q.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list insurance brackets: %w", err)
	}
	defer rows.Close()

	var brackets []payconfig.InsuranceBracket
	for rows.Next() {
		var b payconfig.InsuranceBracket
		if err := rows.Scan(
			&b.ID, &b.Name, &b.MinSalary, &b.MaxSalary, &b.EmployeeRate, &b.EmployerRate, &b.Status, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan insurance bracket: %w", err)
		}
		brackets = append(brackets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate insurance brackets: %w", err)
	}
	return brackets, nil
}

func (r *payConfigRepository) ListAllowanceRules(ctx context.Context, status payconfig.Status) ([]payconfig.AllowanceRule, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, name, amount, employee_id, status, created_at, updated_at
		FROM allowance_rules
		WHERE status = $1
		ORDER BY created_at, id
	`

	rows, err := q.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list allowance rules: %w", err)
	}
	defer rows.Close()

	var rules []payconfig.AllowanceRule
	for rows.Next() {
		var a payconfig.AllowanceRule
		if err := rows.Scan(&a.ID, &a.Name, &a.Amount, &a.EmployeeID, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan allowance rule: %w", err)
		}
		rules = append(rules, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate allowance rules: %w", err)
	}
	return rules, nil
}

func (r *payConfigRepository) GetSettings(ctx context.Context) (payconfig.Settings, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT minimum_wage, short_time_deduction_percent,
			   lateness_grace_minutes, lateness_penalty_per_minute, lateness_max_penalty,
			   overtime_multiplier, updated_at
		FROM payroll_settings
		WHERE id = 1
	`

	var (
		s                  payconfig.Settings
		shortTimePercent   *decimal.Decimal
		graceMinutes       *int
		perMinute, maxCap  *decimal.Decimal
		overtimeMultiplier *decimal.Decimal
	)
	err := q.QueryRow(ctx, query).Scan(
		&s.MinimumWage, &shortTimePercent,
		&graceMinutes, &perMinute, &maxCap,
		&overtimeMultiplier, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payconfig.Settings{}, payconfig.ErrSettingsNotFound
		}
		return payconfig.Settings{}, fmt.Errorf("failed to get payroll settings: %w", err)
	}

	// A rule is configured only when its defining column is set.
	if shortTimePercent != nil {
		s.Penalties.ShortTime = &payconfig.ShortTimeRule{DeductionPercent: *shortTimePercent}
	}
	if perMinute != nil {
		rule := &payconfig.LatenessRule{PenaltyPerMinute: *perMinute}
		if graceMinutes != nil {
			rule.GraceMinutes = *graceMinutes
		}
		if maxCap != nil {
			rule.MaxPenalty = *maxCap
		}
		s.Penalties.Lateness = rule
	}
	if overtimeMultiplier != nil {
		s.Penalties.Overtime = &payconfig.OvertimeRule{Multiplier: *overtimeMultiplier}
	}
	return s, nil
}
