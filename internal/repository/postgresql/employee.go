package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const employeeColumns = `
	id, employee_code, full_name, department_id, pay_grade_id, work_schedule_id,
	hire_date, termination_date, employment_type, employment_status,
	bank_name, bank_account_holder_name, bank_account_number, base_salary,
	created_at, updated_at`

type employeeRepository struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) employee.EmployeeRepository {
	return &employeeRepository{db: db}
}

func (r *employeeRepository) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	e, err := scanEmployee(q.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee: %w", err)
	}
	return e, nil
}

func (r *employeeRepository) ListActive(ctx context.Context, departmentID *string) ([]employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		WHERE employment_status = $1
		  AND ($2::uuid IS NULL OR department_id = $2)
		ORDER BY employee_code
	`

	rows, err := q.Query(ctx, query, employee.EmploymentStatusActive, departmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active employees: %w", err)
	}
	defer rows.Close()

	employees := []employee.Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate employees: %w", err)
	}
	return employees, nil
}

func scanEmployee(row pgx.Row) (employee.Employee, error) {
	var e employee.Employee
	err := row.Scan(
		&e.ID, &e.EmployeeCode, &e.FullName, &e.DepartmentID, &e.PayGradeID, &e.WorkScheduleID,
		&e.HireDate, &e.TerminationDate, &e.EmploymentType, &e.EmploymentStatus,
		&e.BankName, &e.BankAccountHolderName, &e.BankAccountNumber, &e.BaseSalary,
		&e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

// ========== PAY GRADES ==========

type payGradeRepository struct {
	db *database.DB
}

func NewPayGradeRepository(db *database.DB) employee.PayGradeRepository {
	return &payGradeRepository{db: db}
}

func (r *payGradeRepository) GetByID(ctx context.Context, id string) (employee.PayGrade, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT id, name, base_salary, created_at, updated_at FROM pay_grades WHERE id = $1`

	var g employee.PayGrade
	err := q.QueryRow(ctx, query, id).Scan(&g.ID, &g.Name, &g.BaseSalary, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.PayGrade{}, employee.ErrPayGradeNotFound
		}
		return employee.PayGrade{}, fmt.Errorf("failed to get pay grade: %w", err)
	}
	return g, nil
}
