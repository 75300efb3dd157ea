package employee

import (
	"time"

	"github.com/shopspring/decimal"
)

type Employee struct {
	ID                    string
	EmployeeCode          string
	FullName              string
	DepartmentID          *string
	PayGradeID            *string
	WorkScheduleID        *string
	HireDate              time.Time
	TerminationDate       *time.Time
	EmploymentType        EmploymentType
	EmploymentStatus      EmploymentStatus
	BankName              string
	BankAccountHolderName *string
	BankAccountNumber     string
	BaseSalary            *decimal.Decimal // per-employee override
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type EmploymentType string

const (
	EmploymentTypePermanent  EmploymentType = "permanent"
	EmploymentTypeProbation  EmploymentType = "probation"
	EmploymentTypeContract   EmploymentType = "contract"
	EmploymentTypeInternship EmploymentType = "internship"
)

type EmploymentStatus string

const (
	EmploymentStatusActive     EmploymentStatus = "active"
	EmploymentStatusOnLeave    EmploymentStatus = "on_leave"
	EmploymentStatusSuspended  EmploymentStatus = "suspended"
	EmploymentStatusResigned   EmploymentStatus = "resigned"
	EmploymentStatusTerminated EmploymentStatus = "terminated"
)

// IsActive checks if the employee is eligible for payroll
func (e Employee) IsActive() bool {
	return e.EmploymentStatus == EmploymentStatusActive
}

// HasBankAccount checks if a payout account is on file
func (e Employee) HasBankAccount() bool {
	return e.BankName != "" && e.BankAccountNumber != ""
}

// PayGrade - salary band an employee may be assigned to
type PayGrade struct {
	ID         string
	Name       string
	BaseSalary decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
