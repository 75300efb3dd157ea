package employee

import "context"

// EmployeeRepository is the employee/org collaborator.
type EmployeeRepository interface {
	GetByID(ctx context.Context, id string) (Employee, error)
	// ListActive returns active employees, restricted to departmentID when it is set.
	ListActive(ctx context.Context, departmentID *string) ([]Employee, error)
}

type PayGradeRepository interface {
	GetByID(ctx context.Context, id string) (PayGrade, error)
}
