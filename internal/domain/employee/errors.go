package employee

import "errors"

var (
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrPayGradeNotFound = errors.New("pay grade not found")
	ErrEmployeeInactive = errors.New("employee is not active")
)
