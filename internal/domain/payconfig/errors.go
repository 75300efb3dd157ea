package payconfig

import "errors"

var (
	ErrSettingsNotFound = errors.New("payroll settings not found")
)
