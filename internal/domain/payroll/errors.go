package payroll

import "errors"

var (
	ErrComputationNotFound = errors.New("payroll computation not found")
	ErrEmployeeInactive    = errors.New("employee is not active")
)
