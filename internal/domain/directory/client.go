package directory

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Employee is the read-only, per-computation copy of a directory record.
// The directory module owns the data; the payroll core never holds a live
// reference.
type Employee struct {
	ID             string          `json:"id"`
	FirstName      string          `json:"firstName"`
	LastName       string          `json:"lastName"`
	BaseSalary     decimal.Decimal `json:"baseSalary"`
	Position       string          `json:"position"`
	DepartmentID   string          `json:"departmentId"`
	EmploymentType string          `json:"employmentType"`
	Status         string          `json:"status"`
}

var (
	// ErrNotFound means the directory answered and the employee does not
	// exist. Definitive; never retried.
	ErrNotFound = errors.New("employee not found in directory")

	// ErrUnavailable means the directory could not be reached: circuit
	// open, retries exhausted, or a transport failure. Distinct from
	// ErrNotFound so operators can tell data absence from infrastructure
	// failure.
	ErrUnavailable = errors.New("employee directory unavailable")
)

// Client is the only way the payroll core reads employee reference data.
// Both the in-process and the remote implementation satisfy it, so the
// computation engine never knows which deployment shape it runs in.
type Client interface {
	EmployeeByID(ctx context.Context, id string) (*Employee, error)
	EmployeesByIDs(ctx context.Context, ids []string) (map[string]Employee, error)
	IsActive(ctx context.Context, id string) (bool, error)
	DepartmentID(ctx context.Context, id string) (string, error)
}
