package directory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// LocalClient reads the employees table directly. Used when the directory
// module shares the deployment with the payroll core.
type LocalClient struct {
	DB *pgxpool.Pool
}

func NewLocalClient(db *pgxpool.Pool) *LocalClient {
	return &LocalClient{DB: db}
}

const employeeColumns = `
  SELECT id, first_name, last_name, base_salary::float8, position_name,
         COALESCE(department_id::text, ''), employment_type, status
  FROM employees
`

func (c *LocalClient) EmployeeByID(ctx context.Context, id string) (*Employee, error) {
	row := c.DB.QueryRow(ctx, employeeColumns+" WHERE id = $1", id)
	employee, err := scanEmployee(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &employee, nil
}

func (c *LocalClient) EmployeesByIDs(ctx context.Context, ids []string) (map[string]Employee, error) {
	out := make(map[string]Employee, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := c.DB.Query(ctx, employeeColumns+" WHERE id = ANY($1)", ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		employee, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out[employee.ID] = employee
	}
	return out, rows.Err()
}

func (c *LocalClient) IsActive(ctx context.Context, id string) (bool, error) {
	var status string
	err := c.DB.QueryRow(ctx, "SELECT status FROM employees WHERE id = $1", id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, err
	}
	return status == "active", nil
}

func (c *LocalClient) DepartmentID(ctx context.Context, id string) (string, error) {
	var departmentID string
	err := c.DB.QueryRow(ctx, "SELECT COALESCE(department_id::text, '') FROM employees WHERE id = $1", id).Scan(&departmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return departmentID, nil
}

func scanEmployee(row pgx.Row) (Employee, error) {
	var e Employee
	var baseSalary float64
	if err := row.Scan(&e.ID, &e.FirstName, &e.LastName, &baseSalary, &e.Position,
		&e.DepartmentID, &e.EmploymentType, &e.Status); err != nil {
		return Employee{}, err
	}
	e.BaseSalary = decimal.NewFromFloat(baseSalary)
	return e, nil
}
