package payroll

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"payrollcore/internal/domain/audit"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) ApprovedAllowances(ctx context.Context, employeeID string) ([]AllowanceGrant, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT name, calc_type, amount::float8
    FROM employee_allowances
    WHERE employee_id = $1 AND status = 'approved'
    ORDER BY name
  `, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []AllowanceGrant
	for rows.Next() {
		var grant AllowanceGrant
		var amount float64
		if err := rows.Scan(&grant.Name, &grant.CalcType, &amount); err != nil {
			return nil, err
		}
		grant.Amount = decimal.NewFromFloat(amount)
		grants = append(grants, grant)
	}
	return grants, rows.Err()
}

// SaveComputation persists a new result and its audit entry in one
// transaction: the prior current row for the (employee, period) is
// demoted, the new row inserted, the audit entry appended. Either all
// three happen or none do.
func (s *Store) SaveComputation(ctx context.Context, comp Computation, entry audit.Entry) error {
	allowancesJSON, err := json.Marshal(comp.Gross.AllowancesDetail)
	if err != nil {
		return err
	}
	deductionsJSON, err := json.Marshal(comp.Deductions.Contributions)
	if err != nil {
		return err
	}

	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
    UPDATE payroll_computations
    SET is_current = false
    WHERE employee_id = $1 AND period_start = $2 AND period_end = $3 AND is_current
  `, comp.EmployeeID, comp.PeriodStart, comp.PeriodEnd); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
    INSERT INTO payroll_computations (
      id, run_id, employee_id, period_start, period_end,
      base_salary, daily_rate, hourly_rate,
      present_days, absent_days, leave_days,
      working_hours, overtime_hours, overtime_amount,
      night_diff_hours, night_diff_amount,
      holiday_pay_regular, holiday_pay_special,
      hazard_pay, allowances, allowances_detail,
      gross_pay, deductions, withholding_tax, total_deductions, net_pay,
      is_current, created_at
    ) VALUES (
      $1, $2, $3, $4, $5,
      $6, $7, $8,
      $9, $10, $11,
      $12, $13, $14,
      $15, $16,
      $17, $18,
      $19, $20, $21,
      $22, $23, $24, $25, $26,
      true, $27
    )
  `,
		comp.ID, nullIfEmpty(comp.RunID), comp.EmployeeID, comp.PeriodStart, comp.PeriodEnd,
		comp.Gross.BaseSalary.StringFixed(2), comp.Gross.DailyRate.StringFixed(2), comp.Gross.HourlyRate.StringFixed(2),
		comp.Gross.PresentDays, comp.Gross.AbsentDays, comp.Gross.LeaveDays,
		comp.Gross.WorkingHours.StringFixed(2), comp.Gross.OvertimeHours.StringFixed(2), comp.Gross.OvertimeAmount.StringFixed(2),
		comp.Gross.NightDifferentialHours.StringFixed(2), comp.Gross.NightDifferentialAmount.StringFixed(2),
		comp.Gross.HolidayPayRegular.StringFixed(2), comp.Gross.HolidayPaySpecial.StringFixed(2),
		comp.Gross.HazardPay.StringFixed(2), comp.Gross.Allowances.StringFixed(2), allowancesJSON,
		comp.Gross.GrossPay.StringFixed(2), deductionsJSON, comp.Deductions.WithholdingTax.StringFixed(2),
		comp.Deductions.Total.StringFixed(2), comp.NetPay.StringFixed(2),
		comp.CreatedAt,
	); err != nil {
		return err
	}

	if err := audit.RecordTx(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

const computationColumns = `
  SELECT id, COALESCE(run_id::text, ''), employee_id, period_start, period_end,
         base_salary::float8, daily_rate::float8, hourly_rate::float8,
         present_days, absent_days, leave_days,
         working_hours::float8, overtime_hours::float8, overtime_amount::float8,
         night_diff_hours::float8, night_diff_amount::float8,
         holiday_pay_regular::float8, holiday_pay_special::float8,
         hazard_pay::float8, allowances::float8, allowances_detail,
         gross_pay::float8, deductions, withholding_tax::float8, total_deductions::float8, net_pay::float8,
         created_at
  FROM payroll_computations
`

// CurrentComputation returns the authoritative result for the employee
// and period, or ErrComputationNotFound.
func (s *Store) CurrentComputation(ctx context.Context, employeeID string, periodStart, periodEnd time.Time) (Computation, error) {
	row := s.DB.QueryRow(ctx, computationColumns+`
    WHERE employee_id = $1 AND period_start = $2 AND period_end = $3 AND is_current
  `, employeeID, periodStart, periodEnd)
	return scanComputation(row)
}

func (s *Store) ComputationByID(ctx context.Context, id string) (Computation, error) {
	row := s.DB.QueryRow(ctx, computationColumns+" WHERE id = $1", id)
	return scanComputation(row)
}

func (s *Store) ComputationsForRun(ctx context.Context, runID string) ([]Computation, error) {
	rows, err := s.DB.Query(ctx, computationColumns+`
    WHERE run_id = $1 AND is_current
    ORDER BY employee_id
  `, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Computation
	for rows.Next() {
		comp, err := scanComputation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, comp)
	}
	return out, rows.Err()
}

func scanComputation(row pgx.Row) (Computation, error) {
	var comp Computation
	var baseSalary, dailyRate, hourlyRate float64
	var workingHours, overtimeHours, overtimeAmount float64
	var nightHours, nightAmount float64
	var holidayRegular, holidaySpecial float64
	var hazard, allowances float64
	var gross, tax, totalDeductions, net float64
	var allowancesJSON, deductionsJSON []byte

	err := row.Scan(&comp.ID, &comp.RunID, &comp.EmployeeID, &comp.PeriodStart, &comp.PeriodEnd,
		&baseSalary, &dailyRate, &hourlyRate,
		&comp.Gross.PresentDays, &comp.Gross.AbsentDays, &comp.Gross.LeaveDays,
		&workingHours, &overtimeHours, &overtimeAmount,
		&nightHours, &nightAmount,
		&holidayRegular, &holidaySpecial,
		&hazard, &allowances, &allowancesJSON,
		&gross, &deductionsJSON, &tax, &totalDeductions, &net,
		&comp.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Computation{}, ErrComputationNotFound
		}
		return Computation{}, err
	}

	comp.Gross.BaseSalary = decimal.NewFromFloat(baseSalary)
	comp.Gross.DailyRate = decimal.NewFromFloat(dailyRate)
	comp.Gross.HourlyRate = decimal.NewFromFloat(hourlyRate)
	comp.Gross.WorkingHours = decimal.NewFromFloat(workingHours)
	comp.Gross.OvertimeHours = decimal.NewFromFloat(overtimeHours)
	comp.Gross.OvertimeAmount = decimal.NewFromFloat(overtimeAmount)
	comp.Gross.NightDifferentialHours = decimal.NewFromFloat(nightHours)
	comp.Gross.NightDifferentialAmount = decimal.NewFromFloat(nightAmount)
	comp.Gross.HolidayPayRegular = decimal.NewFromFloat(holidayRegular)
	comp.Gross.HolidayPaySpecial = decimal.NewFromFloat(holidaySpecial)
	comp.Gross.HazardPay = decimal.NewFromFloat(hazard)
	comp.Gross.Allowances = decimal.NewFromFloat(allowances)
	comp.Gross.GrossPay = decimal.NewFromFloat(gross)
	comp.Deductions.WithholdingTax = decimal.NewFromFloat(tax)
	comp.Deductions.Total = decimal.NewFromFloat(totalDeductions)
	comp.NetPay = decimal.NewFromFloat(net)

	if err := json.Unmarshal(allowancesJSON, &comp.Gross.AllowancesDetail); err != nil {
		return Computation{}, err
	}
	if err := json.Unmarshal(deductionsJSON, &comp.Deductions.Contributions); err != nil {
		return Computation{}, err
	}
	return comp, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
