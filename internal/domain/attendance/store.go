package attendance

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

// RecordsInRange returns the employee's attendance rows with
// periodStart <= work_date <= periodEnd.
func (s *Store) RecordsInRange(ctx context.Context, employeeID string, periodStart, periodEnd time.Time) ([]Record, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT employee_id, work_date, status, total_hours::float8, overtime_hours::float8,
           is_overtime, is_night_shift, is_holiday, is_special_holiday
    FROM attendance_records
    WHERE employee_id = $1 AND work_date BETWEEN $2 AND $3
    ORDER BY work_date
  `, employeeID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var total, overtime float64
		if err := rows.Scan(&r.EmployeeID, &r.Date, &r.Status, &total, &overtime,
			&r.IsOvertime, &r.IsNightShift, &r.IsHoliday, &r.IsSpecialHoliday); err != nil {
			return nil, err
		}
		r.TotalHours = decimal.NewFromFloat(total)
		r.OvertimeHours = decimal.NewFromFloat(overtime)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Summarize fetches and reduces in one call.
func (s *Store) Summarize(ctx context.Context, employeeID string, periodStart, periodEnd time.Time) (Summary, error) {
	records, err := s.RecordsInRange(ctx, employeeID, periodStart, periodEnd)
	if err != nil {
		return Summary{}, err
	}
	return Aggregate(records), nil
}
