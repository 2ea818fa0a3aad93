package policy

import (
	"context"
	"fmt"
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

// LoadContext assembles an immutable policy context for a computation
// dated asOf: all active policies, the latest contribution rate per type
// effective on or before asOf, and the tax brackets for asOf's year.
// Missing brackets are a configuration error and abort the computation.
func (s *Store) LoadContext(ctx context.Context, asOf time.Time) (*Context, error) {
	values, err := s.loadValues(ctx)
	if err != nil {
		return nil, fmt.Errorf("load policies: %w", err)
	}

	rates, err := s.loadRates(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("load contribution rates: %w", err)
	}

	year := asOf.Year()
	brackets, err := s.loadBrackets(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("load tax brackets: %w", err)
	}

	return NewContext(year, values, rates, brackets)
}

func (s *Store) loadValues(ctx context.Context) (map[string]Value, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT policy_key, value_type, bool_value, number_value::float8, string_value
    FROM payroll_policies
    WHERE is_active
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := map[string]Value{}
	for rows.Next() {
		var key, kind string
		var boolVal *bool
		var numVal *float64
		var strVal *string
		if err := rows.Scan(&key, &kind, &boolVal, &numVal, &strVal); err != nil {
			return nil, err
		}

		value := Value{Kind: kind}
		switch kind {
		case KindBool:
			if boolVal == nil {
				return nil, fmt.Errorf("%w: %s has no bool value", ErrMalformedPolicy, key)
			}
			value.Bool = *boolVal
		case KindNumber:
			if numVal == nil {
				return nil, fmt.Errorf("%w: %s has no number value", ErrMalformedPolicy, key)
			}
			value.Number = decimal.NewFromFloat(*numVal)
		case KindString:
			if strVal == nil {
				return nil, fmt.Errorf("%w: %s has no string value", ErrMalformedPolicy, key)
			}
			value.Text = *strVal
		default:
			return nil, fmt.Errorf("%w: %s has unknown type %q", ErrMalformedPolicy, key, kind)
		}
		values[key] = value
	}
	return values, rows.Err()
}

func (s *Store) loadRates(ctx context.Context, asOf time.Time) ([]ContributionRate, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT DISTINCT ON (contribution_type)
           contribution_type, employee_rate::float8, employer_rate::float8,
           salary_floor::float8, salary_ceiling::float8, effective_date
    FROM contribution_rates
    WHERE effective_date <= $1
    ORDER BY contribution_type, effective_date DESC
  `, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rates []ContributionRate
	for rows.Next() {
		var rate ContributionRate
		var employee, employer, floor, ceiling float64
		if err := rows.Scan(&rate.ContributionType, &employee, &employer, &floor, &ceiling, &rate.EffectiveDate); err != nil {
			return nil, err
		}
		rate.EmployeeRate = decimal.NewFromFloat(employee)
		rate.EmployerRate = decimal.NewFromFloat(employer)
		rate.SalaryFloor = decimal.NewFromFloat(floor)
		rate.SalaryCeiling = decimal.NewFromFloat(ceiling)
		rates = append(rates, rate)
	}
	return rates, rows.Err()
}

func (s *Store) loadBrackets(ctx context.Context, year int) ([]TaxBracket, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT bracket_year, bracket_min::float8, bracket_max::float8, base_tax::float8, excess_rate::float8
    FROM tax_brackets
    WHERE bracket_year = $1
    ORDER BY bracket_min
  `, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var brackets []TaxBracket
	for rows.Next() {
		var b TaxBracket
		var min, baseTax, rate float64
		var max *float64
		if err := rows.Scan(&b.Year, &min, &max, &baseTax, &rate); err != nil {
			return nil, err
		}
		b.Min = decimal.NewFromFloat(min)
		if max != nil {
			d := decimal.NewFromFloat(*max)
			b.Max = &d
		}
		b.BaseTax = decimal.NewFromFloat(baseTax)
		b.ExcessRate = decimal.NewFromFloat(rate)
		brackets = append(brackets, b)
	}
	return brackets, rows.Err()
}
