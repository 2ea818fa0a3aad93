package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"payrollcore/internal/domain/policy"
)

// Seed installs the default policy values, contribution rates, and the
// current year's tax brackets when the tables are empty. Existing rows
// are never touched, so operator edits survive restarts.
func Seed(ctx context.Context, pool *pgxpool.Pool) error {
	if err := seedPolicies(ctx, pool); err != nil {
		return err
	}
	if err := seedContributionRates(ctx, pool); err != nil {
		return err
	}
	return seedTaxBrackets(ctx, pool, time.Now().Year())
}

type numberPolicy struct {
	key   string
	value float64
}

func seedPolicies(ctx context.Context, pool *pgxpool.Pool) error {
	numbers := []numberPolicy{
		{policy.KeyOvertimeMultiplierRegular, 1.25},
		{policy.KeyOvertimeMultiplierHoliday, 1.69},
		{policy.KeyOvertimeMultiplierSpecial, 1.95},
		{policy.KeyNightDiffPercent, 10},
		{policy.KeyHolidayMultiplierRegular, 1.0},
		{policy.KeyHolidayMultiplierSpecial, 1.3},
		{policy.KeyHazardPayPercent, 25},
		{policy.KeyMonthlyTaxExemption, 20833.33},
	}
	for _, p := range numbers {
		_, err := pool.Exec(ctx, `
      INSERT INTO payroll_policies (policy_key, value_type, number_value)
      VALUES ($1, $2, $3)
      ON CONFLICT (policy_key) DO NOTHING
    `, p.key, policy.KindNumber, p.value)
		if err != nil {
			return err
		}
	}

	_, err := pool.Exec(ctx, `
    INSERT INTO payroll_policies (policy_key, value_type, string_value)
    VALUES ($1, $2, $3)
    ON CONFLICT (policy_key) DO NOTHING
  `, policy.KeyHazardPositions, policy.KindString,
		"nurse,radiolog,laborator,medical technolog,emergency,infectious")
	return err
}

func seedContributionRates(ctx context.Context, pool *pgxpool.Pool) error {
	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(1) FROM contribution_rates").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	rates := []struct {
		contributionType string
		employeeRate     float64
		employerRate     float64
		floor            float64
		ceiling          float64
	}{
		{policy.ContributionPension, 4.5, 9.5, 0, 20000},
		{"health", 2.5, 2.5, 10000, 100000},
		{"housing_fund", 2, 2, 0, 10000},
	}
	for _, r := range rates {
		_, err := pool.Exec(ctx, `
      INSERT INTO contribution_rates (contribution_type, employee_rate, employer_rate, salary_floor, salary_ceiling, effective_date)
      VALUES ($1, $2, $3, $4, $5, $6)
    `, r.contributionType, r.employeeRate, r.employerRate, r.floor, r.ceiling, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
		if err != nil {
			return err
		}
	}
	return nil
}

func seedTaxBrackets(ctx context.Context, pool *pgxpool.Pool, year int) error {
	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(1) FROM tax_brackets WHERE bracket_year = $1", year).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	// Annual brackets; base_tax stays 0 because the deduction calculator
	// accumulates the tax of every bracket it crosses.
	brackets := []struct {
		min  float64
		max  *float64
		rate float64
	}{
		{0, f(250000), 0},
		{250000, f(400000), 0.20},
		{400000, f(800000), 0.25},
		{800000, f(2000000), 0.30},
		{2000000, f(8000000), 0.32},
		{8000000, nil, 0.35},
	}
	for _, b := range brackets {
		_, err := pool.Exec(ctx, `
      INSERT INTO tax_brackets (bracket_year, bracket_min, bracket_max, base_tax, excess_rate)
      VALUES ($1, $2, $3, 0, $4)
    `, year, b.min, b.max, b.rate)
		if err != nil {
			return err
		}
	}
	return nil
}

func f(v float64) *float64 { return &v }
