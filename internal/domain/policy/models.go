package policy

import (
	"time"

	"github.com/shopspring/decimal"
)

// Policy keys recognized by the payroll engine. Values live in the
// payroll_policies table; these constants are the only place key names
// are spelled out.
const (
	KeyOvertimeMultiplierRegular = "overtime_multiplier_regular"
	KeyOvertimeMultiplierHoliday = "overtime_multiplier_holiday"
	KeyOvertimeMultiplierSpecial = "overtime_multiplier_special"
	KeyNightDiffPercent          = "night_diff_percent"
	KeyHolidayMultiplierRegular  = "holiday_multiplier_regular"
	KeyHolidayMultiplierSpecial  = "holiday_multiplier_special"
	KeyHazardPayPercent          = "hazard_pay_percent"
	KeyHazardPositions           = "hazard_positions"
	KeyMonthlyTaxExemption       = "monthly_tax_exemption"
)

const (
	KindBool   = "bool"
	KindNumber = "number"
	KindString = "string"
)

// ContributionPension is the contribution type treated as tax-deductible
// when deriving taxable income.
const ContributionPension = "pension"

type Value struct {
	Kind   string
	Bool   bool
	Number decimal.Decimal
	Text   string
}

type ContributionRate struct {
	ContributionType string
	EmployeeRate     decimal.Decimal
	EmployerRate     decimal.Decimal
	SalaryFloor      decimal.Decimal
	SalaryCeiling    decimal.Decimal
	EffectiveDate    time.Time
}

type TaxBracket struct {
	Year       int
	Min        decimal.Decimal
	Max        *decimal.Decimal
	BaseTax    decimal.Decimal
	ExcessRate decimal.Decimal
}
