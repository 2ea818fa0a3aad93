package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fixed pay-basis assumptions. These are policy constants of the pay
// model, not calendar math: a month is 22 working days of 8 hours when
// deriving daily and hourly rates.
const (
	WorkingDaysPerMonth = 22
	HoursPerDay         = 8
)

const (
	AllowanceFixed   = "fixed"
	AllowancePercent = "percent"
)

// AllowanceGrant is an approved allowance as stored: either a fixed
// amount or a percentage of base salary.
type AllowanceGrant struct {
	Name     string
	CalcType string
	Amount   decimal.Decimal
}

// AllowanceLine is a grant priced against a concrete base salary.
type AllowanceLine struct {
	Name     string          `json:"name"`
	CalcType string          `json:"calcType"`
	Amount   decimal.Decimal `json:"amount"`
}

type DeductionLine struct {
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}

// GrossPay is the full earnings breakdown for one employee and period.
type GrossPay struct {
	BaseSalary decimal.Decimal `json:"baseSalary"`
	DailyRate  decimal.Decimal `json:"dailyRate"`
	HourlyRate decimal.Decimal `json:"hourlyRate"`

	PresentDays int `json:"presentDays"`
	AbsentDays  int `json:"absentDays"`
	LeaveDays   int `json:"leaveDays"`

	WorkingHours   decimal.Decimal `json:"workingHours"`
	OvertimeHours  decimal.Decimal `json:"overtimeHours"`
	OvertimeAmount decimal.Decimal `json:"overtimeAmount"`

	NightDifferentialHours  decimal.Decimal `json:"nightDifferentialHours"`
	NightDifferentialAmount decimal.Decimal `json:"nightDifferentialAmount"`

	HolidayPayRegular decimal.Decimal `json:"holidayPayRegular"`
	HolidayPaySpecial decimal.Decimal `json:"holidayPaySpecial"`

	HazardPay        decimal.Decimal `json:"hazardPay"`
	Allowances       decimal.Decimal `json:"allowances"`
	AllowancesDetail []AllowanceLine `json:"allowancesDetail"`

	GrossPay decimal.Decimal `json:"grossPay"`
}

// Deductions is the statutory-deduction breakdown: one line per
// contribution type plus withholding tax.
type Deductions struct {
	Contributions  []DeductionLine `json:"contributions"`
	WithholdingTax decimal.Decimal `json:"withholdingTax"`
	Total          decimal.Decimal `json:"total"`
}

// Computation is the persisted result of one (employee, period)
// computation. Results are never mutated; a re-run inserts a new row
// that supersedes the prior current one.
type Computation struct {
	ID          string          `json:"id"`
	RunID       string          `json:"runId,omitempty"`
	EmployeeID  string          `json:"employeeId"`
	PeriodStart time.Time       `json:"periodStart"`
	PeriodEnd   time.Time       `json:"periodEnd"`
	Gross       GrossPay        `json:"gross"`
	Deductions  Deductions      `json:"deductions"`
	NetPay      decimal.Decimal `json:"netPay"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// RunFailure records why one employee's computation failed without
// aborting the rest of the batch.
type RunFailure struct {
	EmployeeID string `json:"employeeId"`
	Kind       string `json:"kind"`
	Message    string `json:"message"`
}

type RunReport struct {
	RunID     string       `json:"runId"`
	Succeeded int          `json:"succeeded"`
	Failures  []RunFailure `json:"failures"`
}

const (
	FailureNotFound    = "employee_not_found"
	FailureUnavailable = "directory_unavailable"
	FailureInactive    = "employee_inactive"
	FailureInternal    = "internal"
)
