package payroll

import (
	"strings"

	"github.com/shopspring/decimal"

	"payrollcore/internal/domain/attendance"
	"payrollcore/internal/domain/directory"
	"payrollcore/internal/domain/policy"
)

var (
	defaultOvertimeRegular = decimal.NewFromFloat(1.25)
	defaultOvertimeHoliday = decimal.NewFromFloat(1.69)
	defaultOvertimeSpecial = decimal.NewFromFloat(1.95)
	defaultNightDiffPct    = decimal.NewFromInt(10)
	defaultHolidayRegular  = decimal.NewFromInt(1)
	defaultHolidaySpecial  = decimal.NewFromFloat(1.3)
	defaultHazardPct       = decimal.NewFromInt(25)

	hundred = decimal.NewFromInt(100)
)

// ComputeGross combines base pay, overtime, night differential, holiday
// pay, hazard pay, and allowances into gross pay. Every monetary figure
// is rounded to 2 decimals where it is computed so downstream sums are
// reproducible.
func ComputeGross(employee directory.Employee, summary attendance.Summary, grants []AllowanceGrant, pctx *policy.Context) GrossPay {
	base := employee.BaseSalary.Round(2)
	daily := base.Div(decimal.NewFromInt(WorkingDaysPerMonth)).Round(2)
	hourly := daily.Div(decimal.NewFromInt(HoursPerDay)).Round(2)

	overtime := overtimeAmount(hourly, summary, pctx)

	nightPct := pctx.NumberOr(policy.KeyNightDiffPercent, defaultNightDiffPct)
	nightAmount := summary.NightShiftHours.Mul(hourly).Mul(nightPct.Div(hundred)).Round(2)

	holidayRegular := daily.
		Mul(decimal.NewFromInt(int64(summary.RegularHolidaysWorked))).
		Mul(pctx.NumberOr(policy.KeyHolidayMultiplierRegular, defaultHolidayRegular)).
		Round(2)
	holidaySpecial := daily.
		Mul(decimal.NewFromInt(int64(summary.SpecialHolidaysWorked))).
		Mul(pctx.NumberOr(policy.KeyHolidayMultiplierSpecial, defaultHolidaySpecial)).
		Round(2)

	hazard := hazardPay(employee.Position, daily, summary.PresentDays, pctx)

	lines := priceAllowances(base, grants)
	allowanceTotal := decimal.Zero
	for _, line := range lines {
		allowanceTotal = allowanceTotal.Add(line.Amount)
	}

	gross := base.
		Add(overtime).
		Add(nightAmount).
		Add(holidayRegular).
		Add(holidaySpecial).
		Add(hazard).
		Add(allowanceTotal).
		Round(2)

	return GrossPay{
		BaseSalary:              base,
		DailyRate:               daily,
		HourlyRate:              hourly,
		PresentDays:             summary.PresentDays,
		AbsentDays:              summary.AbsentDays,
		LeaveDays:               summary.LeaveDays,
		WorkingHours:            summary.WorkingHours,
		OvertimeHours:           summary.OvertimeHoursTotal(),
		OvertimeAmount:          overtime,
		NightDifferentialHours:  summary.NightShiftHours,
		NightDifferentialAmount: nightAmount,
		HolidayPayRegular:       holidayRegular,
		HolidayPaySpecial:       holidaySpecial,
		HazardPay:               hazard,
		Allowances:              allowanceTotal,
		AllowancesDetail:        lines,
		GrossPay:                gross,
	}
}

func overtimeAmount(hourly decimal.Decimal, summary attendance.Summary, pctx *policy.Context) decimal.Decimal {
	regular := summary.OvertimeRegularHours.
		Mul(hourly).
		Mul(pctx.NumberOr(policy.KeyOvertimeMultiplierRegular, defaultOvertimeRegular)).
		Round(2)
	holiday := summary.OvertimeHolidayHours.
		Mul(hourly).
		Mul(pctx.NumberOr(policy.KeyOvertimeMultiplierHoliday, defaultOvertimeHoliday)).
		Round(2)
	special := summary.OvertimeSpecialHours.
		Mul(hourly).
		Mul(pctx.NumberOr(policy.KeyOvertimeMultiplierSpecial, defaultOvertimeSpecial)).
		Round(2)
	return regular.Add(holiday).Add(special)
}

// hazardPay applies only when the position name contains one of the
// configured hazard keywords (case-insensitive substring match, so
// "nurse" covers "Senior Nurse Supervisor").
func hazardPay(position string, daily decimal.Decimal, presentDays int, pctx *policy.Context) decimal.Decimal {
	if !hazardEligible(position, pctx.StringList(policy.KeyHazardPositions)) {
		return decimal.Zero
	}
	pct := pctx.NumberOr(policy.KeyHazardPayPercent, defaultHazardPct)
	return daily.
		Mul(pct.Div(hundred)).
		Mul(decimal.NewFromInt(int64(presentDays))).
		Round(2)
}

func hazardEligible(position string, keywords []string) bool {
	lowered := strings.ToLower(position)
	for _, keyword := range keywords {
		if keyword != "" && strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

func priceAllowances(base decimal.Decimal, grants []AllowanceGrant) []AllowanceLine {
	lines := make([]AllowanceLine, 0, len(grants))
	for _, grant := range grants {
		amount := grant.Amount
		if grant.CalcType == AllowancePercent {
			amount = base.Mul(grant.Amount).Div(hundred)
		}
		lines = append(lines, AllowanceLine{
			Name:     grant.Name,
			CalcType: grant.CalcType,
			Amount:   amount.Round(2),
		})
	}
	return lines
}
