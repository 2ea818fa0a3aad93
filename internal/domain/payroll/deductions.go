package payroll

import (
	"github.com/shopspring/decimal"

	"payrollcore/internal/domain/policy"
)

var (
	defaultMonthlyExemption = decimal.NewFromFloat(20833.33)
	twelve                  = decimal.NewFromInt(12)
)

// ComputeDeductions derives every mandatory contribution plus the
// monthly withholding tax from a gross salary under the given policy
// context.
func ComputeDeductions(gross decimal.Decimal, pctx *policy.Context) Deductions {
	var d Deductions
	pension := decimal.Zero

	for _, rate := range pctx.Rates() {
		wage := clamp(gross, rate.SalaryFloor, rate.SalaryCeiling)
		amount := wage.Mul(rate.EmployeeRate).Div(hundred).Round(2)
		d.Contributions = append(d.Contributions, DeductionLine{
			Type:   rate.ContributionType,
			Amount: amount,
		})
		if rate.ContributionType == policy.ContributionPension {
			pension = amount
		}
	}

	d.WithholdingTax = withholdingTax(gross, pension, pctx)

	total := d.WithholdingTax
	for _, line := range d.Contributions {
		total = total.Add(line.Amount)
	}
	d.Total = total
	return d
}

func clamp(v, floor, ceiling decimal.Decimal) decimal.Decimal {
	if v.LessThan(floor) {
		return floor
	}
	if v.GreaterThan(ceiling) {
		return ceiling
	}
	return v
}

// withholdingTax annualizes taxable income past the monthly exemption
// and walks the year's brackets, accumulating the tax contribution of
// every bracket crossed. Applying only the final bracket's rate to the
// whole excess understates progressive tax and is exactly the shortcut
// this loop avoids.
func withholdingTax(gross, pensionDeduction decimal.Decimal, pctx *policy.Context) decimal.Decimal {
	taxable := gross.Sub(pensionDeduction)
	exemption := pctx.NumberOr(policy.KeyMonthlyTaxExemption, defaultMonthlyExemption)
	if taxable.LessThanOrEqual(exemption) {
		return decimal.Zero
	}

	annual := taxable.Sub(exemption).Mul(twelve)

	tax := decimal.Zero
	for _, bracket := range pctx.Brackets() {
		if bracket.Max != nil && annual.GreaterThan(*bracket.Max) {
			tax = tax.
				Add(bracket.BaseTax).
				Add(bracket.Max.Sub(bracket.Min).Mul(bracket.ExcessRate))
			continue
		}
		tax = tax.
			Add(bracket.BaseTax).
			Add(annual.Sub(bracket.Min).Mul(bracket.ExcessRate))
		break
	}

	monthly := tax.Div(twelve).Round(2)
	if monthly.IsNegative() {
		return decimal.Zero
	}
	return monthly
}
