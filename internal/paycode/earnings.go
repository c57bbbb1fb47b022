package paycode

import (
	"fmt"
	"time"

	"github.com/rgehrsitz/cdnpayroll/internal/domain"
	"github.com/shopspring/decimal"
)

// EarningsInput is one timesheet entry to price
type EarningsInput struct {
	Hours           decimal.Decimal
	Amount          *decimal.Decimal
	PayCode         domain.PayCode
	Rate            domain.EmployeeRate
	StackedPremiums []domain.PayCode
	// Date is the work date; when set, inactive or expired codes produce a warning.
	Date time.Time
}

// EarningsResult is the priced entry. Warnings never block the calculation.
type EarningsResult struct {
	GrossEarnings decimal.Decimal `json:"gross_earnings"`
	Calculation   string          `json:"calculation"`
	Warnings      []string        `json:"warnings"`
	GLCode        string          `json:"gl_code,omitempty"`
}

// CalculateEarnings computes gross earnings for a single entry.
func CalculateEarnings(in EarningsInput) EarningsResult {
	pc := in.PayCode
	result := EarningsResult{GLCode: pc.GLEarningsCode, Warnings: validateInputs(in)}

	hours := in.Hours
	if hours.IsNegative() {
		hours = decimal.Zero
	}

	switch pc.EffectiveRateType() {
	case domain.RateTypeFlatAmount:
		amount := decimal.Zero
		if in.Amount != nil {
			amount = *in.Amount
		}
		result.GrossEarnings = amount
		result.Calculation = fmt.Sprintf("Flat amount %s", money(amount))

	case domain.RateTypeFlatHourly:
		rate, source := flatHourlyRate(pc, in.Rate)
		gross := hours.Mul(rate)
		result.GrossEarnings = gross
		result.Calculation = fmt.Sprintf("%sh × %s/h (%s) = %s", hours.String(), money(rate), source, money(gross))

	default:
		multiplier := pc.MultiplierOrOne()
		base := hours.Mul(in.Rate.BaseRate)
		if stacksOnBase(pc, in.StackedPremiums) {
			premium := hours.Mul(in.Rate.BaseRate).Mul(multiplier.Sub(decimal.NewFromInt(1)))
			gross := base.Add(premium)
			result.GrossEarnings = gross
			result.Calculation = fmt.Sprintf("%sh × %s/h + %sh × %s/h × (%s − 1) stacked premium = %s",
				hours.String(), money(in.Rate.BaseRate), hours.String(), money(in.Rate.BaseRate), multiplier.String(), money(gross))
		} else {
			gross := base.Mul(multiplier)
			result.GrossEarnings = gross
			result.Calculation = fmt.Sprintf("%sh × %s/h × %s = %s",
				hours.String(), money(in.Rate.BaseRate), multiplier.String(), money(gross))
		}
	}

	result.GrossEarnings = result.GrossEarnings.Round(2)
	return result
}

// flatHourlyRate resolves the hourly rate for a flat_hourly code and names where it came from.
func flatHourlyRate(pc domain.PayCode, rate domain.EmployeeRate) (decimal.Decimal, string) {
	switch {
	case pc.FlatRateOverride != nil:
		return *pc.FlatRateOverride, "pay code rate"
	case pc.Multiplier != nil:
		return *pc.Multiplier, "pay code rate"
	default:
		return rate.BaseRate, "employee base rate"
	}
}

// stacksOnBase reports whether a premium is paid as an add-on over base pay
func stacksOnBase(pc domain.PayCode, stacked []domain.PayCode) bool {
	if pc.Category != domain.CategoryPremium || !pc.Stackable {
		return false
	}
	for _, other := range stacked {
		if other.Code != pc.Code && other.Category == domain.CategoryPremium {
			return true
		}
	}
	return false
}

func validateInputs(in EarningsInput) []string {
	pc := in.PayCode
	warnings := []string{}

	hasHours := in.Hours.GreaterThan(decimal.Zero)
	hasAmount := in.Amount != nil && in.Amount.GreaterThan(decimal.Zero)

	if pc.RequiresHours && !hasHours {
		warnings = append(warnings, fmt.Sprintf("Pay code %s requires hours but none provided", pc.Code))
	}
	if !pc.RequiresHours && hasHours && pc.EffectiveRateType() == domain.RateTypeFlatAmount {
		warnings = append(warnings, fmt.Sprintf("Pay code %s does not use hours; %sh entered will not affect pay", pc.Code, in.Hours.String()))
	}
	if pc.RequiresAmount && !hasAmount {
		warnings = append(warnings, fmt.Sprintf("Pay code %s requires an amount but none provided", pc.Code))
	}
	if !pc.RequiresAmount && hasAmount && pc.EffectiveRateType() != domain.RateTypeFlatAmount {
		warnings = append(warnings, fmt.Sprintf("Pay code %s does not use an amount; %s entered will be ignored", pc.Code, money(*in.Amount)))
	}
	if in.Hours.IsNegative() {
		warnings = append(warnings, fmt.Sprintf("Negative hours (%s) treated as zero", in.Hours.String()))
	}
	if len(in.StackedPremiums) > 0 && pc.Category == domain.CategoryPremium && !pc.Stackable {
		warnings = append(warnings, fmt.Sprintf("Pay code %s is not stackable; premium paid as a full multiplier", pc.Code))
	}
	if !in.Date.IsZero() && !pc.IsAvailable(in.Date) {
		warnings = append(warnings, fmt.Sprintf("Pay code %s is inactive or expired on %s", pc.Code, in.Date.Format("2006-01-02")))
	}
	return warnings
}

func money(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Abs().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}
