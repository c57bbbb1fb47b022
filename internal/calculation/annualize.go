package calculation

import (
	"github.com/rgehrsitz/cdnpayroll/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultPeriodsPerYear is used for frequencies PeriodsPerYear does not recognise.
// Inputs are validated before they get here, so this only matters for direct callers.
const DefaultPeriodsPerYear = 26

// PeriodsPerYear returns the number of pay periods in a year for a frequency.
// Any spelling ParsePayFrequency accepts ("Weekly", "Bi-Weekly") is recognised.
func PeriodsPerYear(frequency domain.PayFrequency) int {
	canonical, err := domain.ParsePayFrequency(string(frequency))
	if err != nil {
		return DefaultPeriodsPerYear
	}
	switch canonical {
	case domain.Weekly:
		return 52
	case domain.Biweekly:
		return 26
	case domain.SemiMonthly:
		return 24
	case domain.Monthly:
		return 12
	default:
		return DefaultPeriodsPerYear
	}
}

// Annualize converts a per-period amount to an annual amount
func Annualize(periodAmount decimal.Decimal, frequency domain.PayFrequency) decimal.Decimal {
	return periodAmount.Mul(decimal.NewFromInt(int64(PeriodsPerYear(frequency))))
}

// Deannualize converts an annual amount to a per-period amount
func Deannualize(annualAmount decimal.Decimal, frequency domain.PayFrequency) decimal.Decimal {
	return perPeriod(annualAmount, PeriodsPerYear(frequency))
}

func perPeriod(annual decimal.Decimal, periodsPerYear int) decimal.Decimal {
	if periodsPerYear <= 0 {
		return decimal.Zero
	}
	return annual.Div(decimal.NewFromInt(int64(periodsPerYear)))
}
