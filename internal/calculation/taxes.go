package calculation

import (
	"github.com/rgehrsitz/cdnpayroll/internal/domain"
	"github.com/shopspring/decimal"
)

// TAX CALCULATION ASSUMPTIONS:
//
// 1. Periodic method: each period is annualized, taxed on the full-year
//    brackets, and divided back down. Year-to-date federal and provincial tax
//    is carried on the input but does not cap or true-up the period amount.
//
// 2. The basic personal amount is deducted from taxable income before the
//    brackets are applied. No other credits (CPP/EI, Canada employment amount)
//    are modelled.
//
// 3. Brackets must be sorted ascending by UpTo with the unbounded bracket last.
//    The config loader rejects tables that are not.

// MarginalTaxCalculator applies one jurisdiction's bracket table
type MarginalTaxCalculator struct {
	Jurisdiction domain.Jurisdiction
}

// NewMarginalTaxCalculator creates a calculator for a jurisdiction
func NewMarginalTaxCalculator(j domain.Jurisdiction) *MarginalTaxCalculator {
	return &MarginalTaxCalculator{Jurisdiction: j}
}

// AnnualTax calculates annual income tax on taxableAnnual
func (mtc *MarginalTaxCalculator) AnnualTax(taxableAnnual decimal.Decimal) decimal.Decimal {
	taxableAfterBasic := decimal.Max(decimal.Zero, taxableAnnual.Sub(mtc.Jurisdiction.BasicPersonalAmount))
	if taxableAfterBasic.IsZero() {
		return decimal.Zero
	}

	totalTax := decimal.Zero
	previousMax := decimal.Zero
	for _, bracket := range mtc.Jurisdiction.Brackets {
		if taxableAfterBasic.LessThanOrEqual(previousMax) {
			break
		}
		top := taxableAfterBasic
		if !bracket.Unbounded() {
			top = decimal.Min(taxableAfterBasic, *bracket.UpTo)
		}
		incomeInBracket := top.Sub(previousMax)
		if incomeInBracket.GreaterThan(decimal.Zero) {
			totalTax = totalTax.Add(incomeInBracket.Mul(bracket.Rate))
		}
		if bracket.Unbounded() {
			break
		}
		previousMax = *bracket.UpTo
	}

	return totalTax
}

// PeriodTax calculates the tax for one period, never negative
func (mtc *MarginalTaxCalculator) PeriodTax(taxableAnnual decimal.Decimal, periodsPerYear int) decimal.Decimal {
	return decimal.Max(decimal.Zero, perPeriod(mtc.AnnualTax(taxableAnnual), periodsPerYear))
}

// TaxCalculator computes federal and provincial tax from a rate table
type TaxCalculator struct {
	Federal *MarginalTaxCalculator
	table   *domain.RateTable
}

// NewTaxCalculator creates a tax calculator for a rate table
func NewTaxCalculator(table *domain.RateTable) *TaxCalculator {
	return &TaxCalculator{
		Federal: NewMarginalTaxCalculator(table.Federal),
		table:   table,
	}
}

// Provincial returns the calculator for a province. Unsupported provinces
// return an *domain.UnsupportedProvinceError.
func (tc *TaxCalculator) Provincial(province domain.Province) (*MarginalTaxCalculator, error) {
	j, err := tc.table.ProvincialJurisdiction(province)
	if err != nil {
		return nil, err
	}
	return NewMarginalTaxCalculator(j), nil
}

// FederalPeriodTax calculates the federal tax for one period
func (tc *TaxCalculator) FederalPeriodTax(taxableAnnual decimal.Decimal, periodsPerYear int) decimal.Decimal {
	return tc.Federal.PeriodTax(taxableAnnual, periodsPerYear)
}

// ProvincialPeriodTax calculates the provincial tax for one period
func (tc *TaxCalculator) ProvincialPeriodTax(province domain.Province, taxableAnnual decimal.Decimal, periodsPerYear int) (decimal.Decimal, error) {
	calc, err := tc.Provincial(province)
	if err != nil {
		return decimal.Zero, err
	}
	return calc.PeriodTax(taxableAnnual, periodsPerYear), nil
}
