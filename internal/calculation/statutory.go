package calculation

import (
	"github.com/rgehrsitz/cdnpayroll/internal/domain"
	"github.com/shopspring/decimal"
)

// Contribution is a per-period statutory amount split between employee and employer
type Contribution struct {
	Employee decimal.Decimal
	Employer decimal.Decimal
}

// StatutoryCalculator handles CPP and EI contribution calculations
type StatutoryCalculator struct {
	CPP domain.CPPRates
	EI  domain.EIRates
}

// NewStatutoryCalculator creates a statutory calculator from a rate table
func NewStatutoryCalculator(table *domain.RateTable) *StatutoryCalculator {
	return &StatutoryCalculator{CPP: table.CPP, EI: table.EI}
}

// AnnualCPP returns the uncapped-by-YTD annual CPP contribution on annualGross.
// Pensionable earnings are capped at YMPE less the basic exemption.
func (sc *StatutoryCalculator) AnnualCPP(annualGross decimal.Decimal) decimal.Decimal {
	pensionable := decimal.Max(decimal.Zero, annualGross.Sub(sc.CPP.BasicExemption))
	capped := decimal.Min(pensionable, sc.CPP.MaxPensionable())
	return capped.Mul(sc.CPP.Rate)
}

// CalculateCPP calculates the CPP contribution for one period.
// The period amount is limited by the room left after ytdCPP; the employer
// matches the employee contribution.
func (sc *StatutoryCalculator) CalculateCPP(annualGross, ytdCPP decimal.Decimal, periodsPerYear int) Contribution {
	annual := sc.AnnualCPP(annualGross)
	remainingRoom := decimal.Max(decimal.Zero, sc.CPP.MaxAnnualContribution().Sub(ytdCPP))

	period := decimal.Min(perPeriod(annual, periodsPerYear), perPeriod(remainingRoom, periodsPerYear))
	return Contribution{Employee: period, Employer: period}
}

// AnnualEI returns the annual EI premium on annualGross, capped at maximum insurable earnings.
func (sc *StatutoryCalculator) AnnualEI(annualGross decimal.Decimal) decimal.Decimal {
	insurable := decimal.Max(decimal.Zero, decimal.Min(annualGross, sc.EI.MaxInsurableEarnings))
	return insurable.Mul(sc.EI.EmployeeRate)
}

// CalculateEI calculates the EI premium for one period.
// The employer pays EmployerMultiplier times the employee premium.
func (sc *StatutoryCalculator) CalculateEI(annualGross, ytdEI decimal.Decimal, periodsPerYear int) Contribution {
	annual := sc.AnnualEI(annualGross)
	remainingRoom := decimal.Max(decimal.Zero, sc.EI.MaxAnnualPremium().Sub(ytdEI))

	period := decimal.Min(perPeriod(annual, periodsPerYear), perPeriod(remainingRoom, periodsPerYear))
	return Contribution{Employee: period, Employer: period.Mul(sc.EI.EmployerMultiplier)}
}
