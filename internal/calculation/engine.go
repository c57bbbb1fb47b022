package calculation

import (
	"fmt"

	"github.com/rgehrsitz/cdnpayroll/internal/domain"
	"github.com/rgehrsitz/cdnpayroll/internal/logging"
	"github.com/shopspring/decimal"
)

// RateSource supplies rate tables by tax year
type RateSource interface {
	ForYear(year int) (*domain.RateTable, error)
	DefaultYear() int
}

// PayrollEngine orchestrates the statutory deduction and income tax
// calculations for a single pay period. It holds no mutable state and is
// safe for concurrent use once configured.
type PayrollEngine struct {
	Rates  RateSource
	Logger logging.Logger
}

// NewPayrollEngine creates a new payroll engine
func NewPayrollEngine(rates RateSource) *PayrollEngine {
	return &PayrollEngine{Rates: rates, Logger: logging.NopLogger{}}
}

// SetLogger sets the engine logger; nil installs a no-op logger
func (e *PayrollEngine) SetLogger(l logging.Logger) {
	e.Logger = logging.OrNop(l)
}

// CalculatePayroll turns one period's gross pay into net pay.
// Configuration errors (unknown tax year, unsupported province) are returned
// without a partial result.
func (e *PayrollEngine) CalculatePayroll(in domain.PayrollInput) (*domain.PayrollResult, error) {
	logger := logging.OrNop(e.Logger)

	year := in.TaxYear
	if year == 0 {
		year = e.Rates.DefaultYear()
	}
	table, err := e.Rates.ForYear(year)
	if err != nil {
		return nil, fmt.Errorf("calculate payroll: %w", err)
	}

	taxCalc := NewTaxCalculator(table)
	provincialCalc, err := taxCalc.Provincial(in.Province)
	if err != nil {
		return nil, fmt.Errorf("calculate payroll: %w", err)
	}

	var warnings []string
	if canonical, err := domain.ParsePayFrequency(string(in.PayFrequency)); err == nil {
		in.PayFrequency = canonical
	} else {
		warnings = append(warnings, fmt.Sprintf("unrecognised pay frequency %q; assumed %d periods per year", in.PayFrequency, DefaultPeriodsPerYear))
		logger.Warnf("employee %s: unrecognised pay frequency %q, using %d periods", in.EmployeeID, in.PayFrequency, DefaultPeriodsPerYear)
	}
	periods := PeriodsPerYear(in.PayFrequency)
	annualGross := Annualize(in.GrossPay, in.PayFrequency)

	statutory := NewStatutoryCalculator(table)
	cpp := Contribution{Employee: decimal.Zero, Employer: decimal.Zero}
	ei := Contribution{Employee: decimal.Zero, Employer: decimal.Zero}
	fedTax := decimal.Zero
	provTax := decimal.Zero

	if in.GrossPay.LessThanOrEqual(decimal.Zero) {
		warnings = append(warnings, "gross pay is not positive; no deductions calculated")
	} else {
		if !in.CPPExempt {
			cpp = statutory.CalculateCPP(annualGross, in.YTD.CPP, periods)
		}
		if !in.EIExempt {
			ei = statutory.CalculateEI(annualGross, in.YTD.EI, periods)
		}
		fedTax = taxCalc.FederalPeriodTax(annualGross, periods)
		provTax = provincialCalc.PeriodTax(annualGross, periods)
	}

	if !in.YTD.FedTax.IsZero() || !in.YTD.ProvTax.IsZero() {
		logger.Debugf("employee %s: YTD income tax supplied (fed %s, prov %s) but not used for period tax",
			in.EmployeeID, in.YTD.FedTax.StringFixed(2), in.YTD.ProvTax.StringFixed(2))
	}

	deductions := domain.Deductions{
		CPP:     roundMoney(cpp.Employee),
		EI:      roundMoney(ei.Employee),
		FedTax:  roundMoney(fedTax),
		ProvTax: roundMoney(provTax),
	}

	result := &domain.PayrollResult{
		EmployeeID: in.EmployeeID,
		NetPay:     roundMoney(in.GrossPay.Sub(deductions.Total())),
		Deductions: deductions,
		EmployerCosts: domain.EmployerCosts{
			EI:  roundMoney(ei.Employer),
			CPP: roundMoney(cpp.Employer),
		},
		Summary: domain.PayrollSummary{
			Gross:          roundMoney(in.GrossPay),
			TaxableGross:   roundMoney(in.GrossPay),
			Frequency:      in.PayFrequency,
			PeriodsPerYear: periods,
			Province:       in.Province,
			TaxYear:        table.TaxYear,
		},
		Warnings: warnings,
	}

	logger.Debugf("employee %s: gross %s annual %s cpp %s ei %s fed %s prov %s net %s",
		in.EmployeeID, in.GrossPay.StringFixed(2), annualGross.StringFixed(2),
		deductions.CPP, deductions.EI, deductions.FedTax, deductions.ProvTax, result.NetPay)

	return result, nil
}

// CalculateBatch runs CalculatePayroll for each input, stopping at the first error.
func (e *PayrollEngine) CalculateBatch(inputs []domain.PayrollInput) ([]domain.PayrollResult, error) {
	results := make([]domain.PayrollResult, 0, len(inputs))
	for i, in := range inputs {
		result, err := e.CalculatePayroll(in)
		if err != nil {
			return nil, fmt.Errorf("input %d (%s): %w", i, in.EmployeeID, err)
		}
		results = append(results, *result)
	}
	return results, nil
}

func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
