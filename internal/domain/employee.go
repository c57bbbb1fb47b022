package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PayFrequency is how often an employee is paid
type PayFrequency string

const (
	Weekly      PayFrequency = "weekly"
	Biweekly    PayFrequency = "biweekly"
	SemiMonthly PayFrequency = "semimonthly"
	Monthly     PayFrequency = "monthly"
)

// ParsePayFrequency accepts the canonical names plus common spellings
// ("Bi-Weekly", "semi_monthly").
func ParsePayFrequency(s string) (PayFrequency, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer("-", "", "_", "", " ", "").Replace(normalized)
	switch PayFrequency(normalized) {
	case Weekly, Biweekly, SemiMonthly, Monthly:
		return PayFrequency(normalized), nil
	}
	return "", fmt.Errorf("unknown pay frequency %q", s)
}

// Valid reports whether f is one of the known frequencies
func (f PayFrequency) Valid() bool {
	_, err := ParsePayFrequency(string(f))
	return err == nil
}

// YTDAmounts are the contributions and taxes already withheld this tax year.
type YTDAmounts struct {
	CPP     decimal.Decimal `yaml:"cpp" json:"cpp"`
	EI      decimal.Decimal `yaml:"ei" json:"ei"`
	FedTax  decimal.Decimal `yaml:"fed_tax" json:"fed_tax"`
	ProvTax decimal.Decimal `yaml:"prov_tax" json:"prov_tax"`
}

// PayrollInput is a single employee's pay for one period.
type PayrollInput struct {
	EmployeeID   string          `yaml:"employee_id,omitempty" json:"employee_id,omitempty"`
	GrossPay     decimal.Decimal `yaml:"gross_pay" json:"gross_pay"`
	Province     Province        `yaml:"province" json:"province"`
	PayFrequency PayFrequency    `yaml:"pay_frequency" json:"pay_frequency"`
	TaxYear      int             `yaml:"tax_year,omitempty" json:"tax_year,omitempty"` // 0 selects the registry default
	YTD          YTDAmounts      `yaml:"ytd" json:"ytd"`

	// Exemptions are decided by the caller from the employee record.
	CPPExempt bool `yaml:"cpp_exempt,omitempty" json:"cpp_exempt,omitempty"`
	EIExempt  bool `yaml:"ei_exempt,omitempty" json:"ei_exempt,omitempty"`
}

// Validate checks the input contract. Province support is checked against
// the rate table at calculation time.
func (in PayrollInput) Validate() error {
	if in.GrossPay.IsNegative() {
		return fmt.Errorf("gross pay cannot be negative")
	}
	if in.Province == "" {
		return fmt.Errorf("province is required")
	}
	if !in.PayFrequency.Valid() {
		return fmt.Errorf("unknown pay frequency %q", in.PayFrequency)
	}
	if in.YTD.CPP.IsNegative() || in.YTD.EI.IsNegative() || in.YTD.FedTax.IsNegative() || in.YTD.ProvTax.IsNegative() {
		return fmt.Errorf("year-to-date amounts cannot be negative")
	}
	return nil
}

// Deductions withheld from the employee
type Deductions struct {
	CPP     decimal.Decimal `yaml:"cpp" json:"cpp"`
	EI      decimal.Decimal `yaml:"ei" json:"ei"`
	FedTax  decimal.Decimal `yaml:"fed_tax" json:"fed_tax"`
	ProvTax decimal.Decimal `yaml:"prov_tax" json:"prov_tax"`
}

// Total returns the sum of all deductions
func (d Deductions) Total() decimal.Decimal {
	return d.CPP.Add(d.EI).Add(d.FedTax).Add(d.ProvTax)
}

// EmployerCosts are the employer's share of statutory contributions
type EmployerCosts struct {
	EI  decimal.Decimal `yaml:"ei" json:"ei"`
	CPP decimal.Decimal `yaml:"cpp" json:"cpp"`
}

// Total returns the sum of the employer contributions
func (c EmployerCosts) Total() decimal.Decimal {
	return c.EI.Add(c.CPP)
}

// PayrollSummary echoes the inputs the result was computed from
type PayrollSummary struct {
	Gross          decimal.Decimal `yaml:"gross" json:"gross"`
	TaxableGross   decimal.Decimal `yaml:"taxable_gross" json:"taxable_gross"`
	Frequency      PayFrequency    `yaml:"frequency" json:"frequency"`
	PeriodsPerYear int             `yaml:"periods_per_year" json:"periods_per_year"`
	Province       Province        `yaml:"province" json:"province"`
	TaxYear        int             `yaml:"tax_year" json:"tax_year"`
}

// PayrollResult is the outcome of one period's calculation. All money is
// rounded to cents and NetPay equals Gross minus Deductions.Total().
type PayrollResult struct {
	EmployeeID    string          `yaml:"employee_id,omitempty" json:"employee_id,omitempty"`
	NetPay        decimal.Decimal `yaml:"net_pay" json:"net_pay"`
	Deductions    Deductions      `yaml:"deductions" json:"deductions"`
	EmployerCosts EmployerCosts   `yaml:"employer_costs" json:"employer_costs"`
	Summary       PayrollSummary  `yaml:"summary" json:"summary"`
	Warnings      []string        `yaml:"warnings,omitempty" json:"warnings,omitempty"`
}

// RateBasis is how an employee's base rate is expressed
type RateBasis string

const (
	RateHourly RateBasis = "hourly"
	RateSalary RateBasis = "salary"
	RateDaily  RateBasis = "daily"
)

// EmployeeRate is one dated compensation rate for an employee.
type EmployeeRate struct {
	RateType      RateBasis       `yaml:"rate_type" json:"rate_type"`
	BaseRate      decimal.Decimal `yaml:"base_rate" json:"base_rate"`
	EffectiveFrom time.Time       `yaml:"effective_from" json:"effective_from"`
	EffectiveTo   *time.Time      `yaml:"effective_to,omitempty" json:"effective_to,omitempty"`
}

// CoversDate reports whether the rate is in effect on the given date (inclusive bounds).
func (r EmployeeRate) CoversDate(at time.Time) bool {
	if at.Before(r.EffectiveFrom) {
		return false
	}
	return r.EffectiveTo == nil || !at.After(*r.EffectiveTo)
}
