// Package compare runs one employee's pay through alternative provinces and
// tax years and reports how deductions and net pay move against the base.
package compare

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rgehrsitz/cdnpayroll/internal/domain"
	"github.com/shopspring/decimal"
)

// Scenario overrides the jurisdiction or tax year of a base input. Zero
// fields keep the base value.
type Scenario struct {
	Name     string          `json:"name"`
	Province domain.Province `json:"province,omitempty"`
	TaxYear  int             `json:"tax_year,omitempty"`
}

// ParseScenario reads "BC", "2025" or "BC/2025".
func ParseScenario(s string) (Scenario, error) {
	sc := Scenario{Name: strings.TrimSpace(s)}
	if sc.Name == "" {
		return Scenario{}, fmt.Errorf("empty scenario")
	}
	for _, part := range strings.Split(sc.Name, "/") {
		part = strings.TrimSpace(part)
		if year, err := strconv.Atoi(part); err == nil {
			if sc.TaxYear != 0 {
				return Scenario{}, fmt.Errorf("scenario %q: tax year given twice", s)
			}
			sc.TaxYear = year
			continue
		}
		if len(part) != 2 {
			return Scenario{}, fmt.Errorf("scenario %q: %q is neither a province code nor a tax year", s, part)
		}
		if sc.Province != "" {
			return Scenario{}, fmt.Errorf("scenario %q: province given twice", s)
		}
		sc.Province = domain.Province(strings.ToUpper(part))
	}
	return sc, nil
}

// Apply returns a copy of in with the scenario's overrides.
func (s Scenario) Apply(in domain.PayrollInput) domain.PayrollInput {
	if s.Province != "" {
		in.Province = s.Province
	}
	if s.TaxYear != 0 {
		in.TaxYear = s.TaxYear
	}
	return in
}

// ComparisonResult is one scenario's outcome and its deltas from the base.
type ComparisonResult struct {
	ScenarioName    string          `json:"scenario"`
	Province        domain.Province `json:"province"`
	TaxYear         int             `json:"tax_year"`
	Gross           decimal.Decimal `json:"gross"`
	TotalDeductions decimal.Decimal `json:"total_deductions"`
	IncomeTax       decimal.Decimal `json:"income_tax"`
	NetPay          decimal.Decimal `json:"net_pay"`
	AnnualizedNet   decimal.Decimal `json:"annualized_net"`
	EmployerCost    decimal.Decimal `json:"employer_cost"`

	NetDiffFromBase decimal.Decimal `json:"net_diff_from_base"`
	NetPctFromBase  decimal.Decimal `json:"net_pct_from_base"`
	TaxDiffFromBase decimal.Decimal `json:"tax_diff_from_base"`

	Result *domain.PayrollResult `json:"-"`
}

// ComparisonSet is a base result and its alternatives.
type ComparisonSet struct {
	EmployeeID         string              `json:"employee_id,omitempty"`
	Frequency          domain.PayFrequency `json:"frequency"`
	BaseResult         *ComparisonResult   `json:"base"`
	AlternativeResults []ComparisonResult  `json:"alternatives"`
	Recommendations    []string            `json:"recommendations"`
}

func newComparisonResult(name string, r *domain.PayrollResult) ComparisonResult {
	periods := decimal.NewFromInt(int64(r.Summary.PeriodsPerYear))
	return ComparisonResult{
		ScenarioName:    name,
		Province:        r.Summary.Province,
		TaxYear:         r.Summary.TaxYear,
		Gross:           r.Summary.Gross,
		TotalDeductions: r.Deductions.Total(),
		IncomeTax:       r.Deductions.FedTax.Add(r.Deductions.ProvTax),
		NetPay:          r.NetPay,
		AnnualizedNet:   r.NetPay.Mul(periods),
		EmployerCost:    r.EmployerCosts.Total(),
		Result:          r,
	}
}

// against fills in the deltas from base.
func (c ComparisonResult) against(base ComparisonResult) ComparisonResult {
	c.NetDiffFromBase = c.NetPay.Sub(base.NetPay)
	if !base.NetPay.IsZero() {
		c.NetPctFromBase = c.NetDiffFromBase.Div(base.NetPay).Mul(decimal.NewFromInt(100)).Round(2)
	}
	c.TaxDiffFromBase = c.IncomeTax.Sub(base.IncomeTax)
	return c
}

// GenerateRecommendations names the alternatives that beat the base on net
// pay and on income tax.
func GenerateRecommendations(set *ComparisonSet) []string {
	recommendations := []string{}
	if set.BaseResult == nil || len(set.AlternativeResults) == 0 {
		return recommendations
	}

	bestNet := set.BaseResult
	lowestTax := set.BaseResult
	for i := range set.AlternativeResults {
		alt := &set.AlternativeResults[i]
		if alt.NetPay.GreaterThan(bestNet.NetPay) {
			bestNet = alt
		}
		if alt.IncomeTax.LessThan(lowestTax.IncomeTax) {
			lowestTax = alt
		}
	}

	if bestNet != set.BaseResult {
		recommendations = append(recommendations, fmt.Sprintf(
			"Highest net pay: %s takes home $%s more per period than the base",
			bestNet.ScenarioName, bestNet.NetPay.Sub(set.BaseResult.NetPay).StringFixed(2)))
	}
	if lowestTax != set.BaseResult {
		recommendations = append(recommendations, fmt.Sprintf(
			"Lowest income tax: %s withholds $%s less per period than the base",
			lowestTax.ScenarioName, set.BaseResult.IncomeTax.Sub(lowestTax.IncomeTax).StringFixed(2)))
	}
	return recommendations
}
