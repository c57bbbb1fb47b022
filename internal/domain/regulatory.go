package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Province identifies a provincial tax jurisdiction by its two-letter code.
type Province string

const (
	ProvinceOntario         Province = "ON"
	ProvinceBritishColumbia Province = "BC"
)

// RateTable contains the statutory rates for a single tax year.
// It is loaded from a rate-table YAML file (or built-in defaults) and is
// treated as immutable once registered.
type RateTable struct {
	TaxYear    int                       `yaml:"tax_year" json:"tax_year"`
	Metadata   RateTableMetadata         `yaml:"metadata" json:"metadata"`
	CPP        CPPRates                  `yaml:"cpp" json:"cpp"`
	EI         EIRates                   `yaml:"ei" json:"ei"`
	Federal    Jurisdiction              `yaml:"federal" json:"federal"`
	Provincial map[Province]Jurisdiction `yaml:"provincial" json:"provincial"`
}

// RateTableMetadata describes where a rate table came from
type RateTableMetadata struct {
	Source      string `yaml:"source" json:"source"`
	LastUpdated string `yaml:"last_updated" json:"last_updated"`
	Description string `yaml:"description" json:"description"`
}

// CPPRates contains Canada Pension Plan contribution rules
type CPPRates struct {
	Rate           decimal.Decimal `yaml:"rate" json:"rate"`
	BasicExemption decimal.Decimal `yaml:"basic_exemption" json:"basic_exemption"`
	YMPE           decimal.Decimal `yaml:"ympe" json:"ympe"`
}

// MaxPensionable returns the pensionable earnings ceiling above the basic exemption.
func (c CPPRates) MaxPensionable() decimal.Decimal {
	return decimal.Max(decimal.Zero, c.YMPE.Sub(c.BasicExemption))
}

// MaxAnnualContribution returns the most an employee can contribute in a year.
func (c CPPRates) MaxAnnualContribution() decimal.Decimal {
	return c.MaxPensionable().Mul(c.Rate)
}

// EIRates contains Employment Insurance premium rules
type EIRates struct {
	EmployeeRate         decimal.Decimal `yaml:"employee_rate" json:"employee_rate"`
	EmployerMultiplier   decimal.Decimal `yaml:"employer_multiplier" json:"employer_multiplier"`
	MaxInsurableEarnings decimal.Decimal `yaml:"max_insurable_earnings" json:"max_insurable_earnings"`
}

// MaxAnnualPremium returns the most an employee can pay in EI premiums in a year.
func (e EIRates) MaxAnnualPremium() decimal.Decimal {
	return e.MaxInsurableEarnings.Mul(e.EmployeeRate)
}

// Jurisdiction holds the income tax brackets for federal or a single province.
type Jurisdiction struct {
	BasicPersonalAmount decimal.Decimal `yaml:"basic_personal_amount" json:"basic_personal_amount"`
	Brackets            []TaxBracket    `yaml:"brackets" json:"brackets"`
}

// TaxBracket is one marginal bracket. UpTo is nil for the final, unbounded bracket.
type TaxBracket struct {
	UpTo *decimal.Decimal `yaml:"up_to" json:"up_to"`
	Rate decimal.Decimal  `yaml:"rate" json:"rate"`
}

// Unbounded reports whether the bracket has no upper limit
func (b TaxBracket) Unbounded() bool {
	return b.UpTo == nil
}

// ProvincialJurisdiction returns the bracket table for a province.
// Unknown provinces are a configuration error, never a zero-tax default.
func (rt *RateTable) ProvincialJurisdiction(province Province) (Jurisdiction, error) {
	j, ok := rt.Provincial[province]
	if !ok {
		return Jurisdiction{}, &UnsupportedProvinceError{Province: province, Supported: rt.SupportedProvinces()}
	}
	return j, nil
}

// SupportedProvinces returns the province codes populated in this table, sorted.
func (rt *RateTable) SupportedProvinces() []Province {
	provinces := make([]Province, 0, len(rt.Provincial))
	for p := range rt.Provincial {
		provinces = append(provinces, p)
	}
	sort.Slice(provinces, func(i, j int) bool { return provinces[i] < provinces[j] })
	return provinces
}
