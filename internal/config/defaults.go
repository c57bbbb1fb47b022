package config

import (
	"github.com/rgehrsitz/cdnpayroll/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultTaxYear is the year of the built-in rate table
const DefaultTaxYear = 2024

// DefaultRateTable2024 returns the built-in 2024 rate table.
// It is used when no rate-table file has been published for the year.
func DefaultRateTable2024() *domain.RateTable {
	return &domain.RateTable{
		TaxYear: 2024,
		Metadata: domain.RateTableMetadata{
			Source:      "built-in",
			LastUpdated: "2024-01-01",
			Description: "CRA payroll deduction rates, January 2024",
		},
		CPP: domain.CPPRates{
			Rate:           decimal.NewFromFloat(0.0595),
			BasicExemption: decimal.NewFromInt(3500),
			YMPE:           decimal.NewFromInt(68500),
		},
		EI: domain.EIRates{
			EmployeeRate:         decimal.NewFromFloat(0.0166),
			EmployerMultiplier:   decimal.NewFromFloat(1.4),
			MaxInsurableEarnings: decimal.NewFromInt(63600),
		},
		Federal: domain.Jurisdiction{
			BasicPersonalAmount: decimal.NewFromInt(15705),
			Brackets: []domain.TaxBracket{
				{UpTo: amount(55867), Rate: decimal.NewFromFloat(0.15)},
				{UpTo: amount(111733), Rate: decimal.NewFromFloat(0.205)},
				{UpTo: amount(173205), Rate: decimal.NewFromFloat(0.26)},
				{UpTo: amount(246752), Rate: decimal.NewFromFloat(0.29)},
				{UpTo: nil, Rate: decimal.NewFromFloat(0.33)},
			},
		},
		Provincial: map[domain.Province]domain.Jurisdiction{
			domain.ProvinceOntario: {
				BasicPersonalAmount: decimal.NewFromInt(12399),
				Brackets: []domain.TaxBracket{
					{UpTo: amount(51446), Rate: decimal.NewFromFloat(0.0505)},
					{UpTo: amount(102894), Rate: decimal.NewFromFloat(0.0915)},
					{UpTo: amount(150000), Rate: decimal.NewFromFloat(0.1116)},
					{UpTo: amount(220000), Rate: decimal.NewFromFloat(0.1216)},
					{UpTo: nil, Rate: decimal.NewFromFloat(0.1316)},
				},
			},
			domain.ProvinceBritishColumbia: {
				BasicPersonalAmount: decimal.NewFromInt(12580),
				Brackets: []domain.TaxBracket{
					{UpTo: amount(47937), Rate: decimal.NewFromFloat(0.0506)},
					{UpTo: amount(95875), Rate: decimal.NewFromFloat(0.077)},
					{UpTo: amount(110076), Rate: decimal.NewFromFloat(0.105)},
					{UpTo: amount(133664), Rate: decimal.NewFromFloat(0.1229)},
					{UpTo: amount(181232), Rate: decimal.NewFromFloat(0.147)},
					{UpTo: amount(252752), Rate: decimal.NewFromFloat(0.168)},
					{UpTo: nil, Rate: decimal.NewFromFloat(0.205)},
				},
			},
		},
	}
}

func amount(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}
