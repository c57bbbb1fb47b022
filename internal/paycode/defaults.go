package paycode

import (
	"fmt"
	"os"

	"github.com/rgehrsitz/cdnpayroll/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DefaultPayCodes returns the built-in catalogue used when neither the
// remote service nor the cache can supply one.
func DefaultPayCodes() []domain.PayCode {
	return []domain.PayCode{
		{Code: "REG", Description: "Regular hours", Category: domain.CategoryEarning, RateType: domain.RateTypeMultiplier, Multiplier: rate(1), RequiresHours: true, GLEarningsCode: "5000", Active: true},
		{Code: "STAT", Description: "Statutory holiday pay", Category: domain.CategoryEarning, RateType: domain.RateTypeMultiplier, Multiplier: rate(1), RequiresHours: true, GLEarningsCode: "5010", Active: true},
		{Code: "OT15", Description: "Overtime at time and a half", Category: domain.CategoryOvertime, RateType: domain.RateTypeMultiplier, Multiplier: rate(1.5), RequiresHours: true, GLEarningsCode: "5100", Active: true},
		{Code: "OT20", Description: "Overtime at double time", Category: domain.CategoryOvertime, RateType: domain.RateTypeMultiplier, Multiplier: rate(2), RequiresHours: true, GLEarningsCode: "5100", Active: true},
		{Code: "VAC", Description: "Vacation", Category: domain.CategoryPTO, RateType: domain.RateTypeMultiplier, Multiplier: rate(1), RequiresHours: true, GLEarningsCode: "5200", Active: true},
		{Code: "SICK", Description: "Sick leave", Category: domain.CategoryPTO, RateType: domain.RateTypeMultiplier, Multiplier: rate(1), RequiresHours: true, GLEarningsCode: "5210", Active: true},
		{Code: "PERSONAL", Description: "Personal day", Category: domain.CategoryPTO, RateType: domain.RateTypeMultiplier, Multiplier: rate(1), RequiresHours: true, GLEarningsCode: "5220", Active: true},
		{Code: "BEREAVEMENT", Description: "Bereavement leave", Category: domain.CategoryPTO, RateType: domain.RateTypeMultiplier, Multiplier: rate(1), RequiresHours: true, GLEarningsCode: "5230", Active: true},
		{Code: "FLOAT", Description: "Floating holiday", Category: domain.CategoryPTO, RateType: domain.RateTypeMultiplier, Multiplier: rate(1), RequiresHours: true, GLEarningsCode: "5240", Active: true},
		{Code: "BANK_EARNED", Description: "Overtime banked instead of paid", Category: domain.CategoryBank, RateType: domain.RateTypeMultiplier, Multiplier: rate(0), RequiresHours: true, GLEarningsCode: "5300", Active: true},
		{Code: "BANK_TAKEN", Description: "Banked time taken", Category: domain.CategoryBank, RateType: domain.RateTypeMultiplier, Multiplier: rate(1), RequiresHours: true, GLEarningsCode: "5300", Active: true},
		{Code: "EVE", Description: "Evening shift premium", Category: domain.CategoryPremium, RateType: domain.RateTypeMultiplier, Multiplier: rate(1.1), RequiresHours: true, Stackable: true, GLEarningsCode: "5400", Active: true},
		{Code: "WKND", Description: "Weekend premium", Category: domain.CategoryPremium, RateType: domain.RateTypeMultiplier, Multiplier: rate(1.25), RequiresHours: true, Stackable: true, GLEarningsCode: "5410", Active: true},
		{Code: "ONCALL", Description: "On-call standby", Category: domain.CategoryPremium, RateType: domain.RateTypeFlatHourly, FlatRateOverride: rate(5), RequiresHours: true, GLEarningsCode: "5420", Active: true},
		{Code: "BONUS", Description: "Discretionary bonus", Category: domain.CategoryEarning, RateType: domain.RateTypeFlatAmount, RequiresAmount: true, GLEarningsCode: "5500", Active: true},
	}
}

// LoadCatalog reads a YAML pay-code catalogue, e.g. to replace the built-in defaults.
func LoadCatalog(filename string) ([]domain.PayCode, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	var catalog struct {
		PayCodes []domain.PayCode `yaml:"pay_codes"`
	}
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(catalog.PayCodes) == 0 {
		return nil, fmt.Errorf("catalogue %s has no pay codes", filename)
	}
	seen := make(map[string]bool, len(catalog.PayCodes))
	for i, pc := range catalog.PayCodes {
		if pc.Code == "" {
			return nil, fmt.Errorf("pay code %d: code is required", i)
		}
		if seen[pc.Code] {
			return nil, fmt.Errorf("pay code %s: duplicate code", pc.Code)
		}
		seen[pc.Code] = true
	}
	return catalog.PayCodes, nil
}

func rate(v float64) *decimal.Decimal {
	d := decimal.NewFromFloat(v)
	return &d
}
