package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// PayCodeCategory groups pay codes by how they affect pay and balances
type PayCodeCategory string

const (
	CategoryEarning   PayCodeCategory = "earning"
	CategoryOvertime  PayCodeCategory = "overtime"
	CategoryPTO       PayCodeCategory = "pto"
	CategoryPremium   PayCodeCategory = "premium"
	CategoryBank      PayCodeCategory = "bank"
	CategoryDeduction PayCodeCategory = "deduction"
	CategoryBenefit   PayCodeCategory = "benefit"
)

// RateType selects the earnings formula for a pay code
type RateType string

const (
	RateTypeMultiplier RateType = "multiplier"
	RateTypeFlatHourly RateType = "flat_hourly"
	RateTypeFlatAmount RateType = "flat_amount"
)

// PayCode is an administrator-maintained earnings rule.
//
// Older catalogues stored the flat hourly rate of a flat_hourly code in
// Multiplier. FlatRateOverride replaces that usage; Multiplier is still read
// for flat_hourly codes that do not set FlatRateOverride.
type PayCode struct {
	Code             string           `yaml:"code" json:"code"`
	Description      string           `yaml:"description,omitempty" json:"description,omitempty"`
	Category         PayCodeCategory  `yaml:"category" json:"category"`
	RateType         RateType         `yaml:"rate_type" json:"rate_type"`
	Multiplier       *decimal.Decimal `yaml:"multiplier,omitempty" json:"multiplier,omitempty"`
	FlatRateOverride *decimal.Decimal `yaml:"flat_rate_override,omitempty" json:"flat_rate_override,omitempty"`
	RequiresHours    bool             `yaml:"requires_hours" json:"requires_hours"`
	RequiresAmount   bool             `yaml:"requires_amount" json:"requires_amount"`
	Stackable        bool             `yaml:"stackable" json:"stackable"`
	GLEarningsCode   string           `yaml:"gl_earnings_code,omitempty" json:"gl_earnings_code,omitempty"`
	Active           bool             `yaml:"active" json:"active"`
	EffectiveFrom    *time.Time       `yaml:"effective_from,omitempty" json:"effective_from,omitempty"`
	ExpiresAt        *time.Time       `yaml:"expires_at,omitempty" json:"expires_at,omitempty"`
}

// payCodeFields has PayCode's fields without its decode methods
type payCodeFields PayCode

// UnmarshalJSON decodes a pay code, treating a missing "active" as true.
func (pc *PayCode) UnmarshalJSON(data []byte) error {
	fields := payCodeFields{Active: true}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*pc = PayCode(fields)
	return nil
}

// UnmarshalYAML decodes a pay code, treating a missing "active" as true.
func (pc *PayCode) UnmarshalYAML(node *yaml.Node) error {
	fields := payCodeFields{Active: true}
	if err := node.Decode(&fields); err != nil {
		return err
	}
	*pc = PayCode(fields)
	return nil
}

// IsAvailable reports whether the code is active and within its effective window at the given time.
func (pc PayCode) IsAvailable(at time.Time) bool {
	if !pc.Active {
		return false
	}
	if pc.EffectiveFrom != nil && at.Before(*pc.EffectiveFrom) {
		return false
	}
	return pc.ExpiresAt == nil || at.Before(*pc.ExpiresAt)
}

// EffectiveRateType defaults an empty rate type to multiplier
func (pc PayCode) EffectiveRateType() RateType {
	if pc.RateType == "" {
		return RateTypeMultiplier
	}
	return pc.RateType
}

// MultiplierOrOne returns the multiplier, treating an unset value as 1.
func (pc PayCode) MultiplierOrOne() decimal.Decimal {
	if pc.Multiplier == nil {
		return decimal.NewFromInt(1)
	}
	return *pc.Multiplier
}
