package balance

import (
	"fmt"

	"github.com/rgehrsitz/cdnpayroll/internal/domain"
	"github.com/shopspring/decimal"
)

// SufficiencyResult is the outcome of checking a request against a balance.
// An insufficient request is never silently allowed: CanOverride only tells
// the caller that an explicit admin override would be accepted.
type SufficiencyResult struct {
	BalanceType domain.BalanceType `json:"balance_type"`
	IsValid     bool               `json:"is_valid"`
	CanOverride bool               `json:"can_override"`
	Available   decimal.Decimal    `json:"available"`
	Requested   decimal.Decimal    `json:"requested"`
	Shortfall   decimal.Decimal    `json:"shortfall"`
	Warnings    []string           `json:"warnings"`
}

// ValidateSufficiency checks whether hours can be drawn from the balance.
func ValidateSufficiency(bal domain.EmployeeBalance, hours decimal.Decimal, isAdmin bool) SufficiencyResult {
	result := SufficiencyResult{
		BalanceType: bal.BalanceType,
		Available:   bal.CurrentBalance,
		Requested:   hours,
		Shortfall:   decimal.Zero,
		Warnings:    []string{},
	}

	if hours.LessThanOrEqual(bal.CurrentBalance) {
		result.IsValid = true
		return result
	}

	result.Shortfall = hours.Sub(bal.CurrentBalance)
	result.Warnings = append(result.Warnings, fmt.Sprintf("Insufficient %s balance: %sh available, %sh requested",
		bal.BalanceType, bal.CurrentBalance.StringFixed(2), hours.StringFixed(2)))

	if isAdmin {
		result.CanOverride = true
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Admin override available: balance would go to %sh", bal.CurrentBalance.Sub(hours).StringFixed(2)))
	}
	return result
}

// Permit decides whether the request may proceed. override must be set
// explicitly for an insufficient request, and only works when CanOverride.
func (r SufficiencyResult) Permit(override bool) error {
	if r.IsValid || (r.CanOverride && override) {
		return nil
	}
	return &domain.InsufficientBalanceError{
		BalanceType: r.BalanceType,
		Available:   r.Available,
		Requested:   r.Requested,
	}
}

// ValidateImpact checks a balance impact against the current balance.
// Credits are always valid.
func ValidateImpact(bal domain.EmployeeBalance, impact Impact, isAdmin bool) SufficiencyResult {
	if !impact.Amount.IsNegative() {
		return SufficiencyResult{
			BalanceType: bal.BalanceType,
			IsValid:     true,
			Available:   bal.CurrentBalance,
			Requested:   decimal.Zero,
			Shortfall:   decimal.Zero,
			Warnings:    []string{},
		}
	}
	return ValidateSufficiency(bal, impact.Amount.Neg(), isAdmin)
}
