// Package balance maps pay codes onto leave and banked-time balances,
// validates requests against them, flags overtime anomalies, and keeps the
// append-only balance ledger.
package balance

import (
	"fmt"
	"strings"

	"github.com/rgehrsitz/cdnpayroll/internal/domain"
	"github.com/shopspring/decimal"
)

// Impact is the change a timesheet entry makes to one balance.
type Impact struct {
	BalanceType domain.BalanceType `json:"balance_type"`
	Amount      decimal.Decimal    `json:"impact"`
	Description string             `json:"description"`
}

// ptoMatchers is checked in order; the first substring found in the
// lowercased code decides the balance.
var ptoMatchers = []struct {
	substr  string
	balance domain.BalanceType
}{
	{"vac", domain.BalanceVacation},
	{"sick", domain.BalanceSick},
	{"personal", domain.BalancePersonal},
	{"bereavement", domain.BalanceBereavement},
	{"float", domain.BalanceFloat},
}

// ImpactFor returns the balance impact of using hours against a pay code.
// ok is false for codes that do not touch a balance.
func ImpactFor(pc domain.PayCode, hours decimal.Decimal) (Impact, bool) {
	code := strings.ToLower(pc.Code)

	switch pc.Category {
	case domain.CategoryPTO:
		bt := domain.BalanceVacation
		for _, m := range ptoMatchers {
			if strings.Contains(code, m.substr) {
				bt = m.balance
				break
			}
		}
		return Impact{
			BalanceType: bt,
			Amount:      hours.Neg(),
			Description: fmt.Sprintf("%s: deduct %sh from %s", pc.Code, hours.String(), bt),
		}, true

	case domain.CategoryBank:
		if strings.Contains(code, "taken") {
			return Impact{
				BalanceType: domain.BalanceBankedTime,
				Amount:      hours.Neg(),
				Description: fmt.Sprintf("%s: deduct %sh from banked time", pc.Code, hours.String()),
			}, true
		}
		return Impact{
			BalanceType: domain.BalanceBankedTime,
			Amount:      hours,
			Description: fmt.Sprintf("%s: bank %sh", pc.Code, hours.String()),
		}, true
	}

	return Impact{}, false
}
