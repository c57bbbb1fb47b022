package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceType is a kind of leave or banked-time balance, tracked in hours
type BalanceType string

const (
	BalanceVacation    BalanceType = "vacation"
	BalanceSick        BalanceType = "sick"
	BalancePersonal    BalanceType = "personal"
	BalanceBereavement BalanceType = "bereavement"
	BalanceFloat       BalanceType = "float"
	BalanceBankedTime  BalanceType = "banked_time"
)

// Valid reports whether b is a known balance type
func (b BalanceType) Valid() bool {
	switch b {
	case BalanceVacation, BalanceSick, BalancePersonal, BalanceBereavement, BalanceFloat, BalanceBankedTime:
		return true
	}
	return false
}

// TransactionType classifies a ledger entry
type TransactionType string

const (
	TxAccrual    TransactionType = "accrual"
	TxUsage      TransactionType = "usage"
	TxAdjustment TransactionType = "adjustment"
	TxCarryover  TransactionType = "carryover"
)

// Valid reports whether t is a known transaction type
func (t TransactionType) Valid() bool {
	switch t {
	case TxAccrual, TxUsage, TxAdjustment, TxCarryover:
		return true
	}
	return false
}

// EmployeeBalance is the current state of one balance for one employee.
type EmployeeBalance struct {
	EmployeeID     string          `yaml:"employee_id" json:"employee_id"`
	BalanceType    BalanceType     `yaml:"balance_type" json:"balance_type"`
	CurrentBalance decimal.Decimal `yaml:"current_balance" json:"current_balance"`
	AccruedBalance decimal.Decimal `yaml:"accrued_balance" json:"accrued_balance"`
	UsedBalance    decimal.Decimal `yaml:"used_balance" json:"used_balance"`
}

// BalanceTransaction is an append-only ledger entry.
// Invariant: BalanceAfter = BalanceBefore + Amount.
type BalanceTransaction struct {
	ID              string          `yaml:"id" json:"id"`
	EmployeeID      string          `yaml:"employee_id" json:"employee_id"`
	BalanceType     BalanceType     `yaml:"balance_type" json:"balance_type"`
	TransactionType TransactionType `yaml:"transaction_type" json:"transaction_type"`
	Amount          decimal.Decimal `yaml:"amount" json:"amount"`
	BalanceBefore   decimal.Decimal `yaml:"balance_before" json:"balance_before"`
	BalanceAfter    decimal.Decimal `yaml:"balance_after" json:"balance_after"`
	ReferenceDate   time.Time       `yaml:"reference_date" json:"reference_date"`
	ReferenceType   string          `yaml:"reference_type,omitempty" json:"reference_type,omitempty"`
	ReferenceID     string          `yaml:"reference_id,omitempty" json:"reference_id,omitempty"`
	AdminOverride   bool            `yaml:"admin_override,omitempty" json:"admin_override,omitempty"`
	CreatedAt       time.Time       `yaml:"created_at" json:"created_at"`
}

// ApplyTo updates the balance aggregates for this transaction. Accruals
// raise AccruedBalance and usages raise UsedBalance; adjustments and
// carryovers only move CurrentBalance.
func (tx BalanceTransaction) ApplyTo(b EmployeeBalance) EmployeeBalance {
	b.CurrentBalance = b.CurrentBalance.Add(tx.Amount)
	switch tx.TransactionType {
	case TxAccrual:
		b.AccruedBalance = b.AccruedBalance.Add(tx.Amount)
	case TxUsage:
		b.UsedBalance = b.UsedBalance.Add(tx.Amount.Neg())
	}
	return b
}
