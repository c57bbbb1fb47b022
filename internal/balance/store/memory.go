// Package store provides balance.Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/rgehrsitz/cdnpayroll/internal/domain"
	"github.com/shopspring/decimal"
)

// Memory is an in-memory balance store for tests and single-process use.
type Memory struct {
	mu       sync.Mutex
	balances map[key]domain.EmployeeBalance
	txs      map[key][]domain.BalanceTransaction
}

type key struct {
	EmployeeID  string
	BalanceType domain.BalanceType
}

func NewMemory() *Memory {
	return &Memory{
		balances: make(map[key]domain.EmployeeBalance),
		txs:      make(map[key][]domain.BalanceTransaction),
	}
}

// Apply reads, prepares, appends and writes under one lock.
func (m *Memory) Apply(_ context.Context, employeeID string, bt domain.BalanceType,
	prepare func(current domain.EmployeeBalance) (domain.BalanceTransaction, error),
) (domain.BalanceTransaction, domain.EmployeeBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{EmployeeID: employeeID, BalanceType: bt}
	current := m.balanceLocked(k)

	tx, err := prepare(current)
	if err != nil {
		return domain.BalanceTransaction{}, domain.EmployeeBalance{}, err
	}
	tx.BalanceBefore = current.CurrentBalance
	tx.BalanceAfter = current.CurrentBalance.Add(tx.Amount)

	updated := tx.ApplyTo(current)
	m.txs[k] = append(m.txs[k], tx)
	m.balances[k] = updated
	return tx, updated, nil
}

func (m *Memory) Balance(_ context.Context, employeeID string, bt domain.BalanceType) (domain.EmployeeBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balanceLocked(key{EmployeeID: employeeID, BalanceType: bt}), nil
}

func (m *Memory) Transactions(_ context.Context, employeeID string, bt domain.BalanceType) ([]domain.BalanceTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	txs := m.txs[key{EmployeeID: employeeID, BalanceType: bt}]
	out := make([]domain.BalanceTransaction, len(txs))
	copy(out, txs)
	return out, nil
}

func (m *Memory) balanceLocked(k key) domain.EmployeeBalance {
	if b, ok := m.balances[k]; ok {
		return b
	}
	return zeroBalance(k.EmployeeID, k.BalanceType)
}

func zeroBalance(employeeID string, bt domain.BalanceType) domain.EmployeeBalance {
	return domain.EmployeeBalance{
		EmployeeID:     employeeID,
		BalanceType:    bt,
		CurrentBalance: decimal.Zero,
		AccruedBalance: decimal.Zero,
		UsedBalance:    decimal.Zero,
	}
}
