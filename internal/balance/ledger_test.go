package balance_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rgehrsitz/cdnpayroll/internal/balance"
	"github.com/rgehrsitz/cdnpayroll/internal/balance/store"
	"github.com/rgehrsitz/cdnpayroll/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var refDate = time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)

func stores(t *testing.T) map[string]balance.Store {
	t.Helper()
	sqlite, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]balance.Store{
		"memory": store.NewMemory(),
		"sqlite": sqlite,
	}
}

func entry(tt domain.TransactionType, amount string) balance.Entry {
	return balance.Entry{
		EmployeeID:      "E100",
		BalanceType:     domain.BalanceVacation,
		TransactionType: tt,
		Amount:          decimal.RequireFromString(amount),
		ReferenceDate:   refDate,
	}
}

func TestLedger_ApplySequence(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ledger := balance.NewLedger(s)

			steps := []balance.Entry{
				entry(domain.TxAccrual, "40"),
				entry(domain.TxUsage, "-8"),
				entry(domain.TxAdjustment, "-2.5"),
				entry(domain.TxCarryover, "5"),
				entry(domain.TxUsage, "-4"),
			}
			for _, e := range steps {
				res, err := ledger.Apply(ctx, e, balance.ApplyOptions{})
				require.NoError(t, err)
				assert.True(t, res.Transaction.BalanceAfter.Equal(res.Transaction.BalanceBefore.Add(res.Transaction.Amount)))
				assert.True(t, res.Balance.CurrentBalance.Equal(res.Transaction.BalanceAfter))
				assert.NotEmpty(t, res.Transaction.ID)
			}

			bal, err := ledger.Balance(ctx, "E100", domain.BalanceVacation)
			require.NoError(t, err)
			assert.Equal(t, "30.5", bal.CurrentBalance.String())
			assert.Equal(t, "40", bal.AccruedBalance.String())
			assert.Equal(t, "12", bal.UsedBalance.String())

			history, err := ledger.History(ctx, "E100", domain.BalanceVacation)
			require.NoError(t, err)
			require.Len(t, history, len(steps))
			sum := decimal.Zero
			for _, tx := range history {
				sum = sum.Add(tx.Amount)
			}
			assert.True(t, sum.Equal(bal.CurrentBalance), "balance must equal the sum of its transactions")
			assert.Equal(t, domain.TxAccrual, history[0].TransactionType)
			assert.True(t, history[0].ReferenceDate.Equal(refDate))

			assert.NoError(t, ledger.Reconcile(ctx, "E100", domain.BalanceVacation))
		})
	}
}

func TestLedger_InsufficientBalance(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ledger := balance.NewLedger(s)

			_, err := ledger.Apply(ctx, entry(domain.TxAccrual, "20"), balance.ApplyOptions{})
			require.NoError(t, err)

			_, err = ledger.Apply(ctx, entry(domain.TxUsage, "-40"), balance.ApplyOptions{})
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

			history, err := ledger.History(ctx, "E100", domain.BalanceVacation)
			require.NoError(t, err)
			assert.Len(t, history, 1, "rejected usage must not be recorded")

			res, err := ledger.Apply(ctx, entry(domain.TxUsage, "-40"), balance.ApplyOptions{AdminOverride: true})
			require.NoError(t, err)
			assert.True(t, res.Transaction.AdminOverride)
			assert.Equal(t, "-20", res.Balance.CurrentBalance.String())
			assert.NotEmpty(t, res.Warnings)

			assert.NoError(t, ledger.Reconcile(ctx, "E100", domain.BalanceVacation))
		})
	}
}

func TestLedger_SufficientUsageIsNotAnOverride(t *testing.T) {
	ctx := context.Background()
	ledger := balance.NewLedger(store.NewMemory())

	_, err := ledger.Apply(ctx, entry(domain.TxAccrual, "10"), balance.ApplyOptions{})
	require.NoError(t, err)

	res, err := ledger.Apply(ctx, entry(domain.TxUsage, "-8"), balance.ApplyOptions{AdminOverride: true})
	require.NoError(t, err)
	assert.False(t, res.Transaction.AdminOverride)
	assert.Empty(t, res.Warnings)
}

func TestLedger_InvalidEntries(t *testing.T) {
	tests := []struct {
		name  string
		entry balance.Entry
	}{
		{"missing employee", balance.Entry{BalanceType: domain.BalanceSick, TransactionType: domain.TxAccrual, Amount: decimal.NewFromInt(1)}},
		{"unknown balance type", balance.Entry{EmployeeID: "E1", BalanceType: "lieu", TransactionType: domain.TxAccrual, Amount: decimal.NewFromInt(1)}},
		{"unknown transaction type", balance.Entry{EmployeeID: "E1", BalanceType: domain.BalanceSick, TransactionType: "payout", Amount: decimal.NewFromInt(1)}},
		{"zero amount", entry(domain.TxAdjustment, "0")},
		{"negative accrual", entry(domain.TxAccrual, "-1")},
		{"positive usage", entry(domain.TxUsage, "1")},
	}

	ledger := balance.NewLedger(store.NewMemory())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.Apply(context.Background(), tt.entry, balance.ApplyOptions{})
			assert.ErrorIs(t, err, domain.ErrInvalidTransaction)
		})
	}
}

func TestLedger_ApplyImpact(t *testing.T) {
	ctx := context.Background()
	ledger := balance.NewLedger(store.NewMemory())

	earned, ok := balance.ImpactFor(domain.PayCode{Code: "BANK_EARNED", Category: domain.CategoryBank}, decimal.NewFromInt(6))
	require.True(t, ok)
	res, err := ledger.ApplyImpact(ctx, "E7", earned, refDate, "ts-1", balance.ApplyOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.TxAccrual, res.Transaction.TransactionType)
	assert.Equal(t, "timesheet", res.Transaction.ReferenceType)

	taken, ok := balance.ImpactFor(domain.PayCode{Code: "BANK_TAKEN", Category: domain.CategoryBank}, decimal.NewFromInt(4))
	require.True(t, ok)
	res, err = ledger.ApplyImpact(ctx, "E7", taken, refDate, "ts-2", balance.ApplyOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.TxUsage, res.Transaction.TransactionType)
	assert.Equal(t, "2", res.Balance.CurrentBalance.String())
}

func TestLedger_ConcurrentUsage(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ledger := balance.NewLedger(s)

			_, err := ledger.Apply(ctx, entry(domain.TxAccrual, "10"), balance.ApplyOptions{})
			require.NoError(t, err)

			// Twenty concurrent 1h usages against 10h: exactly ten succeed.
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				succeeded int
			)
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := ledger.Apply(ctx, entry(domain.TxUsage, "-1"), balance.ApplyOptions{}); err == nil {
						mu.Lock()
						succeeded++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, 10, succeeded)
			bal, err := ledger.Balance(ctx, "E100", domain.BalanceVacation)
			require.NoError(t, err)
			assert.True(t, bal.CurrentBalance.IsZero())
			assert.NoError(t, ledger.Reconcile(ctx, "E100", domain.BalanceVacation))
		})
	}
}

type tamperedStore struct {
	balance.Store
}

func (s tamperedStore) Balance(ctx context.Context, employeeID string, bt domain.BalanceType) (domain.EmployeeBalance, error) {
	bal, err := s.Store.Balance(ctx, employeeID, bt)
	bal.CurrentBalance = bal.CurrentBalance.Add(decimal.NewFromInt(1))
	return bal, err
}

func TestLedger_ReconcileDetectsMismatch(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	_, err := balance.NewLedger(mem).Apply(ctx, entry(domain.TxAccrual, "8"), balance.ApplyOptions{})
	require.NoError(t, err)

	err = balance.NewLedger(tamperedStore{mem}).Reconcile(ctx, "E100", domain.BalanceVacation)
	assert.ErrorIs(t, err, domain.ErrLedgerMismatch)
}
