package balance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rgehrsitz/cdnpayroll/internal/domain"
	"github.com/rgehrsitz/cdnpayroll/internal/logging"
	"github.com/shopspring/decimal"
)

// Store persists balances and their transactions.
//
// Apply must be atomic per (employee, balance type): read the current
// balance, call prepare with it, append the returned transaction and write
// the new balance as one unit. The store fills in BalanceBefore and
// BalanceAfter. If prepare returns an error nothing is written.
//
// Transactions are append-only; corrections are new adjustment entries.
type Store interface {
	Apply(ctx context.Context, employeeID string, bt domain.BalanceType,
		prepare func(current domain.EmployeeBalance) (domain.BalanceTransaction, error),
	) (domain.BalanceTransaction, domain.EmployeeBalance, error)

	// Balance returns the current balance; an employee with no history has a zero balance.
	Balance(ctx context.Context, employeeID string, bt domain.BalanceType) (domain.EmployeeBalance, error)

	// Transactions returns the history oldest first.
	Transactions(ctx context.Context, employeeID string, bt domain.BalanceType) ([]domain.BalanceTransaction, error)
}

// Entry is a requested balance change
type Entry struct {
	EmployeeID      string                 `json:"employee_id" yaml:"employee_id"`
	BalanceType     domain.BalanceType     `json:"balance_type" yaml:"balance_type"`
	TransactionType domain.TransactionType `json:"transaction_type" yaml:"transaction_type"`
	Amount          decimal.Decimal        `json:"amount" yaml:"amount"`
	ReferenceDate   time.Time              `json:"reference_date" yaml:"reference_date"`
	ReferenceType   string                 `json:"reference_type,omitempty" yaml:"reference_type,omitempty"`
	ReferenceID     string                 `json:"reference_id,omitempty" yaml:"reference_id,omitempty"`
}

// ApplyOptions controls how an entry is applied
type ApplyOptions struct {
	// AdminOverride lets an entry take the balance below zero.
	AdminOverride bool
}

// ApplyResult is the recorded transaction and the balance after it.
type ApplyResult struct {
	Transaction domain.BalanceTransaction `json:"transaction"`
	Balance     domain.EmployeeBalance    `json:"balance"`
	Warnings    []string                  `json:"warnings"`
}

// Ledger validates entries and records them through a Store.
type Ledger struct {
	store  Store
	logger logging.Logger
	now    func() time.Time
	newID  func() string
}

// NewLedger creates a ledger over a store
func NewLedger(store Store) *Ledger {
	return &Ledger{
		store:  store,
		logger: logging.NopLogger{},
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// SetLogger sets the ledger logger; nil installs a no-op logger
func (l *Ledger) SetLogger(logger logging.Logger) {
	l.logger = logging.OrNop(logger)
}

// Apply records an entry. A debit that would take the balance negative is
// rejected with *domain.InsufficientBalanceError unless opts.AdminOverride is
// set, in which case the transaction is flagged as an override.
func (l *Ledger) Apply(ctx context.Context, e Entry, opts ApplyOptions) (ApplyResult, error) {
	if err := validateEntry(e); err != nil {
		return ApplyResult{}, err
	}

	var warnings []string
	tx, bal, err := l.store.Apply(ctx, e.EmployeeID, e.BalanceType, func(current domain.EmployeeBalance) (domain.BalanceTransaction, error) {
		warnings = nil
		overridden := false
		if e.Amount.IsNegative() {
			check := ValidateSufficiency(current, e.Amount.Neg(), opts.AdminOverride)
			if err := check.Permit(opts.AdminOverride); err != nil {
				return domain.BalanceTransaction{}, err
			}
			if !check.IsValid {
				overridden = true
				warnings = append(warnings, check.Warnings...)
			}
		}
		return domain.BalanceTransaction{
			ID:              l.newID(),
			EmployeeID:      e.EmployeeID,
			BalanceType:     e.BalanceType,
			TransactionType: e.TransactionType,
			Amount:          e.Amount,
			ReferenceDate:   e.ReferenceDate,
			ReferenceType:   e.ReferenceType,
			ReferenceID:     e.ReferenceID,
			AdminOverride:   overridden,
			CreatedAt:       l.now().UTC(),
		}, nil
	})
	if err != nil {
		return ApplyResult{}, fmt.Errorf("apply %s %s for %s: %w", e.TransactionType, e.BalanceType, e.EmployeeID, err)
	}

	if tx.AdminOverride {
		l.logger.Warnf("employee %s: admin override took %s balance to %s", e.EmployeeID, e.BalanceType, bal.CurrentBalance.String())
	}
	if warnings == nil {
		warnings = []string{}
	}
	return ApplyResult{Transaction: tx, Balance: bal, Warnings: warnings}, nil
}

// ApplyImpact records a pay-code balance impact: debits as usage, credits as accrual.
func (l *Ledger) ApplyImpact(ctx context.Context, employeeID string, impact Impact, date time.Time, referenceID string, opts ApplyOptions) (ApplyResult, error) {
	txType := domain.TxAccrual
	if impact.Amount.IsNegative() {
		txType = domain.TxUsage
	}
	return l.Apply(ctx, Entry{
		EmployeeID:      employeeID,
		BalanceType:     impact.BalanceType,
		TransactionType: txType,
		Amount:          impact.Amount,
		ReferenceDate:   date,
		ReferenceType:   "timesheet",
		ReferenceID:     referenceID,
	}, opts)
}

// Balance returns the current balance
func (l *Ledger) Balance(ctx context.Context, employeeID string, bt domain.BalanceType) (domain.EmployeeBalance, error) {
	return l.store.Balance(ctx, employeeID, bt)
}

// History returns the transactions for a balance, oldest first
func (l *Ledger) History(ctx context.Context, employeeID string, bt domain.BalanceType) ([]domain.BalanceTransaction, error) {
	return l.store.Transactions(ctx, employeeID, bt)
}

// Reconcile checks the stored balance against its transaction history: the
// balance must equal the sum of all amounts, and each transaction must start
// where the previous one ended.
func (l *Ledger) Reconcile(ctx context.Context, employeeID string, bt domain.BalanceType) error {
	bal, err := l.store.Balance(ctx, employeeID, bt)
	if err != nil {
		return err
	}
	txs, err := l.store.Transactions(ctx, employeeID, bt)
	if err != nil {
		return err
	}

	running := decimal.Zero
	for i, tx := range txs {
		if !tx.BalanceBefore.Equal(running) {
			return fmt.Errorf("%w: transaction %d (%s) starts at %s, expected %s",
				domain.ErrLedgerMismatch, i, tx.ID, tx.BalanceBefore.String(), running.String())
		}
		if !tx.BalanceAfter.Equal(tx.BalanceBefore.Add(tx.Amount)) {
			return fmt.Errorf("%w: transaction %d (%s) ends at %s, expected %s",
				domain.ErrLedgerMismatch, i, tx.ID, tx.BalanceAfter.String(), tx.BalanceBefore.Add(tx.Amount).String())
		}
		running = running.Add(tx.Amount)
	}

	if !bal.CurrentBalance.Equal(running) {
		return fmt.Errorf("%w: %s %s balance is %s but transactions sum to %s",
			domain.ErrLedgerMismatch, employeeID, bt, bal.CurrentBalance.String(), running.String())
	}
	return nil
}

func validateEntry(e Entry) error {
	switch {
	case e.EmployeeID == "":
		return fmt.Errorf("%w: employee id is required", domain.ErrInvalidTransaction)
	case !e.BalanceType.Valid():
		return fmt.Errorf("%w: unknown balance type %q", domain.ErrInvalidTransaction, e.BalanceType)
	case !e.TransactionType.Valid():
		return fmt.Errorf("%w: unknown transaction type %q", domain.ErrInvalidTransaction, e.TransactionType)
	case e.Amount.IsZero():
		return fmt.Errorf("%w: amount must be non-zero", domain.ErrInvalidTransaction)
	case e.TransactionType == domain.TxAccrual && e.Amount.IsNegative():
		return fmt.Errorf("%w: accrual amount must be positive", domain.ErrInvalidTransaction)
	case e.TransactionType == domain.TxUsage && e.Amount.IsPositive():
		return fmt.Errorf("%w: usage amount must be negative", domain.ErrInvalidTransaction)
	}
	return nil
}
