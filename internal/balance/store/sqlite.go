package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rgehrsitz/cdnpayroll/internal/domain"
	"github.com/shopspring/decimal"
)

// SQLite is a balance store backed by SQLite. Amounts are stored as decimal
// strings. Every Apply runs in a single SQL transaction.
//
// The balance_transactions table is append-only: there are no UPDATE or
// DELETE statements against it.
type SQLite struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLite opens (and migrates) a store. Use ":memory:" for a throwaway database.
func NewSQLite(dsn string) (*SQLite, error) {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite3", dsn+sep+"_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serialises writers.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS balances (
		employee_id TEXT NOT NULL,
		balance_type TEXT NOT NULL,
		current_balance TEXT NOT NULL,
		accrued_balance TEXT NOT NULL,
		used_balance TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, balance_type)
	);

	CREATE TABLE IF NOT EXISTS balance_transactions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		employee_id TEXT NOT NULL,
		balance_type TEXT NOT NULL,
		transaction_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		balance_before TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		reference_date TEXT NOT NULL,
		reference_type TEXT,
		reference_id TEXT,
		admin_override BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_balance_transactions_employee
		ON balance_transactions(employee_id, balance_type, seq);
	CREATE INDEX IF NOT EXISTS idx_balance_transactions_reference
		ON balance_transactions(reference_id) WHERE reference_id IS NOT NULL;
	`
	_, err := s.db.Exec(schema)
	return err
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLite) Apply(ctx context.Context, employeeID string, bt domain.BalanceType,
	prepare func(current domain.EmployeeBalance) (domain.BalanceTransaction, error),
) (domain.BalanceTransaction, domain.EmployeeBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.BalanceTransaction{}, domain.EmployeeBalance{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	current, err := s.loadBalance(ctx, sqlTx, employeeID, bt)
	if err != nil {
		return domain.BalanceTransaction{}, domain.EmployeeBalance{}, err
	}

	tx, err := prepare(current)
	if err != nil {
		return domain.BalanceTransaction{}, domain.EmployeeBalance{}, err
	}
	tx.BalanceBefore = current.CurrentBalance
	tx.BalanceAfter = current.CurrentBalance.Add(tx.Amount)
	updated := tx.ApplyTo(current)

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO balance_transactions
		(id, employee_id, balance_type, transaction_type, amount, balance_before, balance_after,
		 reference_date, reference_type, reference_id, admin_override, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID,
		tx.EmployeeID,
		string(tx.BalanceType),
		string(tx.TransactionType),
		tx.Amount.String(),
		tx.BalanceBefore.String(),
		tx.BalanceAfter.String(),
		tx.ReferenceDate.UTC().Format(time.RFC3339Nano),
		nullString(tx.ReferenceType),
		nullString(tx.ReferenceID),
		tx.AdminOverride,
		tx.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return domain.BalanceTransaction{}, domain.EmployeeBalance{}, fmt.Errorf("failed to append transaction: %w", err)
	}

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO balances (employee_id, balance_type, current_balance, accrued_balance, used_balance, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (employee_id, balance_type) DO UPDATE SET
			current_balance = excluded.current_balance,
			accrued_balance = excluded.accrued_balance,
			used_balance = excluded.used_balance,
			updated_at = excluded.updated_at`,
		employeeID,
		string(bt),
		updated.CurrentBalance.String(),
		updated.AccruedBalance.String(),
		updated.UsedBalance.String(),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return domain.BalanceTransaction{}, domain.EmployeeBalance{}, fmt.Errorf("failed to write balance: %w", err)
	}

	if err := sqlTx.Commit(); err != nil {
		return domain.BalanceTransaction{}, domain.EmployeeBalance{}, fmt.Errorf("failed to commit: %w", err)
	}
	return tx, updated, nil
}

func (s *SQLite) Balance(ctx context.Context, employeeID string, bt domain.BalanceType) (domain.EmployeeBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadBalance(ctx, s.db, employeeID, bt)
}

func (s *SQLite) loadBalance(ctx context.Context, q queryer, employeeID string, bt domain.BalanceType) (domain.EmployeeBalance, error) {
	var current, accrued, used string
	err := q.QueryRowContext(ctx, `
		SELECT current_balance, accrued_balance, used_balance
		FROM balances
		WHERE employee_id = ? AND balance_type = ?`,
		employeeID, string(bt),
	).Scan(&current, &accrued, &used)
	if errors.Is(err, sql.ErrNoRows) {
		return zeroBalance(employeeID, bt), nil
	}
	if err != nil {
		return domain.EmployeeBalance{}, fmt.Errorf("failed to load balance: %w", err)
	}

	bal := domain.EmployeeBalance{EmployeeID: employeeID, BalanceType: bt}
	if bal.CurrentBalance, err = decimal.NewFromString(current); err != nil {
		return domain.EmployeeBalance{}, fmt.Errorf("corrupt current_balance %q: %w", current, err)
	}
	if bal.AccruedBalance, err = decimal.NewFromString(accrued); err != nil {
		return domain.EmployeeBalance{}, fmt.Errorf("corrupt accrued_balance %q: %w", accrued, err)
	}
	if bal.UsedBalance, err = decimal.NewFromString(used); err != nil {
		return domain.EmployeeBalance{}, fmt.Errorf("corrupt used_balance %q: %w", used, err)
	}
	return bal, nil
}

func (s *SQLite) Transactions(ctx context.Context, employeeID string, bt domain.BalanceType) ([]domain.BalanceTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, balance_type, transaction_type, amount, balance_before, balance_after,
		       reference_date, reference_type, reference_id, admin_override, created_at
		FROM balance_transactions
		WHERE employee_id = ? AND balance_type = ?
		ORDER BY seq ASC`,
		employeeID, string(bt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []domain.BalanceTransaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func scanTransaction(rows *sql.Rows) (domain.BalanceTransaction, error) {
	var (
		tx                         domain.BalanceTransaction
		balanceType, txType        string
		amount, before, after      string
		referenceDate, createdAt   string
		referenceType, referenceID sql.NullString
	)
	err := rows.Scan(&tx.ID, &tx.EmployeeID, &balanceType, &txType, &amount, &before, &after,
		&referenceDate, &referenceType, &referenceID, &tx.AdminOverride, &createdAt)
	if err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}

	tx.BalanceType = domain.BalanceType(balanceType)
	tx.TransactionType = domain.TransactionType(txType)
	tx.ReferenceType = referenceType.String
	tx.ReferenceID = referenceID.String

	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{{&tx.Amount, amount}, {&tx.BalanceBefore, before}, {&tx.BalanceAfter, after}} {
		v, err := decimal.NewFromString(f.src)
		if err != nil {
			return tx, fmt.Errorf("transaction %s: corrupt amount %q: %w", tx.ID, f.src, err)
		}
		*f.dst = v
	}

	if tx.ReferenceDate, err = time.Parse(time.RFC3339Nano, referenceDate); err != nil {
		return tx, fmt.Errorf("transaction %s: bad reference_date: %w", tx.ID, err)
	}
	if tx.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return tx, fmt.Errorf("transaction %s: bad created_at: %w", tx.ID, err)
	}
	return tx, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
