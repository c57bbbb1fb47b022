package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Sentinel errors, use with errors.Is().
var (
	// ErrUnsupportedProvince is returned when no bracket table exists for a province.
	ErrUnsupportedProvince = errors.New("unsupported province")

	// ErrRateTableNotFound is returned when no rate table is registered for a tax year.
	ErrRateTableNotFound = errors.New("rate table not found")

	// ErrNoEffectiveRate is returned when none of an employee's rates covers a date.
	ErrNoEffectiveRate = errors.New("no effective employee rate")

	// ErrInsufficientBalance is returned when a usage would take a leave balance negative.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidTransaction is returned for malformed balance transactions.
	ErrInvalidTransaction = errors.New("invalid balance transaction")

	// ErrLedgerMismatch is returned when a balance disagrees with its transaction history.
	ErrLedgerMismatch = errors.New("ledger mismatch")
)

// UnsupportedProvinceError carries the requested and the available provinces.
type UnsupportedProvinceError struct {
	Province  Province
	Supported []Province
}

func (e *UnsupportedProvinceError) Error() string {
	supported := make([]string, len(e.Supported))
	for i, p := range e.Supported {
		supported[i] = string(p)
	}
	return fmt.Sprintf("unsupported province %q (supported: %s)", e.Province, strings.Join(supported, ", "))
}

func (e *UnsupportedProvinceError) Unwrap() error {
	return ErrUnsupportedProvince
}

// RateTableNotFoundError reports the tax year that has no rate table.
type RateTableNotFoundError struct {
	Year int
}

func (e *RateTableNotFoundError) Error() string {
	return fmt.Sprintf("no rate table registered for tax year %d", e.Year)
}

func (e *RateTableNotFoundError) Unwrap() error {
	return ErrRateTableNotFound
}

// InsufficientBalanceError provides details about a leave balance shortage.
type InsufficientBalanceError struct {
	BalanceType BalanceType
	Available   decimal.Decimal
	Requested   decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance: available %s, requested %s, shortfall %s",
		e.BalanceType, e.Available.String(), e.Requested.String(), e.Shortfall().String())
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// Shortfall is the amount by which the request exceeds the balance.
func (e *InsufficientBalanceError) Shortfall() decimal.Decimal {
	return decimal.Max(decimal.Zero, e.Requested.Sub(e.Available))
}

// IsConfigurationError reports whether err must abort a calculation.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrUnsupportedProvince) || errors.Is(err, ErrRateTableNotFound)
}
