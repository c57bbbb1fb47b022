package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rgehrsitz/cdnpayroll/internal/domain"
)

// RateTableRegistry holds the published rate table for each tax year.
// Tables are validated on registration and never mutated afterwards.
type RateTableRegistry struct {
	mu          sync.RWMutex
	tables      map[int]*domain.RateTable
	defaultYear int
	parser      *InputParser
}

// NewRateTableRegistry creates an empty registry whose default year is defaultYear
func NewRateTableRegistry(defaultYear int) *RateTableRegistry {
	return &RateTableRegistry{
		tables:      make(map[int]*domain.RateTable),
		defaultYear: defaultYear,
		parser:      NewInputParser(),
	}
}

// NewDefaultRegistry creates a registry holding only the built-in tables
func NewDefaultRegistry() *RateTableRegistry {
	r := NewRateTableRegistry(DefaultTaxYear)
	// built-in tables are known good
	r.tables[DefaultTaxYear] = DefaultRateTable2024()
	return r
}

// Register validates and adds a table, replacing any table for the same year.
func (r *RateTableRegistry) Register(table *domain.RateTable) error {
	if table == nil {
		return fmt.Errorf("rate table is nil")
	}
	if err := r.parser.ValidateRateTable(table); err != nil {
		return fmt.Errorf("register %d: %w", table.TaxYear, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[table.TaxYear] = table
	return nil
}

// LoadDir registers every .yaml, .yml and .json file in dir and returns the years loaded.
func (r *RateTableRegistry) LoadDir(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read rate table directory %s: %w", dir, err)
	}

	var years []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml", ".json":
		default:
			continue
		}
		table, err := r.parser.LoadRateTable(filepath.Join(dir, entry.Name()))
		if err != nil {
			return years, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		if err := r.Register(table); err != nil {
			return years, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		years = append(years, table.TaxYear)
	}
	sort.Ints(years)
	return years, nil
}

// ForYear returns the table for a tax year or a *domain.RateTableNotFoundError
func (r *RateTableRegistry) ForYear(year int) (*domain.RateTable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	table, ok := r.tables[year]
	if !ok {
		return nil, &domain.RateTableNotFoundError{Year: year}
	}
	return table, nil
}

// DefaultYear returns the year used when an input does not name one
func (r *RateTableRegistry) DefaultYear() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultYear
}

// SetDefaultYear changes the default year; the year must already be registered.
func (r *RateTableRegistry) SetDefaultYear(year int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tables[year]; !ok {
		return &domain.RateTableNotFoundError{Year: year}
	}
	r.defaultYear = year
	return nil
}

// Years returns the registered tax years in ascending order
func (r *RateTableRegistry) Years() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	years := make([]int, 0, len(r.tables))
	for y := range r.tables {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}
