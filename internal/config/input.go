package config

import (
	"fmt"
	"os"

	"github.com/rgehrsitz/cdnpayroll/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// InputParser handles parsing of rate-table and payroll input files
type InputParser struct{}

// NewInputParser creates a new input parser
func NewInputParser() *InputParser {
	return &InputParser{}
}

// PayrollBatch is the on-disk format of a payroll input file
type PayrollBatch struct {
	TaxYear int                   `yaml:"tax_year,omitempty" json:"tax_year,omitempty"`
	Inputs  []domain.PayrollInput `yaml:"employees" json:"employees"`
}

// LoadRateTable loads and validates a rate table from a YAML or JSON file
func (ip *InputParser) LoadRateTable(filename string) (*domain.RateTable, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return ip.ParseRateTable(data)
}

// ParseRateTable parses and validates rate-table YAML
func (ip *InputParser) ParseRateTable(data []byte) (*domain.RateTable, error) {
	var table domain.RateTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := ip.ValidateRateTable(&table); err != nil {
		return nil, fmt.Errorf("rate table validation failed: %w", err)
	}
	return &table, nil
}

// LoadPayrollBatch loads a payroll input file. Inputs without a tax year
// inherit the batch tax year.
func (ip *InputParser) LoadPayrollBatch(filename string) (*PayrollBatch, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	var batch PayrollBatch
	if err := yaml.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(batch.Inputs) == 0 {
		return nil, fmt.Errorf("no employees provided")
	}

	for i := range batch.Inputs {
		in := &batch.Inputs[i]
		if in.TaxYear == 0 {
			in.TaxYear = batch.TaxYear
		}
		if in.PayFrequency != "" {
			freq, err := domain.ParsePayFrequency(string(in.PayFrequency))
			if err != nil {
				return nil, fmt.Errorf("employee %d (%s) validation failed: %w", i, in.EmployeeID, err)
			}
			in.PayFrequency = freq
		}
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("employee %d (%s) validation failed: %w", i, in.EmployeeID, err)
		}
	}

	return &batch, nil
}

// ValidateRateTable validates a loaded rate table
func (ip *InputParser) ValidateRateTable(table *domain.RateTable) error {
	if table.TaxYear < 2000 || table.TaxYear > 2100 {
		return fmt.Errorf("tax year %d is out of range", table.TaxYear)
	}
	if err := ip.validateCPP(table.CPP); err != nil {
		return fmt.Errorf("cpp: %w", err)
	}
	if err := ip.validateEI(table.EI); err != nil {
		return fmt.Errorf("ei: %w", err)
	}
	if err := ip.validateJurisdiction(table.Federal); err != nil {
		return fmt.Errorf("federal: %w", err)
	}
	if len(table.Provincial) == 0 {
		return fmt.Errorf("at least one province is required")
	}
	for province, j := range table.Provincial {
		if province == "" {
			return fmt.Errorf("province code is required")
		}
		if err := ip.validateJurisdiction(j); err != nil {
			return fmt.Errorf("province %s: %w", province, err)
		}
	}
	return nil
}

func (ip *InputParser) validateCPP(cpp domain.CPPRates) error {
	if err := validateRate(cpp.Rate); err != nil {
		return err
	}
	if cpp.BasicExemption.IsNegative() {
		return fmt.Errorf("basic exemption cannot be negative")
	}
	if cpp.YMPE.LessThanOrEqual(cpp.BasicExemption) {
		return fmt.Errorf("YMPE must exceed the basic exemption")
	}
	return nil
}

func (ip *InputParser) validateEI(ei domain.EIRates) error {
	if err := validateRate(ei.EmployeeRate); err != nil {
		return err
	}
	if ei.EmployerMultiplier.IsNegative() {
		return fmt.Errorf("employer multiplier cannot be negative")
	}
	if ei.MaxInsurableEarnings.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("maximum insurable earnings must be positive")
	}
	return nil
}

// validateJurisdiction enforces ascending, contiguous brackets ending in a
// single unbounded bracket.
func (ip *InputParser) validateJurisdiction(j domain.Jurisdiction) error {
	if j.BasicPersonalAmount.IsNegative() {
		return fmt.Errorf("basic personal amount cannot be negative")
	}
	if len(j.Brackets) == 0 {
		return fmt.Errorf("at least one bracket is required")
	}
	previous := decimal.Zero
	for i, b := range j.Brackets {
		if err := validateRate(b.Rate); err != nil {
			return fmt.Errorf("bracket %d: %w", i, err)
		}
		last := i == len(j.Brackets)-1
		if b.Unbounded() {
			if !last {
				return fmt.Errorf("bracket %d: only the last bracket may be unbounded", i)
			}
			continue
		}
		if last {
			return fmt.Errorf("bracket %d: the last bracket must be unbounded", i)
		}
		if b.UpTo.LessThanOrEqual(previous) {
			return fmt.Errorf("bracket %d: up_to %s must exceed %s", i, b.UpTo.String(), previous.String())
		}
		previous = *b.UpTo
	}
	return nil
}

func validateRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("rate %s must be between 0 and 1", rate.String())
	}
	return nil
}
