package compare

import (
	"fmt"

	"github.com/rgehrsitz/cdnpayroll/internal/domain"
)

// Calculator computes a single pay period.
type Calculator interface {
	CalculatePayroll(in domain.PayrollInput) (*domain.PayrollResult, error)
}

// CompareEngine runs scenario comparisons
type CompareEngine struct {
	Calc Calculator
}

// NewCompareEngine creates a new comparison engine
func NewCompareEngine(calc Calculator) *CompareEngine {
	return &CompareEngine{Calc: calc}
}

// Compare calculates base as given, then once per scenario, and returns the
// deltas. A scenario that cannot be calculated (an unsupported province, a
// missing tax year) fails the whole comparison.
func (ce *CompareEngine) Compare(base domain.PayrollInput, scenarios []Scenario) (*ComparisonSet, error) {
	baseResult, err := ce.Calc.CalculatePayroll(base)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate base: %w", err)
	}
	baseName := fmt.Sprintf("%s/%d", baseResult.Summary.Province, baseResult.Summary.TaxYear)
	baseCmp := newComparisonResult(baseName+" (base)", baseResult)

	alternatives := make([]ComparisonResult, 0, len(scenarios))
	for _, sc := range scenarios {
		r, err := ce.Calc.CalculatePayroll(sc.Apply(base))
		if err != nil {
			return nil, fmt.Errorf("failed to calculate scenario %s: %w", sc.Name, err)
		}
		alternatives = append(alternatives, newComparisonResult(sc.Name, r).against(baseCmp))
	}

	set := &ComparisonSet{
		EmployeeID:         base.EmployeeID,
		Frequency:          baseResult.Summary.Frequency,
		BaseResult:         &baseCmp,
		AlternativeResults: alternatives,
	}
	set.Recommendations = GenerateRecommendations(set)
	return set, nil
}
