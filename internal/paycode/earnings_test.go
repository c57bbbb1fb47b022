package paycode

import (
	"strings"
	"testing"
	"time"

	"github.com/rgehrsitz/cdnpayroll/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codeByName(t *testing.T, name string) domain.PayCode {
	t.Helper()
	for _, pc := range DefaultPayCodes() {
		if pc.Code == name {
			return pc
		}
	}
	t.Fatalf("default pay code %s not found", name)
	return domain.PayCode{}
}

func hourlyRate(base int64) domain.EmployeeRate {
	return domain.EmployeeRate{
		RateType:      domain.RateHourly,
		BaseRate:      decimal.NewFromInt(base),
		EffectiveFrom: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestCalculateEarnings_RegularHours(t *testing.T) {
	result := CalculateEarnings(EarningsInput{
		Hours:   decimal.NewFromInt(8),
		PayCode: codeByName(t, "REG"),
		Rate:    hourlyRate(45),
	})

	assert.True(t, decimal.NewFromInt(360).Equal(result.GrossEarnings), "got %s", result.GrossEarnings)
	assert.Contains(t, result.Calculation, "8h × $45.00/h")
	assert.Contains(t, result.Calculation, "$360.00")
	assert.Empty(t, result.Warnings)
	assert.Equal(t, "5000", result.GLCode)
}

func TestCalculateEarnings_RateTypes(t *testing.T) {
	legacy := decimal.NewFromInt(30)
	bonus := decimal.NewFromInt(500)

	tests := []struct {
		name        string
		input       EarningsInput
		expected    string
		calcContain string
	}{
		{
			name:        "overtime multiplier",
			input:       EarningsInput{Hours: decimal.NewFromInt(4), PayCode: codeByName(t, "OT15"), Rate: hourlyRate(20)},
			expected:    "120",
			calcContain: "× 1.5",
		},
		{
			name:        "flat hourly override",
			input:       EarningsInput{Hours: decimal.NewFromInt(10), PayCode: codeByName(t, "ONCALL"), Rate: hourlyRate(45)},
			expected:    "50",
			calcContain: "(pay code rate)",
		},
		{
			name: "flat hourly legacy multiplier",
			input: EarningsInput{
				Hours:   decimal.NewFromInt(2),
				PayCode: domain.PayCode{Code: "TRAIN", Category: domain.CategoryEarning, RateType: domain.RateTypeFlatHourly, Multiplier: &legacy, RequiresHours: true, Active: true},
				Rate:    hourlyRate(45),
			},
			expected:    "60",
			calcContain: "(pay code rate)",
		},
		{
			name: "flat hourly falls back to base rate",
			input: EarningsInput{
				Hours:   decimal.NewFromInt(2),
				PayCode: domain.PayCode{Code: "TRAIN", Category: domain.CategoryEarning, RateType: domain.RateTypeFlatHourly, RequiresHours: true, Active: true},
				Rate:    hourlyRate(45),
			},
			expected:    "90",
			calcContain: "(employee base rate)",
		},
		{
			name:        "flat amount",
			input:       EarningsInput{Amount: &bonus, PayCode: codeByName(t, "BONUS"), Rate: hourlyRate(45)},
			expected:    "500",
			calcContain: "Flat amount $500.00",
		},
		{
			name:        "banked time earns nothing now",
			input:       EarningsInput{Hours: decimal.NewFromInt(3), PayCode: codeByName(t, "BANK_EARNED"), Rate: hourlyRate(30)},
			expected:    "0",
			calcContain: "= $0.00",
		},
		{
			name: "empty rate type is a multiplier",
			input: EarningsInput{
				Hours:   decimal.NewFromInt(1),
				PayCode: domain.PayCode{Code: "MISC", Category: domain.CategoryEarning, RequiresHours: true, Active: true},
				Rate:    hourlyRate(25),
			},
			expected:    "25",
			calcContain: "× 1 =",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateEarnings(tt.input)
			assert.True(t, decimal.RequireFromString(tt.expected).Equal(result.GrossEarnings),
				"expected %s, got %s", tt.expected, result.GrossEarnings)
			assert.Contains(t, result.Calculation, tt.calcContain)
		})
	}
}

func TestCalculateEarnings_StackedPremium(t *testing.T) {
	eve := codeByName(t, "EVE")
	wknd := codeByName(t, "WKND")

	stacked := CalculateEarnings(EarningsInput{
		Hours:           decimal.NewFromInt(8),
		PayCode:         eve,
		Rate:            hourlyRate(20),
		StackedPremiums: []domain.PayCode{eve, wknd},
	})
	assert.True(t, decimal.NewFromInt(176).Equal(stacked.GrossEarnings), "got %s", stacked.GrossEarnings)
	assert.Contains(t, stacked.Calculation, "stacked premium")

	// With only itself in the list there is nothing to stack on.
	alone := CalculateEarnings(EarningsInput{
		Hours:           decimal.NewFromInt(8),
		PayCode:         eve,
		Rate:            hourlyRate(20),
		StackedPremiums: []domain.PayCode{eve},
	})
	assert.NotContains(t, alone.Calculation, "stacked premium")
}

func TestCalculateEarnings_Warnings(t *testing.T) {
	amount := decimal.NewFromInt(100)
	nonStackable := domain.PayCode{Code: "HAZ", Category: domain.CategoryPremium, Multiplier: rate(1.2), RequiresHours: true, Active: true}
	expired := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	retired := domain.PayCode{Code: "OLD", Category: domain.CategoryEarning, RequiresHours: true, Active: true, ExpiresAt: &expired}

	tests := []struct {
		name    string
		input   EarningsInput
		warning string
	}{
		{
			name:    "missing hours",
			input:   EarningsInput{PayCode: codeByName(t, "REG"), Rate: hourlyRate(20)},
			warning: "Pay code REG requires hours but none provided",
		},
		{
			name:    "missing amount",
			input:   EarningsInput{PayCode: codeByName(t, "BONUS"), Rate: hourlyRate(20)},
			warning: "Pay code BONUS requires an amount but none provided",
		},
		{
			name:    "hours on flat amount",
			input:   EarningsInput{Hours: decimal.NewFromInt(2), Amount: &amount, PayCode: codeByName(t, "BONUS"), Rate: hourlyRate(20)},
			warning: "does not use hours",
		},
		{
			name:    "amount on hourly code",
			input:   EarningsInput{Hours: decimal.NewFromInt(2), Amount: &amount, PayCode: codeByName(t, "REG"), Rate: hourlyRate(20)},
			warning: "does not use an amount",
		},
		{
			name:    "negative hours",
			input:   EarningsInput{Hours: decimal.NewFromInt(-2), PayCode: codeByName(t, "REG"), Rate: hourlyRate(20)},
			warning: "Negative hours (-2) treated as zero",
		},
		{
			name:    "non-stackable premium",
			input:   EarningsInput{Hours: decimal.NewFromInt(2), PayCode: nonStackable, Rate: hourlyRate(20), StackedPremiums: []domain.PayCode{codeByName(t, "EVE")}},
			warning: "is not stackable",
		},
		{
			name:    "expired code",
			input:   EarningsInput{Hours: decimal.NewFromInt(2), PayCode: retired, Rate: hourlyRate(20), Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
			warning: "Pay code OLD is inactive or expired on 2024-06-01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateEarnings(tt.input)
			require.NotEmpty(t, result.Warnings)
			found := false
			for _, w := range result.Warnings {
				if strings.Contains(w, tt.warning) {
					found = true
				}
			}
			assert.True(t, found, "warning %q not in %v", tt.warning, result.Warnings)
		})
	}
}

func TestCalculateEarnings_NegativeHoursPayNothing(t *testing.T) {
	result := CalculateEarnings(EarningsInput{Hours: decimal.NewFromInt(-4), PayCode: codeByName(t, "REG"), Rate: hourlyRate(20)})
	assert.True(t, result.GrossEarnings.IsZero())
}

func TestSelectEffectiveRate(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	jul := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	endJun := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	rates := []domain.EmployeeRate{
		{RateType: domain.RateHourly, BaseRate: decimal.NewFromInt(40), EffectiveFrom: jan, EffectiveTo: &endJun},
		{RateType: domain.RateHourly, BaseRate: decimal.NewFromInt(45), EffectiveFrom: jul},
	}

	t.Run("first half", func(t *testing.T) {
		r, err := SelectEffectiveRate(rates, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(40).Equal(r.BaseRate))
	})

	t.Run("end date inclusive", func(t *testing.T) {
		r, err := SelectEffectiveRate(rates, endJun)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(40).Equal(r.BaseRate))
	})

	t.Run("latest start wins on overlap", func(t *testing.T) {
		overlapping := append([]domain.EmployeeRate{}, rates...)
		overlapping = append(overlapping, domain.EmployeeRate{RateType: domain.RateHourly, BaseRate: decimal.NewFromInt(50), EffectiveFrom: time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)})
		r, err := SelectEffectiveRate(overlapping, time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(50).Equal(r.BaseRate))
	})

	t.Run("no coverage", func(t *testing.T) {
		_, err := SelectEffectiveRate(rates, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC))
		assert.ErrorIs(t, err, domain.ErrNoEffectiveRate)
	})
}
