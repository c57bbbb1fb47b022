package config

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// Settings holds process configuration read from the environment.
type Settings struct {
	Addr           string        `envconfig:"ADDR" default:":8080"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
	AllowedOrigins []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173"`
	Production     bool          `envconfig:"PRODUCTION" default:"false"`

	RateTableDir string `envconfig:"RATE_TABLE_DIR"`
	TaxYear      int    `envconfig:"TAX_YEAR" default:"2024"`

	RedisAddr        string        `envconfig:"REDIS_ADDR"`
	PayCodeURL       string        `envconfig:"PAYCODE_URL"`
	PayCodeFile      string        `envconfig:"PAYCODE_FILE"`
	PayCodeCacheTTL  time.Duration `envconfig:"PAYCODE_CACHE_TTL" default:"1h"`
	PayCodeFetchTime time.Duration `envconfig:"PAYCODE_FETCH_TIMEOUT" default:"5s"`

	LedgerDSN string `envconfig:"LEDGER_DSN" default:"file:ledger.db"`

	DailyOvertimeHours  float64 `envconfig:"DAILY_OT_HOURS" default:"8"`
	WeeklyOvertimeHours float64 `envconfig:"WEEKLY_OT_HOURS" default:"40"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
}

// LoadSettings reads PAYROLL_* environment variables.
func LoadSettings() (*Settings, error) {
	var s Settings
	if err := envconfig.Process("PAYROLL", &s); err != nil {
		return nil, err
	}
	if s.DailyOvertimeHours <= 0 || s.WeeklyOvertimeHours <= 0 {
		return nil, errors.New("overtime thresholds must be positive")
	}
	return &s, nil
}

// DailyOvertimeThreshold returns the daily threshold as a decimal
func (s *Settings) DailyOvertimeThreshold() decimal.Decimal {
	return decimal.NewFromFloat(s.DailyOvertimeHours)
}

// WeeklyOvertimeThreshold returns the weekly threshold as a decimal
func (s *Settings) WeeklyOvertimeThreshold() decimal.Decimal {
	return decimal.NewFromFloat(s.WeeklyOvertimeHours)
}

// BuildRegistry returns the built-in registry plus any tables in RateTableDir,
// with TaxYear as the default year.
func (s *Settings) BuildRegistry() (*RateTableRegistry, error) {
	registry := NewDefaultRegistry()
	if s.RateTableDir != "" {
		if _, err := registry.LoadDir(s.RateTableDir); err != nil {
			return nil, err
		}
	}
	if s.TaxYear != 0 {
		if err := registry.SetDefaultYear(s.TaxYear); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
