package config

import (
	"testing"
	"time"

	"github.com/rgehrsitz/cdnpayroll/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry()
	assert.Equal(t, DefaultTaxYear, r.DefaultYear())
	assert.Equal(t, []int{2024}, r.Years())

	table, err := r.ForYear(2024)
	require.NoError(t, err)
	assert.Equal(t, "3867.5", table.CPP.MaxAnnualContribution().String())
	assert.Equal(t, "1055.76", table.EI.MaxAnnualPremium().String())
	assert.Equal(t, []domain.Province{"BC", "ON"}, table.SupportedProvinces())
}

func TestRegistry_ForYearMissing(t *testing.T) {
	_, err := NewDefaultRegistry().ForYear(2030)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateTableNotFound)

	var nf *domain.RateTableNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, 2030, nf.Year)
}

func TestRegistry_Register(t *testing.T) {
	r := NewDefaultRegistry()

	table := DefaultRateTable2024()
	table.TaxYear = 2023
	require.NoError(t, r.Register(table))
	assert.Equal(t, []int{2023, 2024}, r.Years())

	bad := DefaultRateTable2024()
	bad.TaxYear = 2022
	bad.Provincial = nil
	err := r.Register(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "register 2022")
	assert.Equal(t, []int{2023, 2024}, r.Years(), "invalid tables are not registered")

	assert.Error(t, r.Register(nil))
}

func TestRegistry_SetDefaultYear(t *testing.T) {
	r := NewDefaultRegistry()
	assert.ErrorIs(t, r.SetDefaultYear(2025), domain.ErrRateTableNotFound)
	assert.Equal(t, 2024, r.DefaultYear())

	table := DefaultRateTable2024()
	table.TaxYear = 2025
	require.NoError(t, r.Register(table))
	require.NoError(t, r.SetDefaultYear(2025))
	assert.Equal(t, 2025, r.DefaultYear())
}

func TestRegistry_LoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "2025.yaml", rateTable2025)
	writeFile(t, dir, "README.md", "not a rate table")

	r := NewDefaultRegistry()
	years, err := r.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []int{2025}, years)
	assert.Equal(t, []int{2024, 2025}, r.Years())

	table, err := r.ForYear(2025)
	require.NoError(t, err)
	assert.Equal(t, "test", table.Metadata.Source)
}

func TestRegistry_LoadDirInvalidFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yml", "tax_year: 2026\n")

	_, err := NewDefaultRegistry().LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yml")

	_, err = NewDefaultRegistry().LoadDir(dir + "/missing")
	assert.Error(t, err)
}

func TestLoadSettings_Defaults(t *testing.T) {
	s, err := LoadSettings()
	require.NoError(t, err)

	assert.Equal(t, ":8080", s.Addr)
	assert.Equal(t, 15*time.Second, s.RequestTimeout)
	assert.Equal(t, 2024, s.TaxYear)
	assert.Equal(t, time.Hour, s.PayCodeCacheTTL)
	assert.Equal(t, "text", s.LogFormat)
	assert.Equal(t, "8", s.DailyOvertimeThreshold().String())
	assert.Equal(t, "40", s.WeeklyOvertimeThreshold().String())
}

func TestLoadSettings_FromEnvironment(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "2025.yaml", rateTable2025)

	t.Setenv("PAYROLL_ADDR", ":9090")
	t.Setenv("PAYROLL_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("PAYROLL_RATE_TABLE_DIR", dir)
	t.Setenv("PAYROLL_TAX_YEAR", "2025")
	t.Setenv("PAYROLL_DAILY_OT_HOURS", "7.5")
	t.Setenv("PAYROLL_LOG_FORMAT", "json")

	s, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, ":9090", s.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, s.AllowedOrigins)
	assert.Equal(t, "7.5", s.DailyOvertimeThreshold().String())
	assert.Equal(t, "json", s.LogFormat)

	registry, err := s.BuildRegistry()
	require.NoError(t, err)
	assert.Equal(t, 2025, registry.DefaultYear())
	assert.Equal(t, []int{2024, 2025}, registry.Years())
}

func TestLoadSettings_Invalid(t *testing.T) {
	t.Setenv("PAYROLL_WEEKLY_OT_HOURS", "0")
	_, err := LoadSettings()
	assert.Error(t, err)

	t.Setenv("PAYROLL_WEEKLY_OT_HOURS", "40")
	t.Setenv("PAYROLL_REQUEST_TIMEOUT", "soon")
	_, err = LoadSettings()
	assert.Error(t, err)
}

func TestBuildRegistry_UnknownDefaultYear(t *testing.T) {
	s := &Settings{TaxYear: 2031}
	_, err := s.BuildRegistry()
	assert.ErrorIs(t, err, domain.ErrRateTableNotFound)
}
