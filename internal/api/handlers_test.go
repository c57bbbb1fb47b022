package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rgehrsitz/cdnpayroll/internal/balance"
	"github.com/rgehrsitz/cdnpayroll/internal/balance/store"
	"github.com/rgehrsitz/cdnpayroll/internal/calculation"
	"github.com/rgehrsitz/cdnpayroll/internal/compare"
	"github.com/rgehrsitz/cdnpayroll/internal/config"
	"github.com/rgehrsitz/cdnpayroll/internal/domain"
	"github.com/rgehrsitz/cdnpayroll/internal/paycode"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, withLedger bool, opts RouterOptions) *chi.Mux {
	t.Helper()
	registry := config.NewDefaultRegistry()
	deps := Dependencies{
		Engine:   calculation.NewPayrollEngine(registry),
		Rates:    registry,
		Resolver: paycode.NewResolver(paycode.NewTieredSource(nil, nil), nil),
	}
	if withLedger {
		deps.Ledger = balance.NewLedger(store.NewMemory())
	}
	return NewRouter(NewHandler(deps), opts)
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func ontario(gross string) map[string]any {
	return map[string]any{
		"employee_id":   "E001",
		"gross_pay":     gross,
		"province":      "ON",
		"pay_frequency": "biweekly",
	}
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestRouter(t, false, RouterOptions{}), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestCalculatePayroll(t *testing.T) {
	rec := do(t, newTestRouter(t, false, RouterOptions{}), http.MethodPost, "/api/payroll/calculate", ontario("2000"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decodeBody[domain.PayrollResult](t, rec)
	assert.Equal(t, "E001", result.EmployeeID)
	assert.Equal(t, "110.99", result.Deductions.CPP.StringFixed(2))
	assert.Equal(t, "33.20", result.Deductions.EI.StringFixed(2))
	assert.Equal(t, "209.39", result.Deductions.FedTax.StringFixed(2))
	assert.Equal(t, "76.92", result.Deductions.ProvTax.StringFixed(2))
	assert.Equal(t, "1569.50", result.NetPay.StringFixed(2))
	assert.Equal(t, "46.48", result.EmployerCosts.EI.StringFixed(2))
}

func TestCalculatePayroll_Rejections(t *testing.T) {
	router := newTestRouter(t, false, RouterOptions{})

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantText   string
	}{
		{
			name:       "unknown frequency",
			body:       map[string]any{"gross_pay": "2000", "province": "ON", "pay_frequency": "fortnightly"},
			wantStatus: http.StatusBadRequest,
			wantText:   "pay_frequency",
		},
		{
			name:       "negative gross",
			body:       map[string]any{"gross_pay": "-1", "province": "ON", "pay_frequency": "weekly"},
			wantStatus: http.StatusBadRequest,
			wantText:   "gross_pay",
		},
		{
			name:       "negative ytd",
			body:       map[string]any{"gross_pay": "100", "province": "ON", "pay_frequency": "weekly", "ytd": map[string]any{"ei": "-3"}},
			wantStatus: http.StatusBadRequest,
			wantText:   "ytd.ei",
		},
		{
			name:       "unknown field",
			body:       map[string]any{"gross_pay": "100", "province": "ON", "pay_frequency": "weekly", "bonus": 1},
			wantStatus: http.StatusBadRequest,
			wantText:   "unknown field",
		},
		{
			name:       "malformed json",
			body:       `{"gross_pay":`,
			wantStatus: http.StatusBadRequest,
			wantText:   "Invalid request body",
		},
		{
			name:       "unsupported province",
			body:       map[string]any{"gross_pay": "2000", "province": "QC", "pay_frequency": "biweekly"},
			wantStatus: http.StatusUnprocessableEntity,
			wantText:   `unsupported province \"QC\"`,
		},
		{
			name:       "missing tax year",
			body:       map[string]any{"gross_pay": "2000", "province": "ON", "pay_frequency": "biweekly", "tax_year": 2019},
			wantStatus: http.StatusUnprocessableEntity,
			wantText:   "tax year 2019",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/payroll/calculate", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantText)
		})
	}
}

func TestCalculatePayroll_FrequencySpellings(t *testing.T) {
	router := newTestRouter(t, false, RouterOptions{})

	tests := []struct {
		spelling string
		want     domain.PayFrequency
		periods  int
		cpp      string
	}{
		{"Weekly", domain.Weekly, 52, "74.38"},
		{"Bi-Weekly", domain.Biweekly, 26, "110.99"},
		{"SemiMonthly", domain.SemiMonthly, 24, ""},
		{"MONTHLY", domain.Monthly, 12, ""},
	}
	for _, tt := range tests {
		t.Run(tt.spelling, func(t *testing.T) {
			body := ontario("2000")
			body["pay_frequency"] = tt.spelling
			rec := do(t, router, http.MethodPost, "/api/payroll/calculate", body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			result := decodeBody[domain.PayrollResult](t, rec)
			assert.Equal(t, tt.want, result.Summary.Frequency)
			assert.Equal(t, tt.periods, result.Summary.PeriodsPerYear)
			assert.Empty(t, result.Warnings)
			if tt.cpp != "" {
				assert.Equal(t, tt.cpp, result.Deductions.CPP.StringFixed(2))
			}
		})
	}
}

func TestCalculateBatch(t *testing.T) {
	router := newTestRouter(t, false, RouterOptions{})

	bc := ontario("2000")
	bc["employee_id"] = "E002"
	bc["province"] = "BC"
	rec := do(t, router, http.MethodPost, "/api/payroll/batch", map[string]any{"employees": []any{ontario("2000"), bc}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[BatchResponse](t, rec)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "E002", resp.Results[1].EmployeeID)
	assert.Equal(t, "76.72", resp.Results[1].Deductions.ProvTax.StringFixed(2))

	rec = do(t, router, http.MethodPost, "/api/payroll/batch", map[string]any{"employees": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestComparePayroll(t *testing.T) {
	router := newTestRouter(t, false, RouterOptions{})

	rec := do(t, router, http.MethodPost, "/api/payroll/compare", map[string]any{
		"input":     ontario("2000"),
		"scenarios": []string{"BC"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	set := decodeBody[compare.ComparisonSet](t, rec)
	require.NotNil(t, set.BaseResult)
	assert.Equal(t, "1569.50", set.BaseResult.NetPay.StringFixed(2))
	require.Len(t, set.AlternativeResults, 1)
	assert.Equal(t, "0.20", set.AlternativeResults[0].NetDiffFromBase.StringFixed(2))
	assert.Len(t, set.Recommendations, 2)

	tests := []struct {
		name      string
		scenarios []string
		status    int
	}{
		{"no scenarios", []string{}, http.StatusBadRequest},
		{"bad scenario", []string{"Ontario"}, http.StatusBadRequest},
		{"unsupported province", []string{"QC"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/payroll/compare", map[string]any{
				"input":     ontario("2000"),
				"scenarios": tt.scenarios,
			})
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestListPayCodes(t *testing.T) {
	router := newTestRouter(t, false, RouterOptions{})

	rec := do(t, router, http.MethodGet, "/api/paycodes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resolution := decodeBody[paycode.Resolution](t, rec)
	assert.Equal(t, paycode.TierDefault, resolution.Tier)
	_, ok := resolution.Lookup("REG")
	assert.True(t, ok)

	rec = do(t, router, http.MethodGet, "/api/paycodes?date=March", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalculateEarnings(t *testing.T) {
	router := newTestRouter(t, false, RouterOptions{})

	tests := []struct {
		name     string
		body     map[string]any
		expected string
	}{
		{"regular", map[string]any{"pay_code": "REG", "hours": "8", "base_rate": "45"}, "360"},
		{"overtime", map[string]any{"pay_code": "ot15", "hours": "4", "base_rate": "40"}, "240"},
		{"flat hourly", map[string]any{"pay_code": "ONCALL", "hours": "10", "base_rate": "40"}, "50"},
		{"bonus", map[string]any{"pay_code": "BONUS", "amount": "500", "date": "2024-06-01"}, "500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/paycodes/earnings", tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			result := decodeBody[paycode.EarningsResult](t, rec)
			assert.True(t, decimal.RequireFromString(tt.expected).Equal(result.GrossEarnings), "got %s", result.GrossEarnings)
			assert.NotEmpty(t, result.Calculation)
			assert.Contains(t, result.Warnings, "using built-in default pay codes")
		})
	}

	rec := do(t, router, http.MethodPost, "/api/paycodes/earnings", map[string]any{"pay_code": "NOPE", "hours": "1", "base_rate": "10"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/paycodes/earnings", map[string]any{"pay_code": "REG", "hours": "1", "base_rate": "10", "stacked_premiums": []string{"NOPE"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/paycodes/earnings", map[string]any{"pay_code": "REG", "hours": "1", "base_rate": "10", "date": "06/01/2024"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBalanceImpact(t *testing.T) {
	router := newTestRouter(t, false, RouterOptions{})

	rec := do(t, router, http.MethodPost, "/api/balances/impact", map[string]any{"pay_code": "VAC", "hours": "8"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[ImpactResponse](t, rec)
	require.True(t, resp.AffectsBalance)
	assert.Equal(t, domain.BalanceVacation, resp.Impact.BalanceType)
	assert.Equal(t, "-8", resp.Impact.Amount.String())

	rec = do(t, router, http.MethodPost, "/api/balances/impact", map[string]any{"pay_code": "REG", "hours": "8"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeBody[ImpactResponse](t, rec).AffectsBalance)

	rec = do(t, router, http.MethodPost, "/api/balances/impact", map[string]any{"pay_code": "VAC", "hours": "0"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateBalance(t *testing.T) {
	router := newTestRouter(t, false, RouterOptions{})

	tests := []struct {
		name        string
		isAdmin     bool
		canOverride bool
	}{
		{"employee", false, false},
		{"admin", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/balances/validate", map[string]any{
				"employee_id": "E001", "pay_code": "VAC", "hours": "40", "balance": "20", "is_admin": tt.isAdmin,
			})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			resp := decodeBody[ValidateBalanceResponse](t, rec)
			require.NotNil(t, resp.Sufficiency)
			assert.False(t, resp.Sufficiency.IsValid)
			assert.Equal(t, tt.canOverride, resp.Sufficiency.CanOverride)
			assert.Equal(t, "20", resp.Sufficiency.Shortfall.String())
		})
	}

	rec := do(t, router, http.MethodPost, "/api/balances/validate", map[string]any{"employee_id": "E001", "pay_code": "VAC", "hours": "8"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no balance and no ledger")

	rec = do(t, router, http.MethodPost, "/api/balances/validate", map[string]any{"employee_id": "E001", "pay_code": "REG", "hours": "8"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decodeBody[ValidateBalanceResponse](t, rec).Sufficiency)
}

func TestValidateOvertime(t *testing.T) {
	router := newTestRouter(t, false, RouterOptions{})

	tests := []struct {
		name     string
		body     map[string]any
		wantText string
	}{
		{"overtime within thresholds", map[string]any{"pay_code": "OT15", "hours": "2", "day_hours": "6", "week_hours": "30"}, "Overtime code OT15 used"},
		{"regular over daily", map[string]any{"pay_code": "REG", "hours": "10", "day_hours": "10", "week_hours": "30"}, "consider an overtime code for 2h"},
		{"regular fine", map[string]any{"pay_code": "REG", "hours": "8", "day_hours": "8", "week_hours": "40"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/overtime/validate", tt.body)
			require.Equal(t, http.StatusOK, rec.Code)
			resp := decodeBody[WarningsResponse](t, rec)
			if tt.wantText == "" {
				assert.Empty(t, resp.Warnings)
				return
			}
			require.Len(t, resp.Warnings, 1)
			assert.Contains(t, resp.Warnings[0], tt.wantText)
		})
	}
}

func TestRates(t *testing.T) {
	router := newTestRouter(t, false, RouterOptions{})

	rec := do(t, router, http.MethodGet, "/api/rates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, RatesResponse{Years: []int{2024}, DefaultYear: 2024}, decodeBody[RatesResponse](t, rec))

	rec = do(t, router, http.MethodGet, "/api/rates/2024", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	table := decodeBody[domain.RateTable](t, rec)
	assert.Equal(t, "68500", table.CPP.YMPE.String())

	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/api/rates/1999", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/api/rates/latest", nil).Code)
}

func TestLedgerRoutes(t *testing.T) {
	router := newTestRouter(t, true, RouterOptions{})

	accrue := map[string]any{"employee_id": "E001", "balance_type": "vacation", "transaction_type": "accrual", "amount": "40", "reference_date": "2024-01-15"}
	rec := do(t, router, http.MethodPost, "/api/balances/transactions", accrue)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "40", decodeBody[balance.ApplyResult](t, rec).Balance.CurrentBalance.String())

	use := map[string]any{"employee_id": "E001", "balance_type": "vacation", "transaction_type": "usage", "amount": "-50"}
	rec = do(t, router, http.MethodPost, "/api/balances/transactions", use)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient vacation balance")

	use["admin_override"] = true
	rec = do(t, router, http.MethodPost, "/api/balances/transactions", use)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	applied := decodeBody[balance.ApplyResult](t, rec)
	assert.True(t, applied.Transaction.AdminOverride)
	assert.Equal(t, "-10", applied.Balance.CurrentBalance.String())

	bad := map[string]any{"employee_id": "E001", "balance_type": "vacation", "transaction_type": "accrual", "amount": "-1"}
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodPost, "/api/balances/transactions", bad).Code)

	rec = do(t, router, http.MethodGet, "/api/balances/E001/vacation", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[BalanceResponse](t, rec)
	assert.Equal(t, "-10", resp.Balance.CurrentBalance.String())
	require.Len(t, resp.Transactions, 2)
	assert.Equal(t, "40", resp.Transactions[0].BalanceAfter.String())

	rec = do(t, router, http.MethodGet, "/api/balances/E001/overtime", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/balances/validate", map[string]any{"employee_id": "E001", "pay_code": "VAC", "hours": "8"})
	require.Equal(t, http.StatusOK, rec.Code)
	check := decodeBody[ValidateBalanceResponse](t, rec)
	assert.False(t, check.Sufficiency.IsValid, "ledger balance is -10")
}

func TestLedgerRoutesNotMountedWithoutLedger(t *testing.T) {
	rec := do(t, newTestRouter(t, false, RouterOptions{}), http.MethodGet, "/api/balances/E001/vacation", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	router := newTestRouter(t, false, RouterOptions{RequestsPerMinute: 2})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/healthz", nil).Code)
	}
	rec := do(t, router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestCORS(t *testing.T) {
	router := newTestRouter(t, false, RouterOptions{AllowedOrigins: []string{"https://payroll.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/payroll/calculate", nil)
	req.Header.Set("Origin", "https://payroll.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "https://payroll.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.True(t, strings.Contains(rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost))
}
