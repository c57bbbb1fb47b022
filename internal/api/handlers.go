package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rgehrsitz/cdnpayroll/internal/balance"
	"github.com/rgehrsitz/cdnpayroll/internal/calculation"
	"github.com/rgehrsitz/cdnpayroll/internal/compare"
	"github.com/rgehrsitz/cdnpayroll/internal/config"
	"github.com/rgehrsitz/cdnpayroll/internal/domain"
	"github.com/rgehrsitz/cdnpayroll/internal/paycode"
	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

// Dependencies are the services behind the handlers. Ledger is optional;
// without it the balance transaction routes are not mounted.
type Dependencies struct {
	Logger   *slog.Logger
	Engine   *calculation.PayrollEngine
	Rates    *config.RateTableRegistry
	Resolver *paycode.Resolver
	Overtime *balance.OvertimeValidator
	Ledger   *balance.Ledger
}

// Handler holds the HTTP handlers
type Handler struct {
	logger    *slog.Logger
	engine    *calculation.PayrollEngine
	rates     *config.RateTableRegistry
	resolver  *paycode.Resolver
	overtime  *balance.OvertimeValidator
	ledger    *balance.Ledger
	validator *validator.Validate
	now       func() time.Time
}

// NewHandler creates a handler. A nil logger discards output.
func NewHandler(deps Dependencies) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	overtime := deps.Overtime
	if overtime == nil {
		overtime = balance.NewOvertimeValidator(balance.DefaultOvertimeThresholds())
	}
	return &Handler{
		logger:    logger,
		engine:    deps.Engine,
		rates:     deps.Rates,
		resolver:  deps.Resolver,
		overtime:  overtime,
		ledger:    deps.Ledger,
		validator: newValidator(),
		now:       time.Now,
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("payfrequency", func(fl validator.FieldLevel) bool {
		_, err := domain.ParsePayFrequency(fl.Field().String())
		return err == nil
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Health reports liveness
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CalculatePayroll runs the engine for one employee.
// POST /api/payroll/calculate
func (h *Handler) CalculatePayroll(w http.ResponseWriter, r *http.Request) {
	var req PayrollInputDTO
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.engine.CalculatePayroll(req.toDomain())
	if err != nil {
		h.writeCalculationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CalculateBatch runs the engine for a pay run
// POST /api/payroll/batch
func (h *Handler) CalculateBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !h.decode(w, r, &req) {
		return
	}

	inputs := make([]domain.PayrollInput, len(req.Employees))
	for i, e := range req.Employees {
		inputs[i] = e.toDomain()
	}
	results, err := h.engine.CalculateBatch(inputs)
	if err != nil {
		h.writeCalculationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BatchResponse{Results: results})
}

// ComparePayroll prices one employee under each scenario against the input as given
// POST /api/payroll/compare
func (h *Handler) ComparePayroll(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if !h.decode(w, r, &req) {
		return
	}

	scenarios := make([]compare.Scenario, 0, len(req.Scenarios))
	for _, raw := range req.Scenarios {
		sc, err := compare.ParseScenario(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid scenario", err)
			return
		}
		scenarios = append(scenarios, sc)
	}

	set, err := compare.NewCompareEngine(h.engine).Compare(req.Input.toDomain(), scenarios)
	if err != nil {
		h.writeCalculationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

// ListPayCodes returns the resolved pay-code catalogue
// GET /api/paycodes?date=YYYY-MM-DD
func (h *Handler) ListPayCodes(w http.ResponseWriter, r *http.Request) {
	at := h.now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
			return
		}
		at = parsed
	}

	resolution, err := h.resolver.Resolve(r.Context(), at)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Failed to resolve pay codes", err)
		return
	}
	writeJSON(w, http.StatusOK, resolution)
}

// CalculateEarnings prices one timesheet entry against the resolved catalogue.
// POST /api/paycodes/earnings
func (h *Handler) CalculateEarnings(w http.ResponseWriter, r *http.Request) {
	var req EarningsRequest
	if !h.decode(w, r, &req) {
		return
	}

	at := h.now()
	if req.Date != "" {
		at, _ = time.Parse(time.DateOnly, req.Date)
	}
	resolution, ok := h.resolve(w, r, at)
	if !ok {
		return
	}

	pc, found := resolution.Lookup(req.PayCode)
	if !found {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Unknown or inactive pay code %q", req.PayCode), nil)
		return
	}
	var premiums []domain.PayCode
	for _, code := range req.StackedPremiums {
		premium, found := resolution.Lookup(code)
		if !found {
			writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Unknown or inactive pay code %q", code), nil)
			return
		}
		premiums = append(premiums, premium)
	}

	rateType := domain.RateHourly
	if req.RateType != "" {
		rateType = domain.RateBasis(req.RateType)
	}
	result := paycode.CalculateEarnings(paycode.EarningsInput{
		Hours:           req.Hours,
		Amount:          req.Amount,
		PayCode:         pc,
		Rate:            domain.EmployeeRate{RateType: rateType, BaseRate: req.BaseRate},
		StackedPremiums: premiums,
		Date:            at,
	})
	result.Warnings = append(result.Warnings, resolution.Warnings...)
	writeJSON(w, http.StatusOK, result)
}

// BalanceImpact reports the balance a pay code entry moves.
// POST /api/balances/impact
func (h *Handler) BalanceImpact(w http.ResponseWriter, r *http.Request) {
	var req ImpactRequest
	if !h.decode(w, r, &req) {
		return
	}
	pc, ok := h.lookup(w, r, req.PayCode)
	if !ok {
		return
	}

	impact, affects := balance.ImpactFor(pc, req.Hours)
	resp := ImpactResponse{AffectsBalance: affects}
	if affects {
		resp.Impact = &impact
	}
	writeJSON(w, http.StatusOK, resp)
}

// ValidateBalance checks whether an entry can be drawn from the employee's balance.
// POST /api/balances/validate
func (h *Handler) ValidateBalance(w http.ResponseWriter, r *http.Request) {
	var req ValidateBalanceRequest
	if !h.decode(w, r, &req) {
		return
	}
	pc, ok := h.lookup(w, r, req.PayCode)
	if !ok {
		return
	}

	impact, affects := balance.ImpactFor(pc, req.Hours)
	if !affects {
		writeJSON(w, http.StatusOK, ValidateBalanceResponse{})
		return
	}

	current := domain.EmployeeBalance{EmployeeID: req.EmployeeID, BalanceType: impact.BalanceType}
	switch {
	case req.Balance != nil:
		current.CurrentBalance = *req.Balance
	case h.ledger != nil:
		stored, err := h.ledger.Balance(r.Context(), req.EmployeeID, impact.BalanceType)
		if err != nil {
			h.logger.Error("read balance", slog.String("employee_id", req.EmployeeID), slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, "Failed to read balance", err)
			return
		}
		current = stored
	default:
		writeError(w, http.StatusBadRequest, "balance is required when no ledger is configured", nil)
		return
	}

	check := balance.ValidateImpact(current, impact, req.IsAdmin)
	writeJSON(w, http.StatusOK, ValidateBalanceResponse{Impact: &impact, Sufficiency: &check})
}

// ValidateOvertime returns advisory overtime warnings for an entry
// POST /api/overtime/validate
func (h *Handler) ValidateOvertime(w http.ResponseWriter, r *http.Request) {
	var req OvertimeRequest
	if !h.decode(w, r, &req) {
		return
	}
	pc, ok := h.lookup(w, r, req.PayCode)
	if !ok {
		return
	}

	warnings := h.overtime.Validate(balance.OvertimeEntry{
		PayCode:   pc,
		Hours:     req.Hours,
		DayHours:  req.DayHours,
		WeekHours: req.WeekHours,
	})
	writeJSON(w, http.StatusOK, WarningsResponse{Warnings: warnings})
}

// ListRateYears returns the registered tax years
// GET /api/rates
func (h *Handler) ListRateYears(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RatesResponse{Years: h.rates.Years(), DefaultYear: h.rates.DefaultYear()})
}

// GetRateTable returns the rate table for a year
// GET /api/rates/{year}
func (h *Handler) GetRateTable(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid tax year", err)
		return
	}
	table, err := h.rates.ForYear(year)
	if err != nil {
		writeError(w, http.StatusNotFound, "Rate table not found", err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

// RecordTransaction appends a ledger entry
// POST /api/balances/transactions
func (h *Handler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.ledger.Apply(r.Context(), req.toEntry(h.now()), balance.ApplyOptions{AdminOverride: req.AdminOverride})
	if err != nil {
		var insufficient *domain.InsufficientBalanceError
		switch {
		case errors.As(err, &insufficient):
			writeError(w, http.StatusConflict, "Insufficient balance", err)
		case errors.Is(err, domain.ErrInvalidTransaction):
			writeError(w, http.StatusBadRequest, "Invalid transaction", err)
		default:
			h.logger.Error("record transaction", slog.String("employee_id", req.EmployeeID), slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, "Failed to record transaction", err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// GetBalance returns a balance and its transactions
// GET /api/balances/{employeeID}/{balanceType}
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")
	bt := domain.BalanceType(chi.URLParam(r, "balanceType"))
	if !bt.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown balance type %q", bt), nil)
		return
	}

	bal, err := h.ledger.Balance(r.Context(), employeeID, bt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read balance", err)
		return
	}
	txs, err := h.ledger.History(r.Context(), employeeID, bt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read transactions", err)
		return
	}
	if txs == nil {
		txs = []domain.BalanceTransaction{}
	}
	writeJSON(w, http.StatusOK, BalanceResponse{Balance: bal, Transactions: txs})
}

// decode reads and validates a JSON body, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Namespace()] = fieldMessage(fe)
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Fields: fields})
		return false
	}
	return true
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gte", "gt", "lte", "len", "max":
		return fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param())
	case "datetime":
		return "must be a date (YYYY-MM-DD)"
	case "payfrequency":
		return "must be weekly, biweekly, semimonthly or monthly"
	}
	return fe.Error()
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request, at time.Time) (paycode.Resolution, bool) {
	resolution, err := h.resolver.Resolve(r.Context(), at)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Failed to resolve pay codes", err)
		return paycode.Resolution{}, false
	}
	return resolution, true
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request, code string) (domain.PayCode, bool) {
	resolution, ok := h.resolve(w, r, h.now())
	if !ok {
		return domain.PayCode{}, false
	}
	pc, found := resolution.Lookup(code)
	if !found {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Unknown or inactive pay code %q", code), nil)
		return domain.PayCode{}, false
	}
	return pc, true
}

func (h *Handler) writeCalculationError(w http.ResponseWriter, r *http.Request, err error) {
	if domain.IsConfigurationError(err) {
		writeError(w, http.StatusUnprocessableEntity, "Unsupported configuration", err)
		return
	}
	h.logger.Error("calculate payroll",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Any("error", err))
	writeError(w, http.StatusBadRequest, "Calculation failed", err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
