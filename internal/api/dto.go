package api

import (
	"time"

	"github.com/rgehrsitz/cdnpayroll/internal/balance"
	"github.com/rgehrsitz/cdnpayroll/internal/domain"
	"github.com/shopspring/decimal"
)

// Request bodies are validated with go-playground/validator. Decimal fields
// are compared as numbers (see newValidator).

// PayrollInputDTO is one employee's pay period in a calculate request.
type PayrollInputDTO struct {
	EmployeeID   string          `json:"employee_id" validate:"max=64"`
	GrossPay     decimal.Decimal `json:"gross_pay" validate:"gte=0"`
	Province     string          `json:"province" validate:"required,len=2"`
	PayFrequency string          `json:"pay_frequency" validate:"required,payfrequency"`
	TaxYear      int             `json:"tax_year" validate:"omitempty,gte=2000,lte=2100"`
	YTD          YTDDTO          `json:"ytd"`
	CPPExempt    bool            `json:"cpp_exempt"`
	EIExempt     bool            `json:"ei_exempt"`
}

// YTDDTO holds year-to-date amounts already withheld
type YTDDTO struct {
	CPP     decimal.Decimal `json:"cpp" validate:"gte=0"`
	EI      decimal.Decimal `json:"ei" validate:"gte=0"`
	FedTax  decimal.Decimal `json:"fed_tax" validate:"gte=0"`
	ProvTax decimal.Decimal `json:"prov_tax" validate:"gte=0"`
}

// canonicalFrequency maps "Weekly", "Bi-Weekly" and the like onto the
// canonical names. Unparseable values pass through for the engine to flag.
func canonicalFrequency(raw string) domain.PayFrequency {
	if f, err := domain.ParsePayFrequency(raw); err == nil {
		return f
	}
	return domain.PayFrequency(raw)
}

func (d PayrollInputDTO) toDomain() domain.PayrollInput {
	return domain.PayrollInput{
		EmployeeID:   d.EmployeeID,
		GrossPay:     d.GrossPay,
		Province:     domain.Province(d.Province),
		PayFrequency: canonicalFrequency(d.PayFrequency),
		TaxYear:      d.TaxYear,
		YTD: domain.YTDAmounts{
			CPP:     d.YTD.CPP,
			EI:      d.YTD.EI,
			FedTax:  d.YTD.FedTax,
			ProvTax: d.YTD.ProvTax,
		},
		CPPExempt: d.CPPExempt,
		EIExempt:  d.EIExempt,
	}
}

// BatchRequest calculates a whole pay run
type BatchRequest struct {
	Employees []PayrollInputDTO `json:"employees" validate:"required,min=1,dive"`
}

// BatchResponse is the results of a pay run, in request order
type BatchResponse struct {
	Results []domain.PayrollResult `json:"results"`
}

// CompareRequest runs one input under alternative provinces or tax years.
// Scenarios use the "BC", "2025" or "BC/2025" form.
type CompareRequest struct {
	Input     PayrollInputDTO `json:"input" validate:"required"`
	Scenarios []string        `json:"scenarios" validate:"required,min=1,max=12,dive,required"`
}

// EarningsRequest prices one timesheet entry.
type EarningsRequest struct {
	PayCode         string           `json:"pay_code" validate:"required"`
	Hours           decimal.Decimal  `json:"hours" validate:"gte=0"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	BaseRate        decimal.Decimal  `json:"base_rate" validate:"gte=0"`
	RateType        string           `json:"rate_type" validate:"omitempty,oneof=hourly salary daily"`
	StackedPremiums []string         `json:"stacked_premiums" validate:"dive,required"`
	Date            string           `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// ImpactRequest asks how a pay code affects balances
type ImpactRequest struct {
	PayCode string          `json:"pay_code" validate:"required"`
	Hours   decimal.Decimal `json:"hours" validate:"gt=0"`
}

// ImpactResponse reports the balance a pay code moves, if any.
type ImpactResponse struct {
	AffectsBalance bool            `json:"affects_balance"`
	Impact         *balance.Impact `json:"impact,omitempty"`
}

// ValidateBalanceRequest checks a pay code entry against an employee balance.
// When Balance is omitted the current balance is read from the ledger.
type ValidateBalanceRequest struct {
	EmployeeID string           `json:"employee_id" validate:"required"`
	PayCode    string           `json:"pay_code" validate:"required"`
	Hours      decimal.Decimal  `json:"hours" validate:"gt=0"`
	Balance    *decimal.Decimal `json:"balance,omitempty"`
	IsAdmin    bool             `json:"is_admin"`
}

// ValidateBalanceResponse is the sufficiency check for the entry's impact.
type ValidateBalanceResponse struct {
	Impact      *balance.Impact            `json:"impact,omitempty"`
	Sufficiency *balance.SufficiencyResult `json:"sufficiency,omitempty"`
}

// OvertimeRequest is one entry with the day and week totals that include it
type OvertimeRequest struct {
	PayCode   string          `json:"pay_code" validate:"required"`
	Hours     decimal.Decimal `json:"hours" validate:"gte=0"`
	DayHours  decimal.Decimal `json:"day_hours" validate:"gte=0"`
	WeekHours decimal.Decimal `json:"week_hours" validate:"gte=0"`
}

// WarningsResponse carries advisory warnings
type WarningsResponse struct {
	Warnings []string `json:"warnings"`
}

// TransactionRequest records a ledger entry
type TransactionRequest struct {
	EmployeeID      string          `json:"employee_id" validate:"required"`
	BalanceType     string          `json:"balance_type" validate:"required,oneof=vacation sick personal bereavement float banked_time"`
	TransactionType string          `json:"transaction_type" validate:"required,oneof=accrual usage adjustment carryover"`
	Amount          decimal.Decimal `json:"amount"`
	ReferenceDate   string          `json:"reference_date" validate:"omitempty,datetime=2006-01-02"`
	ReferenceType   string          `json:"reference_type"`
	ReferenceID     string          `json:"reference_id"`
	AdminOverride   bool            `json:"admin_override"`
}

func (t TransactionRequest) toEntry(today time.Time) balance.Entry {
	date := today
	if t.ReferenceDate != "" {
		// format already checked by the validator
		date, _ = time.Parse(time.DateOnly, t.ReferenceDate)
	}
	return balance.Entry{
		EmployeeID:      t.EmployeeID,
		BalanceType:     domain.BalanceType(t.BalanceType),
		TransactionType: domain.TransactionType(t.TransactionType),
		Amount:          t.Amount,
		ReferenceDate:   date,
		ReferenceType:   t.ReferenceType,
		ReferenceID:     t.ReferenceID,
	}
}

// BalanceResponse is a balance with its history
type BalanceResponse struct {
	Balance      domain.EmployeeBalance      `json:"balance"`
	Transactions []domain.BalanceTransaction `json:"transactions"`
}

// RatesResponse lists the registered tax years
type RatesResponse struct {
	Years       []int `json:"years"`
	DefaultYear int   `json:"default_year"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}
