package output

import (
	"github.com/rgehrsitz/cdnpayroll/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// RunTotals sums a pay run
type RunTotals struct {
	Employees    int             `json:"employees"`
	Gross        decimal.Decimal `json:"gross"`
	CPP          decimal.Decimal `json:"cpp"`
	EI           decimal.Decimal `json:"ei"`
	FedTax       decimal.Decimal `json:"fed_tax"`
	ProvTax      decimal.Decimal `json:"prov_tax"`
	NetPay       decimal.Decimal `json:"net_pay"`
	EmployerCost decimal.Decimal `json:"employer_cost"`
}

// Totals sums the results of a pay run
func Totals(results []domain.PayrollResult) RunTotals {
	t := RunTotals{
		Employees:    len(results),
		Gross:        decimal.Zero,
		CPP:          decimal.Zero,
		EI:           decimal.Zero,
		FedTax:       decimal.Zero,
		ProvTax:      decimal.Zero,
		NetPay:       decimal.Zero,
		EmployerCost: decimal.Zero,
	}
	for _, r := range results {
		t.Gross = t.Gross.Add(r.Summary.Gross)
		t.CPP = t.CPP.Add(r.Deductions.CPP)
		t.EI = t.EI.Add(r.Deductions.EI)
		t.FedTax = t.FedTax.Add(r.Deductions.FedTax)
		t.ProvTax = t.ProvTax.Add(r.Deductions.ProvTax)
		t.NetPay = t.NetPay.Add(r.NetPay)
		t.EmployerCost = t.EmployerCost.Add(r.EmployerCosts.Total())
	}
	return t
}

var printer = message.NewPrinter(language.MustParse("en-CA"))

// FormatCurrency renders an amount as Canadian dollars with thousands separators.
func FormatCurrency(amount decimal.Decimal) string {
	v := amount.Round(2)
	if v.IsNegative() {
		return "-$" + printer.Sprint(number.Decimal(v.Abs().InexactFloat64(), number.Scale(2)))
	}
	return "$" + printer.Sprint(number.Decimal(v.InexactFloat64(), number.Scale(2)))
}
