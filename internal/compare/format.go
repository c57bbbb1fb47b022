package compare

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rgehrsitz/cdnpayroll/internal/output"
	"github.com/shopspring/decimal"
)

// Formatter renders a comparison
type Formatter interface {
	Format(set *ComparisonSet) ([]byte, error)
}

// GetFormatter returns the formatter for name (table, json or csv), or nil.
func GetFormatter(name string) Formatter {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "table", "console", "text":
		return TableFormatter{}
	case "json":
		return JSONFormatter{Pretty: true}
	case "csv":
		return CSVFormatter{}
	}
	return nil
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
)

// TableFormatter formats a comparison as a console table
type TableFormatter struct{}

// Format generates the comparison table followed by the recommendations
func (TableFormatter) Format(set *ComparisonSet) ([]byte, error) {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("PAYROLL SCENARIO COMPARISON"))
	sb.WriteString("\n")
	if set.EmployeeID != "" {
		sb.WriteString(fmt.Sprintf("Employee %s, ", set.EmployeeID))
	}
	sb.WriteString(fmt.Sprintf("paid %s\n\n", set.Frequency))

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Scenario", "Gross", "Deductions", "Income Tax", "Net Pay", "vs Base", "Annualized Net").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow || col == 0 {
				return cellStyle.Bold(row == table.HeaderRow)
			}
			return numberStyle
		})

	rows := append([]ComparisonResult{*set.BaseResult}, set.AlternativeResults...)
	for i, r := range rows {
		delta := ""
		if i > 0 {
			delta = signed(r.NetDiffFromBase) + " (" + r.NetPctFromBase.StringFixed(1) + "%)"
		}
		t.Row(
			r.ScenarioName,
			output.FormatCurrency(r.Gross),
			output.FormatCurrency(r.TotalDeductions),
			output.FormatCurrency(r.IncomeTax),
			output.FormatCurrency(r.NetPay),
			delta,
			output.FormatCurrency(r.AnnualizedNet),
		)
	}
	sb.WriteString(t.Render())
	sb.WriteString("\n")

	if len(set.Recommendations) > 0 {
		sb.WriteString("\nRecommendations:\n")
		for _, rec := range set.Recommendations {
			sb.WriteString("  * " + rec + "\n")
		}
	}
	return []byte(sb.String()), nil
}

func signed(d decimal.Decimal) string {
	if d.IsNegative() {
		return output.FormatCurrency(d)
	}
	return "+" + output.FormatCurrency(d)
}

// JSONFormatter formats a comparison as JSON
type JSONFormatter struct {
	Pretty bool
}

func (jf JSONFormatter) Format(set *ComparisonSet) ([]byte, error) {
	if jf.Pretty {
		return json.MarshalIndent(set, "", "  ")
	}
	return json.Marshal(set)
}

// CSVFormatter writes one row per scenario, base first
type CSVFormatter struct{}

func (CSVFormatter) Format(set *ComparisonSet) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write([]string{"Scenario", "Province", "TaxYear", "Gross", "Deductions", "IncomeTax", "NetPay", "NetDiff", "NetPct", "TaxDiff"}); err != nil {
		return nil, err
	}
	rows := append([]ComparisonResult{*set.BaseResult}, set.AlternativeResults...)
	for _, r := range rows {
		if err := w.Write([]string{
			r.ScenarioName,
			string(r.Province),
			fmt.Sprint(r.TaxYear),
			r.Gross.StringFixed(2),
			r.TotalDeductions.StringFixed(2),
			r.IncomeTax.StringFixed(2),
			r.NetPay.StringFixed(2),
			r.NetDiffFromBase.StringFixed(2),
			r.NetPctFromBase.StringFixed(2),
			r.TaxDiffFromBase.StringFixed(2),
		}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
