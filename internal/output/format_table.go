package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rgehrsitz/cdnpayroll/internal/domain"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	numberStyle  = cellStyle.Align(lipgloss.Right)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// TableFormatter formats a pay run as a console table
type TableFormatter struct{}

func (TableFormatter) Name() string { return "table" }

// Format generates the pay run table, totals and any warnings
func (tf TableFormatter) Format(results []domain.PayrollResult) ([]byte, error) {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("PAYROLL SUMMARY"))
	sb.WriteString("\n")
	if len(results) == 0 {
		sb.WriteString("No employees in this pay run.\n")
		return []byte(sb.String()), nil
	}
	sb.WriteString(fmt.Sprintf("Tax year %d, %d employee(s)\n\n", results[0].Summary.TaxYear, len(results)))

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Employee", "Prov", "Gross", "CPP", "EI", "Federal", "Provincial", "Net Pay", "Employer").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col < 2:
				return cellStyle
			default:
				return numberStyle
			}
		})

	for _, r := range results {
		t.Row(
			r.EmployeeID,
			string(r.Summary.Province),
			FormatCurrency(r.Summary.Gross),
			FormatCurrency(r.Deductions.CPP),
			FormatCurrency(r.Deductions.EI),
			FormatCurrency(r.Deductions.FedTax),
			FormatCurrency(r.Deductions.ProvTax),
			FormatCurrency(r.NetPay),
			FormatCurrency(r.EmployerCosts.Total()),
		)
	}

	totals := Totals(results)
	t.Row(
		"TOTAL",
		"",
		FormatCurrency(totals.Gross),
		FormatCurrency(totals.CPP),
		FormatCurrency(totals.EI),
		FormatCurrency(totals.FedTax),
		FormatCurrency(totals.ProvTax),
		FormatCurrency(totals.NetPay),
		FormatCurrency(totals.EmployerCost),
	)

	sb.WriteString(t.Render())
	sb.WriteString("\n")

	var warnings []string
	for _, r := range results {
		for _, w := range r.Warnings {
			warnings = append(warnings, fmt.Sprintf("%s: %s", r.EmployeeID, w))
		}
	}
	if len(warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, w := range warnings {
			sb.WriteString(warningStyle.Render("  ! " + w))
			sb.WriteString("\n")
		}
	}

	return []byte(sb.String()), nil
}
