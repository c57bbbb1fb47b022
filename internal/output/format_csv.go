package output

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/rgehrsitz/cdnpayroll/internal/domain"
)

// CSVFormatter formats results as CSV, one row per employee
type CSVFormatter struct{}

func (CSVFormatter) Name() string { return "csv" }

// Format generates CSV output for a pay run
func (cf CSVFormatter) Format(results []domain.PayrollResult) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)

	header := []string{
		"EmployeeID",
		"Province",
		"Frequency",
		"TaxYear",
		"Gross",
		"CPP",
		"EI",
		"FedTax",
		"ProvTax",
		"NetPay",
		"EmployerCPP",
		"EmployerEI",
		"Warnings",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, r := range results {
		if err := w.Write(cf.formatRow(r)); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (cf CSVFormatter) formatRow(r domain.PayrollResult) []string {
	return []string{
		r.EmployeeID,
		string(r.Summary.Province),
		string(r.Summary.Frequency),
		strconv.Itoa(r.Summary.TaxYear),
		r.Summary.Gross.StringFixed(2),
		r.Deductions.CPP.StringFixed(2),
		r.Deductions.EI.StringFixed(2),
		r.Deductions.FedTax.StringFixed(2),
		r.Deductions.ProvTax.StringFixed(2),
		r.NetPay.StringFixed(2),
		r.EmployerCosts.CPP.StringFixed(2),
		r.EmployerCosts.EI.StringFixed(2),
		strings.Join(r.Warnings, "; "),
	}
}
