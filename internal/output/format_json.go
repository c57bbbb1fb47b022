package output

import (
	"encoding/json"

	"github.com/rgehrsitz/cdnpayroll/internal/domain"
)

// JSONFormatter formats results as JSON
type JSONFormatter struct {
	Indent bool
}

func (JSONFormatter) Name() string { return "json" }

// Format generates a JSON document with the results and run totals
func (jf JSONFormatter) Format(results []domain.PayrollResult) ([]byte, error) {
	if results == nil {
		results = []domain.PayrollResult{}
	}
	doc := struct {
		Results []domain.PayrollResult `json:"results"`
		Totals  RunTotals              `json:"totals"`
	}{results, Totals(results)}

	if jf.Indent {
		return json.MarshalIndent(doc, "", "  ")
	}
	return json.Marshal(doc)
}
