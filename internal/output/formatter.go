// Package output renders payroll results for the console and for export.
package output

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rgehrsitz/cdnpayroll/internal/domain"
)

// Formatter renders a pay run
type Formatter interface {
	Name() string
	Format(results []domain.PayrollResult) ([]byte, error)
}

// FormatterFunc adapts a function to Formatter.
type FormatterFunc struct {
	ID string
	F  func(results []domain.PayrollResult) ([]byte, error)
}

func (f FormatterFunc) Name() string { return f.ID }

func (f FormatterFunc) Format(results []domain.PayrollResult) ([]byte, error) {
	return f.F(results)
}

var formatters = map[string]Formatter{
	"table": TableFormatter{},
	"json":  JSONFormatter{Indent: true},
	"csv":   CSVFormatter{},
}

var aliases = map[string]string{
	"console": "table",
	"text":    "table",
	"stub":    "table",
}

// GetFormatterByName returns the formatter registered under name or one of
// its aliases, or nil.
func GetFormatterByName(name string) Formatter {
	name = strings.ToLower(strings.TrimSpace(name))
	if target, ok := aliases[name]; ok {
		name = target
	}
	return formatters[name]
}

// AvailableFormats lists formatter names and aliases, sorted.
func AvailableFormats() []string {
	names := make([]string, 0, len(formatters)+len(aliases))
	for n := range formatters {
		names = append(names, n)
	}
	for a := range aliases {
		names = append(names, a)
	}
	sort.Strings(names)
	return names
}

// WriteFormatted renders results into a timestamped file in the working
// directory and returns its name.
func WriteFormatted(f Formatter, results []domain.PayrollResult, ext string) (string, error) {
	data, err := f.Format(results)
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("payroll_report_%s.%s", time.Now().Format("20060102_150405"), ext)
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return filename, nil
}
