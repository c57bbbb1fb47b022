package main

import (
	"fmt"

	"github.com/rgehrsitz/cdnpayroll/internal/calculation"
	"github.com/rgehrsitz/cdnpayroll/internal/compare"
	"github.com/rgehrsitz/cdnpayroll/internal/config"
	"github.com/rgehrsitz/cdnpayroll/internal/domain"
	"github.com/spf13/cobra"
)

var compareCmd = &cobra.Command{
	Use:   "compare [input-file]",
	Short: "Compare an employee's deductions across provinces or tax years",
	Long: `Recalculate one employee from a payroll input file under alternative
provinces or tax years and show the change in deductions and net pay.

Scenarios are a province code, a tax year, or both ("BC", "2025", "BC/2025").

Examples:
  cdnpayroll compare payrun.yaml --scenarios BC
  cdnpayroll compare payrun.yaml --employee E002 --scenarios BC,2025,BC/2025 --format csv
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFormat, _ := cmd.Flags().GetString("format")
		f := compare.GetFormatter(outputFormat)
		if f == nil {
			return fmt.Errorf("unknown format %q (available: table, json, csv)", outputFormat)
		}

		raw, _ := cmd.Flags().GetStringSlice("scenarios")
		if len(raw) == 0 {
			return fmt.Errorf("at least one scenario is required")
		}
		scenarios := make([]compare.Scenario, 0, len(raw))
		for _, s := range raw {
			sc, err := compare.ParseScenario(s)
			if err != nil {
				return err
			}
			scenarios = append(scenarios, sc)
		}

		registry, err := loadRegistry(cmd)
		if err != nil {
			return err
		}
		batch, err := config.NewInputParser().LoadPayrollBatch(args[0])
		if err != nil {
			return err
		}
		employeeID, _ := cmd.Flags().GetString("employee")
		base, err := pickEmployee(batch.Inputs, employeeID)
		if err != nil {
			return err
		}

		engine := calculation.NewPayrollEngine(registry)
		engine.SetLogger(cliLogger(cmd))
		set, err := compare.NewCompareEngine(engine).Compare(base, scenarios)
		if err != nil {
			return err
		}

		data, err := f.Format(set)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

// pickEmployee returns the named input, or the first one when id is empty.
func pickEmployee(inputs []domain.PayrollInput, id string) (domain.PayrollInput, error) {
	if id == "" {
		return inputs[0], nil
	}
	for _, in := range inputs {
		if in.EmployeeID == id {
			return in, nil
		}
	}
	return domain.PayrollInput{}, fmt.Errorf("employee %s not found in input", id)
}

func init() {
	compareCmd.Flags().StringSlice("scenarios", nil, "Scenarios to compare (BC, 2025, BC/2025)")
	compareCmd.Flags().String("employee", "", "Employee ID from the input file (default: first)")
	compareCmd.Flags().StringP("format", "f", "table", "Output format (table, json, csv)")
	compareCmd.Flags().Bool("debug", false, "Enable debug output")
	compareCmd.Flags().String("rates-dir", "", "Directory of rate-table files (default: $PAYROLL_RATE_TABLE_DIR)")
	compareCmd.Flags().Int("tax-year", 0, "Default tax year for inputs that do not name one")
}
