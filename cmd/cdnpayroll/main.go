package main

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/rgehrsitz/cdnpayroll/internal/calculation"
	"github.com/rgehrsitz/cdnpayroll/internal/config"
	"github.com/rgehrsitz/cdnpayroll/internal/logging"
	"github.com/rgehrsitz/cdnpayroll/internal/output"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cdnpayroll %s (commit %s, built %s)\n", version, commit, date)
			if info := buildInfo(); info != "" {
				fmt.Fprintln(cmd.OutOrStdout(), info)
			}
		},
	}
}

func buildInfo() string {
	if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
		return bi.String()
	}
	return ""
}

// cliLogger returns a debug-level stderr logger for the engines, or nil
// when debug output is off.
func cliLogger(cmd *cobra.Command) logging.Logger {
	debugMode, _ := cmd.Flags().GetBool("debug")
	if !debugMode {
		return nil
	}
	return logging.SlogLogger{L: logging.NewSlog(cmd.ErrOrStderr(), "text", true)}
}

// loadRegistry builds the rate-table registry from the environment, with
// --rates-dir and --tax-year taking precedence.
func loadRegistry(cmd *cobra.Command) (*config.RateTableRegistry, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if dir, _ := cmd.Flags().GetString("rates-dir"); dir != "" {
		settings.RateTableDir = dir
	}
	if year, _ := cmd.Flags().GetInt("tax-year"); year != 0 {
		settings.TaxYear = year
	}
	return settings.BuildRegistry()
}

var rootCmd = &cobra.Command{
	Use:           "cdnpayroll",
	Short:         "Canadian payroll deduction calculator",
	Long:          "Calculates CPP, EI, federal and provincial tax withholding, prices timesheet pay codes, and keeps leave balances",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var calculateCmd = &cobra.Command{
	Use:   "calculate [input-file]",
	Short: "Calculate deductions and net pay for a pay run",
	Long: `Calculate statutory deductions for every employee in a payroll input file.

Examples:
  cdnpayroll calculate payrun.yaml
  cdnpayroll calculate payrun.yaml --format csv --save
  cdnpayroll calculate payrun.yaml --rates-dir ./rates --tax-year 2025
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFormat, _ := cmd.Flags().GetString("format")
		f := output.GetFormatterByName(outputFormat)
		if f == nil {
			return fmt.Errorf("unknown format %q (available: %s)", outputFormat, strings.Join(output.AvailableFormats(), ", "))
		}

		registry, err := loadRegistry(cmd)
		if err != nil {
			return err
		}
		batch, err := config.NewInputParser().LoadPayrollBatch(args[0])
		if err != nil {
			return err
		}

		engine := calculation.NewPayrollEngine(registry)
		engine.SetLogger(cliLogger(cmd))
		results, err := engine.CalculateBatch(batch.Inputs)
		if err != nil {
			return err
		}

		if save, _ := cmd.Flags().GetBool("save"); save {
			ext := f.Name()
			if ext == "table" {
				ext = "txt"
			}
			filename, err := output.WriteFormatted(f, results, ext)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", filename)
			return nil
		}

		data, err := f.Format(results)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Inspect and validate rate tables",
}

var ratesValidateCmd = &cobra.Command{
	Use:   "validate [rate-file...]",
	Short: "Validate one or more rate-table files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parser := config.NewInputParser()
		for _, file := range args {
			table, err := parser.LoadRateTable(file)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			provinces := make([]string, 0, len(table.Provincial))
			for _, p := range table.SupportedProvinces() {
				provinces = append(provinces, string(p))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rate table %s is valid (tax year %d, provinces %s)\n",
				file, table.TaxYear, strings.Join(provinces, ", "))
		}
		return nil
	},
}

var ratesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tax years available",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := loadRegistry(cmd)
		if err != nil {
			return err
		}
		for _, year := range registry.Years() {
			marker := ""
			if year == registry.DefaultYear() {
				marker = " (default)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d%s\n", year, marker)
		}
		return nil
	},
}

func init() {
	calculateCmd.Flags().StringP("format", "f", "table", "Output format (table, json, csv)")
	calculateCmd.Flags().Bool("save", false, "Write the report to a timestamped file instead of stdout")
	calculateCmd.Flags().Bool("debug", false, "Enable debug output for detailed calculations")
	calculateCmd.Flags().String("rates-dir", "", "Directory of rate-table files (default: $PAYROLL_RATE_TABLE_DIR)")
	calculateCmd.Flags().Int("tax-year", 0, "Default tax year for inputs that do not name one")

	ratesListCmd.Flags().String("rates-dir", "", "Directory of rate-table files (default: $PAYROLL_RATE_TABLE_DIR)")
	ratesListCmd.Flags().Int("tax-year", 0, "Default tax year")
	ratesCmd.AddCommand(ratesValidateCmd)
	ratesCmd.AddCommand(ratesListCmd)

	rootCmd.AddCommand(calculateCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(ratesCmd)
	rootCmd.AddCommand(earningsCmd)
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
