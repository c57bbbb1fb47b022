package main

import (
	"fmt"
	"time"

	"github.com/rgehrsitz/cdnpayroll/internal/balance"
	"github.com/rgehrsitz/cdnpayroll/internal/balance/store"
	"github.com/rgehrsitz/cdnpayroll/internal/config"
	"github.com/rgehrsitz/cdnpayroll/internal/domain"
	"github.com/rgehrsitz/cdnpayroll/internal/paycode"
	"github.com/spf13/cobra"
)

// openLedger opens the SQLite ledger named by --ledger or PAYROLL_LEDGER_DSN.
func openLedger(cmd *cobra.Command) (*balance.Ledger, func() error, error) {
	dsn, _ := cmd.Flags().GetString("ledger")
	if dsn == "" {
		settings, err := config.LoadSettings()
		if err != nil {
			return nil, nil, fmt.Errorf("load settings: %w", err)
		}
		dsn = settings.LedgerDSN
	}
	s, err := store.NewSQLite(dsn)
	if err != nil {
		return nil, nil, err
	}
	ledger := balance.NewLedger(s)
	ledger.SetLogger(cliLogger(cmd))
	return ledger, s.Close, nil
}

func printBalance(cmd *cobra.Command, b domain.EmployeeBalance) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %sh (accrued %sh, used %sh)\n",
		b.EmployeeID, b.BalanceType, b.CurrentBalance.StringFixed(2), b.AccruedBalance.StringFixed(2), b.UsedBalance.StringFixed(2))
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Check pay-code balance impacts and maintain the leave ledger",
}

var balanceImpactCmd = &cobra.Command{
	Use:   "impact",
	Short: "Show which balance a pay code entry moves",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		code, _ := cmd.Flags().GetString("code")
		hours, err := decimalFlag(cmd, "hours")
		if err != nil {
			return err
		}

		catalog, err := catalogFor(cmd)
		if err != nil {
			return err
		}
		var pc domain.PayCode
		found := false
		for _, candidate := range catalog {
			if candidate.Code == code {
				pc, found = candidate, true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown pay code %q", code)
		}

		impact, ok := balance.ImpactFor(pc, hours)
		if !ok {
			fmt.Fprintf(cmd.OutOrStdout(), "%s does not affect any balance\n", pc.Code)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%sh)\n", impact.Description, impact.Amount.String())

		employee, _ := cmd.Flags().GetString("employee")
		if employee == "" {
			return nil
		}
		ledger, closeLedger, err := openLedger(cmd)
		if err != nil {
			return err
		}
		defer closeLedger()

		current, err := ledger.Balance(cmd.Context(), employee, impact.BalanceType)
		if err != nil {
			return err
		}
		isAdmin, _ := cmd.Flags().GetBool("admin")
		check := balance.ValidateImpact(current, impact, isAdmin)
		printBalance(cmd, current)
		if check.IsValid {
			fmt.Fprintln(cmd.OutOrStdout(), "Balance is sufficient")
		}
		for _, w := range check.Warnings {
			fmt.Fprintf(cmd.OutOrStdout(), "  ! %s\n", w)
		}
		return nil
	},
}

var balanceApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Record a balance transaction",
	Long: `Record an accrual, usage, adjustment or carryover against an employee balance.

Usage amounts are negative. A usage that would take the balance below zero
is rejected unless --admin-override is given.

Examples:
  cdnpayroll balance apply --employee E001 --type vacation --tx accrual --amount 6.67
  cdnpayroll balance apply --employee E001 --type sick --tx usage --amount -7.5 --ref TS-1042
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		employee, _ := cmd.Flags().GetString("employee")
		bt, _ := cmd.Flags().GetString("type")
		tx, _ := cmd.Flags().GetString("tx")
		ref, _ := cmd.Flags().GetString("ref")
		override, _ := cmd.Flags().GetBool("admin-override")
		amount, err := decimalFlag(cmd, "amount")
		if err != nil {
			return err
		}

		ledger, closeLedger, err := openLedger(cmd)
		if err != nil {
			return err
		}
		defer closeLedger()

		result, err := ledger.Apply(cmd.Context(), balance.Entry{
			EmployeeID:      employee,
			BalanceType:     domain.BalanceType(bt),
			TransactionType: domain.TransactionType(tx),
			Amount:          amount,
			ReferenceDate:   time.Now(),
			ReferenceType:   "manual",
			ReferenceID:     ref,
		}, balance.ApplyOptions{AdminOverride: override})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s %s (%s → %s)\n", result.Transaction.TransactionType,
			result.Transaction.ID, result.Transaction.BalanceBefore.StringFixed(2), result.Transaction.BalanceAfter.StringFixed(2))
		printBalance(cmd, result.Balance)
		for _, w := range result.Warnings {
			fmt.Fprintf(cmd.OutOrStdout(), "  ! %s\n", w)
		}
		return nil
	},
}

var balanceShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a balance and its transaction history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		employee, _ := cmd.Flags().GetString("employee")
		rawType, _ := cmd.Flags().GetString("type")
		bt := domain.BalanceType(rawType)
		if !bt.Valid() {
			return fmt.Errorf("unknown balance type %q", bt)
		}

		ledger, closeLedger, err := openLedger(cmd)
		if err != nil {
			return err
		}
		defer closeLedger()

		b, err := ledger.Balance(cmd.Context(), employee, bt)
		if err != nil {
			return err
		}
		printBalance(cmd, b)

		txs, err := ledger.History(cmd.Context(), employee, bt)
		if err != nil {
			return err
		}
		for _, tx := range txs {
			marker := ""
			if tx.AdminOverride {
				marker = " [override]"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  %s  %-10s %8s  %8s → %8s  %s%s\n",
				tx.ReferenceDate.Format(time.DateOnly), tx.TransactionType, tx.Amount.StringFixed(2),
				tx.BalanceBefore.StringFixed(2), tx.BalanceAfter.StringFixed(2), tx.ReferenceID, marker)
		}

		if verify, _ := cmd.Flags().GetBool("reconcile"); verify {
			if err := ledger.Reconcile(cmd.Context(), employee, bt); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Ledger reconciles")
		}
		return nil
	},
}

// catalogFor returns the catalogue from --catalog, or the built-in defaults.
func catalogFor(cmd *cobra.Command) ([]domain.PayCode, error) {
	if file, _ := cmd.Flags().GetString("catalog"); file != "" {
		return paycode.LoadCatalog(file)
	}
	return paycode.DefaultPayCodes(), nil
}

func init() {
	balanceImpactCmd.Flags().String("code", "", "Pay code (required)")
	balanceImpactCmd.Flags().String("hours", "", "Hours on the entry")
	balanceImpactCmd.Flags().String("employee", "", "Check sufficiency against this employee's ledger balance")
	balanceImpactCmd.Flags().Bool("admin", false, "Report whether an admin override would be accepted")
	balanceImpactCmd.Flags().String("catalog", "", "Pay-code catalogue YAML (default: built-in)")
	_ = balanceImpactCmd.MarkFlagRequired("code")

	balanceApplyCmd.Flags().String("employee", "", "Employee ID (required)")
	balanceApplyCmd.Flags().String("type", "", "Balance type: vacation, sick, personal, bereavement, float, banked_time")
	balanceApplyCmd.Flags().String("tx", "", "Transaction type: accrual, usage, adjustment, carryover")
	balanceApplyCmd.Flags().String("amount", "", "Hours; negative for usage")
	balanceApplyCmd.Flags().String("ref", "", "Reference ID")
	balanceApplyCmd.Flags().Bool("admin-override", false, "Allow the balance to go negative")
	_ = balanceApplyCmd.MarkFlagRequired("employee")
	_ = balanceApplyCmd.MarkFlagRequired("type")
	_ = balanceApplyCmd.MarkFlagRequired("tx")
	_ = balanceApplyCmd.MarkFlagRequired("amount")

	balanceShowCmd.Flags().String("employee", "", "Employee ID (required)")
	balanceShowCmd.Flags().String("type", "vacation", "Balance type")
	balanceShowCmd.Flags().Bool("reconcile", false, "Verify the balance against its history")
	_ = balanceShowCmd.MarkFlagRequired("employee")

	for _, c := range []*cobra.Command{balanceImpactCmd, balanceApplyCmd, balanceShowCmd} {
		c.Flags().String("ledger", "", "Ledger database DSN (default: $PAYROLL_LEDGER_DSN)")
		c.Flags().Bool("debug", false, "Enable debug output")
		balanceCmd.AddCommand(c)
	}
}
