package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rgehrsitz/cdnpayroll/internal/config"
	"github.com/rgehrsitz/cdnpayroll/internal/domain"
	"github.com/rgehrsitz/cdnpayroll/internal/logging"
	"github.com/rgehrsitz/cdnpayroll/internal/paycode"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// newResolver wires the pay-code tiers from settings: the remote catalogue
// when PAYROLL_PAYCODE_URL is set, the Redis cache when PAYROLL_REDIS_ADDR is
// set, and the built-in defaults or PAYROLL_PAYCODE_FILE as the fallback.
// The returned close func releases the Redis client.
func newResolver(ctx context.Context, settings *config.Settings, logger logging.Logger) (*paycode.Resolver, func(), error) {
	logger = logging.OrNop(logger)
	source := paycode.NewTieredSource(nil, nil)
	closer := func() {}

	if settings.PayCodeFile != "" {
		codes, err := paycode.LoadCatalog(settings.PayCodeFile)
		if err != nil {
			return nil, closer, err
		}
		source.Fallback = codes
	}
	if settings.PayCodeURL != "" {
		source.Fetcher = paycode.NewHTTPFetcher(settings.PayCodeURL, settings.PayCodeFetchTime)
	}
	if settings.RedisAddr != "" {
		client, err := paycode.NewRedisClient(ctx, settings.RedisAddr)
		if err != nil {
			logger.Warnf("pay code cache disabled: %v", err)
		} else {
			source.Cache = paycode.NewRedisCache(client, settings.PayCodeCacheTTL)
			closer = func() { closeRedis(client, logger) }
		}
	}
	return paycode.NewResolver(source, logger), closer, nil
}

func closeRedis(client *redis.Client, logger logging.Logger) {
	if err := client.Close(); err != nil {
		logger.Warnf("redis close: %v", err)
	}
}

func decimalFlag(cmd *cobra.Command, name string) (decimal.Decimal, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("--%s: %w", name, err)
	}
	return d, nil
}

var earningsCmd = &cobra.Command{
	Use:   "earnings",
	Short: "Price a timesheet entry against a pay code",
	Long: `Price a single timesheet entry using the resolved pay-code catalogue.

Examples:
  cdnpayroll earnings --code REG --hours 8 --rate 45
  cdnpayroll earnings --code EVE --hours 8 --rate 20 --stack WKND
  cdnpayroll earnings --code BONUS --amount 500
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.LoadSettings()
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		if file, _ := cmd.Flags().GetString("catalog"); file != "" {
			settings.PayCodeFile = file
		}

		hours, err := decimalFlag(cmd, "hours")
		if err != nil {
			return err
		}
		baseRate, err := decimalFlag(cmd, "rate")
		if err != nil {
			return err
		}
		var amount *decimal.Decimal
		if raw, _ := cmd.Flags().GetString("amount"); raw != "" {
			a, err := decimalFlag(cmd, "amount")
			if err != nil {
				return err
			}
			amount = &a
		}
		at := time.Now()
		if raw, _ := cmd.Flags().GetString("date"); raw != "" {
			if at, err = time.Parse(time.DateOnly, raw); err != nil {
				return fmt.Errorf("--date: %w", err)
			}
		}

		resolver, closeResolver, err := newResolver(cmd.Context(), settings, cliLogger(cmd))
		if err != nil {
			return err
		}
		defer closeResolver()

		resolution, err := resolver.Resolve(cmd.Context(), at)
		if err != nil {
			return err
		}
		code, _ := cmd.Flags().GetString("code")
		pc, ok := resolution.Lookup(code)
		if !ok {
			return fmt.Errorf("unknown or inactive pay code %q", code)
		}
		var premiums []domain.PayCode
		stack, _ := cmd.Flags().GetStringSlice("stack")
		for _, s := range stack {
			premium, ok := resolution.Lookup(s)
			if !ok {
				return fmt.Errorf("unknown or inactive pay code %q", s)
			}
			premiums = append(premiums, premium)
		}

		result := paycode.CalculateEarnings(paycode.EarningsInput{
			Hours:           hours,
			Amount:          amount,
			PayCode:         pc,
			Rate:            domain.EmployeeRate{RateType: domain.RateHourly, BaseRate: baseRate},
			StackedPremiums: premiums,
			Date:            at,
		})

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s (%s): %s\n", pc.Code, pc.Description, result.GrossEarnings.StringFixed(2))
		fmt.Fprintf(out, "  %s\n", result.Calculation)
		if result.GLCode != "" {
			fmt.Fprintf(out, "  GL %s\n", result.GLCode)
		}
		for _, w := range append(result.Warnings, resolution.Warnings...) {
			if strings.TrimSpace(w) != "" {
				fmt.Fprintf(out, "  ! %s\n", w)
			}
		}
		return nil
	},
}

func init() {
	earningsCmd.Flags().String("code", "", "Pay code (required)")
	earningsCmd.Flags().String("hours", "", "Hours worked")
	earningsCmd.Flags().String("rate", "", "Employee base hourly rate")
	earningsCmd.Flags().String("amount", "", "Amount for flat-amount codes")
	earningsCmd.Flags().StringSlice("stack", nil, "Other premium codes on the same hours")
	earningsCmd.Flags().String("date", "", "Work date (YYYY-MM-DD, default today)")
	earningsCmd.Flags().String("catalog", "", "Pay-code catalogue YAML (default: $PAYROLL_PAYCODE_FILE or built-in)")
	earningsCmd.Flags().Bool("debug", false, "Enable debug output")
	_ = earningsCmd.MarkFlagRequired("code")
}
