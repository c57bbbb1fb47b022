package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rgehrsitz/cdnpayroll/internal/api"
	"github.com/rgehrsitz/cdnpayroll/internal/balance"
	"github.com/rgehrsitz/cdnpayroll/internal/balance/store"
	"github.com/rgehrsitz/cdnpayroll/internal/calculation"
	"github.com/rgehrsitz/cdnpayroll/internal/config"
	"github.com/rgehrsitz/cdnpayroll/internal/logging"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the payroll HTTP API",
	Long: `Run the payroll HTTP API. Configuration comes from PAYROLL_* environment
variables (PAYROLL_ADDR, PAYROLL_RATE_TABLE_DIR, PAYROLL_REDIS_ADDR,
PAYROLL_PAYCODE_URL, PAYROLL_LEDGER_DSN, PAYROLL_LOG_FORMAT, ...).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.LoadSettings()
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			settings.Addr = addr
		}
		debugMode, _ := cmd.Flags().GetBool("debug")
		logger := logging.NewSlog(cmd.ErrOrStderr(), settings.LogFormat, debugMode)
		engineLogger := logging.SlogLogger{L: logger}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		registry, err := settings.BuildRegistry()
		if err != nil {
			return err
		}
		engine := calculation.NewPayrollEngine(registry)
		engine.SetLogger(engineLogger)

		resolver, closeResolver, err := newResolver(ctx, settings, engineLogger)
		if err != nil {
			return err
		}
		defer closeResolver()

		deps := api.Dependencies{
			Logger:   logger,
			Engine:   engine,
			Rates:    registry,
			Resolver: resolver,
			Overtime: balance.NewOvertimeValidator(balance.OvertimeThresholds{
				Daily:  settings.DailyOvertimeThreshold(),
				Weekly: settings.WeeklyOvertimeThreshold(),
			}),
		}
		if settings.LedgerDSN != "" {
			ledgerStore, err := store.NewSQLite(settings.LedgerDSN)
			if err != nil {
				return err
			}
			defer func() {
				if err := ledgerStore.Close(); err != nil {
					logger.Warn("ledger close", slog.Any("error", err))
				}
			}()
			ledger := balance.NewLedger(ledgerStore)
			ledger.SetLogger(engineLogger)
			deps.Ledger = ledger
		}

		rateLimit, _ := cmd.Flags().GetInt("rate-limit")
		router := api.NewRouter(api.NewHandler(deps), api.RouterOptions{
			AllowedOrigins:    settings.AllowedOrigins,
			RequestTimeout:    settings.RequestTimeout,
			Production:        settings.Production,
			RequestsPerMinute: rateLimit,
		})

		server := &http.Server{
			Addr:              settings.Addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      settings.RequestTimeout + 5*time.Second,
		}

		serveErr := make(chan error, 1)
		go func() {
			logger.Info("payroll API listening",
				slog.String("addr", settings.Addr),
				slog.Any("tax_years", registry.Years()),
				slog.Bool("ledger", deps.Ledger != nil))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		select {
		case err := <-serveErr:
			if err != nil {
				return fmt.Errorf("http server: %w", err)
			}
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown", slog.Any("error", err))
			return err
		}
		logger.Info("payroll API stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default: $PAYROLL_ADDR or :8080)")
	serveCmd.Flags().Int("rate-limit", 120, "Requests per minute per client IP (0 disables)")
	serveCmd.Flags().Bool("debug", false, "Log at debug level")
}
