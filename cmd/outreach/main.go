package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/freshstart/outreach/internal/app"
	"github.com/freshstart/outreach/internal/config"
	"github.com/freshstart/outreach/internal/logging"
	"github.com/freshstart/outreach/internal/metrics"
	"github.com/freshstart/outreach/internal/version"
	"github.com/freshstart/outreach/pkg/pipeline/redact"
)

var (
	configPath string
	logLevel   string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "outreach",
	Short: "Generate and send personalized cleaning-services outreach emails",
	Long: `outreach reads a CSV of prospects, writes one email per prospect and
optionally sends them.

Each email is tried against the local AI model with a short deadline, then a
longer one, and falls back to an industry template so every prospect always
gets an email.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
		level := cfg.Log.Level
		if logLevel != "" {
			level = logLevel
		}
		if verbose {
			level = "debug"
		}
		if logger, err = logging.New(level, cfg.Log.Format); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "outreach", version.String())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ./config.yaml or ./configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(generateCmd, sendCmd, probeCmd, templateCSVCmd, versionCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", redact.Secrets(err.Error()))
		os.Exit(1)
	}
}

// runWithApp builds the app and runs fn alongside the optional metrics
// server. The first interrupt asks fn to stop gracefully via app.Cancel; a
// second one cancels ctx.
func runWithApp(parent context.Context, fn func(ctx context.Context, a *app.App) error) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	rec := metrics.New()
	a, err := app.New(ctx, cfg, logger, rec)
	if err != nil {
		return err
	}

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		interrupts := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigs:
				interrupts++
				if interrupts == 1 && a.Cancel() {
					logger.Warn("interrupt received, finishing emails in progress (interrupt again to abort)")
					continue
				}
				logger.Warn("aborting")
				cancel()
				return
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	var srv *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", rec.Handler())
		srv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			logger.Info("metrics listening", zap.String("addr", cfg.Metrics.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		defer func() {
			if srv != nil {
				shutdownCtx, done := context.WithTimeout(context.WithoutCancel(gctx), 5*time.Second)
				defer done()
				_ = srv.Shutdown(shutdownCtx)
			}
		}()
		return fn(gctx, a)
	})
	return g.Wait()
}
