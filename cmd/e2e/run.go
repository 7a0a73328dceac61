package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cucumber/godog"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shehryarbajwa/browserbase-e2e/internal/browser"
	"github.com/shehryarbajwa/browserbase-e2e/internal/lifecycle"
)

var (
	flagRunTags        string
	flagRunFormat      string
	flagRunConcurrency int
	flagRunStrict      bool
	flagRunInstall     bool
	flagRunNoHTML      bool
)

func init() {
	runCmd.Flags().StringVarP(&flagRunTags, "tags", "t", "", "tag expression, e.g. \"@smoke && ~@wip\"")
	runCmd.Flags().StringVar(&flagRunFormat, "format", "pretty", "godog output format")
	runCmd.Flags().IntVar(&flagRunConcurrency, "concurrency", 1, "scenarios run at once; browsers are still bounded by browser.max_concurrent")
	runCmd.Flags().BoolVar(&flagRunStrict, "strict", false, "fail on pending or undefined steps")
	runCmd.Flags().BoolVar(&flagRunInstall, "install", false, "install the Playwright driver and browser first")
	runCmd.Flags().BoolVar(&flagRunNoHTML, "no-html", false, "skip the HTML report")

	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [paths...]",
	Short: "Run feature files",
	Long: `Run the godog suite against the configured application.

Report fixtures are installed before the first scenario. A failure there
aborts the run. Each browser scenario gets its own browser; @api scenarios
get none.

Examples:
  e2e run
  e2e run features/checkout.feature --tags @smoke
  BROWSER=firefox HEADLESS=true e2e run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		paths := args
		if len(paths) == 0 {
			paths = []string{"features"}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		driver, cleanup, err := startDriver(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		coord, err := lifecycle.New(lifecycle.Options{
			Config: cfg,
			CI:     ci,
			Driver: driver,
			Logger: logger,
		})
		if err != nil {
			return err
		}

		format := flagRunFormat
		if cfg.Report.CucumberJSON != "" {
			if err := os.MkdirAll(filepath.Dir(cfg.Report.CucumberJSON), 0755); err != nil {
				return err
			}
			format += ",cucumber:" + cfg.Report.CucumberJSON
		}

		code, err := coord.Run(godog.Options{
			Format:         format,
			Paths:          paths,
			Tags:           flagRunTags,
			Concurrency:    flagRunConcurrency,
			Strict:         flagRunStrict,
			DefaultContext: ctx,
		})
		if err != nil {
			return err
		}

		if !flagRunNoHTML && cfg.Report.CucumberJSON != "" && cfg.Report.HTMLOutput != "" {
			if _, err := generateHTML(); err != nil {
				logger.Warn("html report not generated", zap.Error(err))
			}
		}
		if code != 0 {
			return &exitError{code: code}
		}
		return nil
	},
}

// startDriver starts Playwright, running browsers in docker when remote mode is on
func startDriver(ctx context.Context) (browser.Driver, func(), error) {
	family, err := browser.ParseFamily(cfg.Browser.Type)
	if err != nil {
		return nil, nil, err
	}

	var pool *browser.RemotePool
	if cfg.Browser.Remote.Enabled {
		pool, err = browser.NewRemotePool(cfg.Browser.Remote.Image, cfg.Browser.Remote.ReadyTimeout, logger.Named("remote"))
		if err != nil {
			return nil, nil, err
		}
		if err := pool.EnsureImage(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to ensure browser image: %w", err)
		}
	}

	driver, err := browser.StartPlaywright(browser.PlaywrightOptions{
		Install:  flagRunInstall,
		Browsers: []string{string(family)},
		Remote:   pool,
	}, logger.Named("playwright"))
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, nil, err
	}

	cleanup := func() {
		if err := driver.Stop(); err != nil {
			logger.Warn("failed to stop playwright", zap.Error(err))
		}
		if pool != nil {
			if err := pool.Close(); err != nil {
				logger.Warn("failed to close docker client", zap.Error(err))
			}
		}
	}
	return driver, cleanup, nil
}
