package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shehryarbajwa/browserbase-e2e/internal/config"
	"github.com/shehryarbajwa/browserbase-e2e/internal/logging"
)

var (
	flagConfig   string
	flagEnvFile  string
	flagBrowser  string
	flagHeadless bool
	flagBaseURL  string
	flagLogLevel string

	// set by loadConfig before any subcommand runs
	cfg    config.Config
	ci     config.CI
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "e2e",
	Short:         "Browser end-to-end test harness",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", config.DefaultConfigPath, "path to the JSON config file")
	pf.StringVar(&flagEnvFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	pf.StringVar(&flagBrowser, "browser", "", "browser to run: chromium, firefox or webkit")
	pf.BoolVar(&flagHeadless, "headless", false, "run the browser headless")
	pf.StringVar(&flagBaseURL, "base-url", "", "application URL")
	pf.StringVar(&flagLogLevel, "log-level", "", "debug, info, warn or error")
}

func loadConfig(cmd *cobra.Command) error {
	overrides := map[string]any{}
	flags := cmd.Flags()
	if flags.Changed("browser") {
		overrides["browser.type"] = flagBrowser
	}
	if flags.Changed("headless") {
		overrides["browser.headless"] = flagHeadless
	}
	if flags.Changed("base-url") {
		overrides["url"] = flagBaseURL
	}
	if flags.Changed("log-level") {
		overrides["log.level"] = flagLogLevel
	}

	var err error
	cfg, err = config.Load(config.LoadOptions{
		ConfigPath:    flagConfig,
		EnvFile:       flagEnvFile,
		FlagOverrides: overrides,
	})
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	ci = config.DetectCI(nil)

	logger, err = logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	return nil
}
