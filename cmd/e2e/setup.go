package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shehryarbajwa/browserbase-e2e/internal/browser"
	"github.com/shehryarbajwa/browserbase-e2e/internal/report"
)

var flagSetupInstall bool

func init() {
	setupCmd.Flags().BoolVar(&flagSetupInstall, "install", false, "also install the Playwright driver and configured browser")
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Prepare the results directory and report fixtures without running scenarios",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Report.Clean {
			if err := report.CleanResults(cfg.Report.ResultsDir); err != nil {
				return err
			}
		}
		installer := &report.Installer{
			ResultsDir:        cfg.Report.ResultsDir,
			CategoriesSource:  cfg.Report.CategoriesFile,
			EnvironmentFormat: cfg.Report.EnvironmentFormat,
			Logger:            logger.Named("report"),
		}
		if err := installer.Install(report.BuildEnvironment(cfg, ci), report.BuildExecutor(cfg, ci)); err != nil {
			return err
		}

		if flagSetupInstall {
			family, err := browser.ParseFamily(cfg.Browser.Type)
			if err != nil {
				return err
			}
			driver, err := browser.StartPlaywright(browser.PlaywrightOptions{
				Install:  true,
				Browsers: []string{string(family)},
			}, logger.Named("playwright"))
			if err != nil {
				return err
			}
			if err := driver.Stop(); err != nil {
				return err
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "report fixtures written to %s\n", cfg.Report.ResultsDir)
		return nil
	},
}
