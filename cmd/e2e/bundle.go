package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shehryarbajwa/browserbase-e2e/internal/config"
	"github.com/shehryarbajwa/browserbase-e2e/internal/report"
)

var flagBundleOutput string

func init() {
	bundleCmd.Flags().StringVarP(&flagBundleOutput, "output", "o", "e2e-artifacts.tar.gz", "archive to write")
	bundleCmd.AddCommand(bundleExtractCmd)
	rootCmd.AddCommand(bundleCmd)
}

var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Pack results, reports, videos, traces and screenshots into one archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		skipped, err := report.Bundle(flagBundleOutput, bundleSources(cfg)...)
		if err != nil {
			return err
		}
		for _, s := range skipped {
			logger.Info("nothing to bundle", zap.String("dir", s))
		}
		fmt.Fprintln(cmd.OutOrStdout(), flagBundleOutput)
		return nil
	},
}

// bundleSources lists the artifact directories of cfg. The working directory
// itself and repeated directories are left out.
func bundleSources(c config.Config) []string {
	dirs := []string{
		c.Report.ResultsDir,
		filepath.Dir(c.Report.CucumberJSON),
		c.Browser.Video.Dir,
		c.Browser.Trace.Dir,
		c.Browser.ScreenshotDir,
	}
	var out []string
	seen := map[string]bool{}
	for _, dir := range dirs {
		dir = filepath.Clean(dir)
		if dir == "." || seen[dir] {
			continue
		}
		seen[dir] = true
		out = append(out, dir)
	}
	return out
}

var bundleExtractCmd = &cobra.Command{
	Use:   "extract <archive> <dir>",
	Short: "Unpack an artifact archive",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return report.Extract(args[0], args[1])
	},
}
