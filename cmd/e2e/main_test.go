package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/browserbase-e2e/internal/config"
	"github.com/shehryarbajwa/browserbase-e2e/internal/report"
	"github.com/shehryarbajwa/browserbase-e2e/pkg/models"
)

func TestFormatSummary(t *testing.T) {
	s := models.NewRunSummary()
	s.Scenarios["passed"] = 3
	s.Scenarios["failed"] = 1
	s.Duration = 2 * time.Second
	assert.Equal(t, "4 scenarios (1 failed, 3 passed) in 2s", formatSummary(s))
}

func TestSetupAndBundleCommands(t *testing.T) {
	dir := t.TempDir()
	results := filepath.Join(dir, "allure-results")
	configPath := filepath.Join(dir, "testConfig.json")
	require.NoError(t, os.WriteFile(configPath, []byte(fmt.Sprintf(`{
  "report": {"results_dir": %q, "categories_file": "", "cucumber_json": %q},
  "browser": {"video": {"dir": %q}, "trace": {"dir": %q}, "screenshot_dir": %q}
}`, results, filepath.Join(dir, "cucumber-report", "cucumber_report.json"),
		filepath.Join(dir, "videos"), filepath.Join(dir, "traces"), filepath.Join(dir, "screenshots"))), 0644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"setup", "--config", configPath, "--env-file", filepath.Join(dir, "missing.env")})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), results)
	for _, name := range []string{report.EnvironmentPropertiesFile, report.CategoriesFile, report.ExecutorFile} {
		assert.FileExists(t, filepath.Join(results, name))
	}

	archive := filepath.Join(dir, "artifacts.tar.gz")
	rootCmd.SetArgs([]string{"bundle", "--config", configPath, "--env-file", filepath.Join(dir, "missing.env"), "-o", archive})
	require.NoError(t, rootCmd.Execute())
	assert.FileExists(t, archive)

	target := filepath.Join(dir, "extracted")
	rootCmd.SetArgs([]string{"bundle", "extract", archive, target, "--config", configPath, "--env-file", filepath.Join(dir, "missing.env")})
	require.NoError(t, rootCmd.Execute())
	assert.FileExists(t, filepath.Join(target, "allure-results", report.ExecutorFile))
}

func TestBundleSourcesSkipsWorkingDirectory(t *testing.T) {
	c := config.DefaultConfig()
	c.Report.ResultsDir = "allure-results"
	c.Report.CucumberJSON = "cucumber_report.json"
	c.Browser.Video.Dir = "videos"
	c.Browser.Trace.Dir = "videos"
	c.Browser.ScreenshotDir = ""

	assert.Equal(t, []string{"allure-results", "videos"}, bundleSources(c))
}
