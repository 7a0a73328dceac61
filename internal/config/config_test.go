package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDetectCI(t *testing.T) {
	t.Run("local", func(t *testing.T) {
		ci := DetectCI(envMap(nil))
		assert.False(t, ci.Detected)
		assert.False(t, ci.GitHubActions)
		assert.Equal(t, "https://github.com", ci.ServerURL)
	})

	t.Run("generic CI", func(t *testing.T) {
		ci := DetectCI(envMap(map[string]string{"CI": "1"}))
		assert.True(t, ci.Detected)
		assert.False(t, ci.GitHubActions)
	})

	t.Run("github actions", func(t *testing.T) {
		ci := DetectCI(envMap(map[string]string{
			"GITHUB_ACTIONS":    "true",
			"GITHUB_REPOSITORY": "acme/shop",
			"GITHUB_RUN_ID":     "42",
		}))
		assert.True(t, ci.Detected)
		assert.True(t, ci.GitHubActions)
		assert.Equal(t, "https://github.com/acme/shop/actions/runs/42", ci.RunURL)
	})
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(LoadOptions{
		ConfigPath: filepath.Join(dir, "missing.json"),
		EnvFile:    filepath.Join(dir, "missing.env"),
	})
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, def.Browser.Type, cfg.Browser.Type)
	assert.Equal(t, 1536, cfg.Browser.ViewportWidth)
	assert.Equal(t, 30*time.Second, cfg.Browser.ActionTimeout)
	assert.Equal(t, "allure-results", cfg.Report.ResultsDir)
	assert.False(t, cfg.Artifacts.SaveVideoOnCI)
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "testConfig.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"url": "https://shop.example.com",
		"browser": {"type": "firefox", "headless": true, "action_timeout": "10s"},
		"report": {"results_dir": "out/results"}
	}`), 0644))

	t.Setenv("E2E_BROWSER_MAX_CONCURRENT", "3")
	t.Setenv("TEST_ENV", "staging")

	cfg, err := Load(LoadOptions{
		ConfigPath:    path,
		EnvFile:       filepath.Join(dir, "missing.env"),
		FlagOverrides: map[string]any{"browser.type": "webkit"},
	})
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example.com", cfg.URL)
	assert.Equal(t, "webkit", cfg.Browser.Type)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 10*time.Second, cfg.Browser.ActionTimeout)
	assert.Equal(t, 3, cfg.Browser.MaxConcurrent)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "out/results", cfg.Report.ResultsDir)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("E2E_REPORT_RESULTS_DIR=from-dotenv\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("E2E_REPORT_RESULTS_DIR") })

	cfg, err := Load(LoadOptions{ConfigPath: filepath.Join(dir, "none.json"), EnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Report.ResultsDir)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BROWSER", "netscape")

	_, err := Load(LoadOptions{ConfigPath: filepath.Join(dir, "none.json"), EnvFile: filepath.Join(dir, "none.env")})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, Validate(cfg))

	cfg.Browser.Remote.Enabled = true
	cfg.Browser.Type = "firefox"
	assert.Error(t, Validate(cfg))

	cfg = DefaultConfig()
	cfg.Report.EnvironmentFormat = "yaml"
	assert.Error(t, Validate(cfg))
}
