package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultConfigPath is where the project configuration lives.
const DefaultConfigPath = "config/testConfig.json"

// LoadOptions controls configuration loading.
type LoadOptions struct {
	// ConfigPath overrides DefaultConfigPath. A missing file is not an error.
	ConfigPath string
	// EnvFile is loaded into the process environment first. Defaults to .env.
	EnvFile string
	// FlagOverrides are highest-priority overrides from CLI flags (dot-notated keys).
	FlagOverrides map[string]any
}

// Load returns the effective configuration after applying precedence:
// defaults < config file < env (.env, then the process) < flags.
func Load(opts LoadOptions) (Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)

	path := opts.ConfigPath
	if path == "" {
		path = DefaultConfigPath
	}
	if err := mergeConfigFile(v, path); err != nil {
		return Config{}, err
	}
	if err := applyEnvOverrides(v, os.Getenv); err != nil {
		return Config{}, err
	}
	for k, val := range opts.FlagOverrides {
		v.Set(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := DefaultConfig()

	v.SetDefault("url", def.URL)
	v.SetDefault("environment", def.Environment)
	v.SetDefault("step_timeout", def.StepTimeout)

	v.SetDefault("browser.type", def.Browser.Type)
	v.SetDefault("browser.headless", def.Browser.Headless)
	v.SetDefault("browser.args", def.Browser.Args)
	v.SetDefault("browser.viewport_width", def.Browser.ViewportWidth)
	v.SetDefault("browser.viewport_height", def.Browser.ViewportHeight)
	v.SetDefault("browser.action_timeout", def.Browser.ActionTimeout)
	v.SetDefault("browser.max_concurrent", def.Browser.MaxConcurrent)
	v.SetDefault("browser.screenshot_dir", def.Browser.ScreenshotDir)
	v.SetDefault("browser.video.enabled", def.Browser.Video.Enabled)
	v.SetDefault("browser.video.dir", def.Browser.Video.Dir)
	v.SetDefault("browser.video.width", def.Browser.Video.Width)
	v.SetDefault("browser.video.height", def.Browser.Video.Height)
	v.SetDefault("browser.trace.enabled", def.Browser.Trace.Enabled)
	v.SetDefault("browser.trace.dir", def.Browser.Trace.Dir)
	v.SetDefault("browser.trace.screenshots", def.Browser.Trace.Screenshots)
	v.SetDefault("browser.trace.snapshots", def.Browser.Trace.Snapshots)
	v.SetDefault("browser.remote.enabled", def.Browser.Remote.Enabled)
	v.SetDefault("browser.remote.image", def.Browser.Remote.Image)
	v.SetDefault("browser.remote.ready_timeout", def.Browser.Remote.ReadyTimeout)

	v.SetDefault("artifacts.save_video_on_ci", def.Artifacts.SaveVideoOnCI)
	v.SetDefault("artifacts.video_settle", def.Artifacts.VideoSettle)

	v.SetDefault("report.results_dir", def.Report.ResultsDir)
	v.SetDefault("report.categories_file", def.Report.CategoriesFile)
	v.SetDefault("report.environment_format", def.Report.EnvironmentFormat)
	v.SetDefault("report.clean", def.Report.Clean)
	v.SetDefault("report.cucumber_json", def.Report.CucumberJSON)
	v.SetDefault("report.html_output", def.Report.HTMLOutput)
	v.SetDefault("report.app_version", def.Report.AppVersion)
	v.SetDefault("report.metadata", map[string]string{})
	v.SetDefault("report.issue_url_template", def.Report.IssueURLTemplate)

	v.SetDefault("api.base_url", def.API.BaseURL)
	v.SetDefault("api.timeout", def.API.Timeout)
	v.SetDefault("api.username", def.API.Username)
	v.SetDefault("api.password", def.API.Password)
	v.SetDefault("api.headers", def.API.Headers)
	v.SetDefault("api.requests_per_second", def.API.RequestsPerSecond)
	v.SetDefault("api.burst", def.API.Burst)

	v.SetDefault("db.driver", def.DB.Driver)
	v.SetDefault("db.dsn", def.DB.DSN)
	v.SetDefault("db.host", def.DB.Host)
	v.SetDefault("db.port", def.DB.Port)
	v.SetDefault("db.user", def.DB.User)
	v.SetDefault("db.password", def.DB.Password)
	v.SetDefault("db.database", def.DB.Database)
	v.SetDefault("db.sql_dir", def.DB.SQLDir)

	v.SetDefault("testrail.host", def.TestRail.Host)
	v.SetDefault("testrail.username", def.TestRail.Username)
	v.SetDefault("testrail.api_key", def.TestRail.APIKey)
	v.SetDefault("testrail.project_id", def.TestRail.ProjectID)
	v.SetDefault("testrail.run_id", def.TestRail.RunID)

	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
}

// mergeConfigFile merges the config file if it exists.
func mergeConfigFile(v *viper.Viper, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat config %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", path)
	}
	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("merge config %s: %w", path, err)
	}
	return nil
}

type valueKind int

const (
	kindString valueKind = iota
	kindBool
	kindInt
	kindFloat
	kindDuration
)

type envBinding struct {
	Env  string
	Key  string
	Kind valueKind
}

// envBindings maps well-known variables onto config keys. Every other key
// can be set with E2E_<KEY> where dots become underscores.
var envBindings = []envBinding{
	{"BROWSER", "browser.type", kindString},
	{"HEADLESS", "browser.headless", kindBool},
	{"BASE_URL", "url", kindString},
	{"TEST_ENV", "environment", kindString},
	{"LOG_LEVEL", "log.level", kindString},
	{"LOG_FORMAT", "log.format", kindString},
	{"API_BASE_URL", "api.base_url", kindString},
	{"API_USERNAME", "api.username", kindString},
	{"API_PASSWORD", "api.password", kindString},
	{"DB_DSN", "db.dsn", kindString},
	{"DB_PASSWORD", "db.password", kindString},
	{"TESTRAIL_API_KEY", "testrail.api_key", kindString},
	{"TESTRAIL_RUN_ID", "testrail.run_id", kindInt},
}

var prefixedKeys = map[string]valueKind{
	"step_timeout":               kindDuration,
	"browser.args":               kindString,
	"browser.viewport_width":     kindInt,
	"browser.viewport_height":    kindInt,
	"browser.action_timeout":     kindDuration,
	"browser.max_concurrent":     kindInt,
	"browser.screenshot_dir":     kindString,
	"browser.video.enabled":      kindBool,
	"browser.video.dir":          kindString,
	"browser.trace.enabled":      kindBool,
	"browser.trace.dir":          kindString,
	"browser.remote.enabled":     kindBool,
	"browser.remote.image":       kindString,
	"artifacts.save_video_on_ci": kindBool,
	"report.results_dir":         kindString,
	"report.categories_file":     kindString,
	"report.environment_format":  kindString,
	"report.clean":               kindBool,
	"api.timeout":                kindDuration,
	"api.requests_per_second":    kindFloat,
	"db.driver":                  kindString,
	"testrail.host":              kindString,
	"testrail.username":          kindString,
}

// applyEnvOverrides reads the bound variables and E2E_* variables and applies them.
func applyEnvOverrides(v *viper.Viper, getenv func(string) string) error {
	for key, kind := range prefixedKeys {
		env := "E2E_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := setFromEnv(v, getenv, env, key, kind); err != nil {
			return err
		}
	}
	for _, b := range envBindings {
		if err := setFromEnv(v, getenv, b.Env, b.Key, b.Kind); err != nil {
			return err
		}
	}
	return nil
}

func setFromEnv(v *viper.Viper, getenv func(string) string, env, key string, kind valueKind) error {
	raw := getenv(env)
	if raw == "" {
		return nil
	}
	if key == "browser.args" {
		v.Set(key, strings.Fields(raw))
		return nil
	}
	parsed, err := parseValueByKind(raw, kind)
	if err != nil {
		return fmt.Errorf("env %s: %w", env, err)
	}
	v.Set(key, parsed)
	return nil
}

func parseValueByKind(raw string, kind valueKind) (any, error) {
	switch kind {
	case kindBool:
		return strconv.ParseBool(strings.TrimSpace(raw))
	case kindInt:
		return strconv.Atoi(strings.TrimSpace(raw))
	case kindFloat:
		return strconv.ParseFloat(strings.TrimSpace(raw), 64)
	case kindDuration:
		return time.ParseDuration(strings.TrimSpace(raw))
	default:
		return raw, nil
	}
}
