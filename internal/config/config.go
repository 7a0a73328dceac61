package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the effective harness configuration
type Config struct {
	URL         string        `mapstructure:"url"`
	Environment string        `mapstructure:"environment"`
	StepTimeout time.Duration `mapstructure:"step_timeout"`

	Browser   BrowserConfig   `mapstructure:"browser"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Report    ReportConfig    `mapstructure:"report"`
	API       APIConfig       `mapstructure:"api"`
	DB        DBConfig        `mapstructure:"db"`
	TestRail  TestRailConfig  `mapstructure:"testrail"`
	Log       LogConfig       `mapstructure:"log"`
}

type BrowserConfig struct {
	Type           string        `mapstructure:"type"`
	Headless       bool          `mapstructure:"headless"`
	Args           []string      `mapstructure:"args"`
	ViewportWidth  int           `mapstructure:"viewport_width"`
	ViewportHeight int           `mapstructure:"viewport_height"`
	ActionTimeout  time.Duration `mapstructure:"action_timeout"`
	MaxConcurrent  int           `mapstructure:"max_concurrent"`
	ScreenshotDir  string        `mapstructure:"screenshot_dir"`
	Video          VideoConfig   `mapstructure:"video"`
	Trace          TraceConfig   `mapstructure:"trace"`
	Remote         RemoteConfig  `mapstructure:"remote"`
}

type VideoConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
	Width   int    `mapstructure:"width"`
	Height  int    `mapstructure:"height"`
}

type TraceConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Dir         string `mapstructure:"dir"`
	Screenshots bool   `mapstructure:"screenshots"`
	Snapshots   bool   `mapstructure:"snapshots"`
}

// RemoteConfig runs browsers in docker containers instead of locally.
type RemoteConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Image        string        `mapstructure:"image"`
	ReadyTimeout time.Duration `mapstructure:"ready_timeout"`
}

// ArtifactsConfig is the policy applied when persisting diagnostics
type ArtifactsConfig struct {
	// SaveVideoOnCI keeps the local video save path on CI. Off by default
	// because CI uploads the videos directory as a build artifact instead.
	SaveVideoOnCI bool          `mapstructure:"save_video_on_ci"`
	VideoSettle   time.Duration `mapstructure:"video_settle"`
}

type ReportConfig struct {
	ResultsDir        string            `mapstructure:"results_dir"`
	CategoriesFile    string            `mapstructure:"categories_file"`
	EnvironmentFormat string            `mapstructure:"environment_format"`
	Clean             bool              `mapstructure:"clean"`
	CucumberJSON      string            `mapstructure:"cucumber_json"`
	HTMLOutput        string            `mapstructure:"html_output"`
	AppVersion        string            `mapstructure:"app_version"`
	Metadata          map[string]string `mapstructure:"metadata"`
	// IssueURLTemplate turns @jira:KEY tags into links; %s is replaced by KEY.
	IssueURLTemplate string `mapstructure:"issue_url_template"`
}

type APIConfig struct {
	BaseURL           string            `mapstructure:"base_url"`
	Timeout           time.Duration     `mapstructure:"timeout"`
	Username          string            `mapstructure:"username"`
	Password          string            `mapstructure:"password"`
	Headers           map[string]string `mapstructure:"headers"`
	RequestsPerSecond float64           `mapstructure:"requests_per_second"`
	Burst             int               `mapstructure:"burst"`
}

type DBConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SQLDir   string `mapstructure:"sql_dir"`
}

type TestRailConfig struct {
	Host      string `mapstructure:"host"`
	Username  string `mapstructure:"username"`
	APIKey    string `mapstructure:"api_key"`
	ProjectID int    `mapstructure:"project_id"`
	RunID     int    `mapstructure:"run_id"`
}

// Enabled reports whether results should be pushed to TestRail
func (c TestRailConfig) Enabled() bool {
	return c.Host != "" && c.RunID > 0
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() Config {
	return Config{
		URL:         "http://localhost:3000",
		Environment: "QA",
		StepTimeout: 60 * time.Second,
		Browser: BrowserConfig{
			Type:           "chromium",
			Headless:       false,
			Args:           []string{"--start-maximized"},
			ViewportWidth:  1536,
			ViewportHeight: 960,
			ActionTimeout:  30 * time.Second,
			MaxConcurrent:  1,
			ScreenshotDir:  "screenshots",
			Video: VideoConfig{
				Enabled: true,
				Dir:     "videos",
				Width:   1920,
				Height:  1080,
			},
			Trace: TraceConfig{
				Enabled:     true,
				Dir:         "traces",
				Screenshots: true,
				Snapshots:   true,
			},
			Remote: RemoteConfig{
				Image:        "browserless/chrome:latest",
				ReadyTimeout: 10 * time.Second,
			},
		},
		Artifacts: ArtifactsConfig{
			SaveVideoOnCI: false,
			VideoSettle:   500 * time.Millisecond,
		},
		Report: ReportConfig{
			ResultsDir:        "allure-results",
			CategoriesFile:    "config/categories.json",
			EnvironmentFormat: "properties",
			Clean:             true,
			CucumberJSON:      "cucumber-report/cucumber_report.json",
			HTMLOutput:        "cucumber-report/cucumber_report.html",
			AppVersion:        "1.0.0",
		},
		API: APIConfig{
			Timeout: 5 * time.Second,
			Headers: map[string]string{
				"Content-Type": "application/json",
				"Accept":       "application/json",
			},
			RequestsPerSecond: 10,
			Burst:             5,
		},
		DB: DBConfig{
			Driver: "mysql",
			Port:   3306,
			SQLDir: "sql",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the configuration for values the harness cannot work with
func Validate(cfg Config) error {
	switch strings.ToLower(cfg.Browser.Type) {
	case "chromium", "chrome", "msedge", "edge", "firefox", "webkit", "safari":
	default:
		return fmt.Errorf("browser.type must be chromium, firefox or webkit, got %q", cfg.Browser.Type)
	}
	if cfg.Browser.ViewportWidth <= 0 || cfg.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("browser viewport must be positive, got %dx%d", cfg.Browser.ViewportWidth, cfg.Browser.ViewportHeight)
	}
	if cfg.Browser.MaxConcurrent < 1 {
		return fmt.Errorf("browser.max_concurrent must be at least 1")
	}
	if cfg.Report.ResultsDir == "" {
		return fmt.Errorf("report.results_dir is required")
	}
	switch cfg.Report.EnvironmentFormat {
	case "properties", "json":
	default:
		return fmt.Errorf("report.environment_format must be properties or json, got %q", cfg.Report.EnvironmentFormat)
	}
	if cfg.Browser.Remote.Enabled && !isChromium(cfg.Browser.Type) {
		return fmt.Errorf("remote browsers only support chromium")
	}
	return nil
}

func isChromium(name string) bool {
	switch strings.ToLower(name) {
	case "chromium", "chrome", "msedge", "edge":
		return true
	}
	return false
}
