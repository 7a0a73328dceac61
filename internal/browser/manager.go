package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/shehryarbajwa/browserbase-e2e/internal/config"
	"github.com/shehryarbajwa/browserbase-e2e/pkg/models"
)

// Options is the per-scenario browser setup
type Options struct {
	Family        Family
	Headless      bool
	Args          []string
	Viewport      Viewport
	ActionTimeout time.Duration
	LaunchTimeout time.Duration
	BaseURL       string
	// Video is nil when recording is disabled.
	Video *VideoOptions
	// Trace is nil when tracing is disabled.
	Trace *TraceOptions
	// MaxConcurrent bounds the number of live sessions.
	MaxConcurrent int
	// CI forces headless mode regardless of Headless.
	CI     bool
	Remote bool
}

// OptionsFromConfig maps the loaded configuration onto session options
func OptionsFromConfig(cfg config.Config, ci config.CI) (Options, error) {
	family, err := ParseFamily(cfg.Browser.Type)
	if err != nil {
		return Options{}, err
	}

	opts := Options{
		Family:   family,
		Headless: cfg.Browser.Headless,
		Args:     cfg.Browser.Args,
		Viewport: Viewport{
			Width:  cfg.Browser.ViewportWidth,
			Height: cfg.Browser.ViewportHeight,
		},
		ActionTimeout: cfg.Browser.ActionTimeout,
		BaseURL:       cfg.URL,
		MaxConcurrent: cfg.Browser.MaxConcurrent,
		CI:            ci.Detected,
		Remote:        cfg.Browser.Remote.Enabled,
	}
	if cfg.Browser.Video.Enabled {
		dir, err := filepath.Abs(cfg.Browser.Video.Dir)
		if err != nil {
			return Options{}, fmt.Errorf("resolve video dir: %w", err)
		}
		opts.Video = &VideoOptions{
			Dir:    dir,
			Width:  cfg.Browser.Video.Width,
			Height: cfg.Browser.Video.Height,
		}
	}
	if cfg.Browser.Trace.Enabled {
		opts.Trace = &TraceOptions{
			Screenshots: cfg.Browser.Trace.Screenshots,
			Snapshots:   cfg.Browser.Trace.Snapshots,
		}
	}
	return opts, nil
}

// EffectiveHeadless is the headless flag actually passed to the browser
func (o Options) EffectiveHeadless() bool {
	return o.CI || o.Headless
}

// Manager opens and releases scenario sessions
type Manager struct {
	driver   Driver
	opts     Options
	slots    *semaphore.Weighted
	sessions sync.Map // map[sessionID]*Session
	logger   *zap.Logger
}

// NewManager creates a new session manager
func NewManager(driver Driver, opts Options, logger *zap.Logger) *Manager {
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	if opts.Family == "" {
		opts.Family = DefaultFamily
	}
	return &Manager{
		driver: driver,
		opts:   opts,
		slots:  semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		logger: logger,
	}
}

// Options returns the options sessions are opened with
func (m *Manager) Options() Options {
	return m.opts
}

// Open launches a browser, context and page for one scenario. A launch
// failure is returned as is; there is no retry.
func (m *Manager) Open(ctx context.Context, scenario models.Scenario) (*Session, error) {
	if err := m.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for browser slot: %w", err)
	}

	sess, err := m.open(ctx, scenario)
	if err != nil {
		m.slots.Release(1)
		return nil, err
	}

	m.sessions.Store(sess.ID(), sess)
	return sess, nil
}

func (m *Manager) open(ctx context.Context, scenario models.Scenario) (*Session, error) {
	headless := m.opts.EffectiveHeadless()
	log := m.logger.With(zap.String("scenario", scenario.Name), zap.String("browser", string(m.opts.Family)))

	if m.opts.Video != nil {
		if err := os.MkdirAll(m.opts.Video.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create video directory: %w", err)
		}
	}

	log.Info("launching browser", zap.Bool("headless", headless), zap.Bool("ci", m.opts.CI))
	instance, err := m.driver.Launch(ctx, m.opts.Family, LaunchOptions{
		Headless: headless,
		Args:     m.opts.Args,
		Timeout:  m.opts.LaunchTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	sess := &Session{
		info: models.Session{
			ID:        uuid.New().String(),
			Scenario:  scenario.Name,
			Browser:   string(m.opts.Family),
			Headless:  headless,
			Remote:    m.opts.Remote,
			Status:    models.StatusRunning,
			StartedAt: time.Now(),
		},
		instance: instance,
		logger:   m.logger,
	}
	if m.opts.Video != nil {
		sess.info.VideoDir = m.opts.Video.Dir
	}

	sess.context, err = instance.NewContext(ContextOptions{
		RecordVideo: m.opts.Video,
		BaseURL:     m.opts.BaseURL,
	})
	if err != nil {
		sess.Close()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	log.Debug("browser context created", zap.Bool("video", m.opts.Video != nil))

	sess.page, err = sess.context.NewPage()
	if err != nil {
		sess.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if err := sess.page.SetViewportSize(m.opts.Viewport.Width, m.opts.Viewport.Height); err != nil {
		sess.Close()
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	if m.opts.Trace != nil {
		trace := *m.opts.Trace
		if trace.Name == "" {
			trace.Name = scenario.ArtifactBase()
		}
		if err := sess.context.StartTracing(trace); err != nil {
			sess.Close()
			return nil, fmt.Errorf("failed to start tracing: %w", err)
		}
		sess.tracing = true
	}

	if m.opts.ActionTimeout > 0 {
		sess.page.SetDefaultTimeout(float64(m.opts.ActionTimeout.Milliseconds()))
	}

	log.Info("browser session ready",
		zap.String("session", sess.ID()),
		zap.Int("width", m.opts.Viewport.Width),
		zap.Int("height", m.opts.Viewport.Height))
	return sess, nil
}

// Release tears the session down and frees its slot. Safe to call twice.
func (m *Manager) Release(sess *Session) []error {
	if sess == nil {
		return nil
	}
	if _, loaded := m.sessions.LoadAndDelete(sess.ID()); !loaded {
		return nil
	}
	defer m.slots.Release(1)

	errs := sess.Close()
	m.logger.Info("browser closed", zap.String("session", sess.ID()), zap.Int("errors", len(errs)))
	return errs
}

// Active lists the sessions currently open
func (m *Manager) Active() []models.Session {
	var out []models.Session
	m.sessions.Range(func(_, value interface{}) bool {
		out = append(out, value.(*Session).Info())
		return true
	})
	return out
}

// ReleaseAll closes every session still open, e.g. after an interrupted run
func (m *Manager) ReleaseAll() {
	m.sessions.Range(func(_, value interface{}) bool {
		m.Release(value.(*Session))
		return true
	})
}
