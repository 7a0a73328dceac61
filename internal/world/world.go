// Package world holds the per-scenario state shared by step definitions.
package world

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/shehryarbajwa/browserbase-e2e/internal/apiclient"
	"github.com/shehryarbajwa/browserbase-e2e/internal/browser"
	"github.com/shehryarbajwa/browserbase-e2e/internal/config"
	"github.com/shehryarbajwa/browserbase-e2e/internal/dbutil"
	"github.com/shehryarbajwa/browserbase-e2e/internal/diagnostics"
	"github.com/shehryarbajwa/browserbase-e2e/internal/pageutil"
	"github.com/shehryarbajwa/browserbase-e2e/pkg/models"
)

var (
	ErrNoWorld   = errors.New("no scenario world in context")
	ErrNoBrowser = errors.New("scenario has no browser session")
)

// World is created before each scenario and dropped after it. Nothing in it
// outlives the scenario.
type World struct {
	Scenario models.Scenario
	Config   config.Config
	// Session is nil for @api scenarios.
	Session *browser.Session
	API     *apiclient.Client
	// Attacher adds artifacts to the scenario's report record.
	Attacher diagnostics.Attacher
	Logger   *zap.Logger

	// LastResponse and LastErr hold the outcome of the most recent API call.
	LastResponse *apiclient.Response
	LastErr      error

	// Vars carries values between steps of the same scenario.
	Vars map[string]any

	dbOnce sync.Once
	db     *dbutil.DB
	dbErr  error
	openDB func() (*dbutil.DB, error)
}

// New creates the world for one scenario. openDB is called lazily on the
// first DB call; nil means the database is opened from cfg.DB.
func New(sc models.Scenario, cfg config.Config, sess *browser.Session, api *apiclient.Client, logger *zap.Logger, openDB func() (*dbutil.DB, error)) *World {
	if openDB == nil {
		openDB = func() (*dbutil.DB, error) { return dbutil.Open(cfg.DB, logger) }
	}
	return &World{
		Scenario: sc,
		Config:   cfg,
		Session:  sess,
		API:      api,
		Logger:   logger.With(zap.String("scenario", sc.Name)),
		Vars:     map[string]any{},
		openDB:   openDB,
	}
}

type ctxKey struct{}

func NewContext(ctx context.Context, w *World) context.Context {
	return context.WithValue(ctx, ctxKey{}, w)
}

// FromContext returns the world stored by NewContext
func FromContext(ctx context.Context) (*World, error) {
	w, ok := ctx.Value(ctxKey{}).(*World)
	if !ok || w == nil {
		return nil, ErrNoWorld
	}
	return w, nil
}

// Page returns the scenario's live Playwright page
func (w *World) Page() (playwright.Page, error) {
	if w.Session == nil {
		return nil, ErrNoBrowser
	}
	page := w.Session.Page()
	if page == nil {
		return nil, fmt.Errorf("page: %w", browser.ErrSessionClosed)
	}
	pw := page.Playwright()
	if pw == nil {
		return nil, ErrNoBrowser
	}
	return pw, nil
}

// Utils returns page helpers bound to the scenario's page
func (w *World) Utils() (*pageutil.PageUtils, error) {
	page, err := w.Page()
	if err != nil {
		return nil, err
	}
	return pageutil.New(page, w.Config.Browser.ScreenshotDir, w.Logger), nil
}

// ResolveURL resolves target against the configured application URL.
// Absolute URLs are returned unchanged.
func (w *World) ResolveURL(target string) (string, error) {
	if target == "" {
		return w.Config.URL, nil
	}
	ref, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	if ref.IsAbs() {
		return target, nil
	}
	base, err := url.Parse(w.Config.URL)
	if err != nil {
		return "", fmt.Errorf("invalid application url: %w", err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	ref.Path = strings.TrimPrefix(ref.Path, "/")
	return base.ResolveReference(ref).String(), nil
}

// Navigate opens target, relative to the application URL, and waits for the page to settle
func (w *World) Navigate(target string) error {
	u, err := w.Utils()
	if err != nil {
		return err
	}
	full, err := w.ResolveURL(target)
	if err != nil {
		return err
	}
	return u.NavigateTo(full)
}

// Capture saves a screenshot as <screenshot dir>/<name>_<unix ms>.png.
// The file stays on disk only; report attachments come from the failure
// diagnostics taken after the scenario.
func (w *World) Capture(name string) (string, error) {
	if w.Session == nil {
		return "", ErrNoBrowser
	}
	page := w.Session.Page()
	if page == nil {
		return "", fmt.Errorf("page: %w", browser.ErrSessionClosed)
	}
	body, err := page.Screenshot()
	if err != nil {
		return "", fmt.Errorf("screenshot: %w", err)
	}

	dir := w.Config.Browser.ScreenshotDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%d.png", models.SanitizeName(name), time.Now().UnixMilli()))
	if err := os.WriteFile(path, body, 0644); err != nil {
		return "", err
	}
	w.Logger.Debug("screenshot saved", zap.String("path", path))
	return path, nil
}

// Attach adds a named body to the report, e.g. an API response
func (w *World) Attach(ctx context.Context, name, mediaType string, body []byte) error {
	if w.Attacher == nil {
		return nil
	}
	return w.Attacher.Attach(ctx, models.Artifact{Name: name, MediaType: mediaType, Body: body})
}

// DB opens the database on first use
func (w *World) DB() (*dbutil.DB, error) {
	w.dbOnce.Do(func() {
		w.db, w.dbErr = w.openDB()
	})
	return w.db, w.dbErr
}

// Close releases what the world opened itself. The browser session is owned
// by the lifecycle coordinator and is not touched.
func (w *World) Close() error {
	if w.db != nil {
		return w.db.Close()
	}
	return nil
}
