package world

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shehryarbajwa/browserbase-e2e/internal/browser"
	"github.com/shehryarbajwa/browserbase-e2e/internal/browser/browsertest"
	"github.com/shehryarbajwa/browserbase-e2e/internal/config"
	"github.com/shehryarbajwa/browserbase-e2e/internal/dbutil"
	"github.com/shehryarbajwa/browserbase-e2e/pkg/models"
)

func newWorld(t *testing.T, sess *browser.Session) *World {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.URL = "http://shop.test/app"
	return New(models.Scenario{Name: "Checkout"}, cfg, sess, nil, zap.NewNop(), nil)
}

func TestContextRoundTrip(t *testing.T) {
	_, err := FromContext(context.Background())
	assert.ErrorIs(t, err, ErrNoWorld)

	w := newWorld(t, nil)
	got, err := FromContext(NewContext(context.Background(), w))
	require.NoError(t, err)
	assert.Same(t, w, got)
}

func TestPageWithoutSession(t *testing.T) {
	w := newWorld(t, nil)
	_, err := w.Page()
	assert.ErrorIs(t, err, ErrNoBrowser)
	assert.ErrorIs(t, w.Navigate("/"), ErrNoBrowser)
	_, err = w.Capture("x")
	assert.ErrorIs(t, err, ErrNoBrowser)
}

func TestPageClosedSession(t *testing.T) {
	mgr := browser.NewManager(browsertest.NewDriver(), browser.Options{Family: browser.Chromium}, zap.NewNop())
	sess, err := mgr.Open(context.Background(), models.Scenario{Name: "Checkout"})
	require.NoError(t, err)

	w := newWorld(t, sess)
	// the fake page has no playwright page behind it
	_, err = w.Page()
	assert.ErrorIs(t, err, ErrNoBrowser)

	mgr.Release(sess)
	_, err = w.Page()
	assert.ErrorIs(t, err, browser.ErrSessionClosed)
}

type countingAttacher struct {
	artifacts []models.Artifact
}

func (a *countingAttacher) Attach(_ context.Context, artifact models.Artifact) error {
	a.artifacts = append(a.artifacts, artifact)
	return nil
}

func TestCaptureSavesToDiskWithoutAttaching(t *testing.T) {
	driver := browsertest.NewDriver()
	mgr := browser.NewManager(driver, browser.Options{Family: browser.Chromium}, zap.NewNop())
	sess, err := mgr.Open(context.Background(), models.Scenario{Name: "Checkout"})
	require.NoError(t, err)
	defer mgr.Release(sess)

	w := newWorld(t, sess)
	w.Config.Browser.ScreenshotDir = t.TempDir()
	attacher := &countingAttacher{}
	w.Attacher = attacher

	path, err := w.Capture("cart page")
	require.NoError(t, err)

	assert.Equal(t, w.Config.Browser.ScreenshotDir, filepath.Dir(path))
	assert.Regexp(t, `^cart_page_\d+\.png$`, filepath.Base(path))
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, driver.Screenshot, body)
	assert.Empty(t, attacher.artifacts)
}

func TestResolveURL(t *testing.T) {
	w := newWorld(t, nil)

	tests := []struct {
		target string
		want   string
	}{
		{"", "http://shop.test/app"},
		{"/login", "http://shop.test/app/login"},
		{"cart/items", "http://shop.test/app/cart/items"},
		{"https://other.test/x", "https://other.test/x"},
	}
	for _, tt := range tests {
		got, err := w.ResolveURL(tt.target)
		require.NoError(t, err, tt.target)
		assert.Equal(t, tt.want, got, tt.target)
	}
}

func TestDBOpensOnce(t *testing.T) {
	calls := 0
	cfg := config.DefaultConfig()
	w := New(models.Scenario{Name: "db"}, cfg, nil, nil, zap.NewNop(), func() (*dbutil.DB, error) {
		calls++
		db, err := sql.Open("sqlite", ":memory:")
		if err != nil {
			return nil, err
		}
		return dbutil.New(db, "", zap.NewNop()), nil
	})

	first, err := w.DB()
	require.NoError(t, err)
	second, err := w.DB()
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
	require.NoError(t, first.Ping(context.Background()))
	assert.NoError(t, w.Close())
}

func TestCloseWithoutDB(t *testing.T) {
	assert.NoError(t, newWorld(t, nil).Close())
}

func TestAttachWithoutAttacher(t *testing.T) {
	w := newWorld(t, nil)
	assert.NoError(t, w.Attach(context.Background(), "body", models.MediaTypeJSON, []byte("{}")))
}
