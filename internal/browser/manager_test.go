package browser_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shehryarbajwa/browserbase-e2e/internal/browser"
	"github.com/shehryarbajwa/browserbase-e2e/internal/browser/browsertest"
	"github.com/shehryarbajwa/browserbase-e2e/internal/config"
	"github.com/shehryarbajwa/browserbase-e2e/pkg/models"
)

func testOptions(t *testing.T) browser.Options {
	return browser.Options{
		Family:        browser.Chromium,
		Headless:      false,
		Args:          []string{"--start-maximized"},
		Viewport:      browser.Viewport{Width: 1536, Height: 960},
		ActionTimeout: 30 * time.Second,
		Video:         &browser.VideoOptions{Dir: filepath.Join(t.TempDir(), "videos"), Width: 1920, Height: 1080},
		Trace:         &browser.TraceOptions{Screenshots: true, Snapshots: true},
		MaxConcurrent: 1,
	}
}

func TestOpenConfiguresSession(t *testing.T) {
	driver := browsertest.NewDriver()
	opts := testOptions(t)
	mgr := browser.NewManager(driver, opts, zap.NewNop())

	sess, err := mgr.Open(context.Background(), models.Scenario{Name: "Checkout flow"})
	require.NoError(t, err)

	assert.DirExists(t, opts.Video.Dir)
	require.Len(t, driver.Launches, 1)
	assert.False(t, driver.Launches[0].Headless)
	assert.Equal(t, []string{"--start-maximized"}, driver.Launches[0].Args)

	ctx := driver.Instances[0].Contexts[0]
	assert.Nil(t, ctx.Options.Viewport)
	require.NotNil(t, ctx.Options.RecordVideo)
	require.NotNil(t, ctx.Trace)
	assert.Equal(t, "Checkout_flow", ctx.Trace.Name)

	page := ctx.Pages[0]
	assert.Equal(t, 1536, page.Width)
	assert.Equal(t, 960, page.Height)
	assert.Equal(t, float64(30000), page.Timeout)

	assert.True(t, sess.Tracing())
	assert.Equal(t, models.StatusRunning, sess.Info().Status)
	assert.Len(t, mgr.Active(), 1)
}

func TestOpenForcesHeadlessOnCI(t *testing.T) {
	driver := browsertest.NewDriver()
	opts := testOptions(t)
	opts.CI = true
	mgr := browser.NewManager(driver, opts, zap.NewNop())

	sess, err := mgr.Open(context.Background(), models.Scenario{Name: "ci"})
	require.NoError(t, err)

	assert.True(t, driver.Launches[0].Headless)
	assert.True(t, sess.Info().Headless)
}

func TestOpenPropagatesLaunchFailure(t *testing.T) {
	driver := browsertest.NewDriver()
	driver.LaunchErr = errors.New("executable not found")
	mgr := browser.NewManager(driver, testOptions(t), zap.NewNop())

	_, err := mgr.Open(context.Background(), models.Scenario{Name: "boom"})
	require.Error(t, err)
	assert.ErrorIs(t, err, driver.LaunchErr)
	assert.Equal(t, 1, driver.Count("launch"))
	assert.Empty(t, mgr.Active())

	// the slot was released, so a second attempt is not blocked
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = mgr.Open(ctx, models.Scenario{Name: "boom again"})
	assert.ErrorIs(t, err, driver.LaunchErr)
}

func TestOpenUnwindsPartialAcquisition(t *testing.T) {
	driver := browsertest.NewDriver()
	driver.NewContextErr = errors.New("context refused")
	mgr := browser.NewManager(driver, testOptions(t), zap.NewNop())

	_, err := mgr.Open(context.Background(), models.Scenario{Name: "partial"})
	require.Error(t, err)
	assert.Equal(t, 1, driver.Count("browser.close"))
}

func TestReleaseClosesInReverseOrder(t *testing.T) {
	driver := browsertest.NewDriver()
	mgr := browser.NewManager(driver, testOptions(t), zap.NewNop())

	sess, err := mgr.Open(context.Background(), models.Scenario{Name: "teardown"})
	require.NoError(t, err)

	errs := mgr.Release(sess)
	assert.Empty(t, errs)

	events := driver.EventLog()
	tail := events[len(events)-3:]
	assert.Equal(t, []string{"page.close", "context.close", "browser.close"}, tail)
	assert.Equal(t, models.StatusClosed, sess.Info().Status)
	assert.True(t, sess.Closed())

	// second release is a no-op
	assert.Empty(t, mgr.Release(sess))
	assert.Equal(t, 1, driver.Count("browser.close"))
}

func TestOpenBlocksOnSlot(t *testing.T) {
	driver := browsertest.NewDriver()
	mgr := browser.NewManager(driver, testOptions(t), zap.NewNop())

	first, err := mgr.Open(context.Background(), models.Scenario{Name: "first"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = mgr.Open(ctx, models.Scenario{Name: "second"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	mgr.Release(first)
	second, err := mgr.Open(context.Background(), models.Scenario{Name: "second"})
	require.NoError(t, err)
	mgr.Release(second)
}

func TestStopTracingOnce(t *testing.T) {
	driver := browsertest.NewDriver()
	mgr := browser.NewManager(driver, testOptions(t), zap.NewNop())

	sess, err := mgr.Open(context.Background(), models.Scenario{Name: "trace"})
	require.NoError(t, err)

	require.NoError(t, sess.StopTracing(""))
	assert.ErrorIs(t, sess.StopTracing(""), browser.ErrTracingNotStarted)
	assert.Equal(t, 1, driver.Count("trace.discard"))
	mgr.Release(sess)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Browser.Type = "firefox"
	cfg.Browser.Trace.Enabled = false

	opts, err := browser.OptionsFromConfig(cfg, config.CI{Detected: true})
	require.NoError(t, err)
	assert.Equal(t, browser.Firefox, opts.Family)
	assert.True(t, opts.EffectiveHeadless())
	assert.Nil(t, opts.Trace)
	require.NotNil(t, opts.Video)
	assert.True(t, filepath.IsAbs(opts.Video.Dir))

	cfg.Browser.Type = "lynx"
	_, err = browser.OptionsFromConfig(cfg, config.CI{})
	assert.ErrorIs(t, err, browser.ErrUnknownFamily)
}

func TestParseFamily(t *testing.T) {
	f, err := browser.ParseFamily("")
	require.NoError(t, err)
	assert.Equal(t, browser.Chromium, f)

	f, err = browser.ParseFamily("WebKit")
	require.NoError(t, err)
	assert.Equal(t, browser.WebKit, f)

	f, err = browser.ParseFamily("chrome")
	require.NoError(t, err)
	assert.Equal(t, browser.Chromium, f)
}
