// Package diagnostics persists screenshots, videos and traces for failed scenarios.
package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/shehryarbajwa/browserbase-e2e/internal/browser"
	"github.com/shehryarbajwa/browserbase-e2e/internal/config"
	"github.com/shehryarbajwa/browserbase-e2e/pkg/models"
)

// Attacher adds an artifact to the report record of the current scenario.
type Attacher interface {
	Attach(ctx context.Context, artifact models.Artifact) error
}

// Policy decides where artifacts go and which are persisted locally.
type Policy struct {
	CI bool
	// SaveVideoOnCI keeps the local video save on CI.
	SaveVideoOnCI bool
	VideoDir      string
	TraceDir      string
	// VideoSettle is waited after saving a video before it is read back.
	VideoSettle time.Duration
}

func PolicyFromConfig(cfg config.Config, ci config.CI) Policy {
	return Policy{
		CI:            ci.Detected,
		SaveVideoOnCI: cfg.Artifacts.SaveVideoOnCI,
		VideoDir:      cfg.Browser.Video.Dir,
		TraceDir:      cfg.Browser.Trace.Dir,
		VideoSettle:   cfg.Artifacts.VideoSettle,
	}
}

func (p Policy) skipVideoSave() bool {
	return p.CI && !p.SaveVideoOnCI
}

// Report records what a capture pass did.
type Report struct {
	ScreenshotAttempted bool
	VideoPath           string
	VideoSaveSkipped    bool
	TraceStopped        bool
	TracePath           string
	Attached            []models.Artifact
	Errors              []error
}

func (r *Report) fail(step string, err error) {
	r.Errors = append(r.Errors, fmt.Errorf("%s: %w", step, err))
}

type Capturer struct {
	policy Policy
	logger *zap.Logger
}

func New(policy Policy, logger *zap.Logger) *Capturer {
	return &Capturer{policy: policy, logger: logger}
}

// Capture inspects the finished scenario and persists diagnostics. Nothing is
// attached for a passing scenario. Tracing, if running, is stopped in every
// case. Each step is independent: a failure is logged and the next step runs.
func (c *Capturer) Capture(ctx context.Context, sess *browser.Session, scenario models.Scenario, failed bool, attacher Attacher) Report {
	var report Report
	if sess == nil {
		return report
	}
	log := c.logger.With(zap.String("scenario", scenario.Name), zap.String("session", sess.ID()))

	if failed {
		c.guard(log, &report, "screenshot", func() error {
			return c.captureScreenshot(ctx, sess, scenario, attacher, &report)
		})
		c.guard(log, &report, "video", func() error {
			return c.captureVideo(ctx, log, sess, scenario, attacher, &report)
		})
	}
	c.guard(log, &report, "trace", func() error {
		return c.stopTrace(ctx, log, sess, scenario, failed, attacher, &report)
	})

	return report
}

func (c *Capturer) guard(log *zap.Logger, report *Report, step string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			log.Error("diagnostic capture panicked", zap.String("step", step), zap.Error(err))
			report.fail(step, err)
		}
	}()
	if err := fn(); err != nil {
		log.Warn("diagnostic capture failed", zap.String("step", step), zap.Error(err))
		report.fail(step, err)
	}
}

func (c *Capturer) captureScreenshot(ctx context.Context, sess *browser.Session, scenario models.Scenario, attacher Attacher, report *Report) error {
	page := sess.Page()
	if page == nil {
		return nil
	}
	report.ScreenshotAttempted = true
	body, err := page.Screenshot()
	if err != nil {
		return err
	}
	return c.attach(ctx, attacher, report, models.Artifact{
		Kind:      models.ArtifactScreenshot,
		Name:      scenario.ArtifactBase() + ".png",
		MediaType: models.MediaTypePNG,
		Body:      body,
	})
}

func (c *Capturer) captureVideo(ctx context.Context, log *zap.Logger, sess *browser.Session, scenario models.Scenario, attacher Attacher, report *Report) error {
	page := sess.Page()
	if page == nil {
		return nil
	}
	video := page.Video()
	if video == nil {
		return nil
	}

	path, err := video.Path()
	if err != nil {
		return fmt.Errorf("resolve video path: %w", err)
	}
	report.VideoPath = path
	log.Info("video recording found", zap.String("path", path))

	if c.policy.skipVideoSave() {
		report.VideoSaveSkipped = true
		log.Info("CI environment detected, skipping local video save; the videos directory is uploaded as a build artifact")
		return nil
	}

	// the recording is only finalised once the page is closed
	if err := sess.ClosePage(); err != nil {
		return fmt.Errorf("close page for video: %w", err)
	}

	target := filepath.Join(c.policy.VideoDir, scenario.ArtifactBase()+".webm")
	if err := video.SaveAs(target); err != nil {
		return fmt.Errorf("save video: %w", err)
	}
	if c.policy.VideoSettle > 0 {
		select {
		case <-time.After(c.policy.VideoSettle):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	body, err := os.ReadFile(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn("video file not found after saving, skipping attachment", zap.String("path", target))
			return nil
		}
		return err
	}
	report.VideoPath = target
	return c.attach(ctx, attacher, report, models.Artifact{
		Kind:      models.ArtifactVideo,
		Name:      scenario.ArtifactBase() + ".webm",
		MediaType: models.MediaTypeWebM,
		Body:      body,
		Path:      target,
	})
}

func (c *Capturer) stopTrace(ctx context.Context, log *zap.Logger, sess *browser.Session, scenario models.Scenario, failed bool, attacher Attacher, report *Report) error {
	if !sess.Tracing() {
		return nil
	}

	if !failed {
		report.TraceStopped = true
		return sess.StopTracing("")
	}

	if err := os.MkdirAll(c.policy.TraceDir, 0755); err != nil {
		// tracing must still end even when the archive cannot be kept
		report.TraceStopped = true
		if stopErr := sess.StopTracing(""); stopErr != nil {
			log.Warn("failed to discard trace", zap.Error(stopErr))
		}
		return fmt.Errorf("create trace directory: %w", err)
	}

	name := scenario.ArtifactBase() + ".zip"
	path := filepath.Join(c.policy.TraceDir, name)
	report.TraceStopped = true
	if err := sess.StopTracing(path); err != nil {
		return fmt.Errorf("save trace: %w", err)
	}
	report.TracePath = path
	log.Info("trace saved for failed scenario", zap.String("path", path))

	body, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn("trace file not found, skipping attachment", zap.String("path", path))
			return nil
		}
		return err
	}
	return c.attach(ctx, attacher, report, models.Artifact{
		Kind:      models.ArtifactTrace,
		Name:      name,
		MediaType: models.MediaTypeZip,
		Body:      body,
		Path:      path,
	})
}

func (c *Capturer) attach(ctx context.Context, attacher Attacher, report *Report, artifact models.Artifact) error {
	if attacher == nil {
		return nil
	}
	if err := attacher.Attach(ctx, artifact); err != nil {
		return fmt.Errorf("attach %s: %w", artifact.Kind, err)
	}
	report.Attached = append(report.Attached, artifact)
	return nil
}
