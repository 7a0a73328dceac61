package browser

import (
	"context"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Driver launches browser instances. PlaywrightDriver is the production implementation.
type Driver interface {
	Launch(ctx context.Context, family Family, opts LaunchOptions) (Instance, error)
}

// Instance is a running browser. It owns its contexts.
type Instance interface {
	NewContext(opts ContextOptions) (Context, error)
	Close() error
}

// Context is an isolated browsing context. It owns its pages.
type Context interface {
	NewPage() (Page, error)
	StartTracing(opts TraceOptions) error
	// StopTracing ends the tracing session, writing the archive to path.
	// An empty path discards the recording.
	StopTracing(path string) error
	Close() error
}

// Page is a single tab.
type Page interface {
	// Screenshot captures the full scrollable page as PNG.
	Screenshot() ([]byte, error)
	// Video returns nil when the context is not recording.
	Video() Video
	SetViewportSize(width, height int) error
	SetDefaultTimeout(timeout float64)
	Close() error
	// Playwright exposes the underlying page to step definitions. Nil for fakes.
	Playwright() playwright.Page
}

// Video is the recording attached to a page. The file is finalised when the page closes.
type Video interface {
	Path() (string, error)
	SaveAs(path string) error
}

type LaunchOptions struct {
	Headless bool
	Args     []string
	Timeout  time.Duration
}

type Viewport struct {
	Width  int
	Height int
}

type VideoOptions struct {
	Dir    string
	Width  int
	Height int
}

type TraceOptions struct {
	Name        string
	Screenshots bool
	Snapshots   bool
}

type ContextOptions struct {
	// Viewport nil lets the window size drive the viewport.
	Viewport    *Viewport
	RecordVideo *VideoOptions
	BaseURL     string
}
