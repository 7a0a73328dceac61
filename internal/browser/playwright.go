package browser

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// PlaywrightOptions configures the Playwright driver process.
type PlaywrightOptions struct {
	// Install downloads the driver and the listed browsers before starting.
	Install  bool
	Browsers []string
	// Remote, when set, runs every browser in a docker container and attaches over CDP.
	Remote *RemotePool
}

// PlaywrightDriver launches browsers through playwright-go
type PlaywrightDriver struct {
	pw     *playwright.Playwright
	remote *RemotePool
	logger *zap.Logger
}

// StartPlaywright starts the Playwright driver process
func StartPlaywright(opts PlaywrightOptions, logger *zap.Logger) (*PlaywrightDriver, error) {
	if opts.Install {
		if err := playwright.Install(&playwright.RunOptions{Browsers: opts.Browsers}); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	return &PlaywrightDriver{
		pw:     pw,
		remote: opts.Remote,
		logger: logger,
	}, nil
}

func (d *PlaywrightDriver) browserType(family Family) (playwright.BrowserType, error) {
	switch family {
	case Chromium:
		return d.pw.Chromium, nil
	case Firefox:
		return d.pw.Firefox, nil
	case WebKit:
		return d.pw.WebKit, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFamily, family)
	}
}

// Launch starts a browser locally, or in a container when a remote pool is configured
func (d *PlaywrightDriver) Launch(ctx context.Context, family Family, opts LaunchOptions) (Instance, error) {
	if d.remote != nil {
		return d.launchRemote(ctx, family)
	}

	bt, err := d.browserType(family)
	if err != nil {
		return nil, err
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     opts.Args,
	}
	if opts.Timeout > 0 {
		launchOpts.Timeout = playwright.Float(float64(opts.Timeout.Milliseconds()))
	}

	b, err := bt.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch %s: %w", family, err)
	}
	return &pwInstance{browser: b}, nil
}

func (d *PlaywrightDriver) launchRemote(ctx context.Context, family Family) (Instance, error) {
	if family != Chromium {
		return nil, fmt.Errorf("remote browsers only support chromium, got %s", family)
	}

	endpoint, err := d.remote.Launch(ctx, uuid.New().String())
	if err != nil {
		return nil, err
	}

	b, err := d.pw.Chromium.ConnectOverCDP(endpoint.WSURL)
	if err != nil {
		if stopErr := d.remote.Stop(context.Background(), endpoint.ContainerID); stopErr != nil {
			d.logger.Warn("failed to stop remote browser", zap.String("container", endpoint.ContainerID), zap.Error(stopErr))
		}
		return nil, fmt.Errorf("failed to connect to remote browser: %w", err)
	}

	return &pwInstance{
		browser: b,
		onClose: func() error {
			return d.remote.Stop(context.Background(), endpoint.ContainerID)
		},
	}, nil
}

// Stop shuts the driver process down
func (d *PlaywrightDriver) Stop() error {
	return d.pw.Stop()
}

type pwInstance struct {
	browser playwright.Browser
	onClose func() error
}

func (i *pwInstance) NewContext(opts ContextOptions) (Context, error) {
	ctxOpts := playwright.BrowserNewContextOptions{}
	if opts.Viewport != nil {
		ctxOpts.Viewport = &playwright.Size{Width: opts.Viewport.Width, Height: opts.Viewport.Height}
	} else {
		ctxOpts.NoViewport = playwright.Bool(true)
	}
	if opts.RecordVideo != nil {
		ctxOpts.RecordVideo = &playwright.RecordVideo{
			Dir:  opts.RecordVideo.Dir,
			Size: &playwright.Size{Width: opts.RecordVideo.Width, Height: opts.RecordVideo.Height},
		}
	}
	if opts.BaseURL != "" {
		ctxOpts.BaseURL = playwright.String(opts.BaseURL)
	}

	c, err := i.browser.NewContext(ctxOpts)
	if err != nil {
		return nil, err
	}
	return &pwContext{context: c}, nil
}

func (i *pwInstance) Close() error {
	err := i.browser.Close()
	if i.onClose != nil {
		if stopErr := i.onClose(); stopErr != nil && err == nil {
			err = stopErr
		}
	}
	return err
}

type pwContext struct {
	context playwright.BrowserContext
}

func (c *pwContext) NewPage() (Page, error) {
	p, err := c.context.NewPage()
	if err != nil {
		return nil, err
	}
	return &pwPage{page: p}, nil
}

func (c *pwContext) StartTracing(opts TraceOptions) error {
	startOpts := playwright.TracingStartOptions{
		Screenshots: playwright.Bool(opts.Screenshots),
		Snapshots:   playwright.Bool(opts.Snapshots),
	}
	if opts.Name != "" {
		startOpts.Name = playwright.String(opts.Name)
	}
	return c.context.Tracing().Start(startOpts)
}

func (c *pwContext) StopTracing(path string) error {
	if path == "" {
		return c.context.Tracing().Stop()
	}
	return c.context.Tracing().Stop(path)
}

func (c *pwContext) Close() error {
	return c.context.Close()
}

type pwPage struct {
	page playwright.Page
}

func (p *pwPage) Screenshot() ([]byte, error) {
	return p.page.Screenshot(playwright.PageScreenshotOptions{FullPage: playwright.Bool(true)})
}

func (p *pwPage) Video() Video {
	v := p.page.Video()
	if v == nil {
		return nil
	}
	return v
}

func (p *pwPage) SetViewportSize(width, height int) error {
	return p.page.SetViewportSize(width, height)
}

func (p *pwPage) SetDefaultTimeout(timeout float64) {
	p.page.SetDefaultTimeout(timeout)
}

func (p *pwPage) Close() error {
	return p.page.Close()
}

func (p *pwPage) Playwright() playwright.Page {
	return p.page
}
