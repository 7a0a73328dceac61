// Package browsertest provides an in-memory browser.Driver for tests.
package browsertest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/shehryarbajwa/browserbase-e2e/internal/browser"
)

// Driver records every call made through the browser interfaces.
type Driver struct {
	mu sync.Mutex

	// LaunchErr, when set, makes every Launch fail.
	LaunchErr     error
	NewContextErr error
	ScreenshotErr error
	StopTraceErr  error
	// Screenshot is returned by Page.Screenshot.
	Screenshot []byte
	// TraceBody is written to the trace path on StopTracing.
	TraceBody []byte
	// VideoBody is written when a video is saved.
	VideoBody []byte

	Launches  []browser.LaunchOptions
	Families  []browser.Family
	Instances []*Instance
	// Events is the ordered log of lifecycle calls across all fakes.
	Events []string
}

func NewDriver() *Driver {
	return &Driver{
		Screenshot: []byte("\x89PNG fake"),
		TraceBody:  []byte("PK fake trace"),
		VideoBody:  []byte("webm fake"),
	}
}

func (d *Driver) record(event string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Events = append(d.Events, event)
}

// Count returns how many times event was recorded
func (d *Driver) Count(event string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, e := range d.Events {
		if e == event {
			n++
		}
	}
	return n
}

// EventLog returns a copy of the recorded events
func (d *Driver) EventLog() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.Events...)
}

func (d *Driver) Launch(_ context.Context, family browser.Family, opts browser.LaunchOptions) (browser.Instance, error) {
	d.record("launch")
	if d.LaunchErr != nil {
		return nil, d.LaunchErr
	}
	inst := &Instance{driver: d}
	d.mu.Lock()
	d.Launches = append(d.Launches, opts)
	d.Families = append(d.Families, family)
	d.Instances = append(d.Instances, inst)
	d.mu.Unlock()
	return inst, nil
}

type Instance struct {
	driver   *Driver
	Contexts []*Context
	closed   bool
}

func (i *Instance) NewContext(opts browser.ContextOptions) (browser.Context, error) {
	i.driver.record("context.new")
	if i.driver.NewContextErr != nil {
		return nil, i.driver.NewContextErr
	}
	c := &Context{driver: i.driver, Options: opts}
	i.Contexts = append(i.Contexts, c)
	return c, nil
}

func (i *Instance) Close() error {
	i.driver.record("browser.close")
	if i.closed {
		return errors.New("browser already closed")
	}
	i.closed = true
	return nil
}

type Context struct {
	driver  *Driver
	Options browser.ContextOptions
	Pages   []*Page
	Trace   *browser.TraceOptions
	closed  bool
}

func (c *Context) NewPage() (browser.Page, error) {
	c.driver.record("page.new")
	p := &Page{driver: c.driver}
	if c.Options.RecordVideo != nil {
		p.video = &Video{driver: c.driver, page: p, path: filepath.Join(c.Options.RecordVideo.Dir, "page-video.webm")}
	}
	c.Pages = append(c.Pages, p)
	return p, nil
}

func (c *Context) StartTracing(opts browser.TraceOptions) error {
	c.driver.record("trace.start")
	c.Trace = &opts
	return nil
}

func (c *Context) StopTracing(path string) error {
	if path == "" {
		c.driver.record("trace.discard")
	} else {
		c.driver.record("trace.save")
	}
	if c.driver.StopTraceErr != nil {
		return c.driver.StopTraceErr
	}
	if path != "" {
		return os.WriteFile(path, c.driver.TraceBody, 0644)
	}
	return nil
}

func (c *Context) Close() error {
	c.driver.record("context.close")
	c.closed = true
	return nil
}

type Page struct {
	driver  *Driver
	video   *Video
	Width   int
	Height  int
	Timeout float64
	closed  bool
}

func (p *Page) Screenshot() ([]byte, error) {
	p.driver.record("screenshot")
	if p.driver.ScreenshotErr != nil {
		return nil, p.driver.ScreenshotErr
	}
	return p.driver.Screenshot, nil
}

func (p *Page) Video() browser.Video {
	if p.video == nil {
		return nil
	}
	return p.video
}

func (p *Page) SetViewportSize(width, height int) error {
	p.Width, p.Height = width, height
	return nil
}

func (p *Page) SetDefaultTimeout(timeout float64) {
	p.Timeout = timeout
}

func (p *Page) Close() error {
	p.driver.record("page.close")
	p.closed = true
	return nil
}

func (p *Page) Playwright() playwright.Page {
	return nil
}

type Video struct {
	driver *Driver
	page   *Page
	path   string
}

func (v *Video) Path() (string, error) {
	v.driver.record("video.path")
	return v.path, nil
}

// SaveAs fails while the page is open, mirroring Playwright blocking until the page closes.
func (v *Video) SaveAs(path string) error {
	v.driver.record("video.save")
	if !v.page.closed {
		return errors.New("page still open: video not finalised")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, v.driver.VideoBody, 0644)
}
