// Package pageutil wraps common Playwright interactions with visibility and
// enabled-state checks so steps stay short.
package pageutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// DefaultTimeout applies when a call passes no timeout
const DefaultTimeout = 10 * time.Second

var ErrNotEnabled = errors.New("element is not enabled")

// PageUtils drives a single page
type PageUtils struct {
	page          playwright.Page
	screenshotDir string
	logger        *zap.Logger
}

func New(page playwright.Page, screenshotDir string, logger *zap.Logger) *PageUtils {
	if screenshotDir == "" {
		screenshotDir = "screenshots"
	}
	return &PageUtils{page: page, screenshotDir: screenshotDir, logger: logger}
}

func (u *PageUtils) Page() playwright.Page {
	return u.page
}

func ms(timeout time.Duration) *float64 {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return playwright.Float(float64(timeout.Milliseconds()))
}

// WaitForElement waits until selector is visible and enabled
func (u *PageUtils) WaitForElement(selector string, timeout time.Duration) error {
	loc := u.page.Locator(selector).First()
	if err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: ms(timeout),
	}); err != nil {
		return fmt.Errorf("wait for %s: %w", selector, err)
	}
	enabled, err := loc.IsEnabled()
	if err != nil {
		return fmt.Errorf("check %s enabled: %w", selector, err)
	}
	if !enabled {
		return fmt.Errorf("%s: %w", selector, ErrNotEnabled)
	}
	return nil
}

func (u *PageUtils) FillTextbox(selector, value string, timeout time.Duration) error {
	if err := u.WaitForElement(selector, timeout); err != nil {
		return err
	}
	return u.page.Locator(selector).First().Fill(value)
}

// SelectDropdown tries a native <select>, then a button-driven listbox with
// role=option entries, then clicking the matching <option> directly.
func (u *PageUtils) SelectDropdown(selector, value string, timeout time.Duration) error {
	if err := u.WaitForElement(selector, timeout); err != nil {
		return err
	}
	loc := u.page.Locator(selector).First()

	_, nativeErr := loc.SelectOption(playwright.SelectOptionValues{Values: playwright.StringSlice(value)},
		playwright.LocatorSelectOptionOptions{Timeout: ms(timeout)})
	if nativeErr == nil {
		return nil
	}
	u.logger.Debug("native select failed, trying custom dropdown", zap.String("selector", selector), zap.Error(nativeErr))

	customErr := func() error {
		if err := loc.GetByRole(*playwright.AriaRoleButton).First().Click(playwright.LocatorClickOptions{Timeout: ms(timeout)}); err != nil {
			return err
		}
		return u.page.GetByRole(*playwright.AriaRoleOption, playwright.PageGetByRoleOptions{
			Name:  value,
			Exact: playwright.Bool(true),
		}).Click(playwright.LocatorClickOptions{Timeout: ms(timeout)})
	}()
	if customErr == nil {
		return nil
	}

	option := u.page.Locator(fmt.Sprintf(`%s option[value="%s"]`, selector, value))
	if err := option.Click(playwright.LocatorClickOptions{Timeout: ms(timeout)}); err != nil {
		return fmt.Errorf("select %q in %s: %w", value, selector, errors.Join(nativeErr, customErr, err))
	}
	return nil
}

func (u *PageUtils) HandleCheckbox(selector string, check bool, timeout time.Duration) error {
	if err := u.WaitForElement(selector, timeout); err != nil {
		return err
	}
	loc := u.page.Locator(selector).First()
	if check {
		return loc.Check()
	}
	return loc.Uncheck()
}

func (u *PageUtils) SelectRadioButton(selector string, timeout time.Duration) error {
	if err := u.WaitForElement(selector, timeout); err != nil {
		return err
	}
	return u.page.Locator(selector).First().Check()
}

func (u *PageUtils) UploadFile(selector, path string, timeout time.Duration) error {
	if err := u.WaitForElement(selector, timeout); err != nil {
		return err
	}
	if err := u.page.Locator(selector).First().SetInputFiles(path); err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	u.logger.Info("file uploaded", zap.String("path", path))
	return nil
}

func (u *PageUtils) ClickElement(selector string, timeout time.Duration) error {
	if err := u.WaitForElement(selector, timeout); err != nil {
		return err
	}
	return u.page.Locator(selector).First().Click()
}

func (u *PageUtils) GetText(selector string, timeout time.Duration) (string, error) {
	if err := u.WaitForElement(selector, timeout); err != nil {
		return "", err
	}
	return u.page.Locator(selector).First().TextContent()
}

func (u *PageUtils) GetAttribute(selector, name string, timeout time.Duration) (string, error) {
	if err := u.WaitForElement(selector, timeout); err != nil {
		return "", err
	}
	return u.page.Locator(selector).First().GetAttribute(name)
}

func (u *PageUtils) VerifyElementVisible(selector string, timeout time.Duration) error {
	if err := u.WaitForElement(selector, timeout); err != nil {
		return err
	}
	return playwright.NewPlaywrightAssertions(*ms(timeout)).Locator(u.page.Locator(selector).First()).ToBeVisible()
}

func (u *PageUtils) VerifyElementContainsText(selector, text string, timeout time.Duration) error {
	if err := u.WaitForElement(selector, timeout); err != nil {
		return err
	}
	return playwright.NewPlaywrightAssertions(*ms(timeout)).Locator(u.page.Locator(selector).First()).ToContainText(text)
}

// ElementExists reports whether selector attaches within timeout
func (u *PageUtils) ElementExists(selector string, timeout time.Duration) bool {
	err := u.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: ms(timeout),
	})
	return err == nil
}

func (u *PageUtils) ClearInput(selector string, timeout time.Duration) error {
	return u.FillTextbox(selector, "", timeout)
}

// TypeText clears the field then types key by key with delay between strokes
func (u *PageUtils) TypeText(selector, text string, delay, timeout time.Duration) error {
	if err := u.ClearInput(selector, timeout); err != nil {
		return err
	}
	return u.page.Locator(selector).First().PressSequentially(text, playwright.LocatorPressSequentiallyOptions{
		Delay: playwright.Float(float64(delay.Milliseconds())),
	})
}

// WaitForPageLoad waits for the network to go idle
func (u *PageUtils) WaitForPageLoad() error {
	return u.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateNetworkidle,
	})
}

func (u *PageUtils) NavigateTo(url string) error {
	if _, err := u.page.Goto(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return u.WaitForPageLoad()
}

// TakeScreenshot saves a full-page screenshot as <dir>/<name>_<unix ms>.png
func (u *PageUtils) TakeScreenshot(name string) (string, error) {
	if err := os.MkdirAll(u.screenshotDir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(u.screenshotDir, fmt.Sprintf("%s_%d.png", name, time.Now().UnixMilli()))
	if _, err := u.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	}); err != nil {
		return "", err
	}
	return path, nil
}

// WaitForText waits until the body's rendered text contains text
func (u *PageUtils) WaitForText(text string, timeout time.Duration) error {
	_, err := u.page.WaitForFunction(`(text) => document.body.innerText.includes(text)`, text,
		playwright.PageWaitForFunctionOptions{Timeout: ms(timeout)})
	return err
}

func (u *PageUtils) ScrollToElement(selector string) error {
	return u.page.Locator(selector).First().ScrollIntoViewIfNeeded()
}

// DialogResult describes a dialog handled by HandleDialog
type DialogResult struct {
	Type    string
	Message string
}

// HandleDialog arms a one-shot dialog handler, runs trigger, and waits for
// the dialog to be accepted or dismissed. It returns when the dialog was
// handled, the timeout elapses, or ctx is done.
func (u *PageUtils) HandleDialog(ctx context.Context, accept bool, promptText string, trigger func() error, timeout time.Duration) (DialogResult, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	handled := make(chan DialogResult, 1)
	failed := make(chan error, 1)

	handler := func(d playwright.Dialog) {
		res := DialogResult{Type: d.Type(), Message: d.Message()}
		var err error
		if accept {
			if promptText != "" {
				err = d.Accept(promptText)
			} else {
				err = d.Accept()
			}
		} else {
			err = d.Dismiss()
		}
		if err != nil {
			failed <- err
			return
		}
		handled <- res
	}
	u.page.Once("dialog", handler)
	defer u.page.RemoveListener("dialog", handler)

	// the triggering action blocks until the dialog is handled
	triggered := make(chan error, 1)
	go func() { triggered <- trigger() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var res DialogResult
	for done := false; !done; {
		select {
		case res = <-handled:
			done = true
		case err := <-failed:
			return DialogResult{}, fmt.Errorf("handle dialog: %w", err)
		case err := <-triggered:
			if err != nil {
				return DialogResult{}, fmt.Errorf("dialog trigger: %w", err)
			}
			triggered = nil
		case <-timer.C:
			return DialogResult{}, fmt.Errorf("no dialog within %s", timeout)
		case <-ctx.Done():
			return DialogResult{}, ctx.Err()
		}
	}
	return res, nil
}

// WaitForRequest runs trigger and returns the first request whose URL contains substr
func (u *PageUtils) WaitForRequest(ctx context.Context, substr string, trigger func() error, timeout time.Duration) (playwright.Request, error) {
	if trigger == nil {
		trigger = func() error { return nil }
	}
	type result struct {
		req playwright.Request
		err error
	}
	ch := make(chan result, 1)
	go func() {
		req, err := u.page.ExpectRequest(urlContains(substr), trigger, playwright.PageExpectRequestOptions{Timeout: ms(timeout)})
		ch <- result{req, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("wait for request %q: %w", substr, r.err)
		}
		return r.req, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// WaitForResponse runs trigger and returns the first response whose URL contains substr
func (u *PageUtils) WaitForResponse(ctx context.Context, substr string, trigger func() error, timeout time.Duration) (playwright.Response, error) {
	if trigger == nil {
		trigger = func() error { return nil }
	}
	type result struct {
		resp playwright.Response
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		resp, err := u.page.ExpectResponse(urlContains(substr), trigger, playwright.PageExpectResponseOptions{Timeout: ms(timeout)})
		ch <- result{resp, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("wait for response %q: %w", substr, r.err)
		}
		return r.resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func urlContains(substr string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(substr))
}
