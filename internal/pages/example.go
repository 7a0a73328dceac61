// Package pages holds page objects. ExamplePage is the template new page
// objects are copied from.
package pages

import (
	"time"

	"github.com/shehryarbajwa/browserbase-e2e/internal/pageutil"
)

// Selectors used by ExamplePage
const (
	ExampleButton  = "#example-button"
	ExampleInput   = "#example-input"
	SubmitButton   = "#submit-button"
	ResultElement  = "#result"
	SuccessMessage = "#success-message"
	MessageElement = "#message"
)

type ExamplePage struct {
	utils   *pageutil.PageUtils
	timeout time.Duration
}

// NewExamplePage binds the page object to a page. A zero timeout uses pageutil.DefaultTimeout.
func NewExamplePage(utils *pageutil.PageUtils, timeout time.Duration) *ExamplePage {
	return &ExamplePage{utils: utils, timeout: timeout}
}

func (p *ExamplePage) Navigate(url string) error {
	return p.utils.NavigateTo(url)
}

func (p *ExamplePage) ClickExampleButton() error {
	return p.utils.ClickElement(ExampleButton, p.timeout)
}

func (p *ExamplePage) FillExampleInput(value string) error {
	return p.utils.FillTextbox(ExampleInput, value, p.timeout)
}

func (p *ExamplePage) ClickSubmitButton() error {
	return p.utils.ClickElement(SubmitButton, p.timeout)
}

func (p *ExamplePage) ResultText() (string, error) {
	return p.utils.GetText(ResultElement, p.timeout)
}

func (p *ExamplePage) SuccessMessage() (string, error) {
	return p.utils.GetText(SuccessMessage, p.timeout)
}

func (p *ExamplePage) MessageText() (string, error) {
	return p.utils.GetText(MessageElement, p.timeout)
}

// VerifyResultVisible fails unless the result element is shown
func (p *ExamplePage) VerifyResultVisible() error {
	return p.utils.VerifyElementVisible(ResultElement, p.timeout)
}

func (p *ExamplePage) VerifySuccessMessage(text string) error {
	return p.utils.VerifyElementContainsText(SuccessMessage, text, p.timeout)
}

func (p *ExamplePage) VerifyMessage(text string) error {
	return p.utils.VerifyElementContainsText(MessageElement, text, p.timeout)
}

func (p *ExamplePage) WaitForElement(selector string) error {
	return p.utils.WaitForElement(selector, p.timeout)
}
