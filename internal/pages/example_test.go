package pages

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shehryarbajwa/browserbase-e2e/internal/pageutil"
)

// examplePage serves the markup ExamplePage expects
const examplePage = `<!DOCTYPE html>
<html><body>
<button id="example-button" onclick="document.getElementById('result').hidden = false">Go</button>
<div id="result" hidden>Done</div>
<form onsubmit="event.preventDefault(); document.getElementById('success-message').innerText = 'Success'; document.getElementById('message').innerText = 'Form submitted successfully: ' + document.getElementById('example-input').value">
<input id="example-input" type="text">
<button id="submit-button" type="submit">Submit</button>
</form>
<div id="success-message"></div>
<div id="message"></div>
</body></html>`

func TestExamplePageFlow(t *testing.T) {
	if os.Getenv("E2E_BROWSER_TESTS") == "" {
		t.Skip("set E2E_BROWSER_TESTS=1 to run browser tests")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, examplePage)
	}))
	defer srv.Close()

	pw, err := playwright.Run()
	require.NoError(t, err)
	defer pw.Stop()
	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{Headless: playwright.Bool(true)})
	require.NoError(t, err)
	defer b.Close()
	page, err := b.NewPage()
	require.NoError(t, err)

	p := NewExamplePage(pageutil.New(page, t.TempDir(), zap.NewNop()), 2*time.Second)
	require.NoError(t, p.Navigate(srv.URL))

	require.NoError(t, p.ClickExampleButton())
	require.NoError(t, p.VerifyResultVisible())
	text, err := p.ResultText()
	require.NoError(t, err)
	assert.Equal(t, "Done", text)

	require.NoError(t, p.FillExampleInput("test value"))
	require.NoError(t, p.ClickSubmitButton())
	require.NoError(t, p.VerifySuccessMessage("Success"))
	require.NoError(t, p.VerifyMessage("Form submitted successfully"))

	msg, err := p.MessageText()
	require.NoError(t, err)
	assert.Contains(t, msg, "test value")
}
