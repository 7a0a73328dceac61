package steps

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cucumber/godog"
	"go.uber.org/zap"

	"github.com/shehryarbajwa/browserbase-e2e/internal/apiclient"
	"github.com/shehryarbajwa/browserbase-e2e/internal/jsonutil"
	"github.com/shehryarbajwa/browserbase-e2e/internal/world"
	"github.com/shehryarbajwa/browserbase-e2e/pkg/models"
)

var errNoResponse = errors.New("no API response recorded")

func registerAPI(sc *godog.ScenarioContext) {
	sc.Step(`^I set the request header "([^"]*)" to "([^"]*)"$`, setHeader)
	sc.Step(`^I send a (GET|DELETE) request to "([^"]*)"$`, sendRequest)
	sc.Step(`^I send a (POST|PUT) request to "([^"]*)" with payload "([^"]*)"$`, sendPayloadFile)
	sc.Step(`^I send a (POST|PUT) request to "([^"]*)" with body:$`, sendBody)
	sc.Step(`^the response status should be (\d+)$`, responseStatus)
	sc.Step(`^the response should contain fields "([^"]*)"$`, responseFields)
	sc.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, responseFieldEquals)
	sc.Step(`^the response should match "([^"]*)"$`, responseMatchesFile)
}

const headersVar = "request.headers"

func headers(w *world.World) map[string]string {
	h, _ := w.Vars[headersVar].(map[string]string)
	return h
}

func setHeader(ctx context.Context, name, value string) error {
	w, err := world.FromContext(ctx)
	if err != nil {
		return err
	}
	h := headers(w)
	if h == nil {
		h = map[string]string{}
		w.Vars[headersVar] = h
	}
	h[name] = value
	return nil
}

func send(ctx context.Context, method, endpoint string, payload any) error {
	w, err := world.FromContext(ctx)
	if err != nil {
		return err
	}
	if w.API == nil {
		return errors.New("API client is not configured")
	}

	resp, err := w.API.Do(ctx, method, endpoint, nil, payload, headers(w))
	w.LastResponse, w.LastErr = resp, err

	var httpErr *apiclient.HTTPError
	if err != nil && !errors.As(err, &httpErr) {
		return err
	}
	if resp != nil {
		if attachErr := w.Attach(ctx, method+" "+endpoint, mediaType(resp), resp.Body); attachErr != nil {
			w.Logger.Warn("failed to attach response", zap.Error(attachErr))
		}
	}
	// non-2xx is left to the status assertion
	return nil
}

func mediaType(resp *apiclient.Response) string {
	if resp.Data != nil {
		return models.MediaTypeJSON
	}
	return models.MediaTypeText
}

func sendRequest(ctx context.Context, method, endpoint string) error {
	return send(ctx, method, endpoint, nil)
}

func sendPayloadFile(ctx context.Context, method, endpoint, path string) error {
	payload, err := apiclient.LoadPayload(path)
	if err != nil {
		return err
	}
	return send(ctx, method, endpoint, payload)
}

func sendBody(ctx context.Context, method, endpoint string, body *godog.DocString) error {
	return send(ctx, method, endpoint, []byte(body.Content))
}

func lastResponse(ctx context.Context) (*apiclient.Response, error) {
	w, err := world.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	if w.LastResponse == nil {
		if w.LastErr != nil {
			return nil, fmt.Errorf("%w: %v", errNoResponse, w.LastErr)
		}
		return nil, errNoResponse
	}
	return w.LastResponse, nil
}

func responseStatus(ctx context.Context, want int) error {
	resp, err := lastResponse(ctx)
	if err != nil {
		return err
	}
	if resp.Status != want {
		return fmt.Errorf("expected status %d (%s), got %d: %s", want, http.StatusText(want), resp.Status, resp.Body)
	}
	return nil
}

func responseFields(ctx context.Context, fields string) error {
	resp, err := lastResponse(ctx)
	if err != nil {
		return err
	}
	return apiclient.ValidateResponse(resp, splitList(fields)...)
}

func responseFieldEquals(ctx context.Context, field, want string) error {
	resp, err := lastResponse(ctx)
	if err != nil {
		return err
	}
	obj := resp.Object()
	if obj == nil {
		return errors.New("response body is not a JSON object")
	}
	got, ok := obj[field]
	if !ok {
		return fmt.Errorf("response missing required field: %s", field)
	}
	if fmt.Sprint(got) != want {
		return fmt.Errorf("field %s: expected %q, got %q", field, want, fmt.Sprint(got))
	}
	return nil
}

func responseMatchesFile(ctx context.Context, path string) error {
	resp, err := lastResponse(ctx)
	if err != nil {
		return err
	}
	diffs, err := jsonutil.CompareFile(path, resp.Data)
	if err != nil {
		return err
	}
	if len(diffs) == 0 {
		return nil
	}
	lines := make([]string, len(diffs))
	for i, d := range diffs {
		lines[i] = d.String()
	}
	return fmt.Errorf("response does not match %s:\n%s", path, strings.Join(lines, "\n"))
}
