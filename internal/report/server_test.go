package report

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shehryarbajwa/browserbase-e2e/internal/ratelimit"
	"github.com/shehryarbajwa/browserbase-e2e/pkg/models"
)

func newTestServer(t *testing.T, limiter *ratelimit.Limiter) (*ResultWriter, string, http.Handler) {
	t.Helper()
	results := NewResultWriter(t.TempDir(), zap.NewNop())
	reportDir := t.TempDir()
	srv := NewServer(results, reportDir, limiter, zap.NewNop())
	return results, reportDir, srv.Router()
}

func TestServerHealth(t *testing.T) {
	_, _, h := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServerListAndGetResults(t *testing.T) {
	results, _, h := newTestServer(t, nil)
	passed, err := results.Start(models.Scenario{Name: "passes"}).Finish(models.ScenarioPassed, nil)
	require.NoError(t, err)
	_, err = results.Start(models.Scenario{Name: "fails"}).Finish(models.ScenarioFailed, nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/results", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var all []models.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 2)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/results?status=failed", nil))
	var failed []models.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &failed))
	require.Len(t, failed, 1)
	assert.Equal(t, "fails", failed[0].Name)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/results/"+passed.UUID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var one models.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &one))
	assert.Equal(t, "passes", one.Name)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/results/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerStaticReport(t *testing.T) {
	_, reportDir, h := newTestServer(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(reportDir, "cucumber_report.html"), []byte("<h1>report</h1>"), 0644))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report/cucumber_report.html", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "report")
}

func TestServerPreflight(t *testing.T) {
	_, _, h := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/v1/results", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "GET, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestServerRateLimit(t *testing.T) {
	_, _, h := newTestServer(t, ratelimit.NewLimiter(0.001, 1))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/results", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/results", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	// health is not limited
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
