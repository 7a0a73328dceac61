package testrail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shehryarbajwa/browserbase-e2e/internal/config"
	"github.com/shehryarbajwa/browserbase-e2e/pkg/models"
)

type call struct {
	uri  string
	user string
	key  string
	body addResultRequest
}

func newTestRail(t *testing.T, status int) (*Client, *[]call) {
	t.Helper()
	var mu sync.Mutex
	calls := &[]call{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var c call
		c.uri = r.URL.RequestURI()
		c.user, c.key, _ = r.BasicAuth()
		json.NewDecoder(r.Body).Decode(&c.body)
		mu.Lock()
		*calls = append(*calls, c)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(`{"id": 1}`))
	}))
	t.Cleanup(srv.Close)

	client, err := New(config.TestRailConfig{Host: srv.URL, Username: "qa@example.com", APIKey: "key", RunID: 12}, zap.NewNop())
	require.NoError(t, err)
	return client, calls
}

func TestAddResultForCase(t *testing.T) {
	client, calls := newTestRail(t, http.StatusOK)

	require.NoError(t, client.AddResultForCase(context.Background(), 12, 345, StatusFailed, "boom"))
	require.Len(t, *calls, 1)
	got := (*calls)[0]
	assert.Equal(t, "/index.php?/api/v2/add_result_for_case/12/345", got.uri)
	assert.Equal(t, "qa@example.com", got.user)
	assert.Equal(t, "key", got.key)
	assert.Equal(t, StatusFailed, got.body.StatusID)
	assert.Equal(t, "boom", got.body.Comment)
}

func TestAddResultForCaseError(t *testing.T) {
	client, _ := newTestRail(t, http.StatusBadRequest)
	assert.Error(t, client.AddResultForCase(context.Background(), 1, 2, StatusPassed, ""))
}

func TestReportPostsEveryTaggedCase(t *testing.T) {
	client, calls := newTestRail(t, http.StatusOK)
	sc := models.Scenario{Name: "checkout", Tags: []string{"@smoke", "@C1", "@C22", "@Cx"}}

	errs := client.Report(context.Background(), sc, models.ScenarioPassed, "")
	assert.Empty(t, errs)
	require.Len(t, *calls, 2)
	assert.Equal(t, "/index.php?/api/v2/add_result_for_case/12/22", (*calls)[1].uri)
	assert.Equal(t, StatusPassed, (*calls)[1].body.StatusID)
}

func TestCaseIDs(t *testing.T) {
	assert.Equal(t, []int{5, 1000}, CaseIDs([]string{"@C5", "@api", "@C1000", "C7"}))
	assert.Empty(t, CaseIDs(nil))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, StatusPassed, StatusFor(models.ScenarioPassed))
	assert.Equal(t, StatusFailed, StatusFor(models.ScenarioFailed))
	assert.Equal(t, StatusBlocked, StatusFor(models.ScenarioSkipped))
	assert.Equal(t, StatusRetest, StatusFor(models.ScenarioUndefined))
}
