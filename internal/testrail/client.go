// Package testrail posts scenario outcomes to a TestRail run.
package testrail

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"go.uber.org/zap"

	"github.com/shehryarbajwa/browserbase-e2e/internal/apiclient"
	"github.com/shehryarbajwa/browserbase-e2e/internal/config"
	"github.com/shehryarbajwa/browserbase-e2e/pkg/models"
)

// Status is a TestRail result status id
type Status int

const (
	StatusPassed   Status = 1
	StatusBlocked  Status = 2
	StatusUntested Status = 3
	StatusRetest   Status = 4
	StatusFailed   Status = 5
)

// StatusFor maps a scenario outcome onto a TestRail status
func StatusFor(s models.ScenarioStatus) Status {
	switch s {
	case models.ScenarioPassed:
		return StatusPassed
	case models.ScenarioFailed:
		return StatusFailed
	case models.ScenarioSkipped:
		return StatusBlocked
	default:
		return StatusRetest
	}
}

var caseTag = regexp.MustCompile(`^@C(\d+)$`)

// CaseIDs returns the TestRail case ids named by @C<id> tags
func CaseIDs(tags []string) []int {
	var ids []int
	for _, t := range tags {
		m := caseTag.FindStringSubmatch(t)
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

type Client struct {
	api    *apiclient.Client
	runID  int
	logger *zap.Logger
}

// New builds a client authenticating with the username and API key
func New(cfg config.TestRailConfig, logger *zap.Logger) (*Client, error) {
	api, err := apiclient.New(apiclient.Options{
		BaseURL:  cfg.Host,
		Username: cfg.Username,
		Password: cfg.APIKey,
	}, logger)
	if err != nil {
		return nil, err
	}
	return &Client{api: api, runID: cfg.RunID, logger: logger}, nil
}

type addResultRequest struct {
	StatusID Status `json:"status_id"`
	Comment  string `json:"comment,omitempty"`
}

// AddResultForCase records one result against a case in a run
func (c *Client) AddResultForCase(ctx context.Context, runID, caseID int, status Status, comment string) error {
	endpoint := fmt.Sprintf("index.php?/api/v2/add_result_for_case/%d/%d", runID, caseID)
	if _, err := c.api.Post(ctx, endpoint, addResultRequest{StatusID: status, Comment: comment}, nil); err != nil {
		return fmt.Errorf("testrail case %d: %w", caseID, err)
	}
	c.logger.Info("testrail case updated", zap.Int("case", caseID), zap.Int("status", int(status)))
	return nil
}

// Report posts the outcome of a scenario for every case it is tagged with,
// against the configured run. Errors are collected, not short-circuited.
func (c *Client) Report(ctx context.Context, sc models.Scenario, status models.ScenarioStatus, comment string) []error {
	var errs []error
	for _, id := range CaseIDs(sc.Tags) {
		if err := c.AddResultForCase(ctx, c.runID, id, StatusFor(status), comment); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
