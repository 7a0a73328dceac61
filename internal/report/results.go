package report

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shehryarbajwa/browserbase-e2e/pkg/models"
)

var ErrResultNotFound = errors.New("result not found")

const resultSuffix = "-result.json"

// ResultWriter emits one Allure result file per scenario, plus its attachments.
type ResultWriter struct {
	dir      string
	issueURL string
	logger   *zap.Logger
	now      func() time.Time
}

func NewResultWriter(dir string, logger *zap.Logger) *ResultWriter {
	return &ResultWriter{dir: dir, logger: logger, now: time.Now}
}

// WithIssueURL links @jira:KEY tags to the tracker. %s in template is replaced by KEY.
func (w *ResultWriter) WithIssueURL(template string) *ResultWriter {
	w.issueURL = template
	return w
}

const issueTagPrefix = "@jira:"

func (w *ResultWriter) links(tags []string) []models.Link {
	if w.issueURL == "" {
		return nil
	}
	var links []models.Link
	for _, tag := range tags {
		key, ok := strings.CutPrefix(tag, issueTagPrefix)
		if !ok || key == "" {
			continue
		}
		links = append(links, models.Link{
			Name: key,
			URL:  strings.ReplaceAll(w.issueURL, "%s", key),
			Type: "issue",
		})
	}
	return links
}

func (w *ResultWriter) Dir() string {
	return w.dir
}

// Start opens the report record for a scenario
func (w *ResultWriter) Start(sc models.Scenario, extra ...models.Label) *ScenarioRecord {
	labels := []models.Label{
		{Name: "framework", Value: "godog"},
		{Name: "language", Value: "go"},
	}
	if sc.URI != "" {
		labels = append(labels, models.Label{Name: "feature", Value: strings.TrimSuffix(filepath.Base(sc.URI), filepath.Ext(sc.URI))})
	}
	for _, tag := range sc.Tags {
		labels = append(labels, models.Label{Name: "tag", Value: strings.TrimPrefix(tag, "@")})
	}
	labels = append(labels, extra...)

	fullName := sc.Name
	if sc.URI != "" {
		fullName = sc.URI + ": " + sc.Name
	}
	return &ScenarioRecord{
		writer: w,
		result: models.Result{
			UUID:        uuid.New().String(),
			HistoryID:   historyID(sc),
			TestCaseID:  historyID(models.Scenario{Name: sc.Name}),
			Name:        sc.Name,
			FullName:    fullName,
			Stage:       "running",
			Start:       w.now().UnixMilli(),
			Labels:      labels,
			Links:       w.links(sc.Tags),
			Attachments: []models.Attachment{},
		},
	}
}

func historyID(sc models.Scenario) string {
	sum := sha256.Sum256([]byte(sc.URI + "\x00" + sc.Name))
	return hex.EncodeToString(sum[:16])
}

// ScenarioRecord collects attachments for one scenario until Finish.
type ScenarioRecord struct {
	mu       sync.Mutex
	writer   *ResultWriter
	result   models.Result
	finished bool
}

func (r *ScenarioRecord) UUID() string {
	return r.result.UUID
}

// Attach stores the artifact body next to the result and references it
func (r *ScenarioRecord) Attach(_ context.Context, artifact models.Artifact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return fmt.Errorf("scenario %q already finished", r.result.Name)
	}

	source := fmt.Sprintf("%s-attachment.%s", uuid.New().String(), artifact.Extension())
	if err := os.MkdirAll(r.writer.dir, 0755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(r.writer.dir, source), artifact.Body, 0644); err != nil {
		return fmt.Errorf("write attachment: %w", err)
	}

	r.result.Attachments = append(r.result.Attachments, models.Attachment{
		Name:   artifact.Name,
		Source: source,
		Type:   artifact.MediaType,
	})
	return nil
}

// Attachments returns the attachments recorded so far
func (r *ScenarioRecord) Attachments() []models.Attachment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Attachment(nil), r.result.Attachments...)
}

// Finish writes the result file. cause is the scenario error, if any.
func (r *ScenarioRecord) Finish(status models.ScenarioStatus, cause error) (models.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return r.result, nil
	}
	r.finished = true

	r.result.Status = allureStatus(status)
	r.result.Stage = models.StageFinished
	r.result.Stop = r.writer.now().UnixMilli()
	if cause != nil {
		r.result.StatusDetails = &models.StatusDetails{
			Message: cause.Error(),
			Trace:   fmt.Sprintf("%+v", cause),
		}
	}

	if err := os.MkdirAll(r.writer.dir, 0755); err != nil {
		return r.result, err
	}
	path := filepath.Join(r.writer.dir, r.result.UUID+resultSuffix)
	if err := writeJSON(path, r.result); err != nil {
		return r.result, fmt.Errorf("write result: %w", err)
	}
	r.writer.logger.Debug("result written", zap.String("scenario", r.result.Name), zap.String("status", string(status)))
	return r.result, nil
}

// allureStatus maps runner statuses onto the ones the report renderer knows
func allureStatus(status models.ScenarioStatus) models.ScenarioStatus {
	switch status {
	case models.ScenarioPending:
		return models.ScenarioSkipped
	case models.ScenarioUndefined:
		return models.ScenarioBroken
	default:
		return status
	}
}

// List reads every result in the directory, newest first
func (w *ResultWriter) List() ([]models.Result, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.Result{}, nil
		}
		return nil, err
	}

	results := []models.Result{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), resultSuffix) {
			continue
		}
		res, err := w.read(filepath.Join(w.dir, e.Name()))
		if err != nil {
			w.logger.Warn("skipping unreadable result", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		results = append(results, res)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Start > results[j].Start })
	return results, nil
}

// Get reads a single result by UUID
func (w *ResultWriter) Get(id string) (models.Result, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Result{}, ErrResultNotFound
	}
	res, err := w.read(filepath.Join(w.dir, id+resultSuffix))
	if errors.Is(err, os.ErrNotExist) {
		return models.Result{}, ErrResultNotFound
	}
	return res, err
}

func (w *ResultWriter) read(path string) (models.Result, error) {
	var res models.Result
	data, err := os.ReadFile(path)
	if err != nil {
		return res, err
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return res, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return res, nil
}
