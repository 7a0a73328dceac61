// Package lifecycle ties the suite and scenario hooks together: report
// fixtures before the suite, a browser session and world per scenario,
// diagnostics and teardown after it.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cucumber/godog"
	"go.uber.org/zap"

	"github.com/shehryarbajwa/browserbase-e2e/internal/apiclient"
	"github.com/shehryarbajwa/browserbase-e2e/internal/browser"
	"github.com/shehryarbajwa/browserbase-e2e/internal/config"
	"github.com/shehryarbajwa/browserbase-e2e/internal/dbutil"
	"github.com/shehryarbajwa/browserbase-e2e/internal/diagnostics"
	"github.com/shehryarbajwa/browserbase-e2e/internal/report"
	"github.com/shehryarbajwa/browserbase-e2e/internal/steps"
	"github.com/shehryarbajwa/browserbase-e2e/internal/testrail"
	"github.com/shehryarbajwa/browserbase-e2e/internal/world"
	"github.com/shehryarbajwa/browserbase-e2e/pkg/models"
)

// Options wires a Coordinator
type Options struct {
	Config config.Config
	CI     config.CI
	Driver browser.Driver
	Logger *zap.Logger
	// Steps registers step definitions. Nil registers the built-in steps.
	Steps func(*godog.ScenarioContext)
	// OpenDB replaces the database opener given to each world.
	OpenDB func() (*dbutil.DB, error)
}

// scenarioState is what BeforeScenario hands over to AfterScenario
type scenarioState struct {
	scenario models.Scenario
	world    *world.World
	record   *report.ScenarioRecord
}

// Coordinator owns everything that lives for the length of the suite
type Coordinator struct {
	cfg       config.Config
	ci        config.CI
	manager   *browser.Manager
	capturer  *diagnostics.Capturer
	results   *report.ResultWriter
	installer *report.Installer
	api       *apiclient.Client
	testrail  *testrail.Client
	steps     func(*godog.ScenarioContext)
	openDB    func() (*dbutil.DB, error)
	logger    *zap.Logger

	scenarios sync.Map // map[pickleID]*scenarioState

	mu      sync.Mutex
	summary *models.RunSummary
	started time.Time
}

func New(opts Options) (*Coordinator, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Driver == nil {
		return nil, errors.New("browser driver is required")
	}

	browserOpts, err := browser.OptionsFromConfig(opts.Config, opts.CI)
	if err != nil {
		return nil, err
	}
	api, err := apiclient.New(apiclient.OptionsFromConfig(opts.Config.API), logger.Named("api"))
	if err != nil {
		return nil, err
	}

	c := &Coordinator{
		cfg:      opts.Config,
		ci:       opts.CI,
		manager:  browser.NewManager(opts.Driver, browserOpts, logger.Named("browser")),
		capturer: diagnostics.New(diagnostics.PolicyFromConfig(opts.Config, opts.CI), logger.Named("diagnostics")),
		results:  report.NewResultWriter(opts.Config.Report.ResultsDir, logger.Named("report")).WithIssueURL(opts.Config.Report.IssueURLTemplate),
		installer: &report.Installer{
			ResultsDir:        opts.Config.Report.ResultsDir,
			CategoriesSource:  opts.Config.Report.CategoriesFile,
			EnvironmentFormat: opts.Config.Report.EnvironmentFormat,
			Logger:            logger.Named("report"),
		},
		api:     api,
		steps:   opts.Steps,
		openDB:  opts.OpenDB,
		logger:  logger,
		summary: models.NewRunSummary(),
	}
	if c.steps == nil {
		c.steps = steps.Register
	}
	if opts.Config.TestRail.Enabled() {
		c.testrail, err = testrail.New(opts.Config.TestRail, logger.Named("testrail"))
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Results exposes the writer scenario records go to
func (c *Coordinator) Results() *report.ResultWriter {
	return c.results
}

// Summary returns the scenario counts recorded so far
func (c *Coordinator) Summary() models.RunSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := *c.summary
	out.Scenarios = make(map[string]int, len(c.summary.Scenarios))
	for k, v := range c.summary.Scenarios {
		out.Scenarios[k] = v
	}
	return out
}

// BeforeSuite prepares the results directory and installs the report
// fixtures. An error means the suite must not run.
func (c *Coordinator) BeforeSuite() error {
	c.started = time.Now()
	if c.cfg.Report.Clean {
		if err := report.CleanResults(c.cfg.Report.ResultsDir); err != nil {
			return fmt.Errorf("clean results: %w", err)
		}
	}
	env := report.BuildEnvironment(c.cfg, c.ci)
	executor := report.BuildExecutor(c.cfg, c.ci)
	if err := c.installer.Install(env, executor); err != nil {
		return err
	}
	c.logger.Info("suite starting",
		zap.String("browser", string(c.manager.Options().Family)),
		zap.Bool("headless", c.manager.Options().EffectiveHeadless()),
		zap.Bool("ci", c.ci.Detected))
	return nil
}

// BeforeScenario opens the scenario's world. Scenarios tagged @api get no browser.
func (c *Coordinator) BeforeScenario(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
	s := ScenarioFromPickle(sc)

	var labels []models.Label
	if s.NeedsBrowser() {
		labels = append(labels, models.Label{Name: "browser", Value: string(c.manager.Options().Family)})
	}
	record := c.results.Start(s, labels...)

	var sess *browser.Session
	var openErr error
	if s.NeedsBrowser() {
		sess, openErr = c.manager.Open(ctx, s)
	}

	w := world.New(s, c.cfg, sess, c.api, c.logger, c.openDB)
	w.Attacher = record
	c.scenarios.Store(sc.Id, &scenarioState{scenario: s, world: w, record: record})

	ctx = world.NewContext(ctx, w)
	if openErr != nil {
		c.logger.Error("browser session failed to open", zap.String("scenario", s.Name), zap.Error(openErr))
		return ctx, openErr
	}
	return ctx, nil
}

// AfterScenario captures diagnostics, releases the browser and writes the
// scenario's result. The scenario error is passed through untouched.
func (c *Coordinator) AfterScenario(ctx context.Context, sc *godog.Scenario, scenarioErr error) (context.Context, error) {
	value, ok := c.scenarios.LoadAndDelete(sc.Id)
	if !ok {
		return ctx, nil
	}
	st := value.(*scenarioState)
	c.finish(context.WithoutCancel(ctx), st, StatusFromError(scenarioErr), scenarioErr)
	return ctx, nil
}

func (c *Coordinator) finish(ctx context.Context, st *scenarioState, status models.ScenarioStatus, cause error) {
	log := c.logger.With(zap.String("scenario", st.scenario.Name), zap.String("status", string(status)))

	if sess := st.world.Session; sess != nil {
		capture := c.capturer.Capture(ctx, sess, st.scenario, status == models.ScenarioFailed, st.record)
		if len(capture.Errors) > 0 {
			log.Warn("diagnostics incomplete", zap.Errors("errors", capture.Errors))
		}
		c.manager.Release(sess)
	}
	if err := st.world.Close(); err != nil {
		log.Warn("failed to close scenario resources", zap.Error(err))
	}

	if _, err := st.record.Finish(status, cause); err != nil {
		log.Error("failed to write scenario result", zap.Error(err))
	}

	if c.testrail != nil && len(testrail.CaseIDs(st.scenario.Tags)) > 0 {
		comment := fmt.Sprintf("Scenario %q %s", st.scenario.Name, status)
		if cause != nil {
			comment += ": " + cause.Error()
		}
		for _, err := range c.testrail.Report(ctx, st.scenario, status, comment) {
			log.Warn("testrail update failed", zap.Error(err))
		}
	}

	c.mu.Lock()
	c.summary.Scenarios[string(status)]++
	c.mu.Unlock()
	log.Info("scenario finished")
}

// AfterSuite finishes scenarios whose after hook never ran and closes any
// browser still open.
func (c *Coordinator) AfterSuite() {
	c.scenarios.Range(func(key, value any) bool {
		c.scenarios.Delete(key)
		st := value.(*scenarioState)
		c.finish(context.Background(), st, models.ScenarioFailed, errors.New("scenario did not finish"))
		return true
	})
	c.manager.ReleaseAll()

	summary := c.Summary()
	c.logger.Info("suite finished",
		zap.Int("scenarios", summary.TotalScenarios()),
		zap.Int("passed", summary.Scenarios[string(models.ScenarioPassed)]),
		zap.Int("failed", summary.Scenarios[string(models.ScenarioFailed)]),
		zap.Duration("elapsed", time.Since(c.started)))
}

// InitializeScenario is the godog scenario initializer
func (c *Coordinator) InitializeScenario(sc *godog.ScenarioContext) {
	sc.Before(c.BeforeScenario)
	sc.After(c.AfterScenario)
	if c.cfg.StepTimeout > 0 {
		sc.StepContext().Before(c.beforeStep)
		sc.StepContext().After(c.afterStep)
	}
	c.steps(sc)
}

type stepKey struct{}

type stepDeadline struct {
	parent context.Context
	cancel context.CancelFunc
}

// beforeStep bounds each step by the configured step timeout
func (c *Coordinator) beforeStep(ctx context.Context, _ *godog.Step) (context.Context, error) {
	stepCtx, cancel := context.WithTimeout(ctx, c.cfg.StepTimeout)
	return context.WithValue(stepCtx, stepKey{}, stepDeadline{parent: ctx, cancel: cancel}), nil
}

// afterStep releases the step deadline. The step error is already recorded
// by godog and is not returned again.
func (c *Coordinator) afterStep(ctx context.Context, _ *godog.Step, _ godog.StepResultStatus, _ error) (context.Context, error) {
	d, ok := ctx.Value(stepKey{}).(stepDeadline)
	if !ok {
		return ctx, nil
	}
	d.cancel()
	return d.parent, nil
}

// Suite builds the godog suite. BeforeSuite is not part of it; use Run.
func (c *Coordinator) Suite(opts godog.Options) godog.TestSuite {
	return godog.TestSuite{
		Name:                "e2e",
		ScenarioInitializer: c.InitializeScenario,
		TestSuiteInitializer: func(ts *godog.TestSuiteContext) {
			ts.AfterSuite(c.AfterSuite)
		},
		Options: &opts,
	}
}

// Run installs the report fixtures and runs the suite. A fixture error
// aborts the run before any scenario starts.
func (c *Coordinator) Run(opts godog.Options) (int, error) {
	if err := c.BeforeSuite(); err != nil {
		return 1, err
	}
	suite := c.Suite(opts)
	return suite.Run(), nil
}

// ScenarioFromPickle converts godog's scenario into the runner-independent model
func ScenarioFromPickle(sc *godog.Scenario) models.Scenario {
	s := models.Scenario{ID: sc.Id, Name: sc.Name, URI: sc.Uri}
	for _, tag := range sc.Tags {
		s.Tags = append(s.Tags, tag.Name)
	}
	return s
}

// StatusFromError maps the error godog hands the after hook to a result status
func StatusFromError(err error) models.ScenarioStatus {
	switch {
	case err == nil:
		return models.ScenarioPassed
	case errors.Is(err, godog.ErrPending):
		return models.ScenarioPending
	case errors.Is(err, godog.ErrUndefined):
		return models.ScenarioUndefined
	case errors.Is(err, godog.ErrSkip):
		return models.ScenarioSkipped
	default:
		return models.ScenarioFailed
	}
}
