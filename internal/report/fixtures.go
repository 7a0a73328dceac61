package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/shehryarbajwa/browserbase-e2e/pkg/models"
)

const (
	EnvironmentPropertiesFile = "environment.properties"
	EnvironmentJSONFile       = "environment.json"
	CategoriesFile            = "categories.json"
	ExecutorFile              = "executor.json"
	historyDir                = "history"
)

// Installer writes the fixture files the report renderer reads from the results directory.
type Installer struct {
	ResultsDir string
	// CategoriesSource is copied verbatim. Empty installs models.DefaultCategories.
	CategoriesSource string
	// EnvironmentFormat is "properties" (default) or "json".
	EnvironmentFormat string
	Logger            *zap.Logger
}

// Install writes environment, categories and executor files. Any error is
// fatal for the suite and is returned after logging.
func (in *Installer) Install(env models.Environment, executor models.Executor) error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"ensure results directory", in.ensureResultsDir},
		{"write environment", func() error { return in.WriteEnvironment(env) }},
		{"install categories", in.InstallCategories},
		{"write executor", func() error { return in.WriteExecutor(executor) }},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			in.logger().Error("report fixture setup failed", zap.String("step", step.name), zap.Error(err))
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}
	in.logger().Info("report fixtures installed",
		zap.String("dir", in.ResultsDir),
		zap.String("executor", executor.Name))
	return nil
}

func (in *Installer) logger() *zap.Logger {
	if in.Logger == nil {
		return zap.NewNop()
	}
	return in.Logger
}

func (in *Installer) ensureResultsDir() error {
	return os.MkdirAll(in.ResultsDir, 0755)
}

// WriteEnvironment writes environment.properties, or environment.json in json format
func (in *Installer) WriteEnvironment(env models.Environment) error {
	if in.EnvironmentFormat == "json" {
		return writeJSON(filepath.Join(in.ResultsDir, EnvironmentJSONFile), env)
	}
	path := filepath.Join(in.ResultsDir, EnvironmentPropertiesFile)
	return os.WriteFile(path, []byte(FormatProperties(env)), 0644)
}

// InstallCategories copies the categories document into the results directory.
// The source must parse as a list of valid rules; it is written byte for byte.
func (in *Installer) InstallCategories() error {
	target := filepath.Join(in.ResultsDir, CategoriesFile)
	if in.CategoriesSource == "" {
		return writeJSON(target, models.DefaultCategories())
	}

	data, err := os.ReadFile(in.CategoriesSource)
	if err != nil {
		return fmt.Errorf("read categories: %w", err)
	}
	if _, err := ParseCategories(data); err != nil {
		return fmt.Errorf("%s: %w", in.CategoriesSource, err)
	}
	return os.WriteFile(target, data, 0644)
}

// ParseCategories decodes and validates a categories document
func ParseCategories(data []byte) ([]models.Category, error) {
	var categories []models.Category
	if err := json.Unmarshal(data, &categories); err != nil {
		return nil, fmt.Errorf("invalid categories document: %w", err)
	}
	var errs []error
	for _, c := range categories {
		if err := c.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return categories, nil
}

func (in *Installer) WriteExecutor(executor models.Executor) error {
	return writeJSON(filepath.Join(in.ResultsDir, ExecutorFile), executor)
}

// CleanResults empties the results directory but keeps history/ so trend
// graphs survive between runs. A missing directory is created.
func CleanResults(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read results directory: %w", err)
	}
	for _, e := range entries {
		if e.Name() == historyDir {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("remove %s: %w", e.Name(), err)
		}
	}
	return os.MkdirAll(filepath.Join(dir, historyDir), 0755)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
