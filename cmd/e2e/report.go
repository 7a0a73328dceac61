package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shehryarbajwa/browserbase-e2e/internal/report"
	"github.com/shehryarbajwa/browserbase-e2e/pkg/models"
)

func init() {
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the cucumber JSON output as a standalone HTML report",
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := generateHTML()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", cfg.Report.HTMLOutput, formatSummary(summary))
		return nil
	},
}

// generateHTML renders the configured cucumber JSON with the run metadata
func generateHTML() (*models.RunSummary, error) {
	summary, err := report.GenerateHTML(cfg.Report.CucumberJSON, cfg.Report.HTMLOutput, report.HTMLOptions{
		Title:    "Cucumber Report",
		Metadata: report.BuildEnvironment(cfg, ci),
	})
	if err != nil {
		return nil, err
	}
	logger.Info("html report generated",
		zap.String("output", cfg.Report.HTMLOutput),
		zap.Int("scenarios", summary.TotalScenarios()),
		zap.Bool("passed", summary.Passed()))
	return summary, nil
}

func formatSummary(s *models.RunSummary) string {
	statuses := make([]string, 0, len(s.Scenarios))
	for status := range s.Scenarios {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)

	parts := make([]string, len(statuses))
	for i, status := range statuses {
		parts[i] = fmt.Sprintf("%d %s", s.Scenarios[status], status)
	}
	return fmt.Sprintf("%d scenarios (%s) in %s", s.TotalScenarios(), strings.Join(parts, ", "), s.Duration)
}
