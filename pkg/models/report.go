package models

import (
	"fmt"
	"regexp"
)

// Environment is the flat key/value description written to environment.properties
type Environment map[string]string

// Executor describes where the suite ran, consumed by the report renderer
type Executor struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	URL            string `json:"url"`
	BuildName      string `json:"buildName"`
	BuildURL       string `json:"buildUrl,omitempty"`
	ReportURL      string `json:"reportUrl,omitempty"`
	ReportName     string `json:"reportName,omitempty"`
	Infrastructure string `json:"infrastructure,omitempty"`
	Environment    string `json:"environment"`
	Browser        string `json:"browser,omitempty"`
	OS             string `json:"os,omitempty"`
	TriggeredBy    string `json:"triggeredBy,omitempty"`
}

// Category is a rule the report renderer uses to bucket results
type Category struct {
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	MatchedStatuses []string `json:"matchedStatuses"`
	TraceRegex      string   `json:"traceRegex,omitempty"`
	MessageRegex    string   `json:"messageRegex,omitempty"`
}

// Validate checks the rule has a name and that its patterns compile
func (c Category) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("category name is required")
	}
	if c.TraceRegex != "" {
		if _, err := regexp.Compile(c.TraceRegex); err != nil {
			return fmt.Errorf("category %q: invalid traceRegex: %w", c.Name, err)
		}
	}
	if c.MessageRegex != "" {
		if _, err := regexp.Compile(c.MessageRegex); err != nil {
			return fmt.Errorf("category %q: invalid messageRegex: %w", c.Name, err)
		}
	}
	return nil
}

// DefaultCategories are installed when no categories file is configured
func DefaultCategories() []Category {
	return []Category{
		{
			Name:            "Critical Path",
			Description:     "Tests covering critical functionality.",
			MatchedStatuses: []string{"passed"},
			TraceRegex:      ".*critical-path.*",
		},
		{
			Name:            "Smoke Tests",
			Description:     "Tests that validate the core functionality.",
			MatchedStatuses: []string{"passed"},
			TraceRegex:      ".*smoke.*",
		},
		{
			Name:            "Flaky Test",
			Description:     "Tests that fail intermittently.",
			MatchedStatuses: []string{"failed"},
			TraceRegex:      ".*Timeout.*",
		},
		{
			Name:            "Infrastructure Problem",
			Description:     "Issues caused by environment or CI/CD failures.",
			MatchedStatuses: []string{"failed"},
			TraceRegex:      ".*(connection refused|connection reset).*",
		},
		{
			Name:            "Application Bug",
			Description:     "Failures due to application bugs.",
			MatchedStatuses: []string{"failed"},
			MessageRegex:    ".*(expected|assert).*",
		},
		{
			Name:            "Unknown",
			Description:     "Uncategorized failures.",
			MatchedStatuses: []string{"failed"},
		},
	}
}
