package models

import (
	"regexp"
	"strings"
)

// ScenarioStatus is the outcome of a scenario as reported by the runner
type ScenarioStatus string

const (
	ScenarioPassed    ScenarioStatus = "passed"
	ScenarioFailed    ScenarioStatus = "failed"
	ScenarioSkipped   ScenarioStatus = "skipped"
	ScenarioPending   ScenarioStatus = "pending"
	ScenarioUndefined ScenarioStatus = "undefined"

	// ScenarioBroken only appears in report results, for steps that do not exist.
	ScenarioBroken ScenarioStatus = "broken"
)

// TagAPI marks scenarios that never touch a browser.
const TagAPI = "@api"

// Scenario is the runner-independent view of one executable test case
type Scenario struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	URI  string   `json:"uri"`
	Tags []string `json:"tags,omitempty"`
}

// HasTag reports whether the scenario carries the given tag (with the @ prefix).
func (s Scenario) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// NeedsBrowser is false for scenarios tagged @api.
func (s Scenario) NeedsBrowser() bool {
	return !s.HasTag(TagAPI)
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	unsafeChars   = regexp.MustCompile(`[/\\:*?"<>|]`)
)

// SanitizeName turns a scenario name into a file-system safe base name.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	name = unsafeChars.ReplaceAllString(name, "")
	name = whitespaceRun.ReplaceAllString(name, "_")
	if name == "" {
		return "scenario"
	}
	return name
}

// ArtifactBase returns the sanitized name used for this scenario's artifacts
func (s Scenario) ArtifactBase() string {
	return SanitizeName(s.Name)
}
