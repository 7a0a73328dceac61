package models

import "time"

// RunSummary aggregates scenario and step outcomes for one suite run
type RunSummary struct {
	Features  int            `json:"features"`
	Scenarios map[string]int `json:"scenarios"`
	Steps     map[string]int `json:"steps"`
	Duration  time.Duration  `json:"duration"`
}

// NewRunSummary returns a summary with initialised counters
func NewRunSummary() *RunSummary {
	return &RunSummary{
		Scenarios: make(map[string]int),
		Steps:     make(map[string]int),
	}
}

// TotalScenarios returns the number of scenarios counted across all statuses
func (r *RunSummary) TotalScenarios() int {
	total := 0
	for _, n := range r.Scenarios {
		total += n
	}
	return total
}

// Passed reports whether every counted scenario passed
func (r *RunSummary) Passed() bool {
	return r.TotalScenarios() == r.Scenarios[string(ScenarioPassed)]
}
