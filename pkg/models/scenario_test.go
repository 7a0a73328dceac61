package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Login with valid user", "Login_with_valid_user"},
		{"  tabs\tand   spaces ", "tabs_and_spaces"},
		{"a/b\\c:d", "abcd"},
		{"", "scenario"},
		{"   ", "scenario"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeName(tt.in))
		})
	}
}

func TestScenarioNeedsBrowser(t *testing.T) {
	ui := Scenario{Name: "ui", Tags: []string{"@smoke"}}
	api := Scenario{Name: "api", Tags: []string{"@smoke", TagAPI}}

	assert.True(t, ui.NeedsBrowser())
	assert.False(t, api.NeedsBrowser())
	assert.True(t, api.HasTag("@smoke"))
	assert.False(t, ui.HasTag("smoke"))
}

func TestDefaultCategoriesValidate(t *testing.T) {
	for _, c := range DefaultCategories() {
		assert.NoError(t, c.Validate(), c.Name)
	}

	bad := Category{Name: "broken", MatchedStatuses: []string{"failed"}, TraceRegex: "(unclosed"}
	assert.Error(t, bad.Validate())
	assert.Error(t, Category{}.Validate())
}

func TestRunSummaryPassed(t *testing.T) {
	s := NewRunSummary()
	s.Scenarios[string(ScenarioPassed)] = 3
	assert.True(t, s.Passed())

	s.Scenarios[string(ScenarioFailed)] = 1
	assert.False(t, s.Passed())
	assert.Equal(t, 4, s.TotalScenarios())
}
