package config

import (
	"fmt"
	"os"
)

// CI is the subset of the CI environment the harness reacts to
type CI struct {
	// Detected is true when either CI or GITHUB_ACTIONS is set to anything.
	Detected bool
	// GitHubActions is true only when GITHUB_ACTIONS is exactly "true".
	GitHubActions bool

	Repository      string
	RepositoryOwner string
	RunNumber       string
	RunID           string
	RunURL          string
	ServerURL       string
	Workflow        string
	Actor           string
	TestEnv         string
}

// DetectCI reads the CI signals through getenv. A nil getenv means os.Getenv.
func DetectCI(getenv func(string) string) CI {
	if getenv == nil {
		getenv = os.Getenv
	}
	ci := CI{
		Detected:        getenv("CI") != "" || getenv("GITHUB_ACTIONS") != "",
		GitHubActions:   getenv("GITHUB_ACTIONS") == "true",
		Repository:      getenv("GITHUB_REPOSITORY"),
		RepositoryOwner: getenv("GITHUB_REPOSITORY_OWNER"),
		RunNumber:       getenv("GITHUB_RUN_NUMBER"),
		RunID:           getenv("GITHUB_RUN_ID"),
		RunURL:          getenv("GITHUB_RUN_URL"),
		ServerURL:       getenv("GITHUB_SERVER_URL"),
		Workflow:        getenv("GITHUB_WORKFLOW"),
		Actor:           getenv("GITHUB_ACTOR"),
		TestEnv:         getenv("TEST_ENV"),
	}
	if ci.ServerURL == "" {
		ci.ServerURL = "https://github.com"
	}
	if ci.RunURL == "" && ci.Repository != "" && ci.RunID != "" {
		ci.RunURL = fmt.Sprintf("%s/%s/actions/runs/%s", ci.ServerURL, ci.Repository, ci.RunID)
	}
	return ci
}
