package report

import (
	"fmt"
	"runtime"

	"github.com/shehryarbajwa/browserbase-e2e/internal/config"
	"github.com/shehryarbajwa/browserbase-e2e/pkg/models"
)

// BuildExecutor describes who ran the suite: GitHub Actions or a local machine
func BuildExecutor(cfg config.Config, ci config.CI) models.Executor {
	if ci.GitHubActions {
		env := ci.TestEnv
		if env == "" {
			env = "QA"
		}
		return models.Executor{
			Name:           "GitHub Actions",
			Type:           "CI/CD",
			URL:            fmt.Sprintf("%s/%s/actions", ci.ServerURL, ci.Repository),
			BuildName:      fmt.Sprintf("GitHub Actions Build #%s", ci.RunNumber),
			BuildURL:       ci.RunURL,
			ReportURL:      fmt.Sprintf("https://%s.github.io/%s/allure-report/", ci.RepositoryOwner, repoName(ci)),
			ReportName:     "Allure Report for GitHub Actions",
			Infrastructure: "GitHub Actions",
			Environment:    env,
			Browser:        cfg.Browser.Type,
			OS:             runtime.GOOS,
			TriggeredBy:    ci.Actor,
		}
	}

	env := ci.TestEnv
	if env == "" {
		env = "Local"
	}
	return models.Executor{
		Name:           "Local Execution",
		Type:           "Local",
		URL:            "http://localhost:3000",
		BuildName:      "Local Execution",
		BuildURL:       "http://localhost:3000",
		ReportURL:      "http://localhost:3000/report/",
		Infrastructure: "Local Machine",
		Environment:    env,
		Browser:        cfg.Browser.Type,
		OS:             runtime.GOOS,
	}
}

// repoName strips the owner from owner/name
func repoName(ci config.CI) string {
	prefix := ci.RepositoryOwner + "/"
	if len(ci.Repository) > len(prefix) && ci.Repository[:len(prefix)] == prefix {
		return ci.Repository[len(prefix):]
	}
	return ci.Repository
}
