package report

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/shehryarbajwa/browserbase-e2e/internal/config"
	"github.com/shehryarbajwa/browserbase-e2e/pkg/models"
)

// BuildEnvironment describes the run for the report's environment widget
func BuildEnvironment(cfg config.Config, ci config.CI) models.Environment {
	env := models.Environment{
		"OS":               runtime.GOOS + "/" + runtime.GOARCH,
		"Browser":          cfg.Browser.Type,
		"GoVersion":        runtime.Version(),
		"URL":              cfg.URL,
		"Test Environment": cfg.Environment,
		"App Version":      cfg.Report.AppVersion,
		"Execution Time":   time.Now().Format(time.RFC3339),
	}
	if ci.TestEnv != "" {
		env["Test Environment"] = ci.TestEnv
	}
	for k, v := range cfg.Report.Metadata {
		env[k] = v
	}
	return env
}

// FormatProperties renders the environment as a Java-style properties document, keys sorted.
func FormatProperties(env models.Environment) string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", escapePropertyKey(k), escapePropertyValue(env[k]))
	}
	return b.String()
}

var (
	keyEscaper   = strings.NewReplacer(`\`, `\\`, " ", `\ `, "=", `\=`, ":", `\:`, "\n", `\n`)
	valueEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`)
)

func escapePropertyKey(k string) string   { return keyEscaper.Replace(k) }
func escapePropertyValue(v string) string { return valueEscaper.Replace(v) }

// ParseProperties reads the subset of the properties format FormatProperties writes
func ParseProperties(data string) (models.Environment, error) {
	env := models.Environment{}
	for i, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		sep := -1
		for j := 0; j < len(line); j++ {
			if line[j] == '\\' {
				j++
				continue
			}
			if line[j] == '=' || line[j] == ':' {
				sep = j
				break
			}
		}
		if sep < 0 {
			return nil, fmt.Errorf("line %d: missing separator", i+1)
		}
		env[unescapeProperty(line[:sep])] = unescapeProperty(line[sep+1:])
	}
	return env, nil
}

func unescapeProperty(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i == len(s)-1 {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
