// Package steps holds the godog step definitions. Every step reads the
// scenario's state from the world carried in its context.
package steps

import (
	"context"
	"strings"

	"github.com/cucumber/godog"

	"github.com/shehryarbajwa/browserbase-e2e/internal/pages"
	"github.com/shehryarbajwa/browserbase-e2e/internal/world"
)

// Register adds every step definition to sc
func Register(sc *godog.ScenarioContext) {
	registerUI(sc)
	registerAPI(sc)
	registerDB(sc)
}

func examplePage(ctx context.Context) (*world.World, *pages.ExamplePage, error) {
	w, err := world.FromContext(ctx)
	if err != nil {
		return nil, nil, err
	}
	u, err := w.Utils()
	if err != nil {
		return nil, nil, err
	}
	return w, pages.NewExamplePage(u, w.Config.Browser.ActionTimeout), nil
}

// splitList parses "a, b,c" into its trimmed, non-empty items
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
