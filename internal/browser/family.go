package browser

import (
	"errors"
	"fmt"
	"strings"
)

// Family is a browser engine Playwright can drive
type Family string

const (
	Chromium Family = "chromium"
	Firefox  Family = "firefox"
	WebKit   Family = "webkit"
)

// DefaultFamily is used when no browser is configured.
const DefaultFamily = Chromium

var ErrUnknownFamily = errors.New("unknown browser family")

// Families returns all supported families
func Families() []Family {
	return []Family{Chromium, Firefox, WebKit}
}

// ParseFamily resolves a configured browser name. An empty name selects DefaultFamily.
func ParseFamily(name string) (Family, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DefaultFamily, nil
	}
	for _, f := range Families() {
		if string(f) == name {
			return f, nil
		}
	}
	// common aliases used in CI matrices
	switch name {
	case "chrome", "edge", "msedge":
		return Chromium, nil
	case "safari":
		return WebKit, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFamily, name)
}
