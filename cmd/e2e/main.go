// Command e2e runs the browser end-to-end suite and manages its reports.
package main

import (
	"errors"
	"fmt"
	"os"
)

// exitError carries a non-zero exit code without an extra message
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
