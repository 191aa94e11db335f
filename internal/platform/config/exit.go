package config

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// exit is swapped by tests that need to observe the exit code in-process.
var exit = os.Exit

// Exitf writes a formatted error message to stderr and exits with code 1.
// It provides a consistent fatal-exit pattern for CLI entry points.
func Exitf(format string, args ...any) {
	exitf(os.Stderr, 1, format, args...)
}

// ExitUsagef is Exitf for invalid command-line usage; it exits with code 2,
// matching flag.ExitOnError.
func ExitUsagef(format string, args ...any) {
	exitf(os.Stderr, 2, format, args...)
}

func exitf(w io.Writer, code int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	_, _ = io.WriteString(w, msg)
	exit(code)
}
