package config

import (
	"io"
	"testing"
)

// SetExitForTest replaces the process exit hook for the duration of t.
func SetExitForTest(t *testing.T, fn func(int)) {
	t.Helper()
	prev := exit
	exit = fn
	t.Cleanup(func() { exit = prev })
}

// WriteExitfForTest exposes exitf to the external test package.
func WriteExitfForTest(w io.Writer, code int, format string, args ...any) {
	exitf(w, code, format, args...)
}
