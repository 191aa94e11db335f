// Package errors provides structured error handling for the tracker.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// CodeTransport marks a socket, send or receive failure talking to the emulator.
	CodeTransport Code = "TRANSPORT"
	// CodeProtocol marks a reply that arrived but was malformed or mismatched.
	CodeProtocol Code = "PROTOCOL"
	// CodeConfig marks a title that has no memory layout or definitions.
	CodeConfig Code = "CONFIG"
	// CodeEvaluation marks a condition or derived-check tag that cannot be evaluated.
	CodeEvaluation Code = "EVALUATION"
)

// Recoverable reports whether errors with this code are handled at the
// component boundary where they occur. Every tracker code is; only
// CodeUnknown is left for the caller to decide.
func (c Code) Recoverable() bool {
	switch c {
	case CodeTransport, CodeProtocol, CodeConfig, CodeEvaluation:
		return true
	default:
		return false
	}
}
