// Package errclass defines the stable, machine-readable error classes
// surfaced by the change pipeline. Callers match on class with errors.Is;
// the attached message and details are for humans.
package errclass

import (
	"fmt"
	"strings"
)

// GateError is a stable, machine-readable error class.
type GateError struct {
	Code    string
	Message string
	// Details carries itemized sub-errors, e.g. the individual
	// explanation validation failures behind E_EXPLANATION_INVALID.
	Details []string
}

func (e *GateError) Error() string {
	var b strings.Builder
	b.WriteString(e.Code)
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Details) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Details, ", "))
		b.WriteString("]")
	}
	return b.String()
}

func (e *GateError) Is(target error) bool {
	t, ok := target.(*GateError)
	return ok && e.Code == t.Code
}

// WithMessage returns a new GateError with the same Code but a specific message.
func (e *GateError) WithMessage(msg string) *GateError {
	return &GateError{Code: e.Code, Message: msg}
}

// WithMessagef returns a new GateError with a formatted message.
func (e *GateError) WithMessagef(format string, args ...any) *GateError {
	return &GateError{Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

// WithDetails returns a new GateError carrying itemized sub-errors.
func (e *GateError) WithDetails(msg string, details []string) *GateError {
	return &GateError{Code: e.Code, Message: msg, Details: details}
}

// All stable error classes.
var (
	ErrHalted             = &GateError{Code: "E_HALTED"}
	ErrSandboxViolation   = &GateError{Code: "E_SANDBOX_VIOLATION"}
	ErrRiskRejected       = &GateError{Code: "E_RISK_REJECTED"}
	ErrPolicyRejected     = &GateError{Code: "E_POLICY_REJECTED"}
	ErrExplanationInvalid = &GateError{Code: "E_EXPLANATION_INVALID"}
	ErrLockUnavailable    = &GateError{Code: "E_LOCK_UNAVAILABLE"}
	ErrIO                 = &GateError{Code: "E_IO"}
)
