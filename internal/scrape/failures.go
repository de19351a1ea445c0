// File: internal/scrape/failures.go
package scrape

import (
	"fmt"

	"github.com/tsanko9k/inkclip/internal/debugrec"
)

// Kind classifies a scrape failure. Every fault inside the subsystem is
// caught and mapped onto exactly one of these; no raw error crosses the
// package boundary.
type Kind int

const (
	KindInvalidInput Kind = iota
	KindAuthenticationFailed
	KindPaywallOrLoginRedirect
	KindNavigationFailed
	KindExtractionFailed
	KindAutomationError
	KindUnexpected
)

// String returns the stable wire name of the failure kind.
func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindAuthenticationFailed:
		return "authentication_failed"
	case KindPaywallOrLoginRedirect:
		return "paywall_or_login_redirect"
	case KindNavigationFailed:
		return "navigation_failed"
	case KindExtractionFailed:
		return "extraction_failed"
	case KindAutomationError:
		return "automation_error"
	default:
		return "unexpected_error"
	}
}

// Failure is a typed scrape error. It satisfies the error interface so it
// flows through ordinary error plumbing, while callers branch on Kind.
type Failure struct {
	Kind    Kind
	Message string
	Err     error
	Trace   []debugrec.Step
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (f *Failure) Unwrap() error {
	return f.Err
}

// failf builds a Failure with a formatted message.
func failf(kind Kind, err error, format string, args ...interface{}) *Failure {
	return &Failure{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}
