// internal/console/errors.go
package console

import (
	"errors"
	"fmt"
)

// ErrorClass categorizes a navigation or capture failure. The retry controller
// keys its recovery decisions off this classification.
type ErrorClass string

const (
	ClassAuthenticationTimeout  ErrorClass = "authentication_timeout"
	ClassAuthenticationRequired ErrorClass = "authentication_required"
	ClassElementNotFound        ErrorClass = "element_not_found"
	ClassClickIntercepted       ErrorClass = "click_intercepted"
	ClassNavigationTimeout      ErrorClass = "navigation_timeout"
	ClassWrongPageLanded        ErrorClass = "wrong_page_landed"
	ClassNoDateColumnFound      ErrorClass = "no_date_column_found"
	ClassInvalidTarget          ErrorClass = "invalid_target"
	ClassUnknown                ErrorClass = "unknown"
)

// Sentinel errors, one per class, so callers can use errors.Is without
// reaching for the concrete type.
var (
	ErrAuthenticationTimeout  = &NavError{Class: ClassAuthenticationTimeout, Message: "authentication did not complete in time"}
	ErrAuthenticationRequired = &NavError{Class: ClassAuthenticationRequired, Message: "browser session is no longer authenticated"}
	ErrElementNotFound        = &NavError{Class: ClassElementNotFound, Message: "element not found"}
	ErrClickIntercepted       = &NavError{Class: ClassClickIntercepted, Message: "click was intercepted by another element"}
	ErrNavigationTimeout      = &NavError{Class: ClassNavigationTimeout, Message: "navigation timed out"}
	ErrWrongPageLanded        = &NavError{Class: ClassWrongPageLanded, Message: "navigation landed on the wrong page"}
	ErrNoDateColumnFound      = &NavError{Class: ClassNoDateColumnFound, Message: "no date-like column detected"}
	ErrInvalidTarget          = &NavError{Class: ClassInvalidTarget, Message: "navigation target is invalid"}
)

// NavError is the structured failure record surfaced by the capture engine.
// Detail carries context useful for diagnosis (a DOM snippet, the URL the
// browser actually landed on, the selector that failed).
type NavError struct {
	Class   ErrorClass
	Message string
	Detail  string
	Err     error
}

func (e *NavError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Class, e.Message)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NavError) Unwrap() error { return e.Err }

// Is matches any NavError of the same class, which makes the package-level
// sentinels usable as errors.Is targets.
func (e *NavError) Is(target error) bool {
	var other *NavError
	if !errors.As(target, &other) {
		return false
	}
	return e.Class == other.Class
}

// NewNavError builds a classified error wrapping an underlying cause.
func NewNavError(class ErrorClass, message string, err error) *NavError {
	return &NavError{Class: class, Message: message, Err: err}
}

// WithDetail returns a copy of the error carrying extra diagnostic context.
func (e *NavError) WithDetail(detail string) *NavError {
	dup := *e
	dup.Detail = detail
	return &dup
}

// ClassOf extracts the classification from any error in the chain.
// Errors produced outside this package classify as unknown.
func ClassOf(err error) ErrorClass {
	var ne *NavError
	if errors.As(err, &ne) {
		return ne.Class
	}
	return ClassUnknown
}

// Transient reports whether a failure class is recoverable by advancing to
// another navigation strategy. Authentication and pre-flight validation
// failures are not: the former re-enters the session manager's auth path,
// the latter must be fixed by the caller.
func Transient(class ErrorClass) bool {
	switch class {
	case ClassElementNotFound, ClassClickIntercepted, ClassNavigationTimeout, ClassWrongPageLanded, ClassUnknown:
		return true
	}
	return false
}
