// Package errs classifies generation failures so that configuration problems
// abort a run while data problems stay isolated to one adapter, record or sheet.
package errs

import (
	"errors"
	"fmt"
)

// Class describes how far a failure is allowed to propagate.
type Class int

const (
	// Fatal aborts the whole run before any output is written.
	Fatal Class = iota
	// SoftFail drops the output of one adapter or one sheet.
	SoftFail
	// SoftSkip drops one record's contribution.
	SoftSkip
	// Warning never drops output; it is reported only.
	Warning
)

// String returns the string representation of Class
func (c Class) String() string {
	switch c {
	case Fatal:
		return "fatal"
	case SoftFail:
		return "soft-fail"
	case SoftSkip:
		return "soft-skip"
	case Warning:
		return "warning"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	ErrConfigNotFound   = errors.New("configuration file not found")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrTemplateNotFound = errors.New("template not found")
	ErrInvalidTemplate  = errors.New("invalid template")
	ErrDataNotFound     = errors.New("data source not found")

	ErrDatasetMissing        = errors.New("dataset missing")
	ErrLookupFailed          = errors.New("cross-dataset lookup failed")
	ErrRuleFailed            = errors.New("rule evaluation failed")
	ErrUnsupportedGrouping   = errors.New("grouping not supported by adapter")
	ErrUnresolvedPlaceholder = errors.New("unresolved placeholder")
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     Class
	Err       error
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	switch {
	case ce.Component != "" && ce.Operation != "":
		return fmt.Sprintf("%s: %s: %v", ce.Component, ce.Operation, ce.Err)
	case ce.Component != "":
		return fmt.Sprintf("%s: %v", ce.Component, ce.Err)
	default:
		return ce.Err.Error()
	}
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// Wrap classifies err. A nil err stays nil.
func Wrap(class Class, component, operation string, err error) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Class: class, Err: err, Component: component, Operation: operation}
}

// Fatalf builds a Fatal error wrapping sentinel with a formatted message.
func Fatalf(sentinel error, format string, args ...interface{}) error {
	return &ClassifiedError{
		Class: Fatal,
		Err:   fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...)),
	}
}

// ClassOf returns the class of err. Unclassified errors are treated as Fatal,
// except the known data sentinels which map to their soft classes.
func ClassOf(err error) Class {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}
	switch {
	case errors.Is(err, ErrDatasetMissing), errors.Is(err, ErrUnsupportedGrouping):
		return SoftFail
	case errors.Is(err, ErrLookupFailed), errors.Is(err, ErrRuleFailed):
		return SoftSkip
	case errors.Is(err, ErrUnresolvedPlaceholder):
		return Warning
	default:
		return Fatal
	}
}

// IsFatal reports whether err must abort the run.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return ClassOf(err) == Fatal
}
