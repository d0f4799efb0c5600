package model

import (
	"errors"
	"fmt"
	"strings"
)

// UsageError reports a malformed or contradictory command line, detected
// while tokens are turned into an entity tree.
type UsageError struct {
	Tag     string
	Value   string
	Message string
}

func (e *UsageError) Error() string {
	if e.Tag == "" {
		return "usage error: " + e.Message
	}
	if e.Value == "" {
		return fmt.Sprintf("usage error: --%s: %s", e.Tag, e.Message)
	}
	return fmt.Sprintf("usage error: --%s %s: %s", e.Tag, e.Value, e.Message)
}

// NewUsageError creates a UsageError for the given token.
func NewUsageError(tag, value, format string, args ...any) *UsageError {
	return &UsageError{Tag: tag, Value: value, Message: fmt.Sprintf(format, args...)}
}

// ValidationError reports a tree-level inconsistency found before any
// remote call is made.
type ValidationError struct {
	Pass    string
	Tag     string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("validation error")
	if e.Pass != "" {
		b.WriteString(" (" + e.Pass + ")")
	}
	b.WriteString(": ")
	if e.Tag != "" {
		fmt.Fprintf(&b, "--%s %s: ", e.Tag, e.Value)
	}
	b.WriteString(e.Message)
	return b.String()
}

// RemoteError reports a transport failure, a non-2xx response, an
// undecodable body, or a job that ended in a status other than COMPLETED.
type RemoteError struct {
	Op         string
	Diagnostic string
	Err        error
}

func (e *RemoteError) Error() string {
	msg := e.Op + " failed"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Diagnostic != "" {
		msg += "\n" + e.Diagnostic
	}
	return msg
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// LinkingError reports a failed relation call between two entities that
// were both created successfully.
type LinkingError struct {
	SourceKind string
	TargetKind string
	SourceID   string
	TargetID   string
	Diagnostic string
	Err        error
}

// Headline is the single-line operator message for the failure.
func (e *LinkingError) Headline() string {
	return fmt.Sprintf("Linking %s to %s (%s to %s) failed", e.SourceKind, e.TargetKind, e.SourceID, e.TargetID)
}

func (e *LinkingError) Error() string {
	diag := e.Diagnostic
	if diag == "" && e.Err != nil {
		diag = e.Err.Error()
	}
	if diag == "" {
		return e.Headline()
	}
	return e.Headline() + "\n" + diag
}

func (e *LinkingError) Unwrap() error {
	return e.Err
}

// LinkFailures aggregates linking errors collected in tolerant mode.
type LinkFailures struct {
	Errors []*LinkingError
}

func (e *LinkFailures) Error() string {
	if len(e.Errors) == 1 {
		return "1 linking operation failed"
	}
	return fmt.Sprintf("%d linking operations failed", len(e.Errors))
}

// IsUsage reports whether err is, or wraps, a UsageError.
func IsUsage(err error) bool {
	var e *UsageError
	return errors.As(err, &e)
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// IsLinking reports whether err is, or wraps, a LinkingError.
func IsLinking(err error) bool {
	var e *LinkingError
	return errors.As(err, &e)
}
