package model

import (
	"fmt"
	"strings"
)

// ErrorKind classifies every failure the core can report.
type ErrorKind string

const (
	// KindInvalidPrimitive marks a malformed date, time or timezone string.
	KindInvalidPrimitive ErrorKind = "InvalidPrimitive"
	// KindSchemaViolation marks a wrong shape or missing required field,
	// detected while decoding, before cross-field checks run.
	KindSchemaViolation ErrorKind = "SchemaViolation"
	// KindConsistencyViolation marks a cross-field check failure. These
	// are always reported as a batch via ValidationError.
	KindConsistencyViolation ErrorKind = "ConsistencyViolation"
	// KindUnboundedRecurrence marks a rule with no resolvable date bound.
	KindUnboundedRecurrence ErrorKind = "UnboundedRecurrence"
	// KindUnknownSeriesOrVariant marks a binding to a series or variant
	// that the registry does not declare.
	KindUnknownSeriesOrVariant ErrorKind = "UnknownSeriesOrVariant"
)

// Error is a single structured failure with an optional document path
// (e.g. "items[3].endTime").
type Error struct {
	Kind    ErrorKind
	Path    string
	Message string
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func errInvalidPrimitive(what, value, hint string) *Error {
	return &Error{
		Kind:    KindInvalidPrimitive,
		Message: fmt.Sprintf("invalid %s %q: %s", what, value, hint),
	}
}

func errSchema(path, format string, args ...any) *Error {
	return &Error{Kind: KindSchemaViolation, Path: path, Message: fmt.Sprintf(format, args...)}
}

// Issue is one cross-field validator finding.
type Issue struct {
	Path    string
	Kind    ErrorKind
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Kind, i.Path, i.Message)
}

// ValidationError aggregates every issue found in one validator pass.
// The issue order is deterministic: document order, then check order.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "schedule has %d issue(s)", len(e.Issues))
	for _, is := range e.Issues {
		b.WriteString("; ")
		b.WriteString(is.String())
	}
	return b.String()
}
