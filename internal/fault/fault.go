// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fault defines the pipeline error taxonomy. Every failure surfaced
// between stages is classified into a Kind; the orchestrator's retry
// envelope retries only transient failures, and only exhausted retries halt
// a run.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	// Transient covers network errors, HTTP 5xx, and HTTP 429. Retried
	// with backoff.
	Transient Kind = "transient"

	// PolicyBlocked marks a fetch target disallowed by robots directives.
	// Terminal: logged, recorded, never retried.
	PolicyBlocked Kind = "policy_blocked"

	// Malformed marks unparseable content. The producing stage degrades to
	// an empty extraction and the run continues.
	Malformed Kind = "malformed"

	// LowConfidence marks a claim that missed the HIGH threshold. Surfaced
	// for manual review, not dropped.
	LowConfidence Kind = "low_confidence"

	// Ungrounded marks a generated field the guard rejected. The field is
	// replaced with the unknown sentinel, never passed through.
	Ungrounded Kind = "ungrounded"

	// StageExhausted marks a stage whose retries ran out. The run halts at
	// that stage with all prior state preserved for resume.
	StageExhausted Kind = "stage_exhausted"
)

// Error is a classified pipeline error.
type Error struct {
	Kind Kind
	Err  error
}

// Error returns the kind-prefixed message.
func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap exposes the wrapped cause to errors.Is and errors.As.
func (e *Error) Unwrap() error { return e.Err }

// New returns a classified error with a formatted message.
func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies an existing error. Returns nil for a nil cause.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the classification of err, or the empty Kind for
// unclassified errors.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool { return KindOf(err) == kind }

// Retryable reports whether the retry envelope should re-execute after err.
// Unclassified errors are retried; terminal kinds are not.
func Retryable(err error) bool {
	switch KindOf(err) {
	case PolicyBlocked, Malformed, LowConfidence, Ungrounded, StageExhausted:
		return false
	}
	return true
}
