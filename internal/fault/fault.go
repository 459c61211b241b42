// Package fault classifies pipeline failures so the orchestrator can report
// them per story without aborting the batch.
package fault

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Kind names a failure class.
type Kind string

const (
	KindUnknown                 Kind = "Unknown"
	KindExternalService         Kind = "ExternalServiceError"
	KindSynthesisEmpty          Kind = "SynthesisEmpty"
	KindResourceMissing         Kind = "ResourceMissing"
	KindSourceMissing           Kind = "SourceMissing"
	KindExternalToolUnavailable Kind = "ExternalToolUnavailable"
	KindExternalToolFailed      Kind = "ExternalToolFailed"
	KindExternalTimeout         Kind = "ExternalTimeout"
)

// Error is a classified failure. Detail carries diagnostic output captured
// from an external tool, when there is any.
type Error struct {
	Kind   Kind
	Op     string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Detail != "" {
		msg += "\n" + e.Detail
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a classified error with a stack attached to the cause.
func New(kind Kind, op string, err error) error {
	if err != nil {
		err = errors.WithStack(err)
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds a classified error from a formatted message.
func Newf(kind Kind, op, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Err: errors.Errorf(format, args...)}
}

// WithDetail builds a classified error that keeps tool output for the report.
func WithDetail(kind Kind, op, detail string, err error) error {
	return &Error{Kind: kind, Op: op, Detail: detail, Err: err}
}

// FromContext turns a deadline into ExternalTimeout. Any other error is
// classified with fallback.
func FromContext(ctx context.Context, fallback Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return New(KindExternalTimeout, op, err)
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	return New(fallback, op, err)
}

// KindOf returns the kind of the first classified error in the chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether another attempt at the same call could succeed.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindExternalService, KindExternalTimeout:
		return true
	}
	return false
}
