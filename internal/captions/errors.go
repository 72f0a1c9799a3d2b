package captions

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failed generation. The string values are what the HTTP
// layer puts in the "code" field of error bodies.
type Kind string

const (
	KindMissingFile        Kind = "MISSING_FILE"
	KindInvalidInput       Kind = "INVALID_INPUT"
	KindUnauthenticated    Kind = "UNAUTHENTICATED"
	KindQuotaExhausted     Kind = "API_CREDITS_EXHAUSTED"
	KindAnalysisEmpty      Kind = "ANALYSIS_EMPTY"
	KindGenerationEmpty    Kind = "GENERATION_EMPTY"
	KindUpstreamFailure    Kind = "UPSTREAM_FAILURE"
	KindPersistenceFailure Kind = "PERSISTENCE_FAILURE"
)

// ErrQuotaExhausted is wrapped by provider adapters when the provider reports
// a permission or billing denial.
var ErrQuotaExhausted = errors.New("provider permission denied")

type Error struct {
	Kind  Kind
	Stage string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind carried by err, or KindUpstreamFailure when err is
// not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstreamFailure
}

// IsPermissionDenied reports whether a provider message carries the
// PERMISSION_DENIED status.
func IsPermissionDenied(msg string) bool {
	return strings.Contains(msg, "PERMISSION_DENIED")
}

func newError(kind Kind, stage string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

// providerError classifies an adapter failure.
func providerError(stage string, err error) *Error {
	if errors.Is(err, ErrQuotaExhausted) {
		return newError(KindQuotaExhausted, stage, err)
	}
	return newError(KindUpstreamFailure, stage, err)
}
