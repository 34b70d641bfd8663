// Package errors defines the error taxonomy shared by the document pipeline.
//
// Only KindInput is a hard failure surfaced to callers. The other kinds are
// recorded for logging and tracing while the pipeline degrades to a
// best-effort, flagged result.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a pipeline error.
type Kind string

const (
	// KindInput marks undecodable or corrupt input. Never retried.
	KindInput Kind = "INPUT_ERROR"
	// KindExternalService marks a vision or OCR engine failure or timeout.
	KindExternalService Kind = "EXTERNAL_SERVICE_ERROR"
	// KindCacheUnavailable marks a cache tier failure. Treated as a miss.
	KindCacheUnavailable Kind = "CACHE_UNAVAILABLE"
	// KindMergeAmbiguity marks pages left standalone by the merger.
	KindMergeAmbiguity Kind = "MERGE_AMBIGUITY"
	// KindConfig marks invalid configuration at startup.
	KindConfig Kind = "CONFIG_ERROR"
)

// Error is a structured pipeline error.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Details map[string]interface{}
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ToMap flattens the error for JSON responses and job results.
func (e *Error) ToMap() map[string]interface{} {
	out := map[string]interface{}{
		"error_kind": string(e.Kind),
		"message":    e.Message,
	}
	if e.Op != "" {
		out["op"] = e.Op
	}
	for k, v := range e.Details {
		out[k] = v
	}
	if e.Cause != nil {
		out["cause"] = e.Cause.Error()
	}
	return out
}

// IsKind reports whether any error in err's chain is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind == k
	}
	return false
}

// Factory functions

func NewInputError(op string, cause error) *Error {
	return &Error{
		Kind:    KindInput,
		Op:      op,
		Message: "image could not be decoded",
		Cause:   cause,
	}
}

// NewRepeatedPageError reports a page whose line items were dropped because
// they repeat an earlier page of the same document.
func NewRepeatedPageError(sequence, repeatOf int) *Error {
	return &Error{
		Kind:    KindMergeAmbiguity,
		Op:      "merge",
		Message: fmt.Sprintf("page %d repeats the line items of page %d; its items were not added", sequence, repeatOf),
		Details: map[string]interface{}{
			"sequence":  sequence,
			"repeat_of": repeatOf,
		},
	}
}

func NewExternalServiceError(op, service string, attempts int, cause error) *Error {
	return &Error{
		Kind:    KindExternalService,
		Op:      op,
		Message: fmt.Sprintf("%s call failed after %d attempt(s)", service, attempts),
		Details: map[string]interface{}{
			"service":  service,
			"attempts": attempts,
		},
		Cause: cause,
	}
}

func NewCacheUnavailableError(op, tier string, cause error) *Error {
	return &Error{
		Kind:    KindCacheUnavailable,
		Op:      op,
		Message: fmt.Sprintf("cache tier %s unavailable", tier),
		Details: map[string]interface{}{
			"tier": tier,
		},
		Cause: cause,
	}
}

func NewMergeAmbiguityError(sequence int, reason string) *Error {
	return &Error{
		Kind:    KindMergeAmbiguity,
		Op:      "merge",
		Message: fmt.Sprintf("page %d left standalone: %s", sequence, reason),
		Details: map[string]interface{}{
			"sequence": sequence,
		},
	}
}

func NewConfigError(field, reason string) *Error {
	return &Error{
		Kind:    KindConfig,
		Op:      "config",
		Message: fmt.Sprintf("%s: %s", field, reason),
		Details: map[string]interface{}{
			"field": field,
		},
	}
}
