package errors

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindConfig    Kind = "config"
	KindDecode    Kind = "decode"
	KindNormalize Kind = "normalize"
	KindBackend   Kind = "backend"
	KindTransport Kind = "transport"
	KindBootstrap Kind = "bootstrap"
	KindUnknown   Kind = "unknown"
)

// Reason narrows a Kind down to the concrete failure class.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonNetwork          Reason = "network"
	ReasonMalformed        Reason = "malformed"
	ReasonInvalidImage     Reason = "invalid_image"
	ReasonGemini           Reason = "gemini"
	ReasonOpenAICompatible Reason = "openai_compatible"
)

type Error struct {
	Kind    Kind
	Reason  Reason
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	label := string(e.Kind)
	if e.Reason != ReasonNone {
		label += "/" + string(e.Reason)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", label, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", label, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Detail returns the message and cause without the kind/op prefix.
func (e *Error) Detail() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func Wrap(kind Kind, op, message string, err error) *Error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Cause:   err,
	}
}

func New(kind Kind, op, message string) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
	}
}

// WithReason builds an error carrying both kind and reason. Cause may be nil.
func WithReason(kind Kind, reason Reason, op, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Reason:  reason,
		Op:      op,
		Message: message,
		Cause:   cause,
	}
}

// IsKind checks whether any error in the chain matches the provided kind.
func IsKind(err error, kind Kind) bool {
	var target *Error
	for err != nil {
		if errors.As(err, &target) {
			return target.Kind == kind
		}
		err = errors.Unwrap(err)
	}
	return false
}

// HasReason reports whether the first typed error in the chain carries reason.
func HasReason(err error, reason Reason) bool {
	var target *Error
	if errors.As(err, &target) {
		return target.Reason == reason
	}
	return false
}
