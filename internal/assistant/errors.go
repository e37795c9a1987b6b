// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package assistant

import (
	"context"
	"errors"
	"fmt"

	"github.com/yasser8111/HUAI/internal/inference"
)

// Kind classifies a failed Ask.
type Kind int

const (
	// KindConfiguration means the service cannot call the endpoint at all.
	KindConfiguration Kind = iota + 1
	// KindValidation means the caller's input was rejected.
	KindValidation
	// KindTimeout means the endpoint did not answer in time.
	KindTimeout
	// KindInference means the endpoint answered with an error.
	KindInference
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindValidation:
		return "validation"
	case KindTimeout:
		return "timeout"
	case KindInference:
		return "inference"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Validation sentinels. They are wrapped by *Error values of KindValidation.
var (
	ErrEmptyPrompt        = errors.New("invalid prompt")
	ErrPromptTooLong      = errors.New("prompt too long")
	ErrInvalidTemperature = errors.New("temperature must be between 0 and 1")
	ErrEmptySessionID     = errors.New("session id is required")
)

// Error is the typed failure returned by Service.Ask.
type Error struct {
	Kind    Kind
	Message string
	// Status is the upstream HTTP status for KindInference, if any.
	Status int
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" && e.Err != nil {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err if it is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func validationError(sentinel error, msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Err: sentinel}
}

// classify maps a client failure to a typed error.
func classify(err error) *Error {
	var upErr *inference.UpstreamError
	switch {
	case errors.Is(err, inference.ErrNotConfigured):
		return &Error{Kind: KindConfiguration, Message: "API key is missing", Err: err}
	case errors.Is(err, inference.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Message: "Request timed out", Err: err}
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindTimeout, Message: "Request cancelled", Err: err}
	case errors.As(err, &upErr):
		return &Error{Kind: KindInference, Message: upErr.Message, Status: upErr.Status, Err: err}
	default:
		return &Error{Kind: KindInference, Message: err.Error(), Err: err}
	}
}
