// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package inference

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("inference API key not configured")

	// ErrTimeout indicates an attempt exceeded its deadline.
	ErrTimeout = errors.New("inference request timed out")
)

// UpstreamError is a failed exchange with the endpoint. Status is the HTTP
// status code, or 0 when no response was received.
type UpstreamError struct {
	Status  int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("inference error: %s", e.Message)
	}
	return fmt.Sprintf("inference error (HTTP %d): %s", e.Status, e.Message)
}

// Unwrap returns the underlying transport error, if any.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is a server-side (5xx) error.
func (e *UpstreamError) Retryable() bool {
	return e.Status >= 500 && e.Status < 600
}

// isRetryable determines if an error should trigger another attempt.
func isRetryable(err error) bool {
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr.Retryable()
	}
	return false
}

// errorMessage extracts a human-readable message from an error body.
// Both {"error":{"message":"..."}} and {"error":"..."} shapes are accepted.
func errorMessage(status int, body []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Error) > 0 {
		var obj struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(envelope.Error, &obj) == nil && strings.TrimSpace(obj.Message) != "" {
			return strings.TrimSpace(obj.Message)
		}
		var s string
		if json.Unmarshal(envelope.Error, &s) == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return fmt.Sprintf("API Error: %d", status)
}
