// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/yasser8111/HUAI/internal/assistant"
	"github.com/yasser8111/HUAI/internal/config"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitNetworkError = 5
	ExitTimeoutError = 8
)

// UsageError reports invalid command usage.
type UsageError struct {
	Reason  string
	Example string
}

func (e *UsageError) Error() string {
	if e.Example != "" {
		return fmt.Sprintf("%s\nExample: %s", e.Reason, e.Example)
	}
	return e.Reason
}

// ConfigError wraps a failure to load or write the configuration.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("config: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// GetExitCode determines the exit code for an error returned by a command.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usage *UsageError
	if errors.As(err, &usage) {
		return ExitUsageError
	}

	var cfgErr *ConfigError
	var invalid config.ValidateErrors
	if errors.As(err, &cfgErr) || errors.As(err, &invalid) {
		return ExitConfigError
	}

	kind, ok := assistant.KindOf(err)
	if !ok {
		return ExitGeneralError
	}
	switch kind {
	case assistant.KindValidation:
		return ExitUsageError
	case assistant.KindConfiguration:
		return ExitConfigError
	case assistant.KindTimeout:
		return ExitTimeoutError
	case assistant.KindInference:
		return ExitNetworkError
	}
	return ExitGeneralError
}

// DisplayError writes err to w with the error label.
func DisplayError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
}
