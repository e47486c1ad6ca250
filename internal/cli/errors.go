// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error handling for doubtbot commands.
//
// Handlers return errors; main displays them once and picks the exit code.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/jeranaias/doubtbot/internal/config"
	"github.com/jeranaias/doubtbot/internal/gemini"
	"github.com/jeranaias/doubtbot/internal/ui/styles"
)

// Process exit codes. 6 is unused.
const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2 // bad flags, subcommands or values
	ExitConfigError   = 3 // unreadable or invalid config file
	ExitAuthError     = 4 // Gemini API key missing or rejected
	ExitNetworkError  = 5 // Gemini unreachable, throttled or failing
	ExitNotFoundError = 7 // unknown config key
	ExitTimeoutError  = 8
)

// CommandError is a command that could not do its job, for example stats
// with telemetry turned off.
type CommandError struct {
	Command, Action string
	Reason          string
	Err             error
}

func (e *CommandError) Error() string {
	msg := e.Command + " " + e.Action + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// ValidationError is input the user can fix. Example, when set, is printed
// on its own line.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.Field != "" {
		b.WriteString(e.Field + ": ")
	}
	b.WriteString(e.Reason)
	if e.Value != "" {
		fmt.Fprintf(&b, " (got %q)", e.Value)
	}
	if e.Example != "" {
		b.WriteString("\nExample: " + e.Example)
	}
	return b.String()
}

// NotFoundError names something the user asked for that does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return e.Resource + " not found: " + e.ID
}

// ConfigError is a config file that could not be read, validated or written.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return "config: " + e.Err.Error()
	}
	return "config " + e.Path + ": " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewCommandError returns a *CommandError.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{Command: command, Action: action, Reason: reason, Err: err}
}

// ErrMissingArgument reports a required word or flag that was left out.
func ErrMissingArgument(argName, example string) error {
	return &ValidationError{Field: argName, Reason: "required argument missing", Example: example}
}

// ErrInvalidFormat reports a value that does not parse; expected lists
// accepted forms.
func ErrInvalidFormat(field, value, expected string) error {
	return &ValidationError{Field: field, Value: value, Reason: "invalid format", Example: expected}
}

// DisplayError prints a failed command's error to w, as a JSONResponse when
// jsonMode is set.
func DisplayError(w io.Writer, command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		NewJSONErrorResponse(command, err).Write(w)
		return
	}
	fmt.Fprintln(w, styles.RenderError(err.Error()))
}

// GetExitCode maps err to the process exit code.
func GetExitCode(err error) int {
	var (
		validationErr *ValidationError
		notFoundErr   *NotFoundError
		configErr     *ConfigError
		validateErrs  config.ValidateErrors
		apiErr        *gemini.APIError
		netErr        net.Error
	)

	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &validationErr):
		return ExitUsageError
	case errors.As(err, &notFoundErr):
		return ExitNotFoundError
	case errors.As(err, &configErr), errors.As(err, &validateErrs):
		return ExitConfigError
	case errors.Is(err, gemini.ErrNotConfigured), errors.Is(err, gemini.ErrAuthFailed):
		return ExitAuthError
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	case errors.Is(err, gemini.ErrRateLimited), errors.As(err, &apiErr):
		return ExitNetworkError
	case errors.As(err, &netErr):
		return ExitNetworkError
	}
	return ExitGeneralError
}
