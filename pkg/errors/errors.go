package errors

import (
	"fmt"
)

// ParseError represents a YAML parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures configuration validation issues.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// CommandError reports a remote shell command that could not run or exited
// non-zero.
type CommandError struct {
	Host     string
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

// NewCommandError constructs a CommandError.
func NewCommandError(host, command string, exitCode int, stderr string, err error) error {
	return &CommandError{Host: host, Command: command, ExitCode: exitCode, Stderr: stderr, Err: err}
}

func (e *CommandError) Error() string {
	if e == nil {
		return ""
	}
	detail := e.Stderr
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	if e.Host != "" {
		return fmt.Sprintf("command error on %s (exit %d): %s: %s", e.Host, e.ExitCode, e.Command, detail)
	}
	return fmt.Sprintf("command error (exit %d): %s: %s", e.ExitCode, e.Command, detail)
}

// Unwrap exposes the root error.
func (e *CommandError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// CollaboratorError attributes a failure to an operation in one environment.
// Others holds failures of sibling environments in the same operation.
type CollaboratorError struct {
	Environment string
	Operation   string
	Err         error
	Others      []error
}

// NewCollaboratorError constructs a CollaboratorError.
func NewCollaboratorError(environment, operation string, err error) error {
	return &CollaboratorError{Environment: environment, Operation: operation, Err: err}
}

func (e *CollaboratorError) Error() string {
	if e == nil {
		return ""
	}
	if e.Environment != "" {
		return fmt.Sprintf("%s [%s]: %v", e.Operation, e.Environment, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Err)
}

// Unwrap exposes the underlying error.
func (e *CollaboratorError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
