package cli

import (
	"errors"
	"fmt"

	"mercator-hq/warden/pkg/config"
)

// Exit codes returned by the warden command.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitConfig  = 2
	ExitDenied  = 3
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config error: %s", e.Message)
	}
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// DeniedError reports that a command completed but some calls were denied.
type DeniedError struct {
	Denied int
	Total  int
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("%d of %d calls denied", e.Denied, e.Total)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var cfgErr *ConfigError
	var validationErr config.ValidationError
	var deniedErr *DeniedError
	switch {
	case errors.As(err, &cfgErr), errors.As(err, &validationErr):
		return ExitConfig
	case errors.As(err, &deniedErr):
		return ExitDenied
	default:
		return ExitFailure
	}
}
