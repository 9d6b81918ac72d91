// Package errdefs defines the error kinds surfaced to the user when a
// command cannot be resolved or validated.
package errdefs

import (
	"errors"
	"fmt"
)

// ParameterError reports malformed or ambiguous user input, such as an
// unqualified name or a value that cannot be classified.
type ParameterError struct {
	Message string
}

func (e *ParameterError) Error() string {
	return "invalid parameter: " + e.Message
}

// Parameterf creates a ParameterError with a formatted message.
func Parameterf(format string, args ...any) error {
	return &ParameterError{Message: fmt.Sprintf(format, args...)}
}

// ServerNotFoundError reports that no update server is configured for a zone
// and no default server exists.
type ServerNotFoundError struct {
	Zone string
}

func (e *ServerNotFoundError) Error() string {
	return fmt.Sprintf("no server configured for zone %q and no default server", e.Zone)
}

// KeyNotFoundError reports that neither a zone key nor a server key exists.
type KeyNotFoundError struct {
	Zone   string
	Server string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("no key configured for zone %q or server %q", e.Zone, e.Server)
}

// IsParameter returns true if err is or wraps a ParameterError.
func IsParameter(err error) bool {
	var target *ParameterError
	return errors.As(err, &target)
}

// IsServerNotFound returns true if err is or wraps a ServerNotFoundError.
func IsServerNotFound(err error) bool {
	var target *ServerNotFoundError
	return errors.As(err, &target)
}

// IsKeyNotFound returns true if err is or wraps a KeyNotFoundError.
func IsKeyNotFound(err error) bool {
	var target *KeyNotFoundError
	return errors.As(err, &target)
}
