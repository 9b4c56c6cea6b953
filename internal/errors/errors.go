package errors

import (
	stderrors "errors"
	"fmt"
)

// NotFoundError represents an error when a config file, inbound, user or
// backup cannot be located
type NotFoundError struct {
	Kind string
	Name string
}

// Error returns the error message
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Name)
}

// MalformedConfigError represents an error when the configuration document
// is not valid JSON or has an unexpected shape
type MalformedConfigError struct {
	Path   string
	Reason string
}

// Error returns the error message
func (e *MalformedConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("malformed configuration: %s", e.Reason)
	}
	return fmt.Sprintf("malformed configuration %s: %s", e.Path, e.Reason)
}

// AlreadyExistsError represents an error when a user alias is already taken
type AlreadyExistsError struct {
	Alias string
}

// Error returns the error message
func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("user already exists: %s", e.Alias)
}

// InvalidArgumentError represents an error when a required parameter is
// missing or rejected by validation
type InvalidArgumentError struct {
	Field   string
	Message string
}

// Error returns the error message
func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ExternalError represents a failure of an external collaborator (the
// container runtime or a network probe), carrying the underlying cause
type ExternalError struct {
	Op  string
	Err error
}

// Error returns the error message
func (e *ExternalError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *ExternalError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var target *NotFoundError
	return stderrors.As(err, &target)
}

// IsMalformed reports whether err is a MalformedConfigError
func IsMalformed(err error) bool {
	var target *MalformedConfigError
	return stderrors.As(err, &target)
}

// IsAlreadyExists reports whether err is an AlreadyExistsError
func IsAlreadyExists(err error) bool {
	var target *AlreadyExistsError
	return stderrors.As(err, &target)
}

// IsInvalidArgument reports whether err is an InvalidArgumentError
func IsInvalidArgument(err error) bool {
	var target *InvalidArgumentError
	return stderrors.As(err, &target)
}
