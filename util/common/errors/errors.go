package errors

import (
	"context"
	"errors"
	"fmt"
)

// Common errors that can be used across packages
var (
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrConflict         = errors.New("conflict")
	ErrInternal         = errors.New("internal error")

	ErrPassphraseRequired = errors.New("passphrase required")
)

// Kind identifies the class of failure a publish run ended with.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfig
	KindBuild
	KindSigning
	KindAuth
	KindNetwork
	KindConflict
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "ConfigFailure"
	case KindBuild:
		return "BuildFailure"
	case KindSigning:
		return "SigningFailure"
	case KindAuth:
		return "AuthFailure"
	case KindNetwork:
		return "NetworkFailure"
	case KindConflict:
		return "ConflictFailure"
	case KindCanceled:
		return "Canceled"
	default:
		return "Failure"
	}
}

// ExitCode maps a failure kind to the process exit code.
func (k Kind) ExitCode() int {
	switch k {
	case KindBuild:
		return 10
	case KindSigning:
		return 11
	case KindAuth:
		return 12
	case KindNetwork:
		return 13
	case KindConflict:
		return 14
	case KindCanceled:
		return 130
	default:
		return 1
	}
}

// PublishError is returned by every stage of the publish pipeline.
type PublishError struct {
	Kind    Kind
	Op      string
	Path    string
	Wrapped error
}

func (e *PublishError) Error() string {
	msg := e.Kind.String() + ": " + e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

func (e *PublishError) Unwrap() error {
	return e.Wrapped
}

func newKind(kind Kind, op, path string, wrapped error) error {
	return &PublishError{Kind: kind, Op: op, Path: path, Wrapped: wrapped}
}

func NewBuildError(op string, wrapped error) error {
	return newKind(KindBuild, op, "", wrapped)
}

func NewSigningError(op string, wrapped error) error {
	return newKind(KindSigning, op, "", wrapped)
}

func NewAuthError(op, path string, wrapped error) error {
	return newKind(KindAuth, op, path, wrapped)
}

func NewNetworkError(op, path string, wrapped error) error {
	return newKind(KindNetwork, op, path, wrapped)
}

func NewConflictError(op, path string, wrapped error) error {
	return newKind(KindConflict, op, path, wrapped)
}

func NewConfigError(op string, wrapped error) error {
	return newKind(KindConfig, op, "", wrapped)
}

// KindOf returns the failure kind carried by err. Context cancellation wins
// over whatever stage was running when it happened.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return KindConfig
	}
	return KindUnknown
}

// ExitCode returns the process exit code for err, 0 when err is nil.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return KindOf(err).ExitCode()
}

// ValidationError represents an error that occurs during validation
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// FileError represents an error that occurs during file operations
type FileError struct {
	Path    string
	Op      string
	Wrapped error
}

func (e *FileError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s operation failed on %s: %v", e.Op, e.Path, e.Wrapped)
	}
	return fmt.Sprintf("%s operation failed on %s", e.Op, e.Path)
}

func (e *FileError) Unwrap() error {
	return e.Wrapped
}

// NewFileError creates a new FileError
func NewFileError(path, op string, wrapped error) error {
	return &FileError{
		Path:    path,
		Op:      op,
		Wrapped: wrapped,
	}
}

// Is reports whether target matches err.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
