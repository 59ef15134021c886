package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
)

// Error types for the fsguard file tooling
type ErrorType string

const (
	// Authorization errors
	ErrorTypeAccessDenied ErrorType = "access_denied"

	// File errors
	ErrorTypeNotFound  ErrorType = "not_found"
	ErrorTypeIOFailure ErrorType = "io_failure"

	// Caller errors
	ErrorTypeInvalidInput ErrorType = "invalid_input"

	// Optimistic locking errors
	ErrorTypeConcurrentModification ErrorType = "concurrent_modification"
	ErrorTypeStaleReference         ErrorType = "stale_reference"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// SnippetLimit bounds the expected/actual text echoed back in StaleReferenceError.
const SnippetLimit = 50

// Typed is implemented by every error in this package.
type Typed interface {
	error
	ErrorType() ErrorType
}

// TypeOf returns the ErrorType of the first typed error in err's chain.
// Untyped errors are reported as IO failures.
func TypeOf(err error) ErrorType {
	if err == nil {
		return ""
	}
	var typed Typed
	if errors.As(err, &typed) {
		return typed.ErrorType()
	}
	return ErrorTypeIOFailure
}

// Is reports whether err carries the given error type.
func Is(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}

// AccessError is returned when a path resolves outside the allowed directories.
type AccessError struct {
	Path      string
	Operation string
	Timestamp time.Time
}

// NewAccessError creates a new access denied error
func NewAccessError(op, path string) *AccessError {
	return &AccessError{
		Path:      path,
		Operation: op,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface
func (e *AccessError) Error() string {
	return fmt.Sprintf("access denied: %s is outside the allowed directories", e.Path)
}

// ErrorType implements Typed
func (e *AccessError) ErrorType() ErrorType { return ErrorTypeAccessDenied }

// FileError represents a missing file or a failed filesystem operation
type FileError struct {
	Type        ErrorType
	Path        string
	Operation   string
	Underlying  error
	Suggestions []string
	Timestamp   time.Time
}

// NewFileError creates a new file error, classifying missing paths as NotFound
// and everything else as an IO failure.
func NewFileError(op, path string, err error) *FileError {
	errorType := ErrorTypeIOFailure
	if errors.Is(err, fs.ErrNotExist) {
		errorType = ErrorTypeNotFound
	}

	return &FileError{
		Type:       errorType,
		Path:       path,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// NewNotFoundError creates a NotFound error without an underlying cause
func NewNotFoundError(op, path string) *FileError {
	return &FileError{
		Type:       ErrorTypeNotFound,
		Path:       path,
		Operation:  op,
		Underlying: fs.ErrNotExist,
		Timestamp:  time.Now(),
	}
}

// WithSuggestions attaches "did you mean" candidates to the error
func (e *FileError) WithSuggestions(suggestions []string) *FileError {
	e.Suggestions = suggestions
	return e
}

// Error implements the error interface
func (e *FileError) Error() string {
	msg := fmt.Sprintf("file %s failed for %s: %v", e.Operation, e.Path, e.Underlying)
	if e.Type == ErrorTypeNotFound {
		msg = fmt.Sprintf("%s not found: %s", e.Operation, e.Path)
	}
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean: %s?)", strings.Join(e.Suggestions, ", "))
	}
	return msg
}

// Unwrap returns the underlying error
func (e *FileError) Unwrap() error {
	return e.Underlying
}

// ErrorType implements Typed
func (e *FileError) ErrorType() ErrorType { return e.Type }

// InputError represents a rejected argument. Rule names the check that failed.
type InputError struct {
	Field     string
	Rule      string
	Message   string
	Timestamp time.Time
}

// NewInputError creates a new invalid input error
func NewInputError(field, rule, message string) *InputError {
	return &InputError{
		Field:     field,
		Rule:      rule,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface
func (e *InputError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return "invalid input: " + e.Message
}

// ErrorType implements Typed
func (e *InputError) ErrorType() ErrorType { return ErrorTypeInvalidInput }

// ConflictError is returned when a file's quick hash no longer matches the one
// the caller obtained from its last read.
type ConflictError struct {
	Path      string
	Expected  string
	Actual    string
	Timestamp time.Time
}

// NewConflictError creates a new concurrent modification error
func NewConflictError(path, expected, actual string) *ConflictError {
	return &ConflictError{
		Path:      path,
		Expected:  expected,
		Actual:    actual,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return fmt.Sprintf("file %s was modified since it was read (expected quick hash %s, current %s); re-read the file and retry",
		e.Path, e.Expected, e.Actual)
}

// ErrorType implements Typed
func (e *ConflictError) ErrorType() ErrorType { return ErrorTypeConcurrentModification }

// StaleReferenceError is returned when the caller's reference line no longer
// matches the file. Expected and Actual are already truncated.
type StaleReferenceError struct {
	Path      string
	Line      int
	Expected  string
	Actual    string
	Timestamp time.Time
}

// NewStaleReferenceError creates a new stale reference error
func NewStaleReferenceError(path string, line int, expected, actual string) *StaleReferenceError {
	return &StaleReferenceError{
		Path:      path,
		Line:      line,
		Expected:  Snippet(expected, SnippetLimit),
		Actual:    Snippet(actual, SnippetLimit),
		Timestamp: time.Now(),
	}
}

// Error implements the error interface
func (e *StaleReferenceError) Error() string {
	return fmt.Sprintf("reference mismatch at line %d of %s: expected %q, found %q; re-read the file and retry",
		e.Line, e.Path, e.Expected, e.Actual)
}

// ErrorType implements Typed
func (e *StaleReferenceError) ErrorType() ErrorType { return ErrorTypeStaleReference }

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// ErrorType implements Typed
func (e *ConfigError) ErrorType() ErrorType { return ErrorTypeConfig }

// MultiError represents multiple errors
type MultiError struct {
	Errors []error
}

// NewMultiError creates a new multi-error
func NewMultiError(errs []error) *MultiError {
	// Filter out nil errors
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

// ErrorOrNil returns nil when no errors were collected
func (e *MultiError) ErrorOrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Error implements the error interface
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

// Unwrap returns all errors
func (e *MultiError) Unwrap() []error {
	return e.Errors
}

// Snippet truncates s to at most limit runes, marking the cut with "...".
func Snippet(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
