package errors

import (
	"fmt"
	"strings"
)

// ToolError defines the interface implemented by all congen errors.
type ToolError interface {
	error
	ErrorCode() ErrorCode
	Location() SourceLocation
	Context() map[string]interface{}
	Suggestions() []string
	Unwrap() error
}

// ErrorCode represents the kind of failure that occurred.
type ErrorCode int

const (
	UnknownErrorCode ErrorCode = iota

	// Workspace errors abort the entire run: no package list could be
	// established.
	NoPackagesFoundErrorCode
	PackageNotFoundErrorCode
	AmbiguousPackageErrorCode

	// Parse and annotation errors abort only the offending module package.
	ParseErrorCode
	MisplacedAnnotationErrorCode
	ConflictingAnnotationErrorCode

	// Generation errors.
	UnresolvedTypeErrorCode
	InconsistentOutputErrorCode

	// Verification and filesystem errors.
	VerificationErrorCode
	IOErrorCode
)

// String returns the name of the error code.
func (e ErrorCode) String() string {
	switch e {
	case NoPackagesFoundErrorCode:
		return "WorkspaceError::NoPackagesFound"
	case PackageNotFoundErrorCode:
		return "WorkspaceError::PackageNotFound"
	case AmbiguousPackageErrorCode:
		return "WorkspaceError::AmbiguousPackage"
	case ParseErrorCode:
		return "ParseError"
	case MisplacedAnnotationErrorCode:
		return "AnnotationError::Misplaced"
	case ConflictingAnnotationErrorCode:
		return "AnnotationError::Conflict"
	case UnresolvedTypeErrorCode:
		return "GenerationError::UnresolvedType"
	case InconsistentOutputErrorCode:
		return "GenerationError::Inconsistent"
	case VerificationErrorCode:
		return "VerificationError"
	case IOErrorCode:
		return "IOError"
	default:
		return "UnknownError"
	}
}

// IsWorkspace reports whether the code is fatal for the whole run.
func (e ErrorCode) IsWorkspace() bool {
	return e == NoPackagesFoundErrorCode || e == PackageNotFoundErrorCode || e == AmbiguousPackageErrorCode
}

// SourceLocation represents where an error occurred in source code.
type SourceLocation struct {
	File   string
	Line   int
	Column int
}

// String returns a formatted representation of the location.
func (s SourceLocation) String() string {
	if s.File == "" {
		return "unknown location"
	}
	if s.Line == 0 {
		return s.File
	}
	if s.Column == 0 {
		return fmt.Sprintf("%s:%d", s.File, s.Line)
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
}

// IsEmpty returns true if the location has no useful information.
func (s SourceLocation) IsEmpty() bool {
	return s.File == ""
}

// BaseError provides the common implementation of ToolError. Every reported
// error carries the offending package, file, and location where applicable.
type BaseError struct {
	Code        ErrorCode
	Message     string
	Loc         SourceLocation
	Cause       error
	ContextData map[string]interface{}
	Hints       []string
}

// Error implements the error interface.
func (e *BaseError) Error() string {
	if e.Loc.IsEmpty() {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Loc, e.Message)
}

// ErrorCode returns the error code.
func (e *BaseError) ErrorCode() ErrorCode { return e.Code }

// Location returns where the error occurred.
func (e *BaseError) Location() SourceLocation { return e.Loc }

// Context returns the error context data.
func (e *BaseError) Context() map[string]interface{} {
	if e.ContextData == nil {
		return make(map[string]interface{})
	}
	return e.ContextData
}

// Suggestions returns hints for fixing the error.
func (e *BaseError) Suggestions() []string { return e.Hints }

// Unwrap returns the underlying cause.
func (e *BaseError) Unwrap() error { return e.Cause }

// WithLocation adds location information to the error.
func (e *BaseError) WithLocation(loc SourceLocation) *BaseError {
	e.Loc = loc
	return e
}

// WithCause adds an underlying error cause.
func (e *BaseError) WithCause(cause error) *BaseError {
	e.Cause = cause
	return e
}

// WithContext adds context data to the error.
func (e *BaseError) WithContext(key string, value interface{}) *BaseError {
	if e.ContextData == nil {
		e.ContextData = make(map[string]interface{})
	}
	e.ContextData[key] = value
	return e
}

// WithSuggestion adds a hint for fixing the error.
func (e *BaseError) WithSuggestion(suggestion string) *BaseError {
	e.Hints = append(e.Hints, suggestion)
	return e
}

// New creates a new BaseError with the specified code and message.
func New(code ErrorCode, message string) *BaseError {
	return &BaseError{Code: code, Message: message}
}

// Newf creates a new BaseError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *BaseError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap creates a new error that wraps another error.
func Wrap(code ErrorCode, message string, cause error) *BaseError {
	return &BaseError{Code: code, Message: message, Cause: cause}
}

// Wrapf creates a new error that wraps another error with a formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...interface{}) *BaseError {
	return Wrap(code, fmt.Sprintf(format, args...), cause)
}

// CodeOf extracts the ErrorCode from an error, walking the wrap chain.
func CodeOf(err error) ErrorCode {
	for err != nil {
		if te, ok := err.(ToolError); ok {
			return te.ErrorCode()
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return UnknownErrorCode
}

// MultipleErrors collects per-package failures so they can be reported
// together at the end of the run.
type MultipleErrors struct {
	Errors []ToolError
}

// NewMultipleErrors creates an empty collection.
func NewMultipleErrors() *MultipleErrors {
	return &MultipleErrors{}
}

// Error implements the error interface.
func (e *MultipleErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var messages []string
	for i, err := range e.Errors {
		messages = append(messages, fmt.Sprintf("  %d. %s", i+1, err.Error()))
	}
	return fmt.Sprintf("multiple errors (%d total):\n%s", len(e.Errors), strings.Join(messages, "\n"))
}

// Add appends an error to the collection.
func (e *MultipleErrors) Add(err ToolError) {
	e.Errors = append(e.Errors, err)
}

// IsEmpty returns true if there are no errors.
func (e *MultipleErrors) IsEmpty() bool { return len(e.Errors) == 0 }

// Count returns the number of collected errors.
func (e *MultipleErrors) Count() int { return len(e.Errors) }

// HasCode returns true if any collected error has the given code.
func (e *MultipleErrors) HasCode(code ErrorCode) bool {
	for _, err := range e.Errors {
		if err.ErrorCode() == code {
			return true
		}
	}
	return false
}

// Unwrap returns the first collected error.
func (e *MultipleErrors) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[0]
}
