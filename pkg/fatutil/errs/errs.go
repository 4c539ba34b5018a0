// Package errs is the base error type shared by every git-fat package.
//
// It mirrors the teacher project's error design: a package-namespaced,
// code-tagged, wrappable error so callers can branch on "what kind of
// failure was this" without parsing strings.
package errs

import (
	"errors"
	"strings"
)

// Error is the base error type for the entire module.
type Error struct {
	// Package identifies the originating package (e.g. "filter", "objectstore").
	Package string

	// Code is a machine-readable error kind, one of the Code* constants below.
	Code string

	// Op is the operation being performed when the error occurred.
	Op string

	// Message provides brief human-readable context.
	Message string

	// Err is the underlying/wrapped error. May be nil for leaf errors.
	Err error
}

// Error implements the error interface.
// Format: [package][code] operation: message: wrapped_error
func (e *Error) Error() string {
	var parts []string

	var prefix strings.Builder
	if e.Package != "" {
		prefix.WriteString("[")
		prefix.WriteString(e.Package)
		prefix.WriteString("]")
	}
	if e.Code != "" {
		prefix.WriteString("[")
		prefix.WriteString(e.Code)
		prefix.WriteString("]")
	}
	if prefix.Len() > 0 {
		parts = append(parts, prefix.String())
	}
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}

	result := strings.Join(parts, ": ")
	if e.Err != nil {
		if result != "" {
			result += ": " + e.Err.Error()
		} else {
			result = e.Err.Error()
		}
	}
	return result
}

// Unwrap returns the underlying error for errors.Is()/errors.As() support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables matching by code: two *Error values match if they share a
// non-empty Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code != "" && e.Code == t.Code
}

// New creates a new base error with the specified fields.
func New(pkg, code, op, message string, err error) *Error {
	return &Error{Package: pkg, Code: code, Op: op, Message: message, Err: err}
}

// Wrap wraps err with package/op context and no code. Returns nil if err is nil.
func Wrap(err error, pkg, op string) error {
	if err == nil {
		return nil
	}
	return &Error{Package: pkg, Op: op, Err: err}
}

// WrapWithCode wraps err with package/op/code context. Returns nil if err is nil.
func WrapWithCode(err error, pkg, code, op string) error {
	if err == nil {
		return nil
	}
	return &Error{Package: pkg, Code: code, Op: op, Err: err}
}

// Error kinds, per the specification's error taxonomy.
const (
	// CodeNotInitialized: git-fat filters are not configured in this repository.
	CodeNotInitialized = "NOT_INITIALIZED"

	// CodeNotAPlaceholder: decode failed on content expected to be a placeholder.
	CodeNotAPlaceholder = "NOT_A_PLACEHOLDER"

	// CodeMissingBlob: smudge could not find the blob in the local store.
	CodeMissingBlob = "MISSING_BLOB"

	// CodeMissingConfig: a required configuration key is absent.
	CodeMissingConfig = "MISSING_CONFIG"

	// CodeChildProcessFailure: a spawned child process returned non-zero.
	CodeChildProcessFailure = "CHILD_PROCESS_FAILURE"

	// CodeCorruptBlob: verify found a digest/content mismatch.
	CodeCorruptBlob = "CORRUPT_BLOB"

	// CodeIOError: any other filesystem failure.
	CodeIOError = "IO_ERROR"
)

// IsCode reports whether err (or something it wraps) carries the given code.
func IsCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from err, or "" if not a tagged Error.
func GetCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// ExitCoder is implemented by errors that carry an exit code to propagate
// verbatim to the CLI's os.Exit — used by push/pull to propagate the copy
// tool's own exit status, and by verify to signal a non-zero code distinct
// from the generic "command failed" case.
type ExitCoder interface {
	error
	ExitCode() int
}

// exitError is the concrete ExitCoder implementation.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return "exit status"
}

func (e *exitError) ExitCode() int { return e.code }

// WithExitCode wraps err so the CLI entry point can propagate code verbatim.
func WithExitCode(err error, code int) error {
	if code == 0 {
		return err
	}
	return &exitError{code: code, err: err}
}
