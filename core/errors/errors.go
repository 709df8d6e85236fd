// Package errors provides the error kinds shared by the litbook packages.
//
// Every lookup failure that a caller should present as "not found"
// unwraps to ErrNotFound, whether the book was unknown, the reference
// was malformed or the chapter does not exist on disk. Data damage
// unwraps to ErrCorrupt and must never be silently served.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a book, chapter or verse could not be located
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates input that could not be interpreted
	ErrInvalidInput = errors.New("invalid input")
	// ErrCorrupt indicates persisted data that violates its format
	ErrCorrupt = errors.New("corrupt data")
)

// NotFoundError reports a missing resource with context.
type NotFoundError struct {
	Resource string // Kind of resource (e.g., "book", "chapter")
	ID       string // Identifier of the resource
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// ParseError represents a reference or record that could not be parsed.
// A parse failure of a user-supplied reference is reported to the user as
// "not found", so ParseError matches both ErrInvalidInput and ErrNotFound.
type ParseError struct {
	Input    string // Text being parsed
	Position int    // Byte offset where parsing stopped
	Message  string // Error details
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q at offset %d: %s", e.Input, e.Position, e.Message)
}

// Is reports whether target is one of the kinds a ParseError stands for.
func (e *ParseError) Is(target error) bool {
	return target == ErrInvalidInput || target == ErrNotFound
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "mkdir")
	Path      string // File path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// CorruptError reports a file whose contents violate its format.
type CorruptError struct {
	Path   string // File path involved
	Line   int    // 1-based line number, 0 when not line oriented
	Detail string // What was wrong
}

func (e *CorruptError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("corrupt %s at line %d: %s", e.Path, e.Line, e.Detail)
	}
	return fmt.Sprintf("corrupt %s: %s", e.Path, e.Detail)
}

func (e *CorruptError) Unwrap() error {
	return ErrCorrupt
}

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// NewParse creates a ParseError
func NewParse(input string, pos int, message string) *ParseError {
	return &ParseError{
		Input:    input,
		Position: pos,
		Message:  message,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// NewCorrupt creates a CorruptError
func NewCorrupt(path string, line int, detail string) *CorruptError {
	return &CorruptError{
		Path:   path,
		Line:   line,
		Detail: detail,
	}
}
