// Package errs defines the error taxonomy shared across every layer of the
// engine (storage, index, executor, dispatcher). Each layer wraps the
// underlying cause with fmt.Errorf("%w", ...) rather than discarding it, the
// same convention the storage layer this engine was grounded on uses for
// database errors.
package errs

import (
	"errors"
	"fmt"
)

// Code identifies the category of a failure. Callers should switch on Code
// rather than string-matching Error().
type Code string

// Error taxonomy from spec §7. PageFull is surfaced only between internal
// storage components (page <-> page cache); it never escapes pagecache.
const (
	CodeInvalidSQL          Code = "INVALID_SQL"
	CodeTableNotFound       Code = "TABLE_NOT_FOUND"
	CodeTableAlreadyExists  Code = "TABLE_ALREADY_EXISTS"
	CodeColumnNotFound      Code = "COLUMN_NOT_FOUND"
	CodeNotNullViolation    Code = "NOT_NULL_VIOLATION"
	CodePrimaryKeyViolation Code = "PRIMARY_KEY_VIOLATION"
	CodeUniqueKeyViolation  Code = "UNIQUE_KEY_VIOLATION"
	CodeStorageReadError    Code = "STORAGE_READ_ERROR"
	CodeStorageWriteError   Code = "STORAGE_WRITE_ERROR"
	CodeIndexError          Code = "INDEX_ERROR"
	CodePageFull            Code = "PAGE_FULL"
)

// Error is the concrete error type returned by every engine operation.
// Table/Column/Value are populated for constraint violations per §7
// ("constraint errors carry (table, column, value)").
type Error struct {
	Code    Code
	Message string
	Table   string
	Column  string
	Value   any
	SQL     string // populated for INVALID_SQL
	cause   error
}

func (e *Error) Error() string {
	switch {
	case e.Code == CodeInvalidSQL && e.SQL != "":
		return fmt.Sprintf("%s: %s (sql: %q)", e.Code, e.Message, e.SQL)
	case e.Table != "" && e.Column != "":
		return fmt.Sprintf("%s: %s (table=%s column=%s value=%v)", e.Code, e.Message, e.Table, e.Column, e.Value)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.cause }

// Is allows errors.Is(err, errs.ErrTableNotFound) style checks: any *Error
// target matches when its Code equals e's, whatever its other fields hold.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return te.Code == e.Code
	}
	return false
}

// New builds a taxonomy error with no wrapped cause.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a taxonomy error around an underlying cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: cause}
}

// WithConstraint attaches (table, column, value) context for a constraint
// violation, per §7's "constraint errors carry (table, column, value)".
func (e *Error) WithConstraint(table, column string, value any) *Error {
	e.Table = table
	e.Column = column
	e.Value = value
	return e
}

// WithSQL attaches the failing SQL text, per §7's INVALID_SQL contract.
func (e *Error) WithSQL(sql string) *Error {
	e.SQL = sql
	return e
}

// CodeOf extracts the Code from err, or "" if err is not (or does not wrap)
// an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// Sentinel instances for errors.Is(err, errs.ErrTableNotFound)-style checks
// without constructing a full context-bearing Error. Mirrors the sentinel
// pattern of wrapDBError/ErrNotFound that errors here are grounded on.
var (
	ErrTableNotFound      = New(CodeTableNotFound, "table not found")
	ErrTableAlreadyExists = New(CodeTableAlreadyExists, "table already exists")
	ErrColumnNotFound     = New(CodeColumnNotFound, "column not found")
)
