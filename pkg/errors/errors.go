// Package errors provides the unified error type and factory functions used by
// every layer of the charge standardization service (domain, application,
// infrastructure, interfaces). AppError carries a typed code so that HTTP
// responses, CLI exit messages and metrics labels stay consistent.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// stackDepth is the maximum number of frames captured per error.
const stackDepth = 32

// captureStack returns a formatted call-stack string starting two frames above
// the caller (skipping captureStack itself and New/Wrap).
func captureStack(skip int) string {
	pcs := make([]uintptr, stackDepth)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		f, more := frames.Next()
		if !strings.Contains(f.File, "runtime/") {
			fmt.Fprintf(&sb, "\n\t%s:%d %s", f.File, f.Line, f.Function)
		}
		if !more {
			break
		}
	}
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// AppError
// ─────────────────────────────────────────────────────────────────────────────

// AppError is the single structured error type of the service. It supports
// errors.Is / errors.As / errors.Unwrap through Cause.
//
// Usage:
//
//	return errors.New(errors.ErrCodeMoleculeInvalidSMILES, "unclosed ring 1")
//	return errors.Wrap(err, errors.ErrCodeCatalogLoadFailed, "open catalog").
//	           WithDetail("path=" + path)
type AppError struct {
	// Code is the typed error code that identifies the failure category.
	Code ErrorCode

	// Message is the primary human-readable description.
	Message string

	// Detail carries supplementary context (file path, SMARTS text, line).
	Detail string

	// Cause is the underlying error, if any.
	Cause error

	// Stack is the call stack captured by New and Wrap. It is not part of
	// Error() output.
	Stack string
}

// Error implements the standard error interface.
// Format: "[<code>] <message>: <detail>: <cause>", empty segments omitted.
func (e *AppError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", e.Code, e.Message)
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause error.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail returns a copy of e with Detail replaced. A nil receiver stays nil.
func (e *AppError) WithDetail(detail string) *AppError {
	return e.with(func(c *AppError) { c.Detail = detail })
}

// WithCause returns a copy of e wrapping err.
func (e *AppError) WithCause(err error) *AppError {
	return e.with(func(c *AppError) { c.Cause = err })
}

func (e *AppError) with(set func(*AppError)) *AppError {
	if e == nil {
		return nil
	}
	c := *e
	set(&c)
	return &c
}

// ─────────────────────────────────────────────────────────────────────────────
// Factories
// ─────────────────────────────────────────────────────────────────────────────

// build is the common constructor. skip counts the exported factory frame.
func build(skip int, code ErrorCode, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause, Stack: captureStack(skip + 1)}
}

// New constructs a fresh AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return build(1, code, message, nil)
}

// Newf is New with a format string.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return build(1, code, fmt.Sprintf(format, args...), nil)
}

// Wrap annotates err with a code and message; nil in, nil out. Passing
// CodeUnknown inherits the code of the nearest AppError already in the chain.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if code == CodeUnknown {
		code = GetCode(err)
	}
	return build(1, code, message, err)
}

// ─────────────────────────────────────────────────────────────────────────────
// Error-chain inspection helpers
// ─────────────────────────────────────────────────────────────────────────────

// IsCode reports whether any AppError in err's chain has the given code,
// including ones hidden behind fmt.Errorf("%w") wrappers.
func IsCode(err error, code ErrorCode) bool {
	for ; err != nil; err = errors.Unwrap(err) {
		if ae, ok := err.(*AppError); ok && ae.Code == code {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err carries CodeNotFound.
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

// GetCode extracts the ErrorCode from the first *AppError found in err's chain.
// A nil error yields CodeOK; a foreign error yields CodeUnknown.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// ─────────────────────────────────────────────────────────────────────────────
// Convenience factories
// ─────────────────────────────────────────────────────────────────────────────

// NotFound constructs a CodeNotFound AppError.
func NotFound(message string) *AppError { return build(1, CodeNotFound, message, nil) }

// InvalidParam constructs a CodeInvalidParam AppError.
func InvalidParam(message string) *AppError { return build(1, CodeInvalidParam, message, nil) }

// NotReady is returned by components used before construction finished
// (nil catalog, zero-value standardizer).
func NotReady(message string) *AppError {
	return build(1, ErrCodeStandardizerNotReady, message, nil)
}

// Internal constructs a CodeInternal AppError.
func Internal(message string) *AppError { return build(1, CodeInternal, message, nil) }
