package shmlog

import (
	"errors"
	"fmt"
	"syscall"
)

// Error represents a structured shmlog error with context and errno mapping.
type Error struct {
	Op     string    // Operation that failed (e.g. "ATTACH", "RESERVE")
	Region string    // Region name ("" if not applicable)
	Code   ErrorCode // High-level error category
	Errno  syscall.Errno
	Msg    string
	Inner  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Region != "" {
		parts = append(parts, fmt.Sprintf("region=%s", e.Region))
	}
	if e.Errno != 0 {
		parts = append(parts, fmt.Sprintf("errno=%d", e.Errno))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("shmlog: %s (%s)", msg, parts[0])
	}
	return fmt.Sprintf("shmlog: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is provides errors.Is support, including against the legacy Sentinel
// error values below.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if se, ok := target.(Sentinel); ok {
		return e.Code == ErrorCode(se)
	}
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// ErrorCode represents the high-level error categories.
type ErrorCode string

const (
	ErrCodeFull                ErrorCode = "ring buffer full"
	ErrCodeNotReady            ErrorCode = "slot not yet committed"
	ErrCodeInvalidHandle       ErrorCode = "invalid region handle"
	ErrCodeVersionMismatch     ErrorCode = "version mismatch"
	ErrCodeMapFailed           ErrorCode = "shared memory map failed"
	ErrCodeCreateFailed        ErrorCode = "shared memory create failed"
	ErrCodeNotifierUnavailable ErrorCode = "notifier kind unavailable on this platform"
)

// Sentinel is a legacy-style comparable error value usable with errors.Is
// against the richer *Error type.
type Sentinel string

func (s Sentinel) Error() string { return string(s) }

// Sentinel error values for callers that only need to distinguish kinds.
const (
	ErrFull                Sentinel = Sentinel(ErrCodeFull)
	ErrNotReady            Sentinel = Sentinel(ErrCodeNotReady)
	ErrInvalidHandle       Sentinel = Sentinel(ErrCodeInvalidHandle)
	ErrVersionMismatch     Sentinel = Sentinel(ErrCodeVersionMismatch)
	ErrMapFailed           Sentinel = Sentinel(ErrCodeMapFailed)
	ErrCreateFailed        Sentinel = Sentinel(ErrCodeCreateFailed)
	ErrNotifierUnavailable Sentinel = Sentinel(ErrCodeNotifierUnavailable)
)

// NewError creates a new structured error.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// NewRegionError creates a new region-scoped structured error.
func NewRegionError(op, region string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Region: region, Code: code, Msg: msg}
}

// NewErrorWithErrno creates a new structured error carrying an errno.
func NewErrorWithErrno(op string, code ErrorCode, errno syscall.Errno) *Error {
	return &Error{Op: op, Code: code, Errno: errno, Msg: errno.Error()}
}

// WrapError wraps an existing error with shmlog context, mapping syscall
// errnos to the nearest ErrorCode.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if se, ok := inner.(*Error); ok {
		return &Error{Op: op, Region: se.Region, Code: se.Code, Errno: se.Errno, Msg: se.Msg, Inner: se.Inner}
	}
	if errno, ok := inner.(syscall.Errno); ok {
		return &Error{Op: op, Code: mapErrnoToCode(errno), Errno: errno, Msg: errno.Error(), Inner: inner}
	}
	return &Error{Op: op, Code: ErrCodeMapFailed, Msg: inner.Error(), Inner: inner}
}

func mapErrnoToCode(errno syscall.Errno) ErrorCode {
	switch errno {
	case syscall.ENOENT:
		return ErrCodeInvalidHandle
	case syscall.EEXIST:
		return ErrCodeCreateFailed
	case syscall.EINVAL, syscall.E2BIG:
		return ErrCodeInvalidHandle
	case syscall.ENOSPC, syscall.ENOMEM:
		return ErrCodeMapFailed
	case syscall.EACCES, syscall.EPERM:
		return ErrCodeCreateFailed
	default:
		return ErrCodeMapFailed
	}
}

// IsCode reports whether err is a *Error (or wraps one) carrying code.
func IsCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}
