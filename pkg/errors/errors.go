/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package errors

import (
	"errors"
	"fmt"
)

// Kind tags an error with one of the engine's stable failure classes. Callers
// branch on kinds, never on message text.
type Kind string

const (
	KindNotFound            Kind = "NotFound"
	KindConflict            Kind = "Conflict"
	KindInvalid             Kind = "Invalid"
	KindConstraintViolation Kind = "ConstraintViolation"
	KindInfeasible          Kind = "Infeasible"
	KindTimeout             Kind = "Timeout"
	KindUnavailable         Kind = "Unavailable"
	KindInternal            Kind = "Internal"
)

// Code returns the stable machine code surfaced to callers for this kind.
func (k Kind) Code() string {
	switch k {
	case KindNotFound:
		return "E_NOT_FOUND"
	case KindConflict:
		return "E_CONFLICT_OPTIMISTIC_LOCK"
	case KindInvalid:
		return "E_INVALID"
	case KindConstraintViolation:
		return "E_CONSTRAINT_VIOLATION"
	case KindInfeasible:
		return "E_INFEASIBLE"
	case KindTimeout:
		return "E_TIMEOUT"
	case KindUnavailable:
		return "E_UNAVAILABLE"
	default:
		return "E_INTERNAL"
	}
}

// Error is a tagged error. The message must be free of person names; use
// roster refs for anything person-shaped.
type Error struct {
	ErrKind Kind
	Message string
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Wrapped)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Code returns the stable machine code for this error.
func (e *Error) Code() string { return e.ErrKind.Code() }

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{ErrKind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return newError(KindNotFound, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return newError(KindConflict, format, args...)
}

func Invalid(format string, args ...interface{}) *Error {
	return newError(KindInvalid, format, args...)
}

func Infeasible(format string, args ...interface{}) *Error {
	return newError(KindInfeasible, format, args...)
}

func Timeout(format string, args ...interface{}) *Error {
	return newError(KindTimeout, format, args...)
}

func Unavailable(format string, args ...interface{}) *Error {
	return newError(KindUnavailable, format, args...)
}

func Internal(format string, args ...interface{}) *Error {
	return newError(KindInternal, format, args...)
}

// Wrap tags an underlying error with a kind while keeping it unwrappable.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{ErrKind: kind, Message: fmt.Sprintf(format, args...), Wrapped: err}
}

// KindOf returns the kind of err if it is (or wraps) a tagged error, and
// KindInternal otherwise.
func KindOf(err error) Kind {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.ErrKind
	}
	return KindInternal
}

// CodeOf returns the stable machine code for err.
func CodeOf(err error) string { return KindOf(err).Code() }

func is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.ErrKind == kind
	}
	return false
}

// IsNotFound returns true if the err is a tagged error (even if it's wrapped)
// and is known to mean "entity missing" (as opposed to a more serious or
// unexpected error).
func IsNotFound(err error) bool { return is(err, KindNotFound) }

// IsConflict returns true for optimistic-lock mismatches and duplicate
// assignments. Callers may retry with a fresh timestamp.
func IsConflict(err error) bool { return is(err, KindConflict) }

func IsInvalid(err error) bool { return is(err, KindInvalid) }

func IsInfeasible(err error) bool { return is(err, KindInfeasible) }

func IsTimeout(err error) bool { return is(err, KindTimeout) }

// IsUnavailable returns true when the persistence or solver port is down.
// These are retry-friendly.
func IsUnavailable(err error) bool { return is(err, KindUnavailable) }

func IsInternal(err error) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == KindInternal
}
