/*
 * CML - An embeddable object-oriented scripting engine
 * Copyright (c) 2024-5 by the CML authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package cmlerr holds the Go-native, internal error type used by the
// registry, interpreter and parser plumbing. It is a distinct concept from
// the macro-visible thrown-exception value in cml/except: this is for
// reporting host/engine-level failures (bad ids, malformed class files,
// capacity overflow), not for the try/catch machinery macros see.
package cmlerr

// Kind classifies a native error so callers can branch on intent instead of
// matching message text.
type Kind int

const (
	KindNotFound      Kind = iota // class/method/member lookup failed
	KindAmbiguous                 // name resolves to more than one candidate
	KindDuplicate                 // name already registered
	KindCapacity                  // a 16-bit id space is exhausted
	KindFormat                    // malformed class/method-body data
	KindCircular                  // circular inheritance or import
	KindTypeMismatch              // declared vs. actual type disagree
	KindCastRange                 // narrowing numeric cast would lose range
	KindCastIncompat              // cast between unrelated classes
	KindStackUnderflow            // interpreter stack underflow (debug-time check)
	KindStackOverflow             // interpreter stack overflow
	KindNotCopyable               // assignment into a non-copyable class
	KindBadIndex                  // collection index out of range
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindAmbiguous:
		return "Ambiguous"
	case KindDuplicate:
		return "Duplicate"
	case KindCapacity:
		return "Capacity"
	case KindFormat:
		return "Format"
	case KindCircular:
		return "Circular"
	case KindTypeMismatch:
		return "TypeMismatch"
	case KindCastRange:
		return "CastRange"
	case KindCastIncompat:
		return "CastIncompat"
	case KindStackUnderflow:
		return "StackUnderflow"
	case KindStackOverflow:
		return "StackOverflow"
	case KindNotCopyable:
		return "NotCopyable"
	case KindBadIndex:
		return "BadIndex"
	default:
		return "Unknown"
	}
}

// Error is CML's typed internal error, grounded on the hivekit
// pkg/types/api.go Error{Kind, Msg, Err} shape.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Msg + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an *Error of the given kind, wrapping an underlying cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	ce, ok := err.(*Error)
	return ok && ce.Kind == kind
}
