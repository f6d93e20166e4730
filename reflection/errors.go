// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package reflection

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind categorizes reflection errors.
type ErrorKind uint8

const (
	// ErrMalformedModule indicates a module that cannot be described:
	// undecodable binary, several entry points or push-constant blocks,
	// duplicate bindings.
	ErrMalformedModule ErrorKind = iota

	// ErrInvalidUnsizedArrayPosition indicates a runtime-sized array that
	// is not the last struct member or the last binding of its set.
	ErrInvalidUnsizedArrayPosition

	// ErrIncompatibleMerge indicates stages that disagree on descriptor
	// type, array shape or overlapping byte layout.
	ErrIncompatibleMerge

	// ErrDuplicateStage indicates the same stage among the merge inputs.
	ErrDuplicateStage

	// ErrNameCollision indicates two distinct nodes claiming one name.
	ErrNameCollision

	// ErrInvalidArgument indicates a bad call: wrong input count, unknown
	// stage name, unresolvable member path.
	ErrInvalidArgument
)

// String returns a human-readable error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrMalformedModule:
		return "MalformedModule"
	case ErrInvalidUnsizedArrayPosition:
		return "InvalidUnsizedArrayPosition"
	case ErrIncompatibleMerge:
		return "IncompatibleMerge"
	case ErrDuplicateStage:
		return "DuplicateStage"
	case ErrNameCollision:
		return "NameCollision"
	case ErrInvalidArgument:
		return "InvalidArgument"
	default:
		return "Unknown"
	}
}

// Error represents a failed parse, merge or lookup.
type Error struct {
	// Kind categorizes the error.
	Kind ErrorKind

	// Message provides details about the error.
	Message string

	// Set and Binding locate the offending descriptor when HasBinding is set.
	Set        uint32
	Binding    uint32
	HasBinding bool

	// Stage is the offending stage mask, or 0.
	Stage Stage

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var where []string
	if e.HasBinding {
		where = append(where, fmt.Sprintf("set=%d binding=%d", e.Set, e.Binding))
	}
	if e.Stage != 0 {
		where = append(where, "stage="+e.Stage.String())
	}
	if len(where) > 0 {
		return fmt.Sprintf("reflection %s (%s): %s", e.Kind, strings.Join(where, " "), e.Message)
	}
	return fmt.Sprintf("reflection %s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsMalformedModule returns true if the error is ErrMalformedModule.
func (e *Error) IsMalformedModule() bool {
	return e.Kind == ErrMalformedModule
}

// IsIncompatibleMerge returns true if the error is ErrIncompatibleMerge.
func (e *Error) IsIncompatibleMerge() bool {
	return e.Kind == ErrIncompatibleMerge
}

// IsNameCollision returns true if the error is ErrNameCollision.
func (e *Error) IsNameCollision() bool {
	return e.Kind == ErrNameCollision
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func bindingError(kind ErrorKind, set, binding uint32, format string, args ...any) *Error {
	e := newError(kind, format, args...)
	e.Set, e.Binding, e.HasBinding = set, binding, true
	return e
}

func (e *Error) withStage(s Stage) *Error {
	e.Stage = s
	return e
}
