package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind categorizes engine failures
type ErrorKind string

const (
	ErrorKindInvalidRequest ErrorKind = "invalid_request"
	ErrorKindDecode         ErrorKind = "decode"
	ErrorKindCapacity       ErrorKind = "capacity"
	ErrorKindLifecycle      ErrorKind = "lifecycle"
	ErrorKindInternal       ErrorKind = "internal"
)

// NoIndex marks an error that is not tied to a batch item
const NoIndex = -1

// Error is a structured engine error
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Index   int       `json:"index"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Index != NoIndex {
		fmt.Fprintf(&b, " [item %d]", e.Index)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, " (caused by: %v)", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// AtIndex returns a copy of e attributed to batch item i
func (e *Error) AtIndex(i int) *Error {
	c := *e
	c.Index = i
	return &c
}

func newError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Index: NoIndex, Message: message, Cause: cause}
}

// NewInvalidRequestError creates an error for out-of-range parameters
func NewInvalidRequestError(message string, cause error) *Error {
	return newError(ErrorKindInvalidRequest, message, cause)
}

// NewDecodeError creates an error for a source that could not be opened or decoded
func NewDecodeError(message string, cause error) *Error {
	return newError(ErrorKindDecode, message, cause)
}

// NewCapacityError creates an error for a destination buffer that is too small
func NewCapacityError(message string, cause error) *Error {
	return newError(ErrorKindCapacity, message, cause)
}

// NewLifecycleError creates an error for use of a destroyed or unknown context
func NewLifecycleError(message string, cause error) *Error {
	return newError(ErrorKindLifecycle, message, cause)
}

// NewInternalError creates an error for failures outside the other kinds
func NewInternalError(message string, cause error) *Error {
	return newError(ErrorKindInternal, message, cause)
}

// AsError converts err into an *Error, classifying unknown errors as internal
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewInternalError(err.Error(), err)
}

// IsKind reports whether err, or any error it wraps, is of the given kind
func IsKind(err error, kind ErrorKind) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) && e.Kind == kind {
		return true
	}
	var be *BatchError
	if errors.As(err, &be) {
		for _, item := range be.Items {
			if item.Kind == kind {
				return true
			}
		}
	}
	return false
}

// BatchError aggregates the item failures of one batch. Items are ordered by index.
type BatchError struct {
	Items []*Error
}

// Error implements the error interface
func (e *BatchError) Error() string {
	parts := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		parts = append(parts, fmt.Sprintf("%d:%s", item.Index, item.Kind))
	}
	msg := fmt.Sprintf("batch failed: %d item(s) [%s]", len(e.Items), strings.Join(parts, ", "))
	if len(e.Items) > 0 {
		msg += ": " + e.Items[0].Error()
	}
	return msg
}

// Unwrap exposes every item error to errors.Is and errors.As
func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Items))
	for i, item := range e.Items {
		errs[i] = item
	}
	return errs
}

// Indices returns the failing batch positions
func (e *BatchError) Indices() []int {
	out := make([]int, len(e.Items))
	for i, item := range e.Items {
		out[i] = item.Index
	}
	return out
}

// NewBatchError collects non-nil slot errors, attributing each to its position.
// It returns nil when every slot is nil.
func NewBatchError(slots []error) error {
	var items []*Error
	for i, err := range slots {
		if err == nil {
			continue
		}
		items = append(items, AsError(err).AtIndex(i))
	}
	if len(items) == 0 {
		return nil
	}
	return &BatchError{Items: items}
}
