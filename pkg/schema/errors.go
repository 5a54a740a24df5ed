package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Validation sentinels, matched with errors.Is.
var (
	ErrOutOfRange  = errors.New("value out of range")
	ErrUnknownEnum = errors.New("unknown enum value")
	ErrWrongType   = errors.New("wrong value type")
	ErrRequired    = errors.New("value is required")
)

// ModelError reports a malformed or inconsistent model description.
// Model errors are fatal at load time.
type ModelError struct {
	Model string
	Class string
	Attr  string
	Msg   string
}

func (e *ModelError) Error() string {
	var loc []string
	if e.Model != "" {
		loc = append(loc, e.Model)
	}
	if e.Class != "" {
		loc = append(loc, e.Class)
	}
	if e.Attr != "" {
		loc = append(loc, e.Attr)
	}
	if len(loc) == 0 {
		return "model error: " + e.Msg
	}
	return fmt.Sprintf("model error in %s: %s", strings.Join(loc, "."), e.Msg)
}

func modelErrorf(class, attr, format string, args ...any) *ModelError {
	return &ModelError{Class: class, Attr: attr, Msg: fmt.Sprintf(format, args...)}
}

// ValidationError reports a value rejected by an attribute.
type ValidationError struct {
	Class  string
	Attr   string
	Value  any
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid value %v for %s.%s: %v", e.Value, e.Class, e.Attr, e.Err)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
