package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapstore/pkg/schema"
)

// Store sentinels, matched with errors.Is.
var (
	ErrAlreadyInStore = errors.New("object is already in a store")
	ErrNotInStore     = errors.New("object is not in a store")
	ErrPendingChanges = errors.New("store has unsaved changes")
	ErrZeroSerial     = errors.New("object reference has a zero class id or serial number")
	ErrUnknownAttr    = errors.New("unknown attribute")
	ErrUnknownClass   = errors.New("unknown class")
	ErrClosed         = errors.New("store is closed")
	ErrAbstractClass  = errors.New("class is abstract")
)

// Relationship contract violations, wrapped in a RelationError.
var (
	ErrNilObject     = errors.New("object is nil")
	ErrWrongClass    = errors.New("object has the wrong class")
	ErrAlreadyMember = errors.New("object is already in the list")
	ErrNotMember     = errors.New("object is not in the list")
	ErrNotList       = errors.New("attribute is not a list")
	ErrNotRef        = errors.New("attribute is not an object reference")

	errListAssign = errors.New("lists change through AddTo and RemoveFrom")
)

// RelationError reports a rejected change to a relationship. It is raised
// before any SQL runs and leaves both objects untouched.
type RelationError struct {
	Op   string
	Attr string
	Err  error
}

func (e *RelationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Attr, e.Err)
}

func (e *RelationError) Unwrap() error { return e.Err }

// PersistenceError reports a failed statement. The transaction it ran in was
// rolled back.
type PersistenceError struct {
	Op  string
	SQL string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.SQL == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v\nSQL: %s", e.Op, e.Err, e.SQL)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// SQLWarningError reports warnings raised by the server for a statement.
type SQLWarningError struct {
	SQL      string
	Warnings []string
}

func (e *SQLWarningError) Error() string {
	return fmt.Sprintf("sql warnings: %s\nSQL: %s", strings.Join(e.Warnings, "; "), e.SQL)
}

// UnknownObjectError is returned when a fetched object does not exist.
type UnknownObjectError struct {
	Class  string
	Serial int64
}

func (e *UnknownObjectError) Error() string {
	return fmt.Sprintf("unknown object %s.%d", e.Class, e.Serial)
}

// Reference is one object pointing at another through Attr.
type Reference struct {
	Object *Object
	Attr   *schema.Attr
}

// DeleteReferencedError is returned when deleting an object that other
// objects reference through attributes whose OnDeleteOther is deny.
// Object may differ from the object passed to DeleteObject during a cascade.
type DeleteReferencedError struct {
	Object      *Object
	Referencing []Reference
}

func (e *DeleteReferencedError) Error() string {
	refs := make([]string, len(e.Referencing))
	for i, r := range e.Referencing {
		refs[i] = r.Object.String() + "." + r.Attr.Name
	}
	return fmt.Sprintf("cannot delete %s: referenced by %s", e.Object, strings.Join(refs, ", "))
}

// DeleteWithReferencesError is returned when deleting an object that
// references others through attributes whose OnDeleteSelf is deny.
type DeleteWithReferencesError struct {
	Object *Object
	Attrs  []*schema.Attr
}

func (e *DeleteWithReferencesError) Error() string {
	names := make([]string, len(e.Attrs))
	for i, a := range e.Attrs {
		names[i] = a.Name
	}
	return fmt.Sprintf("cannot delete %s: it references other objects through %s", e.Object, strings.Join(names, ", "))
}
