package schema

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Class is a class definition: a named entity with ordered attributes and an
// optional superclass whose attributes it inherits.
type Class struct {
	Name      string
	SuperName string
	Abstract  bool
	// ID is the class id stored in object references.
	ID int

	attrs    []*Attr
	allAttrs []*Attr
	byName   map[string]*Attr
	super    *Class
	subs     []*Class
	model    *Model
	index    int
}

// Model returns the owning model.
func (c *Class) Model() *Model { return c.model }

// Super returns the superclass, or nil.
func (c *Class) Super() *Class { return c.super }

// Subclasses returns the direct subclasses in declaration order.
func (c *Class) Subclasses() []*Class { return c.subs }

// Attrs returns the attributes declared by this class.
func (c *Class) Attrs() []*Attr { return c.attrs }

// AllAttrs returns inherited attributes followed by the class's own.
func (c *Class) AllAttrs() []*Attr { return c.allAttrs }

// Attr looks up an attribute by name, including inherited ones.
func (c *Class) Attr(name string) (*Attr, bool) {
	a, ok := c.byName[name]
	return a, ok
}

// ColumnAttrs returns the attributes stored in the class table, in
// declaration order.
func (c *Class) ColumnAttrs() []*Attr {
	out := make([]*Attr, 0, len(c.allAttrs))
	for _, a := range c.allAttrs {
		if a.HasColumn() {
			out = append(out, a)
		}
	}
	return out
}

// ListAttrs returns the to-many attributes.
func (c *Class) ListAttrs() []*Attr {
	var out []*Attr
	for _, a := range c.allAttrs {
		if a.Kind == KindList {
			out = append(out, a)
		}
	}
	return out
}

// IsA reports whether c is other or one of its subclasses.
func (c *Class) IsA(other *Class) bool {
	for k := c; k != nil; k = k.super {
		if k == other {
			return true
		}
	}
	return false
}

// Descendants returns every class below c, depth first in declaration order.
func (c *Class) Descendants() []*Class {
	var out []*Class
	for _, s := range c.subs {
		out = append(out, s)
		out = append(out, s.Descendants()...)
	}
	return out
}

// SerialColumn returns the primary key column name for the class table.
func (c *Class) SerialColumn() string {
	name := DefaultSerialColumnName
	if c.model != nil && c.model.Settings.SQLSerialColumnName != "" {
		name = c.model.Settings.SQLSerialColumnName
	}
	name = strings.ReplaceAll(name, "{Class}", c.Name)
	return strings.ReplaceAll(name, "{class}", lowerFirst(c.Name))
}

// ColumnNames returns every column of the class table except the serial
// column, in declaration order.
func (c *Class) ColumnNames() []string {
	var s Settings
	if c.model != nil {
		s = c.model.Settings
	}
	var out []string
	for _, a := range c.ColumnAttrs() {
		out = append(out, a.ColumnNames(s)...)
	}
	return out
}

func (c *Class) String() string { return c.Name }

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[n:]
}
