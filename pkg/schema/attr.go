package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DeletePolicy says what happens to related objects when an object is deleted.
type DeletePolicy string

// Delete policies.
const (
	DeleteDeny    DeletePolicy = "deny"
	DeleteDetach  DeletePolicy = "detach"
	DeleteCascade DeletePolicy = "cascade"
)

// Attr is an attribute definition. Kind selects which of the kind-specific
// fields are meaningful: Enums for KindEnum, Target and BackRef for KindObjRef
// and KindList, Min/Max for numeric and string kinds.
type Attr struct {
	Name     string
	Kind     Kind
	Min      *float64
	Max      *float64
	Required bool
	Indexed  bool
	Unique   bool

	Enums   []string
	Target  string
	BackRef string

	// OnDeleteOther applies to objects referencing a deleted object through this attribute.
	OnDeleteOther DeletePolicy
	// OnDeleteSelf applies to the object this attribute references when its owner is deleted.
	OnDeleteSelf DeletePolicy

	Extras map[string]string

	rawDefault string
	hasDefault bool
	def        any
	class      *Class
	target     *Class
	enumIndex  map[string]int
}

var titleCaser = cases.Title(language.Und, cases.NoLower)

// Class returns the class declaring the attribute.
func (a *Attr) Class() *Class { return a.class }

// TargetClass returns the referenced class for KindObjRef and KindList.
func (a *Attr) TargetClass() *Class { return a.target }

// HasDefault reports whether a default was declared.
func (a *Attr) HasDefault() bool { return a.hasDefault }

// RawDefault returns the default as written in the model.
func (a *Attr) RawDefault() string { return a.rawDefault }

// DefaultValue returns the normalized declared default, or nil.
func (a *Attr) DefaultValue() any { return a.def }

// HasColumn reports whether the attribute is stored in its class table.
// Lists are stored as back references on the target class.
func (a *Attr) HasColumn() bool {
	switch a.Kind {
	case KindBool, KindInt, KindLong, KindFloat, KindString, KindEnum,
		KindDate, KindTime, KindDateTime, KindObjRef:
		return true
	case KindList:
		return false
	default:
		panic(unhandledKind(a.Kind))
	}
}

// ColumnNames returns the SQL column names backing the attribute.
func (a *Attr) ColumnNames(s Settings) []string {
	switch a.Kind {
	case KindObjRef:
		if s.UseBigIntObjRefColumns {
			return []string{a.Name + "Id"}
		}
		return []string{a.Name + s.ClassIDSuffix(), a.Name + s.ObjIDSuffix()}
	case KindList:
		return nil
	case KindBool, KindInt, KindLong, KindFloat, KindString, KindEnum,
		KindDate, KindTime, KindDateTime:
		return []string{a.Name}
	default:
		panic(unhandledKind(a.Kind))
	}
}

// MinLength returns the minimum string length, if bounded.
func (a *Attr) MinLength() (int, bool) {
	if a.Min == nil {
		return 0, false
	}
	return int(*a.Min), true
}

// MaxLength returns the maximum string length, if bounded.
func (a *Attr) MaxLength() (int, bool) {
	if a.Max == nil {
		return 0, false
	}
	return int(*a.Max), true
}

// IsFixedWidth reports whether a string attribute has Min == Max.
func (a *Attr) IsFixedWidth() bool {
	return a.Kind == KindString && a.Min != nil && a.Max != nil && *a.Min == *a.Max
}

// HasEnum reports whether v is one of the labels or a valid ordinal.
func (a *Attr) HasEnum(v any) bool {
	_, ok := a.enumLabel(v)
	return ok
}

// IndexForLabel returns the ordinal of label.
func (a *Attr) IndexForLabel(label string) (int, error) {
	i, ok := a.enumIndex[label]
	if !ok {
		return 0, a.invalid(label, ErrUnknownEnum, "")
	}
	return i, nil
}

// LabelForIndex returns the label at ordinal i.
func (a *Attr) LabelForIndex(i int) (string, error) {
	if i < 0 || i >= len(a.Enums) {
		return "", a.invalid(i, ErrUnknownEnum, "ordinal out of range")
	}
	return a.Enums[i], nil
}

// MaxEnumLength returns the length of the longest label.
func (a *Attr) MaxEnumLength() int {
	n := 0
	for _, e := range a.Enums {
		if len(e) > n {
			n = len(e)
		}
	}
	return n
}

func (a *Attr) enumLabel(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		_, ok := a.enumIndex[x]
		return x, ok
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		n, _ := toInt64(x)
		if n < 0 || n >= int64(len(a.Enums)) {
			return "", false
		}
		return a.Enums[n], true
	}
	return "", false
}

// Getter returns the accessor name, e.g. "Foo" for attribute "foo".
func (a *Attr) Getter() string { return titleCaser.String(a.Name) }

// Setter returns the mutator name, e.g. "SetFoo".
func (a *Attr) Setter() string { return "Set" + a.Getter() }

// AdderName returns the to-many add helper name, e.g. "AddToBars".
func (a *Attr) AdderName() string { return "AddTo" + a.Getter() }

// RemoverName returns the to-many remove helper name, e.g. "DelFromBars".
func (a *Attr) RemoverName() string { return "DelFrom" + a.Getter() }

// BackRefAttr returns the attribute on the target class that points back at
// the owner of a list attribute.
func (a *Attr) BackRefAttr() *Attr {
	if a.Kind != KindList || a.target == nil {
		return nil
	}
	b, _ := a.target.Attr(a.BackRef)
	return b
}

// QualifiedName returns "Class.attr".
func (a *Attr) QualifiedName() string {
	if a.class == nil {
		return a.Name
	}
	return a.class.Name + "." + a.Name
}

func (a *Attr) String() string {
	return fmt.Sprintf("%s %s", a.QualifiedName(), a.Kind)
}

func (a *Attr) invalid(v any, err error, reason string) *ValidationError {
	cls := ""
	if a.class != nil {
		cls = a.class.Name
	}
	return &ValidationError{Class: cls, Attr: a.Name, Value: v, Reason: reason, Err: err}
}

// parseDefault turns the textual default into a normalized value.
func (a *Attr) parseDefault(raw string) (any, error) {
	s := strings.TrimSpace(raw)
	switch a.Kind {
	case KindBool:
		b, ok := parseBool(s)
		if !ok {
			return nil, fmt.Errorf("invalid bool default %q", raw)
		}
		return a.Validate(b)
	case KindInt, KindLong:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer default %q", raw)
		}
		return a.Validate(n)
	case KindFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float default %q", raw)
		}
		return a.Validate(f)
	case KindString:
		return a.Validate(unquote(raw))
	case KindEnum:
		return a.Validate(unquote(s))
	case KindDate, KindTime, KindDateTime:
		return a.Validate(unquote(s))
	case KindObjRef, KindList:
		return nil, fmt.Errorf("%s attributes cannot have a default", a.Kind)
	default:
		panic(unhandledKind(a.Kind))
	}
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "t", "yes", "y", "on":
		return true, true
	case "0", "false", "f", "no", "n", "off", "":
		return false, true
	}
	return false, false
}

func parseBound(raw string) (*float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return nil, fmt.Errorf("invalid bound %q", raw)
	}
	return &f, nil
}
