package schema

import (
	"fmt"
	"strings"
)

// Kind is the closed set of attribute kinds.
type Kind int

// Attribute kinds.
const (
	KindBool Kind = iota + 1
	KindInt
	KindLong
	KindFloat
	KindString
	KindEnum
	KindDate
	KindTime
	KindDateTime
	KindObjRef
	KindList
)

// Kinds lists every kind in declaration order.
var Kinds = []Kind{
	KindBool, KindInt, KindLong, KindFloat, KindString, KindEnum,
	KindDate, KindTime, KindDateTime, KindObjRef, KindList,
}

// String returns the model type name of the kind.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindLong:
		return "long"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindEnum:
		return "enum"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindDateTime:
		return "datetime"
	case KindObjRef:
		return "objref"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// IsNumeric reports whether values of the kind are compared numerically against Min/Max.
func (k Kind) IsNumeric() bool {
	return k == KindInt || k == KindLong || k == KindFloat
}

// IsTemporal reports whether the kind belongs to the date/time family.
func (k Kind) IsTemporal() bool {
	return k == KindDate || k == KindTime || k == KindDateTime
}

// ParseType maps a model type name to a kind and, for references, the target
// class name. Names that are not built in are references to the class of that
// name; "list of X" is a to-many list of X.
func ParseType(name string) (Kind, string) {
	n := strings.TrimSpace(name)
	lower := strings.ToLower(n)
	if strings.HasPrefix(lower, "list of ") {
		return KindList, strings.TrimSpace(n[len("list of "):])
	}
	switch lower {
	case "bool", "boolean":
		return KindBool, ""
	case "int", "integer":
		return KindInt, ""
	case "long", "bigint":
		return KindLong, ""
	case "float", "double":
		return KindFloat, ""
	case "string", "str":
		return KindString, ""
	case "enum":
		return KindEnum, ""
	case "date":
		return KindDate, ""
	case "time":
		return KindTime, ""
	case "datetime", "timestamp":
		return KindDateTime, ""
	case "objref":
		return KindObjRef, ""
	case "list":
		return KindList, ""
	}
	return KindObjRef, n
}

func unhandledKind(k Kind) string {
	panic(fmt.Sprintf("schema: unhandled kind %v", k))
}
