package schema

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Instance is implemented by domain objects so that object references can be
// checked against their declared target class.
type Instance interface {
	SchemaClass() *Class
}

// Text layouts accepted for the date/time family.
var (
	DateLayouts     = []string{"2006-01-02", "01/02/2006"}
	TimeLayouts     = []string{"15:04:05", "15:04", "15:04:05.999999999"}
	DateTimeLayouts = []string{
		"2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02T15:04:05",
		time.RFC3339, time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05 -0700 MST",
	}
)

// Canonical text forms used for literals and dumps.
const (
	DateFormat     = "2006-01-02"
	TimeFormat     = "15:04:05"
	DateTimeFormat = "2006-01-02 15:04:05"
)

// Validate checks v against the attribute and returns its normalized form:
// int64 for int/long, float64 for float, the label for enums, time.Time for
// the date/time family, the Instance itself for object references.
func (a *Attr) Validate(v any) (any, error) {
	if isNil(v) {
		if a.Required {
			return nil, a.invalid(v, ErrRequired, "")
		}
		return nil, nil
	}
	switch a.Kind {
	case KindBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case int, int8, int16, int32, int64, uint8, uint16, uint32:
			n, _ := toInt64(b)
			return n != 0, nil
		}
		return nil, a.invalid(v, ErrWrongType, "expected bool")
	case KindInt, KindLong:
		n, ok := toInt64(v)
		if !ok {
			return nil, a.invalid(v, ErrWrongType, "expected integer")
		}
		if err := a.checkRange(v, float64(n)); err != nil {
			return nil, err
		}
		return n, nil
	case KindFloat:
		f, ok := toFloat64(v)
		if !ok {
			return nil, a.invalid(v, ErrWrongType, "expected number")
		}
		if err := a.checkRange(v, f); err != nil {
			return nil, err
		}
		return f, nil
	case KindString:
		s, ok := v.(string)
		if !ok {
			return nil, a.invalid(v, ErrWrongType, "expected string")
		}
		if err := a.checkRange(v, float64(utf8.RuneCountInString(s))); err != nil {
			return nil, err
		}
		return s, nil
	case KindEnum:
		label, ok := a.enumLabel(v)
		if !ok {
			return nil, a.invalid(v, ErrUnknownEnum, "expected one of "+strings.Join(a.Enums, ", "))
		}
		return label, nil
	case KindDate, KindTime, KindDateTime:
		t, err := a.toTime(v)
		if err != nil {
			return nil, err
		}
		return t, nil
	case KindObjRef:
		inst, ok := v.(Instance)
		if !ok {
			return nil, a.invalid(v, ErrWrongType, "expected an object")
		}
		if a.target != nil && !inst.SchemaClass().IsA(a.target) {
			return nil, a.invalid(inst.SchemaClass().Name, ErrWrongType, "expected "+a.target.Name)
		}
		return inst, nil
	case KindList:
		return nil, a.invalid(v, ErrWrongType, "lists are changed through their add and remove helpers")
	default:
		panic(unhandledKind(a.Kind))
	}
}

func (a *Attr) checkRange(v any, n float64) error {
	if a.Min != nil && n < *a.Min {
		return a.invalid(v, ErrOutOfRange, fmt.Sprintf("below minimum %v", *a.Min))
	}
	if a.Max != nil && n > *a.Max {
		return a.invalid(v, ErrOutOfRange, fmt.Sprintf("above maximum %v", *a.Max))
	}
	return nil
}

func (a *Attr) toTime(v any) (time.Time, error) {
	var t time.Time
	switch x := v.(type) {
	case time.Time:
		t = x
	case *time.Time:
		t = *x
	case string:
		parsed, ok := parseTemporal(a.Kind, x)
		if !ok {
			return time.Time{}, a.invalid(v, ErrWrongType, "unrecognized "+a.Kind.String()+" format")
		}
		t = parsed
	default:
		return time.Time{}, a.invalid(v, ErrWrongType, "expected "+a.Kind.String())
	}
	return normalizeTemporal(a.Kind, t), nil
}

func parseTemporal(k Kind, s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	var layouts []string
	switch k {
	case KindDate:
		layouts = append(append([]string{}, DateLayouts...), DateTimeLayouts...)
	case KindTime:
		layouts = append(append([]string{}, TimeLayouts...), DateTimeLayouts...)
	case KindDateTime:
		layouts = append(append([]string{}, DateTimeLayouts...), DateLayouts...)
	default:
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// normalizeTemporal keeps only the part of t that the kind stores, at second
// precision and in UTC.
func normalizeTemporal(k Kind, t time.Time) time.Time {
	switch k {
	case KindDate:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case KindTime:
		return time.Date(0, 1, 1, t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
	default:
		if t.Location() != time.UTC {
			t = t.UTC()
		}
		return t.Truncate(time.Second)
	}
}

// ScanValue converts a value read from a single column back into the
// normalized representation. Object references are converted by the store,
// which knows the column layout.
func (a *Attr) ScanValue(raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if b, ok := raw.([]byte); ok {
		raw = string(b)
	}
	switch a.Kind {
	case KindBool:
		switch x := raw.(type) {
		case bool:
			return x, nil
		case string:
			if b, ok := parseBool(x); ok {
				return b, nil
			}
		default:
			if n, ok := toInt64(x); ok {
				return n != 0, nil
			}
		}
	case KindInt, KindLong:
		switch x := raw.(type) {
		case string:
			n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
			if err == nil {
				return n, nil
			}
		default:
			if n, ok := toInt64(x); ok {
				return n, nil
			}
		}
	case KindFloat:
		switch x := raw.(type) {
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
			if err == nil {
				return f, nil
			}
		default:
			if f, ok := toFloat64(x); ok {
				return f, nil
			}
		}
	case KindString:
		if s, ok := raw.(string); ok {
			return s, nil
		}
		return fmt.Sprint(raw), nil
	case KindEnum:
		switch x := raw.(type) {
		case string:
			if n, err := strconv.Atoi(x); err == nil && len(a.Enums) > 0 {
				if _, isLabel := a.enumIndex[x]; !isLabel {
					return a.LabelForIndex(n)
				}
			}
			return x, nil
		default:
			if n, ok := toInt64(x); ok {
				return a.LabelForIndex(int(n))
			}
		}
	case KindDate, KindTime, KindDateTime:
		switch x := raw.(type) {
		case time.Time:
			return normalizeTemporal(a.Kind, x), nil
		case string:
			if t, ok := parseTemporal(a.Kind, x); ok {
				return normalizeTemporal(a.Kind, t), nil
			}
		}
	case KindObjRef:
		if n, ok := toInt64(raw); ok {
			return n, nil
		}
		if s, ok := raw.(string); ok {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return n, nil
			}
		}
	case KindList:
		return nil, a.invalid(raw, ErrWrongType, "lists have no column")
	default:
		panic(unhandledKind(a.Kind))
	}
	return nil, a.invalid(raw, ErrWrongType, fmt.Sprintf("cannot read %T from column", raw))
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		if uint64(x) > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case float32:
		return floatToInt(float64(x))
	case float64:
		return floatToInt(x)
	}
	return 0, false
}

func floatToInt(f float64) (int64, bool) {
	if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

func toFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	if n, ok := toInt64(v); ok {
		return float64(n), true
	}
	return 0, false
}
