package dialect

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/leapstore/pkg/schema"
)

// ErrUnsupportedValue is returned when a value has no literal form for its kind.
var ErrUnsupportedValue = errors.New("unsupported value")

// ColumnValue maps a normalized attribute value to the kind and value stored
// in its column. Externally stored enums become their ordinal.
func ColumnValue(a *schema.Attr, v any) (schema.Kind, any, error) {
	if a.Kind != schema.KindEnum || v == nil || !settingsOf(a.Class()).ExternalEnums {
		return a.Kind, v, nil
	}
	switch x := v.(type) {
	case string:
		i, err := a.IndexForLabel(x)
		if err != nil {
			return a.Kind, nil, err
		}
		return schema.KindInt, int64(i), nil
	case int, int64:
		return schema.KindInt, v, nil
	}
	return a.Kind, nil, fmt.Errorf("%w: %T for enum %s", ErrUnsupportedValue, v, a.QualifiedName())
}

// LiteralFor renders v as an SQL literal for a column of the given kind.
func (d *Dialect) LiteralFor(kind schema.Kind, v any) (string, error) {
	if v == nil {
		return "NULL", nil
	}
	switch kind {
	case schema.KindBool:
		b, ok := v.(bool)
		if !ok {
			return "", unsupported(kind, v)
		}
		if b {
			return d.Literals.True, nil
		}
		return d.Literals.False, nil
	case schema.KindInt, schema.KindLong, schema.KindObjRef:
		switch n := v.(type) {
		case int:
			return strconv.Itoa(n), nil
		case int32:
			return strconv.FormatInt(int64(n), 10), nil
		case int64:
			return strconv.FormatInt(n, 10), nil
		case uint32:
			return strconv.FormatUint(uint64(n), 10), nil
		case uint64:
			return strconv.FormatUint(n, 10), nil
		}
		return "", unsupported(kind, v)
	case schema.KindFloat:
		switch f := v.(type) {
		case float64:
			return strconv.FormatFloat(f, 'g', -1, 64), nil
		case float32:
			return strconv.FormatFloat(float64(f), 'g', -1, 32), nil
		case int64:
			return strconv.FormatInt(f, 10), nil
		}
		return "", unsupported(kind, v)
	case schema.KindString:
		s, ok := v.(string)
		if !ok {
			return "", unsupported(kind, v)
		}
		return d.QuoteString(s), nil
	case schema.KindEnum:
		switch x := v.(type) {
		case string:
			return d.QuoteString(x), nil
		case int:
			return strconv.Itoa(x), nil
		case int64:
			return strconv.FormatInt(x, 10), nil
		}
		return "", unsupported(kind, v)
	case schema.KindDate, schema.KindTime, schema.KindDateTime:
		switch t := v.(type) {
		case time.Time:
			return d.QuoteString(FormatTemporal(kind, t)), nil
		case string:
			return d.QuoteString(t), nil
		}
		return "", unsupported(kind, v)
	case schema.KindList:
		return "", unsupported(kind, v)
	default:
		panic(fmt.Sprintf("dialect: unhandled kind %v", kind))
	}
}

func unsupported(kind schema.Kind, v any) error {
	return fmt.Errorf("%w: %T for %s", ErrUnsupportedValue, v, kind)
}

// FormatTemporal renders t in the canonical text form of kind.
func FormatTemporal(kind schema.Kind, t time.Time) string {
	switch kind {
	case schema.KindDate:
		return t.Format(schema.DateFormat)
	case schema.KindTime:
		return t.Format(schema.TimeFormat)
	default:
		return t.Format(schema.DateTimeFormat)
	}
}

// QuoteString renders s as a single-quoted string literal.
func (d *Dialect) QuoteString(s string) string {
	if !d.Literals.BackslashEscapes {
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	}
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'':
			b.WriteString("''")
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case 0:
			b.WriteString(`\0`)
		case 0x1a:
			b.WriteString(`\Z`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// AttrLiteral renders the stored form of v for attribute a.
func (d *Dialect) AttrLiteral(a *schema.Attr, v any) (string, error) {
	kind, cv, err := ColumnValue(a, v)
	if err != nil {
		return "", err
	}
	return d.LiteralFor(kind, cv)
}
