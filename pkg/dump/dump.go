// Package dump reads and writes the sectioned CSV format used for object
// store dumps and model sample files.
//
// A dump holds one section per class:
//
//	Foo objects
//	serialNum,i,s,bar
//	1,2,hello,Bar.1
//
// Each section ends with a blank line and the dump ends with another.
package dump

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/leapstore/pkg/schema"
)

// sectionSuffix ends the line that opens a section.
const sectionSuffix = " objects"

// ErrMalformed is returned for input that is not in the dump format.
var ErrMalformed = errors.New("malformed dump")

// Section is the rows of one class.
type Section struct {
	Class   string
	Columns []string
	Rows    [][]string
}

// Ref is an object reference in dump form: "Class.serial".
type Ref struct {
	Class  string
	Serial int64
}

func (r Ref) String() string {
	return r.Class + "." + strconv.FormatInt(r.Serial, 10)
}

// ParseRef parses "Class.serial".
func ParseRef(s string) (Ref, error) {
	i := strings.LastIndexByte(s, '.')
	if i <= 0 || i == len(s)-1 {
		return Ref{}, fmt.Errorf("%w: bad object reference %q", ErrMalformed, s)
	}
	n, err := strconv.ParseInt(s[i+1:], 10, 64)
	if err != nil || n <= 0 {
		return Ref{}, fmt.Errorf("%w: bad object reference %q", ErrMalformed, s)
	}
	return Ref{Class: s[:i], Serial: n}, nil
}

// Writer writes sections.
type Writer struct {
	w   io.Writer
	csv *csv.Writer
}

// NewWriter returns a writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, csv: csv.NewWriter(w)}
}

// WriteSection writes one class section followed by a blank line.
func (w *Writer) WriteSection(s Section) error {
	if _, err := io.WriteString(w.w, s.Class+sectionSuffix+"\n"); err != nil {
		return err
	}
	if err := w.csv.Write(s.Columns); err != nil {
		return err
	}
	if err := w.csv.WriteAll(s.Rows); err != nil {
		return err
	}
	_, err := io.WriteString(w.w, "\n")
	return err
}

// Close writes the trailing blank line. It does not close the underlying writer.
func (w *Writer) Close() error {
	_, err := io.WriteString(w.w, "\n")
	return err
}

// Read parses every section in r. Lines starting with # are comments.
func Read(r io.Reader) ([]Section, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	cr.ReuseRecord = false

	var (
		out []Section
		cur *Section
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		if isBlank(rec) {
			continue
		}
		if class, ok := sectionStart(rec); ok {
			out = append(out, Section{Class: class})
			cur = &out[len(out)-1]
			continue
		}
		if cur == nil {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("%w: line %d: row outside of a section", ErrMalformed, line)
		}
		if cur.Columns == nil {
			cur.Columns = trimAll(rec)
			continue
		}
		cur.Rows = append(cur.Rows, rec)
	}
	return out, nil
}

func sectionStart(rec []string) (string, bool) {
	if len(rec) != 1 && !(len(rec) > 1 && isBlank(rec[1:])) {
		return "", false
	}
	s := strings.TrimSpace(rec[0])
	if !strings.HasSuffix(s, sectionSuffix) {
		return "", false
	}
	class := strings.TrimSpace(strings.TrimSuffix(s, sectionSuffix))
	if class == "" || strings.ContainsAny(class, " \t") {
		return "", false
	}
	return class, true
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func trimAll(rec []string) []string {
	out := make([]string, len(rec))
	for i, f := range rec {
		out[i] = strings.TrimSpace(f)
	}
	return out
}

// FormatValue renders a normalized attribute value in dump form: empty for
// nil, 1/0 for booleans, canonical text for temporals.
func FormatValue(kind schema.Kind, v any) string {
	if v == nil {
		return ""
	}
	switch kind {
	case schema.KindBool:
		if b, ok := v.(bool); ok {
			if b {
				return "1"
			}
			return "0"
		}
	case schema.KindFloat:
		if f, ok := v.(float64); ok {
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
	case schema.KindDate, schema.KindTime, schema.KindDateTime:
		if t, ok := v.(time.Time); ok {
			switch kind {
			case schema.KindDate:
				return t.Format(schema.DateFormat)
			case schema.KindTime:
				return t.Format(schema.TimeFormat)
			default:
				return t.Format(schema.DateTimeFormat)
			}
		}
	case schema.KindInt, schema.KindLong, schema.KindString, schema.KindEnum, schema.KindObjRef, schema.KindList:
	default:
		panic(fmt.Sprintf("dump: unhandled kind %v", kind))
	}
	return fmt.Sprint(v)
}

// ParseValue converts a dump field into a value accepted by a.Validate.
// Object references come back as Ref. Empty fields are nil.
func ParseValue(a *schema.Attr, field string) (any, error) {
	if field == "" {
		return nil, nil
	}
	s := strings.TrimSpace(field)
	switch a.Kind {
	case schema.KindBool:
		b, err := strconv.ParseBool(strings.ToLower(s))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: bad bool %q", ErrMalformed, a.QualifiedName(), field)
		}
		return b, nil
	case schema.KindInt, schema.KindLong:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: bad integer %q", ErrMalformed, a.QualifiedName(), field)
		}
		return n, nil
	case schema.KindFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: bad number %q", ErrMalformed, a.QualifiedName(), field)
		}
		return f, nil
	case schema.KindString:
		return field, nil
	case schema.KindEnum, schema.KindDate, schema.KindTime, schema.KindDateTime:
		return s, nil
	case schema.KindObjRef:
		return ParseRef(s)
	case schema.KindList:
		return nil, fmt.Errorf("%w: %s: lists have no column", ErrMalformed, a.QualifiedName())
	default:
		panic(fmt.Sprintf("dump: unhandled kind %v", a.Kind))
	}
}
