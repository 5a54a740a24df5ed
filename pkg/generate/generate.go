// Package generate renders the SQL scripts of a model for one dialect:
// Create.sql builds the database, InsertSamples.sql loads the sample objects.
package generate

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapstore/pkg/dialect"
	"github.com/leapstack-labs/leapstore/pkg/dump"
	"github.com/leapstack-labs/leapstore/pkg/schema"
)

// Output layout.
const (
	OutputDir         = "GeneratedSQL"
	CreateFile        = "Create.sql"
	InsertSamplesFile = "InsertSamples.sql"
)

// ClassIDFunc returns the class id stored in references to c.
type ClassIDFunc func(c *schema.Class) int

func modelClassID(c *schema.Class) int { return c.ID }

func header(b *strings.Builder, m *schema.Model, d *dialect.Dialect, what string) {
	fmt.Fprintf(b, "-- %s for model %s\n", what, m.Name)
	fmt.Fprintf(b, "-- dialect: %s\n", d.Name)
	b.WriteString("-- generated by leapstore; edits will be overwritten\n\n")
}

// CreateSQL renders the script that drops and recreates the database.
func CreateSQL(m *schema.Model, d *dialect.Dialect) (string, error) {
	var b strings.Builder
	header(&b, m, d, "Create script")
	db := m.Settings.Database

	if s := d.DropDatabaseSQL(db, m); s != "" {
		b.WriteString(s)
		b.WriteString("\n")
	}
	if s := d.CreateDatabaseSQL(db); s != "" {
		b.WriteString(s)
		b.WriteString("\n")
	}
	if s := d.UseDatabaseSQL(db); s != "" {
		b.WriteString(s)
		b.WriteString("\n\n")
	}
	tables, err := d.CreateTablesSQL(m)
	if err != nil {
		return "", err
	}
	b.WriteString(tables)
	return b.String(), nil
}

// InsertSamplesSQL renders sample sections as insert statements with
// explicit serial numbers.
func InsertSamplesSQL(m *schema.Model, d *dialect.Dialect, sections []dump.Section) (string, error) {
	stmts, err := SampleStatements(m, d, sections, nil)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	header(&b, m, d, "Sample data")
	if s := d.UseDatabaseSQL(m.Settings.Database); s != "" {
		b.WriteString(s)
		b.WriteString("\n\n")
	}
	for _, s := range stmts {
		b.WriteString(s)
		b.WriteString(";\n")
	}
	return b.String(), nil
}

// SampleStatements turns sample sections into executable statements. A
// section without the serial column numbers its rows from 1. classID may be
// nil to use the ids assigned by the model.
func SampleStatements(m *schema.Model, d *dialect.Dialect, sections []dump.Section, classID ClassIDFunc) ([]string, error) {
	if classID == nil {
		classID = modelClassID
	}
	var out []string
	for _, sec := range sections {
		stmts, err := sectionStatements(m, d, sec, classID)
		if err != nil {
			return nil, fmt.Errorf("samples for %s: %w", sec.Class, err)
		}
		out = append(out, stmts...)
	}
	return out, nil
}

func sectionStatements(m *schema.Model, d *dialect.Dialect, sec dump.Section, classID ClassIDFunc) ([]string, error) {
	c, ok := m.Class(sec.Class)
	if !ok {
		return nil, fmt.Errorf("unknown class %q", sec.Class)
	}
	if c.Abstract {
		return nil, fmt.Errorf("class %s is abstract", c.Name)
	}

	serialIdx := -1
	attrs := make([]*schema.Attr, len(sec.Columns))
	for i, name := range sec.Columns {
		if name == c.SerialColumn() {
			serialIdx = i
			continue
		}
		a, ok := c.Attr(name)
		if !ok || !a.HasColumn() {
			return nil, fmt.Errorf("unknown column %q", name)
		}
		attrs[i] = a
	}

	var out []string
	begin, end := d.SerialInsertSQL(c)
	if begin != "" && len(sec.Rows) > 0 {
		out = append(out, begin)
	}
	var maxSerial int64
	for n, row := range sec.Rows {
		serial := int64(n + 1)
		if serialIdx >= 0 && serialIdx < len(row) {
			v, err := strconv.ParseInt(strings.TrimSpace(row[serialIdx]), 10, 64)
			if err != nil || v <= 0 {
				return nil, fmt.Errorf("row %d: bad serial number %q", n+1, row[serialIdx])
			}
			serial = v
		}
		maxSerial = max(maxSerial, serial)

		cols := []string{c.SerialColumn()}
		vals := []string{strconv.FormatInt(serial, 10)}
		for i, a := range attrs {
			if a == nil {
				continue
			}
			field := ""
			if i < len(row) {
				field = row[i]
			}
			lits, err := fieldLiterals(m, d, a, field, classID)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", n+1, err)
			}
			cols = append(cols, a.ColumnNames(m.Settings)...)
			vals = append(vals, lits...)
		}
		out = append(out, d.InsertSQL(c, cols, vals, false))
	}
	if end != "" && len(sec.Rows) > 0 {
		out = append(out, end)
	}
	if s := d.SerialResetSQL(c, maxSerial); s != "" && maxSerial > 0 {
		out = append(out, s)
	}
	return out, nil
}

func fieldLiterals(m *schema.Model, d *dialect.Dialect, a *schema.Attr, field string, classID ClassIDFunc) ([]string, error) {
	v, err := dump.ParseValue(a, field)
	if err != nil {
		return nil, err
	}
	if a.Kind == schema.KindObjRef {
		if v == nil {
			if a.Required {
				return nil, &schema.ValidationError{Class: a.Class().Name, Attr: a.Name, Err: schema.ErrRequired}
			}
			return dialect.RefLiterals(a, 0, 0), nil
		}
		ref := v.(dump.Ref)
		target, ok := m.Class(ref.Class)
		if !ok {
			return nil, fmt.Errorf("%s: unknown class %q", a.QualifiedName(), ref.Class)
		}
		if t := a.TargetClass(); t != nil && !target.IsA(t) {
			return nil, &schema.ValidationError{Class: a.Class().Name, Attr: a.Name, Value: ref.String(),
				Err: schema.ErrWrongType, Reason: "expected " + t.Name}
		}
		return dialect.RefLiterals(a, classID(target), ref.Serial), nil
	}
	nv, err := a.Validate(v)
	if err != nil {
		return nil, err
	}
	lit, err := d.AttrLiteral(a, nv)
	if err != nil {
		return nil, err
	}
	return []string{lit}, nil
}

// ReadSamples reads the model's sample file, if it has one.
func ReadSamples(m *schema.Model) ([]dump.Section, error) {
	if m.SamplesPath == "" {
		return nil, nil
	}
	f, err := os.Open(m.SamplesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open samples: %w", err)
	}
	defer func() { _ = f.Close() }()
	return dump.Read(f)
}

// WriteFiles writes Create.sql, and InsertSamples.sql when the model has
// samples, under outDir/GeneratedSQL. It returns the written paths.
func WriteFiles(outDir string, m *schema.Model, d *dialect.Dialect) ([]string, error) {
	dir := filepath.Join(outDir, OutputDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	create, err := CreateSQL(m, d)
	if err != nil {
		return nil, err
	}
	createPath := filepath.Join(dir, CreateFile)
	if err := os.WriteFile(createPath, []byte(create), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", CreateFile, err)
	}
	written := []string{createPath}

	sections, err := ReadSamples(m)
	if err != nil {
		return written, err
	}
	if sections == nil {
		return written, nil
	}
	samples, err := InsertSamplesSQL(m, d, sections)
	if err != nil {
		return written, err
	}
	samplesPath := filepath.Join(dir, InsertSamplesFile)
	if err := os.WriteFile(samplesPath, []byte(samples), 0o644); err != nil {
		return written, fmt.Errorf("failed to write %s: %w", InsertSamplesFile, err)
	}
	return append(written, samplesPath), nil
}
