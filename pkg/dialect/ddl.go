package dialect

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/schema"
)

// ClassIDsTable stores the class id of every class in the model.
const ClassIDsTable = "_MKClassIds"

// DeletedColumn holds the deletion timestamp when deletes are marked.
const DeletedColumn = "deleted"

// ColumnSpec is the rendered definition of one column.
type ColumnSpec struct {
	Name    string
	Type    string
	NotNull bool
	// Default is a rendered literal, empty when the column has none.
	Default string
	Comment string
}

// DDL renders the column definition with the name padded to width.
func (c ColumnSpec) DDL(d *Dialect, width int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-*s %s", width, d.QuoteIdent(c.Name), c.Type)
	if c.NotNull {
		b.WriteString(" not null")
	}
	if c.Default != "" {
		b.WriteString(" default ")
		b.WriteString(c.Default)
	}
	if c.Comment != "" {
		b.WriteString(" /* " + c.Comment + " */")
	}
	return b.String()
}

// ColumnSpecs returns the columns backing attribute a. Lists have none.
func (d *Dialect) ColumnSpecs(a *schema.Attr) ([]ColumnSpec, error) {
	s := settingsOf(a.Class())
	names := a.ColumnNames(s)
	switch a.Kind {
	case schema.KindObjRef:
		if s.UseBigIntObjRefColumns {
			return []ColumnSpec{{Name: names[0], Type: d.Types.BigObjRef, NotNull: a.Required, Comment: a.Target}}, nil
		}
		return []ColumnSpec{
			{Name: names[0], Type: d.Types.ObjRef, NotNull: a.Required},
			{Name: names[1], Type: d.Types.ObjRef, NotNull: a.Required, Comment: a.Target},
		}, nil
	case schema.KindList:
		return nil, nil
	case schema.KindBool, schema.KindInt, schema.KindLong, schema.KindFloat, schema.KindString,
		schema.KindEnum, schema.KindDate, schema.KindTime, schema.KindDateTime:
		col := ColumnSpec{Name: names[0], Type: d.columnType(a), NotNull: a.Required}
		if a.HasDefault() {
			def, err := d.AttrLiteral(a, a.DefaultValue())
			if err != nil {
				return nil, err
			}
			col.Default = def
		}
		return []ColumnSpec{col}, nil
	default:
		panic(fmt.Sprintf("dialect: unhandled kind %v", a.Kind))
	}
}

func (d *Dialect) columnType(a *schema.Attr) string {
	switch a.Kind {
	case schema.KindBool:
		return d.Types.Bool
	case schema.KindInt:
		return d.Types.Int
	case schema.KindLong:
		return d.Types.Long
	case schema.KindFloat:
		return d.Types.Float
	case schema.KindString:
		n, sized := a.MaxLength()
		return d.stringType(n, sized, a.IsFixedWidth())
	case schema.KindEnum:
		if settingsOf(a.Class()).ExternalEnums {
			return d.Types.Int
		}
		if d.NativeEnum != "" {
			labels := make([]string, len(a.Enums))
			for i, e := range a.Enums {
				labels[i] = `"` + strings.ReplaceAll(e, `"`, `""`) + `"`
			}
			return d.expand(d.NativeEnum, map[string]string{"labels": strings.Join(labels, ", ")})
		}
		return d.stringType(a.MaxEnumLength(), true, false)
	case schema.KindDate:
		return d.Types.Date
	case schema.KindTime:
		return d.Types.Time
	case schema.KindDateTime:
		return d.Types.DateTime
	case schema.KindObjRef:
		return d.Types.ObjRef
	case schema.KindList:
		return ""
	default:
		panic(fmt.Sprintf("dialect: unhandled kind %v", a.Kind))
	}
}

func (d *Dialect) stringType(maxLen int, sized, fixed bool) string {
	s := d.Strings
	if s.Always != "" {
		return s.Always
	}
	if !sized {
		return s.Unsized
	}
	for _, t := range s.Tiers {
		if maxLen > t.Above {
			return t.Type
		}
	}
	if fixed {
		return fmt.Sprintf(s.Fixed, maxLen)
	}
	return fmt.Sprintf(s.Variable, maxLen)
}

// PrimaryKeyColumnDDL renders the serial column definition.
func (d *Dialect) PrimaryKeyColumnDDL(c *schema.Class) string {
	return d.primaryKeyColumn(c, 0)
}

func (d *Dialect) primaryKeyColumn(c *schema.Class, width int) string {
	vars := d.classVars(c)
	return fmt.Sprintf("%-*s %s", width, vars["col"], d.expand(d.PrimaryKey, vars))
}

// IndexDDL renders the index on attribute a: a clause inside create table
// for inline dialects, a statement otherwise.
func (d *Dialect) IndexDDL(c *schema.Class, a *schema.Attr) string {
	cols := a.ColumnNames(settingsOf(c))
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = d.QuoteIdent(col)
	}
	unique := ""
	if a.Unique {
		unique = "unique "
	}
	if d.IndexStyle == core.IndexInline {
		return unique + "index (" + strings.Join(quoted, ", ") + ")"
	}
	vars := d.classVars(c)
	vars["index"] = IndexName(c, a)
	vars["col"] = strings.Join(quoted, ", ")
	vars["unique"] = unique
	return d.expand(d.Index, vars)
}

func indexedAttrs(c *schema.Class) []*schema.Attr {
	var out []*schema.Attr
	for _, a := range c.ColumnAttrs() {
		if a.Indexed || a.Unique {
			out = append(out, a)
		}
	}
	return out
}

// TableDDL renders everything needed to create the table of class c:
// sequence, create table, starting serial number and separate indexes.
func (d *Dialect) TableDDL(c *schema.Class) (string, error) {
	m := c.Model()
	width := 0
	if m != nil {
		width = m.NameWidth() + d.quoteWidth()
	}
	vars := d.classVars(c)

	var b strings.Builder
	if d.CreateSequence != "" {
		b.WriteString(d.expand(d.CreateSequence, vars))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "create table %s (\n", vars["table"])

	lines := []string{d.primaryKeyColumn(c, width)}
	for _, a := range c.ColumnAttrs() {
		specs, err := d.ColumnSpecs(a)
		if err != nil {
			return "", err
		}
		for _, spec := range specs {
			lines = append(lines, spec.DDL(d, width))
		}
	}
	if m != nil && m.Settings.MarksDeletes() {
		lines = append(lines, ColumnSpec{Name: DeletedColumn, Type: d.Types.DateTime}.DDL(d, width))
	}
	if d.IndexStyle == core.IndexInline {
		for _, a := range indexedAttrs(c) {
			lines = append(lines, d.IndexDDL(c, a))
		}
	}
	b.WriteString("    ")
	b.WriteString(strings.Join(lines, ",\n    "))
	b.WriteString("\n);\n")

	if m != nil && m.Settings.StartingSerialNum > 0 && d.StartingSerial != "" {
		b.WriteString(d.expand(d.StartingSerial, vars))
		b.WriteString("\n")
	}
	if d.IndexStyle == core.IndexSeparate {
		for _, a := range indexedAttrs(c) {
			b.WriteString(d.IndexDDL(c, a))
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

func (d *Dialect) quoteWidth() int {
	if d.Identifiers.Quote == "" {
		return 0
	}
	return len(d.Identifiers.Quote) + len(d.Identifiers.QuoteEnd)
}

// CreateDatabaseSQL renders the create database statement. File-based
// dialects return an empty string.
func (d *Dialect) CreateDatabaseSQL(db string) string {
	if d.FileBased {
		return ""
	}
	return d.expand(d.CreateDatabase, map[string]string{"db": db})
}

// UseDatabaseSQL renders the statement selecting db, or an empty string when
// the dialect has no such concept.
func (d *Dialect) UseDatabaseSQL(db string) string {
	if d.FileBased {
		return ""
	}
	return d.expand(d.UseDatabase, map[string]string{"db": db})
}

// DropDatabaseSQL renders the drop database statement. File-based dialects
// drop the model's tables instead.
func (d *Dialect) DropDatabaseSQL(db string, m *schema.Model) string {
	if d.FileBased {
		return d.DropTablesSQL(m)
	}
	return d.expand(d.DropDatabase, map[string]string{"db": db})
}

// DropTablesSQL drops auxiliary tables first, then class tables in reverse
// dependency order.
func (d *Dialect) DropTablesSQL(m *schema.Model) string {
	var b strings.Builder
	aux := AuxTables(m)
	for i := len(aux) - 1; i >= 0; i-- {
		b.WriteString(d.dropTable(aux[i].Name))
	}
	b.WriteString(d.dropTable(ClassIDsTable))
	classes := m.ConcreteClasses()
	for i := len(classes) - 1; i >= 0; i-- {
		c := classes[i]
		b.WriteString(d.dropTable(c.Name))
		if d.DropSequence != "" {
			b.WriteString(d.expand(d.DropSequence, d.classVars(c)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (d *Dialect) dropTable(name string) string {
	return d.expand(d.DropTable, map[string]string{
		"name":  name,
		"table": d.QuoteIdent(name),
	}) + "\n"
}

// CreateTablesSQL renders the class id table, auxiliary tables and every
// concrete class table in dependency order.
func (d *Dialect) CreateTablesSQL(m *schema.Model) (string, error) {
	var b strings.Builder
	b.WriteString(d.ClassIDsTableDDL(m))
	b.WriteString("\n")
	if aux := d.AuxTablesDDL(m); aux != "" {
		b.WriteString(aux)
		b.WriteString("\n")
	}
	for _, c := range m.ConcreteClasses() {
		ddl, err := d.TableDDL(c)
		if err != nil {
			return "", fmt.Errorf("table %s: %w", c.Name, err)
		}
		b.WriteString(ddl)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// ClassIDsTableDDL creates and fills the class id table.
func (d *Dialect) ClassIDsTableDDL(m *schema.Model) string {
	var b strings.Builder
	t := d.QuoteIdent(ClassIDsTable)
	fmt.Fprintf(&b, "create table %s (\n    %s %s not null primary key,\n    %s %s\n);\n",
		t, d.QuoteIdent("id"), d.Types.Int, d.QuoteIdent("name"), d.stringType(100, true, false))
	for _, c := range m.Classes() {
		fmt.Fprintf(&b, "insert into %s (%s, %s) values (%d, %s);\n",
			t, d.QuoteIdent("id"), d.QuoteIdent("name"), c.ID, d.QuoteString(c.Name))
	}
	return b.String()
}

// AuxTable is a lookup table holding the labels of an externally stored enum.
type AuxTable struct {
	Name string
	Attr *schema.Attr
}

// AuxTableName names the lookup table of enum attribute a.
func AuxTableName(a *schema.Attr) string {
	return a.Class().Name + a.Getter() + "Enum"
}

// AuxTables lists the lookup tables the model needs. Only models storing
// enums as integers have any.
func AuxTables(m *schema.Model) []AuxTable {
	if m == nil || !m.Settings.ExternalEnums {
		return nil
	}
	var out []AuxTable
	for _, c := range m.Classes() {
		for _, a := range c.Attrs() {
			if a.Kind == schema.KindEnum {
				out = append(out, AuxTable{Name: AuxTableName(a), Attr: a})
			}
		}
	}
	return out
}

// AuxTablesDDL creates and fills the enum lookup tables.
func (d *Dialect) AuxTablesDDL(m *schema.Model) string {
	var b strings.Builder
	for _, aux := range AuxTables(m) {
		t := d.QuoteIdent(aux.Name)
		fmt.Fprintf(&b, "create table %s (\n    %s %s not null primary key,\n    %s %s\n);\n",
			t, d.QuoteIdent("value"), d.Types.Int, d.QuoteIdent("name"),
			d.stringType(aux.Attr.MaxEnumLength(), true, false))
		for i, label := range aux.Attr.Enums {
			fmt.Fprintf(&b, "insert into %s (%s, %s) values (%d, %s);\n",
				t, d.QuoteIdent("value"), d.QuoteIdent("name"), i, d.QuoteString(label))
		}
	}
	return b.String()
}
