package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/schema"
)

// SelectSQL renders the fetch statement for the concrete table of c: the
// serial column followed by every column in declaration order. Marked
// deletes are filtered out when the model marks deletes.
func (d *Dialect) SelectSQL(c *schema.Class, clauses string) string {
	cols := []string{d.QuoteIdent(c.SerialColumn())}
	for _, name := range c.ColumnNames() {
		cols = append(cols, d.QuoteIdent(name))
	}
	stmt := "select " + strings.Join(cols, ", ") + " from " + d.QuoteIdent(c.Name)
	if settingsOf(c).MarksDeletes() {
		clauses = AddDeletedToClauses(clauses)
	}
	if clauses = strings.TrimSpace(clauses); clauses != "" {
		stmt += " " + clauses
	}
	return stmt
}

// AddDeletedToClauses restricts clauses to rows that are not marked deleted.
// A leading where is combined with the filter; an order by is kept last.
func AddDeletedToClauses(clauses string) string {
	clauses = strings.TrimSpace(clauses)
	lower := strings.ToLower(clauses)
	if !strings.HasPrefix(lower, "where") {
		return strings.TrimSpace("where " + DeletedColumn + " is null " + clauses)
	}
	where := clauses[len("where"):]
	orderBy := ""
	if i := strings.Index(strings.ToLower(where), "order by"); i >= 0 {
		where, orderBy = where[:i], where[i:]
	}
	out := fmt.Sprintf("where %s is null and (%s)", DeletedColumn, strings.TrimSpace(where))
	if orderBy != "" {
		out += " " + orderBy
	}
	return out
}

// WhereSerial renders the clause selecting one row of c.
func (d *Dialect) WhereSerial(c *schema.Class, serial int64) string {
	return "where " + d.QuoteIdent(c.SerialColumn()) + "=" + strconv.FormatInt(serial, 10)
}

// InsertSQL renders an insert of literal values into the table of c.
// With returning set, the statement yields the new serial number.
func (d *Dialect) InsertSQL(c *schema.Class, cols, vals []string, returning bool) string {
	var stmt string
	if len(cols) == 0 {
		stmt = d.expand(d.EmptyInsert, d.classVars(c))
	} else {
		quoted := make([]string, len(cols))
		for i, col := range cols {
			quoted[i] = d.QuoteIdent(col)
		}
		stmt = fmt.Sprintf("insert into %s (%s) values (%s)",
			d.QuoteIdent(c.Name), strings.Join(quoted, ", "), strings.Join(vals, ", "))
	}
	if returning && d.Identity == core.IdentityReturning {
		stmt += " returning " + d.QuoteIdent(c.SerialColumn())
	}
	return stmt
}

// UpdateSQL renders an update of the given column assignments.
func (d *Dialect) UpdateSQL(c *schema.Class, cols, vals []string, serial int64) string {
	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = d.QuoteIdent(col) + "=" + vals[i]
	}
	return fmt.Sprintf("update %s set %s %s", d.QuoteIdent(c.Name), strings.Join(sets, ", "), d.WhereSerial(c, serial))
}

// DeleteSQL renders the removal of one row, or the marking of it as deleted
// when the model marks deletes.
func (d *Dialect) DeleteSQL(c *schema.Class, serial int64) string {
	if settingsOf(c).MarksDeletes() {
		return fmt.Sprintf("update %s set %s=%s %s",
			d.QuoteIdent(c.Name), d.QuoteIdent(DeletedColumn), d.NowSQL, d.WhereSerial(c, serial))
	}
	return fmt.Sprintf("delete from %s %s", d.QuoteIdent(c.Name), d.WhereSerial(c, serial))
}

// SerialInsertSQL returns the statements bracketing inserts with explicit
// serial numbers into c. Either may be empty.
func (d *Dialect) SerialInsertSQL(c *schema.Class) (begin, end string) {
	vars := d.classVars(c)
	return d.expand(d.SerialInsertBegin, vars), d.expand(d.SerialInsertEnd, vars)
}

// SerialResetSQL returns the statement moving the serial generator of c past
// max, or "" when the dialect needs none.
func (d *Dialect) SerialResetSQL(c *schema.Class, max int64) string {
	vars := d.classVars(c)
	vars["max"] = strconv.FormatInt(max, 10)
	return d.expand(d.SerialReset, vars)
}

// JoinObjRef packs a class id and serial number into one 64-bit reference.
func JoinObjRef(classID int, serial int64) int64 {
	return int64(classID)<<32 | serial&0xffffffff
}

// SplitObjRef unpacks a reference made by JoinObjRef.
func SplitObjRef(ref int64) (classID int, serial int64) {
	return int(ref >> 32), ref & 0xffffffff
}

// RefLiterals renders the column values of object reference a pointing at
// serial of the class with classID. A zero serial renders NULL.
func RefLiterals(a *schema.Attr, classID int, serial int64) []string {
	big := settingsOf(a.Class()).UseBigIntObjRefColumns
	switch {
	case serial == 0 && big:
		return []string{"NULL"}
	case serial == 0:
		return []string{"NULL", "NULL"}
	case big:
		return []string{strconv.FormatInt(JoinObjRef(classID, serial), 10)}
	default:
		return []string{strconv.Itoa(classID), strconv.FormatInt(serial, 10)}
	}
}

// RefWhere renders the clause selecting rows whose reference a points at
// serial of the class with classID.
func (d *Dialect) RefWhere(a *schema.Attr, classID int, serial int64) string {
	names := a.ColumnNames(settingsOf(a.Class()))
	vals := RefLiterals(a, classID, serial)
	conds := make([]string, len(names))
	for i, name := range names {
		conds[i] = d.QuoteIdent(name) + "=" + vals[i]
	}
	return "where " + strings.Join(conds, " and ")
}
