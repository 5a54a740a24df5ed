package dialect

import (
	"testing"

	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/schema"
	"github.com/stretchr/testify/assert"
)

func TestSelectSQL(t *testing.T) {
	d := testDialect()

	m := shopModel(t, schema.Settings{})
	assert.Equal(t,
		`select "serialNum", "i", "s", "color" from "Foo" where "i"=2`,
		d.SelectSQL(m.MustClass("Foo"), "where \"i\"=2"))
	assert.Equal(t,
		`select "serialNum", "fooClassId", "fooObjId" from "Bar"`,
		d.SelectSQL(m.MustClass("Bar"), ""))

	marked := shopModel(t, schema.Settings{DeleteBehavior: schema.DeleteBehaviorMark})
	assert.Equal(t,
		`select "serialNum", "fooClassId", "fooObjId" from "Bar" where deleted is null`,
		d.SelectSQL(marked.MustClass("Bar"), ""))
}

func TestAddDeletedToClauses(t *testing.T) {
	tests := []struct {
		name    string
		clauses string
		want    string
	}{
		{name: "empty", clauses: "", want: "where deleted is null"},
		{name: "order only", clauses: "order by i", want: "where deleted is null order by i"},
		{name: "where", clauses: "where i>1", want: "where deleted is null and (i>1)"},
		{name: "where and order", clauses: "WHERE i>1 ORDER BY i", want: "where deleted is null and (i>1) ORDER BY i"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AddDeletedToClauses(tt.clauses))
		})
	}
}

func TestInsertSQL(t *testing.T) {
	d := testDialect()
	m := shopModel(t, schema.Settings{})
	foo := m.MustClass("Foo")

	assert.Equal(t,
		`insert into "Foo" ("i", "s") values (1, 'x')`,
		d.InsertSQL(foo, []string{"i", "s"}, []string{"1", "'x'"}, true))
	assert.Equal(t, `insert into "Foo" default values`, d.InsertSQL(foo, nil, nil, false))

	returning := New(&core.DialectConfig{Name: "r", Identity: core.IdentityReturning}).Build()
	assert.Equal(t,
		`insert into Foo (i) values (1) returning serialNum`,
		returning.InsertSQL(foo, []string{"i"}, []string{"1"}, true))
}

func TestUpdateAndDeleteSQL(t *testing.T) {
	d := testDialect()
	foo := shopModel(t, schema.Settings{}).MustClass("Foo")
	assert.Equal(t,
		`update "Foo" set "i"=3, "s"=NULL where "serialNum"=7`,
		d.UpdateSQL(foo, []string{"i", "s"}, []string{"3", "NULL"}, 7))
	assert.Equal(t, `delete from "Foo" where "serialNum"=7`, d.DeleteSQL(foo, 7))

	marked := shopModel(t, schema.Settings{DeleteBehavior: schema.DeleteBehaviorMark}).MustClass("Foo")
	assert.Equal(t,
		`update "Foo" set "deleted"=CURRENT_TIMESTAMP where "serialNum"=7`,
		d.DeleteSQL(marked, 7))
}

func TestSerialStatements(t *testing.T) {
	d := New(&core.DialectConfig{
		Name:              "x",
		SerialInsertBegin: "set identity_insert {table} on",
		SerialInsertEnd:   "set identity_insert {table} off",
		SerialReset:       "select setval('{seq}', {max})",
	}).Identifiers("[", "]", "]]").Build()
	foo := shopModel(t, schema.Settings{}).MustClass("Foo")

	begin, end := d.SerialInsertSQL(foo)
	assert.Equal(t, "set identity_insert [Foo] on", begin)
	assert.Equal(t, "set identity_insert [Foo] off", end)
	assert.Equal(t, "select setval('Foo_seq', 12)", d.SerialResetSQL(foo, 12))

	begin, end = testDialect().SerialInsertSQL(foo)
	assert.Empty(t, begin)
	assert.Empty(t, end)
	assert.Empty(t, testDialect().SerialResetSQL(foo, 12))
}

func TestObjRefPacking(t *testing.T) {
	ref := JoinObjRef(3, 42)
	assert.Equal(t, int64(3)<<32|42, ref)
	cid, serial := SplitObjRef(ref)
	assert.Equal(t, 3, cid)
	assert.Equal(t, int64(42), serial)
}

func TestRefLiteralsAndWhere(t *testing.T) {
	d := testDialect()

	pair := shopModel(t, schema.Settings{}).MustClass("Bar")
	foo, _ := pair.Attr("foo")
	assert.Equal(t, []string{"1", "7"}, RefLiterals(foo, 1, 7))
	assert.Equal(t, []string{"NULL", "NULL"}, RefLiterals(foo, 1, 0))
	assert.Equal(t, `where "fooClassId"=1 and "fooObjId"=7`, d.RefWhere(foo, 1, 7))

	big := shopModel(t, schema.Settings{UseBigIntObjRefColumns: true}).MustClass("Bar")
	foo, _ = big.Attr("foo")
	assert.Equal(t, []string{"4294967303"}, RefLiterals(foo, 1, 7))
	assert.Equal(t, []string{"NULL"}, RefLiterals(foo, 1, 0))
	assert.Equal(t, `where "fooId"=4294967303`, d.RefWhere(foo, 1, 7))
}
