package mssql

import (
	"strings"
	"testing"

	"github.com/leapstack-labs/leapstore/internal/testutil"
	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/dialect"
	"github.com/leapstack-labs/leapstore/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectRegistration(t *testing.T) {
	d, ok := dialect.Get("MSSQL")
	require.True(t, ok, "mssql dialect should be registered")
	assert.Same(t, MSSQL, d)
	assert.Equal(t, core.IdentityQuery, d.Identity)
	assert.Equal(t, "select @@IDENTITY", d.IdentitySQL)
}

func TestTableDDL(t *testing.T) {
	m := testutil.ShopModel(t, schema.Settings{})
	got, err := MSSQL.TableDDL(m.MustClass("Foo"))
	require.NoError(t, err)
	assert.Equal(t, `create table [Foo] (
    [serialNum]  int constraint [PK__Foo__serialNum] primary key not null identity(1, 1),
    [i]          int default 2,
    [s]          varchar(5) default '5',
    [color]      varchar(5) default 'red',
    [active]     bit default 1,
    [when]       DateTime
);
create index [IX__Foo__i] on [Foo]([i]);
`, got)
}

func TestStartingSerialNum(t *testing.T) {
	m := testutil.ShopModel(t, schema.Settings{StartingSerialNum: 7})
	assert.Contains(t, MSSQL.PrimaryKeyColumnDDL(m.MustClass("Bar")), "identity(7, 1)")
}

func TestDatabaseSQL(t *testing.T) {
	m := testutil.ShopModel(t, schema.Settings{})
	drop := MSSQL.DropDatabaseSQL("shop", m)
	assert.True(t, strings.HasPrefix(drop, "use Master\ngo\n"))
	assert.Contains(t, drop, "where name = N'shop') drop database shop;")
	assert.Equal(t, "USE shop;", MSSQL.UseDatabaseSQL("shop"))

	tables := MSSQL.DropTablesSQL(m)
	assert.Contains(t, tables, "object_id(N'Bar')")
	stmts := dialect.SplitStatements(tables)
	assert.Len(t, stmts, 3)
}
