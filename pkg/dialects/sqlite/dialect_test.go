package sqlite

import (
	"testing"

	"github.com/leapstack-labs/leapstore/internal/testutil"
	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/dialect"
	"github.com/leapstack-labs/leapstore/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectRegistration(t *testing.T) {
	d, ok := dialect.Get("sqlite")
	require.True(t, ok, "sqlite dialect should be registered")
	assert.Same(t, SQLite, d)
	assert.Equal(t, core.IdentityQuery, d.Identity)
	assert.Equal(t, "select last_insert_rowid()", d.IdentitySQL)
}

func TestTableDDL(t *testing.T) {
	m := testutil.ShopModel(t, schema.Settings{})
	got, err := SQLite.TableDDL(m.MustClass("Foo"))
	require.NoError(t, err)
	assert.Equal(t, `create table "Foo" (
    "serialNum"  integer primary key autoincrement,
    "i"          integer default 2,
    "s"          text default '5',
    "color"      text default 'red',
    "active"     integer default 1,
    "when"       datetime
);
create index IX__Foo__i on "Foo" ("i");
`, got)
}

func TestFileBased(t *testing.T) {
	m := testutil.ShopModel(t, schema.Settings{})
	assert.Empty(t, SQLite.CreateDatabaseSQL("shop"))
	assert.Empty(t, SQLite.UseDatabaseSQL("shop"))
	assert.Equal(t, `drop table if exists "_MKClassIds";
drop table if exists "Bar";
drop table if exists "Foo";
`, SQLite.DropDatabaseSQL("shop", m))
}

func TestStartingSerialNum(t *testing.T) {
	m := testutil.ShopModel(t, schema.Settings{StartingSerialNum: 500})
	got, err := SQLite.TableDDL(m.MustClass("Bar"))
	require.NoError(t, err)
	assert.Contains(t, got, "insert into sqlite_sequence (name, seq) values ('Bar', 499);")
}
