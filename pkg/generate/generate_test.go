package generate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapstore/internal/testutil"
	"github.com/leapstack-labs/leapstore/pkg/dialects/mssql"
	"github.com/leapstack-labs/leapstore/pkg/dialects/postgres"
	"github.com/leapstack-labs/leapstore/pkg/dialects/sqlite"
	"github.com/leapstack-labs/leapstore/pkg/dump"
	"github.com/leapstack-labs/leapstore/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shopSamples() []dump.Section {
	return []dump.Section{
		{
			Class:   "Foo",
			Columns: []string{"serialNum", "i", "s", "color", "active", "when"},
			Rows:    [][]string{{"1", "3", "ab", "green", "0", "2024-01-02 03:04:05"}},
		},
		{
			Class:   "Bar",
			Columns: []string{"serialNum", "foo", "name"},
			Rows:    [][]string{{"4", "Foo.1", "x"}, {"5", "", "it's"}},
		},
	}
}

func TestCreateSQL(t *testing.T) {
	m := testutil.ShopModel(t, schema.Settings{})
	got, err := CreateSQL(m, sqlite.SQLite)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "-- Create script for model Shop\n-- dialect: sqlite\n"))
	drop := strings.Index(got, `drop table if exists "Foo";`)
	ids := strings.Index(got, `create table "_MKClassIds"`)
	foo := strings.Index(got, `create table "Foo"`)
	bar := strings.Index(got, `create table "Bar"`)
	require.True(t, drop >= 0 && ids >= 0 && foo >= 0 && bar >= 0, got)
	assert.Less(t, drop, ids)
	assert.Less(t, ids, foo)
	assert.Less(t, foo, bar)
	assert.NotContains(t, got, "create database")
}

func TestCreateSQL_ServerDialect(t *testing.T) {
	m := testutil.ShopModel(t, schema.Settings{Database: "shopdb"})
	got, err := CreateSQL(m, mssql.MSSQL)
	require.NoError(t, err)
	assert.Contains(t, got, "USE shopdb;")
	assert.Less(t, strings.Index(got, "drop database"), strings.Index(got, "create database"))
}

func TestSampleStatements(t *testing.T) {
	m := testutil.ShopModel(t, schema.Settings{})
	got, err := SampleStatements(m, sqlite.SQLite, shopSamples(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`insert into "Foo" ("serialNum", "i", "s", "color", "active", "when") values (1, 3, 'ab', 'green', 0, '2024-01-02 03:04:05')`,
		`insert into "Bar" ("serialNum", "fooClassId", "fooObjId", "name") values (4, 1, 1, 'x')`,
		`insert into "Bar" ("serialNum", "fooClassId", "fooObjId", "name") values (5, NULL, NULL, 'it''s')`,
	}, got)
}

func TestSampleStatements_SerialBrackets(t *testing.T) {
	m := testutil.ShopModel(t, schema.Settings{})
	sections := shopSamples()[1:]

	got, err := SampleStatements(m, mssql.MSSQL, sections, nil)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "set identity_insert [Bar] on", got[0])
	assert.Equal(t, "set identity_insert [Bar] off", got[3])

	got, err = SampleStatements(m, postgres.Postgres, sections, nil)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "select setval('Bar_seq', 5)", got[2])
}

func TestSampleStatements_ClassIDFunc(t *testing.T) {
	m := testutil.ShopModel(t, schema.Settings{})
	got, err := SampleStatements(m, sqlite.SQLite, shopSamples()[1:2], func(c *schema.Class) int {
		return c.ID + 100
	})
	require.NoError(t, err)
	assert.Contains(t, got[0], "values (4, 101, 1, 'x')")
}

func TestSampleStatements_Errors(t *testing.T) {
	m := testutil.ShopModel(t, schema.Settings{})
	tests := []struct {
		name    string
		section dump.Section
		want    string
	}{
		{
			name:    "unknown class",
			section: dump.Section{Class: "Baz", Columns: []string{"serialNum"}},
			want:    `unknown class "Baz"`,
		},
		{
			name:    "unknown column",
			section: dump.Section{Class: "Foo", Columns: []string{"nope"}, Rows: [][]string{{"1"}}},
			want:    `unknown column "nope"`,
		},
		{
			name:    "out of range",
			section: dump.Section{Class: "Foo", Columns: []string{"i"}, Rows: [][]string{{"11"}}},
			want:    "above maximum",
		},
		{
			name:    "wrong reference class",
			section: dump.Section{Class: "Bar", Columns: []string{"foo"}, Rows: [][]string{{"Bar.1"}}},
			want:    "expected Foo",
		},
		{
			name:    "bad serial",
			section: dump.Section{Class: "Bar", Columns: []string{"serialNum"}, Rows: [][]string{{"x"}}},
			want:    "bad serial number",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SampleStatements(m, sqlite.SQLite, []dump.Section{tt.section}, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestWriteFiles(t *testing.T) {
	samples := "Foo objects\nserialNum,i\n1,4\n\n"
	dir := testutil.WriteModelDir(t, map[string]string{schema.SamplesFile: samples})
	m, err := schema.ReadModel(dir)
	require.NoError(t, err)

	out := t.TempDir()
	paths, err := WriteFiles(out, m, sqlite.SQLite)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(out, OutputDir, CreateFile), paths[0])

	content, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Contains(t, string(content), `insert into "Foo" ("serialNum", "i") values (1, 4);`)
}

func TestWriteFiles_NoSamples(t *testing.T) {
	m := testutil.ShopModel(t, schema.Settings{})
	paths, err := WriteFiles(t.TempDir(), m, sqlite.SQLite)
	require.NoError(t, err)
	assert.Len(t, paths, 1)
}
