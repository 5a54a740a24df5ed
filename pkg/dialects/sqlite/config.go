// Package sqlite provides the SQLite dialect definition.
// This package is pure Go with no database driver dependencies.
package sqlite

import "github.com/leapstack-labs/leapstore/pkg/core"

// Config is the SQLite dialect configuration.
var Config = &core.DialectConfig{
	Name:      "sqlite",
	FileBased: true,

	PrimaryKey:     "integer primary key autoincrement",
	StartingSerial: "insert into sqlite_sequence (name, seq) values ('{name}', {prev});",

	IndexStyle: core.IndexSeparate,
	Index:      "create {unique}index {index} on {table} ({col});",

	// Column types are affinities; sizes are not enforced.
	Types: core.TypeConfig{
		Bool:      "integer",
		Int:       "integer",
		Long:      "integer",
		Float:     "real",
		Date:      "date",
		Time:      "time",
		DateTime:  "datetime",
		ObjRef:    "integer",
		BigObjRef: "integer",
	},
	Strings: core.StringConfig{Always: "text"},

	Literals: core.LiteralConfig{True: "1", False: "0"},

	Identity:    core.IdentityQuery,
	IdentitySQL: "select last_insert_rowid()",
	NowSQL:      "datetime('now')",
}
