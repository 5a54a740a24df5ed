// Package duckdb provides the DuckDB dialect definition.
// This package is pure Go with no database driver dependencies.
package duckdb

import "github.com/leapstack-labs/leapstore/pkg/core"

// Config is the DuckDB dialect configuration.
var Config = &core.DialectConfig{
	Name:      "duckdb",
	FileBased: true,

	PrimaryKey:     "integer not null primary key default nextval('{seq}')",
	CreateSequence: "create sequence {seq} start {start};",
	DropSequence:   "drop sequence if exists {seq};",

	IndexStyle: core.IndexSeparate,
	Index:      "create {unique}index {index} on {table} ({col});",

	Types: core.TypeConfig{
		Bool:      "boolean",
		Int:       "integer",
		Long:      "bigint",
		Float:     "double",
		Date:      "date",
		Time:      "time",
		DateTime:  "timestamp",
		ObjRef:    "integer",
		BigObjRef: "bigint",
	},
	Strings: core.StringConfig{Always: "varchar"},

	Literals: core.LiteralConfig{True: "true", False: "false"},

	Identity: core.IdentityReturning,
	NowSQL:   "now()",
}
