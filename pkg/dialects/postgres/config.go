// Package postgres provides the PostgreSQL dialect definition.
// This package is pure Go with no database driver dependencies.
package postgres

import "github.com/leapstack-labs/leapstore/pkg/core"

// Config is the PostgreSQL dialect configuration.
var Config = &core.DialectConfig{
	Name: "postgres",

	CreateDatabase: "create database {db};",
	DropDatabase:   "drop database if exists {db};",
	// Postgres connections are bound to one database; the DSN selects it.
	UseDatabase: "",
	DropTable:   "drop table if exists {table} cascade;",

	PrimaryKey:     "integer not null primary key default nextval('{seq}')",
	CreateSequence: "create sequence {seq} start {start};",
	DropSequence:   "drop sequence if exists {seq};",

	IndexStyle: core.IndexSeparate,
	Index:      "create {unique}index {index} on {table} ({col});",

	Types: core.TypeConfig{
		Bool:      "boolean",
		Int:       "integer",
		Long:      "bigint",
		Float:     "double precision",
		Date:      "date",
		Time:      "time",
		DateTime:  "timestamp",
		ObjRef:    "integer",
		BigObjRef: "bigint",
	},
	Strings: core.StringConfig{
		Unsized: "text",
		Tiers: []core.StringTier{
			{Above: 10485760, Type: "text"},
		},
		Fixed:    "char(%d)",
		Variable: "varchar(%d)",
	},

	Literals: core.LiteralConfig{True: "true", False: "false"},

	Identity: core.IdentityReturning,
	NowSQL:   "now()",

	SerialReset: "select setval('{seq}', {max})",
}
