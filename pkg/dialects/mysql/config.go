// Package mysql provides the MySQL dialect definition.
// This package is pure Go with no database driver dependencies.
package mysql

import "github.com/leapstack-labs/leapstore/pkg/core"

// Config is the MySQL dialect configuration.
var Config = &core.DialectConfig{
	Name: "mysql",

	CreateDatabase: "create database {db};",
	DropDatabase:   "drop database if exists {db};",
	UseDatabase:    "use {db};",

	PrimaryKey:     "int not null primary key auto_increment",
	StartingSerial: "alter table {table} auto_increment={start};",

	// MySQL accepts index definitions inside create table.
	IndexStyle: core.IndexInline,

	Types: core.TypeConfig{
		Bool:      "bool",
		Int:       "int",
		Long:      "bigint",
		Float:     "double",
		Date:      "date",
		Time:      "time",
		DateTime:  "datetime",
		ObjRef:    "int unsigned",
		BigObjRef: "bigint unsigned",
	},
	Strings: core.StringConfig{
		Unsized: "varchar(100) /* WARNING: NO LENGTH SPECIFIED */",
		Tiers: []core.StringTier{
			{Above: 65535, Type: "longtext"},
			{Above: 255, Type: "text"},
		},
		Fixed:    "char(%d)",
		Variable: "varchar(%d)",
	},
	NativeEnum: "enum({labels})",

	Literals: core.LiteralConfig{BackslashEscapes: true, True: "1", False: "0"},

	Identity:    core.IdentityLastInsertID,
	NowSQL:      "NOW()",
	WarningsSQL: "show warnings",
	EmptyInsert: "insert into {table} () values ()",
}
