// Package mssql provides the Microsoft SQL Server dialect definition.
// This package is pure Go with no database driver dependencies.
package mssql

import "github.com/leapstack-labs/leapstore/pkg/core"

// Config is the SQL Server dialect configuration.
var Config = &core.DialectConfig{
	Name: "mssql",

	CreateDatabase: "create database {db};",
	DropDatabase: "use Master\ngo\n\n" +
		"if exists(select * from master.dbo.sysdatabases where name = N'{db}') drop database {db};\ngo\n",
	UseDatabase: "USE {db};",
	DropTable: "if exists (select * from dbo.sysobjects where id = object_id(N'{name}') " +
		"and OBJECTPROPERTY(id, N'IsUserTable') = 1)\n    drop table {table};\ngo",

	PrimaryKey: "int constraint [{pk}] primary key not null identity({start}, 1)",

	IndexStyle: core.IndexSeparate,
	Index:      "create {unique}index [{index}] on {table}({col});",

	Types: core.TypeConfig{
		Bool:      "bit",
		Int:       "int",
		Long:      "bigint",
		Float:     "float",
		Date:      "DateTime",
		Time:      "DateTime",
		DateTime:  "DateTime",
		ObjRef:    "int",
		BigObjRef: "bigint",
	},
	Strings: core.StringConfig{
		Unsized: "varchar(100) /* WARNING: NO LENGTH SPECIFIED */",
		Tiers: []core.StringTier{
			{Above: 8000, Type: "text"},
		},
		Fixed:    "char(%d)",
		Variable: "varchar(%d)",
	},

	Literals: core.LiteralConfig{True: "1", False: "0"},

	Identity:    core.IdentityQuery,
	IdentitySQL: "select @@IDENTITY",
	NowSQL:      "GETDATE()",

	SerialInsertBegin: "set identity_insert {table} on",
	SerialInsertEnd:   "set identity_insert {table} off",
}
