package mssql

import "github.com/leapstack-labs/leapstore/pkg/dialect"

func init() {
	dialect.Register(MSSQL)
}

// MSSQL is the SQL Server dialect.
var MSSQL = dialect.New(Config).
	Identifiers("[", "]", "]]").
	Build()
