package duckdb

import "github.com/leapstack-labs/leapstore/pkg/dialect"

func init() {
	dialect.Register(DuckDB)
}

// DuckDB is the DuckDB dialect.
var DuckDB = dialect.New(Config).
	Identifiers(`"`, `"`, `""`).
	Build()
