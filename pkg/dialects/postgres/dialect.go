package postgres

import "github.com/leapstack-labs/leapstore/pkg/dialect"

func init() {
	dialect.Register(Postgres)
}

// Postgres is the PostgreSQL dialect.
var Postgres = dialect.New(Config).
	Identifiers(`"`, `"`, `""`).
	Build()
