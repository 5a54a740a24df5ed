package mysql

import "github.com/leapstack-labs/leapstore/pkg/dialect"

func init() {
	dialect.Register(MySQL)
}

// MySQL is the MySQL dialect.
var MySQL = dialect.New(Config).
	Identifiers("`", "`", "``").
	Build()
