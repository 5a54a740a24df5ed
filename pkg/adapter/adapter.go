// Package adapter provides the database adapter contract and the shared
// database/sql plumbing used by the object store.
//
// Concrete adapter implementations are in pkg/adapters/ subdirectories and
// register themselves in init(). Each adapter pairs a driver with the
// dialect that renders SQL for it.
package adapter

import (
	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/dialect"
)

// Config is the connection configuration passed to Connect.
type Config = core.AdapterConfig

// Adapter defines the interface that all database adapters must implement.
type Adapter interface {
	core.Adapter

	// Dialect returns the SQL dialect for this adapter.
	Dialect() *dialect.Dialect
}
