// Package config provides the shared project configuration types for
// leapstore: the database a store connects to and where project files live.
// It holds no CLI concerns.
package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapstore/pkg/adapter"
	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/dialect"
)

// DatabaseConfig holds the database connection settings.
type DatabaseConfig struct {
	Type string `koanf:"type"` // mysql, sqlite, mssql, postgres, duckdb

	// File path for file-based databases, database name otherwise.
	Database string `koanf:"database"`

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	PoolSize int `koanf:"pool_size"`

	// Params holds adapter-specific configuration (e.g., SQLite pragmas, DuckDB settings)
	Params map[string]any `koanf:"params"`
}

// Validate checks that the database type names a registered adapter.
func (d *DatabaseConfig) Validate() error {
	if d.Type == "" {
		return fmt.Errorf("database type is required")
	}
	if !adapter.IsRegistered(strings.ToLower(d.Type)) {
		return adapter.NewUnknownAdapterError(d.Type)
	}
	return nil
}

// FileBased reports whether the database lives in a local file.
func (d *DatabaseConfig) FileBased() bool {
	if dl, ok := dialect.Get(strings.ToLower(d.Type)); ok {
		return dl.FileBased
	}
	return false
}

// AdapterConfig converts the settings into an adapter connection config.
func (d *DatabaseConfig) AdapterConfig() core.AdapterConfig {
	cfg := core.AdapterConfig{
		Type:     strings.ToLower(d.Type),
		Host:     d.Host,
		Port:     d.Port,
		Username: d.User,
		Password: d.Password,
		Params:   d.Params,
		PoolSize: d.PoolSize,
	}
	if d.FileBased() {
		cfg.Path = d.Database
	} else {
		cfg.Database = d.Database
	}
	return cfg
}

// Clone returns a deep copy of d.
func (d *DatabaseConfig) Clone() *DatabaseConfig {
	if d == nil {
		return nil
	}
	c := *d
	if d.Params != nil {
		c.Params = make(map[string]any, len(d.Params))
		for k, v := range d.Params {
			c.Params[k] = v
		}
	}
	return &c
}
