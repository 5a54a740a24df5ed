// Package config provides configuration management for the leapstore CLI.
//
// It layers the shared project types from internal/config with CLI
// settings: where the model lives, where generated files go, and how the
// store and dump sinks are configured.
package config

import (
	"github.com/leapstack-labs/leapstore/internal/backup"
	sharedcfg "github.com/leapstack-labs/leapstore/internal/config"
	"github.com/leapstack-labs/leapstore/pkg/store"
)

// DatabaseConfig is an alias for the shared database configuration.
type DatabaseConfig = sharedcfg.DatabaseConfig

// Config holds all CLI configuration options.
type Config struct {
	ModelDir     string               `koanf:"model"`
	OutDir       string               `koanf:"outdir"`
	Environment  string               `koanf:"environment"`
	Verbose      bool                 `koanf:"verbose"`
	Database     *DatabaseConfig      `koanf:"database"`
	Store        StoreConfig          `koanf:"store"`
	Backup       backup.Config        `koanf:"backup"`
	Environments map[string]EnvConfig `koanf:"environments"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// StoreConfig holds object store settings.
type StoreConfig struct {
	IgnoreSQLWarnings bool               `koanf:"ignore_sql_warnings"`
	PoolSize          int                `koanf:"pool_size"`
	SQLLog            store.SQLLogConfig `koanf:"sql_log"`
	ReadClassIDs      bool               `koanf:"read_class_ids"`
}

// EnvConfig holds environment-specific configuration overrides.
type EnvConfig struct {
	ModelDir string          `koanf:"model"`
	Database *DatabaseConfig `koanf:"database"`
}

// Default configuration values.
const (
	DefaultModelDir = "model"
	DefaultOutDir   = "."
	DefaultEnv      = sharedcfg.DefaultEnv
)

// StoreConfig builds the store configuration for the selected database.
func (c *Config) StoreConfig() store.Config {
	cfg := store.Config{
		IgnoreSQLWarnings: c.Store.IgnoreSQLWarnings,
		PoolSize:          c.Store.PoolSize,
		SQLLog:            c.Store.SQLLog,
		ReadClassIDs:      c.Store.ReadClassIDs,
	}
	if c.Database != nil {
		cfg.Adapter = c.Database.AdapterConfig()
	}
	return cfg
}
