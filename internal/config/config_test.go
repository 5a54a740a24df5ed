package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/leapstack-labs/leapstore/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/leapstore/pkg/adapters/sqlite"
)

func TestDatabaseConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		db        DatabaseConfig
		errSubstr string
	}{
		{name: "empty type", db: DatabaseConfig{}, errSubstr: "database type is required"},
		{name: "sqlite", db: DatabaseConfig{Type: "sqlite"}},
		{name: "uppercase", db: DatabaseConfig{Type: "SQLite"}},
		{name: "postgres", db: DatabaseConfig{Type: "postgres"}},
		{name: "unknown", db: DatabaseConfig{Type: "oracle"}, errSubstr: "unknown adapter type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.db.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestDatabaseConfig_AdapterConfig(t *testing.T) {
	file := DatabaseConfig{Type: "SQLite", Database: "shop.db", PoolSize: 2}
	cfg := file.AdapterConfig()
	assert.Equal(t, "sqlite", cfg.Type)
	assert.Equal(t, "shop.db", cfg.Path)
	assert.Empty(t, cfg.Database)
	assert.Equal(t, 2, cfg.PoolSize)

	server := DatabaseConfig{Type: "postgres", Database: "shop", Host: "db", User: "u", Password: "p"}
	server.ApplyDefaults()
	cfg = server.AdapterConfig()
	assert.Equal(t, "shop", cfg.Database)
	assert.Empty(t, cfg.Path)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "u", cfg.Username)
}

func TestApplyDefaults(t *testing.T) {
	tests := []struct {
		db   DatabaseConfig
		port int
	}{
		{DatabaseConfig{Type: "postgres", Host: "h"}, 5432},
		{DatabaseConfig{Type: "mysql", Host: "h"}, 3306},
		{DatabaseConfig{Type: "mssql", Host: "h"}, 1433},
		{DatabaseConfig{Type: "mysql", Host: "h", Port: 13306}, 13306},
		{DatabaseConfig{Type: "mysql"}, 0},
		{DatabaseConfig{Type: "sqlite", Host: "h"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.db.Type, func(t *testing.T) {
			tt.db.ApplyDefaults()
			assert.Equal(t, tt.port, tt.db.Port)
		})
	}
}

func TestMergeDatabaseConfig(t *testing.T) {
	base := &DatabaseConfig{
		Type:     "postgres",
		Database: "shop",
		Host:     "localhost",
		Params:   map[string]any{"sslmode": "disable"},
	}
	override := &DatabaseConfig{
		Host:   "prod",
		Port:   6543,
		Params: map[string]any{"application_name": "dump"},
	}

	merged := MergeDatabaseConfig(base, override)
	assert.Equal(t, "postgres", merged.Type)
	assert.Equal(t, "shop", merged.Database)
	assert.Equal(t, "prod", merged.Host)
	assert.Equal(t, 6543, merged.Port)
	assert.Equal(t, map[string]any{"sslmode": "disable", "application_name": "dump"}, merged.Params)
	assert.Len(t, base.Params, 1, "base must not be modified")

	assert.Equal(t, base, MergeDatabaseConfig(base, nil))
	assert.Equal(t, override, MergeDatabaseConfig(nil, override))
	assert.Nil(t, MergeDatabaseConfig(nil, nil))
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	assert.Empty(t, FindProjectRoot(nested, 10))

	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileNameAlt), nil, 0o600))
	assert.Equal(t, root, FindProjectRoot(nested, 10))
	assert.Empty(t, FindProjectRoot(nested, 2))
	assert.Equal(t, filepath.Join(root, ConfigFileNameAlt), FindConfigFile(root))
}
