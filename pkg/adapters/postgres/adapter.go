// Package postgres provides a PostgreSQL database adapter for leapstore.
//
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/leapstore/pkg/adapters/postgres"
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/leapstack-labs/leapstore/pkg/adapter"
	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/dialect"
	pgdialect "github.com/leapstack-labs/leapstore/pkg/dialects/postgres"
	"go.uber.org/zap"
)

func init() {
	adapter.Register("postgres", func(logger *zap.Logger) adapter.Adapter { return New(logger) })
}

// Params holds PostgreSQL-specific configuration.
type Params struct {
	SSLMode         string `mapstructure:"sslmode"`
	ApplicationName string `mapstructure:"application_name"`
	SearchPath      string `mapstructure:"search_path"`
}

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a no-op logger is used.
func New(logger *zap.Logger) *Adapter {
	return &Adapter{BaseSQLAdapter: adapter.NewBase(logger)}
}

// Dialect returns the PostgreSQL dialect.
func (a *Adapter) Dialect() *dialect.Dialect {
	return pgdialect.Postgres
}

// DialectConfig returns the static dialect configuration.
func (a *Adapter) DialectConfig() *core.DialectConfig {
	return pgdialect.Config
}

// Connect establishes a connection to PostgreSQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn, err := buildPostgresDSN(cfg)
	if err != nil {
		return err
	}

	a.Logger.Debug("connecting to postgres", zap.String("host", cfg.Host), zap.String("database", cfg.Database))

	connCfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("invalid postgres connection settings: %w", err)
	}
	return a.Attach(ctx, stdlib.OpenDB(*connCfg), cfg)
}

// buildPostgresDSN constructs a PostgreSQL connection string.
func buildPostgresDSN(cfg adapter.Config) (string, error) {
	var params Params
	if err := adapter.DecodeParams(cfg.Params, &params); err != nil {
		return "", err
	}

	// Build key=value format: host=localhost port=5432 user=postgres ...
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := params.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, cfg.Database, sslmode)

	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}
	if params.ApplicationName != "" {
		dsn += fmt.Sprintf(" application_name=%s", params.ApplicationName)
	}
	if params.SearchPath != "" {
		dsn += fmt.Sprintf(" search_path=%s", params.SearchPath)
	}

	return dsn, nil
}
