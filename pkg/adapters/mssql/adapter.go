// Package mssql provides a Microsoft SQL Server adapter for leapstore.
//
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/leapstore/pkg/adapters/mssql"
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/leapstack-labs/leapstore/pkg/adapter"
	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/dialect"
	mssqldialect "github.com/leapstack-labs/leapstore/pkg/dialects/mssql"
	"go.uber.org/zap"

	_ "github.com/microsoft/go-mssqldb" // sqlserver driver
)

func init() {
	adapter.Register("mssql", func(logger *zap.Logger) adapter.Adapter { return New(logger) })
}

// Params holds SQL Server-specific configuration.
type Params struct {
	Encrypt  string            `mapstructure:"encrypt"`
	Instance string            `mapstructure:"instance"`
	Params   map[string]string `mapstructure:"params"`
}

// Adapter implements the adapter.Adapter interface for SQL Server.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQL Server adapter instance.
// If logger is nil, a no-op logger is used.
func New(logger *zap.Logger) *Adapter {
	return &Adapter{BaseSQLAdapter: adapter.NewBase(logger)}
}

// Dialect returns the SQL Server dialect.
func (a *Adapter) Dialect() *dialect.Dialect {
	return mssqldialect.MSSQL
}

// DialectConfig returns the static dialect configuration.
func (a *Adapter) DialectConfig() *core.DialectConfig {
	return mssqldialect.Config
}

// Connect establishes a connection to SQL Server.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return err
	}
	a.Logger.Debug("connecting to mssql", zap.String("host", cfg.Host), zap.String("database", cfg.Database))

	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return fmt.Errorf("failed to open mssql connection: %w", err)
	}
	return a.Attach(ctx, db, cfg)
}

// buildDSN constructs a sqlserver:// URL.
func buildDSN(cfg adapter.Config) (string, error) {
	var params Params
	if err := adapter.DecodeParams(cfg.Params, &params); err != nil {
		return "", err
	}

	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	u := &url.URL{Scheme: "sqlserver", Host: host}
	if cfg.Port != 0 {
		u.Host = net.JoinHostPort(host, strconv.Itoa(cfg.Port))
	}
	if params.Instance != "" {
		u.Path = params.Instance
	}
	if cfg.Username != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}

	q := url.Values{}
	if cfg.Database != "" {
		q.Set("database", cfg.Database)
	}
	if params.Encrypt != "" {
		q.Set("encrypt", params.Encrypt)
	}
	for k, v := range params.Params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
