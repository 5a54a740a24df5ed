// Package mysql provides a MySQL database adapter for leapstore.
//
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/leapstore/pkg/adapters/mysql"
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	driver "github.com/go-sql-driver/mysql"
	"github.com/leapstack-labs/leapstore/pkg/adapter"
	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/dialect"
	mysqldialect "github.com/leapstack-labs/leapstore/pkg/dialects/mysql"
	"go.uber.org/zap"
)

func init() {
	adapter.Register("mysql", func(logger *zap.Logger) adapter.Adapter { return New(logger) })
}

// Params holds MySQL-specific configuration.
type Params struct {
	Timeout   time.Duration     `mapstructure:"timeout"`
	TLS       string            `mapstructure:"tls"`
	Collation string            `mapstructure:"collation"`
	Params    map[string]string `mapstructure:"params"`
}

// Adapter implements the adapter.Adapter interface for MySQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new MySQL adapter instance.
// If logger is nil, a no-op logger is used.
func New(logger *zap.Logger) *Adapter {
	return &Adapter{BaseSQLAdapter: adapter.NewBase(logger)}
}

// Dialect returns the MySQL dialect.
func (a *Adapter) Dialect() *dialect.Dialect {
	return mysqldialect.MySQL
}

// DialectConfig returns the static dialect configuration.
func (a *Adapter) DialectConfig() *core.DialectConfig {
	return mysqldialect.Config
}

// Connect establishes a connection to MySQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return err
	}
	a.Logger.Debug("connecting to mysql", zap.String("host", cfg.Host), zap.String("database", cfg.Database))

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open mysql connection: %w", err)
	}
	return a.Attach(ctx, db, cfg)
}

// buildDSN constructs a go-sql-driver DSN.
func buildDSN(cfg adapter.Config) (string, error) {
	var params Params
	if err := adapter.DecodeParams(cfg.Params, &params); err != nil {
		return "", err
	}

	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	c := driver.NewConfig()
	c.User = cfg.Username
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	c.DBName = cfg.Database
	c.ParseTime = true
	c.Loc = time.UTC
	c.Timeout = params.Timeout
	c.TLSConfig = params.TLS
	if params.Collation != "" {
		c.Collation = params.Collation
	}
	if len(params.Params) > 0 {
		c.Params = params.Params
	}
	return c.FormatDSN(), nil
}
