// Package sqlite provides a SQLite database adapter for leapstore.
//
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/leapstore/pkg/adapters/sqlite"
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/leapstack-labs/leapstore/pkg/adapter"
	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/dialect"
	sqlitedialect "github.com/leapstack-labs/leapstore/pkg/dialects/sqlite"
	"go.uber.org/zap"

	_ "modernc.org/sqlite" // sqlite driver
)

func init() {
	adapter.Register("sqlite", func(logger *zap.Logger) adapter.Adapter { return New(logger) })
}

// Params holds SQLite-specific configuration.
type Params struct {
	// BusyTimeout waits for locks held by other connections.
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
	// ForeignKeys turns on foreign key enforcement.
	ForeignKeys bool `mapstructure:"foreign_keys"`
	// Pragmas are applied to every new connection, e.g. journal_mode: wal.
	Pragmas map[string]string `mapstructure:"pragmas"`
}

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
// If logger is nil, a no-op logger is used.
func New(logger *zap.Logger) *Adapter {
	return &Adapter{BaseSQLAdapter: adapter.NewBase(logger)}
}

// Dialect returns the SQLite dialect.
func (a *Adapter) Dialect() *dialect.Dialect {
	return sqlitedialect.SQLite
}

// DialectConfig returns the static dialect configuration.
func (a *Adapter) DialectConfig() *core.DialectConfig {
	return sqlitedialect.Config
}

// Connect opens the database file, creating it if needed.
// Use ":memory:" (or an empty path) for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	var params Params
	if err := adapter.DecodeParams(cfg.Params, &params); err != nil {
		return err
	}
	dsn := buildDSN(cfg.Path, params)
	a.Logger.Debug("connecting to sqlite", zap.String("path", cfg.Path))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite connection: %w", err)
	}
	// Every connection to :memory: gets its own database.
	if isMemory(cfg.Path) {
		cfg.PoolSize = 1
	}
	return a.Attach(ctx, db, cfg)
}

func isMemory(path string) bool {
	return path == "" || path == ":memory:"
}

// buildDSN renders a modernc.org/sqlite DSN with _pragma parameters.
func buildDSN(path string, p Params) string {
	if isMemory(path) {
		path = ":memory:"
	}
	var pragmas []string
	if p.BusyTimeout > 0 {
		pragmas = append(pragmas, fmt.Sprintf("busy_timeout(%d)", p.BusyTimeout.Milliseconds()))
	}
	if p.ForeignKeys {
		pragmas = append(pragmas, "foreign_keys(1)")
	}
	names := make([]string, 0, len(p.Pragmas))
	for name := range p.Pragmas {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		pragmas = append(pragmas, fmt.Sprintf("%s(%s)", name, p.Pragmas[name]))
	}
	if len(pragmas) == 0 {
		return path
	}
	q := make([]string, len(pragmas))
	for i, pr := range pragmas {
		q[i] = "_pragma=" + url.QueryEscape(pr)
	}
	return "file:" + path + "?" + strings.Join(q, "&")
}
