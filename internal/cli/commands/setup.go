package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/leapstack-labs/leapstore/internal/cli/config"
	"github.com/leapstack-labs/leapstore/pkg/schema"
	"github.com/leapstack-labs/leapstore/pkg/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// UsageError reports a command invoked with missing or conflicting arguments.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }

func usageErrorf(format string, args ...any) error {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *zap.Logger
	Model  *schema.Model
}

// NewCommandContext loads the configured model.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	if err := cfg.Validate(); err != nil {
		return nil, &UsageError{Msg: err.Error()}
	}
	if err := cfg.ValidateDirectories(); err != nil {
		return nil, &UsageError{Msg: err.Error()}
	}
	m, err := schema.ReadModel(cfg.ModelDir)
	if err != nil {
		return nil, err
	}
	logger.Debug("model loaded",
		zap.String("model", m.Name),
		zap.Int("classes", len(m.Classes())))

	return &CommandContext{Cfg: cfg, Logger: logger, Model: m}, nil
}

// RequireDatabase fails with a usage error when no database is configured.
func (c *CommandContext) RequireDatabase() error {
	if err := c.Cfg.ValidateDatabase(); err != nil {
		return &UsageError{Msg: err.Error()}
	}
	return nil
}

// OpenStore connects a store to db, or to the configured database when db is nil.
func (c *CommandContext) OpenStore(ctx context.Context, db *config.DatabaseConfig) (*store.Store, error) {
	if db == nil {
		if err := c.RequireDatabase(); err != nil {
			return nil, err
		}
		db = c.Cfg.Database
	}
	scfg := c.Cfg.StoreConfig()
	scfg.Adapter = db.AdapterConfig()
	return store.Open(ctx, c.Model, scfg, store.WithLogger(c.Logger))
}

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	cfg := &config.Config{
		ModelDir:    getEnvOrDefault(config.EnvPrefix+"MODEL", config.DefaultModelDir),
		OutDir:      getEnvOrDefault(config.EnvPrefix+"OUTDIR", config.DefaultOutDir),
		Environment: getEnvOrDefault(config.EnvPrefix+"ENVIRONMENT", config.DefaultEnv),
		Verbose:     os.Getenv(config.EnvPrefix+"VERBOSE") == "true",
	}
	if t := os.Getenv(config.EnvPrefix + "DATABASE__TYPE"); t != "" {
		cfg.Database = &config.DatabaseConfig{
			Type:     t,
			Database: os.Getenv(config.EnvPrefix + "DATABASE__DATABASE"),
		}
	}
	return cfg
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
