package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	sharedcfg "github.com/leapstack-labs/leapstore/internal/config"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// loggerKey is used to store the logger in a command context.
type loggerKey struct{}

// EnvPrefix prefixes the environment variables read as configuration.
// Nested keys use a double underscore: LEAPSTORE_DATABASE__TYPE.
const EnvPrefix = "LEAPSTORE_"

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// flagKeys maps CLI flag names to config keys. Flags not listed here are
// command options and never reach the config.
var flagKeys = map[string]string{
	"model":    "model",
	"outdir":   "outdir",
	"env":      "environment",
	"verbose":  "verbose",
	"db":       "database.type",
	"database": "database.database",
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config
)

// inferProjectRoot determines the project root.
// Priority:
//  1. Directory of an explicit config file
//  2. Parent of --model when it holds a config file
//  3. Search upward from CWD for leapstore.yaml
//  4. Current working directory
func inferProjectRoot(cfgFile string, flags *pflag.FlagSet) string {
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			return filepath.Dir(abs)
		}
	}

	if v := changedString(flags, "model"); v != "" {
		if abs, err := filepath.Abs(v); err == nil {
			if parent := filepath.Dir(abs); sharedcfg.FindConfigFile(parent) != "" {
				return parent
			}
		}
	}

	cwd, err := os.Getwd()
	if err != nil || cwd == "" {
		return "."
	}
	if root := sharedcfg.FindProjectRoot(cwd, maxUpwardSearchLevels); root != "" {
		return root
	}
	return cwd
}

func changedString(flags *pflag.FlagSet, name string) string {
	if flags == nil || flags.Lookup(name) == nil || !flags.Changed(name) {
		return ""
	}
	v, _ := flags.GetString(name)
	return v
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty, in-memory or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// absFromCWD makes a flag-supplied path absolute against the working directory.
func absFromCWD(path string) string {
	if path == "" || path == ":memory:" {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")
	projectRoot := inferProjectRoot(cfgFile, flags)

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"model":       DefaultModelDir,
		"outdir":      DefaultOutDir,
		"environment": DefaultEnv,
		"verbose":     false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if cfgFile == "" {
		cfgFile = sharedcfg.FindConfigFile(projectRoot)
	}
	configFileUsed = cfgFile
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Environment: LEAPSTORE_DATABASE__HOST -> database.host
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ProjectRoot = projectRoot

	if envCfg, ok := cfg.Environments[cfg.Environment]; ok {
		if envCfg.ModelDir != "" {
			cfg.ModelDir = envCfg.ModelDir
		}
		if envCfg.Database != nil {
			cfg.Database = sharedcfg.MergeDatabaseConfig(cfg.Database, envCfg.Database)
		}
	}

	// Flag paths are relative to the working directory, all others to the
	// project root.
	if v := changedString(flags, "model"); v != "" {
		cfg.ModelDir = absFromCWD(v)
	} else {
		cfg.ModelDir = resolvePathRelativeTo(cfg.ModelDir, projectRoot)
	}
	if v := changedString(flags, "outdir"); v != "" {
		cfg.OutDir = absFromCWD(v)
	} else {
		cfg.OutDir = resolvePathRelativeTo(cfg.OutDir, projectRoot)
	}
	cfg.Store.SQLLog.Path = resolveLogPath(cfg.Store.SQLLog.Path, projectRoot)

	if cfg.Database != nil {
		expandDatabaseEnvVars(cfg.Database)
		cfg.Database.Type = strings.ToLower(cfg.Database.Type)
		cfg.Database.ApplyDefaults()
		if cfg.Database.FileBased() {
			if v := changedString(flags, "database"); v != "" {
				cfg.Database.Database = absFromCWD(v)
			} else {
				cfg.Database.Database = resolvePathRelativeTo(cfg.Database.Database, projectRoot)
			}
		}
		if err := cfg.Database.Validate(); err != nil {
			return nil, fmt.Errorf("invalid database configuration: %w", err)
		}
	}

	currentConfig = &cfg
	return &cfg, nil
}

// resolveLogPath leaves the stdout and stderr sinks alone.
func resolveLogPath(path, baseDir string) string {
	switch path {
	case "stdout", "stderr":
		return path
	}
	return resolvePathRelativeTo(path, baseDir)
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the configuration loaded by the last LoadConfig.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
			return l
		}
	}
	return zap.NewNop()
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}

// expandDatabaseEnvVars expands environment variables in connection fields.
func expandDatabaseEnvVars(d *DatabaseConfig) {
	d.Password = expandEnvVars(d.Password)
	d.User = expandEnvVars(d.User)
	d.Host = expandEnvVars(d.Host)
	d.Database = expandEnvVars(d.Database)
}
