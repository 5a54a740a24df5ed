package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	// Import adapter packages to ensure adapters are registered via init()
	_ "github.com/leapstack-labs/leapstore/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/leapstore/pkg/adapters/sqlite"
)

const testdataDir = "../testdata"

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("model", "", "")
	flags.String("outdir", "", "")
	flags.String("env", "", "")
	flags.Bool("verbose", false, "")
	flags.String("db", "", "")
	flags.String("database", "", "")
	flags.String("outfile", "", "")
	return flags
}

func TestLoadConfig_File(t *testing.T) {
	ResetConfig()
	cfgPath := filepath.Join(testdataDir, "valid_sqlite.yaml")
	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	root, err := filepath.Abs(testdataDir)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Equal(t, cfgPath, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
	assert.Equal(t, filepath.Join(root, "model"), cfg.ModelDir)
	assert.Equal(t, filepath.Join(root, "out"), cfg.OutDir)
	require.NotNil(t, cfg.Database)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, filepath.Join(root, "shop.db"), cfg.Database.Database)
	assert.True(t, cfg.Store.IgnoreSQLWarnings)
	assert.Equal(t, 3, cfg.Store.PoolSize)
	assert.Equal(t, "stderr", cfg.Store.SQLLog.Path)

	sc := cfg.StoreConfig()
	assert.Equal(t, "sqlite", sc.Adapter.Type)
	assert.Equal(t, filepath.Join(root, "shop.db"), sc.Adapter.Path)
	assert.True(t, sc.IgnoreSQLWarnings)
	assert.Equal(t, 3, sc.PoolSize)
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Empty(t, GetConfigFileUsed())
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, DefaultModelDir), cfg.ModelDir)
	assert.Equal(t, DefaultEnv, cfg.Environment)
	assert.Nil(t, cfg.Database)
	assert.False(t, cfg.Verbose)
	assert.Error(t, cfg.ValidateDatabase())
	assert.Error(t, cfg.ValidateDirectories())
}

func TestLoadConfig_FindsFileUpward(t *testing.T) {
	ResetConfig()
	root := t.TempDir()
	nested := filepath.Join(root, "model", "deep")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "leapstore.yaml"), []byte("database:\n  type: sqlite\n  database: app.db\n"), 0o600))
	t.Chdir(nested)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	// macOS temp dirs resolve through a symlink.
	wantRoot, _ := filepath.EvalSymlinks(root)
	gotRoot, _ := filepath.EvalSymlinks(cfg.ProjectRoot)
	assert.Equal(t, wantRoot, gotRoot)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, "app.db"), cfg.Database.Database)
	assert.NoError(t, cfg.ValidateDirectories())
}

func TestLoadConfig_Environments(t *testing.T) {
	cfgPath := filepath.Join(testdataDir, "valid_with_envs.yaml")

	tests := []struct {
		name      string
		env       string
		wantHost  string
		wantPort  int
		wantModel string
		wantPass  string
	}{
		{name: "dev", env: "", wantHost: "dev-db", wantPort: 5432, wantModel: "model"},
		{name: "prod", env: "prod", wantHost: "prod-db", wantPort: 6543, wantModel: "prod_model", wantPass: "s3cret"},
		{name: "unknown environment keeps base", env: "qa", wantHost: "localhost", wantPort: 5432, wantModel: "model"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			t.Setenv("LEAPSTORE_TEST_PASSWORD", "s3cret")
			flags := testFlags()
			if tt.env != "" {
				require.NoError(t, flags.Set("env", tt.env))
			}

			cfg, err := LoadConfig(cfgPath, flags)
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, cfg.Database.Host)
			assert.Equal(t, tt.wantPort, cfg.Database.Port)
			assert.Equal(t, filepath.Base(tt.wantModel), filepath.Base(cfg.ModelDir))
			assert.Equal(t, "shop", cfg.Database.Database, "server databases are not paths")
			assert.Equal(t, "dev", cfg.Database.User)
			if tt.wantPass != "" {
				assert.Equal(t, tt.wantPass, cfg.Database.Password)
			}
		})
	}
}

func TestLoadConfig_Precedence(t *testing.T) {
	cfgPath := filepath.Join(testdataDir, "valid_sqlite.yaml")

	t.Run("env overrides file", func(t *testing.T) {
		ResetConfig()
		t.Setenv("LEAPSTORE_STORE__POOL_SIZE", "9")
		t.Setenv("LEAPSTORE_VERBOSE", "true")

		cfg, err := LoadConfig(cfgPath, nil)
		require.NoError(t, err)
		assert.Equal(t, 9, cfg.Store.PoolSize)
		assert.True(t, cfg.Verbose)
	})

	t.Run("flag overrides env", func(t *testing.T) {
		ResetConfig()
		t.Setenv("LEAPSTORE_DATABASE__TYPE", "postgres")
		flags := testFlags()
		require.NoError(t, flags.Set("db", "SQLite"))
		require.NoError(t, flags.Set("database", "flag.db"))
		require.NoError(t, flags.Set("outfile", "ignored.csv"))

		cfg, err := LoadConfig(cfgPath, flags)
		require.NoError(t, err)
		assert.Equal(t, "sqlite", cfg.Database.Type)

		want, err := filepath.Abs("flag.db")
		require.NoError(t, err)
		assert.Equal(t, want, cfg.Database.Database, "flag paths are relative to the working directory")
		assert.False(t, k.Exists("outfile"))
	})

	t.Run("unchanged flags are ignored", func(t *testing.T) {
		ResetConfig()
		flags := testFlags()
		cfg, err := LoadConfig(cfgPath, flags)
		require.NoError(t, err)
		assert.Equal(t, "sqlite", cfg.Database.Type)
		assert.Equal(t, "out", filepath.Base(cfg.OutDir))
	})

	t.Run("in-memory database is not a path", func(t *testing.T) {
		ResetConfig()
		flags := testFlags()
		require.NoError(t, flags.Set("database", ":memory:"))
		cfg, err := LoadConfig(cfgPath, flags)
		require.NoError(t, err)
		assert.Equal(t, ":memory:", cfg.Database.Database)
	})
}

func TestLoadConfig_Invalid(t *testing.T) {
	ResetConfig()
	_, err := LoadConfig(filepath.Join(testdataDir, "invalid_unknown_type.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown adapter type")

	ResetConfig()
	_, err = LoadConfig(filepath.Join(testdataDir, "missing.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoadConfig_Backup(t *testing.T) {
	ResetConfig()
	t.Setenv("LEAPSTORE_BACKUP__ACCESS_KEY", "AKIA")
	cfg, err := LoadConfig(filepath.Join(testdataDir, "with_backup.yaml"), nil)
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Backup.Region)
	assert.Equal(t, "http://localhost:9000", cfg.Backup.Endpoint)
	assert.True(t, cfg.Backup.UsePathStyle)
	assert.Equal(t, "AKIA", cfg.Backup.AccessKey)
}

func TestConfig_Validate(t *testing.T) {
	assert.Error(t, (&Config{}).Validate())
	assert.NoError(t, (&Config{ModelDir: "model"}).Validate())
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("LEAPSTORE_TEST_HOST", "db.internal")
	tests := []struct {
		in, want string
	}{
		{"${LEAPSTORE_TEST_HOST}", "db.internal"},
		{"tcp://${LEAPSTORE_TEST_HOST}:1", "tcp://db.internal:1"},
		{"${LEAPSTORE_TEST_UNSET}", "${LEAPSTORE_TEST_UNSET}"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, expandEnvVars(tt.in))
		})
	}
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(t.Context()))

	l := zap.NewExample()
	ctx := contextWithLogger(t, l)
	assert.Same(t, l, GetLogger(ctx))
}

func contextWithLogger(t *testing.T, l *zap.Logger) context.Context {
	t.Helper()
	return context.WithValue(t.Context(), LoggerKey(), l)
}
