package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leapstack-labs/leapstore/internal/cli/config"
	"github.com/leapstack-labs/leapstore/internal/testutil"
	"github.com/leapstack-labs/leapstore/pkg/schema"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/leapstack-labs/leapstore/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/leapstore/pkg/adapters/sqlite"
)

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewDumpCommand(), "dump", []string{"outfile", "prompt-for-args", "show-progress"}},
		{NewGenerateCommand(), "generate", []string{"watch", "all"}},
		{NewExecCommand(), "exec <script.sql>", nil},
		{NewClassesCommand(), "classes", []string{"attrs"}},
		{NewSchemaCommand(), "schema", []string{"class"}},
	}
	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, tt.cmd.Long, "Long should not be empty")
			assert.NotEmpty(t, tt.cmd.Example, "Example should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestNewVersionCommand(t *testing.T) {
	tests := []struct {
		name    string
		version string
		wantOut []string
	}{
		{name: "default version", version: "0.1.0", wantOut: []string{"leapstore v0.1.0 (go", "Object store"}},
		{name: "dev version", version: "dev", wantOut: []string{"leapstore vdev"}},
		{name: "lists drivers", version: "dev", wantOut: []string{"Dialects: ", "postgres", "Adapters: ", "sqlite"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewVersionCommand(tt.version)
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			require.NoError(t, cmd.Execute())
			for _, want := range tt.wantOut {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestPromptForArgs(t *testing.T) {
	tests := []struct {
		name  string
		db    config.DatabaseConfig
		input string
		want  config.DatabaseConfig
		asked []string
	}{
		{
			name:  "server database",
			db:    config.DatabaseConfig{Type: "postgres", Host: "localhost", Database: "shop"},
			input: "\n\nadmin\nsecret\n",
			want:  config.DatabaseConfig{Type: "postgres", Host: "localhost", Database: "shop", User: "admin", Password: "secret"},
			asked: []string{"Host [localhost]: ", "Database [shop]: ", "User: ", "Password: "},
		},
		{
			name:  "file database",
			db:    config.DatabaseConfig{Type: "sqlite"},
			input: "shop.db",
			want:  config.DatabaseConfig{Type: "sqlite", Database: "shop.db"},
			asked: []string{"Database file: "},
		},
		{
			name:  "end of input keeps values",
			db:    config.DatabaseConfig{Type: "postgres", Host: "h", User: "u", Password: "p"},
			input: "",
			want:  config.DatabaseConfig{Type: "postgres", Host: "h", User: "u", Password: "p"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{}
			var errOut bytes.Buffer
			cmd.SetIn(strings.NewReader(tt.input))
			cmd.SetErr(&errOut)

			db := tt.db
			require.NoError(t, promptForArgs(cmd, &db))
			assert.Equal(t, tt.want, db)
			for _, q := range tt.asked {
				assert.Contains(t, errOut.String(), q)
			}
			assert.NotContains(t, errOut.String(), "secret", "password must not be echoed")
		})
	}
}

func TestNewCommandContext(t *testing.T) {
	t.Run("missing model directory", func(t *testing.T) {
		config.ResetConfig()
		_, err := config.LoadConfig("", nil)
		require.NoError(t, err)
		config.GetCurrentConfig().ModelDir = filepath.Join(t.TempDir(), "missing")

		_, err = NewCommandContext(&cobra.Command{})
		var usage *UsageError
		require.ErrorAs(t, err, &usage)
		assert.Contains(t, usage.Error(), "model directory does not exist")
	})

	t.Run("loads model and requires database", func(t *testing.T) {
		config.ResetConfig()
		_, err := config.LoadConfig("", nil)
		require.NoError(t, err)
		config.GetCurrentConfig().ModelDir = testutil.WriteModelDir(t, nil)

		cc, err := NewCommandContext(&cobra.Command{})
		require.NoError(t, err)
		assert.Equal(t, "Shop", cc.Model.Name)

		var usage *UsageError
		assert.ErrorAs(t, cc.RequireDatabase(), &usage)
		_, err = cc.OpenStore(t.Context(), nil)
		assert.ErrorAs(t, err, &usage)
	})

	t.Run("opens store", func(t *testing.T) {
		config.ResetConfig()
		_, err := config.LoadConfig("", nil)
		require.NoError(t, err)
		cfg := config.GetCurrentConfig()
		cfg.ModelDir = testutil.WriteModelDir(t, nil)
		cfg.Database = &config.DatabaseConfig{Type: "sqlite", Database: ":memory:"}

		cc, err := NewCommandContext(&cobra.Command{})
		require.NoError(t, err)
		st, err := cc.OpenStore(t.Context(), nil)
		require.NoError(t, err)
		assert.Equal(t, "sqlite", st.Dialect().Name)
		assert.NoError(t, st.Close())
	})
}

func TestGetConfig_EnvFallback(t *testing.T) {
	config.ResetConfig()
	t.Setenv("LEAPSTORE_MODEL", "models/Shop.mkmodel")
	t.Setenv("LEAPSTORE_DATABASE__TYPE", "sqlite")
	t.Setenv("LEAPSTORE_DATABASE__DATABASE", "shop.db")

	cfg := getConfig()
	assert.Equal(t, "models/Shop.mkmodel", cfg.ModelDir)
	require.NotNil(t, cfg.Database)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "shop.db", cfg.Database.Database)
	assert.Equal(t, config.DefaultEnv, cfg.Environment)
}

func TestWatchModel(t *testing.T) {
	dir := testutil.WriteModelDir(t, nil)
	ctx, cancel := testContext(t)

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watchModel(ctx, dir, testutil.NewTestLogger(t), func() error {
			calls.Add(1)
			return nil
		})
	}()

	// Unrelated files are ignored; model files trigger one debounced rebuild.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)
		_ = os.WriteFile(filepath.Join(dir, schema.SettingsFile), []byte("database: shop\n"), 0o644)
		return calls.Load() > 0
	}, 5*time.Second, 250*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatchModel_MissingDir(t *testing.T) {
	err := watchModel(t.Context(), filepath.Join(t.TempDir(), "missing"), testutil.NewTestLogger(t), func() error { return nil })
	assert.Error(t, err)
}

func testContext(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(t.Context())
	t.Cleanup(cancel)
	return ctx, cancel
}
