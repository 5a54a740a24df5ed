// Package cli provides the command-line interface for leapstore.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/leapstack-labs/leapstore/internal/cli/commands"
	"github.com/leapstack-labs/leapstore/internal/cli/config"
	"github.com/leapstack-labs/leapstore/pkg/dialect"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	// Register the database adapters.
	_ "github.com/leapstack-labs/leapstore/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leapstore/pkg/adapters/mssql"
	_ "github.com/leapstack-labs/leapstore/pkg/adapters/mysql"
	_ "github.com/leapstack-labs/leapstore/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/leapstore/pkg/adapters/sqlite"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// configKey is used to store config in context.
type configKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "leapstore",
		Short: "leapstore - object store for relational databases",
		Long: `leapstore maps the classes of a model directory onto tables of a
relational database. It generates the SQL that creates the database, runs
SQL scripts, and dumps the stored objects in sample file format.

Supported databases: mysql, sqlite, mssql, postgres and duckdb.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Flags())
			if err != nil {
				return &commands.UsageError{Msg: err.Error()}
			}

			logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)
			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)
			ctx = context.WithValue(ctx, config.LoggerKey(), logger)
			cmd.SetContext(ctx)

			if configFile := config.GetConfigFileUsed(); configFile != "" {
				logger.Debug("using config file", zap.String("path", configFile))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./leapstore.yaml)")
	rootCmd.PersistentFlags().String("db", "", "Database kind (mysql|sqlite|mssql|postgres|duckdb)")
	rootCmd.PersistentFlags().String("database", "", "Database name, or file path for sqlite and duckdb")
	rootCmd.PersistentFlags().String("model", "", "Path to the model directory")
	rootCmd.PersistentFlags().String("outdir", "", "Directory generated files are written to")
	rootCmd.PersistentFlags().String("env", "", "Environment name")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	_ = rootCmd.RegisterFlagCompletionFunc("db", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return dialect.List(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.MarkPersistentFlagDirname("model")
	_ = rootCmd.MarkPersistentFlagDirname("outdir")

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewDumpCommand())
	rootCmd.AddCommand(commands.NewGenerateCommand())
	rootCmd.AddCommand(commands.NewExecCommand())
	rootCmd.AddCommand(commands.NewClassesCommand())
	rootCmd.AddCommand(commands.NewSchemaCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// newLogger returns a console logger on w. Only warnings and errors are
// shown unless verbose is set.
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core)
}

// Execute runs the root command.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx.
func ExecuteContext(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	return &config.Config{
		ModelDir:    config.DefaultModelDir,
		OutDir:      config.DefaultOutDir,
		Environment: config.DefaultEnv,
	}
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for leapstore.

To load completions:

Bash:
  $ source <(leapstore completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ leapstore completion bash > /etc/bash_completion.d/leapstore
  # macOS:
  $ leapstore completion bash > $(brew --prefix)/etc/bash_completion.d/leapstore

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ leapstore completion zsh > "${fpath[1]}/_leapstore"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ leapstore completion fish | source

  # To load completions for each session, execute once:
  $ leapstore completion fish > ~/.config/fish/completions/leapstore.fish

PowerShell:
  PS> leapstore completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> leapstore completion powershell > leapstore.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
