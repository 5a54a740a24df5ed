package commands

import (
	"fmt"
	"os"

	"github.com/leapstack-labs/leapstore/pkg/dialect"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewExecCommand creates the exec command.
func NewExecCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "exec <script.sql>",
		Short: "Run an SQL script against the database",
		Long: `Run an SQL script statement by statement against the configured
database. Statements end at a semicolon or at a line holding only "go".
Typical scripts are the generated Create.sql and InsertSamples.sql.`,
		Example: `  leapstore exec --db sqlite --database shop.db --model Shop.mkmodel GeneratedSQL/Create.sql`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			script, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read script: %w", err)
			}

			ctx := cmd.Context()
			st, err := cc.OpenStore(ctx, nil)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if err := st.ExecuteScript(ctx, string(script)); err != nil {
				return err
			}
			cc.Logger.Debug("script executed", zap.String("path", args[0]))
			n := len(dialect.SplitStatements(string(script)))
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Executed %d statements from %s\n", n, args[0])
			return nil
		},
	}
}
