package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/leapstack-labs/leapstore/internal/backup"
	"github.com/leapstack-labs/leapstore/internal/cli/config"
	"github.com/leapstack-labs/leapstore/pkg/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// NewDumpCommand creates the dump command.
func NewDumpCommand() *cobra.Command {
	var (
		outFile      string
		promptArgs   bool
		showProgress bool
	)
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump the object store in sample file format",
		Long: `Dump every object of every concrete class in the sample file format.
The output can be loaded back with the generated InsertSamples.sql.

The dump goes to stdout unless --outfile names a file or an
s3://bucket/key location.`,
		Example: `  leapstore dump --db sqlite --database shop.db --model Shop.mkmodel
  leapstore dump --db mysql --model Shop.mkmodel --prompt-for-args --outfile shop.csv
  leapstore dump --db postgres --model Shop.mkmodel --outfile s3://backups/shop.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			if err := cc.RequireDatabase(); err != nil {
				return err
			}

			db := cc.Cfg.Database.Clone()
			if promptArgs {
				if err := promptForArgs(cmd, db); err != nil {
					return err
				}
				db.ApplyDefaults()
			}

			ctx := cmd.Context()
			st, err := cc.OpenStore(ctx, db)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			w, err := backup.Open(ctx, outFile, cc.Cfg.Backup,
				backup.WithStdout(cmd.OutOrStdout()),
				backup.WithLogger(cc.Logger))
			if err != nil {
				return err
			}

			var opts []store.DumpOption
			if showProgress {
				opts = append(opts, store.Progress(cmd.ErrOrStderr()))
			}
			if err := st.DumpObjectStore(ctx, w, opts...); err != nil {
				_ = w.Close()
				return err
			}
			if err := w.Close(); err != nil {
				return err
			}
			cc.Logger.Debug("dump complete",
				zap.String("model", cc.Model.Name),
				zap.String("target", targetName(outFile)),
				zap.Int64("statements", st.SQLCount()))
			return nil
		},
	}
	cmd.Flags().StringVar(&outFile, "outfile", "", "Write the dump to a file or s3://bucket/key (default stdout)")
	cmd.Flags().BoolVar(&promptArgs, "prompt-for-args", false, "Prompt for database connection arguments")
	cmd.Flags().BoolVar(&showProgress, "show-progress", false, "Print a dot per class to stderr")
	return cmd
}

func targetName(outFile string) string {
	if outFile == "" {
		return "stdout"
	}
	return outFile
}

// promptForArgs asks for the connection arguments of db. An empty answer
// keeps the configured value.
func promptForArgs(cmd *cobra.Command, db *config.DatabaseConfig) error {
	in := cmd.InOrStdin()
	r := bufio.NewReader(in)
	out := cmd.ErrOrStderr()

	ask := func(label string, v *string) error {
		if *v != "" {
			_, _ = fmt.Fprintf(out, "%s [%s]: ", label, *v)
		} else {
			_, _ = fmt.Fprintf(out, "%s: ", label)
		}
		line, err := readLine(r)
		if err != nil {
			return fmt.Errorf("read %s: %w", strings.ToLower(label), err)
		}
		if line != "" {
			*v = line
		}
		return nil
	}

	if db.FileBased() {
		return ask("Database file", &db.Database)
	}
	for _, p := range []struct {
		label string
		v     *string
	}{
		{"Host", &db.Host},
		{"Database", &db.Database},
		{"User", &db.User},
	} {
		if err := ask(p.label, p.v); err != nil {
			return err
		}
	}

	_, _ = fmt.Fprint(out, "Password: ")
	pw, err := readPassword(in, r)
	_, _ = fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	if pw != "" {
		db.Password = pw
	}
	return nil
}

// readPassword reads without echo from a terminal, otherwise a plain line.
func readPassword(in io.Reader, r *bufio.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		return string(b), err
	}
	return readLine(r)
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
