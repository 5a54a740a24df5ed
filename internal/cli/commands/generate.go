package commands

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/leapstack-labs/leapstore/pkg/dialect"
	"github.com/leapstack-labs/leapstore/pkg/generate"
	"github.com/leapstack-labs/leapstore/pkg/schema"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	var (
		watch bool
		all   bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate SQL for a model",
		Long: `Generate GeneratedSQL/Create.sql for the model, plus
GeneratedSQL/InsertSamples.sql when the model has a Samples.csv.

With --all, SQL is generated for every supported database into one
subdirectory of --outdir per database. With --watch the files are
regenerated whenever the model directory changes.`,
		Example: `  leapstore generate --db mysql --model Shop.mkmodel
  leapstore generate --all --model Shop.mkmodel --outdir build
  leapstore generate --db sqlite --model Shop.mkmodel --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}

			var dialects []*dialect.Dialect
			if all {
				for _, name := range dialect.List() {
					d, err := dialect.Lookup(name)
					if err != nil {
						return err
					}
					dialects = append(dialects, d)
				}
			} else {
				if err := cc.RequireDatabase(); err != nil {
					return err
				}
				d, err := dialect.Lookup(cc.Cfg.Database.Type)
				if err != nil {
					return err
				}
				dialects = append(dialects, d)
			}

			out := cmd.OutOrStdout()
			outDir := cc.Cfg.OutDir
			if err := generateAll(out, cc.Model, dialects, outDir, all); err != nil {
				return err
			}
			if !watch {
				return nil
			}

			modelDir := cc.Cfg.ModelDir
			_, _ = fmt.Fprintf(out, "Watching %s for changes (Ctrl+C to stop)\n", modelDir)
			return watchModel(cmd.Context(), modelDir, cc.Logger, func() error {
				m, err := schema.ReadModel(modelDir)
				if err != nil {
					return err
				}
				return generateAll(out, m, dialects, outDir, all)
			})
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Regenerate when the model changes")
	cmd.Flags().BoolVar(&all, "all", false, "Generate for every supported database")
	return cmd
}

// generateAll writes the SQL files for each dialect. With perDialect set
// every dialect gets its own subdirectory of outDir.
func generateAll(w io.Writer, m *schema.Model, dialects []*dialect.Dialect, outDir string, perDialect bool) error {
	written := make([][]string, len(dialects))
	var g errgroup.Group
	for i, d := range dialects {
		dir := outDir
		if perDialect {
			dir = filepath.Join(outDir, d.Name)
		}
		g.Go(func() error {
			paths, err := generate.WriteFiles(dir, m, d)
			if err != nil {
				return fmt.Errorf("generate %s: %w", d.Name, err)
			}
			written[i] = paths
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, paths := range written {
		for _, p := range paths {
			_, _ = fmt.Fprintf(w, "Wrote %s\n", p)
		}
	}
	return nil
}
