package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/leapstack-labs/leapstore/pkg/adapter"
	"github.com/leapstack-labs/leapstore/pkg/dialect"
	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display the leapstore version, the dialects SQL can be generated for,
and the database adapters dump and exec can connect with.`,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "leapstore v%s (%s, %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			_, _ = fmt.Fprintln(w, "Object store for relational databases")
			_, _ = fmt.Fprintf(w, "Dialects: %s\n", listOrNone(dialect.List()))
			_, _ = fmt.Fprintf(w, "Adapters: %s\n", listOrNone(adapter.ListAdapters()))
		},
	}
}

func listOrNone(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
