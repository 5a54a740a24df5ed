package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapstore/pkg/schema"
	"github.com/spf13/cobra"
)

// NewClassesCommand creates the classes command.
func NewClassesCommand() *cobra.Command {
	var attrs bool
	cmd := &cobra.Command{
		Use:   "classes",
		Short: "List the classes of a model",
		Long: `List the classes of a model in dependency order with their class ids,
superclasses and attribute counts. Use --attrs to list every attribute.`,
		Example: `  leapstore classes --model Shop.mkmodel
  leapstore classes --model Shop.mkmodel --attrs`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			if attrs {
				return renderAttrs(cmd.OutOrStdout(), cc.Model)
			}
			return renderClasses(cmd.OutOrStdout(), cc.Model)
		},
	}
	cmd.Flags().BoolVar(&attrs, "attrs", false, "List attributes instead of classes")
	return cmd
}

func renderClasses(w io.Writer, m *schema.Model) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(m.Name)
	t.AppendHeader(table.Row{"ID", "Class", "Super", "Abstract", "Attrs", "Lists"})
	for _, c := range m.OrderedClasses() {
		super := ""
		if c.Super() != nil {
			super = c.Super().Name
		}
		abstract := ""
		if c.Abstract {
			abstract = "yes"
		}
		t.AppendRow(table.Row{c.ID, c.Name, super, abstract, len(c.AllAttrs()), len(c.ListAttrs())})
	}
	t.Render()
	return nil
}

func renderAttrs(w io.Writer, m *schema.Model) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(m.Name)
	t.AppendHeader(table.Row{"Class", "Attribute", "Type", "Columns", "Required", "Default"})
	for _, c := range m.OrderedClasses() {
		for _, a := range c.Attrs() {
			required := ""
			if a.Required {
				required = "yes"
			}
			t.AppendRow(table.Row{c.Name, a.Name, attrType(a), strings.Join(a.ColumnNames(m.Settings), ", "), required, a.RawDefault()})
		}
	}
	t.Render()
	return nil
}

func attrType(a *schema.Attr) string {
	switch a.Kind {
	case schema.KindObjRef:
		return a.Target
	case schema.KindList:
		return fmt.Sprintf("list of %s", a.Target)
	default:
		return a.Kind.String()
	}
}
