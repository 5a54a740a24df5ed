package commands

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/spf13/cobra"
)

const jsonSchemaDialect = "https://json-schema.org/draft/2020-12/schema"

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	var class string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Export the model as JSON Schema",
		Long: `Export the classes of a model as JSON Schema. Without --class every class
is emitted under $defs; with --class only that class is emitted.`,
		Example: `  leapstore schema --model Shop.mkmodel
  leapstore schema --model Shop.mkmodel --class Foo`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			m := cc.Model

			var out *jsonschema.Schema
			if class != "" {
				c, ok := m.Class(class)
				if !ok {
					return usageErrorf("unknown class %q in model %s", class, m.Name)
				}
				out = m.JSONSchema(c)
			} else {
				out = &jsonschema.Schema{
					Title: m.Name,
					Defs:  make(map[string]*jsonschema.Schema, len(m.Classes())),
				}
				for _, c := range m.Classes() {
					out.Defs[c.Name] = m.JSONSchema(c)
				}
			}
			out.Schema = jsonSchemaDialect

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&class, "class", "", "Export a single class")
	_ = cmd.RegisterFlagCompletionFunc("class", completeClasses)
	return cmd
}

// completeClasses offers the class names of the configured model.
func completeClasses(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var names []string
	for _, c := range cc.Model.Classes() {
		names = append(names, c.Name)
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
