package importcmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/soriano-mediadores/csvimport/internal/models"
	"github.com/soriano-mediadores/csvimport/internal/schema"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewSchemaCmd creates the schema command
func NewSchemaCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "schema [TYPE]",
		Short: "Show the expected file name and required columns per import type",
		Example: `  csvimport schema
  csvimport schema polizas --format yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			entries := e.registry.Entries()
			if len(args) == 1 {
				t, err := models.ParseImportType(args[0])
				if err != nil {
					return err
				}
				entry, _ := e.registry.Lookup(t)
				entries = []schema.Entry{entry}
			}
			return writeSchemas(cmd.OutOrStdout(), entries, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format (text, json, yaml)")

	return cmd
}

func writeSchemas(out io.Writer, entries []schema.Entry, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml":
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return enc.Encode(entries)
	case "text":
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TYPE\tTITLE\tFILE\tREQUIRED COLUMNS")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Type, e.Title, e.FileNamePattern, strings.Join(e.RequiredColumns, ", "))
		}
		return tw.Flush()
	}
	return fmt.Errorf("unsupported format: %s", format)
}
