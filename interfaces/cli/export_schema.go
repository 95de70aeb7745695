package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	iconfig "github.com/felixgeelhaar/concept-analytics/infrastructure/config"
)

// newExportSchemaCmd creates the export-schema command.
func (a *App) newExportSchemaCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "export-schema",
		Short: "Export the configuration JSON schema",
		Long: `Export the JSON Schema for server configuration files, for editor
validation and CI checks.

Examples:
  # Export schema to stdout
  conceptd export-schema

  # Export schema to a file
  conceptd export-schema -o schema.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exportSchema(outputPath)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout)")

	return cmd
}

// exportSchema writes the configuration JSON schema.
func (a *App) exportSchema(outputPath string) error {
	schemaJSON, err := iconfig.SchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	if outputPath == "" {
		_, _ = fmt.Fprintln(a.stdout, schemaJSON)
		return nil
	}

	if err := os.WriteFile(outputPath, []byte(schemaJSON), 0600); err != nil {
		return fmt.Errorf("failed to write schema file: %w", err)
	}

	_, _ = fmt.Fprintf(a.stdout, "Schema exported to %s\n", outputPath)
	return nil
}
