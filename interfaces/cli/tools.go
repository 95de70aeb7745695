package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// newToolsCmd creates the tools command.
func (a *App) newToolsCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools the server exposes",
		Long: `List every tool the server registers, with its annotations.

Examples:
  conceptd tools
  conceptd tools -v`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listTools(cmd.Context(), verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show input schemas")

	return cmd
}

func (a *App) listTools(ctx context.Context, verbose bool) error {
	app, err := a.openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close(context.Background()) }()

	tools := app.Server().Tools()
	_, _ = fmt.Fprintf(a.stdout, "Tools (%d):\n", len(tools))
	for _, t := range tools {
		_, _ = fmt.Fprintf(a.stdout, "\n  %s\n", t.Name())
		_, _ = fmt.Fprintf(a.stdout, "    %s\n", t.Description())

		ann := t.Annotations()
		var flags []string
		if ann.ReadOnly {
			flags = append(flags, "read-only")
		}
		if ann.Cacheable {
			flags = append(flags, "cached")
		}
		if ann.Destructive {
			flags = append(flags, "destructive")
		}
		if len(flags) > 0 {
			_, _ = fmt.Fprintf(a.stdout, "    [%s]\n", strings.Join(flags, ", "))
		}
		if verbose {
			schema, err := t.InputSchema().MarshalJSON()
			if err != nil {
				return fmt.Errorf("encode %s schema: %w", t.Name(), err)
			}
			_, _ = fmt.Fprintf(a.stdout, "    Input: %s\n", schema)
		}
	}
	return nil
}
