package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// ErrToolFailed is returned when a tool reports success=false.
var ErrToolFailed = errors.New("tool call failed")

// newCallCmd creates the call command.
func (a *App) newCallCmd() *cobra.Command {
	var compact bool

	cmd := &cobra.Command{
		Use:   "call <tool> [json|-]",
		Short: "Invoke one tool and print its response",
		Long: `Invoke one tool in-process, through the same middleware chain the server
uses, and print the response record.

The input is a JSON object given as the second argument, or read from stdin
when the argument is "-". It defaults to {}.

Examples:
  conceptd call find_similar_concepts '{"concept":"machine learning"}'
  conceptd call get_semantic_clusters '{"cluster_method":"dbscan"}'
  echo '{"time_granularity":"week"}' | conceptd call get_temporal_patterns -`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := []byte("{}")
			if len(args) == 2 {
				if args[1] == "-" {
					data, err := io.ReadAll(cmd.InOrStdin())
					if err != nil {
						return fmt.Errorf("read input: %w", err)
					}
					input = data
				} else {
					input = []byte(args[1])
				}
			}
			return a.call(cmd.Context(), args[0], input, compact)
		},
	}

	cmd.Flags().BoolVar(&compact, "compact", false, "Print the response without indentation")

	return cmd
}

func (a *App) call(ctx context.Context, name string, input []byte, compact bool) error {
	app, err := a.openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close(context.Background()) }()

	result, err := app.Server().Call(ctx, name, json.RawMessage(input))
	if err != nil {
		return err
	}

	out := result.Output
	if !compact {
		var buf bytes.Buffer
		if err := json.Indent(&buf, result.Output, "", "  "); err == nil {
			out = buf.Bytes()
		}
	}
	if _, err := fmt.Fprintln(a.stdout, string(out)); err != nil {
		return err
	}
	if result.Failed {
		return fmt.Errorf("%w: %s", ErrToolFailed, name)
	}
	return nil
}

