// magnetctl is a command-line client for driving a design cycle or
// inspecting engine state from the terminal, without standing up magnetd.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/magnet-design/magnet-core/internal/config"
	"github.com/magnet-design/magnet-core/internal/runtime"
	"github.com/magnet-design/magnet-core/pkg/protocol"
	"github.com/magnet-design/magnet-core/pkg/triggerlog"
	"github.com/magnet-design/magnet-core/pkg/value"
	"github.com/magnet-design/magnet-core/pkg/visualization"
)

var rootCmd = &cobra.Command{
	Use:   "magnetctl",
	Short: "Inspect and drive the MAGNET parametric design engine",
}

func main() {
	rootCmd.AddCommand(stateCmd, proposeCmd, triggersCmd, dependentsCmd, graphCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func bootRuntime(ctx context.Context) (*runtime.Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return runtime.New(ctx, cfg, runtime.AlwaysApprove, nil)
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the current design state as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close(cmd.Context())
		return printJSON(rt.Store.ToDict())
	},
}

var proposeSetFlags []string

var proposeCmd = &cobra.Command{
	Use:   "propose",
	Short: "Submit a proposal (path=value pairs) through the design cycle",
	Example: `  magnetctl propose --set hull.beam=6.5 --set hull.draft=1.5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close(cmd.Context())

		changes := make([]protocol.ParameterChange, 0, len(proposeSetFlags))
		for _, kv := range proposeSetFlags {
			path, raw, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("invalid --set %q, expected path=value", kv)
			}
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return fmt.Errorf("invalid value %q for %s: %w", raw, path, err)
			}
			changes = append(changes, protocol.ParameterChange{
				Path:   path,
				Old:    rt.Store.Get(path, value.Null()),
				New:    value.Float(f),
				Source: "magnetctl",
			})
		}
		if len(changes) == 0 {
			return fmt.Errorf("at least one --set path=value is required")
		}

		proposal := protocol.Proposal{
			AgentID: "magnetctl",
			Changes: changes,
			Status:  protocol.ProposalPending,
		}
		result, err := rt.Cycles.Run(cmd.Context(), proposal)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

var triggersCmd = &cobra.Command{
	Use:   "triggers",
	Short: "Print the trigger log",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close(cmd.Context())
		return printJSON(rt.TriggerLog.Query(triggerlog.Filter{}))
	},
}

var dependentsCmd = &cobra.Command{
	Use:   "dependents [path]",
	Short: "List the direct dependents of a parameter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close(cmd.Context())
		return printJSON(rt.Graph.DirectDependents(args[0]))
	},
}

var (
	graphDirection    string
	graphShowEdgeType bool
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Render the dependency graph as a Mermaid flowchart",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close(cmd.Context())

		opts := visualization.DefaultRenderOptions()
		opts.Direction = graphDirection
		opts.ShowEdgeType = graphShowEdgeType

		out, err := visualization.NewMermaidRenderer().Render(rt.Graph, opts)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	proposeCmd.Flags().StringArrayVar(&proposeSetFlags, "set", nil, "parameter path=value to propose (repeatable)")
	graphCmd.Flags().StringVar(&graphDirection, "direction", "TB", "flowchart direction (TB, LR, BT, RL)")
	graphCmd.Flags().BoolVar(&graphShowEdgeType, "show-edge-type", false, "label each edge with its dependency type")
}
