// Copyright (c) 2025 Sqlbench
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"sqlbench/cli/internal/execution"
	"sqlbench/cli/internal/logging"
	"sqlbench/cli/internal/render"
	"sqlbench/cli/internal/terminal"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	execYes    bool
	execFormat string
)

var errQueryFailed = errors.New("query failed")

// execCmd runs a single statement and prints its result.
var execCmd = &cobra.Command{
	Use:   "exec <sql>",
	Short: "Execute one SQL statement",
	Long: `The exec command runs one statement through the configured Query Service and
prints the result. Destructive statements (DROP, TRUNCATE, DELETE or UPDATE
without WHERE, ALTER, procedure calls) ask for confirmation first; --yes
confirms them up front.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		query := strings.Join(args, " ")

		svc, err := openQueryService(ctx, cfg)
		if err != nil {
			pterm.Error.Println(logging.PresentError("Failed to open database", err))
			return err
		}
		defer svc.Close()

		reg, coord := newWorkbench(cfg, svc)
		r := render.New()

		stop := startSpinner("Running query")
		out, err := coord.Execute(ctx, query, cfg.Database, false)
		stop()
		if err != nil {
			return err
		}

		if out.AwaitingConfirmation() {
			printf(cmd, "%s\n", r.Confirmation(1, *out.Confirmation))
			ok, err := confirmDestructive()
			if err != nil {
				coord.Cancel(reg.ActiveID())
				return err
			}
			if !ok {
				coord.Cancel(reg.ActiveID())
				pterm.Info.Println("Statement discarded")
				return nil
			}
			stop = startSpinner("Running query")
			out, err = coord.Confirm(ctx, reg.ActiveID())
			stop()
			if err != nil {
				return err
			}
		}

		if err := printResult(cmd, r, out); err != nil {
			return err
		}
		if out.Result != nil && !out.Result.Success {
			return errQueryFailed
		}
		return nil
	},
}

// confirmDestructive asks the user whether to run a destructive statement.
func confirmDestructive() (bool, error) {
	if execYes {
		return true, nil
	}
	if !terminal.IsInteractive() {
		return false, errors.New("destructive statement needs confirmation; rerun with --yes")
	}
	return pterm.DefaultInteractiveConfirm.
		WithDefaultValue(false).
		Show("Run this statement anyway?")
}

func printResult(cmd *cobra.Command, r *render.Renderer, out execution.Outcome) error {
	switch execFormat {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out.Result)
	case "", "table":
		printf(cmd, "%s\n", r.Result(out.Result))
		return nil
	default:
		return fmt.Errorf("unknown format %q (use table or json)", execFormat)
	}
}

func init() {
	rootCmd.AddCommand(execCmd)
	execCmd.Flags().BoolVarP(&execYes, "yes", "y", false, "confirm destructive statements without prompting")
	execCmd.Flags().StringVarP(&execFormat, "format", "f", "table", "output format: table or json")
}
