// Copyright (c) 2025 Sqlbench
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"path/filepath"

	"sqlbench/cli/internal/logging"
	"sqlbench/cli/internal/shell"
	"sqlbench/cli/internal/xdg"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// shellCmd starts the interactive multi-tab workbench. It is also what the
// bare 'sqlbench' command runs.
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start the interactive multi-tab SQL workbench",
	Long: `The shell command opens an interactive workbench. Every tab keeps its own
draft and last result. Type SQL and end a line with ';' to run the draft;
use \help to list tab and confirmation commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShell(cmd)
	},
}

func runShell(cmd *cobra.Command) error {
	ctx := cmd.Context()

	svc, err := openQueryService(ctx, cfg)
	if err != nil {
		pterm.Error.Println(logging.PresentError("Failed to open database", err))
		return err
	}
	defer svc.Close()

	reg, coord := newWorkbench(cfg, svc)
	sh := shell.New(reg, coord, svc,
		shell.WithOutput(cmd.OutOrStdout()),
		shell.WithDatabase(cfg.Database),
		shell.WithLogger(logger),
	)

	var history string
	if dir, err := xdg.StateDir(); err == nil {
		history = filepath.Join(dir, "history")
	}

	printf(cmd, "Connected to %s (%s mode)\n", svc.target, svc.mode)
	return sh.Run(ctx, shell.RunConfig{HistoryFile: history})
}

func init() {
	rootCmd.AddCommand(shellCmd)
}
