// Copyright (c) 2025 Sqlbench
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for sqlbench.
// It implements the interactive multi-tab shell, one-shot execution, schema and
// connection inspection, and a server mode using the Cobra CLI framework.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sqlbench/cli/internal/config"
	"sqlbench/cli/internal/logging"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	// cfg is the effective configuration, loaded before any subcommand runs.
	cfg config.Config
	// cfgUsed is the config file that was read, if any.
	cfgUsed string
	logger  = logging.Discard()
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sqlbench",
	Short: "Terminal SQL workbench with multiple query tabs",
	Long: `sqlbench is a terminal SQL workbench. Each tab keeps its own draft and last
result; destructive statements are held until you confirm them.

Statements run through a Query Service: a REST backend (backend_url) or, when a
DSN is configured, directly against PostgreSQL or SQLite.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, used, err := config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		cfg, cfgUsed = loaded, used
		logger = logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
		if used != "" {
			logger.Debug("config loaded", logger.Args("file", used))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShell(cmd)
	},
}

// Execute runs the CLI application. SIGINT and SIGTERM cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		pterm.Error.Println(logging.PresentError("", err))
		stop()
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/sqlbench/config.yaml)")
	pf.String("backend-url", "", "Query Service base URL")
	pf.String("dsn", "", "connect directly to a database (postgres:// or sqlite path)")
	pf.String("database", "", "database context for statements")
	pf.String("log-level", "", "log level: trace, debug, info, warn, error")
	pf.String("log-format", "", "log format: text or json")
	pf.Int("max-rows", 0, "maximum rows returned per statement in direct mode")
	pf.String("id-scheme", "", "session id scheme: counter or uuid")
}

// printf writes to the command's stdout.
func printf(cmd *cobra.Command, format string, a ...any) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), format, a...)
}
