// Copyright (c) 2025 Sqlbench
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"sqlbench/cli/internal/dsn"
	"sqlbench/cli/internal/logging"
	"sqlbench/cli/internal/server"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// serveCmd exposes a direct database connection over the REST contract so
// other sqlbench clients can use it as their Query Service.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a database over the Query Service REST API",
	Long: `The serve command opens the configured DSN and serves it under
/api/connection-test, /api/execute, /api/schema/{database} and /api/health.
Point another sqlbench at it with --backend-url.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		raw := resolveDSN(cfg)
		if raw == "" {
			pterm.Warning.Println("No database connection configured")
			pterm.Println("   Pass --dsn, export SQLBENCH_DSN or run: sqlbench connect")
			return nil
		}
		// Serve never proxies to another backend.
		cfg.DSN = raw
		svc, err := openQueryService(ctx, cfg)
		if err != nil {
			pterm.Error.Println(logging.PresentError("Failed to open database", err))
			return err
		}
		defer svc.Close()

		info, _ := dsn.ParseInfo(raw)
		if info != nil {
			logger.Info("serving", logger.Args("addr", cfg.Listen, "database", info.Redacted()))
		}
		pterm.Info.Printfln("Listening on http://%s (Ctrl-C to stop)", cfg.Listen)

		srv := server.New(server.Config{
			Service: svc,
			Addr:    cfg.Listen,
			Logger:  logger,
		})
		return srv.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "listen address (default 127.0.0.1:8000)")
}
