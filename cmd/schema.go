package cmd

import (
	"sqlbench/cli/internal/logging"
	"sqlbench/cli/internal/render"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema [database]",
	Short: "List tables and columns of a database",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		database := cfg.Database
		if len(args) == 1 {
			database = args[0]
		}

		svc, err := openQueryService(ctx, cfg)
		if err != nil {
			pterm.Error.Println(logging.PresentError("Failed to open database", err))
			return err
		}
		defer svc.Close()

		stop := startSpinner("Loading schema")
		schema, err := svc.GetSchema(ctx, database)
		stop()
		if err != nil {
			pterm.Println(logging.PresentServiceError("loading schema", svc.target, err))
			return err
		}
		printf(cmd, "%s\n", render.New().Schema(schema))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
