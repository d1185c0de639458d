package cmd

import (
	"context"
	"errors"
	"fmt"

	"sqlbench/cli/internal/logging"
	"sqlbench/cli/internal/model"
	"sqlbench/cli/internal/render"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// healthChecker is implemented by Query Services with a liveness endpoint.
type healthChecker interface {
	Health(ctx context.Context) error
}

// statusReport is what 'sqlbench status' prints.
type statusReport struct {
	conn   model.ConnectionStatus
	tables int
	// health is "ok" when the service answered its liveness endpoint, "n/a"
	// when it has none.
	health string
}

// checkStatus runs the health check, the connection test and the schema
// listing in parallel. The first failure cancels the others.
func checkStatus(ctx context.Context, svc *queryService, database string) (statusReport, error) {
	rep := statusReport{health: "n/a"}
	g, gctx := errgroup.WithContext(ctx)
	if hc, ok := svc.QueryService.(healthChecker); ok {
		g.Go(func() error {
			if err := hc.Health(gctx); err != nil {
				return err
			}
			rep.health = "ok"
			return nil
		})
	}
	g.Go(func() error {
		var err error
		rep.conn, err = svc.TestConnection(gctx)
		return err
	})
	g.Go(func() error {
		schema, err := svc.GetSchema(gctx, database)
		rep.tables = len(schema.Tables)
		return err
	})
	err := g.Wait()
	return rep, err
}

// statusCmd tests the connection and counts tables in parallel.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Test the Query Service connection",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, err := openQueryService(ctx, cfg)
		if err != nil {
			pterm.Error.Println(logging.PresentError("Failed to open database", err))
			return err
		}
		defer svc.Close()

		stop := startSpinner("Checking connection")
		rep, err := checkStatus(ctx, svc, cfg.Database)
		stop()
		if err != nil {
			pterm.Println(logging.PresentServiceError("checking connection", svc.target, err))
			return err
		}

		r := render.New()
		printf(cmd, "%s\n", r.Status(rep.conn))
		printf(cmd, "%s\n", render.BulletList([]string{
			fmt.Sprintf("Mode: %s", svc.mode),
			fmt.Sprintf("Target: %s", svc.target),
			fmt.Sprintf("Health: %s", rep.health),
			fmt.Sprintf("Tables: %d", rep.tables),
		}))
		if !rep.conn.Connected {
			return errors.New("not connected")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
