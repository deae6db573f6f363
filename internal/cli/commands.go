package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	httpadapter "github.com/couchcryptid/quake-data-etl/internal/adapter/http"
	"github.com/couchcryptid/quake-data-etl/internal/pipeline"
)

func (a *app) encodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encode FILE",
		Short: "Print the encoded identifier of every valid row of a CSV index",
		Example: `  etl encode GDMScatalog.csv
  2024040312345652113001`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, closePipeline := a.newPipeline()
			defer closePipeline()

			p.Encode(args[0], cmd.OutOrStdout())
			return nil
		},
	}
}

func (a *app) coordsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "coords",
		Short: "Print a station code to [longitude, latitude] mapping built from parsed bulletins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, closePipeline := a.newPipeline()
			defer closePipeline()

			coords, _ := p.Coords(cmd.Context())
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			if err := enc.Encode(coords); err != nil {
				return fmt.Errorf("write coordinates: %w", err)
			}
			return nil
		},
	}
}

func (a *app) scheduleCmd() *cobra.Command {
	var runNow bool
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the full pipeline on SCHEDULE_CRON until interrupted",
		Long: `schedule keeps the process alive and triggers a full run on every tick
of SCHEDULE_CRON (six fields, seconds first). A tick that fires while a
run is in progress is skipped. When HTTP_ADDR is set, /healthz, /readyz,
/status and /metrics are served.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			p, closePipeline := a.newPipeline()
			defer closePipeline()

			sched, err := pipeline.NewScheduler(ctx, a.cfg.ScheduleCron, p, a.logger)
			if err != nil {
				return err
			}

			var srv *httpadapter.Server
			if a.cfg.HTTPAddr != "" {
				srv = httpadapter.NewServer(a.cfg.HTTPAddr, p, p, a.logger)
				go func() {
					if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.logger.Error("http server error", "error", err)
					}
				}()
			}

			// The initial run finishes before the first tick so runs never overlap.
			if runNow {
				_, _ = p.Run(ctx)
			}
			sched.Start()

			<-ctx.Done()
			a.logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
			defer cancel()

			select {
			case <-sched.Stop().Done():
			case <-shutdownCtx.Done():
				a.logger.Warn("scheduler stop timed out, a run may still be in progress")
			}
			if srv != nil {
				if err := srv.Shutdown(shutdownCtx); err != nil {
					a.logger.Error("http server shutdown error", "error", err)
				}
			}
			a.logger.Info("shutdown complete")
			return nil
		},
	}
	cmd.Flags().BoolVar(&runNow, "now", false, "run once before the first scheduled tick")
	return cmd
}
