package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/nvandessel/selfwatch/internal/server"
	"github.com/nvandessel/selfwatch/internal/shutdown"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the engine and serve live snapshots over HTTP",
		Long: `Run the engine against the reference simulation at the configured tick
rate and serve its state:

  GET /api/snapshot     latest full snapshot
  GET /api/cascade      observation cascade
  GET /api/invariants   invariant archive
  GET /api/history      recent points (?limit=N)
  GET /api/events       recent events (?limit=N)
  GET /metrics          Prometheus metrics
  GET /healthz          liveness`,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			record, _ := cmd.Flags().GetBool("record")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			dbPath := ""
			if record {
				dbPath = cfg.Store.Path
			}

			ctx, cancel := shutdown.Context(cmd.Context())
			defer cancel()

			sess, err := openSession(ctx, cmd, cfg, sessionOptions{DBPath: dbPath, Source: "sim"})
			if err != nil {
				return err
			}
			defer sess.close()

			srv := server.NewServer(sess.loop.Publisher(), sess.logger)
			if err := runAlongside(ctx, cancel, sess, func(ctx context.Context) error {
				return srv.ListenAndServe(ctx, addr)
			}); err != nil {
				return fmt.Errorf("serve failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default from config server.addr)")
	cmd.Flags().Bool("record", false, "Record the run to the configured database")

	return cmd
}

// runAlongside runs the paced tick loop and fn concurrently. When either
// returns, the other is cancelled. Cancellation is not an error. The run is
// finished before returning.
func runAlongside(ctx context.Context, cancel context.CancelFunc, sess *session, fn func(context.Context) error) error {
	loopErr := make(chan error, 1)
	go func() {
		loopErr <- sess.loop.Run(ctx)
		cancel()
	}()

	err := fn(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	cancel()
	if lerr := <-loopErr; err == nil {
		err = lerr
	}

	if ferr := sess.finish(context.WithoutCancel(ctx)); err == nil {
		err = ferr
	}
	return err
}
