package main

import (
	"fmt"
	"path/filepath"

	"github.com/nvandessel/selfwatch/internal/logging"
	"github.com/nvandessel/selfwatch/internal/mcp"
	"github.com/nvandessel/selfwatch/internal/pathutil"
	"github.com/nvandessel/selfwatch/internal/shutdown"
	"github.com/spf13/cobra"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Run the engine and answer MCP tool calls over stdio",
		Long: `Run the engine against the reference simulation and expose it to MCP
clients over stdin/stdout. Logs go to stderr.

Tools: selfwatch_snapshot, selfwatch_cascade, selfwatch_invariants,
selfwatch_history and, when recording, selfwatch_runs and selfwatch_export.
Exports are written under <store dir>/exports or any --export-dir.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			record, _ := cmd.Flags().GetBool("record")
			exportDirs, _ := cmd.Flags().GetStringSlice("export-dir")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			dbPath := ""
			if record {
				dbPath = cfg.Store.Path
			}

			ctx, cancel := shutdown.Context(cmd.Context())
			defer cancel()

			sess, err := openSession(ctx, cmd, cfg, sessionOptions{DBPath: dbPath, Source: "mcp"})
			if err != nil {
				return err
			}
			defer sess.close()

			srv, err := mcp.NewServer(&mcp.Config{
				Name:       "selfwatch",
				Version:    version,
				Publisher:  sess.loop.Publisher(),
				Recorder:   sess.recorder,
				AuditDir:   cfg.Logging.Dir,
				ExportDirs: pathutil.ExportDirs(filepath.Dir(cfg.Store.Path), exportDirs...),
				Logger:     logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr()),
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			defer srv.Close()

			if err := runAlongside(ctx, cancel, sess, srv.Run); err != nil {
				return fmt.Errorf("MCP server error: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().Bool("record", false, "Record the run to the configured database")
	cmd.Flags().StringSlice("export-dir", nil, "Additional directory selfwatch_export may write to (repeatable)")

	return cmd
}
