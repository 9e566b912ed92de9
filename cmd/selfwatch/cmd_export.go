package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nvandessel/selfwatch/internal/export"
	"github.com/nvandessel/selfwatch/internal/store"
	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a recorded run to Arrow or a compressed archive",
		Long: `Export a recorded run.

Examples:
  selfwatch export --run <id> --arrow samples.arrow
  selfwatch export --run <id> --archive run.swa
  selfwatch export verify run.swa`,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, _ := cmd.Flags().GetString("run")
			arrowPath, _ := cmd.Flags().GetString("arrow")
			archivePath, _ := cmd.Flags().GetString("archive")

			if runID == "" {
				return fmt.Errorf("--run is required")
			}
			if arrowPath == "" && archivePath == "" {
				return fmt.Errorf("at least one of --arrow or --archive is required")
			}

			rec, err := openRecorder(cmd)
			if err != nil {
				return err
			}
			defer rec.Close()

			if err := export.WriteRun(cmd.Context(), rec, runID, export.Paths{Arrow: arrowPath, Archive: archivePath}); err != nil {
				if errors.Is(err, store.ErrRunNotFound) {
					return fmt.Errorf("run %s not found", runID)
				}
				return err
			}

			out := cmd.OutOrStdout()
			if arrowPath != "" {
				fmt.Fprintf(out, "Wrote %s\n", arrowPath)
			}
			if archivePath != "" {
				fmt.Fprintf(out, "Wrote %s\n", archivePath)
			}
			return nil
		},
	}

	cmd.Flags().String("db", "", "Database path (default from config store.path)")
	cmd.Flags().String("run", "", "Run ID to export")
	cmd.Flags().String("arrow", "", "Arrow IPC output file")
	cmd.Flags().String("archive", "", "Compressed archive output file")

	cmd.AddCommand(newExportVerifyCmd())

	return cmd
}

func newExportVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify ARCHIVE",
		Short: "Verify an archive's checksum and contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			if err := export.VerifyArchive(args[0]); err != nil {
				return fmt.Errorf("archive %s is invalid: %w", args[0], err)
			}
			header, err := export.ReadArchiveHeader(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(header)
			}
			fmt.Fprintf(out, "Archive OK: run %s, %d samples, %d events (format v%d)\n",
				header.RunID, header.Samples, header.Events, header.Version)
			return nil
		},
	}
}
