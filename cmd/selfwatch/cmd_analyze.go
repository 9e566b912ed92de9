package main

import (
	"fmt"
	"io"
	"os"

	"github.com/nvandessel/selfwatch/internal/engine"
	"github.com/nvandessel/selfwatch/internal/export"
	"github.com/nvandessel/selfwatch/internal/logging"
	"github.com/nvandessel/selfwatch/internal/store"
	"github.com/spf13/cobra"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Analyze a recorded entropy series",
		Long: `Feed an entropy series (one value in [0,1] per line, "-" for stdin) through
the engine tick by tick and report the final snapshot. Spatial analyses that
need entity positions are skipped. CSV input uses the last column.

Examples:
  selfwatch analyze entropy.txt
  selfwatch analyze --db ~/.selfwatch/selfwatch.db entropy.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			dbPath, _ := cmd.Flags().GetString("db")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			values, err := readSeriesArg(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			if len(values) == 0 {
				return fmt.Errorf("%s contains no samples", args[0])
			}

			logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
			events := logging.NewEventLogger(cfg.Logging.Dir, cfg.Logging.Level)
			defer events.Close()
			eng := engine.New(engineConfig(cfg), engine.WithLogger(logger), engine.WithEvents(events))

			ctx := cmd.Context()
			var (
				rec store.Recorder
				run store.Run
			)
			if dbPath != "" {
				rec, err = store.Open(dbPath)
				if err != nil {
					return fmt.Errorf("failed to open recorder: %w", err)
				}
				defer rec.Close()
				run, err = rec.BeginRun(ctx, store.Run{TickRate: cfg.Engine.TickRate, Source: args[0]})
				if err != nil {
					return fmt.Errorf("failed to begin run: %w", err)
				}
			}

			counts := make(map[string]int)
			for _, h := range values {
				eng.ObserveEntropy(h)
				snap := eng.Snapshot()
				for _, ev := range snap.Events {
					counts[ev.Kind]++
				}
				if rec == nil {
					continue
				}
				if err := rec.RecordEvents(ctx, run.ID, snap.Events); err != nil {
					return fmt.Errorf("failed to record events: %w", err)
				}
				if snap.Tick%int64(cfg.Store.RecordEvery) == 0 {
					if err := rec.RecordSnapshot(ctx, run.ID, snap); err != nil {
						return fmt.Errorf("failed to record snapshot: %w", err)
					}
				}
			}
			if rec != nil {
				if err := rec.EndRun(ctx, run.ID, eng.Tick()); err != nil {
					return fmt.Errorf("failed to end run: %w", err)
				}
			}

			snap := eng.Snapshot()
			out := cmd.OutOrStdout()
			if jsonOut {
				return printRunSummary(out, true, run, snap)
			}
			fmt.Fprintf(out, "Analyzed %d samples from %s\n", len(values), args[0])
			printSnapshot(out, snap)
			for _, kind := range engine.EventKinds {
				if counts[kind] > 0 {
					fmt.Fprintf(out, "  %-22s %d\n", kind+":", counts[kind])
				}
			}
			return nil
		},
	}

	cmd.Flags().String("db", "", "Record the analysis as a run in this database")

	return cmd
}

func readSeriesArg(stdin io.Reader, name string) ([]float64, error) {
	if name == "-" {
		values, err := export.ReadSeries(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read series from stdin: %w", err)
		}
		return values, nil
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open series: %w", err)
	}
	defer f.Close()

	values, err := export.ReadSeries(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read series %s: %w", name, err)
	}
	return values, nil
}
