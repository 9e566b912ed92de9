package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/nvandessel/selfwatch/internal/store"
	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded runs",
	}
	cmd.PersistentFlags().String("db", "", "Database path (default from config store.path)")

	cmd.AddCommand(
		newRunsListCmd(),
		newRunsShowCmd(),
	)
	return cmd
}

// openRecorder opens --db or the configured database. A missing file is an
// error rather than a fresh empty database.
func openRecorder(cmd *cobra.Command) (store.Recorder, error) {
	dbPath, _ := cmd.Flags().GetString("db")
	if dbPath == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return nil, err
		}
		dbPath = cfg.Store.Path
	}
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("no database at %s (record a run first with 'selfwatch run')", dbPath)
	}
	rec, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return rec, nil
}

func newRunsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			rec, err := openRecorder(cmd)
			if err != nil {
				return err
			}
			defer rec.Close()

			runs, err := rec.Runs(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]any{"runs": runs, "count": len(runs)})
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTARTED\tTICKS\tENTITIES\tSOURCE")
			for _, r := range runs {
				ticks := "running"
				if r.EndedAt != nil {
					ticks = fmt.Sprintf("%d", r.Ticks)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
					r.ID, r.StartedAt.Local().Format(time.DateTime), ticks, r.Entities, r.Source)
			}
			return tw.Flush()
		},
	}
}

func newRunsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show a recorded run and its latest samples",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("samples")

			rec, err := openRecorder(cmd)
			if err != nil {
				return err
			}
			defer rec.Close()

			ctx := cmd.Context()
			run, err := rec.GetRun(ctx, args[0])
			if errors.Is(err, store.ErrRunNotFound) {
				return fmt.Errorf("run %s not found", args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to load run: %w", err)
			}
			samples, err := rec.Samples(ctx, run.ID, limit)
			if err != nil {
				return fmt.Errorf("failed to load samples: %w", err)
			}
			events, err := rec.Events(ctx, run.ID, 0)
			if err != nil {
				return fmt.Errorf("failed to load events: %w", err)
			}

			counts := make(map[string]int)
			for _, ev := range events {
				counts[ev.Kind]++
			}
			for i := range samples {
				samples[i].Payload = nil
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]any{
					"run":     run,
					"samples": samples,
					"events":  counts,
				})
			}

			fmt.Fprintf(out, "Run %s\n", run.ID)
			fmt.Fprintf(out, "  source:    %s\n", run.Source)
			fmt.Fprintf(out, "  started:   %s\n", run.StartedAt.Local().Format(time.DateTime))
			if run.EndedAt != nil {
				fmt.Fprintf(out, "  ended:     %s after %d ticks\n", run.EndedAt.Local().Format(time.DateTime), run.Ticks)
			}
			fmt.Fprintf(out, "  entities:  %d at %d Hz, seed %d\n", run.Entities, run.TickRate, run.Seed)
			fmt.Fprintf(out, "  events:    %d\n", len(events))
			for kind, n := range counts {
				fmt.Fprintf(out, "    %-22s %d\n", kind+":", n)
			}

			if len(samples) > 0 {
				fmt.Fprintln(out)
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "TICK\tENTROPY\tMETA\tCOMPLEXITY\tFAMILIARITY\tLOOP\tINVARIANTS")
				for _, s := range samples {
					fmt.Fprintf(tw, "%d\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%d\n",
						s.Tick, s.Entropy, s.MetaEntropy, s.Complexity, s.Familiarity, s.StrangeLoop, s.Invariants)
				}
				return tw.Flush()
			}
			return nil
		},
	}

	cmd.Flags().Int("samples", 10, "Number of latest samples to show (0 = all)")

	return cmd
}
