package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/nvandessel/selfwatch/internal/engine"
	"github.com/nvandessel/selfwatch/internal/export"
	"github.com/nvandessel/selfwatch/internal/shutdown"
	"github.com/nvandessel/selfwatch/internal/store"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the engine against the reference simulation",
		Long: `Run the analytics engine against the reference particle simulation.

With --ticks the run is headless and as fast as possible; without it the
run is paced at the configured tick rate until interrupted. Snapshots are
recorded to the database every store.record_every ticks.

Examples:
  selfwatch run --ticks 3600                      # one simulated minute, headless
  selfwatch run --ticks 3600 --arrow run.arrow    # also export samples as Arrow
  selfwatch run --no-record                       # paced, nothing written`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			ticks, _ := cmd.Flags().GetInt64("ticks")
			dbPath, _ := cmd.Flags().GetString("db")
			noRecord, _ := cmd.Flags().GetBool("no-record")
			seed, _ := cmd.Flags().GetUint64("seed")
			arrowPath, _ := cmd.Flags().GetString("arrow")
			archivePath, _ := cmd.Flags().GetString("archive")

			if ticks < 0 {
				return fmt.Errorf("--ticks must not be negative, got %d", ticks)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if dbPath == "" {
				dbPath = cfg.Store.Path
			}
			if noRecord {
				if arrowPath != "" || archivePath != "" {
					return fmt.Errorf("--arrow and --archive need a recorded run; drop --no-record")
				}
				dbPath = ""
			}

			ctx, cancel := shutdown.Context(cmd.Context())
			defer cancel()

			sess, err := openSession(ctx, cmd, cfg, sessionOptions{DBPath: dbPath, Seed: seed, Source: "sim"})
			if err != nil {
				return err
			}
			defer sess.close()

			if ticks > 0 {
				err = sess.loop.RunTicks(ctx, ticks)
			} else {
				err = sess.loop.Run(ctx)
			}
			// An interrupted headless run still keeps what it recorded.
			if err != nil && ctx.Err() == nil {
				return fmt.Errorf("run failed: %w", err)
			}

			// ctx may be cancelled by now; finishing must not be.
			done := context.WithoutCancel(ctx)
			if err := sess.finish(done); err != nil {
				return err
			}
			if sess.recorder != nil {
				if err := export.WriteRun(done, sess.recorder, sess.run.ID, export.Paths{Arrow: arrowPath, Archive: archivePath}); err != nil {
					return err
				}
			}

			snap, _ := sess.loop.Publisher().Latest()
			return printRunSummary(cmd.OutOrStdout(), jsonOut, sess.run, snap)
		},
	}

	cmd.Flags().Int64("ticks", 0, "Number of ticks to run headless (0 = paced until interrupted)")
	cmd.Flags().String("db", "", "Database path (default from config store.path)")
	cmd.Flags().Bool("no-record", false, "Do not record the run")
	cmd.Flags().Uint64("seed", 0, "Simulation seed (default from config, 0 = random)")
	cmd.Flags().String("arrow", "", "Export recorded samples to an Arrow IPC file")
	cmd.Flags().String("archive", "", "Export the recorded run to a compressed archive")

	return cmd
}

// exportRun writes the recorded run to the requested files. Empty paths are skipped.
func printRunSummary(w io.Writer, jsonOut bool, run store.Run, snap engine.Snapshot) error {
	if jsonOut {
		return json.NewEncoder(w).Encode(map[string]any{
			"run_id":   run.ID,
			"snapshot": snap,
		})
	}

	if run.ID != "" {
		fmt.Fprintf(w, "Run %s\n", run.ID)
	}
	printSnapshot(w, snap)
	return nil
}

func printSnapshot(w io.Writer, snap engine.Snapshot) {
	fmt.Fprintf(w, "  ticks:          %d (%d cycles)\n", snap.Tick, snap.Cycles)
	fmt.Fprintf(w, "  entropy:        %.4f (trend %+.5f, range %.3f..%.3f)\n",
		snap.Entropy.Entropy, snap.Entropy.Trend, snap.Entropy.Min, snap.Entropy.Max)
	fmt.Fprintf(w, "  meta-entropy:   %.4f\n", snap.Meta.MetaEntropy)
	fmt.Fprintf(w, "  familiarity:    %.4f\n", snap.Signature.Familiarity)
	fmt.Fprintf(w, "  complexity:     %.4f (meta %.4f)\n", snap.Complexity.Complexity, snap.Complexity.MetaComplexity)
	fmt.Fprintf(w, "  invariants:     %d (%d strong)\n", snap.Invariants.Count, snap.Invariants.Strong)
	fmt.Fprintf(w, "  strange loop:   %.4f\n", snap.Cascade.StrangeLoop)
	fmt.Fprintf(w, "  self-model:     %s (confidence %.3f)\n", snap.SelfModel.Mode, snap.SelfModel.Confidence)
	fmt.Fprintf(w, "  resonance:      %.4f\n", snap.Resonance.Resonance)
	fmt.Fprintf(w, "  perturbations:  %d\n", snap.Perturbation.Perturbations)
	fmt.Fprintf(w, "  feedback:       %.4f (%d closures, %d releases)\n",
		snap.Feedback.Intensity, snap.Feedback.Closures, snap.Feedback.Releases)
	fmt.Fprintf(w, "  self-awareness: %.4f (topology coherence %.3f)\n", snap.Topology.SelfAwareness, snap.Topology.Coherence)
	fmt.Fprintf(w, "  attractor:      %.4f (spread %.4f)\n", snap.PhaseSpace.Strength, snap.PhaseSpace.Spread)
	fmt.Fprintf(w, "  convergences:   %d\n", snap.Convergence.Count)
}
