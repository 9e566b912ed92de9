package main

import (
	"encoding/json"
	"fmt"

	"github.com/nvandessel/selfwatch/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect selfwatch configuration",
		Long: `View and check selfwatch configuration.

Configuration is read from ~/.selfwatch/config.yaml (or --config), then
SELFWATCH_* environment variables.

Examples:
  selfwatch config list                   # Show effective settings
  selfwatch config validate               # Check the effective settings
  selfwatch config validate other.yaml    # Check a specific file`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigValidateCmd(),
	)

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			path, _ := cmd.Flags().GetString("config")

			cfg, err := config.LoadPath(path)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(cfg)
			}

			fmt.Fprintln(out, "Engine:")
			fmt.Fprintf(out, "  engine.tick_rate:       %d\n", cfg.Engine.TickRate)
			fmt.Fprintf(out, "  engine.cycle_length:    %d\n", cfg.Engine.CycleLength)
			fmt.Fprintf(out, "  engine.history_size:    %d\n", cfg.Engine.HistorySize)
			fmt.Fprintf(out, "  engine.grid_size:       %d\n", cfg.Engine.GridSize)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Simulation:")
			fmt.Fprintf(out, "  simulation.entities:    %d\n", cfg.Simulation.Entities)
			fmt.Fprintf(out, "  simulation.width:       %g\n", cfg.Simulation.Width)
			fmt.Fprintf(out, "  simulation.height:      %g\n", cfg.Simulation.Height)
			fmt.Fprintf(out, "  simulation.seed:        %s\n", seedOrRandom(cfg.Simulation.Seed))
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Logging:")
			fmt.Fprintf(out, "  logging.level:          %s\n", valueOrDefault(cfg.Logging.Level, "info"))
			fmt.Fprintf(out, "  logging.dir:            %s\n", cfg.Logging.Dir)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Store:")
			fmt.Fprintf(out, "  store.path:             %s\n", cfg.Store.Path)
			fmt.Fprintf(out, "  store.record_every:     %d\n", cfg.Store.RecordEvery)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Server:")
			fmt.Fprintf(out, "  server.addr:            %s\n", cfg.Server.Addr)
			return nil
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [FILE]",
		Short: "Validate configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			path, _ := cmd.Flags().GetString("config")
			if len(args) == 1 {
				path = args[0]
			}

			cfg, err := config.LoadPath(path)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			verr := cfg.Validate()

			out := cmd.OutOrStdout()
			if jsonOut {
				result := map[string]any{"valid": verr == nil}
				if verr != nil {
					result["error"] = verr.Error()
				}
				if err := json.NewEncoder(out).Encode(result); err != nil {
					return err
				}
			} else if verr == nil {
				fmt.Fprintln(out, "Configuration is valid.")
			}
			if verr != nil {
				return fmt.Errorf("invalid config: %w", verr)
			}
			return nil
		},
	}
}

func valueOrDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func seedOrRandom(seed uint64) string {
	if seed == 0 {
		return "(random)"
	}
	return fmt.Sprintf("%d", seed)
}
