package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nvandessel/selfwatch/internal/config"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Write the default configuration to ~/.selfwatch/config.yaml (or --config).
An existing file is left alone unless --force is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			force, _ := cmd.Flags().GetBool("force")
			path, _ := cmd.Flags().GetString("config")
			if path == "" {
				path = config.DefaultPath()
			}
			if path == "" {
				return fmt.Errorf("cannot determine home directory; pass --config")
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			if err := config.Default().WriteFile(path); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]string{"status": "created", "path": path})
			}
			fmt.Fprintf(out, "Wrote default configuration to %s\n", path)
			return nil
		},
	}

	cmd.Flags().Bool("force", false, "Overwrite an existing configuration file")

	return cmd
}
