package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nixlim/pianod/internal/config"
)

func newConfigCmd(global *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			backup, err := config.WriteDefault(global.configPath, force)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if backup != "" {
				fmt.Fprintf(w, "Backup saved to %s\n", backup)
			}
			fmt.Fprintf(w, "Wrote %s\n", global.configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file, keeping a .bak copy")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(global.configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", global.configPath)
			return nil
		},
	}

	cmd.AddCommand(initCmd, checkCmd)
	return cmd
}
