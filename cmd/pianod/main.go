package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nixlim/pianod/internal/config"
)

func main() {
	root := newRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "pianod: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	debug      bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "pianod",
		Short:         "Instrument appliance controller: engine supervision, MIDI hotplug and panel buttons",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", config.DefaultPath(), "path to config.toml")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "human-readable debug logging")

	root.AddCommand(newRunCmd(flags))
	root.AddCommand(newInstrumentsCmd(flags))
	root.AddCommand(newDevicesCmd(flags))
	root.AddCommand(newConfigCmd(flags))

	return root
}

// loadConfig reads the config and prints its warnings to stderr.
func loadConfig(path string) (config.Config, error) {
	result, err := config.LoadFrom(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("config error: %w", err)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "pianod: config warning: %s\n", w)
	}
	return result.Config, nil
}
