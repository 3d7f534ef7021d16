package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/nixlim/pianod/internal/config"
	"github.com/nixlim/pianod/internal/registry"
)

func newInstrumentsCmd(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "instruments",
		Short: "Print the instrument catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global.configPath)
			if err != nil {
				return err
			}
			printCatalog(cmd.OutOrStdout(), cfg)
			return nil
		},
	}
}

func newDevicesCmd(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List MIDI clients known to the sequencer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global.configPath)
			if err != nil {
				return err
			}
			reg := registry.New(cfg.RegistrySettings())
			if !reg.Enabled() {
				return fmt.Errorf("%w: %s not found on PATH", registry.ErrRegistryUnavailable, cfg.MIDI.Tool)
			}
			return printDevices(cmd, reg)
		},
	}
}

var headerCell = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var bodyCell = lipgloss.NewStyle().Padding(0, 1)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCell
			}
			return bodyCell
		})
}

func printCatalog(w io.Writer, cfg config.Config) {
	t := newTable("#", "Instrument", "Program", "Core", "Default")
	for i, inst := range cfg.Instruments {
		core, def := "", ""
		if inst.Core {
			core = "yes"
		}
		if i == cfg.DefaultInstrument {
			def = "*"
		}
		t.Row(strconv.Itoa(i), inst.Name, strconv.Itoa(inst.Program), core, def)
	}
	fmt.Fprintln(w, t.Render())
}

func printDevices(cmd *cobra.Command, reg *registry.Registry) error {
	ctx := cmd.Context()

	engineID, engineUp, err := reg.FindEngineEndpoint(ctx)
	if err != nil {
		return err
	}
	clients, err := reg.ListClients(ctx)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if engineUp {
		fmt.Fprintf(w, "engine client: %s\n", engineID)
	} else {
		fmt.Fprintln(w, "engine client: not registered")
	}
	if len(clients) == 0 {
		fmt.Fprintln(w, "no controllers found")
		return nil
	}

	t := newTable("Client", "Name")
	for _, c := range clients {
		t.Row(c.ID, c.Name)
	}
	fmt.Fprintln(w, t.Render())
	return nil
}

