package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/smazurov/sdinode/internal/hardware"
	"github.com/spf13/cobra"
)

// CreateDevicesCmd creates the devices command.
func CreateDevicesCmd(settings SettingsFunc) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List discovered SDI devices",
		Long:  `Enumerates capture hardware once and prints each device with the selector that opens it.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := newModule(settings())
			if err != nil {
				return err
			}
			if err := m.Startup(cmd.Context()); err != nil {
				return fmt.Errorf("discover devices: %w", err)
			}
			defer m.Shutdown()

			list := m.Devices().Snapshot()
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}
			if len(list) == 0 {
				fmt.Fprintln(out, "No devices found")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "URL\tNAME\tPERSISTENT ID")
			for _, d := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\n", d.URL, d.Name, d.PersistentID)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the device list as JSON")
	return cmd
}

// CreateModesCmd creates the modes command.
func CreateModesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "List display modes accepted by capture.display_mode",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSIZE\tFPS\tSCAN")
			for _, m := range hardware.DisplayModes() {
				fmt.Fprintf(w, "%s\t%dx%d\t%.3f\t%s\n", m.Name, m.Width, m.Height, m.FPS(), m.Scan)
			}
			_ = w.Flush()
		},
	}
}
