// Package cmd holds the sdinode subcommands.
package cmd

import (
	"github.com/smazurov/sdinode/internal/hardware"
	"github.com/smazurov/sdinode/internal/hardware/testpattern"
	"github.com/smazurov/sdinode/internal/module"
)

// Settings are the root options the subcommands reuse.
type Settings struct {
	SimulatedDevices int
	DisplayMode      string
	TickRate         int
	QueueSize        int
}

// SettingsFunc returns the parsed root options. It is called from Run, after
// flags, environment and config file have been applied.
type SettingsFunc func() Settings

// newModule starts a module over the simulated driver in the configured
// display mode. The caller must Shutdown it.
func newModule(s Settings) (*module.Module, error) {
	mode := hardware.DefaultMode
	if s.DisplayMode != "" {
		parsed, err := hardware.ParseDisplayMode(s.DisplayMode)
		if err != nil {
			return nil, err
		}
		mode = parsed
	}

	m := module.New(testpattern.NewDiscovery(s.SimulatedDevices))
	m.SetDisplayMode(mode)
	return m, nil
}
