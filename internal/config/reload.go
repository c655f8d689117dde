package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Reloadable is the subset of the configuration file applied without a
// restart.
type Reloadable struct {
	Capture struct {
		DisplayMode string `toml:"display_mode"`
	} `toml:"capture"`
	Logging map[string]any `toml:"logging"`
}

// ModuleLevels returns the per-module entries of the [logging] table.
func (r Reloadable) ModuleLevels() map[string]string {
	levels := make(map[string]string)
	for k, v := range r.Logging {
		s, ok := v.(string)
		if !ok || k == "level" || k == "format" {
			continue
		}
		levels[k] = s
	}
	return levels
}

// LoadReloadable parses path for use with a Watcher.
func LoadReloadable(path string) (Reloadable, error) {
	var r Reloadable
	data, err := os.ReadFile(path)
	if err != nil {
		return r, err
	}
	if err := toml.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("parse %s: %w", path, err)
	}
	return r, nil
}
