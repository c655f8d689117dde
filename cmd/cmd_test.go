package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/smazurov/sdinode/internal/devices"
	"github.com/smazurov/sdinode/internal/player"
	"github.com/spf13/cobra"
)

func fixedSettings(s Settings) SettingsFunc {
	return func() Settings { return s }
}

func run(t *testing.T, c *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetErr(&out)
	c.SetArgs(args)
	err := c.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDevicesCmd_JSON(t *testing.T) {
	c := CreateDevicesCmd(fixedSettings(Settings{SimulatedDevices: 2}))
	out, err := run(t, c, "--json")
	if err != nil {
		t.Fatal(err)
	}

	var list []devices.Info
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(list) != 2 || list[0].URL != "sdi://1" || list[1].URL != "sdi://2" {
		t.Errorf("devices = %+v", list)
	}
}

func TestDevicesCmd_Table(t *testing.T) {
	tests := []struct {
		count int
		want  string
	}{
		{0, "No devices found"},
		{1, "sdi://1"},
	}
	for _, tt := range tests {
		out, err := run(t, CreateDevicesCmd(fixedSettings(Settings{SimulatedDevices: tt.count})))
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out, tt.want) {
			t.Errorf("count %d: output %q does not contain %q", tt.count, out, tt.want)
		}
	}
}

func TestDevicesCmd_BadMode(t *testing.T) {
	c := CreateDevicesCmd(fixedSettings(Settings{SimulatedDevices: 1, DisplayMode: "HD9000"}))
	if _, err := run(t, c); err == nil {
		t.Error("expected an unknown display mode error")
	}
}

func TestModesCmd(t *testing.T) {
	out, err := run(t, CreateModesCmd())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"HD1080p2398", "1920x1080", "PAL"} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q", want)
		}
	}
}

func TestPlayCmd(t *testing.T) {
	settings := fixedSettings(Settings{SimulatedDevices: 1, DisplayMode: "PAL", TickRate: 60, QueueSize: 4})

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"playing", []string{"sdi://1", "--duration", "200ms"}, []string{"state=playing", "url=sdi://1", "mode=PAL 720x576"}},
		{"paused", []string{"sdi://1", "--duration", "100ms", "--paused"}, []string{"state=paused", "samples=0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, CreatePlayCmd(settings), tt.args...)
			if err != nil {
				t.Fatal(err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output %q does not contain %q", out, want)
				}
			}
		})
	}
}

func TestPlayCmd_Errors(t *testing.T) {
	settings := fixedSettings(Settings{SimulatedDevices: 1, DisplayMode: "PAL"})

	tests := []struct {
		url  string
		want error
	}{
		{"sdi://4", player.ErrNotFound},
		{"sdi://one", player.ErrInvalidURL},
	}
	for _, tt := range tests {
		_, err := run(t, CreatePlayCmd(settings), tt.url, "--duration", "1s")
		if !errors.Is(err, tt.want) {
			t.Errorf("play %s = %v, want %v", tt.url, err, tt.want)
		}
	}
}
