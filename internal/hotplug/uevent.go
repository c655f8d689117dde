// Package hotplug reports kernel device add and remove events read from the
// netlink uevent socket, without cgo or udev.
package hotplug

import (
	"bytes"
	"strings"
)

// Kernel actions a capture registry cares about.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
	ActionChange = "change"
	ActionBind   = "bind"
	ActionUnbind = "unbind"
)

// Subsystems that carry capture cards.
const (
	SubsystemVideo4Linux = "video4linux"
	SubsystemPCI         = "pci"
	SubsystemUSB         = "usb"
)

// CaptureSubsystems are the subsystems a capture card may appear on.
var CaptureSubsystems = []string{SubsystemVideo4Linux, SubsystemPCI, SubsystemUSB}

// Event is one kernel uevent.
type Event struct {
	Action    string
	KObj      string
	Subsystem string
	DevName   string
	Env       map[string]string
}

// Topology reports whether the event adds or removes hardware, as opposed
// to a property change.
func (e Event) Topology() bool {
	switch e.Action {
	case ActionAdd, ActionRemove, ActionBind, ActionUnbind:
		return true
	}
	return false
}

var libudevMagic = []byte("libudev")

// Parse decodes "ACTION@KOBJ\0KEY=VALUE\0...". Messages rebroadcast by udevd
// carry a binary header that is skipped. ok is false for anything that is
// not a uevent.
func Parse(data []byte) (ev Event, ok bool) {
	if bytes.HasPrefix(data, libudevMagic) {
		data = skipUdevHeader(data)
	}

	fields := bytes.Split(data, []byte{0})
	action, kobj, found := strings.Cut(string(fields[0]), "@")
	if !found || action == "" {
		return Event{}, false
	}

	ev = Event{Action: action, KObj: kobj, Env: make(map[string]string, len(fields))}
	for _, f := range fields[1:] {
		key, value, found := strings.Cut(string(f), "=")
		if !found || key == "" {
			continue
		}
		ev.Env[key] = value
		switch key {
		case "SUBSYSTEM":
			ev.Subsystem = value
		case "DEVNAME":
			ev.DevName = value
		}
	}
	return ev, true
}

func skipUdevHeader(data []byte) []byte {
	for i := 0; i < len(data)-1; i++ {
		if data[i] != 0 {
			continue
		}
		rest := data[i+1:]
		head, _, _ := bytes.Cut(rest, []byte{0})
		if at := bytes.IndexByte(head, '@'); at > 0 && at < 20 {
			return rest
		}
	}
	return nil
}

// Filter passes events whose subsystem is listed. An empty filter passes
// everything.
type Filter map[string]struct{}

// NewFilter builds a filter for subsystems.
func NewFilter(subsystems ...string) Filter {
	f := make(Filter, len(subsystems))
	for _, s := range subsystems {
		f[s] = struct{}{}
	}
	return f
}

// Match reports whether ev passes the filter.
func (f Filter) Match(ev Event) bool {
	if len(f) == 0 {
		return true
	}
	_, ok := f[ev.Subsystem]
	return ok
}
