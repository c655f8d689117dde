package devices

import (
	"fmt"
	"slices"
	"sync"

	"github.com/smazurov/sdinode/internal/capture"
)

// SelectorPrefix starts every device selector.
const SelectorPrefix = "sdi://"

// Selector returns the 1-based selector that opens device id.
func Selector(id uint8) string {
	return fmt.Sprintf("%s%d", SelectorPrefix, int(id)+1)
}

// Map holds capture devices keyed by id. Iteration is always in ascending
// id order. Readers may run concurrently with a single writer.
type Map struct {
	mu      sync.RWMutex
	devices map[uint8]*capture.Device
	keys    []uint8
}

// NewMap creates an empty map.
func NewMap() *Map {
	return &Map{devices: make(map[uint8]*capture.Device)}
}

// Get returns the device for id.
func (m *Map) Get(id uint8) (*capture.Device, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.devices[id]
	return d, ok
}

// Len returns the number of devices.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys)
}

// IDs returns the ids in ascending order.
func (m *Map) IDs() []uint8 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.keys)
}

// Range calls fn for each device in id order until fn returns false. The map
// must not be modified from fn.
func (m *Map) Range(fn func(id uint8, d *capture.Device) bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.keys {
		if !fn(id, m.devices[id]) {
			return
		}
	}
}

// Insert stores d under its id. An existing entry is replaced and returned.
func (m *Map) Insert(d *capture.Device) (replaced *capture.Device) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := d.ID()
	replaced = m.devices[id]
	m.devices[id] = d
	if replaced == nil {
		m.keys = append(m.keys, id)
		slices.Sort(m.keys)
	}
	return replaced
}

// Remove deletes and returns the device for id.
func (m *Map) Remove(id uint8) (*capture.Device, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.devices[id]
	if !ok {
		return nil, false
	}
	delete(m.devices, id)
	if i, found := slices.BinarySearch(m.keys, id); found {
		m.keys = slices.Delete(m.keys, i, i+1)
	}
	return d, true
}

// Clear empties the map and returns the removed devices in id order.
func (m *Map) Clear() []*capture.Device {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*capture.Device, 0, len(m.keys))
	for _, id := range m.keys {
		out = append(out, m.devices[id])
	}
	m.devices = make(map[uint8]*capture.Device)
	m.keys = nil
	return out
}

// Info describes one device for listings.
type Info struct {
	ID           uint8   `json:"id" example:"0" doc:"Device identifier"`
	URL          string  `json:"url" example:"sdi://1" doc:"Selector that opens this device"`
	Name         string  `json:"name" example:"Simulated SDI 1" doc:"Device display name"`
	PersistentID string  `json:"persistent_id" example:"testpattern-0" doc:"Hardware identifier"`
	Capturing    bool    `json:"capturing" doc:"Whether the device is streaming"`
	Mode         string  `json:"mode,omitempty" example:"HD1080p2398" doc:"Active display mode"`
	Width        int     `json:"width,omitempty" example:"1920" doc:"Frame width in pixels"`
	Height       int     `json:"height,omitempty" example:"1080" doc:"Frame height in pixels"`
	FPS          float64 `json:"fps,omitempty" example:"23.976" doc:"Frame rate"`
	HasSignal    bool    `json:"has_signal" doc:"Whether the last frame carried an input signal"`
	Frames       uint64  `json:"frames" doc:"Frames published"`
	Dropped      uint64  `json:"dropped" doc:"Frames overwritten before they were read"`
	NoSignal     uint64  `json:"no_signal" doc:"Frames delivered without an input signal"`
}

// Snapshot describes every device in id order.
func (m *Map) Snapshot() []Info {
	var out []Info
	m.Range(func(id uint8, d *capture.Device) bool {
		out = append(out, Describe(d))
		return true
	})
	return out
}

// Describe builds the Info for one device.
func Describe(d *capture.Device) Info {
	st := d.Stats()
	info := Info{
		ID:           d.ID(),
		URL:          Selector(d.ID()),
		Name:         d.Name(),
		PersistentID: d.PersistentID(),
		Capturing:    d.IsCapturing(),
		HasSignal:    st.HasSignal,
		Frames:       st.Frames,
		Dropped:      st.Dropped,
		NoSignal:     st.NoSignal,
	}
	if info.Capturing {
		info.Mode = d.CurrentMode().Name
		info.Width, info.Height = d.CurrentSize()
		info.FPS = d.CurrentFPS()
	}
	return info
}
