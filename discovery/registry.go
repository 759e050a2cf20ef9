package discovery

import (
	"sync"

	"gpioctl/wire"
)

// TransportKind names one way a discovered device can be reached.
type TransportKind int

const (
	TransportTCP TransportKind = iota
	TransportQUIC
	TransportUSB
)

// HardwareConnection is one reachable transport for a DiscoveredDevice
// (spec.md §4.7: "transports: map<name, HardwareConnection>").
type HardwareConnection struct {
	Kind TransportKind

	Addr string // TransportTCP

	NodeID   string // TransportQUIC
	RelayURL string

	USBSerial string // TransportUSB
}

// DiscoveredDevice is the common record both discovery mechanisms
// produce (spec.md §4.7).
type DiscoveredDevice struct {
	Serial     string
	Details    wire.HardwareDetails
	SSID       *wire.SsidSpec
	Transports map[string]HardwareConnection
}

// Method names which mechanism produced an Event.
type Method int

const (
	MethodMdns Method = iota
	MethodUSB
)

// Event is one discovery update: a device appearing, updating, or losing
// the transport its Method provides ("tcp" for mDNS, "usb" for USB).
type Event struct {
	Device  DiscoveredDevice
	Method  Method
	Removed bool
}

// Registry merges devices discovered by either mechanism by serial
// (spec.md §4.7 last paragraph; grounded on
// original_source/piggui/src/discovery.rs's HashMap<SerialNumber, ...>
// accumulation pattern): when the same serial is found by multiple
// mechanisms, their Transports maps are merged rather than replaced, and
// a disappearing mDNS announcement removes only the TCP entry, leaving
// the device listed if other transports remain.
type Registry struct {
	mu      sync.Mutex
	devices map[string]DiscoveredDevice
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{devices: map[string]DiscoveredDevice{}}
}

// Apply folds one Event into the registry and returns the resulting
// snapshot for that serial (or ok=false if the serial was removed
// entirely because no transports remained).
func (r *Registry) Apply(ev Event) (DiscoveredDevice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, exists := r.devices[ev.Device.Serial]
	if !exists {
		cur = DiscoveredDevice{Serial: ev.Device.Serial, Transports: map[string]HardwareConnection{}}
	}
	if cur.Details.Serial == "" {
		cur.Details = ev.Device.Details
	}
	if ev.Device.SSID != nil {
		cur.SSID = ev.Device.SSID
	}

	if ev.Removed {
		delete(cur.Transports, transportMapKey(ev.Method))
	} else {
		for k, v := range ev.Device.Transports {
			cur.Transports[k] = v
		}
	}

	if len(cur.Transports) == 0 {
		delete(r.devices, ev.Device.Serial)
		return DiscoveredDevice{}, false
	}
	r.devices[ev.Device.Serial] = cur
	return cur, true
}

func transportMapKey(m Method) string {
	switch m {
	case MethodMdns:
		return "tcp"
	case MethodUSB:
		return "usb"
	}
	return ""
}

// Snapshot returns every currently known device.
func (r *Registry) Snapshot() []DiscoveredDevice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]DiscoveredDevice, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	return out
}
