package discovery

import (
	"testing"

	"gpioctl/wire"
)

// TestRegistryMergesBySerial verifies that the same serial discovered by
// both mDNS and USB accumulates transports from both rather than one
// mechanism's Apply replacing the other's (spec.md §4.7 last paragraph).
func TestRegistryMergesBySerial(t *testing.T) {
	r := NewRegistry()

	r.Apply(Event{Method: MethodMdns, Device: DiscoveredDevice{
		Serial:     "abc",
		Details:    wire.HardwareDetails{Serial: "abc", Model: "pi4"},
		Transports: map[string]HardwareConnection{"tcp": {Kind: TransportTCP, Addr: "10.0.0.1:9999"}},
	}})

	dev, ok := r.Apply(Event{Method: MethodUSB, Device: DiscoveredDevice{
		Serial:     "abc",
		Details:    wire.HardwareDetails{Serial: "abc", Model: "pi4"},
		Transports: map[string]HardwareConnection{"usb": {Kind: TransportUSB, USBSerial: "abc"}},
	}})

	if !ok {
		t.Fatal("expected device to remain present")
	}
	if len(dev.Transports) != 2 {
		t.Fatalf("expected both transports merged, got %#v", dev.Transports)
	}
	if _, ok := dev.Transports["tcp"]; !ok {
		t.Fatal("missing tcp transport after USB merge")
	}
	if _, ok := dev.Transports["usb"]; !ok {
		t.Fatal("missing usb transport after USB merge")
	}
}

// TestRegistryRemoveMdnsKeepsUSBTransport verifies a disappearing mDNS
// announcement removes only the TCP transport, leaving the device listed
// while other transports remain (spec.md §4.7).
func TestRegistryRemoveMdnsKeepsUSBTransport(t *testing.T) {
	r := NewRegistry()
	r.Apply(Event{Method: MethodMdns, Device: DiscoveredDevice{
		Serial:     "abc",
		Transports: map[string]HardwareConnection{"tcp": {Kind: TransportTCP, Addr: "10.0.0.1:9999"}},
	}})
	r.Apply(Event{Method: MethodUSB, Device: DiscoveredDevice{
		Serial:     "abc",
		Transports: map[string]HardwareConnection{"usb": {Kind: TransportUSB, USBSerial: "abc"}},
	}})

	dev, ok := r.Apply(Event{Method: MethodMdns, Removed: true, Device: DiscoveredDevice{Serial: "abc"}})
	if !ok {
		t.Fatal("expected device to remain present after losing only the mDNS transport")
	}
	if _, hasTCP := dev.Transports["tcp"]; hasTCP {
		t.Fatal("tcp transport should have been removed")
	}
	if _, hasUSB := dev.Transports["usb"]; !hasUSB {
		t.Fatal("usb transport should have survived the mDNS removal")
	}
}

// TestRegistryRemoveLastTransportForgetsDevice verifies the device itself
// disappears once its transport map empties out.
func TestRegistryRemoveLastTransportForgetsDevice(t *testing.T) {
	r := NewRegistry()
	r.Apply(Event{Method: MethodUSB, Device: DiscoveredDevice{
		Serial:     "solo",
		Transports: map[string]HardwareConnection{"usb": {Kind: TransportUSB, USBSerial: "solo"}},
	}})

	_, ok := r.Apply(Event{Method: MethodUSB, Removed: true, Device: DiscoveredDevice{Serial: "solo"}})
	if ok {
		t.Fatal("expected the device to be forgotten once its only transport is removed")
	}

	found := false
	for _, d := range r.Snapshot() {
		if d.Serial == "solo" {
			found = true
		}
	}
	if found {
		t.Fatal("removed device should not appear in Snapshot")
	}
}
