//go:build rp2040 || rp2350

// Command porky is the MCU agent build: one Pin Driver (pindriver.MCUDriver),
// one Agent Core (package agent), and the USB vendor Transport Adapter
// (transport/usb's device side), wired in the single cooperative event loop
// the teacher's cmd/pico-hal-main uses — no select over a multiplexing bus
// here, just a tight poll loop, since there is exactly one transport and
// one driver to service rather than a published capability tree.
package main

import (
	"time"

	"gpioctl/agent"
	"gpioctl/internal/logx"
	"gpioctl/persistence"
	"gpioctl/pindriver"
	"gpioctl/transport/usb"
	"gpioctl/wire"
)

// serial identifies this board over USB (spec.md §4.7's USB discovery
// mechanism matches on VendorID/ProductID then reads this string back via
// GET_HARDWARE_DETAILS). A real build reads this from the rp2040's unique
// flash ID; board-ID plumbing is SDK territory out of scope here, so a
// fixed placeholder stands in, the same way appVersion does in cmd/agent.
const serial = "porky-0001"

// configPath names the side file persistence.Store reads/writes. It
// assumes board support mounts a littlefs-backed filesystem at "/flash"
// before main runs (ekv::Database's role in the original porky.rs); wiring
// that mount point is board-SDK territory, like driver_mcu.go's deferred
// register access.
const configPath = "/flash/.pigg_config"

func main() {
	time.Sleep(2 * time.Second) // let USB/clocks settle, as cmd/pico-hal-main does
	println("[porky] boot …")

	driver := pindriver.NewMCUDriver(serial, "porky", "0.0.0-dev")
	store := persistence.New(configPath)
	core := agent.NewCore(driver, store)

	wifi := newWifiState()

	hal := usb.NewHAL()
	ag, err := usb.NewAgent(hal, serial,
		driver.Describe,
		wifi.details,
		wifi.setSSID,
		wifi.reset,
	)
	if err != nil {
		println("[porky] usb agent init failed:", err.Error())
		return
	}

	// The USB vendor interface is the one and only transport on this
	// build, live for as long as the stack is attached, so Connect is
	// started once rather than re-dialed per accept like the TCP/QUIC
	// Listeners in cmd/agent.
	go core.Connect(ag)

	println("[porky] entering event loop …")
	for {
		driver.Poll()
		time.Sleep(time.Millisecond)
	}
}

// wifiState is the in-memory stand-in for the cyw43/network-join logic a
// real board-support package owns (out of scope here, same as fixedHAL's
// deferred ISR wiring in agent_usb.go): it answers GET_WIFI and accepts
// SET_SSID/RESET_SSID without actually joining a network.
type wifiState struct {
	ssid    string
	tcpAddr string
	joined  bool
}

func newWifiState() *wifiState { return &wifiState{} }

func (w *wifiState) details() (wire.WiFiDetails, error) {
	return wire.WiFiDetails{
		HasSsid: w.joined,
		Ssid:    w.ssid,
		HasTcp:  w.joined && w.tcpAddr != "",
		Tcp:     w.tcpAddr,
	}, nil
}

func (w *wifiState) setSSID(s wire.SsidSpec) error {
	w.ssid = s.Name
	w.joined = true
	logx.Infof("porky: wifi join requested for ssid %q (network join is board-SDK territory)", s.Name)
	return nil
}

func (w *wifiState) reset() error {
	w.ssid = ""
	w.tcpAddr = ""
	w.joined = false
	return nil
}
