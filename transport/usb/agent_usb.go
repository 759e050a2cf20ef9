//go:build rp2040 || rp2350

// Device-side USB vendor interface for the porky build. The host side
// (controller_usb.go) talks the same VendorID/ProductID/command set
// through github.com/google/gousb; this side implements the matching
// device stack with github.com/ardnew/softusb (_examples/ardnew-softusb),
// a better-grounded fit for a no-OS USB device than tinygo-uartx, which
// only covers UART framing (see factories_rp2xxx.go) and has no USB
// surface at all.
//
// softusb's Stack dispatches standard requests itself and hands
// class/vendor SETUP packets to a per-interface ClassDriver
// (device/interface.go); vendorClassDriver below is that driver. The
// hardware side of the HAL (device/hal.DeviceHAL) has no TinyGo
// `machine` package binding on this target yet, so fixedHAL backs it
// with the same no-heap fixed-size queue idiom driver_mcu.go uses for
// GPIO edges; nothing in this package feeds those queues.
package usb

import (
	"context"
	"time"

	"github.com/ardnew/softusb/device"
	"github.com/ardnew/softusb/device/hal"
	"github.com/ardnew/softusb/pkg"

	"gpioctl/wire"
)

const (
	interruptEP      = InterruptInEndpoint
	interruptEPSize  = 64
	ep0MaxPacketSize = 64
)

// vendorClassDriver answers the CmdGet*/CmdSet* control requests
// controller_usb.go issues, and owns the interrupt-IN endpoint used to
// push outbound events (spec.md §4.4).
type vendorClassDriver struct {
	replies   func(cmd uint8) ([]byte, error)
	setBody   func(cmd uint8, body []byte) error
}

func (v *vendorClassDriver) Init(iface *device.Interface) error  { return nil }
func (v *vendorClassDriver) Close() error                        { return nil }
func (v *vendorClassDriver) SetAlternate(*device.Interface, uint8) error { return nil }

func (v *vendorClassDriver) HandleSetup(iface *device.Interface, setup *device.SetupPacket, data []byte) (bool, error) {
	if !setup.IsVendor() {
		return false, nil
	}
	cmd := uint8(setup.Request)
	if setup.IsDeviceToHost() {
		b, err := v.replies(cmd)
		if err != nil {
			return true, err
		}
		copy(data[:cap(data)], b)
		return true, nil
	}
	return true, v.setBody(cmd, data)
}

// Agent wraps the softusb device stack presenting the vendor interface
// (spec.md §4.4, §6: VendorID/ProductID, ReqVendor sub-commands).
type Agent struct {
	stack  *device.Stack
	dev    *device.Device
	ep     *device.Endpoint
	driver *vendorClassDriver

	in chan []byte
}

// NewAgent builds the descriptor set for serial, wires the vendor class
// driver to describe/respond, and starts the stack against hal.
func NewAgent(h hal.DeviceHAL, serial string, describe func() wire.HardwareDescription, wifi func() (wire.WiFiDetails, error), setSSID func(wire.SsidSpec) error, resetSSID func() error) (*Agent, error) {
	dev := device.NewDevice(&device.DeviceDescriptor{
		Length:         18,
		DescriptorType: 0x01,
		USBVersion:     0x0200,
		MaxPacketSize0: ep0MaxPacketSize,
		VendorID:       uint16(VendorID),
		ProductID:      uint16(ProductID),
		ManufacturerIndex: 1,
		ProductIndex:      2,
	})
	dev.SetStringFrom(1, make([]byte, 64), "pigg")
	dev.SetStringFrom(2, make([]byte, 64), "pigg-agent")
	serialIdx := uint8(3)
	dev.SetStringFrom(serialIdx, make([]byte, 64), serial)

	cfg := device.NewConfiguration(1)
	iface := device.NewInterface(&device.InterfaceDescriptor{
		Length:            9,
		DescriptorType:    0x04,
		InterfaceNumber:   0,
		NumEndpoints:      1,
		InterfaceClass:    0xff, // vendor-specific
	})
	ep := device.NewEndpoint(&device.EndpointDescriptor{
		Length:          7,
		DescriptorType:  0x05,
		EndpointAddress: interruptEP,
		Attributes:      0x03, // interrupt
		MaxPacketSize:   interruptEPSize,
		Interval:        1,
	})
	if err := iface.AddEndpoint(ep); err != nil {
		return nil, err
	}

	a := &Agent{in: make(chan []byte, 8)}
	a.driver = &vendorClassDriver{
		replies: func(cmd uint8) ([]byte, error) { return a.reply(cmd, describe, wifi) },
		setBody: func(cmd uint8, body []byte) error { return a.setBody(cmd, body, setSSID, resetSSID) },
	}
	if err := iface.SetClassDriver(a.driver); err != nil {
		return nil, err
	}
	if err := cfg.AddInterface(iface); err != nil {
		return nil, err
	}
	if err := dev.AddConfiguration(cfg); err != nil {
		return nil, err
	}

	a.dev = dev
	a.ep = ep
	a.stack = device.NewStack(dev, h)
	if err := a.stack.Start(context.Background()); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Agent) reply(cmd uint8, describe func() wire.HardwareDescription, wifi func() (wire.WiFiDetails, error)) ([]byte, error) {
	switch cmd {
	case CmdGetHardwareDescription:
		return describe().Encode(), nil
	case CmdGetHardwareDetails:
		return describe().Details.Encode(), nil
	case CmdGetWifi:
		w, err := wifi()
		if err != nil {
			return nil, err
		}
		return w.Encode(), nil
	}
	return nil, pkg.ErrInvalidRequest
}

func (a *Agent) setBody(cmd uint8, body []byte, setSSID func(wire.SsidSpec) error, resetSSID func() error) error {
	switch cmd {
	case CmdSetSSID:
		s, err := wire.DecodeSsidSpecBytes(body)
		if err != nil {
			return err
		}
		return setSSID(s)
	case CmdResetSSID:
		return resetSSID()
	case CmdHWConfigMessage:
		frame := make([]byte, len(body))
		copy(frame, body)
		select {
		case a.in <- frame:
		default:
			// interrupt-IN side is the only flow-controlled direction;
			// a full inbound queue here means the agent core isn't
			// draining fast enough, so drop rather than stall EP0.
		}
		return nil
	}
	return pkg.ErrInvalidRequest
}

// Inbound yields ConfigMessage frames the controller pushed via
// HW_CONFIG_MESSAGE control-OUT transfers.
func (a *Agent) Inbound() <-chan []byte { return a.in }

// Send pushes frame out over the interrupt-IN endpoint (spec.md §4.4:
// outbound IoLevelChanged events and the bare HardwareConfig GetConfig reply).
func (a *Agent) Send(frame []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), interruptRetry)
	defer cancel()
	_, err := a.stack.Write(ctx, a.ep, frame)
	return err
}

func (a *Agent) Close() error { return a.stack.Stop() }

// Handshake is a no-op on the device side: the host pulls the initial
// HardwareDescription and HardwareConfig itself via explicit control
// requests (CmdGetHardwareDescription, then a HW_CONFIG_MESSAGE
// GetConfig), mirroring controller_usb.go's own no-op Session.Handshake.
// Implementing it lets *Agent satisfy transport.Session directly, so
// cmd/porky can hand it straight to agent.Core.Connect.
func (a *Agent) Handshake(wire.Handshake) error { return nil }

func (a *Agent) Err() error { return nil }

func (a *Agent) RemoteAddr() string { return "usb:device" }

// fixedHAL is a minimal hal.DeviceHAL backed by fixed-size queues, in the
// same no-heap style as pindriver/driver_mcu.go's edge queue: the actual
// register-level ISR plumbing is board-SDK-specific and lives beneath
// this file's build tag in the board support package. fixedHAL has no
// method that puts packets into setupQ or ep0OutQ, and nothing in this
// package fills them.
type fixedHAL struct {
	setupQ chan hal.SetupPacket
	ep0OutQ chan []byte
	connected bool
}

func newFixedHAL() *fixedHAL {
	return &fixedHAL{setupQ: make(chan hal.SetupPacket, 4), ep0OutQ: make(chan []byte, 4)}
}

func (h *fixedHAL) Init(ctx context.Context) error { return nil }
func (h *fixedHAL) Start() error                   { h.connected = true; return nil }
func (h *fixedHAL) Stop() error                    { h.connected = false; return nil }
func (h *fixedHAL) SetAddress(uint8) error         { return nil }
func (h *fixedHAL) ConfigureEndpoints([]hal.EndpointConfig) error { return nil }

func (h *fixedHAL) ReadSetup(ctx context.Context, out *hal.SetupPacket) error {
	select {
	case p := <-h.setupQ:
		*out = p
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *fixedHAL) WriteEP0(ctx context.Context, data []byte) error { return nil }

func (h *fixedHAL) ReadEP0(ctx context.Context, buf []byte) (int, error) {
	select {
	case b := <-h.ep0OutQ:
		return copy(buf, b), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (h *fixedHAL) StallEP0() error { return nil }
func (h *fixedHAL) AckEP0() error   { return nil }

func (h *fixedHAL) Read(ctx context.Context, address uint8, buf []byte) (int, error) {
	return 0, pkg.ErrNotConfigured
}

func (h *fixedHAL) Write(ctx context.Context, address uint8, data []byte) (int, error) {
	return len(data), nil
}

func (h *fixedHAL) IsConnected() bool { return h.connected }

func (h *fixedHAL) WaitConnect(ctx context.Context) error {
	for !h.connected {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
	return nil
}

func (h *fixedHAL) WaitDisconnect(ctx context.Context) error {
	for h.connected {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
	return nil
}

func (h *fixedHAL) Speed() hal.Speed { return hal.SpeedFull }

// NewHAL returns a fixedHAL as a hal.DeviceHAL. It exposes no way to feed
// its setup or EP0-OUT queues, so ReadSetup and ReadEP0 only return once
// their context is done.
func NewHAL() hal.DeviceHAL { return newFixedHAL() }
