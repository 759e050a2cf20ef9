// Package usb implements the host (controller) side of the USB vendor
// Transport Adapter (spec.md §4.4, §6) using github.com/google/gousb, the
// Go ecosystem's wrapper over the same Linux usbfs ioctl control/
// interrupt transfer model exercised by _examples/Daedaluz-gousb. The
// device (agent/porky) side lives in agent_usb.go, built only for the
// rp2040/rp2350 target.
package usb

import (
	"time"

	"github.com/google/gousb"

	"gpioctl/wire"
)

// VendorID and ProductID identify the agent's vendor interface (spec.md
// §6).
const (
	VendorID  = gousb.ID(0xbabe)
	ProductID = gousb.ID(0xface)
)

// Control request/sub-command values (spec.md §4.4). Stable per build;
// chosen here and shared by agent_usb.go.
const (
	ReqVendor = 0x00

	CmdGetHardwareDescription = 0x01
	CmdGetHardwareDetails     = 0x02
	CmdGetWifi                = 0x03
	CmdSetSSID                = 0x04
	CmdResetSSID              = 0x05
	CmdHWConfigMessage        = 0x06

	InterruptInEndpoint = 0x81
)

const controlBufLen = wire.MaxValueLen

// interruptRetry is the delay between failed interrupt-IN polls (spec.md
// §4.4, §5: "a failed transfer is retried after 1 s").
const interruptRetry = time.Second

// Device wraps one opened USB handle to an agent presenting the vendor
// interface, matched by VendorID/ProductID/serial (spec.md §4.4).
type Device struct {
	ctx    *gousb.Context
	dev    *gousb.Device
	cfg    *gousb.Config
	intf   *gousb.Interface
	inEP   *gousb.InEndpoint
	serial string
}

// Open enumerates devices matching VendorID/ProductID and opens the one
// whose iSerial descriptor equals serial.
func Open(serial string) (*Device, error) {
	ctx := gousb.NewContext()
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == VendorID && desc.Product == ProductID
	})
	var dev *gousb.Device
	for _, d := range devs {
		if s, serr := d.SerialNumber(); dev == nil && serr == nil && (serial == "" || s == serial) {
			dev = d
		} else {
			d.Close()
		}
	}
	if dev == nil {
		ctx.Close()
		if err == nil {
			err = errNotFound
		}
		return nil, err
	}
	got, err := dev.SerialNumber()
	if err != nil || (serial != "" && got != serial) {
		dev.Close()
		ctx.Close()
		if err == nil {
			err = errNotFound
		}
		return nil, err
	}
	cfg, err := dev.Config(1)
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, err
	}
	intf, err := cfg.Interface(0, 0)
	if err != nil {
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, err
	}
	inEP, err := intf.InEndpoint(InterruptInEndpoint & 0x0f)
	if err != nil {
		intf.Close()
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, err
	}
	return &Device{ctx: ctx, dev: dev, cfg: cfg, intf: intf, inEP: inEP, serial: got}, nil
}

func (d *Device) controlIn(cmd uint16) ([]byte, error) {
	buf := make([]byte, controlBufLen)
	n, err := d.dev.Control(gousb.ControlIn|gousb.ControlVendor|gousb.ControlInterface, ReqVendor, cmd, 0, buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func (d *Device) controlOut(cmd uint16, body []byte) error {
	_, err := d.dev.Control(gousb.ControlOut|gousb.ControlVendor|gousb.ControlInterface, ReqVendor, cmd, 0, body)
	return err
}

// GetHardwareDetails is the discovery fast path (spec.md §4.4, §4.7,
// SUPPLEMENTED FEATURES): cheaper than a full description round trip
// when enumerating many USB devices.
func (d *Device) GetHardwareDetails() (wire.HardwareDetails, error) {
	b, err := d.controlIn(CmdGetHardwareDetails)
	if err != nil {
		return wire.HardwareDetails{}, err
	}
	return wire.DecodeHardwareDetailsBytes(b)
}

func (d *Device) GetHardwareDescription() (wire.HardwareDescription, error) {
	b, err := d.controlIn(CmdGetHardwareDescription)
	if err != nil {
		return wire.HardwareDescription{}, err
	}
	return wire.DecodeHardwareDescriptionBytes(b)
}

func (d *Device) GetWiFi() (wire.WiFiDetails, error) {
	b, err := d.controlIn(CmdGetWifi)
	if err != nil {
		return wire.WiFiDetails{}, err
	}
	return wire.DecodeWiFiDetailsBytes(b)
}

func (d *Device) SetSSID(s wire.SsidSpec) error { return d.controlOut(CmdSetSSID, s.Encode()) }
func (d *Device) ResetSSID() error              { return d.controlOut(CmdResetSSID, nil) }

// Session implements transport.Session over a USB Device: outbound
// ConfigMessages are control-OUT HW_CONFIG_MESSAGE transfers, inbound
// events are polled from the interrupt-IN endpoint with the spec's 1s
// retry-on-failure policy.
type Session struct {
	dev    *Device
	in     chan []byte
	stop   chan struct{}
	lastErr error
}

// NewSession starts polling dev's interrupt-IN endpoint for outbound
// events (IoLevelChanged, or the bare HardwareConfig the agent sends in
// reply to GetConfig).
func NewSession(dev *Device) *Session {
	s := &Session{dev: dev, in: make(chan []byte, 8), stop: make(chan struct{})}
	go s.pollLoop()
	return s
}

func (s *Session) pollLoop() {
	defer close(s.in)
	buf := make([]byte, controlBufLen)
	for {
		select {
		case <-s.stop:
			return
		default:
		}
		n, err := s.dev.inEP.Read(buf)
		if err != nil {
			select {
			case <-s.stop:
				return
			case <-time.After(interruptRetry):
				continue
			}
		}
		if n == 0 {
			continue
		}
		frame := make([]byte, n)
		copy(frame, buf[:n])
		s.in <- frame
	}
}

func (s *Session) Inbound() <-chan []byte { return s.in }

// Send issues HW_CONFIG_MESSAGE with frame as the control-OUT body
// (spec.md §4.4).
func (s *Session) Send(frame []byte) error { return s.dev.controlOut(CmdHWConfigMessage, frame) }

// Handshake is a no-op: USB's handshake is host-pulled rather than
// device-pushed, and this method fetches nothing. A caller pulls the
// description with Device.GetHardwareDescription and the config by
// sending GetConfig.
func (s *Session) Handshake(hs wire.Handshake) error { return nil }

func (s *Session) Close() error {
	close(s.stop)
	s.dev.intf.Close()
	s.dev.cfg.Close()
	s.dev.dev.Close()
	s.dev.ctx.Close()
	return nil
}

func (s *Session) Err() error         { return s.lastErr }
func (s *Session) RemoteAddr() string { return "usb:" + s.dev.serial }

var errNotFound = notFoundErr{}

type notFoundErr struct{}

func (notFoundErr) Error() string { return "usb: device not found" }
