package discovery

import (
	"github.com/google/gousb"

	"gpioctl/transport/usb"
	"gpioctl/wire"
)

// ScanUSB enumerates every attached device matching VendorID/ProductID
// and issues GET_HARDWARE_DETAILS (and GET_WIFI when advertised) on
// each, treating every responder as discovered (spec.md §4.7 USB
// mechanism; fast-path detail described in SUPPLEMENTED FEATURES).
// Each record carries a Usb(serial) transport, plus a "tcp" transport
// when the device's GET_WIFI reply carries a TCP address; QUIC
// coordinates are not read over USB.
func ScanUSB() ([]DiscoveredDevice, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	var found []DiscoveredDevice
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == usb.VendorID && desc.Product == usb.ProductID
	})
	if err != nil {
		return nil, err
	}
	for _, gd := range devs {
		serial, err := gd.SerialNumber()
		gd.Close()
		if err != nil || serial == "" {
			continue
		}
		dev, err := usb.Open(serial)
		if err != nil {
			continue
		}
		details, err := dev.GetHardwareDetails()
		if err != nil {
			continue
		}
		d := DiscoveredDevice{
			Serial:  serial,
			Details: details,
			Transports: map[string]HardwareConnection{
				"usb": {Kind: TransportUSB, USBSerial: serial},
			},
		}
		if details.Wifi {
			if wifi, err := dev.GetWiFi(); err == nil {
				if wifi.HasSsid {
					spec := wire.SsidSpec{Name: wifi.Ssid}
					d.SSID = &spec
				}
				// §4.7 last paragraph: retrieved TCP coordinates from a
				// USB descriptor are added to transports too.
				if wifi.HasTcp {
					d.Transports["tcp"] = HardwareConnection{Kind: TransportTCP, Addr: wifi.Tcp}
				}
			}
		}
		found = append(found, d)
	}
	return found, nil
}
