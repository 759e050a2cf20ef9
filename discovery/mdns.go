// Package discovery implements the two independent discovery mechanisms
// of C7 — mDNS (TCP-reachable agents) and USB (vendor/product
// enumeration) — both producing the same DiscoveredDevice record
// (spec.md §4.7), merged by serial in Registry.
package discovery

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/grandcat/zeroconf"

	"gpioctl/wire"
)

// ServiceType is the mDNS service type agents register under (spec.md
// §4.7: "_pigg._tcp.local.").
const ServiceType = "_pigg._tcp"
const Domain = "local."

// TXT keys (case-insensitive per spec.md §4.7).
const (
	txtSerial       = "Serial"
	txtModel        = "Model"
	txtAppName      = "AppName"
	txtAppVersion   = "AppVersion"
	txtIrohNodeID   = "IrohNodeID"
	txtIrohRelayURL = "IrohRelayURL"
)

// Register publishes this agent's TCP listener over mDNS with instance
// name = serial and port = TCP listen port (spec.md §4.7). The advertised
// hostname is the machine's own, as zeroconf.Register picks it; it is not
// "<serial>.local.". nodeID/relayURL are included as TXT records only when
// the QUIC transport is also compiled in and running.
func Register(details wire.HardwareDetails, tcpPort int, nodeID, relayURL string) (*zeroconf.Server, error) {
	txt := []string{
		txtSerial + "=" + details.Serial,
		txtModel + "=" + details.Model,
		txtAppName + "=" + details.AppName,
		txtAppVersion + "=" + details.AppVersion,
	}
	if nodeID != "" {
		txt = append(txt, txtIrohNodeID+"="+nodeID)
	}
	if relayURL != "" {
		txt = append(txt, txtIrohRelayURL+"="+relayURL)
	}
	return zeroconf.Register(details.Serial, ServiceType, Domain, tcpPort, txt, nil)
}

// Browse watches for agents announcing over mDNS, sending one Event per
// appearance/disappearance to out until ctx is cancelled (spec.md §4.7:
// "a disappearing mDNS announcement removes the TCP transport").
func Browse(ctx context.Context, out chan<- Event) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("discovery: new resolver: %w", err)
	}
	entries := make(chan *zeroconf.ServiceEntry, 16)
	go func() {
		for entry := range entries {
			dev, ok := deviceFromEntry(entry)
			if !ok {
				continue
			}
			out <- Event{Device: dev, Method: MethodMdns, Removed: len(entry.AddrIPv4) == 0 && len(entry.AddrIPv6) == 0}
		}
	}()
	return resolver.Browse(ctx, ServiceType, Domain, entries)
}

func deviceFromEntry(entry *zeroconf.ServiceEntry) (DiscoveredDevice, bool) {
	txt := map[string]string{}
	for _, kv := range entry.Text {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				txt[strings.ToLower(kv[:i])] = kv[i+1:]
				break
			}
		}
	}
	get := func(key string) string { return txt[strings.ToLower(key)] }
	serial := get(txtSerial)
	if serial == "" {
		return DiscoveredDevice{}, false
	}
	dev := DiscoveredDevice{
		Serial: serial,
		Details: wire.HardwareDetails{
			Serial:     serial,
			Model:      get(txtModel),
			AppName:    get(txtAppName),
			AppVersion: get(txtAppVersion),
		},
		Transports: map[string]HardwareConnection{},
	}
	if len(entry.AddrIPv4) > 0 {
		dev.Transports["tcp"] = HardwareConnection{Kind: TransportTCP, Addr: entry.AddrIPv4[0].String() + ":" + strconv.Itoa(entry.Port)}
	}
	if nodeID := get(txtIrohNodeID); nodeID != "" {
		dev.Transports["quic"] = HardwareConnection{Kind: TransportQUIC, NodeID: nodeID, RelayURL: get(txtIrohRelayURL)}
	}
	return dev, true
}
