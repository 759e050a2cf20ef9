// Package transport defines the single contract the Agent Core (package
// agent) uses against all three concrete adapters (spec.md §4.4): TCP
// (transport/tcp), the QUIC overlay (transport/quic) and USB vendor I/O
// (transport/usb). The Agent Core is transport-blind, the same narrow-seam
// pattern the teacher uses between its HAL event loop and concrete
// hardware/bus code (services/hal/internal/core).
package transport

import (
	"errors"

	"gpioctl/wire"
)

// ErrNotConnected is returned by a caller-side helper (controller.Subscription.Send)
// attempting to use a Session that isn't currently established.
var ErrNotConnected = errors.New("transport: not connected")

// Session is one accepted connection from a controller to an agent
// (GLOSSARY). Frames are opaque, codec-framed byte values: the Agent Core
// decodes each inbound frame as a wire.ConfigMessage and encodes outbound
// values itself (either a wire.ConfigMessage or, for GetConfig's reply, a
// bare wire.HardwareConfig) — the transport never inspects frame
// contents, only moves bytes (spec.md §4.1: "GetConfig ... emit[s] the
// current HardwareConfig ... not wrapped in NewConfig").
type Session interface {
	// Inbound delivers each frame received from the wire, still encoded,
	// in receipt order.
	// The channel closes when the session ends for any reason; call Err
	// afterward to find out why (nil means a clean peer-initiated close
	// or Disconnect, matching spec.md §7's non-fatal session teardown).
	Inbound() <-chan []byte

	// Send writes one framed value. Implementations apply the same
	// per-message size bound the frame was encoded under (spec.md §4.1,
	// MaxValueLen); callers are expected to pass values produced by the
	// wire package, which already enforce it.
	Send(frame []byte) error

	// Handshake writes the unified (HardwareDescription, HardwareConfig)
	// value exactly once, immediately after accept (spec.md §4.4, GLOSSARY
	// "Handshake").
	Handshake(hs wire.Handshake) error

	// Close tears down the session's underlying connection. Idempotent.
	Close() error

	// Err returns the error that ended the session, or nil for a clean
	// close. Only meaningful after Inbound's channel has closed.
	Err() error

	// RemoteAddr is a human-readable description of the peer, used for
	// logging only.
	RemoteAddr() string
}

// Listener describes the accept side of a Transport Adapter: it produces
// Sessions as connections arrive and can be asked to stop. The TCP and
// QUIC listeners have this method set except that their Accept returns
// the concrete *Session type, so neither satisfies this interface;
// cmd/agent uses them directly.
type Listener interface {
	// Accept blocks until a new Session is available or the listener is
	// closed, in which case it returns a non-nil error.
	Accept() (Session, error)

	// Addr is the bound local address, used by the Singleton Arbiter
	// (C6) to populate the info file (spec.md §4.6) and by Discovery
	// (C7) to advertise coordinates.
	Addr() string

	Close() error
}
