// Package quic implements the QUIC overlay Transport Adapter (spec.md
// §4.4, §6): each agent endpoint carries a 32-byte public-key identity
// (internal/nodeid) plus an optional relay URL, advertised over mDNS
// (discovery/mdns.go, IrohNodeID/IrohRelayURL TXT keys). Handshake and
// every subsequent message are each a single finished unidirectional
// stream, read to end by the receiver up to 4096 bytes; end-of-stream on
// a freshly opened inbound stream, or of the parent connection, both mean
// "peer gone" (spec.md §4.4).
package quic

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"math/big"
	"net"
	"time"

	"github.com/quic-go/quic-go"

	"gpioctl/internal/nodeid"
	"gpioctl/wire"
)

// ALPN is the fixed protocol identifier this build negotiates (spec.md
// §6: "ALPN is a fixed byte string (stable per build)").
const ALPN = "pigg/1"

// maxMessageRead bounds ReadAll on an inbound stream (spec.md §4.4: "the
// receiver reads-to-end up to 4096 bytes").
const maxMessageRead = 4096

// Listener accepts QUIC connections under one node identity.
type Listener struct {
	tr   *quic.Transport
	ln   *quic.Listener
	ctx  context.Context
	kp   nodeid.KeyPair
}

// Listen binds addr with kp as the endpoint's TLS/node identity.
func Listen(addr string, kp nodeid.KeyPair) (*Listener, error) {
	udpAddr, err := resolveUDP(addr)
	if err != nil {
		return nil, err
	}
	conn, err := listenUDP(udpAddr)
	if err != nil {
		return nil, err
	}
	tr := &quic.Transport{Conn: conn}
	tlsConf, err := selfSignedTLSConfig(kp)
	if err != nil {
		return nil, err
	}
	ln, err := tr.Listen(tlsConf, &quic.Config{})
	if err != nil {
		return nil, err
	}
	return &Listener{tr: tr, ln: ln, ctx: context.Background(), kp: kp}, nil
}

func (l *Listener) Addr() string { return l.ln.Addr().String() }

func (l *Listener) Close() error {
	_ = l.ln.Close()
	return l.tr.Close()
}

// NodeID is this endpoint's public identity, advertised over mDNS
// (spec.md §4.7 IrohNodeID).
func (l *Listener) NodeID() nodeid.ID { return l.kp.Public }

// Accept waits for the next QUIC connection and wraps it as a Session.
func (l *Listener) Accept() (*Session, error) {
	conn, err := l.ln.Accept(l.ctx)
	if err != nil {
		return nil, err
	}
	return newSession(conn), nil
}

// Session implements transport.Session over one QUIC connection: each
// message is its own finished unidirectional stream (spec.md §4.4).
type Session struct {
	conn quic.Connection
	in   chan []byte
	err  error
}

func newSession(conn quic.Connection) *Session {
	s := &Session{conn: conn, in: make(chan []byte, 8)}
	go s.acceptLoop()
	return s
}

// Dial opens a connection to a peer's node ID at addr (resolved via the
// relay-aware dialer the controller's discovery layer supplies).
func Dial(ctx context.Context, addr string, kp nodeid.KeyPair) (*Session, error) {
	udpAddr, err := resolveUDP(addr)
	if err != nil {
		return nil, err
	}
	tlsConf, err := clientTLSConfig(kp)
	if err != nil {
		return nil, err
	}
	conn, err := quic.DialAddr(ctx, udpAddr.String(), tlsConf, &quic.Config{})
	if err != nil {
		return nil, err
	}
	return newSession(conn), nil
}

func (s *Session) acceptLoop() {
	defer close(s.in)
	for {
		str, err := s.conn.AcceptUniStream(context.Background())
		if err != nil {
			s.err = err
			return
		}
		b, err := io.ReadAll(io.LimitReader(str, maxMessageRead+1))
		if err != nil {
			s.err = err
			return
		}
		if len(b) > maxMessageRead {
			s.err = wire.ErrLengthExceeded
			return
		}
		if len(b) == 0 {
			// end-of-stream on a freshly opened inbound stream: peer gone.
			s.err = errors.New("quic: peer closed stream with no payload")
			return
		}
		s.in <- b
	}
}

func (s *Session) Inbound() <-chan []byte { return s.in }

func (s *Session) writeOneStream(b []byte) error {
	str, err := s.conn.OpenUniStreamSync(context.Background())
	if err != nil {
		return err
	}
	if _, err := str.Write(b); err != nil {
		return err
	}
	return str.Close() // "finish" the stream
}

func (s *Session) Send(frame []byte) error { return s.writeOneStream(frame) }

func (s *Session) Handshake(hs wire.Handshake) error { return s.writeOneStream(hs.Encode()) }

func (s *Session) Close() error {
	return s.conn.CloseWithError(0, "session closed")
}

func (s *Session) Err() error { return s.err }

func (s *Session) RemoteAddr() string { return s.conn.RemoteAddr().String() }

func resolveUDP(addr string) (*net.UDPAddr, error) { return net.ResolveUDPAddr("udp", addr) }

func listenUDP(addr *net.UDPAddr) (*net.UDPConn, error) { return net.ListenUDP("udp", addr) }

// selfSignedTLSConfig builds a self-signed certificate over kp's key
// so the endpoint's TLS identity is tied to its node identity
// (the Non-goals supplement: "no authentication/encryption above what
// the QUIC transport natively provides" — this is that native provision,
// not an added layer).
func selfSignedTLSConfig(kp nodeid.KeyPair) (*tls.Config, error) {
	cert, err := selfSignedCert(kp)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{ALPN},
	}, nil
}

func clientTLSConfig(kp nodeid.KeyPair) (*tls.Config, error) {
	cert, err := selfSignedCert(kp)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates:       []tls.Certificate{cert},
		NextProtos:         []string{ALPN},
		InsecureSkipVerify: true, // overlay identity is the node ID, not the CA chain
	}, nil
}

func selfSignedCert(kp nodeid.KeyPair) (tls.Certificate, error) {
	tmpl := &x509.Certificate{SerialNumber: big.NewInt(1), NotAfter: time.Now().Add(10 * 365 * 24 * time.Hour)}
	der, err := x509.CreateCertificate(nil, tmpl, tmpl, kp.Private.Public(), kp.Private)
	if err != nil {
		return tls.Certificate{}, err
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: kp.Private}, nil
}
