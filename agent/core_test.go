package agent

import (
	"path/filepath"
	"testing"
	"time"

	"gpioctl/persistence"
	"gpioctl/pindriver"
	"gpioctl/wire"
)

// testDriver is a minimal in-memory pindriver.Driver stand-in, grounded
// the same way the teacher's own *_test.go files build hand-written fakes
// rather than pulling in a mocking library (bus/bus_test.go,
// services/hal/internal/gpioirq/irq_worker_test.go).
type testDriver struct {
	funcs map[wire.BcmPin]wire.PinFunction
	level map[wire.BcmPin]bool
}

func newTestDriver() *testDriver {
	return &testDriver{funcs: map[wire.BcmPin]wire.PinFunction{}, level: map[wire.BcmPin]bool{}}
}

func (d *testDriver) Describe() wire.HardwareDescription { return wire.HardwareDescription{} }
func (d *testDriver) TimeSinceBoot() time.Duration        { return 0 }

func (d *testDriver) ApplyPin(bcm wire.BcmPin, f wire.PinFunction, cb pindriver.EdgeCallback) error {
	if f.Kind == wire.KindUnused {
		delete(d.funcs, bcm)
		delete(d.level, bcm)
		return nil
	}
	d.funcs[bcm] = f
	if f.Kind == wire.KindInput {
		d.level[bcm] = false
		cb(bcm, wire.LevelChange{NewLevel: false})
	}
	return nil
}

func (d *testDriver) SetOutputLevel(bcm wire.BcmPin, level bool) error {
	d.level[bcm] = level
	return nil
}

func (d *testDriver) GetInputLevel(bcm wire.BcmPin) (bool, error) {
	return d.level[bcm], nil
}

// testSession is an in-memory transport.Session.
type testSession struct {
	in       chan []byte
	sent     [][]byte
	closed   bool
	hs       wire.Handshake
	hsCalled bool
}

func newTestSession() *testSession {
	return &testSession{in: make(chan []byte, 16)}
}

func (s *testSession) Inbound() <-chan []byte { return s.in }
func (s *testSession) Send(frame []byte) error {
	s.sent = append(s.sent, frame)
	return nil
}
func (s *testSession) Handshake(hs wire.Handshake) error {
	s.hs, s.hsCalled = hs, true
	return nil
}
func (s *testSession) Close() error       { s.closed = true; return nil }
func (s *testSession) Err() error         { return nil }
func (s *testSession) RemoteAddr() string { return "test" }

func newCoreForTest(t *testing.T) (*Core, *testDriver) {
	t.Helper()
	d := newTestDriver()
	store := persistence.New(filepath.Join(t.TempDir(), "agent.pigg_config"))
	c := NewCore(d, store)
	t.Cleanup(c.Shutdown)
	return c, d
}

// S1: configure output, write a level, GetConfig reflects it.
func TestS1ConfigureOutputReadBack(t *testing.T) {
	c, _ := newCoreForTest(t)
	sess := newTestSession()
	go c.Connect(sess)
	waitForHandshake(t, sess)

	sess.in <- wire.NewPinConfigMessage(2, wire.Output(wire.InitialUnset)).Encode()
	sess.in <- wire.IoLevelChangedMessage(2, wire.LevelChange{NewLevel: true}).Encode()
	sess.in <- wire.GetConfigMessage().Encode()
	time.Sleep(20 * time.Millisecond)
	close(sess.in)

	cfg := lastDecodedConfig(t, sess)
	f, ok := cfg[2]
	if !ok || f.Kind != wire.KindOutput || f.Initial != wire.InitialHigh {
		t.Fatalf("pin 2 = %+v, ok=%v, want Output(High)", f, ok)
	}
}

// S2: clearing a pin removes it from the config.
func TestS2ClearPin(t *testing.T) {
	c, _ := newCoreForTest(t)
	sess := newTestSession()
	go c.Connect(sess)
	waitForHandshake(t, sess)

	sess.in <- wire.NewPinConfigMessage(2, wire.Output(wire.InitialUnset)).Encode()
	sess.in <- wire.NewPinConfigMessage(2, wire.Unused()).Encode()
	sess.in <- wire.GetConfigMessage().Encode()
	time.Sleep(20 * time.Millisecond)
	close(sess.in)

	cfg := lastDecodedConfig(t, sess)
	if _, ok := cfg[2]; ok {
		t.Fatalf("expected pin 2 absent, got %+v", cfg[2])
	}
}

// S3: a non-programmable pin is rejected without disconnecting.
func TestS3RejectInvalidPin(t *testing.T) {
	c, _ := newCoreForTest(t)
	sess := newTestSession()
	go c.Connect(sess)
	waitForHandshake(t, sess)

	sess.in <- wire.NewPinConfigMessage(100, wire.Output(wire.InitialUnset)).Encode()
	sess.in <- wire.GetConfigMessage().Encode()
	time.Sleep(20 * time.Millisecond)
	close(sess.in)

	cfg := lastDecodedConfig(t, sess)
	if len(cfg) != 0 {
		t.Fatalf("expected empty config, got %v", cfg)
	}
	if sess.closed {
		t.Fatal("session must not be closed by an invalid pin")
	}
}

// A second connection while one is Serving is handshaken then
// disconnected, and the original session continues uninterrupted.
func TestSecondConnectionIsHandshakenThenDisconnected(t *testing.T) {
	c, _ := newCoreForTest(t)
	first := newTestSession()
	go c.Connect(first)
	waitForHandshake(t, first)

	second := newTestSession()
	c.Connect(second) // synchronous: returns once handshaken+closed

	if !second.hsCalled {
		t.Fatal("second session should still be handshaken")
	}
	if !second.closed {
		t.Fatal("second session should be closed")
	}
	if first.closed {
		t.Fatal("first session must remain open")
	}
	if c.State() != Serving {
		t.Fatalf("state = %v, want Serving (first session still active)", c.State())
	}
}

func waitForHandshake(t *testing.T, s *testSession) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !s.hsCalled {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for handshake")
		}
		time.Sleep(time.Millisecond)
	}
}

func lastDecodedConfig(t *testing.T, s *testSession) wire.HardwareConfig {
	t.Helper()
	if len(s.sent) == 0 {
		t.Fatal("no frames sent")
	}
	cfg, err := wire.DecodeHardwareConfigBytes(s.sent[len(s.sent)-1])
	if err != nil {
		t.Fatalf("decode last sent frame: %v", err)
	}
	return cfg
}
