// Package wire implements the bit-exact binary codec shared by the
// controller, the desktop/Pi agent and the porky (MCU) agent (spec.md §4.1).
//
// The format is a compact, self-describing, heap-free encoding: tagged
// unions use a single leading discriminant byte in declaration order,
// integers are little-endian and fixed width, and every encoded value must
// fit in MaxValueLen bytes. Encoders that would exceed that are a bug in
// the caller; decoders treat an over-long input as a framing error.
package wire

import "encoding/binary"

// MaxValueLen is the largest a single encoded value may be (spec.md §4.1).
const MaxValueLen = 1024

// DecodeError classifies why a decode failed (spec.md §4.1, §7). All decode
// failures are fatal to the transport session that produced them.
type DecodeError string

func (e DecodeError) Error() string { return string(e) }

const (
	ErrShortInput          DecodeError = "short_input"
	ErrUnknownDiscriminant DecodeError = "unknown_discriminant"
	ErrLengthExceeded      DecodeError = "length_exceeded"
)

// Encoder appends to an in-memory buffer. It never allocates beyond the
// buffer's own growth, mirroring the register-level codecs in the pack
// (e.g. drivers/ltc4015) that work directly on fixed-width byte fields.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an Encoder with capacity hinted at MaxValueLen.
func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, MaxValueLen)}
}

// Bytes returns the encoded value so far. The caller must not encode a
// value longer than MaxValueLen; that invariant is the encoder's bug, not
// the decoder's problem.
func (e *Encoder) Bytes() []byte { return e.buf }

func (e *Encoder) u8(v uint8)   { e.buf = append(e.buf, v) }
func (e *Encoder) bl(v bool) {
	if v {
		e.u8(1)
	} else {
		e.u8(0)
	}
}

func (e *Encoder) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *Encoder) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *Encoder) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

// bytes writes a length-prefixed (u16) byte slice.
func (e *Encoder) bytes(p []byte) {
	e.u16(uint16(len(p)))
	e.buf = append(e.buf, p...)
}

// str writes a length-prefixed (u16) UTF-8 string.
func (e *Encoder) str(s string) { e.bytes([]byte(s)) }

// Decoder reads sequentially from a byte slice, never copying out of it
// except where the caller asks for an owned string/slice.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder wraps p. If p is longer than MaxValueLen the decoder refuses
// to read anything and every call returns ErrLengthExceeded.
func NewDecoder(p []byte) *Decoder {
	if len(p) > MaxValueLen {
		return &Decoder{buf: nil, pos: 0}
	}
	if p == nil {
		p = []byte{} // a nil input is empty, not over-long
	}
	return &Decoder{buf: p}
}

func (d *Decoder) remaining() int { return len(d.buf) - d.pos }

func (d *Decoder) need(n int) error {
	if d.buf == nil {
		return ErrLengthExceeded
	}
	if d.remaining() < n {
		return ErrShortInput
	}
	return nil
}

func (d *Decoder) u8() (uint8, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	v := d.buf[d.pos]
	d.pos++
	return v, nil
}

func (d *Decoder) bl() (bool, error) {
	v, err := d.u8()
	return v != 0, err
}

func (d *Decoder) u16() (uint16, error) {
	if err := d.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(d.buf[d.pos:])
	d.pos += 2
	return v, nil
}

func (d *Decoder) u32() (uint32, error) {
	if err := d.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(d.buf[d.pos:])
	d.pos += 4
	return v, nil
}

func (d *Decoder) u64() (uint64, error) {
	if err := d.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(d.buf[d.pos:])
	d.pos += 8
	return v, nil
}

func (d *Decoder) bytes() ([]byte, error) {
	n, err := d.u16()
	if err != nil {
		return nil, err
	}
	if err := d.need(int(n)); err != nil {
		return nil, err
	}
	p := make([]byte, n)
	copy(p, d.buf[d.pos:d.pos+int(n)])
	d.pos += int(n)
	return p, nil
}

func (d *Decoder) str() (string, error) {
	p, err := d.bytes()
	if err != nil {
		return "", err
	}
	return string(p), nil
}

// Done reports whether the decoder consumed the entire input. Callers that
// expect a standalone framed value (e.g. GetConfig's reply) use this to
// reject trailing garbage as ErrLengthExceeded.
func (d *Decoder) Done() bool { return d.remaining() == 0 }
