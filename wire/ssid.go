package wire

// Security enumerates the Wi-Fi security modes a porky device may be told
// to join (spec.md §3).
type Security uint8

const (
	SecurityOpen Security = iota
	SecurityWPA
	SecurityWPA2
	SecurityWPA3
)

const (
	SsidNameMaxLen = 32
	SsidPassMaxLen = 63
	SsidPassMinLen = 8
)

// SsidSpec is porky-only: sent over USB as the body of SET_SSID (spec.md
// §3, §4.4). When Security != SecurityOpen, Pass must be 8-63 bytes; that
// invariant is not checked here, nor by the controller's usb.Device.SetSSID.
type SsidSpec struct {
	Name     string
	Pass     string
	Security Security
}

func (s SsidSpec) EncodeTo(e *Encoder) {
	e.str(s.Name)
	e.str(s.Pass)
	e.u8(uint8(s.Security))
}

func DecodeSsidSpec(d *Decoder) (SsidSpec, error) {
	var s SsidSpec
	var err error
	if s.Name, err = d.str(); err != nil {
		return s, err
	}
	if s.Pass, err = d.str(); err != nil {
		return s, err
	}
	sec, err := d.u8()
	if err != nil {
		return s, err
	}
	s.Security = Security(sec)
	return s, nil
}

func (s SsidSpec) Encode() []byte {
	e := NewEncoder()
	s.EncodeTo(e)
	return e.Bytes()
}

func DecodeSsidSpecBytes(p []byte) (SsidSpec, error) {
	d := NewDecoder(p)
	s, err := DecodeSsidSpec(d)
	if err != nil {
		return s, err
	}
	if !d.Done() {
		return SsidSpec{}, ErrLengthExceeded
	}
	return s, nil
}

// WiFiDetails is the GET_WIFI reply: optional ssid + optional TCP address
// (spec.md §4.4).
type WiFiDetails struct {
	HasSsid bool
	Ssid    string
	HasTcp  bool
	Tcp     string
}

func (w WiFiDetails) EncodeTo(e *Encoder) {
	e.bl(w.HasSsid)
	e.str(w.Ssid)
	e.bl(w.HasTcp)
	e.str(w.Tcp)
}

func DecodeWiFiDetails(d *Decoder) (WiFiDetails, error) {
	var w WiFiDetails
	var err error
	if w.HasSsid, err = d.bl(); err != nil {
		return w, err
	}
	if w.Ssid, err = d.str(); err != nil {
		return w, err
	}
	if w.HasTcp, err = d.bl(); err != nil {
		return w, err
	}
	if w.Tcp, err = d.str(); err != nil {
		return w, err
	}
	return w, nil
}

func (w WiFiDetails) Encode() []byte {
	e := NewEncoder()
	w.EncodeTo(e)
	return e.Bytes()
}

func DecodeWiFiDetailsBytes(p []byte) (WiFiDetails, error) {
	d := NewDecoder(p)
	w, err := DecodeWiFiDetails(d)
	if err != nil {
		return w, err
	}
	if !d.Done() {
		return WiFiDetails{}, ErrLengthExceeded
	}
	return w, nil
}
