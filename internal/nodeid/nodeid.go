// Package nodeid derives the 32-byte public-key identity the QUIC overlay
// transport advertises and dials by (spec.md §6: "Endpoint identity is a
// 32-byte public key"). An Ed25519 key pair is generated on first run and
// persisted next to the agent's executable so the node's identity is
// stable across restarts, the same "state survives reboot" expectation
// the persistence package gives HardwareConfig.
package nodeid

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"os"
)

// ID is the 32-byte Ed25519 public key used as the QUIC node identity.
type ID [ed25519.PublicKeySize]byte

func (id ID) String() string { return hex.EncodeToString(id[:]) }

// KeyPair is a node identity plus its private key, used to configure the
// QUIC endpoint's TLS certificate.
type KeyPair struct {
	Public  ID
	Private ed25519.PrivateKey
}

// LoadOrCreate reads a raw 64-byte Ed25519 private key from path, or
// generates and persists a fresh one if path does not exist.
func LoadOrCreate(path string) (KeyPair, error) {
	if b, err := os.ReadFile(path); err == nil {
		if len(b) != ed25519.PrivateKeySize {
			return KeyPair{}, errors.New("nodeid: corrupt key file")
		}
		priv := ed25519.PrivateKey(b)
		var id ID
		copy(id[:], priv.Public().(ed25519.PublicKey))
		return KeyPair{Public: id, Private: priv}, nil
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, err
	}
	if err := os.WriteFile(path, priv, 0o600); err != nil {
		return KeyPair{}, err
	}
	var id ID
	copy(id[:], pub)
	return KeyPair{Public: id, Private: priv}, nil
}

// Parse decodes a hex-encoded node ID as advertised over mDNS
// (IrohNodeID TXT key, spec.md §4.7) or read from a USB descriptor.
func Parse(s string) (ID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return ID{}, err
	}
	if len(b) != ed25519.PublicKeySize {
		return ID{}, errors.New("nodeid: wrong length")
	}
	var id ID
	copy(id[:], b)
	return id, nil
}
