package torlib

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// InfoHash is the 20-byte SHA-1 hash identifying a torrent's info dictionary.
type InfoHash [20]byte

// Bytes returns the byte representation of an InfoHash.
func (h InfoHash) Bytes() []byte {
	return h[:]
}

// AsString casts the underlying byte array to a string.
func (h InfoHash) AsString() string {
	return string(h[:])
}

// String formats h as a hexadecimal string.
func (h InfoHash) String() string {
	return h.HexString()
}

// HexString converts h into a hexadecimal string.
func (h InfoHash) HexString() string {
	return fmt.Sprintf("%x", h[:])
}

// NewInfoHashFromHex parses a hexadecimal string into an InfoHash.
func NewInfoHashFromHex(s string) (h InfoHash, err error) {
	if len(s) != 40 {
		err = fmt.Errorf("InfoHash hex string has bad length: %d", len(s))
		return
	}
	n, err := hex.Decode(h[:], []byte(s))
	if err != nil {
		return
	}
	if n != 20 {
		panic(n)
	}
	return
}

// NewInfoHashFromBytes computes the SHA-1 hash of b and returns it as an InfoHash.
func NewInfoHashFromBytes(b []byte) (h InfoHash) {
	hasher := sha1.New()
	hasher.Write(b)
	copy(h[:], hasher.Sum(nil))
	return
}
