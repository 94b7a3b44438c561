package pincode

import (
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/blake2b"
)

// Hasher derives the stored form of a code: keyed BLAKE2b-256 over the
// canonical digits. The key acts as a server-side salt; verification hashes
// the user's input again and compares hashes.
type Hasher struct {
	key []byte
}

func NewHasher(secret string) (*Hasher, error) {
	if len(secret) < 16 {
		return nil, errors.New("code hash secret must be at least 16 bytes")
	}
	if len(secret) > blake2b.Size {
		return nil, errors.New("code hash secret must be at most 64 bytes")
	}
	return &Hasher{key: []byte(secret)}, nil
}

// Hash returns the hex digest of code. Malformed input is rejected so that
// "1234-5678" and "12345678" always hash identically.
func (h *Hasher) Hash(code string) (string, error) {
	d, err := Digits(code)
	if err != nil {
		return "", err
	}
	mac, err := blake2b.New256(h.key)
	if err != nil {
		return "", err
	}
	mac.Write([]byte(d))
	return hex.EncodeToString(mac.Sum(nil)), nil
}
