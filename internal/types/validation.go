package types

import (
	"encoding/hex"
)

// Content-hash bounds. Fingerprints are opaque to the engine but must decode
// as hex of a plausible digest length so junk never enters the record.
const (
	MinHashBytes = 16
	MaxHashBytes = 64
)

// ValidateContentHash checks that a fingerprint field is well-formed hex of a
// digest-sized payload
func ValidateContentHash(s string) error {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return ErrInvalidHash.Wrapf("%q is not hex", s)
	}
	if len(raw) < MinHashBytes || len(raw) > MaxHashBytes {
		return ErrInvalidHash.Wrapf("%q: digest must be %d-%d bytes", s, MinHashBytes, MaxHashBytes)
	}
	return nil
}

// ValidateQualityScore checks a 0-100 quality value
func ValidateQualityScore(score int) error {
	if score < 0 || score > 100 {
		return ErrInvalidScore.Wrapf("%d", score)
	}
	return nil
}
